package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

var (
	slugPattern  = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)
)

// "Summer Sale 2024!" → "summer-sale-2024"
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = nonSlugChars.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// name/slugの共通チェック。slugが空ならnameから作る。
func normalizeNameSlug(ve *ValidationError, name string, slug string) (string, string) {
	name = strings.TrimSpace(name)
	slug = strings.TrimSpace(slug)

	if name == "" {
		ve.Add("name", "name is required")
	} else if utf8.RuneCountInString(name) > 255 {
		ve.Add("name", "name must be at most 255 characters")
	}

	if slug == "" {
		slug = Slugify(name)
	}
	if name != "" && slug == "" {
		ve.Add("slug", "slug could not be derived from name")
	} else if slug != "" && !slugPattern.MatchString(slug) {
		ve.Add("slug", "slug may contain only lowercase letters, digits and hyphens")
	} else if len(slug) > 255 {
		ve.Add("slug", "slug must be at most 255 characters")
	}
	return name, slug
}

// 管理者操作の監査ログ。before/afterはJSONで残す。
func recordAudit(ctx context.Context, audits repo.AuditLogRepository, actorID int64, action model.AuditAction, resource model.AuditResourceType, resourceID int64, before any, after any) error {
	entry := model.AuditLog{
		ActorUserID:  actorID,
		Action:       action,
		ResourceType: resource,
		ResourceID:   resourceID,
	}
	if before != nil {
		b, err := json.Marshal(before)
		if err != nil {
			return err
		}
		entry.BeforeJSON = string(b)
	}
	if after != nil {
		b, err := json.Marshal(after)
		if err != nil {
			return err
		}
		entry.AfterJSON = string(b)
	}
	return audits.Create(ctx, entry)
}

// repoエラーの共通変換（not found / slug重複）
func catalogError(err error, conflictMsg string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repo.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repo.ErrConflict):
		return &HTTPError{Status: ErrConflict.Status, Message: conflictMsg, Err: err}
	}
	return internalError(err)
}
