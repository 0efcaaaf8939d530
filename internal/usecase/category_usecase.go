package usecase

import (
	"context"
	"errors"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"go.uber.org/zap"
)

// 親をたどる上限（循環チェック用）
const maxCategoryDepth = 32

type CategoryUsecase struct {
	categories repo.CategoryRepository
	audits     repo.AuditLogRepository
	log        *zap.Logger
}

// DI
func NewCategoryUsecase(categories repo.CategoryRepository, audits repo.AuditLogRepository, log *zap.Logger) *CategoryUsecase {
	return &CategoryUsecase{categories: categories, audits: audits, log: log}
}

type CategoryInput struct {
	ParentID    *int64
	Name        string
	Slug        string
	Description string
	IsActive    *bool
}

func (u *CategoryUsecase) List(ctx context.Context) ([]model.Category, error) {
	cs, err := u.categories.List(ctx)
	if err != nil {
		return nil, internalError(err)
	}
	return cs, nil
}

func (u *CategoryUsecase) Get(ctx context.Context, id int64) (model.Category, error) {
	c, err := u.categories.FindByID(ctx, id)
	if err != nil {
		return model.Category{}, catalogError(err, "")
	}
	return c, nil
}

func (u *CategoryUsecase) Create(ctx context.Context, adminUserID int64, in CategoryInput) (model.Category, error) {
	ve := &ValidationError{}
	name, slug := normalizeNameSlug(ve, in.Name, in.Slug)
	if err := u.checkParent(ctx, ve, 0, in.ParentID); err != nil {
		return model.Category{}, err
	}
	if err := ve.OrNil(); err != nil {
		return model.Category{}, err
	}

	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}

	c, err := u.categories.Create(ctx, model.Category{
		ParentID:    in.ParentID,
		Name:        name,
		Slug:        slug,
		Description: in.Description,
		IsActive:    active,
	})
	if err != nil {
		return model.Category{}, catalogError(err, "category slug already exists")
	}

	if err := recordAudit(ctx, u.audits, adminUserID, model.AuditActionCreate, model.AuditResourceCategory, c.ID, nil, c); err != nil {
		return model.Category{}, internalError(err)
	}
	u.log.Info("category created", zap.Int64("category_id", c.ID), zap.Int64("admin_user_id", adminUserID))
	return c, nil
}

func (u *CategoryUsecase) Update(ctx context.Context, adminUserID int64, id int64, in CategoryInput) (model.Category, error) {
	before, err := u.categories.FindByID(ctx, id)
	if err != nil {
		return model.Category{}, catalogError(err, "")
	}

	ve := &ValidationError{}
	name, slug := normalizeNameSlug(ve, in.Name, in.Slug)
	if err := u.checkParent(ctx, ve, id, in.ParentID); err != nil {
		return model.Category{}, err
	}
	if err := ve.OrNil(); err != nil {
		return model.Category{}, err
	}

	after := before
	after.ParentID = in.ParentID
	after.Name = name
	after.Slug = slug
	after.Description = in.Description
	if in.IsActive != nil {
		after.IsActive = *in.IsActive
	}

	if err := u.categories.Update(ctx, after); err != nil {
		return model.Category{}, catalogError(err, "category slug already exists")
	}
	if err := recordAudit(ctx, u.audits, adminUserID, model.AuditActionUpdate, model.AuditResourceCategory, id, before, after); err != nil {
		return model.Category{}, internalError(err)
	}
	return after, nil
}

func (u *CategoryUsecase) Delete(ctx context.Context, adminUserID int64, id int64) error {
	before, err := u.categories.FindByID(ctx, id)
	if err != nil {
		return catalogError(err, "")
	}
	if err := u.categories.SoftDelete(ctx, id); err != nil {
		return catalogError(err, "")
	}
	if err := recordAudit(ctx, u.audits, adminUserID, model.AuditActionDelete, model.AuditResourceCategory, id, before, nil); err != nil {
		return internalError(err)
	}
	return nil
}

// 親は存在し、自分自身や子孫であってはいけない
func (u *CategoryUsecase) checkParent(ctx context.Context, ve *ValidationError, selfID int64, parentID *int64) error {
	if parentID == nil {
		return nil
	}
	if *parentID == selfID {
		ve.Add("parent_id", "category cannot be its own parent")
		return nil
	}

	next := parentID
	for depth := 0; next != nil; depth++ {
		if depth >= maxCategoryDepth {
			ve.Add("parent_id", "category tree is too deep")
			return nil
		}
		c, err := u.categories.FindByID(ctx, *next)
		if errors.Is(err, repo.ErrNotFound) {
			if depth == 0 {
				ve.Add("parent_id", "parent category does not exist")
			}
			return nil
		}
		if err != nil {
			return internalError(err)
		}
		if selfID != 0 && c.ID == selfID {
			ve.Add("parent_id", "category cannot be moved under its own descendant")
			return nil
		}
		next = c.ParentID
	}
	return nil
}
