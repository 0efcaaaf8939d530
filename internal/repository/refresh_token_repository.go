package repository

import (
	"context"
	"errors"
	"time"

	"storefront/internal/domain/model"
)

var ErrRefreshTokenNotFound = errors.New("refresh token not found")

// リフレッシュトークンの保存・取得・更新
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *model.RefreshToken) error
	FindByTokenHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error)
	// 旧トークンを使用済みにして新トークンを保存（どちらか失敗なら両方なし）。
	// 旧トークンがもう使えないならErrRefreshTokenNotFound
	Rotate(ctx context.Context, usedID string, usedAt time.Time, next *model.RefreshToken) error
	Revoke(ctx context.Context, tokenID string, revokedAt time.Time) error
	RevokeAllByUserID(ctx context.Context, userID int64, revokedAt time.Time) error
}
