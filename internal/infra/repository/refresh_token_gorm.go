package repository

import (
	"context"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"gorm.io/gorm"
)

// 使える（未使用かつ未失効）トークンだけに当てる条件
const liveRefreshToken = "used_at IS NULL AND revoked_at IS NULL"

type RefreshTokenGormRepository struct {
	db *gorm.DB
}

func NewRefreshTokenGormRepository(db *gorm.DB) *RefreshTokenGormRepository {
	return &RefreshTokenGormRepository{db: db}
}

func (r *RefreshTokenGormRepository) Create(ctx context.Context, token *model.RefreshToken) error {
	return translateError(r.db.WithContext(ctx).Create(token).Error)
}

// 平文は持たないのでハッシュで引く
func (r *RefreshTokenGormRepository) FindByTokenHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error) {
	var token model.RefreshToken
	err := r.db.WithContext(ctx).Take(&token, "token_hash = ?", tokenHash).Error
	if isNotFound(err) {
		return nil, repo.ErrRefreshTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// usedを使用済みにしてnextを保存する（同じtx）。
// usedが先に使われていたら何も保存せずErrRefreshTokenNotFound。
func (r *RefreshTokenGormRepository) Rotate(ctx context.Context, usedID string, usedAt time.Time, next *model.RefreshToken) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := stamp(tx, "used_at", usedAt, "id = ? AND "+liveRefreshToken, usedID); err != nil {
			return err
		}
		return translateError(tx.Create(next).Error)
	})
}

func (r *RefreshTokenGormRepository) Revoke(ctx context.Context, tokenID string, revokedAt time.Time) error {
	return stamp(r.db.WithContext(ctx), "revoked_at", revokedAt, "id = ? AND revoked_at IS NULL", tokenID)
}

// 0件でもエラーにしない（ログアウト済みでもよい）
func (r *RefreshTokenGormRepository) RevokeAllByUserID(ctx context.Context, userID int64, revokedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.RefreshToken{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", revokedAt).Error
}

// 条件に合う1件に時刻を入れる。0件はErrRefreshTokenNotFound
func stamp(db *gorm.DB, column string, at time.Time, query string, args ...interface{}) error {
	res := db.Model(&model.RefreshToken{}).Where(query, args...).Update(column, at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrRefreshTokenNotFound
	}
	return nil
}
