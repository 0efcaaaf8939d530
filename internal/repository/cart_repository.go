package repository

import (
	"context"

	"storefront/internal/domain/model"
)

type CartRepository interface {
	// スコープのACTIVEカートを取得し、無ければ作成（明細もpreload）
	GetOrCreateActive(ctx context.Context, scope model.CartScope) (model.Cart, error)
	FindActiveByUserID(ctx context.Context, userID int64) (model.Cart, error)
	FindActiveBySessionID(ctx context.Context, sessionID string) (model.Cart, error)
	FindByID(ctx context.Context, cartID int64) (model.Cart, error)
	// ゲストカートをユーザーに付け替える（session_idはNULLに、versionは+1）
	Reassign(ctx context.Context, cartID int64, userID int64) error
	// 明細を変えたらversionを+1する（古いサマリーキャッシュを読ませない）
	BumpVersion(ctx context.Context, cartID int64) error
	// 明細を全削除してversionを+1
	Clear(ctx context.Context, cartID int64) error
	// カートと明細を削除
	Delete(ctx context.Context, cartID int64) error
}
