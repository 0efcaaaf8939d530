package repository

import (
	"context"

	"storefront/internal/domain/model"
)

// 明細の集計結果
type CartTotals struct {
	ItemCount     int64
	TotalQuantity int64
	TotalPrice    int64
}

type CartItemRepository interface {
	ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error)
	CountByCartID(ctx context.Context, cartID int64) (int64, error)
	// (cart, product, variant) の明細を行ロック付きで取得
	FindLineForUpdate(ctx context.Context, cartID int64, productID int64, variantID *int64) (model.CartItem, error)
	// 同一(product, variant)はプラス。価格は新規作成時のものを保持。
	UpsertLine(ctx context.Context, cartID int64, productID int64, variantID *int64, addQty int64, unitPriceSnapshot int64) error
	UpdateQuantity(ctx context.Context, cartItemID int64, qty int64) error
	DeleteByID(ctx context.Context, cartItemID int64) error
	FindByID(ctx context.Context, cartItemID int64) (model.CartItem, error)
	Create(ctx context.Context, item *model.CartItem) error
	Totals(ctx context.Context, cartID int64) (CartTotals, error)
}
