package repository

import (
	"context"

	"storefront/internal/domain/model"
)

// 一覧検索
type ProductListQuery struct {
	Page       int
	Limit      int
	Q          string
	BrandID    *int64
	CategoryID *int64
	MinPrice   *int64
	MaxPrice   *int64
	Sort       string
}

// 商品・バリエーションの永続化（保存・取得）だけを約束。
type ProductRepository interface {
	ListPublic(ctx context.Context, q ProductListQuery) ([]model.Product, int64, error)
	FindByID(ctx context.Context, id int64) (model.Product, error)
	// variantsもpreloadして返す
	FindWithVariants(ctx context.Context, id int64) (model.Product, error)
	ListByIDs(ctx context.Context, ids []int64) ([]model.Product, error)

	Create(ctx context.Context, p model.Product) (model.Product, error)
	Update(ctx context.Context, p model.Product) error
	SoftDelete(ctx context.Context, id int64) error

	FindVariantByID(ctx context.Context, id int64) (model.ProductVariant, error)
	ListVariantsByIDs(ctx context.Context, ids []int64) ([]model.ProductVariant, error)
	CreateVariant(ctx context.Context, v model.ProductVariant) (model.ProductVariant, error)
	UpdateVariant(ctx context.Context, v model.ProductVariant) error
	DeleteVariant(ctx context.Context, id int64) error
}
