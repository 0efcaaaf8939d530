package repository

import (
	"context"
	"errors"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartItemGormRepository struct {
	db *gorm.DB
}

// DI
func NewCartItemGormRepository(db *gorm.DB) *CartItemGormRepository {
	return &CartItemGormRepository{db: db}
}

// カート明細を一覧取得
func (r *CartItemGormRepository) ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error) {
	var items []model.CartItem

	if err := r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Order("id asc").
		Find(&items).Error; err != nil {
		return []model.CartItem{}, err
	}

	return items, nil
}

// 明細の行数（異なる商品数）
func (r *CartItemGormRepository) CountByCartID(ctx context.Context, cartID int64) (int64, error) {
	var count int64

	if err := r.db.WithContext(ctx).
		Model(&model.CartItem{}).
		Where("cart_id = ?", cartID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *CartItemGormRepository) FindLineForUpdate(ctx context.Context, cartID int64, productID int64, variantID *int64) (model.CartItem, error) {
	var item model.CartItem

	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("cart_id = ? AND product_id = ? AND variant_key = ?", cartID, productID, model.VariantKeyOf(variantID)).
		First(&item).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.CartItem{}, repo.ErrNotFound
	}
	if err != nil {
		return model.CartItem{}, err
	}
	return item, nil
}

// 同一(商品, バリエーション)は数量加算。INSERT ... ON CONFLICT で1文で行う。
func (r *CartItemGormRepository) UpsertLine(ctx context.Context, cartID int64, productID int64, variantID *int64, addQty int64, unitPriceSnapshot int64) error {
	if addQty <= 0 {
		return errors.New("invalid quantity")
	}

	now := time.Now()
	item := model.CartItem{
		CartID:            cartID,
		ProductID:         productID,
		VariantID:         variantID,
		VariantKey:        model.VariantKeyOf(variantID),
		Quantity:          addQty,
		UnitPriceSnapshot: unitPriceSnapshot,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	// 既存行の価格（追加時点の価格）はそのまま
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "cart_id"}, {Name: "product_id"}, {Name: "variant_key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity":   gorm.Expr("cart_items.quantity + excluded.quantity"),
			"updated_at": now,
		}),
	}).Create(&item).Error
}

// 明細の数量を更新
func (r *CartItemGormRepository) UpdateQuantity(ctx context.Context, cartItemID int64, qty int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.CartItem{}).
		Where("id = ?", cartItemID).
		Update("quantity", qty)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 明細を削除
func (r *CartItemGormRepository) DeleteByID(ctx context.Context, cartItemID int64) error {
	res := r.db.WithContext(ctx).Delete(&model.CartItem{}, cartItemID)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 明細を取得
func (r *CartItemGormRepository) FindByID(ctx context.Context, cartItemID int64) (model.CartItem, error) {
	var item model.CartItem

	err := r.db.WithContext(ctx).
		Where("id = ?", cartItemID).
		First(&item).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.CartItem{}, repo.ErrNotFound
	}
	if err != nil {
		return model.CartItem{}, err
	}
	return item, nil
}

// 明細をそのまま作成（マージ時に価格を引き継ぐ用）
func (r *CartItemGormRepository) Create(ctx context.Context, item *model.CartItem) error {
	item.VariantKey = model.VariantKeyOf(item.VariantID)
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return translateError(err)
	}
	return nil
}

// 明細を読み込まずに件数・数量・金額を集計
func (r *CartItemGormRepository) Totals(ctx context.Context, cartID int64) (repo.CartTotals, error) {
	var t repo.CartTotals

	err := r.db.WithContext(ctx).
		Model(&model.CartItem{}).
		Select("COUNT(*) AS item_count, COALESCE(SUM(quantity), 0) AS total_quantity, COALESCE(SUM(quantity * unit_price_snapshot), 0) AS total_price").
		Where("cart_id = ?", cartID).
		Scan(&t).Error
	if err != nil {
		return repo.CartTotals{}, err
	}
	return t, nil
}
