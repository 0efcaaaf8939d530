package repository

import (
	"context"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InventoryGormRepository struct {
	db *gorm.DB
}

func NewInventoryGormRepository(db *gorm.DB) *InventoryGormRepository {
	return &InventoryGormRepository{db: db}
}

// 在庫を「現在値」に更新し、調整履歴も残す。変更前の在庫を返す。
func (r *InventoryGormRepository) SetStockWithAdjustment(ctx context.Context, adminUserID int64, productID int64, variantID *int64, newStock int64, reason string) (int64, error) {
	var before int64

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var target interface{}
		if variantID != nil {
			var v model.ProductVariant
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("id = ? AND product_id = ?", *variantID, productID).
				First(&v).Error
			if isNotFound(err) {
				return repo.ErrNotFound
			}
			if err != nil {
				return err
			}
			before = v.Stock
			target = &model.ProductVariant{ID: v.ID}
		} else {
			var p model.Product
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, productID).Error
			if isNotFound(err) {
				return repo.ErrNotFound
			}
			if err != nil {
				return err
			}
			before = p.Stock
			target = &model.Product{ID: p.ID}
		}

		//stockを更新
		res := tx.Model(target).Update("stock", newStock)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return repo.ErrNotFound
		}

		//adjustmentsを作成
		adj := model.InventoryAdjustment{
			ProductID:   productID,
			VariantID:   variantID,
			AdminUserID: adminUserID,
			Delta:       newStock - before,
			Reason:      reason,
		}
		return tx.Create(&adj).Error
	})
	if err != nil {
		return 0, err
	}
	return before, nil
}
