package repository

import "context"

// 在庫の永続化と履歴保存をまとめた約束。
type InventoryRepository interface {
	// 在庫を「現在値」に更新し調整履歴も残す。variantIDがあればvariant在庫。
	SetStockWithAdjustment(ctx context.Context, adminUserID int64, productID int64, variantID *int64, newStock int64, reason string) (before int64, err error)
}
