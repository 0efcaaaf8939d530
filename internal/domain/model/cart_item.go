package model

import "time"

// カートの明細
// 追加時点の価格（unit_price_snapshot）を必ず保存。数量変更では再取得しない。
type CartItem struct {
	ID        int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	CartID    int64  `gorm:"not null;uniqueIndex:idx_cart_items_line,priority:1" json:"cart_id"`
	ProductID int64  `gorm:"not null;uniqueIndex:idx_cart_items_line,priority:2;index" json:"product_id"`
	VariantID *int64 `gorm:"index" json:"variant_id"`
	// variant無しは0。NULL同士はunique制約で重複扱いにならないため。
	VariantKey        int64     `gorm:"not null;default:0;uniqueIndex:idx_cart_items_line,priority:3" json:"-"`
	Quantity          int64     `gorm:"not null" json:"quantity"`
	UnitPriceSnapshot int64     `gorm:"not null;column:unit_price_snapshot" json:"unit_price_snapshot"`
	CreatedAt         time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func VariantKeyOf(variantID *int64) int64 {
	if variantID == nil {
		return 0
	}
	return *variantID
}

func (i CartItem) LineTotal() int64 {
	return i.UnitPriceSnapshot * i.Quantity
}
