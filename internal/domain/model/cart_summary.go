package model

// カート集計（金額は最小単位）
type CartSummary struct {
	ItemCount      int64  `json:"item_count"`
	TotalQuantity  int64  `json:"total_quantity"`
	TotalPrice     int64  `json:"total_price"`
	FormattedTotal string `json:"formatted_total"`
	IsEmpty        bool   `json:"is_empty"`
}
