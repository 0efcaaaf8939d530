package usecase

import (
	"github.com/shopspring/decimal"
)

// 最小単位の整数を表示用文字列に（1234, "$", 2 → "$12.34"）
func FormatMoney(minor int64, symbol string, exponent int32) string {
	return symbol + decimal.New(minor, -exponent).StringFixed(exponent)
}
