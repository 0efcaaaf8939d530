package cache

import (
	"context"
	"errors"

	"storefront/internal/domain/model"
)

var ErrCacheMiss = errors.New("cache miss")

// カートサマリーのキャッシュ。
// キーは(カートID, カートのversion)。明細を変えるとversionが上がるので、
// 古いエントリは削除に失敗しても読まれない。
type SummaryCache interface {
	Get(ctx context.Context, cartID int64, version int64) (model.CartSummary, error)
	Set(ctx context.Context, cartID int64, version int64, summary model.CartSummary) error
	Delete(ctx context.Context, cartID int64, version int64) error
}

// REDIS_ADDR未設定のとき用。常にミス
type NopSummaryCache struct{}

func (NopSummaryCache) Get(context.Context, int64, int64) (model.CartSummary, error) {
	return model.CartSummary{}, ErrCacheMiss
}

func (NopSummaryCache) Set(context.Context, int64, int64, model.CartSummary) error {
	return nil
}

func (NopSummaryCache) Delete(context.Context, int64, int64) error {
	return nil
}
