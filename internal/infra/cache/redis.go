package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"storefront/internal/domain/model"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

const summaryKeyPrefix = "cart:summary:"

type RedisSummaryCache struct {
	client  redis.Cmdable
	baseTTL time.Duration
	jitter  time.Duration
	breaker *gobreaker.CircuitBreaker[[]byte]
}

// DI
func NewRedisSummaryCache(client redis.Cmdable, log *zap.Logger) *RedisSummaryCache {
	return &RedisSummaryCache{
		client:  client,
		baseTTL: 10 * time.Minute,
		jitter:  time.Minute,
		breaker: newBreaker(log),
	}
}

// Redisが落ちている間はすぐ諦めてDBから集計させる
func newBreaker(log *zap.Logger) *gobreaker.CircuitBreaker[[]byte] {
	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "redis-cart-summary",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrCacheMiss)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
}

func (r *RedisSummaryCache) Get(ctx context.Context, cartID int64, version int64) (model.CartSummary, error) {
	data, err := r.breaker.Execute(func() ([]byte, error) {
		b, err := r.client.Get(ctx, summaryKey(cartID, version)).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		if err != nil {
			return nil, fmt.Errorf("redis get failed: %w", err)
		}
		return b, nil
	})
	if err != nil {
		return model.CartSummary{}, err
	}

	var summary model.CartSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return model.CartSummary{}, fmt.Errorf("unmarshal summary failed: %w", err)
	}
	return summary, nil
}

func (r *RedisSummaryCache) Set(ctx context.Context, cartID int64, version int64, summary model.CartSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary failed: %w", err)
	}

	ttl := r.baseTTL
	if r.jitter > 0 {
		ttl += time.Duration(rand.Int63n(int64(r.jitter)))
	}

	_, err = r.breaker.Execute(func() ([]byte, error) {
		if err := r.client.Set(ctx, summaryKey(cartID, version), data, ttl).Err(); err != nil {
			return nil, fmt.Errorf("redis set failed: %w", err)
		}
		return nil, nil
	})
	return err
}

func (r *RedisSummaryCache) Delete(ctx context.Context, cartID int64, version int64) error {
	_, err := r.breaker.Execute(func() ([]byte, error) {
		if err := r.client.Del(ctx, summaryKey(cartID, version)).Err(); err != nil {
			return nil, fmt.Errorf("redis delete failed: %w", err)
		}
		return nil, nil
	})
	return err
}

// cart:summary:<cart id>:v<version>
func summaryKey(cartID int64, version int64) string {
	return summaryKeyPrefix + strconv.FormatInt(cartID, 10) + ":v" + strconv.FormatInt(version, 10)
}
