package usecase

import (
	"context"
	"sync"

	"storefront/internal/domain/model"
)

type cartMemoKey struct{}

// 1リクエスト内で解決済みのカートを覚えておく
type cartMemo struct {
	mu    sync.Mutex
	carts map[string]model.Cart
}

// リクエストの最初にmiddlewareから呼ぶ
func WithCartMemo(ctx context.Context) context.Context {
	if memoFrom(ctx) != nil {
		return ctx
	}
	return context.WithValue(ctx, cartMemoKey{}, &cartMemo{carts: map[string]model.Cart{}})
}

func memoFrom(ctx context.Context) *cartMemo {
	m, _ := ctx.Value(cartMemoKey{}).(*cartMemo)
	return m
}

func (m *cartMemo) get(scope model.CartScope) (model.Cart, bool) {
	if m == nil {
		return model.Cart{}, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[scope.Key()]
	return c, ok
}

func (m *cartMemo) put(scope model.CartScope, cart model.Cart) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[scope.Key()] = cart
}

func (m *cartMemo) forget(scope model.CartScope) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, scope.Key())
}
