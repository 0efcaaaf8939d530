package repository

import (
	"context"
	"testing"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/infra/db/dbtest"
	repo "storefront/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSessionID = "8c1b2e4a-1d3f-4f5a-9b7c-6e2d1a0f3b44"

func seedProduct(t *testing.T, gdb *gorm.DB, slug string, price int64) model.Product {
	t.Helper()
	p, err := NewProductGormRepository(gdb).Create(context.Background(), model.Product{
		Name:     slug,
		Slug:     slug,
		Price:    price,
		Stock:    10,
		IsActive: true,
	})
	require.NoError(t, err)
	return p
}

func seedUser(t *testing.T, gdb *gorm.DB, email string) model.User {
	t.Helper()
	u := model.User{Name: "Alice", Email: email, PasswordHash: "x", Role: model.RoleUser, IsActive: true}
	require.NoError(t, NewUserGormRepository(gdb).Create(context.Background(), &u))
	return u
}

func TestCartRepository_GetOrCreateActive(t *testing.T) {
	gdb := dbtest.New(t)
	carts := NewCartGormRepository(gdb)
	ctx := context.Background()

	first, err := carts.GetOrCreateActive(ctx, model.GuestScope(testSessionID))
	require.NoError(t, err)
	require.NotZero(t, first.ID)
	assert.True(t, first.IsGuest())
	assert.Equal(t, model.CartStatusActive, first.Status)

	again, err := carts.GetOrCreateActive(ctx, model.GuestScope(testSessionID))
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	_, err = carts.GetOrCreateActive(ctx, model.CartScope{})
	assert.Error(t, err)
}

func TestCartRepository_FindActive(t *testing.T) {
	gdb := dbtest.New(t)
	carts := NewCartGormRepository(gdb)
	ctx := context.Background()

	_, err := carts.FindActiveBySessionID(ctx, "")
	assert.ErrorIs(t, err, repo.ErrNotFound)

	_, err = carts.FindActiveBySessionID(ctx, testSessionID)
	assert.ErrorIs(t, err, repo.ErrNotFound)

	created, err := carts.GetOrCreateActive(ctx, model.GuestScope(testSessionID))
	require.NoError(t, err)

	found, err := carts.FindActiveBySessionID(ctx, testSessionID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
}

func TestCartRepository_ReassignToUser(t *testing.T) {
	gdb := dbtest.New(t)
	carts := NewCartGormRepository(gdb)
	ctx := context.Background()
	u := seedUser(t, gdb, "alice@example.com")

	guest, err := carts.GetOrCreateActive(ctx, model.GuestScope(testSessionID))
	require.NoError(t, err)

	require.NoError(t, carts.Reassign(ctx, guest.ID, u.ID))

	owned, err := carts.FindActiveByUserID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, guest.ID, owned.ID)
	assert.Nil(t, owned.SessionID)

	_, err = carts.FindActiveBySessionID(ctx, testSessionID)
	assert.ErrorIs(t, err, repo.ErrNotFound)

	assert.ErrorIs(t, carts.Reassign(ctx, 9999, u.ID), repo.ErrNotFound)
}

func TestCartItemRepository_UpsertAndTotals(t *testing.T) {
	gdb := dbtest.New(t)
	ctx := context.Background()
	mug := seedProduct(t, gdb, "mug", 1299)
	tee := seedProduct(t, gdb, "tee", 500)

	cart, err := NewCartGormRepository(gdb).GetOrCreateActive(ctx, model.GuestScope(testSessionID))
	require.NoError(t, err)

	items := NewCartItemGormRepository(gdb)
	require.NoError(t, items.UpsertLine(ctx, cart.ID, mug.ID, nil, 2, 1299))
	require.NoError(t, items.UpsertLine(ctx, cart.ID, mug.ID, nil, 1, 1499))
	require.NoError(t, items.UpsertLine(ctx, cart.ID, tee.ID, nil, 1, 500))
	assert.Error(t, items.UpsertLine(ctx, cart.ID, tee.ID, nil, 0, 500))

	lines, err := items.ListByCartID(ctx, cart.ID)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, int64(3), lines[0].Quantity)
	assert.Equal(t, int64(1299), lines[0].UnitPriceSnapshot)

	totals, err := items.Totals(ctx, cart.ID)
	require.NoError(t, err)
	assert.Equal(t, repo.CartTotals{ItemCount: 2, TotalQuantity: 4, TotalPrice: 3*1299 + 500}, totals)

	count, err := items.CountByCartID(ctx, cart.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestCartItemRepository_UpdateAndDelete(t *testing.T) {
	gdb := dbtest.New(t)
	ctx := context.Background()
	mug := seedProduct(t, gdb, "mug", 1299)

	carts := NewCartGormRepository(gdb)
	cart, err := carts.GetOrCreateActive(ctx, model.GuestScope(testSessionID))
	require.NoError(t, err)

	items := NewCartItemGormRepository(gdb)
	require.NoError(t, items.UpsertLine(ctx, cart.ID, mug.ID, nil, 1, 1299))

	line, err := items.FindLineForUpdate(ctx, cart.ID, mug.ID, nil)
	require.NoError(t, err)

	require.NoError(t, items.UpdateQuantity(ctx, line.ID, 7))
	got, err := items.FindByID(ctx, line.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.Quantity)

	require.NoError(t, items.DeleteByID(ctx, line.ID))
	_, err = items.FindByID(ctx, line.ID)
	assert.ErrorIs(t, err, repo.ErrNotFound)
	assert.ErrorIs(t, items.DeleteByID(ctx, line.ID), repo.ErrNotFound)

	// Clearは空のカートでも成功
	require.NoError(t, carts.Clear(ctx, cart.ID))
	assert.ErrorIs(t, carts.Clear(ctx, 9999), repo.ErrNotFound)
}

func TestCartRepository_DeleteRemovesItems(t *testing.T) {
	gdb := dbtest.New(t)
	ctx := context.Background()
	mug := seedProduct(t, gdb, "mug", 1299)

	carts := NewCartGormRepository(gdb)
	cart, err := carts.GetOrCreateActive(ctx, model.GuestScope(testSessionID))
	require.NoError(t, err)
	require.NoError(t, NewCartItemGormRepository(gdb).UpsertLine(ctx, cart.ID, mug.ID, nil, 1, 1299))

	require.NoError(t, carts.Delete(ctx, cart.ID))

	_, err = carts.FindByID(ctx, cart.ID)
	assert.ErrorIs(t, err, repo.ErrNotFound)

	var left int64
	require.NoError(t, gdb.Model(&model.CartItem{}).Where("cart_id = ?", cart.ID).Count(&left).Error)
	assert.Zero(t, left)
}

func TestTxManager_RollsBackOnError(t *testing.T) {
	gdb := dbtest.New(t)
	ctx := context.Background()
	mug := seedProduct(t, gdb, "mug", 1299)

	tm := NewTxManagerGorm(gdb)
	err := tm.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, err := r.Carts().GetOrCreateActive(ctx, model.GuestScope(testSessionID))
		if err != nil {
			return err
		}
		if err := r.CartItems().UpsertLine(ctx, cart.ID, mug.ID, nil, 1, 1299); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	_, err = NewCartGormRepository(gdb).FindActiveBySessionID(ctx, testSessionID)
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestProductRepository_ListPublic(t *testing.T) {
	gdb := dbtest.New(t)
	ctx := context.Background()
	products := NewProductGormRepository(gdb)

	seedProduct(t, gdb, "blue-mug", 1299)
	seedProduct(t, gdb, "red-mug", 900)
	hidden := seedProduct(t, gdb, "hidden-mug", 100)
	hidden.IsActive = false
	require.NoError(t, products.Update(ctx, hidden))

	list, total, err := products.ListPublic(ctx, repo.ProductListQuery{Page: 1, Limit: 10, Q: "MUG", Sort: "price_asc"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, list, 2)
	assert.Equal(t, "red-mug", list[0].Slug)

	maxPrice := int64(1000)
	list, total, err = products.ListPublic(ctx, repo.ProductListQuery{Page: 1, Limit: 10, MaxPrice: &maxPrice})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "red-mug", list[0].Slug)
}

func TestProductRepository_SlugAndSKUConflicts(t *testing.T) {
	gdb := dbtest.New(t)
	ctx := context.Background()
	products := NewProductGormRepository(gdb)
	p := seedProduct(t, gdb, "mug", 1299)

	_, err := products.Create(ctx, model.Product{Name: "Mug", Slug: "mug", Price: 1})
	assert.ErrorIs(t, err, repo.ErrConflict)

	_, err = products.CreateVariant(ctx, model.ProductVariant{ProductID: p.ID, SKU: "MUG-L", Name: "L", Price: 1399, Stock: 3, IsActive: true})
	require.NoError(t, err)
	_, err = products.CreateVariant(ctx, model.ProductVariant{ProductID: p.ID, SKU: "MUG-L", Name: "L2", Price: 1399, Stock: 3, IsActive: true})
	assert.ErrorIs(t, err, repo.ErrConflict)

	require.NoError(t, products.SoftDelete(ctx, p.ID))
	_, err = products.FindByID(ctx, p.ID)
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestInventoryRepository_SetStockWithAdjustment(t *testing.T) {
	gdb := dbtest.New(t)
	ctx := context.Background()
	admin := seedUser(t, gdb, "admin@example.com")
	p := seedProduct(t, gdb, "mug", 1299)

	inv := NewInventoryGormRepository(gdb)
	before, err := inv.SetStockWithAdjustment(ctx, admin.ID, p.ID, nil, 4, "recount")
	require.NoError(t, err)
	assert.Equal(t, int64(10), before)

	got, err := NewProductGormRepository(gdb).FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), got.Stock)

	var adj model.InventoryAdjustment
	require.NoError(t, gdb.Where("product_id = ?", p.ID).First(&adj).Error)
	assert.Equal(t, int64(-6), adj.Delta)
	assert.Equal(t, "recount", adj.Reason)

	missing := int64(9999)
	_, err = inv.SetStockWithAdjustment(ctx, admin.ID, p.ID, &missing, 1, "x")
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestRefreshTokenRepository_Lifecycle(t *testing.T) {
	gdb := dbtest.New(t)
	ctx := context.Background()
	u := seedUser(t, gdb, "alice@example.com")
	rts := NewRefreshTokenGormRepository(gdb)
	now := time.Now()

	tok := &model.RefreshToken{ID: "rt-1", UserID: u.ID, TokenHash: "hash-1", ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, rts.Create(ctx, tok))

	found, err := rts.FindByTokenHash(ctx, "hash-1")
	require.NoError(t, err)
	assert.Equal(t, "rt-1", found.ID)

	_, err = rts.FindByTokenHash(ctx, "nope")
	assert.ErrorIs(t, err, repo.ErrRefreshTokenNotFound)

	next := &model.RefreshToken{ID: "rt-2", UserID: u.ID, TokenHash: "hash-2", ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, rts.Rotate(ctx, "rt-1", now, next))

	used, err := rts.FindByTokenHash(ctx, "hash-1")
	require.NoError(t, err)
	require.NotNil(t, used.UsedAt)

	//使用済みからはもう回せない。新しいトークンも残らない
	lost := &model.RefreshToken{ID: "rt-3", UserID: u.ID, TokenHash: "hash-3", ExpiresAt: now.Add(time.Hour)}
	assert.ErrorIs(t, rts.Rotate(ctx, "rt-1", now, lost), repo.ErrRefreshTokenNotFound)
	_, err = rts.FindByTokenHash(ctx, "hash-3")
	assert.ErrorIs(t, err, repo.ErrRefreshTokenNotFound)

	require.NoError(t, rts.RevokeAllByUserID(ctx, u.ID, now))

	revoked, err := rts.FindByTokenHash(ctx, "hash-2")
	require.NoError(t, err)
	assert.NotNil(t, revoked.RevokedAt)
	assert.ErrorIs(t, rts.Revoke(ctx, "rt-2", now), repo.ErrRefreshTokenNotFound)
}

func TestUserRepository_IncrementTokenVersion(t *testing.T) {
	gdb := dbtest.New(t)
	ctx := context.Background()
	users := NewUserGormRepository(gdb)
	u := seedUser(t, gdb, "alice@example.com")

	require.NoError(t, users.IncrementTokenVersion(ctx, u.ID))
	require.NoError(t, users.IncrementTokenVersion(ctx, u.ID))

	got, err := users.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.TokenVersion)

	dup := model.User{Name: "Bob", Email: "alice@example.com", PasswordHash: "x", Role: model.RoleUser, IsActive: true}
	assert.ErrorIs(t, users.Create(ctx, &dup), repo.ErrConflict)
}

func TestRefreshTokenRepository_RotateRollsBackOnCreateFailure(t *testing.T) {
	gdb := dbtest.New(t)
	ctx := context.Background()
	u := seedUser(t, gdb, "alice@example.com")
	rts := NewRefreshTokenGormRepository(gdb)
	now := time.Now()

	require.NoError(t, rts.Create(ctx, &model.RefreshToken{ID: "rt-1", UserID: u.ID, TokenHash: "hash-1", ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, rts.Create(ctx, &model.RefreshToken{ID: "rt-2", UserID: u.ID, TokenHash: "hash-2", ExpiresAt: now.Add(time.Hour)}))

	//token_hashが重複するので保存に失敗する
	dup := &model.RefreshToken{ID: "rt-3", UserID: u.ID, TokenHash: "hash-2", ExpiresAt: now.Add(time.Hour)}
	assert.Error(t, rts.Rotate(ctx, "rt-1", now, dup))

	still, err := rts.FindByTokenHash(ctx, "hash-1")
	require.NoError(t, err)
	assert.Nil(t, still.UsedAt)
}

func TestUserRepository_UpdateKeepsTokenVersion(t *testing.T) {
	gdb := dbtest.New(t)
	ctx := context.Background()
	users := NewUserGormRepository(gdb)
	u := seedUser(t, gdb, "alice@example.com")

	stale, err := users.FindByID(ctx, u.ID)
	require.NoError(t, err)

	//読んだ後に別の処理でversionが上がる
	require.NoError(t, users.IncrementTokenVersion(ctx, u.ID))

	stale.Name = "Alice B"
	stale.IsActive = false
	require.NoError(t, users.Update(ctx, stale))

	got, err := users.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Alice B", got.Name)
	assert.False(t, got.IsActive)
	assert.Equal(t, 1, got.TokenVersion)

	_, err = users.FindByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, repo.ErrUserNotFound)

	assert.ErrorIs(t, users.Update(ctx, &model.User{ID: 9999, Name: "x", Email: "x@example.com"}), repo.ErrUserNotFound)
}

func TestCartRepository_VersionBumps(t *testing.T) {
	gdb := dbtest.New(t)
	ctx := context.Background()
	carts := NewCartGormRepository(gdb)
	u := seedUser(t, gdb, "alice@example.com")

	cart, err := carts.GetOrCreateActive(ctx, model.GuestScope(testSessionID))
	require.NoError(t, err)
	assert.Zero(t, cart.Version)

	require.NoError(t, carts.BumpVersion(ctx, cart.ID))
	require.NoError(t, carts.Clear(ctx, cart.ID))
	require.NoError(t, carts.Reassign(ctx, cart.ID, u.ID))

	got, err := carts.FindByID(ctx, cart.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.Version)

	assert.ErrorIs(t, carts.BumpVersion(ctx, 9999), repo.ErrNotFound)
}

func TestAuditLogRepository_ListFilters(t *testing.T) {
	gdb := dbtest.New(t)
	ctx := context.Background()
	logs := NewAuditLogGormRepository(gdb)

	require.NoError(t, logs.Create(ctx, model.AuditLog{ActorUserID: 1, Action: model.AuditActionCreate, ResourceType: model.AuditResourceBrand, ResourceID: 10}))
	require.NoError(t, logs.Create(ctx, model.AuditLog{ActorUserID: 1, Action: model.AuditActionUpdateStock, ResourceType: model.AuditResourceProduct, ResourceID: 20}))
	require.NoError(t, logs.Create(ctx, model.AuditLog{ActorUserID: 2, Action: model.AuditActionDelete, ResourceType: model.AuditResourceBrand, ResourceID: 10}))

	all, err := logs.List(ctx, repo.AuditLogFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	// 新しい順
	assert.Equal(t, model.AuditActionDelete, all[0].Action)

	brand := model.AuditResourceBrand
	actor := int64(1)
	filtered, err := logs.List(ctx, repo.AuditLogFilter{ResourceType: &brand, ActorUserID: &actor})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, int64(10), filtered[0].ResourceID)

	paged, err := logs.List(ctx, repo.AuditLogFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, model.AuditActionUpdateStock, paged[0].Action)
}
