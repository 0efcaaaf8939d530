package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("POSTGRES_USER", "shop")
	t.Setenv("POSTGRES_PASSWORD", "p@ss word")
	t.Setenv("POSTGRES_DB", "shop")
	t.Setenv("POSTGRES_HOST", "db")
	t.Setenv("POSTGRES_PORT", "5433")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, int64(99), cfg.Cart.MaxQuantityPerItem)
	assert.Equal(t, int64(50), cfg.Cart.MaxItems)
	assert.Equal(t, "$", cfg.Currency.Symbol)
	assert.Equal(t, int32(2), cfg.Currency.Exponent)
	assert.Equal(t, "cart_session", cfg.SessionCookieName)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	assert.True(t, cfg.Features.GuestCart)
	assert.True(t, cfg.CookieSecure)
	assert.False(t, cfg.IsProd())
}

func TestLoad_MissingJWTSecret(t *testing.T) {
	setRequired(t)
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.EqualError(t, err, "JWT_SECRET is required")
}

func TestLoad_DatabaseURLSkipsPostgresParts(t *testing.T) {
	setRequired(t)
	t.Setenv("POSTGRES_USER", "")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/app?sslmode=disable")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@localhost:5432/app?sslmode=disable", cfg.DatabaseDSN())
}

func TestLoad_MissingPostgresUser(t *testing.T) {
	setRequired(t)
	t.Setenv("POSTGRES_USER", "")

	_, err := Load()
	assert.EqualError(t, err, "POSTGRES_USER is required")
}

func TestLoad_InvalidNumber(t *testing.T) {
	setRequired(t)
	t.Setenv("CART_MAX_ITEMS", "many")

	_, err := Load()
	assert.ErrorContains(t, err, "CART_MAX_ITEMS must be number")
}

func TestLoad_CartLimitsFromEnv(t *testing.T) {
	setRequired(t)
	t.Setenv("CART_MAX_QUANTITY_PER_ITEM", "5")
	t.Setenv("CART_MAX_ITEMS", "3")
	t.Setenv("FEATURE_GUEST_CART", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, int64(5), cfg.Cart.MaxQuantityPerItem)
	assert.Equal(t, int64(3), cfg.Cart.MaxItems)
	assert.False(t, cfg.Features.GuestCart)
}

func TestLoad_NonPositiveLimit(t *testing.T) {
	setRequired(t)
	t.Setenv("CART_MAX_ITEMS", "0")

	_, err := Load()
	assert.EqualError(t, err, "CART_MAX_ITEMS must be positive")
}

func TestDatabaseDSN_FromParts(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://shop:p%40ss%20word@db:5433/shop?sslmode=disable", cfg.DatabaseDSN())
}
