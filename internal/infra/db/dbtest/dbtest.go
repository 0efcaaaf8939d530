// Package dbtest はテスト用のインメモリSQLite(GORM)を提供する。
package dbtest

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"storefront/internal/infra/db"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var seq atomic.Int64

// テストごとに独立したDBを作ってAutoMigrateまで済ませる。
func New(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared&_pragma=foreign_keys(1)", name, seq.Add(1))

	gdb, err := gorm.Open(sqlite.Open(dsn), db.NewGormConfig(zap.NewNop()))
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	// SQLiteは書き込みが1本なので接続も1本に
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(gdb))
	return gdb
}
