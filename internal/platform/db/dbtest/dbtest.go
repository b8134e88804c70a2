// Package dbtest opens throwaway migrated databases for service tests.
package dbtest

import (
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tcmtongue/server/internal/platform/db"
)

// SQLite returns an in-memory database with every model migrated. Each call
// gets its own database. The pool is capped at one connection, so code under
// test must use the transaction handle inside Transaction callbacks.
func SQLite(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.Migrate(zap.NewNop().Sugar(), gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb
}
