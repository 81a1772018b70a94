// Package dbtest provides migrated in-memory databases for tests.
package dbtest

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/tasklog/core/internal/infrastructure/config"
	"github.com/tasklog/core/internal/infrastructure/database"
)

var counter atomic.Int64

// New opens a fresh shared-cache in-memory sqlite database with all
// migrations applied. It is closed when the test finishes.
func New(t testing.TB) *database.DB {
	t.Helper()

	cfg := config.DatabaseConfig{
		Driver: "sqlite3",
		Path:   fmt.Sprintf("tasklog-test-%d?mode=memory&cache=shared", counter.Add(1)),
	}

	db, err := database.New(cfg)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.MigrateUp(); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}

	return db
}
