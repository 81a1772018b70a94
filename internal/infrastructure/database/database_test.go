package database_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/tasklog/core/internal/infrastructure/database/dbtest"
)

func TestBeginTxx_ReadOnlyOptions(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()

	tx, err := db.BeginTxx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		t.Fatalf("BeginTxx: %v", err)
	}
	defer tx.Rollback()

	var n int
	if err := tx.GetContext(ctx, &n, `SELECT COUNT(*) FROM users`); err != nil {
		t.Fatalf("count users: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected empty users table, got %d", n)
	}
}

func TestWithTransaction_RollsBackOnError(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO users (id, name, email, created_at) VALUES ('u-1', 'ann', 'ann@example.com', CURRENT_TIMESTAMP)`); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected the callback error, got %v", err)
	}

	var n int
	if err := db.DB.GetContext(ctx, &n, `SELECT COUNT(*) FROM users`); err != nil {
		t.Fatalf("count users: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected rollback, found %d users", n)
	}

	if err := db.HealthCheck(ctx); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
	if info := db.GetConnectionInfo(); info["driver"] != "sqlite3" {
		t.Fatalf("unexpected driver in %v", info)
	}
}
