//go:build integration

package repository

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/budgetbook/budgetbook/internal/testutil"
)

// ============================================================================
// Migration Integration Tests
// ============================================================================

func TestIntegrationMigration_ApplyAllTables(t *testing.T) {
	ctx, pool := newMigrationTestEnv(t)

	for _, table := range []string{"users", "api_keys", "expenses", "schema_migrations"} {
		t.Run(table, func(t *testing.T) {
			exists, err := tableExists(ctx, pool, table)
			if err != nil {
				t.Fatalf("tableExists failed: %v", err)
			}
			if !exists {
				t.Errorf("Table %q should exist after migrations", table)
			}
		})
	}
}

func TestIntegrationMigration_ExpensesTableSchema(t *testing.T) {
	ctx, pool := newMigrationTestEnv(t)

	for _, col := range []string{"id", "amount", "category", "date", "user_id"} {
		t.Run(col, func(t *testing.T) {
			exists, err := columnExists(ctx, pool, "expenses", col)
			if err != nil {
				t.Fatalf("columnExists failed: %v", err)
			}
			if !exists {
				t.Errorf("Column expenses.%s should exist", col)
			}
		})
	}
}

func TestIntegrationMigration_ExpensesConstraints(t *testing.T) {
	ctx, pool := newMigrationTestEnv(t)

	testCases := []struct {
		name   string
		query  string
		wantOK bool
	}{
		{"valid row", `INSERT INTO expenses (amount, category) VALUES (1.00, 'Food')`, true},
		{"ownerless allowed", `INSERT INTO expenses (amount, category, user_id) VALUES (1.00, 'Food', NULL)`, true},
		{"zero amount", `INSERT INTO expenses (amount, category) VALUES (0, 'Food')`, false},
		{"negative amount", `INSERT INTO expenses (amount, category) VALUES (-5, 'Food')`, false},
		{"empty category", `INSERT INTO expenses (amount, category) VALUES (1.00, '')`, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := pool.Exec(ctx, tc.query)
			if tc.wantOK && err != nil {
				t.Errorf("expected insert to succeed: %v", err)
			}
			if !tc.wantOK && err == nil {
				t.Error("expected constraint violation")
			}
		})
	}
}

func TestIntegrationMigration_APIKeysCascadeWithUser(t *testing.T) {
	ctx, pool := newMigrationTestEnv(t)

	if _, err := pool.Exec(ctx, `INSERT INTO users (id, email) VALUES ('u1', 'u1@budgetbook.test')`); err != nil {
		t.Fatalf("insert user: %v", err)
	}
	if _, err := pool.Exec(ctx, `INSERT INTO api_keys (id, user_id, key_hash, key_prefix) VALUES ('k1', 'u1', 'h', 'abcdef')`); err != nil {
		t.Fatalf("insert key: %v", err)
	}
	if _, err := pool.Exec(ctx, `DELETE FROM users WHERE id = 'u1'`); err != nil {
		t.Fatalf("delete user: %v", err)
	}

	var count int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM api_keys`).Scan(&count); err != nil {
		t.Fatalf("count keys: %v", err)
	}
	if count != 0 {
		t.Errorf("expected keys to cascade, %d left", count)
	}
}

func TestIntegrationMigration_Idempotency(t *testing.T) {
	newMigrationTestEnv(t)

	dbURL := testutil.RequireEnv(t, "DATABASE_URL")
	if err := Migrate(dbURL); err != nil {
		t.Fatalf("second Migrate should be a no-op, got %v", err)
	}
}

func tableExists(ctx context.Context, pool *pgxpool.Pool, tableName string) (bool, error) {
	var exists bool
	err := pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = 'public' AND table_name = $1
		)
	`, tableName).Scan(&exists)
	return exists, err
}

func columnExists(ctx context.Context, pool *pgxpool.Pool, tableName, columnName string) (bool, error) {
	var exists bool
	err := pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.columns
			WHERE table_schema = 'public' AND table_name = $1 AND column_name = $2
		)
	`, tableName, columnName).Scan(&exists)
	return exists, err
}

// newMigrationTestEnv drops every table and migrates from scratch.
func newMigrationTestEnv(t *testing.T) (context.Context, *pgxpool.Pool) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}

	ctx := context.Background()
	dbURL := testutil.RequireEnv(t, "DATABASE_URL")

	repo, err := New(ctx, dbURL)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(repo.Close)
	pool := repo.Pool()

	unlock, err := testutil.AcquireDBLock(ctx, pool)
	if err != nil {
		t.Fatalf("acquire db lock: %v", err)
	}
	t.Cleanup(func() {
		_ = unlock()
	})

	if _, err := pool.Exec(ctx, `DROP TABLE IF EXISTS expenses, api_keys, users, schema_migrations CASCADE`); err != nil {
		t.Fatalf("drop tables: %v", err)
	}

	if err := Migrate(dbURL); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	return ctx, pool
}
