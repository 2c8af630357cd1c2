// Package storetest connects repository tests to a scratch Postgres database.
package storetest

import (
	"context"
	"fmt"
	"os"
	"testing"

	"eventrental/internal/store"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// OpenDB connects using the PG* environment variables, applies the schema
// and empties every table. It skips the test if Postgres is unreachable.
func OpenDB(t testing.TB) *store.DB {
	t.Helper()

	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		getEnv("PGHOST", "localhost"),
		getEnv("PGPORT", "5432"),
		getEnv("PGUSER", "user"),
		getEnv("PGPASSWORD", "password"),
		getEnv("PGDATABASE", "testdb"),
	)

	raw, err := sqlx.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("failed to open database connection: %v", err)
	}
	if err := raw.Ping(); err != nil {
		raw.Close()
		t.Skipf("skipping database tests: could not connect to postgres: %v", err)
	}

	db := store.New(raw)
	ctx := context.Background()
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
	if err := db.Truncate(ctx); err != nil {
		t.Fatalf("failed to reset tables: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
