// Package databasetest opens migrated in-memory databases for tests.
package databasetest

import (
	"context"
	"testing"

	"studyhub/internal/config"
	"studyhub/internal/database"
)

// NewSQLite returns a fresh in-memory SQLite service with every migration
// applied. It is closed when the test finishes.
func NewSQLite(tb testing.TB) database.Service {
	tb.Helper()

	db, err := database.New(context.Background(), config.DatabaseConfig{
		Driver: database.DriverSQLite,
		DSN:    ":memory:",
	})
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	tb.Cleanup(func() { _ = db.Close() })

	if err := database.Migrate(db); err != nil {
		tb.Fatalf("migrate: %v", err)
	}
	return db
}
