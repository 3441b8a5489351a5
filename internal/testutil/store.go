package testutil

import (
	"testing"

	"paracipher-go/internal/database"
	"paracipher-go/internal/database/migrations"
	"paracipher-go/internal/engine"
)

// NewTestStore creates a new in-memory SQLite ledger with schema applied.
// The store is automatically closed when the test completes.
func NewTestStore(t *testing.T) engine.Store {
	t.Helper()

	sqlDB, err := database.OpenConnection(":memory:")
	if err != nil {
		t.Fatalf("failed to open ledger: %v", err)
	}

	if err := migrations.Up(sqlDB); err != nil {
		sqlDB.Close()
		t.Fatalf("failed to apply schema: %v", err)
	}

	store := database.NewSQLiteStoreFromDB(sqlDB)

	t.Cleanup(func() {
		store.Close()
	})

	return store
}
