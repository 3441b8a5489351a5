package database

import (
	"fmt"
	"os"
	"path/filepath"

	"paracipher-go/internal/config"
	"paracipher-go/internal/engine"
)

// NewStoreFromConfig creates a Store implementation based on the database
// config type. The ledger file is scoped to the owner identity so separate
// deployments on one host never share state.
func NewStoreFromConfig(cfg config.DatabaseConfig, ownerID string) (engine.Store, error) {
	var (
		store *SQLiteStore
		err   error
	)
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating ledger directory: %w", err)
		}
		store, err = NewSQLiteStore(filepath.Join(cfg.DataDir, ownerID+".db"))
	case "memory":
		store, err = NewSQLiteStore(":memory:")
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(); err != nil {
		store.Close()
		return nil, fmt.Errorf("migrating ledger: %w", err)
	}
	return store, nil
}
