package vault

import (
	"testing"

	"paracipher-go/internal/config"
)

func TestNewVaultFromConfig(t *testing.T) {
	t.Run("memory vault", func(t *testing.T) {
		cfg := config.VaultConfig{Type: "memory", Name: "evidence"}
		got, err := NewVaultFromConfig(cfg)
		if err != nil {
			t.Fatalf("NewVaultFromConfig() error = %v", err)
		}
		if _, ok := got.(*MemoryVault); !ok {
			t.Errorf("NewVaultFromConfig() = %T, want *MemoryVault", got)
		}
	})

	t.Run("filesystem vault", func(t *testing.T) {
		cfg := config.VaultConfig{Type: "filesystem", Name: "evidence", FSVaultRoot: t.TempDir()}
		got, err := NewVaultFromConfig(cfg)
		if err != nil {
			t.Fatalf("NewVaultFromConfig() error = %v", err)
		}
		if _, ok := got.(*FileSystemVault); !ok {
			t.Errorf("NewVaultFromConfig() = %T, want *FileSystemVault", got)
		}
	})

	t.Run("filesystem vault requires a root", func(t *testing.T) {
		cfg := config.VaultConfig{Type: "filesystem", Name: "evidence"}
		if _, err := NewVaultFromConfig(cfg); err == nil {
			t.Error("NewVaultFromConfig() expected error without fs_vault_root")
		}
	})

	t.Run("s3 vault is not implemented", func(t *testing.T) {
		cfg := config.VaultConfig{Type: "s3", Name: "evidence", S3Bucket: "bucket"}
		if _, err := NewVaultFromConfig(cfg); err == nil {
			t.Error("NewVaultFromConfig() expected not-implemented error")
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		cfg := config.VaultConfig{Type: "carrier-pigeon"}
		if _, err := NewVaultFromConfig(cfg); err == nil {
			t.Error("NewVaultFromConfig() expected error for unknown type")
		}
	})
}
