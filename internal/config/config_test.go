package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("owner-123", "/data/paracipher")

	if cfg.OwnerID != "owner-123" {
		t.Errorf("owner id = %q, want owner-123", cfg.OwnerID)
	}
	if cfg.LogDir != "/data/paracipher/log" {
		t.Errorf("log dir = %q", cfg.LogDir)
	}
	if cfg.Database.Type != "sqlite" || cfg.Database.DataDir != "/data/paracipher/ledger" {
		t.Errorf("database = %+v", cfg.Database)
	}
	if cfg.Vault.Type != "filesystem" || cfg.Vault.FSVaultRoot != "/data/paracipher/vault" {
		t.Errorf("vault = %+v", cfg.Vault)
	}
	if cfg.Encryption.PublicKeyPath != "/data/paracipher/keys/paracipher.pub" {
		t.Errorf("public key path = %q", cfg.Encryption.PublicKeyPath)
	}
}

func TestManager_ReadWrite(t *testing.T) {
	t.Run("round-trips a config", func(t *testing.T) {
		m := &Manager{}

		want := NewConfig("owner-123", "/data/paracipher")
		want.Terms = TermsConfig{
			PremiumAmount:         30,
			CoverageAmount:        60,
			PayoutAmount:          60,
			CoverageDurationHours: 48,
			EvidenceMaxAgeHours:   12,
			MinDescriptionLen:     20,
		}

		var buf bytes.Buffer
		if err := m.Write(&buf, want); err != nil {
			t.Fatalf("Write() error = %v", err)
		}

		got, err := m.Read(&buf)
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		if got.OwnerID != want.OwnerID {
			t.Errorf("owner id = %q, want %q", got.OwnerID, want.OwnerID)
		}
		if got.Terms != want.Terms {
			t.Errorf("terms = %+v, want %+v", got.Terms, want.Terms)
		}
		if got.Vault != want.Vault {
			t.Errorf("vault = %+v, want %+v", got.Vault, want.Vault)
		}
	})

	t.Run("omitted terms decode as zero for engine defaults", func(t *testing.T) {
		m := &Manager{}

		raw := `
owner_id = "owner-123"
base_dir = "/data/paracipher"

[database]
type = "memory"
`
		got, err := m.Read(strings.NewReader(raw))
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		if got.Terms != (TermsConfig{}) {
			t.Errorf("terms = %+v, want zero", got.Terms)
		}
	})

	t.Run("rejects malformed toml", func(t *testing.T) {
		m := &Manager{}
		if _, err := m.Read(strings.NewReader("owner_id = [broken")); err == nil {
			t.Error("Read() expected error for malformed input")
		}
	})
}

func TestReadFromFile(t *testing.T) {
	t.Run("reads a written file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "paracipher.toml")

		want := NewConfig("owner-123", "/data/paracipher")
		if err := Init(path, want); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.OwnerID != "owner-123" {
			t.Errorf("owner id = %q", got.OwnerID)
		}
	})

	t.Run("fails for a missing file", func(t *testing.T) {
		if _, err := ReadFromFile("/nonexistent/paracipher.toml"); err == nil {
			t.Error("ReadFromFile() expected error")
		}
	})
}

func TestInit(t *testing.T) {
	t.Run("creates parent directories", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "dir", "paracipher.toml")

		if err := Init(path, NewConfig("owner-123", "/data")); err != nil {
			t.Fatalf("Init() error = %v", err)
		}
		if _, err := os.Stat(path); err != nil {
			t.Errorf("config file missing: %v", err)
		}
	})

	t.Run("refuses to overwrite an existing file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "paracipher.toml")

		if err := Init(path, NewConfig("owner-123", "/data")); err != nil {
			t.Fatalf("first Init() error = %v", err)
		}
		if err := Init(path, NewConfig("owner-456", "/data")); err == nil {
			t.Error("second Init() expected error")
		}

		// The original config survives.
		got, _ := ReadFromFile(path)
		if got.OwnerID != "owner-123" {
			t.Errorf("owner id = %q, want owner-123", got.OwnerID)
		}
	})
}
