package vault

import (
	"bytes"
	"strings"
	"testing"
)

func TestMemoryVault_Bundles(t *testing.T) {
	t.Run("stores and retrieves bundles", func(t *testing.T) {
		vault := NewMemoryVault("test-vault")

		tests := []struct {
			name    string
			ref     string
			content string
		}{
			{name: "small bundle", ref: "tx-1", content: "sealed evidence"},
			{name: "empty bundle", ref: "tx-2", content: ""},
			{name: "large bundle", ref: "tx-3", content: strings.Repeat("x", 10000)},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				r := strings.NewReader(tt.content)
				if err := vault.PutBundle(tt.ref, r, int64(len(tt.content))); err != nil {
					t.Fatalf("PutBundle() error = %v", err)
				}

				var buf bytes.Buffer
				if err := vault.GetBundle(tt.ref, &buf); err != nil {
					t.Fatalf("GetBundle() error = %v", err)
				}
				if got := buf.String(); got != tt.content {
					t.Errorf("GetBundle() = %q, want %q", got, tt.content)
				}
			})
		}
	})

	t.Run("bundles are write-once", func(t *testing.T) {
		vault := NewMemoryVault("test-vault")

		if err := vault.PutBundle("tx-1", strings.NewReader("first"), 5); err != nil {
			t.Fatalf("PutBundle() error = %v", err)
		}
		if err := vault.PutBundle("tx-1", strings.NewReader("other"), 5); err == nil {
			t.Error("PutBundle() expected error for existing ref")
		}

		// The original bundle is untouched.
		var buf bytes.Buffer
		vault.GetBundle("tx-1", &buf)
		if buf.String() != "first" {
			t.Errorf("bundle = %q, want %q", buf.String(), "first")
		}
	})

	t.Run("rejects size mismatch", func(t *testing.T) {
		vault := NewMemoryVault("test-vault")

		if err := vault.PutBundle("tx-1", strings.NewReader("short"), 100); err == nil {
			t.Error("PutBundle() expected size mismatch error")
		}
	})

	t.Run("returns error for missing bundle", func(t *testing.T) {
		vault := NewMemoryVault("test-vault")

		var buf bytes.Buffer
		if err := vault.GetBundle("nope", &buf); err == nil {
			t.Error("GetBundle() expected error for missing ref")
		}
	})
}

func TestMemoryVault_Snapshots(t *testing.T) {
	t.Run("stores versioned snapshots per scope", func(t *testing.T) {
		vault := NewMemoryVault("test-vault")

		content := "ledger bytes v1"
		if err := vault.PutSnapshot("owner-1", strings.NewReader(content), int64(len(content)), 7); err != nil {
			t.Fatalf("PutSnapshot() error = %v", err)
		}

		var buf bytes.Buffer
		if err := vault.GetSnapshot("owner-1", &buf); err != nil {
			t.Fatalf("GetSnapshot() error = %v", err)
		}
		if buf.String() != content {
			t.Errorf("GetSnapshot() = %q, want %q", buf.String(), content)
		}

		version, err := vault.SnapshotVersion("owner-1")
		if err != nil {
			t.Fatalf("SnapshotVersion() error = %v", err)
		}
		if version != 7 {
			t.Errorf("version = %d, want 7", version)
		}
	})

	t.Run("snapshots are replaceable, unlike bundles", func(t *testing.T) {
		vault := NewMemoryVault("test-vault")

		vault.PutSnapshot("owner-1", strings.NewReader("v1"), 2, 1)
		if err := vault.PutSnapshot("owner-1", strings.NewReader("v2"), 2, 2); err != nil {
			t.Fatalf("second PutSnapshot() error = %v", err)
		}

		var buf bytes.Buffer
		vault.GetSnapshot("owner-1", &buf)
		if buf.String() != "v2" {
			t.Errorf("snapshot = %q, want v2", buf.String())
		}
		version, _ := vault.SnapshotVersion("owner-1")
		if version != 2 {
			t.Errorf("version = %d, want 2", version)
		}
	})

	t.Run("unknown scope has version zero", func(t *testing.T) {
		vault := NewMemoryVault("test-vault")

		version, err := vault.SnapshotVersion("nobody")
		if err != nil {
			t.Fatalf("SnapshotVersion() error = %v", err)
		}
		if version != 0 {
			t.Errorf("version = %d, want 0", version)
		}
	})
}

func TestMemoryVault_ValidateSetup(t *testing.T) {
	vault := NewMemoryVault("test-vault")
	if err := vault.ValidateSetup(); err != nil {
		t.Errorf("ValidateSetup() error = %v", err)
	}
}
