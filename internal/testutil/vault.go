package testutil

import (
	"paracipher-go/internal/engine"
	"paracipher-go/internal/vault"
)

// NewTestVault creates a new in-memory vault for testing.
func NewTestVault() engine.EvidenceVault {
	return vault.NewMemoryVault("test-vault")
}
