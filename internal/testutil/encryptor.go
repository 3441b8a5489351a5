package testutil

import (
	"paracipher-go/internal/encryption"
	"paracipher-go/internal/engine"
)

// NewTestEncryptor creates a new test encryptor for testing.
func NewTestEncryptor() engine.Encryptor {
	return encryption.NewTestEncryptor()
}
