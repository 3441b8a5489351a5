package engine

import "io"

// EvidenceVault archives accepted evidence bundles and versioned ledger
// snapshots. Bundle storage is write-once: a bundle is stored under the
// claim's transfer reference and never rewritten.
type EvidenceVault interface {
	// PutBundle stores an evidence bundle under ref.
	// size is the number of bytes that will be read from r.
	PutBundle(ref string, r io.Reader, size int64) error

	// GetBundle retrieves the bundle stored under ref and writes it to w.
	GetBundle(ref string, w io.Writer) error

	// PutSnapshot stores a ledger snapshot for a deployment scope (the
	// owner identity) with a version marker for consistency checks.
	PutSnapshot(scope string, r io.Reader, size int64, version int64) error

	// GetSnapshot retrieves the latest ledger snapshot for a scope.
	GetSnapshot(scope string, w io.Writer) error

	// SnapshotVersion returns the stored snapshot version for a scope.
	// Returns 0 if no snapshot has been stored.
	SnapshotVersion(scope string) (int64, error)

	// ValidateSetup verifies that the vault is accessible and configured.
	ValidateSetup() error
}

// Encryptor seals evidence bundles before they reach the vault. Sealing uses
// the public key only; unsealing requires a passphrase to unlock the private
// key, producing an UnsealContext for the session.
type Encryptor interface {
	// Setup performs one-time key generation. Called during `config init`.
	Setup(passphrase string) error

	// Seal encrypts data read from r and writes ciphertext to w.
	Seal(r io.Reader, w io.Writer) error

	// Unlock decrypts the private key using the passphrase and returns an
	// UnsealContext valid for the duration of the session.
	Unlock(passphrase string) (UnsealContext, error)

	// IsConfigured returns true if the key material exists.
	IsConfigured() bool
}

// UnsealContext holds an unlocked private key in memory for the duration of
// an audit session. The unlocked key is never written to disk.
type UnsealContext interface {
	// Unseal decrypts data read from r and writes plaintext to w.
	Unseal(r io.Reader, w io.Writer) error
}
