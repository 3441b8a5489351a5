package vault

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"paracipher-go/internal/engine"
)

// MemoryVault is an in-memory implementation of the EvidenceVault interface.
// It keeps all bundles and snapshots in maps, making it useful for testing.
// This implementation is safe for concurrent use.
type MemoryVault struct {
	name            string
	bundles         map[string][]byte // ref -> sealed bundle
	snapshots       map[string][]byte // scope -> ledger snapshot
	snapshotVersion map[string]int64
	mu              sync.RWMutex
}

// NewMemoryVault creates a new in-memory vault with the given name.
func NewMemoryVault(name string) *MemoryVault {
	return &MemoryVault{
		name:            name,
		bundles:         make(map[string][]byte),
		snapshots:       make(map[string][]byte),
		snapshotVersion: make(map[string]int64),
	}
}

// PutBundle stores an evidence bundle under ref. Bundles are write-once:
// storing a ref that already exists is rejected.
func (m *MemoryVault) PutBundle(ref string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read bundle: %w", err)
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.bundles[ref]; exists {
		return fmt.Errorf("bundle already archived: %s", ref)
	}
	m.bundles[ref] = data
	return nil
}

// GetBundle retrieves the bundle stored under ref.
func (m *MemoryVault) GetBundle(ref string, w io.Writer) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.bundles[ref]
	if !ok {
		return fmt.Errorf("bundle not found: %s", ref)
	}
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write bundle: %w", err)
	}
	return nil
}

// PutSnapshot stores a ledger snapshot for a scope with its version marker.
func (m *MemoryVault) PutSnapshot(scope string, r io.Reader, size int64, version int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.snapshots[scope] = data
	m.snapshotVersion[scope] = version
	return nil
}

// GetSnapshot retrieves the latest ledger snapshot for a scope.
func (m *MemoryVault) GetSnapshot(scope string, w io.Writer) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.snapshots[scope]
	if !ok {
		return fmt.Errorf("snapshot not found for scope: %s", scope)
	}
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

// SnapshotVersion returns the stored snapshot version for a scope.
// Returns 0 if no snapshot has been stored.
func (m *MemoryVault) SnapshotVersion(scope string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.snapshotVersion[scope], nil
}

// ValidateSetup always succeeds for the in-memory vault.
func (m *MemoryVault) ValidateSetup() error {
	return nil
}

// Compile-time check that MemoryVault implements the EvidenceVault interface.
var _ engine.EvidenceVault = (*MemoryVault)(nil)
