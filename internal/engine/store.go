package engine

import (
	"time"

	"paracipher-go/internal/model"
)

// Mutation is the staged outcome of one engine operation. Operations
// validate everything first, assemble the full set of record changes, and
// hand them to Store.Apply, which must commit them in a single transaction.
// A nil field means the corresponding record is untouched.
type Mutation struct {
	Policy     *model.Policy
	Claim      *model.Claim
	Reputation *model.ReputationRecord
	Treasury   *model.Treasury
	Transfer   *model.Transfer
}

// Empty reports whether the mutation changes nothing.
func (m *Mutation) Empty() bool {
	return m.Policy == nil && m.Claim == nil && m.Reputation == nil &&
		m.Treasury == nil && m.Transfer == nil
}

// Store is the keyed record store behind the engine. Policies, claims, and
// reputation records are single-slot per identity; the treasury is a single
// shared row. Implementations must serialize Apply calls so treasury debits
// observe a single global ordering.
type Store interface {
	// GetPolicy returns the policy for an identity, or nil if none exists.
	GetPolicy(identity string) (*model.Policy, error)

	// GetClaim returns the claim slot for an identity, or nil if none exists.
	GetClaim(identity string) (*model.Claim, error)

	// GetReputation returns the reputation record for an identity, or nil
	// if the identity has never been seen.
	GetReputation(identity string) (*model.ReputationRecord, error)

	// GetTreasury returns the treasury row. It always exists.
	GetTreasury() (*model.Treasury, error)

	// ListTransfers returns transfers for a party, newest first.
	// An empty party returns transfers for all parties.
	ListTransfers(party string, limit int) ([]*model.Transfer, error)

	// Apply commits a staged mutation atomically. Either every non-nil
	// field is written or none is.
	Apply(m *Mutation) error

	// Operation journal

	// CreateOperation records the start of a mutating engine invocation.
	CreateOperation(operation, parameters string, startedAt time.Time) (*model.EngineOperation, error)

	// FinishOperation records the outcome of a journaled invocation.
	FinishOperation(id int64, status string, finishedAt time.Time) error

	// ListOperations returns the most recent journal entries, newest first.
	ListOperations(limit int) ([]*model.EngineOperation, error)

	// MaxOperationID returns the highest journal ID, or 0 for an empty journal.
	MaxOperationID() (int64, error)

	// BackupTo writes a consistent snapshot of the ledger to destPath.
	BackupTo(destPath string) error

	// CheckMigrations verifies the backing schema is up to date.
	CheckMigrations() error

	// Close closes the store.
	Close() error
}
