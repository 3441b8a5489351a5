package engine

import (
	"fmt"
	"time"

	"paracipher-go/internal/model"
)

// Terms are the fixed parameters the engine settles against. They come from
// configuration at startup and never change during a run.
type Terms struct {
	Owner             string        // Identity allowed to run privileged operations
	PremiumAmount     int64         // Exact premium a coverage purchase must pay
	CoverageAmount    int64         // Coverage granted per policy
	PayoutAmount      int64         // Fixed payout per approved claim
	CoverageDuration  time.Duration // Length of the coverage window
	EvidenceMaxAge    time.Duration // Oldest accident an evidence bundle may describe
	MinDescriptionLen int           // Minimum accident description length
}

// DefaultTerms returns the standard daily-coverage terms.
func DefaultTerms(owner string) Terms {
	return Terms{
		Owner:             owner,
		PremiumAmount:     25,
		CoverageAmount:    50,
		PayoutAmount:      50,
		CoverageDuration:  24 * time.Hour,
		EvidenceMaxAge:    24 * time.Hour,
		MinDescriptionLen: 10,
	}
}

// Validate checks that the terms are internally consistent.
func (t Terms) Validate() error {
	if t.Owner == "" {
		return fmt.Errorf("owner identity required")
	}
	if t.PremiumAmount <= 0 {
		return fmt.Errorf("premium amount must be positive, got %d", t.PremiumAmount)
	}
	if t.CoverageAmount <= 0 {
		return fmt.Errorf("coverage amount must be positive, got %d", t.CoverageAmount)
	}
	if t.PayoutAmount <= 0 {
		return fmt.Errorf("payout amount must be positive, got %d", t.PayoutAmount)
	}
	if t.CoverageDuration <= 0 {
		return fmt.Errorf("coverage duration must be positive, got %s", t.CoverageDuration)
	}
	if t.EvidenceMaxAge <= 0 {
		return fmt.Errorf("evidence max age must be positive, got %s", t.EvidenceMaxAge)
	}
	if t.MinDescriptionLen <= 0 {
		return fmt.Errorf("minimum description length must be positive, got %d", t.MinDescriptionLen)
	}
	return nil
}

// Engine is the settlement engine: the policy ledger, claims validator,
// reputation scorer, and treasury pool behind one operation surface.
// Every operation samples the clock once, validates its full checklist
// against current records, stages a Mutation, and commits it through the
// store in a single transaction. Error paths commit nothing.
type Engine struct {
	store  Store
	vault  EvidenceVault
	sealer Encryptor
	logger Logger
	clock  Clock
	idgen  IDGenerator
	terms  Terms
}

// New creates an Engine with the provided dependencies. vault and sealer may
// be nil, in which case accepted evidence is not archived.
func New(store Store, vault EvidenceVault, sealer Encryptor, logger Logger, clock Clock, idgen IDGenerator, terms Terms) *Engine {
	return &Engine{
		store:  store,
		vault:  vault,
		sealer: sealer,
		logger: logger,
		clock:  clock,
		idgen:  idgen,
		terms:  terms,
	}
}

// Terms returns the terms the engine was configured with.
func (e *Engine) Terms() Terms { return e.terms }

// requireOwner enforces the privileged-caller rule.
func (e *Engine) requireOwner(caller string) error {
	if caller != e.terms.Owner {
		return ErrUnauthorized
	}
	return nil
}

// Transfers returns the fund movements recorded for a party, newest first.
// An empty party returns movements for all parties.
func (e *Engine) Transfers(party string, limit int) ([]*model.Transfer, error) {
	transfers, err := e.store.ListTransfers(party, limit)
	if err != nil {
		return nil, fmt.Errorf("listing transfers: %w", err)
	}
	return transfers, nil
}

// GetHistory returns the most recent journaled engine operations.
func (e *Engine) GetHistory(limit int) ([]*model.EngineOperation, error) {
	ops, err := e.store.ListOperations(limit)
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	return ops, nil
}
