package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"paracipher-go/internal/config"
	"paracipher-go/internal/database"
	"paracipher-go/internal/encryption"
	"paracipher-go/internal/engine"
	"paracipher-go/internal/model"
	"paracipher-go/internal/vault"
)

// EngineApp is the application layer between the CLI and the settlement
// engine. It constructs all dependencies from config, exposes high-level
// operations, and manages the ledger lifecycle on Close.
type EngineApp struct {
	cfg     *config.Config
	store   engine.Store
	vault   engine.EvidenceVault
	sealer  engine.Encryptor
	engine  *engine.Engine
	op      *Operation
	logFile *os.File
}

// termsFromConfig builds engine terms from the config section, falling back
// to the engine defaults for any zero value.
func termsFromConfig(ownerID string, tc config.TermsConfig) engine.Terms {
	terms := engine.DefaultTerms(ownerID)
	if tc.PremiumAmount != 0 {
		terms.PremiumAmount = tc.PremiumAmount
	}
	if tc.CoverageAmount != 0 {
		terms.CoverageAmount = tc.CoverageAmount
	}
	if tc.PayoutAmount != 0 {
		terms.PayoutAmount = tc.PayoutAmount
	}
	if tc.CoverageDurationHours != 0 {
		terms.CoverageDuration = time.Duration(tc.CoverageDurationHours) * time.Hour
	}
	if tc.EvidenceMaxAgeHours != 0 {
		terms.EvidenceMaxAge = time.Duration(tc.EvidenceMaxAgeHours) * time.Hour
	}
	if tc.MinDescriptionLen != 0 {
		terms.MinDescriptionLen = tc.MinDescriptionLen
	}
	return terms
}

// NewEngineApp creates a fully wired EngineApp from the given config.
// operation identifies the CLI command being run (e.g. "BuyCoverage",
// "FileClaim"). The caller must call Close when done.
func NewEngineApp(cfg *config.Config, operation, parameters string) (*EngineApp, error) {
	terms := termsFromConfig(cfg.OwnerID, cfg.Terms)
	if err := terms.Validate(); err != nil {
		return nil, fmt.Errorf("invalid terms: %w", err)
	}

	v, err := vault.NewVaultFromConfig(cfg.Vault)
	if err != nil {
		return nil, fmt.Errorf("creating vault: %w", err)
	}

	store, err := database.NewStoreFromConfig(cfg.Database, cfg.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("creating store: %w", err)
	}

	if err := store.CheckMigrations(); err != nil {
		store.Close()
		return nil, fmt.Errorf("ledger schema out of date: %w", err)
	}

	// Check local ledger version against the vault snapshot version.
	remoteVersion, err := v.SnapshotVersion(cfg.OwnerID)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("checking vault snapshot version: %w", err)
	}

	localMax, err := store.MaxOperationID()
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("checking local ledger version: %w", err)
	}

	if remoteVersion > localMax {
		store.Close()
		return nil, fmt.Errorf("local ledger is behind vault snapshot (local=%d, vault=%d): restore from vault or re-initialize", localMax, remoteVersion)
	}

	sealer, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	opID := time.Now().UTC().Format("20060102T150405Z")
	logger, logFile, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	eng := engine.New(store, v, sealer, &slogAdapter{l: logger}, engine.RealClock{}, engine.UUIDGenerator{}, terms)
	op := NewOperation(operation, parameters)

	return &EngineApp{
		cfg:     cfg,
		store:   store,
		vault:   v,
		sealer:  sealer,
		engine:  eng,
		op:      op,
		logFile: logFile,
	}, nil
}

// Terms returns the terms the engine runs with.
func (a *EngineApp) Terms() engine.Terms {
	return a.engine.Terms()
}

// persistOperation saves the operation to the journal, giving it an
// auto-increment ID. This should only be called for ledger-mutating commands.
func (a *EngineApp) persistOperation() error {
	if a.op.Persisted() {
		return nil // already persisted
	}
	dbOp, err := a.store.CreateOperation(a.op.Operation, a.op.Parameters, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("persisting operation: %w", err)
	}
	a.op.ID = dbOp.ID
	return nil
}

// run wraps a mutating engine call: it journals the operation first and
// records an error status when the call fails.
func (a *EngineApp) run(fn func() error) error {
	if err := a.persistOperation(); err != nil {
		return err
	}
	if err := fn(); err != nil {
		a.op.Status = "error"
		return err
	}
	return nil
}

// BuyCoverage purchases coverage for the identity at the given premium.
func (a *EngineApp) BuyCoverage(identity string, amountPaid int64) (*model.Policy, error) {
	var policy *model.Policy
	err := a.run(func() error {
		var err error
		policy, err = a.engine.BuyCoverage(identity, amountPaid)
		return err
	})
	return policy, err
}

// FileClaim files an evidence-backed claim for the identity.
func (a *EngineApp) FileClaim(identity string, evidence model.ClaimEvidence, notes string) (*engine.ClaimResult, error) {
	var result *engine.ClaimResult
	err := a.run(func() error {
		var err error
		result, err = a.engine.FileClaim(identity, evidence, notes)
		return err
	})
	return result, err
}

// FileManualClaim files a description-only claim for owner review.
func (a *EngineApp) FileManualClaim(identity, notes string) (*model.Claim, error) {
	var claim *model.Claim
	err := a.run(func() error {
		var err error
		claim, err = a.engine.FileManualClaim(identity, notes)
		return err
	})
	return claim, err
}

// ApproveClaim settles a pending manual claim. Owner only.
func (a *EngineApp) ApproveClaim(identity string) (*engine.ClaimResult, error) {
	var result *engine.ClaimResult
	err := a.run(func() error {
		var err error
		result, err = a.engine.ApproveClaim(a.cfg.OwnerID, identity)
		return err
	})
	return result, err
}

// RejectClaim rejects a pending manual claim. Owner only.
func (a *EngineApp) RejectClaim(identity, reason string) error {
	return a.run(func() error {
		return a.engine.RejectClaim(a.cfg.OwnerID, identity, reason)
	})
}

// AddSafeDay credits a claim-free day to the identity. Owner only.
func (a *EngineApp) AddSafeDay(identity string) (*model.ReputationRecord, error) {
	var rep *model.ReputationRecord
	err := a.run(func() error {
		var err error
		rep, err = a.engine.AddSafeDay(a.cfg.OwnerID, identity)
		return err
	})
	return rep, err
}

// FundPool credits the claims pool. Owner only.
func (a *EngineApp) FundPool(amount int64) (*model.Transfer, error) {
	var transfer *model.Transfer
	err := a.run(func() error {
		var err error
		transfer, err = a.engine.FundPool(a.cfg.OwnerID, amount)
		return err
	})
	return transfer, err
}

// WithdrawPremiums transfers the accumulated premiums to the owner.
func (a *EngineApp) WithdrawPremiums() (*engine.WithdrawResult, error) {
	var result *engine.WithdrawResult
	err := a.run(func() error {
		var err error
		result, err = a.engine.WithdrawPremiums(a.cfg.OwnerID)
		return err
	})
	return result, err
}

// CheckCoverage returns the identity's current coverage status.
func (a *EngineApp) CheckCoverage(identity string) (*engine.CoverageStatus, error) {
	return a.engine.CheckCoverage(identity)
}

// GetPolicyDetails returns the stored policy and its remaining coverage time.
func (a *EngineApp) GetPolicyDetails(identity string) (*model.Policy, time.Duration, error) {
	return a.engine.GetPolicyDetails(identity)
}

// GetClaimStatus returns the identity's claim slot.
func (a *EngineApp) GetClaimStatus(identity string) (*model.Claim, error) {
	return a.engine.GetClaimStatus(identity)
}

// GetScore returns the identity's reputation and discount tier.
func (a *EngineApp) GetScore(identity string) (*engine.ScoreReport, error) {
	return a.engine.GetScore(identity)
}

// GetDiscountedPremium applies the identity's discount tier to the
// configured premium.
func (a *EngineApp) GetDiscountedPremium(identity string) (int64, error) {
	return a.engine.GetDiscountedPremium(identity, a.engine.Terms().PremiumAmount)
}

// GetPoolStatus returns the treasury balances and counters.
func (a *EngineApp) GetPoolStatus() (*engine.PoolStatus, error) {
	return a.engine.GetPoolStatus()
}

// Transfers returns recorded fund movements, newest first. An empty party
// returns movements for all parties.
func (a *EngineApp) Transfers(party string, limit int) ([]*model.Transfer, error) {
	return a.engine.Transfers(party, limit)
}

// GetHistory returns the most recent journaled operations.
func (a *EngineApp) GetHistory(limit int) ([]*model.EngineOperation, error) {
	return a.engine.GetHistory(limit)
}

// ShowEvidence retrieves the archived evidence bundle for the identity's
// claim from the vault, unseals it with the passphrase, and decodes it.
// Falls back to the ledger copy when the claim was never archived.
func (a *EngineApp) ShowEvidence(identity, passphrase string) (*model.ClaimEvidence, error) {
	claim, err := a.engine.GetClaimStatus(identity)
	if err != nil {
		return nil, err
	}
	if claim == nil {
		return nil, fmt.Errorf("no claim for %s", identity)
	}
	if claim.EvidenceRef == "" {
		return claim.Evidence, nil
	}

	var sealed bytes.Buffer
	if err := a.vault.GetBundle(claim.EvidenceRef, &sealed); err != nil {
		return nil, fmt.Errorf("retrieving evidence bundle: %w", err)
	}

	unsealCtx, err := a.sealer.Unlock(passphrase)
	if err != nil {
		return nil, fmt.Errorf("unlocking private key: %w", err)
	}

	var plain bytes.Buffer
	if err := unsealCtx.Unseal(&sealed, &plain); err != nil {
		return nil, fmt.Errorf("unsealing evidence bundle: %w", err)
	}

	var evidence model.ClaimEvidence
	if err := json.Unmarshal(plain.Bytes(), &evidence); err != nil {
		return nil, fmt.Errorf("decoding evidence bundle: %w", err)
	}
	return &evidence, nil
}

// Close finalizes the operation and closes all resources.
// For persisted operations: finishes the journal record, snapshots the
// ledger, and uploads the snapshot to the vault.
// For non-persisted operations: just closes the store.
func (a *EngineApp) Close() error {
	var firstErr error

	if a.op.Persisted() {
		// Finalize the journal record
		if err := a.store.FinishOperation(a.op.ID, a.op.Status, time.Now().UTC()); err != nil {
			firstErr = fmt.Errorf("finishing operation: %w", err)
		}

		// Snapshot the ledger to a temp file
		tmpFile, err := os.CreateTemp("", "paracipher-ledger-*.db")
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("creating temp file for ledger snapshot: %w", err)
			}
		}

		var tmpPath string
		if tmpFile != nil {
			tmpPath = tmpFile.Name()
			tmpFile.Close()

			if err := a.store.BackupTo(tmpPath); err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("snapshotting ledger: %w", err)
				}
				tmpPath = "" // skip vault upload
			}
		}

		// Close the store
		if err := a.store.Close(); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("closing store: %w", err)
			}
		}

		// Upload the snapshot to the vault with version = operation ID
		if tmpPath != "" {
			if err := a.uploadSnapshot(tmpPath, a.op.ID); err != nil {
				if firstErr == nil {
					firstErr = err
				}
			}
		}

		// Clean up temp file
		if tmpPath != "" {
			os.Remove(tmpPath)
		}
	} else {
		// Non-mutating operation: just close the store, no upload
		if err := a.store.Close(); err != nil {
			firstErr = fmt.Errorf("closing store: %w", err)
		}
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}

// uploadSnapshot opens the temp ledger file and uploads it to the vault as a
// versioned snapshot.
func (a *EngineApp) uploadSnapshot(path string, version int64) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening ledger snapshot for upload: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat ledger snapshot: %w", err)
	}

	if err := a.vault.PutSnapshot(a.cfg.OwnerID, f, info.Size(), version); err != nil {
		return fmt.Errorf("uploading snapshot to vault: %w", err)
	}

	return nil
}
