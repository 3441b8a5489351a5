package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"paracipher-go/internal/model"
)

// ClaimResult reports a settled claim.
type ClaimResult struct {
	TxRef  string
	Amount int64
	Status model.ClaimStatus
}

// FileClaim validates an evidence-backed claim and, if every check passes,
// settles it in one atomic commit: the claim is recorded as approved, the
// policy is consumed, the reputation penalty is applied, the pool is
// debited, and the payout transfer is written — all in the same store
// transaction. Any failed check returns before anything is staged.
//
// The checklist runs in a fixed order and fails on the first violation:
// evidence presence and timing, description length, coverage, open-claim
// slot, then pool funds. Because the approved status and the consumed policy
// land in the same commit as the transfer, a reentrant filing can only
// observe either the untouched records or the fully settled ones.
func (e *Engine) FileClaim(identity string, evidence model.ClaimEvidence, notes string) (*ClaimResult, error) {
	now := e.clock.Now()

	if err := e.validateEvidence(&evidence, now); err != nil {
		return nil, err
	}

	policy, err := e.store.GetPolicy(identity)
	if err != nil {
		return nil, fmt.Errorf("loading policy: %w", err)
	}
	if !hasValidCoverage(policy, now) {
		return nil, ErrNoValidCoverage
	}

	existing, err := e.store.GetClaim(identity)
	if err != nil {
		return nil, fmt.Errorf("loading claim: %w", err)
	}
	if blocksNewClaim(existing, policy) {
		return nil, ErrDuplicateClaim
	}

	treasury, err := e.store.GetTreasury()
	if err != nil {
		return nil, fmt.Errorf("loading treasury: %w", err)
	}
	if treasury.PoolBalance < e.terms.PayoutAmount {
		return nil, ErrInsufficientPoolFunds
	}

	reputation, err := e.loadReputation(identity)
	if err != nil {
		return nil, err
	}

	txRef := e.idgen.New()

	// Archive the bundle before committing. An orphaned bundle from a
	// failed commit is harmless; a settled claim without its bundle is not.
	evidenceRef, err := e.archiveEvidence(txRef, &evidence)
	if err != nil {
		return nil, fmt.Errorf("archiving evidence: %w", err)
	}

	processed := now
	claim := &model.Claim{
		Worker:          identity,
		RequestedAmount: e.terms.PayoutAmount,
		FiledAt:         now,
		ProcessedAt:     &processed,
		Status:          model.ClaimApproved,
		Notes:           notes,
		Evidence:        &evidence,
		EvidenceRef:     evidenceRef,
	}

	policy.HasClaimed = true
	policy.IsActive = false

	reputation.Score -= claimPenalty
	reputation.TotalClaims++

	treasury.PoolBalance -= e.terms.PayoutAmount
	treasury.TotalClaimsProcessed++
	treasury.TotalClaimsPaid += e.terms.PayoutAmount

	transfer := &model.Transfer{
		Ref:       txRef,
		Kind:      model.TransferPayout,
		Party:     identity,
		Amount:    e.terms.PayoutAmount,
		CreatedAt: now,
	}

	m := &Mutation{
		Claim:      claim,
		Policy:     policy,
		Reputation: reputation,
		Treasury:   treasury,
		Transfer:   transfer,
	}
	if err := e.store.Apply(m); err != nil {
		return nil, fmt.Errorf("committing claim settlement: %w", err)
	}

	e.logger.Info("claim settled", "worker", identity, "payout", e.terms.PayoutAmount, "tx", txRef)
	return &ClaimResult{TxRef: txRef, Amount: e.terms.PayoutAmount, Status: model.ClaimApproved}, nil
}

// FileManualClaim files a description-only claim without structured
// evidence. It lands in pending state and must be resolved by the owner via
// ApproveClaim or RejectClaim. Coverage and open-claim rules still apply.
func (e *Engine) FileManualClaim(identity string, notes string) (*model.Claim, error) {
	now := e.clock.Now()

	policy, err := e.store.GetPolicy(identity)
	if err != nil {
		return nil, fmt.Errorf("loading policy: %w", err)
	}
	if !hasValidCoverage(policy, now) {
		return nil, ErrNoValidCoverage
	}

	existing, err := e.store.GetClaim(identity)
	if err != nil {
		return nil, fmt.Errorf("loading claim: %w", err)
	}
	if blocksNewClaim(existing, policy) {
		return nil, ErrDuplicateClaim
	}

	claim := &model.Claim{
		Worker:          identity,
		RequestedAmount: e.terms.PayoutAmount,
		FiledAt:         now,
		Status:          model.ClaimPending,
		Notes:           notes,
	}

	if err := e.store.Apply(&Mutation{Claim: claim}); err != nil {
		return nil, fmt.Errorf("committing claim: %w", err)
	}

	e.logger.Info("manual claim filed", "worker", identity)
	return claim, nil
}

// ApproveClaim settles a pending manual claim with the same side effects as
// an automatically approved one. Only the owner may call it.
func (e *Engine) ApproveClaim(caller, identity string) (*ClaimResult, error) {
	if err := e.requireOwner(caller); err != nil {
		return nil, err
	}
	now := e.clock.Now()

	claim, err := e.store.GetClaim(identity)
	if err != nil {
		return nil, fmt.Errorf("loading claim: %w", err)
	}
	if claim == nil || claim.Status != model.ClaimPending {
		return nil, fmt.Errorf("no pending claim for %s", identity)
	}

	policy, err := e.store.GetPolicy(identity)
	if err != nil {
		return nil, fmt.Errorf("loading policy: %w", err)
	}

	treasury, err := e.store.GetTreasury()
	if err != nil {
		return nil, fmt.Errorf("loading treasury: %w", err)
	}
	if treasury.PoolBalance < claim.RequestedAmount {
		return nil, ErrInsufficientPoolFunds
	}

	reputation, err := e.loadReputation(identity)
	if err != nil {
		return nil, err
	}

	processed := now
	claim.Status = model.ClaimApproved
	claim.ProcessedAt = &processed

	if policy != nil {
		policy.HasClaimed = true
		policy.IsActive = false
	}

	reputation.Score -= claimPenalty
	reputation.TotalClaims++

	treasury.PoolBalance -= claim.RequestedAmount
	treasury.TotalClaimsProcessed++
	treasury.TotalClaimsPaid += claim.RequestedAmount

	transfer := &model.Transfer{
		Ref:       e.idgen.New(),
		Kind:      model.TransferPayout,
		Party:     identity,
		Amount:    claim.RequestedAmount,
		CreatedAt: now,
	}

	m := &Mutation{
		Claim:      claim,
		Policy:     policy,
		Reputation: reputation,
		Treasury:   treasury,
		Transfer:   transfer,
	}
	if err := e.store.Apply(m); err != nil {
		return nil, fmt.Errorf("committing claim approval: %w", err)
	}

	e.logger.Info("claim approved", "worker", identity, "payout", claim.RequestedAmount, "tx", transfer.Ref)
	return &ClaimResult{TxRef: transfer.Ref, Amount: claim.RequestedAmount, Status: model.ClaimApproved}, nil
}

// RejectClaim marks a pending claim rejected. No funds move and neither the
// policy nor the reputation record changes. Only the owner may call it.
func (e *Engine) RejectClaim(caller, identity, reason string) error {
	if err := e.requireOwner(caller); err != nil {
		return err
	}
	now := e.clock.Now()

	claim, err := e.store.GetClaim(identity)
	if err != nil {
		return fmt.Errorf("loading claim: %w", err)
	}
	if claim == nil || claim.Status != model.ClaimPending {
		return fmt.Errorf("no pending claim for %s", identity)
	}

	processed := now
	claim.Status = model.ClaimRejected
	claim.ProcessedAt = &processed
	claim.Notes = reason

	if err := e.store.Apply(&Mutation{Claim: claim}); err != nil {
		return fmt.Errorf("committing claim rejection: %w", err)
	}

	e.logger.Info("claim rejected", "worker", identity, "reason", reason)
	return nil
}

// GetClaimStatus returns the identity's claim slot, or nil if no claim was
// ever filed.
func (e *Engine) GetClaimStatus(identity string) (*model.Claim, error) {
	claim, err := e.store.GetClaim(identity)
	if err != nil {
		return nil, fmt.Errorf("loading claim: %w", err)
	}
	return claim, nil
}

// GetClaimEvidence returns the evidence stored with the identity's claim,
// or nil if the claim has none.
func (e *Engine) GetClaimEvidence(identity string) (*model.ClaimEvidence, error) {
	claim, err := e.store.GetClaim(identity)
	if err != nil {
		return nil, fmt.Errorf("loading claim: %w", err)
	}
	if claim == nil {
		return nil, nil
	}
	return claim.Evidence, nil
}

// validateEvidence runs the evidence checklist in its fixed order. Both time
// boundaries are inclusive: an accident exactly EvidenceMaxAge old passes,
// and a description of exactly MinDescriptionLen characters passes.
func (e *Engine) validateEvidence(ev *model.ClaimEvidence, now time.Time) error {
	if ev.PhotoRef == "" {
		return ErrMissingPhoto
	}
	if ev.GPSLatitude == "" {
		return ErrMissingLatitude
	}
	if ev.GPSLongitude == "" {
		return ErrMissingLongitude
	}
	if ev.AccidentTimestamp == 0 {
		return ErrMissingTimestamp
	}
	if ev.AccidentTimestamp > now.Unix() {
		return ErrFutureTimestamp
	}
	if now.Unix()-ev.AccidentTimestamp > int64(e.terms.EvidenceMaxAge/time.Second) {
		return ErrAccidentTooOld
	}
	if len(ev.Description) < e.terms.MinDescriptionLen {
		return ErrDescriptionTooShort
	}
	// PoliceReportID is deliberately not validated.
	return nil
}

// blocksNewClaim reports whether an existing claim slot blocks a new filing.
// A pending claim always blocks. An approved claim blocks only while it was
// filed within the current policy's coverage window; buying fresh coverage
// starts a new claim cycle and the stale resolved claim may be overwritten.
func blocksNewClaim(c *model.Claim, p *model.Policy) bool {
	if c == nil {
		return false
	}
	switch c.Status {
	case model.ClaimPending:
		return true
	case model.ClaimApproved:
		return p != nil && !c.FiledAt.Before(p.StartTime)
	default:
		return false
	}
}

// archiveEvidence serializes the bundle, seals it when a sealer is
// configured, and stores it in the vault under the claim's transfer
// reference. Returns "" when no vault is configured.
func (e *Engine) archiveEvidence(ref string, ev *model.ClaimEvidence) (string, error) {
	if e.vault == nil {
		return "", nil
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return "", fmt.Errorf("encoding bundle: %w", err)
	}

	if e.sealer != nil {
		var sealed bytes.Buffer
		if err := e.sealer.Seal(bytes.NewReader(data), &sealed); err != nil {
			return "", fmt.Errorf("sealing bundle: %w", err)
		}
		data = sealed.Bytes()
	}

	if err := e.vault.PutBundle(ref, bytes.NewReader(data), int64(len(data))); err != nil {
		return "", fmt.Errorf("storing bundle: %w", err)
	}
	return ref, nil
}
