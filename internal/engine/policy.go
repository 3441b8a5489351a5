package engine

import (
	"fmt"
	"time"

	"paracipher-go/internal/model"
)

// CoverageStatus is the read-only projection returned by CheckCoverage.
type CoverageStatus struct {
	IsActive       bool
	CoverageAmount int64
	TimeRemaining  time.Duration
}

// WithdrawResult reports a premium withdrawal.
type WithdrawResult struct {
	Amount int64
	TxRef  string // "" when nothing was withdrawn
}

// BuyCoverage issues a policy for the identity. The premium must match the
// configured amount exactly, and the identity must not already hold active,
// unexpired coverage. The premium is credited to the treasury's premium
// balance in the same commit that stores the policy.
func (e *Engine) BuyCoverage(identity string, amountPaid int64) (*model.Policy, error) {
	now := e.clock.Now()

	if amountPaid != e.terms.PremiumAmount {
		return nil, ErrWrongPremium
	}

	existing, err := e.store.GetPolicy(identity)
	if err != nil {
		return nil, fmt.Errorf("loading policy: %w", err)
	}
	if existing != nil && existing.IsActive && now.Before(existing.EndTime) {
		return nil, ErrAlreadyActive
	}

	treasury, err := e.store.GetTreasury()
	if err != nil {
		return nil, fmt.Errorf("loading treasury: %w", err)
	}
	treasury.PremiumBalance += amountPaid
	treasury.TotalPremiumsCollected += amountPaid

	policy := &model.Policy{
		Holder:         identity,
		PremiumPaid:    amountPaid,
		CoverageAmount: e.terms.CoverageAmount,
		StartTime:      now,
		EndTime:        now.Add(e.terms.CoverageDuration),
		IsActive:       true,
		HasClaimed:     false,
	}

	transfer := &model.Transfer{
		Ref:       e.idgen.New(),
		Kind:      model.TransferPremium,
		Party:     identity,
		Amount:    amountPaid,
		CreatedAt: now,
	}

	if err := e.store.Apply(&Mutation{Policy: policy, Treasury: treasury, Transfer: transfer}); err != nil {
		return nil, fmt.Errorf("committing coverage purchase: %w", err)
	}

	e.logger.Info("coverage issued", "worker", identity, "premium", amountPaid, "ends", policy.EndTime)
	return policy, nil
}

// hasValidCoverage reports whether a policy covers a claim filed at now.
func hasValidCoverage(p *model.Policy, now time.Time) bool {
	return p != nil && p.IsActive && now.Before(p.EndTime) && !p.HasClaimed
}

// CheckCoverage returns the identity's current coverage status. An identity
// with no policy, an expired policy, or a consumed policy is reported as
// inactive with zero coverage.
func (e *Engine) CheckCoverage(identity string) (*CoverageStatus, error) {
	now := e.clock.Now()

	policy, err := e.store.GetPolicy(identity)
	if err != nil {
		return nil, fmt.Errorf("loading policy: %w", err)
	}
	if !hasValidCoverage(policy, now) {
		return &CoverageStatus{}, nil
	}

	return &CoverageStatus{
		IsActive:       true,
		CoverageAmount: policy.CoverageAmount,
		TimeRemaining:  policy.EndTime.Sub(now),
	}, nil
}

// GetPolicyDetails returns the stored policy record plus its remaining
// coverage time, or nil if the identity never bought coverage. Expired
// policies are returned as stored; expiry is passive.
func (e *Engine) GetPolicyDetails(identity string) (*model.Policy, time.Duration, error) {
	now := e.clock.Now()

	policy, err := e.store.GetPolicy(identity)
	if err != nil {
		return nil, 0, fmt.Errorf("loading policy: %w", err)
	}
	if policy == nil {
		return nil, 0, nil
	}

	remaining := policy.EndTime.Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	return policy, remaining, nil
}

// WithdrawPremiums transfers the accumulated premium balance to the owner
// and zeroes it. Only the owner may call it. The claims pool is untouched.
func (e *Engine) WithdrawPremiums(caller string) (*WithdrawResult, error) {
	if err := e.requireOwner(caller); err != nil {
		return nil, err
	}
	now := e.clock.Now()

	treasury, err := e.store.GetTreasury()
	if err != nil {
		return nil, fmt.Errorf("loading treasury: %w", err)
	}
	if treasury.PremiumBalance == 0 {
		return &WithdrawResult{}, nil
	}

	amount := treasury.PremiumBalance
	treasury.PremiumBalance = 0

	transfer := &model.Transfer{
		Ref:       e.idgen.New(),
		Kind:      model.TransferWithdraw,
		Party:     caller,
		Amount:    amount,
		CreatedAt: now,
	}

	if err := e.store.Apply(&Mutation{Treasury: treasury, Transfer: transfer}); err != nil {
		return nil, fmt.Errorf("committing premium withdrawal: %w", err)
	}

	e.logger.Info("premiums withdrawn", "amount", amount, "tx", transfer.Ref)
	return &WithdrawResult{Amount: amount, TxRef: transfer.Ref}, nil
}
