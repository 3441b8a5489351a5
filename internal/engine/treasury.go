package engine

import (
	"fmt"

	"paracipher-go/internal/model"
)

// PoolStatus is the read-only projection returned by GetPoolStatus.
type PoolStatus struct {
	PremiumBalance         int64
	PoolBalance            int64
	TotalPremiumsCollected int64
	TotalClaimsProcessed   int64
	TotalClaimsPaid        int64
	ClaimsPossible         int64 // Payouts the pool can still cover
}

// FundPool credits the claims pool. Only the owner may call it.
func (e *Engine) FundPool(caller string, amount int64) (*model.Transfer, error) {
	if err := e.requireOwner(caller); err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, fmt.Errorf("funding amount must be positive, got %d", amount)
	}
	now := e.clock.Now()

	treasury, err := e.store.GetTreasury()
	if err != nil {
		return nil, fmt.Errorf("loading treasury: %w", err)
	}
	treasury.PoolBalance += amount

	transfer := &model.Transfer{
		Ref:       e.idgen.New(),
		Kind:      model.TransferFund,
		Party:     caller,
		Amount:    amount,
		CreatedAt: now,
	}

	if err := e.store.Apply(&Mutation{Treasury: treasury, Transfer: transfer}); err != nil {
		return nil, fmt.Errorf("committing pool funding: %w", err)
	}

	e.logger.Info("pool funded", "amount", amount, "balance", treasury.PoolBalance, "tx", transfer.Ref)
	return transfer, nil
}

// GetPoolStatus returns the treasury balances and running counters. The
// counters only ever increase; they are never reset.
func (e *Engine) GetPoolStatus() (*PoolStatus, error) {
	treasury, err := e.store.GetTreasury()
	if err != nil {
		return nil, fmt.Errorf("loading treasury: %w", err)
	}
	return &PoolStatus{
		PremiumBalance:         treasury.PremiumBalance,
		PoolBalance:            treasury.PoolBalance,
		TotalPremiumsCollected: treasury.TotalPremiumsCollected,
		TotalClaimsProcessed:   treasury.TotalClaimsProcessed,
		TotalClaimsPaid:        treasury.TotalClaimsPaid,
		ClaimsPossible:         treasury.PoolBalance / e.terms.PayoutAmount,
	}, nil
}
