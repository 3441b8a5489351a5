package engine_test

import (
	"errors"
	"testing"

	"paracipher-go/internal/engine"
	"paracipher-go/internal/model"
)

func TestEngine_FundPool(t *testing.T) {
	t.Run("rejects non-owner callers", func(t *testing.T) {
		te := newTestEngine(t)

		_, err := te.eng.FundPool("worker-1", 100)
		if !errors.Is(err, engine.ErrUnauthorized) {
			t.Errorf("FundPool() error = %v, want ErrUnauthorized", err)
		}
	})

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		te := newTestEngine(t)

		for _, amount := range []int64{0, -50} {
			if _, err := te.eng.FundPool(owner, amount); err == nil {
				t.Errorf("FundPool(%d) expected error", amount)
			}
		}
	})

	t.Run("credits the pool and records the transfer", func(t *testing.T) {
		te := newTestEngine(t)

		transfer, err := te.eng.FundPool(owner, 500)
		if err != nil {
			t.Fatalf("FundPool() error = %v", err)
		}
		if transfer.Kind != model.TransferFund {
			t.Errorf("kind = %s, want fund", transfer.Kind)
		}
		if transfer.Amount != 500 {
			t.Errorf("amount = %d, want 500", transfer.Amount)
		}

		tr := te.treasury(t)
		if tr.PoolBalance != 500 {
			t.Errorf("pool balance = %d, want 500", tr.PoolBalance)
		}
		if tr.PremiumBalance != 0 {
			t.Errorf("premium balance = %d, want 0 (funding stays out of premiums)", tr.PremiumBalance)
		}
	})

	t.Run("accumulates across calls", func(t *testing.T) {
		te := newTestEngine(t)
		te.fundPool(t, 100)
		te.fundPool(t, 150)

		tr := te.treasury(t)
		if tr.PoolBalance != 250 {
			t.Errorf("pool balance = %d, want 250", tr.PoolBalance)
		}
	})
}

func TestEngine_GetPoolStatus(t *testing.T) {
	t.Run("reports zeroes for a fresh treasury", func(t *testing.T) {
		te := newTestEngine(t)

		status, err := te.eng.GetPoolStatus()
		if err != nil {
			t.Fatalf("GetPoolStatus() error = %v", err)
		}
		if *status != (engine.PoolStatus{}) {
			t.Errorf("status = %+v, want all zero", status)
		}
	})

	t.Run("reports balances, counters, and remaining payout capacity", func(t *testing.T) {
		te := newTestEngine(t)
		te.fundPool(t, 175)
		te.buyCoverage(t, "worker-1")

		if _, err := te.eng.FileClaim("worker-1", te.validEvidence(), ""); err != nil {
			t.Fatalf("FileClaim() error = %v", err)
		}

		status, err := te.eng.GetPoolStatus()
		if err != nil {
			t.Fatalf("GetPoolStatus() error = %v", err)
		}
		if status.PremiumBalance != 25 {
			t.Errorf("premium balance = %d, want 25", status.PremiumBalance)
		}
		if status.PoolBalance != 125 {
			t.Errorf("pool balance = %d, want 125", status.PoolBalance)
		}
		if status.TotalPremiumsCollected != 25 {
			t.Errorf("premiums collected = %d, want 25", status.TotalPremiumsCollected)
		}
		if status.TotalClaimsProcessed != 1 {
			t.Errorf("claims processed = %d, want 1", status.TotalClaimsProcessed)
		}
		if status.TotalClaimsPaid != 50 {
			t.Errorf("claims paid = %d, want 50", status.TotalClaimsPaid)
		}
		// 125 / 50 payouts remaining, truncated.
		if status.ClaimsPossible != 2 {
			t.Errorf("claims possible = %d, want 2", status.ClaimsPossible)
		}
	})
}

func TestEngine_Transfers(t *testing.T) {
	t.Run("lists movements for one party newest first", func(t *testing.T) {
		te := newTestEngine(t)
		te.fundPool(t, 100)
		te.buyCoverage(t, "worker-1")

		if _, err := te.eng.FileClaim("worker-1", te.validEvidence(), ""); err != nil {
			t.Fatalf("FileClaim() error = %v", err)
		}

		transfers, err := te.eng.Transfers("worker-1", 10)
		if err != nil {
			t.Fatalf("Transfers() error = %v", err)
		}
		if len(transfers) != 2 {
			t.Fatalf("len = %d, want 2 (premium in, payout out)", len(transfers))
		}

		kinds := map[model.TransferKind]bool{}
		for _, transfer := range transfers {
			kinds[transfer.Kind] = true
			if transfer.Party != "worker-1" {
				t.Errorf("party = %q, want worker-1", transfer.Party)
			}
		}
		if !kinds[model.TransferPremium] || !kinds[model.TransferPayout] {
			t.Errorf("kinds = %v, want premium and payout", kinds)
		}
	})

	t.Run("empty party lists all movements", func(t *testing.T) {
		te := newTestEngine(t)
		te.fundPool(t, 100)
		te.buyCoverage(t, "worker-1")
		te.buyCoverage(t, "worker-2")

		transfers, err := te.eng.Transfers("", 10)
		if err != nil {
			t.Fatalf("Transfers() error = %v", err)
		}
		if len(transfers) != 3 {
			t.Errorf("len = %d, want 3", len(transfers))
		}
	})
}
