package engine_test

import (
	"errors"
	"testing"
	"time"

	"paracipher-go/internal/engine"
)

func TestEngine_BuyCoverage(t *testing.T) {
	t.Run("issues a policy at the exact premium", func(t *testing.T) {
		te := newTestEngine(t)

		policy, err := te.eng.BuyCoverage("worker-1", 25)
		if err != nil {
			t.Fatalf("BuyCoverage() error = %v", err)
		}

		if !policy.IsActive {
			t.Error("policy is not active")
		}
		if policy.HasClaimed {
			t.Error("new policy marked as claimed")
		}
		if policy.CoverageAmount != 50 {
			t.Errorf("coverage = %d, want 50", policy.CoverageAmount)
		}
		if got := policy.EndTime.Sub(policy.StartTime); got != 24*time.Hour {
			t.Errorf("coverage window = %s, want 24h", got)
		}

		tr := te.treasury(t)
		if tr.PremiumBalance != 25 {
			t.Errorf("premium balance = %d, want 25", tr.PremiumBalance)
		}
		if tr.TotalPremiumsCollected != 25 {
			t.Errorf("premiums collected = %d, want 25", tr.TotalPremiumsCollected)
		}
		if tr.PoolBalance != 0 {
			t.Errorf("pool balance = %d, want 0 (premiums stay out of the pool)", tr.PoolBalance)
		}
	})

	t.Run("rejects underpayment and overpayment", func(t *testing.T) {
		te := newTestEngine(t)

		for _, amount := range []int64{0, 24, 26, 100} {
			_, err := te.eng.BuyCoverage("worker-1", amount)
			if !errors.Is(err, engine.ErrWrongPremium) {
				t.Errorf("BuyCoverage(%d) error = %v, want ErrWrongPremium", amount, err)
			}
		}

		// Nothing was recorded.
		tr := te.treasury(t)
		if tr.PremiumBalance != 0 || tr.TotalPremiumsCollected != 0 {
			t.Errorf("treasury changed after rejected purchases: %+v", tr)
		}
		policy, err := te.store.GetPolicy("worker-1")
		if err != nil {
			t.Fatalf("GetPolicy() error = %v", err)
		}
		if policy != nil {
			t.Error("policy was created for rejected purchase")
		}
	})

	t.Run("rejects purchase while coverage is active", func(t *testing.T) {
		te := newTestEngine(t)
		te.buyCoverage(t, "worker-1")

		_, err := te.eng.BuyCoverage("worker-1", 25)
		if !errors.Is(err, engine.ErrAlreadyActive) {
			t.Errorf("BuyCoverage() error = %v, want ErrAlreadyActive", err)
		}
	})

	t.Run("allows repurchase after expiry", func(t *testing.T) {
		te := newTestEngine(t)
		te.buyCoverage(t, "worker-1")

		te.clock.Advance(25 * time.Hour)

		policy, err := te.eng.BuyCoverage("worker-1", 25)
		if err != nil {
			t.Fatalf("BuyCoverage() after expiry error = %v", err)
		}
		if !policy.StartTime.Equal(te.clock.Now()) {
			t.Errorf("new policy start = %s, want %s", policy.StartTime, te.clock.Now())
		}

		tr := te.treasury(t)
		if tr.TotalPremiumsCollected != 50 {
			t.Errorf("premiums collected = %d, want 50", tr.TotalPremiumsCollected)
		}
	})

	t.Run("allows repurchase after a claim consumed the policy", func(t *testing.T) {
		te := newTestEngine(t)
		te.fundPool(t, 100)
		te.buyCoverage(t, "worker-1")

		if _, err := te.eng.FileClaim("worker-1", te.validEvidence(), ""); err != nil {
			t.Fatalf("FileClaim() error = %v", err)
		}

		if _, err := te.eng.BuyCoverage("worker-1", 25); err != nil {
			t.Fatalf("BuyCoverage() after claim error = %v", err)
		}
	})
}

func TestEngine_CheckCoverage(t *testing.T) {
	t.Run("reports inactive for unknown identity", func(t *testing.T) {
		te := newTestEngine(t)

		status, err := te.eng.CheckCoverage("nobody")
		if err != nil {
			t.Fatalf("CheckCoverage() error = %v", err)
		}
		if status.IsActive {
			t.Error("unknown identity reported as covered")
		}
		if status.CoverageAmount != 0 || status.TimeRemaining != 0 {
			t.Errorf("inactive status not zeroed: %+v", status)
		}
	})

	t.Run("reports active coverage with time remaining", func(t *testing.T) {
		te := newTestEngine(t)
		te.buyCoverage(t, "worker-1")

		te.clock.Advance(6 * time.Hour)

		status, err := te.eng.CheckCoverage("worker-1")
		if err != nil {
			t.Fatalf("CheckCoverage() error = %v", err)
		}
		if !status.IsActive {
			t.Fatal("coverage reported inactive")
		}
		if status.CoverageAmount != 50 {
			t.Errorf("coverage = %d, want 50", status.CoverageAmount)
		}
		if status.TimeRemaining != 18*time.Hour {
			t.Errorf("time remaining = %s, want 18h", status.TimeRemaining)
		}
	})

	t.Run("reports inactive after expiry", func(t *testing.T) {
		te := newTestEngine(t)
		te.buyCoverage(t, "worker-1")

		te.clock.Advance(24 * time.Hour)

		status, err := te.eng.CheckCoverage("worker-1")
		if err != nil {
			t.Fatalf("CheckCoverage() error = %v", err)
		}
		if status.IsActive {
			t.Error("expired coverage reported active")
		}
	})

	t.Run("reports inactive after the policy was consumed", func(t *testing.T) {
		te := newTestEngine(t)
		te.fundPool(t, 100)
		te.buyCoverage(t, "worker-1")

		if _, err := te.eng.FileClaim("worker-1", te.validEvidence(), ""); err != nil {
			t.Fatalf("FileClaim() error = %v", err)
		}

		status, err := te.eng.CheckCoverage("worker-1")
		if err != nil {
			t.Fatalf("CheckCoverage() error = %v", err)
		}
		if status.IsActive {
			t.Error("consumed coverage reported active")
		}
	})
}

func TestEngine_GetPolicyDetails(t *testing.T) {
	t.Run("returns nil for unknown identity", func(t *testing.T) {
		te := newTestEngine(t)

		policy, _, err := te.eng.GetPolicyDetails("nobody")
		if err != nil {
			t.Fatalf("GetPolicyDetails() error = %v", err)
		}
		if policy != nil {
			t.Errorf("policy = %+v, want nil", policy)
		}
	})

	t.Run("returns the stored record with clamped remaining time", func(t *testing.T) {
		te := newTestEngine(t)
		te.buyCoverage(t, "worker-1")

		te.clock.Advance(30 * time.Hour)

		policy, remaining, err := te.eng.GetPolicyDetails("worker-1")
		if err != nil {
			t.Fatalf("GetPolicyDetails() error = %v", err)
		}
		if policy == nil {
			t.Fatal("policy = nil, want record")
		}
		// Expiry is passive: the stored record still says active.
		if !policy.IsActive {
			t.Error("stored record flipped to inactive")
		}
		if remaining != 0 {
			t.Errorf("remaining = %s, want 0", remaining)
		}
	})
}

func TestEngine_WithdrawPremiums(t *testing.T) {
	t.Run("rejects non-owner callers", func(t *testing.T) {
		te := newTestEngine(t)

		_, err := te.eng.WithdrawPremiums("worker-1")
		if !errors.Is(err, engine.ErrUnauthorized) {
			t.Errorf("WithdrawPremiums() error = %v, want ErrUnauthorized", err)
		}
	})

	t.Run("returns zero when nothing accumulated", func(t *testing.T) {
		te := newTestEngine(t)

		result, err := te.eng.WithdrawPremiums(owner)
		if err != nil {
			t.Fatalf("WithdrawPremiums() error = %v", err)
		}
		if result.Amount != 0 || result.TxRef != "" {
			t.Errorf("result = %+v, want zero", result)
		}
	})

	t.Run("withdraws the full premium balance and leaves the pool alone", func(t *testing.T) {
		te := newTestEngine(t)
		te.fundPool(t, 200)
		te.buyCoverage(t, "worker-1")
		te.buyCoverage(t, "worker-2")

		result, err := te.eng.WithdrawPremiums(owner)
		if err != nil {
			t.Fatalf("WithdrawPremiums() error = %v", err)
		}
		if result.Amount != 50 {
			t.Errorf("withdrawn = %d, want 50", result.Amount)
		}
		if result.TxRef == "" {
			t.Error("no transfer reference recorded")
		}

		tr := te.treasury(t)
		if tr.PremiumBalance != 0 {
			t.Errorf("premium balance = %d, want 0", tr.PremiumBalance)
		}
		if tr.PoolBalance != 200 {
			t.Errorf("pool balance = %d, want 200", tr.PoolBalance)
		}
		// The lifetime counter is unaffected by withdrawal.
		if tr.TotalPremiumsCollected != 50 {
			t.Errorf("premiums collected = %d, want 50", tr.TotalPremiumsCollected)
		}
	})
}
