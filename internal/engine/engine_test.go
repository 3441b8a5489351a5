package engine_test

import (
	"testing"

	"paracipher-go/internal/engine"
	"paracipher-go/internal/model"
	"paracipher-go/internal/testutil"
)

const owner = "owner"

// testEngine bundles an engine with the fakes behind it so tests can inspect
// and manipulate state directly.
type testEngine struct {
	eng   *engine.Engine
	store engine.Store
	vault engine.EvidenceVault
	clock *testutil.StubClock
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()

	store := testutil.NewTestStore(t)
	vault := testutil.NewTestVault()
	clock := testutil.FixedClock()

	eng := engine.New(
		store,
		vault,
		testutil.NewTestEncryptor(),
		engine.NewNopLogger(),
		clock,
		testutil.NewStubIDGenerator(),
		engine.DefaultTerms(owner),
	)

	return &testEngine{eng: eng, store: store, vault: vault, clock: clock}
}

// fundPool credits the claims pool as the owner.
func (te *testEngine) fundPool(t *testing.T, amount int64) {
	t.Helper()
	if _, err := te.eng.FundPool(owner, amount); err != nil {
		t.Fatalf("FundPool() error = %v", err)
	}
}

// buyCoverage purchases coverage at the exact configured premium.
func (te *testEngine) buyCoverage(t *testing.T, identity string) *model.Policy {
	t.Helper()
	policy, err := te.eng.BuyCoverage(identity, te.eng.Terms().PremiumAmount)
	if err != nil {
		t.Fatalf("BuyCoverage() error = %v", err)
	}
	return policy
}

// validEvidence returns an evidence bundle that passes every check: the
// accident happened an hour before the current clock time.
func (te *testEngine) validEvidence() model.ClaimEvidence {
	return model.ClaimEvidence{
		PhotoRef:          "ipfs://QmPhoto",
		GPSLatitude:       "40.7128",
		GPSLongitude:      "-74.0060",
		AccidentTimestamp: te.clock.Now().Unix() - 3600,
		PoliceReportID:    "NYPD-2024-001",
		Description:       "rear-ended at a red light on 5th avenue",
	}
}

// treasury fetches the current treasury row.
func (te *testEngine) treasury(t *testing.T) *model.Treasury {
	t.Helper()
	tr, err := te.store.GetTreasury()
	if err != nil {
		t.Fatalf("GetTreasury() error = %v", err)
	}
	return tr
}
