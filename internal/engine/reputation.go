package engine

import (
	"fmt"

	"paracipher-go/internal/model"
)

const (
	defaultScore = 100
	safeDayBonus = 5
	claimPenalty = 20
)

// ScoreReport is the read-only projection returned by GetScore.
type ScoreReport struct {
	Score       int64
	SafeDays    int64
	TotalClaims int64
	Discount    int64 // Signed percentage; negative is a surcharge
}

// loadReputation returns the identity's reputation record, creating the
// default record in memory for identities never seen before.
func (e *Engine) loadReputation(identity string) (*model.ReputationRecord, error) {
	rep, err := e.store.GetReputation(identity)
	if err != nil {
		return nil, fmt.Errorf("loading reputation: %w", err)
	}
	if rep == nil {
		rep = &model.ReputationRecord{Worker: identity, Score: defaultScore}
	}
	return rep, nil
}

// AddSafeDay credits a claim-free day reported by the safe-driving oracle.
// Only the owner may call it.
func (e *Engine) AddSafeDay(caller, identity string) (*model.ReputationRecord, error) {
	if err := e.requireOwner(caller); err != nil {
		return nil, err
	}

	rep, err := e.loadReputation(identity)
	if err != nil {
		return nil, err
	}
	rep.Score += safeDayBonus
	rep.SafeDays++

	if err := e.store.Apply(&Mutation{Reputation: rep}); err != nil {
		return nil, fmt.Errorf("committing safe day: %w", err)
	}

	e.logger.Debug("safe day recorded", "worker", identity, "score", rep.Score)
	return rep, nil
}

// GetScore returns the identity's reputation and the discount tier it earns.
func (e *Engine) GetScore(identity string) (*ScoreReport, error) {
	rep, err := e.loadReputation(identity)
	if err != nil {
		return nil, err
	}
	return &ScoreReport{
		Score:       rep.Score,
		SafeDays:    rep.SafeDays,
		TotalClaims: rep.TotalClaims,
		Discount:    discountForScore(rep.Score),
	}, nil
}

// CalculateDiscount returns the signed discount percentage for an identity.
func (e *Engine) CalculateDiscount(identity string) (int64, error) {
	rep, err := e.loadReputation(identity)
	if err != nil {
		return 0, err
	}
	return discountForScore(rep.Score), nil
}

// GetDiscountedPremium applies the identity's discount tier to a base
// premium using integer arithmetic. A negative discount raises the premium.
func (e *Engine) GetDiscountedPremium(identity string, basePremium int64) (int64, error) {
	discount, err := e.CalculateDiscount(identity)
	if err != nil {
		return 0, err
	}
	return basePremium * (100 - discount) / 100, nil
}

// discountForScore maps a score to its discount tier. Tier boundaries are
// inclusive on the low end.
func discountForScore(score int64) int64 {
	switch {
	case score >= 150:
		return 20
	case score >= 120:
		return 10
	case score >= 100:
		return 0
	default:
		return -10
	}
}
