package model

import "time"

// Policy is a time-boxed coverage grant for one worker identity.
// Each identity holds at most one policy record; renewals overwrite it.
type Policy struct {
	Holder         string    // Worker identity
	PremiumPaid    int64     // Premium received when the policy was issued
	CoverageAmount int64     // Maximum payout the policy grants
	StartTime      time.Time // Beginning of the coverage window
	EndTime        time.Time // End of the coverage window (exclusive)
	IsActive       bool      // Cleared when the policy is consumed by a claim
	HasClaimed     bool      // Set when a claim against this policy is paid
}

// ClaimEvidence is the structured proof bundle submitted with a claim.
// Photo and GPS fields are mandatory; the police report is optional.
type ClaimEvidence struct {
	PhotoRef          string `json:"photo_ref"` // Content reference for the accident photo
	GPSLatitude       string `json:"gps_latitude"`
	GPSLongitude      string `json:"gps_longitude"`
	AccidentTimestamp int64  `json:"accident_timestamp"` // Unix seconds
	PoliceReportID    string `json:"police_report_id,omitempty"`
	Description       string `json:"description"`
}

// ClaimStatus is the lifecycle state of a claim.
type ClaimStatus int

const (
	ClaimNone ClaimStatus = iota
	ClaimPending
	ClaimApproved
	ClaimRejected
)

func (s ClaimStatus) String() string {
	switch s {
	case ClaimNone:
		return "none"
	case ClaimPending:
		return "pending"
	case ClaimApproved:
		return "approved"
	case ClaimRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Claim is a payout request against a policy. Each identity holds at most
// one claim record; a new coverage cycle overwrites a resolved claim.
type Claim struct {
	Worker          string
	RequestedAmount int64
	FiledAt         time.Time
	ProcessedAt     *time.Time // nil while the claim is pending
	Status          ClaimStatus
	Notes           string
	Evidence        *ClaimEvidence // nil for manually filed claims
	EvidenceRef     string         // Vault key of the archived bundle, "" if none
}

// ReputationRecord tracks a worker's claim-free history.
type ReputationRecord struct {
	Worker      string
	Score       int64 // Starts at 100, no enforced floor or ceiling
	SafeDays    int64
	TotalClaims int64
}

// Treasury holds the pooled funds. The premium balance and the claims pool
// are kept separate: premiums accumulate for owner withdrawal while payouts
// draw only on the pool.
type Treasury struct {
	PremiumBalance         int64
	PoolBalance            int64
	TotalPremiumsCollected int64
	TotalClaimsProcessed   int64
	TotalClaimsPaid        int64
}

// TransferKind classifies an entry in the transfer ledger.
type TransferKind string

const (
	TransferPremium  TransferKind = "premium"  // Worker -> premium balance
	TransferPayout   TransferKind = "payout"   // Pool -> worker
	TransferWithdraw TransferKind = "withdraw" // Premium balance -> owner
	TransferFund     TransferKind = "fund"     // Owner -> pool
)

// Transfer is one fund movement. Every movement gets a unique reference so
// callers can reconcile against external transaction records.
type Transfer struct {
	Ref       string // UUID
	Kind      TransferKind
	Party     string // Worker or owner identity on the far side
	Amount    int64
	CreatedAt time.Time
}

// EngineOperation journals one mutating invocation of the engine.
type EngineOperation struct {
	ID         int64
	Operation  string
	Parameters string
	StartedAt  time.Time
	FinishedAt *time.Time
	Status     string
}
