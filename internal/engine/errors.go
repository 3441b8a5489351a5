package engine

import "errors"

// Validation errors are caller-correctable: the operation mutated nothing
// and the caller can resubmit with corrected input (or wait).
var (
	ErrWrongPremium        = errors.New("exact premium amount required")
	ErrAlreadyActive       = errors.New("coverage already active")
	ErrMissingPhoto        = errors.New("accident photo required")
	ErrMissingLatitude     = errors.New("gps latitude required")
	ErrMissingLongitude    = errors.New("gps longitude required")
	ErrMissingTimestamp    = errors.New("accident timestamp required")
	ErrFutureTimestamp     = errors.New("accident timestamp is in the future")
	ErrAccidentTooOld      = errors.New("accident outside the evidence window")
	ErrDescriptionTooShort = errors.New("accident description too short")
	ErrNoValidCoverage     = errors.New("no valid coverage")
	ErrDuplicateClaim      = errors.New("claim already open for current coverage")
)

// Operational errors are not correctable by the worker: resolving them
// requires owner intervention (treasury top-up) or different credentials.
var (
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrInsufficientPoolFunds = errors.New("insufficient pool funds for payout")
	ErrUnauthorized          = errors.New("caller is not the owner")
)

var validationErrors = []error{
	ErrWrongPremium,
	ErrAlreadyActive,
	ErrMissingPhoto,
	ErrMissingLatitude,
	ErrMissingLongitude,
	ErrMissingTimestamp,
	ErrFutureTimestamp,
	ErrAccidentTooOld,
	ErrDescriptionTooShort,
	ErrNoValidCoverage,
	ErrDuplicateClaim,
}

// IsValidationError reports whether err belongs to the caller-correctable
// family. Operational errors (pool shortfall, authorization) return false so
// callers can surface them differently.
func IsValidationError(err error) bool {
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}
