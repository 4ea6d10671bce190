// Package billing holds the domain rules shared across services: the
// issuance gate and the sentinel errors handlers translate to HTTP statuses.
package billing

import "errors"

var (
	// ErrIssuanceBlocked means a slip was requested for an installment whose
	// readjustment cycle has no applied readjustment yet.
	ErrIssuanceBlocked = errors.New("slip issuance blocked: pending readjustment for cycle")

	// ErrAlreadyPaid means the operation targets a paid installment.
	ErrAlreadyPaid = errors.New("installment already paid")

	// ErrDuplicateReadjustment means the contract cycle already has an
	// applied readjustment.
	ErrDuplicateReadjustment = errors.New("readjustment already applied for cycle")

	// ErrMissingIndexSample means the accumulation window has months with no
	// stored index value.
	ErrMissingIndexSample = errors.New("missing index sample")

	// ErrNoEligible means a batch operation found nothing to act on.
	ErrNoEligible = errors.New("no eligible installments")

	// ErrInvalidTerms means contract or installment parameters fail
	// validation.
	ErrInvalidTerms = errors.New("invalid contract terms")

	// ErrInvalidTransition means a slip state change violates the lifecycle.
	ErrInvalidTransition = errors.New("invalid slip state transition")

	// ErrNotFound means the referenced entity does not exist.
	ErrNotFound = errors.New("not found")
)
