package wallet

import "errors"

// Error taxonomy shared by the wallet, checkout and HTTP layers. Handlers map
// these to responses; internal detail is wrapped, never shown to users.
var (
	// ErrValidation indicates malformed input the caller can fix.
	ErrValidation = errors.New("validation failed")
	// ErrInsufficientBalance indicates a debit would drive the balance negative.
	ErrInsufficientBalance = errors.New("insufficient points balance")
	// ErrAlreadyClaimed indicates a rate-limited grant was already taken. It is
	// a distinct idempotent outcome, not a failure.
	ErrAlreadyClaimed = errors.New("already claimed")
	// ErrConcurrencyConflict indicates a transaction lost a race twice.
	ErrConcurrencyConflict = errors.New("transaction conflict")
	// ErrDownstreamUnavailable indicates a collaborator (catalog, payment,
	// address book) failed; the enclosing operation aborted with no effects.
	ErrDownstreamUnavailable = errors.New("downstream unavailable")
	// ErrWalletNotFound indicates no wallet exists for the user.
	ErrWalletNotFound = errors.New("wallet not found")
)
