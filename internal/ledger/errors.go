package ledger

import "errors"

// Error kinds surfaced to the request boundary. Every failed operation
// leaves the ledger untouched.
var (
	// ErrInvalidOrder covers unknown symbols, non-positive share counts,
	// and malformed limit prices.
	ErrInvalidOrder = errors.New("invalid order")

	// ErrInsufficientFunds is returned when a buy exceeds available cash.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInsufficientShares is returned when a sell exceeds held shares.
	ErrInsufficientShares = errors.New("insufficient shares")
)
