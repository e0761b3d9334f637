package domain

import "github.com/pkg/errors"

// Operational failure taxonomy. All of these except ErrInvalidAmount are
// expected conditions recovered within a cycle; ErrInvalidAmount signals a
// broken caller contract and is allowed to abort the process.
var (
	// ErrInvalidPrice rejects a non-positive or missing price.
	ErrInvalidPrice = errors.New("invalid price")
	// ErrInsufficientHistory means fewer than period+1 samples exist.
	ErrInsufficientHistory = errors.New("insufficient price history")
	// ErrInsufficientFunds means a cash debit exceeds the venue balance.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrInsufficientHolding means a holding adjustment would go negative.
	ErrInsufficientHolding = errors.New("insufficient holding")
	// ErrInvalidAmount means a negative amount was passed where none is allowed.
	ErrInvalidAmount = errors.New("invalid amount")
)
