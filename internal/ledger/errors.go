package ledger

import (
	"errors"
	"fmt"
	"math/big"
)

// Ledger mutation errors.
var (
	// ErrPositionNotFound is returned when a debit targets a token the
	// wallet does not hold.
	ErrPositionNotFound = errors.New("token position not found")

	// ErrMetadataRequired is returned when a credit would create a new
	// position but no token metadata was supplied.
	ErrMetadataRequired = errors.New("token metadata required to create position")

	// ErrInvalidAmount is returned for nil or negative amounts.
	ErrInvalidAmount = errors.New("amount must be a non-negative integer")
)

// InsufficientBalanceError reports a debit that would take a balance below
// zero. The message carries both raw and decimal-formatted amounts.
type InsufficientBalanceError struct {
	ChainID      int64
	TokenAddress string
	Required     *big.Int
	Available    *big.Int
	Decimals     uint8
}

func (e *InsufficientBalanceError) Error() string {
	short := new(big.Int).Sub(e.Required, e.Available)
	return fmt.Sprintf(
		"insufficient balance for %s on chain %d: required %s (%s), available %s (%s), short %s (%s)",
		e.TokenAddress, e.ChainID,
		e.Required.String(), FormatUnits(e.Required, e.Decimals),
		e.Available.String(), FormatUnits(e.Available, e.Decimals),
		short.String(), FormatUnits(short, e.Decimals),
	)
}

// Shortfall returns required minus available.
func (e *InsufficientBalanceError) Shortfall() *big.Int {
	return new(big.Int).Sub(e.Required, e.Available)
}
