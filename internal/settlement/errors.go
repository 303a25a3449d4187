package settlement

import "errors"

// Settlement errors. All of them abort the settlement with zero durable
// effect; degraded metadata is not an error and is flagged on the result
// instead.
var (
	// ErrWalletNotFound is returned when the user has no wallet.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrSourceTokenNotFound is returned when the wallet holds no position
	// for the intent's source token.
	ErrSourceTokenNotFound = errors.New("source token not found in wallet")

	// ErrInvalidSlippage is returned for slippage outside 1-50 percent.
	ErrInvalidSlippage = errors.New("slippage percent must be an integer between 1 and 50")

	// ErrPersistenceConflict is returned when the wallet row lock could not
	// be acquired. The losing settlement had no effect and is safely
	// retryable.
	ErrPersistenceConflict = errors.New("persistence conflict: wallet locked by another settlement")
)
