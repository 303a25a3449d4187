// Package storage defines the persistence interfaces for wallets and swap
// records, plus the sentinel errors all backends map onto.
package storage

import (
	"context"

	"virtual-wallet-lab/internal/domain"
)

// WalletStore persists wallet documents. The chains document is stored and
// replaced as a whole; partial updates are not supported.
type WalletStore interface {
	// Create inserts a new wallet. Returns ErrDuplicateKey if a wallet
	// already exists for the user.
	Create(ctx context.Context, w *domain.Wallet) error

	// GetByUserID retrieves the wallet for a user without locking it.
	// Returns ErrNotFound if the user has no wallet.
	GetByUserID(ctx context.Context, userID string) (*domain.Wallet, error)

	// LoadForUpdate retrieves the wallet under a row-exclusive lock. The
	// returned WalletTx holds the lock until Persist or Rollback is called,
	// exactly once. Returns ErrNotFound if the user has no wallet and
	// ErrConflict if the lock could not be acquired in time.
	LoadForUpdate(ctx context.Context, userID string) (*domain.Wallet, WalletTx, error)
}

// WalletTx is an open, locked wallet transaction.
type WalletTx interface {
	// Persist writes the full wallet document and commits, releasing the lock.
	Persist(ctx context.Context, w *domain.Wallet) error

	// Rollback abandons the transaction and releases the lock. Safe to call
	// after Persist; it is then a no-op.
	Rollback(ctx context.Context) error
}

// SwapRecordStore persists the durable trace of executed settlements.
// Records are append-only.
type SwapRecordStore interface {
	// Insert appends one swap record. Returns ErrDuplicateKey on id reuse.
	Insert(ctx context.Context, r *domain.SwapRecord) error

	// ListByWalletID returns records for a wallet, newest first.
	// limit <= 0 means no limit.
	ListByWalletID(ctx context.Context, walletID string, limit, offset int) ([]*domain.SwapRecord, error)
}
