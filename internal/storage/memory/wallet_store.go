// Package memory provides in-memory implementations of the storage
// interfaces for tests and single-process runs.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"virtual-wallet-lab/internal/domain"
	"virtual-wallet-lab/internal/storage"
)

// DefaultLockTimeout mirrors the postgres backend's lock wait bound.
const DefaultLockTimeout = 5 * time.Second

// walletEntry pairs a stored wallet with its row lock. The lock channel has
// capacity 1; holding the token means holding the row-exclusive lock.
type walletEntry struct {
	wallet *domain.Wallet
	lock   chan struct{}
}

// WalletStore is an in-memory implementation of storage.WalletStore.
type WalletStore struct {
	mu          sync.RWMutex
	byUser      map[string]*walletEntry
	lockTimeout time.Duration
}

// NewWalletStore creates a new in-memory wallet store.
func NewWalletStore() *WalletStore {
	return &WalletStore{
		byUser:      make(map[string]*walletEntry),
		lockTimeout: DefaultLockTimeout,
	}
}

// NewWalletStoreWithLockTimeout creates a store with a custom lock timeout.
func NewWalletStoreWithLockTimeout(timeout time.Duration) *WalletStore {
	s := NewWalletStore()
	s.lockTimeout = timeout
	return s
}

var _ storage.WalletStore = (*WalletStore)(nil)

// Create inserts a new wallet. Returns ErrDuplicateKey if the user already
// has one.
func (s *WalletStore) Create(_ context.Context, w *domain.Wallet) error {
	if w == nil || w.ID == "" || w.UserID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byUser[w.UserID]; exists {
		return storage.ErrDuplicateKey
	}

	stored, err := copyWallet(w)
	if err != nil {
		return err
	}
	entry := &walletEntry{wallet: stored, lock: make(chan struct{}, 1)}
	entry.lock <- struct{}{}
	s.byUser[w.UserID] = entry
	return nil
}

// GetByUserID retrieves the wallet for a user without locking it.
func (s *WalletStore) GetByUserID(_ context.Context, userID string) (*domain.Wallet, error) {
	s.mu.RLock()
	entry, exists := s.byUser[userID]
	s.mu.RUnlock()

	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyWallet(entry.wallet)
}

// LoadForUpdate acquires the wallet's lock token, waiting up to the lock
// timeout or the caller's deadline, whichever ends first; either bound maps
// to ErrConflict. A wallet snapshot is returned; the live copy is only
// replaced by Persist.
func (s *WalletStore) LoadForUpdate(ctx context.Context, userID string) (*domain.Wallet, storage.WalletTx, error) {
	s.mu.RLock()
	entry, exists := s.byUser[userID]
	s.mu.RUnlock()

	if !exists {
		return nil, nil, storage.ErrNotFound
	}

	timer := time.NewTimer(s.lockTimeout)
	defer timer.Stop()

	select {
	case <-entry.lock:
	case <-timer.C:
		return nil, nil, storage.ErrConflict
	case <-ctx.Done():
		// The caller's request timeout bounds the wait the same way the
		// lock timeout does; the settlement had no effect and may retry.
		return nil, nil, fmt.Errorf("%w: %v", storage.ErrConflict, ctx.Err())
	}

	w, err := copyWallet(entry.wallet)
	if err != nil {
		entry.lock <- struct{}{}
		return nil, nil, err
	}
	return w, &walletTx{entry: entry}, nil
}

// walletTx holds the lock token for one wallet.
type walletTx struct {
	entry *walletEntry
	done  bool
}

var _ storage.WalletTx = (*walletTx)(nil)

// Persist replaces the stored wallet and releases the lock.
func (t *walletTx) Persist(_ context.Context, w *domain.Wallet) error {
	if t.done {
		return fmt.Errorf("wallet tx already closed")
	}

	stored, err := copyWallet(w)
	if err != nil {
		t.done = true
		t.entry.lock <- struct{}{}
		return err
	}
	stored.UpdatedAt = time.Now().UTC()
	w.UpdatedAt = stored.UpdatedAt

	t.entry.wallet = stored
	t.done = true
	t.entry.lock <- struct{}{}
	return nil
}

// Rollback releases the lock without writing. No-op after Persist.
func (t *walletTx) Rollback(_ context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.entry.lock <- struct{}{}
	return nil
}

// copyWallet deep-copies a wallet through its JSON form, the same shape the
// postgres backend round-trips.
func copyWallet(w *domain.Wallet) (*domain.Wallet, error) {
	data, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("copy wallet: %w", err)
	}
	var out domain.Wallet
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("copy wallet: %w", err)
	}
	if out.Chains == nil {
		out.Chains = make(map[string]*domain.ChainWallet)
	}
	return &out, nil
}
