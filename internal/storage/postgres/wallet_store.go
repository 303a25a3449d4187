package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"virtual-wallet-lab/internal/domain"
	"virtual-wallet-lab/internal/storage"
)

// DefaultLockTimeout bounds how long LoadForUpdate waits for the row lock
// before reporting a conflict.
const DefaultLockTimeout = 5 * time.Second

// WalletStore implements storage.WalletStore using PostgreSQL. The chains
// document lives in a single JSONB column and is replaced wholesale on
// every persist.
type WalletStore struct {
	pool        *Pool
	lockTimeout time.Duration
}

// NewWalletStore creates a new WalletStore.
func NewWalletStore(pool *Pool) *WalletStore {
	return &WalletStore{pool: pool, lockTimeout: DefaultLockTimeout}
}

// NewWalletStoreWithLockTimeout creates a WalletStore with a custom lock
// timeout. Used by tests to provoke conflicts quickly.
func NewWalletStoreWithLockTimeout(pool *Pool, timeout time.Duration) *WalletStore {
	return &WalletStore{pool: pool, lockTimeout: timeout}
}

// Compile-time interface check.
var _ storage.WalletStore = (*WalletStore)(nil)

// Create inserts a new wallet. Returns ErrDuplicateKey if the user already
// has one.
func (s *WalletStore) Create(ctx context.Context, w *domain.Wallet) error {
	if w == nil || w.ID == "" || w.UserID == "" {
		return storage.ErrInvalidInput
	}

	chains, err := json.Marshal(w.Chains)
	if err != nil {
		return fmt.Errorf("marshal chains document: %w", err)
	}

	query := `
		INSERT INTO wallets (id, user_id, chains, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	start := time.Now()
	_, err = s.pool.Exec(ctx, query, w.ID, w.UserID, chains, w.CreatedAt, w.UpdatedAt)
	observeQuery("wallet_insert", start, err)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

// GetByUserID retrieves the wallet for a user without locking it.
func (s *WalletStore) GetByUserID(ctx context.Context, userID string) (*domain.Wallet, error) {
	query := `
		SELECT id, user_id, chains, created_at, updated_at
		FROM wallets
		WHERE user_id = $1
	`

	start := time.Now()
	row := s.pool.QueryRow(ctx, query, userID)
	w, err := scanWallet(row)
	if isNotFoundError(err) {
		observeQuery("wallet_get", start, nil)
		return nil, storage.ErrNotFound
	}
	observeQuery("wallet_get", start, err)
	if err != nil {
		return nil, fmt.Errorf("get wallet by user id: %w", err)
	}
	return w, nil
}

// LoadForUpdate retrieves the wallet under SELECT ... FOR UPDATE inside a
// transaction. A lock wait beyond the configured timeout or the caller's
// deadline maps to ErrConflict.
func (s *WalletStore) LoadForUpdate(ctx context.Context, userID string) (*domain.Wallet, storage.WalletTx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin wallet tx: %w", err)
	}

	// lock_timeout does not accept bind parameters.
	setTimeout := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())
	if _, err := tx.Exec(ctx, setTimeout); err != nil {
		_ = tx.Rollback(ctx)
		return nil, nil, fmt.Errorf("set lock timeout: %w", err)
	}

	query := `
		SELECT id, user_id, chains, created_at, updated_at
		FROM wallets
		WHERE user_id = $1
		FOR UPDATE
	`

	start := time.Now()
	row := tx.QueryRow(ctx, query, userID)
	w, err := scanWallet(row)
	if isNotFoundError(err) {
		observeQuery("wallet_lock", start, nil)
		_ = tx.Rollback(ctx)
		return nil, nil, storage.ErrNotFound
	}
	observeQuery("wallet_lock", start, err)
	if err != nil {
		_ = tx.Rollback(ctx)
		if isLockConflictError(err) {
			return nil, nil, storage.ErrConflict
		}
		if ctx.Err() != nil {
			// Caller deadline expired while waiting on the row lock; same
			// retryable conflict as a lock timeout.
			return nil, nil, fmt.Errorf("%w: %v", storage.ErrConflict, ctx.Err())
		}
		return nil, nil, fmt.Errorf("lock wallet: %w", err)
	}

	return w, &walletTx{tx: tx}, nil
}

// walletTx holds the open transaction and row lock.
type walletTx struct {
	tx   pgx.Tx
	done bool
}

var _ storage.WalletTx = (*walletTx)(nil)

// Persist writes the full chains document, stamps updated_at, and commits.
func (t *walletTx) Persist(ctx context.Context, w *domain.Wallet) error {
	if t.done {
		return fmt.Errorf("wallet tx already closed")
	}

	chains, err := json.Marshal(w.Chains)
	if err != nil {
		_ = t.tx.Rollback(ctx)
		t.done = true
		return fmt.Errorf("marshal chains document: %w", err)
	}

	query := `
		UPDATE wallets
		SET chains = $1, updated_at = $2
		WHERE id = $3
	`

	w.UpdatedAt = time.Now().UTC()
	start := time.Now()
	_, err = t.tx.Exec(ctx, query, chains, w.UpdatedAt, w.ID)
	observeQuery("wallet_update", start, err)
	if err != nil {
		_ = t.tx.Rollback(ctx)
		t.done = true
		return fmt.Errorf("update wallet: %w", err)
	}

	if err := t.tx.Commit(ctx); err != nil {
		t.done = true
		return fmt.Errorf("commit wallet tx: %w", err)
	}
	t.done = true
	return nil
}

// Rollback releases the lock without writing. No-op after Persist.
func (t *walletTx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	if err := t.tx.Rollback(ctx); err != nil {
		return fmt.Errorf("rollback wallet tx: %w", err)
	}
	return nil
}

// scanWallet scans a single row into a Wallet, decoding the JSONB document.
func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	var (
		w      domain.Wallet
		chains []byte
	)

	err := row.Scan(&w.ID, &w.UserID, &chains, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(chains, &w.Chains); err != nil {
		return nil, fmt.Errorf("unmarshal chains document: %w", err)
	}
	if w.Chains == nil {
		w.Chains = make(map[string]*domain.ChainWallet)
	}

	return &w, nil
}
