package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"virtual-wallet-lab/internal/domain"
	"virtual-wallet-lab/internal/storage"
)

func bigFromString(s string) *domain.BigInt {
	b, err := domain.ParseBigInt(s)
	if err != nil {
		panic(err)
	}
	return b
}

func newTestWallet(userID string) *domain.Wallet {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Wallet{
		ID:     uuid.NewString(),
		UserID: userID,
		Chains: map[string]*domain.ChainWallet{
			"1": {
				ChainID:     1,
				ChainName:   "Ethereum",
				ChainSymbol: "ETH",
				Tokens: []*domain.TokenPosition{
					{
						TokenAddress:     "0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE",
						TokenSymbol:      "ETH",
						TokenName:        "Ether",
						Decimals:         18,
						Balance:          bigFromString("10000000000000000000"),
						FormattedBalance: "10",
					},
				},
				TotalUSDValue: "0.00",
			},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestWalletStore_CreateAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewWalletStore(pool)

	wallet := newTestWallet("pg-user-1")
	require.NoError(t, store.Create(ctx, wallet))

	retrieved, err := store.GetByUserID(ctx, "pg-user-1")
	require.NoError(t, err)

	assert.Equal(t, wallet.ID, retrieved.ID)
	assert.Equal(t, wallet.UserID, retrieved.UserID)
	require.Contains(t, retrieved.Chains, "1")
	require.Len(t, retrieved.Chains["1"].Tokens, 1)
	assert.Equal(t, "10000000000000000000", retrieved.Chains["1"].Tokens[0].Balance.String())
	assert.Equal(t, uint8(18), retrieved.Chains["1"].Tokens[0].Decimals)
}

func TestWalletStore_CreateDuplicateUser(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewWalletStore(pool)

	require.NoError(t, store.Create(ctx, newTestWallet("pg-dup-user")))

	err := store.Create(ctx, newTestWallet("pg-dup-user"))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestWalletStore_GetNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewWalletStore(pool)

	_, err := store.GetByUserID(ctx, "pg-nobody")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, _, err = store.LoadForUpdate(ctx, "pg-nobody")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestWalletStore_PersistRoundTrip(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewWalletStore(pool)

	wallet := newTestWallet("pg-persist-user")
	require.NoError(t, store.Create(ctx, wallet))

	locked, tx, err := store.LoadForUpdate(ctx, "pg-persist-user")
	require.NoError(t, err)

	locked.Chains["1"].Tokens[0].Balance.SetInt64(7)
	locked.Chains["1"].Tokens[0].FormattedBalance = "0.000000000000000007"
	require.NoError(t, tx.Persist(ctx, locked))

	reloaded, err := store.GetByUserID(ctx, "pg-persist-user")
	require.NoError(t, err)
	assert.Equal(t, "7", reloaded.Chains["1"].Tokens[0].Balance.String())
	assert.Equal(t, "0.000000000000000007", reloaded.Chains["1"].Tokens[0].FormattedBalance)
	assert.True(t, reloaded.UpdatedAt.After(wallet.UpdatedAt), "updated_at not advanced")
}

func TestWalletStore_RollbackLeavesDocument(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewWalletStore(pool)

	wallet := newTestWallet("pg-rollback-user")
	require.NoError(t, store.Create(ctx, wallet))

	locked, tx, err := store.LoadForUpdate(ctx, "pg-rollback-user")
	require.NoError(t, err)
	locked.Chains["1"].Tokens[0].Balance.SetInt64(0)
	require.NoError(t, tx.Rollback(ctx))

	reloaded, err := store.GetByUserID(ctx, "pg-rollback-user")
	require.NoError(t, err)
	assert.Equal(t, "10000000000000000000", reloaded.Chains["1"].Tokens[0].Balance.String())
}

func TestWalletStore_LockConflict(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewWalletStoreWithLockTimeout(pool, 200*time.Millisecond)

	require.NoError(t, store.Create(ctx, newTestWallet("pg-lock-user")))

	_, tx, err := store.LoadForUpdate(ctx, "pg-lock-user")
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	// Second locker on another connection must hit the lock timeout.
	_, _, err = store.LoadForUpdate(ctx, "pg-lock-user")
	assert.ErrorIs(t, err, storage.ErrConflict)
}

func TestWalletStore_LockCallerDeadlineIsConflict(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	// Store timeout far beyond the caller's; the caller deadline fires first.
	store := NewWalletStoreWithLockTimeout(pool, 5*time.Second)

	require.NoError(t, store.Create(ctx, newTestWallet("pg-deadline-user")))

	_, tx, err := store.LoadForUpdate(ctx, "pg-deadline-user")
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	bounded, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancel()

	_, _, err = store.LoadForUpdate(bounded, "pg-deadline-user")
	assert.ErrorIs(t, err, storage.ErrConflict)
}

func TestWalletStore_LockReleasedAfterRollback(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewWalletStoreWithLockTimeout(pool, 200*time.Millisecond)

	require.NoError(t, store.Create(ctx, newTestWallet("pg-release-user")))

	_, tx, err := store.LoadForUpdate(ctx, "pg-release-user")
	require.NoError(t, err)
	require.NoError(t, tx.Rollback(ctx))

	_, tx2, err := store.LoadForUpdate(ctx, "pg-release-user")
	require.NoError(t, err)
	require.NoError(t, tx2.Rollback(ctx))
}

func TestWalletStore_EmptyChainsDocument(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewWalletStore(pool)

	wallet := &domain.Wallet{
		ID:        uuid.NewString(),
		UserID:    "pg-empty-user",
		Chains:    nil,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.Create(ctx, wallet))

	retrieved, err := store.GetByUserID(ctx, "pg-empty-user")
	require.NoError(t, err)
	assert.NotNil(t, retrieved.Chains)
	assert.Empty(t, retrieved.Chains)
}
