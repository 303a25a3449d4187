package memory

import (
	"context"
	"sort"
	"sync"

	"virtual-wallet-lab/internal/domain"
	"virtual-wallet-lab/internal/storage"
)

// SwapRecordStore is an in-memory implementation of storage.SwapRecordStore.
type SwapRecordStore struct {
	mu       sync.RWMutex
	byID     map[string]*domain.SwapRecord
	byWallet map[string][]*domain.SwapRecord
}

// NewSwapRecordStore creates a new in-memory swap record store.
func NewSwapRecordStore() *SwapRecordStore {
	return &SwapRecordStore{
		byID:     make(map[string]*domain.SwapRecord),
		byWallet: make(map[string][]*domain.SwapRecord),
	}
}

var _ storage.SwapRecordStore = (*SwapRecordStore)(nil)

// Insert appends one swap record. Returns ErrDuplicateKey if the id exists.
func (s *SwapRecordStore) Insert(_ context.Context, r *domain.SwapRecord) error {
	if r == nil || r.ID == "" || r.WalletID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[r.ID]; exists {
		return storage.ErrDuplicateKey
	}

	recCopy := *r
	if r.QuotePayload != nil {
		recCopy.QuotePayload = append([]byte(nil), r.QuotePayload...)
	}
	s.byID[r.ID] = &recCopy
	s.byWallet[r.WalletID] = append(s.byWallet[r.WalletID], &recCopy)
	return nil
}

// ListByWalletID returns records for a wallet, newest first.
func (s *SwapRecordStore) ListByWalletID(_ context.Context, walletID string, limit, offset int) ([]*domain.SwapRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.byWallet[walletID]
	records := make([]*domain.SwapRecord, 0, len(stored))
	for _, r := range stored {
		recCopy := *r
		if r.QuotePayload != nil {
			recCopy.QuotePayload = append([]byte(nil), r.QuotePayload...)
		}
		records = append(records, &recCopy)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt > records[j].CreatedAt
	})

	if offset > 0 {
		if offset >= len(records) {
			return nil, nil
		}
		records = records[offset:]
	}
	if limit > 0 && limit < len(records) {
		records = records[:limit]
	}
	return records, nil
}
