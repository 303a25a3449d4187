package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"virtual-wallet-lab/internal/domain"
	"virtual-wallet-lab/internal/storage"
)

// SwapRecordStore implements storage.SwapRecordStore using PostgreSQL.
type SwapRecordStore struct {
	pool *Pool
}

// NewSwapRecordStore creates a new SwapRecordStore.
func NewSwapRecordStore(pool *Pool) *SwapRecordStore {
	return &SwapRecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SwapRecordStore = (*SwapRecordStore)(nil)

// Insert appends one swap record. Returns ErrDuplicateKey if the id exists.
func (s *SwapRecordStore) Insert(ctx context.Context, r *domain.SwapRecord) error {
	if r == nil || r.ID == "" || r.WalletID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO swap_records (
			id, wallet_id, swap_type,
			from_chain_id, from_token_address, from_token_symbol, from_amount,
			to_chain_id, to_token_address, to_token_symbol, to_amount,
			slippage_percent, network_fee, quote_payload, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	start := time.Now()
	_, err := s.pool.Exec(ctx, query,
		r.ID,
		r.WalletID,
		r.SwapType,
		r.FromChainID,
		r.FromTokenAddress,
		r.FromTokenSymbol,
		r.FromAmount,
		r.ToChainID,
		r.ToTokenAddress,
		r.ToTokenSymbol,
		r.ToAmount,
		r.SlippagePercent,
		r.NetworkFee,
		r.QuotePayload,
		r.CreatedAt,
	)
	observeQuery("swap_record_insert", start, err)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert swap record: %w", err)
	}
	return nil
}

// ListByWalletID returns records for a wallet, newest first.
func (s *SwapRecordStore) ListByWalletID(ctx context.Context, walletID string, limit, offset int) ([]*domain.SwapRecord, error) {
	query := `
		SELECT id, wallet_id, swap_type,
		       from_chain_id, from_token_address, from_token_symbol, from_amount,
		       to_chain_id, to_token_address, to_token_symbol, to_amount,
		       slippage_percent, network_fee, quote_payload, created_at
		FROM swap_records
		WHERE wallet_id = $1
		ORDER BY created_at DESC, id DESC
	`
	args := []interface{}{walletID}

	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, limit)
	}
	if offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", len(args)+1)
		args = append(args, offset)
	}

	start := time.Now()
	rows, err := s.pool.Query(ctx, query, args...)
	observeQuery("swap_record_list", start, err)
	if err != nil {
		return nil, fmt.Errorf("list swap records: %w", err)
	}
	defer rows.Close()

	var records []*domain.SwapRecord
	for rows.Next() {
		r, err := scanSwapRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan swap record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate swap records: %w", err)
	}
	return records, nil
}

// scanSwapRecord scans a single row into SwapRecord.
func scanSwapRecord(row pgx.Row) (*domain.SwapRecord, error) {
	var r domain.SwapRecord

	err := row.Scan(
		&r.ID,
		&r.WalletID,
		&r.SwapType,
		&r.FromChainID,
		&r.FromTokenAddress,
		&r.FromTokenSymbol,
		&r.FromAmount,
		&r.ToChainID,
		&r.ToTokenAddress,
		&r.ToTokenSymbol,
		&r.ToAmount,
		&r.SlippagePercent,
		&r.NetworkFee,
		&r.QuotePayload,
		&r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &r, nil
}
