// Package settlement implements the swap settlement engine: quote, validate,
// apply and persist balance mutations on a user's wallet document.
package settlement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/big"
	"os"
	"time"

	"github.com/google/uuid"

	"virtual-wallet-lab/internal/chains"
	"virtual-wallet-lab/internal/domain"
	"virtual-wallet-lab/internal/ledger"
	"virtual-wallet-lab/internal/observability"
	"virtual-wallet-lab/internal/storage"
)

// Quoter produces normalized swaps. Implemented by normalization.Normalizer.
type Quoter interface {
	Normalize(ctx context.Context, intent domain.SwapIntent, walletAddress string) (*domain.NormalizedSwap, error)
}

// SpotPricer returns USD spot prices for tokens. Implemented by the quoting
// client; used by RefreshPrices only.
type SpotPricer interface {
	GetSpotPrice(ctx context.Context, chainID int64, address string) (string, error)
}

// Engine orchestrates settlements over one wallet store.
type Engine struct {
	wallets storage.WalletStore
	records storage.SwapRecordStore
	quoter  Quoter
	pricer  SpotPricer
	logger  *log.Logger
	seed    []domain.SeedChain
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithSeed overrides the setup granted to newly created wallets.
func WithSeed(seed []domain.SeedChain) Option {
	return func(e *Engine) {
		e.seed = seed
	}
}

// WithSpotPricer enables RefreshPrices via the given pricer.
func WithSpotPricer(p SpotPricer) Option {
	return func(e *Engine) {
		e.pricer = p
	}
}

// New creates a settlement engine.
func New(wallets storage.WalletStore, records storage.SwapRecordStore, quoter Quoter, opts ...Option) *Engine {
	e := &Engine{
		wallets: wallets,
		records: records,
		quoter:  quoter,
		logger:  log.New(os.Stdout, "[settlement] ", log.LstdFlags|log.Lshortfile),
		seed:    domain.DefaultWalletSetup,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Settle prices the intent and applies it to the user's wallet. With execute
// false the mutation happens on a clone and is discarded after producing the
// preview; with execute true it happens on the locked live document, is
// persisted as a full replacement, and the after snapshot is reloaded from
// the store rather than taken from the in-memory copy.
func (e *Engine) Settle(ctx context.Context, userID string, intent domain.SwapIntent, execute bool) (*domain.SettlementResult, error) {
	start := time.Now()

	if err := validateIntent(intent); err != nil {
		observability.RecordSettlementError("invalid_intent")
		return nil, err
	}

	mode := "preview"
	if execute {
		mode = "execute"
	}

	var (
		wallet *domain.Wallet
		tx     storage.WalletTx
		err    error
	)
	if execute {
		wallet, tx, err = e.wallets.LoadForUpdate(ctx, userID)
	} else {
		wallet, err = e.wallets.GetByUserID(ctx, userID)
	}
	if err != nil {
		return nil, e.mapStoreError(err)
	}
	if tx != nil {
		// Until Persist succeeds, any exit releases the lock with zero effect.
		defer tx.Rollback(ctx)
	}

	before := ledger.CloneChains(wallet.Chains)

	observability.RecordQuoteRequested(swapType(intent))
	quote, err := e.quoter.Normalize(ctx, intent, wallet.ID)
	if err != nil {
		observability.RecordQuoteError()
		observability.RecordSettlementError("quote_unavailable")
		return nil, err
	}

	doc := ledger.New(wallet.Chains)
	if execute {
		wallet.Chains = doc.Chains()
	} else {
		doc = ledger.New(ledger.CloneChains(wallet.Chains))
	}

	source := doc.FindPosition(intent.FromChainID, intent.FromTokenAddress)
	if source == nil {
		observability.RecordSettlementError("source_token_not_found")
		return nil, fmt.Errorf("%w: %s on chain %d", ErrSourceTokenNotFound, intent.FromTokenAddress, intent.FromChainID)
	}

	if err := doc.Debit(intent.FromChainID, intent.FromTokenAddress, &quote.FromAmount.Int); err != nil {
		var insufficient *ledger.InsufficientBalanceError
		if errors.As(err, &insufficient) {
			observability.RecordSettlementError("insufficient_balance")
		}
		return nil, err
	}

	destMeta := &domain.TokenMetadata{
		ChainID:  intent.ToChainID,
		Address:  quote.ToToken.Address,
		Symbol:   quote.ToToken.Symbol,
		Name:     quote.ToToken.Name,
		Decimals: quote.ToToken.Decimals,
		LogoURI:  quote.ToToken.LogoURI,
	}
	if err := doc.Credit(intent.ToChainID, intent.ToTokenAddress, &quote.ToAmount.Int, destMeta); err != nil {
		if errors.Is(err, chains.ErrUnsupportedChain) {
			observability.RecordSettlementError("unsupported_chain")
		}
		return nil, err
	}
	doc.Recompute()

	preview := buildPreview(quote, intent.SlippagePercent)

	after := doc.Chains()
	if execute {
		if err := tx.Persist(ctx, wallet); err != nil {
			observability.RecordSettlementError("persist_failed")
			return nil, e.mapStoreError(err)
		}

		reloaded, err := e.wallets.GetByUserID(ctx, userID)
		if err != nil {
			return nil, e.mapStoreError(err)
		}
		after = reloaded.Chains

		e.appendRecord(ctx, wallet.ID, intent, quote)
		observability.DefaultMetrics.LastSuccessfulSettlement.SetToCurrentTime()
	}

	if quote.Degraded {
		observability.RecordDegradedSettlement()
		e.logger.Printf("settlement for user %s degraded: %v", userID, quote.DegradedReasons)
	}
	observability.RecordSettlement(quote.Type, mode, time.Since(start).Seconds())
	e.logger.Printf("settled %s %s: %s %s -> %s %s (execute=%t)",
		quote.Type, userID, preview.FromAmount, quote.FromToken.Symbol, preview.ToAmount, quote.ToToken.Symbol, execute)

	return &domain.SettlementResult{
		Executed:           execute,
		Quote:              quote,
		Before:             before,
		After:              after,
		TransactionPreview: preview,
		Degraded:           quote.Degraded,
		DegradedReasons:    quote.DegradedReasons,
	}, nil
}

// GetWalletSnapshot returns the user's wallet, creating and seeding it on
// first access.
func (e *Engine) GetWalletSnapshot(ctx context.Context, userID string) (*domain.Wallet, error) {
	wallet, err := e.wallets.GetByUserID(ctx, userID)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	chainMap, err := ledger.Seed(e.seed)
	if err != nil {
		return nil, fmt.Errorf("seed wallet: %w", err)
	}

	now := time.Now().UTC()
	wallet = &domain.Wallet{
		ID:        uuid.NewString(),
		UserID:    userID,
		Chains:    chainMap,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := e.wallets.Create(ctx, wallet); err != nil {
		// Lost a creation race; the winner's wallet is canonical.
		if errors.Is(err, storage.ErrDuplicateKey) {
			return e.wallets.GetByUserID(ctx, userID)
		}
		return nil, err
	}

	observability.RecordWalletCreated()
	e.logger.Printf("created wallet %s for user %s", wallet.ID, userID)
	return wallet, nil
}

// GetPosition returns one token position from the user's wallet. Returns
// ledger.ErrPositionNotFound if the wallet does not hold the token.
func (e *Engine) GetPosition(ctx context.Context, userID string, chainID int64, address string) (*domain.TokenPosition, error) {
	wallet, err := e.GetWalletSnapshot(ctx, userID)
	if err != nil {
		return nil, err
	}

	pos := ledger.New(wallet.Chains).FindPosition(chainID, address)
	if pos == nil {
		return nil, fmt.Errorf("%w: %s on chain %d", ledger.ErrPositionNotFound, address, chainID)
	}
	return pos, nil
}

// History returns the user's executed settlements, newest first.
func (e *Engine) History(ctx context.Context, userID string, limit, offset int) ([]*domain.SwapRecord, error) {
	wallet, err := e.wallets.GetByUserID(ctx, userID)
	if err != nil {
		return nil, e.mapStoreError(err)
	}
	return e.records.ListByWalletID(ctx, wallet.ID, limit, offset)
}

// RefreshPrices re-prices every position from the spot price feed and
// recomputes USD totals, persisting under the wallet lock. Raw balances are
// untouched.
func (e *Engine) RefreshPrices(ctx context.Context, userID string) (*domain.Wallet, error) {
	if e.pricer == nil {
		return nil, fmt.Errorf("spot pricer not configured")
	}

	wallet, tx, err := e.wallets.LoadForUpdate(ctx, userID)
	if err != nil {
		return nil, e.mapStoreError(err)
	}
	defer tx.Rollback(ctx)

	doc := ledger.New(wallet.Chains)
	for _, cw := range wallet.Chains {
		for _, pos := range cw.Tokens {
			price, err := e.pricer.GetSpotPrice(ctx, cw.ChainID, pos.TokenAddress)
			if err != nil {
				e.logger.Printf("spot price for %s on chain %d failed: %v", pos.TokenAddress, cw.ChainID, err)
				continue
			}
			if err := doc.SetPrice(cw.ChainID, pos.TokenAddress, price); err != nil {
				e.logger.Printf("set price for %s on chain %d failed: %v", pos.TokenAddress, cw.ChainID, err)
			}
		}
	}
	doc.Recompute()

	if err := tx.Persist(ctx, wallet); err != nil {
		return nil, e.mapStoreError(err)
	}
	return wallet, nil
}

// appendRecord writes the durable trace of an executed settlement. The
// balances are already committed, so a failure here is logged rather than
// surfaced as a settlement failure.
func (e *Engine) appendRecord(ctx context.Context, walletID string, intent domain.SwapIntent, quote *domain.NormalizedSwap) {
	payload, err := json.Marshal(quote)
	if err != nil {
		e.logger.Printf("marshal quote payload for wallet %s: %v", walletID, err)
		payload = nil
	}

	record := &domain.SwapRecord{
		ID:               uuid.NewString(),
		WalletID:         walletID,
		SwapType:         quote.Type,
		FromChainID:      intent.FromChainID,
		FromTokenAddress: intent.FromTokenAddress,
		FromTokenSymbol:  quote.FromToken.Symbol,
		FromAmount:       quote.FromAmount.String(),
		ToChainID:        intent.ToChainID,
		ToTokenAddress:   intent.ToTokenAddress,
		ToTokenSymbol:    quote.ToToken.Symbol,
		ToAmount:         quote.ToAmount.String(),
		SlippagePercent:  intent.SlippagePercent,
		NetworkFee:       feeString(quote.NetworkFee),
		QuotePayload:     payload,
		CreatedAt:        time.Now().UnixMilli(),
	}

	if err := e.records.Insert(ctx, record); err != nil {
		e.logger.Printf("append swap record for wallet %s: %v", walletID, err)
	}
}

// mapStoreError translates storage sentinels into the settlement taxonomy.
func (e *Engine) mapStoreError(err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		observability.RecordSettlementError("wallet_not_found")
		return ErrWalletNotFound
	case errors.Is(err, storage.ErrConflict):
		observability.RecordLockConflict()
		observability.RecordSettlementError("persistence_conflict")
		return ErrPersistenceConflict
	default:
		return err
	}
}

// validateIntent checks the parts of the intent the engine owns; amounts and
// token existence are validated downstream.
func validateIntent(intent domain.SwapIntent) error {
	if intent.SlippagePercent < 1 || intent.SlippagePercent > 50 {
		return fmt.Errorf("%w: got %d", ErrInvalidSlippage, intent.SlippagePercent)
	}
	if _, err := chains.Lookup(intent.FromChainID); err != nil {
		return err
	}
	if _, err := chains.Lookup(intent.ToChainID); err != nil {
		return err
	}
	amount, err := domain.ParseBigInt(intent.Amount)
	if err != nil {
		return fmt.Errorf("%w: %v", ledger.ErrInvalidAmount, err)
	}
	if amount.Sign() <= 0 {
		return fmt.Errorf("%w: amount must be positive", ledger.ErrInvalidAmount)
	}
	return nil
}

// buildPreview derives the caller-facing summary from the quote.
// minimumReceived is floor(toAmount * (100 - slippage) / 100) in raw units,
// then decimal-formatted with the destination token's decimals.
func buildPreview(quote *domain.NormalizedSwap, slippagePercent int) *domain.TransactionPreview {
	minReceived := new(big.Int).Mul(&quote.ToAmount.Int, big.NewInt(int64(100-slippagePercent)))
	minReceived.Quo(minReceived, big.NewInt(100))

	return &domain.TransactionPreview{
		FromAmount:      ledger.FormatUnits(&quote.FromAmount.Int, quote.FromToken.Decimals),
		ToAmount:        ledger.FormatUnits(&quote.ToAmount.Int, quote.ToToken.Decimals),
		PriceImpact:     quote.PriceImpactPercent,
		MinimumReceived: ledger.FormatUnits(minReceived, quote.ToToken.Decimals),
		NetworkFee:      feeString(quote.NetworkFee),
	}
}

func feeString(fee *domain.BigInt) string {
	if fee == nil {
		return "0"
	}
	return fee.String()
}

func swapType(intent domain.SwapIntent) string {
	if intent.FromChainID == intent.ToChainID {
		return domain.SwapTypeClassic
	}
	return domain.SwapTypeCrossChain
}
