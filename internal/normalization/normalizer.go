// Package normalization collapses the two external quote shapes into one
// NormalizedSwap record. Same-chain quotes carry token metadata inline;
// cross-chain quotes carry raw amounts only and need secondary metadata
// lookups, which run concurrently and are cached with a TTL.
package normalization

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"virtual-wallet-lab/internal/domain"
	"virtual-wallet-lab/internal/observability"
	"virtual-wallet-lab/internal/oneinch"
)

// DefaultDecimals is substituted when a metadata lookup fails. Amounts for
// tokens with different decimals will render mis-scaled, so the result is
// flagged degraded rather than silently trusted.
const DefaultDecimals = 18

// DefaultMetadataTTL bounds how long resolved token metadata is reused.
const DefaultMetadataTTL = 5 * time.Minute

// Normalizer turns swap intents into NormalizedSwap records.
type Normalizer struct {
	client oneinch.Client
	cache  *gocache.Cache
	logger *log.Logger
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithMetadataTTL overrides the metadata cache TTL.
func WithMetadataTTL(ttl time.Duration) Option {
	return func(n *Normalizer) {
		n.cache = gocache.New(ttl, 2*ttl)
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(n *Normalizer) {
		n.logger = l
	}
}

// New creates a Normalizer around the quoting client.
func New(client oneinch.Client, opts ...Option) *Normalizer {
	n := &Normalizer{
		client: client,
		cache:  gocache.New(DefaultMetadataTTL, 2*DefaultMetadataTTL),
		logger: log.New(log.Writer(), "[normalizer] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize prices the intent and returns the unified swap record. The
// wallet address is forwarded to the cross-chain quoter, which requires it.
func (n *Normalizer) Normalize(ctx context.Context, intent domain.SwapIntent, walletAddress string) (*domain.NormalizedSwap, error) {
	if intent.FromChainID == intent.ToChainID {
		return n.normalizeClassic(ctx, intent)
	}
	return n.normalizeCrossChain(ctx, intent, walletAddress)
}

func (n *Normalizer) normalizeClassic(ctx context.Context, intent domain.SwapIntent) (*domain.NormalizedSwap, error) {
	quote, err := n.client.GetClassicQuote(ctx, intent.FromChainID, intent.FromTokenAddress, intent.ToTokenAddress, intent.Amount)
	if err != nil {
		return nil, err
	}

	fromAmount, err := parseAmount(intent.Amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", oneinch.ErrQuoteUnavailable, err)
	}
	toAmount, err := parseAmount(quote.ToAmount)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed toAmount: %v", oneinch.ErrQuoteUnavailable, err)
	}

	swap := &domain.NormalizedSwap{
		Type:        domain.SwapTypeClassic,
		FromChainID: intent.FromChainID,
		FromToken:   tokenFromInfo(quote.FromToken, intent.FromTokenAddress),
		FromAmount:  fromAmount,
		ToChainID:   intent.ToChainID,
		ToToken:     tokenFromInfo(quote.ToToken, intent.ToTokenAddress),
		ToAmount:    toAmount,
	}
	if quote.EstimatedGas > 0 {
		swap.EstimatedGas = domain.NewBigInt(quote.EstimatedGas)
	}
	swap.NetworkFee = n.classicNetworkFee(ctx, intent.FromChainID, quote.EstimatedGas)
	return swap, nil
}

// classicNetworkFee estimates the fee as estimatedGas times the medium
// max-fee-per-gas preset. A failed gas price lookup degrades to zero.
func (n *Normalizer) classicNetworkFee(ctx context.Context, chainID int64, estimatedGas int64) *domain.BigInt {
	if estimatedGas <= 0 {
		return domain.NewBigInt(0)
	}
	gp, err := n.client.GetGasPrice(ctx, chainID)
	if err != nil {
		n.logger.Printf("gas price lookup failed for chain %d: %v", chainID, err)
		return domain.NewBigInt(0)
	}
	perGas, ok := new(big.Int).SetString(gp.Medium.MaxFeePerGas, 10)
	if !ok {
		return domain.NewBigInt(0)
	}
	fee := new(domain.BigInt)
	fee.Mul(perGas, big.NewInt(estimatedGas))
	return fee
}

func (n *Normalizer) normalizeCrossChain(ctx context.Context, intent domain.SwapIntent, walletAddress string) (*domain.NormalizedSwap, error) {
	quote, err := n.client.GetCrossChainQuote(ctx, oneinch.CrossChainQuoteParams{
		SrcChainID:    intent.FromChainID,
		DstChainID:    intent.ToChainID,
		SrcToken:      intent.FromTokenAddress,
		DstToken:      intent.ToTokenAddress,
		Amount:        intent.Amount,
		WalletAddress: walletAddress,
	})
	if err != nil {
		return nil, err
	}

	// The cross-chain quote carries raw addresses only. Resolve both sides
	// concurrently; both lookups join before the swap record is returned.
	var (
		wg      sync.WaitGroup
		fromTok domain.SwapToken
		toTok   domain.SwapToken
		fromErr error
		toErr   error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		fromTok, fromErr = n.resolveToken(ctx, intent.FromChainID, intent.FromTokenAddress)
	}()
	go func() {
		defer wg.Done()
		toTok, toErr = n.resolveToken(ctx, intent.ToChainID, intent.ToTokenAddress)
	}()
	wg.Wait()

	swap := &domain.NormalizedSwap{
		Type:        domain.SwapTypeCrossChain,
		FromChainID: intent.FromChainID,
		FromToken:   fromTok,
		ToChainID:   intent.ToChainID,
		ToToken:     toTok,
	}
	for _, lookupErr := range []error{fromErr, toErr} {
		if lookupErr != nil {
			swap.Degraded = true
			swap.DegradedReasons = append(swap.DegradedReasons, lookupErr.Error())
		}
	}
	if swap.Degraded {
		n.logger.Printf("metadata degraded for %d:%s -> %d:%s: %v",
			intent.FromChainID, intent.FromTokenAddress, intent.ToChainID, intent.ToTokenAddress, swap.DegradedReasons)
	}

	swap.FromAmount, err = parseAmount(quote.SrcTokenAmount)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed srcTokenAmount: %v", oneinch.ErrQuoteUnavailable, err)
	}
	swap.ToAmount, err = parseAmount(quote.DstTokenAmount)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed dstTokenAmount: %v", oneinch.ErrQuoteUnavailable, err)
	}

	swap.PriceImpactPercent = quote.PriceImpactPercent
	if fee, ok := new(big.Int).SetString(quote.Prices.Recommended.FeeAmount, 10); ok {
		nf := new(domain.BigInt)
		nf.Set(fee)
		swap.NetworkFee = nf
	} else {
		swap.NetworkFee = domain.NewBigInt(0)
	}
	return swap, nil
}

// resolveToken resolves metadata for one side of a cross-chain swap, using
// the TTL cache. On lookup failure it falls back to DefaultDecimals with the
// symbol omitted and reports the error for the degraded flag.
func (n *Normalizer) resolveToken(ctx context.Context, chainID int64, address string) (domain.SwapToken, error) {
	key := fmt.Sprintf("%d:%s", chainID, strings.ToLower(address))
	if cached, ok := n.cache.Get(key); ok {
		observability.RecordMetadataCacheHit()
		meta := cached.(*domain.TokenMetadata)
		return swapTokenFromMetadata(meta, address), nil
	}

	meta, err := n.client.GetTokenMetadata(ctx, chainID, address)
	if err != nil {
		return domain.SwapToken{
			Address:  address,
			Decimals: DefaultDecimals,
		}, fmt.Errorf("metadata lookup failed for %s on chain %d: %w", address, chainID, err)
	}

	n.cache.SetDefault(key, meta)
	return swapTokenFromMetadata(meta, address), nil
}

// ResolveMetadata resolves full token metadata through the same TTL cache
// the cross-chain resolution path uses.
func (n *Normalizer) ResolveMetadata(ctx context.Context, chainID int64, address string) (*domain.TokenMetadata, error) {
	key := fmt.Sprintf("%d:%s", chainID, strings.ToLower(address))
	if cached, ok := n.cache.Get(key); ok {
		observability.RecordMetadataCacheHit()
		return cached.(*domain.TokenMetadata), nil
	}
	meta, err := n.client.GetTokenMetadata(ctx, chainID, address)
	if err != nil {
		return nil, err
	}
	n.cache.SetDefault(key, meta)
	return meta, nil
}

func tokenFromInfo(info oneinch.TokenInfo, fallbackAddress string) domain.SwapToken {
	address := info.Address
	if address == "" {
		address = fallbackAddress
	}
	return domain.SwapToken{
		Address:  address,
		Symbol:   info.Symbol,
		Name:     info.Name,
		Decimals: info.Decimals,
		LogoURI:  info.LogoURI,
	}
}

func swapTokenFromMetadata(meta *domain.TokenMetadata, fallbackAddress string) domain.SwapToken {
	address := meta.Address
	if address == "" {
		address = fallbackAddress
	}
	return domain.SwapToken{
		Address:  address,
		Symbol:   meta.Symbol,
		Name:     meta.Name,
		Decimals: meta.Decimals,
		LogoURI:  meta.LogoURI,
	}
}

func parseAmount(s string) (*domain.BigInt, error) {
	if s == "" {
		return nil, fmt.Errorf("empty amount")
	}
	amount, err := domain.ParseBigInt(s)
	if err != nil {
		return nil, err
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("negative amount %s", s)
	}
	return amount, nil
}
