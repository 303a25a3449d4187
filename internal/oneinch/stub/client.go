// Package stub provides a configurable in-memory oneinch.Client for tests.
package stub

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"virtual-wallet-lab/internal/domain"
	"virtual-wallet-lab/internal/oneinch"
)

// metaKey identifies a (chain, address) metadata entry.
func metaKey(chainID int64, address string) string {
	return fmt.Sprintf("%d:%s", chainID, strings.ToLower(address))
}

// Client implements oneinch.Client from fixed fixtures.
type Client struct {
	mu sync.Mutex

	ClassicQuotes    map[string]*oneinch.ClassicQuote    // keyed chainID:src:dst
	CrossChainQuotes map[string]*oneinch.CrossChainQuote // keyed srcChain:dstChain:src:dst
	Metadata         map[string]*domain.TokenMetadata    // keyed chainID:address
	GasPrices        map[int64]*oneinch.GasPrice
	SpotPrices       map[string]string // keyed chainID:address

	// Err, when set, is returned by every quote call.
	Err error
	// MetadataErr, when set, is returned by every metadata lookup.
	MetadataErr error

	// MetadataCalls counts GetTokenMetadata invocations.
	MetadataCalls int
}

// NewClient creates an empty stub client.
func NewClient() *Client {
	return &Client{
		ClassicQuotes:    make(map[string]*oneinch.ClassicQuote),
		CrossChainQuotes: make(map[string]*oneinch.CrossChainQuote),
		Metadata:         make(map[string]*domain.TokenMetadata),
		GasPrices:        make(map[int64]*oneinch.GasPrice),
		SpotPrices:       make(map[string]string),
	}
}

var _ oneinch.Client = (*Client)(nil)

// AddClassicQuote registers a fixture for GetClassicQuote.
func (c *Client) AddClassicQuote(chainID int64, src, dst string, quote *oneinch.ClassicQuote) {
	c.ClassicQuotes[classicKey(chainID, src, dst)] = quote
}

// AddCrossChainQuote registers a fixture for GetCrossChainQuote.
func (c *Client) AddCrossChainQuote(srcChain, dstChain int64, src, dst string, quote *oneinch.CrossChainQuote) {
	c.CrossChainQuotes[crossKey(srcChain, dstChain, src, dst)] = quote
}

// AddMetadata registers a fixture for GetTokenMetadata.
func (c *Client) AddMetadata(meta *domain.TokenMetadata) {
	c.Metadata[metaKey(meta.ChainID, meta.Address)] = meta
}

func classicKey(chainID int64, src, dst string) string {
	return fmt.Sprintf("%d:%s:%s", chainID, strings.ToLower(src), strings.ToLower(dst))
}

func crossKey(srcChain, dstChain int64, src, dst string) string {
	return fmt.Sprintf("%d:%d:%s:%s", srcChain, dstChain, strings.ToLower(src), strings.ToLower(dst))
}

// GetClassicQuote returns the registered fixture.
func (c *Client) GetClassicQuote(_ context.Context, chainID int64, src, dst, amount string) (*oneinch.ClassicQuote, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	quote, ok := c.ClassicQuotes[classicKey(chainID, src, dst)]
	if !ok {
		return nil, fmt.Errorf("%w: no classic quote fixture for %d %s->%s", oneinch.ErrQuoteUnavailable, chainID, src, dst)
	}
	q := *quote
	q.FromAmount = amount
	return &q, nil
}

// GetCrossChainQuote returns the registered fixture.
func (c *Client) GetCrossChainQuote(_ context.Context, p oneinch.CrossChainQuoteParams) (*oneinch.CrossChainQuote, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	quote, ok := c.CrossChainQuotes[crossKey(p.SrcChainID, p.DstChainID, p.SrcToken, p.DstToken)]
	if !ok {
		return nil, fmt.Errorf("%w: no cross-chain quote fixture for %d->%d", oneinch.ErrQuoteUnavailable, p.SrcChainID, p.DstChainID)
	}
	q := *quote
	q.SrcTokenAmount = p.Amount
	return &q, nil
}

// GetTokenMetadata returns the registered fixture.
func (c *Client) GetTokenMetadata(_ context.Context, chainID int64, address string) (*domain.TokenMetadata, error) {
	c.mu.Lock()
	c.MetadataCalls++
	c.mu.Unlock()

	if c.MetadataErr != nil {
		return nil, c.MetadataErr
	}
	meta, ok := c.Metadata[metaKey(chainID, address)]
	if !ok {
		return nil, fmt.Errorf("%w: %s on chain %d", oneinch.ErrTokenNotListed, address, chainID)
	}
	m := *meta
	return &m, nil
}

// GetGasPrice returns the registered fixture, or zero presets.
func (c *Client) GetGasPrice(_ context.Context, chainID int64) (*oneinch.GasPrice, error) {
	if gp, ok := c.GasPrices[chainID]; ok {
		g := *gp
		return &g, nil
	}
	return &oneinch.GasPrice{}, nil
}

// GetSpotPrice returns the registered fixture, or "0".
func (c *Client) GetSpotPrice(_ context.Context, chainID int64, address string) (string, error) {
	if price, ok := c.SpotPrices[metaKey(chainID, address)]; ok {
		return price, nil
	}
	return "0", nil
}
