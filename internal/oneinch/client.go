// Package oneinch talks to the external quoting service. It covers the three
// lookups the settlement engine needs (classic quote, cross-chain quote,
// token metadata) plus gas and spot prices for fee estimation and portfolio
// valuation.
package oneinch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"virtual-wallet-lab/internal/domain"
	"virtual-wallet-lab/internal/observability"
)

// ErrQuoteUnavailable wraps any upstream quoting failure. Settlements abort
// on it with zero durable effect.
var ErrQuoteUnavailable = errors.New("quote unavailable")

// ErrTokenNotListed is returned when a metadata lookup finds no entry for
// the address on the chain's token list.
var ErrTokenNotListed = errors.New("token not listed")

// Client is the quoting collaborator consumed by the normalizer and engine.
type Client interface {
	// GetClassicQuote prices a same-chain swap. Token metadata is inline.
	GetClassicQuote(ctx context.Context, chainID int64, src, dst, amount string) (*ClassicQuote, error)

	// GetCrossChainQuote prices a cross-chain swap via the auction quoter.
	GetCrossChainQuote(ctx context.Context, p CrossChainQuoteParams) (*CrossChainQuote, error)

	// GetTokenMetadata resolves decimals/symbol/name for (chainID, address).
	// Returns ErrTokenNotListed if the chain's token list has no entry.
	GetTokenMetadata(ctx context.Context, chainID int64, address string) (*domain.TokenMetadata, error)

	// GetGasPrice reports current gas price presets for a chain.
	GetGasPrice(ctx context.Context, chainID int64) (*GasPrice, error)

	// GetSpotPrice returns the USD spot price for one token.
	GetSpotPrice(ctx context.Context, chainID int64, address string) (string, error)
}

// Default configuration values.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
)

// HTTPClient implements Client against the HTTP quoting API.
type HTTPClient struct {
	baseURL     string
	apiKey      string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.retryDelay = d
	}
}

// WithAPIKey sets the bearer token sent with every request.
func WithAPIKey(key string) ClientOption {
	return func(c *HTTPClient) {
		c.apiKey = key
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// NewHTTPClient creates a client for the given API base URL.
func NewHTTPClient(baseURL string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ Client = (*HTTPClient)(nil)

// get performs a GET with retries and exponential backoff, decoding the JSON
// body into result.
func (c *HTTPClient) get(ctx context.Context, path string, query url.Values, result interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		}

		// Client errors are not retried; the request itself is wrong.
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
			continue
		}

		if result != nil {
			if err := json.Unmarshal(body, result); err != nil {
				return fmt.Errorf("unmarshal response: %w", err)
			}
		}
		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// getTimed wraps get, recording the call latency under a stable endpoint
// label (paths embed chain ids and would blow up the label cardinality).
func (c *HTTPClient) getTimed(ctx context.Context, endpoint, path string, query url.Values, result interface{}) error {
	start := time.Now()
	err := c.get(ctx, path, query, result)
	observability.RecordQuoteLatency(endpoint, time.Since(start).Seconds())
	return err
}

// GetClassicQuote prices a same-chain swap.
func (c *HTTPClient) GetClassicQuote(ctx context.Context, chainID int64, src, dst, amount string) (*ClassicQuote, error) {
	query := url.Values{}
	query.Set("src", src)
	query.Set("dst", dst)
	query.Set("amount", amount)
	query.Set("includeTokensInfo", "true")
	query.Set("includeGas", "true")

	var quote ClassicQuote
	path := fmt.Sprintf("/swap/v6.1/%d/quote", chainID)
	if err := c.getTimed(ctx, "classic_quote", path, query, &quote); err != nil {
		return nil, fmt.Errorf("%w: classic quote: %v", ErrQuoteUnavailable, err)
	}
	return &quote, nil
}

// GetCrossChainQuote prices a cross-chain swap.
func (c *HTTPClient) GetCrossChainQuote(ctx context.Context, p CrossChainQuoteParams) (*CrossChainQuote, error) {
	query := url.Values{}
	query.Set("srcChainId", strconv.FormatInt(p.SrcChainID, 10))
	query.Set("dstChainId", strconv.FormatInt(p.DstChainID, 10))
	query.Set("srcTokenAddress", p.SrcToken)
	query.Set("dstTokenAddress", p.DstToken)
	query.Set("amount", p.Amount)
	query.Set("walletAddress", p.WalletAddress)

	var quote CrossChainQuote
	if err := c.getTimed(ctx, "cross_chain_quote", "/fusion-plus/quoter/v1.0/quote/receive", query, &quote); err != nil {
		return nil, fmt.Errorf("%w: cross-chain quote: %v", ErrQuoteUnavailable, err)
	}
	if quote.SrcTokenAmount == "" {
		quote.SrcTokenAmount = p.Amount
	}
	return &quote, nil
}

// GetTokenMetadata resolves token metadata from the chain's token list.
func (c *HTTPClient) GetTokenMetadata(ctx context.Context, chainID int64, address string) (*domain.TokenMetadata, error) {
	var resp tokensResponse
	path := fmt.Sprintf("/swap/v6.1/%d/tokens", chainID)
	if err := c.getTimed(ctx, "token_list", path, nil, &resp); err != nil {
		return nil, fmt.Errorf("token list for chain %d: %w", chainID, err)
	}

	for addr, info := range resp.Tokens {
		if strings.EqualFold(addr, address) {
			return &domain.TokenMetadata{
				ChainID:  chainID,
				Address:  info.Address,
				Symbol:   info.Symbol,
				Name:     info.Name,
				Decimals: info.Decimals,
				LogoURI:  info.LogoURI,
			}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s on chain %d", ErrTokenNotListed, address, chainID)
}

// GetGasPrice reports gas price presets for a chain.
func (c *HTTPClient) GetGasPrice(ctx context.Context, chainID int64) (*GasPrice, error) {
	var gp GasPrice
	path := fmt.Sprintf("/gas-price/v1.6/%d", chainID)
	if err := c.getTimed(ctx, "gas_price", path, nil, &gp); err != nil {
		return nil, fmt.Errorf("gas price for chain %d: %w", chainID, err)
	}
	return &gp, nil
}

// GetSpotPrice returns the USD spot price for one token. Missing prices
// come back as "0", matching the upstream behavior.
func (c *HTTPClient) GetSpotPrice(ctx context.Context, chainID int64, address string) (string, error) {
	query := url.Values{}
	query.Set("currency", "USD")

	prices := make(map[string]string)
	path := fmt.Sprintf("/price/v1.1/%d/%s", chainID, address)
	if err := c.getTimed(ctx, "spot_price", path, query, &prices); err != nil {
		return "", fmt.Errorf("spot price for %s on chain %d: %w", address, chainID, err)
	}
	for addr, price := range prices {
		if strings.EqualFold(addr, address) {
			return price, nil
		}
	}
	return "0", nil
}
