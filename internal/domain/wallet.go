package domain

import (
	"time"
)

// Wallet is the aggregate root for one user's simulated holdings.
// Corresponds to the wallets table; chains is stored as a single JSONB document.
type Wallet struct {
	ID        string                  `json:"id"`
	UserID    string                  `json:"user_id"`
	Chains    map[string]*ChainWallet `json:"chains"`     // keyed by decimal chain id
	CreatedAt time.Time               `json:"created_at"`
	UpdatedAt time.Time               `json:"updated_at"`
}

// ChainWallet holds all token positions for one chain.
// Created lazily the first time a settlement touches the chain.
type ChainWallet struct {
	ChainID       int64            `json:"chain_id"`
	ChainName     string           `json:"chain_name"`
	ChainSymbol   string           `json:"chain_symbol"`
	Tokens        []*TokenPosition `json:"tokens"`
	TotalUSDValue string           `json:"total_usd_value"` // derived, see ledger.Recompute
}

// TokenPosition is one (chain, token) balance record.
// Balance is the raw amount in the token's smallest unit and is never negative.
// Decimals is fixed when the position is created and never changes afterwards.
type TokenPosition struct {
	TokenAddress     string  `json:"token_address"`
	TokenSymbol      string  `json:"token_symbol"`
	TokenName        string  `json:"token_name"`
	Decimals         uint8   `json:"decimals"`
	Balance          *BigInt `json:"balance"`
	FormattedBalance string  `json:"formatted_balance"`           // derived from Balance/Decimals
	LogoURI          string  `json:"logo_uri,omitempty"`
	PriceUSD         string  `json:"current_price_usd,omitempty"`
	USDValue         string  `json:"usd_value,omitempty"`
}

// TokenMetadata describes a token as reported by the quoting collaborator's
// token list for a chain.
type TokenMetadata struct {
	ChainID  int64
	Address  string
	Symbol   string
	Name     string
	Decimals uint8
	LogoURI  string
}
