package domain

// Swap type constants.
const (
	SwapTypeClassic    = "classic"
	SwapTypeCrossChain = "cross-chain"
)

// SwapIntent is what the caller asks the settlement engine to price and apply.
// For a same-chain swap FromChainID == ToChainID.
type SwapIntent struct {
	FromChainID      int64  `json:"from_chain_id"`
	FromTokenAddress string `json:"from_token_address"`
	ToChainID        int64  `json:"to_chain_id"`
	ToTokenAddress   string `json:"to_token_address"`
	Amount           string `json:"amount"`             // raw smallest-unit amount
	SlippagePercent  int    `json:"slippage_percent"`
}

// SwapToken identifies one side of a normalized swap.
type SwapToken struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol,omitempty"`
	Name     string `json:"name,omitempty"`
	Decimals uint8  `json:"decimals"`
	LogoURI  string `json:"logo_uri,omitempty"`
}

// NormalizedSwap is the single shape both external quote variants collapse
// into. Type tags which variant produced it.
type NormalizedSwap struct {
	Type               string    `json:"type"`                           // SwapTypeClassic | SwapTypeCrossChain
	FromChainID        int64     `json:"from_chain_id"`
	FromToken          SwapToken `json:"from_token"`
	FromAmount         *BigInt   `json:"from_amount"`
	ToChainID          int64     `json:"to_chain_id"`
	ToToken            SwapToken `json:"to_token"`
	ToAmount           *BigInt   `json:"to_amount"`
	PriceImpactPercent string    `json:"price_impact_percent,omitempty"`
	EstimatedGas       *BigInt   `json:"estimated_gas,omitempty"`
	NetworkFee         *BigInt   `json:"network_fee,omitempty"`

	// Degraded is set when token metadata could not be resolved and default
	// decimals were substituted. DegradedReasons explains which lookups failed.
	Degraded        bool     `json:"degraded,omitempty"`
	DegradedReasons []string `json:"degraded_reasons,omitempty"`
}

// TransactionPreview summarizes the settlement for the caller.
type TransactionPreview struct {
	FromAmount      string `json:"from_amount"`      // decimal-formatted
	ToAmount        string `json:"to_amount"`        // decimal-formatted
	PriceImpact     string `json:"price_impact"`
	MinimumReceived string `json:"minimum_received"` // decimal-formatted
	NetworkFee      string `json:"network_fee"`      // raw smallest-unit
}

// SettlementResult is returned by the engine for both previews and executions.
// Before and After are independent snapshots; After reflects the reloaded
// persisted state when Execute was true.
type SettlementResult struct {
	Executed           bool                    `json:"executed"`
	Quote              *NormalizedSwap         `json:"quote"`
	Before             map[string]*ChainWallet `json:"before"`
	After              map[string]*ChainWallet `json:"after"`
	TransactionPreview *TransactionPreview     `json:"transaction_preview"`
	Degraded           bool                    `json:"degraded,omitempty"`
	DegradedReasons    []string                `json:"degraded_reasons,omitempty"`
}

// SwapRecord is the durable trace of one executed settlement.
// Corresponds to the swap_records table. Previews never produce one.
type SwapRecord struct {
	ID               string `json:"id"`
	WalletID         string `json:"wallet_id"`
	SwapType         string `json:"swap_type"`
	FromChainID      int64  `json:"from_chain_id"`
	FromTokenAddress string `json:"from_token_address"`
	FromTokenSymbol  string `json:"from_token_symbol"`
	FromAmount       string `json:"from_amount"`
	ToChainID        int64  `json:"to_chain_id"`
	ToTokenAddress   string `json:"to_token_address"`
	ToTokenSymbol    string `json:"to_token_symbol"`
	ToAmount         string `json:"to_amount"`
	SlippagePercent  int    `json:"slippage_percent"`
	NetworkFee       string `json:"network_fee"`
	QuotePayload     []byte `json:"-"`                  // raw normalized quote, stored as JSONB
	CreatedAt        int64  `json:"created_at"`         // unix ms
}
