package oneinch

// TokenInfo is the token descriptor embedded in classic quotes and the
// per-chain token list.
type TokenInfo struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals uint8  `json:"decimals"`
	LogoURI  string `json:"logoURI"`
}

// ClassicQuote is the same-chain quote shape. Token metadata arrives inline.
type ClassicQuote struct {
	FromToken    TokenInfo `json:"fromToken"`
	ToToken      TokenInfo `json:"toToken"`
	FromAmount   string    `json:"fromAmount"`
	ToAmount     string    `json:"toAmount"`
	EstimatedGas int64     `json:"estimatedGas"`
}

// CrossChainQuote is the auction-priced cross-chain quote shape. It carries
// only raw addresses and amounts; token metadata needs a secondary lookup.
type CrossChainQuote struct {
	SrcChainID         int64  `json:"srcChainId"`
	DstChainID         int64  `json:"dstChainId"`
	SrcTokenAmount     string `json:"srcTokenAmount"`
	DstTokenAmount     string `json:"dstTokenAmount"`
	PriceImpactPercent string `json:"priceImpactPercent"`
	RecommendedGas     string `json:"recommendedGasLimit"`
	Prices             struct {
		Recommended struct {
			FeeToken  string `json:"feeToken"`
			FeeAmount string `json:"feeAmount"`
		} `json:"recommended"`
	} `json:"prices"`
	Volume struct {
		SrcUSD string `json:"srcUSD"`
		DstUSD string `json:"dstUSD"`
	} `json:"volume"`
}

// CrossChainQuoteParams are the inputs to the cross-chain quoter.
type CrossChainQuoteParams struct {
	SrcChainID    int64
	DstChainID    int64
	SrcToken      string
	DstToken      string
	Amount        string
	WalletAddress string
}

// GasPrice is the per-chain gas price report. Only the medium preset is used
// for fee estimation.
type GasPrice struct {
	BaseFee string       `json:"baseFee"`
	Low     GasPriceTier `json:"low"`
	Medium  GasPriceTier `json:"medium"`
	High    GasPriceTier `json:"high"`
}

// GasPriceTier is one urgency preset.
type GasPriceTier struct {
	MaxPriorityFeePerGas string `json:"maxPriorityFeePerGas"`
	MaxFeePerGas         string `json:"maxFeePerGas"`
}

// tokensResponse is the wire shape of the per-chain token list.
type tokensResponse struct {
	Tokens map[string]TokenInfo `json:"tokens"`
}
