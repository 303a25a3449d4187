package domain

// SeedToken describes one token position granted to every new wallet.
type SeedToken struct {
	Address        string
	Symbol         string
	Name           string
	Decimals       uint8
	InitialBalance string // raw smallest-unit amount
	LogoURI        string
}

// SeedChain describes the starting positions for one chain.
type SeedChain struct {
	ChainID int64
	Tokens  []SeedToken
}

// NativeTokenAddress is the pseudo-address conventionally used for a chain's
// native asset.
const NativeTokenAddress = "0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE"

// DefaultWalletSetup is the seed every wallet starts with: 10 ETH and
// 10 USDC on Ethereum, 10 USDC on Polygon.
var DefaultWalletSetup = []SeedChain{
	{
		ChainID: 1,
		Tokens: []SeedToken{
			{
				Address:        NativeTokenAddress,
				Symbol:         "ETH",
				Name:           "Ethereum",
				Decimals:       18,
				InitialBalance: "10000000000000000000",
				LogoURI:        "https://tokens.1inch.io/0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee.png",
			},
			{
				Address:        "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48",
				Symbol:         "USDC",
				Name:           "USD Coin",
				Decimals:       6,
				InitialBalance: "10000000",
				LogoURI:        "https://tokens.1inch.io/0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48.png",
			},
		},
	},
	{
		ChainID: 137,
		Tokens: []SeedToken{
			{
				Address:        "0x2791bca1f2de4661ed88a30c99a7a9449aa84174",
				Symbol:         "USDC",
				Name:           "USD Coin",
				Decimals:       6,
				InitialBalance: "10000000",
				LogoURI:        "https://tokens.1inch.io/0x2791bca1f2de4661ed88a30c99a7a9449aa84174.png",
			},
		},
	},
}
