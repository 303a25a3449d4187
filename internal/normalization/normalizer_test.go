package normalization

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"virtual-wallet-lab/internal/domain"
	"virtual-wallet-lab/internal/oneinch"
	"virtual-wallet-lab/internal/oneinch/stub"
)

const (
	ethAddress  = "0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE"
	usdcAddress = "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"
	polyUSDC    = "0x2791bca1f2de4661ed88a30c99a7a9449aa84174"
)

func testNormalizer(client oneinch.Client) *Normalizer {
	return New(client, WithLogger(log.New(io.Discard, "", 0)))
}

func TestNormalize_Classic(t *testing.T) {
	client := stub.NewClient()
	client.AddClassicQuote(1, ethAddress, usdcAddress, &oneinch.ClassicQuote{
		FromToken:    oneinch.TokenInfo{Address: ethAddress, Symbol: "ETH", Name: "Ether", Decimals: 18},
		ToToken:      oneinch.TokenInfo{Address: usdcAddress, Symbol: "USDC", Name: "USD Coin", Decimals: 6},
		ToAmount:     "2500000000",
		EstimatedGas: 150000,
	})
	client.GasPrices[1] = &oneinch.GasPrice{
		Medium: oneinch.GasPriceTier{MaxFeePerGas: "20000000000"},
	}

	swap, err := testNormalizer(client).Normalize(context.Background(), domain.SwapIntent{
		FromChainID:      1,
		FromTokenAddress: ethAddress,
		ToChainID:        1,
		ToTokenAddress:   usdcAddress,
		Amount:           "1000000000000000000",
	}, "0xwallet")
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	if swap.Type != domain.SwapTypeClassic {
		t.Errorf("type = %q, want %q", swap.Type, domain.SwapTypeClassic)
	}
	if swap.FromToken.Symbol != "ETH" || swap.ToToken.Symbol != "USDC" {
		t.Errorf("token symbols = %q/%q, want ETH/USDC", swap.FromToken.Symbol, swap.ToToken.Symbol)
	}
	if swap.ToToken.Decimals != 6 {
		t.Errorf("to decimals = %d, want 6", swap.ToToken.Decimals)
	}
	if swap.FromAmount.String() != "1000000000000000000" {
		t.Errorf("fromAmount = %s", swap.FromAmount.String())
	}
	if swap.ToAmount.String() != "2500000000" {
		t.Errorf("toAmount = %s", swap.ToAmount.String())
	}
	// 150000 gas * 20 gwei
	if swap.NetworkFee.String() != "3000000000000000" {
		t.Errorf("networkFee = %s, want 3000000000000000", swap.NetworkFee.String())
	}
	if swap.Degraded {
		t.Error("classic quote should not be degraded")
	}
}

func TestNormalize_Classic_QuoteFailure(t *testing.T) {
	client := stub.NewClient()

	_, err := testNormalizer(client).Normalize(context.Background(), domain.SwapIntent{
		FromChainID:      1,
		FromTokenAddress: ethAddress,
		ToChainID:        1,
		ToTokenAddress:   usdcAddress,
		Amount:           "1000",
	}, "0xwallet")
	if !errors.Is(err, oneinch.ErrQuoteUnavailable) {
		t.Errorf("expected ErrQuoteUnavailable, got %v", err)
	}
}

func crossChainFixture() *oneinch.CrossChainQuote {
	q := &oneinch.CrossChainQuote{
		SrcChainID:         1,
		DstChainID:         137,
		DstTokenAmount:     "9950000",
		PriceImpactPercent: "0.12",
	}
	q.Prices.Recommended.FeeAmount = "42000"
	return q
}

func TestNormalize_CrossChain(t *testing.T) {
	client := stub.NewClient()
	client.AddCrossChainQuote(1, 137, usdcAddress, polyUSDC, crossChainFixture())
	client.AddMetadata(&domain.TokenMetadata{ChainID: 1, Address: usdcAddress, Symbol: "USDC", Name: "USD Coin", Decimals: 6})
	client.AddMetadata(&domain.TokenMetadata{ChainID: 137, Address: polyUSDC, Symbol: "USDC", Name: "USD Coin (PoS)", Decimals: 6})

	swap, err := testNormalizer(client).Normalize(context.Background(), domain.SwapIntent{
		FromChainID:      1,
		FromTokenAddress: usdcAddress,
		ToChainID:        137,
		ToTokenAddress:   polyUSDC,
		Amount:           "10000000",
	}, "0xwallet")
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	if swap.Type != domain.SwapTypeCrossChain {
		t.Errorf("type = %q, want %q", swap.Type, domain.SwapTypeCrossChain)
	}
	if swap.FromToken.Symbol != "USDC" || swap.ToToken.Name != "USD Coin (PoS)" {
		t.Errorf("resolved tokens = %+v / %+v", swap.FromToken, swap.ToToken)
	}
	if swap.FromAmount.String() != "10000000" || swap.ToAmount.String() != "9950000" {
		t.Errorf("amounts = %s -> %s", swap.FromAmount.String(), swap.ToAmount.String())
	}
	if swap.PriceImpactPercent != "0.12" {
		t.Errorf("priceImpact = %q", swap.PriceImpactPercent)
	}
	if swap.NetworkFee.String() != "42000" {
		t.Errorf("networkFee = %s, want 42000", swap.NetworkFee.String())
	}
	if swap.Degraded {
		t.Errorf("unexpected degraded flag: %v", swap.DegradedReasons)
	}
}

func TestNormalize_CrossChain_MetadataCached(t *testing.T) {
	client := stub.NewClient()
	client.AddCrossChainQuote(1, 137, usdcAddress, polyUSDC, crossChainFixture())
	client.AddMetadata(&domain.TokenMetadata{ChainID: 1, Address: usdcAddress, Symbol: "USDC", Decimals: 6})
	client.AddMetadata(&domain.TokenMetadata{ChainID: 137, Address: polyUSDC, Symbol: "USDC", Decimals: 6})

	n := testNormalizer(client)
	intent := domain.SwapIntent{
		FromChainID:      1,
		FromTokenAddress: usdcAddress,
		ToChainID:        137,
		ToTokenAddress:   polyUSDC,
		Amount:           "10000000",
	}

	for i := 0; i < 3; i++ {
		if _, err := n.Normalize(context.Background(), intent, "0xwallet"); err != nil {
			t.Fatalf("Normalize #%d failed: %v", i, err)
		}
	}

	// Two lookups on the first pass, cache hits after.
	if client.MetadataCalls != 2 {
		t.Errorf("metadata calls = %d, want 2", client.MetadataCalls)
	}
}

func TestNormalize_CrossChain_DegradedMetadata(t *testing.T) {
	client := stub.NewClient()
	client.AddCrossChainQuote(1, 137, usdcAddress, polyUSDC, crossChainFixture())
	client.MetadataErr = errors.New("token list unavailable")

	swap, err := testNormalizer(client).Normalize(context.Background(), domain.SwapIntent{
		FromChainID:      1,
		FromTokenAddress: usdcAddress,
		ToChainID:        137,
		ToTokenAddress:   polyUSDC,
		Amount:           "10000000",
	}, "0xwallet")
	if err != nil {
		t.Fatalf("degraded metadata must not fail the quote: %v", err)
	}

	if !swap.Degraded {
		t.Fatal("expected degraded flag")
	}
	if len(swap.DegradedReasons) != 2 {
		t.Errorf("degraded reasons = %v, want one per side", swap.DegradedReasons)
	}
	if swap.FromToken.Decimals != DefaultDecimals || swap.ToToken.Decimals != DefaultDecimals {
		t.Errorf("fallback decimals = %d/%d, want %d", swap.FromToken.Decimals, swap.ToToken.Decimals, DefaultDecimals)
	}
	if swap.FromToken.Symbol != "" {
		t.Errorf("fallback symbol = %q, want empty", swap.FromToken.Symbol)
	}
	// Amounts and the fee are still trustworthy.
	if swap.ToAmount.String() != "9950000" || swap.NetworkFee.String() != "42000" {
		t.Errorf("amounts degraded unexpectedly: %s / %s", swap.ToAmount.String(), swap.NetworkFee.String())
	}
}

func TestNormalize_CrossChain_QuoteFailure(t *testing.T) {
	client := stub.NewClient()
	client.Err = oneinch.ErrQuoteUnavailable

	_, err := testNormalizer(client).Normalize(context.Background(), domain.SwapIntent{
		FromChainID:      1,
		FromTokenAddress: usdcAddress,
		ToChainID:        137,
		ToTokenAddress:   polyUSDC,
		Amount:           "10000000",
	}, "0xwallet")
	if !errors.Is(err, oneinch.ErrQuoteUnavailable) {
		t.Errorf("expected ErrQuoteUnavailable, got %v", err)
	}
}

func TestResolveMetadata_Caches(t *testing.T) {
	client := stub.NewClient()
	client.AddMetadata(&domain.TokenMetadata{ChainID: 1, Address: usdcAddress, Symbol: "USDC", Decimals: 6})

	n := testNormalizer(client)
	for i := 0; i < 2; i++ {
		meta, err := n.ResolveMetadata(context.Background(), 1, usdcAddress)
		if err != nil {
			t.Fatalf("ResolveMetadata failed: %v", err)
		}
		if meta.Symbol != "USDC" || meta.Decimals != 6 {
			t.Errorf("meta = %+v", meta)
		}
	}
	if client.MetadataCalls != 1 {
		t.Errorf("metadata calls = %d, want 1", client.MetadataCalls)
	}

	// Lookup is case-insensitive via the cache key.
	if _, err := n.ResolveMetadata(context.Background(), 1, "0xA0B86991C6218B36C1D19D4A2E9EB0CE3606EB48"); err != nil {
		t.Fatalf("uppercase lookup failed: %v", err)
	}
	if client.MetadataCalls != 1 {
		t.Errorf("metadata calls after uppercase lookup = %d, want 1", client.MetadataCalls)
	}
}
