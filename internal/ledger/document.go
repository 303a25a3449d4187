// Package ledger implements the in-memory wallet document and its mutation
// primitives. All balance arithmetic is arbitrary-precision; every change to
// a position goes through Debit or Credit, never through direct field writes.
package ledger

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"virtual-wallet-lab/internal/chains"
	"virtual-wallet-lab/internal/domain"
)

// Document wraps one wallet's per-chain positions. It is not safe for
// concurrent mutation; the settlement engine serializes access through the
// wallet store lock.
type Document struct {
	chains map[string]*domain.ChainWallet
}

// New wraps an existing chains map. A nil map is replaced with an empty one.
func New(chainMap map[string]*domain.ChainWallet) *Document {
	if chainMap == nil {
		chainMap = make(map[string]*domain.ChainWallet)
	}
	return &Document{chains: chainMap}
}

// Seed builds the chains document a fresh wallet starts with.
func Seed(setup []domain.SeedChain) (map[string]*domain.ChainWallet, error) {
	doc := New(nil)
	for _, sc := range setup {
		for _, tok := range sc.Tokens {
			amount, ok := new(big.Int).SetString(tok.InitialBalance, 10)
			if !ok {
				return nil, fmt.Errorf("seed chain %d token %s: invalid balance %q",
					sc.ChainID, tok.Symbol, tok.InitialBalance)
			}
			meta := &domain.TokenMetadata{
				ChainID:  sc.ChainID,
				Address:  tok.Address,
				Symbol:   tok.Symbol,
				Name:     tok.Name,
				Decimals: tok.Decimals,
				LogoURI:  tok.LogoURI,
			}
			if err := doc.Credit(sc.ChainID, tok.Address, amount, meta); err != nil {
				return nil, fmt.Errorf("seed chain %d token %s: %w", sc.ChainID, tok.Symbol, err)
			}
		}
	}
	doc.Recompute()
	return doc.Chains(), nil
}

// Chains exposes the underlying map for persistence and snapshots.
func (d *Document) Chains() map[string]*domain.ChainWallet {
	return d.chains
}

// chainKey is the document key for a chain id.
func chainKey(chainID int64) string {
	return strconv.FormatInt(chainID, 10)
}

// FindPosition locates a position by chain id and token address.
// Address comparison is case-insensitive. Returns nil if absent.
func (d *Document) FindPosition(chainID int64, tokenAddress string) *domain.TokenPosition {
	cw, ok := d.chains[chainKey(chainID)]
	if !ok {
		return nil
	}
	for _, pos := range cw.Tokens {
		if strings.EqualFold(pos.TokenAddress, tokenAddress) {
			return pos
		}
	}
	return nil
}

// Debit subtracts amount from an existing position. It fails with
// *InsufficientBalanceError if amount exceeds the current balance; the
// balance is never clamped. The formatted balance is rederived on success.
func (d *Document) Debit(chainID int64, tokenAddress string, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	pos := d.FindPosition(chainID, tokenAddress)
	if pos == nil {
		return fmt.Errorf("%w: %s on chain %d", ErrPositionNotFound, tokenAddress, chainID)
	}
	if amount.Cmp(&pos.Balance.Int) > 0 {
		return &InsufficientBalanceError{
			ChainID:      chainID,
			TokenAddress: pos.TokenAddress,
			Required:     new(big.Int).Set(amount),
			Available:    new(big.Int).Set(&pos.Balance.Int),
			Decimals:     pos.Decimals,
		}
	}
	pos.Balance.Sub(&pos.Balance.Int, amount)
	pos.FormattedBalance = FormatUnits(&pos.Balance.Int, pos.Decimals)
	return nil
}

// Credit adds amount to a position, creating the position — and the chain
// entry, via the registry — when absent. Creation and crediting happen as a
// single mutation: a new position is born holding the full amount.
func (d *Document) Credit(chainID int64, tokenAddress string, amount *big.Int, meta *domain.TokenMetadata) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}

	if pos := d.FindPosition(chainID, tokenAddress); pos != nil {
		pos.Balance.Add(&pos.Balance.Int, amount)
		pos.FormattedBalance = FormatUnits(&pos.Balance.Int, pos.Decimals)
		return nil
	}

	if meta == nil {
		return fmt.Errorf("%w: %s on chain %d", ErrMetadataRequired, tokenAddress, chainID)
	}

	key := chainKey(chainID)
	cw, ok := d.chains[key]
	if !ok {
		info, err := chains.Lookup(chainID)
		if err != nil {
			return err
		}
		cw = &domain.ChainWallet{
			ChainID:       info.ChainID,
			ChainName:     info.Name,
			ChainSymbol:   info.Symbol,
			Tokens:        []*domain.TokenPosition{},
			TotalUSDValue: "0",
		}
		d.chains[key] = cw
	}

	balance := new(domain.BigInt)
	balance.Set(amount)
	cw.Tokens = append(cw.Tokens, &domain.TokenPosition{
		TokenAddress:     tokenAddress,
		TokenSymbol:      meta.Symbol,
		TokenName:        meta.Name,
		Decimals:         meta.Decimals,
		Balance:          balance,
		FormattedBalance: FormatUnits(amount, meta.Decimals),
		LogoURI:          meta.LogoURI,
		PriceUSD:         "0",
		USDValue:         "0",
	})
	return nil
}

// SetPrice updates a position's USD price and rederives its USD value from
// the formatted balance. Pricing is display-only; raw balances are untouched.
func (d *Document) SetPrice(chainID int64, tokenAddress, priceUSD string) error {
	pos := d.FindPosition(chainID, tokenAddress)
	if pos == nil {
		return fmt.Errorf("%w: %s on chain %d", ErrPositionNotFound, tokenAddress, chainID)
	}
	price, err := strconv.ParseFloat(priceUSD, 64)
	if err != nil {
		return fmt.Errorf("invalid price %q: %w", priceUSD, err)
	}
	balance, err := strconv.ParseFloat(pos.FormattedBalance, 64)
	if err != nil {
		return fmt.Errorf("invalid formatted balance %q: %w", pos.FormattedBalance, err)
	}
	pos.PriceUSD = priceUSD
	pos.USDValue = strconv.FormatFloat(balance*price, 'f', 2, 64)
	return nil
}

// Recompute rederives every chain's total USD value from its positions.
// Totals are never stored independently of their inputs; callers invoke this
// after any mutation that touches priced fields.
func (d *Document) Recompute() {
	for _, cw := range d.chains {
		var total float64
		for _, pos := range cw.Tokens {
			if pos.USDValue == "" {
				continue
			}
			v, err := strconv.ParseFloat(pos.USDValue, 64)
			if err != nil {
				continue
			}
			total += v
		}
		cw.TotalUSDValue = strconv.FormatFloat(total, 'f', 2, 64)
	}
}

// TotalUSDValue sums the per-chain totals into the wallet aggregate.
func (d *Document) TotalUSDValue() string {
	var total float64
	for _, cw := range d.chains {
		v, err := strconv.ParseFloat(cw.TotalUSDValue, 64)
		if err != nil {
			continue
		}
		total += v
	}
	return strconv.FormatFloat(total, 'f', 2, 64)
}

// Clone returns a deep copy of the document. Mutating the clone never
// affects the original; previews and before/after snapshots rely on this.
func (d *Document) Clone() *Document {
	return New(CloneChains(d.chains))
}

// CloneChains deep-copies a chains map.
func CloneChains(src map[string]*domain.ChainWallet) map[string]*domain.ChainWallet {
	out := make(map[string]*domain.ChainWallet, len(src))
	for key, cw := range src {
		cp := *cw
		cp.Tokens = make([]*domain.TokenPosition, len(cw.Tokens))
		for i, pos := range cw.Tokens {
			p := *pos
			p.Balance = pos.Balance.Clone()
			cp.Tokens[i] = &p
		}
		out[key] = &cp
	}
	return out
}
