// Package chains holds the static registry of supported chain ids.
package chains

import (
	"errors"
	"fmt"
)

// ErrUnsupportedChain is returned when a chain id is not in the registry.
var ErrUnsupportedChain = errors.New("unsupported chain")

// Info describes one supported chain.
type Info struct {
	ChainID int64
	Name    string
	Symbol  string
}

// Supported chain ids.
const (
	Ethereum  int64 = 1
	Optimism  int64 = 10
	BNBChain  int64 = 56
	Gnosis    int64 = 100
	Polygon   int64 = 137
	Base      int64 = 8453
	Arbitrum  int64 = 42161
	Avalanche int64 = 43114
)

var registry = map[int64]Info{
	Ethereum:  {ChainID: Ethereum, Name: "Ethereum", Symbol: "ETH"},
	Optimism:  {ChainID: Optimism, Name: "Optimism", Symbol: "ETH"},
	BNBChain:  {ChainID: BNBChain, Name: "BNB Chain", Symbol: "BNB"},
	Gnosis:    {ChainID: Gnosis, Name: "Gnosis", Symbol: "xDAI"},
	Polygon:   {ChainID: Polygon, Name: "Polygon", Symbol: "POL"},
	Base:      {ChainID: Base, Name: "Base", Symbol: "ETH"},
	Arbitrum:  {ChainID: Arbitrum, Name: "Arbitrum", Symbol: "ETH"},
	Avalanche: {ChainID: Avalanche, Name: "Avalanche", Symbol: "AVAX"},
}

// Lookup returns chain info for the given id. The error wraps
// ErrUnsupportedChain so callers can match with errors.Is.
func Lookup(chainID int64) (Info, error) {
	info, ok := registry[chainID]
	if !ok {
		return Info{}, fmt.Errorf("%w: chain id %d", ErrUnsupportedChain, chainID)
	}
	return info, nil
}

// IsSupported reports whether the chain id is registered.
func IsSupported(chainID int64) bool {
	_, ok := registry[chainID]
	return ok
}

// All returns every registered chain, in no particular order.
func All() []Info {
	out := make([]Info, 0, len(registry))
	for _, info := range registry {
		out = append(out, info)
	}
	return out
}
