package domain

import (
	"fmt"
	"math/big"
	"strings"
)

// BigInt is a JSON-friendly arbitrary-precision integer. It marshals as a
// decimal string so raw balances survive the JSONB round-trip without
// float truncation, and unmarshals from either a string or a bare number.
type BigInt struct {
	big.Int
}

// NewBigInt returns a BigInt holding the given int64 value.
func NewBigInt(v int64) *BigInt {
	b := new(BigInt)
	b.SetInt64(v)
	return b
}

// ParseBigInt parses a decimal string. Sign policy is the caller's.
func ParseBigInt(s string) (*BigInt, error) {
	b := new(BigInt)
	if _, ok := b.SetString(s, 10); !ok {
		return nil, fmt.Errorf("invalid integer amount %q", s)
	}
	return b, nil
}

// Clone returns an independent copy.
func (b *BigInt) Clone() *BigInt {
	c := new(BigInt)
	c.Set(&b.Int)
	return c
}

// MarshalJSON encodes the value as a quoted decimal string.
func (b *BigInt) MarshalJSON() ([]byte, error) {
	return []byte(`"` + b.String() + `"`), nil
}

// UnmarshalJSON accepts both "123" and 123.
func (b *BigInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" || s == "" {
		b.SetInt64(0)
		return nil
	}
	if _, ok := b.SetString(s, 10); !ok {
		return fmt.Errorf("invalid integer amount %q", s)
	}
	return nil
}
