package ledger

import (
	"math/big"
	"testing"
)

func bi(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad test amount: " + s)
	}
	return v
}

func TestFormatUnits(t *testing.T) {
	cases := []struct {
		name     string
		amount   string
		decimals uint8
		want     string
	}{
		{"ten eth", "10000000000000000000", 18, "10"},
		{"nine eth", "9000000000000000000", 18, "9"},
		{"fraction trimmed", "1234500000000000000", 18, "1.2345"},
		{"sub one", "500000000000000000", 18, "0.5"},
		{"dust", "1", 18, "0.000000000000000001"},
		{"zero decimals", "12345", 0, "12345"},
		{"zero", "0", 18, "0"},
		{"ten usdc", "10000000", 6, "10"},
		{"usdc cents", "10990000", 6, "10.99"},
		{"78 digit balance", "115792089237316195423570985008687907853269984665640564039457584007913129639935", 18,
			"115792089237316195423570985008687907853269984665640564039457.584007913129639935"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := FormatUnits(bi(tc.amount), tc.decimals)
			if got != tc.want {
				t.Errorf("FormatUnits(%s, %d) = %q, want %q", tc.amount, tc.decimals, got, tc.want)
			}
		})
	}
}

func TestFormatUnits_Nil(t *testing.T) {
	if got := FormatUnits(nil, 18); got != "0" {
		t.Errorf("expected \"0\" for nil amount, got %q", got)
	}
}
