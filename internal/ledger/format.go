package ledger

import (
	"math/big"
	"strings"
)

// FormatUnits renders a raw smallest-unit amount as a decimal string using
// exact integer division. Trailing fractional zeros are trimmed, so
// 10000000000000000000 at 18 decimals formats as "10" and
// 1234500000000000000 as "1.2345". Floating point is never involved.
func FormatUnits(amount *big.Int, decimals uint8) string {
	if amount == nil || amount.Sign() == 0 {
		return "0"
	}
	if decimals == 0 {
		return amount.String()
	}

	factor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	whole, frac := new(big.Int).QuoRem(amount, factor, new(big.Int))

	neg := ""
	if frac.Sign() < 0 {
		frac.Neg(frac)
		if whole.Sign() == 0 {
			neg = "-"
		}
	}

	if frac.Sign() == 0 {
		return neg + whole.String()
	}

	fracStr := frac.String()
	if pad := int(decimals) - len(fracStr); pad > 0 {
		fracStr = strings.Repeat("0", pad) + fracStr
	}
	fracStr = strings.TrimRight(fracStr, "0")
	if fracStr == "" {
		return neg + whole.String()
	}
	return neg + whole.String() + "." + fracStr
}
