package balances

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// FormatUnits renders raw / 10^decimals as a decimal string, truncated to at
// most maxFractionDigits fraction digits with trailing zeros removed. The
// computation is exact; no floating point is involved.
func FormatUnits(raw *big.Int, decimals int, maxFractionDigits int) string {
	if raw == nil || raw.Sign() == 0 {
		return "0"
	}
	if decimals < 0 {
		decimals = 0
	}
	if maxFractionDigits < 0 {
		maxFractionDigits = 0
	}
	return decimal.NewFromBigInt(raw, -int32(decimals)).Truncate(int32(maxFractionDigits)).String()
}
