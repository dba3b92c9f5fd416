package balances

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatUnits(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		decimals int
		digits   int
		want     string
	}{
		{"one and a half ether", "1500000000000000000", 18, 8, "1.5"},
		{"zero", "0", 18, 8, "0"},
		{"whole", "2000000000000000000", 18, 8, "2"},
		{"one wei truncated", "1", 18, 8, "0"},
		{"one wei full precision", "1", 18, 18, "0.000000000000000001"},
		{"truncates not rounds", "1999999999999999999", 18, 4, "1.9999"},
		{"usdc", "12345678", 6, 8, "12.345678"},
		{"no decimals", "42", 0, 8, "42"},
		{"huge", "123456789012345678901234567890", 18, 2, "123456789012.34"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, ok := new(big.Int).SetString(tt.raw, 10)
			require.True(t, ok)
			require.Equal(t, tt.want, FormatUnits(raw, tt.decimals, tt.digits))
		})
	}
}

func TestFormatUnits_Deterministic(t *testing.T) {
	raw, _ := new(big.Int).SetString("1500000000000000000", 10)
	first := FormatUnits(raw, 18, 8)
	for i := 0; i < 100; i++ {
		require.Equal(t, first, FormatUnits(raw, 18, 8))
	}
	require.Equal(t, "0", FormatUnits(nil, 18, 8))
}
