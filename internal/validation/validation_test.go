package validation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateName(t *testing.T) {
	require.NoError(t, ValidateName("vitalik.eth"))
	require.ErrorIs(t, ValidateName(""), ErrEmptyName)
	require.ErrorIs(t, ValidateName("   \t"), ErrEmptyName)
}

func TestValidateAddress(t *testing.T) {
	tests := []struct {
		name    string
		address string
		wantErr bool
	}{
		{"checksummed", "0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045", false},
		{"lowercase", "0xd8da6bf26964af9d7eed9e03e53415d37aa96045", false},
		{"uppercase", "0xD8DA6BF26964AF9D7EED9E03E53415D37AA96045", false},
		{"bad checksum", "0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96046", true},
		{"mixed case wrong", "0xD8dA6BF26964aF9D7eEd9e03E53415D37aA96045", true},
		{"missing prefix", "d8da6bf26964af9d7eed9e03e53415d37aa96045", true},
		{"too short", "0xd8da6bf2", true},
		{"not hex", "0xzzda6bf26964af9d7eed9e03e53415d37aa96045", true},
		{"empty", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAddress(tt.address)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidAddress)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestValidateURL(t *testing.T) {
	require.NoError(t, ValidateURL("https://mainnet.base.org"))
	require.NoError(t, ValidateURL("http://localhost:8545"))
	require.ErrorIs(t, ValidateURL(""), ErrInvalidURL)
	require.ErrorIs(t, ValidateURL("ws://localhost:8546"), ErrInvalidURL)
	require.ErrorIs(t, ValidateURL("https://"), ErrInvalidURL)
}
