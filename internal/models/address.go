package models

import (
	"strings"

	"yapp-query/internal/validation"

	"github.com/ethereum/go-ethereum/common"
)

var ErrInvalidAddress = validation.ErrInvalidAddress

// ParseAddress validates s and returns the canonical address. Invalid input is
// rejected, never coerced.
func ParseAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if err := validation.ValidateAddress(s); err != nil {
		return common.Address{}, err
	}
	return common.HexToAddress(s), nil
}
