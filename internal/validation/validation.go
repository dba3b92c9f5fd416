package validation

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrEmptyName      = errors.New("name cannot be empty")
	ErrInvalidAddress = errors.New("invalid address")
	ErrInvalidURL     = errors.New("invalid URL")
)

var evmAddressRegex = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

// ValidateName checks a name submitted for resolution. Only emptiness is rejected.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	return nil
}

// ValidateAddress validates an EVM address. Mixed-case input must carry a valid
// EIP-55 checksum; all-lowercase and all-uppercase hex are accepted as is.
func ValidateAddress(address string) error {
	if address == "" {
		return fmt.Errorf("%w: address cannot be empty", ErrInvalidAddress)
	}
	if !evmAddressRegex.MatchString(address) {
		return fmt.Errorf("%w: %q is not 0x followed by 40 hex characters", ErrInvalidAddress, address)
	}

	digits := address[2:]
	if digits == strings.ToLower(digits) || digits == strings.ToUpper(digits) {
		return nil
	}
	if common.HexToAddress(address).Hex() != address {
		return fmt.Errorf("%w: %q has a bad checksum", ErrInvalidAddress, address)
	}
	return nil
}

// ValidateURL validates an http(s) endpoint.
func ValidateURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("%w: URL cannot be empty", ErrInvalidURL)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return nil
}
