package balances

import (
	"errors"
	"fmt"
)

var (
	ErrTimeout          = errors.New("timeout")
	ErrNetwork          = errors.New("network")
	ErrUnsupportedAsset = errors.New("unsupported asset")
)

// ChainFailure is one chain that produced no balance entry.
type ChainFailure struct {
	ChainID uint64
	Kind    error
	Err     error
}

func (f *ChainFailure) Error() string {
	return fmt.Sprintf("chain %d: %v: %v", f.ChainID, f.Kind, f.Err)
}

// Is matches the failure kind so callers can use errors.Is(err, ErrTimeout).
func (f *ChainFailure) Is(target error) bool {
	return target == f.Kind
}

func (f *ChainFailure) Unwrap() error {
	return f.Err
}

// KindName is the label used in metrics and serialized reports.
func (f *ChainFailure) KindName() string {
	switch f.Kind {
	case ErrTimeout:
		return "timeout"
	case ErrUnsupportedAsset:
		return "unsupported_asset"
	default:
		return "network"
	}
}
