// Package counter reads (and describes writes to) the counter contract that is
// deployed on a subset of the registry chains.
package counter

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"yapp-query/internal/interfaces"
	"yapp-query/internal/models"
	"yapp-query/internal/registry"

	"github.com/ethereum/go-ethereum"
	"github.com/rs/zerolog"
)

const (
	DefaultReadMethod = "number"
	incrementMethod   = "increment"
)

var (
	ErrUnsupported = errors.New("counter not deployed on chain")
	ErrNetwork     = errors.New("counter read failed")
)

// ReadError is returned by Read. Kind is ErrUnsupported or ErrNetwork.
type ReadError struct {
	ChainID uint64
	Kind    error
	Err     error
}

func (e *ReadError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("chain %d: %v", e.ChainID, e.Kind)
	}
	return fmt.Sprintf("chain %d: %v: %v", e.ChainID, e.Kind, e.Err)
}

func (e *ReadError) Is(target error) bool {
	return target == e.Kind
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

type Reader struct {
	registry   *registry.Registry
	clients    interfaces.ClientProvider
	readMethod string
	logger     *zerolog.Logger
	now        func() time.Time
}

// NewReader fails when readMethod is not a view method of the counter ABI
// returning a single uint256.
func NewReader(reg *registry.Registry, clients interfaces.ClientProvider, readMethod string, logger *zerolog.Logger) (*Reader, error) {
	if readMethod == "" {
		readMethod = DefaultReadMethod
	}
	method, ok := parsedABI.Methods[readMethod]
	if !ok {
		return nil, fmt.Errorf("counter ABI has no method %q", readMethod)
	}
	if len(method.Inputs) != 0 || len(method.Outputs) != 1 || method.Outputs[0].Type.String() != "uint256" {
		return nil, fmt.Errorf("method %q is not a uint256 getter", readMethod)
	}
	return &Reader{
		registry:   reg,
		clients:    clients,
		readMethod: readMethod,
		logger:     logger,
		now:        time.Now,
	}, nil
}

// Read performs one eth_call of the read method. Chains without a counter fail
// with ErrUnsupported and no network traffic.
func (r *Reader) Read(ctx context.Context, chainID uint64) (models.CounterValue, error) {
	chain, ok := r.registry.Lookup(chainID)
	if !ok {
		return models.CounterValue{}, &ReadError{ChainID: chainID, Kind: ErrUnsupported, Err: registry.ErrUnknownChain}
	}
	contract, ok := chain.Counter()
	if !ok {
		return models.CounterValue{}, &ReadError{ChainID: chainID, Kind: ErrUnsupported}
	}

	client, err := r.clients.Client(chainID)
	if err != nil {
		return models.CounterValue{}, &ReadError{ChainID: chainID, Kind: ErrNetwork, Err: err}
	}

	data, err := parsedABI.Pack(r.readMethod)
	if err != nil {
		return models.CounterValue{}, &ReadError{ChainID: chainID, Kind: ErrNetwork, Err: err}
	}

	out, err := client.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		r.logger.Error().Err(err).Uint64("chainId", chainID).Str("contract", contract.Hex()).Msg("Counter read failed")
		return models.CounterValue{}, &ReadError{ChainID: chainID, Kind: ErrNetwork, Err: err}
	}

	value, err := decodeUint(r.readMethod, out)
	if err != nil {
		return models.CounterValue{}, &ReadError{ChainID: chainID, Kind: ErrNetwork, Err: err}
	}

	r.logger.Debug().Uint64("chainId", chainID).Str("value", value.String()).Msg("Counter read")
	return models.CounterValue{ChainID: chainID, Value: value, FetchedAt: r.now()}, nil
}

// IncrementCall describes the increment() transaction for an external wallet.
func (r *Reader) IncrementCall(chainID uint64) (interfaces.WriteRequest, error) {
	chain, ok := r.registry.Lookup(chainID)
	if !ok {
		return interfaces.WriteRequest{}, &ReadError{ChainID: chainID, Kind: ErrUnsupported, Err: registry.ErrUnknownChain}
	}
	contract, ok := chain.Counter()
	if !ok {
		return interfaces.WriteRequest{}, &ReadError{ChainID: chainID, Kind: ErrUnsupported}
	}

	var selector [4]byte
	copy(selector[:], parsedABI.Methods[incrementMethod].ID)
	return interfaces.WriteRequest{ChainID: chainID, Contract: contract, Selector: selector}, nil
}

// Supported lists the chains that carry a counter, in registry order.
func (r *Reader) Supported() []uint64 {
	var ids []uint64
	for _, c := range r.registry.Chains() {
		if _, ok := c.Counter(); ok {
			ids = append(ids, c.ChainID)
		}
	}
	return ids
}

func decodeUint(method string, out []byte) (*big.Int, error) {
	if len(out) == 0 {
		return nil, errors.New("empty call result")
	}
	values, err := parsedABI.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", method, err)
	}
	n, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("decode %s: unexpected %T", method, values[0])
	}
	return n, nil
}
