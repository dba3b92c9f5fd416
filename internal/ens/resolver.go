// Package ens resolves human-readable names to addresses through the ENS
// registry on the resolution chain.
package ens

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"yapp-query/internal/interfaces"
	"yapp-query/internal/validation"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
)

// RegistryAddress is the ENS registry with fallback, identical on mainnet and testnets.
var RegistryAddress = common.HexToAddress("0x00000000000C2E074eC69A0dFb2997BA6C7d2e1e")

var (
	ErrNotFound = errors.New("name not found")
	ErrUpstream = errors.New("resolution upstream failure")
)

type ResolutionError struct {
	Name string
	Kind error
	Err  error
}

func (e *ResolutionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("resolve %q: %v", e.Name, e.Kind)
	}
	return fmt.Sprintf("resolve %q: %v: %v", e.Name, e.Kind, e.Err)
}

func (e *ResolutionError) Is(target error) bool {
	return target == e.Kind
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

const ensABI = `[
	{"inputs":[{"name":"node","type":"bytes32"}],"name":"resolver","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"node","type":"bytes32"}],"name":"addr","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"}
]`

var parsedABI = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(ensABI))
	if err != nil {
		panic(fmt.Sprintf("parse ENS ABI: %v", err))
	}
	return parsed
}()

type Resolver struct {
	clients  interfaces.ClientProvider
	chainID  uint64
	registry common.Address
	logger   *zerolog.Logger
}

func NewResolver(clients interfaces.ClientProvider, chainID uint64, logger *zerolog.Logger) *Resolver {
	return &Resolver{
		clients:  clients,
		chainID:  chainID,
		registry: RegistryAddress,
		logger:   logger,
	}
}

// WithRegistry points the resolver at a different ENS registry deployment.
func (r *Resolver) WithRegistry(addr common.Address) *Resolver {
	r.registry = addr
	return r
}

func (r *Resolver) ChainID() uint64 {
	return r.chainID
}

// Resolve maps name to the address its resolver publishes. An empty name fails
// with validation.ErrEmptyName before any network call. No retries.
func (r *Resolver) Resolve(ctx context.Context, name string) (common.Address, error) {
	if err := validation.ValidateName(name); err != nil {
		return common.Address{}, err
	}
	name = Normalize(name)
	node := Namehash(name)

	client, err := r.clients.Client(r.chainID)
	if err != nil {
		return common.Address{}, &ResolutionError{Name: name, Kind: ErrUpstream, Err: err}
	}

	resolver, err := r.callAddress(ctx, client, r.registry, "resolver", node)
	if err != nil {
		return common.Address{}, &ResolutionError{Name: name, Kind: ErrUpstream, Err: err}
	}
	if resolver == (common.Address{}) {
		return common.Address{}, &ResolutionError{Name: name, Kind: ErrNotFound}
	}

	addr, err := r.callAddress(ctx, client, resolver, "addr", node)
	if err != nil {
		return common.Address{}, &ResolutionError{Name: name, Kind: ErrUpstream, Err: err}
	}
	if addr == (common.Address{}) {
		return common.Address{}, &ResolutionError{Name: name, Kind: ErrNotFound}
	}

	r.logger.Debug().Str("name", name).Str("address", addr.Hex()).Msg("Name resolved")
	return addr, nil
}

func (r *Resolver) callAddress(ctx context.Context, client interfaces.ChainClient, to common.Address, method string, node common.Hash) (common.Address, error) {
	data, err := parsedABI.Pack(method, [32]byte(node))
	if err != nil {
		return common.Address{}, err
	}
	out, err := client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		r.logger.Error().Err(err).Str("method", method).Str("contract", to.Hex()).Msg("ENS call failed")
		return common.Address{}, err
	}
	// A contract without the method (or an EOA) answers with empty output.
	if len(out) == 0 {
		return common.Address{}, nil
	}
	values, err := parsedABI.Unpack(method, out)
	if err != nil {
		return common.Address{}, fmt.Errorf("decode %s: %w", method, err)
	}
	addr, ok := values[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("decode %s: unexpected %T", method, values[0])
	}
	return addr, nil
}
