package ens

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"yapp-query/internal/testutil"
	"yapp-query/internal/validation"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var (
	resolverAddr = common.HexToAddress("0x4976fb03c32e5b8cfe2b6ccb31c09ba78ebaba41")
	vitalik      = common.HexToAddress("0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045")
)

func TestNamehash(t *testing.T) {
	require.Equal(t, common.Hash{}, Namehash(""))
	require.Equal(t,
		common.HexToHash("0x93cdeb708b7545dc668eb9280176169d1c33cfd8ed6f04690a0bcc88a93fc4ae"),
		Namehash("eth"))
	require.Equal(t,
		common.HexToHash("0xde9b09fd7c5f901e23a3f19fecc54828e9c848539801e86591bd9801b019f84f"),
		Namehash("foo.eth"))
}

func TestNormalize(t *testing.T) {
	require.Equal(t, "vitalik.eth", Normalize("  Vitalik.ETH "))
}

// ensChain answers resolver() from the registry and addr() from resolverAddr.
func ensChain(t *testing.T, resolved common.Address, resolver common.Address) *testutil.FakeChain {
	chain := testutil.NewFakeChain()
	chain.OnCall = func(msg ethereum.CallMsg) ([]byte, error) {
		method, err := parsedABI.MethodById(msg.Data[:4])
		if err != nil {
			return nil, err
		}
		switch {
		case method.Name == "resolver" && *msg.To == RegistryAddress:
			return method.Outputs.Pack(resolver)
		case method.Name == "addr" && *msg.To == resolverAddr:
			return method.Outputs.Pack(resolved)
		}
		return nil, nil
	}
	return chain
}

func newResolver(chain *testutil.FakeChain) *Resolver {
	provider := testutil.NewFakeProvider()
	provider.Add(1, chain)
	logger := zerolog.New(nil)
	return NewResolver(provider, 1, &logger)
}

func TestResolve(t *testing.T) {
	chain := ensChain(t, vitalik, resolverAddr)

	addr, err := newResolver(chain).Resolve(context.Background(), "Vitalik.eth")
	require.NoError(t, err)
	require.Equal(t, vitalik, addr)

	calls := chain.Calls()
	require.Len(t, calls, 2)
	node := Namehash("vitalik.eth")
	require.True(t, bytes.HasSuffix(calls[0].Data, node.Bytes()))
	require.Equal(t, resolverAddr, *calls[1].To)
}

func TestResolve_EmptyNameMakesNoCall(t *testing.T) {
	chain := ensChain(t, vitalik, resolverAddr)

	for _, name := range []string{"", "   "} {
		_, err := newResolver(chain).Resolve(context.Background(), name)
		require.ErrorIs(t, err, validation.ErrEmptyName)
	}
	require.Empty(t, chain.Calls())
}

func TestResolve_NotFound(t *testing.T) {
	t.Run("no resolver", func(t *testing.T) {
		_, err := newResolver(ensChain(t, vitalik, common.Address{})).Resolve(context.Background(), "nobody.eth")
		require.ErrorIs(t, err, ErrNotFound)
	})
	t.Run("no address record", func(t *testing.T) {
		_, err := newResolver(ensChain(t, common.Address{}, resolverAddr)).Resolve(context.Background(), "empty.eth")
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestResolve_Upstream(t *testing.T) {
	chain := testutil.NewFakeChain()
	chain.Err = errors.New("503 service unavailable")

	_, err := newResolver(chain).Resolve(context.Background(), "vitalik.eth")
	require.ErrorIs(t, err, ErrUpstream)

	var resErr *ResolutionError
	require.ErrorAs(t, err, &resErr)
	require.Equal(t, "vitalik.eth", resErr.Name)
}

func TestResolve_UnknownResolutionChain(t *testing.T) {
	logger := zerolog.New(nil)
	r := NewResolver(testutil.NewFakeProvider(), 1, &logger)

	_, err := r.Resolve(context.Background(), "vitalik.eth")
	require.ErrorIs(t, err, ErrUpstream)
}

func TestResolve_CustomRegistry(t *testing.T) {
	custom := common.HexToAddress("0x00000000000000000000000000000000000e0500")
	chain := testutil.NewFakeChain()
	chain.OnCall = func(msg ethereum.CallMsg) ([]byte, error) {
		method, err := parsedABI.MethodById(msg.Data[:4])
		if err != nil {
			return nil, err
		}
		switch {
		case method.Name == "resolver" && *msg.To == custom:
			return method.Outputs.Pack(resolverAddr)
		case method.Name == "addr" && *msg.To == resolverAddr:
			return method.Outputs.Pack(vitalik)
		}
		return nil, nil
	}

	r := newResolver(chain).WithRegistry(custom)
	require.Equal(t, uint64(1), r.ChainID())

	addr, err := r.Resolve(context.Background(), "vitalik.eth")
	require.NoError(t, err)
	require.Equal(t, vitalik, addr)
	require.Equal(t, custom, *chain.Calls()[0].To)
}
