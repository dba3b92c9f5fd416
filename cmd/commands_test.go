package main

import (
	"bytes"
	"context"
	"testing"

	"yapp-query/internal/models"
	"yapp-query/internal/service"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("INDEXER_URL", "https://indexer.example/api/v1")

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	require.NoError(t, root.Execute())
	return out.String()
}

func TestIndexerURLCommand(t *testing.T) {
	out := run(t, "indexer-url", "--sender", "alice.eth", "--chains", "1,137", "--tokens", "ETH,USDC")
	require.Equal(t, "https://indexer.example/api/v1/payments?sender=alice.eth&sourceChainIds=1%2C137&tokenOutSymbols=ETH%2CUSDC\n", out)
}

func TestIndexerURLCommand_AllChains(t *testing.T) {
	out := run(t, "indexer-url", "--receiver", "bob.eth", "--chains", "1,all")
	require.Equal(t, "https://indexer.example/api/v1/payments?receiver=bob.eth\n", out)
}

type countingResolver struct {
	calls int
}

func (r *countingResolver) Resolve(context.Context, string) (common.Address, error) {
	r.calls++
	return common.HexToAddress("0x1111111111111111111111111111111111111111"), nil
}

func TestBalanceTarget(t *testing.T) {
	resolver := &countingResolver{}
	svc := service.New(service.Dependencies{Resolver: resolver})
	ctx := context.Background()

	got, err := balanceTarget(ctx, svc, "0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045")
	require.NoError(t, err)
	require.Equal(t, "0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045", got)

	// A mistyped checksum is an invalid address, not a name.
	_, err = balanceTarget(ctx, svc, "0xd8Da6BF26964aF9D7eEd9e03E53415D37aA96045")
	require.ErrorIs(t, err, models.ErrInvalidAddress)
	_, err = balanceTarget(ctx, svc, "0X1234")
	require.ErrorIs(t, err, models.ErrInvalidAddress)
	require.Zero(t, resolver.calls)

	got, err = balanceTarget(ctx, svc, "alice.eth")
	require.NoError(t, err)
	require.Equal(t, "0x1111111111111111111111111111111111111111", got)
	require.Equal(t, 1, resolver.calls)
}
