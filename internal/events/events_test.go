package events

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"testing"

	"yapp-query/internal/models"
	"yapp-query/internal/registry"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type countingEmitter struct {
	n   int
	err error
}

func (c *countingEmitter) EmitEvent(context.Context, models.QueryEvent) error {
	c.n++
	return c.err
}

func TestPrintEmitter(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	reg, err := registry.New([]registry.ChainConfig{{
		ChainID: 1, Name: "Ethereum", RPCEndpoint: "https://eth.example", NativeSymbol: "ETH",
		ExplorerBaseURL: "https://etherscan.io",
	}})
	require.NoError(t, err)

	next := &countingEmitter{}
	emitter := &PrintEmitter{WrappedEmitter: next, Registry: reg, Logger: &logger}
	addr := common.HexToAddress("0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045")

	err = emitter.EmitEvent(context.Background(), models.QueryEvent{
		Kind:     models.EventBalances,
		Address:  &addr,
		Balances: []models.BalanceEntry{{ChainID: 1, Symbol: "ETH", RawAmount: big.NewInt(1), FormattedAmount: "1"}},
		Failures: []models.ChainFailureInfo{{ChainID: 137, Kind: "timeout", Error: "deadline"}},
	})
	require.NoError(t, err)
	require.Equal(t, 1, next.n)

	out := buf.String()
	require.Contains(t, out, "https://etherscan.io/address/"+addr.Hex())
	require.Contains(t, out, `"kind":"timeout"`)
}

func TestFanoutEmitter(t *testing.T) {
	a := &countingEmitter{err: errors.New("kafka down")}
	b := &countingEmitter{}

	err := FanoutEmitter{a, nil, b}.EmitEvent(context.Background(), models.QueryEvent{Kind: models.EventStateReset})
	require.ErrorContains(t, err, "kafka down")
	require.Equal(t, 1, a.n)
	require.Equal(t, 1, b.n)

	require.NoError(t, FanoutEmitter{b}.EmitEvent(context.Background(), models.QueryEvent{}))
}
