package interfaces

import (
	"context"
	"math/big"

	"yapp-query/internal/models"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
)

// ChainClient is the read surface of one chain's RPC endpoint.
type ChainClient interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// ClientProvider hands out the client for a configured chain.
type ClientProvider interface {
	Client(chainID uint64) (ChainClient, error)
}

// EventEmitter defines the interface for emitting events
type EventEmitter interface {
	EmitEvent(ctx context.Context, event models.QueryEvent) error
}

// WriteRequest describes a contract call submitted through a wallet.
type WriteRequest struct {
	ChainID  uint64
	Contract common.Address
	Selector [4]byte
	Args     []byte
}

// ChainWriter submits a write transaction. Success or failure is all it reports.
type ChainWriter interface {
	Submit(ctx context.Context, req WriteRequest) error
}
