// Package testutil holds in-memory fakes of the chain interfaces for tests.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"yapp-query/internal/interfaces"
	"yapp-query/internal/registry"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
)

// CallHandler answers an eth_call made against a FakeChain.
type CallHandler func(msg ethereum.CallMsg) ([]byte, error)

// FakeChain is a scripted ChainClient. Delay honors context cancellation.
type FakeChain struct {
	mu       sync.Mutex
	Delay    time.Duration
	Balances map[common.Address]*big.Int
	Err      error
	OnCall   CallHandler
	calls    []ethereum.CallMsg
	balances int
}

var _ interfaces.ChainClient = (*FakeChain)(nil)

func NewFakeChain() *FakeChain {
	return &FakeChain{Balances: make(map[common.Address]*big.Int)}
}

func (f *FakeChain) SetBalance(addr common.Address, amount *big.Int) *FakeChain {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Balances[addr] = amount
	return f
}

func (f *FakeChain) wait(ctx context.Context) error {
	f.mu.Lock()
	delay := f.Delay
	f.mu.Unlock()
	if delay == 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

func (f *FakeChain) BalanceAt(ctx context.Context, account common.Address, _ *big.Int) (*big.Int, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances++
	if f.Err != nil {
		return nil, f.Err
	}
	if b, ok := f.Balances[account]; ok {
		return new(big.Int).Set(b), nil
	}
	return big.NewInt(0), nil
}

func (f *FakeChain) CallContract(ctx context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.calls = append(f.calls, msg)
	handler, err := f.OnCall, f.Err
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if handler == nil {
		return nil, errors.New("no call handler")
	}
	return handler(msg)
}

// Calls returns the eth_call messages received so far.
func (f *FakeChain) Calls() []ethereum.CallMsg {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]ethereum.CallMsg, len(f.calls))
	copy(out, f.calls)
	return out
}

// BalanceQueries returns how many BalanceAt calls reached the fake.
func (f *FakeChain) BalanceQueries() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances
}

// FakeProvider maps chain ids to fakes.
type FakeProvider struct {
	Chains map[uint64]*FakeChain
}

var _ interfaces.ClientProvider = (*FakeProvider)(nil)

func NewFakeProvider() *FakeProvider {
	return &FakeProvider{Chains: make(map[uint64]*FakeChain)}
}

func (p *FakeProvider) Add(chainID uint64, chain *FakeChain) *FakeChain {
	p.Chains[chainID] = chain
	return chain
}

func (p *FakeProvider) Client(chainID uint64) (interfaces.ChainClient, error) {
	c, ok := p.Chains[chainID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", registry.ErrUnknownChain, chainID)
	}
	return c, nil
}

// Registry builds a registry of local chains with the given ids, in order.
func Registry(ids ...uint64) *registry.Registry {
	chains := make([]registry.ChainConfig, len(ids))
	for i, id := range ids {
		chains[i] = registry.ChainConfig{
			ChainID:      id,
			Name:         fmt.Sprintf("chain-%d", id),
			RPCEndpoint:  fmt.Sprintf("http://127.0.0.1:%d", 8545+i),
			NativeSymbol: "ETH",
		}
	}
	return MustRegistry(chains)
}

func MustRegistry(chains []registry.ChainConfig) *registry.Registry {
	reg, err := registry.New(chains)
	if err != nil {
		panic(err)
	}
	return reg
}

// Ether returns n * 10^18 + frac (frac in wei).
func Ether(n int64, frac int64) *big.Int {
	v := new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
	return v.Add(v, big.NewInt(frac))
}
