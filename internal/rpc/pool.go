package rpc

import (
	"yapp-query/internal/interfaces"
	"yapp-query/internal/observability"
	"yapp-query/internal/registry"

	"github.com/rs/zerolog"
)

var _ interfaces.ClientProvider = (*Pool)(nil)

// Pool owns one Client per registry chain.
type Pool struct {
	registry *registry.Registry
	clients  map[uint64]*Client
}

func NewPool(reg *registry.Registry, opts Options, logger *zerolog.Logger, metrics *observability.Metrics) (*Pool, error) {
	p := &Pool{
		registry: reg,
		clients:  make(map[uint64]*Client, reg.Len()),
	}
	for _, chain := range reg.Chains() {
		c, err := NewClient(chain, opts, logger, metrics)
		if err != nil {
			p.Close()
			return nil, err
		}
		p.clients[chain.ChainID] = c
	}
	return p, nil
}

// Client returns the client of a configured chain.
func (p *Pool) Client(chainID uint64) (interfaces.ChainClient, error) {
	if _, err := p.registry.Get(chainID); err != nil {
		return nil, err
	}
	return p.clients[chainID], nil
}

func (p *Pool) Close() {
	for _, c := range p.clients {
		c.Close()
	}
}
