package main

import (
	"fmt"

	"yapp-query/internal/balances"
	"yapp-query/internal/config"
	"yapp-query/internal/counter"
	"yapp-query/internal/ens"
	"yapp-query/internal/indexer"
	"yapp-query/internal/interfaces"
	"yapp-query/internal/logger"
	"yapp-query/internal/models"
	"yapp-query/internal/observability"
	"yapp-query/internal/registry"
	"yapp-query/internal/rpc"
	"yapp-query/internal/service"
)

// app holds the components shared by every command.
type app struct {
	cfg      *config.Config
	registry *registry.Registry
	metrics  *observability.Metrics
	pool     *rpc.Pool
	resolver *ens.Resolver
	balances *balances.Aggregator
	counter  *counter.Reader
	indexer  *indexer.Client
}

func newApp(cfg *config.Config) (*app, error) {
	reg, err := registry.New(cfg.Chains)
	if err != nil {
		return nil, fmt.Errorf("invalid chain registry: %w", err)
	}

	metrics := observability.NewMetrics()
	pool, err := rpc.NewPool(reg, rpc.Options{
		MaxRetries:  cfg.MaxRetries,
		RetryDelay:  cfg.RetryDelay,
		HTTPTimeout: cfg.HTTP.Timeout,
	}, logger.Component("rpc"), metrics)
	if err != nil {
		return nil, err
	}

	reader, err := counter.NewReader(reg, pool, cfg.CounterReadMethod, logger.Component("counter"))
	if err != nil {
		pool.Close()
		return nil, err
	}

	resolver, err := newResolver(cfg, reg, pool)
	if err != nil {
		pool.Close()
		return nil, err
	}

	return &app{
		cfg:      cfg,
		registry: reg,
		metrics:  metrics,
		pool:     pool,
		resolver: resolver,
		balances: balances.NewAggregator(reg, pool, balances.Options{
			Timeout:        cfg.ChainTimeout,
			FractionDigits: cfg.BalanceFractionDigits,
		}, logger.Component("balances"), metrics),
		counter: reader,
		indexer: indexer.NewClient(cfg.Indexer.BaseURL, cfg.Indexer.APIKey, cfg.HTTP.Timeout, logger.Component("indexer")),
	}, nil
}

// newResolver fails when the resolution chain is missing from the registry, so
// a misconfiguration is reported at startup instead of as upstream failures.
func newResolver(cfg *config.Config, reg *registry.Registry, pool *rpc.Pool) (*ens.Resolver, error) {
	resolver := ens.NewResolver(pool, cfg.ENSChainID, logger.Component("ens"))
	if _, ok := reg.Lookup(resolver.ChainID()); !ok {
		return nil, fmt.Errorf("ENS_CHAIN_ID %d is not in the chain registry", resolver.ChainID())
	}
	if cfg.ENSRegistryAddress != "" {
		addr, err := models.ParseAddress(cfg.ENSRegistryAddress)
		if err != nil {
			return nil, fmt.Errorf("ENS_REGISTRY_ADDRESS: %w", err)
		}
		resolver.WithRegistry(addr)
	}
	return resolver, nil
}

func (a *app) service(emitter interfaces.EventEmitter, writer interfaces.ChainWriter) *service.Service {
	return service.New(service.Dependencies{
		Resolver: a.resolver,
		Balances: a.balances,
		Counter:  a.counter,
		Writer:   writer,
		Emitter:  emitter,
		Metrics:  a.metrics,
		Logger:   logger.Component("service"),
	})
}

func (a *app) Close() {
	a.pool.Close()
}
