// Package balances fans a balance query out to every registry chain and merges
// the per-chain outcomes into one ordered, partially-failable report.
package balances

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"yapp-query/internal/interfaces"
	"yapp-query/internal/models"
	"yapp-query/internal/observability"
	"yapp-query/internal/registry"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultTimeout        = 10 * time.Second
	DefaultFractionDigits = 8
)

// Options tune an Aggregator. A zero timeout has no useful meaning and selects
// DefaultTimeout; zero fraction digits is a valid choice (integers only), so only
// a negative FractionDigits selects DefaultFractionDigits.
type Options struct {
	// Timeout is the budget of each per-chain query.
	Timeout        time.Duration
	FractionDigits int
}

type Aggregator struct {
	registry       *registry.Registry
	clients        interfaces.ClientProvider
	timeout        time.Duration
	fractionDigits int
	logger         *zerolog.Logger
	metrics        *observability.Metrics
	now            func() time.Time
}

func NewAggregator(reg *registry.Registry, clients interfaces.ClientProvider, opts Options, logger *zerolog.Logger, metrics *observability.Metrics) *Aggregator {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.FractionDigits < 0 {
		opts.FractionDigits = DefaultFractionDigits
	}
	return &Aggregator{
		registry:       reg,
		clients:        clients,
		timeout:        opts.Timeout,
		fractionDigits: opts.FractionDigits,
		logger:         logger,
		metrics:        metrics,
		now:            time.Now,
	}
}

// Report is the merged outcome of one Fetch. Entries and Failures both follow
// registry order; a chain appears in exactly one of them.
type Report struct {
	Address   common.Address
	Entries   []models.BalanceEntry
	Failures  []*ChainFailure
	FetchedAt time.Time
}

// Err joins the per-chain failures, or returns nil when every chain answered.
func (r *Report) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

func (r *Report) Partial() bool {
	return len(r.Failures) > 0
}

func (r *Report) FailureInfo() []models.ChainFailureInfo {
	if len(r.Failures) == 0 {
		return nil
	}
	out := make([]models.ChainFailureInfo, len(r.Failures))
	for i, f := range r.Failures {
		out[i] = models.ChainFailureInfo{ChainID: f.ChainID, Kind: f.KindName(), Error: f.Err.Error()}
	}
	return out
}

type outcome struct {
	entry   models.BalanceEntry
	failure *ChainFailure
}

// Fetch queries every chain concurrently. It never fails as a whole: chains that
// error or exceed the timeout budget are reported in Failures and omitted from
// Entries.
func (a *Aggregator) Fetch(ctx context.Context, address common.Address) *Report {
	chains := a.registry.Chains()
	outcomes := make([]outcome, len(chains))

	var g errgroup.Group
	for i, chain := range chains {
		g.Go(func() error {
			outcomes[i] = a.fetchOne(ctx, chain, address)
			return nil
		})
	}
	_ = g.Wait()

	report := &Report{
		Address:   address,
		Entries:   make([]models.BalanceEntry, 0, len(chains)),
		FetchedAt: a.now(),
	}
	for _, o := range outcomes {
		if o.failure != nil {
			report.Failures = append(report.Failures, o.failure)
			a.metrics.ChainFailure(o.failure.ChainID, o.failure.KindName())
			continue
		}
		report.Entries = append(report.Entries, o.entry)
	}
	a.metrics.BalanceReport(len(report.Entries))

	if report.Partial() {
		a.logger.Warn().
			Str("address", address.Hex()).
			Int("entries", len(report.Entries)).
			Int("failures", len(report.Failures)).
			Err(report.Err()).
			Msg("Partial balance report")
	}
	return report
}

func (a *Aggregator) fetchOne(ctx context.Context, chain registry.ChainConfig, address common.Address) outcome {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	asset := chain.Asset()
	raw, err := a.queryAsset(ctx, chain.ChainID, asset, address)
	if err != nil {
		return outcome{failure: classify(ctx, chain.ChainID, err)}
	}

	return outcome{entry: models.BalanceEntry{
		ChainID:         chain.ChainID,
		Symbol:          asset.Symbol,
		RawAmount:       raw,
		Decimals:        asset.Decimals,
		FormattedAmount: FormatUnits(raw, asset.Decimals, a.fractionDigits),
	}}
}

func (a *Aggregator) queryAsset(ctx context.Context, chainID uint64, asset registry.Asset, address common.Address) (*big.Int, error) {
	client, err := a.clients.Client(chainID)
	if err != nil {
		return nil, err
	}

	if asset.Token == nil {
		balance, err := client.BalanceAt(ctx, address, nil)
		if err != nil {
			return nil, err
		}
		if balance == nil || balance.Sign() < 0 {
			return nil, errors.New("malformed balance response")
		}
		return balance, nil
	}

	data, err := encodeBalanceOf(address)
	if err != nil {
		return nil, err
	}
	out, err := client.CallContract(ctx, ethereum.CallMsg{To: asset.Token, Data: data}, nil)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no balanceOf at %s", ErrUnsupportedAsset, asset.Token.Hex())
	}
	balance, err := decodeBalanceOf(out)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedAsset, err)
	}
	return balance, nil
}

func classify(ctx context.Context, chainID uint64, err error) *ChainFailure {
	kind := ErrNetwork
	switch {
	case errors.Is(err, ErrUnsupportedAsset):
		kind = ErrUnsupportedAsset
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		kind = ErrTimeout
	}
	return &ChainFailure{ChainID: chainID, Kind: kind, Err: err}
}
