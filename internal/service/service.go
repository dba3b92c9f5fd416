// Package service owns the account state and settles concurrent resolve,
// balance and counter requests so that only the most recently issued request of
// each kind is committed.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"yapp-query/internal/balances"
	"yapp-query/internal/interfaces"
	"yapp-query/internal/models"
	"yapp-query/internal/observability"
	"yapp-query/internal/validation"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
)

var (
	// ErrSuperseded marks a result that was discarded because a newer request
	// of the same kind was issued before it settled.
	ErrSuperseded = errors.New("superseded by a newer request")
	ErrNoWriter   = errors.New("no chain writer configured")
)

type NameResolver interface {
	Resolve(ctx context.Context, name string) (common.Address, error)
}

type BalanceFetcher interface {
	Fetch(ctx context.Context, address common.Address) *balances.Report
}

type CounterReader interface {
	Read(ctx context.Context, chainID uint64) (models.CounterValue, error)
	IncrementCall(chainID uint64) (interfaces.WriteRequest, error)
	Supported() []uint64
}

// Dependencies wires the Service. Writer, Emitter and Metrics are optional.
type Dependencies struct {
	Resolver NameResolver
	Balances BalanceFetcher
	Counter  CounterReader
	Writer   interfaces.ChainWriter
	Emitter  interfaces.EventEmitter
	Metrics  *observability.Metrics
	Logger   *zerolog.Logger
}

type Service struct {
	resolver NameResolver
	balances BalanceFetcher
	counter  CounterReader
	writer   interfaces.ChainWriter
	emitter  interfaces.EventEmitter
	metrics  *observability.Metrics
	logger   *zerolog.Logger
	now      func() time.Time

	mu    sync.Mutex
	state State
	seq   map[OperationKey]uint64
}

func New(deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Service{
		resolver: deps.Resolver,
		balances: deps.Balances,
		counter:  deps.Counter,
		writer:   deps.Writer,
		emitter:  deps.Emitter,
		metrics:  deps.Metrics,
		logger:   logger,
		now:      time.Now,
		state:    newState(),
		seq:      make(map[OperationKey]uint64),
	}
}

// issue records a new request for key and returns its sequence number.
func (s *Service) issue(key OperationKey) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq[key]++
	s.state.InFlight[key] = struct{}{}
	return s.seq[key]
}

// settle applies commit when seq is still the latest issued for key. It
// reports whether the result was committed.
func (s *Service) settle(key OperationKey, seq uint64, commit func(*State)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seq[key] != seq {
		return false
	}
	delete(s.state.InFlight, key)
	if commit != nil {
		commit(&s.state)
	}
	return true
}

func (s *Service) superseded(key OperationKey, err error) error {
	s.metrics.Superseded(string(key.Kind))
	s.logger.Debug().Str("operation", key.String()).Msg("Discarding superseded result")
	if err == nil {
		return ErrSuperseded
	}
	return fmt.Errorf("%w: %w", ErrSuperseded, err)
}

// Resolve looks up name and, if this is still the latest resolution, records
// the name and address. Failures leave the previously resolved fields intact.
// An empty name is rejected without issuing a request.
func (s *Service) Resolve(ctx context.Context, name string) (common.Address, error) {
	if err := validation.ValidateName(name); err != nil {
		return common.Address{}, err
	}

	key := ResolveKey()
	seq := s.issue(key)

	addr, err := s.resolver.Resolve(ctx, name)
	committed := s.settle(key, seq, func(st *State) {
		if err != nil {
			return
		}
		st.LastResolvedName = name
		st.LastResolvedAddress = &addr
	})
	if !committed {
		return addr, s.superseded(key, err)
	}

	s.metrics.Operation(string(key.Kind), err)
	if err != nil {
		s.logger.Warn().Err(err).Str("name", name).Msg("Resolution failed")
		return common.Address{}, err
	}

	s.emit(ctx, models.QueryEvent{Kind: models.EventNameResolved, Name: name, Address: &addr})
	return addr, nil
}

// FetchBalances validates address, queries every chain and, if this is still
// the latest balance request, replaces the stored balances with the report.
// Per-chain failures do not fail the call; inspect Report.Failures.
func (s *Service) FetchBalances(ctx context.Context, address string) (*balances.Report, error) {
	addr, err := models.ParseAddress(address)
	if err != nil {
		return nil, err
	}

	key := BalancesKey()
	seq := s.issue(key)

	report := s.balances.Fetch(ctx, addr)
	committed := s.settle(key, seq, func(st *State) {
		st.BalanceAddress = &addr
		st.Balances = copyEntries(report.Entries)
		st.BalanceFailures = report.FailureInfo()
	})
	if !committed {
		return report, s.superseded(key, nil)
	}

	s.metrics.Operation(string(key.Kind), nil)
	s.emit(ctx, models.QueryEvent{
		Kind:     models.EventBalances,
		Address:  &addr,
		Balances: copyEntries(report.Entries),
		Failures: report.FailureInfo(),
	})
	return report, nil
}

// FetchCounter reads the counter on chainID. Requests for different chains
// do not supersede each other.
func (s *Service) FetchCounter(ctx context.Context, chainID uint64) (models.CounterValue, error) {
	key := CounterKey(chainID)
	seq := s.issue(key)

	value, err := s.counter.Read(ctx, chainID)
	committed := s.settle(key, seq, func(st *State) {
		if err == nil {
			st.CounterByChain[chainID] = copyCounter(value)
		}
	})
	if !committed {
		return value, s.superseded(key, err)
	}

	s.metrics.Operation(string(key.Kind), err)
	if err != nil {
		s.logger.Warn().Err(err).Uint64("chainId", chainID).Msg("Counter read failed")
		return models.CounterValue{}, err
	}

	counter := copyCounter(value)
	s.emit(ctx, models.QueryEvent{Kind: models.EventCounterRead, ChainID: chainID, Counter: &counter})
	return value, nil
}

// IncrementCounter submits increment() through the configured ChainWriter and,
// once the write is accepted, refreshes the counter exactly once.
func (s *Service) IncrementCounter(ctx context.Context, chainID uint64) (models.CounterValue, error) {
	if s.writer == nil {
		return models.CounterValue{}, ErrNoWriter
	}
	req, err := s.counter.IncrementCall(chainID)
	if err != nil {
		return models.CounterValue{}, err
	}
	if err := s.writer.Submit(ctx, req); err != nil {
		s.metrics.Operation("incrementCounter", err)
		return models.CounterValue{}, fmt.Errorf("submit increment on chain %d: %w", chainID, err)
	}
	s.metrics.Operation("incrementCounter", nil)
	return s.FetchCounter(ctx, chainID)
}

// CanWrite reports whether IncrementCounter has a ChainWriter to submit through.
func (s *Service) CanWrite() bool {
	return s.writer != nil
}

// CounterChains lists the chains with a counter contract, in registry order.
func (s *Service) CounterChains() []uint64 {
	return s.counter.Supported()
}

// Snapshot returns a deep copy of the current state.
func (s *Service) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Reset empties the state. Every request still in flight settles as superseded.
func (s *Service) Reset(ctx context.Context) {
	s.mu.Lock()
	for key := range s.seq {
		s.seq[key]++
	}
	s.state = newState()
	s.mu.Unlock()

	s.logger.Info().Msg("Account state reset")
	s.emit(ctx, models.QueryEvent{Kind: models.EventStateReset})
}

func (s *Service) emit(ctx context.Context, event models.QueryEvent) {
	if s.emitter == nil {
		return
	}
	event.At = s.now()
	if err := s.emitter.EmitEvent(ctx, event); err != nil {
		s.metrics.EmitError()
		s.logger.Error().Err(err).Str("kind", event.Kind.String()).Msg("Failed to emit query event")
	}
}
