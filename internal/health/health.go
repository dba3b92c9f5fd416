package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"yapp-query/internal/interfaces"
	"yapp-query/internal/models"
	"yapp-query/internal/registry"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
)

type ChainStatus struct {
	ChainID     uint64    `json:"chain_id"`
	Name        string    `json:"name"`
	Healthy     bool      `json:"healthy"`
	LastSuccess time.Time `json:"last_success,omitempty"`
	LastError   string    `json:"last_error,omitempty"`
}

// Tracker keeps the last known status of every registry chain. It is fed by
// balance events and by the background probe.
type Tracker struct {
	ready    int32
	registry *registry.Registry
	logger   *zerolog.Logger

	mu       sync.RWMutex
	statuses map[uint64]*ChainStatus
	checks   []check
}

// CheckFunc reports whether a dependency such as the database is reachable.
type CheckFunc func(ctx context.Context) error

type check struct {
	name string
	fn   CheckFunc
}

func NewTracker(reg *registry.Registry, logger *zerolog.Logger) *Tracker {
	return &Tracker{
		registry: reg,
		logger:   logger,
		statuses: make(map[uint64]*ChainStatus),
	}
}

func (t *Tracker) SetReady(ready bool) {
	if ready {
		atomic.StoreInt32(&t.ready, 1)
	} else {
		atomic.StoreInt32(&t.ready, 0)
	}
}

func (t *Tracker) LivenessHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// AddCheck registers a dependency that must be reachable for readiness.
func (t *Tracker) AddCheck(name string, fn CheckFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.checks = append(t.checks, check{name: name, fn: fn})
}

// ReadinessHandler answers 200 once the service is marked ready, at least one
// chain has answered and every registered check passes.
func (t *Tracker) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	if name, err := t.runChecks(r.Context()); err != nil {
		t.logger.Warn().Err(err).Str("check", name).Msg("Readiness check failed")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("Not Ready: " + name))
		return
	}

	statuses := t.Statuses()

	healthy := 0
	for _, s := range statuses {
		if s.Healthy {
			healthy++
		}
	}
	if healthy == 0 || atomic.LoadInt32(&t.ready) == 0 {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("Not Ready"))
		return
	}

	response := make(map[string]interface{})
	response["status"] = "Ready"
	response["chains"] = statuses

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}

func (t *Tracker) runChecks(ctx context.Context) (string, error) {
	t.mu.RLock()
	checks := append([]check(nil), t.checks...)
	t.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	for _, c := range checks {
		if err := c.fn(ctx); err != nil {
			return c.name, err
		}
	}
	return "", nil
}

// Statuses returns the known chain statuses ordered by chain id.
func (t *Tracker) Statuses() []ChainStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]ChainStatus, 0, len(t.statuses))
	for _, s := range t.statuses {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChainID < out[j].ChainID })
	return out
}

// EmitEvent updates chain statuses from balance reports.
func (t *Tracker) EmitEvent(_ context.Context, event models.QueryEvent) error {
	if event.Kind != models.EventBalances {
		return nil
	}
	for _, b := range event.Balances {
		t.update(b.ChainID, event.At, nil)
	}
	for _, f := range event.Failures {
		t.update(f.ChainID, event.At, &f)
	}
	return nil
}

// Watch probes every chain at the given interval until ctx is done.
func (t *Tracker) Watch(ctx context.Context, clients interfaces.ClientProvider, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			t.ProbeAll(ctx, clients)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

// ProbeAll issues one cheap balance query per chain.
func (t *Tracker) ProbeAll(ctx context.Context, clients interfaces.ClientProvider) {
	for _, chain := range t.registry.Chains() {
		err := probe(ctx, clients, chain.ChainID)
		if err != nil {
			t.logger.Error().
				Err(err).
				Uint64("chainId", chain.ChainID).
				Msg("Chain probe failed")
			t.update(chain.ChainID, time.Now(), &models.ChainFailureInfo{ChainID: chain.ChainID, Kind: "network", Error: err.Error()})
			continue
		}
		t.update(chain.ChainID, time.Now(), nil)
	}
}

func probe(ctx context.Context, clients interfaces.ClientProvider, chainID uint64) error {
	client, err := clients.Client(chainID)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err = client.BalanceAt(ctx, common.Address{}, nil)
	return err
}

func (t *Tracker) update(chainID uint64, at time.Time, failure *models.ChainFailureInfo) {
	t.mu.Lock()
	defer t.mu.Unlock()

	status, ok := t.statuses[chainID]
	if !ok {
		status = &ChainStatus{ChainID: chainID}
		if chain, found := t.registry.Lookup(chainID); found {
			status.Name = chain.Name
		}
		t.statuses[chainID] = status
	}
	if failure != nil {
		status.Healthy = false
		status.LastError = failure.Error
		return
	}
	status.Healthy = true
	status.LastSuccess = at
	status.LastError = ""
}
