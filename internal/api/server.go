// Package api exposes the account query service over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"yapp-query/internal/balances"
	"yapp-query/internal/counter"
	"yapp-query/internal/database"
	"yapp-query/internal/ens"
	"yapp-query/internal/health"
	"yapp-query/internal/indexer"
	"yapp-query/internal/models"
	"yapp-query/internal/observability"
	"yapp-query/internal/service"
	"yapp-query/internal/validation"

	"github.com/rs/zerolog"
)

// History serves previously recorded settlements.
type History interface {
	GetResolutions(ctx context.Context, name string, limit int) ([]database.Resolution, error)
	GetLatestBalances(ctx context.Context, address string) ([]database.BalanceSnapshot, error)
}

type Server struct {
	svc     *service.Service
	indexer *indexer.Client
	health  *health.Tracker
	metrics *observability.Metrics
	history History
	logger  *zerolog.Logger
}

// NewServer wires the handlers. indexer, tracker and metrics may be nil; the
// matching routes are then not registered.
func NewServer(svc *service.Service, idx *indexer.Client, tracker *health.Tracker, metrics *observability.Metrics, logger *zerolog.Logger) *Server {
	return &Server{svc: svc, indexer: idx, health: tracker, metrics: metrics, logger: logger}
}

// WithHistory enables the /history routes.
func (s *Server) WithHistory(h History) *Server {
	s.history = h
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /resolve", s.handleResolve)
	mux.HandleFunc("GET /balances/{address}", s.handleBalances)
	mux.HandleFunc("GET /counter", s.handleCounterChains)
	mux.HandleFunc("GET /counter/{chainId}", s.handleCounter)
	if s.svc.CanWrite() {
		mux.HandleFunc("POST /counter/{chainId}/increment", s.handleIncrement)
	}
	mux.HandleFunc("GET /state", s.handleState)
	mux.HandleFunc("DELETE /state", s.handleReset)
	if s.indexer != nil {
		mux.HandleFunc("GET /payments", s.handlePayments)
	}
	if s.history != nil {
		mux.HandleFunc("GET /history/resolutions", s.handleResolutionHistory)
		mux.HandleFunc("GET /history/balances/{address}", s.handleBalanceHistory)
	}
	if s.health != nil {
		mux.HandleFunc("GET /healthz", s.health.LivenessHandler)
		mux.HandleFunc("GET /readyz", s.health.ReadinessHandler)
	}
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
	return mux
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("HTTP server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type resolveResponse struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	addr, err := s.svc.Resolve(r.Context(), name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resolveResponse{Name: name, Address: addr.Hex()})
}

type balancesResponse struct {
	Address   string                    `json:"address"`
	Entries   []models.BalanceEntry     `json:"entries"`
	Failures  []models.ChainFailureInfo `json:"failures,omitempty"`
	Partial   bool                      `json:"partial"`
	FetchedAt time.Time                 `json:"fetchedAt"`
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	report, err := s.svc.FetchBalances(r.Context(), r.PathValue("address"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balancesResponse{
		Address:   report.Address.Hex(),
		Entries:   report.Entries,
		Failures:  report.FailureInfo(),
		Partial:   report.Partial(),
		FetchedAt: report.FetchedAt,
	})
}

func (s *Server) handleCounter(w http.ResponseWriter, r *http.Request) {
	chainID, ok := parseChainID(w, r)
	if !ok {
		return
	}
	value, err := s.svc.FetchCounter(r.Context(), chainID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, value)
}

type counterChainsResponse struct {
	Chains []uint64 `json:"chains"`
}

func (s *Server) handleCounterChains(w http.ResponseWriter, _ *http.Request) {
	chains := s.svc.CounterChains()
	if chains == nil {
		chains = []uint64{}
	}
	writeJSON(w, http.StatusOK, counterChainsResponse{Chains: chains})
}

func (s *Server) handleIncrement(w http.ResponseWriter, r *http.Request) {
	chainID, ok := parseChainID(w, r)
	if !ok {
		return
	}
	value, err := s.svc.IncrementCounter(r.Context(), chainID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, value)
}

type stateResponse struct {
	LastResolvedName    string                         `json:"lastResolvedName,omitempty"`
	LastResolvedAddress string                         `json:"lastResolvedAddress,omitempty"`
	BalanceAddress      string                         `json:"balanceAddress,omitempty"`
	Balances            []models.BalanceEntry          `json:"balances"`
	BalanceFailures     []models.ChainFailureInfo      `json:"balanceFailures,omitempty"`
	CounterByChain      map[uint64]models.CounterValue `json:"counterByChain"`
	InFlight            []string                       `json:"inFlight"`
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	st := s.svc.Snapshot()
	resp := stateResponse{
		LastResolvedName: st.LastResolvedName,
		Balances:         st.Balances,
		BalanceFailures:  st.BalanceFailures,
		CounterByChain:   st.CounterByChain,
		InFlight:         make([]string, 0, len(st.InFlight)),
	}
	if resp.Balances == nil {
		resp.Balances = []models.BalanceEntry{}
	}
	if st.LastResolvedAddress != nil {
		resp.LastResolvedAddress = st.LastResolvedAddress.Hex()
	}
	if st.BalanceAddress != nil {
		resp.BalanceAddress = st.BalanceAddress.Hex()
	}
	for key := range st.InFlight {
		resp.InFlight = append(resp.InFlight, key.String())
	}
	sort.Strings(resp.InFlight)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.svc.Reset(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePayments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := indexer.Params{
		Sender:          q.Get(indexer.KeySender),
		Receiver:        q.Get(indexer.KeyReceiver),
		TokenOutSymbols: indexer.SplitList(q.Get(indexer.KeyTokenOutSymbols)),
		SourceChainIDs:  indexer.SplitList(q.Get(indexer.KeySourceChainIDs)),
	}
	resp, err := s.indexer.FetchPayments(r.Context(), params)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Status)
	_, _ = w.Write(resp.Body)
}

const (
	defaultHistoryLimit = 10
	maxHistoryLimit     = 100
)

func (s *Server) handleResolutionHistory(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if err := validation.ValidateName(name); err != nil {
		s.writeError(w, err)
		return
	}
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid limit"})
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	resolutions, err := s.history.GetResolutions(r.Context(), name, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if resolutions == nil {
		resolutions = []database.Resolution{}
	}
	writeJSON(w, http.StatusOK, resolutions)
}

func (s *Server) handleBalanceHistory(w http.ResponseWriter, r *http.Request) {
	addr, err := models.ParseAddress(r.PathValue("address"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	snapshots, err := s.history.GetLatestBalances(r.Context(), addr.Hex())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if snapshots == nil {
		snapshots = []database.BalanceSnapshot{}
	}
	writeJSON(w, http.StatusOK, snapshots)
}

func parseChainID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	chainID, err := strconv.ParseUint(r.PathValue("chainId"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid chain id"})
		return 0, false
	}
	return chainID, true
}

type errorResponse struct {
	Error string `json:"error"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, validation.ErrEmptyName),
		errors.Is(err, models.ErrInvalidAddress),
		errors.Is(err, indexer.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, ens.ErrNotFound), errors.Is(err, counter.ErrUnsupported):
		return http.StatusNotFound
	case errors.Is(err, service.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, service.ErrNoWriter):
		return http.StatusNotImplemented
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, balances.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Int("status", status).Msg("Request failed")
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
