// Package observability provides Prometheus metrics for the account query service.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	registry *prometheus.Registry

	// RPC metrics
	RPCCallLatency *prometheus.HistogramVec
	RPCCallErrors  *prometheus.CounterVec

	// Aggregation metrics
	ChainFailures   *prometheus.CounterVec
	BalanceEntries  prometheus.Histogram
	OperationsTotal *prometheus.CounterVec
	SupersededTotal *prometheus.CounterVec
	EmitErrorsTotal prometheus.Counter
}

// NewMetrics registers all metrics on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RPCCallLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "account_query_rpc_call_duration_seconds",
			Help:    "Latency of chain RPC calls",
			Buckets: prometheus.DefBuckets,
		}, []string{"chain_id", "method"}),
		RPCCallErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "account_query_rpc_call_errors_total",
			Help: "Chain RPC calls that returned an error",
		}, []string{"chain_id", "method"}),
		ChainFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "account_query_chain_failures_total",
			Help: "Per-chain balance failures by kind",
		}, []string{"chain_id", "kind"}),
		BalanceEntries: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "account_query_balance_entries",
			Help:    "Number of successful entries per balance report",
			Buckets: prometheus.LinearBuckets(0, 1, 10),
		}),
		OperationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "account_query_operations_total",
			Help: "Settled operations by kind and outcome",
		}, []string{"operation", "outcome"}),
		SupersededTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "account_query_superseded_results_total",
			Help: "Results discarded because a newer request of the same kind was issued",
		}, []string{"operation"}),
		EmitErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "account_query_emit_errors_total",
			Help: "Query events that failed to emit",
		}),
	}
}

// ObserveRPC records one RPC call. Safe on a nil receiver.
func (m *Metrics) ObserveRPC(chainID uint64, method string, started time.Time, err error) {
	if m == nil {
		return
	}
	id := strconv.FormatUint(chainID, 10)
	m.RPCCallLatency.WithLabelValues(id, method).Observe(time.Since(started).Seconds())
	if err != nil {
		m.RPCCallErrors.WithLabelValues(id, method).Inc()
	}
}

func (m *Metrics) ChainFailure(chainID uint64, kind string) {
	if m == nil {
		return
	}
	m.ChainFailures.WithLabelValues(strconv.FormatUint(chainID, 10), kind).Inc()
}

func (m *Metrics) BalanceReport(entries int) {
	if m == nil {
		return
	}
	m.BalanceEntries.Observe(float64(entries))
}

func (m *Metrics) Operation(operation string, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.OperationsTotal.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) Superseded(operation string) {
	if m == nil {
		return
	}
	m.SupersededTotal.WithLabelValues(operation).Inc()
}

func (m *Metrics) EmitError() {
	if m == nil {
		return
	}
	m.EmitErrorsTotal.Inc()
}

// Registry exposes the underlying registry for tests and custom collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
