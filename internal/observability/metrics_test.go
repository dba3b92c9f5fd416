package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()

	m.ObserveRPC(8453, "eth_getBalance", time.Now(), nil)
	m.ObserveRPC(8453, "eth_getBalance", time.Now(), errors.New("boom"))
	m.ChainFailure(137, "timeout")
	m.Operation("fetchBalances", nil)
	m.Operation("resolve", errors.New("not found"))
	m.Superseded("fetchBalances")
	m.EmitError()

	require.Equal(t, 1.0, testutil.ToFloat64(m.RPCCallErrors.WithLabelValues("8453", "eth_getBalance")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.ChainFailures.WithLabelValues("137", "timeout")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("resolve", "failure")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.SupersededTotal.WithLabelValues("fetchBalances")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.EmitErrorsTotal))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveRPC(1, "eth_call", time.Now(), nil)
	m.ChainFailure(1, "network")
	m.BalanceReport(3)
	m.Operation("resolve", nil)
	m.Superseded("resolve")
	m.EmitError()
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics()
	m.Operation("fetchCounter", nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "account_query_operations_total")
}
