package indexer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestFetchPayments(t *testing.T) {
	var gotURL, gotAuth atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURL.Store(r.URL.String())
		gotAuth.Store(r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"payments":[],"page":1}`))
	}))
	defer server.Close()

	logger := zerolog.New(nil)
	client := NewClient(server.URL+"/", "secret", time.Second, &logger)

	resp, err := client.FetchPayments(context.Background(), Params{Sender: "alice.eth", SourceChainIDs: []string{"1", "10"}})
	require.NoError(t, err)
	require.True(t, resp.OK())
	require.JSONEq(t, `{"payments":[],"page":1}`, string(resp.Body))
	require.Equal(t, "/payments?sender=alice.eth&sourceChainIds=1%2C10", gotURL.Load())
	require.Equal(t, "Bearer secret", gotAuth.Load())
}

func TestFetchPayments_ErrorStatusIsAResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad filter", http.StatusBadRequest)
	}))
	defer server.Close()

	logger := zerolog.New(nil)
	resp, err := NewClient(server.URL, "", time.Second, &logger).FetchPayments(context.Background(), Params{Receiver: "bob.eth"})
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.Status)
	require.False(t, resp.OK())
	require.JSONEq(t, `"bad filter\n"`, string(resp.Body))
}

func TestFetchPayments_InvalidRequest(t *testing.T) {
	logger := zerolog.New(nil)
	_, err := NewClient("http://127.0.0.1:1", "", time.Second, &logger).FetchPayments(context.Background(), Params{})
	require.ErrorIs(t, err, ErrInvalidRequest)
}

func TestPaymentsURL(t *testing.T) {
	logger := zerolog.New(nil)
	client := NewClient("", "", 0, &logger)
	require.Equal(t, DefaultBaseURL+"/payments?receiver=bob.eth", client.PaymentsURL(Params{Receiver: "bob.eth", TokenOutSymbols: []string{"all"}}))
}
