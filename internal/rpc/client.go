package rpc

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"yapp-query/internal/observability"
	"yapp-query/internal/registry"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Options are the transport settings shared by every chain client.
type Options struct {
	MaxRetries  int
	RetryDelay  time.Duration
	HTTPTimeout time.Duration
}

// Client is one chain's RPC client with rate limiting, retries, and structured logging
type Client struct {
	ChainID     uint64
	Endpoint    string
	RateLimiter *rate.Limiter
	MaxRetries  int
	RetryDelay  time.Duration
	Logger      *zerolog.Logger
	Metrics     *observability.Metrics
	HTTPClient  *http.Client

	rpcClient *gethrpc.Client
	eth       *ethclient.Client
}

// NewClient creates a client for the given chain. Dialing HTTP does not
// contact the node, so a bad endpoint only surfaces on the first call.
func NewClient(chain registry.ChainConfig, opts Options, logger *zerolog.Logger, metrics *observability.Metrics) (*Client, error) {
	limit := rate.Inf
	if chain.RateLimit > 0 {
		limit = rate.Limit(chain.RateLimit)
	}

	httpClient := &http.Client{
		Timeout: opts.HTTPTimeout,
		Transport: &CustomTransport{
			Base:   http.DefaultTransport,
			ApiKey: chain.APIKey,
		},
	}

	rpcClient, err := gethrpc.DialHTTPWithClient(chain.RPCEndpoint, httpClient)
	if err != nil {
		return nil, fmt.Errorf("failed to create RPC client for %s: %w", chain, err)
	}

	l := logger.With().Uint64("chainId", chain.ChainID).Str("chain", chain.Name).Logger()

	return &Client{
		ChainID:     chain.ChainID,
		Endpoint:    chain.RPCEndpoint,
		RateLimiter: rate.NewLimiter(limit, 1),
		MaxRetries:  opts.MaxRetries,
		RetryDelay:  opts.RetryDelay,
		Logger:      &l,
		Metrics:     metrics,
		HTTPClient:  httpClient,
		rpcClient:   rpcClient,
		eth:         ethclient.NewClient(rpcClient),
	}, nil
}

// CustomTransport adds API key authentication to HTTP requests
type CustomTransport struct {
	Base   http.RoundTripper
	ApiKey string
}

func (t *CustomTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("Content-Type", "application/json")
	if t.ApiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.ApiKey)
	}
	return t.Base.RoundTrip(req)
}

// BalanceAt returns the native balance of account. A nil block means latest.
func (c *Client) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	var balance *big.Int
	err := c.call(ctx, "eth_getBalance", func(ctx context.Context) error {
		var err error
		balance, err = c.eth.BalanceAt(ctx, account, blockNumber)
		return err
	})
	if err != nil {
		return nil, err
	}
	return balance, nil
}

// CallContract executes a read-only message call.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	var out []byte
	err := c.call(ctx, "eth_call", func(ctx context.Context) error {
		var err error
		out, err = c.eth.CallContract(ctx, msg, blockNumber)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// call performs an RPC call with rate limiting, retries, and error handling
func (c *Client) call(ctx context.Context, method string, fn func(ctx context.Context) error) error {
	c.Logger.Debug().
		Str("endpoint", c.Endpoint).
		Str("method", method).
		Msg("Making RPC call")

	if err := c.RateLimiter.Wait(ctx); err != nil {
		c.Logger.Error().Err(err).Msg("Rate limit error")
		return fmt.Errorf("rate limit error: %w", err)
	}

	started := time.Now()
	err := c.retry(ctx, func() error { return fn(ctx) })
	c.Metrics.ObserveRPC(c.ChainID, method, started, err)

	if err != nil {
		c.Logger.Error().
			Err(err).
			Str("method", method).
			Dur("elapsed", time.Since(started)).
			Msg("RPC call failed")
		return err
	}
	return nil
}

// retry executes a function with retry logic. JSON-RPC errors returned by the
// node and context errors are not retried.
func (c *Client) retry(ctx context.Context, fn func() error) error {
	attempts := c.MaxRetries
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if ctx.Err() != nil || isNodeError(err) || i == attempts-1 {
			return err
		}

		select {
		case <-ctx.Done():
			return err
		case <-time.After(c.RetryDelay):
		}
	}
	return err
}

func isNodeError(err error) bool {
	var rpcErr gethrpc.Error
	return errors.As(err, &rpcErr)
}

// Close closes the HTTP client connections
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
	if c.HTTPClient != nil {
		c.HTTPClient.CloseIdleConnections()
	}
}
