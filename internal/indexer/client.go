package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const DefaultBaseURL = "https://tx.yodl.me/api/v1"

var ErrInvalidRequest = errors.New("sender or receiver is required")

// Client talks to the payments indexer.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Logger     *zerolog.Logger
}

func NewClient(baseURL, apiKey string, timeout time.Duration, logger *zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: timeout},
		Logger:     logger,
	}
}

// Response is the raw indexer answer. Non-2xx statuses are returned here
// rather than as errors.
type Response struct {
	Status int
	Body   json.RawMessage
}

func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// PaymentsURL is the full request URL for the given filters.
func (c *Client) PaymentsURL(p Params) string {
	return c.BaseURL + "/payments" + BuildQueryString(p)
}

// FetchPayments issues GET {base}/payments{query}.
func (c *Client) FetchPayments(ctx context.Context, p Params) (*Response, error) {
	if !p.IsValidRequest() {
		return nil, ErrInvalidRequest
	}

	fullURL := c.PaymentsURL(p)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	c.Logger.Debug().Str("url", fullURL).Int("status", resp.StatusCode).Msg("Indexer request")
	if !json.Valid(body) {
		// Error pages are not always JSON; keep the text as a JSON string.
		body, _ = json.Marshal(string(body))
	}
	return &Response{Status: resp.StatusCode, Body: body}, nil
}
