// Package wholesalemarket fetches French day-ahead prices from the RTE
// wholesale market API.
package wholesalemarket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/kilianp07/arbitrage/auth"
	"github.com/kilianp07/arbitrage/connectors"
	"github.com/kilianp07/arbitrage/core/model"
)

const (
	DefaultBaseURL = "https://digital.iservices.rte-france.com/open_api/wholesale_market/v2/france_power_exchanges"
	defaultTimeout = 30 * time.Second
)

// ErrMissingDates is returned when a fetch does not set both dates.
var ErrMissingDates = errors.New("wholesale_market: start and end dates are required")

// Authorizer decorates outgoing requests with credentials.
type Authorizer interface {
	SetAuthHeader(r *http.Request) error
}

// Config is the module configuration of the price source.
type Config struct {
	Auth           auth.Conf `json:"auth"`
	BaseURL        string    `json:"base_url"`
	TimeoutSeconds int       `json:"timeout_seconds"`
}

// StatusError reports a non-200 answer from the API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d, body: %s", e.StatusCode, e.Body)
}

type Client struct {
	BaseURL string
	HTTP    *http.Client
	Auth    Authorizer
}

// New builds a client authenticating with OAuth2 client credentials.
func New(cfg Config) *Client {
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	return &Client{
		BaseURL: cfg.BaseURL,
		HTTP:    &http.Client{Timeout: timeout},
		Auth:    auth.NewClientCred(cfg.Auth),
	}
}

// Fetch retrieves the prices between the start and end dates, which must both
// be set through options.
func (w *Client) Fetch(ctx context.Context, opts ...connectors.Option) (model.PriceSeries, error) {
	req, err := connectors.NewRequest(opts...)
	if err != nil {
		return nil, err
	}
	if !req.Bounded() {
		return nil, ErrMissingDates
	}

	base := w.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	q := u.Query()
	q.Set("start_date", req.Start.Format(time.RFC3339))
	q.Set("end_date", req.End.Format(time.RFC3339))
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if w.Auth != nil {
		if err := w.Auth.SetAuthHeader(httpReq); err != nil {
			return nil, fmt.Errorf("failed to set auth header: %w", err)
		}
	}

	client := w.HTTP
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var marketResponse Response
	if err := json.Unmarshal(body, &marketResponse); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	series, err := marketResponse.Series()
	if err != nil {
		return nil, err
	}
	return connectors.Normalize(req.Filter(series))
}
