// Package voipms is the rate-limited client for the VoIP.ms REST API. Every
// outbound provider call funnels through Client.Execute, which is the only
// place the gateway deliberately queues or delays work.
package voipms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/frontdesk/internal/cache"
	"github.com/frontdesk/internal/retry"
)

const (
	// The provider allows 2 requests per second per account.
	maxConcurrent  = 2
	requestTimeout = 30 * time.Second
)

// ErrInvalidCredentials is returned when the provider rejects the configured
// API username/password. Never retried.
var ErrInvalidCredentials = errors.New("invalid provider credentials")

// ProviderError is the terminal failure for a provider call after the retry
// budget is exhausted (or a non-retryable error was hit).
type ProviderError struct {
	Method   string
	Attempts int
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider call %s failed after %d attempt(s): %v", e.Method, e.Attempts, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Response is the decoded provider envelope. Status is "success" on the happy
// path; Raw holds the full body for method wrappers to decode further.
type Response struct {
	Status string
	Raw    json.RawMessage
}

// ErrorObserver is notified on every terminal provider failure. Replaces the
// implicit api_error event broadcast with an explicit callback list.
type ErrorObserver func(method string, err error)

// Options configures a Client.
type Options struct {
	APIURL   string
	Username string
	Password string
	DID      string
	Timeout  time.Duration
	Retry    retry.Config
	CacheTTL time.Duration
}

// Client talks to the provider REST endpoint. All methods are safe for
// concurrent use; Execute serializes calls to at most maxConcurrent in flight
// and 2 per second.
type Client struct {
	apiURL   string
	username string
	password string
	did      string

	httpClient *http.Client
	limiter    *rate.Limiter
	sem        chan struct{}
	retryCfg   retry.Config
	cache      *cache.Cache

	mu        sync.Mutex
	observers []ErrorObserver
}

// NewClient creates a provider client from opts, filling in defaults for any
// zero field.
func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = requestTimeout
	}
	retryCfg := opts.Retry
	if retryCfg.MaxRetries == 0 && retryCfg.BaseDelay == 0 {
		retryCfg = retry.DefaultConfig()
	}
	return &Client{
		apiURL:     opts.APIURL,
		username:   opts.Username,
		password:   opts.Password,
		did:        opts.DID,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Every(500*time.Millisecond), maxConcurrent),
		sem:        make(chan struct{}, maxConcurrent),
		retryCfg:   retryCfg,
		cache:      cache.New(opts.CacheTTL),
	}
}

// DID returns the default outbound number the client was configured with.
func (c *Client) DID() string { return c.did }

// OnError registers an observer for terminal provider failures.
func (c *Client) OnError(obs ErrorObserver) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, obs)
}

// ClearCache drops all cached read results.
func (c *Client) ClearCache() { c.cache.Clear() }

// Execute performs a provider API call. The call is admitted through the
// concurrency semaphore and the per-second rate budget, then retried with
// exponential backoff on transient failures. Invalid credentials fail
// immediately. With more than one slot in flight, completion order is not
// submission order; callers must not assume FIFO.
func (c *Client) Execute(ctx context.Context, method string, params map[string]string) (*Response, error) {
	select {
	case c.sem <- struct{}{}:
		defer func() { <-c.sem }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	var resp *Response
	result := retry.WithBackoff(ctx, c.retryCfg, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return retry.Permanent(err)
		}
		r, err := c.do(ctx, method, params)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})

	if !result.Success {
		perr := &ProviderError{Method: method, Attempts: result.Attempts, Err: result.LastError}
		log.Error().
			Str("method", method).
			Int("attempts", result.Attempts).
			Err(result.LastError).
			Msg("Provider API request failed")
		c.notifyError(method, perr)
		return nil, perr
	}

	return resp, nil
}

func (c *Client) do(ctx context.Context, method string, params map[string]string) (*Response, error) {
	q := url.Values{}
	q.Set("api_username", c.username)
	q.Set("api_password", c.password)
	q.Set("method", method)
	for k, v := range params {
		q.Set(k, v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, retry.Permanent(err)
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider returned HTTP %d", httpResp.StatusCode)
	}

	var envelope struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		// A 200 with an undecodable body is a contract violation, not a
		// transient fault; retrying replays the same bad payload.
		return nil, retry.Permanent(fmt.Errorf("decoding provider response: %w", err))
	}

	if envelope.Status == "invalid_credentials" {
		return nil, retry.Permanent(ErrInvalidCredentials)
	}
	if envelope.Status != "success" {
		return nil, fmt.Errorf("provider status %q", envelope.Status)
	}

	return &Response{Status: envelope.Status, Raw: body}, nil
}

func (c *Client) notifyError(method string, err error) {
	c.mu.Lock()
	observers := make([]ErrorObserver, len(c.observers))
	copy(observers, c.observers)
	c.mu.Unlock()

	for _, obs := range observers {
		obs(method, err)
	}
}
