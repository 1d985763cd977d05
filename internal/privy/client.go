package privy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/tribe-app/tribe_auth/internal/metrics"
)

const (
	appIDHeader     = "privy-app-id"
	userAgent       = "tribe-auth-relay/1.0"
	maxResponseSize = 1 << 20
	defaultTimeout  = 15 * time.Second
)

// Credentials identify the relay to the provider.
type Credentials struct {
	AppID     string
	AppSecret string
}

// Configured reports whether both halves of the service identity are set.
func (c Credentials) Configured() bool {
	return c.AppID != "" && c.AppSecret != ""
}

// RetryPolicy bounds how often a single endpoint is retried on transport errors.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultRetryPolicy tries each endpoint three times, waiting 1s then 2s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second}
}

// Delay returns the wait after the given failed attempt (1-based).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return p.BaseDelay << (attempt - 1)
}

// Response is a buffered upstream reply.
type Response struct {
	Endpoint Endpoint
	Status   int
	Body     []byte
}

// OK reports a 2xx status.
func (r Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Client talks to the identity provider. Probing and retries are strictly
// sequential so no operation is ever issued twice in parallel.
type Client struct {
	http      *http.Client
	creds     Credentials
	endpoints EndpointSource
	retry     RetryPolicy
	logger    *slog.Logger
	metrics   *metrics.Metrics
	sleep     func(ctx context.Context, d time.Duration) error
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout bounds every outbound call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithEndpoints swaps the candidate list.
func WithEndpoints(src EndpointSource) Option {
	return func(c *Client) { c.endpoints = src }
}

// WithRetryPolicy overrides the per-endpoint retry budget.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) {
		if p.MaxAttempts < 1 {
			p.MaxAttempts = 1
		}
		c.retry = p
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithMetrics records attempts on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient builds a provider client with default candidates and retry policy.
func NewClient(creds Credentials, opts ...Option) *Client {
	c := &Client{
		http:      &http.Client{Timeout: defaultTimeout},
		creds:     creds,
		endpoints: DefaultCandidates(),
		retry:     DefaultRetryPolicy(),
		logger:    slog.Default(),
		sleep:     sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether the client holds service credentials.
func (c *Client) Configured() bool {
	return c.creds.Configured()
}

// Endpoints exposes the candidate source, used by diagnostics.
func (c *Client) Endpoints() EndpointSource {
	return c.endpoints
}

// InitPasswordless asks the provider to email a one-time code.
func (c *Client) InitPasswordless(ctx context.Context, email string) (Response, error) {
	return c.probe(ctx, OpInit, map[string]string{
		"email": email,
		"mode":  "login-or-sign-up",
	})
}

// Authenticate exchanges an email and code for the provider's user record.
func (c *Client) Authenticate(ctx context.Context, email, code string) (Response, error) {
	return c.probe(ctx, OpAuthenticate, map[string]string{
		"email": email,
		"code":  code,
	})
}

// CreateWallet provisions a custodial wallet on the given chain.
func (c *Client) CreateWallet(ctx context.Context, chainType string) (Response, error) {
	return c.probe(ctx, OpWallet, map[string]string{
		"chain_type": chainType,
	})
}

// Get performs one authenticated GET without retries.
func (c *Client) Get(ctx context.Context, ep Endpoint) (Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ep.URL, nil)
	if err != nil {
		return Response{}, fmt.Errorf("build request: %w", err)
	}
	c.authorize(req)
	return c.do(req, ep)
}

// probe walks the candidates for op: 404 moves on, any other status stops.
func (c *Client) probe(ctx context.Context, op Operation, payload any) (Response, error) {
	if !c.creds.Configured() {
		return Response{}, ErrCredentialsMissing
	}
	candidates := c.endpoints.Endpoints(op)
	if len(candidates) == 0 {
		return Response{}, ErrNoCandidates
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Response{}, fmt.Errorf("encode %s payload: %w", op, err)
	}

	var (
		lastErr     error
		sawNotFound bool
	)
	for _, ep := range candidates {
		resp, err := c.postWithRetry(ctx, op, ep, body)
		if err != nil {
			if ctx.Err() != nil {
				return Response{}, err
			}
			c.logger.Warn("privy endpoint unreachable",
				slog.String("operation", string(op)),
				slog.String("endpoint", ep.Name),
				slog.Any("error", err),
			)
			lastErr = err
			continue
		}
		if resp.Status == http.StatusNotFound {
			sawNotFound = true
			c.logger.Debug("privy endpoint not found, trying next",
				slog.String("operation", string(op)),
				slog.String("endpoint", ep.Name),
			)
			continue
		}
		c.logger.Info("privy endpoint responded",
			slog.String("operation", string(op)),
			slog.String("endpoint", ep.Name),
			slog.Int("status", resp.Status),
		)
		return resp, nil
	}

	if sawNotFound || lastErr == nil {
		return Response{}, fmt.Errorf("%s: %w", op, ErrEndpointNotFound)
	}
	return Response{}, lastErr
}

func (c *Client) postWithRetry(ctx context.Context, op Operation, ep Endpoint, body []byte) (Response, error) {
	for attempt := 1; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.URL, bytes.NewReader(body))
		if err != nil {
			return Response{}, fmt.Errorf("build request: %w", err)
		}
		c.authorize(req)

		start := time.Now()
		resp, err := c.do(req, ep)
		if err == nil {
			c.metrics.ObserveAttempt(string(op), outcomeFor(resp.Status), time.Since(start))
			return resp, nil
		}
		c.metrics.ObserveAttempt(string(op), metrics.OutcomeTransport, time.Since(start))
		c.logger.Warn("privy attempt failed",
			slog.String("operation", string(op)),
			slog.String("endpoint", ep.Name),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", c.retry.MaxAttempts),
			slog.Any("error", err),
		)

		if attempt >= c.retry.MaxAttempts || ctx.Err() != nil {
			return Response{}, &TransportError{Endpoint: ep.URL, Attempts: attempt, Err: err}
		}
		if err := c.sleep(ctx, c.retry.Delay(attempt)); err != nil {
			return Response{}, &TransportError{Endpoint: ep.URL, Attempts: attempt, Err: err}
		}
	}
}

func (c *Client) authorize(req *http.Request) {
	req.SetBasicAuth(c.creds.AppID, c.creds.AppSecret)
	req.Header.Set(appIDHeader, c.creds.AppID)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
}

func (c *Client) do(req *http.Request, ep Endpoint) (Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return Response{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return Response{}, fmt.Errorf("read response: %w", err)
	}
	return Response{Endpoint: ep, Status: resp.StatusCode, Body: body}, nil
}

func outcomeFor(status int) string {
	switch {
	case status == http.StatusNotFound:
		return metrics.OutcomeNotFound
	case status >= 200 && status < 300:
		return metrics.OutcomeOK
	default:
		return metrics.OutcomeStatus
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
