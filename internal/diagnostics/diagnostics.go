package diagnostics

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/tribe-app/tribe_auth/internal/metrics"
	"github.com/tribe-app/tribe_auth/internal/privy"
)

const (
	DefaultBasicURL    = "https://httpbin.org/get"
	DefaultProviderURL = "https://auth.privy.io/api/v1/health"

	probeDNS      = "dns"
	probeBasic    = "basic"
	probeProvider = "privy"

	statusOK = "OK"
)

// Resolver is satisfied by *net.Resolver.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// ConfigProber performs authenticated provider calls for CheckConfig.
type ConfigProber interface {
	Configured() bool
	Endpoints() privy.EndpointSource
	Get(ctx context.Context, ep privy.Endpoint) (privy.Response, error)
}

// ProbeResult is the outcome of one connectivity check.
type ProbeResult struct {
	Name   string        `json:"name"`
	Target string        `json:"target"`
	OK     bool          `json:"ok"`
	Status int           `json:"status,omitempty"`
	Detail string        `json:"detail,omitempty"`
	Took   time.Duration `json:"took_ns"`
}

// Report groups a full diagnostics run.
type Report struct {
	RanAt  time.Time     `json:"ran_at"`
	Probes []ProbeResult `json:"probes"`
}

// Healthy reports whether every probe passed.
func (r Report) Healthy() bool {
	for _, p := range r.Probes {
		if !p.OK {
			return false
		}
	}
	return true
}

// EndpointResult is one row of a provider configuration check.
type EndpointResult struct {
	Status int    `json:"status,omitempty"`
	Data   any    `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

// ConfigReport is the result of CheckConfig.
type ConfigReport struct {
	Message     string                    `json:"message"`
	Credentials map[string]string         `json:"credentials"`
	Results     map[string]EndpointResult `json:"results"`
}

// Runner checks that the relay can reach the network and the provider.
type Runner struct {
	http        *http.Client
	resolver    Resolver
	prober      ConfigProber
	basicURL    string
	providerURL string
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// Option customises a Runner.
type Option func(*Runner)

// WithHTTPClient replaces the client used for unauthenticated probes.
func WithHTTPClient(hc *http.Client) Option {
	return func(r *Runner) { r.http = hc }
}

// WithResolver replaces the DNS resolver.
func WithResolver(res Resolver) Option {
	return func(r *Runner) { r.resolver = res }
}

// WithBasicURL sets the general internet reachability target.
func WithBasicURL(u string) Option {
	return func(r *Runner) {
		if u != "" {
			r.basicURL = u
		}
	}
}

// WithProviderURL sets the provider health target.
func WithProviderURL(u string) Option {
	return func(r *Runner) {
		if u != "" {
			r.providerURL = u
		}
	}
}

// WithMetrics publishes probe results as gauges.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// NewRunner builds a Runner. prober may be nil, in which case CheckConfig
// reports missing credentials only.
func NewRunner(prober ConfigProber, opts ...Option) *Runner {
	r := &Runner{
		http:        &http.Client{Timeout: 10 * time.Second},
		resolver:    net.DefaultResolver,
		prober:      prober,
		basicURL:    DefaultBasicURL,
		providerURL: DefaultProviderURL,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run resolves the provider host, then checks general and provider
// reachability. Results are logged and exported as metrics.
func (r *Runner) Run(ctx context.Context) Report {
	report := Report{RanAt: time.Now().UTC()}
	report.Probes = append(report.Probes,
		r.resolve(ctx),
		r.fetch(ctx, probeBasic, r.basicURL, 5*time.Second),
		r.fetch(ctx, probeProvider, r.providerURL, 10*time.Second),
	)

	for _, p := range report.Probes {
		r.metrics.SetProbe(p.Name, p.OK)
		attrs := []any{
			slog.String("probe", p.Name),
			slog.String("target", p.Target),
			slog.Duration("took", p.Took),
		}
		if p.OK {
			r.logger.Info("diagnostics probe passed", attrs...)
			continue
		}
		r.logger.Warn("diagnostics probe failed", append(attrs, slog.String("detail", p.Detail))...)
	}
	return report
}

// Network performs the quick checks embedded in the health response. Any
// HTTP answer counts as reachable.
func (r *Runner) Network(ctx context.Context) map[string]string {
	out := make(map[string]string, 2)
	for _, p := range []ProbeResult{
		r.fetch(ctx, probeBasic, r.basicURL, 3*time.Second),
		r.fetch(ctx, probeProvider, r.providerURL, 5*time.Second),
	} {
		if p.OK {
			out[p.Name] = statusOK
		} else {
			out[p.Name] = "FAILED: " + p.Detail
		}
	}
	return out
}

// CheckConfig calls every provider health candidate with the service
// credentials and reports what each returned.
func (r *Runner) CheckConfig(ctx context.Context) ConfigReport {
	report := ConfigReport{
		Message:     "Privy configuration test completed",
		Credentials: map[string]string{"appId": "Missing", "appSecret": "Missing"},
		Results:     map[string]EndpointResult{},
	}
	if r.prober == nil {
		return report
	}
	if r.prober.Configured() {
		report.Credentials["appId"] = "Set"
		report.Credentials["appSecret"] = "Set"
	}

	for _, ep := range r.prober.Endpoints().Endpoints(privy.OpHealth) {
		callCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		resp, err := r.prober.Get(callCtx, ep)
		cancel()
		if err != nil {
			report.Results[ep.URL] = EndpointResult{Error: err.Error()}
			continue
		}
		result := EndpointResult{Status: resp.Status}
		if resp.OK() {
			result.Data = privy.Decode(resp.Body)
		} else {
			result.Error = string(resp.Body)
		}
		report.Results[ep.URL] = result
	}
	return report
}

func (r *Runner) resolve(ctx context.Context) ProbeResult {
	host := hostOf(r.providerURL)
	result := ProbeResult{Name: probeDNS, Target: host}
	start := time.Now()

	lookupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	addrs, err := r.resolver.LookupHost(lookupCtx, host)
	result.Took = time.Since(start)
	if err != nil {
		result.Detail = err.Error()
		return result
	}
	result.OK = true
	result.Detail = fmt.Sprintf("%d address(es)", len(addrs))
	return result
}

func (r *Runner) fetch(ctx context.Context, name, target string, timeout time.Duration) ProbeResult {
	result := ProbeResult{Name: name, Target: target}
	start := time.Now()

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, target, nil)
	if err != nil {
		result.Detail = err.Error()
		return result
	}
	req.Header.Set("User-Agent", "tribe-auth-relay/1.0")

	resp, err := r.http.Do(req)
	result.Took = time.Since(start)
	if err != nil {
		result.Detail = err.Error()
		return result
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	result.OK = true
	result.Status = resp.StatusCode
	return result
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return raw
	}
	return u.Hostname()
}
