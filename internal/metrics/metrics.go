package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Provider attempt outcomes.
const (
	OutcomeOK        = "ok"
	OutcomeNotFound  = "not_found"
	OutcomeStatus    = "status_error"
	OutcomeTransport = "transport_error"
)

var providerLatencyBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 15}

// Metrics groups the relay collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	ProviderAttempts  *prometheus.CounterVec
	ProviderLatency   *prometheus.HistogramVec
	RelayRequests     *prometheus.CounterVec
	WalletOutcomes    *prometheus.CounterVec
	ProviderReachable *prometheus.GaugeVec
}

// New registers the relay collectors on reg under the given namespace.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		ProviderAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_attempts_total",
				Help:      "Outbound identity provider attempts by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		ProviderLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "provider_request_duration_seconds",
				Help:      "Latency of single outbound identity provider attempts",
				Buckets:   providerLatencyBuckets,
			},
			[]string{"operation"},
		),
		RelayRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "relay_requests_total",
				Help:      "Relay HTTP requests by route and status",
			},
			[]string{"route", "status"},
		),
		WalletOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "wallet_provisioning_total",
				Help:      "Wallet provisioning results after a verified code",
			},
			[]string{"outcome"},
		),
		ProviderReachable: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "diagnostics_probe_up",
				Help:      "1 when the last diagnostics probe succeeded, 0 otherwise",
			},
			[]string{"probe"},
		),
	}
}

// ObserveAttempt records one provider attempt.
func (m *Metrics) ObserveAttempt(operation, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.ProviderAttempts.WithLabelValues(operation, outcome).Inc()
	m.ProviderLatency.WithLabelValues(operation).Observe(took.Seconds())
}

// ObserveRequest records a completed relay request.
func (m *Metrics) ObserveRequest(route string, status int) {
	if m == nil {
		return
	}
	m.RelayRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

// ObserveWallet records a wallet provisioning outcome (created, cached, failed).
func (m *Metrics) ObserveWallet(outcome string) {
	if m == nil {
		return
	}
	m.WalletOutcomes.WithLabelValues(outcome).Inc()
}

// SetProbe records the latest state of a diagnostics probe.
func (m *Metrics) SetProbe(probe string, ok bool) {
	if m == nil {
		return
	}
	v := 0.0
	if ok {
		v = 1
	}
	m.ProviderReachable.WithLabelValues(probe).Set(v)
}
