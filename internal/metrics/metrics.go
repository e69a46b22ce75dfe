package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lootbazaar"

// Metrics holds the service's Prometheus collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpInFlight   prometheus.Gauge
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	stakesCreated  prometheus.Counter
	stakedAmount   prometheus.Counter
	claims         *prometheus.CounterVec
	unstakes       *prometheus.CounterVec
	artifacts      *prometheus.CounterVec
	custodyResults *prometheus.CounterVec
}

// New registers all collectors on registry
func New(registry *prometheus.Registry) *Metrics {
	factory := promauto.With(registry)
	return &Metrics{
		registry: registry,
		httpInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "path", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		}, []string{"method", "path"}),
		stakesCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "staking",
			Name:      "stakes_created_total",
			Help:      "Total number of stake records created.",
		}),
		stakedAmount: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "staking",
			Name:      "staked_amount_total",
			Help:      "Total amount of tokens moved into custody.",
		}),
		claims: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "staking",
			Name:      "claims_total",
			Help:      "Claim attempts by result.",
		}, []string{"result"}),
		unstakes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "staking",
			Name:      "unstakes_total",
			Help:      "Unstake attempts by result.",
		}, []string{"result"}),
		artifacts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rewards",
			Name:      "artifacts_minted_total",
			Help:      "Reward artifact mint attempts by tier and result.",
		}, []string{"tier", "result"}),
		custodyResults: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "custody",
			Name:      "requests_total",
			Help:      "Custody requests sent to the token ledger by operation and result.",
		}, []string{"operation", "result"}),
	}
}

// NewDefault creates a registry with process and Go collectors and registers all service collectors on it
func NewDefault() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return New(registry)
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RequestStarted tracks an in-flight request and returns a func that records its completion
func (m *Metrics) RequestStarted() func(method, path string, status int, seconds float64) {
	if m == nil {
		return func(string, string, int, float64) {}
	}
	m.httpInFlight.Inc()
	return func(method, path string, status int, seconds float64) {
		m.httpInFlight.Dec()
		m.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(method, path).Observe(seconds)
	}
}

// StakeCreated records a successful stake
func (m *Metrics) StakeCreated(amount uint64) {
	if m == nil {
		return
	}
	m.stakesCreated.Inc()
	m.stakedAmount.Add(float64(amount))
}

// ClaimResult records the outcome of a claim attempt
func (m *Metrics) ClaimResult(result string) {
	if m == nil {
		return
	}
	m.claims.WithLabelValues(result).Inc()
}

// UnstakeResult records the outcome of an unstake attempt
func (m *Metrics) UnstakeResult(result string) {
	if m == nil {
		return
	}
	m.unstakes.WithLabelValues(result).Inc()
}

// ArtifactResult records the outcome of a reward artifact mint
func (m *Metrics) ArtifactResult(tier uint8, result string) {
	if m == nil {
		return
	}
	m.artifacts.WithLabelValues(strconv.Itoa(int(tier)), result).Inc()
}

// CustodyResult records the outcome of a custody request
func (m *Metrics) CustodyResult(operation, result string) {
	if m == nil {
		return
	}
	m.custodyResults.WithLabelValues(operation, result).Inc()
}
