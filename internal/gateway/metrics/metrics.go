// Package metrics holds the gateway's Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/nearbynurse/pkg/authz"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "nearbynurse_gateway"

// Metrics owns a registry so tests and multiple gateways in one process do
// not collide on the default registerer.
type Metrics struct {
	reg *prometheus.Registry

	VerifyTotal      *prometheus.CounterVec
	KeyFetchTotal    *prometheus.CounterVec
	DenyTotal        *prometheus.CounterVec
	ProvisionTotal   *prometheus.CounterVec
	ProvisionSeconds prometheus.Histogram
	Orphans          prometheus.Gauge
}

// New creates the collectors and registers them, together with the Go and
// process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		VerifyTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "token",
				Name:      "verifications_total",
				Help:      "Bearer token verifications by outcome (ok or rejection kind)",
			},
			[]string{"outcome"},
		),
		KeyFetchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "jwks",
				Name:      "fetches_total",
				Help:      "Key set fetches by result",
			},
			[]string{"result"},
		),
		DenyTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "authz",
				Name:      "denials_total",
				Help:      "Requests denied for missing roles, by route requirement",
			},
			[]string{"requirement"},
		),
		ProvisionTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "provision",
				Name:      "accounts_total",
				Help:      "Account provisioning attempts by outcome",
			},
			[]string{"outcome"},
		),
		ProvisionSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "provision",
				Name:      "duration_seconds",
				Help:      "Time spent provisioning an account across all upstream calls",
				Buckets:   prometheus.DefBuckets,
			},
		),
		Orphans: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "provision",
				Name:      "orphans",
				Help:      "Accounts created without a credential and awaiting an operator",
			},
		),
	}

	m.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.VerifyTotal,
		m.KeyFetchTotal,
		m.DenyTotal,
		m.ProvisionTotal,
		m.ProvisionSeconds,
		m.Orphans,
	)
	return m
}

// ObserveVerify has the shape of httpx.VerifyObserver.
func (m *Metrics) ObserveVerify(outcome string) {
	m.VerifyTotal.WithLabelValues(outcome).Inc()
}

// ObserveKeyFetch has the shape of jwtx.FetchObserver.
func (m *Metrics) ObserveKeyFetch(result string) {
	m.KeyFetchTotal.WithLabelValues(result).Inc()
}

// ObserveDeny has the shape of httpx.DenyObserver.
func (m *Metrics) ObserveDeny(req authz.Requirement, _ []string) {
	m.DenyTotal.WithLabelValues(req.String()).Inc()
}

// ObserveProvision records one CreateAccount call.
func (m *Metrics) ObserveProvision(outcome string, took time.Duration) {
	m.ProvisionTotal.WithLabelValues(outcome).Inc()
	m.ProvisionSeconds.Observe(took.Seconds())
}

// SetOrphans reports the current size of the orphan ledger.
func (m *Metrics) SetOrphans(n int) {
	m.Orphans.Set(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}
