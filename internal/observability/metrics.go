package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the agent's Prometheus instruments on an owned registry so
// tests can construct fresh instances.
type Metrics struct {
	registry *prometheus.Registry

	// RejectionsTotal counts requests terminated by an admission stage,
	// labeled by stage (auth, ratelimit, deceive, version_guard) and status.
	RejectionsTotal *prometheus.CounterVec

	// RequestsTotal counts requests that cleared the whole pipeline.
	RequestsTotal *prometheus.CounterVec

	// RateLimitWarnings counts escalated warning-tracker events.
	RateLimitWarnings prometheus.Counter

	// TrackedClients gauges the number of live client windows.
	TrackedClients prometheus.Gauge

	server *http.Server
}

// NewMetrics creates the instrument set on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RejectionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "perch_admission_rejections_total",
			Help: "Requests terminated by an admission pipeline stage",
		}, []string{"stage", "status"}),
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "perch_requests_total",
			Help: "Requests that passed the admission pipeline",
		}, []string{"method", "status"}),
		RateLimitWarnings: factory.NewCounter(prometheus.CounterOpts{
			Name: "perch_ratelimit_warnings_total",
			Help: "Escalated rate limit warning events",
		}),
		TrackedClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "perch_ratelimit_tracked_clients",
			Help: "Client windows currently held by the rate limiter",
		}),
	}
}

// Handler returns the scrape handler for the owned registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes the registry on its own listener, outside the admission
// pipeline, so scrapes are never token-gated or rate limited.
func (m *Metrics) Serve(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	m.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		if err := m.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if ServerLogger != nil {
				ServerLogger.Error("metrics listener failed: " + err.Error())
			}
		}
	}()
	return nil
}

// Shutdown stops the metrics listener if one was started.
func (m *Metrics) Shutdown(ctx context.Context) error {
	if m.server == nil {
		return nil
	}
	return m.server.Shutdown(ctx)
}
