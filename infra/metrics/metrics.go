// Package metrics exposes relay counters in the Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/webitel/hose-relay/internal/domain/firehose"
	"github.com/webitel/hose-relay/internal/domain/registry"
)

const namespace = "hose_relay"

// Interface guard
var _ registry.Recorder = (*Metrics)(nil)

// Metrics owns a private registry so tests and multiple apps never collide
// on the global one.
type Metrics struct {
	registry *prometheus.Registry

	sessionsActive prometheus.Gauge
	sessionsTotal  prometheus.Counter
	frames         *prometheus.CounterVec
	posts          *prometheus.CounterVec
	didLookups     *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Relay sessions currently running.",
		}),
		sessionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Relay sessions started.",
		}),
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Upstream frames by pipeline outcome.",
		}, []string{"reason"}),
		posts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "posts_total",
			Help:      "Produced posts by delivery result.",
		}, []string{"result"}),
		didLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "did_lookups_total",
			Help:      "DID resolutions by result.",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.sessionsActive,
		m.sessionsTotal,
		m.frames,
		m.posts,
		m.didLookups,
	)
	return m
}

func (m *Metrics) SessionStarted() {
	m.sessionsActive.Inc()
	m.sessionsTotal.Inc()
}

func (m *Metrics) SessionEnded() { m.sessionsActive.Dec() }

func (m *Metrics) FrameProcessed(reason firehose.Reason) {
	if reason == firehose.ReasonNone {
		return
	}
	m.frames.WithLabelValues(string(reason)).Inc()
}

func (m *Metrics) PostDelivered(result registry.DeliveryResult) {
	m.posts.WithLabelValues(string(result)).Inc()
}

// DIDLookup counts one resolution; cached reports a cache hit.
func (m *Metrics) DIDLookup(cached bool, err error) {
	result := "miss"
	switch {
	case err != nil:
		result = "error"
	case cached:
		result = "hit"
	}
	m.didLookups.WithLabelValues(result).Inc()
}

// Handler serves the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Gatherer exposes the registry to tests.
func (m *Metrics) Gatherer() prometheus.Gatherer { return m.registry }
