// Package metrics owns the Prometheus collectors of the bot and the small
// HTTP listener that exposes them together with a health probe.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "schoolbot"

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	updates            *prometheus.CounterVec
	handlerDuration    *prometheus.HistogramVec
	broadcastDelivered *prometheus.CounterVec
	cleanupDeletes     *prometheus.CounterVec
	sendFailures       *prometheus.CounterVec
	sessions           prometheus.Gauge
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		updates: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "updates_total",
			Help:      "Telegram updates handled, by kind.",
		}, []string{"kind"}),
		handlerDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "handler_duration_seconds",
			Help:      "Time spent handling one update.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind", "outcome"}),
		broadcastDelivered: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_deliveries_total",
			Help:      "Broadcast deliveries to subscribers, by outcome.",
		}, []string{"outcome"}),
		cleanupDeletes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cleanup_deletes_total",
			Help:      "Best-effort message deletions while draining trails, by outcome.",
		}, []string{"outcome"}),
		sendFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_failures_total",
			Help:      "Queued Bot API calls given up on, by action and error kind.",
		}, []string{"action", "kind"}),
		sessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions",
			Help:      "Conversation sessions held in memory.",
		}),
	}
}

// ObserveUpdate counts one handled update and its duration.
func (m *Metrics) ObserveUpdate(kind, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.updates.WithLabelValues(kind).Inc()
	m.handlerDuration.WithLabelValues(kind, outcome).Observe(took.Seconds())
}

// Delivery records a broadcast send result.
func (m *Metrics) Delivery(ok bool) {
	if m == nil {
		return
	}
	m.broadcastDelivered.WithLabelValues(outcomeLabel(ok)).Inc()
}

// Cleanup records the result of a drain.
func (m *Metrics) Cleanup(deleted, ignored int) {
	if m == nil {
		return
	}
	if deleted > 0 {
		m.cleanupDeletes.WithLabelValues("ok").Add(float64(deleted))
	}
	if ignored > 0 {
		m.cleanupDeletes.WithLabelValues("ignored").Add(float64(ignored))
	}
}

// SendFailure counts a queued Bot API call that failed for good.
func (m *Metrics) SendFailure(action, kind string) {
	if m == nil {
		return
	}
	m.sendFailures.WithLabelValues(action, kind).Inc()
}

// SetSessions publishes the number of live sessions.
func (m *Metrics) SetSessions(n int) {
	if m == nil {
		return
	}
	m.sessions.Set(float64(n))
}

func outcomeLabel(ok bool) string {
	if ok {
		return "ok"
	}
	return "fail"
}
