package gateway

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/flemzord/recall/internal/knowledge"
	"github.com/flemzord/recall/internal/memory"
	"github.com/flemzord/recall/internal/protocol"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "recall"

var _ protocol.Observer = (*Metrics)(nil)

// Metrics records protocol and chat activity. Counters are exported in
// Prometheus format on a private registry and mirrored in atomic totals
// for the /status snapshot.
type Metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	chats    *prometheus.CounterVec

	protocolCalls  atomic.Int64
	protocolErrors atomic.Int64
	chatsAnswered  atomic.Int64
	chatsDegraded  atomic.Int64
	chatLatency    atomic.Int64 // nanoseconds
}

// NewMetrics creates the collectors and registers them, together with the
// Go runtime and process collectors, on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "protocol_requests_total",
			Help:      "Knowledge protocol requests by method and outcome code.",
		}, []string{"method", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "protocol_request_duration_seconds",
			Help:      "Knowledge protocol request latency.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method"}),
		chats: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "chat_requests_total",
			Help:      "Answer pipeline runs by outcome.",
		}, []string{"outcome"}),
	}
	m.registry.MustRegister(
		m.requests,
		m.duration,
		m.chats,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// WatchStats exports gauges sampled from kb and mem at scrape time.
func (m *Metrics) WatchStats(kb func() knowledge.Stats, mem func() memory.Stats) {
	m.registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "knowledge_documents",
			Help:      "Documents in the knowledge base.",
		}, func() float64 { return float64(kb().TotalDocuments) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "memory_active_users",
			Help:      "Users with short-term history.",
		}, func() float64 { return float64(mem().ActiveUsers) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "memory_long_term_documents",
			Help:      "Archived long-term memories.",
		}, func() float64 { return float64(mem().LongTermDocuments) }),
	)
}

// ObserveRequest implements protocol.Observer.
func (m *Metrics) ObserveRequest(method, code string, elapsed time.Duration) {
	m.requests.WithLabelValues(method, code).Inc()
	m.duration.WithLabelValues(method).Observe(elapsed.Seconds())
	m.protocolCalls.Add(1)
	if code != "ok" {
		m.protocolErrors.Add(1)
	}
}

// RecordChat records one answer pipeline run.
func (m *Metrics) RecordChat(degraded bool, latency time.Duration) {
	outcome := "answered"
	if degraded {
		outcome = "degraded"
		m.chatsDegraded.Add(1)
	} else {
		m.chatsAnswered.Add(1)
	}
	m.chats.WithLabelValues(outcome).Inc()
	m.chatLatency.Add(int64(latency))
}

// Handler serves the Prometheus exposition for the private registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Snapshot returns a consistent point-in-time view of the counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	answered, degraded := m.chatsAnswered.Load(), m.chatsDegraded.Load()
	snap := MetricsSnapshot{
		ProtocolCalls:  m.protocolCalls.Load(),
		ProtocolErrors: m.protocolErrors.Load(),
		ChatsAnswered:  answered,
		ChatsDegraded:  degraded,
	}
	if n := answered + degraded; n > 0 {
		snap.AvgChatLatency = time.Duration(m.chatLatency.Load() / n)
	}
	return snap
}

// MetricsSnapshot is a serializable point-in-time metrics view.
type MetricsSnapshot struct {
	ProtocolCalls  int64         `json:"protocol_calls"`
	ProtocolErrors int64         `json:"protocol_errors"`
	ChatsAnswered  int64         `json:"chats_answered"`
	ChatsDegraded  int64         `json:"chats_degraded"`
	AvgChatLatency time.Duration `json:"avg_chat_latency_ns"`
}
