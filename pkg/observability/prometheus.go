package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics implements every hook interface on top of Prometheus collectors.
// Each Metrics owns its registry so tests and multiple servers never collide
// on the default one.
type Metrics struct {
	registry *prometheus.Registry

	stageDuration *prometheus.HistogramVec
	stageErrors   *prometheus.CounterVec
	cacheEvents   *prometheus.CounterVec
	cacheBytes    prometheus.Counter
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	edgeMutations *prometheus.CounterVec
	edgeDuration  *prometheus.HistogramVec
	sessions      *prometheus.GaugeVec
}

// NewMetrics creates and registers the depview collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "depview_pipeline_stage_seconds",
				Help:    "Duration of pipeline stages",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		stageErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "depview_pipeline_stage_errors_total",
				Help: "Failed pipeline stages",
			},
			[]string{"stage"},
		),
		cacheEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "depview_cache_events_total",
				Help: "Cache hits, misses and writes",
			},
			[]string{"key_type", "event"},
		),
		cacheBytes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "depview_cache_written_bytes_total",
				Help: "Bytes written to the cache",
			},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "depview_backend_requests_total",
				Help: "Requests sent to the backend, by method and status",
			},
			[]string{"method", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "depview_backend_request_seconds",
				Help:    "Backend request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		edgeMutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "depview_edge_mutations_total",
				Help: "Edge mutations issued by the interaction bridge",
			},
			[]string{"op", "result"},
		),
		edgeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "depview_edge_mutation_seconds",
				Help:    "Edge mutation latency as seen by the bridge",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		sessions: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "depview_sessions",
				Help: "Open viewing sessions",
			},
			[]string{"mode"},
		),
	}

	m.registry.MustRegister(
		m.stageDuration,
		m.stageErrors,
		m.cacheEvents,
		m.cacheBytes,
		m.httpRequests,
		m.httpDuration,
		m.edgeMutations,
		m.edgeDuration,
		m.sessions,
	)
	return m
}

// Registry returns the registry holding the depview collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the collected metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Install registers m for every hook category.
func (m *Metrics) Install() {
	SetPipelineHooks(m)
	SetCacheHooks(m)
	SetHTTPHooks(m)
	SetBridgeHooks(m)
}

func (m *Metrics) stage(name string, d time.Duration, err error) {
	m.stageDuration.WithLabelValues(name).Observe(d.Seconds())
	if err != nil {
		m.stageErrors.WithLabelValues(name).Inc()
	}
}

// Pipeline hooks

func (m *Metrics) OnFetchStart(context.Context, string) {}
func (m *Metrics) OnFetchComplete(_ context.Context, _ string, _ int, d time.Duration, err error) {
	m.stage("fetch", d, err)
}
func (m *Metrics) OnLayoutStart(context.Context, string, int) {}
func (m *Metrics) OnLayoutComplete(_ context.Context, _ string, d time.Duration, err error) {
	m.stage("layout", d, err)
}
func (m *Metrics) OnRenderStart(context.Context, []string) {}
func (m *Metrics) OnRenderComplete(_ context.Context, _ []string, d time.Duration, err error) {
	m.stage("render", d, err)
}

// Cache hooks

func (m *Metrics) OnCacheHit(_ context.Context, keyType string) {
	m.cacheEvents.WithLabelValues(keyType, "hit").Inc()
}
func (m *Metrics) OnCacheMiss(_ context.Context, keyType string) {
	m.cacheEvents.WithLabelValues(keyType, "miss").Inc()
}
func (m *Metrics) OnCacheSet(_ context.Context, keyType string, size int) {
	m.cacheEvents.WithLabelValues(keyType, "set").Inc()
	m.cacheBytes.Add(float64(size))
}

// HTTP hooks

func (m *Metrics) OnRequest(context.Context, string, string, string) {}
func (m *Metrics) OnResponse(_ context.Context, method, _, _ string, status int, d time.Duration) {
	m.httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method).Observe(d.Seconds())
}
func (m *Metrics) OnError(_ context.Context, method, _, _ string, _ error) {
	m.httpRequests.WithLabelValues(method, "error").Inc()
}

// Bridge hooks

func (m *Metrics) OnEdgeMutation(_ context.Context, op string, d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "failed"
	}
	m.edgeMutations.WithLabelValues(op, result).Inc()
	m.edgeDuration.WithLabelValues(op).Observe(d.Seconds())
}
func (m *Metrics) OnSession(_ context.Context, edit bool, delta int) {
	mode := "view"
	if edit {
		mode = "edit"
	}
	m.sessions.WithLabelValues(mode).Add(float64(delta))
}

var (
	_ PipelineHooks = (*Metrics)(nil)
	_ CacheHooks    = (*Metrics)(nil)
	_ HTTPHooks     = (*Metrics)(nil)
	_ BridgeHooks   = (*Metrics)(nil)
)
