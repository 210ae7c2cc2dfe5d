// Package metrics implements the observability hooks with Prometheus.
//
// Register at startup and expose the handler on the API server:
//
//	m := metrics.New(prometheus.NewRegistry())
//	m.Register()
//	router.Handle("/metrics", m.Handler())
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/stageflow/pkg/observability"
)

const namespace = "stageflow"

// Metrics holds every collector. It implements all observability hook
// interfaces.
type Metrics struct {
	registry *prometheus.Registry

	assembleTotal    *prometheus.CounterVec
	assembleDuration prometheus.Histogram
	graphNodes       prometheus.Histogram

	renderTotal    *prometheus.CounterVec
	renderDuration *prometheus.HistogramVec
	renderBytes    *prometheus.HistogramVec

	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec
	cacheWrites *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	catalogReloads   *prometheus.CounterVec
	catalogWorkflows prometheus.Gauge
}

// New creates the collectors on reg, along with the Go runtime and process
// collectors.
func New(reg *prometheus.Registry) *Metrics {
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		assembleTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assemble_total",
			Help:      "Diagram assemblies by result",
		}, []string{"result"}),
		assembleDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "assemble_duration_seconds",
			Help:      "Time to assemble a diagram, including cache lookups",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		graphNodes: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "graph_nodes",
			Help:      "Nodes per assembled diagram",
			Buckets:   prometheus.ExponentialBuckets(4, 2, 8),
		}),

		renderTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "render_total",
			Help:      "Artifact renders by format and result",
		}, []string{"format", "result"}),
		renderDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "Time to render one artifact",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"format"}),
		renderBytes: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_bytes",
			Help:      "Size of rendered artifacts",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 8),
		}, []string{"format"}),

		cacheHits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Cache hits by key type",
		}, []string{"type"}),
		cacheMisses: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Cache misses by key type",
		}, []string{"type"}),
		cacheWrites: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_writes_total",
			Help:      "Cache writes by key type",
		}, []string{"type"}),

		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "API requests by method, route and status code",
		}, []string{"method", "route", "code"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "API request latency by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),

		catalogReloads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_reloads_total",
			Help:      "Catalog reloads by result",
		}, []string{"result"}),
		catalogWorkflows: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_workflows",
			Help:      "Workflows currently served",
		}),
	}
}

// Register installs m as the global observability hooks.
func (m *Metrics) Register() {
	observability.SetPipelineHooks(m)
	observability.SetCacheHooks(m)
	observability.SetHTTPHooks(m)
	observability.SetCatalogHooks(m)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// SetWorkflows records the catalog size outside of a reload, e.g. at startup.
func (m *Metrics) SetWorkflows(n int) {
	m.catalogWorkflows.Set(float64(n))
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// =============================================================================
// Hook Implementations
// =============================================================================

func (m *Metrics) OnAssembleStart(context.Context, string) {}

func (m *Metrics) OnAssembleComplete(_ context.Context, _ string, nodes, _ int, d time.Duration, err error) {
	m.assembleTotal.WithLabelValues(result(err)).Inc()
	m.assembleDuration.Observe(d.Seconds())
	if err == nil {
		m.graphNodes.Observe(float64(nodes))
	}
}

func (m *Metrics) OnRenderStart(context.Context, string) {}

func (m *Metrics) OnRenderComplete(_ context.Context, format string, size int, d time.Duration, err error) {
	m.renderTotal.WithLabelValues(format, result(err)).Inc()
	m.renderDuration.WithLabelValues(format).Observe(d.Seconds())
	if err == nil {
		m.renderBytes.WithLabelValues(format).Observe(float64(size))
	}
}

func (m *Metrics) OnCacheHit(_ context.Context, keyType string) {
	m.cacheHits.WithLabelValues(keyType).Inc()
}

func (m *Metrics) OnCacheMiss(_ context.Context, keyType string) {
	m.cacheMisses.WithLabelValues(keyType).Inc()
}

func (m *Metrics) OnCacheSet(_ context.Context, keyType string, _ int) {
	m.cacheWrites.WithLabelValues(keyType).Inc()
}

func (m *Metrics) OnResponse(_ context.Context, method, route string, status int, d time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) OnReload(_ context.Context, workflows int, err error) {
	m.catalogReloads.WithLabelValues(result(err)).Inc()
	if err == nil {
		m.catalogWorkflows.Set(float64(workflows))
	}
}

var (
	_ observability.PipelineHooks = (*Metrics)(nil)
	_ observability.CacheHooks    = (*Metrics)(nil)
	_ observability.HTTPHooks     = (*Metrics)(nil)
	_ observability.CatalogHooks  = (*Metrics)(nil)
)
