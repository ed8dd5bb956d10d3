package observability

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for manifest emission
type Metrics struct {
	registry *prometheus.Registry

	// Manifest pass metrics
	passesTotal   *prometheus.CounterVec
	passDuration  *prometheus.HistogramVec
	manifestFiles prometheus.Gauge
	manifestBytes prometheus.Gauge

	// Persistence metrics
	writesTotal   *prometheus.CounterVec
	writeDuration *prometheus.HistogramVec

	// Module tracking
	trackedModuleAssets prometheus.Gauge

	// Dev server HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates all metrics on a private registry so several emitters,
// or tests, never collide on registration
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		registry: reg,

		passesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assetmanifest_passes_total",
				Help: "Total number of manifest passes by result",
			},
			[]string{"result"},
		),
		passDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "assetmanifest_pass_duration_seconds",
				Help:    "Time spent building, serializing and emitting a manifest",
				Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"result"},
		),
		manifestFiles: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "assetmanifest_files",
				Help: "Number of files in the most recent manifest",
			},
		),
		manifestBytes: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "assetmanifest_bytes",
				Help: "Serialized size of the most recent manifest",
			},
		),
		writesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assetmanifest_writes_total",
				Help: "Total number of manifest writes by storage backend and status",
			},
			[]string{"backend", "status"},
		),
		writeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "assetmanifest_write_duration_seconds",
				Help:    "Manifest write latency in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"backend"},
		),
		trackedModuleAssets: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "assetmanifest_tracked_module_assets",
				Help: "Number of module assets known to the tracker",
			},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assetmanifest_http_requests_total",
				Help: "Total number of dev server HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "assetmanifest_http_request_duration_seconds",
				Help:    "Dev server HTTP request latency in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"method", "path", "status"},
		),
	}

	return m
}

// Registry returns the registry the metrics are registered on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordPass records the outcome of one manifest pass
func (m *Metrics) RecordPass(result string, files, bytes int, duration time.Duration) {
	m.passesTotal.WithLabelValues(result).Inc()
	m.passDuration.WithLabelValues(result).Observe(duration.Seconds())
	if result == "success" {
		m.manifestFiles.Set(float64(files))
		m.manifestBytes.Set(float64(bytes))
	}
}

// RecordWrite records a manifest write to a storage backend
func (m *Metrics) RecordWrite(backend string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	m.writesTotal.WithLabelValues(backend, status).Inc()
	m.writeDuration.WithLabelValues(backend).Observe(duration.Seconds())
}

// SetTrackedModuleAssets updates the tracked module asset gauge
func (m *Metrics) SetTrackedModuleAssets(n int) {
	m.trackedModuleAssets.Set(float64(n))
}

// MetricsMiddleware returns a Fiber middleware that collects HTTP metrics
func (m *Metrics) MetricsMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		path := normalizePath(c.Path())
		method := c.Method()

		err := c.Next()

		status := statusClass(c.Response().StatusCode())
		m.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		m.httpRequestDuration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())

		return err
	}
}

// Handler returns a Fiber handler that exposes Prometheus metrics
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

// normalizePath keeps label cardinality bounded
func normalizePath(path string) string {
	if len(path) > 50 {
		return "long_path"
	}
	return path
}

// statusClass returns the HTTP status class (2xx, 3xx, 4xx, 5xx)
func statusClass(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 300 && status < 400:
		return "3xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
