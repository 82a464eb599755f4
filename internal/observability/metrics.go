package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics stores Prometheus collectors for the API and the reconciler.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal     *prometheus.CounterVec
	httpRequestDuration   *prometheus.HistogramVec
	reconcilePassesTotal  *prometheus.CounterVec
	reconcilePassDuration prometheus.Histogram
	pendingApps           prometheus.Gauge
	statusChecksTotal     *prometheus.CounterVec
	statusCheckDuration   *prometheus.HistogramVec
	statusUpdatesTotal    prometheus.Counter
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "integration_hub",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "integration_hub",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		reconcilePassesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "integration_hub",
				Name:      "reconcile_passes_total",
				Help:      "Total number of reconciliation passes grouped by outcome.",
			},
			[]string{"outcome"},
		),
		reconcilePassDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "integration_hub",
				Name:      "reconcile_pass_duration_seconds",
				Help:      "Reconciliation pass duration in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
			},
		),
		pendingApps: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "integration_hub",
				Name:      "pending_apps",
				Help:      "Number of apps with at least one pending integration seen by the last pass.",
			},
		),
		statusChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "integration_hub",
				Name:      "status_checks_total",
				Help:      "Total number of provider status checks grouped by integration type and result.",
			},
			[]string{"type", "result"},
		),
		statusCheckDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "integration_hub",
				Name:      "status_check_duration_seconds",
				Help:      "Provider status check duration in seconds grouped by integration type.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"type"},
		),
		statusUpdatesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "integration_hub",
				Name:      "status_updates_total",
				Help:      "Total number of integration status updates dispatched to the write path.",
			},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.reconcilePassesTotal,
		m.reconcilePassDuration,
		m.pendingApps,
		m.statusChecksTotal,
		m.statusCheckDuration,
		m.statusUpdatesTotal,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) HTTPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := routePath(c)
		// Avoid self-scrape noise for request counters.
		if path == "/metrics" {
			return err
		}

		m.recordHTTPRequest(c.Method(), path, statusFromResult(c, err), time.Since(start))
		return err
	}
}

func (m *Metrics) IncReconcilePass(outcome string) {
	if m == nil {
		return
	}
	m.reconcilePassesTotal.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *Metrics) ObserveReconcilePassDuration(duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.reconcilePassDuration.Observe(seconds)
}

func (m *Metrics) SetPendingApps(count int) {
	if m == nil {
		return
	}
	m.pendingApps.Set(float64(count))
}

func (m *Metrics) IncStatusCheck(integrationType string, result string) {
	if m == nil {
		return
	}
	m.statusChecksTotal.WithLabelValues(normalizeLabel(integrationType), normalizeLabel(result)).Inc()
}

func (m *Metrics) ObserveStatusCheckDuration(integrationType string, duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.statusCheckDuration.WithLabelValues(normalizeLabel(integrationType)).Observe(seconds)
}

func (m *Metrics) AddStatusUpdates(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.statusUpdatesTotal.Add(float64(count))
}

func (m *Metrics) recordHTTPRequest(method string, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	methodLabel := strings.ToUpper(strings.TrimSpace(method))
	if methodLabel == "" {
		methodLabel = "UNKNOWN"
	}
	pathLabel := strings.TrimSpace(path)
	if pathLabel == "" {
		pathLabel = "unmatched"
	}

	m.httpRequestsTotal.WithLabelValues(methodLabel, pathLabel, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(methodLabel, pathLabel).Observe(duration.Seconds())
}

func routePath(c *fiber.Ctx) string {
	if c == nil {
		return "unmatched"
	}

	if route := c.Route(); route != nil {
		if path := strings.TrimSpace(route.Path); path != "" {
			return path
		}
	}
	return "unmatched"
}

func statusFromResult(c *fiber.Ctx, err error) int {
	if err != nil {
		if fiberErr, ok := err.(*fiber.Error); ok {
			return fiberErr.Code
		}
		return fiber.StatusInternalServerError
	}

	if c == nil {
		return fiber.StatusOK
	}

	status := c.Response().StatusCode()
	if status == 0 {
		return fiber.StatusOK
	}
	return status
}

func normalizeLabel(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}
