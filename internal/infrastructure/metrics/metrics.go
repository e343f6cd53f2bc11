// Package metrics owns the Prometheus registry for HTTP traffic and mall
// status changes.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics implements ports.StatusMetrics.
type Metrics struct {
	registry        *prometheus.Registry
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	mallStatus      *prometheus.CounterVec
	storeStatus     *prometheus.CounterVec
	storeUpdates    prometheus.Counter
	persistFailures *prometheus.CounterVec
}

// New creates the collectors and registers them on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		mallStatus: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mallmap_mall_status_changes_total",
				Help: "Mall open/close toggles",
			},
			[]string{"state"},
		),
		storeStatus: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mallmap_store_status_changes_total",
				Help: "Store open/close changes, including those forced by a mall closing",
			},
			[]string{"state", "cause"},
		),
		storeUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mallmap_store_updates_total",
			Help: "Store detail updates",
		}),
		persistFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mallmap_persist_failures_total",
				Help: "Mutations whose document write failed",
			},
			[]string{"operation"},
		),
	}

	m.registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.mallStatus,
		m.storeStatus,
		m.storeUpdates,
		m.persistFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) MallToggled(isOpen bool) {
	m.mallStatus.WithLabelValues(state(isOpen)).Inc()
}

func (m *Metrics) StoreToggled(isOpen, cascade bool) {
	cause := "manual"
	if cascade {
		cause = "mall_closed"
	}
	m.storeStatus.WithLabelValues(state(isOpen), cause).Inc()
}

func (m *Metrics) StoreUpdated() {
	m.storeUpdates.Inc()
}

func (m *Metrics) PersistFailed(operation string) {
	m.persistFailures.WithLabelValues(operation).Inc()
}

// Middleware records request counts and latency by route pattern.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			status := c.Response().Status
			if err != nil {
				status = http.StatusInternalServerError
				var he *echo.HTTPError
				if errors.As(err, &he) {
					status = he.Code
				}
			}

			m.requestsTotal.WithLabelValues(
				c.Request().Method,
				c.Path(),
				strconv.Itoa(status),
			).Inc()

			m.requestDuration.WithLabelValues(
				c.Request().Method,
				c.Path(),
			).Observe(time.Since(start).Seconds())

			return err
		}
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func state(isOpen bool) string {
	if isOpen {
		return "open"
	}
	return "closed"
}
