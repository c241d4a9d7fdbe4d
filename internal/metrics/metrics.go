// Package metrics exposes Prometheus instrumentation for the ledger API.
package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry        *prometheus.Registry
	adjustments     *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New builds the collectors on a private registry, so several instances can
// coexist in tests.
func New() *Metrics {
	adjustments := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_adjustments_total",
			Help: "Quantity adjustments by transaction type and outcome",
		},
		[]string{"type", "result"},
	)

	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "inventory_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		adjustments,
		requestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Metrics{
		registry:        registry,
		adjustments:     adjustments,
		requestDuration: requestDuration,
	}
}

// ObserveAdjustment counts one AdjustQuantity outcome.
func (m *Metrics) ObserveAdjustment(txType, result string) {
	m.adjustments.WithLabelValues(txType, result).Inc()
}

// Middleware records the latency of every request under its route pattern,
// not the raw path, to keep label cardinality bounded.
func (m *Metrics) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}

		m.requestDuration.
			WithLabelValues(c.Method(), c.Route().Path, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
		return err
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
