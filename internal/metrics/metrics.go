package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type CartMetrics struct {
	Operations *prometheus.CounterVec
	LatencyMS  *prometheus.HistogramVec
}

func NewCartMetrics(service string) *CartMetrics {
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "goshop",
		Subsystem: service,
		Name:      "cart_operations_total",
		Help:      "Total number of cart operations.",
	}, []string{"operation", "outcome"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "goshop",
		Subsystem: service,
		Name:      "cart_operation_duration_ms",
		Help:      "Cart operation latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"operation"})

	prometheus.MustRegister(operations, latency)
	return &CartMetrics{Operations: operations, LatencyMS: latency}
}

// Observe records one finished operation.
func (m *CartMetrics) Observe(operation, outcome string, started time.Time) {
	m.Operations.WithLabelValues(operation, outcome).Inc()
	m.LatencyMS.WithLabelValues(operation).Observe(float64(time.Since(started).Milliseconds()))
}

func Handler() http.Handler {
	return promhttp.Handler()
}
