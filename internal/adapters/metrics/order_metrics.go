package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetricsCollector handles order ingestion metrics
type OrderMetricsCollector struct {
	ordersTotal    *prometheus.CounterVec
	ingestDuration prometheus.Histogram
}

// NewOrderMetricsCollector creates a new order metrics collector
func NewOrderMetricsCollector() *OrderMetricsCollector {
	return &OrderMetricsCollector{
		// Ingested orders by terminal status
		ordersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "orders_ingested_total",
				Help:      "Total number of commerce orders ingested by terminal status",
			},
			[]string{"status"},
		),

		ingestDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "order_ingest_duration_seconds",
				Help:      "Order ingestion duration distribution",
				Buckets:   []float64{0.05, 0.1, 0.5, 1.0, 2.0, 5.0, 10.0},
			},
		),
	}
}

// Register registers all order metrics with the given registry
func (c *OrderMetricsCollector) Register(registry *prometheus.Registry) error {
	if err := registry.Register(c.ordersTotal); err != nil {
		return err
	}
	return registry.Register(c.ingestDuration)
}

// OrderIngested records one order reaching a terminal status
func (c *OrderMetricsCollector) OrderIngested(status string) {
	c.ordersTotal.WithLabelValues(status).Inc()
}

// IngestObserved records one ingestion's duration in seconds
func (c *OrderMetricsCollector) IngestObserved(seconds float64) {
	c.ingestDuration.Observe(seconds)
}
