package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/retailbridge/rms-commerce-sync/internal/application/sync"
)

// SyncMetricsCollector handles all product sync metrics
type SyncMetricsCollector struct {
	productsProcessed *prometheus.CounterVec
	inventoryUpdates  *prometheus.CounterVec
	runsTotal         *prometheus.CounterVec
	runsSkipped       *prometheus.CounterVec
	noChanges         prometheus.Counter
	apiRetries        *prometheus.CounterVec
	runSuccessRatio   *prometheus.GaugeVec
	watermarkAge      prometheus.Gauge
	productDuration   prometheus.Histogram
	runDuration       *prometheus.HistogramVec
}

// NewSyncMetricsCollector creates a new sync metrics collector
func NewSyncMetricsCollector() *SyncMetricsCollector {
	return &SyncMetricsCollector{
		// Products processed by outcome
		productsProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "products_processed_total",
				Help:      "Total number of products processed by outcome",
			},
			[]string{"outcome"},
		),

		// Inventory pushes by result
		inventoryUpdates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "inventory_updates_total",
				Help:      "Total number of per-variant inventory pushes by result",
			},
			[]string{"result"},
		),

		// Completed runs by kind
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "runs_total",
				Help:      "Total number of completed sync runs by kind",
			},
			[]string{"kind"},
		),

		// Ticks skipped because the lock was held
		runsSkipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "runs_skipped_lock_held_total",
				Help:      "Total number of sync ticks skipped because the lock was held",
			},
			[]string{"kind"},
		),

		noChanges: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "no_changes_total",
				Help:      "Total number of ticks that found no modified items",
			},
		),

		// Retry attempts counter
		apiRetries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "api_retries_total",
				Help:      "Total number of commerce API retry attempts",
			},
			[]string{"operation"},
		),

		runSuccessRatio: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "run_success_ratio",
				Help:      "Success ratio of the most recent sync run",
			},
			[]string{"kind"},
		),

		watermarkAge: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "watermark_age_seconds",
				Help:      "Age of the change-detection watermark",
			},
		),

		// Per-product sync duration histogram
		productDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "product_sync_duration_seconds",
				Help:      "Per-product sync duration distribution",
				Buckets:   []float64{0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0, 120.0},
			},
		),

		// Run duration histogram by kind
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "run_duration_seconds",
				Help:      "Sync run duration distribution",
				Buckets:   []float64{1, 5, 15, 60, 300, 900, 1800},
			},
			[]string{"kind"},
		),
	}
}

// Register registers all sync metrics with the given registry
func (c *SyncMetricsCollector) Register(registry *prometheus.Registry) error {
	collectors := []prometheus.Collector{
		c.productsProcessed,
		c.inventoryUpdates,
		c.runsTotal,
		c.runsSkipped,
		c.noChanges,
		c.apiRetries,
		c.runSuccessRatio,
		c.watermarkAge,
		c.productDuration,
		c.runDuration,
	}
	for _, collector := range collectors {
		if err := registry.Register(collector); err != nil {
			return err
		}
	}
	return nil
}

// ProductProcessed records one product outcome
func (c *SyncMetricsCollector) ProductProcessed(outcome sync.ProductOutcome) {
	c.productsProcessed.WithLabelValues(string(outcome)).Inc()
}

// InventoryUpdated records one successful inventory push
func (c *SyncMetricsCollector) InventoryUpdated() {
	c.inventoryUpdates.WithLabelValues("updated").Inc()
}

// InventoryFailed records one failed inventory push
func (c *SyncMetricsCollector) InventoryFailed() {
	c.inventoryUpdates.WithLabelValues("failed").Inc()
}

// RunCompleted records a finished run's counters and ratio
func (c *SyncMetricsCollector) RunCompleted(kind string, summary *sync.RunSummary) {
	c.runsTotal.WithLabelValues(kind).Inc()
	c.runSuccessRatio.WithLabelValues(kind).Set(summary.SuccessRate())
	c.runDuration.WithLabelValues(kind).Observe(summary.Duration.Seconds())
}

// RunSkippedLockHeld records a tick skipped because the lock was held
func (c *SyncMetricsCollector) RunSkippedLockHeld(kind string) {
	c.runsSkipped.WithLabelValues(kind).Inc()
}

// NoChanges records a tick that found nothing to do
func (c *SyncMetricsCollector) NoChanges() {
	c.noChanges.Inc()
}

// APIRetries records retry attempts beyond the first for one operation
func (c *SyncMetricsCollector) APIRetries(op string, attempts int) {
	if attempts > 1 {
		c.apiRetries.WithLabelValues(op).Add(float64(attempts - 1))
	}
}

// WatermarkAge updates the watermark age gauge
func (c *SyncMetricsCollector) WatermarkAge(age time.Duration) {
	c.watermarkAge.Set(age.Seconds())
}

// ProductDuration records one product's sync duration
func (c *SyncMetricsCollector) ProductDuration(d time.Duration) {
	c.productDuration.Observe(d.Seconds())
}
