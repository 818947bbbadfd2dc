package sync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/retailbridge/rms-commerce-sync/internal/application/common"
	"github.com/retailbridge/rms-commerce-sync/internal/domain/catalog"
	"github.com/retailbridge/rms-commerce-sync/internal/domain/shared"
)

// Lock names guarding the two run kinds. Distinct names let a change-detect
// tick proceed while a full sync is blocked, and vice versa is prevented by
// the scheduler.
const (
	LockChangeDetect = "sync/change-detect"
	LockFullSync     = "sync/full"

	KindChangeDetect = "change-detect"
	KindFullSync     = "full-sync"
)

// Detector run states.
type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateCooldown State = "cooldown"
)

// Detector defaults.
const (
	DefaultBatchCap        = 500
	DefaultLockTTL         = 30 * time.Minute
	DefaultFullSyncLockTTL = 2 * time.Hour
	DefaultRunTimeout      = 30 * time.Minute
)

// DetectorConfig tunes the change detector.
type DetectorConfig struct {
	// BatchCap bounds how many modified item ids one tick picks up.
	BatchCap int
	// LockEnabled toggles the distributed lock; disabled in single-node
	// deployments without Redis.
	LockEnabled bool
	LockTTL     time.Duration
	FullLockTTL time.Duration
	RunTimeout  time.Duration
	// UseCheckpoint toggles watermark reads; when off, every tick re-reads
	// the default lookback window.
	UseCheckpoint bool
	Filter        catalog.RowFilter
	Pipeline      Options
}

func (c *DetectorConfig) normalize() {
	if c.BatchCap <= 0 {
		c.BatchCap = DefaultBatchCap
	}
	if c.LockTTL <= 0 {
		c.LockTTL = DefaultLockTTL
	}
	if c.FullLockTTL <= 0 {
		c.FullLockTTL = DefaultFullSyncLockTTL
	}
	if c.RunTimeout <= 0 {
		c.RunTimeout = DefaultRunTimeout
	}
}

// ChangeDetector coordinates one sync run: lock, watermark, extraction,
// grouping, pipeline, watermark advancement.
type ChangeDetector struct {
	repo     catalog.ItemRepository
	grouper  *catalog.VariantGrouper
	pipeline *Pipeline
	lock     RunLock
	updates  UpdateStore
	recorder RunRecorder
	metrics  MetricsSink
	clock    shared.Clock
	cfg      DetectorConfig

	mu    sync.Mutex
	state State
}

// NewChangeDetector wires a detector. lock and recorder may be nil.
func NewChangeDetector(
	repo catalog.ItemRepository,
	pipeline *Pipeline,
	lock RunLock,
	updates UpdateStore,
	recorder RunRecorder,
	metrics MetricsSink,
	clock shared.Clock,
	cfg DetectorConfig,
) *ChangeDetector {
	cfg.normalize()
	if clock == nil {
		clock = shared.NewRealClock()
	}
	return &ChangeDetector{
		repo:     repo,
		grouper:  catalog.NewVariantGrouper(),
		pipeline: pipeline,
		lock:     lock,
		updates:  updates,
		recorder: recorder,
		metrics:  metrics,
		clock:    clock,
		cfg:      cfg,
		state:    StateIdle,
	}
}

// State returns the detector's current run state.
func (d *ChangeDetector) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *ChangeDetector) setState(s State) {
	d.mu.Lock()
	d.state = s
	d.mu.Unlock()
}

// RunChangeDetect performs one change-detection tick. A held lock is not an
// error: the tick is skipped and a nil summary returned.
func (d *ChangeDetector) RunChangeDetect(ctx context.Context) (*RunSummary, error) {
	return d.run(ctx, KindChangeDetect, LockChangeDetect, d.cfg.LockTTL, d.watermark, d.cfg.Pipeline)
}

// RunFullSync re-syncs the whole catalog regardless of the watermark.
func (d *ChangeDetector) RunFullSync(ctx context.Context, force bool) (*RunSummary, error) {
	opts := d.cfg.Pipeline
	opts.ForceUpdate = opts.ForceUpdate || force
	return d.run(ctx, KindFullSync, LockFullSync, d.cfg.FullLockTTL, noWatermark, opts)
}

func noWatermark() (time.Time, error) { return time.Time{}, nil }

// scope names the resume cursor for a run kind. Operator-filtered runs keep
// a separate cursor so they never resume (or poison) a regular run's.
func (d *ChangeDetector) scope(kind string) string {
	if !d.cfg.Filter.IncludeZeroStock {
		return kind + "/in-stock"
	}
	return kind
}

func (d *ChangeDetector) run(ctx context.Context, kind, lockName string, lockTTL time.Duration, readSince func() (time.Time, error), opts Options) (*RunSummary, error) {
	log := common.LoggerFromContext(ctx).WithField("kind", kind)
	holder := uuid.NewString()

	if d.cfg.LockEnabled && d.lock != nil {
		if err := d.lock.Acquire(ctx, lockName, holder, lockTTL); err != nil {
			if shared.Classify(err) == shared.KindLockHeld {
				log.Info("sync lock held; skipping tick")
				if d.metrics != nil {
					d.metrics.RunSkippedLockHeld(kind)
				}
				return nil, nil
			}
			return nil, err
		}
		lost, stop := d.lock.KeepAlive(ctx, lockName, holder, lockTTL)
		defer stop()
		defer func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = d.lock.Release(releaseCtx, lockName, holder)
		}()

		var cancel context.CancelFunc
		ctx, cancel = context.WithCancel(ctx)
		defer cancel()
		go func() {
			select {
			case <-lost:
				log.Warn("sync lock lost; cancelling run")
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	runCtx, cancelRun := context.WithTimeout(ctx, d.cfg.RunTimeout)
	defer cancelRun()

	d.setState(StateRunning)
	defer d.setState(StateIdle)

	// The watermark is read under the lock so a concurrent run cannot
	// advance it between read and extraction.
	since, err := readSince()
	if err != nil {
		return nil, err
	}

	ids, err := d.repo.ModifiedItems(runCtx, since, d.cfg.BatchCap)
	if err != nil {
		return nil, fmt.Errorf("failed to list modified items: %w", err)
	}
	if len(ids) == 0 {
		log.Debug("no modified items")
		if d.metrics != nil {
			d.metrics.NoChanges()
		}
		return &RunSummary{Kind: kind, StartedAt: d.clock.Now()}, nil
	}

	rows, err := d.repo.FetchItemRows(runCtx, ids, d.cfg.Filter)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch item rows: %w", err)
	}

	products, skippedRows := d.grouper.Group(rows)
	log.WithFields(map[string]any{
		"items":    len(ids),
		"products": len(products),
		"invalid":  skippedRows,
	}).Info("starting sync run")

	syncID := uuid.NewString()
	summary, runErr := d.pipeline.Run(runCtx, syncID, d.scope(kind), kind, products, opts)
	summary.Kind = kind

	ratio := summary.SuccessRate()
	if runErr == nil && d.cfg.UseCheckpoint && d.updates != nil {
		advanced, err := d.updates.Advance(summary.MaxLastUpdated, ratio)
		if err != nil {
			log.WithError(err).Warn("failed to advance watermark")
		} else if advanced {
			log.WithField("watermark", summary.MaxLastUpdated).Info("watermark advanced")
		}
	}
	if d.metrics != nil {
		d.metrics.RunCompleted(kind, summary)
		if !summary.MaxLastUpdated.IsZero() {
			d.metrics.WatermarkAge(d.clock.Now().Sub(summary.MaxLastUpdated))
		}
	}
	if d.recorder != nil {
		if err := d.recorder.RecordRun(ctx, summary); err != nil {
			log.WithError(err).Warn("failed to record run summary")
		}
	}

	log.WithFields(map[string]any{
		"processed": summary.Processed,
		"created":   summary.Created,
		"updated":   summary.Updated,
		"skipped":   summary.Skipped,
		"errors":    summary.Errors,
		"ratio":     fmt.Sprintf("%.3f", ratio),
		"duration":  summary.Duration,
	}).Info("sync run finished")

	return summary, runErr
}

// watermark reads the change-detection cursor, falling back to the store's
// default lookback when checkpoints are disabled.
func (d *ChangeDetector) watermark() (time.Time, error) {
	if !d.cfg.UseCheckpoint || d.updates == nil {
		return time.Time{}, nil
	}
	since, err := d.updates.Read()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read watermark: %w", err)
	}
	return since, nil
}
