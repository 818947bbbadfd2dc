package sync

import (
	"context"
	"time"

	"github.com/retailbridge/rms-commerce-sync/internal/adapters/checkpoint"
)

// RunLock is the distributed mutex guarding a sync run. Acquire returns a
// LockHeld error when another holder owns the name; KeepAlive refreshes the
// TTL in the background and closes its channel when the lock is lost.
type RunLock interface {
	Acquire(ctx context.Context, name, holder string, ttl time.Duration) error
	Release(ctx context.Context, name, holder string) error
	KeepAlive(ctx context.Context, name, holder string, ttl time.Duration) (<-chan struct{}, func())
}

// UpdateStore persists the change-detection watermark.
type UpdateStore interface {
	Read() (time.Time, error)
	Advance(maxSeen time.Time, successRatio float64) (bool, error)
}

// ProgressStore persists resumable per-run progress.
type ProgressStore interface {
	Save(cp *checkpoint.ProgressCheckpoint) error
	Load(syncID string) (*checkpoint.ProgressCheckpoint, error)
	FindByScope(scope string) (*checkpoint.ProgressCheckpoint, error)
	Delete(syncID string) error
	GC(retention time.Duration) (int, error)
}

// MetricsSink receives pipeline and run telemetry.
type MetricsSink interface {
	ProductProcessed(outcome ProductOutcome)
	InventoryUpdated()
	InventoryFailed()
	RunCompleted(kind string, summary *RunSummary)
	RunSkippedLockHeld(kind string)
	NoChanges()
	APIRetries(op string, attempts int)
	WatermarkAge(age time.Duration)
	ProductDuration(d time.Duration)
}

// RunRecorder persists run summaries for later inspection.
type RunRecorder interface {
	RecordRun(ctx context.Context, summary *RunSummary) error
}
