package persistence

import (
	"context"
	"strings"

	"github.com/retailbridge/rms-commerce-sync/internal/application/sync"
)

// SyncRunRecorder persists run summaries through the RMS repository so the
// CLI can list recent runs.
type SyncRunRecorder struct {
	repo *GormRMSRepository
}

// NewSyncRunRecorder creates a recorder over the repository.
func NewSyncRunRecorder(repo *GormRMSRepository) *SyncRunRecorder {
	return &SyncRunRecorder{repo: repo}
}

// RecordRun converts the summary into a sync_runs row.
func (r *SyncRunRecorder) RecordRun(ctx context.Context, summary *sync.RunSummary) error {
	return r.repo.RecordRun(ctx, &SyncRunModel{
		SyncID:           summary.SyncID,
		Kind:             summary.Kind,
		StartedAt:        summary.StartedAt,
		DurationMillis:   summary.Duration.Milliseconds(),
		Processed:        summary.Processed,
		Created:          summary.Created,
		Updated:          summary.Updated,
		Skipped:          summary.Skipped,
		Errors:           summary.Errors,
		InventoryUpdated: summary.InventoryUpdated,
		InventoryFailed:  summary.InventoryFailed,
		SuccessRate:      summary.SuccessRate(),
		ErrorSamples:     strings.Join(summary.ErrorSamples, "\n"),
	})
}
