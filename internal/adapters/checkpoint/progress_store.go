package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/retailbridge/rms-commerce-sync/internal/domain/shared"
)

const (
	progressDirName = "progress"

	// DefaultProgressRetention garbage-collects stale progress records.
	DefaultProgressRetention = 7 * 24 * time.Hour
)

// Stats is the per-run counter block carried inside a progress checkpoint.
type Stats struct {
	Created          int `json:"created"`
	Updated          int `json:"updated"`
	Skipped          int `json:"skipped"`
	Errors           int `json:"errors"`
	InventoryUpdated int `json:"inventory_updated"`
	InventoryFailed  int `json:"inventory_failed"`
}

// ProgressCheckpoint is the resumable cursor of one sync run. A run that
// crashes resumes by skipping CCODs lexically at or below LastProcessedCCOD.
type ProgressCheckpoint struct {
	SyncID            string    `json:"sync_id"`
	Timestamp         time.Time `json:"timestamp"`
	Scope             string    `json:"scope"`
	LastProcessedCCOD string    `json:"last_processed_ccod"`
	ProcessedCount    int       `json:"processed_count"`
	TotalCount        int       `json:"total_count"`
	BatchNumber       int       `json:"batch_number"`
	Stats             Stats     `json:"stats"`
}

// FileProgressStore keeps one JSON file per sync run under {dir}/progress.
type FileProgressStore struct {
	dir   string
	clock shared.Clock
}

// NewFileProgressStore creates a progress store under dir.
func NewFileProgressStore(dir string, clock shared.Clock) *FileProgressStore {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	return &FileProgressStore{dir: filepath.Join(dir, progressDirName), clock: clock}
}

func (s *FileProgressStore) path(syncID string) string {
	return filepath.Join(s.dir, syncID+".json")
}

// Save writes (or replaces) the progress record for cp.SyncID.
func (s *FileProgressStore) Save(cp *ProgressCheckpoint) error {
	cp.Timestamp = s.clock.Now()
	return writeAtomic(s.path(cp.SyncID), cp)
}

// Load returns the progress record for syncID, or nil when absent.
func (s *FileProgressStore) Load(syncID string) (*ProgressCheckpoint, error) {
	data, err := os.ReadFile(s.path(syncID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read progress checkpoint: %w", err)
	}
	var cp ProgressCheckpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("failed to decode progress checkpoint: %w", err)
	}
	return &cp, nil
}

// FindByScope returns the most recent unfinished record matching scope,
// or nil. Used at run start to resume an interrupted sync.
func (s *FileProgressStore) FindByScope(scope string) (*ProgressCheckpoint, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list progress checkpoints: %w", err)
	}

	var newest *ProgressCheckpoint
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		cp, err := s.Load(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil || cp == nil {
			continue
		}
		if cp.Scope != scope {
			continue
		}
		if newest == nil || cp.Timestamp.After(newest.Timestamp) {
			newest = cp
		}
	}
	return newest, nil
}

// Delete removes the record for syncID; missing records are not an error.
func (s *FileProgressStore) Delete(syncID string) error {
	err := os.Remove(s.path(syncID))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete progress checkpoint: %w", err)
	}
	return nil
}

// GC removes progress records older than the retention window and returns
// how many were removed.
func (s *FileProgressStore) GC(retention time.Duration) (int, error) {
	if retention <= 0 {
		retention = DefaultProgressRetention
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to list progress checkpoints: %w", err)
	}

	cutoff := s.clock.Now().Add(-retention)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		cp, err := s.Load(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil || cp == nil {
			continue
		}
		if cp.Timestamp.Before(cutoff) {
			if err := os.Remove(s.path(cp.SyncID)); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}
