package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/retailbridge/rms-commerce-sync/internal/domain/shared"
)

const (
	checkpointFileName = "checkpoint.json"
	checkpointVersion  = 1

	// DefaultSuccessThreshold gates watermark advancement.
	DefaultSuccessThreshold = 0.95
	// DefaultLookbackDays seeds the watermark when no checkpoint exists.
	DefaultLookbackDays = 30
)

// UpdateCheckpoint is the durable high-watermark of the last successful run.
// LastRunTimestamp is the maximum lastUpdated observed during that run, not
// the wall clock, so rows modified mid-run are re-covered on the next pass.
type UpdateCheckpoint struct {
	LastRunTimestamp time.Time `json:"last_run_timestamp"`
	UpdatedAt        time.Time `json:"updated_at"`
	Version          int       `json:"version"`
}

// FileUpdateStore keeps the update checkpoint in a single JSON file.
// Writes go through a temp file and an atomic rename.
type FileUpdateStore struct {
	dir              string
	successThreshold float64
	lookbackDays     int
	clock            shared.Clock
}

// NewFileUpdateStore creates a store under dir. Threshold and lookback fall
// back to defaults when non-positive.
func NewFileUpdateStore(dir string, successThreshold float64, lookbackDays int, clock shared.Clock) *FileUpdateStore {
	if successThreshold <= 0 {
		successThreshold = DefaultSuccessThreshold
	}
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}
	if clock == nil {
		clock = shared.NewRealClock()
	}
	return &FileUpdateStore{
		dir:              dir,
		successThreshold: successThreshold,
		lookbackDays:     lookbackDays,
		clock:            clock,
	}
}

func (s *FileUpdateStore) path() string {
	return filepath.Join(s.dir, checkpointFileName)
}

// Read returns the current watermark. When no checkpoint exists the default
// is now minus the configured lookback.
func (s *FileUpdateStore) Read() (time.Time, error) {
	data, err := os.ReadFile(s.path())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s.clock.Now().AddDate(0, 0, -s.lookbackDays), nil
		}
		return time.Time{}, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	var cp UpdateCheckpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return time.Time{}, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	return cp.LastRunTimestamp.UTC(), nil
}

// Advance persists maxSeen as the new watermark when the run's success
// ratio clears the threshold and maxSeen does not regress the stored value.
// Returns whether the watermark was written.
func (s *FileUpdateStore) Advance(maxSeen time.Time, successRatio float64) (bool, error) {
	if successRatio < s.successThreshold {
		return false, nil
	}
	if maxSeen.IsZero() {
		return false, nil
	}

	current, err := s.Read()
	if err == nil && !maxSeen.After(current) {
		// Monotonic: never move the watermark backwards.
		return false, nil
	}

	cp := UpdateCheckpoint{
		LastRunTimestamp: maxSeen.UTC(),
		UpdatedAt:        s.clock.Now(),
		Version:          checkpointVersion,
	}
	if err := writeAtomic(s.path(), &cp); err != nil {
		return false, err
	}
	return true, nil
}

// writeAtomic marshals v and renames a temp file over path.
func writeAtomic(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create checkpoint dir: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".checkpoint-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace checkpoint: %w", err)
	}
	return nil
}
