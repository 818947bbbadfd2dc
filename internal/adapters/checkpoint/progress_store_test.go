package checkpoint_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailbridge/rms-commerce-sync/internal/adapters/checkpoint"
	"github.com/retailbridge/rms-commerce-sync/internal/domain/shared"
)

func TestProgressStore_SaveLoadRoundtrip(t *testing.T) {
	// Arrange
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	store := checkpoint.NewFileProgressStore(t.TempDir(), shared.NewMockClock(now))
	cp := &checkpoint.ProgressCheckpoint{
		SyncID:            "run-1",
		Scope:             "change-detect",
		LastProcessedCCOD: "CC-42",
		ProcessedCount:    42,
		TotalCount:        100,
		BatchNumber:       5,
		Stats:             checkpoint.Stats{Created: 10, Updated: 30, Errors: 2},
	}

	// Act
	require.NoError(t, store.Save(cp))
	loaded, err := store.Load("run-1")

	// Assert
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "CC-42", loaded.LastProcessedCCOD)
	assert.Equal(t, 42, loaded.ProcessedCount)
	assert.Equal(t, 5, loaded.BatchNumber)
	assert.Equal(t, 10, loaded.Stats.Created)
	assert.Equal(t, now, loaded.Timestamp, "save stamps the clock time")
}

func TestProgressStore_LoadMissingReturnsNil(t *testing.T) {
	store := checkpoint.NewFileProgressStore(t.TempDir(), nil)

	loaded, err := store.Load("nope")

	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestProgressStore_FindByScopeReturnsNewest(t *testing.T) {
	// Arrange: two records in the same scope, saved an hour apart
	clock := shared.NewMockClock(time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC))
	store := checkpoint.NewFileProgressStore(t.TempDir(), clock)

	require.NoError(t, store.Save(&checkpoint.ProgressCheckpoint{SyncID: "run-old", Scope: "change-detect"}))
	clock.Advance(time.Hour)
	require.NoError(t, store.Save(&checkpoint.ProgressCheckpoint{SyncID: "run-new", Scope: "change-detect"}))
	require.NoError(t, store.Save(&checkpoint.ProgressCheckpoint{SyncID: "run-other", Scope: "full"}))

	// Act
	found, err := store.FindByScope("change-detect")

	// Assert
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "run-new", found.SyncID)
}

func TestProgressStore_FindByScopeEmptyDir(t *testing.T) {
	store := checkpoint.NewFileProgressStore(t.TempDir(), nil)

	found, err := store.FindByScope("change-detect")

	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestProgressStore_Delete(t *testing.T) {
	store := checkpoint.NewFileProgressStore(t.TempDir(), nil)
	require.NoError(t, store.Save(&checkpoint.ProgressCheckpoint{SyncID: "run-1", Scope: "full"}))

	require.NoError(t, store.Delete("run-1"))

	loaded, err := store.Load("run-1")
	require.NoError(t, err)
	assert.Nil(t, loaded)

	// Deleting again is not an error.
	assert.NoError(t, store.Delete("run-1"))
}

func TestProgressStore_GCRemovesStaleRecords(t *testing.T) {
	// Arrange
	clock := shared.NewMockClock(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
	store := checkpoint.NewFileProgressStore(t.TempDir(), clock)

	require.NoError(t, store.Save(&checkpoint.ProgressCheckpoint{SyncID: "stale", Scope: "full"}))
	clock.Advance(8 * 24 * time.Hour)
	require.NoError(t, store.Save(&checkpoint.ProgressCheckpoint{SyncID: "recent", Scope: "full"}))

	// Act
	removed, err := store.GC(checkpoint.DefaultProgressRetention)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	stale, err := store.Load("stale")
	require.NoError(t, err)
	assert.Nil(t, stale)

	recent, err := store.Load("recent")
	require.NoError(t, err)
	assert.NotNil(t, recent)
}
