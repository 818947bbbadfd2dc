package sync_test

import (
	"context"
	"errors"
	"sort"
	stdsync "sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailbridge/rms-commerce-sync/internal/adapters/checkpoint"
	"github.com/retailbridge/rms-commerce-sync/internal/application/sync"
	"github.com/retailbridge/rms-commerce-sync/internal/domain/catalog"
	"github.com/retailbridge/rms-commerce-sync/internal/domain/commerce"
	"github.com/retailbridge/rms-commerce-sync/internal/domain/shared"
	"github.com/retailbridge/rms-commerce-sync/internal/domain/taxonomy"
)

// fakeRepo serves canned item rows, honours the row filter, and records the
// arguments of the last call.
type fakeRepo struct {
	rows       []catalog.ItemRow
	lastSince  time.Time
	lastFilter catalog.RowFilter
}

func (r *fakeRepo) ModifiedItems(ctx context.Context, since time.Time, limit int) ([]int64, error) {
	r.lastSince = since
	var ids []int64
	for i := range r.rows {
		if r.rows[i].LastUpdated.After(since) {
			ids = append(ids, r.rows[i].ItemID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (r *fakeRepo) FetchItemRows(ctx context.Context, ids []int64, filter catalog.RowFilter) ([]catalog.ItemRow, error) {
	r.lastFilter = filter
	wanted := make(map[int64]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	var out []catalog.ItemRow
	for i := range r.rows {
		if !wanted[r.rows[i].ItemID] {
			continue
		}
		if !filter.IncludeZeroStock && r.rows[i].Quantity <= 0 {
			continue
		}
		out = append(out, r.rows[i])
	}
	return out, nil
}

// fakeLock always reports the lock as held by someone else.
type heldLock struct{}

func (heldLock) Acquire(ctx context.Context, name, holder string, ttl time.Duration) error {
	return shared.NewLockHeldError(name, "other-node")
}
func (heldLock) Release(ctx context.Context, name, holder string) error { return nil }
func (heldLock) KeepAlive(ctx context.Context, name, holder string, ttl time.Duration) (<-chan struct{}, func()) {
	return make(chan struct{}), func() {}
}

// countingMetrics counts MetricsSink calls.
type countingMetrics struct {
	mu              stdsync.Mutex
	noChanges       int
	skippedLockHeld int
	runsCompleted   int
}

func (m *countingMetrics) ProductProcessed(sync.ProductOutcome) {}
func (m *countingMetrics) InventoryUpdated()                    {}
func (m *countingMetrics) InventoryFailed()                     {}
func (m *countingMetrics) RunCompleted(string, *sync.RunSummary) {
	m.mu.Lock()
	m.runsCompleted++
	m.mu.Unlock()
}
func (m *countingMetrics) RunSkippedLockHeld(string) {
	m.mu.Lock()
	m.skippedLockHeld++
	m.mu.Unlock()
}
func (m *countingMetrics) NoChanges() {
	m.mu.Lock()
	m.noChanges++
	m.mu.Unlock()
}
func (m *countingMetrics) APIRetries(string, int)        {}
func (m *countingMetrics) WatermarkAge(time.Duration)    {}
func (m *countingMetrics) ProductDuration(time.Duration) {}

func detectorRow(itemID int64, sku, ccod string, updated time.Time) catalog.ItemRow {
	return catalog.ItemRow{
		ItemID:      itemID,
		SKU:         sku,
		CCOD:        ccod,
		Description: "Blusa Flor",
		Familia:     "Ropa",
		Categoria:   "Blusas",
		Color:       "Rojo",
		Talla:       "M",
		Price:       decimal.NewFromInt(100),
		Quantity:    2,
		LastUpdated: updated,
	}
}

func newDetector(t *testing.T, repo *fakeRepo, api *fakeAPI, lock sync.RunLock, metrics sync.MetricsSink, cfg sync.DetectorConfig) (*sync.ChangeDetector, *checkpoint.FileUpdateStore, *checkpoint.FileProgressStore, *shared.MockClock) {
	t.Helper()
	clock := shared.NewMockClock(time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC))
	dir := t.TempDir()
	updates := checkpoint.NewFileUpdateStore(dir, 0.95, 30, clock)
	progress := checkpoint.NewFileProgressStore(dir, clock)
	pipeline := sync.NewPipeline(api, taxonomy.NewResolver(0, 0), progress, metrics, clock)
	detector := sync.NewChangeDetector(repo, pipeline, lock, updates, nil, metrics, clock, cfg)
	return detector, updates, progress, clock
}

func TestChangeDetect_SyncsModifiedItemsAndAdvancesWatermark(t *testing.T) {
	// Arrange
	rowTime := time.Date(2026, 8, 23, 18, 0, 0, 0, time.UTC)
	repo := &fakeRepo{rows: []catalog.ItemRow{detectorRow(1, "SKU-1", "CC-1", rowTime)}}
	api := newFakeAPI()
	metrics := &countingMetrics{}
	detector, updates, _, _ := newDetector(t, repo, api, nil, metrics, sync.DetectorConfig{UseCheckpoint: true})

	// Act
	summary, err := detector.RunChangeDetect(context.Background())

	// Assert
	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, 1, summary.Created)
	assert.Equal(t, sync.KindChangeDetect, summary.Kind)
	assert.NotNil(t, api.products["blusa-flor-cc-1"])
	assert.Equal(t, 1, metrics.runsCompleted)

	watermark, err := updates.Read()
	require.NoError(t, err)
	assert.Equal(t, rowTime, watermark, "a fully successful run advances the watermark to the max observed timestamp")
}

func TestChangeDetect_NoModifiedItems(t *testing.T) {
	// Arrange: the only row is older than the default lookback window... make it old
	repo := &fakeRepo{}
	api := newFakeAPI()
	metrics := &countingMetrics{}
	detector, _, _, _ := newDetector(t, repo, api, nil, metrics, sync.DetectorConfig{UseCheckpoint: true})

	// Act
	summary, err := detector.RunChangeDetect(context.Background())

	// Assert
	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Zero(t, summary.Processed)
	assert.Equal(t, 1, metrics.noChanges)
}

func TestChangeDetect_SkipsWhenLockHeld(t *testing.T) {
	// Arrange
	repo := &fakeRepo{rows: []catalog.ItemRow{detectorRow(1, "SKU-1", "CC-1", time.Date(2026, 8, 23, 0, 0, 0, 0, time.UTC))}}
	api := newFakeAPI()
	metrics := &countingMetrics{}
	detector, _, _, _ := newDetector(t, repo, api, heldLock{}, metrics, sync.DetectorConfig{
		UseCheckpoint: true,
		LockEnabled:   true,
	})

	// Act
	summary, err := detector.RunChangeDetect(context.Background())

	// Assert: a held lock is a skip, not a failure
	require.NoError(t, err)
	assert.Nil(t, summary)
	assert.Equal(t, 1, metrics.skippedLockHeld)
	assert.Zero(t, api.createCalls)
}

func TestChangeDetect_FailedRunDoesNotAdvanceWatermark(t *testing.T) {
	// Arrange: every product errors out
	rowTime := time.Date(2026, 8, 23, 18, 0, 0, 0, time.UTC)
	repo := &fakeRepo{rows: []catalog.ItemRow{detectorRow(1, "SKU-1", "CC-1", rowTime)}}
	api := newFakeAPI()
	api.fetchErr = shared.NewTransientError("productByHandle", "server error (500)", nil)
	detector, updates, _, _ := newDetector(t, repo, api, nil, &countingMetrics{}, sync.DetectorConfig{UseCheckpoint: true})

	// Act
	summary, err := detector.RunChangeDetect(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Errors)

	watermark, readErr := updates.Read()
	require.NoError(t, readErr)
	assert.NotEqual(t, rowTime, watermark, "a failed run must not move the watermark")
}

func TestFullSync_CoversWholeCatalog(t *testing.T) {
	// Arrange: one row well outside any incremental window
	old := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := &fakeRepo{rows: []catalog.ItemRow{detectorRow(1, "SKU-1", "CC-1", old)}}
	api := newFakeAPI()
	detector, _, _, _ := newDetector(t, repo, api, nil, &countingMetrics{}, sync.DetectorConfig{UseCheckpoint: true})

	// Act
	summary, err := detector.RunFullSync(context.Background(), false)

	// Assert
	require.NoError(t, err)
	assert.True(t, repo.lastSince.IsZero(), "full sync ignores the watermark")
	assert.Equal(t, 1, summary.Created)
	assert.Equal(t, sync.KindFullSync, summary.Kind)
}

func TestChangeDetect_ZeroStockRowGoesDraft(t *testing.T) {
	// Arrange: the product exists remotely, then sells out in RMS
	rowTime := time.Date(2026, 8, 23, 18, 0, 0, 0, time.UTC)
	row := detectorRow(1, "SKU-1", "CC-1", rowTime)
	row.Quantity = 0
	repo := &fakeRepo{rows: []catalog.ItemRow{row}}
	api := newFakeAPI()
	api.products["blusa-flor-cc-1"] = &commerce.RemoteProduct{
		ID:          "prod-1",
		Handle:      "blusa-flor-cc-1",
		Title:       "Blusa Flor",
		Vendor:      "Ropa",
		ProductType: "Blusas",
		TaxonomyID:  "aa-1-13-8",
		Status:      "ACTIVE",
		Variants: []commerce.RemoteVariant{
			{ID: "var-1", InventoryItemID: "inv-1", SKU: "SKU-1", Option1: "Rojo", Option2: "M", Price: decimal.NewFromInt(100)},
		},
	}
	detector, _, _, _ := newDetector(t, repo, api, nil, &countingMetrics{}, sync.DetectorConfig{
		UseCheckpoint: true,
		Filter:        catalog.RowFilter{IncludeZeroStock: true},
	})

	// Act
	summary, err := detector.RunChangeDetect(context.Background())

	// Assert: the sold-out row flowed through, the product went DRAFT and
	// its on-hand count was zeroed
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Updated)
	assert.Equal(t, "DRAFT", api.products["blusa-flor-cc-1"].Status)
	assert.Equal(t, 1, api.inventorySetCalls)
	assert.Equal(t, 0, api.inventory["inv-1"])
	assert.True(t, repo.lastFilter.IncludeZeroStock)
}

func TestChangeDetect_ResumesInterruptedRunByScope(t *testing.T) {
	// Arrange: a prior change-detect run died after CC-1
	rowTime := time.Date(2026, 8, 23, 18, 0, 0, 0, time.UTC)
	repo := &fakeRepo{rows: []catalog.ItemRow{
		detectorRow(1, "SKU-1", "CC-1", rowTime),
		detectorRow(2, "SKU-2", "CC-2", rowTime),
	}}
	api := newFakeAPI()
	detector, _, progress, _ := newDetector(t, repo, api, nil, &countingMetrics{}, sync.DetectorConfig{
		UseCheckpoint: true,
		Filter:        catalog.RowFilter{IncludeZeroStock: true},
	})
	require.NoError(t, progress.Save(&checkpoint.ProgressCheckpoint{
		SyncID:            "run-crashed",
		Scope:             sync.KindChangeDetect,
		LastProcessedCCOD: "CC-1",
	}))

	// Act
	summary, err := detector.RunChangeDetect(context.Background())

	// Assert: only CC-2 was pushed
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Created)
	assert.Nil(t, api.products["blusa-flor-cc-1"])
	assert.NotNil(t, api.products["blusa-flor-cc-2"])
}

// readFailStore fails every watermark read.
type readFailStore struct{}

func (readFailStore) Read() (time.Time, error) {
	return time.Time{}, errors.New("corrupt checkpoint file")
}
func (readFailStore) Advance(time.Time, float64) (bool, error) { return false, nil }

func TestChangeDetect_LockCheckedBeforeWatermarkRead(t *testing.T) {
	// Arrange: the lock is held and the watermark store is broken
	repo := &fakeRepo{}
	api := newFakeAPI()
	clock := shared.NewMockClock(time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC))
	progress := checkpoint.NewFileProgressStore(t.TempDir(), clock)
	pipeline := sync.NewPipeline(api, taxonomy.NewResolver(0, 0), progress, nil, clock)
	metrics := &countingMetrics{}
	detector := sync.NewChangeDetector(repo, pipeline, heldLock{}, readFailStore{}, nil, metrics, clock, sync.DetectorConfig{
		UseCheckpoint: true,
		LockEnabled:   true,
	})

	// Act
	summary, err := detector.RunChangeDetect(context.Background())

	// Assert: the held lock skips the tick before the store is ever touched
	require.NoError(t, err)
	assert.Nil(t, summary)
	assert.Equal(t, 1, metrics.skippedLockHeld)
}

func TestDetector_StateTransitions(t *testing.T) {
	repo := &fakeRepo{}
	detector, _, _, _ := newDetector(t, repo, newFakeAPI(), nil, &countingMetrics{}, sync.DetectorConfig{})

	assert.Equal(t, sync.StateIdle, detector.State())

	_, err := detector.RunChangeDetect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sync.StateIdle, detector.State(), "the detector returns to idle after a run")
}
