package persistence_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/retailbridge/rms-commerce-sync/internal/adapters/persistence"
	"github.com/retailbridge/rms-commerce-sync/internal/domain/catalog"
	"github.com/retailbridge/rms-commerce-sync/internal/domain/order"
	"github.com/retailbridge/rms-commerce-sync/internal/infrastructure/database"
)

func setupRepo(t *testing.T) (*persistence.GormRMSRepository, *gorm.DB) {
	t.Helper()
	db, err := database.NewTestConnection()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })
	return persistence.NewGormRMSRepository(db), db
}

func seedItem(t *testing.T, db *gorm.DB, id int64, sku string, updated *time.Time) {
	t.Helper()
	item := persistence.ItemViewModel{
		ItemID:      id,
		SKU:         sku,
		CCOD:        "CC-1",
		Description: "Blusa Flor",
		Familia:     "Ropa",
		Categoria:   "Blusas",
		Price:       decimal.NewFromInt(100),
		Quantity:    3,
		LastUpdated: updated,
	}
	require.NoError(t, db.Create(&item).Error)
}

func ts(day int) *time.Time {
	t := time.Date(2026, 8, day, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestModifiedItems_OrderedAndFiltered(t *testing.T) {
	// Arrange
	repo, db := setupRepo(t)
	seedItem(t, db, 1, "SKU-1", ts(10))
	seedItem(t, db, 2, "SKU-2", ts(20))
	seedItem(t, db, 3, "SKU-3", ts(5))
	seedItem(t, db, 4, "SKU-4", nil) // null last_updated is never reported

	// Act
	ids, err := repo.ModifiedItems(context.Background(), time.Date(2026, 8, 7, 0, 0, 0, 0, time.UTC), 100)

	// Assert: strictly-after filter, ascending by last_updated
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids)
}

func TestModifiedItems_RespectsLimit(t *testing.T) {
	repo, db := setupRepo(t)
	seedItem(t, db, 1, "SKU-1", ts(10))
	seedItem(t, db, 2, "SKU-2", ts(11))
	seedItem(t, db, 3, "SKU-3", ts(12))

	ids, err := repo.ModifiedItems(context.Background(), time.Time{}, 2)

	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids)
}

func TestFetchItemRows_AppliesFilter(t *testing.T) {
	// Arrange
	repo, db := setupRepo(t)
	seedItem(t, db, 1, "SKU-1", ts(10))
	zeroStock := persistence.ItemViewModel{
		ItemID:      2,
		SKU:         "SKU-2",
		Description: "Agotado",
		Price:       decimal.NewFromInt(50),
		Quantity:    0,
		LastUpdated: ts(10),
	}
	require.NoError(t, db.Create(&zeroStock).Error)

	// Act
	rows, err := repo.FetchItemRows(context.Background(), []int64{1, 2}, catalog.RowFilter{})

	// Assert: zero-stock rows are excluded by default
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "SKU-1", rows[0].SKU)

	// Including zero stock returns both
	rows, err = repo.FetchItemRows(context.Background(), []int64{1, 2}, catalog.RowFilter{IncludeZeroStock: true})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestFetchItemRows_EmptyIDs(t *testing.T) {
	repo, _ := setupRepo(t)

	rows, err := repo.FetchItemRows(context.Background(), nil, catalog.RowFilter{})

	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestLookupItemIDBySKU(t *testing.T) {
	// Arrange
	repo, db := setupRepo(t)
	seedItem(t, db, 7, "SKU-7", ts(10))

	// Act
	found, err := repo.LookupItemIDBySKU(context.Background(), "SKU-7")
	missing, missErr := repo.LookupItemIDBySKU(context.Background(), "NOPE")

	// Assert
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, int64(7), *found)
	require.NoError(t, missErr)
	assert.Nil(t, missing, "unknown SKU resolves to nil, not an error")
}

func TestLookupItemIDBySKU_CachesHits(t *testing.T) {
	// Arrange
	repo, db := setupRepo(t)
	seedItem(t, db, 7, "SKU-7", ts(10))
	_, err := repo.LookupItemIDBySKU(context.Background(), "SKU-7")
	require.NoError(t, err)

	// Act: delete the row; the cached id must still resolve
	require.NoError(t, db.Where("item_id = ?", 7).Delete(&persistence.ItemViewModel{}).Error)
	cached, err := repo.LookupItemIDBySKU(context.Background(), "SKU-7")

	// Assert
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, int64(7), *cached)
}

func TestInsertOrderTx_WritesHeaderAndLines(t *testing.T) {
	// Arrange
	repo, db := setupRepo(t)
	header := order.Header{
		StoreID:         1,
		Type:            order.TypeSale,
		Time:            time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC),
		Total:           decimal.NewFromInt(300),
		Tax:             decimal.NewFromInt(48),
		Comment:         "Shopify Order #1001 - gid://shopify/Order/1",
		ChannelType:     order.ChannelTypeOnline,
		ReferenceNumber: "#1001",
	}
	lines := []order.Line{
		{ItemID: 1, Description: "Blusa Flor", Price: decimal.NewFromInt(100), FullPrice: decimal.NewFromInt(120), Quantity: 2},
		{ItemID: 2, Description: "Falda Midi", Price: decimal.NewFromInt(100), FullPrice: decimal.NewFromInt(100), Quantity: 1},
	}

	// Act
	orderID, err := repo.InsertOrderTx(context.Background(), header, lines)

	// Assert
	require.NoError(t, err)
	assert.Positive(t, orderID)

	var entryCount int64
	require.NoError(t, db.Model(&persistence.OrderEntryModel{}).Where("order_id = ?", orderID).Count(&entryCount).Error)
	assert.Equal(t, int64(2), entryCount)

	exists, err := repo.HasOrderByReference(context.Background(), "#1001")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestInsertOrderTx_DuplicateReferenceRollsBack(t *testing.T) {
	// Arrange: one order already persisted with the reference
	repo, db := setupRepo(t)
	header := order.Header{
		StoreID:         1,
		Type:            order.TypeSale,
		Time:            time.Now(),
		Total:           decimal.NewFromInt(100),
		Tax:             decimal.NewFromInt(16),
		ChannelType:     order.ChannelTypeOnline,
		ReferenceNumber: "#2002",
	}
	lines := []order.Line{{ItemID: 1, Description: "Blusa", Price: decimal.NewFromInt(100), FullPrice: decimal.NewFromInt(100), Quantity: 1}}
	_, err := repo.InsertOrderTx(context.Background(), header, lines)
	require.NoError(t, err)

	// Act: the same reference again
	_, err = repo.InsertOrderTx(context.Background(), header, lines)

	// Assert: rejected, and no extra entry rows were left behind
	require.Error(t, err)
	var entryCount int64
	require.NoError(t, db.Model(&persistence.OrderEntryModel{}).Count(&entryCount).Error)
	assert.Equal(t, int64(1), entryCount)
}

func TestHasOrderByReference_MissingIsFalse(t *testing.T) {
	repo, _ := setupRepo(t)

	exists, err := repo.HasOrderByReference(context.Background(), "#9999")

	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCustomers_FindIsCaseInsensitive(t *testing.T) {
	// Arrange
	repo, _ := setupRepo(t)
	id, err := repo.CreateCustomer(context.Background(), order.CustomerDraft{Email: "Ana@Example.COM", Name: "Ana"})
	require.NoError(t, err)

	// Act
	found, err := repo.FindCustomerByEmail(context.Background(), "ana@example.com")

	// Assert
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, id, *found)
}

func TestFindCustomerByEmail_MissingIsNil(t *testing.T) {
	repo, _ := setupRepo(t)

	found, err := repo.FindCustomerByEmail(context.Background(), "nadie@example.com")

	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestRecordRun_RoundTrip(t *testing.T) {
	// Arrange
	repo, _ := setupRepo(t)
	run := &persistence.SyncRunModel{
		SyncID:      "run-1",
		Kind:        "change-detect",
		StartedAt:   time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC),
		Processed:   10,
		Created:     2,
		Updated:     7,
		Skipped:     1,
		SuccessRate: 1.0,
	}

	// Act
	require.NoError(t, repo.RecordRun(context.Background(), run))
	runs, err := repo.RecentRuns(context.Background(), 5)

	// Assert
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].SyncID)
	assert.Equal(t, 10, runs[0].Processed)
}
