package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"gorm.io/gorm"

	"github.com/retailbridge/rms-commerce-sync/internal/domain/catalog"
	"github.com/retailbridge/rms-commerce-sync/internal/domain/order"
	"github.com/retailbridge/rms-commerce-sync/internal/domain/shared"
)

const skuCacheSize = 4096

// GormRMSRepository implements catalog.ItemRepository and order.Repository
// over the RMS relational store. All queries are parameterised; SKU lookups
// are cached.
type GormRMSRepository struct {
	db       *gorm.DB
	skuCache *lru.Cache[string, int64]
}

// NewGormRMSRepository creates a repository over an open gorm connection.
func NewGormRMSRepository(db *gorm.DB) *GormRMSRepository {
	cache, _ := lru.New[string, int64](skuCacheSize)
	return &GormRMSRepository{db: db, skuCache: cache}
}

// ModifiedItems returns item IDs modified strictly after since, ordered by
// last_updated ascending, capped at limit. Rows with a null last_updated are
// never reported.
func (r *GormRMSRepository) ModifiedItems(ctx context.Context, since time.Time, limit int) ([]int64, error) {
	var ids []int64
	result := r.db.WithContext(ctx).
		Model(&ItemViewModel{}).
		Where("last_updated IS NOT NULL AND last_updated > ?", since).
		Order("last_updated ASC").
		Limit(limit).
		Pluck("item_id", &ids)
	if result.Error != nil {
		return nil, classifyDBError("modified_items", result.Error)
	}
	return ids, nil
}

// FetchItemRows loads full rows for the given item IDs, applying the filter.
func (r *GormRMSRepository) FetchItemRows(ctx context.Context, ids []int64, filter catalog.RowFilter) ([]catalog.ItemRow, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := r.db.WithContext(ctx).Where("item_id IN ?", ids)
	if !filter.IncludeZeroStock {
		query = query.Where("cantidad > 0")
	}
	if filter.Categoria != "" {
		query = query.Where("categoria = ?", filter.Categoria)
	}
	if filter.Familia != "" {
		query = query.Where("familia = ?", filter.Familia)
	}

	var models []ItemViewModel
	if err := query.Find(&models).Error; err != nil {
		return nil, classifyDBError("fetch_item_rows", err)
	}

	rows := make([]catalog.ItemRow, 0, len(models))
	for i := range models {
		rows = append(rows, modelToItemRow(&models[i]))
	}
	return rows, nil
}

// LookupItemIDBySKU resolves a SKU to the internal item id, or nil when the
// SKU is unknown. Hits are cached.
func (r *GormRMSRepository) LookupItemIDBySKU(ctx context.Context, sku string) (*int64, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return nil, nil
	}
	if id, ok := r.skuCache.Get(sku); ok {
		return &id, nil
	}

	var model ItemViewModel
	result := r.db.WithContext(ctx).Where("c_articulo = ?", sku).First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, classifyDBError("lookup_item_by_sku", result.Error)
	}

	r.skuCache.Add(sku, model.ItemID)
	id := model.ItemID
	return &id, nil
}

// HasOrderByReference reports whether an online-channel order with the given
// reference number already exists.
func (r *GormRMSRepository) HasOrderByReference(ctx context.Context, referenceNumber string) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).
		Model(&OrderModel{}).
		Where("reference_number = ? AND channel_type = ?", referenceNumber, order.ChannelTypeOnline).
		Count(&count)
	if result.Error != nil {
		return false, classifyDBError("has_order_by_reference", result.Error)
	}
	return count > 0, nil
}

// FindCustomerByEmail returns the customer id for an email, or nil.
func (r *GormRMSRepository) FindCustomerByEmail(ctx context.Context, email string) (*int64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, nil
	}

	var model CustomerModel
	result := r.db.WithContext(ctx).Where("email = ?", email).First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, classifyDBError("find_customer_by_email", result.Error)
	}
	id := model.ID
	return &id, nil
}

// CreateCustomer inserts a new customer and returns its id.
func (r *GormRMSRepository) CreateCustomer(ctx context.Context, draft order.CustomerDraft) (int64, error) {
	model := CustomerModel{
		Email: strings.ToLower(strings.TrimSpace(draft.Email)),
		Name:  draft.Name,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return 0, classifyDBError("create_customer", err)
	}
	return model.ID, nil
}

// InsertOrderTx writes the header and all lines in one transaction; any
// failure rolls the whole order back.
func (r *GormRMSRepository) InsertOrderTx(ctx context.Context, header order.Header, lines []order.Line) (int64, error) {
	var orderID int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model := OrderModel{
			StoreID:         header.StoreID,
			Type:            header.Type,
			Time:            header.Time,
			CustomerID:      header.CustomerID,
			Total:           header.Total,
			Tax:             header.Tax,
			Comment:         header.Comment,
			ShippingNotes:   header.ShippingNotes,
			ChannelType:     header.ChannelType,
			ReferenceNumber: header.ReferenceNumber,
		}
		if err := tx.Create(&model).Error; err != nil {
			return classifyDBError("insert_order", err)
		}
		for i := range lines {
			entry := OrderEntryModel{
				OrderID:     model.ID,
				ItemID:      lines[i].ItemID,
				Description: lines[i].Description,
				Price:       lines[i].Price,
				FullPrice:   lines[i].FullPrice,
				Quantity:    lines[i].Quantity,
			}
			if err := tx.Create(&entry).Error; err != nil {
				return classifyDBError("insert_order_entry", err)
			}
		}
		orderID = model.ID
		return nil
	})
	if err != nil {
		return 0, err
	}
	return orderID, nil
}

// RecordRun persists a sync run summary row.
func (r *GormRMSRepository) RecordRun(ctx context.Context, run *SyncRunModel) error {
	if err := r.db.WithContext(ctx).Create(run).Error; err != nil {
		return classifyDBError("record_run", err)
	}
	return nil
}

// RecentRuns returns the latest run summaries, newest first.
func (r *GormRMSRepository) RecentRuns(ctx context.Context, limit int) ([]SyncRunModel, error) {
	var runs []SyncRunModel
	result := r.db.WithContext(ctx).Order("started_at DESC").Limit(limit).Find(&runs)
	if result.Error != nil {
		return nil, classifyDBError("recent_runs", result.Error)
	}
	return runs, nil
}

func modelToItemRow(m *ItemViewModel) catalog.ItemRow {
	row := catalog.ItemRow{
		ItemID:           m.ItemID,
		SKU:              m.SKU,
		CCOD:             m.CCOD,
		Description:      m.Description,
		Familia:          m.Familia,
		Categoria:        m.Categoria,
		ExtendedCategory: m.ExtendedCategory,
		Genero:           m.Genero,
		Color:            m.Color,
		Talla:            m.Talla,
		Price:            m.Price,
		SalePrice:        m.SalePrice,
		SaleStart:        m.SaleStart,
		SaleEnd:          m.SaleEnd,
		Quantity:         m.Quantity,
		StockA:           m.StockA,
		StockB:           m.StockB,
		Tax:              m.Tax,
	}
	if m.LastUpdated != nil {
		row.LastUpdated = *m.LastUpdated
	}
	return row
}

// classifyDBError maps store failures onto the engine's error kinds:
// lost connections are transient, constraint violations are integrity
// failures.
func classifyDBError(op string, err error) error {
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return shared.NewIntegrityError(op, "unique constraint violation", err)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return shared.NewIntegrityError(op, "foreign key violation", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", op, err)
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate") {
		return shared.NewIntegrityError(op, "unique constraint violation", err)
	}
	if strings.Contains(msg, "connection") || strings.Contains(msg, "timeout") || strings.Contains(msg, "broken pipe") {
		return shared.NewTransientError(op, "database connection lost", err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
