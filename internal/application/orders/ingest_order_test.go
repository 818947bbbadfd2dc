package orders_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailbridge/rms-commerce-sync/internal/application/orders"
	"github.com/retailbridge/rms-commerce-sync/internal/domain/commerce"
	"github.com/retailbridge/rms-commerce-sync/internal/domain/order"
)

// fakeOrderAPI serves one canned commerce order; only FetchOrderByID is used
// by the ingestion handler.
type fakeOrderAPI struct {
	commerce.API
	order *order.CommerceOrder
	err   error
}

func (f *fakeOrderAPI) FetchOrderByID(ctx context.Context, orderID string) (*order.CommerceOrder, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.order, nil
}

// fakeOrderRepo is an in-memory order.Repository.
type fakeOrderRepo struct {
	itemsBySKU       map[string]int64
	customersByEmail map[string]int64
	existingRefs     map[string]bool
	nextCustomerID   int64

	insertedHeader *order.Header
	insertedLines  []order.Line
	createdDrafts  []order.CustomerDraft
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		itemsBySKU:       map[string]int64{},
		customersByEmail: map[string]int64{},
		existingRefs:     map[string]bool{},
		nextCustomerID:   100,
	}
}

func (r *fakeOrderRepo) HasOrderByReference(ctx context.Context, referenceNumber string) (bool, error) {
	return r.existingRefs[referenceNumber], nil
}

func (r *fakeOrderRepo) LookupItemIDBySKU(ctx context.Context, sku string) (*int64, error) {
	if id, ok := r.itemsBySKU[sku]; ok {
		return &id, nil
	}
	return nil, nil
}

func (r *fakeOrderRepo) FindCustomerByEmail(ctx context.Context, email string) (*int64, error) {
	if id, ok := r.customersByEmail[email]; ok {
		return &id, nil
	}
	return nil, nil
}

func (r *fakeOrderRepo) CreateCustomer(ctx context.Context, draft order.CustomerDraft) (int64, error) {
	r.nextCustomerID++
	r.customersByEmail[draft.Email] = r.nextCustomerID
	r.createdDrafts = append(r.createdDrafts, draft)
	return r.nextCustomerID, nil
}

func (r *fakeOrderRepo) InsertOrderTx(ctx context.Context, header order.Header, lines []order.Line) (int64, error) {
	r.insertedHeader = &header
	r.insertedLines = lines
	r.existingRefs[header.ReferenceNumber] = true
	return 555, nil
}

type recordingMetrics struct {
	statuses []string
}

func (m *recordingMetrics) OrderIngested(status string) {
	m.statuses = append(m.statuses, status)
}

func paidOrder() *order.CommerceOrder {
	return &order.CommerceOrder{
		ID:              "gid://shopify/Order/1",
		Name:            "#1001",
		CreatedAt:       time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC),
		FinancialStatus: "paid",
		Email:           "ana@example.com",
		CustomerName:    "Ana López",
		Total:           decimal.NewFromInt(300),
		Tax:             decimal.NewFromInt(48),
		ShippingAddress: &order.Address{
			Name:     "Ana López",
			Address1: "Calle 5 #10",
			City:     "Monterrey",
			Country:  "Mexico",
		},
		LineItems: []order.LineItem{
			{SKU: "SKU-1", Title: "Blusa Flor", Quantity: 2, Price: decimal.NewFromInt(100), FullPrice: decimal.NewFromInt(120)},
			{SKU: "SKU-2", Title: "Falda Midi", Quantity: 1, Price: decimal.NewFromInt(100), FullPrice: decimal.NewFromInt(100)},
		},
	}
}

func TestIngestOrder_PersistsOrder(t *testing.T) {
	// Arrange
	repo := newFakeOrderRepo()
	repo.itemsBySKU["SKU-1"] = 11
	repo.itemsBySKU["SKU-2"] = 22
	metrics := &recordingMetrics{}
	handler := orders.NewIngestOrderHandler(repo, &fakeOrderAPI{order: paidOrder()}, metrics, 1, orders.CustomerPolicy{})

	// Act
	result, err := handler.Handle(context.Background(), orders.IngestOrderCommand{OrderID: "gid://shopify/Order/1"})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, orders.StatusPersisted, result.Status)
	assert.Equal(t, "#1001", result.ReferenceNumber)
	assert.Equal(t, int64(555), result.RMSOrderID)
	assert.Equal(t, 2, result.Lines)

	header := repo.insertedHeader
	require.NotNil(t, header)
	assert.Equal(t, order.TypeSale, header.Type)
	assert.Equal(t, order.ChannelTypeOnline, header.ChannelType)
	assert.Equal(t, "#1001", header.ReferenceNumber)
	assert.Equal(t, "Shopify Order ##1001 - paid", header.Comment)
	assert.Equal(t, "Ana López, Calle 5 #10, Monterrey, Mexico", header.ShippingNotes)

	require.Len(t, repo.insertedLines, 2)
	assert.Equal(t, int64(11), repo.insertedLines[0].ItemID)
	assert.Equal(t, "Blusa Flor", repo.insertedLines[0].Description)

	assert.Equal(t, []string{orders.StatusPersisted}, metrics.statuses)
}

func TestIngestOrder_DuplicateIsIdempotent(t *testing.T) {
	// Arrange
	repo := newFakeOrderRepo()
	repo.existingRefs["#1001"] = true
	handler := orders.NewIngestOrderHandler(repo, &fakeOrderAPI{order: paidOrder()}, nil, 1, orders.CustomerPolicy{})

	// Act
	result, err := handler.Handle(context.Background(), orders.IngestOrderCommand{OrderID: "gid://shopify/Order/1"})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, orders.StatusDuplicate, result.Status)
	assert.Nil(t, repo.insertedHeader)
}

func TestIngestOrder_UnpaidOrderIsRejected(t *testing.T) {
	// Arrange
	o := paidOrder()
	o.FinancialStatus = "pending"
	repo := newFakeOrderRepo()
	handler := orders.NewIngestOrderHandler(repo, &fakeOrderAPI{order: o}, nil, 1, orders.CustomerPolicy{})

	// Act
	result, err := handler.Handle(context.Background(), orders.IngestOrderCommand{OrderID: "gid://shopify/Order/1"})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, orders.StatusRejected, result.Status)
	assert.Equal(t, orders.ReasonInvalidOrder, result.Reason)
}

func TestIngestOrder_UnknownSKURejectsWholeOrder(t *testing.T) {
	// Arrange: only the first SKU resolves
	repo := newFakeOrderRepo()
	repo.itemsBySKU["SKU-1"] = 11
	handler := orders.NewIngestOrderHandler(repo, &fakeOrderAPI{order: paidOrder()}, nil, 1, orders.CustomerPolicy{})

	// Act
	result, err := handler.Handle(context.Background(), orders.IngestOrderCommand{OrderID: "gid://shopify/Order/1"})

	// Assert: no partial order lands in RMS
	require.NoError(t, err)
	assert.Equal(t, orders.StatusRejected, result.Status)
	assert.Equal(t, orders.ReasonUnknownSKU, result.Reason)
	assert.Nil(t, repo.insertedHeader)
}

func TestIngestOrder_CreatesCustomerOnFirstContact(t *testing.T) {
	// Arrange
	repo := newFakeOrderRepo()
	repo.itemsBySKU["SKU-1"] = 11
	repo.itemsBySKU["SKU-2"] = 22
	handler := orders.NewIngestOrderHandler(repo, &fakeOrderAPI{order: paidOrder()}, nil, 1, orders.CustomerPolicy{})

	// Act
	result, err := handler.Handle(context.Background(), orders.IngestOrderCommand{OrderID: "gid://shopify/Order/1"})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, orders.StatusPersisted, result.Status)
	require.Len(t, repo.createdDrafts, 1)
	assert.Equal(t, "ana@example.com", repo.createdDrafts[0].Email)
	assert.Equal(t, "Ana López", repo.createdDrafts[0].Name)
	require.NotNil(t, repo.insertedHeader.CustomerID)
}

func TestIngestOrder_ReusesExistingCustomer(t *testing.T) {
	// Arrange
	repo := newFakeOrderRepo()
	repo.itemsBySKU["SKU-1"] = 11
	repo.itemsBySKU["SKU-2"] = 22
	repo.customersByEmail["ana@example.com"] = 7
	handler := orders.NewIngestOrderHandler(repo, &fakeOrderAPI{order: paidOrder()}, nil, 1, orders.CustomerPolicy{})

	// Act
	_, err := handler.Handle(context.Background(), orders.IngestOrderCommand{OrderID: "gid://shopify/Order/1"})

	// Assert
	require.NoError(t, err)
	assert.Empty(t, repo.createdDrafts)
	require.NotNil(t, repo.insertedHeader.CustomerID)
	assert.Equal(t, int64(7), *repo.insertedHeader.CustomerID)
}

func TestIngestOrder_GuestPolicies(t *testing.T) {
	guest := func() *order.CommerceOrder {
		o := paidOrder()
		o.Email = ""
		o.CustomerName = ""
		return o
	}
	seed := func(repo *fakeOrderRepo) {
		repo.itemsBySKU["SKU-1"] = 11
		repo.itemsBySKU["SKU-2"] = 22
	}

	t.Run("required email rejects", func(t *testing.T) {
		repo := newFakeOrderRepo()
		seed(repo)
		handler := orders.NewIngestOrderHandler(repo, &fakeOrderAPI{order: guest()}, nil, 1,
			orders.CustomerPolicy{RequireCustomerEmail: true})

		result, err := handler.Handle(context.Background(), orders.IngestOrderCommand{OrderID: "x"})

		require.NoError(t, err)
		assert.Equal(t, orders.StatusRejected, result.Status)
		assert.Equal(t, orders.ReasonMissingCustomer, result.Reason)
	})

	t.Run("default customer id applies", func(t *testing.T) {
		repo := newFakeOrderRepo()
		seed(repo)
		defaultID := int64(99)
		handler := orders.NewIngestOrderHandler(repo, &fakeOrderAPI{order: guest()}, nil, 1,
			orders.CustomerPolicy{DefaultCustomerID: &defaultID})

		result, err := handler.Handle(context.Background(), orders.IngestOrderCommand{OrderID: "x"})

		require.NoError(t, err)
		assert.Equal(t, orders.StatusPersisted, result.Status)
		require.NotNil(t, repo.insertedHeader.CustomerID)
		assert.Equal(t, int64(99), *repo.insertedHeader.CustomerID)
	})

	t.Run("allow without customer leaves id nil", func(t *testing.T) {
		repo := newFakeOrderRepo()
		seed(repo)
		handler := orders.NewIngestOrderHandler(repo, &fakeOrderAPI{order: guest()}, nil, 1,
			orders.CustomerPolicy{AllowOrdersWithoutCustomer: true})

		result, err := handler.Handle(context.Background(), orders.IngestOrderCommand{OrderID: "x"})

		require.NoError(t, err)
		assert.Equal(t, orders.StatusPersisted, result.Status)
		assert.Nil(t, repo.insertedHeader.CustomerID)
	})

	t.Run("default policy rejects guests", func(t *testing.T) {
		repo := newFakeOrderRepo()
		seed(repo)
		handler := orders.NewIngestOrderHandler(repo, &fakeOrderAPI{order: guest()}, nil, 1, orders.CustomerPolicy{})

		result, err := handler.Handle(context.Background(), orders.IngestOrderCommand{OrderID: "x"})

		require.NoError(t, err)
		assert.Equal(t, orders.StatusRejected, result.Status)
		assert.Equal(t, orders.ReasonMissingCustomer, result.Reason)
	})
}

func TestIngestOrder_LineDescriptionsAreTruncated(t *testing.T) {
	// Arrange
	o := paidOrder()
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'x'
	}
	o.LineItems = o.LineItems[:1]
	o.LineItems[0].Title = string(long)
	repo := newFakeOrderRepo()
	repo.itemsBySKU["SKU-1"] = 11
	handler := orders.NewIngestOrderHandler(repo, &fakeOrderAPI{order: o}, nil, 1, orders.CustomerPolicy{})

	// Act
	_, err := handler.Handle(context.Background(), orders.IngestOrderCommand{OrderID: "x"})

	// Assert
	require.NoError(t, err)
	require.Len(t, repo.insertedLines, 1)
	assert.Len(t, repo.insertedLines[0].Description, order.MaxLineDescription)
}
