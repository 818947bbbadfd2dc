package orders

import (
	"context"
	"fmt"
	"strings"

	"github.com/retailbridge/rms-commerce-sync/internal/application/common"
	"github.com/retailbridge/rms-commerce-sync/internal/domain/commerce"
	"github.com/retailbridge/rms-commerce-sync/internal/domain/order"
)

// Terminal statuses of one ingestion.
const (
	StatusPersisted = "persisted"
	StatusRejected  = "rejected"
	StatusDuplicate = "duplicate"
)

// Rejection reasons surfaced in results and logs.
const (
	ReasonInvalidOrder    = "InvalidOrder"
	ReasonUnknownSKU      = "UnknownSKU"
	ReasonMissingCustomer = "MissingCustomer"
)

// Metrics receives order ingestion telemetry.
type Metrics interface {
	OrderIngested(status string)
}

// CustomerPolicy controls how commerce customers map onto RMS customers.
type CustomerPolicy struct {
	// AllowOrdersWithoutCustomer permits a nil customer id on the header.
	AllowOrdersWithoutCustomer bool
	// DefaultCustomerID is attached to guest orders when non-nil.
	DefaultCustomerID *int64
	// RequireCustomerEmail rejects orders whose email is missing.
	RequireCustomerEmail bool
	// GuestCustomerName names customers created for email-only orders.
	GuestCustomerName string
}

// IngestOrderCommand requests ingestion of one commerce order into RMS.
type IngestOrderCommand struct {
	OrderID string
}

// IngestOrderResult is the structured outcome of one ingestion.
type IngestOrderResult struct {
	Status          string
	Reason          string
	ReferenceNumber string
	RMSOrderID      int64
	Lines           int
}

// IngestOrderHandler runs the order ingestion pipeline: duplicate check,
// fetch, validation, customer resolution, SKU resolution, atomic insert.
type IngestOrderHandler struct {
	repo    order.Repository
	api     commerce.API
	metrics Metrics
	storeID int
	policy  CustomerPolicy
}

// NewIngestOrderHandler wires an ingestion handler. metrics may be nil.
func NewIngestOrderHandler(repo order.Repository, api commerce.API, metrics Metrics, storeID int, policy CustomerPolicy) *IngestOrderHandler {
	return &IngestOrderHandler{
		repo:    repo,
		api:     api,
		metrics: metrics,
		storeID: storeID,
		policy:  policy,
	}
}

// Handle ingests one order. Rejections are reported through the result, not
// the error; the error covers infrastructure failures only.
func (h *IngestOrderHandler) Handle(ctx context.Context, cmd IngestOrderCommand) (*IngestOrderResult, error) {
	log := common.LoggerFromContext(ctx).WithField("order_id", cmd.OrderID)

	remote, err := h.api.FetchOrderByID(ctx, cmd.OrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch order: %w", err)
	}
	log = log.WithField("reference", remote.Name)

	exists, err := h.repo.HasOrderByReference(ctx, remote.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to check for existing order: %w", err)
	}
	if exists {
		log.Info("order already ingested")
		return h.finish(&IngestOrderResult{Status: StatusDuplicate, ReferenceNumber: remote.Name}), nil
	}

	if err := remote.Validate(); err != nil {
		log.WithError(err).Warn("order failed validation")
		return h.finish(&IngestOrderResult{Status: StatusRejected, Reason: ReasonInvalidOrder, ReferenceNumber: remote.Name}), nil
	}

	customerID, rejected, err := h.resolveCustomer(ctx, remote)
	if err != nil {
		return nil, err
	}
	if rejected != "" {
		log.WithField("reason", rejected).Warn("order rejected by customer policy")
		return h.finish(&IngestOrderResult{Status: StatusRejected, Reason: rejected, ReferenceNumber: remote.Name}), nil
	}

	lines, unknownSKU, err := h.resolveLines(ctx, remote)
	if err != nil {
		return nil, err
	}
	if unknownSKU != "" {
		// A single unresolved SKU rejects the whole order; partial orders
		// would desynchronize inventory.
		log.WithField("sku", unknownSKU).Warn("order references unknown sku")
		return h.finish(&IngestOrderResult{Status: StatusRejected, Reason: ReasonUnknownSKU, ReferenceNumber: remote.Name}), nil
	}

	header := h.buildHeader(remote, customerID)
	rmsOrderID, err := h.repo.InsertOrderTx(ctx, header, lines)
	if err != nil {
		return nil, fmt.Errorf("failed to persist order: %w", err)
	}

	log.WithFields(map[string]any{
		"rms_order_id": rmsOrderID,
		"lines":        len(lines),
	}).Info("order ingested")

	return h.finish(&IngestOrderResult{
		Status:          StatusPersisted,
		ReferenceNumber: remote.Name,
		RMSOrderID:      rmsOrderID,
		Lines:           len(lines),
	}), nil
}

// resolveCustomer applies the customer policy: lookup by email, create on
// first contact, or fall back to the guest configuration. A non-empty second
// return is a rejection reason.
func (h *IngestOrderHandler) resolveCustomer(ctx context.Context, remote *order.CommerceOrder) (*int64, string, error) {
	email := strings.TrimSpace(remote.Email)
	if email == "" {
		if h.policy.RequireCustomerEmail {
			return nil, ReasonMissingCustomer, nil
		}
		if h.policy.DefaultCustomerID != nil {
			return h.policy.DefaultCustomerID, "", nil
		}
		if h.policy.AllowOrdersWithoutCustomer {
			return nil, "", nil
		}
		return nil, ReasonMissingCustomer, nil
	}

	id, err := h.repo.FindCustomerByEmail(ctx, email)
	if err != nil {
		return nil, "", fmt.Errorf("failed to look up customer: %w", err)
	}
	if id != nil {
		return id, "", nil
	}

	name := strings.TrimSpace(remote.CustomerName)
	if name == "" {
		name = h.policy.GuestCustomerName
	}
	created, err := h.repo.CreateCustomer(ctx, order.CustomerDraft{Email: email, Name: name})
	if err != nil {
		return nil, "", fmt.Errorf("failed to create customer: %w", err)
	}
	return &created, "", nil
}

// resolveLines maps every line's SKU to an RMS item id. A non-empty second
// return is the first SKU that could not be resolved.
func (h *IngestOrderHandler) resolveLines(ctx context.Context, remote *order.CommerceOrder) ([]order.Line, string, error) {
	lines := make([]order.Line, 0, len(remote.LineItems))
	for i := range remote.LineItems {
		item := &remote.LineItems[i]
		sku := strings.TrimSpace(item.SKU)
		if sku == "" {
			return nil, "(empty)", nil
		}
		itemID, err := h.repo.LookupItemIDBySKU(ctx, sku)
		if err != nil {
			return nil, "", fmt.Errorf("failed to resolve sku %q: %w", sku, err)
		}
		if itemID == nil {
			return nil, sku, nil
		}
		lines = append(lines, order.Line{
			ItemID:      *itemID,
			Description: order.TruncateDescription(item.Title),
			Price:       item.Price,
			FullPrice:   item.FullPrice,
			Quantity:    item.Quantity,
		})
	}
	return lines, "", nil
}

func (h *IngestOrderHandler) buildHeader(remote *order.CommerceOrder, customerID *int64) order.Header {
	shippingNotes := ""
	if remote.ShippingAddress != nil {
		shippingNotes = remote.ShippingAddress.Format()
	}
	return order.Header{
		StoreID:         h.storeID,
		Type:            order.TypeSale,
		Time:            remote.CreatedAt,
		CustomerID:      customerID,
		Total:           remote.Total,
		Tax:             remote.Tax,
		Comment:         fmt.Sprintf("Shopify Order #%s - %s", remote.Name, remote.FinancialStatus),
		ShippingNotes:   shippingNotes,
		ChannelType:     order.ChannelTypeOnline,
		ReferenceNumber: remote.Name,
	}
}

func (h *IngestOrderHandler) finish(result *IngestOrderResult) *IngestOrderResult {
	if h.metrics != nil {
		h.metrics.OrderIngested(result.Status)
	}
	return result
}
