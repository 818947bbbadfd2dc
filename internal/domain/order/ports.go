package order

import "context"

// Repository is the write side of the RMS store used by order ingestion.
type Repository interface {
	// HasOrderByReference reports whether an online-channel order with the
	// given reference number already exists.
	HasOrderByReference(ctx context.Context, referenceNumber string) (bool, error)

	// LookupItemIDBySKU resolves a commerce SKU to the internal item id.
	// Returns nil when the SKU is unknown.
	LookupItemIDBySKU(ctx context.Context, sku string) (*int64, error)

	// FindCustomerByEmail returns the customer id for an email, or nil.
	FindCustomerByEmail(ctx context.Context, email string) (*int64, error)

	// CreateCustomer inserts a new customer and returns its id.
	CreateCustomer(ctx context.Context, draft CustomerDraft) (int64, error)

	// InsertOrderTx writes the header and all lines in one transaction.
	// Any line failure rolls back the whole order.
	InsertOrderTx(ctx context.Context, header Header, lines []Line) (int64, error)
}
