package commerce

import (
	"context"

	"github.com/retailbridge/rms-commerce-sync/internal/domain/order"
)

// API is the operation set the engine consumes from the commerce platform.
// Implementations wrap every call in rate limiting and classified retries.
type API interface {
	GetLocations(ctx context.Context) ([]Location, error)
	PrimaryLocation(ctx context.Context) (*Location, error)

	// FetchProductByHandle returns nil (no error) when the handle is absent.
	FetchProductByHandle(ctx context.Context, handle string) (*RemoteProduct, error)
	CreateProduct(ctx context.Context, input ProductInput) (*RemoteProduct, error)
	UpdateProduct(ctx context.Context, productID string, input ProductInput) error

	BulkCreateVariants(ctx context.Context, productID string, variants []VariantInput) ([]RemoteVariant, error)
	BulkUpdateVariants(ctx context.Context, productID string, variants []VariantInput) error

	ActivateInventoryTracking(ctx context.Context, inventoryItemID, locationID string) error
	SetInventoryOnHand(ctx context.Context, inventoryItemID, locationID string, quantity int) error

	SetMetafields(ctx context.Context, metafields []MetafieldInput) error

	FindAutomaticDiscountByTitle(ctx context.Context, title string) (*RemoteDiscount, error)
	CreateAutomaticDiscount(ctx context.Context, input DiscountInput) (string, error)
	UpdateAutomaticDiscount(ctx context.Context, discountID string, input DiscountInput) error

	EnsureCollection(ctx context.Context, name string) (string, error)
	AddProductsToCollection(ctx context.Context, collectionID string, productIDs []string) error

	FetchOrderByID(ctx context.Context, orderID string) (*order.CommerceOrder, error)
}
