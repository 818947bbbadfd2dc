package commerce

import (
	"time"

	"github.com/shopspring/decimal"
)

// Location is a commerce inventory location.
type Location struct {
	ID      string
	Name    string
	Primary bool
}

// RemoteVariant is the commerce-side snapshot of a variant.
type RemoteVariant struct {
	ID              string
	InventoryItemID string
	SKU             string
	Option1         string
	Option2         string
	Price           decimal.Decimal
	CompareAtPrice  *decimal.Decimal
	Barcode         string
}

// RemoteProduct is the commerce-side snapshot of a product fetched by handle.
type RemoteProduct struct {
	ID          string
	Handle      string
	Title       string
	Vendor      string
	ProductType string
	TaxonomyID  string
	Status      string
	Variants    []RemoteVariant
}

// VariantBySKU finds a remote variant by SKU, or nil.
func (p *RemoteProduct) VariantBySKU(sku string) *RemoteVariant {
	for i := range p.Variants {
		if p.Variants[i].SKU == sku {
			return &p.Variants[i]
		}
	}
	return nil
}

// VariantByOptions finds a remote variant by its (option1, option2) pair.
func (p *RemoteProduct) VariantByOptions(option1, option2 string) *RemoteVariant {
	for i := range p.Variants {
		if p.Variants[i].Option1 == option1 && p.Variants[i].Option2 == option2 {
			return &p.Variants[i]
		}
	}
	return nil
}

// ProductInput is the create/update payload for a product.
type ProductInput struct {
	Handle      string
	Title       string
	Vendor      string
	ProductType string
	TaxonomyID  string
	Status      string
}

// VariantInput is the bulk create/update payload for a variant. ID is set
// only on updates.
type VariantInput struct {
	ID             string
	SKU            string
	Option1        string
	Option2        string
	Price          decimal.Decimal
	CompareAtPrice *decimal.Decimal
	Barcode        string
}

// MetafieldInput is one typed name/value written to a commerce entity.
// At most MaxMetafieldsPerCall entries may be sent per call.
type MetafieldInput struct {
	OwnerID   string
	Namespace string
	Key       string
	Type      string
	Value     string
}

// MaxMetafieldsPerCall is the platform limit on metafieldsSet entries.
const MaxMetafieldsPerCall = 25

// RemoteDiscount is the commerce-side snapshot of an automatic discount.
type RemoteDiscount struct {
	ID       string
	Title    string
	Percent  decimal.Decimal
	StartsAt time.Time
	EndsAt   time.Time
}

// DiscountInput creates or updates an automatic percentage discount bounded
// by a sale window. Title doubles as the idempotency reference.
type DiscountInput struct {
	Title      string
	Percent    decimal.Decimal
	StartsAt   time.Time
	EndsAt     time.Time
	ProductIDs []string
}
