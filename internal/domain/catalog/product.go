package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductStatus mirrors the commerce product status values the engine writes.
type ProductStatus string

const (
	StatusActive ProductStatus = "ACTIVE"
	StatusDraft  ProductStatus = "DRAFT"
)

// MinDiscountRatio is the minimum relative markdown that makes a product
// eligible for an automatic discount.
var MinDiscountRatio = decimal.NewFromFloat(0.05)

// Variant is one sellable row of a product: option1 is the RMS color,
// option2 the normalized size.
type Variant struct {
	SKU            string
	ItemID         int64
	Color          string
	Size           string
	SizeOriginal   string
	Price          decimal.Decimal
	CompareAtPrice *decimal.Decimal
	SalePrice      *decimal.Decimal
	SaleStart      *time.Time
	SaleEnd        *time.Time
	Quantity       int
	Barcode        string
	LastUpdated    time.Time
}

// OnSale reports whether the variant has an active markdown at now.
func (v *Variant) OnSale(now time.Time) bool {
	if v.SalePrice == nil || v.SaleStart == nil || v.SaleEnd == nil {
		return false
	}
	if !v.SalePrice.LessThan(v.Price) {
		return false
	}
	return !now.Before(*v.SaleStart) && now.Before(*v.SaleEnd)
}

// DiscountPercent returns the markdown of the variant relative to its full
// price, as a percentage rounded to 2 decimals. Zero when not on sale.
func (v *Variant) DiscountPercent(now time.Time) decimal.Decimal {
	if !v.OnSale(now) {
		return decimal.Zero
	}
	return v.Price.Sub(*v.SalePrice).
		Div(v.Price).
		Mul(decimal.NewFromInt(100)).
		Round(2)
}

// Discount is a time-bounded automatic percentage rule covering a product.
type Discount struct {
	Percent  decimal.Decimal
	StartsAt time.Time
	EndsAt   time.Time
}

// Warning is a non-fatal grouping anomaly surfaced in run summaries.
type Warning struct {
	Code    string
	Message string
}

const (
	WarnDuplicateVariant = "DuplicateVariant"
	WarnVariantCap       = "VariantCap"
)

// Product is the in-memory aggregate built per batch from RMS item rows and
// discarded after upsert. Key is the normalized CCOD (or SKU fallback).
type Product struct {
	Key              string
	Title            string
	Vendor           string
	ProductType      string
	TaxonomyID       string
	Handle           string
	Status           ProductStatus
	Variants         []Variant
	CollectionKeys   []string
	Discount         *Discount
	Warnings         []Warning
	Familia          string
	Categoria        string
	ExtendedCategory string
	Genero           string
	ItemID           int64
	// SplitIndex is non-zero on the second and later parts of a variant
	// group that exceeded the commerce variant cap; it suffixes the handle.
	SplitIndex int
	// Attributes preserves open-ended source fields for the
	// product_attributes metafield without affecting typed logic.
	Attributes map[string]any
}

// TotalQuantity sums stock across variants.
func (p *Product) TotalQuantity() int {
	total := 0
	for i := range p.Variants {
		total += p.Variants[i].Quantity
	}
	return total
}

// ResolveStatus derives the commerce status from stock: ACTIVE iff any
// variant has positive inventory, DRAFT otherwise.
func (p *Product) ResolveStatus() ProductStatus {
	if p.TotalQuantity() > 0 {
		return StatusActive
	}
	return StatusDraft
}

// MaxLastUpdated returns the greatest source timestamp across variants,
// feeding the update watermark.
func (p *Product) MaxLastUpdated() time.Time {
	var max time.Time
	for i := range p.Variants {
		if p.Variants[i].LastUpdated.After(max) {
			max = p.Variants[i].LastUpdated
		}
	}
	return max
}
