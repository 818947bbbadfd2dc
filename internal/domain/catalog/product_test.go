package catalog_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/retailbridge/rms-commerce-sync/internal/domain/catalog"
)

func saleVariant(price, salePrice float64, start, end time.Time) catalog.Variant {
	sp := decimal.NewFromFloat(salePrice)
	return catalog.Variant{
		SKU:       "S1",
		Price:     decimal.NewFromFloat(price),
		SalePrice: &sp,
		SaleStart: &start,
		SaleEnd:   &end,
		Quantity:  1,
	}
}

func TestVariant_OnSale(t *testing.T) {
	now := time.Now()

	active := saleVariant(100, 80, now.Add(-time.Hour), now.Add(time.Hour))
	assert.True(t, active.OnSale(now))

	expired := saleVariant(100, 80, now.Add(-2*time.Hour), now.Add(-time.Hour))
	assert.False(t, expired.OnSale(now))

	future := saleVariant(100, 80, now.Add(time.Hour), now.Add(2*time.Hour))
	assert.False(t, future.OnSale(now))

	// A "sale" at or above the regular price is not a sale.
	notCheaper := saleVariant(100, 100, now.Add(-time.Hour), now.Add(time.Hour))
	assert.False(t, notCheaper.OnSale(now))
}

func TestVariant_OnSale_BoundaryInstants(t *testing.T) {
	now := time.Now()
	v := saleVariant(100, 80, now, now.Add(time.Hour))

	// Start is inclusive, end is exclusive.
	assert.True(t, v.OnSale(now))
	assert.False(t, v.OnSale(now.Add(time.Hour)))
}

func TestVariant_DiscountPercent(t *testing.T) {
	now := time.Now()
	v := saleVariant(100, 80, now.Add(-time.Hour), now.Add(time.Hour))

	assert.True(t, v.DiscountPercent(now).Equal(decimal.NewFromInt(20)))

	// A third off rounds to 2 decimals.
	third := saleVariant(30, 20, now.Add(-time.Hour), now.Add(time.Hour))
	assert.True(t, third.DiscountPercent(now).Equal(decimal.NewFromFloat(33.33)))

	off := saleVariant(100, 80, now.Add(-2*time.Hour), now.Add(-time.Hour))
	assert.True(t, off.DiscountPercent(now).IsZero())
}

func TestProduct_ResolveStatus(t *testing.T) {
	inStock := &catalog.Product{Variants: []catalog.Variant{{Quantity: 1}, {Quantity: 0}}}
	assert.Equal(t, catalog.StatusActive, inStock.ResolveStatus())

	soldOut := &catalog.Product{Variants: []catalog.Variant{{Quantity: 0}, {Quantity: 0}}}
	assert.Equal(t, catalog.StatusDraft, soldOut.ResolveStatus())
}

func TestProduct_MaxLastUpdated(t *testing.T) {
	older := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	p := &catalog.Product{Variants: []catalog.Variant{
		{LastUpdated: older},
		{LastUpdated: newer},
	}}

	assert.Equal(t, newer, p.MaxLastUpdated())
}

func TestItemRow_Validate(t *testing.T) {
	valid := catalog.ItemRow{SKU: "A1", Description: "Blusa", Price: decimal.NewFromInt(10)}
	assert.NoError(t, valid.Validate())

	noSKU := catalog.ItemRow{Description: "Blusa", Price: decimal.NewFromInt(10)}
	assert.Error(t, noSKU.Validate())

	noPrice := catalog.ItemRow{SKU: "A1", Description: "Blusa"}
	assert.Error(t, noPrice.Validate())
}
