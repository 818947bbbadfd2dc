package sync

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/retailbridge/rms-commerce-sync/internal/domain/catalog"
	"github.com/retailbridge/rms-commerce-sync/internal/domain/commerce"
)

var hundred = decimal.NewFromInt(100)

// variantInput converts a prepared variant into the bulk payload, applying
// sale pricing. remoteID is empty on creates.
func variantInput(v *catalog.Variant, remoteID string, now time.Time) commerce.VariantInput {
	input := commerce.VariantInput{
		ID:      remoteID,
		SKU:     v.SKU,
		Option1: v.Color,
		Option2: v.Size,
		Price:   v.Price,
		Barcode: v.Barcode,
	}
	if v.OnSale(now) {
		input.Price = *v.SalePrice
		full := v.Price
		input.CompareAtPrice = &full
	}
	return input
}

// VariantDiff is the set difference between the prepared variants and the
// remote snapshot, keyed by (option1, option2).
type VariantDiff struct {
	Create []commerce.VariantInput
	Update []commerce.VariantInput
}

// DiffVariants computes which variants must be created and which updated.
// Remote variants with no local counterpart are left alone; zero-stock rows
// remain on the product for history.
func DiffVariants(local []catalog.Variant, remote *commerce.RemoteProduct, now time.Time) VariantDiff {
	var diff VariantDiff
	for i := range local {
		v := &local[i]
		var match *commerce.RemoteVariant
		if remote != nil {
			match = remote.VariantByOptions(v.Color, v.Size)
		}
		if match == nil {
			diff.Create = append(diff.Create, variantInput(v, "", now))
			continue
		}
		if variantChanged(v, match, now) {
			diff.Update = append(diff.Update, variantInput(v, match.ID, now))
		}
	}
	return diff
}

func variantChanged(v *catalog.Variant, remote *commerce.RemoteVariant, now time.Time) bool {
	input := variantInput(v, remote.ID, now)
	if input.SKU != remote.SKU {
		return true
	}
	if !input.Price.Equal(remote.Price) {
		return true
	}
	switch {
	case input.CompareAtPrice == nil && remote.CompareAtPrice != nil:
		return true
	case input.CompareAtPrice != nil && remote.CompareAtPrice == nil:
		return true
	case input.CompareAtPrice != nil && !input.CompareAtPrice.Equal(*remote.CompareAtPrice):
		return true
	}
	return false
}

// ProductChanged reports whether the prepared product differs from the remote
// snapshot on any observable field: title, vendor, productType, status, or
// any variant's price, compareAtPrice, or sku. ForceUpdate on the run bypasses
// this check entirely.
func ProductChanged(p *catalog.Product, remote *commerce.RemoteProduct, now time.Time) bool {
	if remote == nil {
		return true
	}
	if p.Title != remote.Title ||
		p.Vendor != remote.Vendor ||
		p.ProductType != remote.ProductType ||
		string(p.Status) != remote.Status {
		return true
	}
	if p.TaxonomyID != "" && p.TaxonomyID != remote.TaxonomyID {
		return true
	}
	diff := DiffVariants(p.Variants, remote, now)
	return len(diff.Create) > 0 || len(diff.Update) > 0
}

// ApplyDiscount marks the product discount-eligible when its steepest active
// variant markdown clears the minimum ratio. The discount window is the union
// of the qualifying variants' sale windows.
func ApplyDiscount(p *catalog.Product, now time.Time) {
	minPercent := catalog.MinDiscountRatio.Mul(hundred)
	var maxPercent decimal.Decimal
	var start, end time.Time
	found := false
	for i := range p.Variants {
		v := &p.Variants[i]
		percent := v.DiscountPercent(now)
		if percent.LessThan(minPercent) {
			continue
		}
		if !found || percent.GreaterThan(maxPercent) {
			maxPercent = percent
		}
		if !found || v.SaleStart.Before(start) {
			start = *v.SaleStart
		}
		if !found || v.SaleEnd.After(end) {
			end = *v.SaleEnd
		}
		found = true
	}
	if !found {
		p.Discount = nil
		return
	}
	p.Discount = &catalog.Discount{Percent: maxPercent, StartsAt: start, EndsAt: end}
}
