package catalog

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/retailbridge/rms-commerce-sync/internal/domain/shared"
)

// ItemRow is the read model projected from View_Items. The engine never
// writes these rows; the RMS item master is the source of truth.
type ItemRow struct {
	ItemID           int64
	SKU              string
	CCOD             string
	Description      string
	Familia          string
	Categoria        string
	ExtendedCategory string
	Genero           string
	Color            string
	Talla            string
	Price            decimal.Decimal
	SalePrice        *decimal.Decimal
	SaleStart        *time.Time
	SaleEnd          *time.Time
	Quantity         int
	StockA           int
	StockB           int
	Tax              decimal.Decimal
	LastUpdated      time.Time
}

// Validate enforces the row invariants: non-empty SKU and description,
// positive price.
func (r *ItemRow) Validate() error {
	if r.SKU == "" {
		return shared.NewValidationError("item_row", "sku must not be empty")
	}
	if r.Description == "" {
		return shared.NewValidationError("item_row", "description must not be empty")
	}
	if !r.Price.IsPositive() {
		return shared.NewValidationError("item_row", "price must be positive")
	}
	return nil
}

// OnSale reports whether the row carries an active sale price at the given
// instant: salePrice < price and saleStart <= now < saleEnd.
func (r *ItemRow) OnSale(now time.Time) bool {
	if r.SalePrice == nil || r.SaleStart == nil || r.SaleEnd == nil {
		return false
	}
	if !r.SalePrice.LessThan(r.Price) {
		return false
	}
	return !now.Before(*r.SaleStart) && now.Before(*r.SaleEnd)
}
