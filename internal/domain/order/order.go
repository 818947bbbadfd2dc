package order

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/retailbridge/rms-commerce-sync/internal/domain/shared"
)

// RMS channel constants for orders ingested from the commerce platform.
const (
	TypeSale           = 1
	ChannelTypeOnline  = 2
	MaxLineDescription = 255
)

// payableStatuses are the commerce financial statuses accepted for ingestion.
var payableStatuses = map[string]bool{
	"paid":           true,
	"partially_paid": true,
	"authorized":     true,
}

// Address is the shipping address attached to a commerce order.
type Address struct {
	Name     string
	Address1 string
	Address2 string
	City     string
	Province string
	Zip      string
	Country  string
	Phone    string
}

// Format renders the address as the RMS shipping notes line.
func (a *Address) Format() string {
	parts := make([]string, 0, 6)
	for _, p := range []string{a.Name, a.Address1, a.Address2, a.City, a.Province, a.Zip, a.Country, a.Phone} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, strings.TrimSpace(p))
		}
	}
	return strings.Join(parts, ", ")
}

// LineItem is one line of a commerce order.
type LineItem struct {
	SKU       string
	Title     string
	Quantity  int
	Price     decimal.Decimal // discounted unit price
	FullPrice decimal.Decimal // original unit price
}

// CommerceOrder is the full order fetched from the commerce platform.
type CommerceOrder struct {
	ID              string
	Name            string
	CreatedAt       time.Time
	FinancialStatus string
	Email           string
	CustomerName    string
	Total           decimal.Decimal
	Tax             decimal.Decimal
	ShippingAddress *Address
	LineItems       []LineItem
}

// Validate checks the ingestion preconditions: a payable financial status,
// at least one line with a non-empty SKU, and a positive total.
func (o *CommerceOrder) Validate() error {
	if !payableStatuses[o.FinancialStatus] {
		return shared.NewValidationError("order", fmt.Sprintf("financial status %q is not payable", o.FinancialStatus))
	}
	if !o.Total.IsPositive() {
		return shared.NewValidationError("order", "total must be positive")
	}
	hasSKU := false
	for i := range o.LineItems {
		if strings.TrimSpace(o.LineItems[i].SKU) != "" {
			hasSKU = true
			break
		}
	}
	if !hasSKU {
		return shared.NewValidationError("order", "no line item carries a SKU")
	}
	return nil
}

// Header is the RMS Order row written once per ingested commerce order.
// ReferenceNumber is the idempotency key (unique per ChannelType).
type Header struct {
	StoreID         int
	Type            int
	Time            time.Time
	CustomerID      *int64
	Total           decimal.Decimal
	Tax             decimal.Decimal
	Comment         string
	ShippingNotes   string
	ChannelType     int
	ReferenceNumber string
}

// Line is one RMS OrderEntry row.
type Line struct {
	ItemID      int64
	Description string
	Price       decimal.Decimal
	FullPrice   decimal.Decimal
	Quantity    int
}

// CustomerDraft holds the fields used to create an RMS customer on first
// contact.
type CustomerDraft struct {
	Email string
	Name  string
}

// TruncateDescription caps a line title at the RMS column width, cutting on
// a rune boundary so a multi-byte character is never split.
func TruncateDescription(title string) string {
	if len(title) <= MaxLineDescription {
		return title
	}
	cut := MaxLineDescription
	for cut > 0 && !utf8.RuneStart(title[cut]) {
		cut--
	}
	return title[:cut]
}
