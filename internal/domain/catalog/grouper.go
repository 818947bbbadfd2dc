package catalog

import (
	"fmt"
	"sort"
	"strings"
)

// MaxVariantsPerProduct is the commerce platform cap on variants per product.
// Groups beyond it are split into suffixed sibling products.
const MaxVariantsPerProduct = 100

// VariantGrouper folds a batch of RMS item rows into product aggregates
// keyed by model-color code.
type VariantGrouper struct{}

// NewVariantGrouper creates a grouper.
func NewVariantGrouper() *VariantGrouper {
	return &VariantGrouper{}
}

// GroupKey normalizes a CCOD for grouping: uppercase, trimmed. Rows without
// a CCOD fall back to their SKU and become singleton products.
func GroupKey(row *ItemRow) string {
	key := strings.ToUpper(strings.TrimSpace(row.CCOD))
	if key == "" {
		return strings.ToUpper(strings.TrimSpace(row.SKU))
	}
	return key
}

// Group builds product aggregates from item rows. Rows failing validation
// are dropped with a warning on no product; they are reported through the
// returned skipped count instead. Output is sorted by key so resume offsets
// are stable across runs.
func (g *VariantGrouper) Group(rows []ItemRow) (products []*Product, skipped int) {
	byKey := make(map[string][]*ItemRow)
	order := make([]string, 0)

	for i := range rows {
		row := &rows[i]
		if err := row.Validate(); err != nil {
			skipped++
			continue
		}
		key := GroupKey(row)
		if key == "" {
			skipped++
			continue
		}
		if _, seen := byKey[key]; !seen {
			order = append(order, key)
		}
		byKey[key] = append(byKey[key], row)
	}
	sort.Strings(order)

	for _, key := range order {
		products = append(products, g.buildProducts(key, byKey[key])...)
	}
	return products, skipped
}

// buildProducts converts one CCOD group into one or more products,
// deduplicating (color, size) pairs and splitting at the variant cap.
func (g *VariantGrouper) buildProducts(key string, rows []*ItemRow) []*Product {
	var warnings []Warning

	// Deduplicate on (color, canonical size), keeping the fresher row.
	type optionKey struct{ color, size string }
	chosen := make(map[optionKey]*ItemRow)
	optionOrder := make([]optionKey, 0, len(rows))
	for _, row := range rows {
		size, _ := NormalizeSize(row.Talla)
		ok := optionKey{color: strings.TrimSpace(row.Color), size: size}
		if prev, dup := chosen[ok]; dup {
			warnings = append(warnings, Warning{
				Code:    WarnDuplicateVariant,
				Message: fmt.Sprintf("duplicate (%s, %s) in %s: kept sku %s over %s", ok.color, ok.size, key, pickFresher(prev, row).SKU, pickStaler(prev, row).SKU),
			})
			chosen[ok] = pickFresher(prev, row)
			continue
		}
		optionOrder = append(optionOrder, ok)
		chosen[ok] = row
	}

	variants := make([]Variant, 0, len(optionOrder))
	descriptions := make([]string, 0, len(optionOrder))
	for _, ok := range optionOrder {
		row := chosen[ok]
		size, sizeOriginal := NormalizeSize(row.Talla)
		variants = append(variants, Variant{
			SKU:          row.SKU,
			ItemID:       row.ItemID,
			Color:        strings.TrimSpace(row.Color),
			Size:         size,
			SizeOriginal: sizeOriginal,
			Price:        row.Price,
			SalePrice:    row.SalePrice,
			SaleStart:    row.SaleStart,
			SaleEnd:      row.SaleEnd,
			Quantity:     row.Quantity,
			LastUpdated:  row.LastUpdated,
		})
		descriptions = append(descriptions, row.Description)
	}

	title := deriveTitle(descriptions)
	first := chosen[optionOrder[0]]

	if len(variants) > MaxVariantsPerProduct {
		warnings = append(warnings, Warning{
			Code:    WarnVariantCap,
			Message: fmt.Sprintf("group %s has %d variants; splitting at %d", key, len(variants), MaxVariantsPerProduct),
		})
	}

	var out []*Product
	for part := 0; part*MaxVariantsPerProduct < len(variants); part++ {
		lo := part * MaxVariantsPerProduct
		hi := lo + MaxVariantsPerProduct
		if hi > len(variants) {
			hi = len(variants)
		}
		p := &Product{
			Key:              key,
			Title:            title,
			Vendor:           first.Familia,
			ProductType:      first.Categoria,
			Variants:         variants[lo:hi],
			CollectionKeys:   collectionKeys(first),
			Familia:          first.Familia,
			Categoria:        first.Categoria,
			ExtendedCategory: first.ExtendedCategory,
			Genero:           first.Genero,
			ItemID:           first.ItemID,
			SplitIndex:       part,
		}
		if part == 0 {
			p.Warnings = warnings
		}
		p.Status = p.ResolveStatus()
		out = append(out, p)
	}
	return out
}

func collectionKeys(row *ItemRow) []string {
	keys := make([]string, 0, 2)
	if strings.TrimSpace(row.Categoria) != "" {
		keys = append(keys, strings.TrimSpace(row.Categoria))
	}
	if strings.TrimSpace(row.Familia) != "" {
		keys = append(keys, strings.TrimSpace(row.Familia))
	}
	return keys
}

func pickFresher(a, b *ItemRow) *ItemRow {
	if b.LastUpdated.After(a.LastUpdated) {
		return b
	}
	return a
}

func pickStaler(a, b *ItemRow) *ItemRow {
	if b.LastUpdated.After(a.LastUpdated) {
		return a
	}
	return b
}

// deriveTitle picks the longest common prefix of the group's descriptions,
// falling back to the first description when the prefix is too short to be
// a usable title.
func deriveTitle(descriptions []string) string {
	if len(descriptions) == 0 {
		return ""
	}
	prefix := descriptions[0]
	for _, d := range descriptions[1:] {
		prefix = commonPrefix(prefix, d)
		if prefix == "" {
			break
		}
	}
	prefix = strings.TrimSpace(strings.TrimRight(prefix, "-/ "))
	if len(prefix) < 3 {
		return strings.TrimSpace(descriptions[0])
	}
	return prefix
}

func commonPrefix(a, b string) string {
	ra, rb := []rune(a), []rune(b)
	n := len(ra)
	if len(rb) < n {
		n = len(rb)
	}
	i := 0
	for i < n && ra[i] == rb[i] {
		i++
	}
	return string(ra[:i])
}
