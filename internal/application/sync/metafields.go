package sync

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/retailbridge/rms-commerce-sync/internal/domain/catalog"
	"github.com/retailbridge/rms-commerce-sync/internal/domain/commerce"
	"github.com/retailbridge/rms-commerce-sync/internal/domain/taxonomy"
)

const (
	namespaceRMS    = "rms"
	namespaceCustom = "custom"

	typeText     = "single_line_text_field"
	typeInteger  = "number_integer"
	typeDateTime = "date_time"
	typeJSON     = "json"
)

// BuildMetafields composes the metafield set written for one product. The
// per-variant fields (talla, color) come from the first variant of the
// aggregate; talla_original is emitted only when normalization changed the
// source value.
func BuildMetafields(p *catalog.Product, ownerID string) []commerce.MetafieldInput {
	fields := make([]commerce.MetafieldInput, 0, 16)

	text := func(ns, key, value string) {
		if value == "" {
			return
		}
		fields = append(fields, commerce.MetafieldInput{
			OwnerID:   ownerID,
			Namespace: ns,
			Key:       key,
			Type:      typeText,
			Value:     value,
		})
	}

	text(namespaceRMS, "familia", p.Familia)
	text(namespaceRMS, "categoria", p.Categoria)
	text(namespaceRMS, "ccod", p.Key)
	text(namespaceRMS, "extended_category", p.ExtendedCategory)
	text(namespaceRMS, "genero", p.Genero)

	if len(p.Variants) > 0 {
		v := p.Variants[0]
		text(namespaceRMS, "talla", v.Size)
		if v.SizeOriginal != "" {
			text(namespaceRMS, "talla_original", v.SizeOriginal)
		}
		text(namespaceRMS, "color", v.Color)
	}

	fields = append(fields, commerce.MetafieldInput{
		OwnerID:   ownerID,
		Namespace: namespaceRMS,
		Key:       "item_id",
		Type:      typeInteger,
		Value:     strconv.FormatInt(p.ItemID, 10),
	})

	if attrs := marshalAttributes(p.Attributes); attrs != "" {
		fields = append(fields, commerce.MetafieldInput{
			OwnerID:   ownerID,
			Namespace: namespaceRMS,
			Key:       "product_attributes",
			Type:      typeJSON,
			Value:     attrs,
		})
	}

	if start, end, ok := saleWindow(p); ok {
		fields = append(fields,
			commerce.MetafieldInput{
				OwnerID:   ownerID,
				Namespace: namespaceRMS,
				Key:       "sale_start_date",
				Type:      typeDateTime,
				Value:     start.UTC().Format(time.RFC3339),
			},
			commerce.MetafieldInput{
				OwnerID:   ownerID,
				Namespace: namespaceRMS,
				Key:       "sale_end_date",
				Type:      typeDateTime,
				Value:     end.UTC().Format(time.RFC3339),
			},
		)
	}

	gender, ageGroup := mapGender(p.Genero)
	text(namespaceCustom, "target_gender", gender)
	text(namespaceCustom, "age_group", ageGroup)

	if taxonomy.IsFootwear(p.TaxonomyID) && len(p.Variants) > 0 {
		text(namespaceCustom, "shoe_size", p.Variants[0].Size)
	}

	return fields
}

// saleWindow is the union of the variants' marked-down sale windows. The
// dates are written whenever a window exists, even when the markdown is too
// shallow for an automatic discount.
func saleWindow(p *catalog.Product) (start, end time.Time, ok bool) {
	for i := range p.Variants {
		v := &p.Variants[i]
		if v.SalePrice == nil || v.SaleStart == nil || v.SaleEnd == nil {
			continue
		}
		if !v.SalePrice.LessThan(v.Price) {
			continue
		}
		if !ok || v.SaleStart.Before(start) {
			start = *v.SaleStart
		}
		if !ok || v.SaleEnd.After(end) {
			end = *v.SaleEnd
		}
		ok = true
	}
	return start, end, ok
}

// ChunkMetafields partitions fields into slices no larger than the per-call
// cap accepted by the commerce API.
func ChunkMetafields(fields []commerce.MetafieldInput) [][]commerce.MetafieldInput {
	if len(fields) == 0 {
		return nil
	}
	chunks := make([][]commerce.MetafieldInput, 0, (len(fields)+commerce.MaxMetafieldsPerCall-1)/commerce.MaxMetafieldsPerCall)
	for len(fields) > commerce.MaxMetafieldsPerCall {
		chunks = append(chunks, fields[:commerce.MaxMetafieldsPerCall])
		fields = fields[commerce.MaxMetafieldsPerCall:]
	}
	return append(chunks, fields)
}

// mapGender translates the RMS genero value into the commerce taxonomy's
// target_gender and age_group attributes.
func mapGender(genero string) (gender, ageGroup string) {
	switch strings.ToLower(strings.TrimSpace(genero)) {
	case "dama", "mujer", "femenino":
		return "female", "adult"
	case "caballero", "hombre", "masculino":
		return "male", "adult"
	case "niña", "nina":
		return "female", "kids"
	case "niño", "nino":
		return "male", "kids"
	case "unisex":
		return "unisex", "adult"
	case "":
		return "", ""
	default:
		return "unisex", "adult"
	}
}

func marshalAttributes(attrs map[string]any) string {
	if len(attrs) == 0 {
		return ""
	}
	data, err := json.Marshal(attrs)
	if err != nil {
		return ""
	}
	return string(data)
}
