package catalog

import "strings"

// unicodeFractions maps vulgar fraction runes to their decimal suffix form.
// "23½" becomes "23.5"; a bare "½" becomes ".5".
var unicodeFractions = map[rune]string{
	'½': ".5",
	'¼': ".25",
	'¾': ".75",
	'⅓': ".33",
	'⅔': ".66",
	'⅛': ".125",
	'⅜': ".375",
	'⅝': ".625",
	'⅞': ".875",
}

// NormalizeSize converts a raw RMS size label to its canonical decimal form.
// Unicode fractions are substituted in place, comma decimal separators become
// dots, and surrounding whitespace is trimmed. Alphanumeric sizes ("M", "XL",
// "38/40") pass through unchanged. The returned original is non-empty only
// when the canonical form differs from raw; it feeds the talla_original
// metafield preserving the source form.
func NormalizeSize(raw string) (canonical string, original string) {
	trimmed := strings.TrimSpace(raw)

	var b strings.Builder
	for _, r := range trimmed {
		if frac, ok := unicodeFractions[r]; ok {
			b.WriteString(frac)
			continue
		}
		if r == ',' {
			b.WriteByte('.')
			continue
		}
		b.WriteRune(r)
	}
	canonical = strings.TrimSpace(b.String())

	if canonical != raw {
		return canonical, raw
	}
	return canonical, ""
}
