package catalog

import (
	"fmt"
	"strings"
	"unicode"
)

// accentFold maps accented characters common in RMS descriptions to their
// ASCII base form so handles and taxonomy tokens stay URL-safe and stable.
var accentFold = map[rune]rune{
	'á': 'a', 'à': 'a', 'ä': 'a', 'â': 'a', 'ã': 'a',
	'é': 'e', 'è': 'e', 'ë': 'e', 'ê': 'e',
	'í': 'i', 'ì': 'i', 'ï': 'i', 'î': 'i',
	'ó': 'o', 'ò': 'o', 'ö': 'o', 'ô': 'o', 'õ': 'o',
	'ú': 'u', 'ù': 'u', 'ü': 'u', 'û': 'u',
	'ñ': 'n', 'ç': 'c',
}

// FoldAccents lowercases s and replaces accented runes with their base form.
func FoldAccents(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if folded, ok := accentFold[r]; ok {
			b.WriteRune(folded)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Slugify reduces s to a lowercase dash-separated URL-safe token.
func Slugify(s string) string {
	folded := FoldAccents(s)
	var b strings.Builder
	lastDash := true
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r) && r < 128, unicode.IsDigit(r):
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

// DeriveHandle builds the deterministic commerce handle for a product from
// its title and CCOD. The same (ccod, title) pair always yields the same
// handle; collisions are resolved by the caller via HandleWithSuffix.
func DeriveHandle(ccod, title string) string {
	titleSlug := Slugify(title)
	ccodSlug := Slugify(ccod)
	switch {
	case titleSlug == "" && ccodSlug == "":
		return "producto"
	case titleSlug == "":
		return ccodSlug
	case ccodSlug == "":
		return titleSlug
	}
	return titleSlug + "-" + ccodSlug
}

// HandleWithSuffix appends a deterministic numeric suffix, used both for
// collision resolution and for splitting oversized variant groups.
func HandleWithSuffix(handle string, n int) string {
	return fmt.Sprintf("%s-%d", handle, n)
}
