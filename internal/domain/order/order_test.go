package order_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/retailbridge/rms-commerce-sync/internal/domain/order"
)

func TestTruncateDescription_ShortTitleUnchanged(t *testing.T) {
	assert.Equal(t, "Blusa Flor", order.TruncateDescription("Blusa Flor"))
}

func TestTruncateDescription_CapsAtColumnWidth(t *testing.T) {
	long := strings.Repeat("x", 300)

	got := order.TruncateDescription(long)

	assert.Len(t, got, order.MaxLineDescription)
}

func TestTruncateDescription_NeverSplitsARune(t *testing.T) {
	// 200 two-byte runes; the 255-byte cap falls mid-rune.
	long := strings.Repeat("á", 200)

	got := order.TruncateDescription(long)

	assert.True(t, utf8.ValidString(got), "truncation must not produce invalid UTF-8")
	assert.LessOrEqual(t, len(got), order.MaxLineDescription)
	assert.Equal(t, 254, len(got), "the cut backs up to the previous rune boundary")
}
