package catalog

import (
	"context"
	"time"
)

// RowFilter narrows FetchItemRows to specific RMS categories or families.
// Empty fields match everything.
type RowFilter struct {
	Categoria        string
	Familia          string
	IncludeZeroStock bool
}

// ItemRepository is the read side of the RMS store for change detection and
// product extraction.
type ItemRepository interface {
	// ModifiedItems returns item IDs whose lastUpdated is strictly after
	// since, ordered ascending by lastUpdated, capped at limit. Rows with a
	// null lastUpdated are excluded.
	ModifiedItems(ctx context.Context, since time.Time, limit int) ([]int64, error)

	// FetchItemRows loads full rows for the given item IDs, applying filter.
	FetchItemRows(ctx context.Context, ids []int64, filter RowFilter) ([]ItemRow, error)
}
