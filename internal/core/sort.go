package core

import (
	"cmp"
	"slices"
	"strings"

	"github.com/jmylchreest/toastd/internal/output"
)

// SortField represents a field to sort by.
type SortField string

const (
	SortByCreated  SortField = "created"
	SortByKind     SortField = "kind"
	SortByTitle    SortField = "title"
	SortByDuration SortField = "duration"
)

// SortOrder represents ascending or descending order.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// SortOptions specifies sorting criteria.
type SortOptions struct {
	Field SortField
	Order SortOrder
}

// DefaultSortOptions returns default sort options (newest first).
func DefaultSortOptions() SortOptions {
	return SortOptions{Field: SortByCreated, Order: SortDesc}
}

// Sort sorts rows in place. Equal rows keep their order.
func Sort(rows []output.Row, opts SortOptions) {
	slices.SortStableFunc(rows, func(a, b output.Row) int {
		var c int
		switch opts.Field {
		case SortByKind:
			c = cmp.Compare(a.Kind, b.Kind)
		case SortByTitle:
			c = cmp.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
		case SortByDuration:
			c = cmp.Compare(a.DurationMs, b.DurationMs)
		default:
			c = a.CreatedAt.Compare(b.CreatedAt)
		}
		if opts.Order == SortDesc {
			return -c
		}
		return c
	})
}

// ParseSortField parses a sort field string. Unknown values sort by
// creation time.
func ParseSortField(s string) SortField {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "kind", "type", "k":
		return SortByKind
	case "title", "t":
		return SortByTitle
	case "duration", "d":
		return SortByDuration
	default:
		return SortByCreated
	}
}

// ParseSortOrder parses a sort order string. Unknown values sort
// descending.
func ParseSortOrder(s string) SortOrder {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc", "ascending", "a":
		return SortAsc
	default:
		return SortDesc
	}
}
