package engine

import (
	"sort"
	"strings"
)

// ============================================================================
// FILTERS — dimension constraints over a RecordView
// ============================================================================
// A Filters value compiles into a list of constraints checked per row.
// Selection never copies records: the result is a SubView of the input.
// ============================================================================

// ApplyFilters keeps the rows where every constrained dimension holds one of
// its allowed values. Values compare case-insensitively after trimming.
// An empty filter returns view unchanged.
func ApplyFilters(view RecordView, filters Filters) RecordView {
	cs := compile(filters)
	if len(cs) == 0 {
		return view
	}
	return Where(view, func(i int) bool {
		for _, c := range cs {
			if _, ok := c.allowed[normalize(view.Dimension(i, c.dimension))]; !ok {
				return false
			}
		}
		return true
	})
}

// Where returns the rows of view for which keep reports true, in order.
func Where(view RecordView, keep func(i int) bool) RecordView {
	n := view.Len()
	indices := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if keep(i) {
			indices = append(indices, i)
		}
	}
	return newSubView(view, indices)
}

type constraint struct {
	dimension string
	allowed   map[string]struct{}
}

// compile orders constraints by dimension so evaluation is deterministic.
func compile(filters Filters) []constraint {
	dims := make([]string, 0, len(filters.Dimensions))
	for dim, values := range filters.Dimensions {
		if len(values) > 0 {
			dims = append(dims, dim)
		}
	}
	sort.Strings(dims)

	cs := make([]constraint, 0, len(dims))
	for _, dim := range dims {
		allowed := make(map[string]struct{}, len(filters.Dimensions[dim]))
		for _, v := range filters.Dimensions[dim] {
			allowed[normalize(v)] = struct{}{}
		}
		cs = append(cs, constraint{dimension: dim, allowed: allowed})
	}
	return cs
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
