package engine

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// ============================================================================
// AGGREGATORS — Grouping, Aggregation, and Sorting via RecordView
// ============================================================================
// All functions read through RecordView; grouping never copies records.
// Grouping produces SubViews (index lists into parent view).
// ============================================================================

// GroupAndAggregate is the main entry point for the aggregation pipeline.
// Pipeline: group → aggregate → sort → limit.
func GroupAndAggregate(
	view RecordView,
	groupBy []string,
	measure string,
	aggregation string,
	sortBy string,
	limit int,
) []Group {
	if view.Len() == 0 {
		return nil
	}

	// 1. Group
	var groups []Group
	if len(groupBy) == 0 {
		groups = []Group{{
			Key:   "all",
			Label: "Total",
			View:  view,
		}}
	} else if len(groupBy) == 1 {
		groups = groupBySingle(view, groupBy[0])
	} else {
		groups = groupByMulti(view, groupBy)
	}

	// 2. Aggregate
	for i := range groups {
		aggregateGroup(&groups[i], measure, aggregation)
		for j := range groups[i].SubGroups {
			aggregateGroup(&groups[i].SubGroups[j], measure, aggregation)
		}
	}

	// 3. Sort
	SortGroups(groups, sortBy)

	// 4. Limit
	if limit > 0 && len(groups) > limit {
		groups = groups[:limit]
	}

	return groups
}

// ============================================================================
// GROUPING
// ============================================================================

func groupBySingle(view RecordView, dimension string) []Group {
	grouped := make(map[string][]int)
	order := make([]string, 0)

	for i := 0; i < view.Len(); i++ {
		key := view.Dimension(i, dimension)
		if _, exists := grouped[key]; !exists {
			order = append(order, key)
		}
		grouped[key] = append(grouped[key], i)
	}

	groups := make([]Group, 0, len(order))
	for _, key := range order {
		groups = append(groups, Group{
			Key:   key,
			Label: key,
			View:  newSubView(view, grouped[key]),
		})
	}
	return groups
}

func groupByMulti(view RecordView, dimensions []string) []Group {
	primaryGroups := groupBySingle(view, dimensions[0])
	for i := range primaryGroups {
		primaryGroups[i].SubGroups = groupBySingle(primaryGroups[i].View, dimensions[1])
	}
	return primaryGroups
}

// ============================================================================
// AGGREGATION
// ============================================================================

func aggregateGroup(group *Group, measure string, aggregation string) {
	group.Count = group.View.Len()
	if group.Count == 0 {
		return
	}
	group.Value = Aggregate(group.View, measure, aggregation)
}

// Aggregate computes one aggregation of measure over view.
// Unknown aggregations fall back to sum.
func Aggregate(view RecordView, measure string, aggregation string) float64 {
	switch aggregation {
	case AggCount:
		return float64(view.Len())
	case AggAvg:
		return AvgMeasure(view, measure)
	case AggMax:
		return MaxMeasure(view, measure)
	case AggMin:
		return MinMeasure(view, measure)
	default:
		return SumMeasure(view, measure)
	}
}

// SumMeasure sums a named measure across a view using exact decimal addition.
// Rows without a value for the measure are skipped.
func SumMeasure(view RecordView, measure string) float64 {
	total, _ := sumDecimal(view, measure)
	return total.Float64()
}

// AvgMeasure averages a named measure over the rows that carry a value.
func AvgMeasure(view RecordView, measure string) float64 {
	total, n := sumDecimal(view, measure)
	if n == 0 {
		return 0
	}
	return total.Div(NewDecimalFromInt64(int64(n))).Float64()
}

// sumDecimal returns the decimal sum of measure and how many rows carried it.
func sumDecimal(view RecordView, measure string) (Decimal, int) {
	total := NewDecimalFromInt64(0)
	n := 0
	for i := 0; i < view.Len(); i++ {
		if !view.HasMeasure(i, measure) {
			continue
		}
		v, err := NewDecimalFromFloat(view.Measure(i, measure))
		if err != nil {
			continue // NaN/Inf never come out of the CSV parser
		}
		total = total.Add(v)
		n++
	}
	return total, n
}

// MaxMeasure returns the largest value of a named measure, 0 when no row
// carries one.
func MaxMeasure(view RecordView, measure string) float64 {
	m, seen := math.Inf(-1), false
	for i := 0; i < view.Len(); i++ {
		if !view.HasMeasure(i, measure) {
			continue
		}
		seen = true
		if v := view.Measure(i, measure); v > m {
			m = v
		}
	}
	if !seen {
		return 0
	}
	return m
}

// MinMeasure returns the smallest value of a named measure, 0 when no row
// carries one.
func MinMeasure(view RecordView, measure string) float64 {
	m, seen := math.Inf(1), false
	for i := 0; i < view.Len(); i++ {
		if !view.HasMeasure(i, measure) {
			continue
		}
		seen = true
		if v := view.Measure(i, measure); v < m {
			m = v
		}
	}
	if !seen {
		return 0
	}
	return m
}

// TopGroup returns the group with the highest value, or false when empty.
// Ties keep the first group in grouping order.
func TopGroup(groups []Group) (Group, bool) {
	if len(groups) == 0 {
		return Group{}, false
	}
	top := groups[0]
	for _, g := range groups[1:] {
		if g.Value > top.Value {
			top = g
		}
	}
	return top, true
}

// ============================================================================
// SORTING
// ============================================================================

// SortGroups sorts aggregate groups by the specified sort mode.
func SortGroups(groups []Group, sortBy string) {
	switch sortBy {
	case "value_desc":
		sort.SliceStable(groups, func(i, j int) bool { return groups[i].Value > groups[j].Value })
	case "value_asc":
		sort.SliceStable(groups, func(i, j int) bool { return groups[i].Value < groups[j].Value })
	case "chronological", "date_asc":
		sort.SliceStable(groups, func(i, j int) bool { return lessSortable(groups[i].Key, groups[j].Key) })
	case "reverse_chronological", "date_desc":
		sort.SliceStable(groups, func(i, j int) bool { return lessSortable(groups[j].Key, groups[i].Key) })
	case "label_asc", "alpha_asc":
		sort.SliceStable(groups, func(i, j int) bool { return strings.ToLower(groups[i].Key) < strings.ToLower(groups[j].Key) })
	default:
		// preserve grouping order
	}
}

// lessSortable orders numeric keys ("4" < "12") numerically and everything
// else lexically, which is chronological for ISO dates.
func lessSortable(a, b string) bool {
	ai, aErr := strconv.Atoi(a)
	bi, bErr := strconv.Atoi(b)
	if aErr == nil && bErr == nil {
		return ai < bi
	}
	return a < b
}

// ============================================================================
// FORMATTING UTILITIES
// ============================================================================

// FormatAmount formats a number with comma separators and two decimals: 1,234.50
func FormatAmount(amount float64) string {
	return humanize.FormatFloat("#,###.##", RoundTo2(amount))
}

// FormatCurrency formats an amount with a currency prefix: $1,234.50
func FormatCurrency(amount float64, symbol string) string {
	if amount < 0 {
		return "-" + symbol + FormatAmount(-amount)
	}
	return symbol + FormatAmount(amount)
}

// FormatInt formats an integer with comma separators.
func FormatInt(n int) string {
	return humanize.Comma(int64(n))
}

// RoundTo2 rounds to 2 decimal places.
func RoundTo2(v float64) float64 {
	d, err := NewDecimalFromFloat(v)
	if err != nil {
		return math.Round(v*100) / 100
	}
	return d.Round(2).Float64()
}

// UniqueValues returns distinct non-empty values for a dimension, first-seen order.
func UniqueValues(view RecordView, dimension string) []string {
	seen := make(map[string]bool)
	var result []string
	for i := 0; i < view.Len(); i++ {
		val := view.Dimension(i, dimension)
		if val != "" && !seen[val] {
			seen[val] = true
			result = append(result, val)
		}
	}
	return result
}

// LabelForDimension returns a display label for a dimension key: "boxes_shipped" → "Boxes Shipped".
func LabelForDimension(dimension string) string {
	parts := strings.Split(dimension, "_")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}

// LabelForAggregation returns a human-readable label for an aggregation type.
func LabelForAggregation(aggregation string) string {
	switch aggregation {
	case AggSum:
		return "Amount"
	case AggCount:
		return "Count"
	case AggAvg:
		return "Average"
	case AggMax:
		return "Maximum"
	case AggMin:
		return "Minimum"
	default:
		return "Value"
	}
}
