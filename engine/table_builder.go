package engine

import (
	"fmt"
)

// ============================================================================
// TABLE BUILDER — Produces TableData from groups or raw rows
// ============================================================================

// BuildTable produces an aggregated TableData (one row per group).
func BuildTable(spec QuerySpec, groups []Group, symbol string) *TableData {
	if len(groups) == 0 {
		return &TableData{
			Title:   spec.Title,
			Columns: []Column{},
			Rows:    [][]string{},
		}
	}

	groupLabel := "Group"
	if len(spec.GroupBy) > 0 {
		groupLabel = LabelForDimension(spec.GroupBy[0])
	}

	columns := []Column{
		{Key: "group", Label: groupLabel, Type: "text", Align: "left"},
		{Key: "value", Label: LabelForAggregation(spec.Aggregation), Type: "number", Align: "right"},
		{Key: "count", Label: "Count", Type: "number", Align: "center"},
	}

	rows := make([][]string, 0, len(groups))
	var totalValue float64
	var totalCount int

	for _, g := range groups {
		rows = append(rows, []string{
			g.Label,
			FormatAmount(g.Value),
			fmt.Sprintf("%d", g.Count),
		})
		totalValue += g.Value
		totalCount += g.Count
	}

	return &TableData{
		Title:   spec.Title,
		Columns: columns,
		Rows:    rows,
		Summary: &Summary{
			Label: "Total",
			Values: map[string]string{
				"value": FormatCurrency(totalValue, symbol),
				"count": fmt.Sprintf("%d", totalCount),
			},
		},
	}
}

// BuildListTable produces a row-per-record table over the given columns.
// Dimension columns are printed as-is; measures get two decimals.
func BuildListTable(title string, view RecordView, dimensions []string, measures []string) *TableData {
	columns := make([]Column, 0, len(dimensions)+len(measures))
	for _, key := range dimensions {
		columns = append(columns, Column{Key: key, Label: LabelForDimension(key), Type: "text", Align: "left"})
	}
	for _, key := range measures {
		columns = append(columns, Column{Key: key, Label: LabelForDimension(key), Type: "number", Align: "right"})
	}

	rows := make([][]string, 0, view.Len())
	for i := 0; i < view.Len(); i++ {
		row := make([]string, 0, len(columns))
		for _, key := range dimensions {
			row = append(row, view.Dimension(i, key))
		}
		for _, key := range measures {
			row = append(row, FormatAmount(view.Measure(i, key)))
		}
		rows = append(rows, row)
	}

	return &TableData{
		Title:   title,
		Columns: columns,
		Rows:    rows,
		Summary: &Summary{
			Label:  fmt.Sprintf("%d records", view.Len()),
			Values: map[string]string{},
		},
	}
}
