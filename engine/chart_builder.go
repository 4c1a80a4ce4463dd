package engine

// ============================================================================
// CHART BUILDER — QuerySpec + Groups → ChartConfig
// ============================================================================

// Chart types.
const (
	ChartBar  = "bar"
	ChartLine = "line"
	ChartPie  = "pie"
)

// palette is the series color cycle.
var palette = []string{
	"#7B3F00", "#D2691E", "#F4A460", "#A0522D", "#8B4513",
	"#CD853F", "#DEB887", "#BC8F8F", "#F5DEB3", "#6B4226",
}

func paletteColor(i int) string { return palette[i%len(palette)] }

// BuildChart plots aggregated groups. With two group-by dimensions the
// sub-groups pivot into one series per sub-group key; otherwise one series
// carries a point per group. Pie points also carry their percentage share.
// Returns nil when there is nothing to plot.
func BuildChart(spec QuerySpec, groups []Group) *ChartConfig {
	if len(groups) == 0 {
		return nil
	}

	kind := spec.Visualize
	if kind == "" {
		kind = ChartBar
	}

	chart := &ChartConfig{
		ChartType:  kind,
		Title:      spec.Title,
		YAxis:      LabelForDimension(spec.Measure),
		ShowLegend: true,
		ShowGrid:   kind != ChartPie,
	}
	if len(spec.GroupBy) > 0 {
		chart.XAxis = LabelForDimension(spec.GroupBy[0])
	}
	if chart.YAxis == "" {
		chart.YAxis = LabelForAggregation(spec.Aggregation)
	}

	if len(spec.GroupBy) >= 2 && hasSubGroups(groups) {
		chart.Series = pivot(groups)
	} else {
		name := spec.Title
		if name == "" {
			name = "Value"
		}
		chart.Series = []ChartSeries{{Name: name, Data: points(groups)}}
	}

	chart.Colors = make([]string, len(chart.Series))
	for i := range chart.Series {
		chart.Series[i].Color = paletteColor(i)
		chart.Colors[i] = chart.Series[i].Color
		if kind == ChartPie {
			addShares(chart.Series[i].Data)
		}
	}
	return chart
}

func points(groups []Group) []ChartPoint {
	out := make([]ChartPoint, len(groups))
	for i, g := range groups {
		out[i] = ChartPoint{Label: g.Label, Value: RoundTo2(g.Value)}
	}
	return out
}

// pivot emits one series per sub-group key in first-seen order. Every series
// has a point per primary group; missing pairs are zero.
func pivot(groups []Group) []ChartSeries {
	index := make(map[string]int)
	var series []ChartSeries
	for _, g := range groups {
		for _, sg := range g.SubGroups {
			if _, ok := index[sg.Key]; !ok {
				index[sg.Key] = len(series)
				series = append(series, ChartSeries{Name: sg.Key, Data: make([]ChartPoint, len(groups))})
			}
		}
	}

	for gi, g := range groups {
		for si := range series {
			series[si].Data[gi] = ChartPoint{Label: g.Label}
		}
		for _, sg := range g.SubGroups {
			series[index[sg.Key]].Data[gi].Value = RoundTo2(sg.Value)
		}
	}
	return series
}

// addShares sets each point's percentage of the series total.
func addShares(data []ChartPoint) {
	var total float64
	for _, p := range data {
		total += p.Value
	}
	if total == 0 {
		return
	}
	for i := range data {
		data[i].Share = RoundTo2(data[i].Value / total * 100)
	}
}

func hasSubGroups(groups []Group) bool {
	for _, g := range groups {
		if len(g.SubGroups) > 0 {
			return true
		}
	}
	return false
}
