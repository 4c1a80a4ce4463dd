package dashboard

import (
	"fmt"
	"slices"

	"github.com/spektr-org/salesdash/dataset"
	"github.com/spektr-org/salesdash/engine"
)

// ============================================================================
// DASHBOARD — Sidebar selection → metrics, charts and a row preview
// ============================================================================
// Build applies the selection with engine.ApplyFilters and computes every
// panel from the filtered view. The result is plain data; render.go turns it
// into terminal tables or JSON.
// ============================================================================

// MsgNoData is shown when the selection filters out every row.
const MsgNoData = "No data available for the selected filters."

// PreviewRows is the number of filtered rows shown in the preview table.
const PreviewRows = 5

// Dimension keys the dashboard slices on.
const (
	DimYear    = "year"
	DimCountry = "country"
	DimProduct = "product"
	DimMonth   = "month_num"
)

// Selection is the sidebar state. An empty list selects everything.
type Selection struct {
	Years     []string `json:"years,omitempty"`
	Countries []string `json:"countries,omitempty"`
}

// Filters converts the selection into engine filters.
func (s Selection) Filters() engine.Filters {
	f := engine.NewFilters()
	f.Set(DimYear, s.Years...)
	f.Set(DimCountry, s.Countries...)
	return f
}

// Options are the values offered in the sidebar.
type Options struct {
	Years     []string `json:"years"`     // sorted
	Countries []string `json:"countries"` // first-seen order
}

// Metric is one headline number.
type Metric struct {
	Key   string  `json:"key"`
	Label string  `json:"label"`
	Value string  `json:"value"`
	Raw   float64 `json:"raw"`
}

// Metric keys.
const (
	MetricRevenue = "total_revenue"
	MetricBoxes   = "total_boxes"
	MetricTop     = "top_product"
	MetricRows    = "rows"
)

// Dashboard is everything one page shows.
type Dashboard struct {
	Title     string                `json:"title"`
	Selection Selection             `json:"selection"`
	Options   Options               `json:"options"`
	Rows      int                   `json:"rows"`
	Empty     bool                  `json:"empty"`
	Warning   string                `json:"warning,omitempty"`
	Metrics   []Metric              `json:"metrics"`
	Charts    []*engine.ChartConfig `json:"charts"`
	Preview   *engine.TableData     `json:"preview"`

	// Breakdown is the measure per country, largest first. Nil without a
	// country column.
	Breakdown *engine.TableData `json:"breakdown,omitempty"`

	// TopProduct is the product with the highest revenue ("" when empty).
	TopProduct string `json:"topProduct,omitempty"`
}

// Metric returns the metric with key, if present.
func (d *Dashboard) Metric(key string) (Metric, bool) {
	for _, m := range d.Metrics {
		if m.Key == key {
			return m, true
		}
	}
	return Metric{}, false
}

// AvailableOptions lists the sidebar values of ds.
func AvailableOptions(ds *dataset.Dataset) Options {
	opts := Options{Years: ds.Years(), Countries: []string{}}
	if ds.HasDimension(DimCountry) {
		opts.Countries = engine.UniqueValues(ds.View(), DimCountry)
	}
	if opts.Years == nil {
		opts.Years = []string{}
	}
	return opts
}

// Build computes the dashboard for sel.
func Build(ds *dataset.Dataset, sel Selection) (*Dashboard, error) {
	if ds == nil {
		return nil, fmt.Errorf("no dataset loaded")
	}

	measure := ds.Measure()
	symbol := ds.CurrencySymbol()
	view := engine.ApplyFilters(ds.View(), sel.Filters())

	d := &Dashboard{
		Title:     ds.Schema().Name + " Dashboard",
		Selection: sel,
		Options:   AvailableOptions(ds),
		Rows:      view.Len(),
		Metrics:   []Metric{},
		Charts:    []*engine.ChartConfig{},
	}
	if ds.Schema().Name == "" {
		d.Title = "Sales Dashboard"
	}
	d.Preview = previewTable(ds, view)

	if view.Len() == 0 {
		d.Empty = true
		d.Warning = MsgNoData
		return d, nil
	}

	revenue := engine.SumMeasure(view, measure)
	d.Metrics = append(d.Metrics, Metric{
		Key:   MetricRevenue,
		Label: "Total " + measureLabel(ds, measure),
		Value: engine.FormatCurrency(revenue, symbol),
		Raw:   engine.RoundTo2(revenue),
	})

	if boxes := secondaryMeasure(ds); boxes != "" {
		total := engine.SumMeasure(view, boxes)
		d.Metrics = append(d.Metrics, Metric{
			Key:   MetricBoxes,
			Label: "Total " + measureLabel(ds, boxes),
			Value: formatCount(total),
			Raw:   engine.RoundTo2(total),
		})
	}

	if dim := topDimension(ds); dim != "" {
		groups := engine.GroupAndAggregate(view, []string{dim}, measure, engine.AggSum, "", 0)
		if top, ok := engine.TopGroup(groups); ok {
			d.TopProduct = top.Key
			d.Metrics = append(d.Metrics, Metric{
				Key:   MetricTop,
				Label: fmt.Sprintf("Top %s by %s", engine.LabelForDimension(dim), measureLabel(ds, measure)),
				Value: top.Key,
				Raw:   engine.RoundTo2(top.Value),
			})
		}
	}

	d.Metrics = append(d.Metrics, Metric{
		Key:   MetricRows,
		Label: "Filtered Rows",
		Value: engine.FormatInt(view.Len()),
		Raw:   float64(view.Len()),
	})

	d.Charts = buildCharts(ds, view, measure)
	d.Breakdown = countryBreakdown(ds, view, measure)
	return d, nil
}

func countryBreakdown(ds *dataset.Dataset, view engine.RecordView, measure string) *engine.TableData {
	if !ds.HasDimension(DimCountry) {
		return nil
	}
	label := measureLabel(ds, measure)
	spec := engine.QuerySpec{
		Aggregation: engine.AggSum,
		Measure:     measure,
		GroupBy:     []string{DimCountry},
		SortBy:      "value_desc",
		Title:       label + " by Country",
	}
	groups := engine.GroupAndAggregate(view, spec.GroupBy, measure, spec.Aggregation, spec.SortBy, 0)
	t := engine.BuildTable(spec, groups, ds.CurrencySymbol())
	if len(t.Columns) > 1 {
		t.Columns[1].Label = label
	}
	return t
}

// ============================================================================
// CHARTS
// ============================================================================

func buildCharts(ds *dataset.Dataset, view engine.RecordView, measure string) []*engine.ChartConfig {
	label := measureLabel(ds, measure)
	charts := make([]*engine.ChartConfig, 0, 2)

	if ds.HasDimension(DimMonth) {
		groupBy := []string{DimMonth}
		if ds.HasDimension(DimCountry) {
			groupBy = append(groupBy, DimCountry)
		}
		spec := engine.QuerySpec{
			Aggregation: engine.AggSum,
			Measure:     measure,
			GroupBy:     groupBy,
			SortBy:      "chronological",
			Visualize:   engine.ChartBar,
			Title:       label + " by Month",
		}
		groups := engine.GroupAndAggregate(view, spec.GroupBy, measure, spec.Aggregation, spec.SortBy, 0)
		if chart := engine.BuildChart(spec, groups); chart != nil {
			chart.XAxis = "Month"
			chart.YAxis = label
			charts = append(charts, chart)
		}
	}

	if dim := topDimension(ds); dim != "" {
		spec := engine.QuerySpec{
			Aggregation: engine.AggSum,
			Measure:     measure,
			GroupBy:     []string{dim},
			Visualize:   engine.ChartPie,
			Title:       fmt.Sprintf("%s by %s", label, engine.LabelForDimension(dim)),
		}
		groups := engine.GroupAndAggregate(view, spec.GroupBy, measure, spec.Aggregation, spec.SortBy, 0)
		if chart := engine.BuildChart(spec, groups); chart != nil {
			chart.YAxis = label
			charts = append(charts, chart)
		}
	}

	return charts
}

// ============================================================================
// PREVIEW
// ============================================================================

func previewTable(ds *dataset.Dataset, view engine.RecordView) *engine.TableData {
	sch := ds.Schema()
	dims := make([]string, 0, len(sch.Dimensions))
	if ds.HasDimension("date") {
		dims = append(dims, "date")
	}
	for _, d := range sch.Dimensions {
		if d.IsDerived || d.Key == sch.DateColumn {
			continue
		}
		dims = append(dims, d.Key)
	}
	return engine.BuildListTable("Preview", engine.Head(view, PreviewRows), dims, sch.MeasureKeys())
}

// ============================================================================
// HELPERS
// ============================================================================

// measureLabel maps the sales amount to "Revenue" and everything else to
// its display name.
func measureLabel(ds *dataset.Dataset, measure string) string {
	if ds.Variant() == dataset.VariantSales && measure == "amount" {
		return "Revenue"
	}
	if m, ok := ds.Schema().Measure(measure); ok && m.DisplayName != "" {
		return m.DisplayName
	}
	return engine.LabelForDimension(measure)
}

// secondaryMeasure is boxes_shipped when present, else the first measure
// that is not the primary one.
func secondaryMeasure(ds *dataset.Dataset) string {
	keys := ds.Schema().MeasureKeys()
	if slices.Contains(keys, "boxes_shipped") && ds.Measure() != "boxes_shipped" {
		return "boxes_shipped"
	}
	for _, k := range keys {
		if k != ds.Measure() {
			return k
		}
	}
	return ""
}

// topDimension is product when present, else the first plain dimension
// other than country.
func topDimension(ds *dataset.Dataset) string {
	if ds.HasDimension(DimProduct) {
		return DimProduct
	}
	sch := ds.Schema()
	for _, d := range sch.Dimensions {
		if d.IsDerived || d.Key == sch.DateColumn || d.Key == DimCountry {
			continue
		}
		return d.Key
	}
	return ""
}

func formatCount(v float64) string {
	if v == float64(int64(v)) {
		return engine.FormatInt(int(v))
	}
	return engine.FormatAmount(v)
}
