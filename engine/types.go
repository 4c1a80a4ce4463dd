package engine

// ============================================================================
// ENGINE TYPES — Records, query specs, groups and render-ready output
// ============================================================================
// The engine is the computation layer shared by the question resolver and the
// dashboard. It never calls an external service.
// ============================================================================

// ============================================================================
// RECORD — Generic data row
// ============================================================================

// Record is a single data row with string dimensions and numeric measures.
//
// A sales row: Dimensions["country"]="India", Dimensions["quarter"]="Q1",
// Measures["amount"]=5320.00
type Record struct {
	Dimensions map[string]string  `json:"dimensions"`
	Measures   map[string]float64 `json:"measures"`
}

// ============================================================================
// QUERYSPEC — What the engine should compute
// ============================================================================

// Aggregation names understood by the engine.
const (
	AggSum   = "sum"
	AggAvg   = "avg"
	AggMax   = "max"
	AggMin   = "min"
	AggCount = "count"
)

// QuerySpec defines what the engine should compute.
// The resolver and the dashboard build these; Execute consumes them.
type QuerySpec struct {
	Filters     Filters  `json:"filters"`     // Which records to include
	Aggregation string   `json:"aggregation"` // "sum", "avg", "max", "min", "count"
	Measure     string   `json:"measure"`     // Which measure to aggregate (empty → default)
	GroupBy     []string `json:"groupBy"`     // Dimension keys: ["date"], ["month_num", "country"]
	SortBy      string   `json:"sortBy"`      // "value_desc", "value_asc", "date_asc", "alpha_asc"
	Limit       int      `json:"limit"`       // 0 = all
	Visualize   string   `json:"visualize"`   // "bar", "pie", "line", "table", "text"
	Title       string   `json:"title"`
}

// Filters define which records to include.
// Keys are dimension names. Values are allowed values.
// OR within a dimension, AND across dimensions. Empty = all.
type Filters struct {
	Dimensions map[string][]string `json:"dimensions"`
}

// NewFilters returns an empty filter set ready for Set.
func NewFilters() Filters {
	return Filters{Dimensions: make(map[string][]string)}
}

// Set restricts a dimension to the given values. Empty values clear it.
func (f *Filters) Set(dimension string, values ...string) {
	if f.Dimensions == nil {
		f.Dimensions = make(map[string][]string)
	}
	if len(values) == 0 {
		delete(f.Dimensions, dimension)
		return
	}
	f.Dimensions[dimension] = values
}

// HasFilter returns true if a specific dimension filter is set.
func (f Filters) HasFilter(dimension string) bool {
	if f.Dimensions == nil {
		return false
	}
	vals, ok := f.Dimensions[dimension]
	return ok && len(vals) > 0
}

// IsEmpty returns true if no filters are set.
func (f Filters) IsEmpty() bool {
	if f.Dimensions == nil {
		return true
	}
	for _, vals := range f.Dimensions {
		if len(vals) > 0 {
			return false
		}
	}
	return true
}

// ============================================================================
// RESULT — Output of Execute
// ============================================================================

// Result is the engine's output for one QuerySpec.
type Result struct {
	Measure string  `json:"measure"`
	Matched int     `json:"matched"` // records left after filtering
	Value   float64 `json:"value"`   // aggregate over the whole filtered view
	Groups  []Group `json:"groups,omitempty"`

	// Filtered is the view the aggregate was computed over.
	Filtered RecordView `json:"-"`
}

// Empty reports whether no record matched the filters.
func (r *Result) Empty() bool {
	return r == nil || r.Matched == 0
}

// ============================================================================
// GROUP — Intermediate computation result
// ============================================================================

// Group represents a grouped/aggregated result.
// Builders convert these into ChartConfig or TableData.
type Group struct {
	Key       string     `json:"key"`
	Label     string     `json:"label"`
	Value     float64    `json:"value"`
	Count     int        `json:"count"`
	SubGroups []Group    `json:"subGroups,omitempty"`
	View      RecordView `json:"-"` // Sub-view for records in this group (zero-copy)
}

// ============================================================================
// CHART TYPES
// ============================================================================

// ChartConfig defines how to render a chart.
type ChartConfig struct {
	ChartType  string        `json:"chartType"`
	Title      string        `json:"title"`
	XAxis      string        `json:"xAxis,omitempty"`
	YAxis      string        `json:"yAxis,omitempty"`
	Series     []ChartSeries `json:"series"`
	Colors     []string      `json:"colors,omitempty"`
	ShowLegend bool          `json:"showLegend"`
	ShowGrid   bool          `json:"showGrid"`
}

// ChartSeries represents a data series in a chart.
type ChartSeries struct {
	Name  string       `json:"name"`
	Data  []ChartPoint `json:"data"`
	Color string       `json:"color,omitempty"`
}

// ChartPoint represents a single data point.
type ChartPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Share float64 `json:"share,omitempty"` // percent of the series total, pie charts only
}

// ============================================================================
// TABLE TYPES
// ============================================================================

// TableData defines how to render a table.
type TableData struct {
	Title   string     `json:"title"`
	Columns []Column   `json:"columns"`
	Rows    [][]string `json:"rows"`
	Summary *Summary   `json:"summary,omitempty"`
}

// Column defines a table column.
type Column struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Type  string `json:"type"`  // "text", "number", "currency"
	Align string `json:"align"` // "left", "center", "right"
}

// Summary provides totals for a table.
type Summary struct {
	Label  string            `json:"label"`
	Values map[string]string `json:"values"`
}
