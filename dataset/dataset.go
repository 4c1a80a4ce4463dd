package dataset

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/spektr-org/salesdash/engine"
	"github.com/spektr-org/salesdash/helpers"
	"github.com/spektr-org/salesdash/schema"
)

// ============================================================================
// DATASET — The loaded record set and everything derived from it
// ============================================================================
// A Dataset is built once per load/upload and never mutated afterwards.
// It is passed explicitly to the resolver, dashboard and retrieval index.
// ============================================================================

var (
	// ErrNoDateColumn is returned when no date column is configured or detected.
	ErrNoDateColumn = errors.New("dataset has no date column")
	// ErrEmpty is returned when the CSV has a header but no usable rows.
	ErrEmpty = errors.New("dataset has no rows")
)

// Variant selects between the chocolate sales layout and an arbitrary upload.
type Variant string

const (
	VariantSales   Variant = "sales"
	VariantGeneric Variant = "generic"
)

// ParseVariant accepts "sales" or "generic" (case-insensitive).
func ParseVariant(s string) (Variant, error) {
	switch Variant(strings.ToLower(strings.TrimSpace(s))) {
	case VariantSales:
		return VariantSales, nil
	case VariantGeneric, "":
		return VariantGeneric, nil
	}
	return "", fmt.Errorf("unknown variant %q (want sales or generic)", s)
}

// Dataset is an immutable, loaded record set.
type Dataset struct {
	view     engine.RecordView
	schema   schema.Config
	measure  string
	variant  Variant
	stats    helpers.Stats
	source   string
	loadedAt time.Time
}

// New wraps already-parsed records. The measure defaults to the schema's.
func New(records []engine.Record, sch schema.Config, opts ...Option) *Dataset {
	o := applyOptions(opts)
	measure := o.measure
	if measure == "" {
		measure = sch.GetDefaultMeasure()
	}
	return &Dataset{
		view:     engine.NewSliceView(records),
		schema:   sch,
		measure:  measure,
		variant:  o.variant,
		stats:    helpers.Stats{Rows: len(records)},
		source:   o.source,
		loadedAt: time.Now(),
	}
}

// Load parses CSV bytes into a Dataset.
func Load(data []byte, opts ...Option) (*Dataset, error) {
	o := applyOptions(opts)

	sch, err := resolveSchema(data, o)
	if err != nil {
		return nil, err
	}

	records, stats, err := helpers.ParseCSV(data, sch)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", o.sourceName(), err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("parse %s: %w", o.sourceName(), ErrEmpty)
	}

	measure := o.measure
	if measure == "" {
		measure = sch.GetDefaultMeasure()
	}

	o.logger.Info().
		Str("source", o.sourceName()).
		Str("variant", string(o.variant)).
		Int("rows", stats.Rows).
		Int("skipped_rows", stats.SkippedRows).
		Int("unparsed_dates", stats.UnparsedDates).
		Str("date_column", sch.DateColumn).
		Str("measure", measure).
		Msg("Dataset loaded")

	return &Dataset{
		view:     engine.NewSliceView(records),
		schema:   sch,
		measure:  measure,
		variant:  o.variant,
		stats:    stats,
		source:   o.source,
		loadedAt: time.Now(),
	}, nil
}

// LoadFile reads a CSV file and loads it.
func LoadFile(path string, opts ...Option) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	return Load(data, append([]Option{WithSource(path)}, opts...)...)
}

// resolveSchema picks the schema (given, sales, or discovered) and applies
// the date/measure overrides.
func resolveSchema(data []byte, o *options) (schema.Config, error) {
	var sch schema.Config
	switch {
	case o.schema != nil:
		sch = *o.schema
	case o.variant == VariantSales:
		sch = SalesSchema()
	default:
		discovered, err := schema.DiscoverFromCSV(data, schema.DiscoverOptions{
			SampleSize: 1000,
			DateColumn: o.dateColumn,
			Measure:    o.measure,
		})
		if err != nil {
			return schema.Config{}, fmt.Errorf("discover %s: %w", o.sourceName(), err)
		}
		sch = *discovered
	}

	if o.dateColumn != "" {
		sch.DateColumn = schema.ToSnakeCase(o.dateColumn)
	}
	if o.dateLayout != "" {
		sch.DateLayout = o.dateLayout
	}
	if o.measure != "" {
		o.measure = schema.ToSnakeCase(o.measure)
		sch.PrimaryMeasure = o.measure
	}

	if sch.DateColumn == "" {
		return schema.Config{}, ErrNoDateColumn
	}
	if sch.DateLayout == "" {
		sch.DateLayout = schema.DateLayouts[0]
	}
	if err := sch.Validate(); err != nil {
		return schema.Config{}, fmt.Errorf("invalid schema: %w", err)
	}
	return sch, nil
}

// ── Accessors ───────────────────────────────────────────────────────────────

func (d *Dataset) View() engine.RecordView { return d.view }
func (d *Dataset) Schema() schema.Config   { return d.schema }
func (d *Dataset) Variant() Variant        { return d.variant }
func (d *Dataset) Stats() helpers.Stats    { return d.stats }
func (d *Dataset) Source() string          { return d.source }
func (d *Dataset) LoadedAt() time.Time     { return d.loadedAt }
func (d *Dataset) Len() int                { return d.view.Len() }

// Measure is the configured numeric column questions aggregate.
func (d *Dataset) Measure() string { return d.measure }

// CurrencySymbol returns the symbol of the configured measure ("" if not money).
func (d *Dataset) CurrencySymbol() string {
	return d.schema.CurrencySymbol(d.measure)
}

// HasDimension reports whether any row carries the dimension key.
func (d *Dataset) HasDimension(key string) bool {
	return slices.Contains(d.view.DimensionKeys(), key)
}

// Years returns the distinct years present, ascending.
func (d *Dataset) Years() []string {
	years := engine.UniqueValues(d.view, "year")
	sort.Strings(years)
	return years
}
