package schema

import (
	"errors"
	"fmt"
	"slices"
)

// ============================================================================
// SCHEMA — Describes the shape of a sales dataset
// ============================================================================
// Auto-discovered from an uploaded CSV or declared up front (the chocolate
// sales layout). The loader uses it to classify columns and parse dates; the
// resolver and dashboard use it to pick the date column and the measure.
// ============================================================================

// ErrNoMeasure is returned by Validate when the schema has no numeric column.
var ErrNoMeasure = errors.New("schema has no numeric column")

// Config describes the complete shape of a dataset.
type Config struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	Dimensions []DimensionMeta `json:"dimensions"`
	Measures   []MeasureMeta   `json:"measures"`

	// DateColumn is the key of the column the temporal fields derive from.
	DateColumn string `json:"dateColumn,omitempty"`
	// DateLayout is a Go time layout, e.g. "02-Jan-06" for 04-Jan-22.
	DateLayout string `json:"dateLayout,omitempty"`
	// PrimaryMeasure is the numeric column questions aggregate by default.
	PrimaryMeasure string `json:"primaryMeasure,omitempty"`

	DiscoveredFrom string `json:"discoveredFrom,omitempty"`
	DiscoveredAt   string `json:"discoveredAt,omitempty"`

	// Columns skipped during auto-discovery
	SkippedColumns []SkippedColumn `json:"skippedColumns,omitempty"`
}

// DimensionMeta describes a string field used for grouping/filtering.
type DimensionMeta struct {
	Key             string   `json:"key"`
	DisplayName     string   `json:"displayName"`
	SampleValues    []string `json:"sampleValues"`
	Parent          string   `json:"parent,omitempty"` // Parent dimension key for hierarchies
	IsTemporal      bool     `json:"isTemporal,omitempty"`
	TemporalFormat  string   `json:"temporalFormat,omitempty"`
	IsDerived       bool     `json:"isDerived,omitempty"` // computed from the date column at load
	CardinalityHint string   `json:"cardinalityHint,omitempty"`
}

// MeasureMeta describes a numeric field used for aggregation.
type MeasureMeta struct {
	Key            string `json:"key"`
	DisplayName    string `json:"displayName"`
	Unit           string `json:"unit,omitempty"` // "currency", "units"
	IsCurrency     bool   `json:"isCurrency,omitempty"`
	CurrencySymbol string `json:"currencySymbol,omitempty"`
}

// SkippedColumn records why a column was excluded during auto-discovery.
type SkippedColumn struct {
	Column      string `json:"column"`
	Reason      string `json:"reason"`
	Recoverable bool   `json:"recoverable"` // Can be restored if consumer overrides
}

// DerivedDimensions are the temporal fields attached to every row whose date parses.
var DerivedDimensions = []string{"year", "month", "month_num", "quarter", "day", "date"}

// DefaultDimension creates a DimensionMeta with sensible defaults.
func DefaultDimension(key, displayName string, samples []string) DimensionMeta {
	return DimensionMeta{
		Key:          key,
		DisplayName:  displayName,
		SampleValues: samples,
	}
}

// DefaultMeasure creates a MeasureMeta with sensible defaults.
func DefaultMeasure(key, displayName string) MeasureMeta {
	return MeasureMeta{
		Key:         key,
		DisplayName: displayName,
		Unit:        "units",
	}
}

// CurrencyMeasure creates a MeasureMeta for a money column.
func CurrencyMeasure(key, displayName, symbol string) MeasureMeta {
	return MeasureMeta{
		Key:            key,
		DisplayName:    displayName,
		Unit:           "currency",
		IsCurrency:     true,
		CurrencySymbol: symbol,
	}
}

// GetDefaultMeasure returns the primary measure, else the first currency
// measure, else the first measure, else "amount".
func (c Config) GetDefaultMeasure() string {
	if c.PrimaryMeasure != "" {
		return c.PrimaryMeasure
	}
	for _, m := range c.Measures {
		if m.IsCurrency {
			return m.Key
		}
	}
	if len(c.Measures) > 0 {
		return c.Measures[0].Key
	}
	return "amount"
}

// DimensionKeys returns all dimension keys.
func (c Config) DimensionKeys() []string {
	keys := make([]string, len(c.Dimensions))
	for i, d := range c.Dimensions {
		keys[i] = d.Key
	}
	return keys
}

// MeasureKeys returns all measure keys.
func (c Config) MeasureKeys() []string {
	keys := make([]string, len(c.Measures))
	for i, m := range c.Measures {
		keys[i] = m.Key
	}
	return keys
}

// Measure looks up a measure by key.
func (c Config) Measure(key string) (MeasureMeta, bool) {
	for _, m := range c.Measures {
		if m.Key == key {
			return m, true
		}
	}
	return MeasureMeta{}, false
}

// CurrencySymbol returns the symbol for a measure, or "" when it is not money.
func (c Config) CurrencySymbol(key string) string {
	m, ok := c.Measure(key)
	if !ok || !m.IsCurrency {
		return ""
	}
	return m.CurrencySymbol
}

// Validate checks the schema can drive a load.
func (c Config) Validate() error {
	if len(c.Measures) == 0 {
		return ErrNoMeasure
	}
	if c.PrimaryMeasure != "" && !slices.Contains(c.MeasureKeys(), c.PrimaryMeasure) {
		return fmt.Errorf("primary measure %q is not a numeric column", c.PrimaryMeasure)
	}
	if c.DateColumn != "" && c.DateLayout == "" {
		return fmt.Errorf("date column %q has no layout", c.DateColumn)
	}
	return nil
}
