package helpers

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spektr-org/salesdash/engine"
	"github.com/spektr-org/salesdash/schema"
)

// ============================================================================
// CSV HELPER — Parses CSV data into []engine.Record
// ============================================================================
// Converts raw bytes into generic Records using the schema: dimensions stay
// strings, measures are cleaned of currency symbols and thousands separators,
// and the date column is expanded into year/month/quarter/day fields.
// ============================================================================

// Stats reports what ParseCSV had to drop or could not interpret.
type Stats struct {
	Rows          int // records produced
	SkippedRows   int // malformed CSV rows
	UnparsedDates int // rows whose date column did not parse
}

// ParseCSV parses CSV bytes into Records using schema for classification.
func ParseCSV(data []byte, sch schema.Config) ([]engine.Record, Stats, error) {
	var stats Stats
	reader := csv.NewReader(strings.NewReader(string(data)))

	headers, err := reader.Read()
	if err != nil {
		return nil, stats, fmt.Errorf("failed to read CSV headers: %w", err)
	}

	dimSet := make(map[string]bool)
	for _, d := range sch.Dimensions {
		if !d.IsDerived {
			dimSet[d.Key] = true
		}
	}
	measSet := make(map[string]bool)
	for _, m := range sch.Measures {
		measSet[m.Key] = true
	}

	type colMapping struct {
		schemaKey   string
		isDimension bool
		isMeasure   bool
		isDate      bool
	}

	dateFound := sch.DateColumn == ""
	mappings := make([]colMapping, len(headers))
	for i, h := range headers {
		key := schema.ToSnakeCase(h)
		m := colMapping{schemaKey: key}
		switch {
		case measSet[key]:
			m.isMeasure = true
		case dimSet[key]:
			m.isDimension = true
		}
		if key == sch.DateColumn {
			m.isDate = true
			dateFound = true
		}
		mappings[i] = m
		// Unmapped columns are silently skipped
	}
	if !dateFound {
		return nil, stats, fmt.Errorf("date column %q not in CSV header", sch.DateColumn)
	}

	var records []engine.Record
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			stats.SkippedRows++
			continue
		}

		rec := engine.Record{
			Dimensions: make(map[string]string),
			Measures:   make(map[string]float64),
		}

		var rawDate string
		for i, val := range row {
			if i >= len(mappings) {
				break
			}
			m := mappings[i]
			val = strings.TrimSpace(val)

			if m.isDimension {
				rec.Dimensions[m.schemaKey] = val
			} else if m.isMeasure {
				if f, _, ok := schema.ParseNumber(val); ok {
					rec.Measures[m.schemaKey] = f
				}
			}
			if m.isDate {
				rawDate = val
			}
		}

		if sch.DateColumn != "" {
			if t, err := schema.ParseDate(rawDate, sch.DateLayout); err == nil {
				for k, v := range TemporalFields(t) {
					rec.Dimensions[k] = v
				}
			} else {
				stats.UnparsedDates++
			}
		}

		records = append(records, rec)
	}

	stats.Rows = len(records)
	return records, stats, nil
}

// ============================================================================
// TEMPORAL FIELDS
// ============================================================================

// TemporalFields derives the dimension values attached to a dated row:
// year "2022", month "April", month_num "4", quarter "Q2", day "10",
// date "2022-04-10".
func TemporalFields(t time.Time) map[string]string {
	return map[string]string{
		"year":      strconv.Itoa(t.Year()),
		"month":     t.Month().String(),
		"month_num": strconv.Itoa(int(t.Month())),
		"quarter":   QuarterOf(t.Month()),
		"day":       strconv.Itoa(t.Day()),
		"date":      t.Format("2006-01-02"),
	}
}

// QuarterOf maps a month to its fixed quarter bucket: Jan-Mar → "Q1".
func QuarterOf(m time.Month) string {
	return "Q" + strconv.Itoa((int(m)-1)/3+1)
}
