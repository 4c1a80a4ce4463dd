package schema

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// ============================================================================
// AUTO-DISCOVERY — Heuristic Classification
// ============================================================================
// Inspects raw CSV and generates a schema.Config. No AI involved.
//
// Classification pipeline per column:
//   1. Sample values → detect type (numeric, date, bool, string)
//   2. Type + cardinality → classify role (dimension, measure, skip)
//   3. Pattern matching → currency amounts, date layout, month/quarter labels
//   4. Pick the date column and primary measure
//   5. Describe the derived temporal dimensions the loader will attach
// ============================================================================

// ErrNoDataRows is returned when the CSV has a header but no rows.
var ErrNoDataRows = errors.New("CSV has no data rows")

// DiscoverOptions controls discovery behavior.
type DiscoverOptions struct {
	SampleSize     int      // Max rows to inspect (0 = all). Default: 1000
	RecoverColumns []string // Force-include columns that were auto-skipped
	Name           string   // Dataset name override (otherwise inferred)
	DateColumn     string   // Header or key of the date column (otherwise detected)
	Measure        string   // Header or key of the primary measure (otherwise detected)
}

// DefaultDiscoverOptions returns sensible defaults.
func DefaultDiscoverOptions() DiscoverOptions {
	return DiscoverOptions{
		SampleSize: 1000,
	}
}

// DiscoverFromCSV generates a schema.Config by inspecting CSV data.
func DiscoverFromCSV(data []byte, opts ...DiscoverOptions) (*Config, error) {
	opt := DefaultDiscoverOptions()
	if len(opts) > 0 {
		opt = opts[0]
	}

	reader := csv.NewReader(strings.NewReader(string(data)))
	reader.FieldsPerRecord = -1

	// 1. Read headers
	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV headers: %w", err)
	}
	if len(headers) == 0 {
		return nil, fmt.Errorf("CSV has no columns")
	}

	// 2. Read sample rows
	var rows [][]string
	limit := opt.SampleSize
	if limit <= 0 {
		limit = 100000 // safety cap
	}
	for len(rows) < limit {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue // skip malformed rows
		}
		rows = append(rows, row)
	}

	totalRows := len(rows)
	if totalRows == 0 {
		return nil, ErrNoDataRows
	}

	forcedDate := ToSnakeCase(opt.DateColumn)
	forcedMeasure := ToSnakeCase(opt.Measure)

	// 3. Analyze each column
	columns := make([]columnAnalysis, len(headers))
	for i, header := range headers {
		columns[i] = analyzeColumn(header, i, rows, totalRows)
		if forcedDate != "" && columns[i].key == forcedDate {
			columns[i].forceDate(rows)
		}
		if forcedMeasure != "" && columns[i].key == forcedMeasure && columns[i].colType != typeNumeric {
			return nil, fmt.Errorf("measure column %q is not numeric", opt.Measure)
		}
	}

	// 4. Apply recovery overrides
	recoverSet := make(map[string]bool)
	for _, col := range opt.RecoverColumns {
		recoverSet[strings.ToLower(col)] = true
		recoverSet[ToSnakeCase(col)] = true
	}

	config := &Config{
		Name: opt.Name,
	}
	if config.Name == "" {
		config.Name = "Uploaded Dataset"
	}

	var dimensions []DimensionMeta
	var measures []MeasureMeta
	var skipped []SkippedColumn

	for _, col := range columns {
		recovered := recoverSet[strings.ToLower(col.header)] || recoverSet[col.key]

		switch col.role {
		case roleDimension:
			dimensions = append(dimensions, col.toDimension())
			if col.colType == typeDate && config.DateColumn == "" && (forcedDate == "" || col.key == forcedDate) {
				config.DateColumn = col.key
				config.DateLayout = col.temporalFormat
			}

		case roleMeasure:
			measures = append(measures, col.toMeasure())

		case roleSkipped:
			if recovered {
				dimensions = append(dimensions, col.toDimension())
			} else {
				skipped = append(skipped, SkippedColumn{
					Column:      col.header,
					Reason:      col.skipReason,
					Recoverable: col.recoverable,
				})
			}
		}
	}

	if forcedDate != "" && config.DateColumn != forcedDate {
		return nil, fmt.Errorf("date column %q has no recognizable dates", opt.DateColumn)
	}

	// 5. Hierarchies between plain dimensions
	detectHierarchies(dimensions, rows, columns)

	config.Dimensions = appendDerived(dimensions, config.DateColumn)
	config.Measures = measures
	config.SkippedColumns = skipped
	config.DiscoveredFrom = "CSV"
	config.DiscoveredAt = time.Now().Format(time.RFC3339)

	if forcedMeasure != "" {
		config.PrimaryMeasure = forcedMeasure
	} else {
		config.PrimaryMeasure = config.GetDefaultMeasure()
		if len(measures) == 0 {
			config.PrimaryMeasure = ""
		}
	}

	return config, nil
}

// appendDerived describes the temporal fields the loader attaches.
// A source column with the same key as a derived field is replaced by it.
func appendDerived(dimensions []DimensionMeta, dateColumn string) []DimensionMeta {
	if dateColumn == "" {
		return dimensions
	}
	derived := make(map[string]bool, len(DerivedDimensions))
	for _, key := range DerivedDimensions {
		derived[key] = true
	}
	out := dimensions[:0]
	for _, d := range dimensions {
		if !derived[d.Key] {
			out = append(out, d)
		}
	}
	for _, key := range DerivedDimensions {
		out = append(out, DimensionMeta{
			Key:         key,
			DisplayName: toDisplayName(key),
			IsTemporal:  true,
			IsDerived:   true,
		})
	}
	return out
}

// ============================================================================
// COLUMN ANALYSIS
// ============================================================================

type columnRole int

const (
	roleDimension columnRole = iota
	roleMeasure
	roleSkipped
)

type columnType int

const (
	typeString columnType = iota
	typeNumeric
	typeDate
	typeBool
)

type columnAnalysis struct {
	header      string
	key         string
	index       int
	colType     columnType
	role        columnRole
	skipReason  string
	recoverable bool

	// Stats
	uniqueCount int
	totalCount  int
	nullCount   int
	sampleVals  []string
	values      []string

	// Special type detection
	isTemporal      bool
	temporalFormat  string
	hasDecimals     bool
	currencySymbol  string
	cardinalityHint string
}

// analyzeColumn inspects all values in a column and classifies it.
func analyzeColumn(header string, index int, rows [][]string, totalRows int) columnAnalysis {
	col := columnAnalysis{
		header:     strings.TrimSpace(strings.TrimPrefix(header, "\ufeff")),
		key:        ToSnakeCase(header),
		index:      index,
		totalCount: totalRows,
	}

	values := make([]string, 0, len(rows))
	uniqueSet := make(map[string]bool)

	for _, row := range rows {
		if index >= len(row) {
			col.nullCount++
			continue
		}
		val := strings.TrimSpace(row[index])
		if isNull(val) {
			col.nullCount++
			continue
		}
		values = append(values, val)
		uniqueSet[val] = true
	}

	col.uniqueCount = len(uniqueSet)
	col.values = values

	if len(values) == 0 {
		col.role = roleSkipped
		col.skipReason = "All values are empty/null"
		return col
	}

	col.sampleVals = collectSamples(uniqueSet, 10)

	// Step 1: Detect type
	col.colType, col.temporalFormat = detectType(values)

	if col.colType == typeNumeric {
		col.hasDecimals, col.currencySymbol = numericTraits(values)
	}

	// Step 2: Month/quarter labels stay string dimensions but are flagged temporal
	if col.colType == typeString {
		col.isTemporal, col.temporalFormat = detectTemporalPattern(col.sampleVals)
	}
	if col.colType == typeDate {
		col.isTemporal = true
	}

	// Step 3: Classify role based on type + cardinality
	col.classifyRole(totalRows)

	switch {
	case col.uniqueCount <= 10:
		col.cardinalityHint = "low"
	case col.uniqueCount <= 100:
		col.cardinalityHint = "medium"
	default:
		col.cardinalityHint = "high"
	}

	return col
}

// forceDate re-types a column as the date column when its values parse with
// any known layout, even below the detection threshold.
func (col *columnAnalysis) forceDate(rows [][]string) {
	layout, matches := bestLayout(col.values)
	if matches == 0 {
		return
	}
	col.colType = typeDate
	col.temporalFormat = layout
	col.isTemporal = true
	col.role = roleDimension
	col.skipReason = ""
}

// classifyRole determines dimension vs measure vs skip.
func (col *columnAnalysis) classifyRole(totalRows int) {
	switch col.colType {

	case typeNumeric:
		if col.currencySymbol != "" || col.hasDecimals {
			// Money or continuous data → always a measure
			col.role = roleMeasure
			return
		}
		if col.uniqueCount == totalRows && totalRows > 10 && looksLikeID(col.key, col.values) {
			col.role = roleSkipped
			col.skipReason = "unique per row, likely an ID column"
			return
		}
		// Few unique values at a low ratio → coded dimension (e.g., priority 1-5)
		uniqueRatio := float64(col.uniqueCount) / float64(totalRows)
		if col.uniqueCount < 20 && uniqueRatio < 0.3 {
			col.role = roleDimension
			return
		}
		col.role = roleMeasure

	case typeDate:
		col.role = roleDimension

	case typeBool:
		col.role = roleDimension

	case typeString:
		if col.uniqueCount == totalRows && totalRows > 10 {
			col.role = roleSkipped
			col.skipReason = "unique per row, likely an identifier"
			return
		}
		if col.uniqueCount > totalRows/2 && col.uniqueCount > 50 {
			col.role = roleSkipped
			col.skipReason = fmt.Sprintf("high cardinality (%d unique values), not useful for grouping", col.uniqueCount)
			col.recoverable = true
			return
		}
		col.role = roleDimension
	}
}

// looksLikeID reports an integer column that is named like a key or counts up.
func looksLikeID(key string, values []string) bool {
	if key == "id" || strings.HasSuffix(key, "_id") || strings.HasSuffix(key, "_no") || strings.HasSuffix(key, "_key") {
		return true
	}
	prev := -1.0
	for _, v := range values {
		f, _, ok := ParseNumber(v)
		if !ok || f <= prev {
			return false
		}
		prev = f
	}
	return true
}

// ============================================================================
// TYPE DETECTION
// ============================================================================

// detectType inspects values to determine column type.
// Requires 80%+ of non-null values to match for numeric/date/bool.
func detectType(values []string) (columnType, string) {
	if len(values) == 0 {
		return typeString, ""
	}

	numCount := 0
	boolCount := 0
	for _, v := range values {
		if _, _, ok := ParseNumber(v); ok {
			numCount++
		}
		if isBool(v) {
			boolCount++
		}
	}

	threshold := int(float64(len(values)) * 0.8)
	if threshold == 0 {
		threshold = 1
	}

	if boolCount >= threshold {
		return typeBool, ""
	}
	if layout, matches := bestLayout(values); matches >= threshold {
		return typeDate, layout
	}
	if numCount >= threshold {
		return typeNumeric, ""
	}
	return typeString, ""
}

// DateLayouts are the day-level layouts discovery and the loader try, in order.
var DateLayouts = []string{
	"2006-01-02",
	"02-Jan-06",
	"2-Jan-06",
	"02-Jan-2006",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"01/02/2006",
	"02/01/2006",
	"2006/01/02",
	"Jan 2, 2006",
	"2 Jan 2006",
}

// bestLayout returns the layout that parses the most values; earlier layouts
// win ties.
func bestLayout(values []string) (string, int) {
	best, bestCount := "", 0
	for _, layout := range DateLayouts {
		count := 0
		for _, v := range values {
			if _, err := time.Parse(layout, v); err == nil {
				count++
			}
		}
		if count > bestCount {
			best, bestCount = layout, count
		}
	}
	return best, bestCount
}

// ParseDate parses s with layout, falling back to every known layout.
func ParseDate(s, layout string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if layout != "" {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	for _, l := range DateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

var currencySymbols = []string{"$", "€", "£"}

// ParseNumber parses a plain or currency-formatted number: "5320", "$5,320",
// "-€12.50". It returns the currency symbol found, if any.
func ParseNumber(s string) (float64, string, bool) {
	s = strings.TrimSpace(s)
	negative := false
	if strings.HasPrefix(s, "-") {
		negative = true
		s = strings.TrimSpace(s[1:])
	}
	symbol := ""
	for _, sym := range currencySymbols {
		if strings.HasPrefix(s, sym) {
			symbol = sym
			s = strings.TrimSpace(strings.TrimPrefix(s, sym))
			break
		}
	}
	if strings.HasPrefix(s, "-") && !negative {
		negative = true
		s = s[1:]
	}
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, "", false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, "", false
	}
	if negative {
		f = -f
	}
	return f, symbol, true
}

// numericTraits reports decimal points and the dominant currency symbol.
func numericTraits(values []string) (bool, string) {
	hasDecimals := false
	symbols := make(map[string]int)
	for _, v := range values {
		if strings.Contains(v, ".") {
			hasDecimals = true
		}
		if _, sym, ok := ParseNumber(v); ok && sym != "" {
			symbols[sym]++
		}
	}
	symbol, best := "", 0
	for _, sym := range currencySymbols {
		if symbols[sym] > best {
			symbol, best = sym, symbols[sym]
		}
	}
	return hasDecimals, symbol
}

func isNull(s string) bool {
	switch s {
	case "", "null", "NULL", "N/A", "n/a", "NaN":
		return true
	}
	return false
}

func isBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "false" || s == "yes" || s == "no"
}

// ============================================================================
// SPECIAL PATTERN DETECTION
// ============================================================================

var monthPatterns = []struct {
	re     *regexp.Regexp
	format string
}{
	{regexp.MustCompile(`^[A-Z][a-z]{2}-\d{4}$`), "MMM-yyyy"}, // Jan-2022
	{regexp.MustCompile(`^\d{4}-\d{2}$`), "yyyy-MM"},          // 2022-01
	{regexp.MustCompile(`^Q[1-4]-\d{4}$`), "QN-yyyy"},         // Q1-2022
	{regexp.MustCompile(`^Q[1-4]\s+\d{4}$`), "QN yyyy"},       // Q1 2022
	{regexp.MustCompile(`^[A-Z][a-z]+ \d{4}$`), "MMMM yyyy"},  // January 2022
}

// detectTemporalPattern checks if values match known month/quarter patterns.
func detectTemporalPattern(samples []string) (bool, string) {
	if len(samples) == 0 {
		return false, ""
	}

	for _, pattern := range monthPatterns {
		matches := 0
		for _, s := range samples {
			if pattern.re.MatchString(strings.TrimSpace(s)) {
				matches++
			}
		}
		if float64(matches)/float64(len(samples)) >= 0.8 {
			return true, pattern.format
		}
	}

	return false, ""
}

// ============================================================================
// HIERARCHY DETECTION
// ============================================================================

// detectHierarchies finds parent/child relationships between dimensions.
// If every value of dimension B maps to exactly one value of dimension A,
// and A has fewer unique values, then A is parent of B. Among several valid
// parents the closest (highest cardinality) wins. Dates never take part.
func detectHierarchies(dimensions []DimensionMeta, rows [][]string, columns []columnAnalysis) {
	dimIndices := make(map[string]int)
	dimUniques := make(map[string]int)
	for _, col := range columns {
		if col.role == roleDimension && col.colType != typeDate {
			dimIndices[col.key] = col.index
			dimUniques[col.key] = col.uniqueCount
		}
	}

	for i := range dimensions {
		childKey := dimensions[i].Key
		childIdx, ok := dimIndices[childKey]
		if !ok {
			continue
		}

		bestParent := ""
		bestParentUniques := 0

		for j := range dimensions {
			if i == j {
				continue
			}
			parentKey := dimensions[j].Key
			parentIdx, ok := dimIndices[parentKey]
			if !ok || dimUniques[parentKey] >= dimUniques[childKey] {
				continue
			}

			if mapsUniquely(rows, childIdx, parentIdx) && dimUniques[parentKey] > bestParentUniques {
				bestParent = parentKey
				bestParentUniques = dimUniques[parentKey]
			}
		}

		dimensions[i].Parent = bestParent
	}
}

// mapsUniquely reports whether every child value has exactly one parent value.
func mapsUniquely(rows [][]string, childIdx, parentIdx int) bool {
	childToParent := make(map[string]string)
	for _, row := range rows {
		if childIdx >= len(row) || parentIdx >= len(row) {
			continue
		}
		child := strings.TrimSpace(row[childIdx])
		parent := strings.TrimSpace(row[parentIdx])
		if child == "" || parent == "" {
			continue
		}
		if existing, ok := childToParent[child]; ok {
			if existing != parent {
				return false
			}
		} else {
			childToParent[child] = parent
		}
	}
	return len(childToParent) > 1
}

// ============================================================================
// CONVERSION HELPERS
// ============================================================================

func (col *columnAnalysis) toDimension() DimensionMeta {
	return DimensionMeta{
		Key:             col.key,
		DisplayName:     toDisplayName(col.header),
		SampleValues:    col.sampleVals,
		IsTemporal:      col.isTemporal,
		TemporalFormat:  col.temporalFormat,
		CardinalityHint: col.cardinalityHint,
	}
}

func (col *columnAnalysis) toMeasure() MeasureMeta {
	if col.currencySymbol != "" {
		return CurrencyMeasure(col.key, toDisplayName(col.header), col.currencySymbol)
	}
	return DefaultMeasure(col.key, toDisplayName(col.header))
}

// ============================================================================
// STRING UTILITIES
// ============================================================================

// ToSnakeCase converts "Column Name" or "columnName" → "column_name".
func ToSnakeCase(s string) string {
	s = strings.TrimSpace(strings.TrimPrefix(s, "\ufeff"))
	runes := []rune(s)
	var result strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) && i > 0 {
			prev := runes[i-1]
			if unicode.IsLower(prev) || unicode.IsDigit(prev) {
				result.WriteRune('_')
			}
		}
		result.WriteRune(r)
	}

	s = strings.ToLower(result.String())
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	for strings.Contains(s, "__") {
		s = strings.ReplaceAll(s, "__", "_")
	}
	return strings.Trim(s, "_")
}

// toDisplayName cleans a header for human display.
// "boxes_shipped" → "Boxes Shipped", "Country" → "Country"
func toDisplayName(s string) string {
	s = strings.TrimSpace(s)
	if strings.Contains(s, " ") {
		return s
	}

	s = strings.ReplaceAll(s, "_", " ")
	s = strings.ReplaceAll(s, "-", " ")

	words := strings.Fields(s)
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
		}
	}
	return strings.Join(words, " ")
}

// collectSamples picks up to maxSamples values, sorted for deterministic output.
func collectSamples(uniqueSet map[string]bool, maxSamples int) []string {
	samples := make([]string, 0, len(uniqueSet))
	for v := range uniqueSet {
		samples = append(samples, v)
	}
	sort.Strings(samples)

	if len(samples) > maxSamples {
		samples = samples[:maxSamples]
	}
	return samples
}
