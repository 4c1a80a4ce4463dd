package resolver

import (
	"fmt"
	"strings"

	"github.com/spektr-org/salesdash/engine"
)

// ============================================================================
// TRIGGERS — ordered (predicate, handler) pairs, first match wins
// ============================================================================

// Query is what a trigger handler sees: the question, its time filter and
// the rows that survived the filter.
type Query struct {
	Question string // lower-cased
	Filter   TimeFilter
	Column   string
	View     engine.RecordView

	legacyExtremes bool
}

// Predicate tests the lower-cased question.
type Predicate func(question string) bool

// Handler computes the answer for a matched question.
type Handler func(q Query) (string, error)

// Trigger pairs a predicate with its handler.
type Trigger struct {
	Name   string
	Match  Predicate
	Handle Handler
}

// DefaultTriggers returns the standard cascade:
// total, average, max, min, daily.
func DefaultTriggers() []Trigger {
	return []Trigger{
		{
			Name: "total",
			Match: func(q string) bool {
				return strings.Contains(q, "total") ||
					(strings.Contains(q, "sum") && !strings.Contains(q, "average"))
			},
			Handle: aggregateHandler("Total", engine.AggSum),
		},
		{
			Name:   "average",
			Match:  containsAny("average", "mean"),
			Handle: aggregateHandler("Average", engine.AggAvg),
		},
		{
			Name:   "max",
			Match:  containsAny("max", "highest"),
			Handle: aggregateHandler("Max", engine.AggMax),
		},
		{
			Name:   "min",
			Match:  containsAny("min", "lowest"),
			Handle: aggregateHandler("Min", engine.AggMin),
		},
		{
			Name:   "daily",
			Match:  containsAny("daily"),
			Handle: dailyHandler,
		},
	}
}

func containsAny(words ...string) Predicate {
	return func(q string) bool {
		for _, w := range words {
			if strings.Contains(q, w) {
				return true
			}
		}
		return false
	}
}

// aggregateHandler answers "<Label> <Column>[ for <scope>]: 1,234.50".
func aggregateHandler(label, aggregation string) Handler {
	return func(q Query) (string, error) {
		agg := aggregation
		if q.legacyExtremes && (agg == engine.AggMax || agg == engine.AggMin) {
			agg = engine.AggSum
		}

		res, err := engine.Execute(engine.QuerySpec{Aggregation: agg, Measure: q.Column}, q.View)
		if err != nil {
			return "", err
		}

		return fmt.Sprintf("%s %s%s: %s",
			label, engine.LabelForDimension(q.Column), q.Filter.scopeSuffix(), engine.FormatAmount(res.Value)), nil
	}
}

// dailyHandler sums the column per calendar day, one line per date ascending.
func dailyHandler(q Query) (string, error) {
	res, err := engine.Execute(engine.QuerySpec{
		Aggregation: engine.AggSum,
		Measure:     q.Column,
		GroupBy:     []string{"date"},
		SortBy:      "date_asc",
	}, q.View)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Daily breakdown of %s%s:", engine.LabelForDimension(q.Column), q.Filter.scopeSuffix())
	for _, g := range res.Groups {
		if g.Key == "" {
			continue // row without a parsed date
		}
		fmt.Fprintf(&b, "\n%s: %s", g.Key, engine.FormatAmount(g.Value))
	}
	return b.String(), nil
}
