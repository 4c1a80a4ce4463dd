package engine

import (
	"errors"
	"fmt"
	"slices"
)

// ============================================================================
// EXECUTOR — Filter → Validate → Aggregate
// ============================================================================
// Entry point: Execute(spec, view, opts...)
//
// Pipeline:
//   1. Apply filters from QuerySpec → SubView
//   2. Empty subset → Result with Matched == 0 (not an error)
//   3. Validate the measure exists and is numeric on the filtered rows
//   4. Aggregate the whole subset, plus groups when GroupBy is set
//
// This function never calls an external service. All computation is local.
// ============================================================================

// ErrUnknownMeasure is returned when the measure is not a numeric column of the view.
var ErrUnknownMeasure = errors.New("unknown measure")

// Execute runs a QuerySpec against a RecordView.
func Execute(spec QuerySpec, view RecordView, opts ...Option) (*Result, error) {
	cfg := applyOptions(opts)

	measure := spec.Measure
	if measure == "" {
		measure = cfg.DefaultMeasure
	}

	if view == nil {
		return nil, errors.New("no dataset loaded")
	}

	cfg.Logger.Debug().
		Int("records", view.Len()).
		Str("aggregation", spec.Aggregation).
		Str("measure", measure).
		Strs("group_by", spec.GroupBy).
		Msg("Executing query")

	// 1. Apply filters → SubView (zero-copy)
	filtered := ApplyFilters(view, spec.Filters)

	result := &Result{
		Measure:  measure,
		Matched:  filtered.Len(),
		Filtered: filtered,
	}

	// 2. Nothing matched: callers report "no data" without aggregating
	if filtered.Len() == 0 {
		cfg.Logger.Debug().Msg("No records match filters")
		return result, nil
	}

	// 3. Validate measure
	if err := validateMeasure(filtered, measure); err != nil {
		return nil, err
	}

	// 4. Aggregate
	result.Value = Aggregate(filtered, measure, spec.Aggregation)
	if len(spec.GroupBy) > 0 {
		result.Groups = GroupAndAggregate(filtered, spec.GroupBy, measure, spec.Aggregation, spec.SortBy, spec.Limit)
	}

	cfg.Logger.Debug().
		Int("matched", result.Matched).
		Float64("value", result.Value).
		Int("groups", len(result.Groups)).
		Msg("Query executed")

	return result, nil
}

// validateMeasure checks the measure is a known numeric column. Rows with a
// blank or unparsed cell are skipped by the aggregators, not rejected here.
func validateMeasure(view RecordView, measure string) error {
	if measure == "" {
		return fmt.Errorf("%w: no measure selected", ErrUnknownMeasure)
	}
	if !slices.Contains(view.MeasureKeys(), measure) {
		return fmt.Errorf("%w: %q is not a numeric column", ErrUnknownMeasure, measure)
	}
	return nil
}
