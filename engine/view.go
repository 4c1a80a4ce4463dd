package engine

import "sort"

// ============================================================================
// RECORD VIEW — read access to loaded rows
// ============================================================================
// Everything downstream of the loader (filters, grouping, the resolver, the
// dashboard) reads rows through RecordView and never mutates them.
//
//   SliceView: the loaded []Record
//   SubView:   a selection of rows, held as indices into its parent
// ============================================================================

// RecordView provides indexed access to a dataset.
// Out-of-range indices read as missing values.
type RecordView interface {
	Len() int
	Dimension(index int, key string) string
	Measure(index int, key string) float64
	HasMeasure(index int, key string) bool
	DimensionKeys() []string // sorted
	MeasureKeys() []string   // sorted
}

// SliceView is a RecordView over a []Record.
type SliceView struct {
	records []Record
	dimKeys []string
	mesKeys []string
}

// NewSliceView wraps records. The slice must not be modified afterwards.
func NewSliceView(records []Record) RecordView {
	dims := make(map[string]struct{})
	measures := make(map[string]struct{})
	for _, r := range records {
		for k := range r.Dimensions {
			dims[k] = struct{}{}
		}
		for k := range r.Measures {
			measures[k] = struct{}{}
		}
	}
	return &SliceView{
		records: records,
		dimKeys: sortedKeys(dims),
		mesKeys: sortedKeys(measures),
	}
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (v *SliceView) at(i int) (Record, bool) {
	if i < 0 || i >= len(v.records) {
		return Record{}, false
	}
	return v.records[i], true
}

func (v *SliceView) Len() int { return len(v.records) }

func (v *SliceView) Dimension(i int, key string) string {
	r, _ := v.at(i)
	return r.Dimensions[key]
}

func (v *SliceView) Measure(i int, key string) float64 {
	r, _ := v.at(i)
	return r.Measures[key]
}

func (v *SliceView) HasMeasure(i int, key string) bool {
	r, ok := v.at(i)
	if !ok {
		return false
	}
	_, ok = r.Measures[key]
	return ok
}

func (v *SliceView) DimensionKeys() []string { return v.dimKeys }
func (v *SliceView) MeasureKeys() []string   { return v.mesKeys }

// SubView is a selection of rows from a parent view.
type SubView struct {
	parent  RecordView
	indices []int
}

func newSubView(parent RecordView, indices []int) RecordView {
	return &SubView{parent: parent, indices: indices}
}

// Head returns the first n rows of view.
func Head(view RecordView, n int) RecordView {
	if n >= view.Len() {
		return view
	}
	return Where(view, func(i int) bool { return i < n })
}

// parentIndex maps i to the parent row; -1 reads as missing in the parent.
func (v *SubView) parentIndex(i int) int {
	if i < 0 || i >= len(v.indices) {
		return -1
	}
	return v.indices[i]
}

func (v *SubView) Len() int { return len(v.indices) }

func (v *SubView) Dimension(i int, key string) string {
	return v.parent.Dimension(v.parentIndex(i), key)
}

func (v *SubView) Measure(i int, key string) float64 {
	return v.parent.Measure(v.parentIndex(i), key)
}

func (v *SubView) HasMeasure(i int, key string) bool {
	return v.parent.HasMeasure(v.parentIndex(i), key)
}

func (v *SubView) DimensionKeys() []string { return v.parent.DimensionKeys() }
func (v *SubView) MeasureKeys() []string   { return v.parent.MeasureKeys() }
