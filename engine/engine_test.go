package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecords() []Record {
	return []Record{
		{
			Dimensions: map[string]string{"country": "India", "product": "Mint Chip", "year": "2022", "month_num": "1", "quarter": "Q1", "date": "2022-01-15"},
			Measures:   map[string]float64{"amount": 100, "boxes_shipped": 10},
		},
		{
			Dimensions: map[string]string{"country": "UK", "product": "Eclairs", "year": "2022", "month_num": "4", "quarter": "Q2", "date": "2022-04-10"},
			Measures:   map[string]float64{"amount": 200, "boxes_shipped": 5},
		},
		{
			Dimensions: map[string]string{"country": "India", "product": "Eclairs", "year": "2022", "month_num": "4", "quarter": "Q2", "date": "2022-04-02"},
			Measures:   map[string]float64{"amount": 50.5, "boxes_shipped": 3},
		},
	}
}

func TestApplyFilters(t *testing.T) {
	view := NewSliceView(sampleRecords())

	t.Run("empty filters return the view", func(t *testing.T) {
		assert.Equal(t, 3, ApplyFilters(view, NewFilters()).Len())
	})

	t.Run("case insensitive match", func(t *testing.T) {
		f := NewFilters()
		f.Set("country", "india")
		assert.Equal(t, 2, ApplyFilters(view, f).Len())
	})

	t.Run("OR within a dimension", func(t *testing.T) {
		f := NewFilters()
		f.Set("country", "India", "UK")
		assert.Equal(t, 3, ApplyFilters(view, f).Len())
	})

	t.Run("AND across dimensions", func(t *testing.T) {
		f := NewFilters()
		f.Set("country", "India")
		f.Set("quarter", "Q2")
		got := ApplyFilters(view, f)
		require.Equal(t, 1, got.Len())
		assert.Equal(t, "2022-04-02", got.Dimension(0, "date"))
	})

	t.Run("Set with no values clears the dimension", func(t *testing.T) {
		f := NewFilters()
		f.Set("country", "UK")
		f.Set("country")
		assert.True(t, f.IsEmpty())
		assert.False(t, f.HasFilter("country"))
	})
}

func TestAggregate(t *testing.T) {
	view := NewSliceView(sampleRecords())

	assert.InDelta(t, 350.5, Aggregate(view, "amount", AggSum), 1e-9)
	assert.InDelta(t, 350.5/3, Aggregate(view, "amount", AggAvg), 1e-9)
	assert.Equal(t, 200.0, Aggregate(view, "amount", AggMax))
	assert.Equal(t, 50.5, Aggregate(view, "amount", AggMin))
	assert.Equal(t, 3.0, Aggregate(view, "amount", AggCount))
	assert.InDelta(t, 350.5, Aggregate(view, "amount", "unknown"), 1e-9)
}

func TestSumMeasureIsExact(t *testing.T) {
	records := make([]Record, 0, 10)
	for i := 0; i < 10; i++ {
		records = append(records, Record{Measures: map[string]float64{"amount": 0.1}})
	}
	assert.Equal(t, 1.0, SumMeasure(NewSliceView(records), "amount"))
}

func TestGroupAndAggregate(t *testing.T) {
	view := NewSliceView(sampleRecords())

	t.Run("value_desc", func(t *testing.T) {
		groups := GroupAndAggregate(view, []string{"product"}, "amount", AggSum, "value_desc", 0)
		require.Len(t, groups, 2)
		assert.Equal(t, "Eclairs", groups[0].Key)
		assert.InDelta(t, 250.5, groups[0].Value, 1e-9)
		assert.Equal(t, 2, groups[0].Count)
	})

	t.Run("numeric keys sort numerically", func(t *testing.T) {
		records := []Record{
			{Dimensions: map[string]string{"month_num": "12"}, Measures: map[string]float64{"amount": 1}},
			{Dimensions: map[string]string{"month_num": "4"}, Measures: map[string]float64{"amount": 1}},
		}
		groups := GroupAndAggregate(NewSliceView(records), []string{"month_num"}, "amount", AggSum, "date_asc", 0)
		require.Len(t, groups, 2)
		assert.Equal(t, "4", groups[0].Key)
		assert.Equal(t, "12", groups[1].Key)
	})

	t.Run("limit", func(t *testing.T) {
		groups := GroupAndAggregate(view, []string{"date"}, "amount", AggSum, "date_asc", 2)
		require.Len(t, groups, 2)
		assert.Equal(t, "2022-01-15", groups[0].Key)
		assert.Equal(t, "2022-04-02", groups[1].Key)
	})

	t.Run("sub groups", func(t *testing.T) {
		groups := GroupAndAggregate(view, []string{"month_num", "country"}, "amount", AggSum, "date_asc", 0)
		require.Len(t, groups, 2)
		assert.Len(t, groups[1].SubGroups, 2)
	})
}

func TestTopGroup(t *testing.T) {
	_, ok := TopGroup(nil)
	assert.False(t, ok)

	top, ok := TopGroup([]Group{{Key: "a", Value: 5}, {Key: "b", Value: 9}, {Key: "c", Value: 9}})
	require.True(t, ok)
	assert.Equal(t, "b", top.Key)
}

func TestExecute(t *testing.T) {
	view := NewSliceView(sampleRecords())

	t.Run("filtered sum", func(t *testing.T) {
		f := NewFilters()
		f.Set("quarter", "Q1")
		res, err := Execute(QuerySpec{Filters: f, Aggregation: AggSum}, view)
		require.NoError(t, err)
		assert.Equal(t, "amount", res.Measure)
		assert.Equal(t, 1, res.Matched)
		assert.Equal(t, 100.0, res.Value)
	})

	t.Run("no match is not an error", func(t *testing.T) {
		f := NewFilters()
		f.Set("year", "2099")
		res, err := Execute(QuerySpec{Filters: f, Aggregation: AggSum}, view)
		require.NoError(t, err)
		assert.True(t, res.Empty())
	})

	t.Run("unknown measure", func(t *testing.T) {
		_, err := Execute(QuerySpec{Measure: "profit"}, view)
		assert.ErrorIs(t, err, ErrUnknownMeasure)
	})

	t.Run("measure missing on a row", func(t *testing.T) {
		records := append(sampleRecords(), Record{
			Dimensions: map[string]string{"country": "UK", "year": "2022"},
			Measures:   map[string]float64{"boxes_shipped": 1},
		})
		blank := NewSliceView(records)

		cases := []struct {
			agg  string
			want float64
		}{
			{AggSum, 350.5},
			{AggAvg, 350.5 / 3},
			{AggMax, 200},
			{AggMin, 50.5},
			{AggCount, 4},
		}
		for _, tc := range cases {
			res, err := Execute(QuerySpec{Measure: "amount", Aggregation: tc.agg}, blank)
			require.NoError(t, err, tc.agg)
			assert.Equal(t, 4, res.Matched)
			assert.InDelta(t, tc.want, res.Value, 1e-9, tc.agg)
		}
	})

	t.Run("measure missing on every row", func(t *testing.T) {
		only := NewSliceView([]Record{
			{Dimensions: map[string]string{"country": "UK"}, Measures: map[string]float64{"boxes_shipped": 1}},
			{Dimensions: map[string]string{"country": "UK"}, Measures: map[string]float64{"amount": 5}},
		})
		sub := Where(only, func(i int) bool { return i == 0 })
		for _, agg := range []string{AggSum, AggAvg, AggMax, AggMin} {
			assert.Equal(t, 0.0, Aggregate(sub, "amount", agg), agg)
		}
	})

	t.Run("nil view", func(t *testing.T) {
		_, err := Execute(QuerySpec{}, nil)
		assert.Error(t, err)
	})

	t.Run("default measure option", func(t *testing.T) {
		res, err := Execute(QuerySpec{Aggregation: AggSum}, view, WithDefaultMeasure("boxes_shipped"))
		require.NoError(t, err)
		assert.Equal(t, 18.0, res.Value)
	})

	t.Run("groups", func(t *testing.T) {
		res, err := Execute(QuerySpec{Aggregation: AggSum, GroupBy: []string{"country"}, SortBy: "value_desc"}, view)
		require.NoError(t, err)
		require.Len(t, res.Groups, 2)
		assert.Equal(t, "UK", res.Groups[0].Key)
	})
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "1,234.50", FormatAmount(1234.5))
	assert.Equal(t, "100.00", FormatAmount(100))
	assert.Equal(t, "0.00", FormatAmount(0))
	assert.Equal(t, "$1,234,567.89", FormatCurrency(1234567.891, "$"))
	assert.Equal(t, "-$5.00", FormatCurrency(-5, "$"))
	assert.Equal(t, "12,345", FormatInt(12345))
	assert.Equal(t, 2.35, RoundTo2(2.345))
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "Boxes Shipped", LabelForDimension("boxes_shipped"))
	assert.Equal(t, "Amount", LabelForDimension("amount"))
	assert.Equal(t, "Average", LabelForAggregation(AggAvg))
}

func TestUniqueValuesAndHead(t *testing.T) {
	view := NewSliceView(sampleRecords())
	assert.Equal(t, []string{"India", "UK"}, UniqueValues(view, "country"))

	head := Head(view, 2)
	assert.Equal(t, 2, head.Len())
	assert.Equal(t, 3, Head(view, 10).Len())
	assert.Equal(t, 0, Head(view, -1).Len())
}

func TestViews(t *testing.T) {
	view := NewSliceView(sampleRecords())
	assert.Equal(t, []string{"country", "date", "month_num", "product", "quarter", "year"}, view.DimensionKeys())
	assert.Equal(t, []string{"amount", "boxes_shipped"}, view.MeasureKeys())

	big := Where(view, func(i int) bool { return view.Measure(i, "amount") >= 100 })
	require.Equal(t, 2, big.Len())
	assert.Equal(t, "UK", big.Dimension(1, "country"))
	assert.Equal(t, view.DimensionKeys(), big.DimensionKeys())

	// out of range reads as missing
	assert.Equal(t, "", big.Dimension(5, "country"))
	assert.Zero(t, big.Measure(-1, "amount"))
	assert.False(t, big.HasMeasure(2, "amount"))
	assert.True(t, big.HasMeasure(0, "amount"))
	assert.False(t, view.HasMeasure(0, "discount"))

	assert.Equal(t, 0, NewSliceView(nil).Len())
	assert.Empty(t, NewSliceView(nil).DimensionKeys())
}

func TestBuildChart(t *testing.T) {
	view := NewSliceView(sampleRecords())

	t.Run("nil for no groups", func(t *testing.T) {
		assert.Nil(t, BuildChart(QuerySpec{}, nil))
	})

	t.Run("pie single series", func(t *testing.T) {
		spec := QuerySpec{GroupBy: []string{"product"}, Measure: "amount", Aggregation: AggSum, Visualize: "pie", Title: "Revenue by Product"}
		chart := BuildChart(spec, GroupAndAggregate(view, spec.GroupBy, "amount", AggSum, "", 0))
		require.NotNil(t, chart)
		assert.Equal(t, "pie", chart.ChartType)
		assert.False(t, chart.ShowGrid)
		require.Len(t, chart.Series, 1)
		require.Len(t, chart.Series[0].Data, 2)
		assert.Equal(t, "Mint Chip", chart.Series[0].Data[0].Label)
		assert.InDelta(t, 28.53, chart.Series[0].Data[0].Share, 0.001)
		assert.InDelta(t, 71.47, chart.Series[0].Data[1].Share, 0.001)
		assert.Equal(t, []string{chart.Series[0].Color}, chart.Colors)
	})

	t.Run("grouped series fill missing pairs", func(t *testing.T) {
		spec := QuerySpec{GroupBy: []string{"month_num", "country"}, Measure: "amount", Aggregation: AggSum}
		groups := GroupAndAggregate(view, spec.GroupBy, "amount", AggSum, "date_asc", 0)
		chart := BuildChart(spec, groups)
		require.NotNil(t, chart)
		assert.Equal(t, "bar", chart.ChartType)
		require.Len(t, chart.Series, 2)
		assert.Equal(t, "India", chart.Series[0].Name)
		assert.Equal(t, "UK", chart.Series[1].Name)
		// UK has no January sales
		assert.Equal(t, 0.0, chart.Series[1].Data[0].Value)
		assert.Equal(t, 200.0, chart.Series[1].Data[1].Value)
		assert.Equal(t, "4", chart.Series[1].Data[1].Label)
		assert.Zero(t, chart.Series[1].Data[1].Share)
	})
}

func TestBuildTable(t *testing.T) {
	view := NewSliceView(sampleRecords())
	spec := QuerySpec{GroupBy: []string{"country"}, Aggregation: AggSum, Title: "By country"}
	table := BuildTable(spec, GroupAndAggregate(view, spec.GroupBy, "amount", AggSum, "alpha_asc", 0), "$")

	require.Len(t, table.Rows, 2)
	assert.Equal(t, []string{"India", "150.50", "2"}, table.Rows[0])
	assert.Equal(t, "$350.50", table.Summary.Values["value"])

	list := BuildListTable("Preview", Head(view, 1), []string{"country"}, []string{"amount"})
	require.Len(t, list.Rows, 1)
	assert.Equal(t, []string{"India", "100.00"}, list.Rows[0])
	assert.Equal(t, "Country", list.Columns[0].Label)
}

func TestDecimal(t *testing.T) {
	a, err := NewDecimal("0.1")
	require.NoError(t, err)
	b, err := NewDecimal("0.2")
	require.NoError(t, err)
	assert.Equal(t, "0.3", a.Add(b).String())

	_, err = NewDecimal("abc")
	assert.Error(t, err)

	assert.True(t, NewDecimalFromInt64(0).IsZero())
	assert.Equal(t, 1, b.Cmp(a))
}
