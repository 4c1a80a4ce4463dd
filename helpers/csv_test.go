package helpers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/salesdash/schema"
)

var salesCSV = []byte("\ufeffSales Person,Country,Product,Date,Amount,Boxes Shipped\n" +
	"Jehu Rudeforth,UK,Mint Chip Choco,04-Jan-22,\"$5,320 \",180\n" +
	"Van Tuxwell,India,85% Dark Bars,01-Aug-22,\"$7,896 \",94\n" +
	"broken,row\n" +
	"Gigi Bohling,India,Eclairs,someday,\"$4,501 \",91\n")

func salesSchema() schema.Config {
	return schema.Config{
		Dimensions: []schema.DimensionMeta{
			schema.DefaultDimension("sales_person", "Sales Person", nil),
			schema.DefaultDimension("country", "Country", nil),
			schema.DefaultDimension("product", "Product", nil),
		},
		Measures: []schema.MeasureMeta{
			schema.CurrencyMeasure("amount", "Amount", "$"),
			schema.DefaultMeasure("boxes_shipped", "Boxes Shipped"),
		},
		DateColumn: "date",
		DateLayout: "02-Jan-06",
	}
}

func TestParseCSV(t *testing.T) {
	records, stats, err := ParseCSV(salesCSV, salesSchema())
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, Stats{Rows: 3, SkippedRows: 1, UnparsedDates: 1}, stats)

	first := records[0]
	assert.Equal(t, "UK", first.Dimensions["country"])
	assert.Equal(t, "Jehu Rudeforth", first.Dimensions["sales_person"])
	assert.Equal(t, 5320.0, first.Measures["amount"])
	assert.Equal(t, 180.0, first.Measures["boxes_shipped"])
	assert.Equal(t, "2022", first.Dimensions["year"])
	assert.Equal(t, "January", first.Dimensions["month"])
	assert.Equal(t, "1", first.Dimensions["month_num"])
	assert.Equal(t, "Q1", first.Dimensions["quarter"])
	assert.Equal(t, "4", first.Dimensions["day"])
	assert.Equal(t, "2022-01-04", first.Dimensions["date"])

	assert.Equal(t, "Q3", records[1].Dimensions["quarter"])

	t.Run("unparsed date keeps other fields", func(t *testing.T) {
		r := records[2]
		assert.Equal(t, "Eclairs", r.Dimensions["product"])
		assert.Equal(t, 4501.0, r.Measures["amount"])
		assert.NotContains(t, r.Dimensions, "year")
	})
}

func TestParseCSVMissingDateColumn(t *testing.T) {
	sch := salesSchema()
	sch.DateColumn = "order_date"
	_, _, err := ParseCSV(salesCSV, sch)
	assert.Error(t, err)
}

func TestQuarterOf(t *testing.T) {
	tests := map[time.Month]string{
		time.January: "Q1", time.March: "Q1",
		time.April: "Q2", time.June: "Q2",
		time.July: "Q3", time.September: "Q3",
		time.October: "Q4", time.December: "Q4",
	}
	for m, want := range tests {
		assert.Equal(t, want, QuarterOf(m), m.String())
	}
}
