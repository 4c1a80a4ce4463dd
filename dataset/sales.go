package dataset

import (
	"github.com/spektr-org/salesdash/engine"
	"github.com/spektr-org/salesdash/schema"
)

// SalesSchema describes the chocolate sales CSV:
// Sales Person, Country, Product, Date (04-Jan-22), Amount ($5,320), Boxes Shipped.
func SalesSchema() schema.Config {
	dims := []schema.DimensionMeta{
		schema.DefaultDimension("sales_person", "Sales Person", nil),
		schema.DefaultDimension("country", "Country", nil),
		schema.DefaultDimension("product", "Product", nil),
	}
	for _, key := range schema.DerivedDimensions {
		dims = append(dims, schema.DimensionMeta{
			Key:         key,
			DisplayName: engine.LabelForDimension(key),
			IsTemporal:  true,
			IsDerived:   true,
		})
	}

	return schema.Config{
		Name:        "Chocolate Sales",
		Description: "Shipments of chocolate products by sales person and country",
		Dimensions:  dims,
		Measures: []schema.MeasureMeta{
			schema.CurrencyMeasure("amount", "Amount", "$"),
			schema.DefaultMeasure("boxes_shipped", "Boxes Shipped"),
		},
		DateColumn:     "date",
		DateLayout:     "02-Jan-06",
		PrimaryMeasure: "amount",
	}
}
