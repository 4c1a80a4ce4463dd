package rag

import (
	"fmt"
	"strconv"
	"strings"

	lcschema "github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/textsplitter"

	"github.com/spektr-org/salesdash/dataset"
	"github.com/spektr-org/salesdash/engine"
)

// ============================================================================
// DOCUMENTS — One text document per dataset row
// ============================================================================
// Sales:   "Date: 2022-01-04, Country: UK, Product: Mint Chip Choco, Boxes: 180, Amount: $5320"
// Generic: "Date: 2022-01-04, Region: North, Store: S-1, Revenue: $120.5"
// ============================================================================

// Metadata keys attached to every document.
const (
	MetaRow    = "row"
	MetaSource = "source"
)

// BuildDocuments renders every row of ds as a document.
func BuildDocuments(ds *dataset.Dataset) []lcschema.Document {
	if ds == nil {
		return nil
	}
	view := ds.View()
	docs := make([]lcschema.Document, 0, view.Len())
	for i := 0; i < view.Len(); i++ {
		var text string
		if ds.Variant() == dataset.VariantSales {
			text = salesRowText(view, i)
		} else {
			text = genericRowText(ds, i)
		}
		docs = append(docs, lcschema.Document{
			PageContent: text,
			Metadata: map[string]any{
				MetaRow:    i,
				MetaSource: ds.Source(),
			},
		})
	}
	return docs
}

// SplitDocuments chunks docs with the recursive character splitter.
func SplitDocuments(docs []lcschema.Document, chunkSize, chunkOverlap int) ([]lcschema.Document, error) {
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(chunkSize),
		textsplitter.WithChunkOverlap(chunkOverlap),
	)
	chunks, err := textsplitter.SplitDocuments(splitter, docs)
	if err != nil {
		return nil, fmt.Errorf("split documents: %w", err)
	}
	return chunks, nil
}

func salesRowText(view engine.RecordView, i int) string {
	return fmt.Sprintf("Date: %s, Country: %s, Product: %s, Boxes: %s, Amount: $%s",
		view.Dimension(i, "date"),
		view.Dimension(i, "country"),
		view.Dimension(i, "product"),
		plainNumber(view.Measure(i, "boxes_shipped")),
		plainNumber(view.Measure(i, "amount")),
	)
}

func genericRowText(ds *dataset.Dataset, i int) string {
	view := ds.View()
	sch := ds.Schema()

	parts := make([]string, 0, len(sch.Dimensions)+len(sch.Measures)+1)
	if d := view.Dimension(i, "date"); d != "" {
		parts = append(parts, "Date: "+d)
	}
	for _, dim := range sch.Dimensions {
		if dim.IsDerived || dim.Key == sch.DateColumn {
			continue
		}
		if v := view.Dimension(i, dim.Key); v != "" {
			parts = append(parts, dim.DisplayName+": "+v)
		}
	}
	for _, m := range sch.Measures {
		if !view.HasMeasure(i, m.Key) {
			continue
		}
		v := plainNumber(view.Measure(i, m.Key))
		if m.IsCurrency {
			v = m.CurrencySymbol + v
		}
		parts = append(parts, m.DisplayName+": "+v)
	}
	return strings.Join(parts, ", ")
}

// plainNumber prints 180 as "180" and 12.5 as "12.5".
func plainNumber(f float64) string {
	return strconv.FormatFloat(engine.RoundTo2(f), 'f', -1, 64)
}
