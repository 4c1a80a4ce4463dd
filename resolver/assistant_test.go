package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/salesdash/dataset"
	"github.com/spektr-org/salesdash/engine"
)

const salesCSV = `Sales Person,Country,Product,Date,Amount,Boxes Shipped
Ann,UK,Eclairs,04-Jan-22,"$1,000",10
Bob,India,Eclairs,10-Apr-22,"$2,500.50",20
Cal,India,Mint Chip,15-Jul-22,"$300",5
Dee,Canada,Mint Chip,01-Feb-23,"$4,000",1
`

type fakeFallback struct {
	answer string
	err    error
	calls  int
}

func (f *fakeFallback) Answer(_ context.Context, _ string) (string, error) {
	f.calls++
	return f.answer, f.err
}

func salesDataset(t *testing.T) *dataset.Dataset {
	return loadCSV(t, salesCSV, dataset.WithVariant(dataset.VariantSales))
}

func TestSalesRules(t *testing.T) {
	view := salesDataset(t).View()
	rules := DefaultSalesRules()

	tests := []struct {
		question string
		answer   string
		rule     string
	}{
		{"What is the total revenue?", "$7,800.50", "total_revenue"},
		{"How many boxes did we ship?", "36 boxes", "boxes"},
		{"Which is the top product?", "Mint Chip", "top_product"},
		{"top country please", "Canada", "top_country"},
		{"who brings the most revenue", "Canada", "top_country"},
		{"how did India do", "$2,800.50 from India", "country_revenue"},
	}
	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			answer, rule, ok := AnswerSales(rules, tt.question, view)
			require.True(t, ok)
			assert.Equal(t, tt.answer, answer)
			assert.Equal(t, tt.rule, rule)
		})
	}

	t.Run("no rule matches", func(t *testing.T) {
		_, _, ok := AnswerSales(rules, "total in 2022", view)
		assert.False(t, ok)
	})

	t.Run("empty view", func(t *testing.T) {
		empty := engine.NewSliceView(nil)
		_, _, ok := AnswerSales(rules, "top product", empty)
		assert.False(t, ok)
	})

	t.Run("panicking rule falls through", func(t *testing.T) {
		boom := []Rule{{Name: "boom", Answer: func(string, engine.RecordView) (string, bool) { panic("x") }}}
		_, _, ok := AnswerSales(boom, "anything", view)
		assert.False(t, ok)
	})
}

func TestAssistantChain(t *testing.T) {
	ctx := context.Background()
	ds := salesDataset(t)

	t.Run("rules first", func(t *testing.T) {
		fb := &fakeFallback{answer: "rag"}
		reply := NewAssistant(nil, WithFallback(fb)).Answer(ctx, Question{Text: "total revenue", Dataset: ds})
		assert.Equal(t, Reply{Text: "$7,800.50", Source: SourceRules, Rule: "total_revenue"}, reply)
		assert.Equal(t, 0, fb.calls)
	})

	t.Run("rules answer from the filtered view", func(t *testing.T) {
		f := engine.NewFilters()
		f.Set("country", "UK")
		reply := NewAssistant(nil).Answer(ctx, Question{
			Text:    "total revenue",
			Dataset: ds,
			View:    engine.ApplyFilters(ds.View(), f),
		})
		assert.Equal(t, "$1,000.00", reply.Text)
	})

	t.Run("resolver second", func(t *testing.T) {
		fb := &fakeFallback{answer: "rag"}
		reply := NewAssistant(nil, WithFallback(fb)).Answer(ctx, Question{Text: "total in 2022", Dataset: ds})
		assert.Equal(t, "Total Amount for 2022: 3,800.50", reply.Text)
		assert.Equal(t, SourceResolver, reply.Source)
		assert.Equal(t, 0, fb.calls)
	})

	t.Run("no data does not fall back", func(t *testing.T) {
		fb := &fakeFallback{answer: "rag"}
		reply := NewAssistant(nil, WithFallback(fb)).Answer(ctx, Question{Text: "weather in 2099", Dataset: ds})
		assert.Equal(t, MsgNoData, reply.Text)
		assert.Equal(t, 0, fb.calls)
	})

	t.Run("retrieval when not understood", func(t *testing.T) {
		fb := &fakeFallback{answer: "Eclairs sold well in January."}
		reply := NewAssistant(nil, WithFallback(fb)).Answer(ctx, Question{Text: "what is the weather", Dataset: ds})
		assert.Equal(t, Reply{Text: "Eclairs sold well in January.", Source: SourceRetrieval}, reply)
		assert.Equal(t, 1, fb.calls)
	})

	t.Run("fallback failure", func(t *testing.T) {
		fb := &fakeFallback{err: errors.New("quota exceeded")}
		reply := NewAssistant(nil, WithFallback(fb)).Answer(ctx, Question{Text: "what is the weather", Dataset: ds})
		assert.Equal(t, Reply{Text: MsgFallbackFailed, Source: SourceFallback}, reply)
	})

	t.Run("no fallback configured", func(t *testing.T) {
		reply := NewAssistant(nil).Answer(ctx, Question{Text: "what is the weather", Dataset: ds})
		assert.Equal(t, MsgNotUnderstood, reply.Text)
		assert.Equal(t, SourceResolver, reply.Source)
	})

	t.Run("generic variant skips sales rules", func(t *testing.T) {
		generic := loadCSV(t, "Date,Amount\n2022-01-15,100\n2022-04-10,200\n")
		reply := NewAssistant(nil).Answer(ctx, Question{Text: "total revenue in 2022", Dataset: generic})
		assert.Equal(t, "Total Amount for 2022: 300.00", reply.Text)
		assert.Equal(t, SourceResolver, reply.Source)
	})

	t.Run("legacy resolver is honoured", func(t *testing.T) {
		reply := NewAssistant(New(WithLegacyExtremes())).Answer(ctx, Question{Text: "max in 2022", Dataset: ds})
		assert.Equal(t, "Max Amount for 2022: 3,800.50", reply.Text)
	})
}
