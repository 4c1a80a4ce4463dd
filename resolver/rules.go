package resolver

import (
	"fmt"
	"strings"

	"github.com/spektr-org/salesdash/engine"
)

// ============================================================================
// SALES RULES — keyword answers for the chocolate sales layout
// ============================================================================
// Evaluated against the sidebar-filtered rows before the time resolver.
// A rule that cannot answer (empty data, missing column) is skipped.
// ============================================================================

const (
	salesAmount  = "amount"
	salesBoxes   = "boxes_shipped"
	salesProduct = "product"
	salesCountry = "country"
)

// Rule answers a lower-cased question from a view, or reports it can't.
type Rule struct {
	Name   string
	Answer func(question string, view engine.RecordView) (string, bool)
}

// DefaultSalesRules returns the ordered rule list:
// total revenue, boxes, top product, top country, per-country revenue.
func DefaultSalesRules() []Rule {
	return []Rule{
		{Name: "total_revenue", Answer: totalRevenueRule},
		{Name: "boxes", Answer: boxesRule},
		{Name: "top_product", Answer: topRule(salesProduct, "top product")},
		{Name: "top_country", Answer: topRule(salesCountry, "top country", "most revenue")},
		{Name: "country_revenue", Answer: countryRevenueRule},
	}
}

// AnswerSales runs rules in order. The first rule that answers wins.
func AnswerSales(rules []Rule, question string, view engine.RecordView) (answer string, rule string, ok bool) {
	defer func() {
		if recover() != nil {
			answer, rule, ok = "", "", false
		}
	}()

	q := strings.ToLower(question)
	for _, r := range rules {
		if text, handled := r.Answer(q, view); handled {
			return text, r.Name, true
		}
	}
	return "", "", false
}

func totalRevenueRule(q string, view engine.RecordView) (string, bool) {
	if !strings.Contains(q, "total revenue") || !hasMeasure(view, salesAmount) {
		return "", false
	}
	return engine.FormatCurrency(engine.SumMeasure(view, salesAmount), "$"), true
}

func boxesRule(q string, view engine.RecordView) (string, bool) {
	if !strings.Contains(q, "boxes") || !hasMeasure(view, salesBoxes) {
		return "", false
	}
	return fmt.Sprintf("%d boxes", int64(engine.SumMeasure(view, salesBoxes))), true
}

// topRule names the dimension value with the highest summed amount.
func topRule(dimension string, phrases ...string) func(string, engine.RecordView) (string, bool) {
	match := containsAny(phrases...)
	return func(q string, view engine.RecordView) (string, bool) {
		if !match(q) || !hasMeasure(view, salesAmount) {
			return "", false
		}
		groups := engine.GroupAndAggregate(view, []string{dimension}, salesAmount, engine.AggSum, "", 0)
		top, ok := engine.TopGroup(groups)
		if !ok || top.Key == "" {
			return "", false
		}
		return top.Key, true
	}
}

// countryRevenueRule answers "$x from <Country>" for the first country, in
// data order, whose name appears in the question.
func countryRevenueRule(q string, view engine.RecordView) (string, bool) {
	if !hasMeasure(view, salesAmount) {
		return "", false
	}
	for _, country := range engine.UniqueValues(view, salesCountry) {
		if !strings.Contains(q, strings.ToLower(country)) {
			continue
		}
		f := engine.NewFilters()
		f.Set(salesCountry, country)
		rev := engine.SumMeasure(engine.ApplyFilters(view, f), salesAmount)
		return fmt.Sprintf("%s from %s", engine.FormatCurrency(rev, "$"), country), true
	}
	return "", false
}

func hasMeasure(view engine.RecordView, measure string) bool {
	if view == nil {
		return false
	}
	for _, k := range view.MeasureKeys() {
		if k == measure {
			return true
		}
	}
	return false
}
