package resolver

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/spektr-org/salesdash/engine"
)

// ============================================================================
// TIME FILTER — year / month / quarter extracted from a question
// ============================================================================

var yearPattern = regexp.MustCompile(`20\d{2}`)

// TimeFilter is the ephemeral filter derived from one question.
// Zero fields are unset. All set fields must hold on a row (AND).
type TimeFilter struct {
	Year    int        // e.g. 2022
	Month   time.Month // January..December
	Quarter int        // 1..4
}

// ParseTimeFilter extracts the filter from a question. It never fails:
// anything it cannot find stays unset.
func ParseTimeFilter(question string) TimeFilter {
	q := strings.ToLower(question)
	var f TimeFilter

	if m := yearPattern.FindString(q); m != "" {
		f.Year, _ = strconv.Atoi(m)
	}

	// first month name in calendar order
	for m := time.January; m <= time.December; m++ {
		if strings.Contains(q, strings.ToLower(m.String())) {
			f.Month = m
			break
		}
	}

	for n := 1; n <= 4; n++ {
		if strings.Contains(q, "q"+strconv.Itoa(n)) {
			f.Quarter = n
			break
		}
	}

	return f
}

// IsEmpty reports whether no time constraint was found.
func (f TimeFilter) IsEmpty() bool {
	return f.Year == 0 && f.Month == 0 && f.Quarter == 0
}

// QuarterMonths returns the month numbers of quarter n: 3 → 7, 8, 9.
func QuarterMonths(n int) []int {
	if n < 1 || n > 4 {
		return nil
	}
	first := (n-1)*3 + 1
	return []int{first, first + 1, first + 2}
}

// Filters converts the time filter into engine dimension filters over the
// derived temporal fields.
func (f TimeFilter) Filters() engine.Filters {
	filters := engine.NewFilters()
	if f.Year != 0 {
		filters.Set("year", strconv.Itoa(f.Year))
	}
	if f.Month != 0 {
		filters.Set("month", f.Month.String())
	}
	if f.Quarter != 0 {
		months := QuarterMonths(f.Quarter)
		values := make([]string, len(months))
		for i, m := range months {
			values[i] = strconv.Itoa(m)
		}
		filters.Set("month_num", values...)
	}
	return filters
}

// Scope renders the filter for an answer line: "April 2022", "Q1", "Q3 2023".
func (f TimeFilter) Scope() string {
	var parts []string
	if f.Month != 0 {
		parts = append(parts, f.Month.String())
	}
	if f.Quarter != 0 {
		parts = append(parts, "Q"+strconv.Itoa(f.Quarter))
	}
	if f.Year != 0 {
		parts = append(parts, strconv.Itoa(f.Year))
	}
	return strings.Join(parts, " ")
}

func (f TimeFilter) scopeSuffix() string {
	if s := f.Scope(); s != "" {
		return " for " + s
	}
	return ""
}
