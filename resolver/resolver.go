package resolver

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/spektr-org/salesdash/dataset"
	"github.com/spektr-org/salesdash/engine"
	"github.com/spektr-org/salesdash/schema"
)

// ============================================================================
// RESOLVER — Time-scoped answers to free-text questions
// ============================================================================
// Pipeline per question:
//   1. Lower-case, extract year / month / quarter
//   2. Filter the dataset (AND across the three); empty → MsgNoData
//   3. First matching trigger computes the aggregate; none → MsgNotUnderstood
//   4. Any error or panic → "Error processing question: <fault>"
// ============================================================================

const (
	// MsgNoData is returned when no row matches the question's time filter.
	MsgNoData = "No data found for the specified time period."
	// MsgNotUnderstood is returned when no trigger matches the question.
	MsgNotUnderstood = "Sorry, I couldn't understand the question. Try asking for a total, average, max, min or daily breakdown, optionally for a year, month or quarter."

	errorPrefix = "Error processing question: "
)

var errNoDataset = errors.New("no dataset loaded")

// Kind classifies an Outcome.
type Kind int

const (
	KindAnswer Kind = iota
	KindNoData
	KindNotUnderstood
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindAnswer:
		return "answer"
	case KindNoData:
		return "no_data"
	case KindNotUnderstood:
		return "not_understood"
	default:
		return "error"
	}
}

// Outcome is the resolver's answer plus how it was reached.
type Outcome struct {
	Kind    Kind
	Text    string
	Trigger string // name of the trigger that fired, if any
	Filter  TimeFilter
	Matched int
}

// Resolver answers time-scoped aggregate questions.
// It holds no per-question state and is safe for concurrent use.
type Resolver struct {
	triggers       []Trigger
	legacyExtremes bool
	logger         zerolog.Logger
}

// New creates a Resolver with the default trigger cascade.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		triggers: DefaultTriggers(),
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve answers question over ds, aggregating column (empty → the
// dataset's configured measure). It always returns a string.
func (r *Resolver) Resolve(question string, ds *dataset.Dataset, column string) string {
	return r.Answer(question, ds, column).Text
}

// Resolve answers with a default Resolver.
func Resolve(question string, ds *dataset.Dataset, column string) string {
	return New().Resolve(question, ds, column)
}

// Answer is Resolve with the outcome classification attached.
func (r *Resolver) Answer(question string, ds *dataset.Dataset, column string) (out Outcome) {
	defer func() {
		if rec := recover(); rec != nil {
			out = errorOutcome(fmt.Errorf("%v", rec))
			r.logger.Error().Interface("panic", rec).Str("question", question).Msg("Resolver panic recovered")
		}
	}()

	if ds == nil {
		return errorOutcome(errNoDataset)
	}
	if column == "" {
		column = ds.Measure()
	} else {
		// Accept the header as written ("Boxes Shipped") as well as its key.
		column = schema.ToSnakeCase(column)
	}

	q := strings.ToLower(question)
	filter := ParseTimeFilter(q)

	filtered := engine.ApplyFilters(ds.View(), filter.Filters())
	out.Filter = filter
	out.Matched = filtered.Len()

	if filtered.Len() == 0 {
		out.Kind = KindNoData
		out.Text = MsgNoData
		r.logOutcome(question, out)
		return out
	}

	for _, t := range r.triggers {
		if !t.Match(q) {
			continue
		}
		out.Trigger = t.Name
		text, err := t.Handle(Query{
			Question:       q,
			Filter:         filter,
			Column:         column,
			View:           filtered,
			legacyExtremes: r.legacyExtremes,
		})
		if err != nil {
			e := errorOutcome(err)
			e.Trigger, e.Filter, e.Matched = out.Trigger, out.Filter, out.Matched
			r.logOutcome(question, e)
			return e
		}
		out.Kind = KindAnswer
		out.Text = text
		r.logOutcome(question, out)
		return out
	}

	out.Kind = KindNotUnderstood
	out.Text = MsgNotUnderstood
	r.logOutcome(question, out)
	return out
}

func errorOutcome(err error) Outcome {
	return Outcome{Kind: KindError, Text: errorPrefix + err.Error()}
}

func (r *Resolver) logOutcome(question string, out Outcome) {
	r.logger.Debug().
		Str("question", question).
		Int("year", out.Filter.Year).
		Int("month", int(out.Filter.Month)).
		Int("quarter", out.Filter.Quarter).
		Int("matched", out.Matched).
		Str("trigger", out.Trigger).
		Stringer("kind", out.Kind).
		Msg("Question resolved")
}
