package resolver

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/spektr-org/salesdash/dataset"
	"github.com/spektr-org/salesdash/engine"
)

// ============================================================================
// ASSISTANT — rules → time resolver → retrieval fallback
// ============================================================================

// MsgFallbackFailed is shown when the retrieval fallback errors out.
const MsgFallbackFailed = "I don't know the answer to that. Please ask something related to the sales data."

// Answer sources.
const (
	SourceRules     = "rules"
	SourceResolver  = "resolver"
	SourceRetrieval = "retrieval"
	SourceFallback  = "fallback"
)

// Fallback answers questions the resolver did not understand.
// rag.Pipeline satisfies it.
type Fallback interface {
	Answer(ctx context.Context, question string) (string, error)
}

// Question is one request to the assistant.
type Question struct {
	Text    string
	Dataset *dataset.Dataset
	// View is the sidebar-filtered rows the sales rules answer from.
	// Nil means the whole dataset.
	View engine.RecordView
}

// Reply is the assistant's answer and where it came from.
type Reply struct {
	Text   string `json:"answer"`
	Source string `json:"source"`
	Rule   string `json:"rule,omitempty"`
}

// Assistant chains the answer paths.
type Assistant struct {
	resolver *Resolver
	rules    []Rule
	fallback Fallback
	logger   zerolog.Logger
}

// AssistantOption configures an Assistant.
type AssistantOption func(*Assistant)

// WithFallback enables the retrieval path for questions the resolver
// does not understand.
func WithFallback(f Fallback) AssistantOption {
	return func(a *Assistant) {
		a.fallback = f
	}
}

// WithSalesRules replaces the sales rule list.
func WithSalesRules(rules []Rule) AssistantOption {
	return func(a *Assistant) {
		a.rules = rules
	}
}

// WithAssistantLogger sets the assistant's logger.
func WithAssistantLogger(logger zerolog.Logger) AssistantOption {
	return func(a *Assistant) {
		a.logger = logger
	}
}

// NewAssistant wraps a resolver. A nil resolver gets the defaults.
func NewAssistant(r *Resolver, opts ...AssistantOption) *Assistant {
	if r == nil {
		r = New()
	}
	a := &Assistant{
		resolver: r,
		rules:    DefaultSalesRules(),
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Answer runs the chain. Sales rules only apply to the sales variant; the
// fallback only runs when the resolver did not understand the question.
func (a *Assistant) Answer(ctx context.Context, q Question) Reply {
	if q.Dataset != nil && q.Dataset.Variant() == dataset.VariantSales {
		view := q.View
		if view == nil {
			view = q.Dataset.View()
		}
		if text, rule, ok := AnswerSales(a.rules, q.Text, view); ok {
			return Reply{Text: text, Source: SourceRules, Rule: rule}
		}
	}

	out := a.resolver.Answer(q.Text, q.Dataset, "")
	if out.Kind != KindNotUnderstood || a.fallback == nil {
		return Reply{Text: out.Text, Source: SourceResolver, Rule: out.Trigger}
	}

	text, err := a.fallback.Answer(ctx, q.Text)
	if err != nil {
		a.logger.Warn().Err(err).Str("question", q.Text).Msg("Retrieval fallback failed")
		return Reply{Text: MsgFallbackFailed, Source: SourceFallback}
	}
	return Reply{Text: text, Source: SourceRetrieval}
}
