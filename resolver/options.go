package resolver

import "github.com/rs/zerolog"

// Option configures a Resolver.
type Option func(*Resolver)

// WithLegacyExtremes makes the max/min triggers report the sum of the
// filtered rows (legacy dashboard behaviour).
func WithLegacyExtremes() Option {
	return func(r *Resolver) {
		r.legacyExtremes = true
	}
}

// WithTriggers replaces the trigger cascade. Order is precedence.
func WithTriggers(triggers []Trigger) Option {
	return func(r *Resolver) {
		r.triggers = triggers
	}
}

// WithLogger sets the logger used for per-question debug traces.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}
