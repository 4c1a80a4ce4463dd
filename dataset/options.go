package dataset

import (
	"github.com/rs/zerolog"

	"github.com/spektr-org/salesdash/schema"
)

// Option configures Load.
type Option func(*options)

type options struct {
	schema     *schema.Config
	dateColumn string
	dateLayout string
	measure    string
	variant    Variant
	source     string
	logger     zerolog.Logger
}

// WithSchema skips discovery and parses with sch.
func WithSchema(sch schema.Config) Option {
	return func(o *options) {
		o.schema = &sch
	}
}

// WithDateColumn names the column the temporal fields derive from.
func WithDateColumn(column string) Option {
	return func(o *options) {
		o.dateColumn = column
	}
}

// WithDateLayout sets the Go time layout of the date column.
func WithDateLayout(layout string) Option {
	return func(o *options) {
		o.dateLayout = layout
	}
}

// WithMeasure names the numeric column questions aggregate.
func WithMeasure(column string) Option {
	return func(o *options) {
		o.measure = column
	}
}

// WithVariant selects the sales or generic layout.
func WithVariant(v Variant) Option {
	return func(o *options) {
		o.variant = v
	}
}

// WithSource records where the data came from (file path, upload name).
func WithSource(source string) Option {
	return func(o *options) {
		o.source = source
	}
}

// WithLogger sets the logger used to report loads.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func applyOptions(opts []Option) *options {
	o := &options{
		variant: VariantGeneric,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *options) sourceName() string {
	if o.source == "" {
		return "dataset"
	}
	return o.source
}
