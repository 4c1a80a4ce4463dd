package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/spektr-org/salesdash/dataset"
	"github.com/spektr-org/salesdash/internal/config"
	"github.com/spektr-org/salesdash/internal/logging"
	"github.com/spektr-org/salesdash/rag"
	"github.com/spektr-org/salesdash/resolver"
)

var (
	errNoFile      = errors.New("no data file: pass --file or set data.file")
	errRAGDisabled = errors.New("retrieval is disabled (rag.enabled: false)")
)

// app is the per-invocation environment: config with flag overrides applied
// and a logger writing to the command's stderr.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger
}

func (g *globalFlags) setup(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}

	if g.file != "" {
		cfg.Data.File = g.file
	}
	if g.variant != "" {
		if _, err := dataset.ParseVariant(g.variant); err != nil {
			return nil, err
		}
		cfg.Data.Variant = g.variant
	}
	if g.dateColumn != "" {
		cfg.Data.DateColumn = g.dateColumn
	}
	if g.measure != "" {
		cfg.Data.Measure = g.measure
	}
	if g.logLevel != "" {
		cfg.Logging.Level = g.logLevel
	}

	logger := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Pretty: cfg.Logging.Pretty,
		Output: cmd.ErrOrStderr(),
	})
	return &app{cfg: cfg, logger: logger}, nil
}

// loadOptions are the dataset options every load uses, uploads included.
func (a *app) loadOptions() []dataset.Option {
	opts := []dataset.Option{
		dataset.WithVariant(a.cfg.Variant()),
		dataset.WithLogger(logging.Component(a.logger, "dataset")),
	}
	if a.cfg.Data.DateColumn != "" {
		opts = append(opts, dataset.WithDateColumn(a.cfg.Data.DateColumn))
	}
	if a.cfg.Data.DateLayout != "" {
		opts = append(opts, dataset.WithDateLayout(a.cfg.Data.DateLayout))
	}
	if a.cfg.Data.Measure != "" {
		opts = append(opts, dataset.WithMeasure(a.cfg.Data.Measure))
	}
	return opts
}

func (a *app) loadDataset() (*dataset.Dataset, error) {
	if a.cfg.Data.File == "" {
		return nil, errNoFile
	}
	ds, err := dataset.LoadFile(a.cfg.Data.File, a.loadOptions()...)
	if err != nil {
		return nil, err
	}
	stats := ds.Stats()
	a.logger.Info().
		Str("file", a.cfg.Data.File).
		Str("variant", string(ds.Variant())).
		Int("rows", ds.Len()).
		Int("skipped", stats.SkippedRows).
		Msg("Loaded dataset")
	return ds, nil
}

// openPipeline builds the retrieval pipeline from config. The returned close
// function releases the vector store.
func (a *app) openPipeline(ctx context.Context) (*rag.Pipeline, func() error, error) {
	if !a.cfg.RAG.Enabled {
		return nil, nil, errRAGDisabled
	}

	provider, err := rag.NewProvider(ctx, rag.Config{
		Provider:       a.cfg.RAG.Provider,
		APIKey:         a.cfg.APIKey(),
		BaseURL:        a.cfg.RAG.OpenAIBaseURL,
		EmbeddingModel: a.cfg.RAG.EmbeddingModel,
		ChatModel:      a.cfg.RAG.ChatModel,
		Dimensions:     a.cfg.RAG.EmbeddingDimensions,
		Temperature:    a.cfg.RAG.Temperature,
		Timeout:        a.cfg.RAG.Timeout,
	})
	if err != nil {
		return nil, nil, err
	}

	store, err := rag.OpenStore(a.cfg.RAG.PersistDir, logging.Component(a.logger, "store"))
	if err != nil {
		return nil, nil, err
	}

	p := rag.NewPipeline(store, provider, provider,
		rag.WithTopK(a.cfg.RAG.TopK),
		rag.WithChunking(a.cfg.RAG.ChunkSize, a.cfg.RAG.ChunkOverlap),
		rag.WithTimeout(a.cfg.RAG.Timeout),
		rag.WithLogger(logging.Component(a.logger, "rag")),
	)
	return p, store.Close, nil
}

// indexedPipeline opens the pipeline and makes sure ds is indexed. Any
// failure is logged and leaves the caller without a fallback.
func (a *app) indexedPipeline(ctx context.Context, ds *dataset.Dataset) (*rag.Pipeline, func() error) {
	p, closeFn, err := a.openPipeline(ctx)
	if err != nil {
		a.logger.Warn().Err(err).Msg("Retrieval fallback unavailable")
		return nil, nil
	}
	if _, err := p.Index(ctx, ds, false); err != nil {
		a.logger.Warn().Err(err).Msg("Indexing failed; retrieval fallback disabled")
		_ = closeFn()
		return nil, nil
	}
	return p, closeFn
}

// newAssistant builds the answer chain. A nil fallback leaves retrieval off.
func (a *app) newAssistant(fallback resolver.Fallback) *resolver.Assistant {
	ropts := []resolver.Option{resolver.WithLogger(logging.Component(a.logger, "resolver"))}
	if a.cfg.Resolver.LegacyExtremes {
		ropts = append(ropts, resolver.WithLegacyExtremes())
	}

	aopts := []resolver.AssistantOption{resolver.WithAssistantLogger(logging.Component(a.logger, "assistant"))}
	if fallback != nil {
		aopts = append(aopts, resolver.WithFallback(fallback))
	}
	return resolver.NewAssistant(resolver.New(ropts...), aopts...)
}

func closeQuietly(logger zerolog.Logger, closeFn func() error) {
	if closeFn == nil {
		return
	}
	if err := closeFn(); err != nil {
		logger.Warn().Err(err).Msg("Failed to close vector store")
	}
}

func unknownFormat(format string, allowed ...string) error {
	return fmt.Errorf("unknown format %q (want one of %v)", format, allowed)
}
