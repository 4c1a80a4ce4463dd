package rag

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/spektr-org/salesdash/dataset"
)

// ============================================================================
// PIPELINE — Index rows, retrieve top-k, generate a grounded answer
// ============================================================================
// Index:  rows → documents → chunks → embeddings → store
//         (an already populated store is reused unless forced)
// Answer: question → embedding → top-k chunks → prompt → generator
// Every call is bounded by the configured timeout.
// ============================================================================

// ErrNoAnswer is returned when the model declined to answer from the context.
var ErrNoAnswer = errors.New("no answer in retrieved context")

// IndexStats describes one Index call.
type IndexStats struct {
	Documents int           `json:"documents"`
	Chunks    int           `json:"chunks"`
	Reused    bool          `json:"reused"`
	Duration  time.Duration `json:"duration"`
}

// Pipeline answers questions from an indexed dataset.
type Pipeline struct {
	store     *Store
	embedder  Embedder
	generator Generator

	topK         int
	chunkSize    int
	chunkOverlap int
	batchSize    int
	timeout      time.Duration
	logger       zerolog.Logger

	// mu serializes Index runs; searches take the read side so they never
	// see a half-rebuilt store.
	mu sync.RWMutex
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithTopK sets how many chunks are retrieved per question.
func WithTopK(k int) Option {
	return func(p *Pipeline) {
		if k > 0 {
			p.topK = k
		}
	}
}

// WithChunking sets the splitter's chunk size and overlap.
func WithChunking(size, overlap int) Option {
	return func(p *Pipeline) {
		if size > 0 {
			p.chunkSize = size
		}
		if overlap >= 0 && overlap < p.chunkSize {
			p.chunkOverlap = overlap
		}
	}
}

// WithBatchSize sets how many chunks are embedded per request.
func WithBatchSize(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// WithTimeout bounds each Index and Answer call.
func WithTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithLogger sets the pipeline logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// NewPipeline wires a store with an embedder and a generator.
func NewPipeline(store *Store, embedder Embedder, generator Generator, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:        store,
		embedder:     embedder,
		generator:    generator,
		topK:         4,
		chunkSize:    500,
		chunkOverlap: 50,
		batchSize:    100,
		timeout:      60 * time.Second,
		logger:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Index embeds ds into the store. A populated store is reused unless force
// is set, in which case it is cleared and rebuilt. Concurrent calls run one
// at a time, so the store always holds exactly one dataset.
func (p *Pipeline) Index(ctx context.Context, ds *dataset.Dataset, force bool) (IndexStats, error) {
	start := time.Now()
	var stats IndexStats
	if ds == nil {
		return stats, fmt.Errorf("no dataset loaded")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	count, err := p.store.Count()
	if err != nil {
		return stats, err
	}
	if count > 0 && !force {
		stats.Chunks = count
		stats.Reused = true
		stats.Duration = time.Since(start)
		p.logger.Info().
			Int("chunks", count).
			Str("path", p.store.Dir()).
			Msg("Reusing existing vector store")
		return stats, nil
	}
	if count > 0 {
		if err := p.store.Reset(); err != nil {
			return stats, err
		}
	}

	docs := BuildDocuments(ds)
	stats.Documents = len(docs)
	split, err := SplitDocuments(docs, p.chunkSize, p.chunkOverlap)
	if err != nil {
		return stats, err
	}

	chunks := make([]Chunk, 0, len(split))
	for _, d := range split {
		row, _ := d.Metadata[MetaRow].(int)
		source, _ := d.Metadata[MetaSource].(string)
		chunks = append(chunks, Chunk{Content: d.PageContent, Row: row, Source: source})
	}

	for startIdx := 0; startIdx < len(chunks); startIdx += p.batchSize {
		end := min(startIdx+p.batchSize, len(chunks))
		texts := make([]string, 0, end-startIdx)
		for _, c := range chunks[startIdx:end] {
			texts = append(texts, c.Content)
		}
		vectors, err := p.embedder.Embed(ctx, texts)
		if err != nil {
			return stats, fmt.Errorf("embed chunks %d-%d: %w", startIdx, end, err)
		}
		if len(vectors) != len(texts) {
			return stats, fmt.Errorf("embed chunks %d-%d: got %d vectors", startIdx, end, len(vectors))
		}
		for i, v := range vectors {
			chunks[startIdx+i].Embedding = v
		}
	}

	if err := p.store.Add(chunks); err != nil {
		return stats, err
	}

	stats.Chunks = len(chunks)
	stats.Duration = time.Since(start)
	p.logger.Info().
		Int("documents", stats.Documents).
		Int("chunks", stats.Chunks).
		Dur("duration", stats.Duration).
		Msg("Vector store built")
	return stats, nil
}

// Retrieve returns the chunks most similar to question.
func (p *Pipeline) Retrieve(ctx context.Context, question string) ([]ScoredChunk, error) {
	vectors, err := p.embedder.Embed(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embed question: got %d vectors", len(vectors))
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.store.Search(vectors[0], p.topK)
}

// Answer retrieves context for question and asks the generator.
// It satisfies the assistant's fallback interface.
func (p *Pipeline) Answer(ctx context.Context, question string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	hits, err := p.Retrieve(ctx, question)
	if err != nil {
		return "", err
	}

	p.logger.Debug().
		Str("question", question).
		Int("hits", len(hits)).
		Float64("best_score", hits[0].Score).
		Msg("Retrieved context")

	raw, err := p.generator.Generate(ctx, SystemPrompt, BuildPrompt(question, hits))
	if err != nil {
		return "", err
	}

	answer := CleanAnswer(raw)
	if IsUnknown(answer) {
		return "", ErrNoAnswer
	}
	return answer, nil
}
