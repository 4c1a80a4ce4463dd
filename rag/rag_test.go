package rag

import (
	"context"
	"errors"
	"hash/fnv"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lcschema "github.com/tmc/langchaingo/schema"

	"github.com/spektr-org/salesdash/dataset"
)

// ============================================================================
// FAKES
// ============================================================================

// hashEmbedder maps each lowercased word to a bucket: texts sharing words
// end up close to each other.
type hashEmbedder struct {
	mu    sync.Mutex
	calls int
	fail  error
}

const fakeDims = 256

func (h *hashEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	h.mu.Lock()
	h.calls++
	h.mu.Unlock()
	if h.fail != nil {
		return nil, h.fail
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, fakeDims)
		for _, w := range strings.FieldsFunc(strings.ToLower(t), func(r rune) bool {
			return r == ' ' || r == ',' || r == ':' || r == '?'
		}) {
			f := fnv.New32a()
			_, _ = f.Write([]byte(w))
			v[f.Sum32()%fakeDims]++
		}
		out[i] = v
	}
	return out, nil
}

// echoGenerator returns the first context row, or a fixed reply.
type echoGenerator struct {
	reply      string
	lastSystem string
	lastPrompt string
	fail       error
}

func (g *echoGenerator) Generate(_ context.Context, system, prompt string) (string, error) {
	g.lastSystem = system
	g.lastPrompt = prompt
	if g.fail != nil {
		return "", g.fail
	}
	if g.reply != "" {
		return g.reply, nil
	}
	for _, line := range strings.Split(prompt, "\n") {
		if strings.HasPrefix(line, "1. ") {
			return "Answer: " + strings.TrimPrefix(line, "1. "), nil
		}
	}
	return "I don't know.", nil
}

func loadSales(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.LoadFile(filepath.Join("..", "dataset", "testdata", "chocolate_sales.csv"),
		dataset.WithVariant(dataset.VariantSales))
	require.NoError(t, err)
	return ds
}

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// ============================================================================
// DOCUMENTS
// ============================================================================

func TestBuildDocumentsSales(t *testing.T) {
	docs := BuildDocuments(loadSales(t))
	require.Len(t, docs, 12)
	assert.Equal(t, "Date: 2022-01-04, Country: UK, Product: Mint Chip Choco, Boxes: 180, Amount: $5320", docs[0].PageContent)
	assert.Equal(t, 0, docs[0].Metadata[MetaRow])
	assert.Equal(t, 11, docs[11].Metadata[MetaRow])
	assert.Contains(t, docs[11].PageContent, "Date: 2023-03-26")
}

func TestBuildDocumentsGeneric(t *testing.T) {
	ds, err := dataset.Load([]byte("Region,Order Date,Revenue\nNorth,2023-01-05,120.50\nSouth,2023-05-09,80.25\n"),
		dataset.WithSource("upload.csv"))
	require.NoError(t, err)

	docs := BuildDocuments(ds)
	require.Len(t, docs, 2)
	text := docs[0].PageContent
	assert.True(t, strings.HasPrefix(text, "Date: 2023-01-05, "), text)
	assert.Contains(t, text, "Region: North")
	assert.Contains(t, text, "Revenue: 120.5")
	assert.NotContains(t, text, "Order Date")
	assert.NotContains(t, text, "Quarter")
	assert.Equal(t, "upload.csv", docs[0].Metadata[MetaSource])
}

func TestBuildDocumentsNil(t *testing.T) {
	assert.Nil(t, BuildDocuments(nil))
}

func TestSplitDocuments(t *testing.T) {
	long := strings.Repeat("chocolate ", 120)
	docs := []lcschema.Document{
		{PageContent: "Date: 2022-01-04, Country: UK", Metadata: map[string]any{MetaRow: 0}},
		{PageContent: long, Metadata: map[string]any{MetaRow: 1}},
	}

	chunks, err := SplitDocuments(docs, 500, 50)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 2)
	assert.Equal(t, "Date: 2022-01-04, Country: UK", chunks[0].PageContent)
	for _, c := range chunks[1:] {
		assert.LessOrEqual(t, len(c.PageContent), 500)
		assert.Equal(t, 1, c.Metadata[MetaRow])
	}
}

// ============================================================================
// STORE
// ============================================================================

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Equal(t, 0.0, CosineSimilarity([]float32{0, 0}, []float32{1, 1}))
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1}, []float32{1, 1}))
}

func TestStoreRoundTrip(t *testing.T) {
	s := openStore(t)

	_, err := s.Search([]float32{1, 0}, 4)
	assert.ErrorIs(t, err, ErrEmptyStore)

	chunks := []Chunk{
		{Content: "north", Embedding: []float32{1, 0}, Row: 0},
		{Content: "east", Embedding: []float32{0.7, 0.7}, Row: 1},
		{Content: "south", Embedding: []float32{-1, 0}, Row: 2},
	}
	require.NoError(t, s.Add(chunks))
	for _, c := range chunks {
		assert.NotEmpty(t, c.ID)
		assert.False(t, c.CreatedAt.IsZero())
	}

	n, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	hits, err := s.Search([]float32{1, 0.1}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "north", hits[0].Content)
	assert.Equal(t, "east", hits[1].Content)
	assert.Greater(t, hits[0].Score, hits[1].Score)

	_, err = s.Search([]float32{1, 0, 0}, 2)
	assert.Error(t, err)

	require.NoError(t, s.Reset())
	n, err = s.Count()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestStorePersists(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenStore(dir, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, s.Add([]Chunk{{Content: "kept", Embedding: []float32{1}}}))
	require.NoError(t, s.Close())

	s, err = OpenStore(dir, zerolog.Nop())
	require.NoError(t, err)
	defer s.Close()
	n, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

// ============================================================================
// PROMPT
// ============================================================================

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt(" which country? ", []ScoredChunk{
		{Chunk: Chunk{Content: "Date: 2022-01-04, Country: UK"}},
		{Chunk: Chunk{Content: "Date: 2022-08-01, Country: India\n"}},
	})
	assert.Contains(t, prompt, "1. Date: 2022-01-04, Country: UK\n2. Date: 2022-08-01, Country: India\n")
	assert.Contains(t, prompt, "QUESTION: which country?\n")
	assert.True(t, strings.HasSuffix(prompt, "ANSWER:"))
}

func TestCleanAnswer(t *testing.T) {
	assert.Equal(t, "UK", CleanAnswer("Answer: UK"))
	assert.Equal(t, "UK", CleanAnswer("```\nUK\n```"))
	assert.Equal(t, "India", CleanAnswer("  ANSWER:  India "))
	assert.True(t, IsUnknown("I don't know."))
	assert.True(t, IsUnknown("  "))
	assert.False(t, IsUnknown("UK"))
}

// ============================================================================
// PIPELINE
// ============================================================================

func TestPipelineIndexAndAnswer(t *testing.T) {
	ds := loadSales(t)
	emb := &hashEmbedder{}
	gen := &echoGenerator{}
	p := NewPipeline(openStore(t), emb, gen, WithTopK(3), WithBatchSize(5))

	stats, err := p.Index(context.Background(), ds, false)
	require.NoError(t, err)
	assert.Equal(t, 12, stats.Documents)
	assert.Equal(t, 12, stats.Chunks)
	assert.False(t, stats.Reused)
	assert.Equal(t, 3, emb.calls) // 12 chunks in batches of 5

	hits, err := p.Retrieve(context.Background(), "Eclairs Canada")
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Contains(t, hits[0].Content, "Eclairs")

	answer, err := p.Answer(context.Background(), "Eclairs Canada")
	require.NoError(t, err)
	assert.Contains(t, answer, "Eclairs")
	assert.False(t, strings.HasPrefix(answer, "Answer:"))
	assert.Equal(t, SystemPrompt, gen.lastSystem)
	assert.Contains(t, gen.lastPrompt, "QUESTION: Eclairs Canada")
}

func TestPipelineReusesStore(t *testing.T) {
	ds := loadSales(t)
	store := openStore(t)
	emb := &hashEmbedder{}
	p := NewPipeline(store, emb, &echoGenerator{})

	_, err := p.Index(context.Background(), ds, false)
	require.NoError(t, err)
	calls := emb.calls

	stats, err := p.Index(context.Background(), ds, false)
	require.NoError(t, err)
	assert.True(t, stats.Reused)
	assert.Equal(t, 12, stats.Chunks)
	assert.Equal(t, calls, emb.calls)

	stats, err = p.Index(context.Background(), ds, true)
	require.NoError(t, err)
	assert.False(t, stats.Reused)
	n, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, 12, n)
}

func TestPipelineConcurrentIndex(t *testing.T) {
	sales := loadSales(t)
	single, err := dataset.Load([]byte("Sales Person,Country,Product,Date,Amount,Boxes Shipped\n"+
		"Jehu Rudeforth,UK,Mint Chip Choco,04-Jan-22,\"$5,320 \",180\n"),
		dataset.WithVariant(dataset.VariantSales))
	require.NoError(t, err)

	store := openStore(t)
	p := NewPipeline(store, &hashEmbedder{}, &echoGenerator{}, WithBatchSize(2))
	_, err = p.Index(context.Background(), sales, false)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, ds := range []*dataset.Dataset{sales, single} {
		wg.Add(1)
		go func(i int, ds *dataset.Dataset) {
			defer wg.Done()
			_, errs[i] = p.Index(context.Background(), ds, true)
		}(i, ds)
	}
	wg.Wait()
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	n, err := store.Count()
	require.NoError(t, err)
	assert.Contains(t, []int{1, 12}, n, "store must hold exactly one dataset")
}

func TestPipelineErrors(t *testing.T) {
	t.Run("nil dataset", func(t *testing.T) {
		p := NewPipeline(openStore(t), &hashEmbedder{}, &echoGenerator{})
		_, err := p.Index(context.Background(), nil, false)
		assert.Error(t, err)
	})

	t.Run("empty store", func(t *testing.T) {
		p := NewPipeline(openStore(t), &hashEmbedder{}, &echoGenerator{})
		_, err := p.Answer(context.Background(), "anything")
		assert.ErrorIs(t, err, ErrEmptyStore)
	})

	t.Run("embedder failure", func(t *testing.T) {
		boom := errors.New("quota exceeded")
		p := NewPipeline(openStore(t), &hashEmbedder{fail: boom}, &echoGenerator{})
		_, err := p.Index(context.Background(), loadSales(t), false)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("generator declines", func(t *testing.T) {
		p := NewPipeline(openStore(t), &hashEmbedder{}, &echoGenerator{reply: "I don't know."})
		_, err := p.Index(context.Background(), loadSales(t), false)
		require.NoError(t, err)
		_, err = p.Answer(context.Background(), "weather in Paris")
		assert.ErrorIs(t, err, ErrNoAnswer)
	})

	t.Run("generator failure", func(t *testing.T) {
		boom := errors.New("unavailable")
		p := NewPipeline(openStore(t), &hashEmbedder{}, &echoGenerator{fail: boom})
		_, err := p.Index(context.Background(), loadSales(t), false)
		require.NoError(t, err)
		_, err = p.Answer(context.Background(), "Eclairs")
		assert.ErrorIs(t, err, boom)
	})
}

func TestNewProvider(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{Provider: "bedrock", APIKey: "k"})
	assert.Error(t, err)

	_, err = NewProvider(context.Background(), Config{Provider: ProviderGemini})
	assert.ErrorIs(t, err, ErrNoAPIKey)

	_, err = NewProvider(context.Background(), Config{Provider: ProviderOpenAI})
	assert.ErrorIs(t, err, ErrNoAPIKey)

	p, err := NewProvider(context.Background(), Config{Provider: ProviderOpenAI, APIKey: "sk-test"})
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, p.Name())
}
