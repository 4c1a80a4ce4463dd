package rag

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/timshannon/badgerhold/v4"
)

// ============================================================================
// VECTOR STORE — Chunks and their embeddings persisted in badger
// ============================================================================
// Search is brute-force cosine similarity. A sales CSV holds a few thousand
// rows, so every chunk is scored on each query.
// ============================================================================

// Chunk is one embedded piece of a row document.
type Chunk struct {
	ID        string `badgerhold:"key"`
	Content   string
	Embedding []float32
	Row       int
	Source    string `badgerholdIndex:"Source"`
	CreatedAt time.Time
}

// ScoredChunk is a search hit.
type ScoredChunk struct {
	Chunk
	Score float64
}

// Store is a persistent chunk store.
type Store struct {
	db     *badgerhold.Store
	dir    string
	logger zerolog.Logger
}

const writeBatchSize = 256

// OpenStore opens (or creates) the store in dir.
func OpenStore(dir string, logger zerolog.Logger) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("vector store directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create vector store directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = dir
	options.ValueDir = dir
	options.Logger = badgerLogger{logger: logger}

	db, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector store %s: %w", dir, err)
	}

	logger.Debug().Str("path", dir).Msg("Vector store opened")
	return &Store{db: db, dir: dir, logger: logger}, nil
}

// Dir returns the directory the store lives in.
func (s *Store) Dir() string { return s.dir }

// Count returns the number of stored chunks.
func (s *Store) Count() (int, error) {
	count, err := s.db.Count(&Chunk{}, nil)
	if err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return int(count), nil
}

// Add stores chunks, assigning IDs and timestamps where missing.
func (s *Store) Add(chunks []Chunk) error {
	now := time.Now()
	for start := 0; start < len(chunks); start += writeBatchSize {
		end := min(start+writeBatchSize, len(chunks))
		err := s.db.Badger().Update(func(tx *badger.Txn) error {
			for i := start; i < end; i++ {
				c := &chunks[i]
				if c.ID == "" {
					c.ID = uuid.NewString()
				}
				if c.CreatedAt.IsZero() {
					c.CreatedAt = now
				}
				if err := s.db.TxUpsert(tx, c.ID, *c); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("save chunks: %w", err)
		}
	}
	return nil
}

// All returns every stored chunk.
func (s *Store) All() ([]Chunk, error) {
	var chunks []Chunk
	if err := s.db.Find(&chunks, nil); err != nil {
		return nil, fmt.Errorf("load chunks: %w", err)
	}
	return chunks, nil
}

// Search returns the k chunks most similar to query, best first.
func (s *Store) Search(query []float32, k int) ([]ScoredChunk, error) {
	chunks, err := s.All()
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, ErrEmptyStore
	}

	scored := make([]ScoredChunk, 0, len(chunks))
	for _, c := range chunks {
		if len(c.Embedding) != len(query) {
			continue
		}
		scored = append(scored, ScoredChunk{Chunk: c, Score: CosineSimilarity(query, c.Embedding)})
	}
	if len(scored) == 0 {
		return nil, fmt.Errorf("no stored chunk has dimension %d (rebuild the index)", len(query))
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Row < scored[j].Row
	})
	if k > 0 && len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// Reset deletes every chunk.
func (s *Store) Reset() error {
	if err := s.db.DeleteMatching(&Chunk{}, nil); err != nil {
		return fmt.Errorf("reset vector store: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// CosineSimilarity returns the cosine of the angle between a and b,
// or 0 when either is a zero vector or the lengths differ.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// badgerLogger routes badger's internal logging into zerolog.
type badgerLogger struct {
	logger zerolog.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error().Msg(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn().Msg(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug().Msg(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Trace().Msg(strings.TrimSpace(fmt.Sprintf(format, args...)))
}
