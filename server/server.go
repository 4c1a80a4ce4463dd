package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/spektr-org/salesdash/dataset"
	"github.com/spektr-org/salesdash/rag"
	"github.com/spektr-org/salesdash/resolver"
)

// ============================================================================
// SERVER — JSON API over the active dataset
// ============================================================================
// POST /api/upload     replace the active dataset (multipart "file" or raw CSV)
// GET  /api/dashboard  metrics, charts and preview for ?year=&country=
// POST /api/ask        {"question": "..."} → {"answer": "...", "source": "..."}
// GET  /healthz
//
// The dataset is immutable once loaded. An upload builds a new one and swaps
// the pointer under the write lock; readers take a snapshot under RLock.
// ============================================================================

// Indexer rebuilds the retrieval index for a new dataset. rag.Pipeline
// satisfies it.
type Indexer interface {
	Index(ctx context.Context, ds *dataset.Dataset, force bool) (rag.IndexStats, error)
}

// Config holds listener and request limits.
type Config struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxUploadBytes int64
}

// Server serves the API.
type Server struct {
	config    Config
	assistant *resolver.Assistant
	indexer   Indexer
	loadOpts  []dataset.Option
	logger    zerolog.Logger

	mu sync.RWMutex
	ds *dataset.Dataset

	// indexMu runs re-indexing one upload at a time; indexGen lets a run
	// skip itself once a newer upload has arrived.
	indexMu  sync.Mutex
	indexGen atomic.Uint64
	indexWG  sync.WaitGroup
}

// Option configures a Server.
type Option func(*Server)

// WithDataset sets the dataset served before any upload.
func WithDataset(ds *dataset.Dataset) Option {
	return func(s *Server) {
		s.ds = ds
	}
}

// WithIndexer rebuilds the retrieval index after each upload.
func WithIndexer(ix Indexer) Option {
	return func(s *Server) {
		s.indexer = ix
	}
}

// WithLoadOptions are applied to every uploaded dataset (variant, layout).
func WithLoadOptions(opts ...dataset.Option) Option {
	return func(s *Server) {
		s.loadOpts = opts
	}
}

// WithLogger sets the server logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New creates a Server. A nil assistant answers with the resolver only.
func New(cfg Config, assistant *resolver.Assistant, opts ...Option) *Server {
	if assistant == nil {
		assistant = resolver.NewAssistant(nil)
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 32 << 20
	}
	s := &Server{
		config:    cfg,
		assistant: assistant,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dataset returns the active dataset snapshot (nil before the first load).
func (s *Server) Dataset() *dataset.Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ds
}

// SetDataset swaps the active dataset.
func (s *Server) SetDataset(ds *dataset.Dataset) {
	s.mu.Lock()
	s.ds = ds
	s.mu.Unlock()
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/upload", s.handleUpload)
	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("POST /api/ask", s.handleAsk)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return s.logRequests(mux)
}

// Addr returns host:port.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.Addr(),
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info().Msg("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.indexWG.Wait()
	return nil
}

// WaitIndexing blocks until background re-indexing started by uploads is done.
func (s *Server) WaitIndexing() {
	s.indexWG.Wait()
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
