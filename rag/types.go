package rag

import (
	"context"
	"errors"
	"time"
)

// ============================================================================
// RAG — Retrieval fallback for questions the rules and resolver cannot answer
// ============================================================================
// The retrieval layer is the ONLY component that calls an external AI service.
// It embeds one short text document per dataset row, keeps the vectors in a
// local badger store and answers from the top-k most similar rows.
//
// Providers: Gemini (google.golang.org/genai), OpenAI (openai-go).
// ============================================================================

var (
	// ErrEmptyStore is returned when a search runs before anything was indexed.
	ErrEmptyStore = errors.New("vector store is empty")
	// ErrNoAPIKey is returned when a provider is built without credentials.
	ErrNoAPIKey = errors.New("api key is required")
)

// Embedder turns texts into vectors. The result has one vector per text, in
// input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator produces an answer from a system instruction and a user prompt.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// Provider is a backend that can both embed and generate.
type Provider interface {
	Embedder
	Generator
	Name() string
}

// Config holds provider configuration.
type Config struct {
	Provider       string        // "gemini" or "openai"
	APIKey         string        // consumer's key
	BaseURL        string        // OpenAI-compatible endpoint override (empty = default)
	EmbeddingModel string        // e.g. "gemini-embedding-001"
	ChatModel      string        // e.g. "gemini-2.0-flash"
	Dimensions     int           // output dimensionality, 0 = model default
	Temperature    float64       // 0 = deterministic
	Timeout        time.Duration // per call
}

// Provider names.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// DefaultGeminiConfig returns a Config with the Gemini defaults.
func DefaultGeminiConfig(apiKey string) Config {
	return Config{
		Provider:       ProviderGemini,
		APIKey:         apiKey,
		EmbeddingModel: "gemini-embedding-001",
		ChatModel:      "gemini-2.0-flash",
		Dimensions:     768,
		Timeout:        60 * time.Second,
	}
}

// DefaultOpenAIConfig returns a Config with the OpenAI defaults.
func DefaultOpenAIConfig(apiKey string) Config {
	return Config{
		Provider:       ProviderOpenAI,
		APIKey:         apiKey,
		EmbeddingModel: "text-embedding-3-small",
		ChatModel:      "gpt-4o-mini",
		Timeout:        60 * time.Second,
	}
}
