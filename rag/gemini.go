package rag

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// ============================================================================
// GEMINI PROVIDER — Embeddings and generation through the genai SDK
// ============================================================================

// GeminiProvider implements Provider using the Gemini API.
type GeminiProvider struct {
	config Config
	client *genai.Client
}

// NewGemini creates a Gemini provider. Empty model names get the defaults.
func NewGemini(ctx context.Context, cfg Config) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: %w (set GEMINI_API_KEY)", ErrNoAPIKey)
	}
	defaults := DefaultGeminiConfig(cfg.APIKey)
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = defaults.EmbeddingModel
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = defaults.ChatModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}

	return &GeminiProvider{config: cfg, client: client}, nil
}

// Name returns the provider name.
func (g *GeminiProvider) Name() string { return ProviderGemini }

// Embed returns one vector per text.
func (g *GeminiProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, 0, len(texts))
	for _, t := range texts {
		contents = append(contents, genai.NewContentFromText(t, genai.RoleUser))
	}

	embedConfig := &genai.EmbedContentConfig{}
	if g.config.Dimensions > 0 {
		dim := int32(g.config.Dimensions)
		embedConfig.OutputDimensionality = &dim
	}

	result, err := g.client.Models.EmbedContent(ctx, g.config.EmbeddingModel, contents, embedConfig)
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	if result == nil || len(result.Embeddings) != len(texts) {
		got := 0
		if result != nil {
			got = len(result.Embeddings)
		}
		return nil, fmt.Errorf("gemini embed: got %d embeddings for %d texts", got, len(texts))
	}

	vectors := make([][]float32, len(texts))
	for i, e := range result.Embeddings {
		if e == nil || len(e.Values) == 0 {
			return nil, fmt.Errorf("gemini embed: empty embedding at %d", i)
		}
		vectors[i] = e.Values
	}
	return vectors, nil
}

// Generate sends the prompt with system as the system instruction.
func (g *GeminiProvider) Generate(ctx context.Context, system, prompt string) (string, error) {
	genConfig := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(g.config.Temperature)),
	}
	if system != "" {
		genConfig.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	resp, err := g.client.Models.GenerateContent(ctx, g.config.ChatModel, contents, genConfig)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("gemini returned empty response")
	}
	return text, nil
}
