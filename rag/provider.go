package rag

import (
	"context"
	"fmt"
)

// NewProvider builds the provider named in cfg.Provider.
func NewProvider(ctx context.Context, cfg Config) (Provider, error) {
	switch cfg.Provider {
	case ProviderGemini, "":
		return NewGemini(ctx, cfg)
	case ProviderOpenAI:
		return NewOpenAI(cfg)
	default:
		return nil, fmt.Errorf("unknown provider %q (want gemini or openai)", cfg.Provider)
	}
}
