// Package config loads salesdash configuration: YAML file over defaults,
// then environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/spektr-org/salesdash/dataset"
)

// DefaultFile is the config file looked up when --config is not given.
const DefaultFile = "salesdash.yaml"

// Config is the complete salesdash configuration.
type Config struct {
	Data     DataConfig     `yaml:"data"`
	Resolver ResolverConfig `yaml:"resolver"`
	RAG      RAGConfig      `yaml:"rag"`
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DataConfig selects the dataset and the columns questions run against.
type DataConfig struct {
	File       string `yaml:"file" env:"SALESDASH_DATA_FILE"`
	Variant    string `yaml:"variant" env:"SALESDASH_VARIANT"`
	DateColumn string `yaml:"date_column" env:"SALESDASH_DATE_COLUMN"`
	DateLayout string `yaml:"date_layout" env:"SALESDASH_DATE_LAYOUT"`
	Measure    string `yaml:"measure" env:"SALESDASH_MEASURE"`
}

// ResolverConfig tunes the time-scoped resolver.
type ResolverConfig struct {
	// LegacyExtremes makes max/min report the period sum (legacy dashboard behaviour).
	LegacyExtremes bool `yaml:"legacy_extremes" env:"SALESDASH_LEGACY_EXTREMES"`
}

// RAGConfig configures the retrieval fallback.
type RAGConfig struct {
	Enabled             bool          `yaml:"enabled" env:"SALESDASH_RAG_ENABLED"`
	Provider            string        `yaml:"provider" env:"SALESDASH_RAG_PROVIDER"` // gemini | openai
	GeminiAPIKey        string        `yaml:"gemini_api_key" env:"GEMINI_API_KEY"`
	OpenAIAPIKey        string        `yaml:"openai_api_key" env:"OPENAI_API_KEY"`
	OpenAIBaseURL       string        `yaml:"openai_base_url" env:"SALESDASH_OPENAI_BASE_URL"`
	EmbeddingModel      string        `yaml:"embedding_model" env:"SALESDASH_EMBEDDING_MODEL"`
	ChatModel           string        `yaml:"chat_model" env:"SALESDASH_CHAT_MODEL"`
	EmbeddingDimensions int           `yaml:"embedding_dimensions" env:"SALESDASH_EMBEDDING_DIMENSIONS"`
	PersistDir          string        `yaml:"persist_dir" env:"SALESDASH_PERSIST_DIR"`
	ChunkSize           int           `yaml:"chunk_size"`
	ChunkOverlap        int           `yaml:"chunk_overlap"`
	TopK                int           `yaml:"top_k" env:"SALESDASH_TOP_K"`
	Temperature         float64       `yaml:"temperature"`
	Timeout             time.Duration `yaml:"timeout" env:"SALESDASH_RAG_TIMEOUT"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host           string        `yaml:"host" env:"SALESDASH_HOST"`
	Port           int           `yaml:"port" env:"SALESDASH_PORT"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes" env:"SALESDASH_MAX_UPLOAD_BYTES"`
}

// LoggingConfig configures zerolog output.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"SALESDASH_LOG_LEVEL"`
	Pretty bool   `yaml:"pretty" env:"SALESDASH_LOG_PRETTY"`
}

// Provider names.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Data: DataConfig{
			Variant: string(dataset.VariantGeneric),
		},
		RAG: RAGConfig{
			Enabled:             true,
			Provider:            ProviderGemini,
			PersistDir:          "./choco_vector_db",
			EmbeddingDimensions: 768,
			ChunkSize:           500,
			ChunkOverlap:        50,
			TopK:                4,
			Timeout:             60 * time.Second,
		},
		Server: ServerConfig{
			Host:           "127.0.0.1",
			Port:           8080,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   120 * time.Second,
			MaxUploadBytes: 32 << 20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Pretty: true,
		},
	}
}

// Load reads path over the defaults (a missing file keeps the defaults),
// loads .env from the working directory, applies environment overrides and
// validates the result.
func Load(path string) (*Config, error) {
	if err := LoadDotEnv(".env"); err != nil {
		return nil, err
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// defaults + env
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := LoadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("apply environment: %w", err)
	}
	cfg.applyModelDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from path into the environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// applyModelDefaults fills provider-specific model names left empty.
func (c *Config) applyModelDefaults() {
	switch c.RAG.Provider {
	case ProviderOpenAI:
		if c.RAG.EmbeddingModel == "" {
			c.RAG.EmbeddingModel = "text-embedding-3-small"
		}
		if c.RAG.ChatModel == "" {
			c.RAG.ChatModel = "gpt-4o-mini"
		}
	default:
		if c.RAG.EmbeddingModel == "" {
			c.RAG.EmbeddingModel = "gemini-embedding-001"
		}
		if c.RAG.ChatModel == "" {
			c.RAG.ChatModel = "gemini-2.0-flash"
		}
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if _, err := dataset.ParseVariant(c.Data.Variant); err != nil {
		errs = append(errs, fmt.Errorf("data.variant: %w", err))
	}

	switch c.RAG.Provider {
	case ProviderGemini, ProviderOpenAI:
	default:
		errs = append(errs, fmt.Errorf("rag.provider: unknown provider %q (want gemini or openai)", c.RAG.Provider))
	}
	if c.RAG.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("rag.chunk_size must be positive"))
	}
	if c.RAG.ChunkOverlap < 0 || c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		errs = append(errs, fmt.Errorf("rag.chunk_overlap must be in [0, chunk_size)"))
	}
	if c.RAG.TopK <= 0 {
		errs = append(errs, fmt.Errorf("rag.top_k must be positive"))
	}
	if c.RAG.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("rag.timeout must be positive"))
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Server.MaxUploadBytes <= 0 {
		errs = append(errs, fmt.Errorf("server.max_upload_bytes must be positive"))
	}

	return errors.Join(errs...)
}

// Variant returns the configured dataset variant.
func (c *Config) Variant() dataset.Variant {
	v, _ := dataset.ParseVariant(c.Data.Variant)
	return v
}

// APIKey returns the key for the configured provider.
func (c *Config) APIKey() string {
	if c.RAG.Provider == ProviderOpenAI {
		return c.RAG.OpenAIAPIKey
	}
	return c.RAG.GeminiAPIKey
}

// Addr returns host:port for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
