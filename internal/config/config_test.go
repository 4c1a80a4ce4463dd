package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/salesdash/dataset"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, dataset.VariantGeneric, cfg.Variant())
	assert.Equal(t, "./choco_vector_db", cfg.RAG.PersistDir)
	assert.Equal(t, 500, cfg.RAG.ChunkSize)
	assert.Equal(t, 50, cfg.RAG.ChunkOverlap)
	assert.Equal(t, 4, cfg.RAG.TopK)
	assert.Equal(t, "gemini-embedding-001", cfg.RAG.EmbeddingModel)
	assert.Equal(t, "gemini-2.0-flash", cfg.RAG.ChatModel)
	assert.Equal(t, "127.0.0.1:8080", cfg.Addr())
	assert.False(t, cfg.Resolver.LegacyExtremes)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "salesdash.yaml", `
data:
  file: "Chocolate Sales.csv"
  variant: sales
resolver:
  legacy_extremes: true
rag:
  provider: openai
  top_k: 6
  timeout: 15s
server:
  port: 9090
logging:
  level: debug
  pretty: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Chocolate Sales.csv", cfg.Data.File)
	assert.Equal(t, dataset.VariantSales, cfg.Variant())
	assert.True(t, cfg.Resolver.LegacyExtremes)
	assert.Equal(t, ProviderOpenAI, cfg.RAG.Provider)
	assert.Equal(t, "text-embedding-3-small", cfg.RAG.EmbeddingModel)
	assert.Equal(t, "gpt-4o-mini", cfg.RAG.ChatModel)
	assert.Equal(t, 6, cfg.RAG.TopK)
	assert.Equal(t, 15*time.Second, cfg.RAG.Timeout)
	assert.Equal(t, 500, cfg.RAG.ChunkSize, "unset keys keep defaults")
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Pretty)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SALESDASH_VARIANT", "sales")
	t.Setenv("SALESDASH_MEASURE", "Boxes Shipped")
	t.Setenv("SALESDASH_LEGACY_EXTREMES", "true")
	t.Setenv("SALESDASH_RAG_TIMEOUT", "5s")
	t.Setenv("SALESDASH_PORT", "7000")
	t.Setenv("GEMINI_API_KEY", "gm-key")
	t.Setenv("OPENAI_API_KEY", "oa-key")

	path := writeFile(t, "salesdash.yaml", "server:\n  port: 9090\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, dataset.VariantSales, cfg.Variant())
	assert.Equal(t, "Boxes Shipped", cfg.Data.Measure)
	assert.True(t, cfg.Resolver.LegacyExtremes)
	assert.Equal(t, 5*time.Second, cfg.RAG.Timeout)
	assert.Equal(t, 7000, cfg.Server.Port, "env wins over file")
	assert.Equal(t, "gm-key", cfg.APIKey())

	cfg.RAG.Provider = ProviderOpenAI
	assert.Equal(t, "oa-key", cfg.APIKey())
}

func TestLoadErrors(t *testing.T) {
	t.Run("bad yaml", func(t *testing.T) {
		_, err := Load(writeFile(t, "bad.yaml", "data: [unclosed"))
		assert.Error(t, err)
	})

	t.Run("bad env value", func(t *testing.T) {
		t.Setenv("SALESDASH_PORT", "eighty")
		_, err := Load("")
		assert.Error(t, err)
	})

	t.Run("validation", func(t *testing.T) {
		path := writeFile(t, "invalid.yaml", `
data:
  variant: finance
rag:
  provider: claude
  chunk_size: 100
  chunk_overlap: 100
  top_k: 0
server:
  port: 70000
`)
		_, err := Load(path)
		require.Error(t, err)
		for _, fragment := range []string{"data.variant", "rag.provider", "rag.chunk_overlap", "rag.top_k", "server.port"} {
			assert.Contains(t, err.Error(), fragment)
		}
	})
}

func TestLoadDotEnv(t *testing.T) {
	const key = "SALESDASH_DOTENV_TEST"
	t.Cleanup(func() { os.Unsetenv(key) })

	path := writeFile(t, ".env", key+"=from-file\n")
	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from-file", os.Getenv(key))

	t.Setenv(key, "from-env")
	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from-env", os.Getenv(key), "existing variables are not overridden")

	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "none.env")))
}

func TestLoadFromEnvTypes(t *testing.T) {
	type nested struct {
		Names []string `env:"SD_TEST_NAMES"`
		Ratio float64  `env:"SD_TEST_RATIO"`
	}
	var target struct {
		Inner nested
		Wait  time.Duration `env:"SD_TEST_WAIT"`
	}
	t.Setenv("SD_TEST_NAMES", "a, b ,c")
	t.Setenv("SD_TEST_RATIO", "0.25")
	t.Setenv("SD_TEST_WAIT", "2m")

	require.NoError(t, LoadFromEnv(&target))
	assert.Equal(t, []string{"a", "b", "c"}, target.Inner.Names)
	assert.Equal(t, 0.25, target.Inner.Ratio)
	assert.Equal(t, 2*time.Minute, target.Wait)
}
