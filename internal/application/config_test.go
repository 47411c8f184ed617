package application

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iam-archie/school-chatbot/infrastructure/retrieval"
	"github.com/iam-archie/school-chatbot/internal/domain"
	"github.com/iam-archie/school-chatbot/pkg/logger"
)

func envMap(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

// TestDefaultConfig_Valid checks that the defaults pass validation.
func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, 0.3, cfg.LLM.Temperature)
	assert.Equal(t, 4, cfg.Retrieval.PrimaryK)
	assert.Equal(t, 6, cfg.Retrieval.SecondaryK)
	assert.Equal(t, 8, cfg.Retrieval.TertiaryK)
	assert.Equal(t, 500, cfg.Ingest.ChunkSize)
	assert.Equal(t, 100, cfg.Ingest.ChunkOverlap)
	assert.Equal(t, retrieval.StoreMemory, cfg.Store.Backend)
}

// TestConfig_Decode overlays YAML on the defaults.
func TestConfig_Decode(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
		verify  func(t *testing.T, cfg *Config)
	}{
		{
			name: "partial override",
			yaml: `
llm:
  provider: anthropic
  temperature: 0.1
  timeout: 45s
retrieval:
  tertiary_k: 10
embedder:
  provider: lexical
  dimension: 256
log:
  level: debug
system_prompt: "Answer in one sentence."
`,
			verify: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "anthropic", cfg.LLM.Provider)
				assert.Equal(t, 0.1, cfg.LLM.Temperature)
				assert.Equal(t, 45*time.Second, cfg.LLM.Timeout)
				assert.Equal(t, 10, cfg.Retrieval.TertiaryK)
				assert.Equal(t, 4, cfg.Retrieval.PrimaryK, "untouched keys keep defaults")
				assert.Equal(t, retrieval.EmbedderLexical, cfg.Embedder.Provider)
				assert.Equal(t, 256, cfg.Embedder.Dimension)
				assert.Equal(t, "debug", cfg.Log.Level)
				assert.Equal(t, "Answer in one sentence.", cfg.SystemPrompt)
			},
		},
		{
			name: "evaluator inline completion settings",
			yaml: `
evaluator:
  temperature: 0
  max_tokens: 256
  context_window: 1500
`,
			verify: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 256, cfg.Evaluator.MaxTokens)
				assert.Equal(t, 1500, cfg.Evaluator.ContextWindow)
			},
		},
		{
			name: "empty document",
			yaml: "   \n",
			verify: func(t *testing.T, cfg *Config) {
				assert.Equal(t, DefaultConfig(), cfg)
			},
		},
		{
			name:    "unknown key",
			yaml:    "llm:\n  provider: openai\n  colour: blue\n",
			wantErr: "YAML decode failed",
		},
		{
			name:    "malformed",
			yaml:    "llm: [provider",
			wantErr: "YAML decode failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			err := cfg.Decode(strings.NewReader(tt.yaml))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.verify(t, cfg)
		})
	}
}

// TestConfig_ApplyEnv reads secrets and overrides from the environment.
func TestConfig_ApplyEnv(t *testing.T) {
	t.Run("openai key feeds llm and embedder", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.ApplyEnv(envMap(map[string]string{EnvOpenAIKey: " sk-test "}))
		assert.Equal(t, "sk-test", cfg.LLM.APIKey)
		assert.Equal(t, "sk-test", cfg.Embedder.APIKey)
	})

	t.Run("provider switch reads its own key", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.ApplyEnv(envMap(map[string]string{
			EnvLLMProvider:      "Anthropic",
			"ANTHROPIC_API_KEY": "ak-test",
			EnvOpenAIKey:        "sk-test",
		}))
		assert.Equal(t, "anthropic", cfg.LLM.Provider)
		assert.Equal(t, "ak-test", cfg.LLM.APIKey)
		assert.Equal(t, "sk-test", cfg.Embedder.APIKey)
	})

	t.Run("redis url selects redis", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.ApplyEnv(envMap(map[string]string{
			EnvRedisURL:   "redis://localhost:6379/0",
			EnvLogLevel:   "WARN",
			EnvServerAddr: "127.0.0.1:9000",
			EnvEmbedder:   "lexical",
		}))
		assert.Equal(t, retrieval.StoreRedis, cfg.Store.Backend)
		assert.Equal(t, "redis://localhost:6379/0", cfg.Store.RedisURL)
		assert.Equal(t, "warn", cfg.Log.Level)
		assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
		assert.Equal(t, retrieval.EmbedderLexical, cfg.Embedder.Provider)
		require.NoError(t, cfg.Validate())
	})

	t.Run("blank values are ignored", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.ApplyEnv(envMap(map[string]string{EnvLogLevel: "  ", EnvLLMProvider: ""}))
		assert.Equal(t, DefaultConfig(), cfg)
	})
}

// TestConfig_Validate reports every broken field as a ValidationError.
func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *Config)
		field  string
	}{
		{"unknown provider", func(c *Config) { c.LLM.Provider = "mistral" }, "LLM.Provider"},
		{"temperature too high", func(c *Config) { c.LLM.Temperature = 2.5 }, "LLM.Temperature"},
		{"zero k", func(c *Config) { c.Retrieval.SecondaryK = 0 }, "Retrieval.SecondaryK"},
		{"overlap not below size", func(c *Config) { c.Ingest.ChunkOverlap = c.Ingest.ChunkSize }, "Ingest.ChunkOverlap"},
		{"redis without url", func(c *Config) { c.Store.Backend = retrieval.StoreRedis }, "Store.RedisURL"},
		{"bad log level", func(c *Config) { c.Log.Level = "verbose" }, "Log.Level"},
		{"unknown embedder", func(c *Config) { c.Embedder.Provider = "word2vec" }, "Embedder.Provider"},
		{"empty address", func(c *Config) { c.Server.Addr = "" }, "Server.Addr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)

			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			require.NotEmpty(t, verr.Errors)
			assert.Contains(t, strings.Join(verr.Errors, "\n"), tt.field)
		})
	}
}

// TestLoadConfig reads a file, applies the environment and validates.
func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schoolbot.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  addr: \":9090\"\n"), 0o600))

	t.Setenv(EnvLogLevel, "error")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "error", cfg.Log.Level)

	_, err = LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("retrieval:\n  primary_k: 0\n"), 0o600))
	_, err = LoadConfig(bad)
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
}

// TestConfig_Converters maps sections onto component settings.
func TestConfig_Converters(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLM.APIKey = "sk"

	settings := cfg.LLM.LLMSettings()
	assert.Equal(t, "openai", settings.Provider)
	assert.Equal(t, "sk", settings.APIKey)
	assert.Equal(t, cfg.LLM.Timeout, settings.Timeout)
	assert.Equal(t, cfg.LLM.BreakerFailures, settings.BreakerFailures)

	completion := cfg.LLM.CompletionConfig()
	assert.Equal(t, cfg.LLM.Temperature, completion.Temperature)
	assert.Equal(t, cfg.LLM.MaxTokens, completion.MaxTokens)

	cfg.Log = LogConfig{Level: "debug", JSON: true}
	logCfg := cfg.Log.LoggerConfig()
	assert.Equal(t, logger.DebugLevel, logCfg.Level)
	assert.True(t, logCfg.JSON)
}
