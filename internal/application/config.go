// Package application wires the question pipeline together: configuration,
// the corrective retrieval orchestrator and corpus ingestion.
package application

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/iam-archie/school-chatbot/infrastructure/ingest"
	"github.com/iam-archie/school-chatbot/infrastructure/llm"
	"github.com/iam-archie/school-chatbot/infrastructure/retrieval"
	"github.com/iam-archie/school-chatbot/infrastructure/units"
	"github.com/iam-archie/school-chatbot/internal/domain"
	"github.com/iam-archie/school-chatbot/pkg/logger"
)

// Environment variables that override file configuration.
const (
	EnvOpenAIKey   = "OPENAI_API_KEY"
	EnvRedisURL    = "SCHOOLBOT_REDIS_URL"
	EnvLogLevel    = "SCHOOLBOT_LOG_LEVEL"
	EnvLLMProvider = "SCHOOLBOT_LLM_PROVIDER"
	EnvEmbedder    = "SCHOOLBOT_EMBEDDER"
	EnvServerAddr  = "SCHOOLBOT_ADDR"
)

// Config is the complete application configuration. It is decoded from
// YAML, overlaid with environment variables and validated before use.
type Config struct {
	// LLM configures the generation service and its resilience chain.
	LLM LLMConfig `yaml:"llm" validate:"required"`
	// Embedder selects how text is turned into vectors.
	Embedder retrieval.EmbedderSettings `yaml:"embedder"`
	// Store selects where embedded chunks live.
	Store retrieval.StoreSettings `yaml:"store"`
	// Retrieval holds the k values and keyword suffix of the ladder.
	Retrieval retrieval.Config `yaml:"retrieval"`
	// Evaluator configures context grading.
	Evaluator units.EvaluatorConfig `yaml:"evaluator"`
	// Ingest configures chunking and batch embedding.
	Ingest ingest.Options `yaml:"ingest"`
	// Server configures the HTTP API.
	Server ServerConfig `yaml:"server"`
	// Log configures structured logging.
	Log LogConfig `yaml:"log"`
	// SystemPrompt overrides the study-assistant persona.
	SystemPrompt string `yaml:"system_prompt"`
}

// LLMConfig configures the generation service.
type LLMConfig struct {
	Provider    string  `yaml:"provider" validate:"required,oneof=openai anthropic google"`
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url" validate:"omitempty,url"`
	APIKey      string  `yaml:"-"`
	Temperature float64 `yaml:"temperature" validate:"min=0,max=2"`
	MaxTokens   int     `yaml:"max_tokens" validate:"min=1,max=8192"`

	// Timeout bounds each generation call, retries included.
	Timeout        time.Duration `yaml:"timeout" validate:"min=0"`
	MaxRetries     int           `yaml:"max_retries" validate:"min=0,max=10"`
	RetryBaseDelay time.Duration `yaml:"retry_base_delay"`
	RetryMaxDelay  time.Duration `yaml:"retry_max_delay"`

	RateLimit float64 `yaml:"rate_limit" validate:"min=0"`
	Burst     int     `yaml:"burst" validate:"min=0"`

	BreakerFailures int           `yaml:"breaker_failures" validate:"min=0"`
	BreakerCooldown time.Duration `yaml:"breaker_cooldown"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr           string        `yaml:"addr" validate:"required"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes" validate:"min=1"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level     string `yaml:"level" validate:"oneof=debug info warn error"`
	JSON      bool   `yaml:"json"`
	AddSource bool   `yaml:"add_source"`
}

// DefaultConfig returns the settings used when no file is given: OpenAI
// gpt-4o-mini at temperature 0.3, text-embedding-3-small in memory,
// 500/100 character chunks and k values 4/6/8.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:        "openai",
			Model:           llm.OpenAIDefaultModel,
			Temperature:     units.DefaultTemperature,
			MaxTokens:       units.DefaultMaxTokens,
			Timeout:         30 * time.Second,
			MaxRetries:      2,
			RetryBaseDelay:  500 * time.Millisecond,
			RetryMaxDelay:   5 * time.Second,
			RateLimit:       5,
			Burst:           5,
			BreakerFailures: 5,
			BreakerCooldown: 30 * time.Second,
		},
		Embedder: retrieval.EmbedderSettings{
			Provider:  retrieval.EmbedderOpenAI,
			Model:     retrieval.DefaultEmbeddingModel,
			BatchSize: 64,
			CacheSize: 256,
			Timeout:   30 * time.Second,
		},
		Store: retrieval.StoreSettings{
			Backend: retrieval.StoreMemory,
			Prefix:  retrieval.DefaultRedisPrefix,
		},
		Retrieval: retrieval.DefaultConfig(),
		Evaluator: units.DefaultEvaluatorConfig(),
		Ingest:    ingest.DefaultOptions(),
		Server: ServerConfig{
			Addr:           ":8080",
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   60 * time.Second,
			MaxUploadBytes: 32 << 20,
		},
		Log: LogConfig{Level: string(logger.InfoLevel)},
	}
}

// LoadConfig reads the YAML file at path over the defaults, applies
// environment overrides and validates the result. An empty path skips the
// file.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open config: %w", err)
		}
		defer f.Close()
		if err := cfg.Decode(f); err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Decode overlays YAML from r onto cfg. Unknown keys are rejected.
func (c *Config) Decode(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil {
		return fmt.Errorf("YAML decode failed: %w", err)
	}
	return nil
}

// ApplyEnv overlays secrets and addresses from the environment. lookup is
// usually os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get(EnvLLMProvider); ok {
		c.LLM.Provider = strings.ToLower(v)
	}
	if c.LLM.APIKey == "" {
		if v, ok := get(llm.APIKeyEnv(c.LLM.Provider)); ok {
			c.LLM.APIKey = v
		}
	}
	if v, ok := get(EnvEmbedder); ok {
		c.Embedder.Provider = strings.ToLower(v)
	}
	if v, ok := get(EnvOpenAIKey); ok && c.Embedder.APIKey == "" {
		c.Embedder.APIKey = v
	}
	if v, ok := get(EnvRedisURL); ok {
		c.Store.Backend = retrieval.StoreRedis
		c.Store.RedisURL = v
	}
	if v, ok := get(EnvLogLevel); ok {
		c.Log.Level = strings.ToLower(v)
	}
	if v, ok := get(EnvServerAddr); ok {
		c.Server.Addr = v
	}
}

var configValidator = validator.New()

// Validate checks every section. Failures are reported together as a
// domain.ValidationError, which matches domain.ErrInvalidConfiguration.
func (c *Config) Validate() error {
	err := configValidator.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	verr := domain.NewValidationError("config")
	for _, fe := range fieldErrs {
		verr.AddError(describeFieldError(fe))
	}
	return verr
}

func describeFieldError(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	if fe.Param() != "" {
		return fmt.Sprintf("%s failed %s=%s (got %v)", field, fe.Tag(), fe.Param(), fe.Value())
	}
	return fmt.Sprintf("%s failed %s", field, fe.Tag())
}

// LLMSettings converts the section into llm.Settings.
func (c LLMConfig) LLMSettings() llm.Settings {
	return llm.Settings{
		Provider:        c.Provider,
		APIKey:          c.APIKey,
		Model:           c.Model,
		BaseURL:         c.BaseURL,
		Temperature:     c.Temperature,
		Timeout:         c.Timeout,
		MaxRetries:      c.MaxRetries,
		RetryBaseDelay:  c.RetryBaseDelay,
		RetryMaxDelay:   c.RetryMaxDelay,
		RateLimit:       c.RateLimit,
		Burst:           c.Burst,
		BreakerFailures: c.BreakerFailures,
		BreakerCooldown: c.BreakerCooldown,
	}
}

// CompletionConfig returns the sampling parameters for the pipeline units.
func (c LLMConfig) CompletionConfig() units.CompletionConfig {
	return units.CompletionConfig{Temperature: c.Temperature, MaxTokens: c.MaxTokens}
}

// LoggerConfig converts the section into a logger configuration.
func (c LogConfig) LoggerConfig() *logger.Config {
	cfg := logger.DefaultConfig()
	cfg.Level = logger.LogLevel(c.Level)
	cfg.JSON = c.JSON
	cfg.AddSource = c.AddSource
	return cfg
}
