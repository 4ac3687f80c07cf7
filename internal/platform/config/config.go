// Package config loads application configuration from environment variables.
// All variables use the PAPERGEN_ prefix.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Cache        CacheConfig
	AI           AIConfig
	Embedding    EmbeddingConfig
	Generation   GenerationConfig
	Index        IndexConfig
	Allocation   AllocationConfig
	Log          LogConfig
	SyllabusPath string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int
	Host string
}

// DatabaseConfig holds PostgreSQL connection settings. An empty URL keeps
// generated papers in memory.
type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

// CacheConfig holds embedding cache settings. URL (Redis/Dragonfly) wins over
// BoltPath; both empty disables caching.
type CacheConfig struct {
	URL      string
	BoltPath string
	TTL      time.Duration
}

// AIConfig holds configuration for all AI providers.
type AIConfig struct {
	OpenAI     OpenAIConfig
	Together   TogetherConfig
	OpenRouter OpenRouterConfig
	DeepSeek   DeepSeekConfig
	Google     GoogleConfig
	Ollama     OllamaConfig
}

// OpenAIConfig holds OpenAI provider settings. BaseURL points the provider
// at any OpenAI-compatible endpoint; empty means api.openai.com.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
}

// TogetherConfig holds Together provider settings (OpenAI-compatible).
type TogetherConfig struct {
	APIKey string
}

// OpenRouterConfig holds OpenRouter provider settings.
type OpenRouterConfig struct {
	APIKey string
}

// DeepSeekConfig holds DeepSeek provider settings (OpenAI-compatible).
type DeepSeekConfig struct {
	APIKey string
}

// GoogleConfig holds Google Gemini provider settings.
type GoogleConfig struct {
	APIKey string
}

// OllamaConfig holds self-hosted Ollama settings.
type OllamaConfig struct {
	Enabled bool
	URL     string
}

// EmbeddingConfig selects the embedding provider. Model is tried first, then
// FallbackModels in order.
type EmbeddingConfig struct {
	Provider       string
	Model          string
	FallbackModels []string
}

// GenerationConfig holds question generation settings.
type GenerationConfig struct {
	Model       string
	Temperature float64
	MaxTokens   int
	JSONMode    bool
	Attempts    int
	BackoffMin  time.Duration
	BackoffMax  time.Duration
	CallTimeout time.Duration
	// MinInterval spaces successive generation calls process-wide.
	// Zero disables pacing.
	MinInterval time.Duration
}

// IndexConfig holds vector index settings.
type IndexConfig struct {
	CorpusPath       string
	IndexPath        string
	BuildConcurrency int
	ProgressEvery    int
}

// AllocationConfig holds question allocation settings.
type AllocationConfig struct {
	WeakBoost float64
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

var embeddingProviders = map[string]bool{
	"openai":     true,
	"openrouter": true,
	"together":   true,
	"google":     true,
	"ollama":     true,
}

// Load reads configuration from environment variables with PAPERGEN_ prefix.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("PAPERGEN_SERVER_PORT", 8080),
			Host: envStr("PAPERGEN_SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			URL:      envStr("PAPERGEN_DATABASE_URL", ""),
			MaxConns: envInt("PAPERGEN_DATABASE_MAX_CONNS", 10),
			MinConns: envInt("PAPERGEN_DATABASE_MIN_CONNS", 1),
		},
		Cache: CacheConfig{
			URL:      envStr("PAPERGEN_CACHE_URL", ""),
			BoltPath: envStr("PAPERGEN_CACHE_BOLT_PATH", ""),
			TTL:      envDuration("PAPERGEN_CACHE_TTL", 30*24*time.Hour),
		},
		AI: AIConfig{
			OpenAI: OpenAIConfig{
				APIKey:  envStr("PAPERGEN_AI_OPENAI_API_KEY", ""),
				BaseURL: envStr("PAPERGEN_AI_OPENAI_BASE_URL", ""),
			},
			Together: TogetherConfig{
				APIKey: envStr("PAPERGEN_AI_TOGETHER_API_KEY", ""),
			},
			OpenRouter: OpenRouterConfig{
				APIKey: envStr("PAPERGEN_AI_OPENROUTER_API_KEY", ""),
			},
			DeepSeek: DeepSeekConfig{
				APIKey: envStr("PAPERGEN_AI_DEEPSEEK_API_KEY", ""),
			},
			Google: GoogleConfig{
				APIKey: envStr("PAPERGEN_AI_GOOGLE_API_KEY", ""),
			},
			Ollama: OllamaConfig{
				Enabled: envBool("PAPERGEN_AI_OLLAMA_ENABLED", false),
				URL:     envStr("PAPERGEN_AI_OLLAMA_URL", "http://localhost:11434"),
			},
		},
		Embedding: EmbeddingConfig{
			Provider: envStr("PAPERGEN_EMBEDDING_PROVIDER", "openrouter"),
			Model:    envStr("PAPERGEN_EMBEDDING_MODEL", "openai/text-embedding-ada-002"),
			FallbackModels: envList("PAPERGEN_EMBEDDING_FALLBACK_MODELS",
				[]string{"openai/text-embedding-3-small", "text-embedding-ada-002"}),
		},
		Generation: GenerationConfig{
			Model:       envStr("PAPERGEN_GENERATION_MODEL", ""),
			Temperature: envFloat("PAPERGEN_GENERATION_TEMPERATURE", 0.7),
			MaxTokens:   envInt("PAPERGEN_GENERATION_MAX_TOKENS", 1000),
			JSONMode:    envBool("PAPERGEN_GENERATION_JSON_MODE", true),
			Attempts:    envInt("PAPERGEN_GENERATION_ATTEMPTS", 5),
			BackoffMin:  envDuration("PAPERGEN_GENERATION_BACKOFF_MIN", time.Second),
			BackoffMax:  envDuration("PAPERGEN_GENERATION_BACKOFF_MAX", 60*time.Second),
			CallTimeout: envDuration("PAPERGEN_GENERATION_CALL_TIMEOUT", 120*time.Second),
			MinInterval: envDuration("PAPERGEN_GENERATION_MIN_INTERVAL", 0),
		},
		Index: IndexConfig{
			CorpusPath:       envStr("PAPERGEN_INDEX_CORPUS_PATH", "./data/jee_questions.csv"),
			IndexPath:        envStr("PAPERGEN_INDEX_PATH", "./data/questions.index"),
			BuildConcurrency: envInt("PAPERGEN_INDEX_BUILD_CONCURRENCY", 4),
			ProgressEvery:    envInt("PAPERGEN_INDEX_PROGRESS_EVERY", 50),
		},
		Allocation: AllocationConfig{
			WeakBoost: envFloat("PAPERGEN_ALLOCATION_WEAK_BOOST", 2.0),
		},
		Log: LogConfig{
			Level:  envStr("PAPERGEN_LOG_LEVEL", "info"),
			Format: envStr("PAPERGEN_LOG_FORMAT", "json"),
		},
		SyllabusPath: envStr("PAPERGEN_SYLLABUS_PATH", "./syllabus.yaml"),
	}

	return cfg, nil
}

// Validate checks that required configuration is present and consistent.
func (c *Config) Validate() error {
	if !c.HasAIProvider() {
		return fmt.Errorf("at least one AI provider must be configured")
	}

	if !embeddingProviders[c.Embedding.Provider] {
		return fmt.Errorf("PAPERGEN_EMBEDDING_PROVIDER must be one of openai, openrouter, together, google, ollama, got %q", c.Embedding.Provider)
	}

	if c.Allocation.WeakBoost < 1 {
		return fmt.Errorf("PAPERGEN_ALLOCATION_WEAK_BOOST must be >= 1, got %v", c.Allocation.WeakBoost)
	}

	if c.Generation.Attempts < 1 {
		return fmt.Errorf("PAPERGEN_GENERATION_ATTEMPTS must be >= 1, got %d", c.Generation.Attempts)
	}

	if c.Generation.BackoffMin > c.Generation.BackoffMax {
		return fmt.Errorf("PAPERGEN_GENERATION_BACKOFF_MIN (%s) exceeds PAPERGEN_GENERATION_BACKOFF_MAX (%s)",
			c.Generation.BackoffMin, c.Generation.BackoffMax)
	}

	if c.Index.BuildConcurrency < 1 {
		return fmt.Errorf("PAPERGEN_INDEX_BUILD_CONCURRENCY must be >= 1, got %d", c.Index.BuildConcurrency)
	}

	return nil
}

// HasAIProvider returns true if at least one generative AI provider is configured.
func (c *Config) HasAIProvider() bool {
	return c.AI.OpenAI.APIKey != "" ||
		c.AI.Together.APIKey != "" ||
		c.AI.OpenRouter.APIKey != "" ||
		c.AI.DeepSeek.APIKey != "" ||
		c.AI.Google.APIKey != "" ||
		c.AI.Ollama.Enabled
}

// EmbeddingModels returns the primary embedding model followed by its fallbacks,
// without duplicates.
func (c *Config) EmbeddingModels() []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range append([]string{c.Embedding.Model}, c.Embedding.FallbackModels...) {
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		return strings.EqualFold(v, "true") || v == "1"
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
