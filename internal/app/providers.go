package app

import (
	"fmt"
	"log/slog"

	"github.com/sujalgawas/JEE-question-generator/internal/ai"
	"github.com/sujalgawas/JEE-question-generator/internal/platform/config"
)

// NewGenerationRouter registers every configured generative provider. The
// registration order is the fallback order.
func NewGenerationRouter(cfg *config.Config) *ai.Router {
	router := ai.NewRouter()

	if cfg.AI.Together.APIKey != "" {
		router.Register("together", ai.NewTogetherProvider(cfg.AI.Together.APIKey))
		slog.Info("AI provider registered", "provider", "together")
	}
	if cfg.AI.OpenRouter.APIKey != "" {
		router.Register("openrouter", ai.NewOpenRouterProvider(cfg.AI.OpenRouter.APIKey))
		slog.Info("AI provider registered", "provider", "openrouter")
	}
	if cfg.AI.OpenAI.APIKey != "" {
		router.Register("openai", ai.NewOpenAIProvider(cfg.AI.OpenAI.APIKey, openAIOptions(cfg)...))
		slog.Info("AI provider registered", "provider", "openai")
	}
	if cfg.AI.DeepSeek.APIKey != "" {
		router.Register("deepseek", ai.NewDeepSeekProvider(cfg.AI.DeepSeek.APIKey))
		slog.Info("AI provider registered", "provider", "deepseek")
	}
	if cfg.AI.Google.APIKey != "" {
		router.Register("google", ai.NewGoogleProvider(cfg.AI.Google.APIKey))
		slog.Info("AI provider registered", "provider", "google")
	}
	if cfg.AI.Ollama.Enabled {
		router.Register("ollama", ai.NewOllamaProvider(cfg.AI.Ollama.URL))
		slog.Info("AI provider registered", "provider", "ollama")
	}

	return router
}

// NewEmbeddingRouter registers one embedder per configured model of the
// selected embedding provider, primary model first. wrap, when non-nil, is
// applied to each embedder before registration under its provider/model name.
func NewEmbeddingRouter(cfg *config.Config, wrap func(name string, e ai.Embedder) ai.Embedder) (*ai.EmbeddingRouter, error) {
	router := ai.NewEmbeddingRouter()
	provider := cfg.Embedding.Provider

	for _, model := range cfg.EmbeddingModels() {
		var e ai.Embedder
		switch provider {
		case "openrouter":
			if cfg.AI.OpenRouter.APIKey == "" {
				return nil, fmt.Errorf("embedding provider openrouter needs PAPERGEN_AI_OPENROUTER_API_KEY")
			}
			e = ai.NewOpenRouterProvider(cfg.AI.OpenRouter.APIKey, ai.WithEmbeddingModel(model))
		case "openai":
			if cfg.AI.OpenAI.APIKey == "" {
				return nil, fmt.Errorf("embedding provider openai needs PAPERGEN_AI_OPENAI_API_KEY")
			}
			opts := append(openAIOptions(cfg), ai.WithEmbeddingModel(model))
			e = ai.NewOpenAIProvider(cfg.AI.OpenAI.APIKey, opts...)
		case "together":
			if cfg.AI.Together.APIKey == "" {
				return nil, fmt.Errorf("embedding provider together needs PAPERGEN_AI_TOGETHER_API_KEY")
			}
			e = ai.NewTogetherProvider(cfg.AI.Together.APIKey, ai.WithEmbeddingModel(model))
		case "google":
			if cfg.AI.Google.APIKey == "" {
				return nil, fmt.Errorf("embedding provider google needs PAPERGEN_AI_GOOGLE_API_KEY")
			}
			e = ai.NewGoogleProvider(cfg.AI.Google.APIKey, ai.WithGoogleEmbeddingModel(model))
		case "ollama":
			e = ai.NewOllamaProvider(cfg.AI.Ollama.URL, ai.WithOllamaEmbeddingModel(model))
		default:
			return nil, fmt.Errorf("unknown embedding provider %q", provider)
		}
		name := provider + "/" + model
		if wrap != nil {
			e = wrap(name, e)
		}
		router.Register(name, e)
	}

	if router.Len() == 0 {
		return nil, fmt.Errorf("no embedding model configured")
	}
	slog.Info("embedding models registered", "provider", provider, "models", cfg.EmbeddingModels())
	return router, nil
}

func openAIOptions(cfg *config.Config) []ai.OpenAIOption {
	if cfg.AI.OpenAI.BaseURL == "" {
		return nil
	}
	return []ai.OpenAIOption{ai.WithBaseURL(cfg.AI.OpenAI.BaseURL)}
}
