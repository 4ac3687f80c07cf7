package ai

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Router tries registered providers in registration order.
type Router struct {
	providers map[string]Provider
	fallback  []string // ordered fallback chain
	mu        sync.RWMutex
}

// NewRouter creates a new AI router.
func NewRouter() *Router {
	return &Router{
		providers: make(map[string]Provider),
	}
}

// Register adds a provider to the router.
func (r *Router) Register(name string, provider Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.providers[name]; !exists {
		r.fallback = append(r.fallback, name)
	}
	r.providers[name] = provider
}

// Complete routes a request to the first provider that succeeds. The last
// provider error is wrapped so callers can still classify it.
func (r *Router) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.fallback) == 0 {
		return CompletionResponse{}, ErrNoProviders
	}

	var lastErr error
	for _, name := range r.fallback {
		provider := r.providers[name]

		resp, err := provider.Complete(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				return CompletionResponse{}, ctx.Err()
			}
			slog.Warn("AI provider failed, trying next",
				"provider", name,
				"error", err,
			)
			lastErr = err
			continue
		}

		slog.Debug("AI request completed",
			"provider", name,
			"model", resp.Model,
			"input_tokens", resp.InputTokens,
			"output_tokens", resp.OutputTokens,
		)
		return resp, nil
	}

	return CompletionResponse{}, fmt.Errorf("all AI providers failed: %w", lastErr)
}

// HasProvider returns true if at least one provider is registered.
func (r *Router) HasProvider() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers) > 0
}

// HealthCheck succeeds when any registered provider is healthy.
func (r *Router) HealthCheck(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.fallback) == 0 {
		return ErrNoProviders
	}
	var lastErr error
	for _, name := range r.fallback {
		if err := r.providers[name].HealthCheck(ctx); err != nil {
			lastErr = fmt.Errorf("%s: %w", name, err)
			continue
		}
		return nil
	}
	return lastErr
}

// EmbeddingRouter tries embedders in registration order, mirroring the
// model fallback chain used when building an index. Once a model is pinned
// every call goes to it alone, so all vectors share one space.
type EmbeddingRouter struct {
	embedders []namedEmbedder
	pinned    *namedEmbedder
	mu        sync.RWMutex
}

type namedEmbedder struct {
	name     string
	embedder Embedder
}

// NewEmbeddingRouter creates an empty embedding router.
func NewEmbeddingRouter() *EmbeddingRouter {
	return &EmbeddingRouter{}
}

// Register appends an embedder to the fallback chain.
func (r *EmbeddingRouter) Register(name string, e Embedder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.embedders = append(r.embedders, namedEmbedder{name: name, embedder: e})
}

// Len returns the number of registered embedders.
func (r *EmbeddingRouter) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.embedders)
}

// Models returns the registered model names in fallback order.
func (r *EmbeddingRouter) Models() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.embedders))
	for i, ne := range r.embedders {
		names[i] = ne.name
	}
	return names
}

// Pinned returns the pinned model name, or "" while the router falls back
// per call.
func (r *EmbeddingRouter) Pinned() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.pinned == nil {
		return ""
	}
	return r.pinned.name
}

// Pin sends every later Embed call to the named model only.
func (r *EmbeddingRouter) Pin(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.embedders {
		if r.embedders[i].name == name {
			r.pinned = &r.embedders[i]
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownModel, name)
}

// SelectModel pins the first model, in fallback order, that can embed sample
// and returns its name. A lone model is pinned without a call.
func (r *EmbeddingRouter) SelectModel(ctx context.Context, sample string) (string, error) {
	models := r.Models()
	switch len(models) {
	case 0:
		return "", ErrNoProviders
	case 1:
		return models[0], r.Pin(models[0])
	}

	r.mu.RLock()
	candidates := append([]namedEmbedder(nil), r.embedders...)
	r.mu.RUnlock()

	var lastErr error
	for _, ne := range candidates {
		if _, err := ne.embedder.Embed(ctx, sample); err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			slog.Warn("embedding model unavailable, trying next", "embedder", ne.name, "error", err)
			lastErr = err
			continue
		}
		return ne.name, r.Pin(ne.name)
	}
	return "", fmt.Errorf("all embedders failed: %w", lastErr)
}

// Embed returns the first successful embedding, or the pinned model's
// embedding once a model is pinned. Empty input fails fast.
func (r *EmbeddingRouter) Embed(ctx context.Context, text string) ([]float32, error) {
	if isBlank(text) {
		return nil, ErrEmptyInput
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.embedders) == 0 {
		return nil, ErrNoProviders
	}
	if r.pinned != nil {
		vec, err := r.pinned.embedder.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embedder %s: %w", r.pinned.name, err)
		}
		return vec, nil
	}

	var lastErr error
	for _, ne := range r.embedders {
		vec, err := ne.embedder.Embed(ctx, text)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			slog.Warn("embedder failed, trying next", "embedder", ne.name, "error", err)
			lastErr = err
			continue
		}
		return vec, nil
	}
	return nil, fmt.Errorf("all embedders failed: %w", lastErr)
}
