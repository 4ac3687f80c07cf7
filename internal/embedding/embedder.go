package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/sujalgawas/JEE-question-generator/internal/ai"
	"github.com/sujalgawas/JEE-question-generator/internal/platform/logger"
	"github.com/sujalgawas/JEE-question-generator/internal/platform/metrics"
)

// CachedEmbedder consults a Cache before the wrapped embedder and collapses
// concurrent requests for the same text into one provider call. Cache errors
// are logged and treated as misses.
type CachedEmbedder struct {
	next      ai.Embedder
	cache     Cache
	namespace string
	group     singleflight.Group
	metrics   *metrics.Metrics
	log       *slog.Logger
}

// Option configures a CachedEmbedder.
type Option func(*CachedEmbedder)

// WithMetrics records cache hits and misses.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *CachedEmbedder) {
		c.metrics = m
	}
}

// NewCachedEmbedder wraps next. namespace separates vectors from different
// embedding models; a nil cache only deduplicates in-flight calls.
func NewCachedEmbedder(next ai.Embedder, cache Cache, namespace string, opts ...Option) *CachedEmbedder {
	c := &CachedEmbedder{
		next:      next,
		cache:     cache,
		namespace: namespace,
		log:       logger.WithComponent("embedding-cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ai.ErrEmptyInput
	}
	key := Key(c.namespace, text)

	if c.cache != nil {
		vec, ok, err := c.cache.Get(ctx, key)
		if err != nil {
			c.log.Warn("embedding cache read failed", "error", err)
		}
		if ok {
			c.metrics.CacheLookup(true)
			return vec, nil
		}
		c.metrics.CacheLookup(false)
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		vec, err := c.next.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		if c.cache != nil {
			if err := c.cache.Set(ctx, key, vec); err != nil {
				c.log.Warn("embedding cache write failed", "error", err)
			}
		}
		return vec, nil
	})
	if err != nil {
		return nil, fmt.Errorf("embedding text: %w", err)
	}
	vec := v.([]float32)
	return append([]float32(nil), vec...), nil
}
