// Package app wires configuration into the paper generation pipeline shared
// by the HTTP server and the command-line tool.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sujalgawas/JEE-question-generator/internal/ai"
	"github.com/sujalgawas/JEE-question-generator/internal/corpus"
	"github.com/sujalgawas/JEE-question-generator/internal/embedding"
	"github.com/sujalgawas/JEE-question-generator/internal/generator"
	"github.com/sujalgawas/JEE-question-generator/internal/paper"
	"github.com/sujalgawas/JEE-question-generator/internal/platform/cache"
	"github.com/sujalgawas/JEE-question-generator/internal/platform/config"
	"github.com/sujalgawas/JEE-question-generator/internal/platform/database"
	"github.com/sujalgawas/JEE-question-generator/internal/platform/metrics"
	"github.com/sujalgawas/JEE-question-generator/internal/platform/resilience"
	"github.com/sujalgawas/JEE-question-generator/internal/retriever"
	"github.com/sujalgawas/JEE-question-generator/internal/syllabus"
	"github.com/sujalgawas/JEE-question-generator/internal/vectorindex"
)

// Options adjusts how New assembles the pipeline.
type Options struct {
	// ForceRebuild rebuilds the vector index even if a matching file exists.
	ForceRebuild bool
	// Registerer receives the Prometheus collectors. Nil uses a private registry.
	Registerer prometheus.Registerer
}

// App holds the wired pipeline and the resources it owns.
type App struct {
	Config    *config.Config
	Metrics   *metrics.Metrics
	Corpus    *corpus.Corpus
	Index     *vectorindex.Index
	Retriever *retriever.Retriever
	Generator *generator.Generator
	Driver    *paper.Driver
	Store     paper.Store

	embedder ai.Embedder
	db       *database.DB
	redis    *cache.Cache
	bolt     *embedding.BoltCache
}

// New connects external resources, loads or builds the vector index and wires
// the generator and driver. On error every resource opened so far is closed.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	a, err := OpenIndex(ctx, cfg, opts)
	if err != nil {
		return nil, err
	}
	if err := a.wirePipeline(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// OpenIndex prepares only the retrieval side: embedding cache, embedders,
// corpus and vector index. It needs no generative provider.
func OpenIndex(ctx context.Context, cfg *config.Config, opts Options) (_ *App, err error) {
	a := &App{
		Config:  cfg,
		Metrics: metrics.New(opts.Registerer),
	}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if err := a.openCache(ctx); err != nil {
		return nil, err
	}
	if err := a.buildEmbedder(); err != nil {
		return nil, err
	}

	a.Corpus, err = corpus.LoadFile(cfg.Index.CorpusPath)
	if err != nil {
		return nil, err
	}
	a.Index, err = vectorindex.LoadOrBuild(ctx, cfg.Index.IndexPath, a.Corpus, a.embedder, opts.ForceRebuild, vectorindex.BuildOptions{
		Concurrency:   cfg.Index.BuildConcurrency,
		ProgressEvery: cfg.Index.ProgressEvery,
		Metrics:       a.Metrics,
	})
	if err != nil {
		return nil, err
	}
	a.Retriever = retriever.New(a.embedder, a.Index, a.Corpus, a.Metrics)
	return a, nil
}

func (a *App) wirePipeline(ctx context.Context) error {
	cfg := a.Config
	router := NewGenerationRouter(cfg)
	if !router.HasProvider() {
		return ai.ErrNoProviders
	}
	a.Generator = generator.New(router, generator.Config{
		Model:       cfg.Generation.Model,
		Temperature: cfg.Generation.Temperature,
		MaxTokens:   cfg.Generation.MaxTokens,
		JSONMode:    cfg.Generation.JSONMode,
		CallTimeout: cfg.Generation.CallTimeout,
		Policy: resilience.Policy{
			Attempts: cfg.Generation.Attempts,
			Min:      cfg.Generation.BackoffMin,
			Max:      cfg.Generation.BackoffMax,
			Jitter:   0.5,
		},
		Pacer:   resilience.NewPacer(cfg.Generation.MinInterval),
		Metrics: a.Metrics,
	})
	a.Driver = paper.NewDriver(paper.DriverConfig{
		Retriever: a.Retriever,
		Generator: a.Generator,
		Boost:     cfg.Allocation.WeakBoost,
		Metrics:   a.Metrics,
	})
	return a.openStore(ctx)
}

// openCache connects the embedding cache: Redis when a URL is set, otherwise
// a bbolt file when a path is set, otherwise nothing.
func (a *App) openCache(ctx context.Context) error {
	switch {
	case a.Config.Cache.URL != "":
		c, err := cache.New(ctx, a.Config.Cache.URL)
		if err != nil {
			return fmt.Errorf("connecting embedding cache: %w", err)
		}
		a.redis = c
		slog.Info("embedding cache connected", "backend", "redis")
	case a.Config.Cache.BoltPath != "":
		b, err := embedding.OpenBolt(a.Config.Cache.BoltPath)
		if err != nil {
			return err
		}
		a.bolt = b
		slog.Info("embedding cache opened", "backend", "bolt", "path", a.Config.Cache.BoltPath, "entries", b.Len())
	}
	return nil
}

func (a *App) embeddingCache() embedding.Cache {
	switch {
	case a.redis != nil:
		return embedding.NewRedisCache(a.redis.Client, a.Config.Cache.TTL)
	case a.bolt != nil:
		return a.bolt
	default:
		return nil
	}
}

func (a *App) buildEmbedder() error {
	c := a.embeddingCache()
	router, err := NewEmbeddingRouter(a.Config, func(name string, e ai.Embedder) ai.Embedder {
		return embedding.NewCachedEmbedder(e, c, name, embedding.WithMetrics(a.Metrics))
	})
	if err != nil {
		return err
	}
	a.embedder = router
	return nil
}

func (a *App) openStore(ctx context.Context) error {
	if a.Config.Database.URL == "" {
		a.Store = paper.NewMemoryStore()
		slog.Info("paper store ready", "backend", "memory")
		return nil
	}

	db, err := database.New(ctx, a.Config.Database.URL, a.Config.Database.MaxConns, a.Config.Database.MinConns)
	if err != nil {
		return err
	}
	a.db = db
	if err := db.Migrate(ctx); err != nil {
		return err
	}
	store, err := paper.NewPostgresStore(db.Pool)
	if err != nil {
		return err
	}
	a.Store = store
	slog.Info("paper store ready", "backend", "postgres")
	return nil
}

// Generate assembles a paper for spec and stores it. A paper is stored only
// when assembly completes.
func (a *App) Generate(ctx context.Context, spec syllabus.Spec, weak syllabus.WeakSet, createdBy string) (*paper.Paper, error) {
	table, err := a.Driver.Assemble(ctx, spec, weak)
	if err != nil {
		return nil, err
	}
	p := paper.Paper{
		CreatedBy: createdBy,
		CreatedAt: time.Now().UTC(),
		Table:     table,
	}
	p.ID, err = a.Store.Save(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("storing paper: %w", err)
	}
	return &p, nil
}

// Ready reports whether the resources the pipeline depends on are reachable.
func (a *App) Ready(ctx context.Context) error {
	var errs []error
	if a.Index == nil || a.Index.Len() == 0 {
		errs = append(errs, errors.New("vector index not loaded"))
	}
	if a.db != nil {
		if err := a.db.HealthCheck(ctx); err != nil {
			errs = append(errs, fmt.Errorf("database: %w", err))
		}
	}
	if a.redis != nil {
		if err := a.redis.HealthCheck(ctx); err != nil {
			errs = append(errs, fmt.Errorf("cache: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Close releases every resource the App opened. It is safe to call more than
// once.
func (a *App) Close() {
	if a.db != nil {
		a.db.Close()
		a.db = nil
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			slog.Warn("closing cache", "error", err)
		}
		a.redis = nil
	}
	if a.bolt != nil {
		if err := a.bolt.Close(); err != nil {
			slog.Warn("closing bolt cache", "error", err)
		}
		a.bolt = nil
	}
}
