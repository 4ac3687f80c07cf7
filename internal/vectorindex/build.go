package vectorindex

import (
	"context"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/sujalgawas/JEE-question-generator/internal/ai"
	"github.com/sujalgawas/JEE-question-generator/internal/corpus"
	"github.com/sujalgawas/JEE-question-generator/internal/platform/logger"
	"github.com/sujalgawas/JEE-question-generator/internal/platform/metrics"
)

// BuildOptions tunes index construction.
type BuildOptions struct {
	// Concurrency bounds in-flight embedding calls. Default 4.
	Concurrency int
	// ProgressEvery logs a progress line after this many rows. Default 50.
	ProgressEvery int
	// Model names the embedding model and is recorded in the fingerprint.
	// LoadOrBuild sets it when the embedder is a ModelSelector.
	Model   string
	Metrics *metrics.Metrics
	Logger        *slog.Logger
}

func (o BuildOptions) withDefaults() BuildOptions {
	if o.Concurrency <= 0 {
		o.Concurrency = 4
	}
	if o.ProgressEvery <= 0 {
		o.ProgressEvery = 50
	}
	if o.Logger == nil {
		o.Logger = logger.WithComponent("vectorindex")
	}
	return o
}

// Build embeds every row's question, concept and difficulty and indexes the
// results. Rows whose embedding fails, or whose vector length disagrees with
// the first successful one, are logged and left out. Build fails only when
// ctx is done or no row could be embedded.
func Build(ctx context.Context, rows []corpus.Row, embed ai.Embedder, opts BuildOptions) (*Index, error) {
	opts = opts.withDefaults()
	log := opts.Logger

	vectors := make([][]float32, len(rows))
	var done, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for i := range rows {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			row := rows[i]
			vec, err := embed.Embed(gctx, row.EmbeddingText())
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				failed.Add(1)
				opts.Metrics.EmbeddingFailed("build")
				log.Warn("row embedding failed, excluding from index", "row_id", row.ID, "error", err)
			} else {
				vectors[i] = vec
			}
			if n := done.Add(1); n%int64(opts.ProgressEvery) == 0 {
				log.Info("index build progress", "done", n, "total", len(rows), "failed", failed.Load())
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ids := make([]int, 0, len(rows))
	kept := make([][]float32, 0, len(rows))
	dim := 0
	for i, vec := range vectors {
		if len(vec) == 0 {
			continue
		}
		if dim == 0 {
			dim = len(vec)
		}
		if len(vec) != dim {
			log.Warn("row embedding has wrong dimension, excluding from index",
				"row_id", rows[i].ID, "dim", len(vec), "want", dim)
			failed.Add(1)
			continue
		}
		ids = append(ids, rows[i].ID)
		kept = append(kept, vec)
	}
	if len(kept) == 0 {
		return nil, ErrEmptyIndex
	}

	ix, err := New(ids, kept, Key(corpus.Fingerprint(rows), opts.Model))
	if err != nil {
		return nil, err
	}
	log.Info("index built", "vectors", ix.Len(), "failed", failed.Load(), "dim", ix.Dim(), "model", opts.Model)
	opts.Metrics.IndexLoaded(ix.Len())
	return ix, nil
}
