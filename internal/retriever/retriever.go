// Package retriever finds template questions for a concept by embedding the
// concept name and searching the vector index.
package retriever

import (
	"context"
	"log/slog"
	"strings"

	"github.com/sujalgawas/JEE-question-generator/internal/ai"
	"github.com/sujalgawas/JEE-question-generator/internal/corpus"
	"github.com/sujalgawas/JEE-question-generator/internal/platform/logger"
	"github.com/sujalgawas/JEE-question-generator/internal/platform/metrics"
	"github.com/sujalgawas/JEE-question-generator/internal/vectorindex"
)

// Searcher is the part of the vector index the retriever needs.
type Searcher interface {
	Search(query []float32, k int) ([]vectorindex.Hit, error)
}

// Retriever maps concept names to corpus rows. It is safe for concurrent use.
type Retriever struct {
	embed   ai.Embedder
	index   Searcher
	corpus  *corpus.Corpus
	metrics *metrics.Metrics
	log     *slog.Logger
}

// New creates a Retriever. m may be nil.
func New(embed ai.Embedder, index Searcher, c *corpus.Corpus, m *metrics.Metrics) *Retriever {
	return &Retriever{
		embed:   embed,
		index:   index,
		corpus:  c,
		metrics: m,
		log:     logger.WithComponent("retriever"),
	}
}

// Retrieve returns up to count rows nearest to concept, closest first.
// Failures degrade to fewer or zero rows and are only logged.
func (r *Retriever) Retrieve(ctx context.Context, concept string, count int) []corpus.Row {
	if count <= 0 {
		return nil
	}
	query := corpus.NormalizeText(concept)
	if query == "" {
		r.log.Warn("empty concept, nothing to retrieve")
		return nil
	}

	vec, err := r.embed.Embed(ctx, query)
	if err != nil {
		r.metrics.EmbeddingFailed("query")
		r.log.Warn("concept embedding failed, returning no templates",
			"concept", concept,
			"error", err,
		)
		return nil
	}

	hits, err := r.index.Search(vec, count)
	if err != nil {
		r.log.Warn("index search failed", "concept", concept, "error", err)
		return nil
	}

	rows := make([]corpus.Row, 0, len(hits))
	for _, h := range hits {
		row, ok := r.corpus.Row(h.RowID)
		if !ok {
			r.log.Warn("index refers to unknown row", "row_id", h.RowID)
			continue
		}
		rows = append(rows, row)
	}
	r.metrics.Retrieved(len(rows))
	if len(rows) < count {
		r.log.Info("retrieved fewer templates than requested",
			"concept", concept,
			"requested", count,
			"retrieved", len(rows),
		)
	}
	return rows
}

// Concepts lists the distinct corpus concepts in first-seen order, trimmed.
func Concepts(c *corpus.Corpus) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, row := range c.Rows() {
		name := strings.TrimSpace(row.Concept)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
