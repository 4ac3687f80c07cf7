package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/sujalgawas/JEE-question-generator/internal/ai"
	"github.com/sujalgawas/JEE-question-generator/internal/corpus"
)

// Rebuild reasons reported in logs and metrics.
const (
	ReasonMissing = "missing"
	ReasonCorrupt = "corrupt"
	ReasonStale   = "stale"
	ReasonForced  = "forced"
)

// ModelSelector is an embedder with a model fallback chain that can be fixed
// to one model. ai.EmbeddingRouter implements it.
type ModelSelector interface {
	ai.Embedder
	Models() []string
	Pin(name string) error
	SelectModel(ctx context.Context, sample string) (string, error)
}

// LoadOrBuild returns the index persisted at path when it matches the corpus
// and the embedding model, otherwise builds a fresh one and saves it. A
// failure to save is logged and the in-memory index is still returned.
//
// When embed is a ModelSelector it is left pinned to the index's model so
// queries land in the same vector space. Otherwise opts.Model names the model.
func LoadOrBuild(ctx context.Context, path string, c *corpus.Corpus, embed ai.Embedder, force bool, opts BuildOptions) (*Index, error) {
	opts = opts.withDefaults()
	log := opts.Logger.With("path", path)
	sel, _ := embed.(ModelSelector)

	chosen := ""
	reason := ReasonForced
	if !force {
		ix, err := Load(path)
		switch {
		case err == nil:
			ok, selected, err := reusable(ctx, ix, c, sel, opts.Model)
			if err != nil {
				return nil, err
			}
			if ok {
				log.Info("index loaded", "vectors", ix.Len(), "dim", ix.Dim(), "model", ix.Model())
				opts.Metrics.IndexLoaded(ix.Len())
				return ix, nil
			}
			chosen = selected
			reason = ReasonStale
		case errors.Is(err, os.ErrNotExist):
			reason = ReasonMissing
		case errors.Is(err, ErrCorrupt):
			reason = ReasonCorrupt
			log.Warn("discarding corrupt index file", "error", err)
		default:
			return nil, fmt.Errorf("reading index: %w", err)
		}
	}

	if sel != nil {
		if chosen == "" {
			model, err := sel.SelectModel(ctx, sampleText(c))
			if err != nil {
				return nil, fmt.Errorf("selecting embedding model: %w", err)
			}
			chosen = model
		}
		opts.Model = chosen
	}

	log.Info("building index", "reason", reason, "rows", c.Len(), "model", opts.Model)
	opts.Metrics.IndexRebuilt(reason)
	ix, err := Build(ctx, c.Rows(), embed, opts)
	if err != nil {
		return nil, fmt.Errorf("building index: %w", err)
	}
	if err := ix.Save(path); err != nil {
		log.Error("saving index failed, continuing with in-memory copy", "error", err)
	}
	return ix, nil
}

// reusable reports whether ix can serve c with the current embedder. When the
// embedder had to be tried to decide, selected is the model it is now
// pinned to.
func reusable(ctx context.Context, ix *Index, c *corpus.Corpus, sel ModelSelector, model string) (ok bool, selected string, err error) {
	if ix.CorpusFingerprint() != c.Fingerprint() {
		return false, "", nil
	}
	if sel == nil {
		return ix.Model() == model, "", nil
	}

	models := sel.Models()
	if !slices.Contains(models, ix.Model()) {
		return false, "", nil
	}
	if ix.Model() == models[0] {
		return true, "", sel.Pin(ix.Model())
	}
	// Built with a fallback model: keep it only while every preferred model
	// still fails.
	selected, err = sel.SelectModel(ctx, sampleText(c))
	if err != nil {
		return false, "", fmt.Errorf("selecting embedding model: %w", err)
	}
	return selected == ix.Model(), selected, nil
}

func sampleText(c *corpus.Corpus) string {
	for _, r := range c.Rows() {
		if text := r.EmbeddingText(); text != "" {
			return text
		}
	}
	return "sample"
}
