// Package generator turns a template question into a new multiple-choice
// question using a generative model.
package generator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sujalgawas/JEE-question-generator/internal/ai"
	"github.com/sujalgawas/JEE-question-generator/internal/platform/logger"
	"github.com/sujalgawas/JEE-question-generator/internal/platform/metrics"
	"github.com/sujalgawas/JEE-question-generator/internal/platform/resilience"
)

// Config holds the generation parameters and collaborators.
type Config struct {
	Model       string
	Temperature float64
	MaxTokens   int
	// JSONMode asks providers that support it to return a bare JSON object.
	JSONMode bool
	// CallTimeout bounds each provider call. Zero means no per-call limit.
	CallTimeout time.Duration

	Policy  resilience.Policy
	Pacer   *resilience.Pacer // shared by every generator talking to the same quota
	Metrics *metrics.Metrics
}

// Generator produces questions. It is safe for concurrent use.
type Generator struct {
	completer ai.Completer
	cfg       Config
	policy    resilience.Policy
	log       *slog.Logger
}

// New creates a Generator. Policy.Retryable and Policy.RetryAfter default to
// the ai package classifiers.
func New(completer ai.Completer, cfg Config) *Generator {
	g := &Generator{
		completer: completer,
		cfg:       cfg,
		log:       logger.WithComponent("generator"),
	}

	p := cfg.Policy
	if p.Retryable == nil {
		p.Retryable = ai.IsRetryable
	}
	if p.RetryAfter == nil {
		p.RetryAfter = ai.RetryAfter
	}
	onRetry := p.OnRetry
	p.OnRetry = func(attempt int, err error, delay time.Duration) {
		g.cfg.Metrics.Attempt("retry")
		g.log.Warn("generation attempt failed, retrying",
			"attempt", attempt,
			"next_delay", delay,
			"error", err,
		)
		if onRetry != nil {
			onRetry(attempt, err, delay)
		}
	}
	g.policy = p
	return g
}

// Generate asks the model for a new question modelled on original, testing
// concept at the given difficulty. Transient failures are retried under the
// policy; unparseable output is retried while attempts remain and accepted
// as raw text on the last one.
func (g *Generator) Generate(ctx context.Context, original, difficulty, concept string) (Question, error) {
	prompt, err := buildPrompt(original, difficulty, concept)
	if err != nil {
		return Question{}, fmt.Errorf("building prompt: %w", err)
	}
	req := ai.CompletionRequest{
		Messages:    []ai.Message{{Role: "user", Content: prompt}},
		Model:       g.cfg.Model,
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
		JSONMode:    g.cfg.JSONMode,
	}
	last := g.policy.MaxAttempts()

	var out Question
	err = g.policy.Do(ctx, func(ctx context.Context, attempt int) error {
		if err := g.cfg.Pacer.Wait(ctx); err != nil {
			return err
		}
		content, err := g.complete(ctx, req)
		if err != nil {
			return err
		}

		q, structured := ParseResponse(content)
		if !structured && attempt < last {
			return fmt.Errorf("%w: %s", ai.ErrMalformedJSON, preview(content))
		}
		if !structured {
			g.cfg.Metrics.Attempt("fallback")
			g.log.Warn("no JSON object in model output, using raw text",
				"concept", concept,
				"attempt", attempt,
			)
			out = q
			return nil
		}

		if problems, err := Check(q); err != nil {
			g.log.Warn("schema check failed", "error", err)
		} else if len(problems) > 0 {
			g.log.Warn("generated question deviates from schema",
				"concept", concept,
				"problems", joinProblems(problems),
			)
		}
		g.cfg.Metrics.Attempt("ok")
		out = q
		return nil
	})
	if err != nil {
		g.cfg.Metrics.Attempt("failed")
		return Question{}, fmt.Errorf("generating question for %q: %w", concept, err)
	}
	return out, nil
}

func (g *Generator) complete(ctx context.Context, req ai.CompletionRequest) (string, error) {
	if g.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.CallTimeout)
		defer cancel()
	}
	start := time.Now()
	resp, err := g.completer.Complete(ctx, req)
	g.cfg.Metrics.ObserveGeneration(time.Since(start).Seconds())
	if err != nil {
		return "", fmt.Errorf("completing: %w", err)
	}
	return resp.Content, nil
}

func preview(s string) string {
	const limit = 80
	r := []rune(s)
	if len(r) <= limit {
		return string(r)
	}
	return string(r[:limit]) + "..."
}
