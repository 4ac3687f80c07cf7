package paper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sujalgawas/JEE-question-generator/internal/allocator"
	"github.com/sujalgawas/JEE-question-generator/internal/corpus"
	"github.com/sujalgawas/JEE-question-generator/internal/generator"
	"github.com/sujalgawas/JEE-question-generator/internal/platform/logger"
	"github.com/sujalgawas/JEE-question-generator/internal/platform/metrics"
	"github.com/sujalgawas/JEE-question-generator/internal/syllabus"
)

// ErrNoQuestions is returned when questions were requested but none could be
// generated. A syllabus asking for zero questions is not an error.
var ErrNoQuestions = errors.New("no questions were generated")

// Retriever supplies template rows for a concept.
type Retriever interface {
	Retrieve(ctx context.Context, concept string, count int) []corpus.Row
}

// Generator writes one question from a template.
type Generator interface {
	Generate(ctx context.Context, original, difficulty, concept string) (generator.Question, error)
}

// DriverConfig holds dependencies for the Driver.
type DriverConfig struct {
	Retriever Retriever
	Generator Generator
	Boost     float64 // weak-concept multiplier (default 2.0)
	Metrics   *metrics.Metrics
}

// Driver runs paper assembly: subjects in definition order, concepts in
// allocation order, one generation call per retrieved template.
type Driver struct {
	retriever Retriever
	generator Generator
	boost     float64
	metrics   *metrics.Metrics
	log       *slog.Logger
}

// NewDriver creates a Driver.
func NewDriver(cfg DriverConfig) *Driver {
	boost := cfg.Boost
	if boost == 0 {
		boost = allocator.DefaultBoost
	}
	return &Driver{
		retriever: cfg.Retriever,
		generator: cfg.Generator,
		boost:     boost,
		metrics:   cfg.Metrics,
		log:       logger.WithComponent("paper"),
	}
}

// Assemble builds a paper for spec. A template whose generation fails is
// skipped and the run continues; the paper may therefore hold fewer
// questions than requested. If ctx ends mid-run the questions generated so
// far are returned together with ctx.Err().
func (d *Driver) Assemble(ctx context.Context, spec syllabus.Spec, weak syllabus.WeakSet) (*Table, error) {
	table := NewTable()
	queue := append([]syllabus.Subject(nil), spec.Subjects...)
	requested := 0

	d.log.Info("planning paper", "subjects", len(queue), "weak_concepts", len(weak))

	for len(queue) > 0 {
		subject := queue[0]
		queue = queue[1:]

		n, err := d.processSubject(ctx, table, subject, weak)
		requested += n
		if err != nil {
			if ctx.Err() != nil {
				d.metrics.PaperDone("cancelled")
				d.log.Warn("paper assembly cancelled", "subject", subject.Name, "questions", table.Len())
			}
			return table, err
		}
	}

	if requested > 0 && table.Len() == 0 {
		d.metrics.PaperDone("empty")
		d.log.Warn("paper assembly produced no questions", "requested", requested)
		return table, ErrNoQuestions
	}

	d.metrics.PaperDone("ok")
	d.log.Info("paper assembled", "requested", requested, "questions", table.Len())
	return table, nil
}

// processSubject appends the subject's questions to table and returns how
// many were requested by the allocation.
func (d *Driver) processSubject(ctx context.Context, table *Table, subject syllabus.Subject, weak syllabus.WeakSet) (int, error) {
	alloc, err := allocator.Allocate(subject.Concepts, subject.TotalQuestions, weak, d.boost)
	if err != nil {
		return 0, fmt.Errorf("allocating %s: %w", subject.Name, err)
	}
	d.log.Info("processing subject",
		"subject", subject.Name,
		"total", subject.TotalQuestions,
		"allocation", alloc.Map(),
	)

	for _, c := range alloc {
		if c.N == 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return alloc.Total(), err
		}

		rows := d.retriever.Retrieve(ctx, c.Concept, c.N)
		if len(rows) == 0 {
			d.log.Warn("no templates retrieved, skipping concept",
				"subject", subject.Name,
				"concept", c.Concept,
			)
			continue
		}

		for _, row := range rows {
			if err := ctx.Err(); err != nil {
				return alloc.Total(), err
			}
			q, err := d.generator.Generate(ctx, row.Question, row.Difficulty, c.Concept)
			if err != nil {
				if ctx.Err() != nil {
					return alloc.Total(), ctx.Err()
				}
				d.metrics.TemplateSkipped()
				d.log.Warn("skipping template after generation failure",
					"subject", subject.Name,
					"concept", c.Concept,
					"row_id", row.ID,
					"error", err,
				)
				continue
			}

			num := table.Append(Entry{
				Subject:       subject.Name,
				Concept:       c.Concept,
				Weightage:     c.Weight,
				QuestionText:  q.Text,
				Options:       q.Options,
				Difficulty:    row.Difficulty,
				CorrectAnswer: q.CorrectAnswer,
				Explanation:   q.Explanation,
			})
			d.metrics.QuestionAppended()
			d.log.Debug("question appended", "question_number", num, "concept", c.Concept)
		}
	}
	return alloc.Total(), nil
}
