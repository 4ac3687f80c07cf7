package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sujalgawas/JEE-question-generator/internal/app"
	"github.com/sujalgawas/JEE-question-generator/internal/paper"
	"github.com/sujalgawas/JEE-question-generator/internal/platform/config"
	"github.com/sujalgawas/JEE-question-generator/internal/syllabus"
)

type generateOptions struct {
	syllabusPath string
	weak         string
	out          string
	xlsx         string
	createdBy    string
	save         bool
}

func newGenerateCmd(cfg *config.Config) *cobra.Command {
	var opts generateOptions

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a paper for a syllabus",
		Long: `generate allocates each subject's questions across its concepts, boosting the
concepts named in --weak, then writes one new question per retrieved template.

The paper is written as column-oriented JSON to --out (stdout when empty) and
optionally as a spreadsheet to --xlsx. If interrupted, the questions finished
so far are still written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.syllabusPath == "" {
				opts.syllabusPath = cfg.SyllabusPath
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runGenerate(cmd.Context(), cfg, opts, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.syllabusPath, "syllabus", "", "syllabus YAML or JSON file (default $PAPERGEN_SYLLABUS_PATH)")
	f.StringVar(&opts.weak, "weak", "", "comma-separated weak concepts to boost")
	f.StringVar(&opts.out, "out", "", "write the paper JSON to this file instead of stdout")
	f.StringVar(&opts.xlsx, "xlsx", "", "also write the paper as an .xlsx spreadsheet")
	f.StringVar(&opts.createdBy, "created-by", "", "author recorded with a saved paper")
	f.BoolVar(&opts.save, "save", false, "store the finished paper in the configured paper store")
	return cmd
}

func runGenerate(ctx context.Context, cfg *config.Config, opts generateOptions, stdout io.Writer) error {
	spec, err := syllabus.LoadFile(opts.syllabusPath)
	if err != nil {
		return err
	}
	weak := syllabus.ParseWeakList(opts.weak)

	a, err := app.New(ctx, cfg, app.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	table, runErr := a.Driver.Assemble(ctx, spec, weak)
	if runErr != nil && !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, context.DeadlineExceeded) {
		return runErr
	}
	if runErr != nil {
		slog.Warn("generation interrupted, writing partial paper", "questions", table.Len())
	}

	if err := writeOutputs(table, opts, stdout); err != nil {
		return err
	}
	if runErr != nil {
		return runErr
	}

	if opts.save {
		id, err := a.Store.Save(ctx, paper.Paper{CreatedBy: opts.createdBy, CreatedAt: time.Now().UTC(), Table: table})
		if err != nil {
			return fmt.Errorf("saving paper: %w", err)
		}
		slog.Info("paper saved", "id", id)
	}
	return nil
}

func writeOutputs(table *paper.Table, opts generateOptions, stdout io.Writer) error {
	if opts.out == "" {
		if err := paper.ExportJSON(stdout, table); err != nil {
			return err
		}
	} else if err := writeFile(opts.out, func(w io.Writer) error { return paper.ExportJSON(w, table) }); err != nil {
		return err
	}

	if opts.xlsx != "" {
		if err := writeFile(opts.xlsx, func(w io.Writer) error { return paper.ExportXLSX(w, table) }); err != nil {
			return err
		}
	}
	slog.Info("paper written", "questions", table.Len(), "json", opts.out, "xlsx", opts.xlsx)
	return nil
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("closing %s: %w", path, cerr)
		}
	}()
	return write(f)
}
