// Package main is the entry point for the papergen CLI, which builds the
// template index and generates exam papers from a syllabus file.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sujalgawas/JEE-question-generator/internal/platform/config"
	"github.com/sujalgawas/JEE-question-generator/internal/platform/logger"
)

// version is set at build time via ldflags.
var version = "dev"

// newRootCmd builds the command tree. Configuration comes from PAPERGEN_*
// environment variables; persistent flags override the file paths.
func newRootCmd() *cobra.Command {
	cfg := &config.Config{}

	root := &cobra.Command{
		Use:     "papergen",
		Short:   "Generate JEE practice papers from a template question bank",
		Version: version,
		Long: `papergen allocates questions across a syllabus, retrieves similar template
questions from a vector index and asks a language model to write a fresh
question for each template.

Settings are read from PAPERGEN_* environment variables. The flags below
override the corresponding paths.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load()
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if v, _ := flags.GetString("corpus"); v != "" {
				loaded.Index.CorpusPath = v
			}
			if v, _ := flags.GetString("index"); v != "" {
				loaded.Index.IndexPath = v
			}
			if v, _ := flags.GetString("log-level"); v != "" {
				loaded.Log.Level = v
			}
			logger.Setup(loaded.Log.Level, "text")
			*cfg = *loaded
			return nil
		},
	}

	root.PersistentFlags().String("corpus", "", "template question CSV (default $PAPERGEN_INDEX_CORPUS_PATH)")
	root.PersistentFlags().String("index", "", "vector index file (default $PAPERGEN_INDEX_PATH)")
	root.PersistentFlags().String("log-level", "", "debug, info, warn or error (default $PAPERGEN_LOG_LEVEL)")

	root.AddCommand(newIndexCmd(cfg), newGenerateCmd(cfg), newConceptsCmd(cfg))
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
