package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sujalgawas/JEE-question-generator/internal/app"
	"github.com/sujalgawas/JEE-question-generator/internal/platform/config"
)

func newIndexCmd(cfg *config.Config) *cobra.Command {
	indexCmd := &cobra.Command{
		Use:   "index",
		Short: "Manage the template vector index",
	}

	var force bool
	buildCmd := &cobra.Command{
		Use:   "build",
		Short: "Embed the corpus and write the vector index",
		Long: `build loads the index file when it matches the corpus and rebuilds it
otherwise. A file written for a different corpus, or one that fails its
checksum, is replaced. --force rebuilds unconditionally.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.OpenIndex(cmd.Context(), cfg, app.Options{ForceRebuild: force})
			if err != nil {
				return err
			}
			defer a.Close()

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "index %s: %d vectors of dimension %d from %s (corpus %d rows)\n",
				cfg.Index.IndexPath, a.Index.Len(), a.Index.Dim(), a.Index.Model(), a.Corpus.Len())
			return err
		},
	}
	buildCmd.Flags().BoolVar(&force, "force", false, "rebuild even if a matching index exists")

	indexCmd.AddCommand(buildCmd)
	return indexCmd
}
