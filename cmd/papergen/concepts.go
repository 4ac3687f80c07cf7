package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sujalgawas/JEE-question-generator/internal/corpus"
	"github.com/sujalgawas/JEE-question-generator/internal/platform/config"
	"github.com/sujalgawas/JEE-question-generator/internal/retriever"
)

func newConceptsCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "concepts",
		Short: "List the concepts present in the template corpus",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := corpus.LoadFile(cfg.Index.CorpusPath)
			if err != nil {
				return err
			}
			for _, name := range retriever.Concepts(c) {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), name); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
