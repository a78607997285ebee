package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"chronolens/internal/repository"
)

var lsTreeRevision string

var lsTreeCmd = &cobra.Command{
	Use:   "ls-tree",
	Short: "List the interpretable sources of a revision",
	Long: `List the source files of a revision that an enabled parser handles and the
include/exclude filters select.

Examples:
  chronolens ls-tree
  chronolens ls-tree --rev 3f2c9e1d...`,
	Args: cobra.NoArgs,
	RunE: runLsTree,
}

func init() {
	lsTreeCmd.Flags().StringVar(&lsTreeRevision, "rev", "", "Revision id (default: head)")
	rootCmd.AddCommand(lsTreeCmd)
}

type lsTreeResponse struct {
	Revision string   `json:"revision" yaml:"revision"`
	Sources  []string `json:"sources" yaml:"sources"`
}

func (r *lsTreeResponse) formatHuman(b *strings.Builder) {
	for _, s := range r.Sources {
		b.WriteString(s + "\n")
	}
}

func runLsTree(cmd *cobra.Command, args []string) error {
	if err := repository.CheckRevision(lsTreeRevision); err != nil {
		return err
	}
	return withApp(cmd.ErrOrStderr(), func(ctx context.Context, a *app) error {
		repo, closer, err := a.repository(ctx)
		if err != nil {
			return err
		}
		defer closer.Close()

		revision := lsTreeRevision
		if revision == "" {
			if revision, err = repo.HeadID(ctx); err != nil {
				return err
			}
		}
		sources, err := repo.ListSources(ctx, revision)
		if err != nil {
			return err
		}
		if sources == nil {
			sources = []string{}
		}
		return printResponse(cmd.OutOrStdout(), &lsTreeResponse{Revision: revision, Sources: sources})
	})
}
