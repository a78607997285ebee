package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
)

var revListCmd = &cobra.Command{
	Use:   "rev-list",
	Short: "List the revisions up to head, oldest first",
	Args:  cobra.NoArgs,
	RunE:  runRevList,
}

func init() {
	rootCmd.AddCommand(revListCmd)
}

type revListResponse struct {
	Head      string   `json:"head" yaml:"head"`
	Revisions []string `json:"revisions" yaml:"revisions"`
}

func (r *revListResponse) formatHuman(b *strings.Builder) {
	for _, id := range r.Revisions {
		b.WriteString(id + "\n")
	}
}

func runRevList(cmd *cobra.Command, args []string) error {
	return withApp(cmd.ErrOrStderr(), func(ctx context.Context, a *app) error {
		repo, closer, err := a.repository(ctx)
		if err != nil {
			return err
		}
		defer closer.Close()

		head, err := repo.HeadID(ctx)
		if err != nil {
			return err
		}
		revisions, err := repo.ListRevisions(ctx)
		if err != nil {
			return err
		}
		return printResponse(cmd.OutOrStdout(), &revListResponse{Head: head, Revisions: revisions})
	})
}
