package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"chronolens/internal/repository"
)

var cleanForceUnlock bool

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove the persisted store",
	Long: `Remove the persisted store and any staging directory left by an
interrupted persist run.

Examples:
  chronolens clean
  chronolens clean --force-unlock   # after a crashed persist left its lock`,
	Args: cobra.NoArgs,
	RunE: runClean,
}

func init() {
	cleanCmd.Flags().BoolVar(&cleanForceUnlock, "force-unlock", false, "Remove a stale store lock first")
	rootCmd.AddCommand(cleanCmd)
}

type cleanResponse struct {
	Store string `json:"store" yaml:"store"`
}

func (r *cleanResponse) formatHuman(b *strings.Builder) {
	fmt.Fprintf(b, "Removed %s\n", r.Store)
}

func runClean(cmd *cobra.Command, args []string) error {
	return withApp(cmd.ErrOrStderr(), func(ctx context.Context, a *app) error {
		if err := repository.Clean(a.layout, cleanForceUnlock); err != nil {
			return err
		}
		a.logger.Info("Store removed", "dir", a.layout.Store())
		return printResponse(cmd.OutOrStdout(), &cleanResponse{Store: a.layout.Store()})
	})
}
