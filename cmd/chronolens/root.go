package main

import (
	"github.com/spf13/cobra"

	"chronolens/internal/version"
)

var (
	repoFlag   string
	verbosity  int
	quietFlag  bool
	formatFlag string
)

var rootCmd = &cobra.Command{
	Use:   "chronolens",
	Short: "ChronoLens - structural history of source code",
	Long: `ChronoLens models the sources of a repository as trees of types, functions
and variables and records how every node changed across the revision history.

The history can be queried live from the version control system or persisted
once with 'chronolens persist' and read back from the store.`,
	Version:       version.Info(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("chronolens version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&repoFlag, "repo", "", "Repository root (default: nearest parent with .git)")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (repeatable)")
	rootCmd.PersistentFlags().BoolVar(&quietFlag, "quiet", false, "Disable logging")
	rootCmd.PersistentFlags().StringVar(&formatFlag, "format", string(FormatHuman), "Output format (human, json, yaml)")
}
