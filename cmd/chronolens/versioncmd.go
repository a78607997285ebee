package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"chronolens/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := OutputFormat(formatFlag).validate(); err != nil {
			return err
		}
		return printResponse(cmd.OutOrStdout(), &versionResponse{version.Get()})
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

type versionResponse struct {
	version.Details `yaml:",inline"`
}

func (r *versionResponse) formatHuman(b *strings.Builder) {
	b.WriteString(version.Full() + "\n")
	fmt.Fprintf(b, "Store schema: %d\n", r.StoreSchema)
}
