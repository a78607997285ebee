package main

import (
	"fmt"
	"os"

	"chronolens/internal/errors"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		for _, fix := range errors.GetSuggestedFixes(errors.CodeOf(err)) {
			fmt.Fprintf(os.Stderr, "  hint: %s\n    $ %s\n", fix.Description, fix.Command)
		}
		os.Exit(1)
	}
}
