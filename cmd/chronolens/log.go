package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"chronolens/internal/history"
	"chronolens/internal/repository"
)

var logPath string

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show the structural history",
	Long: `Show the history entries of all revisions, oldest first. Each entry lists
the files the revision edited, removed or failed to interpret.

Examples:
  chronolens log
  chronolens log --path src/Main.java
  chronolens log --format json`,
	Args: cobra.NoArgs,
	RunE: runLog,
}

func init() {
	logCmd.Flags().StringVar(&logPath, "path", "", "Only show changes of this source path")
	rootCmd.AddCommand(logCmd)
}

type logChange struct {
	Path  string `json:"path" yaml:"path"`
	Kind  string `json:"kind" yaml:"kind"`
	Edits int    `json:"edits,omitempty" yaml:"edits,omitempty"`
}

type logEntry struct {
	Revision string      `json:"revision" yaml:"revision"`
	Date     time.Time   `json:"date" yaml:"date"`
	Author   string      `json:"author" yaml:"author"`
	Changes  []logChange `json:"changes" yaml:"changes"`
}

type logResponse struct {
	Entries []logEntry `json:"entries" yaml:"entries"`
}

func (r *logResponse) formatHuman(b *strings.Builder) {
	for _, e := range r.Entries {
		fmt.Fprintf(b, "%s %s %s\n", e.Revision, e.Date.Format(time.RFC3339), e.Author)
		for _, c := range e.Changes {
			if c.Edits > 0 {
				fmt.Fprintf(b, "  %-15s %s (%d edits)\n", c.Kind, c.Path, c.Edits)
			} else {
				fmt.Fprintf(b, "  %-15s %s\n", c.Kind, c.Path)
			}
		}
	}
}

// newLogEntry converts e, keeping only the change of path if path is set.
func newLogEntry(e history.Entry, path string) (logEntry, bool) {
	entry := logEntry{Revision: e.Revision, Date: e.Date, Author: e.Author, Changes: []logChange{}}
	for _, c := range e.Changes {
		if path != "" && c.Path != path {
			continue
		}
		change := logChange{Path: c.Path, Kind: c.Kind.String()}
		if c.Transaction != nil {
			change.Edits = len(c.Transaction.Edits)
		}
		entry.Changes = append(entry.Changes, change)
	}
	return entry, path == "" || len(entry.Changes) > 0
}

func runLog(cmd *cobra.Command, args []string) error {
	if logPath != "" {
		if err := repository.CheckPath(logPath); err != nil {
			return err
		}
	}
	return withApp(cmd.ErrOrStderr(), func(ctx context.Context, a *app) error {
		repo, closer, err := a.repository(ctx)
		if err != nil {
			return err
		}
		defer closer.Close()

		resp := &logResponse{Entries: []logEntry{}}
		for e, err := range repo.GetHistory(ctx) {
			if err != nil {
				return err
			}
			if entry, ok := newLogEntry(e, logPath); ok {
				resp.Entries = append(resp.Entries, entry)
			}
		}
		return printResponse(cmd.OutOrStdout(), resp)
	})
}
