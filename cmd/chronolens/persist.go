package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"chronolens/internal/repository"
)

var persistCmd = &cobra.Command{
	Use:   "persist",
	Short: "Persist the snapshot and history of the repository",
	Long: `Persist the head snapshot and the whole history of the repository in the
store directory (default: .chronolens), replacing any previous store.

A store whose head is already the repository's head is left as is. Progress
is reported on stderr.

Examples:
  chronolens persist
  chronolens persist --quiet --format json`,
	Args: cobra.NoArgs,
	RunE: runPersist,
}

func init() {
	rootCmd.AddCommand(persistCmd)
}

// persistResponse is the result of a persist run.
type persistResponse struct {
	Head        string    `json:"head" yaml:"head"`
	Revisions   int       `json:"revisions" yaml:"revisions"`
	Sources     int       `json:"sources" yaml:"sources"`
	RunID       string    `json:"runId" yaml:"runId"`
	Compression string    `json:"compression" yaml:"compression"`
	PersistedAt time.Time `json:"persistedAt" yaml:"persistedAt"`
	Store       string    `json:"store" yaml:"store"`
}

func (r *persistResponse) formatHuman(b *strings.Builder) {
	fmt.Fprintf(b, "Persisted %d revision(s) and %d source(s) at %s\n", r.Revisions, r.Sources, r.Head)
	fmt.Fprintf(b, "  Store: %s (%s)\n", r.Store, r.Compression)
	fmt.Fprintf(b, "  Run:   %s at %s\n", r.RunID, r.PersistedAt.Format(time.RFC3339))
}

func runPersist(cmd *cobra.Command, args []string) error {
	return withApp(cmd.ErrOrStderr(), func(ctx context.Context, a *app) error {
		start := time.Now()
		live, err := a.live(ctx)
		if err != nil {
			return err
		}

		var listener repository.ProgressListener = repository.NopListener{}
		if !quietFlag {
			listener = newProgressPrinter(cmd.ErrOrStderr())
		}
		stored, err := repository.Persist(ctx, live, a.layout, listener, a.persistOptions())
		if err != nil {
			return err
		}
		defer stored.Close()

		m := stored.Marker()
		a.logger.Info("Persist completed",
			"head", m.Head,
			"revisions", m.Revisions,
			"duration", time.Since(start).Milliseconds(),
		)
		return printResponse(cmd.OutOrStdout(), &persistResponse{
			Head:        m.Head,
			Revisions:   m.Revisions,
			Sources:     m.Sources,
			RunID:       m.RunID,
			Compression: string(m.Compression),
			PersistedAt: m.PersistedAt,
			Store:       a.layout.Store(),
		})
	})
}

// progressPrinter reports persist progress as single updating lines.
type progressPrinter struct {
	w     io.Writer
	total int
	done  int
}

func newProgressPrinter(w io.Writer) *progressPrinter {
	return &progressPrinter{w: w}
}

func (p *progressPrinter) OnSnapshotStart(headID string, sourceCount int) {
	p.total, p.done = sourceCount, 0
	fmt.Fprintf(p.w, "Persisting snapshot of %s (%d sources)\n", headID, sourceCount)
}

func (p *progressPrinter) OnSourcePersisted(path string) {
	p.done++
	fmt.Fprintf(p.w, "\r  %d/%d sources", p.done, p.total)
}

func (p *progressPrinter) OnSnapshotEnd() {
	fmt.Fprintln(p.w)
}

func (p *progressPrinter) OnHistoryStart(revisionCount int) {
	p.total, p.done = revisionCount, 0
	fmt.Fprintf(p.w, "Persisting history (%d revisions)\n", revisionCount)
}

func (p *progressPrinter) OnTransactionPersisted(revisionID string) {
	p.done++
	fmt.Fprintf(p.w, "\r  %d/%d revisions", p.done, p.total)
}

func (p *progressPrinter) OnHistoryEnd() {
	fmt.Fprintln(p.w)
}
