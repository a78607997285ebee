package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"chronolens/internal/coupling"
)

var (
	couplingID             string
	couplingMinCorrelation float64
	couplingSince          string
	couplingLimit          int
)

var couplingCmd = &cobra.Command{
	Use:   "coupling",
	Short: "Find co-change patterns",
	Long: `Find nodes that historically change together with a target node.

Walks the structural history and counts, for every other node, in how many
of the target's revisions it changed too. This reveals coupling between
functions and types that the file-level history hides.

Output includes:
  - Correlated nodes with correlation scores
  - Co-change counts
  - Insights about coupling patterns
  - Recommendations

Examples:
  chronolens coupling --id 'src/Main.java:Main#run()'
  chronolens coupling --id internal/app.go:Server --min-correlation=0.5
  chronolens coupling --id internal/app.go --since 2024-01-01`,
	Args: cobra.NoArgs,
	RunE: runCoupling,
}

func init() {
	couplingCmd.Flags().StringVar(&couplingID, "id", "", "Target node id")
	couplingCmd.Flags().Float64Var(&couplingMinCorrelation, "min-correlation", 0, "Minimum correlation threshold (0-1, default: coupling.minCorrelation)")
	couplingCmd.Flags().StringVar(&couplingSince, "since", "", "Ignore revisions before this date (YYYY-MM-DD)")
	couplingCmd.Flags().IntVar(&couplingLimit, "limit", 0, "Maximum results to return (default: coupling.limit)")
	_ = couplingCmd.MarkFlagRequired("id")
	rootCmd.AddCommand(couplingCmd)
}

type couplingResponse struct {
	coupling.CouplingAnalysis `yaml:",inline"`
}

func (r *couplingResponse) formatHuman(b *strings.Builder) {
	t := r.Target
	fmt.Fprintf(b, "Coupling of %s\n", t.ID)
	b.WriteString(strings.Repeat("=", 60) + "\n")
	if t.RevisionCount > 0 {
		fmt.Fprintf(b, "Changed in %d revision(s) between %s and %s\n\n",
			t.RevisionCount, t.FirstChanged.Format("2006-01-02"), t.LastChanged.Format("2006-01-02"))
	}
	if len(r.Correlations) > 0 {
		b.WriteString("Correlations:\n")
		for _, c := range r.Correlations {
			fmt.Fprintf(b, "  %3.0f%%  %-6s  %d/%d  %s\n",
				c.Correlation*100, c.Level, c.CoChangeCount, c.TotalChanges, c.ID)
		}
		b.WriteString("\n")
	}
	if len(r.Insights) > 0 {
		b.WriteString("Insights:\n")
		for _, s := range r.Insights {
			fmt.Fprintf(b, "  - %s\n", s)
		}
	}
	if len(r.Recommendations) > 0 {
		b.WriteString("Recommendations:\n")
		for _, s := range r.Recommendations {
			fmt.Fprintf(b, "  - %s\n", s)
		}
	}
}

func runCoupling(cmd *cobra.Command, args []string) error {
	var since time.Time
	if couplingSince != "" {
		var err error
		if since, err = time.Parse("2006-01-02", couplingSince); err != nil {
			return fmt.Errorf("invalid --since date %q: %w", couplingSince, err)
		}
	}
	return withApp(cmd.ErrOrStderr(), func(ctx context.Context, a *app) error {
		start := time.Now()
		opts := coupling.AnalyzeOptions{
			Target:         couplingID,
			MinCorrelation: a.cfg.Coupling.MinCorrelation,
			Since:          since,
			Limit:          a.cfg.Coupling.Limit,
		}
		if cmd.Flags().Changed("min-correlation") {
			opts.MinCorrelation = couplingMinCorrelation
		}
		if cmd.Flags().Changed("limit") {
			opts.Limit = couplingLimit
		}

		repo, closer, err := a.repository(ctx)
		if err != nil {
			return err
		}
		defer closer.Close()

		analyzer := coupling.NewAnalyzer(a.logger.With("component", "coupling"))
		result, err := analyzer.Analyze(ctx, repo.GetHistory(ctx), opts)
		if err != nil {
			return err
		}

		a.logger.Debug("Coupling analysis completed",
			"target", couplingID,
			"correlations", len(result.Correlations),
			"duration", time.Since(start).Milliseconds(),
		)
		return printResponse(cmd.OutOrStdout(), &couplingResponse{*result})
	})
}
