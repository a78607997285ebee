package coupling

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"chronolens/internal/edit"
	"chronolens/internal/errors"
	"chronolens/internal/history"
	"chronolens/internal/model"
)

// Analyzer performs co-change analysis over a history
type Analyzer struct {
	logger *slog.Logger
}

// NewAnalyzer creates a new coupling analyzer
func NewAnalyzer(logger *slog.Logger) *Analyzer {
	return &Analyzer{logger: logger}
}

// Analyze counts, for every node other than the target, its ancestors and
// its descendants, in how many of the target's revisions it changed too.
func (a *Analyzer) Analyze(ctx context.Context, seq history.Sequence, opts AnalyzeOptions) (*CouplingAnalysis, error) {
	if !model.IsValidID(opts.Target) {
		return nil, errors.Newf(errors.InvalidArgument, "Invalid id '%s'", opts.Target)
	}
	if opts.MinCorrelation <= 0 {
		opts.MinCorrelation = 0.3
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}

	a.logger.Debug("Starting coupling analysis",
		"target", opts.Target,
		"minCorrelation", opts.MinCorrelation,
		"since", opts.Since,
	)

	result := &CouplingAnalysis{
		Target:          Target{ID: opts.Target},
		Correlations:    []Correlation{},
		Recommendations: []string{},
	}
	coChangeCounts := make(map[string]int)
	for entry, err := range seq {
		if err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.Date.Before(opts.Since) {
			continue
		}
		changed := ChangedIDs(entry)
		if !slices.Contains(changed, opts.Target) {
			continue
		}

		if result.Target.RevisionCount == 0 {
			result.Target.FirstChanged = entry.Date
		}
		result.Target.RevisionCount++
		result.Target.LastChanged = entry.Date
		for _, id := range changed {
			if !related(opts.Target, id) {
				coChangeCounts[id]++
			}
		}
	}

	if result.Target.RevisionCount == 0 {
		result.Insights = []string{fmt.Sprintf("No changes of %s found in the history", opts.Target)}
		return result, nil
	}

	total := result.Target.RevisionCount
	for id, count := range coChangeCounts {
		correlation := float64(count) / float64(total)
		if correlation >= opts.MinCorrelation {
			result.Correlations = append(result.Correlations, Correlation{
				ID:            id,
				Path:          model.SourcePath(id),
				Correlation:   correlation,
				CoChangeCount: count,
				TotalChanges:  total,
				Level:         GetCorrelationLevel(correlation),
			})
		}
	}

	// Sort by correlation descending
	slices.SortFunc(result.Correlations, func(x, y Correlation) int {
		if c := cmp.Compare(y.Correlation, x.Correlation); c != 0 {
			return c
		}
		return cmp.Compare(x.ID, y.ID)
	})

	// Apply limit
	if len(result.Correlations) > opts.Limit {
		result.Correlations = result.Correlations[:opts.Limit]
	}

	result.Insights = generateInsights(result.Correlations, opts.Target)
	result.Recommendations = generateRecommendations(result.Correlations, opts.Target)
	return result, nil
}

// related reports whether id is target or one of its ancestors or
// descendants. Those change with the target by construction.
func related(target, id string) bool {
	if id == target {
		return true
	}
	if strings.HasPrefix(id, target) && strings.ContainsRune(":#", rune(id[len(target)])) {
		return true
	}
	for p := model.ParentID(target); p != ""; p = model.ParentID(p) {
		if p == id {
			return true
		}
	}
	return false
}

// ChangedIDs returns the ids of the nodes an entry changed, sorted. A source
// file counts as changed when it is edited or removed, and an added node
// brings all of its descendants.
func ChangedIDs(entry history.Entry) []string {
	var ids []string
	for _, change := range entry.Changes {
		switch change.Kind {
		case history.Removed:
			ids = append(ids, change.Path)
		case history.Edited:
			if change.Transaction.IsEmpty() {
				continue
			}
			ids = append(ids, change.Path)
			ids = appendEdits(ids, change.Transaction.Edits)
		}
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}

func appendEdits(ids []string, edits []edit.NodeSetEdit) []string {
	for _, e := range edits {
		switch e := e.(type) {
		case edit.NodeAdd:
			model.Walk(e.Node, func(n model.SourceNode) bool {
				ids = append(ids, n.ID())
				return true
			})
		case edit.NodeRemove:
			ids = append(ids, e.ID)
		case edit.NodeChange:
			ids = append(ids, e.ID)
			if tx, ok := e.Transaction.(*edit.TypeTransaction); ok {
				ids = appendEdits(ids, tx.MemberEdits)
			}
		default:
			panic(fmt.Sprintf("coupling: unknown edit %T", e))
		}
	}
	return ids
}

func isTestPath(path string) bool {
	return strings.HasSuffix(path, "_test.go") ||
		strings.HasSuffix(path, "Test.java") ||
		strings.Contains(path, "/test/")
}

// generateInsights generates insights based on correlations
func generateInsights(correlations []Correlation, target string) []string {
	insights := make([]string, 0)
	targetPath := model.SourcePath(target)

	// Test correlation
	for _, c := range correlations {
		if isTestPath(c.Path) && !isTestPath(targetPath) {
			insights = append(insights, fmt.Sprintf("Changes often require test updates (%d%% correlation)", int(c.Correlation*100)))
			break
		}
	}

	// Cross-file coupling
	files := make(map[string]bool)
	for _, c := range correlations {
		if c.Path != targetPath && (c.Level == "high" || c.Level == "medium") {
			files[c.Path] = true
		}
	}
	if len(files) > 0 {
		insights = append(insights, fmt.Sprintf("Changes regularly spread to %d other file(s)", len(files)))
	}

	// High coupling count
	highCorrelation := 0
	for _, c := range correlations {
		if c.Level == "high" {
			highCorrelation++
		}
	}
	if highCorrelation >= 3 {
		insights = append(insights, fmt.Sprintf("Strong coupling detected with %d other nodes", highCorrelation))
	}

	if len(insights) == 0 {
		insights = append(insights, "No significant coupling patterns detected")
	}
	return insights
}

// generateRecommendations generates recommendations based on correlations
func generateRecommendations(correlations []Correlation, target string) []string {
	recommendations := make([]string, 0)
	if len(correlations) == 0 {
		return recommendations
	}

	// Build recommendation for top correlated nodes
	top := make([]string, 0, 3)
	for i, c := range correlations {
		if i >= 3 {
			break
		}
		top = append(top, c.ID)
	}
	recommendations = append(recommendations,
		fmt.Sprintf("When modifying %s, consider reviewing: %s", model.SimpleID(target), strings.Join(top, ", ")))

	for _, c := range correlations {
		if isTestPath(c.Path) && c.Correlation >= 0.7 {
			recommendations = append(recommendations, fmt.Sprintf("Update tests in %s (%d%% correlation)", c.Path, int(c.Correlation*100)))
			break
		}
	}
	return recommendations
}
