// Package coupling provides co-change analysis for nodes. It detects which
// nodes historically change in the same revisions as a target node.
package coupling

import "time"

// Correlation represents a correlation between the target and another node
type Correlation struct {
	// What changes with the target
	ID   string `json:"id" yaml:"id"`
	Path string `json:"path" yaml:"path"` // Source file declaring the node

	// Correlation strength
	Correlation   float64 `json:"correlation" yaml:"correlation"`     // 0-1
	CoChangeCount int     `json:"coChangeCount" yaml:"coChangeCount"` // revisions changed together
	TotalChanges  int     `json:"totalChanges" yaml:"totalChanges"`   // revisions the target changed

	// Classification
	Level string `json:"level" yaml:"level"` // "high" | "medium" | "low"
}

// Target summarizes the changes of the analyzed node
type Target struct {
	ID            string    `json:"id" yaml:"id"`
	RevisionCount int       `json:"revisionCount" yaml:"revisionCount"`
	FirstChanged  time.Time `json:"firstChanged,omitempty" yaml:"firstChanged,omitempty"`
	LastChanged   time.Time `json:"lastChanged,omitempty" yaml:"lastChanged,omitempty"`
}

// CouplingAnalysis represents the result of a coupling analysis
type CouplingAnalysis struct {
	Target          Target        `json:"target" yaml:"target"`
	Correlations    []Correlation `json:"correlations" yaml:"correlations"`
	Insights        []string      `json:"insights" yaml:"insights"`
	Recommendations []string      `json:"recommendations" yaml:"recommendations"`
}

// AnalyzeOptions configures the coupling analysis
type AnalyzeOptions struct {
	Target         string    // Node id to analyze
	MinCorrelation float64   // Minimum correlation threshold (default: 0.3)
	Since          time.Time // Ignore revisions before this time (zero: all)
	Limit          int       // Max results to return (default: 20)
}

// GetCorrelationLevel returns the correlation level based on the value
func GetCorrelationLevel(correlation float64) string {
	switch {
	case correlation >= 0.8:
		return "high"
	case correlation >= 0.5:
		return "medium"
	default:
		return "low"
	}
}
