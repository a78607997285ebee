// Package version holds the chronolens build version.
package version

import "chronolens/internal/storage"

// Overridden at build time:
// go build -ldflags "-X chronolens/internal/version.Version=1.0.0 -X chronolens/internal/version.Commit=abc123"
var (
	Version   = "0.4.0"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Details is the machine-readable form printed by `chronolens version`.
type Details struct {
	Version     string `json:"version" yaml:"version"`
	Commit      string `json:"commit" yaml:"commit"`
	BuildDate   string `json:"buildDate" yaml:"buildDate"`
	StoreSchema int    `json:"storeSchema" yaml:"storeSchema"`
}

// Info returns a formatted version string
func Info() string {
	if Commit != "unknown" && len(Commit) > 7 {
		return Version + " (" + Commit[:7] + ")"
	}
	return Version
}

// Full returns complete version information
func Full() string {
	return "chronolens version " + Version + "\n" +
		"Commit: " + Commit + "\n" +
		"Built: " + BuildDate
}

// Get returns the current build details.
func Get() Details {
	return Details{
		Version:     Version,
		Commit:      Commit,
		BuildDate:   BuildDate,
		StoreSchema: storage.SchemaVersion,
	}
}
