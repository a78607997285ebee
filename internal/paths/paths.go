// Package paths defines where chronolens keeps its files inside a repository
// and converts between repository paths and file system paths.
package paths

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	// DefaultStoreDir is the store directory name used when none is
	// configured.
	DefaultStoreDir = ".chronolens"

	snapshotDir = "snapshot"
	historyDB   = "history.db"
	markerFile  = "HEAD.toml"
	stagingTag  = ".tmp-"
)

// Layout locates the persisted store of one repository. The store directory
// and its siblings (lock, staging directories, log file) all live directly
// under Root so the final rename stays on one file system.
type Layout struct {
	Root     string
	StoreDir string
}

// NewLayout returns the layout of the store named storeDir under repoRoot.
func NewLayout(repoRoot, storeDir string) Layout {
	if storeDir == "" {
		storeDir = DefaultStoreDir
	}
	return Layout{Root: repoRoot, StoreDir: storeDir}
}

// Store returns the committed store directory.
func (l Layout) Store() string { return filepath.Join(l.Root, l.StoreDir) }

// Lock returns the exclusive writer lock file.
func (l Layout) Lock() string { return filepath.Join(l.Root, l.StoreDir+".lock") }

// LogFile returns the default log file of the repository.
func (l Layout) LogFile() string { return filepath.Join(l.Root, l.StoreDir+".log") }

// Staging returns the staging directory of the persist run runID.
func (l Layout) Staging(runID string) string {
	return filepath.Join(l.Root, l.StoreDir+stagingTag+runID)
}

// StagingDirs returns every staging directory left in the repository root.
func (l Layout) StagingDirs() ([]string, error) {
	pattern := filepath.Join(l.Root, l.StoreDir+stagingTag+"*")
	return filepath.Glob(pattern)
}

// StoreFiles names the files of a store rooted at one directory, either
// the committed store or a staging directory.
type StoreFiles struct {
	Dir string
}

// Files returns the file names inside dir.
func Files(dir string) StoreFiles { return StoreFiles{Dir: dir} }

// SnapshotDir returns the directory holding one file per source.
func (f StoreFiles) SnapshotDir() string { return filepath.Join(f.Dir, snapshotDir) }

// SnapshotFile returns the file storing the source at path.
func (f StoreFiles) SnapshotFile(path, ext string) string {
	return JoinRepoPath(f.SnapshotDir(), path) + ext
}

// SourcePath is the inverse of SnapshotFile. ok is false for files without
// the extension.
func (f StoreFiles) SourcePath(file, ext string) (string, bool) {
	rel, err := filepath.Rel(f.SnapshotDir(), file)
	if err != nil || !strings.HasSuffix(rel, ext) {
		return "", false
	}
	return NormalizePath(strings.TrimSuffix(rel, ext)), true
}

// HistoryDB returns the history log database.
func (f StoreFiles) HistoryDB() string { return filepath.Join(f.Dir, historyDB) }

// Marker returns the commit marker written last by a persist run.
func (f StoreFiles) Marker() string { return filepath.Join(f.Dir, markerFile) }

// FindRepoRoot walks up from path to the nearest directory containing
// .git. It returns "" if there is none.
func FindRepoRoot(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return ""
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}

	current := abs
	for {
		if _, err := os.Stat(filepath.Join(current, ".git")); err == nil {
			return current
		}
		parent := filepath.Dir(current)
		if parent == current {
			return ""
		}
		current = parent
	}
}

// NormalizePath converts backslashes to forward slashes.
func NormalizePath(path string) string {
	return filepath.ToSlash(path)
}

// JoinRepoPath joins a directory with a '/'-separated repository path.
func JoinRepoPath(dir string, repoPath string) string {
	parts := strings.Split(strings.ReplaceAll(repoPath, "\\", "/"), "/")
	return filepath.Join(append([]string{dir}, parts...)...)
}
