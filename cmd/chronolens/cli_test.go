//go:build cgo

package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/spf13/pflag"

	"chronolens/internal/errors"
)

// execute runs the CLI with args after resetting every flag to its default.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	reset := func(fs *pflag.FlagSet) {
		fs.VisitAll(func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		})
	}
	reset(rootCmd.PersistentFlags())
	for _, cmd := range rootCmd.Commands() {
		reset(cmd.Flags())
	}

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	_, err := rootCmd.ExecuteC()
	return stdout.String(), err
}

func commitFiles(t *testing.T, root string, repo *git.Repository, n int, files map[string]string) string {
	t.Helper()
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatal(err)
	}
	for path, content := range files {
		if err := os.WriteFile(filepath.Join(root, path), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := wt.Add(path); err != nil {
			t.Fatal(err)
		}
	}
	hash, err := wt.Commit("change", &git.CommitOptions{Author: &object.Signature{
		Name:  "dev",
		Email: "dev@example.com",
		When:  time.Date(2024, 5, 1, n, 0, 0, 0, time.UTC),
	}})
	if err != nil {
		t.Fatal(err)
	}
	return hash.String()
}

func decode[T any](t *testing.T, out string) T {
	t.Helper()
	var v T
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		t.Fatalf("invalid JSON output %q: %v", out, err)
	}
	return v
}

func TestCLI_EndToEnd(t *testing.T) {
	root := t.TempDir()
	repo, err := git.PlainInit(root, false)
	if err != nil {
		t.Fatal(err)
	}
	r1 := commitFiles(t, root, repo, 1, map[string]string{
		"main.go": "package main\n\nfunc main() {\n}\n",
	})
	r2 := commitFiles(t, root, repo, 2, map[string]string{
		"main.go":   "package main\n\nfunc main() {\n\tHelper()\n}\n",
		"util.go":   "package main\n\nfunc Helper() {}\n",
		"README.md": "docs\n",
	})
	base := []string{"--repo", root, "--quiet", "--format", "json"}
	run := func(args ...string) string {
		t.Helper()
		out, err := execute(t, append(args, base...)...)
		if err != nil {
			t.Fatalf("%v: %v", args, err)
		}
		return out
	}

	persisted := decode[persistResponse](t, run("persist"))
	if persisted.Head != r2 || persisted.Revisions != 2 || persisted.Sources != 2 {
		t.Errorf("persist = %+v", persisted)
	}
	if _, err := os.Stat(filepath.Join(root, ".chronolens", "HEAD.toml")); err != nil {
		t.Errorf("store marker missing: %v", err)
	}

	sources := decode[lsTreeResponse](t, run("ls-tree"))
	if !slices.Equal(sources.Sources, []string{"main.go", "util.go"}) {
		t.Errorf("ls-tree = %+v", sources)
	}
	old := decode[lsTreeResponse](t, run("ls-tree", "--rev", r1))
	if !slices.Equal(old.Sources, []string{"main.go"}) {
		t.Errorf("ls-tree --rev = %+v", old)
	}

	revs := decode[revListResponse](t, run("rev-list"))
	if !slices.Equal(revs.Revisions, []string{r1, r2}) {
		t.Errorf("rev-list = %+v", revs)
	}

	node := decode[map[string]interface{}](t, run("model", "--id", "main.go#main()"))
	if node["@class"] != "Function" {
		t.Errorf("model = %v", node)
	}

	log := decode[logResponse](t, run("log", "--path", "util.go"))
	if len(log.Entries) != 1 || log.Entries[0].Revision != r2 {
		t.Errorf("log --path = %+v", log)
	}

	analysis := decode[couplingResponse](t, run("coupling", "--id", "main.go#main()"))
	if analysis.Target.RevisionCount != 2 || len(analysis.Correlations) != 2 {
		t.Errorf("coupling = %+v", analysis)
	}

	run("clean")
	if _, err := os.Stat(filepath.Join(root, ".chronolens")); !os.IsNotExist(err) {
		t.Errorf("store should be removed, stat error = %v", err)
	}

	// without a store, queries read the repository live
	live := decode[revListResponse](t, run("rev-list"))
	if !slices.Equal(live.Revisions, []string{r1, r2}) {
		t.Errorf("live rev-list = %+v", live)
	}
}

func TestCLI_InvalidArguments(t *testing.T) {
	root := t.TempDir()
	if _, err := git.PlainInit(root, false); err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name string
		args []string
	}{
		{"invalid id", []string{"model", "--id", "a//b"}},
		{"invalid revision", []string{"ls-tree", "--rev", "not-a-rev"}},
		{"invalid path", []string{"log", "--path", "../x.go"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, append(tt.args, "--repo", root, "--quiet")...)
			if !errors.HasCode(err, errors.InvalidArgument) {
				t.Errorf("error = %v, want INVALID_ARGUMENT", err)
			}
		})
	}
}
