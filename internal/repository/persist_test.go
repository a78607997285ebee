package repository

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"chronolens/internal/codec"
	"chronolens/internal/errors"
	"chronolens/internal/history"
	"chronolens/internal/model"
	"chronolens/internal/paths"
	"chronolens/internal/slogutil"
	"chronolens/internal/storage"
	"chronolens/internal/testutil"
)

type recorder struct {
	calls []string
}

func (r *recorder) OnSnapshotStart(headID string, sourceCount int) {
	r.calls = append(r.calls, fmt.Sprintf("snapshot %s %d", headID, sourceCount))
}
func (r *recorder) OnSourcePersisted(path string) { r.calls = append(r.calls, "source "+path) }
func (r *recorder) OnSnapshotEnd()                { r.calls = append(r.calls, "snapshot end") }
func (r *recorder) OnHistoryStart(revisionCount int) {
	r.calls = append(r.calls, fmt.Sprintf("history %d", revisionCount))
}
func (r *recorder) OnTransactionPersisted(id string) { r.calls = append(r.calls, "revision "+id) }
func (r *recorder) OnHistoryEnd()                    { r.calls = append(r.calls, "history end") }

func persistFixture(t *testing.T, live Repository, listener ProgressListener) (*Persistent, paths.Layout) {
	t.Helper()
	layout := paths.NewLayout(t.TempDir(), "")
	p, err := Persist(context.Background(), live, layout, listener, PersistOptions{Workers: 1})
	if err != nil {
		t.Fatalf("Persist() error = %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return p, layout
}

func TestPersist_ProgressProtocol(t *testing.T) {
	rec := &recorder{}
	persistFixture(t, newInteractive(newFixture()), rec)

	want := []string{
		"snapshot r4 2",
		"source " + brokenPath,
		"source " + mainPath,
		"snapshot end",
		"history 4",
		"revision r1",
		"revision r2",
		"revision r3",
		"revision r4",
		"history end",
	}
	if !slices.Equal(rec.calls, want) {
		t.Errorf("listener calls =\n%v\nwant\n%v", rec.calls, want)
	}
}

func TestPersist_MatchesLiveRepository(t *testing.T) {
	ctx := context.Background()
	live := newInteractive(newFixture())
	stored, _ := persistFixture(t, live, nil)

	head, _ := stored.HeadID(ctx)
	if head != "r4" {
		t.Errorf("HeadID() = %q, want r4", head)
	}
	revs, _ := stored.ListRevisions(ctx)
	liveRevs, _ := live.ListRevisions(ctx)
	if !slices.Equal(revs, liveRevs) {
		t.Fatalf("ListRevisions() = %v, want %v", revs, liveRevs)
	}

	for _, rev := range append([]string{""}, revs...) {
		sources, err := stored.ListSources(ctx, rev)
		if err != nil {
			t.Fatalf("ListSources(%q) error = %v", rev, err)
		}
		liveSources, _ := live.ListSources(ctx, rev)
		if !slices.Equal(sources, liveSources) {
			t.Errorf("ListSources(%q) = %v, want %v", rev, sources, liveSources)
		}

		for _, path := range []string{mainPath, utilPath, brokenPath} {
			got, err := stored.GetSource(ctx, path, rev)
			if err != nil {
				t.Fatalf("GetSource(%s, %q) error = %v", path, rev, err)
			}
			want, _ := live.GetSource(ctx, path, rev)
			if !equalSources(got, want) {
				t.Errorf("GetSource(%s, %q) = %v, want %v", path, rev, got, want)
			}
		}

		snapshot, err := stored.GetSnapshot(ctx, rev)
		if err != nil {
			t.Fatalf("GetSnapshot(%q) error = %v", rev, err)
		}
		liveSnapshot, _ := live.GetSnapshot(ctx, rev)
		if !snapshot.Equal(liveSnapshot) {
			t.Errorf("GetSnapshot(%q) = %v, want %v", rev, snapshot.Paths(), liveSnapshot.Paths())
		}
	}

	entries, err := history.Collect(stored.GetHistory(ctx))
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	liveEntries, _ := history.Collect(live.GetHistory(ctx))
	if len(entries) != len(liveEntries) {
		t.Fatalf("GetHistory() has %d entries, want %d", len(entries), len(liveEntries))
	}
	for i, e := range entries {
		w := liveEntries[i]
		if e.Revision != w.Revision || e.Author != w.Author || !e.Date.Equal(w.Date) {
			t.Errorf("entry %d = %s/%s/%s, want %s/%s/%s", i, e.Revision, e.Author, e.Date, w.Revision, w.Author, w.Date)
		}
		if len(e.Changes) != len(w.Changes) {
			t.Errorf("entry %s has %d changes, want %d", e.Revision, len(e.Changes), len(w.Changes))
			continue
		}
		for j, c := range e.Changes {
			wc := w.Changes[j]
			if c.Path != wc.Path || c.Kind != wc.Kind {
				t.Errorf("entry %s change %d = %s %v, want %s %v", e.Revision, j, c.Path, c.Kind, wc.Path, wc.Kind)
			}
			got, _ := codec.MarshalTransaction(c.Transaction)
			want, _ := codec.MarshalTransaction(wc.Transaction)
			if c.Kind == history.Edited && !bytes.Equal(got, want) {
				t.Errorf("entry %s transaction of %s = %s, want %s", e.Revision, c.Path, got, want)
			}
		}
	}
}

func TestPersist_UpToDateStoreIsReused(t *testing.T) {
	ctx := context.Background()
	live := newInteractive(newFixture())
	first, layout := persistFixture(t, live, nil)

	rec := &recorder{}
	second, err := Persist(ctx, live, layout, rec, PersistOptions{})
	if err != nil {
		t.Fatalf("second Persist() error = %v", err)
	}
	defer second.Close()

	if second.Marker().RunID != first.Marker().RunID {
		t.Errorf("store was rewritten: run %s, want %s", second.Marker().RunID, first.Marker().RunID)
	}
	if len(rec.calls) != 0 {
		t.Errorf("listener calls = %v, want none", rec.calls)
	}
}

func TestPersist_NewHeadRebuilds(t *testing.T) {
	ctx := context.Background()
	provider := newFixture()
	live := newInteractive(provider)
	first, layout := persistFixture(t, live, nil)

	provider.Commit("dave", nil, brokenPath)
	second, err := Persist(ctx, live, layout, nil, PersistOptions{})
	if err != nil {
		t.Fatalf("Persist() error = %v", err)
	}
	defer second.Close()

	if second.Marker().RunID == first.Marker().RunID {
		t.Error("store should be rebuilt for a new head")
	}
	if head, _ := second.HeadID(ctx); head != "r5" {
		t.Errorf("HeadID() = %q, want r5", head)
	}
	if sources, _ := second.ListSources(ctx, ""); !slices.Equal(sources, []string{mainPath}) {
		t.Errorf("ListSources() = %v, want [%s]", sources, mainPath)
	}
	if staging, _ := layout.StagingDirs(); len(staging) != 0 {
		t.Errorf("staging directories left behind: %v", staging)
	}
}

func TestPersist_Uncompressed(t *testing.T) {
	ctx := context.Background()
	layout := paths.NewLayout(t.TempDir(), "")
	p, err := Persist(ctx, newInteractive(newFixture()), layout, nil, PersistOptions{Compression: codec.CompressionNone})
	if err != nil {
		t.Fatalf("Persist() error = %v", err)
	}
	defer p.Close()

	file := paths.Files(layout.Store()).SnapshotFile(mainPath, ".json")
	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("snapshot file not written as plain JSON: %v", err)
	}
	if !strings.Contains(string(data), `"@class":"SourceFile"`) {
		t.Errorf("snapshot file = %s, want JSON", data)
	}
}

func TestPersist_VCSErrorsAreCollected(t *testing.T) {
	ctx := context.Background()
	a, b := "src/A.mock", "src/B.mock"
	provider := testutil.NewProvider()
	provider.Commit("alice", map[string]string{a: testutil.Source(model.MustSourceFile(a))})
	provider.Commit("alice", map[string]string{a: testutil.Source(model.MustSourceFile(a, model.MustVariable(a+"#x", nil, nil)))})
	provider.Commit("alice", map[string]string{b: testutil.Source(model.MustSourceFile(b))})
	provider.Commit("alice", map[string]string{a: testutil.Source(model.MustSourceFile(a, model.MustVariable(a+"#y", nil, nil)))})
	provider.Fail("r2", fmt.Errorf("connection reset"))
	provider.Fail("r3", fmt.Errorf("connection reset"))

	layout := paths.NewLayout(t.TempDir(), "")
	rec := &recorder{}
	_, err := Persist(ctx, newInteractive(provider), layout, rec, PersistOptions{})
	if !errors.HasCode(err, errors.VCSIO) {
		t.Fatalf("Persist() error = %v, want VCS_IO", err)
	}
	for _, rev := range []string{"'r2'", "'r3'"} {
		if !strings.Contains(err.Error(), rev) {
			t.Errorf("Persist() error = %v, want it to name %s", err, rev)
		}
	}
	if slices.Contains(rec.calls, "history end") {
		t.Error("a failed run must not end the history phase")
	}

	p, err := Load(ctx, layout, LoadOptions{})
	if err != nil || p != nil {
		t.Errorf("Load() = %v, %v; want no store", p, err)
	}
	if staging, _ := layout.StagingDirs(); len(staging) != 0 {
		t.Errorf("staging directories left behind: %v", staging)
	}
}

func TestPersist_StoreBusy(t *testing.T) {
	layout := paths.NewLayout(t.TempDir(), "")
	lock, err := acquireLock(layout.Lock())
	if err != nil {
		t.Fatalf("acquireLock() error = %v", err)
	}
	defer lock.release()

	_, err = Persist(context.Background(), newInteractive(newFixture()), layout, nil, PersistOptions{})
	if !errors.HasCode(err, errors.StoreBusy) {
		t.Errorf("Persist() error = %v, want STORE_BUSY", err)
	}
	if err := Clean(layout, false); !errors.HasCode(err, errors.StoreBusy) {
		t.Errorf("Clean() error = %v, want STORE_BUSY", err)
	}
}

func TestClean(t *testing.T) {
	ctx := context.Background()

	t.Run("empty store", func(t *testing.T) {
		layout := paths.NewLayout(t.TempDir(), "")
		if err := Clean(layout, false); err != nil {
			t.Fatalf("Clean() error = %v", err)
		}
		p, err := Load(ctx, layout, LoadOptions{})
		if err != nil || p != nil {
			t.Errorf("Load() = %v, %v; want no store", p, err)
		}
	})

	t.Run("persisted store", func(t *testing.T) {
		p, layout := persistFixture(t, newInteractive(newFixture()), nil)
		p.Close()
		if err := os.MkdirAll(layout.Staging("leftover"), 0755); err != nil {
			t.Fatal(err)
		}

		if err := Clean(layout, false); err != nil {
			t.Fatalf("Clean() error = %v", err)
		}
		if loaded, err := Load(ctx, layout, LoadOptions{}); err != nil || loaded != nil {
			t.Errorf("Load() = %v, %v; want no store", loaded, err)
		}
		if staging, _ := layout.StagingDirs(); len(staging) != 0 {
			t.Errorf("staging directories left behind: %v", staging)
		}
		if err := Clean(layout, false); err != nil {
			t.Errorf("second Clean() error = %v", err)
		}
	})

	t.Run("force unlock", func(t *testing.T) {
		layout := paths.NewLayout(t.TempDir(), "")
		if err := os.WriteFile(layout.Lock(), []byte("12345"), 0644); err != nil {
			t.Fatal(err)
		}
		if err := Clean(layout, true); err != nil {
			t.Fatalf("Clean(forceUnlock) error = %v", err)
		}
		if _, err := os.Stat(layout.Lock()); !os.IsNotExist(err) {
			t.Error("lock file should be removed")
		}
	})
}

func TestLoad_VerifyFull(t *testing.T) {
	_, layout := persistFixture(t, newInteractive(newFixture()), nil)

	p, err := Load(context.Background(), layout, LoadOptions{Verify: VerifyFull})
	if err != nil {
		t.Fatalf("Load(full) error = %v", err)
	}
	defer p.Close()
	if p.Marker().Revisions != 4 || p.Marker().Sources != 2 {
		t.Errorf("Marker() = %+v", p.Marker())
	}
}

func TestLoad_Corrupted(t *testing.T) {
	snapshotFile := func(layout paths.Layout, path string) string {
		return paths.Files(layout.Store()).SnapshotFile(path, codec.CompressionZstd.Extension())
	}
	tests := []struct {
		name   string
		tamper func(t *testing.T, layout paths.Layout)
	}{
		{"checksum mismatch", func(t *testing.T, layout paths.Layout) {
			writeFile(t, snapshotFile(layout, mainPath), "tampered")
		}},
		{"missing snapshot file", func(t *testing.T, layout paths.Layout) {
			if err := os.Remove(snapshotFile(layout, mainPath)); err != nil {
				t.Fatal(err)
			}
		}},
		{"extra snapshot file", func(t *testing.T, layout paths.Layout) {
			writeFile(t, snapshotFile(layout, "src/Extra.mock"), "extra")
		}},
		{"unexpected file", func(t *testing.T, layout paths.Layout) {
			writeFile(t, filepath.Join(paths.Files(layout.Store()).SnapshotDir(), "notes.txt"), "notes")
		}},
		{"missing marker", func(t *testing.T, layout paths.Layout) {
			if err := os.Remove(paths.Files(layout.Store()).Marker()); err != nil {
				t.Fatal(err)
			}
		}},
		{"unreadable marker", func(t *testing.T, layout paths.Layout) {
			writeFile(t, paths.Files(layout.Store()).Marker(), "head = [")
		}},
		{"missing history log", func(t *testing.T, layout paths.Layout) {
			if err := os.Remove(paths.Files(layout.Store()).HistoryDB()); err != nil {
				t.Fatal(err)
			}
		}},
		{"history disagrees with snapshot", func(t *testing.T, layout paths.Layout) {
			db, err := storage.Open(paths.Files(layout.Store()).HistoryDB(), slogutil.NewDiscardLogger())
			if err != nil {
				t.Fatal(err)
			}
			defer db.Close()
			err = db.WithTx(func(tx *sql.Tx) error {
				_, err := tx.Exec("DELETE FROM changes WHERE path = ?", brokenPath)
				return err
			})
			if err != nil {
				t.Fatal(err)
			}
		}},
		{"undecodable log row", func(t *testing.T, layout paths.Layout) {
			db, err := storage.Open(paths.Files(layout.Store()).HistoryDB(), slogutil.NewDiscardLogger())
			if err != nil {
				t.Fatal(err)
			}
			defer db.Close()
			err = db.WithTx(func(tx *sql.Tx) error {
				_, err := tx.Exec("UPDATE changes SET payload = ? WHERE kind = 'edited'", []byte("{"))
				return err
			})
			if err != nil {
				t.Fatal(err)
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, layout := persistFixture(t, newInteractive(newFixture()), nil)
			p.Close()
			tt.tamper(t, layout)

			loaded, err := Load(context.Background(), layout, LoadOptions{})
			if !errors.HasCode(err, errors.CorruptedHistory) {
				if loaded != nil {
					loaded.Close()
				}
				t.Fatalf("Load() error = %v, want CORRUPTED_HISTORY", err)
			}

			// a corrupted store is rebuilt by the next persist
			rebuilt, err := Persist(context.Background(), newInteractive(newFixture()), layout, nil, PersistOptions{})
			if err != nil {
				t.Fatalf("Persist() over a corrupted store error = %v", err)
			}
			rebuilt.Close()
		})
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}
