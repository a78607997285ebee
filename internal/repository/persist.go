package repository

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"chronolens/internal/codec"
	"chronolens/internal/errors"
	"chronolens/internal/history"
	"chronolens/internal/paths"
	"chronolens/internal/slogutil"
	"chronolens/internal/storage"
)

// appendBatch is the number of history entries written per log transaction.
const appendBatch = 64

// PersistOptions configures Persist.
type PersistOptions struct {
	Compression codec.Compression
	Workers     int
	Verify      string
	Logger      *slog.Logger
}

func (o *PersistOptions) defaults() {
	if o.Compression == "" {
		o.Compression = codec.CompressionZstd
	}
	if o.Workers < 1 {
		o.Workers = 4
	}
	if o.Logger == nil {
		o.Logger = slogutil.NewDiscardLogger()
	}
}

// Persist stores the head snapshot and the whole history of live in the
// store of layout and returns the loaded store. A committed store whose head
// is the head of live is returned as is. The new store is built in a
// staging directory and swapped in only once complete; on any error the
// previous store is left untouched.
func Persist(ctx context.Context, live Repository, layout paths.Layout, listener ProgressListener, opts PersistOptions) (*Persistent, error) {
	opts.defaults()
	logger := opts.Logger

	lock, err := acquireLock(layout.Lock())
	if err != nil {
		return nil, err
	}
	defer lock.release()

	headID, err := live.HeadID(ctx)
	if err != nil {
		return nil, err
	}

	existing, err := Load(ctx, layout, LoadOptions{Verify: opts.Verify, Logger: logger})
	switch {
	case err != nil && errors.HasCode(err, errors.CorruptedHistory):
		logger.Warn("Existing store is corrupted, rebuilding it", "error", err.Error())
	case err != nil:
		return nil, err
	case existing != nil && existing.marker.Head == headID:
		logger.Info("Store is up to date", "head", headID)
		return existing, nil
	case existing != nil:
		_ = existing.Close()
	}

	runID := uuid.New().String()
	staging := layout.Staging(runID)
	logger.Info("Persisting repository",
		"head", headID,
		"run", runID,
		"staging", staging,
	)

	w := &storeWriter{
		live:   live,
		headID: headID,
		files:  paths.Files(staging),
		opts:   opts,
		guard:  newProgressGuard(listener),
		logger: logger,
		start:  time.Now(),
		marker: &Marker{Head: headID, RunID: runID, Compression: opts.Compression},
	}
	if err := w.write(ctx); err != nil {
		if rmErr := os.RemoveAll(staging); rmErr != nil {
			logger.Warn("Failed to remove staging directory", "path", staging, "error", rmErr.Error())
		}
		return nil, err
	}

	if err := commit(layout, staging, runID); err != nil {
		_ = os.RemoveAll(staging)
		return nil, err
	}
	logger.Info("Persisted repository",
		"head", headID,
		"sources", w.marker.Sources,
		"revisions", w.marker.Revisions,
		"duration", time.Since(w.start).String(),
	)
	return Load(ctx, layout, LoadOptions{Verify: VerifyQuick, Logger: logger})
}

// commit swaps the staging directory in place of the store. The old store
// is first moved aside under a staging name so Clean removes it if the
// process dies in between.
func commit(layout paths.Layout, staging, runID string) error {
	store := layout.Store()
	old := layout.Staging(runID + "-old")
	if err := os.Rename(store, old); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to move the previous store aside: %w", err)
	}
	if err := os.Rename(staging, store); err != nil {
		_ = os.Rename(old, store)
		return fmt.Errorf("failed to commit the store: %w", err)
	}
	_ = os.RemoveAll(old)
	return nil
}

type storeWriter struct {
	live   Repository
	headID string
	files  paths.StoreFiles
	opts   PersistOptions
	guard  *progressGuard
	logger *slog.Logger
	start  time.Time
	marker *Marker
}

func (w *storeWriter) write(ctx context.Context) error {
	if err := os.MkdirAll(w.files.SnapshotDir(), 0755); err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	if err := w.writeSnapshot(ctx); err != nil {
		return err
	}
	if err := w.writeHistory(ctx); err != nil {
		return err
	}
	w.marker.PersistedAt = time.Now().UTC()
	return w.marker.save(w.files.Marker())
}

func (w *storeWriter) writeSnapshot(ctx context.Context) error {
	sources, err := w.live.ListSources(ctx, w.headID)
	if err != nil {
		return err
	}
	w.guard.OnSnapshotStart(w.headID, len(sources))

	var mu sync.Mutex
	checksums := make(map[string]string, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.opts.Workers)
	for _, path := range sources {
		g.Go(func() error {
			sum, err := w.writeSource(gctx, path)
			if err != nil {
				return err
			}
			mu.Lock()
			checksums[path] = sum
			mu.Unlock()
			w.guard.OnSourcePersisted(path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	w.marker.Sources = len(checksums)
	w.marker.Checksums = checksums
	w.guard.OnSnapshotEnd()
	return nil
}

func (w *storeWriter) writeSource(ctx context.Context, path string) (string, error) {
	source, err := w.live.GetSource(ctx, path, w.headID)
	if err != nil {
		return "", err
	}
	if source == nil {
		return "", errors.Newf(errors.InternalError, "listed source '%s' has no model", path)
	}
	raw, err := codec.MarshalSourceFile(source)
	if err != nil {
		return "", fmt.Errorf("failed to encode '%s': %w", path, err)
	}
	data, err := codec.Compress(w.opts.Compression, raw)
	if err != nil {
		return "", fmt.Errorf("failed to compress '%s': %w", path, err)
	}

	file := w.files.SnapshotFile(path, w.opts.Compression.Extension())
	if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
		return "", fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	if err := os.WriteFile(file, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write snapshot of '%s': %w", path, err)
	}
	return codec.Checksum(data), nil
}

// writeHistory appends every entry of the live history. Revisions failing
// with VCS_IO are collected so that one run reports all of them; the log is
// not written past the first one.
func (w *storeWriter) writeHistory(ctx context.Context) error {
	revisions, err := w.live.ListRevisions(ctx)
	if err != nil {
		return err
	}
	w.guard.OnHistoryStart(len(revisions))

	db, err := storage.Open(w.files.HistoryDB(), w.logger)
	if err != nil {
		return err
	}
	defer db.Close()

	onAppended := func(e history.Entry) { w.guard.OnTransactionPersisted(e.Revision) }
	var (
		batch  []history.Entry
		failed []error
		i      int
	)
	for entry, err := range w.live.GetHistory(ctx) {
		if err != nil {
			if !errors.HasCode(err, errors.VCSIO) {
				return err
			}
			w.logger.Warn("Failed to read revision", "revision", entry.Revision, "error", err.Error())
			failed = append(failed, err)
			i++
			continue
		}
		if i >= len(revisions) || entry.Revision != revisions[i] {
			return errors.Newf(errors.InternalError,
				"history yielded revision '%s' out of order", entry.Revision)
		}
		i++
		if len(failed) > 0 {
			continue
		}
		if batch = append(batch, entry); len(batch) == appendBatch {
			if err := db.Append(ctx, batch, onAppended); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if len(failed) > 0 {
		return stderrors.Join(failed...)
	}
	if i != len(revisions) {
		return errors.Newf(errors.InternalError, "history has %d revisions, expected %d", i, len(revisions))
	}
	if len(batch) > 0 {
		if err := db.Append(ctx, batch, onAppended); err != nil {
			return err
		}
	}

	w.marker.Revisions = len(revisions)
	w.guard.OnHistoryEnd()
	return db.Close()
}

// Clean removes the store of layout and any staging directory left by an
// interrupted run. It succeeds if there is nothing to remove. With
// forceUnlock a lock file left by a crashed process is removed first.
func Clean(layout paths.Layout, forceUnlock bool) error {
	if forceUnlock {
		if err := os.Remove(layout.Lock()); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove lock: %w", err)
		}
	}
	lock, err := acquireLock(layout.Lock())
	if err != nil {
		return err
	}
	defer lock.release()

	if err := os.RemoveAll(layout.Store()); err != nil {
		return fmt.Errorf("failed to remove store: %w", err)
	}
	staging, err := layout.StagingDirs()
	if err != nil {
		return err
	}
	for _, dir := range staging {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("failed to remove staging directory: %w", err)
		}
	}
	return nil
}
