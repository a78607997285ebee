package repository

import (
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"chronolens/internal/codec"
	"chronolens/internal/errors"
	"chronolens/internal/history"
	"chronolens/internal/model"
	"chronolens/internal/patch"
	"chronolens/internal/paths"
	"chronolens/internal/slogutil"
	"chronolens/internal/storage"
)

// Verify modes of Load.
const (
	// VerifyQuick checks the marker, every snapshot file and every log row,
	// and that the log leaves exactly the snapshot paths live.
	VerifyQuick = "quick"
	// VerifyFull also replays the whole log and compares the result with
	// the snapshot.
	VerifyFull = "full"
)

// LoadOptions configures Load.
type LoadOptions struct {
	Verify string
	Logger *slog.Logger
}

// Persistent is a repository read from a committed store. It never changes
// after Load and is safe for concurrent use.
type Persistent struct {
	layout    paths.Layout
	marker    *Marker
	head      model.Project
	revisions []storage.Revision
	seqs      map[string]int
	db        *storage.DB
	logger    *slog.Logger
}

var _ Repository = (*Persistent)(nil)

// Load opens the store of layout. It returns nil and no error if there is
// no store, and a CORRUPTED_HISTORY error if the store is inconsistent.
func Load(ctx context.Context, layout paths.Layout, opts LoadOptions) (*Persistent, error) {
	if opts.Logger == nil {
		opts.Logger = slogutil.NewDiscardLogger()
	}
	if opts.Verify == "" {
		opts.Verify = VerifyQuick
	}

	if _, err := os.Stat(layout.Store()); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to stat store: %w", err)
	}

	files := paths.Files(layout.Store())
	marker, err := loadMarker(files.Marker())
	if err != nil {
		return nil, err
	}
	head, err := readSnapshot(files, marker)
	if err != nil {
		return nil, err
	}

	db, err := storage.OpenReadOnly(files.HistoryDB(), opts.Logger)
	if err != nil {
		var schemaErr *storage.ErrSchemaVersion
		if stderrors.As(err, &schemaErr) {
			return nil, errors.New(errors.CorruptedHistory, "history log has an unsupported schema", err)
		}
		return nil, errors.New(errors.CorruptedHistory, "can't open the history log", err)
	}

	p := &Persistent{
		layout: layout,
		marker: marker,
		head:   head,
		db:     db,
		logger: opts.Logger,
	}
	if err := p.verify(ctx, opts.Verify); err != nil {
		_ = db.Close()
		return nil, err
	}

	opts.Logger.Debug("Loaded store",
		"head", marker.Head,
		"revisions", len(p.revisions),
		"sources", head.Len(),
		"verify", opts.Verify,
	)
	return p, nil
}

// readSnapshot decodes every snapshot file and checks them against the
// marker.
func readSnapshot(files paths.StoreFiles, marker *Marker) (model.Project, error) {
	ext := marker.Compression.Extension()
	var found []string
	err := filepath.WalkDir(files.SnapshotDir(), func(file string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		path, ok := files.SourcePath(file, ext)
		if !ok {
			return errors.Newf(errors.CorruptedHistory, "unexpected file '%s' in snapshot", file)
		}
		found = append(found, path)
		return nil
	})
	if err != nil {
		if errors.HasCode(err, errors.CorruptedHistory) {
			return model.Project{}, err
		}
		return model.Project{}, errors.New(errors.CorruptedHistory, "can't read the snapshot", err)
	}

	slices.Sort(found)
	if want := marker.Paths(); !slices.Equal(found, want) {
		return model.Project{}, errors.Newf(errors.CorruptedHistory,
			"snapshot has %d sources, marker lists %d", len(found), len(want))
	}

	sources := make([]*model.SourceFile, 0, len(found))
	for _, path := range found {
		source, err := readSource(files, marker, path)
		if err != nil {
			return model.Project{}, err
		}
		sources = append(sources, source)
	}
	project, err := model.NewProject(sources...)
	if err != nil {
		return model.Project{}, errors.New(errors.CorruptedHistory, "invalid snapshot", err)
	}
	return project, nil
}

func readSource(files paths.StoreFiles, marker *Marker, path string) (*model.SourceFile, error) {
	data, err := os.ReadFile(files.SnapshotFile(path, marker.Compression.Extension()))
	if err != nil {
		return nil, errors.New(errors.CorruptedHistory, fmt.Sprintf("can't read snapshot of '%s'", path), err)
	}
	if sum := codec.Checksum(data); sum != marker.Checksums[path] {
		return nil, errors.Newf(errors.CorruptedHistory, "snapshot of '%s' fails its checksum", path)
	}
	raw, err := codec.Decompress(marker.Compression, data)
	if err != nil {
		return nil, errors.New(errors.CorruptedHistory, fmt.Sprintf("can't decompress snapshot of '%s'", path), err)
	}
	source, err := codec.UnmarshalSourceFile(raw)
	if err != nil {
		return nil, errors.New(errors.CorruptedHistory, fmt.Sprintf("can't decode snapshot of '%s'", path), err)
	}
	if source.Path != path {
		return nil, errors.Newf(errors.CorruptedHistory, "snapshot of '%s' holds '%s'", path, source.Path)
	}
	return source, nil
}

func (p *Persistent) verify(ctx context.Context, mode string) error {
	revisions, err := p.db.Revisions(ctx)
	if err != nil {
		return asCorrupted("can't read revisions", err)
	}
	if len(revisions) != p.marker.Revisions {
		return errors.Newf(errors.CorruptedHistory,
			"history log has %d revisions, marker lists %d", len(revisions), p.marker.Revisions)
	}
	if len(revisions) == 0 || revisions[len(revisions)-1].ID != p.marker.Head {
		return errors.Newf(errors.CorruptedHistory, "history log doesn't end at head '%s'", p.marker.Head)
	}
	p.revisions = revisions
	p.seqs = make(map[string]int, len(revisions))
	for _, r := range revisions {
		p.seqs[r.ID] = r.Seq
	}

	live, err := p.db.LivePaths(ctx, revisions[len(revisions)-1].Seq)
	if err != nil {
		return asCorrupted("can't read live paths", err)
	}
	if !slices.Equal(live, p.head.Paths()) {
		return errors.Newf(errors.CorruptedHistory,
			"history log leaves %d sources live, snapshot has %d", len(live), p.head.Len())
	}

	var replayed model.Project
	for entry, err := range p.db.Entries(ctx) {
		if err != nil {
			return asCorrupted("can't read history", err)
		}
		if mode != VerifyFull {
			continue
		}
		if replayed, err = patch.Entry(replayed, entry); err != nil {
			return err
		}
	}
	if mode == VerifyFull && !replayed.Equal(p.head) {
		return errors.Newf(errors.CorruptedHistory, "replaying the history log doesn't reproduce the snapshot")
	}
	return nil
}

func asCorrupted(msg string, err error) error {
	if errors.HasCode(err, errors.CorruptedHistory) {
		return err
	}
	return errors.New(errors.CorruptedHistory, msg, err)
}

// Close releases the history log.
func (p *Persistent) Close() error {
	return p.db.Close()
}

// Marker returns the marker the store was committed with.
func (p *Persistent) Marker() Marker {
	return *p.marker
}

// seq returns the log position of revision, head for the empty id.
func (p *Persistent) seq(revision string) (int, error) {
	if err := CheckRevision(revision); err != nil {
		return 0, err
	}
	if revision == "" {
		return p.revisions[len(p.revisions)-1].Seq, nil
	}
	seq, ok := p.seqs[revision]
	if !ok {
		return 0, errors.Newf(errors.InvalidArgument, "Revision '%s' doesn't exist", revision)
	}
	return seq, nil
}

func (p *Persistent) isHead(seq int) bool {
	return seq == p.revisions[len(p.revisions)-1].Seq
}

// HeadID implements Repository.
func (p *Persistent) HeadID(context.Context) (string, error) {
	return p.marker.Head, nil
}

// ListRevisions implements Repository.
func (p *Persistent) ListRevisions(context.Context) ([]string, error) {
	ids := make([]string, len(p.revisions))
	for i, r := range p.revisions {
		ids[i] = r.ID
	}
	return ids, nil
}

// Revisions returns the metadata of all revisions, oldest first.
func (p *Persistent) Revisions() []storage.Revision {
	return slices.Clone(p.revisions)
}

// ListSources implements Repository.
func (p *Persistent) ListSources(ctx context.Context, revision string) ([]string, error) {
	seq, err := p.seq(revision)
	if err != nil {
		return nil, err
	}
	if p.isHead(seq) {
		return p.head.Paths(), nil
	}
	return p.db.LivePaths(ctx, seq)
}

// GetSource implements Repository. Sources at head come from the snapshot;
// older versions replay the changes of their path.
func (p *Persistent) GetSource(ctx context.Context, path, revision string) (*model.SourceFile, error) {
	if err := CheckPath(path); err != nil {
		return nil, err
	}
	seq, err := p.seq(revision)
	if err != nil {
		return nil, err
	}
	if p.isHead(seq) {
		source, _ := p.head.Get(path)
		return source, nil
	}

	changes, err := p.db.PathChanges(ctx, path, seq)
	if err != nil {
		return nil, err
	}
	var source *model.SourceFile
	for _, c := range changes {
		if source, err = patch.SourceFile(source, c.Change); err != nil {
			return nil, patch.Corrupted(c.Revision, path, err)
		}
	}
	return source, nil
}

// GetSnapshot implements Repository.
func (p *Persistent) GetSnapshot(ctx context.Context, revision string) (model.Project, error) {
	seq, err := p.seq(revision)
	if err != nil {
		return model.Project{}, err
	}
	if p.isHead(seq) {
		return p.head, nil
	}
	sources, err := p.db.LivePaths(ctx, seq)
	if err != nil {
		return model.Project{}, err
	}
	return getProject(ctx, p, revision, sources)
}

// GetHistory implements Repository.
func (p *Persistent) GetHistory(ctx context.Context) history.Sequence {
	return p.db.Entries(ctx)
}
