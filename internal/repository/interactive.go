package repository

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"chronolens/internal/codec"
	"chronolens/internal/diff"
	"chronolens/internal/edit"
	"chronolens/internal/errors"
	"chronolens/internal/history"
	"chronolens/internal/model"
	"chronolens/internal/parser"
	"chronolens/internal/slogutil"
	"chronolens/internal/vcs"
)

// InteractiveOptions configures an Interactive repository.
type InteractiveOptions struct {
	Filter  Filter
	Workers int
	Logger  *slog.Logger
}

// Interactive answers every query by reading the provider and parsing the
// sources it returns. It is safe for concurrent use.
type Interactive struct {
	provider vcs.Provider
	parsers  *parser.Registry
	filter   Filter
	workers  int
	logger   *slog.Logger

	mu        sync.Mutex
	cacheHead string
	cacheRevs []string
}

var _ Repository = (*Interactive)(nil)

// NewInteractive returns a repository reading provider and parsing with
// parsers.
func NewInteractive(provider vcs.Provider, parsers *parser.Registry, opts InteractiveOptions) *Interactive {
	if opts.Workers < 1 {
		opts.Workers = 4
	}
	if opts.Logger == nil {
		opts.Logger = slogutil.NewDiscardLogger()
	}
	return &Interactive{
		provider: provider,
		parsers:  parsers,
		filter:   opts.Filter,
		workers:  opts.Workers,
		logger:   opts.Logger,
	}
}

func (r *Interactive) isSource(path string) bool {
	return model.IsValidPath(path) && r.parsers.CanParse(path) && r.filter.Match(path)
}

func vcsError(op string, err error) error {
	if errors.HasCode(err, errors.VCSIO) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return errors.New(errors.VCSIO, op, err)
}

// HeadID implements Repository.
func (r *Interactive) HeadID(ctx context.Context) (string, error) {
	id, err := r.provider.HeadRevisionID(ctx)
	if err != nil {
		return "", vcsError("can't read the head revision", err)
	}
	return id, nil
}

// ListRevisions implements Repository. The list is cached until head moves.
func (r *Interactive) ListRevisions(ctx context.Context) ([]string, error) {
	head, err := r.HeadID(ctx)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if r.cacheHead == head {
		revs := r.cacheRevs
		r.mu.Unlock()
		return slices.Clone(revs), nil
	}
	r.mu.Unlock()

	revs, err := r.provider.ListRevisions(ctx)
	if err != nil {
		return nil, vcsError("can't list revisions", err)
	}
	for _, id := range revs {
		if !model.IsValidRevisionID(id) {
			return nil, errors.Newf(errors.VCSIO, "provider returned invalid revision id '%s'", id)
		}
	}

	r.mu.Lock()
	r.cacheHead, r.cacheRevs = head, revs
	r.mu.Unlock()
	return slices.Clone(revs), nil
}

// ListSources implements Repository.
func (r *Interactive) ListSources(ctx context.Context, revision string) ([]string, error) {
	revs, err := r.ListRevisions(ctx)
	if err != nil {
		return nil, err
	}
	i, err := resolveRevision(revs, revision)
	if err != nil {
		return nil, err
	}
	return r.sources(ctx, revs[i])
}

func (r *Interactive) sources(ctx context.Context, id string) ([]string, error) {
	files, err := r.provider.ListFiles(ctx, id)
	if err != nil {
		return nil, vcsError(fmt.Sprintf("can't list the files of revision '%s'", id), err)
	}
	var paths []string
	for _, path := range files {
		if r.isSource(path) {
			paths = append(paths, path)
		}
	}
	slices.Sort(paths)
	return paths, nil
}

// GetSource implements Repository.
func (r *Interactive) GetSource(ctx context.Context, path, revision string) (*model.SourceFile, error) {
	if err := CheckPath(path); err != nil {
		return nil, err
	}
	revs, err := r.ListRevisions(ctx)
	if err != nil {
		return nil, err
	}
	i, err := resolveRevision(revs, revision)
	if err != nil {
		return nil, err
	}
	return r.source(ctx, revs[:i+1], path)
}

// source parses path as of the last of revs. A version that doesn't parse
// falls back to older versions, back to the revision that added the file.
func (r *Interactive) source(ctx context.Context, revs []string, path string) (*model.SourceFile, error) {
	if !r.isSource(path) {
		return nil, nil
	}

	lastHash := ""
	for j := len(revs) - 1; j >= 0; j-- {
		content, ok, err := r.provider.FileContent(ctx, revs[j], path)
		if err != nil {
			return nil, vcsError(fmt.Sprintf("can't read '%s' at revision '%s'", path, revs[j]), err)
		}
		if !ok {
			if j == len(revs)-1 {
				return nil, nil
			}
			break
		}

		hash := codec.Checksum(content)
		if hash == lastHash {
			continue
		}
		lastHash = hash

		source, err := r.parsers.Parse(path, content)
		if err == nil {
			return source, nil
		}
		if !errors.HasCode(err, errors.SyntaxError) {
			return nil, err
		}
		r.logger.Debug("Source doesn't parse, trying an older version",
			"path", path,
			"revision", revs[j],
			"error", err.Error(),
		)
	}
	return model.NewSourceFile(path)
}

// GetSnapshot implements Repository. Sources are parsed in parallel.
func (r *Interactive) GetSnapshot(ctx context.Context, revision string) (model.Project, error) {
	revs, err := r.ListRevisions(ctx)
	if err != nil {
		return model.Project{}, err
	}
	i, err := resolveRevision(revs, revision)
	if err != nil {
		return model.Project{}, err
	}
	paths, err := r.sources(ctx, revs[i])
	if err != nil {
		return model.Project{}, err
	}

	sources := make([]*model.SourceFile, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for k, path := range paths {
		g.Go(func() error {
			source, err := r.source(gctx, revs[:i+1], path)
			if err != nil {
				return err
			}
			sources[k] = source
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return model.Project{}, err
	}
	return model.NewProject(sources...)
}

// GetHistory implements Repository. A VCS_IO error is yielded for the
// revision that couldn't be read and the pass goes on with the next one,
// diffing against the last revision read successfully. Any other error ends
// the pass.
func (r *Interactive) GetHistory(ctx context.Context) history.Sequence {
	return func(yield func(history.Entry, error) bool) {
		revs, err := r.ListRevisions(ctx)
		if err != nil {
			yield(history.Entry{}, err)
			return
		}

		b := &historyBuilder{
			r:       r,
			sources: make(map[string]*model.SourceFile),
			hashes:  make(map[string]string),
		}
		for _, id := range revs {
			entry, err := b.next(ctx, id)
			if err != nil {
				if ctx.Err() != nil {
					yield(history.Entry{}, ctx.Err())
					return
				}
				if !yield(history.Entry{Revision: id}, err) || !errors.HasCode(err, errors.VCSIO) {
					return
				}
				b.resync()
				continue
			}
			if !yield(entry, nil) {
				return
			}
		}
	}
}

// historyBuilder turns consecutive revisions into history entries. It keeps
// the model and content hash of every live source.
type historyBuilder struct {
	r       *Interactive
	sources map[string]*model.SourceFile
	hashes  map[string]string
	started bool
}

type fileResult struct {
	path      string
	removed   bool
	unchanged bool
	hash      string
	// parsed is nil when the content didn't parse.
	parsed *model.SourceFile
	tx     *edit.SourceFileTransaction
}

// resync makes the next revision compare every present source with the
// builder's state instead of trusting its change set, which misses the
// changes of revisions that failed.
func (b *historyBuilder) resync() {
	b.started = false
}

// next computes the entry of revision id. The builder is only updated when
// it succeeds.
func (b *historyBuilder) next(ctx context.Context, id string) (history.Entry, error) {
	r := b.r
	meta, err := r.provider.Revision(ctx, id)
	if err != nil {
		return history.Entry{}, vcsError(fmt.Sprintf("can't read revision '%s'", id), err)
	}
	present, err := r.sources(ctx, id)
	if err != nil {
		return history.Entry{}, err
	}
	candidates, err := b.candidates(ctx, id, present)
	if err != nil {
		return history.Entry{}, err
	}

	results := make([]fileResult, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for k, path := range candidates {
		g.Go(func() error {
			res, err := b.readFile(gctx, id, path, present)
			if err != nil {
				return err
			}
			results[k] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return history.Entry{}, err
	}

	txs := make(map[string]*edit.SourceFileTransaction)
	var uninterpretable []string
	for _, res := range results {
		switch {
		case res.unchanged:
		case res.removed:
			txs[res.path] = nil
			delete(b.sources, res.path)
			delete(b.hashes, res.path)
		case res.parsed == nil:
			uninterpretable = append(uninterpretable, res.path)
			if _, ok := b.sources[res.path]; !ok {
				b.sources[res.path] = model.MustSourceFile(res.path)
			}
			b.hashes[res.path] = res.hash
		default:
			_, existed := b.sources[res.path]
			if !existed || !res.tx.IsEmpty() {
				txs[res.path] = res.tx
			}
			b.sources[res.path] = res.parsed
			b.hashes[res.path] = res.hash
		}
	}
	b.started = true

	entry := history.NewEntry(id, meta.Date, meta.Author, txs, uninterpretable)
	r.logger.Debug("Computed history entry",
		"revision", id,
		"candidates", len(candidates),
		"changes", len(entry.Changes),
	)
	return entry, nil
}

// candidates returns the paths that may have changed in revision id: the
// change set when the provider reports one, otherwise every present source,
// plus the live sources that are gone.
func (b *historyBuilder) candidates(ctx context.Context, id string, present []string) ([]string, error) {
	var paths []string
	cs, ok := b.r.provider.(vcs.ChangeSetProvider)
	if ok && b.started {
		changed, err := cs.ChangeSet(ctx, id)
		if err != nil {
			return nil, vcsError(fmt.Sprintf("can't read the change set of revision '%s'", id), err)
		}
		for _, path := range changed {
			if _, found := slices.BinarySearch(present, path); found {
				paths = append(paths, path)
			}
		}
	} else {
		paths = slices.Clone(present)
	}
	for path := range b.sources {
		if _, found := slices.BinarySearch(present, path); !found {
			paths = append(paths, path)
		}
	}
	slices.Sort(paths)
	return slices.Compact(paths), nil
}

func (b *historyBuilder) readFile(ctx context.Context, id, path string, present []string) (fileResult, error) {
	res := fileResult{path: path}
	if _, found := slices.BinarySearch(present, path); !found {
		res.removed = true
		return res, nil
	}

	content, ok, err := b.r.provider.FileContent(ctx, id, path)
	if err != nil {
		return res, vcsError(fmt.Sprintf("can't read '%s' at revision '%s'", path, id), err)
	}
	if !ok {
		return res, errors.Newf(errors.VCSIO, "listed file '%s' is missing at revision '%s'", path, id)
	}

	res.hash = codec.Checksum(content)
	if prev, ok := b.hashes[path]; ok && prev == res.hash {
		res.unchanged = true
		return res, nil
	}

	parsed, err := b.r.parsers.Parse(path, content)
	if err != nil {
		if !errors.HasCode(err, errors.SyntaxError) {
			return res, err
		}
		b.r.logger.Debug("Source is uninterpretable",
			"path", path,
			"revision", id,
			"error", err.Error(),
		)
		return res, nil
	}
	res.parsed = parsed
	res.tx = diff.SourceFile(b.sources[path], parsed)
	return res, nil
}
