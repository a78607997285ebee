// Package repository answers structural queries about a repository's
// history, either live from a version control provider and parsers
// (Interactive) or from a store persisted on disk (Persistent).
package repository

import (
	"context"
	"slices"

	"github.com/bmatcuk/doublestar/v4"

	"chronolens/internal/errors"
	"chronolens/internal/history"
	"chronolens/internal/model"
)

// Repository is a read-only view of a repository's sources and history.
// Every revision argument may be empty to mean the head revision.
type Repository interface {
	// HeadID returns the id of the head revision.
	HeadID(ctx context.Context) (string, error)
	// ListSources returns the interpretable source paths of a revision,
	// sorted.
	ListSources(ctx context.Context, revision string) ([]string, error)
	// ListRevisions returns all revision ids up to head, oldest first.
	ListRevisions(ctx context.Context) ([]string, error)
	// GetSource returns the model of the source at path in a revision, or
	// nil if there is no such interpretable source. A source that doesn't
	// parse yields its latest version that does, or the empty file.
	GetSource(ctx context.Context, path, revision string) (*model.SourceFile, error)
	// GetSnapshot returns the models of all sources of a revision.
	GetSnapshot(ctx context.Context, revision string) (model.Project, error)
	// GetHistory returns the history up to head. Every range over the
	// result reads it again from the start.
	GetHistory(ctx context.Context) history.Sequence
}

// CheckPath validates a source path argument.
func CheckPath(path string) error {
	if !model.IsValidPath(path) {
		return errors.Newf(errors.InvalidArgument, "Invalid path '%s'", path)
	}
	return nil
}

// CheckRevision validates a revision id argument. The empty id is accepted
// and stands for head.
func CheckRevision(id string) error {
	if id != "" && !model.IsValidRevisionID(id) {
		return errors.Newf(errors.InvalidArgument, "Invalid revision '%s'", id)
	}
	return nil
}

// resolveRevision returns the index of id in revisions, the last one for
// the empty id.
func resolveRevision(revisions []string, id string) (int, error) {
	if err := CheckRevision(id); err != nil {
		return 0, err
	}
	if len(revisions) == 0 {
		return 0, errors.Newf(errors.InvalidArgument, "Repository has no revisions")
	}
	if id == "" {
		return len(revisions) - 1, nil
	}
	i := slices.Index(revisions, id)
	if i < 0 {
		return 0, errors.Newf(errors.InvalidArgument, "Revision '%s' doesn't exist", id)
	}
	return i, nil
}

// Filter selects the source paths a repository models.
type Filter struct {
	Include []string
	Exclude []string
}

// Match reports whether path is matched by an include pattern and by no
// exclude pattern. An empty include list matches everything.
func (f Filter) Match(path string) bool {
	if len(f.Include) > 0 && !matchAny(f.Include, path) {
		return false
	}
	return !matchAny(f.Exclude, path)
}

func matchAny(patterns []string, path string) bool {
	for _, pattern := range patterns {
		match, err := doublestar.Match(pattern, path)
		if err != nil {
			continue
		}
		if match {
			return true
		}
	}
	return false
}

// getProject reads the sources of a revision one by one.
func getProject(ctx context.Context, r Repository, revision string, paths []string) (model.Project, error) {
	sources := make([]*model.SourceFile, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return model.Project{}, err
		}
		source, err := r.GetSource(ctx, path, revision)
		if err != nil {
			return model.Project{}, err
		}
		if source == nil {
			return model.Project{}, errors.Newf(errors.InternalError, "listed source '%s' has no model", path)
		}
		sources = append(sources, source)
	}
	return model.NewProject(sources...)
}
