// Package vcs defines the version control provider consumed by the
// repositories and the registry backends are selected from.
package vcs

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"chronolens/internal/errors"
)

// Revision describes one revision of the repository.
type Revision struct {
	ID     string
	Date   time.Time
	Author string
}

// Provider gives read access to the revisions and file contents of a
// repository.
type Provider interface {
	// HeadRevisionID returns the id of the current revision.
	HeadRevisionID(ctx context.Context) (string, error)
	// ListRevisions returns the ids of all revisions up to head, oldest first.
	ListRevisions(ctx context.Context) ([]string, error)
	// Revision returns the metadata of a revision.
	Revision(ctx context.Context, id string) (Revision, error)
	// ListFiles returns the paths of all files in a revision.
	ListFiles(ctx context.Context, revisionID string) ([]string, error)
	// FileContent returns the content of a file in a revision. The boolean
	// is false if the file doesn't exist in that revision.
	FileContent(ctx context.Context, revisionID, path string) ([]byte, bool, error)
}

// ChangeSetProvider is implemented by providers that can list the files a
// revision modified without comparing contents.
type ChangeSetProvider interface {
	ChangeSet(ctx context.Context, revisionID string) ([]string, error)
}

// Factory connects to the repository rooted at root. It returns an error
// with code VCS_IO if root isn't a repository of its kind.
type Factory func(ctx context.Context, root string, logger *slog.Logger) (Provider, error)

// Registry maps backend names to factories.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a backend. Registering a name twice replaces the factory.
func (r *Registry) Register(name string, factory Factory) {
	r.factories[name] = factory
}

// Names returns the registered backend names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Open connects to root with the named backend.
func (r *Registry) Open(ctx context.Context, name, root string, logger *slog.Logger) (Provider, error) {
	factory, ok := r.factories[name]
	if !ok {
		return nil, errors.Newf(errors.InvalidArgument, "unknown VCS backend '%s' (available: %v)", name, r.Names())
	}
	return factory(ctx, root, logger)
}

// WithTimeout returns a provider running every call of p under its own
// timeout. The result implements ChangeSetProvider if p does.
func WithTimeout(p Provider, timeout time.Duration) Provider {
	if timeout <= 0 {
		return p
	}
	t := &timeoutProvider{p: p, timeout: timeout}
	if cs, ok := p.(ChangeSetProvider); ok {
		return &timeoutChangeSetProvider{timeoutProvider: t, cs: cs}
	}
	return t
}

type timeoutProvider struct {
	p       Provider
	timeout time.Duration
}

func (t *timeoutProvider) HeadRevisionID(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	id, err := t.p.HeadRevisionID(ctx)
	return id, t.wrap(ctx, "read head revision", err)
}

func (t *timeoutProvider) ListRevisions(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	ids, err := t.p.ListRevisions(ctx)
	return ids, t.wrap(ctx, "list revisions", err)
}

func (t *timeoutProvider) Revision(ctx context.Context, id string) (Revision, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	rev, err := t.p.Revision(ctx, id)
	return rev, t.wrap(ctx, "read revision "+id, err)
}

func (t *timeoutProvider) ListFiles(ctx context.Context, revisionID string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	files, err := t.p.ListFiles(ctx, revisionID)
	return files, t.wrap(ctx, "list files of "+revisionID, err)
}

func (t *timeoutProvider) FileContent(ctx context.Context, revisionID, path string) ([]byte, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	content, ok, err := t.p.FileContent(ctx, revisionID, path)
	return content, ok, t.wrap(ctx, fmt.Sprintf("read %s at %s", path, revisionID), err)
}

// wrap marks a deadline hit by the call itself as a VCS_IO failure.
func (t *timeoutProvider) wrap(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() == context.DeadlineExceeded {
		return errors.New(errors.VCSIO, fmt.Sprintf("%s: timed out after %s", op, t.timeout), err)
	}
	return err
}

type timeoutChangeSetProvider struct {
	*timeoutProvider
	cs ChangeSetProvider
}

func (t *timeoutChangeSetProvider) ChangeSet(ctx context.Context, revisionID string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	paths, err := t.cs.ChangeSet(ctx, revisionID)
	return paths, t.wrap(ctx, "read change set of "+revisionID, err)
}
