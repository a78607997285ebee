// Package gitvcs implements vcs.Provider on top of go-git. Revisions are the
// first-parent chain of HEAD.
package gitvcs

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"chronolens/internal/errors"
	"chronolens/internal/vcs"
)

// Name is the backend name in the vcs registry.
const Name = "git"

// Provider reads a git repository. go-git's storage isn't safe for
// concurrent reads, so calls are serialized.
type Provider struct {
	mu     sync.Mutex
	repo   *git.Repository
	root   string
	logger *slog.Logger
}

var (
	_ vcs.Provider          = (*Provider)(nil)
	_ vcs.ChangeSetProvider = (*Provider)(nil)
)

// Register adds the git backend to r.
func Register(r *vcs.Registry) {
	r.Register(Name, Open)
}

// Open opens the git repository at root. It implements vcs.Factory.
func Open(_ context.Context, root string, logger *slog.Logger) (vcs.Provider, error) {
	repo, err := git.PlainOpen(root)
	if err != nil {
		return nil, errors.New(errors.VCSIO, fmt.Sprintf("can't open git repository at %s", root), err)
	}
	logger.Debug("Opened git repository", "root", root)
	return &Provider{repo: repo, root: root, logger: logger}, nil
}

func ioError(op string, err error) error {
	return errors.New(errors.VCSIO, op, err)
}

func (p *Provider) head() (*object.Commit, error) {
	ref, err := p.repo.Head()
	if err != nil {
		if stderrors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, errors.Newf(errors.VCSIO, "repository at %s has no revisions", p.root)
		}
		return nil, ioError("can't resolve HEAD", err)
	}
	commit, err := p.repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, ioError("can't read the HEAD commit", err)
	}
	return commit, nil
}

func (p *Provider) commit(id string) (*object.Commit, error) {
	if !plumbing.IsHash(id) {
		return nil, errors.Newf(errors.VCSIO, "'%s' is not a commit hash", id)
	}
	commit, err := p.repo.CommitObject(plumbing.NewHash(id))
	if err != nil {
		return nil, ioError(fmt.Sprintf("can't read commit %s", id), err)
	}
	return commit, nil
}

func (p *Provider) tree(id string) (*object.Tree, error) {
	commit, err := p.commit(id)
	if err != nil {
		return nil, err
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, ioError(fmt.Sprintf("can't read the tree of %s", id), err)
	}
	return tree, nil
}

// HeadRevisionID implements vcs.Provider.
func (p *Provider) HeadRevisionID(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	commit, err := p.head()
	if err != nil {
		return "", err
	}
	return commit.Hash.String(), nil
}

// ListRevisions implements vcs.Provider.
func (p *Provider) ListRevisions(ctx context.Context) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	commit, err := p.head()
	if err != nil {
		return nil, err
	}
	var ids []string
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ids = append(ids, commit.Hash.String())
		if commit.NumParents() == 0 {
			break
		}
		if commit, err = commit.Parent(0); err != nil {
			return nil, ioError("can't walk the first-parent history", err)
		}
	}
	slices.Reverse(ids)
	return ids, nil
}

// Revision implements vcs.Provider.
func (p *Provider) Revision(ctx context.Context, id string) (vcs.Revision, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return vcs.Revision{}, err
	}
	commit, err := p.commit(id)
	if err != nil {
		return vcs.Revision{}, err
	}
	return vcs.Revision{
		ID:     id,
		Date:   commit.Author.When.UTC(),
		Author: commit.Author.Name,
	}, nil
}

// ListFiles implements vcs.Provider.
func (p *Provider) ListFiles(ctx context.Context, revisionID string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	commit, err := p.commit(revisionID)
	if err != nil {
		return nil, err
	}
	return listFiles(commit)
}

func listFiles(commit *object.Commit) ([]string, error) {
	tree, err := commit.Tree()
	if err != nil {
		return nil, ioError(fmt.Sprintf("can't read the tree of %s", commit.Hash), err)
	}
	var files []string
	err = tree.Files().ForEach(func(f *object.File) error {
		files = append(files, f.Name)
		return nil
	})
	if err != nil {
		return nil, ioError(fmt.Sprintf("can't list the files of %s", commit.Hash), err)
	}
	slices.Sort(files)
	return files, nil
}

// FileContent implements vcs.Provider.
func (p *Provider) FileContent(ctx context.Context, revisionID, path string) ([]byte, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	tree, err := p.tree(revisionID)
	if err != nil {
		return nil, false, err
	}

	f, err := tree.File(path)
	if err != nil {
		if stderrors.Is(err, object.ErrFileNotFound) {
			return nil, false, nil
		}
		return nil, false, ioError(fmt.Sprintf("can't find %s at %s", path, revisionID), err)
	}
	reader, err := f.Reader()
	if err != nil {
		return nil, false, ioError(fmt.Sprintf("can't open %s at %s", path, revisionID), err)
	}
	defer reader.Close()

	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, false, ioError(fmt.Sprintf("can't read %s at %s", path, revisionID), err)
	}
	return content, true, nil
}

// ChangeSet implements vcs.ChangeSetProvider. It lists the paths added,
// modified or deleted with respect to the first parent; a root commit
// changes all of its files.
func (p *Provider) ChangeSet(ctx context.Context, revisionID string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	commit, err := p.commit(revisionID)
	if err != nil {
		return nil, err
	}
	if commit.NumParents() == 0 {
		return listFiles(commit)
	}

	tree, err := commit.Tree()
	if err != nil {
		return nil, ioError(fmt.Sprintf("can't read the tree of %s", revisionID), err)
	}
	parent, err := commit.Parent(0)
	if err != nil {
		return nil, ioError(fmt.Sprintf("can't read the parent of %s", revisionID), err)
	}
	parentTree, err := parent.Tree()
	if err != nil {
		return nil, ioError(fmt.Sprintf("can't read the tree of %s", parent.Hash), err)
	}

	changes, err := object.DiffTreeWithOptions(ctx, parentTree, tree, object.DefaultDiffTreeOptions)
	if err != nil {
		return nil, ioError(fmt.Sprintf("can't diff %s against its parent", revisionID), err)
	}
	var paths []string
	for _, change := range changes {
		if change.From.Name != "" {
			paths = append(paths, change.From.Name)
		}
		if change.To.Name != "" {
			paths = append(paths, change.To.Name)
		}
	}
	slices.Sort(paths)
	return slices.Compact(paths), nil
}
