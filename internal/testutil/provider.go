package testutil

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"chronolens/internal/vcs"
)

// Epoch is the date of the first revision committed to a Provider.
var Epoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// Provider is an in-memory vcs.Provider. Revisions are committed as sets of
// file changes on top of the previous revision.
type Provider struct {
	mu        sync.Mutex
	revisions []memRevision
	failing   map[string]error
	calls     int
}

type memRevision struct {
	vcs.Revision
	files   map[string][]byte
	changed []string
}

var _ vcs.Provider = (*Provider)(nil)

// NewProvider returns a provider without revisions.
func NewProvider() *Provider {
	return &Provider{failing: make(map[string]error)}
}

// Commit adds a revision on top of head. files maps paths to their new
// content; removed lists deleted paths. It returns the new revision id.
func (p *Provider) Commit(author string, files map[string]string, removed ...string) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	next := make(map[string][]byte)
	if n := len(p.revisions); n > 0 {
		maps.Copy(next, p.revisions[n-1].files)
	}
	var changed []string
	for path, content := range files {
		next[path] = []byte(content)
		changed = append(changed, path)
	}
	for _, path := range removed {
		delete(next, path)
		changed = append(changed, path)
	}
	slices.Sort(changed)

	n := len(p.revisions)
	rev := memRevision{
		Revision: vcs.Revision{
			ID:     fmt.Sprintf("r%d", n+1),
			Date:   Epoch.Add(time.Duration(n) * time.Hour),
			Author: author,
		},
		files:   next,
		changed: changed,
	}
	p.revisions = append(p.revisions, rev)
	return rev.ID
}

// Fail makes every call about revision id return err.
func (p *Provider) Fail(id string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failing[id] = err
}

// Calls returns the number of provider calls made so far.
func (p *Provider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *Provider) revision(id string) (memRevision, error) {
	p.calls++
	if err := p.failing[id]; err != nil {
		return memRevision{}, err
	}
	for _, r := range p.revisions {
		if r.ID == id {
			return r, nil
		}
	}
	return memRevision{}, fmt.Errorf("revision %s not found", id)
}

// HeadRevisionID implements vcs.Provider.
func (p *Provider) HeadRevisionID(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if len(p.revisions) == 0 {
		return "", fmt.Errorf("repository has no revisions")
	}
	return p.revisions[len(p.revisions)-1].ID, ctx.Err()
}

// ListRevisions implements vcs.Provider.
func (p *Provider) ListRevisions(ctx context.Context) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	ids := make([]string, len(p.revisions))
	for i, r := range p.revisions {
		ids[i] = r.ID
	}
	return ids, ctx.Err()
}

// Revision implements vcs.Provider.
func (p *Provider) Revision(ctx context.Context, id string) (vcs.Revision, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	r, err := p.revision(id)
	if err != nil {
		return vcs.Revision{}, err
	}
	return r.Revision, ctx.Err()
}

// ListFiles implements vcs.Provider.
func (p *Provider) ListFiles(ctx context.Context, revisionID string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	r, err := p.revision(revisionID)
	if err != nil {
		return nil, err
	}
	return slices.Sorted(maps.Keys(r.files)), ctx.Err()
}

// FileContent implements vcs.Provider.
func (p *Provider) FileContent(ctx context.Context, revisionID, path string) ([]byte, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	r, err := p.revision(revisionID)
	if err != nil {
		return nil, false, err
	}
	content, ok := r.files[path]
	return slices.Clone(content), ok, ctx.Err()
}

// ChangeSetProvider is a Provider that also reports change sets.
type ChangeSetProvider struct {
	*Provider
}

var _ vcs.ChangeSetProvider = ChangeSetProvider{}

// WithChangeSets returns p reporting the paths each commit touched.
func (p *Provider) WithChangeSets() ChangeSetProvider {
	return ChangeSetProvider{Provider: p}
}

// ChangeSet implements vcs.ChangeSetProvider.
func (c ChangeSetProvider) ChangeSet(ctx context.Context, revisionID string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, err := c.revision(revisionID)
	if err != nil {
		return nil, err
	}
	return slices.Clone(r.changed), ctx.Err()
}
