package model

import (
	"maps"
	"slices"

	"chronolens/internal/errors"
)

// Project is the complete structural model of a repository at one revision:
// a mapping from path to source file. The zero value is the empty project.
type Project struct {
	sources map[string]*SourceFile
}

// NewProject returns the project made of the given sources. It fails with
// DuplicateIdentifier if two sources share a path.
func NewProject(sources ...*SourceFile) (Project, error) {
	m := make(map[string]*SourceFile, len(sources))
	for _, s := range sources {
		if !IsValidPath(s.Path) {
			return Project{}, errors.Newf(errors.InvalidIdentifier, "invalid source path '%s'", s.Path)
		}
		if _, ok := m[s.Path]; ok {
			return Project{}, errors.Newf(errors.DuplicateIdentifier, "source '%s' is declared twice", s.Path)
		}
		m[s.Path] = s
	}
	return Project{sources: m}, nil
}

// MustProject is like NewProject but panics on error.
func MustProject(sources ...*SourceFile) Project {
	p, err := NewProject(sources...)
	if err != nil {
		panic(err)
	}
	return p
}

// Len returns the number of sources.
func (p Project) Len() int { return len(p.sources) }

// Get returns the source at path, if any.
func (p Project) Get(path string) (*SourceFile, bool) {
	s, ok := p.sources[path]
	return s, ok
}

// Paths returns the sorted paths of all sources.
func (p Project) Paths() []string {
	return slices.Sorted(maps.Keys(p.sources))
}

// Sources returns all sources sorted by path.
func (p Project) Sources() []*SourceFile {
	out := make([]*SourceFile, 0, len(p.sources))
	for _, path := range p.Paths() {
		out = append(out, p.sources[path])
	}
	return out
}

// With returns a copy of p where the source at s.Path is replaced by s.
func (p Project) With(s *SourceFile) Project {
	m := maps.Clone(p.sources)
	if m == nil {
		m = make(map[string]*SourceFile, 1)
	}
	m[s.Path] = s
	return Project{sources: m}
}

// Without returns a copy of p without the source at path.
func (p Project) Without(path string) Project {
	m := maps.Clone(p.sources)
	delete(m, path)
	return Project{sources: m}
}

// Find returns the node with the given id, if it exists.
func (p Project) Find(id string) (SourceNode, bool) {
	s, ok := p.sources[SourcePath(id)]
	if !ok {
		return nil, false
	}
	return Find(s, id)
}

// Equal reports whether p and other contain equal sources.
func (p Project) Equal(other Project) bool {
	if len(p.sources) != len(other.sources) {
		return false
	}
	for path, s := range p.sources {
		o, ok := other.sources[path]
		if !ok || !Equal(s, o) {
			return false
		}
	}
	return true
}
