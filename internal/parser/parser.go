// Package parser defines the source parsers consumed by the repositories and
// the registry they are looked up in.
package parser

import (
	"fmt"

	"chronolens/internal/errors"
	"chronolens/internal/model"
)

// Parser turns the content of a source file into its structural model.
type Parser interface {
	// Language returns the name the parser is enabled by in configuration.
	Language() string
	// CanParse reports whether the parser handles files at path.
	CanParse(path string) bool
	// Parse returns the model of the file at path. Invalid source yields a
	// *SyntaxError.
	Parse(path string, source []byte) (*model.SourceFile, error)
}

// SyntaxError reports source that couldn't be interpreted.
type SyntaxError struct {
	Path    string
	Line    int
	Message string
}

func (e *SyntaxError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Unwrap lets errors.HasCode(err, errors.SyntaxError) match.
func (e *SyntaxError) Unwrap() error {
	return errors.ErrSyntax
}

// Registry is an ordered list of parsers. The first parser accepting a path
// handles it.
type Registry struct {
	parsers []Parser
}

// NewRegistry returns a registry of the given parsers, in order.
func NewRegistry(parsers ...Parser) *Registry {
	return &Registry{parsers: parsers}
}

// Register appends a parser.
func (r *Registry) Register(p Parser) {
	r.parsers = append(r.parsers, p)
}

// Languages returns the languages of the registered parsers, in order.
func (r *Registry) Languages() []string {
	langs := make([]string, 0, len(r.parsers))
	for _, p := range r.parsers {
		langs = append(langs, p.Language())
	}
	return langs
}

// For returns the parser handling path.
func (r *Registry) For(path string) (Parser, bool) {
	for _, p := range r.parsers {
		if p.CanParse(path) {
			return p, true
		}
	}
	return nil, false
}

// CanParse reports whether any parser handles path.
func (r *Registry) CanParse(path string) bool {
	_, ok := r.For(path)
	return ok
}

// Parse parses source with the parser handling path. The parsed file must
// be valid and have path as its id.
func (r *Registry) Parse(path string, source []byte) (*model.SourceFile, error) {
	p, ok := r.For(path)
	if !ok {
		return nil, errors.Newf(errors.InvalidArgument, "no parser for '%s'", path)
	}
	f, err := p.Parse(path, source)
	if err != nil {
		return nil, err
	}
	if f.Path != path {
		return nil, errors.Newf(errors.InternalError, "%s parser returned '%s' for '%s'", p.Language(), f.Path, path)
	}
	return f, nil
}

// Factory builds a parser.
type Factory func() Parser

// Build returns a registry with the parsers of the enabled languages, in the
// order given. Unknown languages are an error.
func Build(factories map[string]Factory, enabled []string) (*Registry, error) {
	r := NewRegistry()
	for _, lang := range enabled {
		factory, ok := factories[lang]
		if !ok {
			return nil, errors.Newf(errors.InvalidArgument, "unknown parser language '%s'", lang)
		}
		r.Register(factory())
	}
	return r, nil
}
