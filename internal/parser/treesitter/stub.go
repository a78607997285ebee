//go:build !cgo

package treesitter

import (
	"chronolens/internal/errors"
	"chronolens/internal/model"
)

// ErrNoCGO is returned by Parse when the binary was built without cgo.
var ErrNoCGO = errors.New(errors.InternalError, "source parsing requires cgo (tree-sitter)", nil)

// Parser is a stub for non-cgo builds.
type Parser struct {
	language string
}

// NewJava returns the Java parser.
func NewJava() *Parser { return &Parser{language: JavaLanguage} }

// NewGo returns the Go parser.
func NewGo() *Parser { return &Parser{language: GoLanguage} }

// Language implements parser.Parser.
func (p *Parser) Language() string { return p.language }

// CanParse implements parser.Parser.
func (p *Parser) CanParse(path string) bool { return canParse(p.language, path) }

// Parse always fails with ErrNoCGO.
func (p *Parser) Parse(path string, source []byte) (*model.SourceFile, error) {
	return nil, ErrNoCGO
}
