//go:build cgo

package treesitter

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"

	"chronolens/internal/model"
	"chronolens/internal/parser"
)

// Parser parses one language with its tree-sitter grammar. A tree-sitter
// parser isn't safe for concurrent use, so every Parse call creates its own.
type Parser struct {
	language string
	grammar  *sitter.Language
	extract  func(s *scope, root *sitter.Node) ([]model.SourceEntity, error)
}

// NewJava returns the Java parser.
func NewJava() *Parser {
	return &Parser{language: JavaLanguage, grammar: java.GetLanguage(), extract: javaFile}
}

// NewGo returns the Go parser.
func NewGo() *Parser {
	return &Parser{language: GoLanguage, grammar: golang.GetLanguage(), extract: goFile}
}

// Language implements parser.Parser.
func (p *Parser) Language() string { return p.language }

// CanParse implements parser.Parser.
func (p *Parser) CanParse(path string) bool { return canParse(p.language, path) }

// Parse implements parser.Parser. Sources whose tree has error or missing
// nodes, or which declare the same member twice, are a *parser.SyntaxError.
func (p *Parser) Parse(path string, source []byte) (*model.SourceFile, error) {
	tsParser := sitter.NewParser()
	tsParser.SetLanguage(p.grammar)
	tree, err := tsParser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return nil, &parser.SyntaxError{Path: path, Message: fmt.Sprintf("parse error: %v", err)}
	}

	root := tree.RootNode()
	if bad := firstError(root); bad != nil {
		what := "unexpected input"
		if bad.IsMissing() {
			what = fmt.Sprintf("missing %s", bad.Type())
		}
		return nil, &parser.SyntaxError{Path: path, Line: int(bad.StartPoint().Row) + 1, Message: what}
	}

	s := &scope{path: path, source: source}
	entities, err := p.extract(s, root)
	if err != nil {
		return nil, asSyntaxError(path, err)
	}
	f, err := model.NewSourceFile(path, entities...)
	if err != nil {
		return nil, asSyntaxError(path, err)
	}
	return f, nil
}

// asSyntaxError reports model validation failures, such as duplicate
// members, as syntax errors of the file.
func asSyntaxError(path string, err error) error {
	var syntaxErr *parser.SyntaxError
	if errors.As(err, &syntaxErr) {
		return err
	}
	return &parser.SyntaxError{Path: path, Message: err.Error()}
}

// firstError returns the first ERROR or missing node in document order.
func firstError(n *sitter.Node) *sitter.Node {
	if n.Type() == "ERROR" || n.IsMissing() {
		return n
	}
	if !n.HasError() {
		return nil
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if child := n.Child(i); child != nil {
			if bad := firstError(child); bad != nil {
				return bad
			}
		}
	}
	return nil
}

// scope carries the file being extracted.
type scope struct {
	path   string
	source []byte
}

func (s *scope) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(s.source)
}

// compact joins the words of n's text with single spaces.
func (s *scope) compact(n *sitter.Node) string {
	return strings.Join(strings.Fields(s.text(n)), " ")
}

// typeName is n's text without whitespace.
func (s *scope) typeName(n *sitter.Node) string {
	return strings.Join(strings.Fields(s.text(n)), "")
}

func (s *scope) block(n *sitter.Node) []string {
	if n == nil {
		return nil
	}
	return toBlock(s.text(n))
}

func (s *scope) errorf(n *sitter.Node, format string, args ...interface{}) error {
	return &parser.SyntaxError{
		Path:    s.path,
		Line:    int(n.StartPoint().Row) + 1,
		Message: fmt.Sprintf(format, args...),
	}
}

func namedChildren(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	children := make([]*sitter.Node, 0, n.NamedChildCount())
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if child := n.NamedChild(i); child != nil {
			children = append(children, child)
		}
	}
	return children
}

func childOfType(n *sitter.Node, typ string) *sitter.Node {
	for _, child := range namedChildren(n) {
		if child.Type() == typ {
			return child
		}
	}
	return nil
}

func childrenOfType(n *sitter.Node, typ string) []*sitter.Node {
	var out []*sitter.Node
	for _, child := range namedChildren(n) {
		if child.Type() == typ {
			out = append(out, child)
		}
	}
	return out
}
