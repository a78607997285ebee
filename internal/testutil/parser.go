package testutil

import (
	"strings"

	"chronolens/internal/codec"
	"chronolens/internal/model"
	"chronolens/internal/parser"
)

// MockParser parses ".mock" files whose content is the JSON encoding of
// their source file, as produced by Source. Anything else is a syntax
// error.
type MockParser struct{}

var _ parser.Parser = MockParser{}

// Language implements parser.Parser.
func (MockParser) Language() string { return "mock" }

// CanParse implements parser.Parser.
func (MockParser) CanParse(path string) bool { return strings.HasSuffix(path, ".mock") }

// Parse implements parser.Parser.
func (MockParser) Parse(path string, source []byte) (*model.SourceFile, error) {
	f, err := codec.UnmarshalSourceFile(source)
	if err != nil {
		return nil, &parser.SyntaxError{Path: path, Message: err.Error()}
	}
	if f.Path != path {
		return nil, &parser.SyntaxError{Path: path, Message: "source declares path " + f.Path}
	}
	return f, nil
}

// Source returns the content MockParser parses into f.
func Source(f *model.SourceFile) string {
	data, err := codec.MarshalSourceFile(f)
	if err != nil {
		panic(err)
	}
	return string(data)
}

// MockParsers returns a registry holding only MockParser.
func MockParsers() *parser.Registry {
	return parser.NewRegistry(MockParser{})
}
