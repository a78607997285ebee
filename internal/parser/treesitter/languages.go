// Package treesitter provides the Java and Go parsers, built on tree-sitter
// grammars. Without cgo the parsers are still registered but fail to parse.
package treesitter

import (
	"path"
	"slices"
	"strings"

	"chronolens/internal/parser"
)

// Language names accepted in parsers.enabled.
const (
	JavaLanguage = "java"
	GoLanguage   = "go"
)

var extensions = map[string][]string{
	JavaLanguage: {".java"},
	GoLanguage:   {".go"},
}

// Factories returns the parser factories by language name, for parser.Build.
func Factories() map[string]parser.Factory {
	return map[string]parser.Factory{
		JavaLanguage: func() parser.Parser { return NewJava() },
		GoLanguage:   func() parser.Parser { return NewGo() },
	}
}

func canParse(language, p string) bool {
	return slices.Contains(extensions[language], strings.ToLower(path.Ext(p)))
}

// toBlock splits source into trimmed lines, dropping blank ones.
func toBlock(source string) []string {
	var lines []string
	for _, line := range strings.Split(source, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
