package parser

import (
	"strings"
	"testing"

	"chronolens/internal/errors"
	"chronolens/internal/model"
)

type suffixParser struct {
	lang, suffix string
}

func (p suffixParser) Language() string { return p.lang }

func (p suffixParser) CanParse(path string) bool { return strings.HasSuffix(path, p.suffix) }

func (p suffixParser) Parse(path string, source []byte) (*model.SourceFile, error) {
	if string(source) == "broken" {
		return nil, &SyntaxError{Path: path, Line: 1, Message: "unexpected token"}
	}
	return model.NewSourceFile(path)
}

func TestRegistry_FirstMatchWins(t *testing.T) {
	r := NewRegistry(suffixParser{"java", ".java"}, suffixParser{"any", ""})

	p, ok := r.For("Main.java")
	if !ok || p.Language() != "java" {
		t.Errorf("For(Main.java) = %v, %v", p, ok)
	}
	p, ok = r.For("main.go")
	if !ok || p.Language() != "any" {
		t.Errorf("For(main.go) = %v, %v", p, ok)
	}
}

func TestRegistry_Parse(t *testing.T) {
	r := NewRegistry(suffixParser{"java", ".java"})

	f, err := r.Parse("Main.java", []byte("class Main {}"))
	if err != nil || f.Path != "Main.java" {
		t.Errorf("Parse() = %v, %v", f, err)
	}

	_, err = r.Parse("Main.java", []byte("broken"))
	if !errors.HasCode(err, errors.SyntaxError) {
		t.Errorf("Parse() error = %v, want SYNTAX_ERROR", err)
	}
	if err.Error() != "Main.java:1: unexpected token" {
		t.Errorf("Error() = %q", err.Error())
	}

	if _, err := r.Parse("main.go", nil); !errors.HasCode(err, errors.InvalidArgument) {
		t.Errorf("Parse(main.go) error = %v, want INVALID_ARGUMENT", err)
	}
	if r.CanParse("main.go") {
		t.Error("CanParse(main.go) = true")
	}
}

func TestBuild(t *testing.T) {
	factories := map[string]Factory{
		"java": func() Parser { return suffixParser{"java", ".java"} },
		"go":   func() Parser { return suffixParser{"go", ".go"} },
	}

	r, err := Build(factories, []string{"go", "java"})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if langs := r.Languages(); len(langs) != 2 || langs[0] != "go" {
		t.Errorf("Languages() = %v", langs)
	}

	if _, err := Build(factories, []string{"cobol"}); !errors.HasCode(err, errors.InvalidArgument) {
		t.Errorf("Build(cobol) error = %v, want INVALID_ARGUMENT", err)
	}
}
