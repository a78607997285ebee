//go:build cgo

package treesitter

import (
	"testing"

	"chronolens/internal/errors"
	"chronolens/internal/model"
	"chronolens/internal/parser"
)

func TestGo_Parse(t *testing.T) {
	const path = "demo/demo.go"
	source := `package demo

import "fmt"

const Answer = 42

var (
	count, total int
	name = "x"
	_    = fmt.Sprint
)

type Server struct {
	io.Reader
	addr string
}

type Handler interface {
	Serve(ctx context.Context) error
}

func (s *Server) Start(addr string, port int) error {
	s.addr = addr

	return nil
}

func New(opts ...string) *Server { return &Server{} }

func init() { count = 1 }

func (c *client) Close() {}
`
	server := path + ":Server"
	handler := path + ":Handler"
	client := path + ":client"
	want := model.MustSourceFile(path,
		model.MustVariable(path+"#Answer", set("const", "exported"), []string{"42"}),
		model.MustVariable(path+"#count", set("var"), nil),
		model.MustVariable(path+"#total", set("var"), nil),
		model.MustVariable(path+"#name", set("var"), []string{`"x"`}),
		model.MustType(server, set("exported", "struct"), set("io.Reader"),
			model.MustVariable(server+"#addr", nil, []string{"string"}),
			model.MustFunction(server+"#Start(string, int)", set("exported"), []string{"addr", "port"},
				[]string{"{", "s.addr = addr", "return nil", "}"}),
		),
		model.MustType(handler, set("exported", "interface"), nil,
			model.MustFunction(handler+"#Serve(context.Context)", set("exported"), []string{"ctx"}, nil),
		),
		model.MustFunction(path+"#New(...string)", set("exported"), []string{"opts"},
			[]string{"{ return &Server{} }"}),
		model.MustFunction(path+"#init()", nil, nil, []string{"{ count = 1 }"}),
		model.MustType(client, nil, nil,
			model.MustFunction(client+"#Close()", set("exported"), nil, []string{"{}"}),
		),
	)

	got, err := NewGo().Parse(path, []byte(source))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !model.Equal(got, want) {
		t.Errorf("Parse() = %+v\nwant %+v", got, want)
	}
}

func TestGo_InitFunctionsMerge(t *testing.T) {
	source := "package p\n\nfunc init() {\n\ta()\n}\n\nfunc init() {\n\tb()\n}\n"
	got, err := NewGo().Parse("p.go", []byte(source))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	want := model.MustSourceFile("p.go",
		model.MustFunction("p.go#init()", nil, nil, []string{"{", "a()", "}", "{", "b()", "}"}),
	)
	if !model.Equal(got, want) {
		t.Errorf("Parse() = %+v, want %+v", got, want)
	}
}

func TestGo_SyntaxErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"unbalanced braces", "package p\n\nfunc f() {\n"},
		{"duplicate function", "package p\n\nfunc f() {}\nfunc f() {}\n"},
		{"duplicate type", "package p\n\ntype T int\ntype T string\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGo().Parse("p.go", []byte(tt.source))
			if !errors.HasCode(err, errors.SyntaxError) {
				t.Errorf("Parse() error = %v, want SYNTAX_ERROR", err)
			}
		})
	}
}

func TestFactories(t *testing.T) {
	r, err := parser.Build(Factories(), []string{GoLanguage, JavaLanguage})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if got := r.Languages(); len(got) != 2 || got[0] != GoLanguage || got[1] != JavaLanguage {
		t.Errorf("Languages() = %v", got)
	}
	f, err := r.Parse("a/b.go", []byte("package b\n\nvar X = 1\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if _, ok := model.Find(f, "a/b.go#X"); !ok {
		t.Error("parsed file should declare X")
	}
}
