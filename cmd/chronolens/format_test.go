package main

import (
	"bytes"
	"strings"
	"testing"

	"chronolens/internal/model"
)

func TestFormatResponse_JSON(t *testing.T) {
	resp := map[string]interface{}{
		"key": "value",
		"num": 42,
	}

	result, err := FormatResponse(resp, FormatJSON)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result, `"key": "value"`) {
		t.Error("JSON output missing expected key")
	}
	if !strings.Contains(result, `"num": 42`) {
		t.Error("JSON output missing expected number")
	}
}

func TestFormatResponse_YAML(t *testing.T) {
	resp := &revListResponse{Head: "r2", Revisions: []string{"r1", "r2"}}

	result, err := FormatResponse(resp, FormatYAML)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "head: r2\nrevisions:\n    - r1\n    - r2"
	if result != want {
		t.Errorf("YAML output = %q, want %q", result, want)
	}
}

func TestFormatResponse_Human(t *testing.T) {
	tests := []struct {
		name string
		resp interface{}
		want string
	}{
		{"ls-tree", &lsTreeResponse{Revision: "r1", Sources: []string{"a.go", "b.go"}}, "a.go\nb.go"},
		{"rev-list", &revListResponse{Head: "r2", Revisions: []string{"r1", "r2"}}, "r1\nr2"},
		{"clean", &cleanResponse{Store: "/repo/.chronolens"}, "Removed /repo/.chronolens"},
		{"fallback", map[string]int{"n": 1}, "{\n  \"n\": 1\n}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FormatResponse(tt.resp, FormatHuman)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("FormatResponse() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatResponse_UnsupportedFormat(t *testing.T) {
	resp := map[string]string{"key": "value"}

	_, err := FormatResponse(resp, "xml")
	if err == nil {
		t.Error("expected error for unsupported format")
	}
	if !strings.Contains(err.Error(), "unsupported format") {
		t.Errorf("error should mention unsupported format, got: %v", err)
	}
}

func TestNodeResponse(t *testing.T) {
	node := model.MustType("src/Main.java:Main", model.NewSet("public"), model.NewSet("Base"),
		model.MustFunction("src/Main.java:Main#run()", nil, nil, []string{"{", "go();", "}"}),
		model.MustVariable("src/Main.java:Main#x", nil, []string{"1"}),
	)
	resp := &nodeResponse{node: node}

	human, err := FormatResponse(resp, FormatHuman)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantHuman := strings.Join([]string{
		"type Main [public] : Base",
		"  function run()",
		"      | {",
		"      | go();",
		"      | }",
		"  variable x",
		"      | 1",
	}, "\n")
	if human != wantHuman {
		t.Errorf("human output =\n%s\nwant\n%s", human, wantHuman)
	}

	js, err := FormatResponse(resp, FormatJSON)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(js, `"@class": "Type"`) || !strings.Contains(js, `"id": "src/Main.java:Main"`) {
		t.Errorf("JSON output missing the tagged node:\n%s", js)
	}

	yml, err := FormatResponse(resp, FormatYAML)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(yml, "@class") || !strings.Contains(yml, "src/Main.java:Main") {
		t.Errorf("YAML output missing the tagged node:\n%s", yml)
	}
}

func TestProgressPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := newProgressPrinter(&buf)
	p.OnSnapshotStart("r2", 2)
	p.OnSourcePersisted("a.go")
	p.OnSourcePersisted("b.go")
	p.OnSnapshotEnd()
	p.OnHistoryStart(1)
	p.OnTransactionPersisted("r1")
	p.OnHistoryEnd()

	want := "Persisting snapshot of r2 (2 sources)\n" +
		"\r  1/2 sources\r  2/2 sources\n" +
		"Persisting history (1 revisions)\n" +
		"\r  1/1 revisions\n"
	if buf.String() != want {
		t.Errorf("progress output = %q, want %q", buf.String(), want)
	}
}
