package patch

import (
	"context"
	"strings"
	"testing"
	"time"

	"chronolens/internal/diff"
	"chronolens/internal/edit"
	"chronolens/internal/errors"
	"chronolens/internal/history"
	"chronolens/internal/model"
)

func snapshots() (model.Project, model.Project) {
	before := model.MustProject(
		model.MustSourceFile("Main.java", model.MustType("Main.java:Main", nil, nil)),
		model.MustSourceFile("Util.java",
			model.MustFunction("Util.java#log(String, int)", nil, []string{"name", "revision"}, []string{"{", "}"})),
		model.MustSourceFile("Gone.java"),
	)
	after := model.MustProject(
		model.MustSourceFile("Main.java", model.MustType("Main.java:Main", model.NewSet("interface"), nil)),
		model.MustSourceFile("Util.java",
			model.MustFunction("Util.java#log(String, int)", nil, []string{"className", "revision"}, []string{"{", "}"})),
		model.MustSourceFile("New.java", model.MustVariable("New.java#x", nil, []string{"1"})),
	)
	return before, after
}

func TestProject_RoundTrip(t *testing.T) {
	before, after := snapshots()

	for _, pair := range [][2]model.Project{{before, after}, {after, before}, {model.Project{}, after}, {before, model.Project{}}} {
		txs, err := diff.Project(context.Background(), pair[0], pair[1])
		if err != nil {
			t.Fatalf("diff.Project() error = %v", err)
		}
		got, err := Project(pair[0], txs)
		if err != nil {
			t.Fatalf("Project() error = %v", err)
		}
		if !got.Equal(pair[1]) {
			t.Errorf("round trip mismatch: got paths %v, want %v", got.Paths(), pair[1].Paths())
		}
	}
}

func TestProject_EmptyScriptIsIdentity(t *testing.T) {
	before, _ := snapshots()

	got, err := Project(before, nil)
	if err != nil {
		t.Fatalf("Project() error = %v", err)
	}
	if !got.Equal(before) {
		t.Error("applying no transactions changed the project")
	}
}

func TestProject_FailedPreconditions(t *testing.T) {
	before, _ := snapshots()
	tests := []struct {
		name string
		path string
		tx   *edit.SourceFileTransaction
		code errors.ErrorCode
	}{
		{"remove missing file", "Missing.java", nil, errors.NotFound},
		{"add existing type", "Main.java", &edit.SourceFileTransaction{Edits: []edit.NodeSetEdit{
			edit.NodeAdd{Node: model.MustType("Main.java:Main", nil, nil)},
		}}, errors.Conflict},
		{"remove missing type", "Main.java", &edit.SourceFileTransaction{Edits: []edit.NodeSetEdit{
			edit.NodeRemove{Kind: model.KindType, ID: "Main.java:Other"},
		}}, errors.NotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txs := map[string]*edit.SourceFileTransaction{tt.path: tt.tx}
			_, err := Project(before, txs)
			if !errors.HasCode(err, errors.CorruptedHistory) {
				t.Errorf("Project() error = %v, want CORRUPTED_HISTORY", err)
			}
			if !errors.HasCode(err, tt.code) {
				t.Errorf("Project() error = %v, want it to wrap %s", err, tt.code)
			}
			if err != nil && !strings.Contains(err.Error(), tt.path) {
				t.Errorf("Project() error = %v, want it to name %s", err, tt.path)
			}
		})
	}
}

func TestEntry(t *testing.T) {
	before, after := snapshots()
	txs, err := diff.Project(context.Background(), before, after)
	if err != nil {
		t.Fatalf("diff.Project() error = %v", err)
	}
	entry := history.NewEntry("r2", time.Unix(100, 0), "bob", txs, []string{"Broken.java"})

	got, err := Entry(before, entry)
	if err != nil {
		t.Fatalf("Entry() error = %v", err)
	}
	broken, ok := got.Get("Broken.java")
	if !ok || len(broken.Entities) != 0 {
		t.Errorf("an uninterpretable new file should be the empty file, got %v, %v", broken, ok)
	}
	if !got.Without("Broken.java").Equal(after) {
		t.Error("Entry() didn't reproduce the next snapshot")
	}
}

func TestEntry_UninterpretableKeepsPreviousModel(t *testing.T) {
	before, _ := snapshots()
	entry := history.Entry{
		Revision: "r3",
		Changes:  []history.FileChange{{Path: "Main.java", Kind: history.Uninterpretable}},
	}

	got, err := Entry(before, entry)
	if err != nil {
		t.Fatalf("Entry() error = %v", err)
	}
	if !got.Equal(before) {
		t.Error("uninterpretable change should keep the previous model")
	}
}

func TestEntry_CorruptedHistory(t *testing.T) {
	before, _ := snapshots()
	entry := history.Entry{
		Revision: "r4",
		Changes: []history.FileChange{{
			Path: "Main.java",
			Kind: history.Edited,
			Transaction: &edit.SourceFileTransaction{Edits: []edit.NodeSetEdit{
				edit.NodeRemove{Kind: model.KindType, ID: "Main.java:Other"},
			}},
		}},
	}

	_, err := Entry(before, entry)
	if !errors.HasCode(err, errors.CorruptedHistory) {
		t.Fatalf("Entry() error = %v, want CORRUPTED_HISTORY", err)
	}
	if !errors.HasCode(err, errors.NotFound) {
		t.Errorf("Entry() error = %v, should keep the NOT_FOUND cause", err)
	}
	if msg := err.Error(); !strings.Contains(msg, "r4") || !strings.Contains(msg, "Main.java") {
		t.Errorf("Entry() error = %q, want revision and path named", msg)
	}
}
