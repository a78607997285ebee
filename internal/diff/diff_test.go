package diff

import (
	"context"
	"testing"

	"chronolens/internal/edit"
	"chronolens/internal/model"
)

func TestProject(t *testing.T) {
	before := model.MustProject(
		model.MustSourceFile("Kept.java", model.MustType("Kept.java:Kept", nil, nil)),
		model.MustSourceFile("Changed.java", model.MustType("Changed.java:Changed", nil, nil)),
		model.MustSourceFile("Removed.java"),
	)
	after := model.MustProject(
		model.MustSourceFile("Kept.java", model.MustType("Kept.java:Kept", nil, nil)),
		model.MustSourceFile("Changed.java", model.MustType("Changed.java:Changed", model.NewSet("interface"), nil)),
		model.MustSourceFile("Added.java", model.MustVariable("Added.java#x", nil, nil)),
		model.MustSourceFile("Empty.java"),
	)

	got, err := Project(context.Background(), before, after, WithWorkers(2))
	if err != nil {
		t.Fatalf("Project() error = %v", err)
	}

	if _, ok := got["Kept.java"]; ok {
		t.Error("identical files must be omitted")
	}
	if tx, ok := got["Removed.java"]; !ok || tx != nil {
		t.Errorf("removed file = %v, %v; want nil, true", tx, ok)
	}
	if tx := got["Added.java"]; tx == nil || len(tx.Edits) != 1 {
		t.Errorf("added file = %v, want a single add", tx)
	} else if _, ok := tx.Edits[0].(edit.NodeAdd); !ok {
		t.Errorf("added file edit = %T, want NodeAdd", tx.Edits[0])
	}
	if tx, ok := got["Empty.java"]; !ok || tx == nil || !tx.IsEmpty() {
		t.Errorf("added empty file = %v, %v; want an empty transaction", tx, ok)
	}
	if tx := got["Changed.java"]; tx == nil || len(tx.Edits) != 1 {
		t.Errorf("changed file = %v, want a single change", tx)
	}
	if len(got) != 4 {
		t.Errorf("Project() returned %d paths, want 4", len(got))
	}
}

func TestProject_Identity(t *testing.T) {
	p := model.MustProject(
		model.MustSourceFile("A.java", model.MustType("A.java:A", nil, nil)),
		model.MustSourceFile("B.java"),
	)

	got, err := Project(context.Background(), p, p)
	if err != nil {
		t.Fatalf("Project() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Project(x, x) = %v, want empty", got)
	}
}

func TestProject_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := model.MustProject(model.MustSourceFile("A.java"))
	if _, err := Project(ctx, model.Project{}, p); err == nil {
		t.Error("Project() with a cancelled context should fail")
	}
}
