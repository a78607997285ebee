package model

import (
	"testing"

	"chronolens/internal/errors"
)

func TestNewSourceFile_DuplicateEntity(t *testing.T) {
	path := "src/Test.java"
	entities := []SourceEntity{
		MustType(path+":Type", nil, nil),
		MustType(path+":Type", NewSet("public"), nil),
	}

	_, err := NewSourceFile(path, entities...)
	if !errors.HasCode(err, errors.DuplicateIdentifier) {
		t.Fatalf("NewSourceFile() error = %v, want DUPLICATE_IDENTIFIER", err)
	}
}

func TestNewSourceFile_InvalidEntityID(t *testing.T) {
	_, err := NewSourceFile("src/Test.java", MustType("src/Test:Type", nil, nil))
	if !errors.HasCode(err, errors.InvalidIdentifier) {
		t.Fatalf("NewSourceFile() error = %v, want INVALID_IDENTIFIER", err)
	}
}

func TestNewSourceFile_WrongSeparatorForKind(t *testing.T) {
	// variables are separated by '#', not ':'
	v := &Variable{Identifier: "src/Test.java:VERSION"}

	_, err := NewSourceFile("src/Test.java", v)
	if !errors.HasCode(err, errors.InvalidIdentifier) {
		t.Fatalf("NewSourceFile() error = %v, want INVALID_IDENTIFIER", err)
	}
}

func TestNewType_DuplicateMember(t *testing.T) {
	id := "src/Test.java:Type"
	members := []SourceEntity{
		MustVariable(id+"#member", nil, nil),
		MustVariable(id+"#member", nil, []string{"1"}),
	}

	_, err := NewType(id, nil, nil, members...)
	if !errors.HasCode(err, errors.DuplicateIdentifier) {
		t.Fatalf("NewType() error = %v, want DUPLICATE_IDENTIFIER", err)
	}
}

func TestNewType_SameIDDifferentKind(t *testing.T) {
	id := "src/Test.java:Type"
	members := []SourceEntity{
		MustFunction(id+"#member", nil, nil, nil),
		MustVariable(id+"#member", nil, nil),
	}

	_, err := NewType(id, nil, nil, members...)
	if !errors.HasCode(err, errors.DuplicateIdentifier) {
		t.Fatalf("NewType() error = %v, want DUPLICATE_IDENTIFIER", err)
	}
}

func TestNewType_InvalidMemberID(t *testing.T) {
	id := "src/Test.java:Type"

	_, err := NewType(id, nil, nil, MustType("src/Test.java:Other", nil, nil))
	if !errors.HasCode(err, errors.InvalidIdentifier) {
		t.Fatalf("NewType() error = %v, want INVALID_IDENTIFIER", err)
	}
}

func TestNewFunction_DuplicateParameter(t *testing.T) {
	_, err := NewFunction("src/Test.java#getVersion(int, int)", nil, []string{"param", "param"}, nil)
	if !errors.HasCode(err, errors.DuplicateIdentifier) {
		t.Fatalf("NewFunction() error = %v, want DUPLICATE_IDENTIFIER", err)
	}
}

func TestSimpleNames(t *testing.T) {
	if got := MustSourceFile("src/Test.java").Path; got != "src/Test.java" {
		t.Errorf("Path = %q", got)
	}
	if got := MustType("src/Test.java:Type", nil, nil).Name(); got != "Type" {
		t.Errorf("Type.Name() = %q, want %q", got, "Type")
	}
	if got := MustFunction("src/Test.java#getVersion(int)", nil, nil, nil).Signature(); got != "getVersion(int)" {
		t.Errorf("Function.Signature() = %q, want %q", got, "getVersion(int)")
	}
	if got := MustVariable("src/Test.java#VERSION", nil, nil).Name(); got != "VERSION" {
		t.Errorf("Variable.Name() = %q, want %q", got, "VERSION")
	}
}

func TestNewSet(t *testing.T) {
	s := NewSet("static", "final", "static")
	if len(s) != 2 || s[0] != "final" || s[1] != "static" {
		t.Errorf("NewSet() = %v, want [final static]", s)
	}
	if !s.Contains("final") || s.Contains("public") {
		t.Errorf("Contains() mismatch for %v", s)
	}
	if NewSet() != nil {
		t.Error("NewSet() of nothing should be nil")
	}
}

func TestEntitiesAreSorted(t *testing.T) {
	path := "Main.java"
	f := MustSourceFile(path,
		MustVariable(path+"#b", nil, nil),
		MustType(path+":Z", nil, nil),
		MustFunction(path+"#a()", nil, nil, nil),
		MustType(path+":A", nil, nil),
	)

	want := []string{path + ":A", path + ":Z", path + "#a()", path + "#b"}
	for i, e := range f.Entities {
		if e.ID() != want[i] {
			t.Errorf("Entities[%d] = %q, want %q", i, e.ID(), want[i])
		}
	}
}

func TestEqual(t *testing.T) {
	a := MustType("A.java:A", NewSet("public"), nil,
		MustFunction("A.java:A#run()", nil, nil, []string{"{", "}"}))
	b := MustType("A.java:A", NewSet("public"), nil,
		MustFunction("A.java:A#run()", nil, nil, []string{"{", "}"}))
	c := MustType("A.java:A", NewSet("public"), nil,
		MustFunction("A.java:A#run()", nil, nil, []string{"{}"}))

	if !Equal(a, b) {
		t.Error("Equal(a, b) = false, want true")
	}
	if Equal(a, c) {
		t.Error("Equal(a, c) = true, want false")
	}
	if Equal(a, MustVariable("A.java#A", nil, nil)) {
		t.Error("nodes of different kinds should never be equal")
	}
}

func TestWalkAndFind(t *testing.T) {
	path := "src/Main.java"
	f := MustSourceFile(path,
		MustType(path+":Main", nil, nil,
			MustType(path+":Main:Inner", nil, nil,
				MustVariable(path+":Main:Inner#x", nil, nil)),
			MustFunction(path+":Main#main(String[])", NewSet("static"), []string{"args"}, nil)),
	)

	var ids []string
	Walk(f, func(n SourceNode) bool {
		ids = append(ids, n.ID())
		return true
	})
	if len(ids) != 5 {
		t.Fatalf("Walk visited %d nodes, want 5: %v", len(ids), ids)
	}
	if ids[0] != path {
		t.Errorf("Walk should start at the root, got %q", ids[0])
	}

	node, ok := Find(f, path+":Main:Inner#x")
	if !ok || node.Kind() != KindVariable {
		t.Errorf("Find() = %v, %v", node, ok)
	}
	if _, ok := Find(f, path+":Missing"); ok {
		t.Error("Find() should not find a missing node")
	}
}
