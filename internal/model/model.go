// Package model defines the structural model of source code: files, types,
// functions and variables, identified by hierarchical ids.
//
// Nodes are values. Constructors validate eagerly and every function in this
// package and in the edit engines returns new nodes instead of mutating the
// ones it was given.
package model

import (
	"fmt"
	"slices"
	"sort"

	"chronolens/internal/errors"
)

// Kind is the variant of a SourceNode.
type Kind int

const (
	KindFile Kind = iota
	KindType
	KindFunction
	KindVariable
)

// String returns the variant name used in serialized models and messages.
func (k Kind) String() string {
	switch k {
	case KindFile:
		return "SourceFile"
	case KindType:
		return "Type"
	case KindFunction:
		return "Function"
	case KindVariable:
		return "Variable"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "SourceFile":
		return KindFile, nil
	case "Type":
		return KindType, nil
	case "Function":
		return KindFunction, nil
	case "Variable":
		return KindVariable, nil
	default:
		return 0, fmt.Errorf("unknown node kind %q", s)
	}
}

// SourceNode is implemented by exactly *SourceFile, *Type, *Function and
// *Variable.
type SourceNode interface {
	ID() string
	Kind() Kind
	sourceNode()
}

// SourceEntity is a SourceNode that lives inside a file: *Type, *Function or
// *Variable.
type SourceEntity interface {
	SourceNode
	sourceEntity()
}

// Set is a sorted, duplicate-free list of strings.
type Set []string

// NewSet returns the sorted set of the given values.
func NewSet(values ...string) Set {
	if len(values) == 0 {
		return nil
	}
	s := slices.Clone(values)
	sort.Strings(s)
	return Set(slices.Compact(s))
}

// Contains reports whether v is in the set.
func (s Set) Contains(v string) bool {
	_, ok := slices.BinarySearch(s, v)
	return ok
}

// SourceFile is the model of one interpretable file.
type SourceFile struct {
	Path     string
	Entities []SourceEntity
}

// Type is a class, interface, struct or similar declaration.
type Type struct {
	Identifier string
	Modifiers  Set
	Supertypes Set
	Members    []SourceEntity
}

// Function is a callable declaration. Its simple id is its signature.
type Function struct {
	Identifier string
	Modifiers  Set
	Parameters []string
	Body       []string
}

// Variable is a field, constant or variable declaration.
type Variable struct {
	Identifier  string
	Modifiers   Set
	Initializer []string
}

func (f *SourceFile) ID() string { return f.Path }
func (t *Type) ID() string       { return t.Identifier }
func (f *Function) ID() string   { return f.Identifier }
func (v *Variable) ID() string   { return v.Identifier }

func (*SourceFile) Kind() Kind { return KindFile }
func (*Type) Kind() Kind       { return KindType }
func (*Function) Kind() Kind   { return KindFunction }
func (*Variable) Kind() Kind   { return KindVariable }

func (*SourceFile) sourceNode() {}
func (*Type) sourceNode()       {}
func (*Function) sourceNode()   {}
func (*Variable) sourceNode()   {}

func (*Type) sourceEntity()     {}
func (*Function) sourceEntity() {}
func (*Variable) sourceEntity() {}

// Name returns the simple name of the type.
func (t *Type) Name() string { return SimpleID(t.Identifier) }

// Signature returns the signature of the function.
func (f *Function) Signature() string { return SimpleID(f.Identifier) }

// Name returns the simple name of the variable.
func (v *Variable) Name() string { return SimpleID(v.Identifier) }

// NewSourceFile validates and returns a source file with the given entities.
func NewSourceFile(path string, entities ...SourceEntity) (*SourceFile, error) {
	if !IsValidPath(path) {
		return nil, errors.Newf(errors.InvalidIdentifier, "invalid source path '%s'", path)
	}
	if err := Validate(path, entities); err != nil {
		return nil, err
	}
	return &SourceFile{Path: path, Entities: SortEntities(entities)}, nil
}

// NewType validates and returns a type.
func NewType(id string, modifiers, supertypes Set, members ...SourceEntity) (*Type, error) {
	if !IsValidID(id) || ParentID(id) == "" {
		return nil, errors.Newf(errors.InvalidIdentifier, "invalid type id '%s'", id)
	}
	if err := Validate(id, members); err != nil {
		return nil, err
	}
	return &Type{
		Identifier: id,
		Modifiers:  NewSet(modifiers...),
		Supertypes: NewSet(supertypes...),
		Members:    SortEntities(members),
	}, nil
}

// NewFunction validates and returns a function.
func NewFunction(id string, modifiers Set, parameters, body []string) (*Function, error) {
	if !IsValidID(id) || ParentID(id) == "" {
		return nil, errors.Newf(errors.InvalidIdentifier, "invalid function id '%s'", id)
	}
	if err := validateDistinct(id, "parameter", parameters); err != nil {
		return nil, err
	}
	return &Function{
		Identifier: id,
		Modifiers:  NewSet(modifiers...),
		Parameters: emptyToNil(parameters),
		Body:       emptyToNil(body),
	}, nil
}

// NewVariable validates and returns a variable.
func NewVariable(id string, modifiers Set, initializer []string) (*Variable, error) {
	if !IsValidID(id) || ParentID(id) == "" {
		return nil, errors.Newf(errors.InvalidIdentifier, "invalid variable id '%s'", id)
	}
	return &Variable{
		Identifier:  id,
		Modifiers:   NewSet(modifiers...),
		Initializer: emptyToNil(initializer),
	}, nil
}

// MustSourceFile is like NewSourceFile but panics on error.
func MustSourceFile(path string, entities ...SourceEntity) *SourceFile {
	f, err := NewSourceFile(path, entities...)
	if err != nil {
		panic(err)
	}
	return f
}

// MustType is like NewType but panics on error.
func MustType(id string, modifiers, supertypes Set, members ...SourceEntity) *Type {
	t, err := NewType(id, modifiers, supertypes, members...)
	if err != nil {
		panic(err)
	}
	return t
}

// MustFunction is like NewFunction but panics on error.
func MustFunction(id string, modifiers Set, parameters, body []string) *Function {
	f, err := NewFunction(id, modifiers, parameters, body)
	if err != nil {
		panic(err)
	}
	return f
}

// MustVariable is like NewVariable but panics on error.
func MustVariable(id string, modifiers Set, initializer []string) *Variable {
	v, err := NewVariable(id, modifiers, initializer)
	if err != nil {
		panic(err)
	}
	return v
}

// Compare orders entities by (kind, id).
func Compare(a, b SourceEntity) int {
	if a.Kind() != b.Kind() {
		return int(a.Kind()) - int(b.Kind())
	}
	switch {
	case a.ID() < b.ID():
		return -1
	case a.ID() > b.ID():
		return 1
	default:
		return 0
	}
}

// SortEntities returns a sorted copy of entities, or nil if there are none.
func SortEntities(entities []SourceEntity) []SourceEntity {
	if len(entities) == 0 {
		return nil
	}
	sorted := slices.Clone(entities)
	slices.SortFunc(sorted, Compare)
	return sorted
}

// Children returns the direct children of node.
func Children(node SourceNode) []SourceEntity {
	switch n := node.(type) {
	case *SourceFile:
		return n.Entities
	case *Type:
		return n.Members
	case *Function, *Variable:
		return nil
	default:
		panic(fmt.Sprintf("model: unknown node %T", node))
	}
}

func emptyToNil(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	return slices.Clone(values)
}
