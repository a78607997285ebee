package model

import (
	"fmt"
	"slices"
)

// Walk calls fn for node and all of its descendants in pre-order, stopping
// early if fn returns false.
func Walk(node SourceNode, fn func(SourceNode) bool) bool {
	if !fn(node) {
		return false
	}
	for _, child := range Children(node) {
		if !Walk(child, fn) {
			return false
		}
	}
	return true
}

// Find returns the node with the given id inside root, if any.
func Find(root SourceNode, id string) (SourceNode, bool) {
	var found SourceNode
	Walk(root, func(n SourceNode) bool {
		if n.ID() == id {
			found = n
			return false
		}
		return true
	})
	return found, found != nil
}

// Equal reports whether a and b are structurally equal.
func Equal(a, b SourceNode) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() || a.ID() != b.ID() {
		return false
	}
	switch x := a.(type) {
	case *SourceFile:
		y := b.(*SourceFile)
		return equalEntities(x.Entities, y.Entities)
	case *Type:
		y := b.(*Type)
		return slices.Equal(x.Modifiers, y.Modifiers) &&
			slices.Equal(x.Supertypes, y.Supertypes) &&
			equalEntities(x.Members, y.Members)
	case *Function:
		y := b.(*Function)
		return slices.Equal(x.Modifiers, y.Modifiers) &&
			slices.Equal(x.Parameters, y.Parameters) &&
			slices.Equal(x.Body, y.Body)
	case *Variable:
		y := b.(*Variable)
		return slices.Equal(x.Modifiers, y.Modifiers) &&
			slices.Equal(x.Initializer, y.Initializer)
	default:
		panic(fmt.Sprintf("model: unknown node %T", a))
	}
}

func equalEntities(a, b []SourceEntity) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}
