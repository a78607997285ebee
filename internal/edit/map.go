package edit

import (
	"cmp"
	"maps"
	"slices"
)

// MapEdit is an edit over a key-unique mapping. It is implemented by MapAdd,
// MapRemove and MapChange.
type MapEdit[K cmp.Ordered, V comparable] interface {
	applyMap(m map[K]V) error
}

// MapAdd binds Key to Value. It conflicts if Key is already bound.
type MapAdd[K cmp.Ordered, V comparable] struct {
	Key   K
	Value V
}

// MapRemove unbinds Key.
type MapRemove[K cmp.Ordered, V comparable] struct {
	Key K
}

// MapChange rebinds an existing Key to Value.
type MapChange[K cmp.Ordered, V comparable] struct {
	Key   K
	Value V
}

func (e MapAdd[K, V]) applyMap(m map[K]V) error {
	if _, ok := m[e.Key]; ok {
		return conflictf("key '%v' already exists", e.Key)
	}
	m[e.Key] = e.Value
	return nil
}

func (e MapRemove[K, V]) applyMap(m map[K]V) error {
	if _, ok := m[e.Key]; !ok {
		return notFoundf("key '%v' doesn't exist", e.Key)
	}
	delete(m, e.Key)
	return nil
}

func (e MapChange[K, V]) applyMap(m map[K]V) error {
	if _, ok := m[e.Key]; !ok {
		return notFoundf("key '%v' doesn't exist", e.Key)
	}
	m[e.Key] = e.Value
	return nil
}

// ApplyMap applies edits in order and returns the resulting map. The input
// is not modified.
func ApplyMap[K cmp.Ordered, V comparable](m map[K]V, edits []MapEdit[K, V]) (map[K]V, error) {
	out := maps.Clone(m)
	if out == nil {
		out = make(map[K]V)
	}
	for _, e := range edits {
		if err := e.applyMap(out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// DiffMap returns the edits turning before into after: additions, then
// removals, then changes, each sorted by key.
func DiffMap[K cmp.Ordered, V comparable](before, after map[K]V) []MapEdit[K, V] {
	var edits []MapEdit[K, V]
	for _, k := range slices.Sorted(maps.Keys(after)) {
		if _, ok := before[k]; !ok {
			edits = append(edits, MapAdd[K, V]{Key: k, Value: after[k]})
		}
	}
	for _, k := range slices.Sorted(maps.Keys(before)) {
		if _, ok := after[k]; !ok {
			edits = append(edits, MapRemove[K, V]{Key: k})
		}
	}
	for _, k := range slices.Sorted(maps.Keys(after)) {
		if v, ok := before[k]; ok && v != after[k] {
			edits = append(edits, MapChange[K, V]{Key: k, Value: after[k]})
		}
	}
	return edits
}
