package edit

import (
	"cmp"
	"slices"
)

// SetEdit is an edit over a sorted, duplicate-free collection. It is
// implemented by SetAdd and SetRemove.
type SetEdit[T cmp.Ordered] interface {
	applySet(set []T) ([]T, error)
}

// SetAdd inserts Value. It conflicts if Value is already present.
type SetAdd[T cmp.Ordered] struct {
	Value T
}

// SetRemove deletes Value. It fails with NOT_FOUND if Value is absent.
type SetRemove[T cmp.Ordered] struct {
	Value T
}

func (e SetAdd[T]) applySet(set []T) ([]T, error) {
	i, ok := slices.BinarySearch(set, e.Value)
	if ok {
		return nil, conflictf("set already contains '%v'", e.Value)
	}
	return slices.Insert(set, i, e.Value), nil
}

func (e SetRemove[T]) applySet(set []T) ([]T, error) {
	i, ok := slices.BinarySearch(set, e.Value)
	if !ok {
		return nil, notFoundf("set doesn't contain '%v'", e.Value)
	}
	return slices.Delete(set, i, i+1), nil
}

// ApplySet applies edits in order to a sorted set and returns the resulting
// sorted set. The input is not modified.
func ApplySet[T cmp.Ordered](set []T, edits []SetEdit[T]) ([]T, error) {
	out := slices.Clone(set)
	for _, e := range edits {
		var err error
		if out, err = e.applySet(out); err != nil {
			return nil, err
		}
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

// DiffSet returns the edits turning the sorted set before into after: the
// added values in order, then the removed values in order.
func DiffSet[T cmp.Ordered](before, after []T) []SetEdit[T] {
	var adds, removes []SetEdit[T]
	for _, v := range after {
		if _, ok := slices.BinarySearch(before, v); !ok {
			adds = append(adds, SetAdd[T]{Value: v})
		}
	}
	for _, v := range before {
		if _, ok := slices.BinarySearch(after, v); !ok {
			removes = append(removes, SetRemove[T]{Value: v})
		}
	}
	return append(adds, removes...)
}
