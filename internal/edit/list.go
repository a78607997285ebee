package edit

import "slices"

// ListEdit is an edit over an ordered sequence. It is implemented by ListAdd
// and ListRemove. Indices refer to the sequence as it is when the edit is
// applied, so a script must be applied in order.
type ListEdit[T comparable] interface {
	applyList(list []T) ([]T, error)
}

// ListAdd inserts Value so that it ends up at Index.
type ListAdd[T comparable] struct {
	Index int
	Value T
}

// ListRemove deletes the element at Index.
type ListRemove[T comparable] struct {
	Index int
}

func (e ListAdd[T]) applyList(list []T) ([]T, error) {
	if e.Index < 0 || e.Index > len(list) {
		return nil, conflictf("can't add at index %d of a list of size %d", e.Index, len(list))
	}
	return slices.Insert(list, e.Index, e.Value), nil
}

func (e ListRemove[T]) applyList(list []T) ([]T, error) {
	if e.Index < 0 || e.Index >= len(list) {
		return nil, notFoundf("can't remove index %d of a list of size %d", e.Index, len(list))
	}
	return slices.Delete(list, e.Index, e.Index+1), nil
}

// ApplyList applies edits in order and returns the resulting list. The input
// is not modified.
func ApplyList[T comparable](list []T, edits []ListEdit[T]) ([]T, error) {
	out := slices.Clone(list)
	for _, e := range edits {
		var err error
		if out, err = e.applyList(out); err != nil {
			return nil, err
		}
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

// DiffList returns the edits turning before into after using positional
// replacement. Elements are compared index by index; a mismatch at i becomes
// Remove(i) followed by Add(i, after[i]). Extra elements of after are added
// at increasing indices and extra elements of before are removed from the
// tail. The result is not a minimal edit script.
func DiffList[T comparable](before, after []T) []ListEdit[T] {
	var edits []ListEdit[T]
	common := min(len(before), len(after))
	for i := 0; i < common; i++ {
		if before[i] != after[i] {
			edits = append(edits, ListRemove[T]{Index: i}, ListAdd[T]{Index: i, Value: after[i]})
		}
	}
	for i := common; i < len(after); i++ {
		edits = append(edits, ListAdd[T]{Index: i, Value: after[i]})
	}
	for i := common; i < len(before); i++ {
		edits = append(edits, ListRemove[T]{Index: len(after)})
	}
	return edits
}
