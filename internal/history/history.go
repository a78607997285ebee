// Package history defines the entries of a repository's structural history
// and the restartable sequences they are read through.
package history

import (
	"cmp"
	"fmt"
	"iter"
	"maps"
	"slices"
	"time"

	"chronolens/internal/edit"
)

// ChangeKind says what happened to one file in one revision.
type ChangeKind int

const (
	// Edited files carry the transaction from their previous model. Added
	// files are edits of the empty file.
	Edited ChangeKind = iota
	// Removed files were deleted in the revision.
	Removed
	// Uninterpretable files couldn't be parsed in the revision and keep
	// their previous model.
	Uninterpretable
)

func (k ChangeKind) String() string {
	switch k {
	case Edited:
		return "edited"
	case Removed:
		return "removed"
	case Uninterpretable:
		return "uninterpretable"
	default:
		return fmt.Sprintf("ChangeKind(%d)", int(k))
	}
}

// ParseChangeKind is the inverse of ChangeKind.String.
func ParseChangeKind(s string) (ChangeKind, error) {
	switch s {
	case "edited":
		return Edited, nil
	case "removed":
		return Removed, nil
	case "uninterpretable":
		return Uninterpretable, nil
	default:
		return 0, fmt.Errorf("unknown change kind %q", s)
	}
}

// FileChange is the change of one file in one revision. Transaction is set
// only for Edited changes.
type FileChange struct {
	Path        string
	Kind        ChangeKind
	Transaction *edit.SourceFileTransaction
}

// Entry is one revision of the history: who made it, when, and how every
// touched file changed.
type Entry struct {
	Revision string
	Date     time.Time
	Author   string
	Changes  []FileChange
}

// NewEntry builds the entry of a revision from the per-path transactions
// computed for it (nil meaning removed) and the paths that couldn't be
// parsed. Changes are sorted by path.
func NewEntry(revision string, date time.Time, author string, txs map[string]*edit.SourceFileTransaction, uninterpretable []string) Entry {
	changes := make([]FileChange, 0, len(txs)+len(uninterpretable))
	skip := make(map[string]bool, len(uninterpretable))
	for _, path := range uninterpretable {
		skip[path] = true
		changes = append(changes, FileChange{Path: path, Kind: Uninterpretable})
	}
	for _, path := range slices.Sorted(maps.Keys(txs)) {
		if skip[path] {
			continue
		}
		if tx := txs[path]; tx == nil {
			changes = append(changes, FileChange{Path: path, Kind: Removed})
		} else {
			changes = append(changes, FileChange{Path: path, Kind: Edited, Transaction: tx})
		}
	}
	slices.SortFunc(changes, func(a, b FileChange) int {
		return cmp.Compare(a.Path, b.Path)
	})
	return Entry{Revision: revision, Date: date, Author: author, Changes: changes}
}

// Change returns the change of path in the entry, if any.
func (e Entry) Change(path string) (FileChange, bool) {
	i, ok := slices.BinarySearchFunc(e.Changes, path, func(c FileChange, p string) int {
		return cmp.Compare(c.Path, p)
	})
	if !ok {
		return FileChange{}, false
	}
	return e.Changes[i], true
}

// Sequence is a finite, chronological sequence of entries. Ranging over it
// again starts a new independent pass. A non-nil error ends the sequence.
type Sequence = iter.Seq2[Entry, error]

// FromSlice returns a sequence over entries.
func FromSlice(entries []Entry) Sequence {
	return func(yield func(Entry, error) bool) {
		for _, e := range entries {
			if !yield(e, nil) {
				return
			}
		}
	}
}

// Collect reads a whole sequence.
func Collect(seq Sequence) ([]Entry, error) {
	var entries []Entry
	for e, err := range seq {
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}
