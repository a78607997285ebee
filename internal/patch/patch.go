// Package patch applies edit scripts produced by package diff and history
// entries to project snapshots.
package patch

import (
	"fmt"
	"maps"
	"slices"

	"chronolens/internal/edit"
	"chronolens/internal/errors"
	"chronolens/internal/history"
	"chronolens/internal/model"
)

// Project applies the per-path transactions in txs to before, in path order.
// A nil transaction removes the file; a transaction for an absent path
// starts from the empty file. The result satisfies
// Project(before, diff.Project(before, after)) == after.
//
// A failure is a CORRUPTED_HISTORY error naming the path, wrapping the
// CONFLICT or NOT_FOUND error of the failed precondition. No partial result
// is returned.
func Project(before model.Project, txs map[string]*edit.SourceFileTransaction) (model.Project, error) {
	after := before
	for _, path := range slices.Sorted(maps.Keys(txs)) {
		var err error
		if after, err = applyFile(after, path, txs[path]); err != nil {
			return model.Project{}, errors.New(errors.CorruptedHistory,
				fmt.Sprintf("can't apply the transaction of '%s'", path), err)
		}
	}
	return after, nil
}

func applyFile(p model.Project, path string, tx *edit.SourceFileTransaction) (model.Project, error) {
	file, ok := p.Get(path)
	if tx == nil {
		if !ok {
			return model.Project{}, errors.Newf(errors.NotFound, "can't remove missing source '%s'", path)
		}
		return p.Without(path), nil
	}
	changed, err := edit.ApplySourceFile(path, file, tx)
	if err != nil {
		return model.Project{}, err
	}
	return p.With(changed), nil
}

// SourceFile applies one change to the model of its file. file is nil if
// the path doesn't exist before the change; the result is nil if it doesn't
// exist after it.
func SourceFile(file *model.SourceFile, change history.FileChange) (*model.SourceFile, error) {
	switch change.Kind {
	case history.Edited:
		return edit.ApplySourceFile(change.Path, file, change.Transaction)
	case history.Removed:
		if file == nil {
			return nil, errors.Newf(errors.NotFound, "can't remove missing source '%s'", change.Path)
		}
		return nil, nil
	case history.Uninterpretable:
		if file == nil {
			return model.NewSourceFile(change.Path)
		}
		return file, nil
	default:
		panic(fmt.Sprintf("patch: unknown change kind %v", change.Kind))
	}
}

// Entry applies a history entry to project. Any failure means the history
// and the project disagree and is reported as CORRUPTED_HISTORY naming the
// path and revision.
func Entry(project model.Project, entry history.Entry) (model.Project, error) {
	for _, change := range entry.Changes {
		before, _ := project.Get(change.Path)
		after, err := SourceFile(before, change)
		if err != nil {
			return model.Project{}, Corrupted(entry.Revision, change.Path, err)
		}
		if after == nil {
			project = project.Without(change.Path)
		} else {
			project = project.With(after)
		}
	}
	return project, nil
}

// Corrupted wraps err as a CORRUPTED_HISTORY error for path at revision.
func Corrupted(revision, path string, err error) error {
	return errors.New(errors.CorruptedHistory,
		fmt.Sprintf("can't apply revision '%s' to '%s'", revision, path), err)
}
