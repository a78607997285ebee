// Package edit implements the edit algebra over the structural model: typed,
// serializable edits for sets, lists, maps and sets of nodes, plus the
// per-kind transactions composing them.
//
// Every Apply function is pure. Inputs are never modified and a failing
// apply returns the zero value together with a CONFLICT or NOT_FOUND error.
package edit

import (
	"chronolens/internal/errors"
)

func conflictf(format string, args ...interface{}) error {
	return errors.Newf(errors.Conflict, format, args...)
}

func notFoundf(format string, args ...interface{}) error {
	return errors.Newf(errors.NotFound, format, args...)
}
