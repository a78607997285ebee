package model

import (
	"strings"
	"unicode"

	"chronolens/internal/errors"
)

const (
	// TypeSeparator separates a file or type id from a contained type name.
	TypeSeparator = ':'
	// MemberSeparator separates a file or type id from a contained function
	// signature or variable name.
	MemberSeparator = '#'
)

// SeparatorFor returns the separator used between a parent id and a child of
// the given kind.
func SeparatorFor(kind Kind) byte {
	switch kind {
	case KindType:
		return TypeSeparator
	case KindFunction, KindVariable:
		return MemberSeparator
	default:
		panic("model: source files have no parent")
	}
}

// ChildID builds the identifier of a child of kind named simple under parentID.
func ChildID(parentID string, kind Kind, simple string) string {
	return parentID + string(SeparatorFor(kind)) + simple
}

// IsValidPath reports whether path is a valid repository-relative file path:
// non-empty, '/'-separated, with no empty, "." or ".." segments, and free of
// the id separators.
func IsValidPath(path string) bool {
	if path == "" || strings.ContainsAny(path, ":#\\") {
		return false
	}
	for _, segment := range strings.Split(path, "/") {
		if segment == "" || segment == "." || segment == ".." {
			return false
		}
	}
	return true
}

// IsValidRevisionID reports whether id is a non-empty alphanumeric revision id.
func IsValidRevisionID(id string) bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// isValidSimpleID reports whether s can be the last segment of an id.
func isValidSimpleID(s string) bool {
	return s != "" && !strings.ContainsAny(s, ":#")
}

// SourcePath returns the path of the source file containing the node with
// the given id.
func SourcePath(id string) string {
	if i := strings.IndexAny(id, ":#"); i >= 0 {
		return id[:i]
	}
	return id
}

// ParentID returns the id of the node containing id, or "" for a source file.
func ParentID(id string) string {
	if i := strings.LastIndexAny(id, ":#"); i >= 0 {
		return id[:i]
	}
	return ""
}

// SimpleID returns the suffix of id after its last separator. For a source
// file this is the whole path.
func SimpleID(id string) string {
	if i := strings.LastIndexAny(id, ":#"); i >= 0 {
		return id[i+1:]
	}
	return id
}

// IsValidID reports whether id is a syntactically valid node identifier.
func IsValidID(id string) bool {
	path := SourcePath(id)
	if !IsValidPath(path) {
		return false
	}
	rest := id[len(path):]
	for rest != "" {
		sep := rest[0]
		rest = rest[1:]
		next := strings.IndexAny(rest, ":#")
		simple := rest
		if next >= 0 {
			simple = rest[:next]
		}
		if simple == "" {
			return false
		}
		// functions and variables have no children
		if sep == MemberSeparator && next >= 0 {
			return false
		}
		if next < 0 {
			break
		}
		rest = rest[next:]
	}
	return true
}

// isChildID reports whether id names a child of kind directly under parentID.
func isChildID(parentID string, kind Kind, id string) bool {
	prefix := parentID + string(SeparatorFor(kind))
	if !strings.HasPrefix(id, prefix) {
		return false
	}
	return isValidSimpleID(id[len(prefix):])
}

// Validate checks a set of sibling entities declared under parentID. It fails
// with DuplicateIdentifier if two entities share an id and with
// InvalidIdentifier if an id isn't a syntactic child of parentID.
func Validate(parentID string, entities []SourceEntity) error {
	seen := make(map[string]Kind, len(entities))
	for _, e := range entities {
		if e == nil {
			return errors.Newf(errors.InvalidIdentifier, "nil entity under '%s'", parentID)
		}
		id := e.ID()
		if !isChildID(parentID, e.Kind(), id) {
			return errors.Newf(errors.InvalidIdentifier,
				"%s '%s' is not a valid child of '%s'", e.Kind(), id, parentID)
		}
		if kind, ok := seen[id]; ok {
			return errors.Newf(errors.DuplicateIdentifier,
				"'%s' is declared twice in '%s' (%s and %s)", id, parentID, kind, e.Kind())
		}
		seen[id] = e.Kind()
	}
	return nil
}

// validateDistinct fails with DuplicateIdentifier if values repeat.
func validateDistinct(ownerID, what string, values []string) error {
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			return errors.Newf(errors.DuplicateIdentifier,
				"%s '%s' is declared twice in '%s'", what, v, ownerID)
		}
		seen[v] = struct{}{}
	}
	return nil
}
