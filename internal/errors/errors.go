// Package errors defines the coded errors shared by every ChronoLens package.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// InvalidIdentifier indicates a node id is malformed or not a child of its parent
	InvalidIdentifier ErrorCode = "INVALID_IDENTIFIER"
	// DuplicateIdentifier indicates two sibling nodes share a kind and id
	DuplicateIdentifier ErrorCode = "DUPLICATE_IDENTIFIER"
	// Conflict indicates an edit adds something that already exists
	Conflict ErrorCode = "CONFLICT"
	// NotFound indicates an edit removes or changes something that doesn't exist
	NotFound ErrorCode = "NOT_FOUND"
	// CorruptedHistory indicates the persisted store failed a consistency check
	CorruptedHistory ErrorCode = "CORRUPTED_HISTORY"
	// SyntaxError indicates a parser couldn't interpret a source file
	SyntaxError ErrorCode = "SYNTAX_ERROR"
	// VCSIO indicates the version control provider failed for one revision
	VCSIO ErrorCode = "VCS_IO"
	// StoreBusy indicates another persist or clean holds the store lock
	StoreBusy ErrorCode = "STORE_BUSY"
	// InvalidArgument indicates a malformed path, revision or option
	InvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// Sentinels usable with errors.Is. Matching is done by code only.
var (
	ErrInvalidIdentifier   = &Error{Code: InvalidIdentifier}
	ErrDuplicateIdentifier = &Error{Code: DuplicateIdentifier}
	ErrConflict            = &Error{Code: Conflict}
	ErrNotFound            = &Error{Code: NotFound}
	ErrCorruptedHistory    = &Error{Code: CorruptedHistory}
	ErrSyntax              = &Error{Code: SyntaxError}
	ErrVCSIO               = &Error{Code: VCSIO}
	ErrStoreBusy           = &Error{Code: StoreBusy}
	ErrInvalidArgument     = &Error{Code: InvalidArgument}
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// OpenDocs suggests opening documentation
	OpenDocs FixActionType = "open-docs"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Safe        bool          `json:"safe,omitempty"`
	Description string        `json:"description,omitempty"`
	URL         string        `json:"url,omitempty"`
}

// Error represents a ChronoLens error with code, message, and suggestions
type Error struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// New creates a new Error with the default suggested fixes for its code
func New(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: GetSuggestedFixes(code),
	}
}

// Newf creates a new Error without a cause and a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithDetails adds details to the error
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

// CodeOf returns the code of the outermost *Error in err's chain, or
// InternalError if there is none.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return InternalError
}

// HasCode reports whether any error in err's chain carries code.
func HasCode(err error, code ErrorCode) bool {
	return errors.Is(err, &Error{Code: code})
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	CorruptedHistory: {
		{
			Type:        RunCommand,
			Command:     "chronolens clean && chronolens persist",
			Safe:        true,
			Description: "Rebuild the persisted history from the repository",
		},
	},
	StoreBusy: {
		{
			Type:        RunCommand,
			Command:     "chronolens clean --force-unlock",
			Safe:        false,
			Description: "Remove a stale lock left by an interrupted run",
		},
	},
	VCSIO: {
		{
			Type:        RunCommand,
			Command:     "git status",
			Safe:        true,
			Description: "Verify the repository is readable",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
