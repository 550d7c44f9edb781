package types

import (
	"errors"
	"fmt"
	"strings"

	"github.com/langadventurellc/trellis-mcp-sub003/internal/sanitize"
)

// Sentinel errors. Typed errors below unwrap to one of these so callers can
// branch with errors.Is.
var (
	ErrInvalidIdentifier    = errors.New("invalid identifier")
	ErrSecurityViolation    = errors.New("security violation")
	ErrParentNotFound       = errors.New("parent not found")
	ErrParentRequired       = errors.New("parent required")
	ErrParentForbidden      = errors.New("parent forbidden")
	ErrNotFound             = errors.New("not found")
	ErrUnrecognizedFileType = errors.New("unrecognized file type")
	ErrMalformedPath        = errors.New("malformed path")
	ErrCircularDependency   = errors.New("circular dependency")
	ErrInvalidStatus        = errors.New("invalid status")
)

// IdentifierError reports an identifier that failed normalization.
type IdentifierError struct {
	Kind   Kind
	ID     string
	Reason string
}

func (e *IdentifierError) Error() string {
	kind := string(e.Kind)
	if kind == "" {
		kind = "object"
	}
	return sanitize.Message(fmt.Sprintf("invalid %s id %q: %s", kind, e.ID, e.Reason))
}

func (e *IdentifierError) Unwrap() error { return ErrInvalidIdentifier }

// ParentError reports a parent reference that is missing, required or forbidden.
// Err is one of ErrParentNotFound, ErrParentRequired or ErrParentForbidden.
type ParentError struct {
	Err       error
	ChildKind Kind
	ParentID  string
}

func (e *ParentError) Error() string {
	parentKind, _ := e.ChildKind.ParentKind()
	var msg string
	switch {
	case errors.Is(e.Err, ErrParentForbidden):
		msg = "Projects cannot have parent objects"
	case errors.Is(e.Err, ErrParentRequired):
		msg = fmt.Sprintf("%s objects must have a parent %s", capitalize(string(e.ChildKind)), parentKind)
	case errors.Is(e.Err, ErrParentNotFound):
		msg = fmt.Sprintf("parent %s with ID '%s' does not exist", parentKind, e.ParentID)
	default:
		msg = fmt.Sprintf("invalid parent '%s' for %s", e.ParentID, e.ChildKind)
	}
	return sanitize.Message(msg)
}

func (e *ParentError) Unwrap() error { return e.Err }

// NotFoundError reports an object that could not be located on disk.
type NotFoundError struct {
	Kind Kind
	ID   string
}

func (e *NotFoundError) Error() string {
	return sanitize.Message(fmt.Sprintf("%s with ID '%s' not found", e.Kind, e.ID))
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// PathError reports a file path that does not map back to an object.
// Err is ErrUnrecognizedFileType or ErrMalformedPath.
type PathError struct {
	Err  error
	Kind Kind
	Path string
}

func (e *PathError) Error() string {
	if errors.Is(e.Err, ErrMalformedPath) {
		return sanitize.Message(fmt.Sprintf("could not find %s ID in path: %s", e.Kind, e.Path))
	}
	return sanitize.Message(fmt.Sprintf("unrecognized file type: %s", e.Path))
}

func (e *PathError) Unwrap() error { return e.Err }

// StatusError reports a status that is not legal for the object's kind, or a
// transition that is not allowed.
type StatusError struct {
	Kind   Kind
	Status Status
	From   Status
}

func (e *StatusError) Error() string {
	if e.From != "" && e.Status.IsValidFor(e.Kind) {
		return sanitize.Message(fmt.Sprintf("cannot move %s from '%s' to '%s'", e.Kind, e.From, e.Status))
	}
	legal := make([]string, 0, 4)
	for _, s := range LegalStatuses(e.Kind) {
		legal = append(legal, string(s))
	}
	return sanitize.Message(fmt.Sprintf("invalid status '%s' for %s (expected one of: %s)",
		e.Status, e.Kind, strings.Join(legal, ", ")))
}

func (e *StatusError) Unwrap() error { return ErrInvalidStatus }

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
