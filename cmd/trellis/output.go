package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/langadventurellc/trellis-mcp-sub003/internal/lockfile"
	"github.com/langadventurellc/trellis-mcp-sub003/internal/storage"
	"github.com/langadventurellc/trellis-mcp-sub003/internal/types"
)

// exitError carries a non-default exit code.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// errorCodes maps sentinel errors to the stable codes printed with --json.
var errorCodes = []struct {
	err  error
	code string
}{
	{types.ErrSecurityViolation, "security_violation"},
	{types.ErrInvalidIdentifier, "invalid_identifier"},
	{types.ErrParentNotFound, "parent_not_found"},
	{types.ErrParentRequired, "parent_required"},
	{types.ErrParentForbidden, "parent_forbidden"},
	{types.ErrCircularDependency, "circular_dependency"},
	{types.ErrInvalidStatus, "invalid_status"},
	{types.ErrUnrecognizedFileType, "unrecognized_file_type"},
	{types.ErrMalformedPath, "malformed_path"},
	{types.ErrNotFound, "not_found"},
	{storage.ErrAlreadyExists, "already_exists"},
	{storage.ErrAlreadyCompleted, "already_completed"},
	{lockfile.ErrLockBusy, "lock_busy"},
}

func errorCode(err error) string {
	for _, c := range errorCodes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return ""
}

// outputJSON writes v as pretty-printed JSON.
func outputJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}
	return nil
}

// outputJSONError writes err as a JSON object.
func outputJSONError(w io.Writer, err error) {
	errObj := map[string]string{"error": err.Error()}
	if code := errorCode(err); code != "" {
		errObj["code"] = code
	}
	_ = outputJSON(w, errObj) // Best effort: the exit code still reports failure
}
