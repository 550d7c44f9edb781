package validation

import (
	"github.com/langadventurellc/trellis-mcp-sub003/internal/types"
)

// ValidateStatus rejects statuses outside the legal set for kind.
func ValidateStatus(kind types.Kind, status types.Status) error {
	if !status.IsValidFor(kind) {
		return &types.StatusError{Kind: kind, Status: status}
	}
	return nil
}

// ValidateTransition checks a status change. Both ends must be legal for the
// kind, and a completed task cannot be reopened because its file has already
// moved to tasks-done.
func ValidateTransition(kind types.Kind, from, to types.Status) error {
	if err := ValidateStatus(kind, from); err != nil {
		return err
	}
	if err := ValidateStatus(kind, to); err != nil {
		return err
	}
	if kind == types.KindTask && from == types.StatusDone && to != types.StatusDone {
		return &types.StatusError{Kind: kind, Status: to, From: from}
	}
	return nil
}
