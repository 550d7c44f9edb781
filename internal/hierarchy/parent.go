// Package hierarchy enforces which kinds of planning object may or must have a
// parent, and that a referenced parent exists on disk.
package hierarchy

import (
	"strings"

	"github.com/langadventurellc/trellis-mcp-sub003/internal/paths"
	"github.com/langadventurellc/trellis-mcp-sub003/internal/types"
	"github.com/langadventurellc/trellis-mcp-sub003/internal/validation"
)

// ValidateParent checks parentID as the parent of a new or updated object of
// childKind under root.
//
// Projects must not have a parent. Epics and features must name an existing
// project or epic respectively. Tasks may omit the parent, which makes them
// standalone; when present it must name an existing feature.
func ValidateParent(root, parentID string, childKind types.Kind) error {
	parent := strings.TrimSpace(parentID)

	switch childKind {
	case types.KindProject:
		if parent != "" {
			return &types.ParentError{Err: types.ErrParentForbidden, ChildKind: childKind, ParentID: parent}
		}
		return nil
	case types.KindEpic, types.KindFeature:
		if parentID == "" {
			return &types.ParentError{Err: types.ErrParentRequired, ChildKind: childKind}
		}
	case types.KindTask:
		if parentID == "" {
			return nil
		}
	default:
		return &types.IdentifierError{Kind: childKind, ID: parentID, Reason: "unknown kind"}
	}

	// Whitespace-only parents reach the security check so they are reported
	// and audited rather than silently treated as absent.
	if err := validation.ValidateObjectSecurity(map[string]any{"parent": parentID}); err != nil {
		return err
	}

	parentKind, _ := childKind.ParentKind()
	clean, err := validation.Normalize(parentKind, parent)
	if err != nil {
		return err
	}
	if _, err := paths.IDToPath(root, parentKind, clean); err != nil {
		if paths.IsNotFound(err) {
			return &types.ParentError{Err: types.ErrParentNotFound, ChildKind: childKind, ParentID: clean}
		}
		return err
	}
	return nil
}

// RequiresParent reports whether objects of kind must name a parent.
func RequiresParent(kind types.Kind) bool {
	return kind == types.KindEpic || kind == types.KindFeature
}
