package paths

import (
	"path/filepath"
	"strings"

	"github.com/langadventurellc/trellis-mcp-sub003/internal/types"
	"github.com/langadventurellc/trellis-mcp-sub003/internal/validation"
)

// ResolvePathForNewObject returns where an object that does not exist yet
// should be written. Parents must already exist; projects may not have one
// and tasks without one are standalone. A done task is routed to tasks-done
// under a fresh stamp. Nothing is created except, with ensureSubdir, the
// planning directory itself, and only once every check has passed.
func ResolvePathForNewObject(kind types.Kind, id, parentID, root string, status types.Status, ensureSubdir bool) (string, error) {
	clean, err := validation.Normalize(kind, id)
	if err != nil {
		return "", err
	}
	parent := strings.TrimSpace(parentID)

	switch kind {
	case types.KindProject:
		if parent != "" {
			return "", &types.ParentError{Err: types.ErrParentForbidden, ChildKind: kind, ParentID: parent}
		}
	case types.KindEpic, types.KindFeature:
		if parent == "" {
			return "", &types.ParentError{Err: types.ErrParentRequired, ChildKind: kind}
		}
	case types.KindTask:
	default:
		return "", &types.IdentifierError{Kind: kind, ID: id, Reason: "unknown kind"}
	}

	dir := planningDirPath(root, ensureSubdir)

	var p string
	switch kind {
	case types.KindProject:
		p = filepath.Join(dir, kind.DirName(), kind.Prefix()+clean, kind.FileName())

	case types.KindEpic, types.KindFeature:
		parentDir, err := existingParentDir(dir, kind, parent)
		if err != nil {
			return "", err
		}
		p = filepath.Join(parentDir, kind.DirName(), kind.Prefix()+clean, kind.FileName())

	default:
		base := dir
		if parent != "" {
			base, err = existingParentDir(dir, kind, parent)
			if err != nil {
				return "", err
			}
		}
		p = taskPath(base, clean, status)
	}

	if ensureSubdir {
		if _, err := PlanningDir(root, true); err != nil {
			return "", err
		}
	}
	return p, nil
}

func existingParentDir(dir string, kind types.Kind, parent string) (string, error) {
	parentKind, _ := kind.ParentKind()
	p, err := IDToPath(dir, parentKind, parent)
	if err != nil {
		if IsNotFound(err) {
			return "", &types.ParentError{Err: types.ErrParentNotFound, ChildKind: kind, ParentID: validation.StripPrefix(parent)}
		}
		return "", err
	}
	return ObjectDir(p), nil
}

func taskPath(base, id string, status types.Status) string {
	if status == types.StatusDone {
		doneDir := filepath.Join(base, types.TasksDoneDir)
		return filepath.Join(doneDir, defaultStamper.Next(doneDir, id))
	}
	return filepath.Join(base, types.TasksOpenDir, types.KindTask.Prefix()+id+".md")
}

// DonePathFor returns a fresh tasks-done path for the open task file at
// openPath, using s (or the package stamper when s is nil).
func DonePathFor(openPath, id string, s *Stamper) string {
	if s == nil {
		s = defaultStamper
	}
	doneDir := filepath.Join(filepath.Dir(filepath.Dir(openPath)), types.TasksDoneDir)
	return filepath.Join(doneDir, s.Next(doneDir, id))
}
