package paths

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/langadventurellc/trellis-mcp-sub003/internal/types"
)

// doneNameRe matches completed task file names: any non-empty sortable
// prefix, then the task file name. Ids are lowercase, so the split is at the
// last "-T-". trellis itself writes YYYYMMDD_HHMMSS with an optional _NN
// sequence, but files stamped by other tools resolve the same way.
var doneNameRe = regexp.MustCompile(`^(.+)-T-([^/\\]+)\.md$`)

// PathToID maps an object file back to its kind and clean id. Unknown file
// shapes fail with ErrUnrecognizedFileType; a known shape in the wrong place
// fails with ErrMalformedPath.
func PathToID(p string) (types.Kind, string, error) {
	name := filepath.Base(p)
	parent := filepath.Base(filepath.Dir(p))

	for _, kind := range []types.Kind{types.KindProject, types.KindEpic, types.KindFeature} {
		if name != kind.FileName() {
			continue
		}
		if id, ok := strings.CutPrefix(parent, kind.Prefix()); ok && id != "" {
			return kind, id, nil
		}
		return "", "", &types.PathError{Err: types.ErrMalformedPath, Kind: kind, Path: p}
	}

	done := doneNameRe.FindStringSubmatch(name)
	switch {
	case parent == types.TasksDoneDir && done != nil:
		return types.KindTask, done[2], nil
	case parent == types.TasksOpenDir && isOpenTaskName(name):
		return types.KindTask, strings.TrimSuffix(strings.TrimPrefix(name, types.KindTask.Prefix()), ".md"), nil
	case done != nil || isOpenTaskName(name):
		return "", "", &types.PathError{Err: types.ErrMalformedPath, Kind: types.KindTask, Path: p}
	}

	return "", "", &types.PathError{Err: types.ErrUnrecognizedFileType, Path: p}
}

// DoneStamp returns the completion stamp embedded in a tasks-done file name,
// or "" when name is not a done task file.
func DoneStamp(name string) string {
	if m := doneNameRe.FindStringSubmatch(filepath.Base(name)); m != nil {
		return m[1]
	}
	return ""
}
