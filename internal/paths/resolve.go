package paths

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/langadventurellc/trellis-mcp-sub003/internal/types"
	"github.com/langadventurellc/trellis-mcp-sub003/internal/validation"
)

// IDToPath locates the file of an existing object. The id may carry its kind
// prefix. Standalone tasks are checked before hierarchical ones, so a
// standalone task shadows a hierarchical task with the same id.
func IDToPath(root string, kind types.Kind, id string) (string, error) {
	clean, err := validation.Normalize(kind, id)
	if err != nil {
		return "", err
	}
	dir := LocatePlanningDir(root)

	var found string
	switch kind {
	case types.KindProject:
		found, err = findProject(dir, clean)
	case types.KindEpic:
		found, err = findEpic(dir, clean)
	case types.KindFeature:
		found, err = findFeature(dir, clean)
	case types.KindTask:
		found, err = findTask(dir, clean)
	default:
		return "", fmt.Errorf("unknown kind %q", kind)
	}
	if err != nil {
		return "", fmt.Errorf("resolve %s %s: %w", kind, clean, err)
	}
	if found == "" {
		return "", &types.NotFoundError{Kind: kind, ID: clean}
	}
	return found, nil
}

// ObjectDir returns the directory that owns a container object's file.
func ObjectDir(objectPath string) string {
	return filepath.Dir(objectPath)
}

func findProject(dir, id string) (string, error) {
	p := filepath.Join(dir, types.KindProject.DirName(), types.KindProject.Prefix()+id, types.KindProject.FileName())
	if fileExists(p) {
		return p, nil
	}
	return "", nil
}

// projectDirs returns every project directory in name order.
func projectDirs(dir string) ([]string, error) {
	base := filepath.Join(dir, types.KindProject.DirName())
	names, err := subdirs(base, types.KindProject.Prefix())
	if err != nil {
		return nil, err
	}
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = filepath.Join(base, n)
	}
	return out, nil
}

// childDirs returns the child container directories of kind directly under
// parentDir, in name order.
func childDirs(parentDir string, kind types.Kind) ([]string, error) {
	base := filepath.Join(parentDir, kind.DirName())
	names, err := subdirs(base, kind.Prefix())
	if err != nil {
		return nil, err
	}
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = filepath.Join(base, n)
	}
	return out, nil
}

func findEpic(dir, id string) (string, error) {
	projects, err := projectDirs(dir)
	if err != nil {
		return "", err
	}
	for _, p := range projects {
		candidate := filepath.Join(p, types.KindEpic.DirName(), types.KindEpic.Prefix()+id, types.KindEpic.FileName())
		if fileExists(candidate) {
			return candidate, nil
		}
	}
	return "", nil
}

func featureDirs(dir string) ([]string, error) {
	projects, err := projectDirs(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, p := range projects {
		epics, err := childDirs(p, types.KindEpic)
		if err != nil {
			return nil, err
		}
		for _, e := range epics {
			features, err := childDirs(e, types.KindFeature)
			if err != nil {
				return nil, err
			}
			out = append(out, features...)
		}
	}
	return out, nil
}

func findFeature(dir, id string) (string, error) {
	projects, err := projectDirs(dir)
	if err != nil {
		return "", err
	}
	for _, p := range projects {
		epics, err := childDirs(p, types.KindEpic)
		if err != nil {
			return "", err
		}
		for _, e := range epics {
			candidate := filepath.Join(e, types.KindFeature.DirName(), types.KindFeature.Prefix()+id, types.KindFeature.FileName())
			if fileExists(candidate) {
				return candidate, nil
			}
		}
	}
	return "", nil
}

func findTask(dir, id string) (string, error) {
	if p, err := taskIn(dir, id); p != "" || err != nil {
		return p, err
	}
	features, err := featureDirs(dir)
	if err != nil {
		return "", err
	}
	for _, f := range features {
		if p, err := taskIn(f, id); p != "" || err != nil {
			return p, err
		}
	}
	return "", nil
}

// taskIn looks for task id under base, open first. When a task has been
// completed more than once the most recent done file wins.
func taskIn(base, id string) (string, error) {
	open := filepath.Join(base, types.TasksOpenDir, types.KindTask.Prefix()+id+".md")
	if fileExists(open) {
		return open, nil
	}
	names, err := readFiles(filepath.Join(base, types.TasksDoneDir))
	if err != nil {
		return "", err
	}
	latest := ""
	for _, name := range names {
		m := doneNameRe.FindStringSubmatch(name)
		if m != nil && m[2] == id {
			latest = name
		}
	}
	if latest == "" {
		return "", nil
	}
	return filepath.Join(base, types.TasksDoneDir, latest), nil
}

// IsNotFound reports whether err means the object does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, types.ErrNotFound)
}

// IsDonePath reports whether p is a file in a tasks-done directory.
func IsDonePath(p string) bool {
	return filepath.Base(filepath.Dir(p)) == types.TasksDoneDir && strings.HasSuffix(p, ".md")
}
