// Package paths maps planning object identifiers to files on disk and back.
//
// The layout is fixed:
//
//	projects/P-<id>/project.md
//	projects/P-<p>/epics/E-<id>/epic.md
//	.../epics/E-<e>/features/F-<id>/feature.md
//	.../features/F-<f>/tasks-open/T-<id>.md
//	.../features/F-<f>/tasks-done/<stamp>-T-<id>.md
//	tasks-open/T-<id>.md, tasks-done/<stamp>-T-<id>.md (standalone tasks)
//
// Every function accepts either the planning directory itself or a project
// root that contains a planning/ subdirectory.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PlanningDirName is the subdirectory looked for under a project root.
const PlanningDirName = "planning"

// LocatePlanningDir returns root/planning when that directory exists and root
// otherwise. It never creates anything.
func LocatePlanningDir(root string) string {
	sub := filepath.Join(root, PlanningDirName)
	if info, err := os.Stat(sub); err == nil && info.IsDir() {
		return sub
	}
	return root
}

// PlanningDir returns the directory new objects are written under. With
// ensureSubdir set, root is treated as a project root and root/planning is
// created unless root already is a planning directory.
func PlanningDir(root string, ensureSubdir bool) (string, error) {
	dir := planningDirPath(root, ensureSubdir)
	if ensureSubdir {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create planning directory: %w", err)
		}
	}
	return dir, nil
}

func planningDirPath(root string, ensureSubdir bool) string {
	if !ensureSubdir {
		return LocatePlanningDir(root)
	}
	if filepath.Base(filepath.Clean(root)) == PlanningDirName {
		return root
	}
	return filepath.Join(root, PlanningDirName)
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}

// subdirs returns the names of directories in parent starting with prefix,
// in name order. A missing parent yields no entries.
func subdirs(parent, prefix string) ([]string, error) {
	entries, err := os.ReadDir(parent)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), prefix) && len(e.Name()) > len(prefix) {
			out = append(out, e.Name())
		}
	}
	return out, nil
}
