package paths

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/langadventurellc/trellis-mcp-sub003/internal/types"
)

// Entry is one object file found by Walk.
type Entry struct {
	Kind       types.Kind
	Path       string
	Standalone bool
}

// WalkFunc is called for each object file. Returning SkipRest stops the walk
// without error.
type WalkFunc func(e Entry) error

// SkipRest can be returned from a WalkFunc to end the walk early.
var SkipRest = errors.New("skip rest of walk")

// Walk visits every object file under the planning directory of root in a
// fixed order: each project, its epics, their features and the features' open
// then done tasks, followed by standalone open then done tasks. Missing
// directories are skipped.
func Walk(root string, fn WalkFunc) error {
	err := walk(LocatePlanningDir(root), fn)
	if errors.Is(err, SkipRest) {
		return nil
	}
	return err
}

func walk(dir string, fn WalkFunc) error {
	projectsDir := filepath.Join(dir, types.KindProject.DirName())
	projects, err := subdirs(projectsDir, types.KindProject.Prefix())
	if err != nil {
		return err
	}
	for _, p := range projects {
		projectDir := filepath.Join(projectsDir, p)
		if err := visitFile(fn, types.KindProject, filepath.Join(projectDir, types.KindProject.FileName()), false); err != nil {
			return err
		}
		epicsDir := filepath.Join(projectDir, types.KindEpic.DirName())
		epics, err := subdirs(epicsDir, types.KindEpic.Prefix())
		if err != nil {
			return err
		}
		for _, e := range epics {
			epicDir := filepath.Join(epicsDir, e)
			if err := visitFile(fn, types.KindEpic, filepath.Join(epicDir, types.KindEpic.FileName()), false); err != nil {
				return err
			}
			featuresDir := filepath.Join(epicDir, types.KindFeature.DirName())
			features, err := subdirs(featuresDir, types.KindFeature.Prefix())
			if err != nil {
				return err
			}
			for _, f := range features {
				featureDir := filepath.Join(featuresDir, f)
				if err := visitFile(fn, types.KindFeature, filepath.Join(featureDir, types.KindFeature.FileName()), false); err != nil {
					return err
				}
				if err := visitTasks(fn, featureDir, false); err != nil {
					return err
				}
			}
		}
	}
	return visitTasks(fn, dir, true)
}

func visitFile(fn WalkFunc, kind types.Kind, p string, standalone bool) error {
	if !fileExists(p) {
		return nil
	}
	return fn(Entry{Kind: kind, Path: p, Standalone: standalone})
}

func visitTasks(fn WalkFunc, base string, standalone bool) error {
	files, err := TaskFiles(base)
	if err != nil {
		return err
	}
	for _, p := range files {
		if err := fn(Entry{Kind: types.KindTask, Path: p, Standalone: standalone}); err != nil {
			return err
		}
	}
	return nil
}

// TaskFiles lists the task files directly under base: tasks-open entries
// first, then tasks-done, each in name order. Files whose names do not have
// the task shape for their directory are ignored.
func TaskFiles(base string) ([]string, error) {
	var out []string

	open, err := readFiles(filepath.Join(base, types.TasksOpenDir))
	if err != nil {
		return nil, err
	}
	for _, name := range open {
		if isOpenTaskName(name) {
			out = append(out, filepath.Join(base, types.TasksOpenDir, name))
		}
	}

	done, err := readFiles(filepath.Join(base, types.TasksDoneDir))
	if err != nil {
		return nil, err
	}
	for _, name := range done {
		if doneNameRe.MatchString(name) {
			out = append(out, filepath.Join(base, types.TasksDoneDir, name))
		}
	}
	return out, nil
}

func readFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func isOpenTaskName(name string) bool {
	return strings.HasPrefix(name, types.KindTask.Prefix()) &&
		strings.HasSuffix(name, ".md") &&
		len(name) > len("T-.md")
}
