// Package discovery lists the immediate children of a planning object.
package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/langadventurellc/trellis-mcp-sub003/internal/markdown"
	"github.com/langadventurellc/trellis-mcp-sub003/internal/paths"
	"github.com/langadventurellc/trellis-mcp-sub003/internal/types"
)

// Locator resolves an object's file. *paths.Resolver satisfies it.
type Locator interface {
	IDToPath(root string, kind types.Kind, id string) (string, error)
}

type uncached struct{}

func (uncached) IDToPath(root string, kind types.Kind, id string) (string, error) {
	return paths.IDToPath(root, kind, id)
}

// ImmediateChildren returns one level of children of the object kind/id:
// epics of a project, features of an epic, open and done tasks of a feature.
// Tasks have no children. Results are ordered by their created field and
// keep directory order for ties.
func ImmediateChildren(kind types.Kind, id, root string) ([]types.ChildSummary, error) {
	return ImmediateChildrenWith(uncached{}, kind, id, root)
}

// ImmediateChildrenWith is ImmediateChildren using loc to find the parent.
func ImmediateChildrenWith(loc Locator, kind types.Kind, id, root string) ([]types.ChildSummary, error) {
	if loc == nil {
		loc = uncached{}
	}
	parentPath, err := loc.IDToPath(root, kind, id)
	if err != nil {
		return nil, err
	}

	files, err := childFiles(kind, filepath.Dir(parentPath))
	if err != nil {
		return nil, fmt.Errorf("list children of %s %s: %w", kind, id, err)
	}

	children := make([]types.ChildSummary, 0, len(files))
	for _, f := range files {
		child, ok := summarize(f)
		if ok {
			children = append(children, child)
		}
	}
	sort.SliceStable(children, func(i, j int) bool {
		return children[i].Created < children[j].Created
	})
	return children, nil
}

func childFiles(kind types.Kind, dir string) ([]string, error) {
	switch kind {
	case types.KindProject, types.KindEpic:
		childKind, _ := kind.ChildKind()
		entries, err := os.ReadDir(filepath.Join(dir, childKind.DirName()))
		if err != nil {
			if os.IsNotExist(err) {
				return nil, nil
			}
			return nil, err
		}
		var out []string
		for _, e := range entries {
			if !e.IsDir() || len(e.Name()) <= len(childKind.Prefix()) || !strings.HasPrefix(e.Name(), childKind.Prefix()) {
				continue
			}
			p := filepath.Join(dir, childKind.DirName(), e.Name(), childKind.FileName())
			if _, err := os.Stat(p); err == nil {
				out = append(out, p)
			}
		}
		return out, nil
	case types.KindFeature:
		return paths.TaskFiles(dir)
	}
	return nil, nil
}

// summarize reads a child file. Unreadable files are skipped; files that
// read but do not parse become stubs carrying only the path.
func summarize(p string) (types.ChildSummary, bool) {
	data, err := os.ReadFile(p) // #nosec G304 - path built from the planning layout
	if err != nil {
		return types.ChildSummary{}, false
	}
	summary := types.ChildSummary{FilePath: p}
	doc, err := markdown.Parse(data)
	if err != nil {
		return summary, true
	}
	summary.ID = doc.Object.ID
	summary.Kind = string(doc.Object.Kind)
	summary.Title = doc.Object.Title
	summary.Status = string(doc.Object.Status)
	summary.Created = doc.Object.Created
	return summary, true
}

// CreatedSince keeps the children created at or after since. Children whose
// created value does not parse are kept.
func CreatedSince(children []types.ChildSummary, since time.Time) []types.ChildSummary {
	out := children[:0:0]
	for _, c := range children {
		created, err := time.Parse(time.RFC3339, c.Created)
		if err != nil || !created.Before(since) {
			out = append(out, c)
		}
	}
	return out
}
