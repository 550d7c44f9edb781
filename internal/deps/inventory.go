package deps

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/langadventurellc/trellis-mcp-sub003/internal/markdown"
	"github.com/langadventurellc/trellis-mcp-sub003/internal/paths"
	"github.com/langadventurellc/trellis-mcp-sub003/internal/types"
)

// Collision records two or more files claiming the same clean id. Kept is
// the file the resolver returns for that id.
type Collision struct {
	ID       string
	Kept     string
	Shadowed []string
}

// Inventory is every object under a planning root, keyed by clean id.
type Inventory struct {
	Root       string
	Objects    map[string]*types.Object
	Collisions []Collision
	// Unreadable lists files that exist but could not be parsed.
	Unreadable []string
}

type loaded struct {
	entry paths.Entry
	id    string
	obj   *types.Object
	err   error
}

// LoadInventory reads every object file under root. Files are parsed in
// parallel but assembled in walk order so the result is deterministic.
// Standalone tasks take precedence over any other object with the same id.
func LoadInventory(ctx context.Context, root string) (*Inventory, error) {
	var entries []paths.Entry
	if err := paths.Walk(root, func(e paths.Entry) error {
		entries = append(entries, e)
		return ctx.Err()
	}); err != nil {
		return nil, fmt.Errorf("scan planning root: %w", err)
	}

	results := make([]loaded, len(entries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0) * 2)
	for i, e := range entries {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = load(e)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	inv := &Inventory{Root: root, Objects: make(map[string]*types.Object, len(results))}
	keptPath := make(map[string]string)
	shadowed := make(map[string][]string)

	for _, r := range results {
		if r.err != nil {
			inv.Unreadable = append(inv.Unreadable, r.entry.Path)
			continue
		}
		existing, ok := inv.Objects[r.id]
		switch {
		case !ok:
			inv.Objects[r.id] = r.obj
			keptPath[r.id] = r.entry.Path
		case r.obj.IsStandalone() && !existing.IsStandalone():
			shadowed[r.id] = append(shadowed[r.id], keptPath[r.id])
			inv.Objects[r.id] = r.obj
			keptPath[r.id] = r.entry.Path
		default:
			shadowed[r.id] = append(shadowed[r.id], r.entry.Path)
		}
	}

	ids := make([]string, 0, len(shadowed))
	for id := range shadowed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		inv.Collisions = append(inv.Collisions, Collision{ID: id, Kept: keptPath[id], Shadowed: shadowed[id]})
	}
	return inv, nil
}

func load(e paths.Entry) loaded {
	kind, id, err := paths.PathToID(e.Path)
	if err != nil {
		return loaded{entry: e, err: err}
	}
	doc, err := markdown.ReadFile(e.Path)
	if err != nil {
		return loaded{entry: e, err: err}
	}
	obj := doc.Object
	if obj.Kind == "" {
		obj.Kind = kind
	}
	// Hierarchical tasks are identified by location even when the
	// front-matter omits the parent.
	if kind == types.KindTask && !e.Standalone && obj.Parent == "" {
		obj.Parent = types.KindFeature.Prefix() + featureIDFromTaskPath(e.Path)
	}
	return loaded{entry: e, id: id, obj: &obj}
}

// Graph builds the prerequisite graph of the inventory.
func (inv *Inventory) Graph() Graph {
	return BuildGraph(inv.Objects)
}

// CheckAcyclic returns a CircularDependencyError if the inventory contains a
// prerequisite cycle.
func (inv *Inventory) CheckAcyclic() error {
	if cycle := DetectCycle(inv.Graph()); cycle != nil {
		return NewCircularDependencyErrorWithContext(cycle, inv.Objects)
	}
	return nil
}

// WithProposed returns a copy of the inventory with obj applied as if it had
// already been written.
func (inv *Inventory) WithProposed(obj *types.Object) *Inventory {
	objects := make(map[string]*types.Object, len(inv.Objects)+1)
	for id, o := range inv.Objects {
		objects[id] = o
	}
	objects[obj.CleanID()] = obj
	return &Inventory{Root: inv.Root, Objects: objects, Collisions: inv.Collisions, Unreadable: inv.Unreadable}
}

// ValidateAcyclic scans root once and fails if any prerequisite cycle exists
// across hierarchical and standalone objects.
func ValidateAcyclic(ctx context.Context, root string) error {
	inv, err := LoadInventory(ctx, root)
	if err != nil {
		return err
	}
	return inv.CheckAcyclic()
}

// CheckProposed fails if writing obj would introduce a prerequisite cycle.
func CheckProposed(ctx context.Context, root string, obj *types.Object) error {
	inv, err := LoadInventory(ctx, root)
	if err != nil {
		return err
	}
	return inv.WithProposed(obj).CheckAcyclic()
}

func featureIDFromTaskPath(p string) string {
	featureDir := filepath.Base(filepath.Dir(filepath.Dir(p)))
	return strings.TrimPrefix(featureDir, types.KindFeature.Prefix())
}
