package paths

import (
	"os"
	"path/filepath"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/langadventurellc/trellis-mcp-sub003/internal/types"
	"github.com/langadventurellc/trellis-mcp-sub003/internal/validation"
)

// DefaultCacheSize is used when NewResolver is given a non-positive size.
const DefaultCacheSize = 512

type cacheKey struct {
	dir  string
	kind types.Kind
	id   string
}

type cacheEntry struct {
	path  string
	stamp standaloneStamp
	// local stamps the task directories next to a cached task file. A newer
	// done file for the same id lands there without touching the root ones.
	local standaloneStamp
}

// standaloneStamp captures the modification times of the root task
// directories. A standalone task appearing or moving changes one of them,
// which is what could make a cached hierarchical answer wrong.
type standaloneStamp struct {
	open time.Time
	done time.Time
}

func (s standaloneStamp) equal(o standaloneStamp) bool {
	return s.open.Equal(o.open) && s.done.Equal(o.done)
}

func stampOf(dir string) standaloneStamp {
	var s standaloneStamp
	if info, err := os.Stat(filepath.Join(dir, types.TasksOpenDir)); err == nil {
		s.open = info.ModTime()
	}
	if info, err := os.Stat(filepath.Join(dir, types.TasksDoneDir)); err == nil {
		s.done = info.ModTime()
	}
	return s
}

// localStamp stamps the feature (or root) directory holding a task file.
// Other kinds have one file per directory and need nothing beyond the
// existence check.
func localStamp(kind types.Kind, p string) standaloneStamp {
	if kind != types.KindTask {
		return standaloneStamp{}
	}
	return stampOf(filepath.Dir(filepath.Dir(p)))
}

// Resolver is a read-through cache in front of IDToPath. A nil *Resolver is
// valid and resolves without caching. Cached answers are rechecked against
// the filesystem on every hit; writers should still call Invalidate after
// they move or create files.
type Resolver struct {
	cache *lru.Cache[cacheKey, cacheEntry]
}

// NewResolver returns a Resolver holding at most size entries.
func NewResolver(size int) (*Resolver, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[cacheKey, cacheEntry](size)
	if err != nil {
		return nil, err
	}
	return &Resolver{cache: c}, nil
}

// IDToPath behaves like the package-level IDToPath.
func (r *Resolver) IDToPath(root string, kind types.Kind, id string) (string, error) {
	if r == nil {
		return IDToPath(root, kind, id)
	}
	clean, err := validation.Normalize(kind, id)
	if err != nil {
		return "", err
	}
	dir := LocatePlanningDir(root)
	key := cacheKey{dir: dir, kind: kind, id: clean}
	stamp := stampOf(dir)

	if e, ok := r.cache.Get(key); ok && e.stamp.equal(stamp) && e.local.equal(localStamp(kind, e.path)) && fileExists(e.path) {
		return e.path, nil
	}

	p, err := IDToPath(dir, kind, clean)
	if err != nil {
		r.cache.Remove(key)
		return "", err
	}
	r.cache.Add(key, cacheEntry{path: p, stamp: stamp, local: localStamp(kind, p)})
	return p, nil
}

// Invalidate drops every cached entry for the planning directory of root.
func (r *Resolver) Invalidate(root string) {
	if r == nil {
		return
	}
	dir := LocatePlanningDir(root)
	for _, k := range r.cache.Keys() {
		if k.dir == dir {
			r.cache.Remove(k)
		}
	}
}

// Len returns the number of cached entries.
func (r *Resolver) Len() int {
	if r == nil {
		return 0
	}
	return r.cache.Len()
}
