package storage

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/natefinch/atomic"

	"github.com/langadventurellc/trellis-mcp-sub003/internal/audit"
	"github.com/langadventurellc/trellis-mcp-sub003/internal/deps"
	"github.com/langadventurellc/trellis-mcp-sub003/internal/discovery"
	"github.com/langadventurellc/trellis-mcp-sub003/internal/hierarchy"
	"github.com/langadventurellc/trellis-mcp-sub003/internal/markdown"
	"github.com/langadventurellc/trellis-mcp-sub003/internal/paths"
	"github.com/langadventurellc/trellis-mcp-sub003/internal/types"
	"github.com/langadventurellc/trellis-mcp-sub003/internal/validation"
)

// SchemaVersion is written to objects created without one.
const SchemaVersion = "1.1"

const (
	dirPerms  = 0o755
	filePerms = 0o644
)

// DefaultLockTimeout bounds how long CompleteTask waits for the root lock.
const DefaultLockTimeout = 10 * time.Second

// Options configures an FSStore. The zero value is usable.
type Options struct {
	// EnsurePlanningSubdir treats the root as a project root and creates
	// root/planning when the first object is written.
	EnsurePlanningSubdir bool

	// CacheSize enables the resolver cache when positive.
	CacheSize int

	LockTimeout time.Duration
	Logger      *slog.Logger

	// Now overrides the clock for timestamps and done-file stamps.
	Now func() time.Time
}

// FSStore is the filesystem Storage. Writes within one process are
// serialized; CompleteTask additionally takes the cross-process root lock.
type FSStore struct {
	root     string
	opts     Options
	log      *slog.Logger
	resolver *paths.Resolver
	stamper  *paths.Stamper

	mu sync.Mutex
}

var _ Storage = (*FSStore)(nil)

// New opens a store on root. The root does not have to exist yet.
func New(root string, opts Options) (*FSStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("storage: empty root")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}

	s := &FSStore{
		root:    abs,
		opts:    opts,
		log:     opts.Logger,
		stamper: &paths.Stamper{Now: opts.Now},
	}
	if s.log == nil {
		s.log = slog.New(slog.DiscardHandler)
	}
	if s.opts.LockTimeout <= 0 {
		s.opts.LockTimeout = DefaultLockTimeout
	}
	if opts.CacheSize > 0 {
		r, err := paths.NewResolver(opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("storage: create resolver: %w", err)
		}
		s.resolver = r
	}
	return s, nil
}

// Root returns the absolute root path.
func (s *FSStore) Root() string { return s.root }

func (s *FSStore) now() time.Time {
	if s.opts.Now != nil {
		return s.opts.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *FSStore) timestamp() string {
	return s.now().Format(time.RFC3339)
}

// GetObject reads the object kind/id.
func (s *FSStore) GetObject(ctx context.Context, kind types.Kind, id string) (*markdown.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.resolver.IDToPath(s.root, kind, id)
	if err != nil {
		return nil, err
	}
	return markdown.ReadFile(p)
}

// CreateObject validates obj and writes it to its new location. The checks
// run in order (security, identifier, status, parent, prerequisite cycle)
// and nothing is written unless all pass. obj is updated with the
// normalized fields and returned path.
func (s *FSStore) CreateObject(ctx context.Context, obj *types.Object, body string, extra map[string]any) (string, error) {
	if obj == nil {
		return "", fmt.Errorf("storage: nil object")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !obj.Kind.IsValid() {
		return "", &types.IdentifierError{Kind: obj.Kind, ID: obj.ID, Reason: "unknown kind"}
	}

	if err := validation.ValidateObjectSecurity(validation.ObjectPayload(obj, extra)); err != nil {
		return "", err
	}

	clean, err := validation.Normalize(obj.Kind, obj.ID)
	if err != nil {
		return "", err
	}

	if obj.Status == "" {
		obj.Status = types.DefaultStatus(obj.Kind)
	}
	if err := validation.ValidateStatus(obj.Kind, obj.Status); err != nil {
		return "", err
	}

	if err := hierarchy.ValidateParent(s.root, obj.Parent, obj.Kind); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	normalized, err := s.normalizeObject(obj, clean)
	if err != nil {
		return "", err
	}
	if err := deps.CheckProposed(ctx, s.root, normalized); err != nil {
		return "", err
	}

	doc := &markdown.Document{Object: *normalized, Body: body}
	if err := doc.Validate(); err != nil {
		return "", err
	}

	if existing, ok := s.existingDestination(normalized, clean); ok {
		return "", fmt.Errorf("%w: %s", ErrAlreadyExists, s.rel(existing))
	}

	dest, err := paths.ResolvePathForNewObject(obj.Kind, clean, normalized.Parent, s.root, normalized.Status, s.opts.EnsurePlanningSubdir)
	if err != nil {
		return "", err
	}
	if err := writeDocument(dest, doc); err != nil {
		return "", err
	}

	s.resolver.Invalidate(s.root)
	*obj = *normalized
	obj.Path = dest

	_, _ = audit.Append(&audit.Entry{
		Kind:    audit.KindObjectCreated,
		Message: fmt.Sprintf("created %s %s", obj.Kind, clean),
		Context: map[string]any{"kind": string(obj.Kind), "object_id": clean, "file": s.rel(dest)},
	})
	s.log.Info("object created", "kind", obj.Kind, "id", clean, "path", s.rel(dest))
	return dest, nil
}

// normalizeObject returns a copy of obj with prefixed id and parent, trimmed
// prerequisites and filled timestamps.
func (s *FSStore) normalizeObject(obj *types.Object, clean string) (*types.Object, error) {
	out := *obj
	out.ID = obj.Kind.Prefix() + clean
	out.Path = ""

	if parent := strings.TrimSpace(obj.Parent); parent != "" {
		parentKind, _ := obj.Kind.ParentKind()
		p, err := validation.Normalize(parentKind, parent)
		if err != nil {
			return nil, err
		}
		out.Parent = parentKind.Prefix() + p
	} else {
		out.Parent = ""
	}

	if len(obj.Prerequisites) > 0 {
		out.Prerequisites = make([]string, 0, len(obj.Prerequisites))
		for _, p := range obj.Prerequisites {
			out.Prerequisites = append(out.Prerequisites, strings.TrimSpace(p))
		}
	}

	if out.Priority != "" {
		prio, err := validation.ParsePriority(out.Priority)
		if err != nil {
			return nil, err
		}
		out.Priority = prio
	}

	ts := s.timestamp()
	if out.Created == "" {
		out.Created = ts
	}
	if out.Updated == "" {
		out.Updated = ts
	}
	if out.SchemaVersion == "" {
		out.SchemaVersion = SchemaVersion
	}
	return &out, nil
}

// existingDestination reports an object already stored where obj would go.
// Ids shared between a standalone and a hierarchical task are allowed and
// surface as lint findings instead.
func (s *FSStore) existingDestination(obj *types.Object, clean string) (string, bool) {
	found, err := paths.IDToPath(s.root, obj.Kind, clean)
	if err != nil {
		return "", false
	}
	if obj.Kind != types.KindTask {
		return found, true
	}

	base := paths.LocatePlanningDir(s.root)
	if obj.Parent != "" {
		featurePath, err := paths.IDToPath(s.root, types.KindFeature, obj.Parent)
		if err != nil {
			return "", false
		}
		base = paths.ObjectDir(featurePath)
	}
	taskBase := filepath.Dir(filepath.Dir(found))
	if filepath.Clean(taskBase) == filepath.Clean(base) {
		return found, true
	}
	return "", false
}

// UpdatePrerequisites replaces the prerequisite list of kind/id.
func (s *FSStore) UpdatePrerequisites(ctx context.Context, kind types.Kind, id string, prereqs []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validation.ValidateObjectSecurity(map[string]any{"prerequisites": prereqs}); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.resolver.IDToPath(s.root, kind, id)
	if err != nil {
		return err
	}
	doc, err := markdown.ReadFile(p)
	if err != nil {
		return err
	}

	updated := doc.Object
	updated.Prerequisites = nil
	for _, pr := range prereqs {
		updated.Prerequisites = append(updated.Prerequisites, strings.TrimSpace(pr))
	}
	if updated.Kind == "" {
		updated.Kind = kind
	}
	if err := deps.CheckProposed(ctx, s.root, &updated); err != nil {
		return err
	}

	updated.Updated = s.timestamp()
	doc.Object = updated
	if err := writeDocument(p, doc); err != nil {
		return err
	}
	s.log.Info("prerequisites updated", "kind", kind, "id", updated.CleanID(), "count", len(updated.Prerequisites))
	return nil
}

// UpdateStatus changes the status of kind/id. Moving a task to done goes
// through CompleteTask and returns the new path.
func (s *FSStore) UpdateStatus(ctx context.Context, kind types.Kind, id string, status types.Status) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if kind == types.KindTask && status == types.StatusDone {
		return s.CompleteTask(ctx, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.resolver.IDToPath(s.root, kind, id)
	if err != nil {
		return "", err
	}
	doc, err := markdown.ReadFile(p)
	if err != nil {
		return "", err
	}
	if err := validation.ValidateTransition(kind, doc.Object.Status, status); err != nil {
		return "", err
	}
	if doc.Object.Status == status {
		return p, nil
	}

	doc.Object.Status = status
	doc.Object.Updated = s.timestamp()
	if err := writeDocument(p, doc); err != nil {
		return "", err
	}
	s.log.Info("status updated", "kind", kind, "id", doc.Object.CleanID(), "status", status)
	return p, nil
}

// ListChildren returns the immediate children of kind/id.
func (s *FSStore) ListChildren(ctx context.Context, kind types.Kind, id string) ([]types.ChildSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var loc discovery.Locator
	if s.resolver != nil {
		loc = s.resolver
	}
	return discovery.ImmediateChildrenWith(loc, kind, id, s.root)
}

// Inventory loads every object under the root.
func (s *FSStore) Inventory(ctx context.Context) (*deps.Inventory, error) {
	return deps.LoadInventory(ctx, s.root)
}

// Validate checks the whole root for prerequisite cycles and lint findings.
func (s *FSStore) Validate(ctx context.Context) (*deps.Report, error) {
	return deps.Validate(ctx, s.root)
}

func (s *FSStore) rel(p string) string {
	if rel, err := filepath.Rel(s.root, p); err == nil {
		return filepath.ToSlash(rel)
	}
	return p
}

// writeDocument renders doc and replaces path atomically, creating parent
// directories as needed.
func writeDocument(path string, doc *markdown.Document) error {
	content, err := markdown.Render(doc)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), dirPerms); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(content)); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	// atomic.WriteFile doesn't set permissions for new files
	if err := os.Chmod(path, filePerms); err != nil {
		return fmt.Errorf("set file permissions: %w", err)
	}
	return nil
}
