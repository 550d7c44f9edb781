package paths

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/langadventurellc/trellis-mcp-sub003/internal/types"
)

// writeTree creates each relative path under root with placeholder content.
func writeTree(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		p := filepath.Join(root, filepath.FromSlash(f))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", f, err)
		}
		if err := os.WriteFile(p, []byte("---\n---\n"), 0o644); err != nil {
			t.Fatalf("write %s: %v", f, err)
		}
	}
}

const (
	projectFile  = "projects/P-web/project.md"
	epicFile     = "projects/P-web/epics/E-auth/epic.md"
	featureFile  = "projects/P-web/epics/E-auth/features/F-login/feature.md"
	openTaskFile = "projects/P-web/epics/E-auth/features/F-login/tasks-open/T-form.md"
	doneTaskFile = "projects/P-web/epics/E-auth/features/F-login/tasks-done/20250101_120000-T-api.md"
)

func sampleTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeTree(t, root, projectFile, epicFile, featureFile, openTaskFile, doneTaskFile)
	return root
}

func TestIDToPath(t *testing.T) {
	root := sampleTree(t)

	tests := []struct {
		name string
		kind types.Kind
		id   string
		want string
	}{
		{"project", types.KindProject, "web", projectFile},
		{"project with prefix", types.KindProject, "P-web", projectFile},
		{"epic", types.KindEpic, "E-auth", epicFile},
		{"feature", types.KindFeature, "login", featureFile},
		{"open task", types.KindTask, "T-form", openTaskFile},
		{"done task", types.KindTask, "api", doneTaskFile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := IDToPath(root, tt.kind, tt.id)
			if err != nil {
				t.Fatalf("IDToPath(%s, %q): %v", tt.kind, tt.id, err)
			}
			want := filepath.Join(root, filepath.FromSlash(tt.want))
			if got != want {
				t.Errorf("IDToPath(%s, %q) = %q, want %q", tt.kind, tt.id, got, want)
			}
		})
	}
}

func TestIDToPath_Errors(t *testing.T) {
	root := sampleTree(t)

	_, err := IDToPath(root, types.KindEpic, "missing")
	if !errors.Is(err, types.ErrNotFound) {
		t.Errorf("missing epic error = %v, want ErrNotFound", err)
	}

	_, err = IDToPath(root, types.KindTask, "Bad_ID")
	if !errors.Is(err, types.ErrInvalidIdentifier) {
		t.Errorf("invalid id error = %v, want ErrInvalidIdentifier", err)
	}

	// An epic directory without epic.md does not count.
	if err := os.MkdirAll(filepath.Join(root, "projects/P-web/epics/E-empty"), 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := IDToPath(root, types.KindEpic, "empty"); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("epic without file error = %v, want ErrNotFound", err)
	}
}

func TestIDToPath_StandaloneWins(t *testing.T) {
	root := sampleTree(t)
	writeTree(t, root, "tasks-open/T-form.md")

	got, err := IDToPath(root, types.KindTask, "form")
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(root, "tasks-open", "T-form.md")
	if got != want {
		t.Errorf("IDToPath = %q, want standalone %q", got, want)
	}
}

func TestIDToPath_LatestDoneFileWins(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root,
		"tasks-done/20250101_120000-T-redo.md",
		"tasks-done/20250101_120000_01-T-redo.md",
		"tasks-done/20240101_000000-T-redo.md",
	)
	got, err := IDToPath(root, types.KindTask, "redo")
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(got) != "20250101_120000_01-T-redo.md" {
		t.Errorf("IDToPath picked %q", filepath.Base(got))
	}
}

func TestIDToPath_ForeignDoneStamp(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("colons are not allowed in Windows file names")
	}
	root := t.TempDir()
	writeTree(t, root,
		"tasks-done/2024-01-01T12:00:00-T-q.md",
		"projects/P-web/epics/E-auth/features/F-login/tasks-done/done-T-e.md",
	)

	for id, want := range map[string]string{
		"q": "tasks-done/2024-01-01T12:00:00-T-q.md",
		"e": "projects/P-web/epics/E-auth/features/F-login/tasks-done/done-T-e.md",
	} {
		got, err := IDToPath(root, types.KindTask, id)
		if err != nil {
			t.Fatalf("IDToPath(%q): %v", id, err)
		}
		if w := filepath.Join(root, filepath.FromSlash(want)); got != w {
			t.Errorf("IDToPath(%q) = %q, want %q", id, got, w)
		}
		if !IsDonePath(got) {
			t.Errorf("IsDonePath(%q) = false", got)
		}
	}
}

func TestIDToPath_ProjectRootWithPlanningDir(t *testing.T) {
	root := t.TempDir()
	writeTree(t, filepath.Join(root, "planning"), projectFile)

	got, err := IDToPath(root, types.KindProject, "web")
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(root, "planning", filepath.FromSlash(projectFile)); got != want {
		t.Errorf("IDToPath = %q, want %q", got, want)
	}
}

func TestPathToID(t *testing.T) {
	tests := map[string]struct {
		path     string
		wantKind types.Kind
		wantID   string
		wantErr  error
	}{
		"project":          {path: projectFile, wantKind: types.KindProject, wantID: "web"},
		"epic":             {path: epicFile, wantKind: types.KindEpic, wantID: "auth"},
		"feature":          {path: featureFile, wantKind: types.KindFeature, wantID: "login"},
		"open task":        {path: openTaskFile, wantKind: types.KindTask, wantID: "form"},
		"done task":        {path: doneTaskFile, wantKind: types.KindTask, wantID: "api"},
		"done with seq":    {path: "tasks-done/20250101_120000_02-T-x-y.md", wantKind: types.KindTask, wantID: "x-y"},
		"standalone open":  {path: "tasks-open/T-solo.md", wantKind: types.KindTask, wantID: "solo"},
		"done iso stamp":   {path: "tasks-done/2024-01-01T12:00:00-T-q.md", wantKind: types.KindTask, wantID: "q"},
		"done word prefix": {path: "tasks-done/done-T-e.md", wantKind: types.KindTask, wantID: "e"},
		"done no prefix":   {path: "tasks-done/T-e.md", wantErr: types.ErrMalformedPath},
		"unknown file":     {path: "projects/P-web/notes.txt", wantErr: types.ErrUnrecognizedFileType},
		"readme":           {path: "README.md", wantErr: types.ErrUnrecognizedFileType},
		"epic misplaced":   {path: "projects/P-web/epic.md", wantErr: types.ErrMalformedPath},
		"project no id":    {path: "projects/P-/project.md", wantErr: types.ErrMalformedPath},
		"task wrong dir":   {path: "features/F-x/T-a.md", wantErr: types.ErrMalformedPath},
		"done in open dir": {path: "tasks-open/20250101_120000-T-a.md", wantErr: types.ErrMalformedPath},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			kind, id, err := PathToID(filepath.FromSlash(tt.path))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("PathToID(%q) error = %v, want %v", tt.path, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("PathToID(%q): %v", tt.path, err)
			}
			if kind != tt.wantKind || id != tt.wantID {
				t.Errorf("PathToID(%q) = (%s, %q), want (%s, %q)", tt.path, kind, id, tt.wantKind, tt.wantID)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	root := sampleTree(t)
	writeTree(t, root, "tasks-open/T-solo.md", "tasks-done/20250202_080000-T-old.md")

	err := Walk(root, func(e Entry) error {
		kind, id, err := PathToID(e.Path)
		if err != nil {
			t.Errorf("PathToID(%q): %v", e.Path, err)
			return nil
		}
		if kind != e.Kind {
			t.Errorf("PathToID(%q) kind = %s, walk said %s", e.Path, kind, e.Kind)
		}
		back, err := IDToPath(root, kind, id)
		if err != nil {
			t.Errorf("IDToPath(%s, %q): %v", kind, id, err)
			return nil
		}
		if back != e.Path {
			t.Errorf("round trip %q -> %s/%s -> %q", e.Path, kind, id, back)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestWalkOrder(t *testing.T) {
	root := sampleTree(t)
	writeTree(t, root, "tasks-open/T-solo.md", "tasks-open/ignore.txt", "tasks-done/not-a-task.md")

	var got []string
	err := Walk(root, func(e Entry) error {
		rel, _ := filepath.Rel(root, e.Path)
		got = append(got, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{projectFile, epicFile, featureFile, openTaskFile, doneTaskFile, "tasks-open/T-solo.md"}
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("Walk order:\n%s\nwant:\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
}

func TestWalkSkipRest(t *testing.T) {
	root := sampleTree(t)
	count := 0
	err := Walk(root, func(Entry) error {
		count++
		return SkipRest
	})
	if err != nil || count != 1 {
		t.Errorf("Walk with SkipRest = %v after %d visits", err, count)
	}
}

func TestResolvePathForNewObject(t *testing.T) {
	root := sampleTree(t)
	join := func(rel string) string { return filepath.Join(root, filepath.FromSlash(rel)) }

	tests := []struct {
		name    string
		kind    types.Kind
		id      string
		parent  string
		status  types.Status
		want    string
		wantErr error
	}{
		{name: "project", kind: types.KindProject, id: "P-new", want: "projects/P-new/project.md"},
		{name: "project with parent", kind: types.KindProject, id: "new", parent: "web", wantErr: types.ErrParentForbidden},
		{name: "epic", kind: types.KindEpic, id: "billing", parent: "P-web", want: "projects/P-web/epics/E-billing/epic.md"},
		{name: "epic missing project", kind: types.KindEpic, id: "e", parent: "nope", wantErr: types.ErrParentNotFound},
		{name: "epic without parent", kind: types.KindEpic, id: "e", wantErr: types.ErrParentRequired},
		{name: "feature", kind: types.KindFeature, id: "signup", parent: "auth", want: "projects/P-web/epics/E-auth/features/F-signup/feature.md"},
		{name: "feature without parent", kind: types.KindFeature, id: "f", wantErr: types.ErrParentRequired},
		{name: "feature missing epic", kind: types.KindFeature, id: "f", parent: "nope", wantErr: types.ErrParentNotFound},
		{name: "hierarchical task", kind: types.KindTask, id: "T-validate", parent: "F-login", status: types.StatusOpen, want: "projects/P-web/epics/E-auth/features/F-login/tasks-open/T-validate.md"},
		{name: "standalone task", kind: types.KindTask, id: "chore", want: "tasks-open/T-chore.md"},
		{name: "task missing feature", kind: types.KindTask, id: "t", parent: "nope", wantErr: types.ErrParentNotFound},
		{name: "invalid id", kind: types.KindTask, id: "Bad", wantErr: types.ErrInvalidIdentifier},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolvePathForNewObject(tt.kind, tt.id, tt.parent, root, tt.status, false)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != join(tt.want) {
				t.Errorf("got %q, want %q", got, join(tt.want))
			}
		})
	}
}

func TestResolvePathForNewObject_DoneTask(t *testing.T) {
	root := sampleTree(t)

	got, err := ResolvePathForNewObject(types.KindTask, "finished", "login", root, types.StatusDone, false)
	if err != nil {
		t.Fatal(err)
	}
	if !IsDonePath(got) {
		t.Fatalf("done task routed to %q", got)
	}
	kind, id, err := PathToID(got)
	if err != nil || kind != types.KindTask || id != "finished" {
		t.Errorf("PathToID(%q) = %s %q %v", got, kind, id, err)
	}
}

func TestResolvePathForNewObject_EnsurePlanningSubdir(t *testing.T) {
	root := t.TempDir()

	got, err := ResolvePathForNewObject(types.KindProject, "alpha", "", root, "", true)
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(root, "planning", "projects", "P-alpha", "project.md")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if info, err := os.Stat(filepath.Join(root, "planning")); err != nil || !info.IsDir() {
		t.Errorf("planning dir not created: %v", err)
	}
	if _, err := os.Stat(filepath.Dir(got)); !os.IsNotExist(err) {
		t.Errorf("object directory should not be created yet: %v", err)
	}
}

func TestResolvePathForNewObject_NoMutationOnFailure(t *testing.T) {
	root := t.TempDir()

	_, err := ResolvePathForNewObject(types.KindEpic, "e", "missing", root, "", true)
	if !errors.Is(err, types.ErrParentNotFound) {
		t.Fatalf("error = %v, want ErrParentNotFound", err)
	}
	if _, err := os.Stat(filepath.Join(root, "planning")); !os.IsNotExist(err) {
		t.Errorf("planning dir created despite failure: %v", err)
	}
}

func TestStamperUnique(t *testing.T) {
	dir := t.TempDir()
	fixed := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	s := &Stamper{Now: func() time.Time { return fixed }}

	first := s.Next(dir, "a")
	second := s.Next(dir, "a")
	if first != "20250304_050607-T-a.md" {
		t.Errorf("first = %q", first)
	}
	if second != "20250304_050607_01-T-a.md" {
		t.Errorf("second = %q", second)
	}

	// A file left on disk from an earlier process is also avoided.
	s2 := &Stamper{Now: func() time.Time { return fixed }}
	writeTree(t, dir, "20250304_050607-T-b.md")
	if got := s2.Next(dir, "b"); got != "20250304_050607_01-T-b.md" {
		t.Errorf("collision with existing file not avoided: %q", got)
	}
}

func TestStamperMonotonic(t *testing.T) {
	dir := t.TempDir()
	times := []time.Time{
		time.Date(2025, 1, 1, 12, 0, 10, 0, time.UTC),
		time.Date(2025, 1, 1, 12, 0, 5, 0, time.UTC), // clock stepped back
	}
	i := 0
	s := &Stamper{Now: func() time.Time { t := times[i]; i++; return t }}

	a := s.Next(dir, "x")
	b := s.Next(dir, "x")
	if DoneStamp(b) < DoneStamp(a) {
		t.Errorf("stamps went backwards: %q then %q", a, b)
	}
	if a == b {
		t.Errorf("duplicate name %q", a)
	}
}

func TestResolverCache_NewerDoneFile(t *testing.T) {
	root := sampleTree(t)
	r, err := NewResolver(16)
	if err != nil {
		t.Fatal(err)
	}

	first, err := r.IDToPath(root, types.KindTask, "api")
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(first) != "20250101_120000-T-api.md" {
		t.Fatalf("IDToPath picked %q", filepath.Base(first))
	}

	const newer = "projects/P-web/epics/E-auth/features/F-login/tasks-done/20250301_090000-T-api.md"
	writeTree(t, root, newer)
	// Pin a distinct mtime so coarse filesystem clocks still see the change.
	doneDir := filepath.Dir(filepath.Join(root, filepath.FromSlash(newer)))
	later := time.Now().Add(time.Hour)
	if err := os.Chtimes(doneDir, later, later); err != nil {
		t.Fatal(err)
	}

	second, err := r.IDToPath(root, types.KindTask, "api")
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(root, filepath.FromSlash(newer)); second != want {
		t.Errorf("IDToPath = %q, want the newer done file %q", second, want)
	}
}

func TestDoneFileName(t *testing.T) {
	got := DoneFileName("ship-it", time.Date(2024, 12, 31, 23, 59, 58, 0, time.UTC))
	if got != "20241231_235958-T-ship-it.md" {
		t.Errorf("DoneFileName = %q", got)
	}
}

func TestResolverCache(t *testing.T) {
	root := sampleTree(t)
	r, err := NewResolver(16)
	if err != nil {
		t.Fatal(err)
	}

	first, err := r.IDToPath(root, types.KindTask, "form")
	if err != nil {
		t.Fatal(err)
	}
	if r.Len() != 1 {
		t.Fatalf("Len = %d, want 1", r.Len())
	}

	// A standalone task with the same id now shadows the cached answer.
	writeTree(t, root, "tasks-open/T-form.md")
	second, err := r.IDToPath(root, types.KindTask, "form")
	if err != nil {
		t.Fatal(err)
	}
	if second == first {
		t.Errorf("stale cache entry returned: %q", second)
	}

	r.Invalidate(root)
	if r.Len() != 0 {
		t.Errorf("Len after Invalidate = %d", r.Len())
	}

	var nilResolver *Resolver
	if _, err := nilResolver.IDToPath(root, types.KindProject, "web"); err != nil {
		t.Errorf("nil resolver: %v", err)
	}
}
