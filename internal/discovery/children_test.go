package discovery

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/langadventurellc/trellis-mcp-sub003/internal/paths"
	"github.com/langadventurellc/trellis-mcp-sub003/internal/types"
)

func write(t *testing.T, root, rel, content string) string {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func fm(kind, id, status, title, created string) string {
	return "---\nkind: " + kind + "\nid: " + id + "\nstatus: " + status +
		"\ntitle: " + title + "\ncreated: \"" + created + "\"\n---\n"
}

const featureDir = "projects/P-web/epics/E-auth/features/F-login"

func tree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	write(t, root, "projects/P-web/project.md", fm("project", "P-web", "draft", "Web", "2025-01-01T00:00:00Z"))
	write(t, root, "projects/P-web/epics/E-auth/epic.md", fm("epic", "E-auth", "draft", "Auth", "2025-01-03T00:00:00Z"))
	write(t, root, "projects/P-web/epics/E-billing/epic.md", fm("epic", "E-billing", "draft", "Billing", "2025-01-02T00:00:00Z"))
	write(t, root, featureDir+"/feature.md", fm("feature", "F-login", "in-progress", "Login", "2025-01-04T00:00:00Z"))
	write(t, root, featureDir+"/tasks-open/T-form.md", fm("task", "T-form", "open", "Form", "2025-01-06T00:00:00Z"))
	write(t, root, featureDir+"/tasks-done/20250105_000000-T-api.md", fm("task", "T-api", "done", "API", "2025-01-05T00:00:00Z"))
	return root
}

func TestImmediateChildren_Project(t *testing.T) {
	root := tree(t)

	children, err := ImmediateChildren(types.KindProject, "web", root)
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, "E-billing", children[0].ID, "ordered by created")
	assert.Equal(t, "E-auth", children[1].ID)
	assert.Equal(t, "epic", children[1].Kind)
	assert.Equal(t, "Auth", children[1].Title)
	assert.Equal(t, filepath.Join(root, "projects/P-web/epics/E-auth/epic.md"), children[1].FilePath)
}

func TestImmediateChildren_EpicIsNotRecursive(t *testing.T) {
	root := tree(t)

	children, err := ImmediateChildren(types.KindEpic, "E-auth", root)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "F-login", children[0].ID)
}

func TestImmediateChildren_FeatureIncludesOpenAndDone(t *testing.T) {
	root := tree(t)

	children, err := ImmediateChildren(types.KindFeature, "login", root)
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, "T-api", children[0].ID)
	assert.Equal(t, "done", children[0].Status)
	assert.Equal(t, "T-form", children[1].ID)
}

func TestImmediateChildren_FeatureDoneWithForeignPrefix(t *testing.T) {
	root := tree(t)
	write(t, root, featureDir+"/tasks-done/done-T-e.md", fm("task", "T-e", "done", "Export", "2025-01-07T00:00:00Z"))

	children, err := ImmediateChildren(types.KindFeature, "F-login", root)
	require.NoError(t, err)
	require.Len(t, children, 3)
	assert.Equal(t, "T-e", children[2].ID)
	assert.Equal(t, filepath.Join(root, featureDir, "tasks-done", "done-T-e.md"), children[2].FilePath)
}

func TestImmediateChildren_TaskHasNone(t *testing.T) {
	root := tree(t)

	children, err := ImmediateChildren(types.KindTask, "form", root)
	require.NoError(t, err)
	assert.Empty(t, children)
}

func TestImmediateChildren_StubForUnparseable(t *testing.T) {
	root := tree(t)
	stub := write(t, root, "projects/P-web/epics/E-empty/epic.md", "")
	write(t, root, "projects/P-web/epics/E-broken/epic.md", "---\nid: [oops\n---\n")

	children, err := ImmediateChildren(types.KindProject, "web", root)
	require.NoError(t, err)
	require.Len(t, children, 4)

	// Stubs have an empty created value and sort first, in directory order.
	assert.Equal(t, "", children[0].ID)
	assert.Equal(t, filepath.Join(root, "projects/P-web/epics/E-broken/epic.md"), children[0].FilePath)
	assert.Equal(t, types.ChildSummary{FilePath: stub}, children[1])
}

func TestImmediateChildren_MissingParent(t *testing.T) {
	root := tree(t)

	_, err := ImmediateChildren(types.KindEpic, "nope", root)
	assert.True(t, errors.Is(err, types.ErrNotFound))
}

func TestImmediateChildren_StableTies(t *testing.T) {
	root := t.TempDir()
	write(t, root, "projects/P-p/project.md", fm("project", "P-p", "draft", "P", "2025-01-01T00:00:00Z"))
	for _, id := range []string{"c", "a", "b"} {
		write(t, root, "projects/P-p/epics/E-"+id+"/epic.md", fm("epic", "E-"+id, "draft", id, "2025-02-01T00:00:00Z"))
	}

	children, err := ImmediateChildren(types.KindProject, "p", root)
	require.NoError(t, err)
	ids := []string{children[0].ID, children[1].ID, children[2].ID}
	assert.Equal(t, []string{"E-a", "E-b", "E-c"}, ids)
}

func TestImmediateChildrenWithResolver(t *testing.T) {
	root := tree(t)
	r, err := paths.NewResolver(8)
	require.NoError(t, err)

	children, err := ImmediateChildrenWith(r, types.KindFeature, "F-login", root)
	require.NoError(t, err)
	assert.Len(t, children, 2)
	assert.Equal(t, 1, r.Len())
}

func TestCreatedSince(t *testing.T) {
	children := []types.ChildSummary{
		{ID: "old", Created: "2024-06-01T00:00:00Z"},
		{ID: "new", Created: "2025-06-01T00:00:00Z"},
		{ID: "stub"},
	}
	got := CreatedSince(children, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	require.Len(t, got, 2)
	assert.Equal(t, "new", got[0].ID)
	assert.Equal(t, "stub", got[1].ID)
}
