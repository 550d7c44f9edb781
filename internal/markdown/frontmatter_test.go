package markdown

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/langadventurellc/trellis-mcp-sub003/internal/types"
)

const taskFile = `---
kind: task
id: T-implement-login
parent: F-auth
status: open
title: Implement login
priority: high
prerequisites:
  - T-setup-db
  - design-api
created: 2025-01-15T10:00:00Z
updated: "2025-01-15T11:00:00Z"
schema_version: "1.1"
---

## Notes

Use bcrypt.
`

func TestParse(t *testing.T) {
	doc, err := Parse([]byte(taskFile))
	require.NoError(t, err)

	o := doc.Object
	assert.Equal(t, types.KindTask, o.Kind)
	assert.Equal(t, "T-implement-login", o.ID)
	assert.Equal(t, "implement-login", o.CleanID())
	assert.Equal(t, "F-auth", o.Parent)
	assert.Equal(t, types.StatusOpen, o.Status)
	assert.Equal(t, []string{"T-setup-db", "design-api"}, o.Prerequisites)
	assert.Equal(t, "2025-01-15T10:00:00Z", o.Created)
	assert.Equal(t, "2025-01-15T11:00:00Z", o.Updated)
	assert.Equal(t, "## Notes\n\nUse bcrypt.\n", doc.Body)
	assert.NoError(t, doc.Validate())
}

func TestParseShapes(t *testing.T) {
	tests := map[string]struct {
		input   string
		wantID  string
		wantErr bool
	}{
		"empty front-matter":  {input: "---\n---\nbody\n"},
		"no trailing newline": {input: "---\nid: x\n---", wantID: "x"},
		"crlf":                {input: "---\r\nid: y\r\n---\r\n", wantID: "y"},
		"null parent":         {input: "---\nid: z\nparent: null\n---\n", wantID: "z"},
		"no front-matter":     {input: "# just markdown\n", wantErr: true},
		"empty file":          {input: "", wantErr: true},
		"unterminated":        {input: "---\nid: x\n", wantErr: true},
		"bad yaml":            {input: "---\nid: [unclosed\n---\n", wantErr: true},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			doc, err := Parse([]byte(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, doc.Object.ID)
		})
	}
}

func TestParseNoFrontMatterSentinel(t *testing.T) {
	_, err := Parse([]byte("plain"))
	assert.True(t, errors.Is(err, ErrNoFrontMatter))
}

func TestRenderThenParse(t *testing.T) {
	doc, err := Parse([]byte(taskFile))
	require.NoError(t, err)

	out, err := Render(doc)
	require.NoError(t, err)

	again, err := Parse(out)
	require.NoError(t, err)
	assert.Equal(t, doc.Object, again.Object)
	assert.Equal(t, doc.Body, again.Body)
}

func TestReadFileRecordsPath(t *testing.T) {
	p := filepath.Join(t.TempDir(), "T-x.md")
	require.NoError(t, os.WriteFile(p, []byte("---\nkind: task\nid: T-x\nstatus: open\ntitle: X\n---\n"), 0o644))

	doc, err := ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, p, doc.Object.Path)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.md"))
	assert.True(t, os.IsNotExist(errors.Unwrap(err)) || os.IsNotExist(err))
}

func TestValidate(t *testing.T) {
	tests := map[string]struct {
		obj     types.Object
		wantErr bool
	}{
		"valid feature": {obj: types.Object{Kind: types.KindFeature, ID: "F-a", Status: types.StatusDraft, Title: "A"}},
		"missing title": {obj: types.Object{Kind: types.KindTask, ID: "T-a", Status: types.StatusOpen}, wantErr: true},
		"bad kind":      {obj: types.Object{Kind: "bug", ID: "a", Status: types.StatusOpen, Title: "A"}, wantErr: true},
		"bad priority":  {obj: types.Object{Kind: types.KindTask, ID: "T-a", Status: types.StatusOpen, Title: "A", Priority: "urgent"}, wantErr: true},
		"wrong status":  {obj: types.Object{Kind: types.KindProject, ID: "P-a", Status: types.StatusReview, Title: "A"}, wantErr: true},
		"empty prereq":  {obj: types.Object{Kind: types.KindTask, ID: "T-a", Status: types.StatusOpen, Title: "A", Prerequisites: []string{""}}, wantErr: true},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			doc := &Document{Object: tt.obj}
			err := doc.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
