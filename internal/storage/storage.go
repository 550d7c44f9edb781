// Package storage reads and writes planning objects on disk.
//
// Every write is gated by the validation packages before any file changes:
// identifier security, normalization, status, parent existence and the
// prerequisite graph. FSStore is the filesystem implementation; consumers
// depend on the Storage interface so telemetry and tests can wrap it.
package storage

import (
	"context"
	"errors"

	"github.com/langadventurellc/trellis-mcp-sub003/internal/deps"
	"github.com/langadventurellc/trellis-mcp-sub003/internal/markdown"
	"github.com/langadventurellc/trellis-mcp-sub003/internal/types"
)

// ErrAlreadyExists is returned when creating an object whose file is already
// present at the destination.
var ErrAlreadyExists = errors.New("object already exists")

// ErrAlreadyCompleted is returned when completing a task that is already in
// tasks-done.
var ErrAlreadyCompleted = errors.New("task already completed")

// Storage is the interface satisfied by *FSStore.
type Storage interface {
	// Root returns the planning root the store was opened on.
	Root() string

	GetObject(ctx context.Context, kind types.Kind, id string) (*markdown.Document, error)
	CreateObject(ctx context.Context, obj *types.Object, body string, extra map[string]any) (string, error)
	UpdatePrerequisites(ctx context.Context, kind types.Kind, id string, prereqs []string) error
	UpdateStatus(ctx context.Context, kind types.Kind, id string, status types.Status) (string, error)

	// CompleteTask moves an open task to tasks-done and returns the new path.
	CompleteTask(ctx context.Context, id string) (string, error)

	ListChildren(ctx context.Context, kind types.Kind, id string) ([]types.ChildSummary, error)
	Inventory(ctx context.Context) (*deps.Inventory, error)
	Validate(ctx context.Context) (*deps.Report, error)
}
