package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/langadventurellc/trellis-mcp-sub003/internal/lockfile"
	"github.com/langadventurellc/trellis-mcp-sub003/internal/markdown"
	"github.com/langadventurellc/trellis-mcp-sub003/internal/types"
)

func TestCompleteTask(t *testing.T) {
	s := newTestStore(t, Options{CacheSize: 8})
	seedHierarchy(t, s)
	ctx := context.Background()

	openPath, err := s.CreateObject(ctx, &types.Object{Kind: types.KindTask, ID: "impl", Parent: "login", Title: "Impl", Status: types.StatusReview}, "notes", nil)
	require.NoError(t, err)

	// Warm the cache so the move has to invalidate it.
	_, err = s.GetObject(ctx, types.KindTask, "impl")
	require.NoError(t, err)

	donePath, err := s.CompleteTask(ctx, "T-impl")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(filepath.Dir(filepath.Dir(openPath)), "tasks-done", "20250301_120000-T-impl.md"), donePath)
	_, statErr := os.Stat(openPath)
	assert.True(t, os.IsNotExist(statErr), "open file should be gone")

	doc, err := markdown.ReadFile(donePath)
	require.NoError(t, err)
	assert.Equal(t, types.StatusDone, doc.Object.Status)
	assert.Equal(t, "notes\n", doc.Body)

	got, err := s.GetObject(ctx, types.KindTask, "impl")
	require.NoError(t, err)
	assert.Equal(t, donePath, got.Object.Path)

	_, err = s.CompleteTask(ctx, "impl")
	assert.True(t, errors.Is(err, ErrAlreadyCompleted))
}

func TestCompleteStandaloneTask(t *testing.T) {
	s := newTestStore(t, Options{})
	ctx := context.Background()

	_, err := s.CreateObject(ctx, &types.Object{Kind: types.KindTask, ID: "solo", Title: "Solo"}, "", nil)
	require.NoError(t, err)

	donePath, err := s.CompleteTask(ctx, "solo")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Root(), "tasks-done", "20250301_120000-T-solo.md"), donePath)
}

func TestCompleteTaskSameSecond(t *testing.T) {
	s := newTestStore(t, Options{})
	ctx := context.Background()

	var names []string
	for _, id := range []string{"a", "b"} {
		_, err := s.CreateObject(ctx, &types.Object{Kind: types.KindTask, ID: id, Title: id}, "", nil)
		require.NoError(t, err)
		p, err := s.CompleteTask(ctx, id)
		require.NoError(t, err)
		names = append(names, filepath.Base(p))
	}
	assert.Equal(t, []string{"20250301_120000-T-a.md", "20250301_120000-T-b.md"}, names)
}

func TestCompleteTaskNotFound(t *testing.T) {
	s := newTestStore(t, Options{})
	_, err := s.CompleteTask(context.Background(), "ghost")
	assert.True(t, errors.Is(err, types.ErrNotFound))

	_, err = s.CompleteTask(context.Background(), "../ghost")
	assert.True(t, errors.Is(err, types.ErrInvalidIdentifier))
}

func TestCompleteTaskRollsBackOnRemoveFailure(t *testing.T) {
	s := newTestStore(t, Options{})
	ctx := context.Background()

	openPath, err := s.CreateObject(ctx, &types.Object{Kind: types.KindTask, ID: "stuck", Title: "Stuck"}, "", nil)
	require.NoError(t, err)

	orig := removeFile
	removeFile = func(string) error { return fmt.Errorf("in use: %w", os.ErrPermission) }
	t.Cleanup(func() { removeFile = orig })

	_, err = s.CompleteTask(ctx, "stuck")
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrPermission))

	_, statErr := os.Stat(openPath)
	assert.NoError(t, statErr, "open file must survive")
	entries, _ := os.ReadDir(filepath.Join(s.Root(), "tasks-done"))
	assert.Empty(t, entries, "done file must be rolled back")
}

func TestCompleteTaskWaitsForLock(t *testing.T) {
	s := newTestStore(t, Options{LockTimeout: 50 * time.Millisecond})
	ctx := context.Background()

	_, err := s.CreateObject(ctx, &types.Object{Kind: types.KindTask, ID: "locked", Title: "Locked"}, "", nil)
	require.NoError(t, err)

	held, err := lockfile.TryAcquire(s.Root(), "other")
	require.NoError(t, err)
	defer held.Release()

	_, err = s.CompleteTask(ctx, "locked")
	assert.True(t, errors.Is(err, lockfile.ErrLockBusy))

	_, statErr := os.Stat(filepath.Join(s.Root(), "tasks-open", "T-locked.md"))
	assert.NoError(t, statErr)
}
