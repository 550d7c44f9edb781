package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/langadventurellc/trellis-mcp-sub003/internal/audit"
	"github.com/langadventurellc/trellis-mcp-sub003/internal/lockfile"
	"github.com/langadventurellc/trellis-mcp-sub003/internal/markdown"
	"github.com/langadventurellc/trellis-mcp-sub003/internal/paths"
	"github.com/langadventurellc/trellis-mcp-sub003/internal/types"
	"github.com/langadventurellc/trellis-mcp-sub003/internal/validation"
)

// removeMaxElapsed bounds retries of the tasks-open removal. Removal only
// fails transiently on Windows, where another process may hold the file open.
const removeMaxElapsed = 700 * time.Millisecond

// removeFile is swapped in tests.
var removeFile = os.Remove

// CompleteTask moves the open task id to tasks-done.
//
// The done file is written in full before the open file is removed. If the
// removal fails the new file is deleted again, so the task is never left in
// both directories or in neither.
func (s *FSStore) CompleteTask(ctx context.Context, id string) (string, error) {
	clean, err := validation.Normalize(types.KindTask, id)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	planning := paths.LocatePlanningDir(s.root)
	lockCtx, cancel := context.WithTimeout(ctx, s.opts.LockTimeout)
	defer cancel()
	lock, err := lockfile.Acquire(lockCtx, planning, "complete "+clean)
	if err != nil {
		if h, alive, herr := lockfile.ReadHolder(planning); herr == nil {
			s.log.Warn("planning root is locked", "pid", h.PID, "operation", h.Operation, "since", h.AcquiredAt, "alive", alive)
		}
		return "", fmt.Errorf("complete task %s: %w", clean, err)
	}
	defer func() { _ = lock.Release() }()

	// Resolve under the lock, bypassing the cache.
	openPath, err := paths.IDToPath(s.root, types.KindTask, clean)
	if err != nil {
		return "", err
	}
	if paths.IsDonePath(openPath) {
		return "", fmt.Errorf("%w: %s", ErrAlreadyCompleted, clean)
	}

	doc, err := markdown.ReadFile(openPath)
	if err != nil {
		return "", err
	}
	from := doc.Object.Status
	if from == "" {
		from = types.StatusOpen
	}
	if err := validation.ValidateTransition(types.KindTask, from, types.StatusDone); err != nil {
		return "", err
	}

	doc.Object.Status = types.StatusDone
	doc.Object.Updated = s.timestamp()
	if doc.Object.Kind == "" {
		doc.Object.Kind = types.KindTask
	}

	donePath := paths.DonePathFor(openPath, clean, s.stamper)
	if err := writeDocument(donePath, doc); err != nil {
		return "", err
	}

	if err := removeWithRetry(ctx, openPath); err != nil {
		if rbErr := os.Remove(donePath); rbErr != nil && !errors.Is(rbErr, os.ErrNotExist) {
			s.log.Error("rollback of done file failed", "path", s.rel(donePath), "error", rbErr)
		}
		return "", fmt.Errorf("complete task %s: remove open file: %w", clean, err)
	}

	s.resolver.Invalidate(s.root)

	_, _ = audit.Append(&audit.Entry{
		Kind:    audit.KindTaskCompleted,
		Message: fmt.Sprintf("completed task %s", clean),
		Context: map[string]any{"object_id": clean, "from": string(from), "file": filepath.Base(donePath)},
	})
	s.log.Info("task completed", "id", clean, "from", from, "path", s.rel(donePath))
	return donePath, nil
}

// removeWithRetry removes p, retrying with exponential backoff. A file that
// is already gone counts as removed.
func removeWithRetry(ctx context.Context, p string) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 100 * time.Millisecond
	bo.MaxElapsedTime = removeMaxElapsed

	return backoff.Retry(func() error {
		err := removeFile(p)
		if err == nil || errors.Is(err, os.ErrNotExist) {
			return nil
		}
		if errors.Is(err, os.ErrPermission) || errors.Is(err, os.ErrInvalid) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(bo, ctx))
}
