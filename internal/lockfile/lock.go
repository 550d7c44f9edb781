// Package lockfile provides the advisory lock that serializes structural
// writes to a planning root between processes.
package lockfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// FileName is the lock file created inside the planning directory.
const FileName = ".trellis.lock"

// ErrLockBusy is returned when another process holds the lock.
var ErrLockBusy = errors.New("planning root is locked by another process")

// Holder is written into the lock file by the process holding the lock.
type Holder struct {
	PID        int       `json:"pid"`
	AcquiredAt time.Time `json:"acquired_at"`
	Operation  string    `json:"operation,omitempty"`
}

// Lock is a held advisory lock. Release it exactly once.
type Lock struct {
	f    *os.File
	path string
}

// Path returns the lock file path.
func (l *Lock) Path() string { return l.path }

// TryAcquire takes the lock on dir without waiting. It returns ErrLockBusy if
// the lock is held elsewhere.
func TryAcquire(dir, operation string) (*Lock, error) {
	p := filepath.Join(dir, FileName)
	// #nosec G304 - path is the planning directory plus a fixed name
	f, err := os.OpenFile(p, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	if err := tryLock(f); err != nil {
		_ = f.Close()
		return nil, err
	}

	l := &Lock{f: f, path: p}
	if err := l.writeHolder(operation); err != nil {
		_ = l.Release()
		return nil, err
	}
	return l, nil
}

// Acquire polls TryAcquire with exponential backoff until the lock is taken
// or ctx ends.
func Acquire(ctx context.Context, dir, operation string) (*Lock, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 10 * time.Millisecond
	bo.MaxInterval = 250 * time.Millisecond
	bo.MaxElapsedTime = 0

	var l *Lock
	err := backoff.Retry(func() error {
		var err error
		l, err = TryAcquire(dir, operation)
		if errors.Is(err, ErrLockBusy) {
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrLockBusy, ctxErr)
		}
		return nil, err
	}
	return l, nil
}

func (l *Lock) writeHolder(operation string) error {
	data, err := json.Marshal(Holder{PID: os.Getpid(), AcquiredAt: time.Now().UTC(), Operation: operation})
	if err != nil {
		return err
	}
	if err := l.f.Truncate(0); err != nil {
		return fmt.Errorf("truncate lock file: %w", err)
	}
	if _, err := l.f.WriteAt(data, 0); err != nil {
		return fmt.Errorf("write lock file: %w", err)
	}
	return nil
}

// Release unlocks and closes the lock file. The file itself is left in place
// so that concurrent openers always lock the same inode.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	unlockErr := unlock(l.f)
	closeErr := l.f.Close()
	l.f = nil
	if unlockErr != nil {
		return unlockErr
	}
	return closeErr
}

// ReadHolder returns the holder information last written to the lock file in
// dir and whether that process still appears to be running. A stale file
// left by a finished process is not an error.
func ReadHolder(dir string) (*Holder, bool, error) {
	// #nosec G304 - path is the planning directory plus a fixed name
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		return nil, false, err
	}
	var h Holder
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, false, fmt.Errorf("parse lock file: %w", err)
	}
	return &h, processAlive(h.PID), nil
}
