// Package audit records security-relevant events. Every entry goes to the
// structured logger; when a file is configured it is also appended there as
// one JSON line.
package audit

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/langadventurellc/trellis-mcp-sub003/internal/sanitize"
)

// FileName is the default audit log name inside the .trellis state directory.
const FileName = "audit.jsonl"

// Entry kinds
const (
	KindSecurityViolation = "security_violation"
	KindTaskCompleted     = "task_completed"
	KindObjectCreated     = "object_created"
)

// Entry is a single audit record.
type Entry struct {
	ID        string         `json:"id"`
	Kind      string         `json:"kind"`
	CreatedAt time.Time      `json:"created_at"`
	Field     string         `json:"field,omitempty"`
	Pattern   string         `json:"pattern,omitempty"`
	Message   string         `json:"message,omitempty"`
	Context   map[string]any `json:"context,omitempty"`
}

// Recorder writes entries to a logger and optionally a JSONL file.
type Recorder struct {
	mu   sync.Mutex
	path string
	log  *slog.Logger
}

// New returns a Recorder. An empty path disables the file sink; a nil logger
// falls back to slog.Default at write time.
func New(path string, log *slog.Logger) *Recorder {
	return &Recorder{path: path, log: log}
}

// Path returns the JSONL file the recorder appends to, or "".
func (r *Recorder) Path() string { return r.path }

// Append sanitizes e, fills in ID and CreatedAt when unset, logs it, and writes
// it to the file sink. The returned id is the entry's ID.
func (r *Recorder) Append(e *Entry) (string, error) {
	if e == nil {
		return "", fmt.Errorf("audit: nil entry")
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	e.Message = sanitize.Message(e.Message)
	e.Pattern = sanitize.Message(e.Pattern)
	e.Context = sanitize.FilterSensitiveInformation(e.Context)

	log := r.log
	if log == nil {
		log = slog.Default()
	}
	attrs := []any{"audit_id", e.ID, "kind", e.Kind}
	if e.Field != "" {
		attrs = append(attrs, "field", e.Field)
	}
	if e.Pattern != "" {
		attrs = append(attrs, "pattern", e.Pattern)
	}
	if len(e.Context) > 0 {
		attrs = append(attrs, "context", e.Context)
	}
	if e.Kind == KindSecurityViolation {
		log.Warn(e.Message, attrs...)
	} else {
		log.Info(e.Message, attrs...)
	}

	if r.path == "" {
		return e.ID, nil
	}

	line, err := json.Marshal(e)
	if err != nil {
		return e.ID, fmt.Errorf("audit: marshal entry: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(r.path), 0o750); err != nil {
		return e.ID, fmt.Errorf("audit: create dir: %w", err)
	}
	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return e.ID, fmt.Errorf("audit: open: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return e.ID, fmt.Errorf("audit: write: %w", err)
	}
	return e.ID, nil
}

var defaultRecorder atomic.Pointer[Recorder]

func init() {
	defaultRecorder.Store(New("", nil))
}

// Default returns the process-wide recorder.
func Default() *Recorder {
	return defaultRecorder.Load()
}

// SetDefault replaces the process-wide recorder and returns the previous one.
func SetDefault(r *Recorder) *Recorder {
	if r == nil {
		r = New("", nil)
	}
	return defaultRecorder.Swap(r)
}

// Append writes e through the process-wide recorder.
func Append(e *Entry) (string, error) {
	return Default().Append(e)
}
