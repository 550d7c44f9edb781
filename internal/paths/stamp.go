package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/langadventurellc/trellis-mcp-sub003/internal/types"
)

// StampLayout is the time format prefixed to completed task files.
const StampLayout = "20060102_150405"

// DoneFileName returns the tasks-done file name for id completed at t.
func DoneFileName(id string, t time.Time) string {
	return t.UTC().Format(StampLayout) + "-" + types.KindTask.Prefix() + id + ".md"
}

// Stamper hands out done-file names that never go backwards in time and never
// collide within a directory, even when the clock reports the same second
// twice. The zero value is ready to use.
type Stamper struct {
	mu     sync.Mutex
	Now    func() time.Time
	last   time.Time
	issued map[string]bool
}

var defaultStamper = &Stamper{}

// Next reserves a file name for id in doneDir.
func (s *Stamper) Next(doneDir, id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	t := now().UTC().Truncate(time.Second)
	if t.Before(s.last) {
		t = s.last
	}
	if !t.Equal(s.last) || s.issued == nil {
		s.issued = make(map[string]bool)
	}
	s.last = t

	stamp := t.Format(StampLayout)
	suffix := "-" + types.KindTask.Prefix() + id + ".md"
	name := stamp + suffix
	for seq := 1; s.taken(doneDir, name); seq++ {
		name = fmt.Sprintf("%s_%02d%s", stamp, seq, suffix)
	}
	s.issued[filepath.Join(doneDir, name)] = true
	return name
}

func (s *Stamper) taken(dir, name string) bool {
	p := filepath.Join(dir, name)
	if s.issued[p] {
		return true
	}
	_, err := os.Lstat(p)
	return err == nil
}
