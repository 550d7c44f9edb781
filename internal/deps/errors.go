package deps

import (
	"strings"

	"github.com/langadventurellc/trellis-mcp-sub003/internal/sanitize"
	"github.com/langadventurellc/trellis-mcp-sub003/internal/types"
)

// CircularDependencyError reports a prerequisite cycle. Cycle lists the ids
// along the cycle with the first id repeated at the end.
type CircularDependencyError struct {
	Cycle   []string
	Objects map[string]*types.Object
}

// NewCircularDependencyError builds an error without object context. Its
// message uses the plain "a -> b -> a" form.
func NewCircularDependencyError(cycle []string) *CircularDependencyError {
	return &CircularDependencyError{Cycle: append([]string(nil), cycle...)}
}

// NewCircularDependencyErrorWithContext annotates every id in the message
// with the kind of object it names.
func NewCircularDependencyErrorWithContext(cycle []string, objects map[string]*types.Object) *CircularDependencyError {
	return &CircularDependencyError{Cycle: append([]string(nil), cycle...), Objects: objects}
}

func (e *CircularDependencyError) Error() string {
	if e.Objects == nil {
		return sanitize.Message("Circular dependency detected: " + strings.Join(e.Cycle, " -> "))
	}
	parts := make([]string, len(e.Cycle))
	for i, id := range e.Cycle {
		parts[i] = id + " (" + Annotation(e.Objects[id]) + ")"
	}
	return sanitize.Message("Circular dependency detected: " + strings.Join(parts, " → "))
}

func (e *CircularDependencyError) Unwrap() error { return types.ErrCircularDependency }

// Annotation describes obj inside a cycle message: tasks are "standalone" or
// "hierarchical", other objects use their kind, missing objects "unknown".
func Annotation(obj *types.Object) string {
	if obj == nil {
		return "unknown"
	}
	if obj.Kind == types.KindTask {
		if obj.IsStandalone() {
			return "standalone"
		}
		return "hierarchical"
	}
	if obj.Kind == "" {
		return "unknown"
	}
	return string(obj.Kind)
}
