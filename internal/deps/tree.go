package deps

import (
	"fmt"
	"io"
	"strings"
)

// TreeRenderer prints the prerequisite chain of one object with box-drawing
// connectors. Objects reached a second time are printed once and then
// referenced.
type TreeRenderer struct {
	// StyleFunc decorates a node line; MutedFunc decorates repeat markers.
	StyleFunc func(line string) string
	MutedFunc func(s string) string

	w                io.Writer
	inv              *Inventory
	graph            Graph
	seen             map[string]bool
	activeConnectors []bool
	maxDepth         int
}

// NewTreeRenderer returns a renderer writing to w that stops descending at
// maxDepth.
func NewTreeRenderer(w io.Writer, inv *Inventory, maxDepth int) *TreeRenderer {
	if maxDepth < 1 {
		maxDepth = 1
	}
	identity := func(s string) string { return s }
	return &TreeRenderer{
		StyleFunc:        identity,
		MutedFunc:        identity,
		w:                w,
		inv:              inv,
		graph:            inv.Graph(),
		seen:             make(map[string]bool),
		activeConnectors: make([]bool, maxDepth+1),
		maxDepth:         maxDepth,
	}
}

// Render prints id and, recursively, its prerequisites.
func (r *TreeRenderer) Render(id string) {
	r.renderNode(id, 0, true)
}

func (r *TreeRenderer) renderNode(id string, depth int, isLast bool) {
	var prefix strings.Builder
	for i := 0; i < depth; i++ {
		if r.activeConnectors[i] {
			prefix.WriteString("\u2502   ") // │
		} else {
			prefix.WriteString("    ")
		}
	}
	if depth > 0 {
		if isLast {
			prefix.WriteString("\u2514\u2500\u2500 ") // └──
		} else {
			prefix.WriteString("\u251C\u2500\u2500 ") // ├──
		}
	}

	if r.seen[id] {
		fmt.Fprintf(r.w, "%s%s\n", prefix.String(), r.MutedFunc(id+" (shown above)"))
		return
	}
	r.seen[id] = true

	line := id + " (missing)"
	if obj, ok := r.inv.Objects[id]; ok {
		line = fmt.Sprintf("%s %s: %s [%s]", GetStatusEmoji(obj.Status), id, obj.Title, Annotation(obj))
	}
	prereqs := r.graph[id]
	if depth == r.maxDepth && len(prereqs) > 0 {
		line += " \u2026" // …
		prereqs = nil
	}
	fmt.Fprintf(r.w, "%s%s\n", prefix.String(), r.StyleFunc(line))

	for i, p := range prereqs {
		r.activeConnectors[depth] = i < len(prereqs)-1
		r.renderNode(p, depth+1, i == len(prereqs)-1)
	}
}
