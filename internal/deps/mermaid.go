package deps

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/langadventurellc/trellis-mcp-sub003/internal/types"
)

// GetStatusEmoji returns a single-character marker for a status.
func GetStatusEmoji(status types.Status) string {
	switch status {
	case types.StatusDraft:
		return "\u25CC" // Dotted Circle
	case types.StatusOpen:
		return "\u2610" // Ballot Box
	case types.StatusInProgress:
		return "\u25E7" // Square Left Half Black
	case types.StatusReview:
		return "\u25C8" // Diamond in Diamond
	case types.StatusDone:
		return "\u2611" // Ballot Box with Check
	default:
		return "?"
	}
}

// WriteMermaid writes the prerequisite graph of inv as a Mermaid flowchart.
// Edges point from a prerequisite to the object that waits on it.
func WriteMermaid(w io.Writer, inv *Inventory) error {
	g := inv.Graph()
	nodes := g.Nodes()

	if _, err := fmt.Fprintln(w, "flowchart TD"); err != nil {
		return err
	}
	if len(nodes) == 0 {
		_, err := fmt.Fprintln(w, `  empty["No planning objects"]`)
		return err
	}

	for _, id := range nodes {
		label := id + ": (missing)"
		if obj, ok := inv.Objects[id]; ok {
			label = fmt.Sprintf("%s %s: %s", GetStatusEmoji(obj.Status), id, obj.Title)
		}
		label = strings.ReplaceAll(label, "\\", "\\\\")
		label = strings.ReplaceAll(label, "\"", "\\\"")
		if _, err := fmt.Fprintf(w, "  %s[\"%s\"]\n", id, label); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}

	ids := make([]string, 0, len(g))
	for id := range g {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		for _, prereq := range g[id] {
			if _, err := fmt.Fprintf(w, "  %s --> %s\n", prereq, id); err != nil {
				return err
			}
		}
	}
	return nil
}
