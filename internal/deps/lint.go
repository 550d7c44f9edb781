package deps

import (
	"fmt"
	"sort"
	"strings"
)

// Finding kinds reported by Lint.
const (
	FindingCollision  = "collision"
	FindingDangling   = "dangling-prerequisite"
	FindingUnreadable = "unreadable"
)

// Finding is a non-blocking problem in a planning root.
type Finding struct {
	Kind    string   `json:"kind"`
	ID      string   `json:"id,omitempty"`
	Message string   `json:"message"`
	Paths   []string `json:"paths,omitempty"`
}

// Lint reports id collisions between files, prerequisites that name no known
// object, and files that could not be parsed. None of these block writes.
func Lint(inv *Inventory) []Finding {
	var out []Finding

	for _, c := range inv.Collisions {
		out = append(out, Finding{
			Kind:    FindingCollision,
			ID:      c.ID,
			Message: fmt.Sprintf("id %q is used by %d files; %s shadows the rest", c.ID, len(c.Shadowed)+1, relTo(inv.Root, c.Kept)),
			Paths:   append([]string{c.Kept}, c.Shadowed...),
		})
	}

	g := inv.Graph()
	ids := make([]string, 0, len(g))
	for id := range g {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		var missing []string
		for _, prereq := range g[id] {
			if _, ok := inv.Objects[prereq]; !ok {
				missing = append(missing, prereq)
			}
		}
		if len(missing) > 0 {
			out = append(out, Finding{
				Kind:    FindingDangling,
				ID:      id,
				Message: fmt.Sprintf("%s lists unknown prerequisites: %s", id, strings.Join(missing, ", ")),
				Paths:   []string{inv.Objects[id].Path},
			})
		}
	}

	for _, p := range inv.Unreadable {
		out = append(out, Finding{
			Kind:    FindingUnreadable,
			Message: fmt.Sprintf("cannot parse %s", relTo(inv.Root, p)),
			Paths:   []string{p},
		})
	}
	return out
}
