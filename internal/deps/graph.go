// Package deps validates prerequisite relationships across every planning
// object in a root, hierarchical and standalone alike.
package deps

import (
	"sort"

	"github.com/langadventurellc/trellis-mcp-sub003/internal/types"
	"github.com/langadventurellc/trellis-mcp-sub003/internal/validation"
)

// Graph maps a clean object id to the clean ids of its prerequisites.
type Graph map[string][]string

// BuildGraph derives the prerequisite graph from objects keyed by clean id.
// Every object becomes a node; prerequisite references are prefix-stripped
// and deduplicated. References to unknown ids still produce edges.
func BuildGraph(objects map[string]*types.Object) Graph {
	g := make(Graph, len(objects))
	for id, obj := range objects {
		var edges []string
		seen := make(map[string]bool, len(obj.Prerequisites))
		for _, p := range obj.Prerequisites {
			clean := validation.StripPrefix(p)
			if clean == "" || seen[clean] {
				continue
			}
			seen[clean] = true
			edges = append(edges, clean)
		}
		g[id] = edges
	}
	return g
}

// Nodes returns every id in g, including ids that only appear as
// prerequisites, in sorted order.
func (g Graph) Nodes() []string {
	set := make(map[string]bool, len(g))
	for id, edges := range g {
		set[id] = true
		for _, e := range edges {
			set[e] = true
		}
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// DetectCycle returns the first cycle found by a depth-first search over g,
// starting from nodes in sorted order. The cycle starts and ends with the
// same id; a self-prerequisite yields [id, id]. It returns nil when g is
// acyclic.
func DetectCycle(g Graph) []string {
	const (
		unvisited = iota
		visiting
		finished
	)
	state := make(map[string]int, len(g))
	pos := make(map[string]int)
	var stack []string

	var visit func(n string) []string
	visit = func(n string) []string {
		state[n] = visiting
		pos[n] = len(stack)
		stack = append(stack, n)

		for _, m := range g[n] {
			switch state[m] {
			case visiting:
				cycle := append([]string(nil), stack[pos[m]:]...)
				return append(cycle, m)
			case unvisited:
				if c := visit(m); c != nil {
					return c
				}
			}
		}

		stack = stack[:len(stack)-1]
		delete(pos, n)
		state[n] = finished
		return nil
	}

	for _, n := range g.Nodes() {
		if state[n] == unvisited {
			if c := visit(n); c != nil {
				return c
			}
		}
	}
	return nil
}

// Dependents returns the ids that list id as a prerequisite, sorted.
func (g Graph) Dependents(id string) []string {
	var out []string
	for n, edges := range g {
		for _, e := range edges {
			if e == id {
				out = append(out, n)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}
