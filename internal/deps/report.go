package deps

import (
	"context"
	"errors"
	"path/filepath"
)

// Report is the outcome of validating a whole planning root.
type Report struct {
	Objects  int       `json:"objects"`
	Cycle    []string  `json:"cycle,omitempty"`
	Findings []Finding `json:"findings,omitempty"`
}

// OK reports whether no cycle was found. Findings never make a report fail.
func (r *Report) OK() bool { return len(r.Cycle) == 0 }

// Validate loads root and returns a report together with the cycle error, if
// any. Lint findings are included regardless.
func Validate(ctx context.Context, root string) (*Report, error) {
	inv, err := LoadInventory(ctx, root)
	if err != nil {
		return nil, err
	}
	report := &Report{Objects: len(inv.Objects), Findings: Lint(inv)}
	if err := inv.CheckAcyclic(); err != nil {
		var cerr *CircularDependencyError
		if errors.As(err, &cerr) {
			report.Cycle = cerr.Cycle
		}
		return report, err
	}
	return report, nil
}

func relTo(root, p string) string {
	if rel, err := filepath.Rel(root, p); err == nil {
		return filepath.ToSlash(rel)
	}
	return p
}
