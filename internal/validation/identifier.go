// Package validation holds the pure checks applied to planning objects before
// anything is trusted for path construction or written to disk.
package validation

import (
	"strings"

	"github.com/langadventurellc/trellis-mcp-sub003/internal/types"
)

// MaxIDLength is the longest clean identifier (without prefix) accepted.
const MaxIDLength = 32

var reservedNames = map[string]bool{
	"con": true, "prn": true, "aux": true, "nul": true,
	"com1": true, "com2": true, "com3": true, "com4": true, "com5": true,
	"com6": true, "com7": true, "com8": true, "com9": true,
	"lpt1": true, "lpt2": true, "lpt3": true, "lpt4": true, "lpt5": true,
	"lpt6": true, "lpt7": true, "lpt8": true, "lpt9": true,
}

// Normalize trims raw, strips a single known kind prefix and validates the
// remaining identifier. Any of the four prefixes is stripped regardless of
// kind, so "E-foo" normalizes to "foo" even when kind is task.
func Normalize(kind types.Kind, raw string) (string, error) {
	id := types.StripKnownPrefix(strings.TrimSpace(raw))
	if reason := checkClean(id); reason != "" {
		return "", &types.IdentifierError{Kind: kind, ID: raw, Reason: reason}
	}
	return id, nil
}

// StripPrefix trims raw and removes a single known prefix without validating.
// Graph code uses it for prerequisite references read back from disk.
func StripPrefix(raw string) string {
	return types.StripKnownPrefix(strings.TrimSpace(raw))
}

// IsValidClean reports whether id is already a valid clean identifier.
func IsValidClean(id string) bool {
	return checkClean(id) == ""
}

func checkClean(id string) string {
	if id == "" {
		return "identifier cannot be empty"
	}
	if len(id) > MaxIDLength {
		return "identifier exceeds 32 characters"
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '-') {
			return "identifier may only contain lowercase letters, digits and hyphens"
		}
	}
	if id[0] == '-' || id[len(id)-1] == '-' {
		return "identifier cannot start or end with a hyphen"
	}
	if strings.Contains(id, "--") {
		return "identifier cannot contain consecutive hyphens"
	}
	if reservedNames[id] {
		return "identifier is a reserved system name"
	}
	return ""
}
