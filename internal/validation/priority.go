package validation

import (
	"fmt"
	"strings"
)

// Priority values accepted in front-matter.
const (
	PriorityHigh   = "high"
	PriorityNormal = "normal"
	PriorityLow    = "low"
)

// ParsePriority normalizes a priority string. Empty input means normal.
// Numeric shorthand is accepted: 1 (or P1) is high, 2 normal, 3 low.
func ParsePriority(content string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(content))
	if len(value) == 2 && value[0] == 'p' && value[1] >= '0' && value[1] <= '9' {
		value = value[1:]
	}

	switch value {
	case "", PriorityNormal, "2", "medium":
		return PriorityNormal, nil
	case PriorityHigh, "1":
		return PriorityHigh, nil
	case PriorityLow, "3":
		return PriorityLow, nil
	}
	return "", fmt.Errorf("invalid priority %q (expected high, normal or low)", content)
}
