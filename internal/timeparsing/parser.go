// Package timeparsing turns the --since argument of `trellis children` into
// a point in time. Inputs are tried as, in order:
//  1. Compact offset (-6h, -1d, -2w, -3m, -1y; no sign means forward)
//  2. Absolute timestamp (RFC3339, date-only)
//  3. Natural language (yesterday, last monday, 3 days ago)
package timeparsing

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var compactRe = regexp.MustCompile(`^([+-]?)(\d+)([hdwmy])$`)

// ParseCompactDuration applies an offset such as "-1d" or "+2w" to now.
// Days, weeks, months and years are calendar arithmetic in now's location,
// so "-1m" from March 31 normalizes the way time.AddDate does.
func ParseCompactDuration(s string, now time.Time) (time.Time, error) {
	m := compactRe.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, fmt.Errorf("not a compact duration: %q", s)
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return time.Time{}, fmt.Errorf("compact duration %q: %w", s, err)
	}
	if m[1] == "-" {
		n = -n
	}

	switch m[3] {
	case "h":
		return now.Add(time.Duration(n) * time.Hour), nil
	case "d":
		return now.AddDate(0, 0, n), nil
	case "w":
		return now.AddDate(0, 0, 7*n), nil
	case "m":
		return now.AddDate(0, n, 0), nil
	default: // y
		return now.AddDate(n, 0, 0), nil
	}
}

// IsCompactDuration reports whether s uses the compact offset syntax.
func IsCompactDuration(s string) bool {
	return compactRe.MatchString(s)
}
