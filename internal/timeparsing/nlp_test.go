package timeparsing

import (
	"strings"
	"testing"
	"time"
)

// Wednesday, 10:00 local.
var refNow = time.Date(2025, 1, 15, 10, 0, 0, 0, time.Local)

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func TestParseNaturalLanguage(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"yesterday", time.Date(2025, 1, 14, 0, 0, 0, 0, time.Local)},
		{"tomorrow", time.Date(2025, 1, 16, 0, 0, 0, 0, time.Local)},
		{"3 days ago", time.Date(2025, 1, 12, 0, 0, 0, 0, time.Local)},
		{"in 1 week", time.Date(2025, 1, 22, 0, 0, 0, 0, time.Local)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseNaturalLanguage(tt.in, refNow)
			if err != nil {
				t.Fatalf("ParseNaturalLanguage(%q) error: %v", tt.in, err)
			}
			if !sameDay(got, tt.want) {
				t.Errorf("ParseNaturalLanguage(%q) = %v, want day %v", tt.in, got, tt.want.Format(time.DateOnly))
			}
		})
	}
}

func TestParseNaturalLanguageRejects(t *testing.T) {
	for _, in := range []string{"", "   ", "qwerty zzz"} {
		if _, err := ParseNaturalLanguage(in, refNow); err == nil {
			t.Errorf("ParseNaturalLanguage(%q) should fail", in)
		}
	}
}

func TestParseRelativeTime(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		want  time.Time
		exact bool // false compares only the calendar day
	}{
		{"compact days", "-1d", refNow.AddDate(0, 0, -1), true},
		{"compact m is months", "1m", refNow.AddDate(0, 1, 0), true},
		{"date only is local midnight", "2025-02-01", time.Date(2025, 2, 1, 0, 0, 0, 0, time.Local), true},
		{"rfc3339", "2025-03-15T14:30:00Z", time.Date(2025, 3, 15, 14, 30, 0, 0, time.UTC), true},
		{"surrounding space", "  -2w ", refNow.AddDate(0, 0, -14), true},
		{"natural language", "yesterday", time.Date(2025, 1, 14, 0, 0, 0, 0, time.Local), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRelativeTime(tt.in, refNow)
			if err != nil {
				t.Fatalf("ParseRelativeTime(%q) error: %v", tt.in, err)
			}
			if tt.exact && !got.Equal(tt.want) {
				t.Errorf("ParseRelativeTime(%q) = %v, want %v", tt.in, got, tt.want)
			}
			if !tt.exact && !sameDay(got, tt.want) {
				t.Errorf("ParseRelativeTime(%q) = %v, want day %v", tt.in, got, tt.want.Format(time.DateOnly))
			}
		})
	}
}

func TestParseRelativeTimeError(t *testing.T) {
	_, err := ParseRelativeTime("qwerty zzz", refNow)
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "unrecognized time") {
		t.Errorf("error = %q, want it to list the accepted forms", err)
	}

	if _, err := ParseRelativeTime("", refNow); err == nil {
		t.Error("empty input should fail")
	}
}
