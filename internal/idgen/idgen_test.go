package idgen

import (
	"strings"
	"testing"
	"time"

	"github.com/langadventurellc/trellis-mcp-sub003/internal/validation"
)

func TestSlug(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Implement the Login Form", "implement-login-form"},
		{"  User   auth: OAuth2 & SSO!  ", "user-auth-oauth2-sso"},
		{"The", "the"},
		{"", "untitled"},
		{"!!!", "untitled"},
		{"CON", "con-item"},
		{"Migrate every legacy billing record to the new ledger service", "migrate-every-legacy-billing"},
		{"supercalifragilisticexpialidocious-and-more-words", "supercalifragilisticexpialidocio"},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			got := Slug(tt.title)
			if got != tt.want {
				t.Errorf("Slug(%q) = %q, want %q", tt.title, got, tt.want)
			}
			if !validation.IsValidClean(got) {
				t.Errorf("Slug(%q) = %q is not a valid identifier", tt.title, got)
			}
		})
	}
}

func TestGenerate(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	taken := map[string]bool{"login-form": true, "login-form-2": true}

	got := Generate("Login form", now, func(id string) bool { return taken[id] })
	if got != "login-form-3" {
		t.Errorf("Generate = %q, want login-form-3", got)
	}

	if got := Generate("Fresh", now, func(string) bool { return false }); got != "fresh" {
		t.Errorf("Generate = %q, want fresh", got)
	}
}

func TestGenerateHashFallback(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	title := "Refactor the notification delivery pipeline"
	generate := func() string {
		calls := 0
		// The plain slug and every numeric suffix are taken.
		return Generate(title, now, func(string) bool { calls++; return calls <= maxCollisionSuffix })
	}

	got := generate()
	if !validation.IsValidClean(got) {
		t.Fatalf("Generate = %q is not a valid identifier", got)
	}
	i := strings.LastIndex(got, "-")
	if len(got[i+1:]) != 6 || !strings.HasPrefix(got, "refactor-notification") {
		t.Errorf("Generate = %q, want slug plus 6-char hash", got)
	}
	if again := generate(); again != got {
		t.Errorf("Generate is not deterministic: %q then %q", got, again)
	}
}

func TestEncodeBase36(t *testing.T) {
	tests := []struct {
		data   []byte
		length int
		want   string
	}{
		{[]byte{0}, 3, "000"},
		{[]byte{35}, 2, "0z"},
		{[]byte{1, 0}, 3, "074"},
		{[]byte{0xff, 0xff}, 2, "kf"},
	}
	for _, tt := range tests {
		if got := EncodeBase36(tt.data, tt.length); got != tt.want {
			t.Errorf("EncodeBase36(%v, %d) = %q, want %q", tt.data, tt.length, got, tt.want)
		}
	}
}
