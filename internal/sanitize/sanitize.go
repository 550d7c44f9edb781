// Package sanitize strips sensitive details from text and structured context
// before it leaves the process, whether as an error message, a log line or an
// audit record.
package sanitize

import (
	"fmt"
	"regexp"
	"strings"
)

// Redaction markers.
const (
	RedactedPath       = "[REDACTED_PATH]"
	RedactedConnection = "[REDACTED_CONNECTION]"
	RedactedIP         = "[REDACTED_IP]"
	RedactedPort       = "[REDACTED_PORT]"
	RedactedUUID       = "[REDACTED_UUID]"
	RedactedToken      = "[REDACTED_TOKEN]"
	RedactedSecret     = "[REDACTED_SECRET]"
	RedactedStack      = "[REDACTED_STACK]"
	Redacted           = "[REDACTED]"
)

type rule struct {
	re   *regexp.Regexp
	repl string
}

// Order matters: stack traces and connection strings contain paths and ports,
// so they are collapsed before the narrower rules run.
var rules = []rule{
	{regexp.MustCompile(`(?m)^goroutine \d+ \[[^\]]*\]:[\s\S]*`), RedactedStack},
	{regexp.MustCompile(`Traceback \(most recent call last\):[\s\S]*`), RedactedStack},
	{regexp.MustCompile(`\S+\.(?:go|py|js|ts|java|rb|rs):\d+(?::\d+)?`), RedactedStack},

	{regexp.MustCompile(`(?i)\b[a-z][a-z0-9+.\-]*://[^\s'"<>]+`), RedactedConnection},

	{regexp.MustCompile(`(?i)\b(password|passwd|pwd|secret|token|api[_-]?key|access[_-]?key|auth)(\s*[=:]\s*)[^\s,;'"]+`), "${1}${2}" + RedactedSecret},
	{regexp.MustCompile(`(?i)\b(bearer)\s+[A-Za-z0-9._~+/\-]+=*`), "${1} " + RedactedToken},

	{regexp.MustCompile(`(?i)\b[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\b`), RedactedUUID},

	{regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}(?::\d{1,5})?\b`), RedactedIP},

	{regexp.MustCompile(`(?i)\b[a-z]:\\[^\s'"]*`), RedactedPath},
	// A colon inside a path is kept with it; one followed by a space or the
	// end of the text ends the path ("open /etc/hosts: denied").
	{regexp.MustCompile(`(^|[\s'"(\[=,:])(?:/|~/)[^\s'"()\[\],:/](?:[^\s'"()\[\],:]|:[^\s'"()\[\],:])*`), "${1}" + RedactedPath},

	{regexp.MustCompile(`\b([A-Za-z][\w.\-]*):\d{2,5}\b`), "${1}:" + RedactedPort},

	{regexp.MustCompile(`\b(?:sk|pk|ghp|gho|ghs|xox[abp])[-_][A-Za-z0-9_\-]{10,}`), RedactedToken},
	{regexp.MustCompile(`\b[A-Za-z0-9_+/=]{40,}`), RedactedToken},
}

// Message returns msg with sensitive fragments replaced by redaction markers.
// It is applied to every error message that crosses the store boundary.
func Message(msg string) string {
	if msg == "" {
		return msg
	}
	for _, r := range rules {
		msg = r.re.ReplaceAllString(msg, r.repl)
	}
	return msg
}

var secretKeys = map[string]bool{
	"password":      true,
	"passwd":        true,
	"secret":        true,
	"token":         true,
	"api_key":       true,
	"apikey":        true,
	"access_key":    true,
	"private_key":   true,
	"credential":    true,
	"credentials":   true,
	"authorization": true,
	"auth":          true,
	"session":       true,
	"cookie":        true,
}

var identifierKeys = map[string]bool{
	"id":        true,
	"email":     true,
	"user":      true,
	"username":  true,
	"user_id":   true,
	"userid":    true,
	"object_id": true,
	"parent":    true,
	"parent_id": true,
	"owner":     true,
	"account":   true,
	"actor":     true,
}

// FilterSensitiveInformation returns a sanitized deep copy of ctx. Secret
// values are replaced outright, identifier-like values are obfuscated to
// "xx***xx", and every other string goes through Message.
func FilterSensitiveInformation(ctx map[string]any) map[string]any {
	if ctx == nil {
		return nil
	}
	out := make(map[string]any, len(ctx))
	for k, v := range ctx {
		key := strings.ToLower(k)
		switch {
		case secretKeys[key]:
			out[k] = Redacted
		case identifierKeys[key]:
			if s, ok := v.(string); ok {
				out[k] = Obfuscate(s)
			} else {
				out[k] = filterValue(v)
			}
		default:
			out[k] = filterValue(v)
		}
	}
	return out
}

func filterValue(v any) any {
	switch val := v.(type) {
	case string:
		return Message(val)
	case error:
		return Message(val.Error())
	case map[string]any:
		return FilterSensitiveInformation(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = filterValue(item)
		}
		return out
	case []string:
		out := make([]string, len(val))
		for i, item := range val {
			out[i] = Message(item)
		}
		return out
	case fmt.Stringer:
		return Message(val.String())
	default:
		return v
	}
}

// Obfuscate keeps the first and last two characters of s and masks the rest.
// Values of four characters or fewer are masked entirely.
func Obfuscate(s string) string {
	r := []rune(s)
	if len(r) <= 4 {
		return "***"
	}
	return string(r[:2]) + "***" + string(r[len(r)-2:])
}
