package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/langadventurellc/trellis-mcp-sub003/internal/audit"
	"github.com/langadventurellc/trellis-mcp-sub003/internal/sanitize"
	"github.com/langadventurellc/trellis-mcp-sub003/internal/types"
)

// MaxReferenceLength bounds any identifier-like value before it is trusted.
const MaxReferenceLength = 255

// Violation is one security finding.
type Violation struct {
	Field   string `json:"field"`
	Pattern string `json:"pattern"`
	Message string `json:"message"`
}

// SecurityError carries every violation found in a payload.
type SecurityError struct {
	Violations []Violation
}

func (e *SecurityError) Error() string {
	if len(e.Violations) == 1 {
		return sanitize.Message("security validation failed: " + e.Violations[0].Message)
	}
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.Message
	}
	return sanitize.Message(fmt.Sprintf("security validation failed (%d violations): %s", len(msgs), strings.Join(msgs, "; ")))
}

func (e *SecurityError) Unwrap() error { return types.ErrSecurityViolation }

type suspiciousPattern struct {
	name   string
	reason string
	match  func(value, lower string) bool
}

func wholeValue(token string) func(string, string) bool {
	return func(_, lower string) bool { return lower == token }
}

// Each entry is checked independently. Token entries only match the whole
// value, so ordinary ids such as "feature-123" never trip them.
var suspiciousPatterns = []suspiciousPattern{
	{"..", "path traversal", func(v, _ string) bool { return strings.Contains(v, "..") }},
	{"leading /", "absolute path", func(v, _ string) bool { return strings.HasPrefix(v, "/") }},
	{`\`, "backslash path separator", func(v, _ string) bool { return strings.Contains(v, `\`) }},
	{"null", "sentinel value", wholeValue("null")},
	{"none", "sentinel value", wholeValue("none")},
	{"undefined", "sentinel value", wholeValue("undefined")},
	{"{}", "empty object literal", wholeValue("{}")},
	{"[]", "empty array literal", wholeValue("[]")},
	{"true", "boolean literal", wholeValue("true")},
	{"false", "boolean literal", wholeValue("false")},
	{"0", "bare numeric literal", wholeValue("0")},
	{"1", "bare numeric literal", wholeValue("1")},
	// Blank values made of tabs or newlines are reported as control
	// characters instead, so each sole value yields one violation.
	{"whitespace-only", "blank value", func(v, _ string) bool {
		return v != "" && strings.TrimSpace(v) == "" && !hasControlChars(v)
	}},
}

// PrivilegedFields may never be set through an object payload.
var PrivilegedFields = []string{
	"admin",
	"root_access",
	"bypass_validation",
	"skip_checks",
	"superuser",
	"elevated",
	"privileged",
	"system_admin",
	"ignore_constraints",
}

// ValidateIdentifierSecurity checks a single untrusted reference and returns
// every violation found. An empty value is allowed (it means "no parent").
// Violations are always audited.
func ValidateIdentifierSecurity(field, value string) []Violation {
	violations := identifierViolations(field, value)
	record(violations)
	return violations
}

func identifierViolations(field, value string) []Violation {
	if value == "" {
		return nil
	}
	var out []Violation
	lower := strings.ToLower(value)
	for _, p := range suspiciousPatterns {
		if p.match(value, lower) {
			out = append(out, Violation{
				Field:   field,
				Pattern: p.name,
				Message: fmt.Sprintf("%s contains suspicious pattern %q (%s)", field, p.name, p.reason),
			})
		}
	}
	if len(value) > MaxReferenceLength {
		out = append(out, Violation{
			Field:   field,
			Pattern: "length",
			Message: fmt.Sprintf("%s exceeds %d characters", field, MaxReferenceLength),
		})
	}
	if hasControlChars(value) {
		out = append(out, Violation{
			Field:   field,
			Pattern: "control characters",
			Message: fmt.Sprintf("%s contains control characters", field),
		})
	}
	return out
}

func hasControlChars(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] == 0x7f {
			return true
		}
	}
	return false
}

// ValidatePrivilegedFields reports one violation per deny-listed key present
// in payload, in sorted key order.
func ValidatePrivilegedFields(payload map[string]any) []Violation {
	violations := privilegedViolations(payload)
	record(violations)
	return violations
}

func privilegedViolations(payload map[string]any) []Violation {
	var keys []string
	for _, name := range PrivilegedFields {
		if _, ok := payload[name]; ok {
			keys = append(keys, name)
		}
	}
	sort.Strings(keys)
	out := make([]Violation, 0, len(keys))
	for _, k := range keys {
		out = append(out, Violation{
			Field:   k,
			Pattern: "privileged field",
			Message: fmt.Sprintf("field %q is not allowed", k),
		})
	}
	return out
}

// ValidateObjectSecurity checks the parent, every prerequisite and the keys of
// payload. All violations are collected before returning.
func ValidateObjectSecurity(payload map[string]any) error {
	var violations []Violation

	if parent, ok := payload["parent"].(string); ok {
		violations = append(violations, identifierViolations("parent", parent)...)
	}
	for i, prereq := range prerequisitesOf(payload["prerequisites"]) {
		violations = append(violations, identifierViolations(fmt.Sprintf("prerequisites[%d]", i), prereq)...)
	}
	violations = append(violations, privilegedViolations(payload)...)

	if len(violations) == 0 {
		return nil
	}
	record(violations)
	return &SecurityError{Violations: violations}
}

// ObjectPayload flattens obj and any extra caller-supplied fields into the map
// shape ValidateObjectSecurity inspects. Extra keys never override obj fields.
func ObjectPayload(obj *types.Object, extra map[string]any) map[string]any {
	payload := make(map[string]any, len(extra)+3)
	for k, v := range extra {
		payload[k] = v
	}
	payload["id"] = obj.ID
	payload["parent"] = obj.Parent
	payload["prerequisites"] = obj.Prerequisites
	return payload
}

func prerequisitesOf(v any) []string {
	switch p := v.(type) {
	case []string:
		return p
	case []any:
		out := make([]string, 0, len(p))
		for _, item := range p {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return []string{p}
	}
	return nil
}

func record(violations []Violation) {
	for _, v := range violations {
		_, _ = audit.Append(&audit.Entry{
			Kind:    audit.KindSecurityViolation,
			Field:   v.Field,
			Pattern: v.Pattern,
			Message: v.Message,
		})
	}
}
