package engine

import "strings"

// DefaultTruncateLimit bounds exception messages persisted to the audit log.
const DefaultTruncateLimit = 1000

// Sanitizer strips configured context paths before context maps reach logs or
// audit storage, and truncates exception messages to a storable length.
// Exclusion rules are dotted paths; a "*" segment matches any key at that
// level ("metadata.payment.token", "*.password").
type Sanitizer struct {
	rules [][]string
	limit int
}

// NewSanitizer builds a sanitizer from dotted exclusion rules. A non-positive
// limit falls back to DefaultTruncateLimit.
func NewSanitizer(rules []string, limit int) *Sanitizer {
	if limit <= 0 {
		limit = DefaultTruncateLimit
	}
	s := &Sanitizer{limit: limit}
	for _, rule := range rules {
		rule = strings.TrimSpace(rule)
		if rule == "" {
			continue
		}
		s.rules = append(s.rules, strings.Split(rule, "."))
	}
	return s
}

// Sanitize returns a deep copy of m with every excluded path removed. The
// input map is never mutated; callers hand the copy to logging and storage.
func (s *Sanitizer) Sanitize(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := deepCopy(m)
	for _, rule := range s.rules {
		removePath(out, rule)
	}
	return out
}

// Truncate caps text at the configured rune limit, appending an ellipsis when
// anything was cut.
func (s *Sanitizer) Truncate(text string) string {
	runes := []rune(text)
	if len(runes) <= s.limit {
		return text
	}
	return string(runes[:s.limit]) + "…"
}

func deepCopy(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if nested, ok := v.(map[string]any); ok {
			out[k] = deepCopy(nested)
			continue
		}
		out[k] = v
	}
	return out
}

func removePath(m map[string]any, segments []string) {
	if len(segments) == 0 {
		return
	}
	head, rest := segments[0], segments[1:]
	if head == "*" {
		for k, v := range m {
			if len(rest) == 0 {
				delete(m, k)
				continue
			}
			if nested, ok := v.(map[string]any); ok {
				removePath(nested, rest)
			}
		}
		return
	}
	if len(rest) == 0 {
		delete(m, head)
		return
	}
	if nested, ok := m[head].(map[string]any); ok {
		removePath(nested, rest)
	}
}
