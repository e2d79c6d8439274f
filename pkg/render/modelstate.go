package render

import (
	"sort"
	"strings"
)

// ModelState holds validation messages keyed by dotted field path. The empty
// key carries form-level messages.
type ModelState map[string][]string

// Add appends message under key, normalising the key and skipping blank or
// duplicate messages.
func (m ModelState) Add(key, message string) {
	key = FieldKey(key)
	m[key] = normalizeMessages(append(m[key], message))
	if len(m[key]) == 0 {
		delete(m, key)
	}
}

// Field returns the messages recorded for key.
func (m ModelState) Field(key string) []string {
	return m[FieldKey(key)]
}

// IsValid reports whether no messages were recorded.
func (m ModelState) IsValid() bool {
	return len(m) == 0
}

// All returns every message: form-level messages first, then field messages
// ordered by key.
func (m ModelState) All() []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for key := range m {
		if key != "" {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	out := append([]string(nil), m[""]...)
	for _, key := range keys {
		out = append(out, m[key]...)
	}
	return out
}

// MapErrorPayload normalises error payloads keyed by JSON pointers, dotted
// paths or request-wrapped paths ("/body/owner/email", "$.body.tags[0]")
// into a ModelState. Form-level keys such as "non_field_errors" map to the
// empty key.
func MapErrorPayload(payload map[string][]string) ModelState {
	state := ModelState{}
	for raw, messages := range payload {
		key := FieldKey(raw)
		for _, message := range messages {
			state.Add(key, message)
		}
	}
	return state
}

// FieldKey normalises a field path to its dotted form.
func FieldKey(raw string) string {
	if isFormLevelKey(raw) {
		return ""
	}
	return strings.Join(dropWrapperSegments(parsePathSegments(raw)), ".")
}

func normalizeMessages(messages []string) []string {
	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))
	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func parsePathSegments(path string) []string {
	clean := strings.TrimLeft(strings.TrimSpace(path), "#$/.")
	clean = strings.NewReplacer("[", ".", "]", "").Replace(clean)

	parts := strings.FieldsFunc(clean, func(r rune) bool {
		return r == '.' || r == '/'
	})
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		segment := strings.TrimSpace(part)
		if segment == "" {
			continue
		}
		segment = strings.ReplaceAll(segment, "~1", "/")
		segment = strings.ReplaceAll(segment, "~0", "~")
		out = append(out, segment)
	}
	return out
}

func dropWrapperSegments(segments []string) []string {
	for len(segments) > 1 {
		switch strings.ToLower(segments[0]) {
		case "body", "request", "payload", "data", "attributes":
			segments = segments[1:]
			continue
		}
		break
	}
	return segments
}

func isFormLevelKey(key string) bool {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "", ".", "/", "#", "$", "form", "__all__", "non_field_errors", "non-field-errors":
		return true
	default:
		return false
	}
}
