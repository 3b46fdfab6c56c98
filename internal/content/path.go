package content

import (
	"errors"
	"strings"
)

// ErrEmptyPath is returned when a dotted path has no segments.
var ErrEmptyPath = errors.New("content path is empty")

// Clone deep-copies an object so editors never mutate the loaded baseline.
func Clone(m map[string]any) Object {
	if m == nil {
		return Object{}
	}
	out := make(Object, len(m))
	for key, value := range m {
		out[key] = cloneValue(value)
	}
	return out
}

func cloneValue(value any) any {
	switch typed := value.(type) {
	case Object:
		return map[string]any(Clone(typed))
	case map[string]any:
		return map[string]any(Clone(typed))
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = item
		}
		return out
	default:
		return typed
	}
}

func splitPath(path string) []string {
	raw := strings.Split(strings.TrimSpace(path), ".")
	segments := make([]string, 0, len(raw))
	for _, segment := range raw {
		segment = strings.TrimSpace(segment)
		if segment != "" {
			segments = append(segments, segment)
		}
	}
	return segments
}

// GetPath reads a value by dotted path such as "mission.title".
func GetPath(m map[string]any, path string) (any, bool) {
	segments := splitPath(path)
	if len(segments) == 0 || m == nil {
		return nil, false
	}
	current := m
	for i, segment := range segments {
		value, ok := current[segment]
		if !ok {
			return nil, false
		}
		if i == len(segments)-1 {
			return value, true
		}
		next, ok := value.(map[string]any)
		if !ok {
			return nil, false
		}
		current = next
	}
	return nil, false
}

// SetPath writes value at a dotted path, creating intermediate objects.
// A non-object intermediate is replaced by an empty object.
func SetPath(m map[string]any, path string, value any) error {
	segments := splitPath(path)
	if len(segments) == 0 {
		return ErrEmptyPath
	}
	current := m
	for _, segment := range segments[:len(segments)-1] {
		next, ok := current[segment].(map[string]any)
		if !ok {
			next = map[string]any{}
			current[segment] = next
		}
		current = next
	}
	current[segments[len(segments)-1]] = value
	return nil
}

// DeletePath removes the value at a dotted path if present.
func DeletePath(m map[string]any, path string) {
	segments := splitPath(path)
	if len(segments) == 0 || m == nil {
		return
	}
	current := m
	for _, segment := range segments[:len(segments)-1] {
		next, ok := current[segment].(map[string]any)
		if !ok {
			return
		}
		current = next
	}
	delete(current, segments[len(segments)-1])
}
