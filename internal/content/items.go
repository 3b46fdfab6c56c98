package content

import (
	"errors"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// ItemIDKey is the synthetic key that gives list items a stable form identity.
// It only lives in editor drafts and is stripped before anything is persisted.
const ItemIDKey = "_id"

var (
	ErrListNotFound = errors.New("list field not found")
	ErrItemNotFound = errors.New("list item not found")
)

// NewItemID returns a fresh synthetic item id.
func NewItemID() string {
	return uuid.NewString()
}

type listSlot struct {
	parent map[string]any
	key    string
}

// resolveSlots expands a list path into the objects holding the array.
// A "*" segment walks every object-valued key of its parent.
func resolveSlots(m map[string]any, path string) []listSlot {
	segments := splitPath(path)
	if len(segments) == 0 || m == nil {
		return nil
	}

	parents := []map[string]any{m}
	for _, segment := range segments[:len(segments)-1] {
		next := make([]map[string]any, 0, len(parents))
		for _, parent := range parents {
			if segment == "*" {
				keys := make([]string, 0, len(parent))
				for key := range parent {
					keys = append(keys, key)
				}
				sort.Strings(keys)
				for _, key := range keys {
					if child, ok := parent[key].(map[string]any); ok {
						next = append(next, child)
					}
				}
				continue
			}
			if child, ok := parent[segment].(map[string]any); ok {
				next = append(next, child)
			}
		}
		parents = next
	}

	last := segments[len(segments)-1]
	slots := make([]listSlot, 0, len(parents))
	for _, parent := range parents {
		slots = append(slots, listSlot{parent: parent, key: last})
	}
	return slots
}

// MatchPath reports whether a concrete path such as "curricula.primary.features"
// matches a list pattern such as "curricula.*.features".
func MatchPath(pattern, path string) bool {
	want := splitPath(pattern)
	got := splitPath(path)
	if len(want) != len(got) || len(want) == 0 {
		return false
	}
	for i := range want {
		if want[i] != "*" && want[i] != got[i] {
			return false
		}
	}
	return true
}

// ExpandPath lists the concrete paths a list pattern covers in m. Patterns
// without "*" are returned as-is even when the list does not exist yet.
func ExpandPath(m map[string]any, pattern string) []string {
	segments := splitPath(pattern)
	if len(segments) == 0 {
		return nil
	}
	if !strings.Contains(pattern, "*") {
		return []string{strings.Join(segments, ".")}
	}

	type node struct {
		obj    map[string]any
		prefix []string
	}
	nodes := []node{{obj: m}}
	for _, segment := range segments[:len(segments)-1] {
		next := make([]node, 0, len(nodes))
		for _, n := range nodes {
			if segment != "*" {
				if child, ok := n.obj[segment].(map[string]any); ok {
					next = append(next, node{obj: child, prefix: appendSegment(n.prefix, segment)})
				}
				continue
			}
			keys := make([]string, 0, len(n.obj))
			for key := range n.obj {
				keys = append(keys, key)
			}
			sort.Strings(keys)
			for _, key := range keys {
				if child, ok := n.obj[key].(map[string]any); ok {
					next = append(next, node{obj: child, prefix: appendSegment(n.prefix, key)})
				}
			}
		}
		nodes = next
	}

	last := segments[len(segments)-1]
	paths := make([]string, 0, len(nodes))
	for _, n := range nodes {
		paths = append(paths, strings.Join(appendSegment(n.prefix, last), "."))
	}
	return paths
}

func appendSegment(prefix []string, segment string) []string {
	out := make([]string, len(prefix), len(prefix)+1)
	copy(out, prefix)
	return append(out, segment)
}

// NormalizeLegacy moves legacy alias arrays (timeline "events") to the
// current list name and drops the alias keys.
func NormalizeLegacy(m map[string]any, lists []ListDef) {
	for _, list := range lists {
		if len(list.Aliases) == 0 {
			continue
		}
		for _, slot := range resolveSlots(m, list.Path) {
			if _, ok := slot.parent[slot.key].([]any); !ok {
				for _, alias := range list.Aliases {
					if legacy, ok := slot.parent[alias].([]any); ok {
						slot.parent[slot.key] = legacy
						break
					}
				}
			}
			if _, ok := slot.parent[slot.key].([]any); ok {
				for _, alias := range list.Aliases {
					delete(slot.parent, alias)
				}
			}
		}
	}
}

// TagItems returns a copy of m with legacy aliases normalised and every list
// element carrying an _id. String lists become {_id, text} objects.
func TagItems(m map[string]any, lists []ListDef) Object {
	out := Clone(m)
	NormalizeLegacy(out, lists)

	for _, list := range lists {
		for _, slot := range resolveSlots(out, list.Path) {
			items, ok := slot.parent[slot.key].([]any)
			if !ok {
				continue
			}
			for i, item := range items {
				items[i] = tagItem(item, list.Strings)
			}
		}
	}
	return out
}

func tagItem(item any, stringList bool) any {
	switch typed := item.(type) {
	case map[string]any:
		if id, ok := typed[ItemIDKey].(string); !ok || strings.TrimSpace(id) == "" {
			typed[ItemIDKey] = NewItemID()
		}
		return typed
	case nil:
		if stringList {
			return map[string]any{ItemIDKey: NewItemID(), "text": ""}
		}
		return typed
	default:
		if stringList {
			return map[string]any{ItemIDKey: NewItemID(), "text": scalarString(typed)}
		}
		return typed
	}
}

// StripItems returns a copy of m ready for persistence: string lists are
// collapsed back to plain strings and no _id key is left anywhere.
func StripItems(m map[string]any, lists []ListDef) Object {
	out := Clone(m)

	for _, list := range lists {
		if !list.Strings {
			continue
		}
		for _, slot := range resolveSlots(out, list.Path) {
			items, ok := slot.parent[slot.key].([]any)
			if !ok {
				continue
			}
			for i, item := range items {
				if object, ok := item.(map[string]any); ok {
					items[i] = Str(object, "text", "")
				}
			}
		}
	}

	stripIDs(out)
	return out
}

func stripIDs(value any) {
	switch typed := value.(type) {
	case Object:
		stripIDs(map[string]any(typed))
	case map[string]any:
		delete(typed, ItemIDKey)
		for _, nested := range typed {
			stripIDs(nested)
		}
	case []any:
		for _, nested := range typed {
			stripIDs(nested)
		}
	}
}

// HasItemIDs reports whether any _id key survives in the tree.
func HasItemIDs(value any) bool {
	switch typed := value.(type) {
	case Object:
		return HasItemIDs(map[string]any(typed))
	case map[string]any:
		if _, ok := typed[ItemIDKey]; ok {
			return true
		}
		for _, nested := range typed {
			if HasItemIDs(nested) {
				return true
			}
		}
	case []any:
		for _, nested := range typed {
			if HasItemIDs(nested) {
				return true
			}
		}
	}
	return false
}

func listAt(m map[string]any, path string) ([]any, listSlot, error) {
	slots := resolveSlots(m, path)
	if len(slots) != 1 {
		return nil, listSlot{}, ErrListNotFound
	}
	slot := slots[0]
	raw, exists := slot.parent[slot.key]
	if !exists || raw == nil {
		return []any{}, slot, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, listSlot{}, ErrListNotFound
	}
	return items, slot, nil
}

func indexOfItem(items []any, id string) int {
	for i, item := range items {
		if object, ok := item.(map[string]any); ok {
			if current, _ := object[ItemIDKey].(string); current == id {
				return i
			}
		}
	}
	return -1
}

// UpdateItemField patches one field of the item identified by id.
func UpdateItemField(m map[string]any, path, id, field string, value any) error {
	items, _, err := listAt(m, path)
	if err != nil {
		return err
	}
	index := indexOfItem(items, id)
	if index < 0 {
		return ErrItemNotFound
	}
	item := items[index].(map[string]any)
	return SetPath(item, field, value)
}

// AppendItem adds a copy of template with a fresh _id and returns that id.
func AppendItem(m map[string]any, path string, template map[string]any) (string, error) {
	items, slot, err := listAt(m, path)
	if err != nil {
		return "", err
	}
	item := map[string]any(Clone(template))
	id := NewItemID()
	item[ItemIDKey] = id
	slot.parent[slot.key] = append(items, item)
	return id, nil
}

// RemoveItem deletes the item identified by id.
func RemoveItem(m map[string]any, path, id string) error {
	items, slot, err := listAt(m, path)
	if err != nil {
		return err
	}
	index := indexOfItem(items, id)
	if index < 0 {
		return ErrItemNotFound
	}
	remaining := make([]any, 0, len(items)-1)
	remaining = append(remaining, items[:index]...)
	remaining = append(remaining, items[index+1:]...)
	slot.parent[slot.key] = remaining
	return nil
}

// MoveItem shifts the item by delta positions, clamped to the list bounds.
func MoveItem(m map[string]any, path, id string, delta int) error {
	items, _, err := listAt(m, path)
	if err != nil {
		return err
	}
	index := indexOfItem(items, id)
	if index < 0 {
		return ErrItemNotFound
	}
	target := index + delta
	if target < 0 {
		target = 0
	}
	if target > len(items)-1 {
		target = len(items) - 1
	}
	if target == index {
		return nil
	}
	item := items[index]
	if target < index {
		copy(items[target+1:index+1], items[target:index])
	} else {
		copy(items[index:target], items[index+1:target+1])
	}
	items[target] = item
	return nil
}
