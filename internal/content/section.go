package content

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Object 是一段 section 的自由格式 JSON 内容。
type Object map[string]any

// UnmarshalJSON 兼容后端把 content 存成 JSON 字符串的旧数据，解析失败时回退为空对象。
func (o *Object) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*o = Object{}
		return nil
	}

	if trimmed[0] == '"' {
		var raw string
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			*o = Object{}
			return nil
		}
		trimmed = []byte(raw)
	}

	var decoded map[string]any
	if err := json.Unmarshal(trimmed, &decoded); err != nil || decoded == nil {
		*o = Object{}
		return nil
	}
	*o = Object(decoded)
	return nil
}

// Section mirrors one row of site page content as returned by the API.
type Section struct {
	ID         uint   `json:"id"`
	PageSlug   string `json:"page_slug"`
	SectionKey string `json:"section_key"`
	Content    Object `json:"content"`
	OrderIndex int    `json:"order_index"`
	IsActive   bool   `json:"is_active"`
	CreatedAt  string `json:"created_at,omitempty"`
	UpdatedAt  string `json:"updated_at,omitempty"`
}

// SectionUpdate is the PUT body accepted by the sections endpoint.
type SectionUpdate struct {
	Content    Object `json:"content"`
	OrderIndex int    `json:"order_index"`
	IsActive   bool   `json:"is_active"`
}

// PageSummary is one entry of the page listing.
type PageSummary struct {
	PageSlug     string `json:"page_slug"`
	SectionCount int    `json:"section_count"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999-07:00",
	"2006-01-02 15:04:05",
}

// UpdatedTime 解析 updated_at，后端可能返回带或不带时区的时间串。
func (s Section) UpdatedTime() (time.Time, bool) {
	raw := strings.TrimSpace(s.UpdatedAt)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

// PageData is page content keyed by section_key.
type PageData map[string]Object

// Keyed converts the section array into a map keyed by section_key.
// Later sections overwrite earlier ones sharing a key.
func Keyed(sections []Section) PageData {
	data := make(PageData, len(sections))
	for _, section := range sections {
		key := strings.TrimSpace(section.SectionKey)
		if key == "" {
			continue
		}
		content := section.Content
		if content == nil {
			content = Object{}
		}
		data[key] = content
	}
	return data
}

// Has reports whether the page carries a section with the given key.
func (p PageData) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// SortSections orders sections by order_index then id, matching the API ordering.
func SortSections(sections []Section) {
	sort.SliceStable(sections, func(i, j int) bool {
		if sections[i].OrderIndex != sections[j].OrderIndex {
			return sections[i].OrderIndex < sections[j].OrderIndex
		}
		return sections[i].ID < sections[j].ID
	})
}

// Str reads a scalar field as a string, returning fallback when it is missing or blank.
func Str(m map[string]any, key, fallback string) string {
	if m == nil {
		return fallback
	}
	value, ok := m[key]
	if !ok || value == nil {
		return fallback
	}
	text := scalarString(value)
	if strings.TrimSpace(text) == "" {
		return fallback
	}
	return text
}

// Map reads a nested object field; a missing or non-object field yields nil.
func Map(m map[string]any, key string) map[string]any {
	if m == nil {
		return nil
	}
	nested, _ := m[key].(map[string]any)
	return nested
}

// List returns the first array found among keys, so legacy aliases can be listed after the current name.
func List(m map[string]any, keys ...string) []any {
	if m == nil {
		return nil
	}
	for _, key := range keys {
		if items, ok := m[key].([]any); ok {
			return items
		}
	}
	return nil
}

// Strings flattens a list of scalars into strings, skipping nested objects.
func Strings(values []any) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		switch typed := value.(type) {
		case map[string]any:
			if text, ok := typed["text"]; ok {
				out = append(out, scalarString(text))
			}
		case nil:
		default:
			out = append(out, scalarString(typed))
		}
	}
	return out
}

func scalarString(value any) string {
	switch typed := value.(type) {
	case string:
		return typed
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case int:
		return strconv.Itoa(typed)
	case bool:
		return strconv.FormatBool(typed)
	case json.Number:
		return typed.String()
	default:
		return fmt.Sprint(typed)
	}
}
