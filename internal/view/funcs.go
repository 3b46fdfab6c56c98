package view

import (
	"bytes"
	"fmt"
	"html/template"
	"strconv"
	"strings"

	"github.com/edunet/internal/content"
	"github.com/edunet/internal/service"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	markdownEngine = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify),
		goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
	)
	sanitizer = bluemonday.UGCPolicy()
)

// FuncMap 返回公开页与后台模板共用的模板函数。
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"str":       Str,
		"obj":       Obj,
		"list":      List,
		"strs":      Strings,
		"dig":       Dig,
		"digList":   DigList,
		"paths":     content.ExpandPath,
		"itemID":    ItemID,
		"markdown":  Markdown,
		"icon":      IconSVG,
		"icons":     IconNames,
		"dict":      Dict,
		"add":       func(a, b int) int { return a + b },
		"sub":       func(a, b int) int { return a - b },
		"lines":     Lines,
		"fieldText": FieldText,
		"split":     strings.Split,
		"date":      service.FormatInboxDate,
	}
}

// AsMap accepts content.Object, map[string]any and nil.
func AsMap(v any) map[string]any {
	switch typed := v.(type) {
	case content.Object:
		return typed
	case map[string]any:
		return typed
	default:
		return nil
	}
}

// Str reads key from a section object; fallback is used for missing or blank values.
func Str(v any, key string, fallback ...string) string {
	def := ""
	if len(fallback) > 0 {
		def = fallback[0]
	}
	return content.Str(AsMap(v), key, def)
}

// Obj reads a nested object.
func Obj(v any, key string) map[string]any {
	return content.Map(AsMap(v), key)
}

// List reads the first array among keys.
func List(v any, keys ...string) []any {
	return content.List(AsMap(v), keys...)
}

// Strings reads a scalar list such as curriculum features or contact card lines.
func Strings(v any, keys ...string) []string {
	return content.Strings(List(v, keys...))
}

// Dig reads a dotted path as display text; used to fill editor inputs.
func Dig(v any, path string) string {
	value, ok := content.GetPath(AsMap(v), path)
	if !ok || value == nil {
		return ""
	}
	switch typed := value.(type) {
	case string:
		return typed
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case map[string]any, []any:
		return ""
	default:
		return fmt.Sprint(typed)
	}
}

// DigList reads the array at a dotted path.
func DigList(v any, path string) []any {
	value, ok := content.GetPath(AsMap(v), path)
	if !ok {
		return nil
	}
	items, _ := value.([]any)
	return items
}

// ItemID returns the synthetic id of a list element.
func ItemID(item any) string {
	id, _ := AsMap(item)[content.ItemIDKey].(string)
	return id
}

// Lines joins a scalar list for a textarea, one entry per line.
func Lines(v any, key string) string {
	return strings.Join(Strings(v, key), "\n")
}

// FieldText returns the editor input value for field; FieldLines lists become one line per entry.
func FieldText(v any, field content.Field) string {
	if field.Kind == content.FieldLines {
		return Lines(v, field.Path)
	}
	return Dig(v, field.Path)
}

// Markdown 将 Markdown 渲染为经过清洗的 HTML。
func Markdown(source string) template.HTML {
	source = strings.TrimSpace(source)
	if source == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := markdownEngine.Convert([]byte(source), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(source))
	}
	return template.HTML(sanitizer.SanitizeBytes(buf.Bytes()))
}

// Dict builds a map from alternating key/value arguments so sub-templates can take several values.
func Dict(pairs ...any) (map[string]any, error) {
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("dict expects key/value pairs, got %d arguments", len(pairs))
	}
	out := make(map[string]any, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict key %v is not a string", pairs[i])
		}
		out[key] = pairs[i+1]
	}
	return out, nil
}
