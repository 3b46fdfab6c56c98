package view

import (
	"bytes"
	"html/template"
	"strings"
	"testing"

	"github.com/edunet/internal/content"
)

func TestMarkdownSanitizes(t *testing.T) {
	out := string(Markdown("**Bold** <script>alert(1)</script>"))
	if !strings.Contains(out, "<strong>Bold</strong>") {
		t.Fatalf("expected rendered markdown, got %q", out)
	}
	if strings.Contains(out, "<script>") {
		t.Fatalf("expected script removed, got %q", out)
	}
	if Markdown("   ") != "" {
		t.Fatal("expected blank markdown to render empty")
	}
}

func TestIconFallback(t *testing.T) {
	if !strings.Contains(string(IconSVG("Phone")), "<svg") {
		t.Fatal("expected svg markup")
	}
	if IconSVG("Unknown", "Microscope") != IconSVG("Microscope") {
		t.Fatal("expected explicit fallback icon")
	}
	if IconSVG("Unknown") != IconSVG(fallbackIcon) {
		t.Fatal("expected default fallback icon")
	}
	if len(IconNames()) == 0 || !HasIcon("BookOpen") {
		t.Fatal("expected icon names")
	}
}

func TestAccessorsAcceptObjects(t *testing.T) {
	section := content.Object{
		"title": "History",
		"events": []any{
			map[string]any{"_id": "a", "year": 1990.0},
		},
		"mission": map[string]any{"title": "Mission"},
		"lines":   []any{"Line 1", "Line 2"},
	}
	if Str(section, "subtitle", "fallback") != "fallback" {
		t.Fatal("expected fallback for missing key")
	}
	items := List(section, "items", "events")
	if len(items) != 1 || ItemID(items[0]) != "a" {
		t.Fatalf("expected legacy list fallback, got %v", items)
	}
	if Dig(items[0], "year") != "1990" {
		t.Fatalf("expected numeric year formatted, got %q", Dig(items[0], "year"))
	}
	if Dig(section, "mission.title") != "Mission" || Dig(section, "mission") != "" {
		t.Fatal("unexpected dig result")
	}
	if Lines(section, "lines") != "Line 1\nLine 2" {
		t.Fatalf("unexpected lines %q", Lines(section, "lines"))
	}
}

func TestFuncMapInTemplate(t *testing.T) {
	tmpl := template.Must(template.New("t").Funcs(FuncMap()).Parse(
		`{{with dict "s" .}}{{str .s "title"}}{{range list .s "items" "events"}}|{{str . "year"}}{{end}}{{end}}`,
	))
	var buf bytes.Buffer
	data := map[string]any{"title": "T", "events": []any{map[string]any{"year": "2001"}}}
	if err := tmpl.Execute(&buf, data); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if buf.String() != "T|2001" {
		t.Fatalf("unexpected output %q", buf.String())
	}
	if _, err := Dict("odd"); err == nil {
		t.Fatal("expected dict error for odd arguments")
	}
}
