package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/edunet/internal/content"
	"github.com/edunet/internal/service"
)

func TestCollectEditsParsesFieldNames(t *testing.T) {
	timeline, _ := content.Describe("about").Section("timeline")
	form := url.Values{
		"f:title":           {"Our Story"},
		"i:items:abc:year":  {"2001"},
		"i:items:abc":       {"ignored"},
		"view":              {"split"},
		"f:":                {"ignored"},
		"list":              {"items"},
		"i:items:abc:title": {"first", "last"},
	}

	edits := collectEdits(timeline, form)
	if len(edits) != 3 {
		t.Fatalf("expected 3 edits, got %+v", edits)
	}
	byKey := map[string]service.Edit{}
	for _, edit := range edits {
		byKey[edit.Path+"/"+edit.ItemID+"/"+edit.Field] = edit
	}
	if byKey["title//"].Value != "Our Story" {
		t.Fatalf("expected scalar edit, got %+v", byKey)
	}
	if byKey["items/abc/year"].Value != "2001" {
		t.Fatalf("expected item edit, got %+v", byKey)
	}
	if byKey["items/abc/title"].Value != "last" {
		t.Fatalf("expected last posted value to win, got %+v", byKey["items/abc/title"])
	}
}

func TestFieldValueSplitsLines(t *testing.T) {
	cards, _ := content.Describe("contact").Section("info_cards")
	list, _ := cards.List("cards")

	value := fieldValue(list.ItemFields, "lines", "+91 12345\r\n\r\n  info@school.edu  \n")
	lines, ok := value.([]any)
	if !ok || len(lines) != 2 || lines[0] != "+91 12345" || lines[1] != "info@school.edu" {
		t.Fatalf("unexpected lines value %#v", value)
	}
	if fieldValue(list.ItemFields, "title", "Call Us") != "Call Us" {
		t.Fatal("expected plain fields to stay strings")
	}
}

func openWorkspace(t *testing.T, site *testSite, b *browser, slug string) service.Workspace {
	t.Helper()
	rec := b.get("/admin/pages/" + slug)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected editor to load, got %d", rec.Code)
	}
	name, data := site.render.last()
	if name != "editor.html" {
		t.Fatalf("expected editor template, got %s", name)
	}
	workspace, ok := data["workspace"].(service.Workspace)
	if !ok {
		t.Fatalf("expected workspace in editor data, got %#v", data["workspace"])
	}
	return workspace
}

func timelineItems(t *testing.T, workspace service.Workspace) []any {
	t.Helper()
	section, ok := workspace.Section("timeline")
	if !ok {
		t.Fatal("expected timeline section")
	}
	return content.List(section.Content, "items")
}

func itemIDAt(t *testing.T, items []any, index int) string {
	t.Helper()
	item, _ := items[index].(map[string]any)
	id, _ := item[content.ItemIDKey].(string)
	if id == "" {
		t.Fatalf("expected item %d to carry an id, got %#v", index, items[index])
	}
	return id
}

func TestEditorTagsLegacyTimeline(t *testing.T) {
	site := newTestSite(t)
	site.backend.setPage("about", aboutFixture())
	b := site.adminBrowser()

	workspace := openWorkspace(t, site, b, "about")
	items := timelineItems(t, workspace)
	if len(items) != 2 {
		t.Fatalf("expected events normalised into items, got %#v", items)
	}
	itemIDAt(t, items, 0)
	section, _ := workspace.Section("timeline")
	if _, ok := section.Content["events"]; ok {
		t.Fatal("expected legacy events key removed from draft")
	}
	if workspace.Dirty() {
		t.Fatal("expected a fresh workspace to be clean")
	}
}

func TestSaveSectionSendsCleanPayload(t *testing.T) {
	site := newTestSite(t)
	site.backend.setPage("about", aboutFixture())
	b := site.adminBrowser()

	id := itemIDAt(t, timelineItems(t, openWorkspace(t, site, b, "about")), 0)

	rec := b.post("/admin/pages/about/sections/timeline/save", url.Values{
		"f:title":                        {"Milestones"},
		"i:items:" + id + ":title":       {"Established"},
		"i:items:" + id + ":description": {"First classes held"},
	})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect after save, got %d", rec.Code)
	}
	if location := rec.Header().Get("Location"); location != "/admin/pages/about?open=timeline" {
		t.Fatalf("unexpected redirect %s", location)
	}

	puts := site.backend.find(http.MethodPut, "/site-content/sections/12")
	if len(puts) != 1 {
		t.Fatalf("expected one PUT, got %d", len(puts))
	}
	if puts[0].Auth != "Bearer tok-123" {
		t.Fatalf("expected bearer token, got %q", puts[0].Auth)
	}
	if bytes.Contains(puts[0].Body, []byte(`"_id"`)) {
		t.Fatalf("expected _id stripped from payload, got %s", puts[0].Body)
	}

	var payload map[string]any
	if err := json.Unmarshal(puts[0].Body, &payload); err != nil {
		t.Fatalf("decode PUT body: %v", err)
	}
	if len(payload) != 3 || payload["is_active"] != true || payload["order_index"] != float64(1) {
		t.Fatalf("unexpected PUT envelope %v", payload)
	}
	body, _ := payload["content"].(map[string]any)
	if body["title"] != "Milestones" {
		t.Fatalf("expected scalar edit saved, got %v", body)
	}
	if _, ok := body["events"]; ok {
		t.Fatal("expected legacy events not to be written back")
	}
	items, _ := body["items"].([]any)
	first, _ := items[0].(map[string]any)
	if len(items) != 2 || first["title"] != "Established" || first["year"] != "1990" || first["description"] != "First classes held" {
		t.Fatalf("unexpected saved items %v", items)
	}

	workspace := openWorkspace(t, site, b, "about")
	if workspace.Dirty() {
		t.Fatal("expected section clean after save")
	}
	_, data := site.render.last()
	flashes, _ := data["flashes"].([]flashMessage)
	if len(flashes) != 1 || flashes[0].Kind != "success" || flashes[0].Text != "Section saved successfully!" {
		t.Fatalf("expected success flash, got %+v", flashes)
	}
}

func TestSaveSectionUnauthorizedLogsOut(t *testing.T) {
	site := newTestSite(t)
	site.backend.setPage("about", aboutFixture())
	b := site.adminBrowser()
	openWorkspace(t, site, b, "about")

	site.backend.setUnauthorized(true)
	rec := b.post("/admin/pages/about/sections/hero/save", url.Values{"f:title": {"Changed"}})
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != loginPath {
		t.Fatalf("expected redirect to login, got %d %s", rec.Code, rec.Header().Get("Location"))
	}
	if token := responseCookie(rec, adminTokenCookie); token == nil || token.MaxAge >= 0 {
		t.Fatalf("expected adminToken cleared, got %+v", token)
	}
}

func TestSaveAllStopsAtUnauthorized(t *testing.T) {
	site := newTestSite(t)
	site.backend.setPage("about", aboutFixture())
	b := site.adminBrowser()
	openWorkspace(t, site, b, "about")

	site.backend.setUnauthorized(true)
	req := httptest.NewRequest(http.MethodPost, "/admin/pages/about/save", nil)
	req.Header.Set("HX-Request", "true")
	rec := b.do(req)
	if rec.Code != http.StatusNoContent || rec.Header().Get("HX-Redirect") != loginPath {
		t.Fatalf("expected HX-Redirect to login, got %d %q", rec.Code, rec.Header().Get("HX-Redirect"))
	}
}

func TestListItemButtons(t *testing.T) {
	site := newTestSite(t)
	site.backend.setPage("about", aboutFixture())
	b := site.adminBrowser()

	items := timelineItems(t, openWorkspace(t, site, b, "about"))
	first, second := itemIDAt(t, items, 0), itemIDAt(t, items, 1)

	rec := b.post("/admin/pages/about/sections/timeline/items/"+first+"/move?delta=1", url.Values{
		"list":                       {"items"},
		"i:items:" + first + ":year": {"1991"},
	})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect after move, got %d", rec.Code)
	}
	items = timelineItems(t, openWorkspace(t, site, b, "about"))
	if itemIDAt(t, items, 0) != second || itemIDAt(t, items, 1) != first {
		t.Fatalf("expected items swapped, got %#v", items)
	}
	if moved, _ := items[1].(map[string]any); moved["year"] != "1991" {
		t.Fatalf("expected posted edit applied before move, got %#v", moved)
	}

	b.post("/admin/pages/about/sections/timeline/items", url.Values{"list": {"items"}})
	items = timelineItems(t, openWorkspace(t, site, b, "about"))
	if len(items) != 3 {
		t.Fatalf("expected appended item, got %d", len(items))
	}
	added := itemIDAt(t, items, 2)
	if added == first || added == second {
		t.Fatal("expected a fresh id for the new item")
	}

	b.post("/admin/pages/about/sections/timeline/items/"+second+"/remove", url.Values{"list": {"items"}})
	items = timelineItems(t, openWorkspace(t, site, b, "about"))
	if len(items) != 2 || itemIDAt(t, items, 0) != first {
		t.Fatalf("expected item removed, got %#v", items)
	}
}

func TestRemoveUnknownItemFlashesError(t *testing.T) {
	site := newTestSite(t)
	site.backend.setPage("about", aboutFixture())
	b := site.adminBrowser()
	openWorkspace(t, site, b, "about")

	rec := b.post("/admin/pages/about/sections/timeline/items/missing/remove", url.Values{"list": {"items"}})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect, got %d", rec.Code)
	}
	openWorkspace(t, site, b, "about")
	_, data := site.render.last()
	flashes, _ := data["flashes"].([]flashMessage)
	if len(flashes) != 1 || flashes[0].Kind != "error" {
		t.Fatalf("expected error flash, got %+v", flashes)
	}
}

func TestUpdateSectionFeedsPreview(t *testing.T) {
	site := newTestSite(t)
	site.backend.setPage("about", aboutFixture())
	b := site.adminBrowser()
	openWorkspace(t, site, b, "about")

	form := url.Values{"f:title": {"Draft title"}}
	req := httptest.NewRequest(http.MethodPost, "/admin/pages/about/sections/hero", bytes.NewBufferString(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("HX-Request", "true")
	if rec := b.do(req); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for htmx edit, got %d", rec.Code)
	}
	if len(site.backend.find(http.MethodPut, "/site-content/sections/11")) != 0 {
		t.Fatal("expected edits to stay local until saved")
	}

	rec := b.get("/admin/pages/about/preview")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected preview, got %d", rec.Code)
	}
	name, data := site.render.last()
	if name != "preview.html" {
		t.Fatalf("expected preview template, got %s", name)
	}
	page, _ := data["data"].(content.PageData)
	if page["hero"]["title"] != "Draft title" {
		t.Fatalf("expected draft content in preview, got %v", page["hero"])
	}
	if content.HasItemIDs(page["timeline"]) {
		t.Fatal("expected preview without _id keys")
	}
	if page.Has("mission_vision") {
		t.Fatal("expected inactive section hidden from preview")
	}
}

func TestToggleAndDiscard(t *testing.T) {
	site := newTestSite(t)
	site.backend.setPage("about", aboutFixture())
	b := site.adminBrowser()
	openWorkspace(t, site, b, "about")

	b.post("/admin/pages/about/sections/mission_vision/active", url.Values{"active": {"true"}})
	workspace := openWorkspace(t, site, b, "about")
	if section, _ := workspace.Section("mission_vision"); !section.IsActive || !section.Dirty {
		t.Fatalf("expected section activated as a draft, got %+v", section)
	}

	b.post("/admin/pages/about/discard", nil)
	workspace = openWorkspace(t, site, b, "about")
	if section, _ := workspace.Section("mission_vision"); section.IsActive || workspace.Dirty() {
		t.Fatalf("expected discard to restore backend state, got %+v", section)
	}
}

func TestSeedEmptyPage(t *testing.T) {
	site := newTestSite(t)
	b := site.adminBrowser()

	if workspace := openWorkspace(t, site, b, "facilities"); !workspace.Empty() {
		t.Fatal("expected empty workspace")
	}
	rec := b.post("/admin/pages/facilities/seed", nil)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect after seed, got %d", rec.Code)
	}
	if len(site.backend.find(http.MethodPost, "/site-content/seed/facilities")) != 1 {
		t.Fatal("expected seed request")
	}
	if workspace := openWorkspace(t, site, b, "facilities"); workspace.Empty() {
		t.Fatal("expected seeded sections")
	}
}

func TestViewMode(t *testing.T) {
	cases := map[string]string{"edit": "edit", " preview ": "preview", "": "split", "bogus": "split"}
	for raw, want := range cases {
		if got := viewMode(raw); got != want {
			t.Fatalf("viewMode(%q) = %q, want %q", raw, got, want)
		}
	}
}
