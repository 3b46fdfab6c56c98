package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/edunet/internal/config"
	"github.com/edunet/internal/content"
	"github.com/edunet/internal/db"
	"github.com/edunet/internal/handler"
	"github.com/edunet/internal/router"
	"github.com/edunet/internal/sitecontent"
	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// siteBackend 模拟 /api/v1 的内容、学生和表单接口，PUT 会真实修改数据。
type siteBackend struct {
	mu       sync.Mutex
	sections map[string][]content.Section
	students []sitecontent.Student
	puts     []json.RawMessage
	contacts []map[string]any
	revoked  bool
}

func (b *siteBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	path := strings.TrimPrefix(r.URL.Path, "/api/v1")

	b.mu.Lock()
	defer b.mu.Unlock()

	reply := func(status int, payload any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(payload)
	}

	submission := r.Method == http.MethodPost && (path == "/contacts/" || path == "/applications/")
	admin := path != "/login/access-token" && !strings.HasPrefix(path, "/site-content/public/") && !submission
	if admin && (b.revoked || r.Header.Get("Authorization") != "Bearer e2e-token") {
		reply(http.StatusUnauthorized, map[string]string{"detail": "Could not validate credentials"})
		return
	}

	switch {
	case path == "/login/access-token":
		form, _ := url.ParseQuery(string(body))
		if form.Get("username") != "principal" || form.Get("password") != "e2e-secret" {
			reply(http.StatusUnauthorized, map[string]string{"detail": "Incorrect username or password"})
			return
		}
		reply(http.StatusOK, sitecontent.LoginResult{AccessToken: "e2e-token", TokenType: "bearer", Role: "admin", FullName: "Principal"})
	case path == "/site-content/pages":
		summaries := []content.PageSummary{}
		for slug, sections := range b.sections {
			summaries = append(summaries, content.PageSummary{PageSlug: slug, SectionCount: len(sections)})
		}
		reply(http.StatusOK, summaries)
	case strings.HasPrefix(path, "/site-content/pages/"):
		reply(http.StatusOK, b.sections[strings.TrimPrefix(path, "/site-content/pages/")])
	case strings.HasPrefix(path, "/site-content/public/"):
		active := []content.Section{}
		for _, section := range b.sections[strings.TrimPrefix(path, "/site-content/public/")] {
			if section.IsActive {
				active = append(active, section)
			}
		}
		reply(http.StatusOK, active)
	case r.Method == http.MethodPut && strings.HasPrefix(path, "/site-content/sections/"):
		id, _ := strconv.ParseUint(strings.TrimPrefix(path, "/site-content/sections/"), 10, 64)
		var update content.SectionUpdate
		if err := json.Unmarshal(body, &update); err != nil {
			reply(http.StatusUnprocessableEntity, map[string]string{"detail": err.Error()})
			return
		}
		b.puts = append(b.puts, json.RawMessage(body))
		for slug, sections := range b.sections {
			for i := range sections {
				if uint64(sections[i].ID) == id {
					sections[i].Content = update.Content
					sections[i].OrderIndex = update.OrderIndex
					sections[i].IsActive = update.IsActive
					b.sections[slug] = sections
					reply(http.StatusOK, sections[i])
					return
				}
			}
		}
		reply(http.StatusNotFound, map[string]string{"detail": "Section not found"})
	case path == "/students/" && r.Method == http.MethodGet:
		reply(http.StatusOK, b.students)
	case path == "/students/" && r.Method == http.MethodPost:
		var input sitecontent.StudentInput
		_ = json.Unmarshal(body, &input)
		student := sitecontent.Student{ID: uint(len(b.students) + 1), StudentID: "ST-" + strconv.Itoa(len(b.students)+1), Name: input.Name, ClassName: "Class 10-A"}
		b.students = append(b.students, student)
		reply(http.StatusOK, student)
	case path == "/classes/":
		reply(http.StatusOK, []sitecontent.SchoolClass{{ID: 1, ClassName: "Class 10-A"}})
	case path == "/contacts/" && r.Method == http.MethodGet:
		rows := make([]map[string]any, 0, len(b.contacts))
		for i, contact := range b.contacts {
			row := map[string]any{"id": i + 1}
			for key, value := range contact {
				row[key] = value
			}
			rows = append(rows, row)
		}
		reply(http.StatusOK, rows)
	case r.Method == http.MethodPut && strings.HasPrefix(path, "/contacts/"):
		id, _ := strconv.Atoi(strings.TrimPrefix(path, "/contacts/"))
		if id < 1 || id > len(b.contacts) {
			reply(http.StatusNotFound, map[string]string{"detail": "Contact not found"})
			return
		}
		var update map[string]any
		_ = json.Unmarshal(body, &update)
		b.contacts[id-1]["status"] = update["status"]
		reply(http.StatusOK, b.contacts[id-1])
	case submission:
		var payload map[string]any
		_ = json.Unmarshal(body, &payload)
		b.contacts = append(b.contacts, payload)
		reply(http.StatusOK, map[string]any{"id": len(b.contacts)})
	default:
		reply(http.StatusNotFound, map[string]string{"detail": "Not Found"})
	}
}

func (b *siteBackend) revoke() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.revoked = true
}

func (b *siteBackend) putBodies() []json.RawMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]json.RawMessage(nil), b.puts...)
}

func (b *siteBackend) submissions() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.contacts)
}

type localClient struct {
	handler http.Handler
	jar     http.CookieJar
}

func newLocalClient(handler http.Handler) *localClient {
	jar, _ := cookiejar.New(nil)
	return &localClient{handler: handler, jar: jar}
}

func (c *localClient) Do(req *http.Request) *http.Response {
	for _, cookie := range c.jar.Cookies(req.URL) {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	c.handler.ServeHTTP(w, req)
	resp := w.Result()
	c.jar.SetCookies(req.URL, resp.Cookies())
	return resp
}

func (c *localClient) cookie(name string) string {
	u, _ := url.Parse(baseURL)
	for _, cookie := range c.jar.Cookies(u) {
		if cookie.Name == name {
			return cookie.Value
		}
	}
	return ""
}

const baseURL = "http://school.test"

type e2eSuite struct {
	backend *siteBackend
	browser *localClient
	visitor *localClient
}

func newE2ESuite(t *testing.T) *e2eSuite {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gdb, err := gorm.Open(sqlite.Open("file:e2e?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	backend := &siteBackend{sections: map[string][]content.Section{
		"about": {
			{ID: 1, PageSlug: "about", SectionKey: "hero", Content: content.Object{"title": "About Green Valley"}, IsActive: true},
			{ID: 2, PageSlug: "about", SectionKey: "timeline", OrderIndex: 1, IsActive: true, Content: content.Object{
				"title":  "Our Journey",
				"events": []any{map[string]any{"year": "1990", "title": "Founded", "desc": "First classes"}},
			}},
		},
		"contact": {
			{ID: 3, PageSlug: "contact", SectionKey: "form_settings", Content: content.Object{"title": "Write to us"}, IsActive: true},
		},
	}}
	server := httptest.NewServer(backend)
	t.Cleanup(server.Close)

	cfg := config.Defaults()
	cfg.TemplateDir = "../../web/template"
	cfg.StaticDir = "../../web/static"
	cfg.PublicCacheTTL = 0
	cfg.PreviewDebounce = 10 * time.Millisecond

	api := handler.NewAPI(gdb, sitecontent.NewClient(server.URL, 2*time.Second), cfg)
	t.Cleanup(api.Close)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	engine := router.SetupRouter(ctx, api, cfg)

	return &e2eSuite{backend: backend, browser: newLocalClient(engine), visitor: newLocalClient(engine)}
}

func (s *e2eSuite) request(t *testing.T, client *localClient, method, path string, form url.Values, headers map[string]string) (*http.Response, string) {
	t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequest(method, baseURL+path, body)
	if err != nil {
		t.Fatalf("failed to create request %s %s: %v", method, path, err)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	resp := client.Do(req)
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp, string(data)
}

func expectRedirect(t *testing.T, resp *http.Response, location string) {
	t.Helper()
	if resp.StatusCode != http.StatusFound && resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected redirect to %s, got status %d", location, resp.StatusCode)
	}
	if got := resp.Header.Get("Location"); got != location {
		t.Fatalf("expected redirect to %s, got %s", location, got)
	}
}

var timelineItemPattern = regexp.MustCompile(`name="i:items:([^:"]+):title"`)

func TestE2E_EditPublishAndStudents(t *testing.T) {
	s := newE2ESuite(t)

	t.Run("admin requires login", func(t *testing.T) {
		resp, _ := s.request(t, s.browser, http.MethodGet, "/admin/dashboard", nil, nil)
		expectRedirect(t, resp, "/admin/login")
	})

	t.Run("login", func(t *testing.T) {
		resp, _ := s.request(t, s.browser, http.MethodPost, "/admin/login", url.Values{"username": {"principal"}, "password": {"e2e-secret"}}, nil)
		expectRedirect(t, resp, "/admin/dashboard")
		if s.browser.cookie("adminToken") != "e2e-token" {
			t.Fatal("expected admin token cookie after login")
		}
		_, body := s.request(t, s.browser, http.MethodGet, "/admin/dashboard", nil, nil)
		if !strings.Contains(body, "Principal") || !strings.Contains(body, "/admin/pages/about") {
			t.Fatalf("dashboard missing admin name or page link:\n%s", body)
		}
	})

	t.Run("edit preview and publish", func(t *testing.T) {
		resp, body := s.request(t, s.browser, http.MethodGet, "/admin/pages/about", nil, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected editor, got %d", resp.StatusCode)
		}
		match := timelineItemPattern.FindStringSubmatch(body)
		if match == nil {
			t.Fatalf("expected tagged timeline items in editor:\n%s", body)
		}
		itemID := match[1]

		htmx := map[string]string{"HX-Request": "true"}
		resp, _ = s.request(t, s.browser, http.MethodPost, "/admin/pages/about/sections/hero", url.Values{"f:title": {"About Our School"}}, htmx)
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("expected autosave 204, got %d", resp.StatusCode)
		}
		resp, _ = s.request(t, s.browser, http.MethodPost, "/admin/pages/about/sections/timeline", url.Values{"i:items:" + itemID + ":title": {"School Founded"}}, htmx)
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("expected autosave 204, got %d", resp.StatusCode)
		}

		_, preview := s.request(t, s.browser, http.MethodGet, "/admin/pages/about/preview", nil, nil)
		if !strings.Contains(preview, "About Our School") || !strings.Contains(preview, "School Founded") {
			t.Fatalf("expected drafts in preview:\n%s", preview)
		}
		_, public := s.request(t, s.visitor, http.MethodGet, "/about", nil, nil)
		if strings.Contains(public, "About Our School") {
			t.Fatal("expected unsaved draft hidden from visitors")
		}

		resp, _ = s.request(t, s.browser, http.MethodPost, "/admin/pages/about/save", url.Values{}, nil)
		if resp.StatusCode != http.StatusSeeOther && resp.StatusCode != http.StatusFound {
			t.Fatalf("expected redirect after save all, got %d", resp.StatusCode)
		}

		puts := s.backend.putBodies()
		if len(puts) != 2 {
			t.Fatalf("expected two section PUTs, got %d", len(puts))
		}
		for _, raw := range puts {
			if bytes.Contains(raw, []byte(content.ItemIDKey)) {
				t.Fatalf("expected item ids stripped from PUT body: %s", raw)
			}
			var fields map[string]json.RawMessage
			if err := json.Unmarshal(raw, &fields); err != nil {
				t.Fatalf("decode PUT body: %v", err)
			}
			if len(fields) != 3 || fields["content"] == nil || fields["order_index"] == nil || fields["is_active"] == nil {
				t.Fatalf("unexpected PUT body shape: %s", raw)
			}
		}

		_, public = s.request(t, s.visitor, http.MethodGet, "/about", nil, nil)
		if !strings.Contains(public, "About Our School") || !strings.Contains(public, "School Founded") {
			t.Fatalf("expected saved content on public page:\n%s", public)
		}
	})

	t.Run("students", func(t *testing.T) {
		resp, _ := s.request(t, s.browser, http.MethodPost, "/admin/students", url.Values{"name": {"Zara Khan"}, "class_id": {"1"}}, nil)
		expectRedirect(t, resp, "/admin/students")

		_, body := s.request(t, s.browser, http.MethodGet, "/admin/students", nil, nil)
		if !strings.Contains(body, "Zara Khan") {
			t.Fatalf("expected new student in list:\n%s", body)
		}

		resp, data := s.request(t, s.browser, http.MethodGet, "/admin/students/export?format=excel", nil, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected export, got %d", resp.StatusCode)
		}
		book, err := excelize.OpenReader(strings.NewReader(data))
		if err != nil {
			t.Fatalf("expected xlsx export: %v", err)
		}
		defer book.Close()
		rows, err := book.GetRows(book.GetSheetName(0))
		if err != nil || len(rows) != 2 {
			t.Fatalf("expected header plus one row, got %d (%v)", len(rows), err)
		}
	})

	t.Run("contact form", func(t *testing.T) {
		form := url.Values{
			"first_name": {"Asha"},
			"email":      {"asha@example.com"},
			"phone":      {"9845012345"},
			"subject":    {"general"},
			"message":    {"Is there a school bus?"},
		}
		resp, _ := s.request(t, s.visitor, http.MethodPost, "/contact", form, nil)
		expectRedirect(t, resp, "/contact?sent=1")
		if s.backend.submissions() != 1 {
			t.Fatalf("expected one contact submission, got %d", s.backend.submissions())
		}
	})

	t.Run("contact inbox", func(t *testing.T) {
		_, body := s.request(t, s.browser, http.MethodGet, "/admin/inquiries", nil, nil)
		if !strings.Contains(body, "Is there a school bus?") || !strings.Contains(body, "Mark read") {
			t.Fatalf("expected submitted message in inbox:\n%s", body)
		}

		resp, _ := s.request(t, s.browser, http.MethodPost, "/admin/inquiries/contacts/1/status", url.Values{"status": {"read"}}, nil)
		expectRedirect(t, resp, "/admin/inquiries?tab=contacts")

		_, body = s.request(t, s.browser, http.MethodGet, "/admin/inquiries?status=read", nil, nil)
		if !strings.Contains(body, "Is there a school bus?") || !strings.Contains(body, "Mark new") {
			t.Fatalf("expected message marked read:\n%s", body)
		}
	})

	t.Run("revoked token logs out", func(t *testing.T) {
		s.backend.revoke()
		resp, _ := s.request(t, s.browser, http.MethodGet, "/admin/students", nil, nil)
		expectRedirect(t, resp, "/admin/login")
		if s.browser.cookie("adminToken") != "" {
			t.Fatal("expected admin token cleared after backend 401")
		}
		resp, _ = s.request(t, s.browser, http.MethodGet, "/admin/dashboard", nil, nil)
		expectRedirect(t, resp, "/admin/login")
	})
}
