package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/edunet/internal/config"
	"github.com/edunet/internal/content"
	"github.com/edunet/internal/db"
	"github.com/edunet/internal/sitecontent"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// stubHTMLRender records the last template rendered instead of executing it.
type stubHTMLRender struct {
	mu   sync.Mutex
	name string
	data gin.H
}

type stubHTMLInstance struct {
	name string
	data interface{}
}

func (r *stubHTMLRender) Instance(name string, data interface{}) render.Render {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.name = name
	r.data, _ = data.(gin.H)
	return &stubHTMLInstance{name: name, data: data}
}

func (r *stubHTMLRender) last() (string, gin.H) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.name, r.data
}

func (r *stubHTMLInstance) Render(http.ResponseWriter) error {
	return nil
}

func (r *stubHTMLInstance) WriteContentType(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
}

type recordedRequest struct {
	Method string
	Path   string
	Auth   string
	Body   []byte
}

// fakeSiteAPI serves the subset of /api/v1 the site talks to.
type fakeSiteAPI struct {
	mu           sync.Mutex
	server       *httptest.Server
	sections     map[string][]content.Section
	students     []sitecontent.Student
	contacts     []sitecontent.ContactRequest
	applications []sitecontent.AdmissionRequest
	requests     []recordedRequest
	unauthorized bool
	publicStatus int
}

func newFakeSiteAPI(t *testing.T) *fakeSiteAPI {
	t.Helper()
	api := &fakeSiteAPI{sections: map[string][]content.Section{}}
	api.server = httptest.NewServer(http.HandlerFunc(api.serve))
	t.Cleanup(api.server.Close)
	return api
}

func (f *fakeSiteAPI) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	path := strings.TrimPrefix(r.URL.Path, "/api/v1")

	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, recordedRequest{Method: r.Method, Path: path, Auth: r.Header.Get("Authorization"), Body: body})

	if f.unauthorized && path != "/login/access-token" && !strings.HasPrefix(path, "/site-content/public/") {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Could not validate credentials"})
		return
	}

	switch {
	case r.Method == http.MethodPost && path == "/login/access-token":
		form, _ := url.ParseQuery(string(body))
		if form.Get("username") != "admin" || form.Get("password") != "secret" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Incorrect username or password"})
			return
		}
		writeJSON(w, http.StatusOK, sitecontent.LoginResult{AccessToken: "tok-123", TokenType: "bearer", Role: "admin", FullName: "Head Admin"})
	case r.Method == http.MethodGet && path == "/site-content/pages":
		summaries := make([]content.PageSummary, 0, len(f.sections))
		for slug, sections := range f.sections {
			summaries = append(summaries, content.PageSummary{PageSlug: slug, SectionCount: len(sections)})
		}
		writeJSON(w, http.StatusOK, summaries)
	case r.Method == http.MethodGet && strings.HasPrefix(path, "/site-content/pages/"):
		writeJSON(w, http.StatusOK, f.sections[strings.TrimPrefix(path, "/site-content/pages/")])
	case r.Method == http.MethodGet && strings.HasPrefix(path, "/site-content/public/"):
		if f.publicStatus != 0 {
			writeJSON(w, f.publicStatus, map[string]string{"detail": "backend failure"})
			return
		}
		active := make([]content.Section, 0)
		for _, section := range f.sections[strings.TrimPrefix(path, "/site-content/public/")] {
			if section.IsActive {
				active = append(active, section)
			}
		}
		writeJSON(w, http.StatusOK, active)
	case r.Method == http.MethodPut && strings.HasPrefix(path, "/site-content/sections/"):
		id, _ := strconv.ParseUint(strings.TrimPrefix(path, "/site-content/sections/"), 10, 64)
		var update content.SectionUpdate
		if err := json.Unmarshal(body, &update); err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": err.Error()})
			return
		}
		for slug, sections := range f.sections {
			for i := range sections {
				if uint64(sections[i].ID) == id {
					sections[i].Content = update.Content
					sections[i].OrderIndex = update.OrderIndex
					sections[i].IsActive = update.IsActive
					f.sections[slug] = sections
					writeJSON(w, http.StatusOK, sections[i])
					return
				}
			}
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Section not found"})
	case r.Method == http.MethodPost && strings.HasPrefix(path, "/site-content/seed/"):
		slug := strings.TrimPrefix(path, "/site-content/seed/")
		f.sections[slug] = []content.Section{{ID: 900, PageSlug: slug, SectionKey: "hero", Content: content.Object{"title": "Seeded"}, IsActive: true}}
		writeJSON(w, http.StatusOK, map[string]string{"message": "seeded"})
	case r.Method == http.MethodGet && path == "/students/":
		writeJSON(w, http.StatusOK, f.students)
	case r.Method == http.MethodPost && path == "/students/":
		var input sitecontent.StudentInput
		_ = json.Unmarshal(body, &input)
		student := sitecontent.Student{ID: uint(len(f.students) + 1), Name: input.Name}
		f.students = append(f.students, student)
		writeJSON(w, http.StatusOK, student)
	case r.Method == http.MethodGet && path == "/classes/":
		writeJSON(w, http.StatusOK, []sitecontent.SchoolClass{{ID: 1, ClassName: "Class 10-A"}})
	case r.Method == http.MethodPost && (path == "/contacts/" || path == "/applications/"):
		writeJSON(w, http.StatusOK, map[string]any{"id": 1})
	case r.Method == http.MethodGet && path == "/contacts/":
		writeJSON(w, http.StatusOK, f.contacts)
	case r.Method == http.MethodGet && path == "/applications/":
		writeJSON(w, http.StatusOK, f.applications)
	case strings.HasPrefix(path, "/contacts/") || strings.HasPrefix(path, "/applications/"):
		f.serveInboxItem(w, r.Method, path, body)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not Found"})
	}
}

// serveInboxItem handles PUT {status} and DELETE on /contacts/{id} and /applications/{id}.
func (f *fakeSiteAPI) serveInboxItem(w http.ResponseWriter, method, path string, body []byte) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	id, _ := strconv.ParseUint(parts[len(parts)-1], 10, 64)
	var update struct {
		Status string `json:"status"`
	}
	_ = json.Unmarshal(body, &update)

	if parts[0] == "contacts" {
		for i := range f.contacts {
			if uint64(f.contacts[i].ID) != id {
				continue
			}
			if method == http.MethodDelete {
				f.contacts = append(f.contacts[:i], f.contacts[i+1:]...)
			} else {
				f.contacts[i].Status = update.Status
			}
			writeJSON(w, http.StatusOK, map[string]any{"id": id})
			return
		}
	} else {
		for i := range f.applications {
			if uint64(f.applications[i].ID) != id {
				continue
			}
			if method == http.MethodDelete {
				f.applications = append(f.applications[:i], f.applications[i+1:]...)
			} else {
				f.applications[i].Status = update.Status
			}
			writeJSON(w, http.StatusOK, map[string]any{"id": id})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not Found"})
}

func (f *fakeSiteAPI) setInbox(contacts []sitecontent.ContactRequest, applications []sitecontent.AdmissionRequest) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contacts = contacts
	f.applications = applications
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (f *fakeSiteAPI) setPage(slug string, sections []content.Section) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sections[slug] = sections
}

func (f *fakeSiteAPI) page(slug string) []content.Section {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sections[slug]
}

func (f *fakeSiteAPI) setPublicStatus(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.publicStatus = status
}

func (f *fakeSiteAPI) setStudents(students []sitecontent.Student) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.students = students
}

func (f *fakeSiteAPI) setUnauthorized(value bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unauthorized = value
}

// find returns the recorded requests matching method and path.
func (f *fakeSiteAPI) find(method, path string) []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recordedRequest
	for _, req := range f.requests {
		if req.Method == method && req.Path == path {
			out = append(out, req)
		}
	}
	return out
}

func aboutFixture() []content.Section {
	return []content.Section{
		{ID: 11, PageSlug: "about", SectionKey: "hero", Content: content.Object{"title": "About Us"}, OrderIndex: 0, IsActive: true},
		{ID: 12, PageSlug: "about", SectionKey: "timeline", Content: content.Object{
			"title":  "Our Journey",
			"events": []any{map[string]any{"year": "1990", "title": "Founded"}, map[string]any{"year": "2005", "title": "New campus"}},
		}, OrderIndex: 1, IsActive: true},
		{ID: 13, PageSlug: "about", SectionKey: "mission_vision", Content: content.Object{"mission": "Learn"}, OrderIndex: 2, IsActive: false},
	}
}

var handlerDBCounter int64

func setupHandlerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:handler-%d?mode=memory&cache=shared", atomic.AddInt64(&handlerDBCounter, 1))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return gdb
}

type testSite struct {
	engine  *gin.Engine
	api     *API
	render  *stubHTMLRender
	backend *fakeSiteAPI
}

func newTestSite(t *testing.T) *testSite {
	t.Helper()
	gin.SetMode(gin.TestMode)

	backend := newFakeSiteAPI(t)
	cfg := config.Defaults()
	cfg.PublicCacheTTL = 0
	cfg.PreviewDebounce = 10 * time.Millisecond

	api := NewAPI(setupHandlerTestDB(t), sitecontent.NewClient(backend.server.URL, 2*time.Second), cfg)
	t.Cleanup(api.Close)

	stub := &stubHTMLRender{}
	r := gin.New()
	r.Use(sessions.Sessions("edunet_session", cookie.NewStore([]byte("test-secret"))))
	r.HTMLRender = stub

	r.GET("/", api.ShowPublicPage("home"))
	r.GET("/about", api.ShowPublicPage("about"))
	r.GET("/contact", api.ShowContact)
	r.POST("/contact", api.SubmitContact)
	r.GET("/apply", api.ShowApply)
	r.POST("/apply", api.SubmitApplication)

	r.GET("/admin/login", api.ShowLoginPage)
	r.POST("/admin/login", api.Login)
	r.GET("/admin/logout", api.Logout)
	auth := r.Group("/admin", AuthRequired())
	auth.GET("/dashboard", api.ShowDashboard)
	auth.GET("/pages/:slug", api.ShowEditor)
	auth.GET("/pages/:slug/preview", api.ShowPreview)
	auth.POST("/pages/:slug/save", api.SaveAllSections)
	auth.POST("/pages/:slug/discard", api.DiscardDrafts)
	auth.POST("/pages/:slug/seed", api.SeedPage)
	auth.POST("/pages/:slug/sections/:key", api.UpdateSection)
	auth.POST("/pages/:slug/sections/:key/active", api.ToggleSection)
	auth.POST("/pages/:slug/sections/:key/save", api.SaveSection)
	auth.POST("/pages/:slug/sections/:key/items", api.AddListItem)
	auth.POST("/pages/:slug/sections/:key/items/:item/remove", api.RemoveListItem)
	auth.POST("/pages/:slug/sections/:key/items/:item/move", api.MoveListItem)
	auth.GET("/students", api.ShowStudents)
	auth.POST("/students", api.CreateStudent)
	auth.GET("/students/export", api.ExportStudents)
	auth.GET("/inquiries", api.ShowInquiries)
	auth.POST("/inquiries/contacts/:id/status", api.UpdateContactStatus)
	auth.POST("/inquiries/contacts/:id/delete", api.DeleteContact)
	auth.POST("/inquiries/applications/:id/status", api.UpdateApplicationStatus)
	auth.POST("/inquiries/applications/:id/delete", api.DeleteApplication)
	auth.GET("/inquiries/applications/export", api.ExportApplications)
	auth.GET("/settings", api.ShowSystemSettings)
	auth.POST("/settings", api.UpdateSystemSettings)
	r.GET("/healthz", api.HealthCheck)

	return &testSite{engine: r, api: api, render: stub, backend: backend}
}

// browser keeps cookies between requests like a real client would.
type browser struct {
	site    *testSite
	cookies map[string]*http.Cookie
}

func (s *testSite) browser() *browser {
	return &browser{site: s, cookies: map[string]*http.Cookie{}}
}

func (s *testSite) adminBrowser() *browser {
	b := s.browser()
	b.cookies[adminTokenCookie] = &http.Cookie{Name: adminTokenCookie, Value: "tok-123"}
	return b
}

func (b *browser) do(req *http.Request) *httptest.ResponseRecorder {
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	b.site.engine.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c
	}
	return rec
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	return b.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (b *browser) post(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

func responseCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	var found *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			found = c
		}
	}
	return found
}
