package handler

import (
	"context"
	"strings"
	"time"

	"github.com/edunet/internal/config"
	"github.com/edunet/internal/content"
	"github.com/edunet/internal/service"
	"github.com/edunet/internal/sitecontent"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type authenticator interface {
	Login(ctx context.Context, username, password string) (sitecontent.LoginResult, error)
}

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db        *gorm.DB
	auth      authenticator
	pages     *service.PageService
	editor    *service.EditorService
	students  *service.StudentService
	inquiries *service.InquiryService
	inbox     *service.InboxService
	system    *service.SystemSettingService
	preview   *service.PreviewHub
}

type siteViewModel struct {
	Name            string
	MetaDescription string
	MapEmbedURL     string
	FooterNote      string
}

const siteSettingsContextKey = "__site_settings"

// NewAPI constructs a handler set with shared services.
func NewAPI(gdb *gorm.DB, client *sitecontent.Client, cfg config.AppConfig) *API {
	pages := service.NewPageService(client, cfg.PublicCacheTTL)
	preview := service.NewPreviewHub(cfg.PreviewDebounce)

	return &API{
		db:        gdb,
		auth:      client,
		pages:     pages,
		editor:    service.NewEditorService(gdb, client, pages, preview, cfg.DraftRetention),
		students:  service.NewStudentService(client),
		inquiries: service.NewInquiryService(client),
		inbox:     service.NewInboxService(client),
		system:    service.NewSystemSettingService(gdb, cfg.SiteName),
		preview:   preview,
	}
}

// Editor exposes the editor service for start-up maintenance such as draft purging.
func (a *API) Editor() *service.EditorService {
	return a.editor
}

// Pages exposes the public page service for the prerender command.
func (a *API) Pages() *service.PageService {
	return a.pages
}

// Close stops pending preview timers. Open SSE streams end when the server's
// base context is cancelled, not here.
func (a *API) Close() {
	if a.preview != nil {
		a.preview.Close()
	}
}

func (a *API) siteSettings(c *gin.Context) siteViewModel {
	if cached, exists := c.Get(siteSettingsContextKey); exists {
		if view, ok := cached.(siteViewModel); ok {
			return view
		}
	}

	settings, err := a.system.GetSettings()
	if err != nil {
		c.Error(err)
	}

	view := siteViewModel{
		Name:            strings.TrimSpace(settings.SiteName),
		MetaDescription: strings.TrimSpace(settings.MetaDescription),
		MapEmbedURL:     strings.TrimSpace(settings.MapEmbedURL),
		FooterNote:      strings.TrimSpace(settings.FooterNote),
	}
	if view.Name == "" {
		view.Name = "EduNet School"
	}
	if view.MapEmbedURL == "" {
		view.MapEmbedURL = service.DefaultMapEmbedURL
	}

	c.Set(siteSettingsContextKey, view)
	return view
}

func (a *API) renderHTML(c *gin.Context, status int, template string, data gin.H) {
	view := a.siteSettings(c)

	payload := gin.H{}
	for key, value := range data {
		payload[key] = value
	}
	if _, exists := payload["site"]; !exists {
		payload["site"] = view
	}
	if _, exists := payload["year"]; !exists {
		payload["year"] = time.Now().Year()
	}
	if _, exists := payload["adminName"]; !exists {
		if name, err := c.Cookie(adminNameCookie); err == nil {
			payload["adminName"] = name
		}
	}

	c.HTML(status, template, payload)
}

// RenderHTML 在向模板渲染时自动附加站点名称等系统设置。
func (a *API) RenderHTML(c *gin.Context, status int, template string, data gin.H) {
	a.renderHTML(c, status, template, data)
}

// chrome loads the header and footer data that wraps every public page.
func (a *API) chrome(c *gin.Context) gin.H {
	header, footer := a.pages.Chrome(c.Request.Context())
	if header == nil {
		header = content.PageData{}
	}
	if footer == nil {
		footer = content.PageData{}
	}
	return gin.H{"header": header, "footer": footer}
}
