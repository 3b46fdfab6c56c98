package router

import (
	"context"
	"net/http"
	"path/filepath"

	"github.com/edunet/internal/config"
	"github.com/edunet/internal/handler"
	"github.com/edunet/internal/logger"
	"github.com/edunet/internal/middleware"
	"github.com/edunet/internal/view"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

const sessionName = "edunet_session"

// SetupRouter 配置 Gin 引擎和路由；ctx 结束时停止后台清理任务。
func SetupRouter(ctx context.Context, api *handler.API, cfg config.AppConfig) *gin.Engine {
	r := gin.New()
	r.Use(logger.GinLogger(), logger.GinRecovery())

	// 配置会话中间件
	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{Path: "/", MaxAge: 7 * 24 * 60 * 60, HttpOnly: true, SameSite: http.SameSiteLaxMode})
	r.Use(sessions.Sessions(sessionName, store))

	// 加载模板并添加自定义函数
	r.SetFuncMap(view.FuncMap())
	r.LoadHTMLGlob(filepath.Join(cfg.TemplateDir, "*.html"))

	// 静态文件服务
	r.Static("/static", cfg.StaticDir)

	r.GET("/healthz", api.HealthCheck)

	limiter := middleware.NewRateLimiter(cfg.FormRateLimit, cfg.FormRateBurst).OnLimit(api.FormRateLimited)
	go limiter.Run(ctx)

	// 公开页面
	r.GET("/", api.ShowPublicPage("home"))
	for _, slug := range []string{"about", "academics", "admissions", "facilities"} {
		r.GET("/"+slug, api.ShowPublicPage(slug))
	}
	forms := r.Group("")
	forms.Use(limiter.Middleware())
	{
		forms.GET("/contact", api.ShowContact)
		forms.POST("/contact", api.SubmitContact)
		forms.GET("/apply", api.ShowApply)
		forms.POST("/apply", api.SubmitApplication)
	}

	// 后台管理路由
	admin := r.Group("/admin")
	{
		admin.GET("/login", api.ShowLoginPage)
		admin.POST("/login", api.Login)
		admin.GET("/logout", api.Logout)

		// 需要认证的后台路由
		auth := admin.Group("")
		auth.Use(handler.AuthRequired())
		{
			auth.GET("", func(c *gin.Context) { c.Redirect(http.StatusFound, "/admin/dashboard") })
			auth.GET("/dashboard", api.ShowDashboard)

			pages := auth.Group("/pages/:slug")
			{
				pages.GET("", api.ShowEditor)
				pages.GET("/preview", api.ShowPreview)
				pages.GET("/events", api.PreviewEvents)
				pages.POST("/save", api.SaveAllSections)
				pages.POST("/discard", api.DiscardDrafts)
				pages.POST("/seed", api.SeedPage)

				sections := pages.Group("/sections/:key")
				{
					sections.POST("", api.UpdateSection)
					sections.POST("/active", api.ToggleSection)
					sections.POST("/save", api.SaveSection)
					sections.POST("/items", api.AddListItem)
					sections.POST("/items/:item/remove", api.RemoveListItem)
					sections.POST("/items/:item/move", api.MoveListItem)
				}
			}

			auth.GET("/students", api.ShowStudents)
			auth.POST("/students", api.CreateStudent)
			auth.GET("/students/export", api.ExportStudents)

			inquiries := auth.Group("/inquiries")
			{
				inquiries.GET("", api.ShowInquiries)
				inquiries.POST("/contacts/:id/status", api.UpdateContactStatus)
				inquiries.POST("/contacts/:id/delete", api.DeleteContact)
				inquiries.POST("/applications/:id/status", api.UpdateApplicationStatus)
				inquiries.POST("/applications/:id/delete", api.DeleteApplication)
				inquiries.GET("/applications/export", api.ExportApplications)
			}

			auth.GET("/settings", api.ShowSystemSettings)
			auth.POST("/settings", api.UpdateSystemSettings)
		}
	}

	return r
}
