package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/edunet/internal/logger"
	"github.com/edunet/internal/sitecontent"
	"github.com/gin-gonic/gin"
)

// ShowLoginPage 渲染登录页面
func (a *API) ShowLoginPage(c *gin.Context) {
	if adminToken(c) != "" {
		c.Redirect(http.StatusFound, "/admin/dashboard")
		return
	}
	a.renderHTML(c, http.StatusOK, "login.html", gin.H{
		"title":   "Admin Login",
		"flashes": takeFlashes(c),
	})
}

// Login 用后端签发的 token 建立后台登录态
func (a *API) Login(c *gin.Context) {
	username := strings.TrimSpace(c.PostForm("username"))
	password := c.PostForm("password")
	if username == "" || password == "" {
		a.renderHTML(c, http.StatusBadRequest, "login.html", gin.H{
			"title":    "Admin Login",
			"error":    "Please enter username and password",
			"username": username,
		})
		return
	}

	result, err := a.auth.Login(c.Request.Context(), username, password)
	if err != nil {
		status := http.StatusBadGateway
		message := "Login failed. Please try again."
		if errors.Is(err, sitecontent.ErrInvalidCredentials) {
			status = http.StatusUnauthorized
			message = "Incorrect username or password"
		}
		logger.Warn().Err(err).Str("username", username).Msg("admin login failed")
		a.renderHTML(c, status, "login.html", gin.H{
			"title":    "Admin Login",
			"error":    message,
			"username": username,
		})
		return
	}

	name := strings.TrimSpace(result.FullName)
	if name == "" {
		name = username
	}
	setAdminCookies(c, result.AccessToken, name, result.Role)
	redirect(c, "/admin/dashboard")
}

// Logout 清除登录 cookie
func (a *API) Logout(c *gin.Context) {
	clearAdminCookies(c)
	c.Redirect(http.StatusFound, loginPath)
}

// AuthRequired 没有 adminToken 时跳转登录页
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := adminToken(c)
		if token == "" {
			redirect(c, loginPath)
			c.Abort()
			return
		}
		c.Set(tokenContextKey, token)
		c.Next()
	}
}

// ShowDashboard 渲染后台主面板，列出所有可编辑页面
func (a *API) ShowDashboard(c *gin.Context) {
	cards, err := a.editor.Pages(c.Request.Context(), adminToken(c))
	if err != nil {
		if handleUnauthorized(c, err) {
			return
		}
		logger.Error().Err(err).Msg("load page list failed")
		a.renderHTML(c, http.StatusBadGateway, "dashboard.html", gin.H{
			"title": "Dashboard",
			"error": "Failed to load pages",
		})
		return
	}

	a.renderHTML(c, http.StatusOK, "dashboard.html", gin.H{
		"title":   "Dashboard",
		"pages":   cards,
		"flashes": takeFlashes(c),
	})
}
