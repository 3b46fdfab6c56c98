package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/edunet/internal/logger"
	"github.com/edunet/internal/sitecontent"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	adminTokenCookie = "adminToken"
	adminNameCookie  = "adminName"
	adminRoleCookie  = "adminRole"
	adminCookieTTL   = 4 * 60 * 60

	editorSessionKey = "editor_session"
	tokenContextKey  = "__admin_token"
	loginPath        = "/admin/login"
)

type flashMessage struct {
	Kind string
	Text string
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

func parseIntForm(c *gin.Context, key string, fallback int) int {
	raw := strings.TrimSpace(c.PostForm(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func parseUintValue(raw string) (uint, bool) {
	parsed, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 32)
	if err != nil || parsed == 0 {
		return 0, false
	}
	return uint(parsed), true
}

func isHTMX(c *gin.Context) bool {
	return c.GetHeader("HX-Request") == "true"
}

// redirect 对 HTMX 请求使用 HX-Redirect，普通请求使用 303。
func redirect(c *gin.Context, location string) {
	if isHTMX(c) {
		c.Header("HX-Redirect", location)
		c.Status(http.StatusNoContent)
		return
	}
	c.Redirect(http.StatusSeeOther, location)
}

func setAdminCookies(c *gin.Context, token, name, role string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(adminTokenCookie, token, adminCookieTTL, "/", "", false, true)
	c.SetCookie(adminNameCookie, name, adminCookieTTL, "/", "", false, false)
	c.SetCookie(adminRoleCookie, role, adminCookieTTL, "/", "", false, false)
}

func clearAdminCookies(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	for _, name := range []string{adminTokenCookie, adminNameCookie, adminRoleCookie} {
		c.SetCookie(name, "", -1, "/", "", false, name == adminTokenCookie)
	}
}

func adminToken(c *gin.Context) string {
	if token := c.GetString(tokenContextKey); token != "" {
		return token
	}
	token, _ := c.Cookie(adminTokenCookie)
	return strings.TrimSpace(token)
}

// handleUnauthorized 在后端返回 401 时清除登录信息并跳转登录页，返回是否已处理。
func handleUnauthorized(c *gin.Context, err error) bool {
	if !errors.Is(err, sitecontent.ErrUnauthorized) {
		return false
	}
	logger.Info().Str("path", c.Request.URL.Path).Msg("backend rejected admin token")
	clearAdminCookies(c)
	redirect(c, loginPath)
	c.Abort()
	return true
}

// editorSession returns the per-browser draft workspace id, creating one on first use.
func editorSession(c *gin.Context) string {
	session := sessions.Default(c)
	if id, ok := session.Get(editorSessionKey).(string); ok && id != "" {
		return id
	}
	id := uuid.NewString()
	session.Set(editorSessionKey, id)
	if err := session.Save(); err != nil {
		logger.Warn().Err(err).Msg("save editor session failed")
	}
	return id
}

func addFlash(c *gin.Context, kind, text string) {
	session := sessions.Default(c)
	session.AddFlash(kind + "|" + text)
	if err := session.Save(); err != nil {
		logger.Warn().Err(err).Msg("save flash failed")
	}
}

func takeFlashes(c *gin.Context) []flashMessage {
	session := sessions.Default(c)
	raw := session.Flashes()
	if len(raw) == 0 {
		return nil
	}
	if err := session.Save(); err != nil {
		logger.Warn().Err(err).Msg("clear flashes failed")
	}
	out := make([]flashMessage, 0, len(raw))
	for _, item := range raw {
		text, ok := item.(string)
		if !ok {
			continue
		}
		kind, message, found := strings.Cut(text, "|")
		if !found {
			kind, message = "info", text
		}
		out = append(out, flashMessage{Kind: kind, Text: message})
	}
	return out
}

func editorURL(slug string, query url.Values) string {
	location := fmt.Sprintf("/admin/pages/%s", url.PathEscape(slug))
	if encoded := query.Encode(); encoded != "" {
		location += "?" + encoded
	}
	return location
}
