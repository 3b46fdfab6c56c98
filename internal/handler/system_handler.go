package handler

import (
	"errors"
	"net/http"

	"github.com/edunet/internal/db"
	"github.com/edunet/internal/logger"
	"github.com/edunet/internal/service"
	"github.com/gin-gonic/gin"
)

// HealthCheck 报告草稿库状态、未保存草稿数与预览连接数。
func (a *API) HealthCheck(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{"status": "ok", "database": "up"}

	var drafts int64
	if sqlDB, err := a.db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
		status = http.StatusServiceUnavailable
		body["status"], body["database"] = "error", "down"
	} else if err := a.db.Model(&db.SectionDraft{}).Where("dirty = ?", true).Count(&drafts).Error; err == nil {
		body["dirty_drafts"] = drafts
	}
	if a.preview != nil {
		body["preview_clients"] = a.preview.TotalClients()
	}
	c.JSON(status, body)
}

// ShowSystemSettings 渲染系统设置页面。
func (a *API) ShowSystemSettings(c *gin.Context) {
	settings, err := a.system.GetSettings()
	if err != nil {
		c.Error(err)
	}
	a.renderHTML(c, http.StatusOK, "settings.html", gin.H{
		"title":    "Settings",
		"settings": settings,
		"flashes":  takeFlashes(c),
	})
}

// UpdateSystemSettings 保存系统设置。
func (a *API) UpdateSystemSettings(c *gin.Context) {
	var input service.SystemSettingsInput
	if err := c.ShouldBind(&input); err != nil {
		addFlash(c, "error", "Invalid settings form")
		redirect(c, "/admin/settings")
		return
	}

	if _, err := a.system.UpdateSettings(input); err != nil {
		if errors.Is(err, service.ErrInvalidSettings) {
			addFlash(c, "error", err.Error())
			redirect(c, "/admin/settings")
			return
		}
		logger.Error().Err(err).Msg("update system settings failed")
		addFlash(c, "error", "Failed to save settings")
		redirect(c, "/admin/settings")
		return
	}

	addFlash(c, "success", "Settings saved")
	redirect(c, "/admin/settings")
}
