package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/edunet/internal/logger"
	"github.com/edunet/internal/service"
	"github.com/edunet/internal/sitecontent"
	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	inboxContacts     = "contacts"
	inboxApplications = "applications"
)

func inboxTab(raw string) string {
	if raw == inboxApplications {
		return inboxApplications
	}
	return inboxContacts
}

func inboxFilter(c *gin.Context) service.InboxFilter {
	return service.InboxFilter{
		Search: strings.TrimSpace(c.Query("search")),
		Status: strings.TrimSpace(c.DefaultQuery("status", service.AllStatuses)),
	}
}

func inboxURL(tab string) string {
	return "/admin/inquiries?" + url.Values{"tab": {tab}}.Encode()
}

// ShowInquiries 渲染联系留言或报名申请列表。
func (a *API) ShowInquiries(c *gin.Context) {
	tab := inboxTab(c.Query("tab"))
	filter := inboxFilter(c)
	data := gin.H{
		"title":   "Inquiries",
		"tab":     tab,
		"filter":  filter,
		"flashes": takeFlashes(c),
	}

	var err error
	if tab == inboxApplications {
		var inbox service.ApplicationInbox
		inbox, err = a.inbox.Applications(c.Request.Context(), adminToken(c), filter)
		data["applications"] = inbox
		data["statuses"] = []string{sitecontent.ApplicationPending, sitecontent.ApplicationApproved, sitecontent.ApplicationRejected}
	} else {
		var inbox service.ContactInbox
		inbox, err = a.inbox.Contacts(c.Request.Context(), adminToken(c), filter)
		data["contacts"] = inbox
		data["statuses"] = []string{sitecontent.ContactNew, sitecontent.ContactRead}
	}
	if err != nil {
		if handleUnauthorized(c, err) {
			return
		}
		logger.Error().Err(err).Str("tab", tab).Msg("load inquiries failed")
		data["error"] = "Failed to load requests"
		a.renderHTML(c, http.StatusBadGateway, "inquiries.html", data)
		return
	}
	a.renderHTML(c, http.StatusOK, "inquiries.html", data)
}

// inboxAction 执行一次状态修改或删除，并带着提示跳回对应标签页。
func (a *API) inboxAction(c *gin.Context, tab, success string, action func(id uint) error) {
	id, ok := parseUintValue(c.Param("id"))
	if !ok {
		respondError(c, http.StatusBadRequest, "invalid id")
		return
	}

	if err := action(id); err != nil {
		if handleUnauthorized(c, err) {
			return
		}
		var validationErr validation.Error
		if errors.As(err, &validationErr) {
			addFlash(c, "error", "Unknown status.")
		} else {
			logger.Warn().Err(err).Str("tab", tab).Uint("id", id).Msg("inquiry update failed")
			addFlash(c, "error", "Update failed. Please try again.")
		}
		redirect(c, inboxURL(tab))
		return
	}

	logger.Info().Str("tab", tab).Uint("id", id).Msg(success)
	addFlash(c, "success", success)
	redirect(c, inboxURL(tab))
}

// UpdateContactStatus 把留言标记为 new 或 read。
func (a *API) UpdateContactStatus(c *gin.Context) {
	a.inboxAction(c, inboxContacts, "Message updated.", func(id uint) error {
		return a.inbox.SetContactStatus(c.Request.Context(), adminToken(c), id, c.PostForm("status"))
	})
}

// DeleteContact 删除一条留言。
func (a *API) DeleteContact(c *gin.Context) {
	a.inboxAction(c, inboxContacts, "Message deleted.", func(id uint) error {
		return a.inbox.DeleteContact(c.Request.Context(), adminToken(c), id)
	})
}

// UpdateApplicationStatus 批准或拒绝报名申请。
func (a *API) UpdateApplicationStatus(c *gin.Context) {
	a.inboxAction(c, inboxApplications, "Application updated.", func(id uint) error {
		return a.inbox.SetApplicationStatus(c.Request.Context(), adminToken(c), id, c.PostForm("status"))
	})
}

// DeleteApplication 删除一条报名申请。
func (a *API) DeleteApplication(c *gin.Context) {
	a.inboxAction(c, inboxApplications, "Application deleted.", func(id uint) error {
		return a.inbox.DeleteApplication(c.Request.Context(), adminToken(c), id)
	})
}

// ExportApplications 按当前筛选条件导出报名申请 CSV。
func (a *API) ExportApplications(c *gin.Context) {
	inbox, err := a.inbox.Applications(c.Request.Context(), adminToken(c), inboxFilter(c))
	if err != nil {
		if handleUnauthorized(c, err) {
			return
		}
		respondError(c, http.StatusBadGateway, "Failed to load applications")
		return
	}

	file, err := a.inbox.ExportApplications(inbox.Requests)
	if err != nil {
		logger.Error().Err(err).Msg("export applications failed")
		respondError(c, http.StatusInternalServerError, "Export failed")
		return
	}

	logger.Info().Str("file", file.Name).Int("rows", file.Rows).Msg("applications exported")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, file.Name))
	c.Header("X-Export-Rows", fmt.Sprint(file.Rows))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
