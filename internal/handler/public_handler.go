package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/edunet/internal/logger"
	"github.com/edunet/internal/service"
	"github.com/edunet/internal/sitecontent"
	"github.com/gin-gonic/gin"
)

const (
	errorTitle        = "Unable to Load Page"
	emptyPageMessage  = "No content available for this page"
	genericLoadFailed = "Failed to load page content"
)

// PublicPageTemplate maps a slug to its page template.
func PublicPageTemplate(slug string) string {
	return slug + ".html"
}

// LoadErrorMessage 把加载错误转换为公开页面上的提示文字。
func LoadErrorMessage(err error) string {
	if errors.Is(err, service.ErrPageEmpty) {
		return emptyPageMessage
	}
	if status := sitecontent.StatusOf(err); status > 0 {
		return fmt.Sprintf("%s (%d)", genericLoadFailed, status)
	}
	return genericLoadFailed
}

// LoadErrorStatus 选择错误页的状态码：空页面 404，后端或网络故障 502。
func LoadErrorStatus(err error) int {
	if errors.Is(err, service.ErrPageEmpty) {
		return http.StatusNotFound
	}
	return http.StatusBadGateway
}

// ShowPublicPage renders one public page from the backend content.
func (a *API) ShowPublicPage(slug string) gin.HandlerFunc {
	return func(c *gin.Context) {
		a.renderPublic(c, slug, http.StatusOK, nil)
	}
}

func (a *API) renderPublic(c *gin.Context, slug string, status int, extra gin.H) {
	chrome := a.chrome(c)
	page, err := a.pages.Load(c.Request.Context(), slug)
	if err != nil {
		logger.Warn().Err(err).Str("page", slug).Int("status", sitecontent.StatusOf(err)).Msg("public page unavailable")
		a.renderHTML(c, LoadErrorStatus(err), "error.html", gin.H{
			"title":   errorTitle,
			"message": LoadErrorMessage(err),
			"slug":    slug,
			"chrome":  chrome,
		})
		return
	}

	data := gin.H{
		"title":   page.Def.Label,
		"slug":    slug,
		"page":    page,
		"data":    page.Data,
		"chrome":  chrome,
		"flashes": takeFlashes(c),
	}
	for key, value := range extra {
		data[key] = value
	}
	if _, ok := data["form"]; !ok {
		if form := blankForm(slug); form != nil {
			data["form"] = form
		}
	}
	a.renderHTML(c, status, PublicPageTemplate(slug), data)
}

// blankForm keeps form fields addressable in templates before anything is posted.
func blankForm(slug string) any {
	switch slug {
	case "contact":
		return service.ContactForm{}
	case "apply":
		return service.ApplicationForm{}
	default:
		return nil
	}
}

// SubmitContact 处理联系页表单。
func (a *API) SubmitContact(c *gin.Context) {
	var form service.ContactForm
	if err := c.ShouldBind(&form); err != nil {
		a.renderPublic(c, "contact", http.StatusBadRequest, gin.H{"formError": "Please check the form and try again.", "form": form})
		return
	}

	if err := a.inquiries.SubmitContact(c.Request.Context(), form); err != nil {
		status, message := formFailure(err)
		logger.Warn().Err(err).Str("form", "contact").Msg("contact submission rejected")
		a.renderPublic(c, "contact", status, gin.H{"formError": message, "form": form})
		return
	}

	logger.Info().Str("form", "contact").Msg("contact request submitted")
	addFlash(c, "success", "Thank you! Your message has been sent.")
	c.Redirect(http.StatusSeeOther, "/contact?sent=1")
}

// SubmitApplication 处理在线报名表单。
func (a *API) SubmitApplication(c *gin.Context) {
	var form service.ApplicationForm
	if err := c.ShouldBind(&form); err != nil {
		a.renderPublic(c, "apply", http.StatusBadRequest, gin.H{"formError": "Please check the form and try again.", "form": form})
		return
	}

	if err := a.inquiries.SubmitApplication(c.Request.Context(), form); err != nil {
		status, message := formFailure(err)
		logger.Warn().Err(err).Str("form", "apply").Msg("application rejected")
		a.renderPublic(c, "apply", status, gin.H{"formError": message, "form": form})
		return
	}

	logger.Info().Str("form", "apply").Msg("application submitted")
	c.Redirect(http.StatusSeeOther, "/apply?submitted=1")
}

// ShowApply renders the apply page; submitted=1 shows the success_message section.
func (a *API) ShowApply(c *gin.Context) {
	a.renderPublic(c, "apply", http.StatusOK, gin.H{"submitted": c.Query("submitted") == "1"})
}

// ShowContact renders the contact page; sent=1 shows the confirmation banner.
func (a *API) ShowContact(c *gin.Context) {
	a.renderPublic(c, "contact", http.StatusOK, gin.H{"sent": c.Query("sent") == "1"})
}

// FormRateLimited is the response when a visitor posts forms too quickly.
func (a *API) FormRateLimited(c *gin.Context) {
	addFlash(c, "error", "Too many submissions. Please wait a moment and try again.")
	c.Redirect(http.StatusSeeOther, c.Request.URL.Path)
}

// formFailure 区分校验错误与后端错误。
func formFailure(err error) (int, string) {
	var apiErr *sitecontent.APIError
	var netErr *sitecontent.NetworkError
	switch {
	case errors.As(err, &apiErr):
		if apiErr.Detail != "" {
			return http.StatusBadGateway, apiErr.Detail
		}
		return http.StatusBadGateway, "Submission failed. Please try again."
	case errors.As(err, &netErr):
		return http.StatusBadGateway, "Submission failed. Please try again."
	default:
		return http.StatusBadRequest, err.Error()
	}
}
