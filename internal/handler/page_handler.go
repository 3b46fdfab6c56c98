package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/edunet/internal/content"
	"github.com/edunet/internal/logger"
	"github.com/edunet/internal/service"
	"github.com/edunet/internal/view"
	"github.com/gin-gonic/gin"
)

const (
	viewEdit    = "edit"
	viewSplit   = "split"
	viewPreview = "preview"

	fieldPrefix = "f:"
	itemPrefix  = "i:"
)

func viewMode(raw string) string {
	mode := strings.TrimSpace(raw)
	switch mode {
	case viewEdit, viewPreview:
		return mode
	default:
		return viewSplit
	}
}

func backToEditor(c *gin.Context, slug, open string) {
	query := url.Values{}
	if mode := viewMode(c.PostForm("view")); mode != viewSplit {
		query.Set("view", mode)
	}
	if open != "" {
		query.Set("open", open)
	}
	redirect(c, editorURL(slug, query))
}

// ShowEditor 渲染某个页面的编辑器。
func (a *API) ShowEditor(c *gin.Context) {
	slug := c.Param("slug")
	session := editorSession(c)

	workspace, err := a.editor.Open(c.Request.Context(), session, adminToken(c), slug)
	if err != nil {
		if handleUnauthorized(c, err) {
			return
		}
		status := http.StatusBadGateway
		if errors.Is(err, service.ErrInvalidPage) {
			status = http.StatusNotFound
		}
		logger.Error().Err(err).Str("page", slug).Msg("open editor failed")
		a.renderHTML(c, status, "editor.html", gin.H{
			"title": content.Describe(slug).Label,
			"slug":  slug,
			"error": "Failed to load page content",
			"view":  viewEdit,
		})
		return
	}

	a.renderHTML(c, http.StatusOK, "editor.html", gin.H{
		"title":     workspace.Page.Label,
		"slug":      slug,
		"workspace": workspace,
		"view":      viewMode(c.Query("view")),
		"open":      strings.TrimSpace(c.Query("open")),
		"icons":     view.IconNames(),
		"flashes":   takeFlashes(c),
	})
}

// collectEdits 把 section 表单字段转换为一组修改。
// 标量字段名为 "f:<path>"，列表项字段名为 "i:<list>:<itemID>:<field>"。
func collectEdits(def content.SectionDef, form url.Values) []service.Edit {
	edits := make([]service.Edit, 0, len(form))
	for name, values := range form {
		if len(values) == 0 {
			continue
		}
		value := values[len(values)-1]
		switch {
		case strings.HasPrefix(name, fieldPrefix):
			path := strings.TrimPrefix(name, fieldPrefix)
			if path == "" {
				continue
			}
			edits = append(edits, service.Edit{Path: path, Value: fieldValue(def.Fields, path, value)})
		case strings.HasPrefix(name, itemPrefix):
			parts := strings.SplitN(strings.TrimPrefix(name, itemPrefix), ":", 3)
			if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
				continue
			}
			var fields []content.Field
			if list, ok := def.List(parts[0]); ok {
				fields = list.ItemFields
			}
			edits = append(edits, service.Edit{
				Path:   parts[0],
				ItemID: parts[1],
				Field:  parts[2],
				Value:  fieldValue(fields, parts[2], value),
			})
		}
	}
	return edits
}

// fieldValue converts a textarea of FieldLines kind into a list, one entry per line.
func fieldValue(fields []content.Field, path, raw string) any {
	for _, field := range fields {
		if field.Path != path || field.Kind != content.FieldLines {
			continue
		}
		lines := make([]any, 0)
		for _, line := range strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				lines = append(lines, line)
			}
		}
		return lines
	}
	return raw
}

// UpdateSection 应用 section 表单中的修改；HTMX 请求直接返回 204，预览通过 SSE 刷新。
func (a *API) UpdateSection(c *gin.Context) {
	slug, key := c.Param("slug"), c.Param("key")
	session := editorSession(c)
	if err := c.Request.ParseForm(); err != nil {
		respondError(c, http.StatusBadRequest, "invalid form")
		return
	}

	if err := a.applyPostedEdits(c, session, slug, key); err != nil {
		a.editFailed(c, slug, key, err)
		return
	}
	if raw := strings.TrimSpace(c.PostForm("order_index")); raw != "" {
		if section, ok := a.currentSection(session, slug, key); ok {
			if order := parseIntForm(c, "order_index", section.OrderIndex); order != section.OrderIndex {
				if _, err := a.editor.SetOrder(session, slug, key, order); err != nil {
					a.editFailed(c, slug, key, err)
					return
				}
			}
		}
	}

	if isHTMX(c) {
		c.Status(http.StatusNoContent)
		return
	}
	backToEditor(c, slug, key)
}

// applyPostedEdits keeps field values typed into the section form when a
// list button (add, remove, move, save) submits it.
func (a *API) applyPostedEdits(c *gin.Context, session, slug, key string) error {
	if err := c.Request.ParseForm(); err != nil {
		return err
	}
	def, _ := content.Describe(slug).Section(key)
	edits := collectEdits(def, c.Request.PostForm)
	if len(edits) == 0 {
		return nil
	}
	_, err := a.editor.ApplyEdits(session, slug, key, edits)
	return err
}

func (a *API) currentSection(session, slug, key string) (service.DraftSection, bool) {
	workspace, err := a.editor.Workspace(session, slug)
	if err != nil {
		return service.DraftSection{}, false
	}
	return workspace.Section(key)
}

func (a *API) editFailed(c *gin.Context, slug, key string, err error) {
	logger.Warn().Err(err).Str("page", slug).Str("section", key).Msg("edit rejected")
	message := "Failed to update section."
	switch {
	case errors.Is(err, service.ErrSectionNotFound):
		message = "Section not found. Reload the page and try again."
	case errors.Is(err, service.ErrUnknownList), errors.Is(err, content.ErrItemNotFound), errors.Is(err, content.ErrListNotFound):
		message = "That item no longer exists. Reload the page and try again."
	}
	if isHTMX(c) {
		respondError(c, http.StatusUnprocessableEntity, message)
		return
	}
	addFlash(c, "error", message)
	backToEditor(c, slug, key)
}

// AddListItem 在列表末尾追加一项。
func (a *API) AddListItem(c *gin.Context) {
	slug, key := c.Param("slug"), c.Param("key")
	session := editorSession(c)
	if err := a.applyPostedEdits(c, session, slug, key); err != nil {
		a.editFailed(c, slug, key, err)
		return
	}
	if _, _, err := a.editor.AddItem(session, slug, key, c.PostForm("list")); err != nil {
		a.editFailed(c, slug, key, err)
		return
	}
	backToEditor(c, slug, key)
}

// RemoveListItem 删除列表中的一项。
func (a *API) RemoveListItem(c *gin.Context) {
	slug, key := c.Param("slug"), c.Param("key")
	session := editorSession(c)
	if err := a.applyPostedEdits(c, session, slug, key); err != nil {
		a.editFailed(c, slug, key, err)
		return
	}
	if _, err := a.editor.RemoveItem(session, slug, key, c.PostForm("list"), c.Param("item")); err != nil {
		a.editFailed(c, slug, key, err)
		return
	}
	backToEditor(c, slug, key)
}

// MoveListItem 上移（delta=-1）或下移（delta=1）列表项。
func (a *API) MoveListItem(c *gin.Context) {
	slug, key := c.Param("slug"), c.Param("key")
	session := editorSession(c)
	if err := a.applyPostedEdits(c, session, slug, key); err != nil {
		a.editFailed(c, slug, key, err)
		return
	}
	delta := parseIntForm(c, "delta", 0)
	if delta == 0 {
		delta, _ = strconv.Atoi(c.Query("delta"))
	}
	if _, err := a.editor.MoveItem(session, slug, key, c.PostForm("list"), c.Param("item"), delta); err != nil {
		a.editFailed(c, slug, key, err)
		return
	}
	backToEditor(c, slug, key)
}

// ToggleSection 切换 section 的 is_active。
func (a *API) ToggleSection(c *gin.Context) {
	slug, key := c.Param("slug"), c.Param("key")
	active := c.PostForm("active") == "true"
	if _, err := a.editor.SetActive(editorSession(c), slug, key, active); err != nil {
		a.editFailed(c, slug, key, err)
		return
	}
	backToEditor(c, slug, key)
}

// SaveSection PUT 单个 section 到后端。
func (a *API) SaveSection(c *gin.Context) {
	slug, key := c.Param("slug"), c.Param("key")
	session := editorSession(c)
	if err := a.applyPostedEdits(c, session, slug, key); err != nil {
		a.editFailed(c, slug, key, err)
		return
	}
	saved, err := a.editor.SaveSection(c.Request.Context(), session, adminToken(c), slug, key)
	if err != nil {
		if handleUnauthorized(c, err) {
			return
		}
		addFlash(c, "error", "Failed to save section.")
		backToEditor(c, slug, key)
		return
	}
	if saved {
		addFlash(c, "success", "Section saved successfully!")
	} else {
		addFlash(c, "info", "Nothing to save for this section.")
	}
	backToEditor(c, slug, key)
}

// SaveAllSections 依次保存整页，遇到第一个失败即停止。
func (a *API) SaveAllSections(c *gin.Context) {
	slug := c.Param("slug")
	saved, err := a.editor.SaveAll(c.Request.Context(), editorSession(c), adminToken(c), slug)
	if err != nil {
		if handleUnauthorized(c, err) {
			return
		}
		addFlash(c, "error", fmt.Sprintf("Failed to save section. %d section(s) were saved before the error.", saved))
		backToEditor(c, slug, "")
		return
	}
	addFlash(c, "success", fmt.Sprintf("Saved %d section(s).", saved))
	backToEditor(c, slug, "")
}

// DiscardDrafts 丢弃草稿并重新从后端加载。
func (a *API) DiscardDrafts(c *gin.Context) {
	slug := c.Param("slug")
	if err := a.editor.Discard(editorSession(c), slug); err != nil {
		logger.Error().Err(err).Str("page", slug).Msg("discard drafts failed")
		addFlash(c, "error", "Failed to discard changes.")
	} else {
		addFlash(c, "info", "Unsaved changes discarded.")
	}
	backToEditor(c, slug, "")
}

// SeedPage 为空页面生成默认内容。
func (a *API) SeedPage(c *gin.Context) {
	slug := c.Param("slug")
	if err := a.editor.Seed(c.Request.Context(), editorSession(c), adminToken(c), slug); err != nil {
		if handleUnauthorized(c, err) {
			return
		}
		logger.Error().Err(err).Str("page", slug).Msg("seed page failed")
		addFlash(c, "error", "Failed to seed content.")
		backToEditor(c, slug, "")
		return
	}
	addFlash(c, "success", "Default content created.")
	backToEditor(c, slug, "")
}

// ShowPreview 用公开页面的模板渲染当前草稿。
func (a *API) ShowPreview(c *gin.Context) {
	slug := c.Param("slug")
	workspace, err := a.editor.Workspace(editorSession(c), slug)
	if err != nil {
		logger.Error().Err(err).Str("page", slug).Msg("load preview failed")
		c.String(http.StatusInternalServerError, "Failed to load preview")
		return
	}

	page := workspace.PreviewPage()
	a.renderHTML(c, http.StatusOK, "preview.html", gin.H{
		"title":   workspace.Page.Label,
		"slug":    slug,
		"page":    page,
		"data":    page.Data,
		"empty":   len(page.Sections) == 0,
		"chrome":  a.chrome(c),
		"form":    blankForm(slug),
		"preview": true,
	})
}

// PreviewEvents 通过 SSE 推送预览刷新事件。
func (a *API) PreviewEvents(c *gin.Context) {
	slug := c.Param("slug")
	topic := service.PreviewTopic(editorSession(c), slug)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	id, events := a.preview.Subscribe(topic)
	defer a.preview.Unsubscribe(topic, id)
	logger.Debug().Str("client_id", id).Str("page", slug).Int("total", a.preview.ClientCount(topic)).Msg("preview client connected")

	heartbeat := time.NewTicker(25 * time.Second)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-events:
			if !ok {
				return false
			}
			data, err := json.Marshal(event)
			if err != nil {
				logger.Error().Err(err).Msg("preview event marshal error")
				return true
			}
			fmt.Fprintf(w, "event: refresh\ndata: %s\n\n", data)
			return true
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			return true
		case <-c.Request.Context().Done():
			logger.Debug().Str("client_id", id).Msg("preview client disconnected")
			return false
		}
	})
}
