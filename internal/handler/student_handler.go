package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/edunet/internal/logger"
	"github.com/edunet/internal/service"
	"github.com/edunet/internal/sitecontent"
	"github.com/gin-gonic/gin"
)

func studentFilter(c *gin.Context) service.StudentFilter {
	return service.StudentFilter{
		Search: strings.TrimSpace(c.Query("search")),
		Class:  strings.TrimSpace(c.DefaultQuery("class", service.AllClasses)),
	}
}

// ShowStudents 渲染学生列表、统计与新增表单。
func (a *API) ShowStudents(c *gin.Context) {
	a.renderStudents(c, http.StatusOK, nil)
}

func (a *API) renderStudents(c *gin.Context, status int, extra gin.H) {
	listing, err := a.students.List(c.Request.Context(), adminToken(c), studentFilter(c))
	if err != nil {
		if handleUnauthorized(c, err) {
			return
		}
		logger.Error().Err(err).Msg("load students failed")
		a.renderHTML(c, http.StatusBadGateway, "students.html", gin.H{
			"title": "Students",
			"error": "Failed to load students",
		})
		return
	}

	data := gin.H{
		"title":   "Students",
		"listing": listing,
		"formats": []string{"csv", "json", "excel"},
		"form":    sitecontent.StudentInput{},
		"flashes": takeFlashes(c),
	}
	for key, value := range extra {
		data[key] = value
	}
	a.renderHTML(c, status, "students.html", data)
}

// CreateStudent 校验并新增学生；姓名为空时回显表单且不请求后端。
func (a *API) CreateStudent(c *gin.Context) {
	var input sitecontent.StudentInput
	if err := c.ShouldBind(&input); err != nil {
		a.renderStudents(c, http.StatusBadRequest, gin.H{"formError": "Invalid student form", "form": input, "showForm": true})
		return
	}
	if classID, ok := parseUintValue(c.PostForm("class_id")); ok {
		input.ClassID = &classID
	}
	if dob := strings.TrimSpace(c.PostForm("dob")); dob != "" {
		input.DOB = &dob
	}

	student, err := a.students.Create(c.Request.Context(), adminToken(c), input)
	if err != nil {
		if handleUnauthorized(c, err) {
			return
		}
		status, message := formFailure(err)
		a.renderStudents(c, status, gin.H{"formError": message, "form": input, "showForm": true})
		return
	}

	logger.Info().Str("student", student.Name).Msg("student created")
	addFlash(c, "success", fmt.Sprintf("Student %s added.", student.Name))
	redirect(c, "/admin/students")
}

// ExportStudents 按当前筛选条件导出 csv / json / excel。
func (a *API) ExportStudents(c *gin.Context) {
	filter := studentFilter(c)
	listing, err := a.students.List(c.Request.Context(), adminToken(c), filter)
	if err != nil {
		if handleUnauthorized(c, err) {
			return
		}
		respondError(c, http.StatusBadGateway, "Failed to load students")
		return
	}

	file, err := a.students.Export(listing.Students, listing.Filter.Class, c.DefaultQuery("format", "csv"))
	if err != nil {
		if errors.Is(err, service.ErrUnsupportedFormat) {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
		logger.Error().Err(err).Msg("export students failed")
		respondError(c, http.StatusInternalServerError, "Export failed")
		return
	}

	logger.Info().Str("file", file.Name).Int("rows", file.Rows).Msg("students exported")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, file.Name))
	c.Header("X-Export-Rows", fmt.Sprint(file.Rows))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
