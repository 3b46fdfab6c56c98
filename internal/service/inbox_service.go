package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	"github.com/edunet/internal/sitecontent"
)

// AllStatuses is the status filter value meaning "no filter".
const AllStatuses = "All"

type inboxBackend interface {
	ListContacts(ctx context.Context, token string) ([]sitecontent.ContactRequest, error)
	UpdateContactStatus(ctx context.Context, token string, id uint, status string) error
	DeleteContact(ctx context.Context, token string, id uint) error
	ListApplications(ctx context.Context, token string) ([]sitecontent.AdmissionRequest, error)
	UpdateApplicationStatus(ctx context.Context, token string, id uint, status string) error
	DeleteApplication(ctx context.Context, token string, id uint) error
}

// InboxFilter 对应收件箱的搜索框与状态下拉框。
type InboxFilter struct {
	Search string
	Status string
}

func (f InboxFilter) normalize() InboxFilter {
	f.Search = strings.TrimSpace(f.Search)
	f.Status = strings.TrimSpace(f.Status)
	if f.Status == "" {
		f.Status = AllStatuses
	}
	return f
}

func (f InboxFilter) matchesStatus(status string) bool {
	return f.Status == AllStatuses || strings.EqualFold(status, f.Status)
}

func containsFold(needle string, fields ...string) bool {
	needle = strings.ToLower(needle)
	for _, field := range fields {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

// ContactInbox is the data behind the contact requests tab.
type ContactInbox struct {
	Requests []sitecontent.ContactRequest
	Total    int
	Filter   InboxFilter
	Shown    int
	New      int
}

// ApplicationInbox is the data behind the admission requests tab.
type ApplicationInbox struct {
	Requests []sitecontent.AdmissionRequest
	Total    int
	Filter   InboxFilter
	Shown    int
	Pending  int
	Approved int
}

// FilterContacts 按姓名、主题或邮箱搜索；统计基于筛选后的结果。
func FilterContacts(requests []sitecontent.ContactRequest, filter InboxFilter) ContactInbox {
	filter = filter.normalize()
	inbox := ContactInbox{Requests: make([]sitecontent.ContactRequest, 0, len(requests)), Total: len(requests), Filter: filter}
	for _, request := range requests {
		if !containsFold(filter.Search, request.Name, request.Subject, request.Email) || !filter.matchesStatus(request.Status) {
			continue
		}
		inbox.Requests = append(inbox.Requests, request)
		if request.Status == sitecontent.ContactNew {
			inbox.New++
		}
	}
	inbox.Shown = len(inbox.Requests)
	return inbox
}

// FilterApplications 按学生姓名、家长姓名或邮箱搜索；统计基于筛选后的结果。
func FilterApplications(requests []sitecontent.AdmissionRequest, filter InboxFilter) ApplicationInbox {
	filter = filter.normalize()
	inbox := ApplicationInbox{Requests: make([]sitecontent.AdmissionRequest, 0, len(requests)), Total: len(requests), Filter: filter}
	for _, request := range requests {
		if !containsFold(filter.Search, request.StudentName, request.ParentName, request.Email) || !filter.matchesStatus(request.Status) {
			continue
		}
		inbox.Requests = append(inbox.Requests, request)
		switch strings.ToLower(request.Status) {
		case sitecontent.ApplicationPending:
			inbox.Pending++
		case sitecontent.ApplicationApproved:
			inbox.Approved++
		}
	}
	inbox.Shown = len(inbox.Requests)
	return inbox
}

// InboxService 管理公开表单提交上来的留言与报名申请。
type InboxService struct {
	backend inboxBackend
}

// NewInboxService 构造 InboxService。
func NewInboxService(backend inboxBackend) *InboxService {
	return &InboxService{backend: backend}
}

// Contacts 拉取留言并在本地过滤。
func (s *InboxService) Contacts(ctx context.Context, token string, filter InboxFilter) (ContactInbox, error) {
	requests, err := s.backend.ListContacts(ctx, token)
	if err != nil {
		return ContactInbox{}, err
	}
	return FilterContacts(requests, filter), nil
}

// Applications 拉取报名申请并在本地过滤。
func (s *InboxService) Applications(ctx context.Context, token string, filter InboxFilter) (ApplicationInbox, error) {
	requests, err := s.backend.ListApplications(ctx, token)
	if err != nil {
		return ApplicationInbox{}, err
	}
	return FilterApplications(requests, filter), nil
}

func (s *InboxService) SetContactStatus(ctx context.Context, token string, id uint, status string) error {
	return s.backend.UpdateContactStatus(ctx, token, id, strings.ToLower(strings.TrimSpace(status)))
}

func (s *InboxService) DeleteContact(ctx context.Context, token string, id uint) error {
	return s.backend.DeleteContact(ctx, token, id)
}

func (s *InboxService) SetApplicationStatus(ctx context.Context, token string, id uint, status string) error {
	return s.backend.UpdateApplicationStatus(ctx, token, id, strings.ToLower(strings.TrimSpace(status)))
}

func (s *InboxService) DeleteApplication(ctx context.Context, token string, id uint) error {
	return s.backend.DeleteApplication(ctx, token, id)
}

// ApplicationExportHeaders are the columns of the admission requests CSV.
var ApplicationExportHeaders = []string{"Student Name", "Parent Name", "Email", "Phone", "Grade", "Status", "Applied On"}

// FormatInboxDate renders a backend timestamp as "Jan 2, 2006", or N/A.
func FormatInboxDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "N/A"
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02T15:04:05", "2006-01-02"} {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed.Format("Jan 2, 2006")
		}
	}
	return raw
}

// ExportApplications 生成筛选后报名申请的 CSV。
func (s *InboxService) ExportApplications(requests []sitecontent.AdmissionRequest) (ExportFile, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write(ApplicationExportHeaders); err != nil {
		return ExportFile{}, err
	}
	for _, request := range requests {
		row := []string{
			request.StudentName,
			request.ParentName,
			request.Email,
			request.Phone,
			request.GradeApplying,
			request.Status,
			FormatInboxDate(request.CreatedAt),
		}
		if err := writer.Write(row); err != nil {
			return ExportFile{}, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return ExportFile{}, fmt.Errorf("write csv: %w", err)
	}
	return ExportFile{Name: "admission_requests.csv", ContentType: "text/csv", Data: buf.Bytes(), Rows: len(requests)}, nil
}
