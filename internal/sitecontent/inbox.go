package sitecontent

import (
	"context"
	"net/http"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// 联系留言与报名申请的状态值。
const (
	ContactNew  = "new"
	ContactRead = "read"

	ApplicationPending  = "pending"
	ApplicationApproved = "approved"
	ApplicationRejected = "rejected"
)

// ContactRequest is a row of GET /contacts/.
type ContactRequest struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	DialCode  string `json:"dial_code"`
	Phone     string `json:"phone"`
	Subject   string `json:"subject"`
	Message   string `json:"message"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

// AdmissionRequest is a row of GET /applications/.
type AdmissionRequest struct {
	ID             uint    `json:"id"`
	StudentName    string  `json:"student_name"`
	ParentName     string  `json:"parent_name"`
	Email          string  `json:"email"`
	Phone          string  `json:"phone"`
	GradeApplying  string  `json:"grade_applying"`
	DateOfBirth    *string `json:"date_of_birth"`
	Address        string  `json:"address"`
	PreviousSchool string  `json:"previous_school"`
	Notes          string  `json:"notes"`
	Status         string  `json:"status"`
	CreatedAt      string  `json:"created_at"`
}

type statusUpdate struct {
	Status string `json:"status"`
}

// ValidContactStatus reports whether status may be stored on a contact request.
func ValidContactStatus(status string) error {
	return validation.Validate(status, validation.Required, validation.In(ContactNew, ContactRead))
}

// ValidApplicationStatus reports whether status may be stored on an application.
func ValidApplicationStatus(status string) error {
	return validation.Validate(status, validation.Required,
		validation.In(ApplicationPending, ApplicationApproved, ApplicationRejected))
}

// ListContacts returns every contact request.
func (c *Client) ListContacts(ctx context.Context, token string) ([]ContactRequest, error) {
	var contacts []ContactRequest
	if err := c.do(ctx, request{method: http.MethodGet, path: "/contacts/", token: token}, &contacts); err != nil {
		return nil, err
	}
	return contacts, nil
}

// UpdateContactStatus marks a contact request new or read.
func (c *Client) UpdateContactStatus(ctx context.Context, token string, id uint, status string) error {
	if err := ValidContactStatus(status); err != nil {
		return err
	}
	path := "/contacts/" + strconv.FormatUint(uint64(id), 10)
	return c.do(ctx, request{method: http.MethodPut, path: path, token: token, body: statusUpdate{Status: status}}, nil)
}

// DeleteContact removes a contact request.
func (c *Client) DeleteContact(ctx context.Context, token string, id uint) error {
	path := "/contacts/" + strconv.FormatUint(uint64(id), 10)
	return c.do(ctx, request{method: http.MethodDelete, path: path, token: token}, nil)
}

// ListApplications returns every admission application.
func (c *Client) ListApplications(ctx context.Context, token string) ([]AdmissionRequest, error) {
	var applications []AdmissionRequest
	if err := c.do(ctx, request{method: http.MethodGet, path: "/applications/", token: token}, &applications); err != nil {
		return nil, err
	}
	return applications, nil
}

// UpdateApplicationStatus approves or rejects an application.
func (c *Client) UpdateApplicationStatus(ctx context.Context, token string, id uint, status string) error {
	if err := ValidApplicationStatus(status); err != nil {
		return err
	}
	path := "/applications/" + strconv.FormatUint(uint64(id), 10)
	return c.do(ctx, request{method: http.MethodPut, path: path, token: token, body: statusUpdate{Status: status}}, nil)
}

// DeleteApplication removes an admission application.
func (c *Client) DeleteApplication(ctx context.Context, token string, id uint) error {
	path := "/applications/" + strconv.FormatUint(uint64(id), 10)
	return c.do(ctx, request{method: http.MethodDelete, path: path, token: token}, nil)
}
