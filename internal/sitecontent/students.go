package sitecontent

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Student is a row of GET /students/.
type Student struct {
	ID               uint   `json:"id"`
	StudentID        string `json:"student_id"`
	RollNo           string `json:"roll_no"`
	Name             string `json:"name"`
	ClassID          *uint  `json:"class_id"`
	ClassName        string `json:"class_name"`
	Section          string `json:"section"`
	DOB              string `json:"dob"`
	Gender           string `json:"gender"`
	BloodGroup       string `json:"blood_group"`
	Religion         string `json:"religion"`
	AdmissionID      string `json:"admission_id"`
	FatherName       string `json:"father_name"`
	FatherOccupation string `json:"father_occupation"`
	MotherName       string `json:"mother_name"`
	MotherOccupation string `json:"mother_occupation"`
	Phone            string `json:"phone"`
	Email            string `json:"email"`
	Address          string `json:"address"`
	ProfileImage     string `json:"profile_image"`
	IsActive         bool   `json:"is_active"`
}

// StudentQuery narrows the backend listing.
type StudentQuery struct {
	Search  string
	ClassID uint
	Limit   int
	Offset  int
}

// StudentInput is the POST /students/ body.
type StudentInput struct {
	Name             string  `json:"name" form:"name"`
	RollNo           string  `json:"roll_no,omitempty" form:"roll_no"`
	ClassID          *uint   `json:"class_id" form:"-"`
	Section          string  `json:"section,omitempty" form:"section"`
	DOB              *string `json:"dob" form:"-"`
	Gender           string  `json:"gender,omitempty" form:"gender"`
	BloodGroup       string  `json:"blood_group,omitempty" form:"blood_group"`
	Religion         string  `json:"religion,omitempty" form:"religion"`
	FatherName       string  `json:"father_name,omitempty" form:"father_name"`
	FatherOccupation string  `json:"father_occupation,omitempty" form:"father_occupation"`
	MotherName       string  `json:"mother_name,omitempty" form:"mother_name"`
	MotherOccupation string  `json:"mother_occupation,omitempty" form:"mother_occupation"`
	Phone            string  `json:"phone,omitempty" form:"phone"`
	Email            string  `json:"email,omitempty" form:"email"`
	Address          string  `json:"address,omitempty" form:"address"`
}

// Validate 学生姓名必填，邮箱填写时需合法。
func (in StudentInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.By(requireText("name is required"))),
		validation.Field(&in.Email, is.EmailFormat),
		validation.Field(&in.Gender, validation.In("", "Male", "Female", "Other")),
	)
}

// SchoolClass is a row of GET /classes/.
type SchoolClass struct {
	ID        uint   `json:"id"`
	ClassName string `json:"class_name"`
	Grade     string `json:"grade"`
	Section   string `json:"section"`
	IsActive  bool   `json:"is_active"`
}

// ListStudents returns students matching the query.
func (c *Client) ListStudents(ctx context.Context, token string, query StudentQuery) ([]Student, error) {
	values := url.Values{}
	if search := strings.TrimSpace(query.Search); search != "" {
		values.Set("search", search)
	}
	if query.ClassID > 0 {
		values.Set("class_id", strconv.FormatUint(uint64(query.ClassID), 10))
	}
	if query.Limit > 0 {
		values.Set("limit", strconv.Itoa(query.Limit))
	}
	if query.Offset > 0 {
		values.Set("offset", strconv.Itoa(query.Offset))
	}

	var students []Student
	if err := c.do(ctx, request{method: http.MethodGet, path: "/students/", token: token, query: values}, &students); err != nil {
		return nil, err
	}
	return students, nil
}

// CreateStudent posts a validated student.
func (c *Client) CreateStudent(ctx context.Context, token string, input StudentInput) (Student, error) {
	if err := input.Validate(); err != nil {
		return Student{}, err
	}
	input.Name = strings.TrimSpace(input.Name)

	var created Student
	if err := c.do(ctx, request{method: http.MethodPost, path: "/students/", token: token, body: input}, &created); err != nil {
		return Student{}, err
	}
	return created, nil
}

// ListClasses returns all school classes.
func (c *Client) ListClasses(ctx context.Context, token string) ([]SchoolClass, error) {
	var classes []SchoolClass
	if err := c.do(ctx, request{method: http.MethodGet, path: "/classes/", token: token}, &classes); err != nil {
		return nil, err
	}
	return classes, nil
}

func requireText(message string) validation.RuleFunc {
	return func(value any) error {
		text, _ := value.(string)
		if strings.TrimSpace(text) == "" {
			return validation.NewError("validation_required", message)
		}
		return nil
	}
}
