package sitecontent

import (
	"context"
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// ContactInput is the public contact form submission.
type ContactInput struct {
	Name     string `json:"name" form:"name"`
	Email    string `json:"email,omitempty" form:"email"`
	DialCode string `json:"dial_code,omitempty" form:"dial_code"`
	Phone    string `json:"phone,omitempty" form:"phone"`
	Subject  string `json:"subject,omitempty" form:"subject"`
	Message  string `json:"message,omitempty" form:"message"`
	Status   string `json:"status,omitempty" form:"-"`
}

func (in ContactInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.By(requireText("name is required")), validation.Length(0, 100)),
		validation.Field(&in.Email, validation.By(requireText("email is required")), is.EmailFormat, validation.Length(0, 100)),
		validation.Field(&in.Phone, validation.Length(0, 20)),
		validation.Field(&in.Subject, validation.Length(0, 100)),
		validation.Field(&in.Message, validation.By(requireText("message is required"))),
	)
}

// ApplicationInput is the public admission application.
type ApplicationInput struct {
	StudentName    string  `json:"student_name" form:"student_name"`
	ParentName     string  `json:"parent_name,omitempty" form:"parent_name"`
	Email          string  `json:"email,omitempty" form:"email"`
	Phone          string  `json:"phone,omitempty" form:"phone"`
	GradeApplying  string  `json:"grade_applying,omitempty" form:"grade_applying"`
	DateOfBirth    *string `json:"date_of_birth" form:"-"`
	Address        string  `json:"address,omitempty" form:"address"`
	PreviousSchool string  `json:"previous_school,omitempty" form:"previous_school"`
	Notes          string  `json:"notes,omitempty" form:"notes"`
	Status         string  `json:"status,omitempty" form:"-"`
}

func (in ApplicationInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.StudentName, validation.By(requireText("student name is required")), validation.Length(0, 100)),
		validation.Field(&in.ParentName, validation.Length(0, 100)),
		validation.Field(&in.Email, validation.By(requireText("email is required")), is.EmailFormat),
		validation.Field(&in.Phone, validation.By(requireText("phone is required")), validation.By(minPhoneDigits(10)), validation.Length(0, 50)),
		validation.Field(&in.GradeApplying, validation.By(requireText("grade is required"))),
		validation.Field(&in.DateOfBirth, validation.When(in.DateOfBirth != nil, validation.Date("2006-01-02"))),
	)
}

func minPhoneDigits(n int) validation.RuleFunc {
	return func(value any) error {
		text, _ := value.(string)
		cleaned := strings.NewReplacer(" ", "", "-", "").Replace(text)
		if cleaned != "" && len(cleaned) < n {
			return validation.NewError("validation_phone", "please enter a valid phone number")
		}
		return nil
	}
}

// SubmitContact posts a contact request; no token is needed.
func (c *Client) SubmitContact(ctx context.Context, input ContactInput) error {
	if err := input.Validate(); err != nil {
		return err
	}
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(input.Email)
	if input.DialCode == "" {
		input.DialCode = "+91"
	}
	input.Status = "new"
	return c.do(ctx, request{method: http.MethodPost, path: "/contacts/", body: input}, nil)
}

// SubmitApplication posts an admission application; no token is needed.
func (c *Client) SubmitApplication(ctx context.Context, input ApplicationInput) error {
	if err := input.Validate(); err != nil {
		return err
	}
	input.StudentName = strings.TrimSpace(input.StudentName)
	input.Status = "pending"
	return c.do(ctx, request{method: http.MethodPost, path: "/applications/", body: input}, nil)
}
