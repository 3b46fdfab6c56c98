package service

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/edunet/internal/sitecontent"
	"github.com/microcosm-cc/bluemonday"
)

type inquiryBackend interface {
	SubmitContact(ctx context.Context, input sitecontent.ContactInput) error
	SubmitApplication(ctx context.Context, input sitecontent.ApplicationInput) error
}

// ContactForm 是联系页表单的原始字段。
type ContactForm struct {
	FirstName string `form:"first_name"`
	LastName  string `form:"last_name"`
	Email     string `form:"email"`
	Phone     string `form:"phone"`
	Subject   string `form:"subject"`
	Message   string `form:"message"`
}

// ApplicationForm 是在线报名表单的原始字段。
type ApplicationForm struct {
	StudentName    string `form:"student_name"`
	DateOfBirth    string `form:"dob"`
	Gender         string `form:"gender"`
	Grade          string `form:"grade"`
	FatherName     string `form:"father_name"`
	MotherName     string `form:"mother_name"`
	Email          string `form:"email"`
	Phone          string `form:"phone"`
	PreviousSchool string `form:"previous_school"`
	Address        string `form:"address"`
}

// InquiryService 清洗公开表单输入并提交到后端。
type InquiryService struct {
	backend inquiryBackend
	policy  *bluemonday.Policy
}

// NewInquiryService 构造 InquiryService。
func NewInquiryService(backend inquiryBackend) *InquiryService {
	return &InquiryService{backend: backend, policy: bluemonday.StrictPolicy()}
}

// sanitize drops markup and quote characters from free text.
func (s *InquiryService) sanitize(value string) string {
	cleaned := html.UnescapeString(s.policy.Sanitize(value))
	cleaned = strings.NewReplacer("<", "", ">", "", "'", "", `"`, "").Replace(cleaned)
	return strings.TrimSpace(cleaned)
}

// ContactInput converts the raw form into the backend payload.
func (s *InquiryService) ContactInput(form ContactForm) sitecontent.ContactInput {
	name := strings.TrimSpace(strings.TrimSpace(form.FirstName) + " " + strings.TrimSpace(form.LastName))
	return sitecontent.ContactInput{
		Name:     s.sanitize(name),
		Email:    strings.ToLower(s.sanitize(form.Email)),
		DialCode: "+91",
		Phone:    s.sanitize(form.Phone),
		Subject:  strings.TrimSpace(form.Subject),
		Message:  s.sanitize(form.Message),
	}
}

// SubmitContact 校验并提交联系表单。
func (s *InquiryService) SubmitContact(ctx context.Context, form ContactForm) error {
	input := s.ContactInput(form)
	if err := input.Validate(); err != nil {
		return err
	}
	return s.backend.SubmitContact(ctx, input)
}

// GradeLabel maps the grade option to the stored label ("KG" is Kindergarten).
func GradeLabel(grade string) string {
	grade = strings.TrimSpace(grade)
	switch grade {
	case "":
		return ""
	case "KG":
		return "Kindergarten"
	default:
		return "Grade " + grade
	}
}

// ApplicationInput converts the raw form into the backend payload.
func (s *InquiryService) ApplicationInput(form ApplicationForm) sitecontent.ApplicationInput {
	father := s.sanitize(form.FatherName)
	mother := s.sanitize(form.MotherName)
	parent := father
	if parent == "" {
		parent = mother
	}

	input := sitecontent.ApplicationInput{
		StudentName:    s.sanitize(form.StudentName),
		ParentName:     parent,
		Email:          strings.ToLower(s.sanitize(form.Email)),
		Phone:          s.sanitize(form.Phone),
		GradeApplying:  GradeLabel(form.Grade),
		Address:        s.sanitize(form.Address),
		PreviousSchool: s.sanitize(form.PreviousSchool),
		Notes:          fmt.Sprintf("Gender: %s. Father: %s. Mother: %s.", strings.TrimSpace(form.Gender), father, mother),
	}
	if dob := strings.TrimSpace(form.DateOfBirth); dob != "" {
		input.DateOfBirth = &dob
	}
	return input
}

// SubmitApplication 校验并提交报名表单。
func (s *InquiryService) SubmitApplication(ctx context.Context, form ApplicationForm) error {
	input := s.ApplicationInput(form)
	if err := input.Validate(); err != nil {
		return err
	}
	return s.backend.SubmitApplication(ctx, input)
}
