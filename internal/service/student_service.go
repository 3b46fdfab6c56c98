package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/edunet/internal/sitecontent"
	"github.com/xuri/excelize/v2"
)

// ErrUnsupportedFormat 表示导出格式不受支持。
var ErrUnsupportedFormat = errors.New("unsupported export format")

// AllClasses is the class filter value meaning "no filter".
const AllClasses = "All"

type studentBackend interface {
	ListStudents(ctx context.Context, token string, query sitecontent.StudentQuery) ([]sitecontent.Student, error)
	CreateStudent(ctx context.Context, token string, input sitecontent.StudentInput) (sitecontent.Student, error)
	ListClasses(ctx context.Context, token string) ([]sitecontent.SchoolClass, error)
}

// StudentFilter 对应学生列表页的搜索框与班级下拉框。
type StudentFilter struct {
	Search string
	Class  string
}

// StudentStats summarises the filtered rows.
type StudentStats struct {
	Total  int
	Male   int
	Female int
}

// StudentListing is the data behind the students admin page.
type StudentListing struct {
	Students []sitecontent.Student
	Total    int
	Classes  []sitecontent.SchoolClass
	Filter   StudentFilter
	Stats    StudentStats
}

// ExportFile is a generated download.
type ExportFile struct {
	Name        string
	ContentType string
	Data        []byte
	Rows        int
}

// ExportHeaders are the column names of every export format.
var ExportHeaders = []string{
	"Student ID", "Name", "Class", "Section", "Roll No", "Gender", "Date of Birth", "Blood Group",
	"Religion", "Father Name", "Father Occupation", "Mother Name", "Mother Occupation", "Phone", "Email", "Address",
}

const studentPageLimit = 200

// StudentService 负责学生列表的筛选、统计与导出。
type StudentService struct {
	backend studentBackend
}

// NewStudentService 构造 StudentService。
func NewStudentService(backend studentBackend) *StudentService {
	return &StudentService{backend: backend}
}

// List 拉取全部学生并在本地按搜索词与班级过滤。
func (s *StudentService) List(ctx context.Context, token string, filter StudentFilter) (StudentListing, error) {
	students, err := s.fetchAll(ctx, token)
	if err != nil {
		return StudentListing{}, err
	}
	classes, err := s.backend.ListClasses(ctx, token)
	if err != nil {
		return StudentListing{}, err
	}

	filter = normalizeFilter(filter)
	filtered := FilterStudents(students, filter)
	return StudentListing{
		Students: filtered,
		Total:    len(students),
		Classes:  classes,
		Filter:   filter,
		Stats:    ComputeStats(filtered),
	}, nil
}

func (s *StudentService) fetchAll(ctx context.Context, token string) ([]sitecontent.Student, error) {
	var all []sitecontent.Student
	for offset := 0; ; offset += studentPageLimit {
		page, err := s.backend.ListStudents(ctx, token, sitecontent.StudentQuery{Limit: studentPageLimit, Offset: offset})
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < studentPageLimit {
			return all, nil
		}
	}
}

// Create validates and posts a new student.
func (s *StudentService) Create(ctx context.Context, token string, input sitecontent.StudentInput) (sitecontent.Student, error) {
	if err := input.Validate(); err != nil {
		return sitecontent.Student{}, err
	}
	return s.backend.CreateStudent(ctx, token, input)
}

func normalizeFilter(filter StudentFilter) StudentFilter {
	filter.Search = strings.TrimSpace(filter.Search)
	filter.Class = strings.TrimSpace(filter.Class)
	if filter.Class == "" {
		filter.Class = AllClasses
	}
	return filter
}

// FilterStudents 按姓名或学号（不区分大小写）搜索，班级按名称子串匹配，"All" 表示不过滤。
func FilterStudents(students []sitecontent.Student, filter StudentFilter) []sitecontent.Student {
	filter = normalizeFilter(filter)
	needle := strings.ToLower(filter.Search)
	out := make([]sitecontent.Student, 0, len(students))
	for _, student := range students {
		matchesSearch := strings.Contains(strings.ToLower(student.Name), needle) ||
			strings.Contains(strings.ToLower(student.StudentID), needle)
		matchesClass := filter.Class == AllClasses || strings.Contains(student.ClassName, filter.Class)
		if matchesSearch && matchesClass {
			out = append(out, student)
		}
	}
	return out
}

// ComputeStats counts total, male and female rows.
func ComputeStats(students []sitecontent.Student) StudentStats {
	stats := StudentStats{Total: len(students)}
	for _, student := range students {
		switch strings.ToLower(strings.TrimSpace(student.Gender)) {
		case "male":
			stats.Male++
		case "female":
			stats.Female++
		}
	}
	return stats
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// ExportBaseName returns all_students or <class_with_underscores>_students.
func ExportBaseName(class string) string {
	class = strings.TrimSpace(class)
	if class == "" || class == AllClasses {
		return "all_students"
	}
	return whitespaceRun.ReplaceAllString(class, "_") + "_students"
}

func orNA(value string) string {
	if strings.TrimSpace(value) == "" {
		return "N/A"
	}
	return value
}

// ExportRow flattens a student into the export columns.
func ExportRow(student sitecontent.Student) []string {
	return []string{
		student.StudentID,
		student.Name,
		orNA(student.ClassName),
		orNA(student.Section),
		orNA(student.RollNo),
		orNA(student.Gender),
		orNA(student.DOB),
		orNA(student.BloodGroup),
		orNA(student.Religion),
		orNA(student.FatherName),
		orNA(student.FatherOccupation),
		orNA(student.MotherName),
		orNA(student.MotherOccupation),
		orNA(student.Phone),
		orNA(student.Email),
		orNA(student.Address),
	}
}

// Export 生成 csv / json / xlsx 文件，行数与筛选结果一致。
func (s *StudentService) Export(students []sitecontent.Student, class, format string) (ExportFile, error) {
	base := ExportBaseName(class)
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "csv":
		data, err := exportCSV(students)
		if err != nil {
			return ExportFile{}, err
		}
		return ExportFile{Name: base + ".csv", ContentType: "text/csv", Data: data, Rows: len(students)}, nil
	case "json":
		data, err := exportJSON(students)
		if err != nil {
			return ExportFile{}, err
		}
		return ExportFile{Name: base + ".json", ContentType: "application/json", Data: data, Rows: len(students)}, nil
	case "excel", "xlsx":
		data, err := exportXLSX(students)
		if err != nil {
			return ExportFile{}, err
		}
		return ExportFile{
			Name:        base + ".xlsx",
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Data:        data,
			Rows:        len(students),
		}, nil
	default:
		return ExportFile{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

func exportCSV(students []sitecontent.Student) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write(ExportHeaders); err != nil {
		return nil, err
	}
	for _, student := range students {
		if err := writer.Write(ExportRow(student)); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	return buf.Bytes(), nil
}

// exportRecord 是 JSON 导出的一行，字段顺序与 ExportHeaders 一致。
type exportRecord struct {
	StudentID        string `json:"Student ID"`
	Name             string `json:"Name"`
	Class            string `json:"Class"`
	Section          string `json:"Section"`
	RollNo           string `json:"Roll No"`
	Gender           string `json:"Gender"`
	DOB              string `json:"Date of Birth"`
	BloodGroup       string `json:"Blood Group"`
	Religion         string `json:"Religion"`
	FatherName       string `json:"Father Name"`
	FatherOccupation string `json:"Father Occupation"`
	MotherName       string `json:"Mother Name"`
	MotherOccupation string `json:"Mother Occupation"`
	Phone            string `json:"Phone"`
	Email            string `json:"Email"`
	Address          string `json:"Address"`
}

func newExportRecord(student sitecontent.Student) exportRecord {
	row := ExportRow(student)
	return exportRecord{
		StudentID:        row[0],
		Name:             row[1],
		Class:            row[2],
		Section:          row[3],
		RollNo:           row[4],
		Gender:           row[5],
		DOB:              row[6],
		BloodGroup:       row[7],
		Religion:         row[8],
		FatherName:       row[9],
		FatherOccupation: row[10],
		MotherName:       row[11],
		MotherOccupation: row[12],
		Phone:            row[13],
		Email:            row[14],
		Address:          row[15],
	}
}

func exportJSON(students []sitecontent.Student) ([]byte, error) {
	records := make([]exportRecord, 0, len(students))
	for _, student := range students {
		records = append(records, newExportRecord(student))
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("write json: %w", err)
	}
	return data, nil
}

func exportXLSX(students []sitecontent.Student) ([]byte, error) {
	file := excelize.NewFile()
	defer file.Close()

	const sheet = "Students"
	if err := file.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]any, len(ExportHeaders))
	for i, value := range ExportHeaders {
		header[i] = value
	}
	if err := file.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	for i, student := range students {
		values := ExportRow(student)
		row := make([]any, len(values))
		for j, value := range values {
			row[j] = value
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := file.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}
