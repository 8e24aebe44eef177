package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/AntonVanke/xuexinwang/internal/app/models"
	"github.com/AntonVanke/xuexinwang/internal/app/models/dto"
	"github.com/AntonVanke/xuexinwang/internal/pkg/apperrors"
	"github.com/AntonVanke/xuexinwang/internal/pkg/helpers"
)

// AdminPageSize is the fixed page size of the admin list
const AdminPageSize = 20

var queryIDPattern = regexp.MustCompile(`^[0-9a-f]{16}$`)

// utf8BOM lets spreadsheet software detect the export encoding
const utf8BOM = "\ufeff"

// csvHeader is the first row of the export
var csvHeader = []string{
	"查询ID", "身份证号", "姓名", "性别", "民族", "出生日期", "学校", "学院", "系所", "专业",
	"班级", "学号", "层次", "学历类别", "学习形式", "学制", "入学日期", "预计毕业日期",
	"学籍状态", "照片", "创建时间", "更新时间",
}

// StudentService handles record lookup and admin record management
type StudentService struct {
	students    StudentStore
	uploads     *UploadService
	searchLimit int
	now         func() time.Time
	logger      zerolog.Logger
}

// NewStudentService creates a new StudentService
func NewStudentService(students StudentStore, uploads *UploadService, searchLimit int, logger zerolog.Logger) *StudentService {
	return &StudentService{
		students:    students,
		uploads:     uploads,
		searchLimit: searchLimit,
		now:         time.Now,
		logger:      logger,
	}
}

// ValidQueryID reports whether id has the shape of a generated query id
func ValidQueryID(id string) bool {
	return queryIDPattern.MatchString(id)
}

// GetByQueryID returns the active record. Malformed ids are reported as not found.
func (s *StudentService) GetByQueryID(ctx context.Context, queryID string) (*models.Student, error) {
	if !ValidQueryID(queryID) {
		return nil, apperrors.ErrStudentNotFound
	}
	return s.students.GetByQueryID(ctx, queryID)
}

// List returns a page of active records, newest first
func (s *StudentService) List(ctx context.Context, page int) ([]*models.Student, dto.PaginationInfo, error) {
	if page < 1 {
		page = 1
	}
	students, total, err := s.students.ListPage(ctx, page, AdminPageSize)
	if err != nil {
		return nil, dto.PaginationInfo{}, err
	}
	return students, helpers.NewPaginationInfo(total, page, AdminPageSize), nil
}

// SearchLimit returns the maximum number of search results
func (s *StudentService) SearchLimit() int {
	return s.searchLimit
}

// Search finds records whose name, identity number or student number contains term
func (s *StudentService) Search(ctx context.Context, term string) ([]*models.Student, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return []*models.Student{}, nil
	}
	return s.students.Search(ctx, term, s.searchLimit)
}

// Update applies an admin edit. A non-empty photo replaces the current one.
func (s *StudentService) Update(ctx context.Context, queryID string, fields models.StudentFields, photo []byte, photoName string) (*models.Student, error) {
	if missing := fields.MissingRequired(); missing != "" {
		return nil, apperrors.NewInvalidInputError(missing, missing+" is required")
	}
	if err := s.uploads.CheckSize(int64(len(photo))); err != nil {
		return nil, err
	}

	if _, err := s.GetByQueryID(ctx, queryID); err != nil {
		return nil, err
	}

	var photoPath *string
	if len(photo) > 0 {
		path, err := s.uploads.Store(ctx, photo, photoName, queryID)
		if err != nil {
			return nil, err
		}
		photoPath = &path
	}

	if err := s.students.UpdateByQueryID(ctx, queryID, fields, photoPath); err != nil {
		if photoPath != nil {
			s.uploads.Remove(*photoPath)
		}
		return nil, err
	}

	return s.students.GetByQueryID(ctx, queryID)
}

// Delete soft-deletes the record
func (s *StudentService) Delete(ctx context.Context, queryID string) error {
	if !ValidQueryID(queryID) {
		return apperrors.ErrStudentNotFound
	}
	return s.students.SoftDelete(ctx, queryID)
}

// Stats returns active, created-today and deleted counters.
// "Today" starts at local midnight of the server.
func (s *StudentService) Stats(ctx context.Context) (*models.StudentStats, error) {
	total, err := s.students.CountActive(ctx)
	if err != nil {
		return nil, err
	}
	today, err := s.students.CountCreatedSince(ctx, helpers.StartOfDay(s.now()))
	if err != nil {
		return nil, err
	}
	deleted, err := s.students.CountDeleted(ctx)
	if err != nil {
		return nil, err
	}
	return &models.StudentStats{Total: total, Today: today, Deleted: deleted}, nil
}

// ExportCSV writes every active record as CSV with a header row
func (s *StudentService) ExportCSV(ctx context.Context, w io.Writer) (int, error) {
	students, err := s.students.ListAll(ctx)
	if err != nil {
		return 0, err
	}

	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return 0, fmt.Errorf("failed to write csv: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return 0, fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, st := range students {
		photo := ""
		if st.AdmissionPhoto != nil {
			photo = *st.AdmissionPhoto
		}
		row := []string{
			st.QueryID, st.IdentityNumber, st.Name, st.Gender, st.Ethnicity, st.BirthDate,
			st.SchoolName, st.College, st.Department, st.Major, st.ClassName, st.StudentNumber,
			st.DegreeLevel, st.DegreeType, st.LearningFormat, st.StudyDuration,
			st.EnrollmentDate, st.ExpectedGraduationDate, st.EnrollmentStatus, photo,
			st.CreatedAt.Format(time.RFC3339), st.UpdatedAt.Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return 0, fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, fmt.Errorf("failed to flush csv: %w", err)
	}

	s.logger.Info().Int("rows", len(students)).Msg("Exported student records")
	return len(students), nil
}
