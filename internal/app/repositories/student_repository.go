package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/AntonVanke/xuexinwang/internal/app/models"
	"github.com/AntonVanke/xuexinwang/internal/db"
	"github.com/AntonVanke/xuexinwang/internal/pkg/apperrors"
	"github.com/AntonVanke/xuexinwang/internal/pkg/dberrors"
	"github.com/AntonVanke/xuexinwang/internal/pkg/helpers"
	"github.com/AntonVanke/xuexinwang/internal/pkg/logger"
)

// Unique constraint names, shared by both schema dialects
const (
	constraintStudentQueryID  = "students_query_id_key"
	constraintStudentIdentity = "students_identity_number_key"
)

// studentColumns lists every persisted column except the surrogate id, in scan order
var studentColumns = []string{
	"query_id", "identity_number", "name", "gender", "ethnicity", "birth_date",
	"school_name", "college", "department", "major", "class_name", "student_number",
	"degree_level", "degree_type", "learning_format", "study_duration",
	"enrollment_date", "expected_graduation_date", "enrollment_status",
	"admission_photo", "created_at", "updated_at",
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

// StudentRepository handles database operations for student records
type StudentRepository struct {
	db *sql.DB
	sb squirrel.StatementBuilderType
}

// NewStudentRepository creates a new student repository
func NewStudentRepository(conn *sql.DB, sb squirrel.StatementBuilderType) *StudentRepository {
	return &StudentRepository{
		db: conn,
		sb: sb,
	}
}

func selectColumns() []string {
	return append([]string{"id"}, studentColumns...)
}

func scanStudent(row rowScanner) (*models.Student, error) {
	var (
		s     models.Student
		photo sql.NullString
	)
	err := row.Scan(
		&s.ID, &s.QueryID, &s.IdentityNumber, &s.Name, &s.Gender, &s.Ethnicity, &s.BirthDate,
		&s.SchoolName, &s.College, &s.Department, &s.Major, &s.ClassName, &s.StudentNumber,
		&s.DegreeLevel, &s.DegreeType, &s.LearningFormat, &s.StudyDuration,
		&s.EnrollmentDate, &s.ExpectedGraduationDate, &s.EnrollmentStatus,
		&photo, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if photo.Valid {
		s.AdmissionPhoto = &photo.String
	}
	s.CreatedAt = s.CreatedAt.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()
	return &s, nil
}

func studentValues(s *models.Student) []interface{} {
	var photo sql.NullString
	if s.AdmissionPhoto != nil {
		photo = helpers.GetContentNullString(*s.AdmissionPhoto)
	}
	return []interface{}{
		s.QueryID, s.IdentityNumber, s.Name, s.Gender, s.Ethnicity, s.BirthDate,
		s.SchoolName, s.College, s.Department, s.Major, s.ClassName, s.StudentNumber,
		s.DegreeLevel, s.DegreeType, s.LearningFormat, s.StudyDuration,
		s.EnrollmentDate, s.ExpectedGraduationDate, s.EnrollmentStatus,
		photo, s.CreatedAt.UTC(), s.UpdatedAt.UTC(),
	}
}

// translateWriteError maps unique violations to domain errors
func translateWriteError(err error) error {
	switch {
	case dberrors.IsDuplicateConstraintError(err, constraintStudentIdentity, "identity_number"):
		return apperrors.ErrDuplicateIdentity
	case dberrors.IsDuplicateConstraintError(err, constraintStudentQueryID, "query_id"):
		return apperrors.ErrDuplicateQueryID
	default:
		return apperrors.NewStorageError("failed to write student record", err)
	}
}

// Insert creates a new active record. CreatedAt and UpdatedAt are set to now
// when zero. Unique violations surface as ErrDuplicateIdentity or ErrDuplicateQueryID.
func (r *StudentRepository) Insert(ctx context.Context, student *models.Student) error {
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	if student.UpdatedAt.IsZero() {
		student.UpdatedAt = student.CreatedAt
	}

	query, args, err := r.sb.Insert("students").
		Columns(studentColumns...).
		Values(studentValues(student)...).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building insert student SQL")
		return fmt.Errorf("failed to build insert student query: %w", err)
	}

	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&student.ID); err != nil {
		translated := translateWriteError(err)
		if errors.Is(translated, apperrors.ErrConflict) {
			logger.Warn().Str("queryID", student.QueryID).Msg("Insert rejected by unique constraint")
		} else {
			logger.Error().Err(err).Str("queryID", student.QueryID).Msg("Error executing insert student query")
		}
		return translated
	}

	logger.Info().Str("queryID", student.QueryID).Int64("studentID", student.ID).Msg("Student record created")
	return nil
}

// UpdateByIdentity overwrites the descriptive fields of the active record with the
// given identity number. The photo is replaced only when photo is non-nil.
// query_id and created_at are never touched.
func (r *StudentRepository) UpdateByIdentity(ctx context.Context, identityNumber string, fields models.StudentFields, photo *string) error {
	update := r.sb.Update("students").
		SetMap(fieldsMap(fields)).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"identity_number": identityNumber})
	if photo != nil {
		update = update.Set("admission_photo", *photo)
	}
	return r.execUpdate(ctx, update, "identityNumber", identityNumber)
}

// UpdateByQueryID is the admin edit path, same rules as UpdateByIdentity.
func (r *StudentRepository) UpdateByQueryID(ctx context.Context, queryID string, fields models.StudentFields, photo *string) error {
	update := r.sb.Update("students").
		SetMap(fieldsMap(fields)).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"query_id": queryID})
	if photo != nil {
		update = update.Set("admission_photo", *photo)
	}
	return r.execUpdate(ctx, update, "queryID", queryID)
}

func (r *StudentRepository) execUpdate(ctx context.Context, update squirrel.UpdateBuilder, key, value string) error {
	query, args, err := update.ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building update student SQL")
		return fmt.Errorf("failed to build update student query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		logger.Error().Err(err).Str(key, maskKey(key, value)).Msg("Error executing update student query")
		return translateWriteError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewStorageError("failed to read affected rows", err)
	}
	if affected == 0 {
		// Deleted between the caller's read and this write
		logger.Warn().Str(key, maskKey(key, value)).Msg("Attempted to update non-existent student record")
		return apperrors.ErrStudentNotFound
	}

	logger.Info().Str(key, maskKey(key, value)).Msg("Student record updated")
	return nil
}

func maskKey(key, value string) string {
	if key == "identityNumber" && len(value) > 4 {
		return strings.Repeat("*", len(value)-4) + value[len(value)-4:]
	}
	return value
}

func fieldsMap(f models.StudentFields) map[string]interface{} {
	return map[string]interface{}{
		"name":                     f.Name,
		"gender":                   f.Gender,
		"ethnicity":                f.Ethnicity,
		"birth_date":               f.BirthDate,
		"school_name":              f.SchoolName,
		"college":                  f.College,
		"department":               f.Department,
		"major":                    f.Major,
		"class_name":               f.ClassName,
		"student_number":           f.StudentNumber,
		"degree_level":             f.DegreeLevel,
		"degree_type":              f.DegreeType,
		"learning_format":          f.LearningFormat,
		"study_duration":           f.StudyDuration,
		"enrollment_date":          f.EnrollmentDate,
		"expected_graduation_date": f.ExpectedGraduationDate,
		"enrollment_status":        f.EnrollmentStatus,
	}
}

func (r *StudentRepository) getOne(ctx context.Context, where squirrel.Sqlizer) (*models.Student, error) {
	query, args, err := r.sb.Select(selectColumns()...).
		From("students").
		Where(where).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building get student SQL")
		return nil, fmt.Errorf("failed to build get student query: %w", err)
	}

	student, err := scanStudent(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrStudentNotFound
		}
		logger.Error().Err(err).Msg("Error scanning student row")
		return nil, apperrors.NewStorageError("failed to read student record", err)
	}
	return student, nil
}

// GetByQueryID returns the active record with the given query id
func (r *StudentRepository) GetByQueryID(ctx context.Context, queryID string) (*models.Student, error) {
	return r.getOne(ctx, squirrel.Eq{"query_id": queryID})
}

// GetByIdentity returns the active record with the given identity number
func (r *StudentRepository) GetByIdentity(ctx context.Context, identityNumber string) (*models.Student, error) {
	return r.getOne(ctx, squirrel.Eq{"identity_number": identityNumber})
}

// ExistsByQueryID checks whether an active record uses the query id
func (r *StudentRepository) ExistsByQueryID(ctx context.Context, queryID string) (bool, error) {
	n, err := r.count(ctx, "students", squirrel.Eq{"query_id": queryID})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SoftDelete moves the active record into deleted_students in one transaction
func (r *StudentRepository) SoftDelete(ctx context.Context, queryID string) error {
	err := db.WithTransaction(ctx, r.db, func(ctx context.Context, tx *sql.Tx) error {
		query, args, err := r.sb.Select(selectColumns()...).
			From("students").
			Where(squirrel.Eq{"query_id": queryID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build select for delete: %w", err)
		}

		student, err := scanStudent(tx.QueryRowContext(ctx, query, args...))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperrors.ErrStudentNotFound
			}
			return err
		}

		insertSQL, insertArgs, err := r.sb.Insert("deleted_students").
			Columns(append(append([]string{}, studentColumns...), "deleted_at")...).
			Values(append(studentValues(student), time.Now().UTC())...).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build tombstone insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, insertSQL, insertArgs...); err != nil {
			return err
		}

		deleteSQL, deleteArgs, err := r.sb.Delete("students").
			Where(squirrel.Eq{"id": student.ID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build delete: %w", err)
		}
		if _, err := tx.ExecContext(ctx, deleteSQL, deleteArgs...); err != nil {
			return err
		}
		return nil
	})

	if err != nil {
		if errors.Is(err, apperrors.ErrStudentNotFound) {
			logger.Warn().Str("queryID", queryID).Msg("Attempted to delete non-existent student record")
			return err
		}
		logger.Error().Err(err).Str("queryID", queryID).Msg("Soft delete rolled back")
		return apperrors.NewStorageError("failed to delete student record", err)
	}

	logger.Info().Str("queryID", queryID).Msg("Student record moved to deleted_students")
	return nil
}

// GetDeletedByQueryID returns the most recent tombstone for the query id
func (r *StudentRepository) GetDeletedByQueryID(ctx context.Context, queryID string) (*models.DeletedStudent, error) {
	query, args, err := r.sb.Select(append(selectColumns(), "deleted_at")...).
		From("deleted_students").
		Where(squirrel.Eq{"query_id": queryID}).
		OrderBy("deleted_at DESC", "id DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get deleted student query: %w", err)
	}

	row := r.db.QueryRowContext(ctx, query, args...)
	var (
		d     models.DeletedStudent
		photo sql.NullString
	)
	s := &d.Student
	err = row.Scan(
		&s.ID, &s.QueryID, &s.IdentityNumber, &s.Name, &s.Gender, &s.Ethnicity, &s.BirthDate,
		&s.SchoolName, &s.College, &s.Department, &s.Major, &s.ClassName, &s.StudentNumber,
		&s.DegreeLevel, &s.DegreeType, &s.LearningFormat, &s.StudyDuration,
		&s.EnrollmentDate, &s.ExpectedGraduationDate, &s.EnrollmentStatus,
		&photo, &s.CreatedAt, &s.UpdatedAt, &d.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrStudentNotFound
		}
		return nil, apperrors.NewStorageError("failed to read deleted student record", err)
	}
	if photo.Valid {
		s.AdmissionPhoto = &photo.String
	}
	s.CreatedAt = s.CreatedAt.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()
	d.DeletedAt = d.DeletedAt.UTC()
	return &d, nil
}

// ListPage returns one 1-based page of active records, newest first, and the total count
func (r *StudentRepository) ListPage(ctx context.Context, page, pageSize int) ([]*models.Student, int64, error) {
	total, err := r.CountActive(ctx)
	if err != nil {
		return nil, 0, err
	}

	offset, limit := helpers.CalculateOffsetLimit(page, pageSize)
	students, err := r.list(ctx, r.sb.Select(selectColumns()...).
		From("students").
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit)).
		Offset(offset))
	if err != nil {
		return nil, 0, err
	}

	logger.Debug().Int("page", page).Int("pageSize", limit).Int64("totalItems", total).Int("returnedItems", len(students)).Msg("Listed student records")
	return students, total, nil
}

// Search matches term as a substring of name, identity number or student number.
// At most limit rows are returned, newest first.
func (r *StudentRepository) Search(ctx context.Context, term string, limit int) ([]*models.Student, error) {
	pattern := "%" + strings.TrimSpace(term) + "%"
	return r.list(ctx, r.sb.Select(selectColumns()...).
		From("students").
		Where(squirrel.Or{
			squirrel.Like{"name": pattern},
			squirrel.Like{"identity_number": pattern},
			squirrel.Like{"student_number": pattern},
		}).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit)))
}

// ListAll returns every active record, newest first
func (r *StudentRepository) ListAll(ctx context.Context) ([]*models.Student, error) {
	return r.list(ctx, r.sb.Select(selectColumns()...).
		From("students").
		OrderBy("created_at DESC", "id DESC"))
}

func (r *StudentRepository) list(ctx context.Context, sel squirrel.SelectBuilder) ([]*models.Student, error) {
	query, args, err := sel.ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building list students SQL")
		return nil, fmt.Errorf("failed to build list students query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing list students query")
		return nil, apperrors.NewStorageError("failed to list student records", err)
	}
	defer rows.Close()

	students := make([]*models.Student, 0)
	for rows.Next() {
		student, err := scanStudent(rows)
		if err != nil {
			logger.Error().Err(err).Msg("Error scanning student row")
			return nil, apperrors.NewStorageError("failed to read student record", err)
		}
		students = append(students, student)
	}
	if err := rows.Err(); err != nil {
		logger.Error().Err(err).Msg("Error iterating student rows")
		return nil, apperrors.NewStorageError("failed to list student records", err)
	}
	return students, nil
}

// CountActive returns the number of active records
func (r *StudentRepository) CountActive(ctx context.Context) (int64, error) {
	return r.count(ctx, "students", nil)
}

// CountCreatedSince returns the number of active records created at or after since
func (r *StudentRepository) CountCreatedSince(ctx context.Context, since time.Time) (int64, error) {
	return r.count(ctx, "students", squirrel.GtOrEq{"created_at": since.UTC()})
}

// CountDeleted returns the number of tombstones
func (r *StudentRepository) CountDeleted(ctx context.Context) (int64, error) {
	return r.count(ctx, "deleted_students", nil)
}

func (r *StudentRepository) count(ctx context.Context, table string, where squirrel.Sqlizer) (int64, error) {
	sel := r.sb.Select("COUNT(*)").From(table)
	if where != nil {
		sel = sel.Where(where)
	}
	query, args, err := sel.ToSql()
	if err != nil {
		logger.Error().Err(err).Str("table", table).Msg("Error building count SQL")
		return 0, fmt.Errorf("failed to build count query: %w", err)
	}

	var n int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		logger.Error().Err(err).Str("table", table).Msg("Error executing count query")
		return 0, apperrors.NewStorageError("failed to count records", err)
	}
	return n, nil
}

// ReplacePhotoPath points every active record using oldPath at newPath
func (r *StudentRepository) ReplacePhotoPath(ctx context.Context, oldPath, newPath string) (int64, error) {
	query, args, err := r.sb.Update("students").
		Set("admission_photo", newPath).
		Where(squirrel.Eq{"admission_photo": oldPath}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build replace photo query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		logger.Error().Err(err).Str("path", oldPath).Msg("Error replacing photo path")
		return 0, apperrors.NewStorageError("failed to replace photo path", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.NewStorageError("failed to read affected rows", err)
	}
	return affected, nil
}
