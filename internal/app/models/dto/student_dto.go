package dto

import (
	"mime/multipart"
	"time"

	"github.com/AntonVanke/xuexinwang/internal/app/models"
	"github.com/AntonVanke/xuexinwang/internal/pkg/masking"
)

// StudentFieldsForm carries the descriptive fields shared by submission and admin edit
type StudentFieldsForm struct {
	Name                   string `form:"name" json:"name" binding:"required,max=100" example:"张三"`
	Gender                 string `form:"gender" json:"gender" binding:"required,max=10" example:"男"`
	Ethnicity              string `form:"ethnicity" json:"ethnicity" binding:"required,max=50" example:"汉族"`
	BirthDate              string `form:"birth_date" json:"birthDate" binding:"max=20" example:"2002-05-01"`
	SchoolName             string `form:"school_name" json:"schoolName" binding:"required,max=200" example:"海南大学"`
	College                string `form:"college" json:"college" binding:"required,max=200" example:"计算机科学与技术学院"`
	Department             string `form:"department" json:"department" binding:"max=200"`
	Major                  string `form:"major" json:"major" binding:"required,max=200" example:"软件工程"`
	ClassName              string `form:"class_name" json:"className" binding:"max=100"`
	StudentNumber          string `form:"student_number" json:"studentNumber" binding:"max=50" example:"20200101"`
	DegreeLevel            string `form:"degree_level" json:"degreeLevel" binding:"required,max=50" example:"本科"`
	DegreeType             string `form:"degree_type" json:"degreeType" binding:"required,max=50" example:"普通高等教育"`
	LearningFormat         string `form:"learning_format" json:"learningFormat" binding:"required,max=50" example:"普通全日制"`
	StudyDuration          string `form:"study_duration" json:"studyDuration" binding:"required,max=50" example:"4年"`
	EnrollmentDate         string `form:"enrollment_date" json:"enrollmentDate" binding:"required,max=20" example:"2020-09-01"`
	ExpectedGraduationDate string `form:"expected_graduation_date" json:"expectedGraduationDate" binding:"required,max=20" example:"2024-06-30"`
	EnrollmentStatus       string `form:"enrollment_status" json:"enrollmentStatus" binding:"max=50" example:"在籍"`
}

// ToModel converts the form into model fields
func (f StudentFieldsForm) ToModel() models.StudentFields {
	return models.StudentFields{
		Name:                   f.Name,
		Gender:                 f.Gender,
		Ethnicity:              f.Ethnicity,
		BirthDate:              f.BirthDate,
		SchoolName:             f.SchoolName,
		College:                f.College,
		Department:             f.Department,
		Major:                  f.Major,
		ClassName:              f.ClassName,
		StudentNumber:          f.StudentNumber,
		DegreeLevel:            f.DegreeLevel,
		DegreeType:             f.DegreeType,
		LearningFormat:         f.LearningFormat,
		StudyDuration:          f.StudyDuration,
		EnrollmentDate:         f.EnrollmentDate,
		ExpectedGraduationDate: f.ExpectedGraduationDate,
		EnrollmentStatus:       f.EnrollmentStatus,
	}
}

// SubmitStudentRequest is the public submission form
type SubmitStudentRequest struct {
	IdentityNumber string `form:"identity_number" json:"identityNumber" binding:"required,idcard" example:"11010519491231002X"`
	ForceUpdate    bool   `form:"force_update" json:"forceUpdate" example:"false"`
	StudentFieldsForm
	AdmissionPhoto *multipart.FileHeader `form:"admission_photo" json:"-" swaggerignore:"true"`
}

// UpdateStudentRequest is the admin edit form
type UpdateStudentRequest struct {
	StudentFieldsForm
	AdmissionPhoto *multipart.FileHeader `form:"admission_photo" json:"-" swaggerignore:"true"`
}

// SubmitResponse is returned for created and updated submissions
type SubmitResponse struct {
	Outcome string `json:"outcome" example:"CREATED" enums:"CREATED,UPDATED"`
	QueryID string `json:"queryId" example:"3f2a9c1d0b7e4a56"`
	URL     string `json:"url" example:"http://localhost:48088/student/3f2a9c1d0b7e4a56"`
}

// ConflictResponse points the submitter at the record already using the identity number
type ConflictResponse struct {
	ExistingQueryID string `json:"existingQueryId" example:"3f2a9c1d0b7e4a56"`
	ExistingName    string `json:"existingName" example:"张*"`
	URL             string `json:"url" example:"http://localhost:48088/student/3f2a9c1d0b7e4a56"`
}

// StudentResponse is the record as shown to clients
type StudentResponse struct {
	QueryID                string    `json:"queryId" example:"3f2a9c1d0b7e4a56"`
	IdentityNumber         string    `json:"identityNumber" example:"**************002X"`
	Name                   string    `json:"name" example:"张三"`
	Gender                 string    `json:"gender" example:"男"`
	Ethnicity              string    `json:"ethnicity" example:"汉族"`
	BirthDate              string    `json:"birthDate,omitempty"`
	SchoolName             string    `json:"schoolName" example:"海南大学"`
	College                string    `json:"college"`
	Department             string    `json:"department,omitempty"`
	Major                  string    `json:"major"`
	ClassName              string    `json:"className,omitempty"`
	StudentNumber          string    `json:"studentNumber,omitempty"`
	DegreeLevel            string    `json:"degreeLevel"`
	DegreeType             string    `json:"degreeType"`
	LearningFormat         string    `json:"learningFormat"`
	StudyDuration          string    `json:"studyDuration"`
	EnrollmentDate         string    `json:"enrollmentDate"`
	ExpectedGraduationDate string    `json:"expectedGraduationDate"`
	EnrollmentStatus       string    `json:"enrollmentStatus,omitempty"`
	AdmissionPhoto         *string   `json:"admissionPhoto,omitempty"`
	CreatedAt              time.Time `json:"createdAt"`
	UpdatedAt              time.Time `json:"updatedAt"`
}

// FromStudent converts a model into a response. Public responses mask the identity number.
func FromStudent(s *models.Student, maskIdentity bool) StudentResponse {
	identity := s.IdentityNumber
	if maskIdentity {
		identity = masking.IdentityNumber(identity)
	}
	return StudentResponse{
		QueryID:                s.QueryID,
		IdentityNumber:         identity,
		Name:                   s.Name,
		Gender:                 s.Gender,
		Ethnicity:              s.Ethnicity,
		BirthDate:              s.BirthDate,
		SchoolName:             s.SchoolName,
		College:                s.College,
		Department:             s.Department,
		Major:                  s.Major,
		ClassName:              s.ClassName,
		StudentNumber:          s.StudentNumber,
		DegreeLevel:            s.DegreeLevel,
		DegreeType:             s.DegreeType,
		LearningFormat:         s.LearningFormat,
		StudyDuration:          s.StudyDuration,
		EnrollmentDate:         s.EnrollmentDate,
		ExpectedGraduationDate: s.ExpectedGraduationDate,
		EnrollmentStatus:       s.EnrollmentStatus,
		AdmissionPhoto:         s.AdmissionPhoto,
		CreatedAt:              s.CreatedAt,
		UpdatedAt:              s.UpdatedAt,
	}
}

// FromStudents converts a list of models
func FromStudents(students []*models.Student, maskIdentity bool) []StudentResponse {
	out := make([]StudentResponse, 0, len(students))
	for _, s := range students {
		out = append(out, FromStudent(s, maskIdentity))
	}
	return out
}

// CredentialResponse carries the collection-code image as a data URL
type CredentialResponse struct {
	Image string `json:"image" example:"data:image/png;base64,iVBORw0KGgo..."`
}
