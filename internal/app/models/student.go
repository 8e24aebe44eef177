package models

import "time"

// Student defines an active enrollment record based on the 'students' table
type Student struct {
	ID                     int64     `json:"-" db:"id"`
	QueryID                string    `json:"queryId" db:"query_id" example:"3f2a9c1d0b7e4a56"`
	IdentityNumber         string    `json:"identityNumber" db:"identity_number" example:"11010519491231002X"`
	Name                   string    `json:"name" db:"name" example:"张三"`
	Gender                 string    `json:"gender" db:"gender" example:"男"`
	Ethnicity              string    `json:"ethnicity" db:"ethnicity" example:"汉族"`
	BirthDate              string    `json:"birthDate,omitempty" db:"birth_date" example:"2002-05-01"`
	SchoolName             string    `json:"schoolName" db:"school_name" example:"海南大学"`
	College                string    `json:"college" db:"college" example:"计算机科学与技术学院"`
	Department             string    `json:"department,omitempty" db:"department"`
	Major                  string    `json:"major" db:"major" example:"软件工程"`
	ClassName              string    `json:"className,omitempty" db:"class_name"`
	StudentNumber          string    `json:"studentNumber,omitempty" db:"student_number" example:"20200101"`
	DegreeLevel            string    `json:"degreeLevel" db:"degree_level" example:"本科"`
	DegreeType             string    `json:"degreeType" db:"degree_type" example:"普通高等教育"`
	LearningFormat         string    `json:"learningFormat" db:"learning_format" example:"普通全日制"`
	StudyDuration          string    `json:"studyDuration" db:"study_duration" example:"4年"`
	EnrollmentDate         string    `json:"enrollmentDate" db:"enrollment_date" example:"2020-09-01"`
	ExpectedGraduationDate string    `json:"expectedGraduationDate" db:"expected_graduation_date" example:"2024-06-30"`
	EnrollmentStatus       string    `json:"enrollmentStatus,omitempty" db:"enrollment_status" example:"在籍"`
	AdmissionPhoto         *string   `json:"admissionPhoto,omitempty" db:"admission_photo" example:"/uploads/3f2a9c1d0b7e4a56-1a2b3c4d.jpg"`
	CreatedAt              time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt              time.Time `json:"updatedAt" db:"updated_at"`
}

// DeletedStudent is a tombstone copy of a Student kept in 'deleted_students'
type DeletedStudent struct {
	Student
	DeletedAt time.Time `json:"deletedAt" db:"deleted_at"`
}

// StudentFields holds the descriptive, user-editable part of a record.
// Identity number, query id, photo and timestamps are managed separately.
type StudentFields struct {
	Name                   string
	Gender                 string
	Ethnicity              string
	BirthDate              string
	SchoolName             string
	College                string
	Department             string
	Major                  string
	ClassName              string
	StudentNumber          string
	DegreeLevel            string
	DegreeType             string
	LearningFormat         string
	StudyDuration          string
	EnrollmentDate         string
	ExpectedGraduationDate string
	EnrollmentStatus       string
}

// Fields returns the descriptive fields of the record
func (s *Student) Fields() StudentFields {
	return StudentFields{
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
	}
}

// ApplyFields overwrites the descriptive fields of the record
func (s *Student) ApplyFields(f StudentFields) {
	s.Name = f.Name
	s.Gender = f.Gender
	s.Ethnicity = f.Ethnicity
	s.BirthDate = f.BirthDate
	s.SchoolName = f.SchoolName
	s.College = f.College
	s.Department = f.Department
	s.Major = f.Major
	s.ClassName = f.ClassName
	s.StudentNumber = f.StudentNumber
	s.DegreeLevel = f.DegreeLevel
	s.DegreeType = f.DegreeType
	s.LearningFormat = f.LearningFormat
	s.StudyDuration = f.StudyDuration
	s.EnrollmentDate = f.EnrollmentDate
	s.ExpectedGraduationDate = f.ExpectedGraduationDate
	s.EnrollmentStatus = f.EnrollmentStatus
}

// MissingRequired returns the name of the first empty required field, or ""
func (f StudentFields) MissingRequired() string {
	required := []struct {
		name  string
		value string
	}{
		{"name", f.Name},
		{"gender", f.Gender},
		{"ethnicity", f.Ethnicity},
		{"schoolName", f.SchoolName},
		{"college", f.College},
		{"major", f.Major},
		{"degreeLevel", f.DegreeLevel},
		{"degreeType", f.DegreeType},
		{"learningFormat", f.LearningFormat},
		{"studyDuration", f.StudyDuration},
		{"enrollmentDate", f.EnrollmentDate},
		{"expectedGraduationDate", f.ExpectedGraduationDate},
	}
	for _, r := range required {
		if r.value == "" {
			return r.name
		}
	}
	return ""
}
