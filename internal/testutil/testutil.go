// Package testutil provides migrated SQLite databases and record fixtures for tests.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/AntonVanke/xuexinwang/internal/app/migrations"
	"github.com/AntonVanke/xuexinwang/internal/app/models"
	"github.com/AntonVanke/xuexinwang/internal/db"
	"github.com/AntonVanke/xuexinwang/internal/pkg/idcard"
)

// NewDatabase opens a fresh SQLite file under t.TempDir() with all migrations applied
func NewDatabase(t testing.TB) *db.Database {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	conn, err := sql.Open("sqlite3", db.SQLiteDSN(path))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = conn.Close() })

	migrator, err := migrations.NewMigrator(conn, db.DriverSQLite, db.StatementBuilder(db.DriverSQLite))
	if err != nil {
		t.Fatalf("create migrator: %v", err)
	}
	if err := migrator.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	return &db.Database{DB: conn, Driver: db.DriverSQLite}
}

// Identity returns a checksum-valid identity number that differs for every n
func Identity(n int) string {
	body := fmt.Sprintf("110105199001%05d", n%100000)
	code, ok := idcard.CheckCode(body)
	if !ok {
		panic("invalid identity body " + body)
	}
	return body + string(code)
}

// Fields returns a complete set of descriptive fields
func Fields(name string) models.StudentFields {
	return models.StudentFields{
		Name:                   name,
		Gender:                 "男",
		Ethnicity:              "汉族",
		BirthDate:              "1990-01-01",
		SchoolName:             "海南大学",
		College:                "计算机科学与技术学院",
		Department:             "软件工程系",
		Major:                  "软件工程",
		ClassName:              "软工2001",
		StudentNumber:          "20200101",
		DegreeLevel:            "本科",
		DegreeType:             "普通高等教育",
		LearningFormat:         "普通全日制",
		StudyDuration:          "4年",
		EnrollmentDate:         "2020-09-01",
		ExpectedGraduationDate: "2024-06-30",
		EnrollmentStatus:       "在籍",
	}
}

// Student builds an unsaved record
func Student(queryID, identity, name string) *models.Student {
	s := &models.Student{QueryID: queryID, IdentityNumber: identity}
	s.ApplyFields(Fields(name))
	return s
}

// JPEG is a minimal byte slice carrying the JPEG signature
var JPEG = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00, 0x01}
