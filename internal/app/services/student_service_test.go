package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/AntonVanke/xuexinwang/internal/pkg/apperrors"
	"github.com/AntonVanke/xuexinwang/internal/testutil"
)

func seed(t *testing.T, f *fixture, n int, name string) string {
	t.Helper()
	out, err := f.submission.Resolve(context.Background(), submitInput(n, name))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	return out.QueryID
}

func TestGetByQueryIDMalformed(t *testing.T) {
	f := newFixture(t)
	for _, id := range []string{"", "short", "ZZZZZZZZZZZZZZZZ", "0123456789ABCDEF"} {
		if _, err := f.students.GetByQueryID(context.Background(), id); !errors.Is(err, apperrors.ErrResourceNotFound) {
			t.Errorf("GetByQueryID(%q) = %v, want not found", id, err)
		}
	}
}

func TestStudentUpdateKeepsIdentity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	qid := seed(t, f, 1, "张三")

	fields := testutil.Fields("王五")
	fields.Major = "网络工程"
	updated, err := f.students.Update(ctx, qid, fields, testutil.JPEG, "a.png")
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.QueryID != qid || updated.IdentityNumber != testutil.Identity(1) {
		t.Errorf("identity changed: %+v", updated)
	}
	if updated.Name != "王五" || updated.Major != "网络工程" {
		t.Errorf("fields not applied: %+v", updated)
	}
	if updated.AdmissionPhoto == nil || !strings.HasSuffix(*updated.AdmissionPhoto, ".jpg") {
		t.Errorf("photo = %v", updated.AdmissionPhoto)
	}

	if _, err := f.students.Update(ctx, "00000000000000ff", fields, nil, ""); !errors.Is(err, apperrors.ErrResourceNotFound) {
		t.Errorf("update of unknown record = %v", err)
	}
}

func TestStudentDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	qid := seed(t, f, 1, "张三")

	if err := f.students.Delete(ctx, qid); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := f.students.GetByQueryID(ctx, qid); !errors.Is(err, apperrors.ErrResourceNotFound) {
		t.Errorf("deleted record still visible: %v", err)
	}
	if err := f.students.Delete(ctx, qid); !errors.Is(err, apperrors.ErrResourceNotFound) {
		t.Errorf("second delete = %v", err)
	}

	// The identity number is free again after deletion
	out, err := f.submission.Resolve(ctx, submitInput(1, "张三"))
	if err != nil || out.Kind != "CREATED" || out.QueryID == qid {
		t.Errorf("resubmission after delete = %+v, %v", out, err)
	}
}

func TestStudentListAndSearch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for i := 1; i <= 22; i++ {
		seed(t, f, i, "学生")
	}
	seed(t, f, 23, "欧阳锋")

	page, info, err := f.students.List(ctx, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page) != 3 || info.TotalItems != 23 || info.TotalPages != 2 || info.CurrentPage != 2 {
		t.Errorf("page 2 = %d items, %+v", len(page), info)
	}

	results, err := f.students.Search(ctx, " 阳 ")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Name != "欧阳锋" {
		t.Errorf("search results = %+v", results)
	}

	empty, err := f.students.Search(ctx, "   ")
	if err != nil || len(empty) != 0 {
		t.Errorf("blank search = %v, %v", empty, err)
	}
}

func TestStudentStats(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	qid := seed(t, f, 1, "张三")
	seed(t, f, 2, "李四")
	if err := f.students.Delete(ctx, qid); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	stats, err := f.students.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total != 1 || stats.Today != 1 || stats.Deleted != 1 {
		t.Errorf("stats = %+v", stats)
	}

	f.students.now = func() time.Time { return time.Now().Add(48 * time.Hour) }
	stats, _ = f.students.Stats(ctx)
	if stats.Today != 0 {
		t.Errorf("today in two days = %d", stats.Today)
	}
}

func TestExportCSV(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	seed(t, f, 1, "张三")
	seed(t, f, 2, "李四")

	var buf bytes.Buffer
	n, err := f.students.ExportCSV(ctx, &buf)
	if err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}
	if n != 2 {
		t.Errorf("rows = %d", n)
	}

	out := buf.String()
	if !strings.HasPrefix(out, utf8BOM) {
		t.Fatal("missing byte order mark")
	}
	records, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(out, utf8BOM))).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(records) != 3 || records[0][0] != "查询ID" || len(records[1]) != len(csvHeader) {
		t.Errorf("unexpected csv: %v", records)
	}
}
