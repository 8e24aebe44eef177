package repositories

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/AntonVanke/xuexinwang/internal/pkg/apperrors"
	"github.com/AntonVanke/xuexinwang/internal/testutil"
)

func newStudentRepo(t *testing.T) *StudentRepository {
	t.Helper()
	database := testutil.NewDatabase(t)
	return NewStudentRepository(database.DB, database.Builder())
}

func qid(n int) string {
	return fmt.Sprintf("%016x", n)
}

func TestStudentInsertAndGet(t *testing.T) {
	ctx := context.Background()
	repo := newStudentRepo(t)

	photo := "/uploads/a.jpg"
	s := testutil.Student(qid(1), testutil.Identity(1), "张三")
	s.AdmissionPhoto = &photo
	if err := repo.Insert(ctx, s); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if s.ID == 0 {
		t.Error("expected ID to be set")
	}

	got, err := repo.GetByQueryID(ctx, qid(1))
	if err != nil {
		t.Fatalf("GetByQueryID: %v", err)
	}
	if got.Name != "张三" || got.IdentityNumber != testutil.Identity(1) || got.StudentNumber != "20200101" {
		t.Errorf("unexpected record: %+v", got)
	}
	if got.AdmissionPhoto == nil || *got.AdmissionPhoto != photo {
		t.Errorf("photo = %v", got.AdmissionPhoto)
	}
	if got.CreatedAt.Location() != time.UTC {
		t.Errorf("created_at should be UTC, got %v", got.CreatedAt.Location())
	}

	byIdentity, err := repo.GetByIdentity(ctx, testutil.Identity(1))
	if err != nil || byIdentity.QueryID != qid(1) {
		t.Fatalf("GetByIdentity: %v %+v", err, byIdentity)
	}

	if _, err := repo.GetByQueryID(ctx, qid(99)); !errors.Is(err, apperrors.ErrResourceNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestStudentUniqueConstraints(t *testing.T) {
	ctx := context.Background()
	repo := newStudentRepo(t)

	if err := repo.Insert(ctx, testutil.Student(qid(1), testutil.Identity(1), "张三")); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	err := repo.Insert(ctx, testutil.Student(qid(2), testutil.Identity(1), "李四"))
	if !errors.Is(err, apperrors.ErrDuplicateIdentity) {
		t.Errorf("expected ErrDuplicateIdentity, got %v", err)
	}

	err = repo.Insert(ctx, testutil.Student(qid(1), testutil.Identity(2), "李四"))
	if !errors.Is(err, apperrors.ErrDuplicateQueryID) {
		t.Errorf("expected ErrDuplicateQueryID, got %v", err)
	}
}

func TestStudentUpdateKeepsQueryIDAndCreatedAt(t *testing.T) {
	ctx := context.Background()
	repo := newStudentRepo(t)

	photo := "/uploads/old.jpg"
	s := testutil.Student(qid(1), testutil.Identity(1), "张三")
	s.AdmissionPhoto = &photo
	if err := repo.Insert(ctx, s); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	before, _ := repo.GetByQueryID(ctx, qid(1))

	fields := testutil.Fields("张三丰")
	fields.Major = "人工智能"
	if err := repo.UpdateByIdentity(ctx, testutil.Identity(1), fields, nil); err != nil {
		t.Fatalf("UpdateByIdentity: %v", err)
	}

	after, err := repo.GetByQueryID(ctx, qid(1))
	if err != nil {
		t.Fatalf("GetByQueryID: %v", err)
	}
	if after.Name != "张三丰" || after.Major != "人工智能" {
		t.Errorf("fields not updated: %+v", after)
	}
	if after.AdmissionPhoto == nil || *after.AdmissionPhoto != photo {
		t.Errorf("photo should be retained, got %v", after.AdmissionPhoto)
	}
	if !after.CreatedAt.Equal(before.CreatedAt) {
		t.Errorf("created_at changed: %v -> %v", before.CreatedAt, after.CreatedAt)
	}

	newPhoto := "/uploads/new.png"
	if err := repo.UpdateByQueryID(ctx, qid(1), fields, &newPhoto); err != nil {
		t.Fatalf("UpdateByQueryID: %v", err)
	}
	after, _ = repo.GetByQueryID(ctx, qid(1))
	if after.AdmissionPhoto == nil || *after.AdmissionPhoto != newPhoto {
		t.Errorf("photo should be replaced, got %v", after.AdmissionPhoto)
	}

	if err := repo.UpdateByIdentity(ctx, testutil.Identity(7), fields, nil); !errors.Is(err, apperrors.ErrResourceNotFound) {
		t.Errorf("expected not found for unknown identity, got %v", err)
	}
}

func TestStudentSoftDelete(t *testing.T) {
	ctx := context.Background()
	repo := newStudentRepo(t)

	s := testutil.Student(qid(1), testutil.Identity(1), "张三")
	s.CreatedAt = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	if err := repo.Insert(ctx, s); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	if err := repo.SoftDelete(ctx, qid(1)); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}

	if _, err := repo.GetByQueryID(ctx, qid(1)); !errors.Is(err, apperrors.ErrResourceNotFound) {
		t.Errorf("record should be gone from active set, got %v", err)
	}

	tomb, err := repo.GetDeletedByQueryID(ctx, qid(1))
	if err != nil {
		t.Fatalf("GetDeletedByQueryID: %v", err)
	}
	if tomb.Name != "张三" || !tomb.CreatedAt.Equal(s.CreatedAt) || tomb.DeletedAt.IsZero() {
		t.Errorf("tombstone not verbatim: %+v", tomb)
	}

	if n, _ := repo.CountDeleted(ctx); n != 1 {
		t.Errorf("CountDeleted = %d, want 1", n)
	}
	if err := repo.SoftDelete(ctx, qid(1)); !errors.Is(err, apperrors.ErrResourceNotFound) {
		t.Errorf("second delete should be not found, got %v", err)
	}
	if n, _ := repo.CountDeleted(ctx); n != 1 {
		t.Errorf("failed delete must not add a tombstone, CountDeleted = %d", n)
	}

	// The identity number is free again after deletion
	if err := repo.Insert(ctx, testutil.Student(qid(2), testutil.Identity(1), "张三")); err != nil {
		t.Errorf("re-insert after delete: %v", err)
	}
}

func TestStudentListPage(t *testing.T) {
	ctx := context.Background()
	repo := newStudentRepo(t)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 1; i <= 25; i++ {
		s := testutil.Student(qid(i), testutil.Identity(i), fmt.Sprintf("学生%02d", i))
		s.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if err := repo.Insert(ctx, s); err != nil {
			t.Fatalf("Insert %d: %v", i, err)
		}
	}

	page1, total, err := repo.ListPage(ctx, 1, 20)
	if err != nil {
		t.Fatalf("ListPage: %v", err)
	}
	if total != 25 || len(page1) != 20 {
		t.Fatalf("page 1: total=%d len=%d", total, len(page1))
	}
	if page1[0].QueryID != qid(25) {
		t.Errorf("newest record should come first, got %s", page1[0].QueryID)
	}

	page2, _, err := repo.ListPage(ctx, 2, 20)
	if err != nil {
		t.Fatalf("ListPage: %v", err)
	}
	if len(page2) != 5 || page2[4].QueryID != qid(1) {
		t.Errorf("page 2: len=%d", len(page2))
	}

	page3, _, _ := repo.ListPage(ctx, 3, 20)
	if len(page3) != 0 {
		t.Errorf("page 3 should be empty, got %d", len(page3))
	}
}

func TestStudentListTieBreaksOnID(t *testing.T) {
	ctx := context.Background()
	repo := newStudentRepo(t)

	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 1; i <= 3; i++ {
		s := testutil.Student(qid(i), testutil.Identity(i), "同时")
		s.CreatedAt = at
		if err := repo.Insert(ctx, s); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	all, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if all[0].QueryID != qid(3) || all[2].QueryID != qid(1) {
		t.Errorf("expected id DESC order, got %s..%s", all[0].QueryID, all[2].QueryID)
	}
}

func TestStudentSearch(t *testing.T) {
	ctx := context.Background()
	repo := newStudentRepo(t)

	names := []string{"张三", "李四", "张伟"}
	for i, name := range names {
		s := testutil.Student(qid(i+1), testutil.Identity(i+1), name)
		s.StudentNumber = fmt.Sprintf("2020%04d", i+1)
		if err := repo.Insert(ctx, s); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	tests := []struct {
		term string
		want int
	}{
		{"张", 2},
		{"李四", 1},
		{testutil.Identity(2)[10:], 1},
		{"20200003", 1},
		{"王", 0},
	}
	for _, tt := range tests {
		got, err := repo.Search(ctx, tt.term, 100)
		if err != nil {
			t.Fatalf("Search(%q): %v", tt.term, err)
		}
		if len(got) != tt.want {
			t.Errorf("Search(%q) returned %d, want %d", tt.term, len(got), tt.want)
		}
	}

	capped, _ := repo.Search(ctx, "张", 1)
	if len(capped) != 1 {
		t.Errorf("limit not applied, got %d", len(capped))
	}
}

func TestStudentCounts(t *testing.T) {
	ctx := context.Background()
	repo := newStudentRepo(t)

	old := testutil.Student(qid(1), testutil.Identity(1), "旧")
	old.CreatedAt = time.Now().UTC().Add(-72 * time.Hour)
	if err := repo.Insert(ctx, old); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := repo.Insert(ctx, testutil.Student(qid(2), testutil.Identity(2), "新")); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	if n, _ := repo.CountActive(ctx); n != 2 {
		t.Errorf("CountActive = %d", n)
	}
	if n, _ := repo.CountCreatedSince(ctx, time.Now().Add(-time.Hour)); n != 1 {
		t.Errorf("CountCreatedSince = %d", n)
	}
	exists, err := repo.ExistsByQueryID(ctx, qid(2))
	if err != nil || !exists {
		t.Errorf("ExistsByQueryID = %v, %v", exists, err)
	}
}

func TestStudentReplacePhotoPath(t *testing.T) {
	ctx := context.Background()
	repo := newStudentRepo(t)

	photo := "/uploads/legacy"
	s := testutil.Student(qid(1), testutil.Identity(1), "张三")
	s.AdmissionPhoto = &photo
	if err := repo.Insert(ctx, s); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := repo.Insert(ctx, testutil.Student(qid(2), testutil.Identity(2), "李四")); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	n, err := repo.ReplacePhotoPath(ctx, "/uploads/legacy", "/uploads/legacy.png")
	if err != nil || n != 1 {
		t.Fatalf("ReplacePhotoPath = %d, %v", n, err)
	}
	got, _ := repo.GetByQueryID(ctx, qid(1))
	if got.AdmissionPhoto == nil || *got.AdmissionPhoto != "/uploads/legacy.png" {
		t.Errorf("photo = %v", got.AdmissionPhoto)
	}
	other, _ := repo.GetByQueryID(ctx, qid(2))
	if other.AdmissionPhoto != nil {
		t.Errorf("unrelated record changed: %v", *other.AdmissionPhoto)
	}
}
