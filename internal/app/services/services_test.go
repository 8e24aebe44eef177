package services

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/rs/zerolog"

	"github.com/AntonVanke/xuexinwang/internal/app/models"
	"github.com/AntonVanke/xuexinwang/internal/app/repositories"
	"github.com/AntonVanke/xuexinwang/internal/pkg/apperrors"
	"github.com/AntonVanke/xuexinwang/internal/pkg/filestorage"
	"github.com/AntonVanke/xuexinwang/internal/testutil"
)

const testMaxUpload = 1024

type fixture struct {
	repo       *repositories.StudentRepository
	uploads    *UploadService
	uploadDir  string
	submission *SubmissionService
	students   *StudentService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	database := testutil.NewDatabase(t)
	repo := repositories.NewStudentRepository(database.DB, database.Builder())

	dir := t.TempDir()
	storage, err := filestorage.NewLocalStorage(dir, "/uploads")
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}
	uploads := NewUploadService(storage, testMaxUpload, zerolog.Nop())

	return &fixture{
		repo:       repo,
		uploads:    uploads,
		uploadDir:  dir,
		submission: NewSubmissionService(repo, uploads, zerolog.Nop()),
		students:   NewStudentService(repo, uploads, 100, zerolog.Nop()),
	}
}

func (f *fixture) uploadCount(t *testing.T) int {
	t.Helper()
	entries, err := os.ReadDir(f.uploadDir)
	if err != nil {
		t.Fatalf("read upload dir: %v", err)
	}
	return len(entries)
}

func submitInput(n int, name string) SubmitInput {
	return SubmitInput{IdentityNumber: testutil.Identity(n), Fields: testutil.Fields(name)}
}

func TestResolveCreatesRecord(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	out, err := f.submission.Resolve(ctx, submitInput(1, "张三"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if out.Kind != "CREATED" || !ValidQueryID(out.QueryID) {
		t.Fatalf("unexpected outcome: %+v", out)
	}

	stored, err := f.repo.GetByQueryID(ctx, out.QueryID)
	if err != nil {
		t.Fatalf("GetByQueryID: %v", err)
	}
	if stored.Name != "张三" || stored.AdmissionPhoto != nil {
		t.Errorf("unexpected record: %+v", stored)
	}
}

func TestResolveRejectsInvalidIdentity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	in := submitInput(1, "张三")
	in.IdentityNumber = in.IdentityNumber[:17] + "0"
	if in.IdentityNumber == testutil.Identity(1) {
		in.IdentityNumber = in.IdentityNumber[:17] + "1"
	}
	in.Photo = testutil.JPEG

	out, err := f.submission.Resolve(ctx, in)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if out.Kind != "REJECTED" || out.Reason != "INVALID_IDENTITY" {
		t.Errorf("unexpected outcome: %+v", out)
	}
	if n, _ := f.repo.CountActive(ctx); n != 0 {
		t.Errorf("rejected submission wrote %d records", n)
	}
	if f.uploadCount(t) != 0 {
		t.Error("rejected submission wrote a file")
	}
}

func TestResolveRequiresFields(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	in := submitInput(1, "张三")
	in.Fields.Major = ""
	_, err := f.submission.Resolve(ctx, in)

	var custom *apperrors.CustomError
	if !errors.Is(err, apperrors.ErrInvalidInput) || !errors.As(err, &custom) || custom.Details["field"] != "major" {
		t.Fatalf("expected invalid input on major, got %v", err)
	}
}

func TestResolveAcceptsLowercaseX(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	in := submitInput(1, "张三")
	in.IdentityNumber = "11010519491231002x"
	out, err := f.submission.Resolve(ctx, in)
	if err != nil || out.Kind != "CREATED" {
		t.Fatalf("Resolve = %+v, %v", out, err)
	}

	// The upper-case spelling is the same person
	in.IdentityNumber = "11010519491231002X"
	out, err = f.submission.Resolve(ctx, in)
	if err != nil || out.Kind != "CONFLICT" {
		t.Fatalf("expected conflict for same identity, got %+v, %v", out, err)
	}
}

func TestResolveConflictWithoutForce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first, err := f.submission.Resolve(ctx, submitInput(1, "张三"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	second := submitInput(1, "李四")
	second.Photo = testutil.JPEG
	out, err := f.submission.Resolve(ctx, second)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if out.Kind != "CONFLICT" || out.QueryID != first.QueryID || out.ExistingName != "张*" {
		t.Errorf("unexpected outcome: %+v", out)
	}

	stored, _ := f.repo.GetByQueryID(ctx, first.QueryID)
	if stored.Name != "张三" {
		t.Errorf("conflict must not modify the record, name = %s", stored.Name)
	}
	if f.uploadCount(t) != 0 {
		t.Error("conflict must not write the upload")
	}
}

func TestResolveForceUpdateKeepsQueryIDAndPhoto(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	in := submitInput(1, "张三")
	in.Photo = testutil.JPEG
	first, err := f.submission.Resolve(ctx, in)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	original, _ := f.repo.GetByQueryID(ctx, first.QueryID)

	update := submitInput(1, "张三丰")
	update.ForceUpdate = true
	out, err := f.submission.Resolve(ctx, update)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if out.Kind != "UPDATED" || out.QueryID != first.QueryID {
		t.Fatalf("unexpected outcome: %+v", out)
	}

	updated, _ := f.repo.GetByQueryID(ctx, first.QueryID)
	if updated.Name != "张三丰" {
		t.Errorf("name = %s", updated.Name)
	}
	if updated.AdmissionPhoto == nil || *updated.AdmissionPhoto != *original.AdmissionPhoto {
		t.Errorf("photo should be retained: %v", updated.AdmissionPhoto)
	}
	if !updated.CreatedAt.Equal(original.CreatedAt) {
		t.Errorf("created_at changed")
	}

	withPhoto := submitInput(1, "张三丰")
	withPhoto.ForceUpdate = true
	withPhoto.Photo = []byte("GIF89a-not-really")
	if _, err := f.submission.Resolve(ctx, withPhoto); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	replaced, _ := f.repo.GetByQueryID(ctx, first.QueryID)
	if replaced.AdmissionPhoto == nil || *replaced.AdmissionPhoto == *original.AdmissionPhoto {
		t.Errorf("photo should be replaced, got %v", replaced.AdmissionPhoto)
	}
}

func TestResolveSniffsExtension(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	in := submitInput(1, "张三")
	in.Photo = testutil.JPEG
	in.PhotoName = "photo.txt"
	out, err := f.submission.Resolve(ctx, in)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	stored, _ := f.repo.GetByQueryID(ctx, out.QueryID)
	if stored.AdmissionPhoto == nil {
		t.Fatal("photo not stored")
	}
	photo := *stored.AdmissionPhoto
	if want := "/uploads/" + out.QueryID + "-"; len(photo) < len(want) || photo[:len(want)] != want {
		t.Errorf("photo path %q should start with %q", photo, want)
	}
	if photo[len(photo)-4:] != ".jpg" {
		t.Errorf("photo path %q should end with .jpg", photo)
	}
}

func TestResolveRejectsLargeUpload(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	in := submitInput(1, "张三")
	in.Photo = make([]byte, testMaxUpload+1)
	_, err := f.submission.Resolve(ctx, in)
	if !errors.Is(err, apperrors.ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge, got %v", err)
	}
	if n, _ := f.repo.CountActive(ctx); n != 0 {
		t.Errorf("oversized submission wrote %d records", n)
	}
	if f.uploadCount(t) != 0 {
		t.Error("oversized submission wrote a file")
	}
}

// blindStore hides existing records from GetByIdentity once, simulating a
// concurrent submitter that inserted between the check and the insert.
type blindStore struct {
	*repositories.StudentRepository
	blind bool
}

func (b *blindStore) GetByIdentity(ctx context.Context, identity string) (*models.Student, error) {
	if b.blind {
		b.blind = false
		return nil, apperrors.ErrStudentNotFound
	}
	return b.StudentRepository.GetByIdentity(ctx, identity)
}

func TestResolveUniqueViolationIsConflict(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first, err := f.submission.Resolve(ctx, submitInput(1, "张三"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	racer := NewSubmissionService(&blindStore{StudentRepository: f.repo, blind: true}, f.uploads, zerolog.Nop())
	in := submitInput(1, "李四")
	in.Photo = testutil.JPEG
	out, err := racer.Resolve(ctx, in)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if out.Kind != "CONFLICT" || out.QueryID != first.QueryID {
		t.Errorf("unexpected outcome: %+v", out)
	}
	if f.uploadCount(t) != 0 {
		t.Error("upload of the losing submission should be removed")
	}
}

func TestResolveRetriesTakenQueryID(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first, err := f.submission.Resolve(ctx, submitInput(1, "张三"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	ids := []string{first.QueryID, "00000000000000ab"}
	f.submission.newID = func() (string, error) {
		id := ids[0]
		ids = ids[1:]
		return id, nil
	}

	out, err := f.submission.Resolve(ctx, submitInput(2, "李四"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if out.Kind != "CREATED" || out.QueryID != "00000000000000ab" {
		t.Errorf("unexpected outcome: %+v", out)
	}
}
