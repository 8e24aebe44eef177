package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/AntonVanke/xuexinwang/internal/testutil"
)

func TestRepairExtensions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	photo := "/uploads/legacy"
	s := testutil.Student("00000000000000aa", testutil.Identity(1), "张三")
	s.AdmissionPhoto = &photo
	if err := f.repo.Insert(ctx, s); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	png := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}
	if err := os.WriteFile(filepath.Join(f.uploadDir, "legacy"), png, 0o644); err != nil {
		t.Fatalf("write legacy upload: %v", err)
	}
	if err := os.WriteFile(filepath.Join(f.uploadDir, "ok.jpg"), testutil.JPEG, 0o644); err != nil {
		t.Fatalf("write upload: %v", err)
	}

	report, err := f.uploads.RepairExtensions(ctx, f.repo)
	if err != nil {
		t.Fatalf("RepairExtensions: %v", err)
	}
	if report.Fixed != 1 || report.Skipped != 1 || report.Failed != 0 {
		t.Errorf("report = %+v", report)
	}

	if _, err := os.Stat(filepath.Join(f.uploadDir, "legacy.png")); err != nil {
		t.Errorf("legacy upload not renamed: %v", err)
	}
	got, _ := f.repo.GetByQueryID(ctx, "00000000000000aa")
	if got.AdmissionPhoto == nil || *got.AdmissionPhoto != "/uploads/legacy.png" {
		t.Errorf("photo = %v", got.AdmissionPhoto)
	}
}
