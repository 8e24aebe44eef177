package services

import (
	"context"
	"encoding/base64"
	"errors"
	"image/color"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"

	"github.com/AntonVanke/xuexinwang/internal/pkg/apperrors"
	"github.com/AntonVanke/xuexinwang/internal/pkg/credential"
)

func newCredentialService(t *testing.T, f *fixture, template string) *CredentialService {
	t.Helper()
	gen, err := credential.NewGenerator(credential.Options{
		TemplatePath:    template,
		InstitutionCode: "10460",
		EducationLevel:  "本科",
		TrainingLevel:   "普通全日制",
		Layout:          credential.DefaultLayout,
	})
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	return NewCredentialService(f.students, gen, zerolog.Nop())
}

func TestCredentialGenerate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	qid := seed(t, f, 1, "张三")

	template := filepath.Join(t.TempDir(), "template.png")
	if err := imaging.Save(imaging.New(800, 1200, color.White), template); err != nil {
		t.Fatalf("save template: %v", err)
	}
	svc := newCredentialService(t, f, template)

	url, err := svc.Generate(ctx, qid)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	const prefix = "data:image/png;base64,"
	if !strings.HasPrefix(url, prefix) {
		t.Fatalf("unexpected url prefix: %.40s", url)
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(url, prefix))
	if err != nil || len(raw) < 8 || string(raw[1:4]) != "PNG" {
		t.Errorf("payload is not a png: %v", err)
	}

	if _, err := svc.Generate(ctx, "00000000000000ff"); !errors.Is(err, apperrors.ErrResourceNotFound) {
		t.Errorf("unknown record = %v", err)
	}
}

func TestCredentialMissingTemplate(t *testing.T) {
	f := newFixture(t)
	qid := seed(t, f, 1, "张三")
	svc := newCredentialService(t, f, filepath.Join(t.TempDir(), "missing.png"))

	if _, err := svc.Generate(context.Background(), qid); !errors.Is(err, apperrors.ErrStorageFailure) {
		t.Errorf("missing template = %v, want storage failure", err)
	}
}
