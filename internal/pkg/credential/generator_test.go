package credential

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"testing"
	"time"

	"github.com/disintegration/imaging"
)

func writeTemplate(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "template.png")
	if err := imaging.Save(imaging.New(800, 1200, color.White), path); err != nil {
		t.Fatalf("save template: %v", err)
	}
	return path
}

func testCard() Card {
	return Card{
		QueryID:        "3f2a9c1d0b7e4a56",
		Name:           "欧阳锋",
		IdentityNumber: "11010519491231002X",
		SchoolName:     "Hainan University",
		College:        "计算机学院",
		DegreeLevel:    "本科",
		StudentNumber:  "20200101",
	}
}

func TestBuildPayload(t *testing.T) {
	g, err := NewGenerator(Options{InstitutionCode: "10589", EducationLevel: "本科", TrainingLevel: "普通全日制"})
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	fixed := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return fixed }

	p := g.BuildPayload(testCard())
	if p.IDLast4 != "002X" || p.Name != "欧*锋" || p.Timestamp != fixed.UnixMilli() {
		t.Errorf("unexpected payload: %+v", p)
	}

	encoded, err := EncodePayload(p)
	if err != nil {
		t.Fatalf("EncodePayload: %v", err)
	}
	decoded, err := DecodePayload(encoded)
	if err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	if decoded != p {
		t.Errorf("decoded payload differs: %+v", decoded)
	}
}

func TestGenerateDrawsQRCodeInRegion(t *testing.T) {
	g, err := NewGenerator(Options{TemplatePath: writeTemplate(t), InstitutionCode: "10589"})
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}

	out, err := g.Generate(testCard())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output is not a png: %v", err)
	}
	if img.Bounds() != image.Rect(0, 0, 800, 1200) {
		t.Errorf("bounds = %v", img.Bounds())
	}

	if !hasDarkPixel(img, DefaultLayout.QRRegion) {
		t.Error("expected dark QR modules inside the QR region")
	}
	if hasDarkPixel(img, image.Rect(0, 1100, 800, 1200)) {
		t.Error("area below the QR region should stay blank")
	}
}

func TestGenerateMissingTemplate(t *testing.T) {
	g, err := NewGenerator(Options{TemplatePath: filepath.Join(t.TempDir(), "missing.png")})
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	if _, err := g.Generate(testCard()); !errors.Is(err, ErrTemplateUnavailable) {
		t.Fatalf("expected ErrTemplateUnavailable, got %v", err)
	}
}

func TestNewGeneratorBadFont(t *testing.T) {
	if _, err := NewGenerator(Options{FontPath: filepath.Join(t.TempDir(), "none.ttf")}); err == nil {
		t.Fatal("expected error for missing font file")
	}
}

func hasDarkPixel(img image.Image, r image.Rectangle) bool {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			cr, cg, cb, _ := img.At(x, y).RGBA()
			if cr < 0x4000 && cg < 0x4000 && cb < 0x4000 {
				return true
			}
		}
	}
	return false
}
