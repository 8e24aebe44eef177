// Package credential renders the "collection code" image: a template with
// masked personal fields and a QR code carrying a base64 JSON payload.
package credential

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"time"

	"github.com/disintegration/imaging"
	"github.com/skip2/go-qrcode"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/AntonVanke/xuexinwang/internal/pkg/idcard"
	"github.com/AntonVanke/xuexinwang/internal/pkg/masking"
)

// ErrTemplateUnavailable is returned when the template image cannot be read
var ErrTemplateUnavailable = errors.New("credential template unavailable")

// QR encoding parameters
const (
	qrPixelsPerModule = 10
	qrRecoveryLevel   = qrcode.Low
)

// Layout holds the fixed drawing positions on the template. Text positions are baselines.
type Layout struct {
	NamePos     image.Point
	IdentityPos image.Point
	SchoolPos   image.Point
	LevelPos    image.Point
	QRRegion    image.Rectangle
	QRSize      int
}

// DefaultLayout matches the bundled 800x1200 template
var DefaultLayout = Layout{
	NamePos:     image.Pt(120, 380),
	IdentityPos: image.Pt(120, 440),
	SchoolPos:   image.Pt(120, 500),
	LevelPos:    image.Pt(120, 560),
	QRRegion:    image.Rect(225, 700, 575, 1050),
	QRSize:      300,
}

// Options configure a Generator
type Options struct {
	TemplatePath    string
	FontPath        string
	FontSize        float64
	InstitutionCode string
	EducationLevel  string
	TrainingLevel   string
	Layout          Layout
}

// Card is the record data drawn onto the image
type Card struct {
	QueryID        string
	Name           string
	IdentityNumber string
	SchoolName     string
	College        string
	DegreeLevel    string
	StudentNumber  string
}

// Payload is the JSON document carried by the QR code
type Payload struct {
	Timestamp       int64  `json:"timestamp"`
	QueryID         string `json:"queryId"`
	InstitutionCode string `json:"institutionCode"`
	IDLast4         string `json:"idLast4"`
	StudentNumber   string `json:"studentNumber"`
	EducationLevel  string `json:"educationLevel"`
	TrainingLevel   string `json:"trainingLevel"`
	College         string `json:"college"`
	Name            string `json:"name"`
}

// Generator renders credential images
type Generator struct {
	opts Options
	face font.Face
	now  func() time.Time
}

// NewGenerator loads the configured font. Without a font path the basic
// bitmap face is used, which cannot render CJK glyphs.
func NewGenerator(opts Options) (*Generator, error) {
	if opts.Layout == (Layout{}) {
		opts.Layout = DefaultLayout
	}
	if opts.FontSize <= 0 {
		opts.FontSize = 28
	}

	g := &Generator{opts: opts, face: basicfont.Face7x13, now: time.Now}

	if opts.FontPath != "" {
		face, err := loadFace(opts.FontPath, opts.FontSize)
		if err != nil {
			return nil, err
		}
		g.face = face
	}
	return g, nil
}

func loadFace(path string, size float64) (font.Face, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read font %s: %w", path, err)
	}

	parsed, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font %s: %w", path, err)
	}

	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create font face: %w", err)
	}
	return face, nil
}

// BuildPayload assembles the QR payload for a card
func (g *Generator) BuildPayload(card Card) Payload {
	return Payload{
		Timestamp:       g.now().UnixMilli(),
		QueryID:         card.QueryID,
		InstitutionCode: g.opts.InstitutionCode,
		IDLast4:         idcard.LastFour(card.IdentityNumber),
		StudentNumber:   card.StudentNumber,
		EducationLevel:  g.opts.EducationLevel,
		TrainingLevel:   g.opts.TrainingLevel,
		College:         card.College,
		Name:            masking.Name(card.Name),
	}
}

// EncodePayload serializes a payload to the base64 text placed in the QR code
func EncodePayload(p Payload) (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecodePayload reverses EncodePayload
func DecodePayload(encoded string) (Payload, error) {
	var p Payload
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return p, fmt.Errorf("invalid payload encoding: %w", err)
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("invalid payload json: %w", err)
	}
	return p, nil
}

// Generate renders the card onto the template and returns PNG bytes
func (g *Generator) Generate(card Card) ([]byte, error) {
	tpl, err := imaging.Open(g.opts.TemplatePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplateUnavailable, err)
	}
	canvas := imaging.Clone(tpl)

	layout := g.opts.Layout
	g.drawText(canvas, layout.NamePos, masking.Name(card.Name))
	g.drawText(canvas, layout.IdentityPos, masking.IdentityNumber(card.IdentityNumber))
	g.drawText(canvas, layout.SchoolPos, card.SchoolName)
	g.drawText(canvas, layout.LevelPos, card.DegreeLevel)

	encoded, err := EncodePayload(g.BuildPayload(card))
	if err != nil {
		return nil, err
	}

	qr, err := qrcode.New(encoded, qrRecoveryLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to encode qr code: %w", err)
	}
	qrImg := imaging.Resize(qr.Image(-qrPixelsPerModule), layout.QRSize, layout.QRSize, imaging.NearestNeighbor)

	region := layout.QRRegion
	offset := image.Pt(
		region.Min.X+(region.Dx()-layout.QRSize)/2,
		region.Min.Y+(region.Dy()-layout.QRSize)/2,
	)
	canvas = imaging.Paste(canvas, qrImg, offset)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, canvas, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func (g *Generator) drawText(dst *image.NRGBA, at image.Point, text string) {
	if text == "" {
		return
	}
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.Black),
		Face: g.face,
		Dot:  fixed.P(at.X, at.Y),
	}
	d.DrawString(text)
}
