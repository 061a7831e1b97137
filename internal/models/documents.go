package models

import (
	"fmt"
	"image"
	"math"
	"strings"
	"time"
)

const (
	MimePDF  = "application/pdf"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeTXT  = "text/plain"
)

type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatTXT  Format = "txt"
)

func (f Format) Extension() string {
	return "." + string(f)
}

func (f Format) ContentType() string {
	switch f {
	case FormatPDF:
		return MimePDF
	case FormatDOCX:
		return MimeDOCX
	case FormatTXT:
		return MimeTXT
	}
	return "application/octet-stream"
}

// ParseFormat accepts "pdf", "docx" or "txt", case-insensitively, with or without a dot.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".")); f {
	case FormatPDF, FormatDOCX, FormatTXT:
		return f, nil
	}
	return "", fmt.Errorf("unsupported format %q", s)
}

// FormatFromMime maps a MIME type onto a Format. Unknown types report false.
func FormatFromMime(mimeType string) (Format, bool) {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	switch mt {
	case MimePDF:
		return FormatPDF, true
	case MimeDOCX, "application/vnd.openxmlformats-officedocument.wordprocessingml", "application/docx", "application/x-docx":
		return FormatDOCX, true
	case MimeTXT, "text/txt", "application/txt":
		return FormatTXT, true
	}
	return "", false
}

// SourceFile is the metadata of a file listed from the file store.
type SourceFile struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
}

// RawDocument is downloaded file content paired with its inferred format.
type RawDocument struct {
	Name   string
	Format Format
	Data   []byte
}

// PageRect is a rectangle in page units (points, 1/72 inch).
type PageRect struct {
	X0, Y0, X1, Y1 float64
}

func (r PageRect) Width() float64  { return r.X1 - r.X0 }
func (r PageRect) Height() float64 { return r.Y1 - r.Y0 }

// Rect is a rectangle in pixel-buffer coordinates, X1 and Y1 exclusive.
type Rect struct {
	X0 int `json:"x0"`
	Y0 int `json:"y0"`
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
}

func (r Rect) Width() int  { return r.X1 - r.X0 }
func (r Rect) Height() int { return r.Y1 - r.Y0 }

func (r Rect) Image() image.Rectangle {
	return image.Rect(r.X0, r.Y0, r.X1, r.Y1)
}

// Validate checks 0 <= x0 < x1 <= width and 0 <= y0 < y1 <= height.
func (r Rect) Validate(width, height int) error {
	switch {
	case r.Width() <= 0:
		return fmt.Errorf("width must be positive, got %d", r.Width())
	case r.Height() <= 0:
		return fmt.Errorf("height must be positive, got %d", r.Height())
	case r.X0 < 0 || r.Y0 < 0:
		return fmt.Errorf("origin (%d,%d) outside image", r.X0, r.Y0)
	case r.X1 > width || r.Y1 > height:
		return fmt.Errorf("corner (%d,%d) outside %dx%d image", r.X1, r.Y1, width, height)
	}
	return nil
}

// RenderedPage is the first page of the letterhead rasterized at DPI.
type RenderedPage struct {
	Image    *image.RGBA
	WidthPt  float64
	HeightPt float64
	DPI      float64
}

func (p *RenderedPage) PixelWidth() int  { return p.Image.Bounds().Dx() }
func (p *RenderedPage) PixelHeight() int { return p.Image.Bounds().Dy() }

// Scale is the number of pixels per page unit.
func (p *RenderedPage) Scale() float64 { return p.DPI / 72 }

// PixelSize is the pixel size a page of w x h points has at dpi.
func PixelSize(w, h, dpi float64) (int, int) {
	return int(math.Round(w * dpi / 72)), int(math.Round(h * dpi / 72))
}

type Stage string

const (
	StageSelectSources  Stage = "SELECT_SOURCES"
	StageNormalize      Stage = "NORMALIZE"
	StageRasterize      Stage = "RASTERIZE"
	StageCrop           Stage = "CROP"
	StageEditText       Stage = "EDIT_TEXT"
	StageAssemble       Stage = "ASSEMBLE"
	StageReadyForExport Stage = "READY_FOR_EXPORT"
	StageFailed         Stage = "FAILED"
)

type StartSessionRequest struct {
	LetterheadID string `json:"letterhead_id"`
	BodyID       string `json:"body_id"`
}

type SessionResponse struct {
	ID         string     `json:"id"`
	Stage      Stage      `json:"stage"`
	Letterhead SourceFile `json:"letterhead"`
	Body       SourceFile `json:"body"`
	PageWidth  int        `json:"page_width,omitempty"`
	PageHeight int        `json:"page_height,omitempty"`
	DPI        float64    `json:"dpi,omitempty"`
	HasCrop    bool       `json:"has_crop"`
	OutputName string     `json:"output_name,omitempty"`
	ExportedID string     `json:"exported_id,omitempty"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

type BodyText struct {
	Text  string   `json:"text"`
	Lines []string `json:"lines,omitempty"`
}

// GeneratedDocument is an assembled output ready for download or upload.
type GeneratedDocument struct {
	Filename    string
	ContentType string
	Data        []byte
}

type ExportResponse struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	FolderID string `json:"folder_id"`
}
