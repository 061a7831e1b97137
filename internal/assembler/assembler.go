// Package assembler builds the merged output document from the letterhead
// header and footer bands, the edited body paragraphs and the signature crop.
package assembler

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"os"

	"github.com/BerylCAtieno/letterhead-merger/internal/models"
)

const (
	// BandWidthInches is the display width of the header and footer pictures.
	BandWidthInches = 6.0
	// SignatureWidthInches is the display width of the signature picture.
	SignatureWidthInches = 2.0
)

// Input holds everything that goes into one output document. Image fields
// are paths to files on disk.
type Input struct {
	HeaderImage    string
	FooterImage    string
	BodyLines      []string
	SignatureLines []string
	SignatureImage string
}

type Assembler interface {
	Assemble(in Input) (*bytes.Reader, error)
	Format() models.Format
}

// For returns the assembler producing format.
func For(format models.Format) (Assembler, error) {
	switch format {
	case models.FormatDOCX:
		return DOCX{}, nil
	case models.FormatPDF:
		return PDF{}, nil
	}
	return nil, fmt.Errorf("no assembler for format %q", format)
}

type picture struct {
	path   string
	data   []byte
	format string
	width  int
	height int
}

func (p *picture) extension() string {
	if p.format == "jpeg" {
		return "jpeg"
	}
	return "png"
}

// aspect is height over width.
func (p *picture) aspect() float64 {
	return float64(p.height) / float64(p.width)
}

func loadPicture(path string) (*picture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("image %s has no pixels", path)
	}

	return &picture{path: path, data: data, format: format, width: cfg.Width, height: cfg.Height}, nil
}

// loadOptionalPicture returns nil without error when path is empty or absent.
func loadOptionalPicture(path string) (*picture, error) {
	if path == "" {
		return nil, nil
	}
	pic, err := loadPicture(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return pic, err
}

func loadBands(in Input) (header, footer *picture, err error) {
	if header, err = loadPicture(in.HeaderImage); err != nil {
		return nil, nil, fmt.Errorf("header image: %w", err)
	}
	if footer, err = loadPicture(in.FooterImage); err != nil {
		return nil, nil, fmt.Errorf("footer image: %w", err)
	}
	return header, footer, nil
}
