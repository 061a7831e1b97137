package assembler

import (
	"bytes"
	"fmt"

	"github.com/BerylCAtieno/letterhead-merger/internal/models"

	"github.com/jung-kurt/gofpdf"
)

const (
	pointsPerInch = 72.0
	pageMargin    = pointsPerInch
	bandOffset    = 36.0
	fontSize      = 11.0
	lineHeight    = 14.0
)

// PDF lays the same content out on US Letter pages. Header and footer
// pictures repeat on every page.
type PDF struct{}

func (PDF) Format() models.Format { return models.FormatPDF }

func (PDF) Assemble(in Input) (*bytes.Reader, error) {
	header, footer, err := loadBands(in)
	if err != nil {
		return nil, err
	}
	signature, err := loadOptionalPicture(in.SignatureImage)
	if err != nil {
		return nil, fmt.Errorf("signature image: %w", err)
	}

	bandWidth := BandWidthInches * pointsPerInch
	headerHeight := bandWidth * header.aspect()
	footerHeight := bandWidth * footer.aspect()

	pdf := gofpdf.New("P", "pt", "Letter", "")
	pageW, pageH := pdf.GetPageSize()
	left := (pageW - bandWidth) / 2

	pdf.SetMargins(pageMargin, bandOffset+headerHeight+lineHeight, pageMargin)
	pdf.SetAutoPageBreak(true, bandOffset+footerHeight+lineHeight)

	pdf.SetHeaderFunc(func() {
		pdf.ImageOptions(header.path, left, bandOffset, bandWidth, headerHeight, false,
			gofpdf.ImageOptions{ImageType: header.format}, 0, "")
	})
	pdf.SetFooterFunc(func() {
		pdf.ImageOptions(footer.path, left, pageH-bandOffset-footerHeight, bandWidth, footerHeight, false,
			gofpdf.ImageOptions{ImageType: footer.format}, 0, "")
	})

	pdf.AddPage()
	pdf.SetFont("Helvetica", "", fontSize)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	writeLines := func(lines []string) {
		for _, line := range lines {
			if line == "" {
				pdf.Ln(lineHeight)
				continue
			}
			pdf.MultiCell(0, lineHeight, tr(line), "", "L", false)
		}
	}
	writeLines(in.BodyLines)
	writeLines(in.SignatureLines)

	if signature != nil {
		sigWidth := SignatureWidthInches * pointsPerInch
		pdf.ImageOptions(signature.path, pdf.GetX(), pdf.GetY(), sigWidth, sigWidth*signature.aspect(), true,
			gofpdf.ImageOptions{ImageType: signature.format}, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}

	return bytes.NewReader(buf.Bytes()), nil
}
