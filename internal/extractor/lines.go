package extractor

import (
	"fmt"
	"strings"

	"github.com/BerylCAtieno/letterhead-merger/internal/models"
)

// ExtractLines returns the body document as one string per paragraph.
func ExtractLines(raw models.RawDocument) ([]string, error) {
	switch raw.Format {
	case models.FormatDOCX:
		return ExtractDOCX(raw.Data)
	case models.FormatPDF:
		return ExtractPDF(raw.Data)
	case models.FormatTXT:
		return ExtractTXT(raw.Data)
	}
	return nil, fmt.Errorf("unsupported body format %q", raw.Format)
}

// JoinLines renders paragraphs as the editable text shown to the user.
func JoinLines(lines []string) string {
	return strings.Join(lines, "\n")
}

// SplitLines turns edited text back into paragraphs. Every newline starts a
// new paragraph; "\r\n" and "\r" count as one newline.
func SplitLines(text string) []string {
	return strings.Split(normalizeNewlines(text), "\n")
}

func normalizeNewlines(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}
