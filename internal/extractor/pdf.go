package extractor

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ExtractPDF returns the plain text of every page as lines. PDFs carry no
// paragraph structure, so each text line becomes one body paragraph. Pages
// whose text cannot be read are skipped; an error is returned only when no
// page yields any text.
func ExtractPDF(data []byte) ([]string, error) {
	reader := bytes.NewReader(data)

	pdfReader, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF reader: %w", err)
	}

	var (
		body    strings.Builder
		skipped []int
		lastErr error
	)
	for i := 1; i <= pdfReader.NumPage(); i++ {
		page := pdfReader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			skipped = append(skipped, i)
			lastErr = err
			continue
		}

		body.WriteString(text)
		body.WriteString("\n")
	}

	extractedText := strings.TrimRight(body.String(), "\n")
	if strings.TrimSpace(extractedText) == "" {
		if lastErr != nil {
			return nil, fmt.Errorf("no text could be extracted from PDF (pages %v unreadable): %w", skipped, lastErr)
		}
		return nil, fmt.Errorf("no text could be extracted from PDF")
	}

	return SplitLines(extractedText), nil
}
