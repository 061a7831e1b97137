package extractor

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nguyenthenguyen/docx"
)

const wordNS = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

// ExtractDOCX returns the text of every body-level paragraph in document
// order. Empty paragraphs are kept as "". Tabs become "\t"; line and
// carriage-return breaks become a space so one paragraph is one line.
func ExtractDOCX(data []byte) ([]string, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to read DOCX: %w", err)
	}
	defer r.Close()

	content := r.Editable().GetContent()
	if content == "" {
		return nil, errors.New("document.xml not found in DOCX")
	}

	lines, err := paragraphs(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse document.xml: %w", err)
	}

	return lines, nil
}

// paragraphs streams document.xml and collects w:p elements that are direct
// children of w:body. Paragraphs nested in tables or text boxes are skipped.
func paragraphs(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)

	var (
		lines   []string
		stack   []string
		current *strings.Builder
		inText  bool
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			name := t.Name.Local
			if t.Name.Space != "" && t.Name.Space != wordNS {
				name = ""
			}

			if name == "p" && parentIs(stack, "body") {
				current = &strings.Builder{}
			}

			if current != nil {
				switch name {
				case "t":
					inText = true
				case "tab":
					current.WriteByte('\t')
				case "br", "cr":
					current.WriteByte(' ')
				}
			}

			stack = append(stack, name)

		case xml.EndElement:
			if len(stack) == 0 {
				continue
			}
			name := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			switch {
			case name == "t":
				inText = false
			case name == "p" && current != nil && parentIs(stack, "body"):
				lines = append(lines, current.String())
				current = nil
			}

		case xml.CharData:
			if current != nil && inText {
				current.Write(t)
			}
		}
	}

	return lines, nil
}

func parentIs(stack []string, name string) bool {
	return len(stack) > 0 && stack[len(stack)-1] == name
}
