package assembler

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/BerylCAtieno/letterhead-merger/internal/models"
)

const emuPerInch = 914400

const (
	nsW   = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	nsR   = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsWP  = "http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing"
	nsA   = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsPic = "http://schemas.openxmlformats.org/drawingml/2006/picture"

	relTypeOfficeDocument = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument"
	relTypeHeader         = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/header"
	relTypeFooter         = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/footer"
	relTypeImage          = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"
)

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
	`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
	`<Default Extension="xml" ContentType="application/xml"/>` +
	`<Default Extension="png" ContentType="image/png"/>` +
	`<Default Extension="jpeg" ContentType="image/jpeg"/>` +
	`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
	`<Override PartName="/word/header1.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.header+xml"/>` +
	`<Override PartName="/word/footer1.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.footer+xml"/>` +
	`</Types>`

// DOCX writes a WordprocessingML package with one section whose header and
// footer are defined on the section itself.
type DOCX struct{}

func (DOCX) Format() models.Format { return models.FormatDOCX }

func (DOCX) Assemble(in Input) (*bytes.Reader, error) {
	header, footer, err := loadBands(in)
	if err != nil {
		return nil, err
	}
	signature, err := loadOptionalPicture(in.SignatureImage)
	if err != nil {
		return nil, fmt.Errorf("signature image: %w", err)
	}

	headerMedia := "media/header." + header.extension()
	footerMedia := "media/footer." + footer.extension()

	docRels := []relationship{
		{ID: "rIdHeader", Type: relTypeHeader, Target: "header1.xml"},
		{ID: "rIdFooter", Type: relTypeFooter, Target: "footer1.xml"},
	}

	var body strings.Builder
	for _, line := range in.BodyLines {
		writeParagraph(&body, line)
	}
	for _, line := range in.SignatureLines {
		writeParagraph(&body, line)
	}

	parts := []part{
		{"[Content_Types].xml", []byte(contentTypesXML)},
		{"_rels/.rels", relsXML([]relationship{{ID: "rId1", Type: relTypeOfficeDocument, Target: "word/document.xml"}})},
		{"word/header1.xml", headerFooterXML("hdr", pictureParagraph(header, "rIdImage", 1, BandWidthInches))},
		{"word/_rels/header1.xml.rels", relsXML([]relationship{{ID: "rIdImage", Type: relTypeImage, Target: headerMedia}})},
		{"word/footer1.xml", headerFooterXML("ftr", pictureParagraph(footer, "rIdImage", 2, BandWidthInches))},
		{"word/_rels/footer1.xml.rels", relsXML([]relationship{{ID: "rIdImage", Type: relTypeImage, Target: footerMedia}})},
		{"word/" + headerMedia, header.data},
		{"word/" + footerMedia, footer.data},
	}

	if signature != nil {
		sigMedia := "media/signature." + signature.extension()
		docRels = append(docRels, relationship{ID: "rIdSignature", Type: relTypeImage, Target: sigMedia})
		body.WriteString(pictureParagraph(signature, "rIdSignature", 3, SignatureWidthInches))
		parts = append(parts, part{"word/" + sigMedia, signature.data})
	}

	parts = append(parts,
		part{"word/document.xml", documentXML(body.String())},
		part{"word/_rels/document.xml.rels", relsXML(docRels)},
	)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, p := range parts {
		w, err := zw.Create(p.name)
		if err != nil {
			return nil, fmt.Errorf("failed to add %s: %w", p.name, err)
		}
		if _, err := w.Write(p.data); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", p.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish docx: %w", err)
	}

	return bytes.NewReader(buf.Bytes()), nil
}

type part struct {
	name string
	data []byte
}

type relationship struct {
	ID     string
	Type   string
	Target string
}

func relsXML(rels []relationship) []byte {
	var b strings.Builder
	b.WriteString(xml.Header)
	b.WriteString(`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	for _, rel := range rels {
		fmt.Fprintf(&b, `<Relationship Id="%s" Type="%s" Target="%s"/>`, rel.ID, rel.Type, rel.Target)
	}
	b.WriteString(`</Relationships>`)
	return []byte(b.String())
}

func namespaces() string {
	return fmt.Sprintf(`xmlns:w="%s" xmlns:r="%s" xmlns:wp="%s" xmlns:a="%s" xmlns:pic="%s"`, nsW, nsR, nsWP, nsA, nsPic)
}

func documentXML(body string) []byte {
	var b strings.Builder
	b.WriteString(xml.Header)
	b.WriteString(`<w:document ` + namespaces() + `><w:body>`)
	b.WriteString(body)
	b.WriteString(`<w:sectPr>` +
		`<w:headerReference w:type="default" r:id="rIdHeader"/>` +
		`<w:footerReference w:type="default" r:id="rIdFooter"/>` +
		`<w:pgSz w:w="12240" w:h="15840"/>` +
		`<w:pgMar w:top="1440" w:right="1440" w:bottom="1440" w:left="1440" w:header="720" w:footer="720" w:gutter="0"/>` +
		`</w:sectPr>`)
	b.WriteString(`</w:body></w:document>`)
	return []byte(b.String())
}

func headerFooterXML(root, content string) []byte {
	return []byte(xml.Header + `<w:` + root + ` ` + namespaces() + `>` + content + `</w:` + root + `>`)
}

// writeParagraph emits one w:p for line. Tabs become w:tab elements.
func writeParagraph(b *strings.Builder, line string) {
	if line == "" {
		b.WriteString(`<w:p/>`)
		return
	}

	b.WriteString(`<w:p><w:r>`)
	for i, chunk := range strings.Split(line, "\t") {
		if i > 0 {
			b.WriteString(`<w:tab/>`)
		}
		if chunk == "" {
			continue
		}
		b.WriteString(`<w:t xml:space="preserve">`)
		xml.EscapeText(b, []byte(chunk))
		b.WriteString(`</w:t>`)
	}
	b.WriteString(`</w:r></w:p>`)
}

// pictureParagraph emits a paragraph holding one inline picture scaled to
// widthInches with its aspect ratio kept.
func pictureParagraph(p *picture, relID string, id int, widthInches float64) string {
	cx := int64(widthInches * emuPerInch)
	cy := int64(float64(cx) * p.aspect())
	name := fmt.Sprintf("Picture %d", id)

	return fmt.Sprintf(`<w:p><w:r><w:drawing>`+
		`<wp:inline distT="0" distB="0" distL="0" distR="0">`+
		`<wp:extent cx="%[1]d" cy="%[2]d"/>`+
		`<wp:docPr id="%[3]d" name="%[4]s"/>`+
		`<wp:cNvGraphicFramePr><a:graphicFrameLocks noChangeAspect="1"/></wp:cNvGraphicFramePr>`+
		`<a:graphic><a:graphicData uri="%[6]s">`+
		`<pic:pic><pic:nvPicPr><pic:cNvPr id="0" name="%[4]s"/><pic:cNvPicPr/></pic:nvPicPr>`+
		`<pic:blipFill><a:blip r:embed="%[5]s"/><a:stretch><a:fillRect/></a:stretch></pic:blipFill>`+
		`<pic:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="%[1]d" cy="%[2]d"/></a:xfrm>`+
		`<a:prstGeom prst="rect"><a:avLst/></a:prstGeom></pic:spPr></pic:pic>`+
		`</a:graphicData></a:graphic></wp:inline>`+
		`</w:drawing></w:r></w:p>`,
		cx, cy, id, name, relID, nsPic)
}
