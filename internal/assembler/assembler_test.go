package assembler

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/BerylCAtieno/letterhead-merger/internal/extractor"
	"github.com/BerylCAtieno/letterhead-merger/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: uint8(x), B: uint8(y), A: 255})
		}
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

func fixture(t *testing.T) Input {
	t.Helper()
	dir := t.TempDir()
	return Input{
		HeaderImage:    writePNG(t, dir, "header.png", 120, 20),
		FooterImage:    writePNG(t, dir, "footer.png", 120, 20),
		SignatureImage: writePNG(t, dir, "signature.png", 40, 20),
		BodyLines:      []string{"Dear Sir,", "", "Updated.", "Regards,", "John"},
	}
}

func unzip(t *testing.T, r *bytes.Reader) map[string][]byte {
	t.Helper()
	zr, err := zip.NewReader(r, r.Size())
	require.NoError(t, err)

	files := make(map[string][]byte)
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		files[f.Name] = data
	}
	return files
}

// bodyParagraphs splits the w:body children into text paragraphs and
// picture paragraphs.
func bodyParagraphs(t *testing.T, documentXML []byte) (text int, pictures int) {
	t.Helper()
	var doc struct {
		Body struct {
			Paragraphs []struct {
				Inner string `xml:",innerxml"`
			} `xml:"p"`
		} `xml:"body"`
	}
	require.NoError(t, xml.Unmarshal(documentXML, &doc))

	for _, p := range doc.Body.Paragraphs {
		if strings.Contains(p.Inner, "drawing") {
			pictures++
		} else {
			text++
		}
	}
	return text, pictures
}

func TestDOCX_Assemble(t *testing.T) {
	in := fixture(t)

	out, err := DOCX{}.Assemble(in)
	require.NoError(t, err)

	pos, err := out.Seek(0, io.SeekCurrent)
	require.NoError(t, err)
	assert.Zero(t, pos, "reader must start at the beginning")

	files := unzip(t, out)
	for _, name := range []string{
		"[Content_Types].xml",
		"_rels/.rels",
		"word/document.xml",
		"word/_rels/document.xml.rels",
		"word/header1.xml",
		"word/footer1.xml",
		"word/media/header.png",
		"word/media/footer.png",
		"word/media/signature.png",
	} {
		assert.Contains(t, files, name)
	}

	text, pictures := bodyParagraphs(t, files["word/document.xml"])
	assert.Equal(t, 5, text)
	assert.Equal(t, 1, pictures)

	doc := string(files["word/document.xml"])
	assert.Contains(t, doc, `<w:headerReference w:type="default" r:id="rIdHeader"/>`)
	assert.Contains(t, doc, `<w:footerReference w:type="default" r:id="rIdFooter"/>`)

	// 6in header: 120x20 px keeps a 6:1 aspect.
	assert.Contains(t, string(files["word/header1.xml"]), `<wp:extent cx="5486400" cy="914400"/>`)
	// 2in signature: 40x20 px keeps a 2:1 aspect.
	assert.Contains(t, doc, `<wp:extent cx="1828800" cy="914400"/>`)
}

func TestDOCX_BodyOrderSurvivesExtraction(t *testing.T) {
	in := fixture(t)
	in.SignatureImage = ""

	out, err := DOCX{}.Assemble(in)
	require.NoError(t, err)

	data, err := io.ReadAll(out)
	require.NoError(t, err)

	lines, err := extractor.ExtractDOCX(data)
	require.NoError(t, err)
	assert.Equal(t, in.BodyLines, lines)
}

func TestDOCX_MissingSignatureIsSkipped(t *testing.T) {
	in := fixture(t)
	in.SignatureImage = filepath.Join(t.TempDir(), "gone.png")

	out, err := DOCX{}.Assemble(in)
	require.NoError(t, err)

	files := unzip(t, out)
	assert.NotContains(t, files, "word/media/signature.png")
	_, pictures := bodyParagraphs(t, files["word/document.xml"])
	assert.Zero(t, pictures)
	assert.NotContains(t, string(files["word/_rels/document.xml.rels"]), "rIdSignature")
}

func TestDOCX_SignatureLinesFollowBody(t *testing.T) {
	in := fixture(t)
	in.SignatureImage = ""
	in.SignatureLines = []string{"Managing Director"}

	out, err := DOCX{}.Assemble(in)
	require.NoError(t, err)
	data, err := io.ReadAll(out)
	require.NoError(t, err)

	lines, err := extractor.ExtractDOCX(data)
	require.NoError(t, err)
	assert.Equal(t, append(append([]string{}, in.BodyLines...), "Managing Director"), lines)
}

func TestDOCX_EscapesAndTabs(t *testing.T) {
	in := fixture(t)
	in.SignatureImage = ""
	in.BodyLines = []string{"Smith & Sons <Ltd>", "Ref:\t42"}

	out, err := DOCX{}.Assemble(in)
	require.NoError(t, err)
	data, err := io.ReadAll(out)
	require.NoError(t, err)

	lines, err := extractor.ExtractDOCX(data)
	require.NoError(t, err)
	assert.Equal(t, in.BodyLines, lines)
}

func TestAssemble_MissingBandsFail(t *testing.T) {
	in := fixture(t)
	in.HeaderImage = filepath.Join(t.TempDir(), "nope.png")

	_, err := DOCX{}.Assemble(in)
	assert.ErrorContains(t, err, "header image")

	in = fixture(t)
	in.FooterImage = filepath.Join(t.TempDir(), "nope.png")
	_, err = PDF{}.Assemble(in)
	assert.ErrorContains(t, err, "footer image")
}

func TestPDF_Assemble(t *testing.T) {
	in := fixture(t)
	in.BodyLines = append(in.BodyLines, "Café crème")

	out, err := PDF{}.Assemble(in)
	require.NoError(t, err)

	data, err := io.ReadAll(out)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestFor(t *testing.T) {
	a, err := For(models.FormatDOCX)
	require.NoError(t, err)
	assert.Equal(t, models.FormatDOCX, a.Format())

	a, err = For(models.FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, models.FormatPDF, a.Format())

	_, err = For(models.FormatTXT)
	assert.Error(t, err)
}
