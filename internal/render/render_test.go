package render

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/BerylCAtieno/letterhead-merger/internal/models"
	"github.com/BerylCAtieno/letterhead-merger/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEngine renders a deterministic gradient so every pixel is distinguishable.
type fakeEngine struct {
	w, h    float64
	sizeErr error
	padding int
}

func (f fakeEngine) PageSize(pdf []byte) (float64, float64, error) {
	return f.w, f.h, f.sizeErr
}

func (f fakeEngine) RenderFirstPage(pdf []byte, dpi float64) (*image.RGBA, error) {
	pw, ph := models.PixelSize(f.w, f.h, dpi)
	return gradient(pw+f.padding, ph+f.padding), nil
}

func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: uint8(x ^ y), A: 255})
		}
	}
	return img
}

func TestRasterizer_Render(t *testing.T) {
	r := NewRasterizer(fakeEngine{w: 612, h: 792})

	page, err := r.Render([]byte("%PDF"), 150)
	require.NoError(t, err)
	assert.Equal(t, 1275, page.PixelWidth())
	assert.Equal(t, 1650, page.PixelHeight())
	assert.Equal(t, 612.0, page.WidthPt)
	assert.Equal(t, 150.0, page.DPI)
}

func TestRasterizer_RenderDefaultsDPI(t *testing.T) {
	page, err := NewRasterizer(fakeEngine{w: 72, h: 72}).Render(nil, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultDPI, page.DPI)
	assert.Equal(t, 150, page.PixelWidth())
}

func TestRasterizer_RenderFitsCanvas(t *testing.T) {
	page, err := NewRasterizer(fakeEngine{w: 100, h: 200, padding: 1}).Render(nil, 72)
	require.NoError(t, err)
	assert.Equal(t, 100, page.PixelWidth())
	assert.Equal(t, 200, page.PixelHeight())
}

func TestRasterizer_RenderErrors(t *testing.T) {
	_, err := NewRasterizer(fakeEngine{sizeErr: errors.New("not a pdf")}).Render(nil, 150)
	var renderErr *utils.RenderError
	require.True(t, errors.As(err, &renderErr))
	assert.Equal(t, "geometry", renderErr.Stage)

	_, err = NewRasterizer(fakeEngine{w: 0, h: 100}).Render(nil, 150)
	assert.Equal(t, utils.KindRenderFailed, utils.KindOf(err))
}

func TestBands_Geometry(t *testing.T) {
	heights := []float64{0.5, 1, 50, 99.9, 100, 150, 200, 200.01, 612, 792, 1684}

	for _, h := range heights {
		header, err := HeaderBand(612, h)
		require.NoError(t, err)
		footer, err := FooterBand(612, h)
		require.NoError(t, err)

		assert.Greater(t, header.Height(), 0.0, "header area for h=%v", h)
		assert.Greater(t, footer.Height(), 0.0, "footer area for h=%v", h)
		assert.GreaterOrEqual(t, footer.Y0, 0.0, "footer top for h=%v", h)
		assert.LessOrEqual(t, header.Y1, h)
		assert.Equal(t, h, footer.Y1)

		if h > 2*BandHeight {
			assert.LessOrEqual(t, header.Y1, footer.Y0, "bands overlap for h=%v", h)
		}
	}

	footer, err := FooterBand(612, 792)
	require.NoError(t, err)
	assert.Equal(t, models.PageRect{X0: 0, Y0: 692, X1: 612, Y1: 792}, footer)

	_, err = HeaderBand(612, 0)
	assert.Error(t, err)
	_, err = FooterBand(612, -5)
	assert.Error(t, err)
}

func TestToPixels(t *testing.T) {
	page, err := NewRasterizer(fakeEngine{w: 612, h: 792}).Render(nil, 150)
	require.NoError(t, err)

	header := ToPixels(page, models.PageRect{X0: 0, Y0: 0, X1: 612, Y1: 100})
	assert.Equal(t, models.Rect{X0: 0, Y0: 0, X1: 1275, Y1: 208}, header)

	footer := ToPixels(page, models.PageRect{X0: 0, Y0: 692, X1: 612, Y1: 792})
	assert.Equal(t, models.Rect{X0: 0, Y0: 1442, X1: 1275, Y1: 1650}, footer)

	clamped := ToPixels(page, models.PageRect{X0: -10, Y0: 0, X1: 700, Y1: 900})
	assert.Equal(t, models.Rect{X0: 0, Y0: 0, X1: 1275, Y1: 1650}, clamped)
}

func TestRenderRegion_MatchesFullPageExtraction(t *testing.T) {
	page, err := NewRasterizer(fakeEngine{w: 200, h: 300}).Render(nil, 72)
	require.NoError(t, err)

	region := models.PageRect{X0: 10, Y0: 20, X1: 60, Y1: 90}
	first, err := RenderRegion(page, region)
	require.NoError(t, err)
	second, err := RenderRegion(page, region)
	require.NoError(t, err)
	assert.Equal(t, first.Pix, second.Pix)

	rect := ToPixels(page, region)
	sub := page.Image.SubImage(rect.Image())
	require.Equal(t, rect.Width(), first.Bounds().Dx())
	require.Equal(t, rect.Height(), first.Bounds().Dy())
	for y := 0; y < rect.Height(); y++ {
		for x := 0; x < rect.Width(); x++ {
			assert.Equal(t, sub.At(rect.X0+x, rect.Y0+y), first.At(x, y))
		}
	}
}

func TestBands_ShortPage(t *testing.T) {
	page, err := NewRasterizer(fakeEngine{w: 200, h: 60}).Render(nil, 72)
	require.NoError(t, err)

	header, footer, err := Bands(page)
	require.NoError(t, err)
	assert.Equal(t, 60, header.Bounds().Dy())
	assert.Equal(t, 60, footer.Bounds().Dy())
}

func TestCrop(t *testing.T) {
	img := gradient(100, 80)

	t.Run("valid selection", func(t *testing.T) {
		out, err := Crop(img, models.Rect{X0: 10, Y0: 5, X1: 40, Y1: 25})
		require.NoError(t, err)
		assert.Equal(t, image.Rect(0, 0, 30, 20), out.Bounds())
		assert.Equal(t, img.At(10, 5), out.At(0, 0))
		assert.Equal(t, img.At(39, 24), out.At(29, 19))
	})

	t.Run("zero width rejected", func(t *testing.T) {
		_, err := Crop(img, models.Rect{X0: 10, Y0: 5, X1: 10, Y1: 25})
		assert.ErrorIs(t, err, utils.ErrInvalidCrop)
	})

	t.Run("zero height rejected", func(t *testing.T) {
		_, err := Crop(img, models.Rect{X0: 10, Y0: 5, X1: 20, Y1: 5})
		assert.ErrorIs(t, err, utils.ErrInvalidCrop)
	})

	t.Run("outside image rejected", func(t *testing.T) {
		_, err := Crop(img, models.Rect{X0: 90, Y0: 0, X1: 101, Y1: 10})
		assert.ErrorIs(t, err, utils.ErrInvalidCrop)
	})

	t.Run("offset source image", func(t *testing.T) {
		sub := img.SubImage(image.Rect(20, 20, 60, 60))
		out, err := Crop(sub, models.Rect{X0: 0, Y0: 0, X1: 5, Y1: 5})
		require.NoError(t, err)
		assert.Equal(t, img.At(20, 20), out.At(0, 0))
	})
}

func TestSavePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "band.png")
	img := gradient(12, 7)
	require.NoError(t, SavePNG(img, path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	decoded, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), decoded.Bounds())
}
