// Package render rasterizes the first page of a letterhead PDF and cuts
// header, footer and signature regions out of the result.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"math"

	"github.com/BerylCAtieno/letterhead-merger/internal/models"
	"github.com/BerylCAtieno/letterhead-merger/internal/utils"

	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

const DefaultDPI = 150.0

// maxRoundingSlack is how far, in pixels, a raster may stray from the page
// geometry before the two are considered to describe different areas.
const maxRoundingSlack = 2

// Engine reads page geometry and rasterizes page 1 of a PDF.
type Engine interface {
	PageSize(pdf []byte) (width, height float64, err error)
	RenderFirstPage(pdf []byte, dpi float64) (*image.RGBA, error)
}

type mupdfEngine struct{}

// NewEngine returns the default engine: pdfcpu for geometry and MuPDF for pixels.
func NewEngine() Engine {
	return mupdfEngine{}
}

// PageSize reports the visible page area, the same area MuPDF draws: the
// crop box clipped to the media box, turned by the page rotation.
func (mupdfEngine) PageSize(pdf []byte) (float64, float64, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadAndValidate(bytes.NewReader(pdf), conf)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read document: %w", err)
	}

	boxes, err := ctx.PageBoundaries(nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read page boundaries: %w", err)
	}
	if len(boxes) == 0 {
		return 0, 0, errors.New("document has no pages")
	}

	return visibleSize(boxes[0])
}

func visibleSize(pb model.PageBoundaries) (float64, float64, error) {
	media := pb.MediaBox()
	if media == nil {
		return 0, 0, errors.New("page has no media box")
	}

	box := *media
	if crop := pb.CropBox(); crop != nil && crop.Width() > 0 && crop.Height() > 0 {
		box = types.Rectangle{
			LL: types.Point{X: math.Max(crop.LL.X, media.LL.X), Y: math.Max(crop.LL.Y, media.LL.Y)},
			UR: types.Point{X: math.Min(crop.UR.X, media.UR.X), Y: math.Min(crop.UR.Y, media.UR.Y)},
		}
	}

	w, h := box.Width(), box.Height()
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("crop box %v lies outside media box %v", pb.CropBox(), media)
	}
	if pb.Rot%180 != 0 {
		w, h = h, w
	}
	return w, h, nil
}

func (mupdfEngine) RenderFirstPage(pdf []byte, dpi float64) (*image.RGBA, error) {
	doc, err := fitz.NewFromMemory(pdf)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	defer doc.Close()

	if doc.NumPage() == 0 {
		return nil, errors.New("document has no pages")
	}

	img, err := doc.ImageDPI(0, dpi)
	if err != nil {
		return nil, fmt.Errorf("failed to rasterize page: %w", err)
	}

	return img, nil
}

type Rasterizer struct {
	engine Engine
}

func NewRasterizer(engine Engine) *Rasterizer {
	return &Rasterizer{engine: engine}
}

// Render rasterizes page 1 at dpi. The pixel buffer is normalised to
// round(points * dpi / 72) on both axes so page and pixel coordinates map
// one to one through ToPixels.
func (r *Rasterizer) Render(pdf []byte, dpi float64) (*models.RenderedPage, error) {
	if dpi <= 0 {
		dpi = DefaultDPI
	}

	w, h, err := r.engine.PageSize(pdf)
	if err != nil {
		return nil, &utils.RenderError{Stage: "geometry", Err: err}
	}
	if w <= 0 || h <= 0 {
		return nil, &utils.RenderError{Stage: "geometry", Err: fmt.Errorf("invalid page size %vx%v", w, h)}
	}

	img, err := r.engine.RenderFirstPage(pdf, dpi)
	if err != nil {
		return nil, &utils.RenderError{Stage: "rasterize", Err: err}
	}

	pw, ph := models.PixelSize(w, h, dpi)
	if pw <= 0 || ph <= 0 {
		return nil, &utils.RenderError{Stage: "rasterize", Err: fmt.Errorf("page too small at %v dpi", dpi)}
	}
	if b := img.Bounds(); abs(b.Dx()-pw) > maxRoundingSlack || abs(b.Dy()-ph) > maxRoundingSlack {
		return nil, &utils.RenderError{
			Stage: "geometry",
			Err:   fmt.Errorf("raster is %dx%d pixels but the page is %vx%v pt (%dx%d at %v dpi)", b.Dx(), b.Dy(), w, h, pw, ph, dpi),
		}
	}

	return &models.RenderedPage{
		Image:    fitCanvas(img, pw, ph),
		WidthPt:  w,
		HeightPt: h,
		DPI:      dpi,
	}, nil
}

// fitCanvas returns img re-based at (0,0) with exactly w x h pixels. It only
// absorbs rounding: extra pixels are dropped and missing ones are left white.
func fitCanvas(img *image.RGBA, w, h int) *image.RGBA {
	b := img.Bounds()
	if b.Min == (image.Point{}) && b.Dx() == w && b.Dy() == h {
		return img
	}

	out := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(out, out.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
