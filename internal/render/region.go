package render

import (
	"fmt"
	"image"
	"image/png"
	"math"
	"os"

	"github.com/BerylCAtieno/letterhead-merger/internal/models"
	"github.com/BerylCAtieno/letterhead-merger/internal/utils"
)

// BandHeight is the height in points of the header and footer bands.
const BandHeight = 100.0

// HeaderBand is the top BandHeight points of a w x h page. Pages shorter
// than BandHeight yield the whole page.
func HeaderBand(w, h float64) (models.PageRect, error) {
	if w <= 0 || h <= 0 {
		return models.PageRect{}, fmt.Errorf("invalid page size %vx%v", w, h)
	}
	return models.PageRect{X0: 0, Y0: 0, X1: w, Y1: math.Min(BandHeight, h)}, nil
}

// FooterBand is the bottom BandHeight points of a w x h page, clamped so its
// top never goes above the page.
func FooterBand(w, h float64) (models.PageRect, error) {
	if w <= 0 || h <= 0 {
		return models.PageRect{}, fmt.Errorf("invalid page size %vx%v", w, h)
	}
	return models.PageRect{X0: 0, Y0: h - math.Min(BandHeight, h), X1: w, Y1: h}, nil
}

// ToPixels maps a page-unit rectangle onto the page's pixel buffer.
func ToPixels(page *models.RenderedPage, r models.PageRect) models.Rect {
	s := page.Scale()
	px := func(v float64, limit int) int {
		return clamp(int(math.Round(v*s)), 0, limit)
	}
	w, h := page.PixelWidth(), page.PixelHeight()
	return models.Rect{
		X0: px(r.X0, w),
		Y0: px(r.Y0, h),
		X1: px(r.X1, w),
		Y1: px(r.Y1, h),
	}
}

// RenderRegion extracts the page-unit rectangle r from the full-page render.
func RenderRegion(page *models.RenderedPage, r models.PageRect) (*image.RGBA, error) {
	rect := ToPixels(page, r)
	img, err := Crop(page.Image, rect)
	if err != nil {
		return nil, &utils.RenderError{Stage: "region", Err: err}
	}
	return img, nil
}

// Bands renders the header and footer bands of page.
func Bands(page *models.RenderedPage) (header, footer *image.RGBA, err error) {
	hb, err := HeaderBand(page.WidthPt, page.HeightPt)
	if err != nil {
		return nil, nil, &utils.RenderError{Stage: "header", Err: err}
	}
	fb, err := FooterBand(page.WidthPt, page.HeightPt)
	if err != nil {
		return nil, nil, &utils.RenderError{Stage: "footer", Err: err}
	}

	if header, err = RenderRegion(page, hb); err != nil {
		return nil, nil, err
	}
	if footer, err = RenderRegion(page, fb); err != nil {
		return nil, nil, err
	}
	return header, footer, nil
}

func SavePNG(img image.Image, path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}

	return f.Close()
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
