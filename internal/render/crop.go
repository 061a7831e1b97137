package render

import (
	"fmt"
	"image"
	"image/draw"

	"github.com/BerylCAtieno/letterhead-merger/internal/models"
	"github.com/BerylCAtieno/letterhead-merger/internal/utils"
)

// Crop copies rect out of img into a new image whose origin is (0,0). rect is
// relative to img's bounds and must have positive area on both axes.
func Crop(img image.Image, rect models.Rect) (*image.RGBA, error) {
	b := img.Bounds()
	if err := rect.Validate(b.Dx(), b.Dy()); err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrInvalidCrop, err)
	}

	out := image.NewRGBA(image.Rect(0, 0, rect.Width(), rect.Height()))
	src := image.Pt(b.Min.X+rect.X0, b.Min.Y+rect.Y0)
	draw.Draw(out, out.Bounds(), img, src, draw.Src)

	return out, nil
}
