package imaging

import (
	"image"

	"github.com/disintegration/imaging"

	"github.com/srlehn/ledstream/resize"
)

// Resizer uses "github.com/disintegration/imaging"
type Resizer struct {
	// Fill crops to the square instead of stretching.
	Fill bool
}

var _ resize.Resizer = (*Resizer)(nil)

func (r *Resizer) Resize(img image.Image, size image.Point) (image.Image, error) {
	if err := resize.CheckSize(size); err != nil {
		return nil, err
	}
	if r != nil && r.Fill {
		return imaging.Fill(img, size.X, size.Y, imaging.Center, imaging.Lanczos), nil
	}
	return imaging.Resize(img, size.X, size.Y, imaging.Lanczos), nil
}
