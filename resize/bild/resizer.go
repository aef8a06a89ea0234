package bild

import (
	"image"

	"github.com/anthonynsimon/bild/transform"

	"github.com/srlehn/ledstream/resize"
)

// Resizer uses "github.com/anthonynsimon/bild/transform"
type Resizer struct{}

var _ resize.Resizer = (*Resizer)(nil)

// Resize returns an *image.RGBA with Lanczos filtering.
func (r *Resizer) Resize(img image.Image, size image.Point) (image.Image, error) {
	if err := resize.CheckSize(size); err != nil {
		return nil, err
	}
	return transform.Resize(img, size.X, size.Y, transform.Lanczos), nil
}
