package nfnt

import (
	"image"

	"github.com/nfnt/resize"

	rsz "github.com/srlehn/ledstream/resize"
)

// Resizer uses "github.com/nfnt/resize"
type Resizer struct{}

var _ rsz.Resizer = (*Resizer)(nil)

func (r *Resizer) Resize(img image.Image, size image.Point) (image.Image, error) {
	if err := rsz.CheckSize(size); err != nil {
		return nil, err
	}
	return resize.Resize(uint(size.X), uint(size.Y), img, resize.Lanczos3), nil
}
