package gift

import (
	"image"

	"github.com/disintegration/gift"

	"github.com/srlehn/ledstream/resize"
)

// Resizer uses "github.com/disintegration/gift". It draws straight into a
// gray image.
type Resizer struct{}

var _ resize.Resizer = (*Resizer)(nil)

func (r *Resizer) Resize(img image.Image, size image.Point) (image.Image, error) {
	if err := resize.CheckSize(size); err != nil {
		return nil, err
	}
	m := image.NewGray(image.Rectangle{Max: size})
	gift.New(
		gift.Resize(size.X, size.Y, gift.LanczosResampling),
		gift.Grayscale(),
	).Draw(m, img)
	return m, nil
}
