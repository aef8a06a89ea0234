// Package resize scales source images down to the LED grid and converts them
// to luminance. The subpackages wrap one image library each.
package resize

import (
	"image"

	"golang.org/x/image/draw"

	"github.com/srlehn/ledstream/internal/consts"
	"github.com/srlehn/ledstream/internal/errors"
)

// Resizer scales img to size. The result may be of any image type.
type Resizer interface {
	Resize(img image.Image, size image.Point) (image.Image, error)
}

// CheckSize fails for non positive dimensions.
func CheckSize(size image.Point) error {
	if size.X <= 0 || size.Y <= 0 {
		return errors.Errorf(`invalid size %dx%d`, size.X, size.Y)
	}
	return nil
}

// Gray converts img to luminance with its top left corner moved to the origin.
func Gray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Rect.Min == (image.Point{}) {
		return g
	}
	b := img.Bounds()
	g := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(g, g.Rect, img, b.Min, draw.Src)
	return g
}

// Fit scales img to a side x side square and returns it in luminance. A nil
// resizer falls back to approximate bilinear scaling.
func Fit(img image.Image, side int, rsz Resizer) (*image.Gray, error) {
	if img == nil {
		return nil, errors.New(consts.ErrNilImage)
	}
	size := image.Pt(side, side)
	if err := CheckSize(size); err != nil {
		return nil, err
	}
	if b := img.Bounds(); b.Dx() == side && b.Dy() == side {
		return Gray(img), nil
	}
	var scaled image.Image
	if rsz == nil {
		dst := image.NewGray(image.Rectangle{Max: size})
		draw.ApproxBiLinear.Scale(dst, dst.Rect, img, img.Bounds(), draw.Src, nil)
		scaled = dst
	} else {
		var err error
		scaled, err = rsz.Resize(img, size)
		if err != nil {
			return nil, errors.New(err)
		}
		if scaled == nil {
			return nil, errors.New(consts.ErrNilImage)
		}
	}
	if b := scaled.Bounds(); b.Dx() != side || b.Dy() != side {
		return nil, errors.Errorf(`resizer returned %dx%d, want %dx%d`, b.Dx(), b.Dy(), side, side)
	}
	return Gray(scaled), nil
}

// Samples returns the luminance bytes of g row by row without stride padding.
func Samples(g *image.Gray) []byte {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	if g.Stride == w {
		return g.Pix[:w*h]
	}
	out := make([]byte, 0, w*h)
	for y := 0; y < h; y++ {
		row := g.PixOffset(g.Rect.Min.X, g.Rect.Min.Y+y)
		out = append(out, g.Pix[row:row+w]...)
	}
	return out
}
