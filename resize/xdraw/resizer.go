// Package xdraw scales with golang.org/x/image/draw.
package xdraw

import (
	"image"

	"golang.org/x/image/draw"

	"github.com/srlehn/ledstream/resize"
)

type resizer struct {
	scaler draw.Scaler
}

var _ resize.Resizer = (*resizer)(nil)

func NearestNeighbor() resize.Resizer { return &resizer{scaler: draw.NearestNeighbor} }

func ApproxBiLinear() resize.Resizer { return &resizer{scaler: draw.ApproxBiLinear} }

func BiLinear() resize.Resizer { return &resizer{scaler: draw.BiLinear} }

// CatmullRom is the slowest and sharpest.
func CatmullRom() resize.Resizer { return &resizer{scaler: draw.CatmullRom} }

func (r *resizer) Resize(img image.Image, size image.Point) (image.Image, error) {
	if err := resize.CheckSize(size); err != nil {
		return nil, err
	}
	dst := image.NewGray(image.Rectangle{Max: size})
	r.scaler.Scale(dst, dst.Rect, img, img.Bounds(), draw.Src, nil)
	return dst, nil
}
