package rez

import (
	"image"

	"github.com/bamiaux/rez"

	"github.com/srlehn/ledstream/internal/errors"
	"github.com/srlehn/ledstream/resize"
)

// Resizer uses "github.com/bamiaux/rez". Only *image.Gray, *image.RGBA and
// *image.YCbCr sources are supported natively, others are converted first.
type Resizer struct{}

var _ resize.Resizer = (*Resizer)(nil)

func (r *Resizer) Resize(img image.Image, size image.Point) (image.Image, error) {
	if err := resize.CheckSize(size); err != nil {
		return nil, err
	}
	switch img.(type) {
	case *image.Gray, *image.RGBA, *image.YCbCr:
	default:
		img = resize.Gray(img)
	}
	var dst image.Image
	switch src := img.(type) {
	case *image.YCbCr:
		dst = image.NewYCbCr(image.Rectangle{Max: size}, src.SubsampleRatio)
	case *image.RGBA:
		dst = image.NewRGBA(image.Rectangle{Max: size})
	default:
		dst = image.NewGray(image.Rectangle{Max: size})
	}
	if err := rez.Convert(dst, img, rez.NewBilinearFilter()); err != nil {
		return nil, errors.New(err)
	}
	return dst, nil
}
