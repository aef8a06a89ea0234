package encode

import (
	"github.com/srlehn/ledstream/frame"
	"github.com/srlehn/ledstream/internal/errors"
)

// Quantize maps 8 bit intensities to d bit samples. Intensity 0 is the
// brightest value of the source and becomes the maximum sample.
func Quantize(raw []byte, d int) []uint8 {
	samples := make([]uint8, len(raw))
	quantize(samples, raw, d)
	return samples
}

// QuantizeInto fills f from raw gray intensities.
func QuantizeInto(f *frame.Frame, raw []byte, g frame.Grid) error {
	if f == nil {
		return errors.NilParam(nil)
	}
	if len(raw) != g.Len() || len(f.Samples) != g.Len() {
		return errors.Errorf(`%w: %d intensities, %d samples, grid needs %d`, ErrEncodingSizeMismatch, len(raw), len(f.Samples), g.Len())
	}
	quantize(f.Samples, raw, g.BitDepth)
	return nil
}

func quantize(dst []uint8, raw []byte, d int) {
	shift := uint(8 - d)
	maxB := uint8(1<<d - 1)
	for i, v := range raw {
		dst[i] = maxB - v>>shift
	}
}
