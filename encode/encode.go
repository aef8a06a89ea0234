// Package encode converts frames into the bit-packed wire format of the LED
// grid controller.
//
// Sample i of a frame occupies bits [i*d, (i+1)*d) of the output bitstream,
// d being the bit depth. Bits are filled least significant first within each
// byte and only the final byte carries padding.
package encode

import (
	"errors"

	"golang.org/x/exp/constraints"

	"github.com/srlehn/ledstream/frame"
	errorsx "github.com/srlehn/ledstream/internal/errors"
)

var ErrEncodingSizeMismatch = errors.New(`frame size does not match grid`)

// Encoder packs frames of a fixed grid.
type Encoder struct {
	grid frame.Grid
}

func NewEncoder(g frame.Grid) (*Encoder, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return &Encoder{grid: g}, nil
}

func (e *Encoder) Grid() frame.Grid { return e.grid }

// Encode returns the packed representation of f.
func (e *Encoder) Encode(f *frame.Frame) ([]byte, error) {
	dst := make([]byte, e.grid.EncodedLen())
	if err := e.EncodeTo(dst, f); err != nil {
		return nil, err
	}
	return dst, nil
}

// EncodeTo packs f into dst which must hold exactly EncodedLen bytes.
func (e *Encoder) EncodeTo(dst []byte, f *frame.Frame) error {
	if e == nil {
		return errorsx.NilReceiver(nil)
	}
	if f == nil {
		return errorsx.NilParam(nil)
	}
	if len(f.Samples) != e.grid.Len() {
		return errorsx.Errorf(`%w: %d samples, %dx%d grid`, ErrEncodingSizeMismatch, len(f.Samples), e.grid.Size, e.grid.Size)
	}
	if len(dst) != e.grid.EncodedLen() {
		return errorsx.Errorf(`%w: destination holds %d bytes, need %d`, ErrEncodingSizeMismatch, len(dst), e.grid.EncodedLen())
	}
	pack(dst, f.Samples, uint(e.grid.BitDepth))
	return nil
}

// Decode unpacks b into a new frame.
func (e *Encoder) Decode(b []byte) (*frame.Frame, error) {
	if e == nil {
		return nil, errorsx.NilReceiver(nil)
	}
	if len(b) != e.grid.EncodedLen() {
		return nil, errorsx.Errorf(`%w: %d bytes, need %d`, ErrEncodingSizeMismatch, len(b), e.grid.EncodedLen())
	}
	f := frame.New(e.grid)
	unpack(f.Samples, b, uint(e.grid.BitDepth))
	return f, nil
}

// MaxPackDepth is the largest bit depth Pack and Unpack handle.
const MaxPackDepth = 32

// Pack packs samples of bit depth d, LSB first. Samples are masked to d bits.
// It returns nil if d is not within [1, MaxPackDepth].
func Pack[S constraints.Unsigned](samples []S, d int) []byte {
	if d < 1 || d > MaxPackDepth {
		return nil
	}
	dst := make([]byte, ceilDiv(len(samples)*d, 8))
	pack(dst, samples, uint(d))
	return dst
}

// Unpack reads n samples of bit depth d from b. Bits above the size of S
// are dropped.
func Unpack[S constraints.Unsigned](b []byte, n, d int) ([]S, error) {
	if d < 1 || d > MaxPackDepth {
		return nil, errorsx.Errorf(`bit depth %d out of range [1, %d]`, d, MaxPackDepth)
	}
	if need := ceilDiv(n*d, 8); len(b) < need {
		return nil, errorsx.Errorf(`%w: %d bytes, need %d`, ErrEncodingSizeMismatch, len(b), need)
	}
	samples := make([]S, n)
	unpack(samples, b, uint(d))
	return samples, nil
}

// acc never holds more than 7 pending bits plus one sample.
func pack[S constraints.Unsigned](dst []byte, samples []S, d uint) {
	mask := uint64(1)<<d - 1
	var (
		acc uint64
		n   uint
		j   int
	)
	for _, s := range samples {
		acc |= (uint64(s) & mask) << n
		n += d
		for n >= 8 {
			dst[j] = byte(acc)
			j++
			acc >>= 8
			n -= 8
		}
	}
	if n > 0 {
		dst[j] = byte(acc)
	}
}

func unpack[S constraints.Unsigned](samples []S, src []byte, d uint) {
	mask := uint64(1)<<d - 1
	var (
		acc uint64
		n   uint
		j   int
	)
	for i := range samples {
		for n < d {
			acc |= uint64(src[j]) << n
			j++
			n += 8
		}
		samples[i] = S(acc & mask)
		acc >>= d
		n -= d
	}
}

func ceilDiv[T constraints.Integer](a, b T) T { return (a + b - 1) / b }
