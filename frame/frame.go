// Package frame holds the brightness frames streamed to the LED grid.
package frame

import (
	"github.com/srlehn/ledstream/internal/errors"
)

// Grid describes the square LED grid a frame is rendered for.
type Grid struct {
	Size     int // cells per side
	BitDepth int // bits per sample, 1..8
}

// Len is the number of samples in a frame.
func (g Grid) Len() int { return g.Size * g.Size }

// MaxBrightness is the largest sample value, 2^BitDepth - 1.
func (g Grid) MaxBrightness() uint8 { return uint8(1<<g.BitDepth - 1) }

// EncodedLen is the size of a packed frame in bytes.
func (g Grid) EncodedLen() int { return (g.Len()*g.BitDepth + 7) / 8 }

func (g Grid) Validate() error {
	if g.Size < 1 {
		return errors.Errorf(`grid size %d out of range`, g.Size)
	}
	if g.BitDepth < 1 || g.BitDepth > 8 {
		return errors.Errorf(`bit depth %d out of range 1..8`, g.BitDepth)
	}
	return nil
}

// Frame is one grid of quantized brightness samples in row-major order.
// A frame must not be modified once it was handed to a buffer.
type Frame struct {
	Seq     uint64 // production order, assigned by the buffer
	Samples []uint8
}

func New(g Grid) *Frame { return &Frame{Samples: make([]uint8, g.Len())} }

// At returns the sample of the cell in column x, row y.
func (f *Frame) At(g Grid, x, y int) uint8 { return f.Samples[y*g.Size+x] }

// Check reports whether the frame fits the grid.
func (f *Frame) Check(g Grid) error {
	if f == nil {
		return errors.NilParam(nil)
	}
	if len(f.Samples) != g.Len() {
		return errors.Errorf(`frame has %d samples, grid %dx%d needs %d`, len(f.Samples), g.Size, g.Size, g.Len())
	}
	maxB := g.MaxBrightness()
	for i, s := range f.Samples {
		if s > maxB {
			return errors.Errorf(`sample %d has brightness %d above %d`, i, s, maxB)
		}
	}
	return nil
}

func (f *Frame) Clone() *Frame {
	if f == nil {
		return nil
	}
	return &Frame{Seq: f.Seq, Samples: append([]uint8(nil), f.Samples...)}
}
