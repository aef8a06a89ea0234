package frame_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srlehn/ledstream/frame"
)

func TestGrid(t *testing.T) {
	tests := map[string]struct {
		grid       frame.Grid
		length     int
		maxB       uint8
		encodedLen int
	}{
		"16x16 4 bit": {frame.Grid{Size: 16, BitDepth: 4}, 256, 15, 128},
		"3x3 3 bit":   {frame.Grid{Size: 3, BitDepth: 3}, 9, 7, 4},
		"8x8 8 bit":   {frame.Grid{Size: 8, BitDepth: 8}, 64, 255, 64},
		"5x5 1 bit":   {frame.Grid{Size: 5, BitDepth: 1}, 25, 1, 4},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, tc.grid.Validate())
			assert.Equal(t, tc.length, tc.grid.Len())
			assert.Equal(t, tc.maxB, tc.grid.MaxBrightness())
			assert.Equal(t, tc.encodedLen, tc.grid.EncodedLen())
		})
	}
	assert.Error(t, frame.Grid{Size: 16, BitDepth: 0}.Validate())
	assert.Error(t, frame.Grid{Size: -1, BitDepth: 4}.Validate())
}

func TestFrameCheck(t *testing.T) {
	g := frame.Grid{Size: 2, BitDepth: 2}
	f := frame.New(g)
	require.NoError(t, f.Check(g))
	f.Samples[3] = 4
	assert.Error(t, f.Check(g))
	assert.Error(t, (&frame.Frame{Samples: make([]uint8, 3)}).Check(g))

	f.Samples[3] = 3
	assert.Equal(t, uint8(3), f.At(g, 1, 1))
	c := f.Clone()
	c.Samples[0] = 1
	assert.Equal(t, uint8(0), f.Samples[0])
}

func TestPool(t *testing.T) {
	g := frame.Grid{Size: 4, BitDepth: 4}
	p := frame.NewPool(g, 2)

	a := p.Get()
	require.Len(t, a.Samples, g.Len())
	a.Seq = 7
	p.Put(a)
	assert.Equal(t, 1, p.Len())

	b := p.Get()
	assert.Same(t, a, b)
	assert.Zero(t, b.Seq)
	assert.Equal(t, 0, p.Len())

	// bounded
	p.Put(frame.New(g))
	p.Put(frame.New(g))
	p.Put(frame.New(g))
	assert.Equal(t, 2, p.Len())

	// foreign sizes and nil are ignored
	p2 := frame.NewPool(g, 2)
	p2.Put(&frame.Frame{Samples: make([]uint8, 3)})
	p2.Put(nil)
	assert.Equal(t, 0, p2.Len())

	var nilPool *frame.Pool
	assert.Nil(t, nilPool.Get())
	nilPool.Put(a)
}
