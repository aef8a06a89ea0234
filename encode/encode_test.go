package encode_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srlehn/ledstream/encode"
	"github.com/srlehn/ledstream/frame"
	"github.com/srlehn/ledstream/internal/errors"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	for _, depth := range []int{1, 2, 4, 8} {
		for _, size := range []int{1, 3, 16} {
			g := frame.Grid{Size: size, BitDepth: depth}
			enc, err := encode.NewEncoder(g)
			require.NoError(t, err)
			f := frame.New(g)
			for i := range f.Samples {
				f.Samples[i] = uint8(rnd.Intn(int(g.MaxBrightness()) + 1))
			}
			b, err := enc.Encode(f)
			require.NoError(t, err)
			assert.Len(t, b, g.EncodedLen())
			dec, err := enc.Decode(b)
			require.NoError(t, err)
			assert.Equal(t, f.Samples, dec.Samples, "depth %d size %d", depth, size)
		}
	}
}

func TestPackLayout(t *testing.T) {
	tests := map[string]struct {
		samples []uint8
		depth   int
		want    []byte
	}{
		"one bit":          {[]uint8{1, 0, 1, 0, 0, 0, 0, 0, 1}, 1, []byte{0x05, 0x01}},
		"four bit":         {[]uint8{0x3, 0xA, 0xF}, 4, []byte{0xA3, 0x0F}},
		"eight bit":        {[]uint8{0x12, 0xFE}, 8, []byte{0x12, 0xFE}},
		"three bit across": {[]uint8{7, 7, 7}, 3, []byte{0xFF, 0x01}},
		"masked":           {[]uint8{0xFF}, 2, []byte{0x03}},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, encode.Pack(tc.samples, tc.depth))
		})
	}
}

func TestUnpackOddDepth(t *testing.T) {
	samples := []uint8{5, 2, 7, 0, 1}
	b := encode.Pack(samples, 3)
	got, err := encode.Unpack[uint8](b, len(samples), 3)
	require.NoError(t, err)
	assert.Equal(t, samples, got)

	_, err = encode.Unpack[uint8](b[:1], len(samples), 3)
	assert.True(t, errors.Is(err, encode.ErrEncodingSizeMismatch))
}

func TestPackWideSamples(t *testing.T) {
	samples := []uint16{0xABC, 0x123, 0xFFF}
	b := encode.Pack(samples, 12)
	assert.Equal(t, []byte{0xBC, 0x3A, 0x12, 0xFF, 0x0F}, b)
	got, err := encode.Unpack[uint16](b, len(samples), 12)
	require.NoError(t, err)
	assert.Equal(t, samples, got)

	words := []uint32{0xDEADBEEF, 1}
	got32, err := encode.Unpack[uint32](encode.Pack(words, 32), len(words), 32)
	require.NoError(t, err)
	assert.Equal(t, words, got32)

	// narrower result types keep the low bits
	low, err := encode.Unpack[uint8](b, len(samples), 12)
	require.NoError(t, err)
	assert.Equal(t, []uint8{0xBC, 0x23, 0xFF}, low)
}

func TestPackDepthRange(t *testing.T) {
	assert.Nil(t, encode.Pack([]uint8{1}, 0))
	assert.Nil(t, encode.Pack([]uint64{1}, encode.MaxPackDepth+1))
	_, err := encode.Unpack[uint8]([]byte{0}, 1, 0)
	assert.Error(t, err)
}

func TestEncodeSizeMismatch(t *testing.T) {
	g := frame.Grid{Size: 4, BitDepth: 4}
	enc, err := encode.NewEncoder(g)
	require.NoError(t, err)

	_, err = enc.Encode(&frame.Frame{Samples: make([]uint8, 15)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, encode.ErrEncodingSizeMismatch))

	_, err = enc.Decode(make([]byte, g.EncodedLen()+1))
	assert.True(t, errors.Is(err, encode.ErrEncodingSizeMismatch))

	err = enc.EncodeTo(make([]byte, 3), frame.New(g))
	assert.True(t, errors.Is(err, encode.ErrEncodingSizeMismatch))
}

func TestNewEncoderInvalidGrid(t *testing.T) {
	_, err := encode.NewEncoder(frame.Grid{Size: 16, BitDepth: 9})
	assert.Error(t, err)
	_, err = encode.NewEncoder(frame.Grid{Size: 0, BitDepth: 1})
	assert.Error(t, err)
}

func TestQuantize(t *testing.T) {
	assert.Equal(t, []uint8{15, 14, 8, 0}, encode.Quantize([]byte{0, 16, 127, 255}, 4))
	assert.Equal(t, []uint8{1, 1, 0, 0}, encode.Quantize([]byte{0, 127, 128, 255}, 1))
	assert.Equal(t, []uint8{255, 0, 155}, encode.Quantize([]byte{0, 255, 100}, 8))
	// deterministic
	assert.Equal(t, encode.Quantize([]byte{42, 99}, 2), encode.Quantize([]byte{42, 99}, 2))
}

func TestQuantizeInto(t *testing.T) {
	g := frame.Grid{Size: 2, BitDepth: 2}
	f := frame.New(g)
	require.NoError(t, encode.QuantizeInto(f, []byte{0, 64, 128, 255}, g))
	assert.Equal(t, []uint8{3, 2, 1, 0}, f.Samples)

	err := encode.QuantizeInto(f, []byte{0, 1, 2}, g)
	assert.True(t, errors.Is(err, encode.ErrEncodingSizeMismatch))
}
