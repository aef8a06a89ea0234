package ledstream_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srlehn/ledstream"
	"github.com/srlehn/ledstream/frame"
	"github.com/srlehn/ledstream/source/pattern"
)

var grid = frame.Grid{Size: 4, BitDepth: 4}

func TestPlayPattern(t *testing.T) {
	p, err := pattern.New(pattern.Sweep, grid, pattern.Frames(6))
	require.NoError(t, err)
	var out bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, ledstream.Play(ctx, p, p.Total(), grid, &out))
	assert.Equal(t, 6*grid.EncodedLen(), out.Len())
}

func TestShowImage(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = uint8(color.Black.Y)
	}
	file := filepath.Join(t.TempDir(), `black.png`)
	fh, err := os.Create(file)
	require.NoError(t, err)
	require.NoError(t, png.Encode(fh, img))
	require.NoError(t, fh.Close())

	var out bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, ledstream.ShowImage(ctx, file, grid, &out, 0))
	// a single frame, intensity 0 is full brightness
	assert.Equal(t, bytes.Repeat([]byte{0xff}, grid.EncodedLen()), out.Bytes())
}

func TestShowImageMissing(t *testing.T) {
	err := ledstream.ShowImage(context.Background(), filepath.Join(t.TempDir(), `nope.png`), grid, &bytes.Buffer{}, time.Second)
	assert.Error(t, err)
}
