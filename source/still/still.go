// Package still streams a single image as a video of fixed length.
package still

import (
	"context"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/srlehn/ledstream/encode"
	"github.com/srlehn/ledstream/frame"
	"github.com/srlehn/ledstream/internal/consts"
	"github.com/srlehn/ledstream/internal/errors"
	"github.com/srlehn/ledstream/resize"
	"github.com/srlehn/ledstream/source"
)

// Load decodes png, jpeg, gif, bmp, tiff and webp files.
func Load(file string) (image.Image, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, errors.New(err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.WrapPrefix(err, file, 0)
	}
	return img, nil
}

// Frame scales img to g and quantizes it into f.
func Frame(f *frame.Frame, img image.Image, g frame.Grid, rsz resize.Resizer) error {
	gray, err := resize.Fit(img, g.Size, rsz)
	if err != nil {
		return err
	}
	return encode.QuantizeInto(f, resize.Samples(gray), g)
}

var _ frame.Producer = (*Still)(nil)

// Still emits the same frame for every frame period of the duration.
type Still struct {
	frame     *frame.Frame
	pool      *frame.Pool
	total     uint64
	remaining uint64
}

type config struct {
	duration time.Duration
	fps      float64
	resizer  resize.Resizer
	pool     *frame.Pool
}

type Option func(*config)

// Duration of the stream. Zero shows the image for a single frame.
func Duration(d time.Duration) Option { return func(c *config) { c.duration = d } }

func FPS(fps float64) Option { return func(c *config) { c.fps = fps } }

func Resizer(r resize.Resizer) Option { return func(c *config) { c.resizer = r } }

func Pool(p *frame.Pool) Option { return func(c *config) { c.pool = p } }

func New(img image.Image, g frame.Grid, opts ...Option) (*Still, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	c := &config{fps: consts.FPS}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.fps <= 0 {
		return nil, errors.Errorf(`frame rate %v must be positive`, c.fps)
	}
	f := frame.New(g)
	if err := Frame(f, img, g, c.resizer); err != nil {
		return nil, err
	}
	total := uint64(c.duration.Seconds() * c.fps)
	if total < 1 {
		total = 1
	}
	if c.pool == nil || c.pool.Grid() != g {
		c.pool = frame.NewPool(g, 0)
	}
	return &Still{frame: f, pool: c.pool, total: total, remaining: total}, nil
}

// Total is the number of frames produced.
func (s *Still) Total() uint64 { return s.total }

// Produce returns up to hint copies of the frame.
func (s *Still) Produce(ctx context.Context, hint int) ([]*frame.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.remaining == 0 {
		return nil, frame.ErrEndOfStream
	}
	n := uint64(max(hint, 1))
	n = min(n, s.remaining)
	batch := make([]*frame.Frame, 0, n)
	for i := uint64(0); i < n; i++ {
		f := s.pool.Get()
		copy(f.Samples, s.frame.Samples)
		batch = append(batch, f)
	}
	s.remaining -= n
	return batch, nil
}

// NewSource is New running as a source.Source.
func NewSource(img image.Image, g frame.Grid, opts ...Option) (source.Source, error) {
	s, err := New(img, g, opts...)
	if err != nil {
		return nil, err
	}
	return source.FromProducer(s, s.Total(), consts.BatchSize), nil
}
