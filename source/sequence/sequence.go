// Package sequence streams numbered image files, e.g. frames extracted from a
// video ahead of time.
package sequence

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/srlehn/ledstream/frame"
	"github.com/srlehn/ledstream/internal/consts"
	"github.com/srlehn/ledstream/internal/errors"
	"github.com/srlehn/ledstream/resize"
	"github.com/srlehn/ledstream/source"
	"github.com/srlehn/ledstream/source/ffmpeg"
	"github.com/srlehn/ledstream/source/still"
)

var _ frame.Producer = (*Sequence)(nil)

// Sequence loads the files of a printf pattern numbered from 1 until the
// first missing one.
type Sequence struct {
	pattern string
	grid    frame.Grid
	resizer resize.Resizer
	pool    *frame.Pool
	total   uint64
	next    uint64
	cleanup bool
}

type Option func(*Sequence)

func Resizer(r resize.Resizer) Option { return func(s *Sequence) { s.resizer = r } }

func Pool(p *frame.Pool) Option { return func(s *Sequence) { s.pool = p } }

// RemoveOnClose deletes the directory of the pattern on Close.
func RemoveOnClose() Option { return func(s *Sequence) { s.cleanup = true } }

func New(pattern string, g frame.Grid, opts ...Option) (*Sequence, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	s := &Sequence{pattern: pattern, grid: g}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.pool == nil || s.pool.Grid() != g {
		s.pool = frame.NewPool(g, 0)
	}
	for {
		if _, err := os.Stat(s.file(s.total)); err != nil {
			break
		}
		s.total++
	}
	if s.total == 0 {
		return nil, errors.Errorf(`no files match %q`, pattern)
	}
	return s, nil
}

func (s *Sequence) file(i uint64) string { return fmt.Sprintf(s.pattern, i+1) }

func (s *Sequence) Total() uint64 { return s.total }

func (s *Sequence) Produce(ctx context.Context, hint int) ([]*frame.Frame, error) {
	if s.next >= s.total {
		return nil, frame.ErrEndOfStream
	}
	n := min(uint64(max(hint, 1)), s.total-s.next)
	batch := make([]*frame.Frame, 0, n)
	for i := uint64(0); i < n; i++ {
		if err := ctx.Err(); err != nil {
			return batch, err
		}
		img, err := still.Load(s.file(s.next))
		if err != nil {
			return batch, err
		}
		f := s.pool.Get()
		if err := still.Frame(f, img, s.grid, s.resizer); err != nil {
			return batch, err
		}
		batch = append(batch, f)
		s.next++
	}
	return batch, nil
}

func (s *Sequence) Close() error {
	if s == nil || !s.cleanup {
		return nil
	}
	return errors.Wrapped(os.RemoveAll(filepath.Dir(s.pattern)))
}

// FromVideo extracts the frames of file with ffmpeg first and streams them
// afterwards. The extracted files are removed on Close.
func FromVideo(ctx context.Context, file string, g frame.Grid, fps float64, opts ...Option) (source.Source, error) {
	pattern, err := ffmpeg.ExtractFrames(ctx, file, g.Size, fps)
	if err != nil {
		return nil, err
	}
	s, err := New(pattern, g, append(opts, RemoveOnClose())...)
	if err != nil {
		_ = os.RemoveAll(filepath.Dir(pattern))
		return nil, err
	}
	return source.FromProducer(s, s.Total(), consts.BatchSize), nil
}
