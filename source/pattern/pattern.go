// Package pattern generates test patterns for checking a grid without any
// media files.
package pattern

import (
	"context"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"

	"github.com/srlehn/ledstream/frame"
	"github.com/srlehn/ledstream/internal/errors"
	"github.com/srlehn/ledstream/resize"
)

const (
	Sparkle = `sparkle` // random cells, each lit with a fixed probability
	Sweep   = `sweep`   // a bar rotating around the center
	Text    = `text`    // a scrolling marquee
)

// Kinds lists the known pattern names.
func Kinds() []string { return []string{Sparkle, Sweep, Text} }

const (
	defaultProbability = 0.25
	sweepPeriod        = 48 // frames per revolution
)

var _ frame.Producer = (*Pattern)(nil)

// Pattern renders frame n of a pattern on demand. Unlike decoded media the
// samples are proportional to brightness, a lit cell is MaxBrightness.
type Pattern struct {
	kind  string
	grid  frame.Grid
	total uint64
	next  uint64
	pool  *frame.Pool

	prob float64
	rng  *rand.Rand

	text      string
	textWidth int
	dc        *gg.Context
}

type Option func(*Pattern)

// Frames limits the pattern to n frames. Zero is endless, except for text
// which defaults to a single pass.
func Frames(n uint64) Option { return func(p *Pattern) { p.total = n } }

// Probability of a sparkle cell being lit.
func Probability(prob float64) Option { return func(p *Pattern) { p.prob = prob } }

func Seed(seed int64) Option {
	return func(p *Pattern) { p.rng = rand.New(rand.NewSource(seed)) }
}

// Message is the marquee text.
func Message(s string) Option { return func(p *Pattern) { p.text = s } }

func Pool(pl *frame.Pool) Option { return func(p *Pattern) { p.pool = pl } }

func New(kind string, g frame.Grid, opts ...Option) (*Pattern, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	p := &Pattern{
		kind: strings.ToLower(kind),
		grid: g,
		prob: defaultProbability,
		text: `ledstream`,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	if p.pool == nil || p.pool.Grid() != g {
		p.pool = frame.NewPool(g, 0)
	}
	switch p.kind {
	case Sparkle:
		if p.prob < 0 || p.prob > 1 {
			return nil, errors.Errorf(`probability %v out of range 0..1`, p.prob)
		}
		if p.rng == nil {
			p.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
		}
	case Sweep:
		p.dc = gg.NewContext(g.Size, g.Size)
	case Text:
		p.dc = gg.NewContext(g.Size, g.Size)
		p.dc.SetFontFace(basicfont.Face7x13)
		w, _ := p.dc.MeasureString(p.text)
		p.textWidth = int(math.Ceil(w))
		if p.total == 0 {
			p.total = uint64(p.textWidth + g.Size)
		}
	default:
		return nil, errors.Errorf(`unknown pattern %q, known: %s`, kind, strings.Join(Kinds(), `, `))
	}
	return p, nil
}

// Total is the number of frames, 0 if endless.
func (p *Pattern) Total() uint64 { return p.total }

func (p *Pattern) Produce(ctx context.Context, hint int) ([]*frame.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := uint64(max(hint, 1))
	if p.total > 0 {
		if p.next >= p.total {
			return nil, frame.ErrEndOfStream
		}
		n = min(n, p.total-p.next)
	}
	batch := make([]*frame.Frame, 0, n)
	for i := uint64(0); i < n; i++ {
		f := p.pool.Get()
		p.Render(f, p.next)
		batch = append(batch, f)
		p.next++
	}
	return batch, nil
}

// Render draws frame n into f.
func (p *Pattern) Render(f *frame.Frame, n uint64) {
	switch p.kind {
	case Sparkle:
		maxB := p.grid.MaxBrightness()
		for i := range f.Samples {
			if p.rng.Float64() < p.prob {
				f.Samples[i] = maxB
			} else {
				f.Samples[i] = 0
			}
		}
		return
	case Sweep:
		p.drawSweep(n)
	case Text:
		p.drawText(n)
	}
	shift := uint(8 - p.grid.BitDepth)
	for i, v := range resize.Samples(resize.Gray(p.dc.Image())) {
		f.Samples[i] = v >> shift
	}
}

func (p *Pattern) drawSweep(n uint64) {
	dc := p.dc
	s := float64(p.grid.Size)
	c := s / 2
	angle := 2 * math.Pi * float64(n%sweepPeriod) / sweepPeriod
	dx, dy := math.Cos(angle)*s, math.Sin(angle)*s
	dc.SetRGB(0, 0, 0)
	dc.Clear()
	dc.SetRGB(1, 1, 1)
	dc.SetLineWidth(max(1, s/8))
	dc.DrawLine(c-dx, c-dy, c+dx, c+dy)
	dc.Stroke()
}

func (p *Pattern) drawText(n uint64) {
	dc := p.dc
	s := float64(p.grid.Size)
	period := uint64(p.textWidth + p.grid.Size)
	x := s - float64(n%period)
	dc.SetRGB(0, 0, 0)
	dc.Clear()
	dc.SetRGB(1, 1, 1)
	dc.DrawStringAnchored(p.text, x, s/2, 0, 0.5)
}
