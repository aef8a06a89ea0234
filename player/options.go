package player

import (
	"io"
	"time"

	"github.com/srlehn/ledstream/frame"
	"github.com/srlehn/ledstream/internal/errors"
	"github.com/srlehn/ledstream/internal/logx"
)

type Option interface {
	ApplyOption(p *Player) error
}

var _ Option = (OptFunc)(nil)

type OptFunc func(*Player) error

func (o OptFunc) ApplyOption(p *Player) error { return o(p) }

var _ Option = (Options)(nil)

type Options []Option

func (o Options) ApplyOption(p *Player) error { return p.SetOptions([]Option(o)...) }

func (p *Player) SetOptions(opts ...Option) error {
	if p == nil {
		return errors.NilReceiver(nil)
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.ApplyOption(p); err != nil {
			return errors.New(err)
		}
	}
	return nil
}

func SetGrid(g frame.Grid) Option {
	return OptFunc(func(p *Player) error {
		if err := g.Validate(); err != nil {
			return err
		}
		p.grid = g
		return nil
	})
}

func SetFPS(fps float64) Option {
	return OptFunc(func(p *Player) error {
		if fps <= 0 {
			return errors.Errorf(`frame rate %v must be positive`, fps)
		}
		p.fps = fps
		return nil
	})
}

// SetBufferSize sets the number of frames kept ahead of playback.
func SetBufferSize(n int) Option {
	return OptFunc(func(p *Player) error {
		if n < 1 {
			return errors.Errorf(`buffer size %d must be positive`, n)
		}
		p.bufferSize = n
		return nil
	})
}

// SetBufferRatio sets how often per frame period the buffer level is
// checked.
func SetBufferRatio(n int) Option {
	return OptFunc(func(p *Player) error {
		if n < 1 {
			return errors.Errorf(`buffer ratio %d must be positive`, n)
		}
		p.bufferRatio = n
		return nil
	})
}

// SetBatchSize sets the number of frames produced per resume of the source.
func SetBatchSize(n int) Option {
	return OptFunc(func(p *Player) error {
		if n < 1 {
			return errors.Errorf(`batch size %d must be positive`, n)
		}
		p.batchSize = n
		return nil
	})
}

func SetPollInterval(d time.Duration) Option {
	return OptFunc(func(p *Player) error { p.pollInterval = d; return nil })
}

// SetSignalTimeout bounds how long the source may take to confirm a pause
// or resume request.
func SetSignalTimeout(d time.Duration) Option {
	return OptFunc(func(p *Player) error {
		if d <= 0 {
			return errors.Errorf(`signal timeout %s must be positive`, d)
		}
		p.signalTimeout = d
		return nil
	})
}

// SetPrebuffer sets how many frames are buffered before the first frame is
// shown. Negative values wait for a full buffer.
func SetPrebuffer(n int) Option {
	return OptFunc(func(p *Player) error { p.prebuffer = n; return nil })
}

// SetTransport sets where encoded frames are written to.
func SetTransport(w io.Writer) Option {
	return OptFunc(func(p *Player) error {
		if w == nil {
			return errors.NilParam(nil)
		}
		p.transport = w
		return nil
	})
}

// SetDutyCycle writes each frame as MaxBrightness one bit planes for
// controllers without brightness levels.
func SetDutyCycle(on bool) Option {
	return OptFunc(func(p *Player) error { p.dutyCycle = on; return nil })
}

// SetMirror keeps m in step with playback.
func SetMirror(m Mirror) Option {
	return OptFunc(func(p *Player) error { p.mirror = m; return nil })
}

// SetPool recycles frames once they were written. Sources should allocate
// from the same pool.
func SetPool(pool *frame.Pool) Option {
	return OptFunc(func(p *Player) error { p.pool = pool; return nil })
}

// AddObserver calls fn with every written frame. fn must not keep the frame.
func AddObserver(fn func(*frame.Frame)) Option {
	return OptFunc(func(p *Player) error {
		if fn != nil {
			p.observers = append(p.observers, fn)
		}
		return nil
	})
}

func SetLogger(l logx.LoggerProvider) Option {
	return OptFunc(func(p *Player) error { p.logger = l; return nil })
}
