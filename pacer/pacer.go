// Package pacer hands buffered frames to a callback at the stream's frame
// rate and catches up after late frames instead of drifting.
package pacer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/srlehn/ledstream/frame"
	"github.com/srlehn/ledstream/internal/consts"
	errorsx "github.com/srlehn/ledstream/internal/errors"
	"github.com/srlehn/ledstream/internal/logx"
)

type State int

const (
	Stopped State = iota
	Playing
	Finished
)

func (s State) String() string {
	switch s {
	case Stopped:
		return `stopped`
	case Playing:
		return `playing`
	case Finished:
		return `finished`
	default:
		return `unknown`
	}
}

// Consumer is the frame source of the pacer, usually a *buffer.Buffer.
type Consumer interface {
	Consume(ctx context.Context) (*frame.Frame, error)
}

// OnFrame receives every frame in order and nil once at the end of the
// stream. A returned error stops playback.
type OnFrame func(f *frame.Frame) error

// NextDelay returns how long to wait before the frame after the one at
// position playHead, so that frame n is shown at start + n*period. Late
// frames shorten the delay down to zero.
func NextDelay(start, now time.Time, playHead uint64, period time.Duration) (delay, lag time.Duration) {
	lag = now.Sub(start) - time.Duration(playHead)*period
	delay = period - lag
	if delay < 0 {
		delay = 0
	}
	return delay, lag
}

type Pacer struct {
	consumer    Consumer
	period      time.Duration
	bufferRatio int
	onPoll      func(context.Context) error
	now         func() time.Time
	logger      logx.LoggerProvider

	mu        sync.Mutex
	state     State
	startTime time.Time
	playHead  uint64
	lag       time.Duration
	lastDelay time.Duration
	err       error
	cancel    context.CancelFunc
	loopDone  chan struct{}
	done      chan struct{}
}

type Option func(*Pacer)

// BufferRatio sets how many times per frame period OnPoll is called.
func BufferRatio(n int) Option { return func(p *Pacer) { p.bufferRatio = n } }

// OnPoll is called periodically during playback, typically with a flow
// controller's RequestMoreIfNeeded.
func OnPoll(fn func(context.Context) error) Option { return func(p *Pacer) { p.onPoll = fn } }

// Clock replaces time.Now for the schedule computation.
func Clock(now func() time.Time) Option { return func(p *Pacer) { p.now = now } }

func Logger(l logx.LoggerProvider) Option { return func(p *Pacer) { p.logger = l } }

func New(consumer Consumer, fps float64, opts ...Option) (*Pacer, error) {
	if consumer == nil {
		return nil, errorsx.NilParam(nil)
	}
	if fps <= 0 {
		return nil, errorsx.Errorf(`frame rate %v must be positive`, fps)
	}
	p := &Pacer{
		consumer:    consumer,
		period:      time.Duration(float64(time.Second) / fps),
		bufferRatio: consts.BufferRatio,
		now:         time.Now,
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	if p.bufferRatio < 1 {
		p.bufferRatio = 1
	}
	return p, nil
}

func (p *Pacer) Period() time.Duration { return p.period }

// Play starts or resumes playback from the stored position. The start time
// is rebased so that the next frame is due immediately. Play on a playing or
// finished pacer does nothing.
func (p *Pacer) Play(ctx context.Context, onFrame OnFrame) error {
	if p == nil {
		return errorsx.NilReceiver(nil)
	}
	if onFrame == nil {
		return errorsx.NilParam(nil)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != Stopped {
		return nil
	}
	if p.loopDone != nil {
		// a previous loop may still be leaving after Pause
		prev := p.loopDone
		p.mu.Unlock()
		<-prev
		p.mu.Lock()
		if p.state != Stopped {
			return nil
		}
	}
	p.startTime = p.now().Add(-time.Duration(p.playHead) * p.period)
	p.state = Playing
	ctx, p.cancel = context.WithCancel(ctx)
	p.loopDone = make(chan struct{})
	pollDone := make(chan struct{})
	go p.poll(ctx, pollDone)
	go p.tick(ctx, onFrame, pollDone, p.loopDone)
	logx.Debug(`playback started`, p.logger, `play_head`, p.playHead)
	return nil
}

// Pause stops ticking and polling and waits for the tick loop to return. The
// position and the buffer contents are kept. Pause must not be called from
// within OnFrame.
func (p *Pacer) Pause() {
	if p == nil {
		return
	}
	p.mu.Lock()
	cancel := p.cancel
	loopDone := p.loopDone
	if p.state == Playing {
		p.state = Stopped
	}
	p.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-loopDone
}

func (p *Pacer) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Done is closed once the pacer is finished, by end of stream or error.
func (p *Pacer) Done() <-chan struct{} { return p.done }

// Err is the error that finished the pacer, nil at a regular end.
func (p *Pacer) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

type Stats struct {
	State     State
	PlayHead  uint64
	Lag       time.Duration
	LastDelay time.Duration
}

func (p *Pacer) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{State: p.state, PlayHead: p.playHead, Lag: p.lag, LastDelay: p.lastDelay}
}

func (p *Pacer) tick(ctx context.Context, onFrame OnFrame, pollDone, loopDone chan struct{}) {
	defer close(loopDone)
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
		p.cancelLoop()
		<-pollDone
	}()
	for {
		f, err := p.consumer.Consume(ctx)
		if f == nil {
			switch {
			case err == nil, errors.Is(err, frame.ErrEndOfStream):
				p.finish(onFrame(nil))
			case ctx.Err() != nil:
				// paused
			default:
				p.finish(err)
			}
			return
		}
		// a dequeued frame is always delivered even if paused meanwhile
		ferr := onFrame(f)
		p.mu.Lock()
		position := p.playHead
		p.playHead++
		delay, lag := NextDelay(p.startTime, p.now(), position, p.period)
		p.lag, p.lastDelay = lag, delay
		p.mu.Unlock()
		if ferr != nil {
			p.finish(ferr)
			return
		}
		if timer == nil {
			timer = time.NewTimer(delay)
		} else {
			timer.Reset(delay)
		}
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
	}
}

func (p *Pacer) poll(ctx context.Context, pollDone chan struct{}) {
	defer close(pollDone)
	if p.onPoll == nil {
		return
	}
	interval := p.period / time.Duration(p.bufferRatio)
	if interval <= 0 {
		interval = time.Millisecond
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		if err := p.onPoll(ctx); err != nil && ctx.Err() == nil {
			logx.IsErr(err, p.logger, slog.LevelWarn, `op`, `poll`)
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

func (p *Pacer) cancelLoop() {
	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (p *Pacer) finish(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == Finished {
		return
	}
	p.state = Finished
	p.err = err
	close(p.done)
	if err != nil {
		logx.IsErr(err, p.logger, slog.LevelError, `op`, `playback`, `play_head`, p.playHead)
	} else {
		logx.Debug(`playback finished`, p.logger, `play_head`, p.playHead)
	}
}
