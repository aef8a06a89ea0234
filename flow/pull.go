package flow

import (
	"context"
	"errors"
	"sync"

	"github.com/srlehn/ledstream/frame"
	errorsx "github.com/srlehn/ledstream/internal/errors"
)

var _ Process = (*PullProcess)(nil)

// PullProcess runs a frame.Producer as a pausable process. Frames are emitted
// only while the process is resumed; a batch interrupted by Suspend is kept
// and continued after the next Resume. Running reflects the state as soon as
// it was requested since the worker rechecks it before every frame.
type PullProcess struct {
	producer frame.Producer
	hint     int

	mu      sync.Mutex
	wake    chan struct{}
	running bool
	pending []*frame.Frame
	ended   bool
	endErr  error
	started bool

	cancel context.CancelFunc
	done   chan struct{}
}

// NewPullProcess wraps p. hint is passed to every Produce call.
func NewPullProcess(p frame.Producer, hint int) *PullProcess {
	if hint < 1 {
		hint = 1
	}
	return &PullProcess{
		producer: p,
		hint:     hint,
		wake:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the worker in the suspended state.
func (p *PullProcess) Start(ctx context.Context, sink frame.Sink) error {
	if p == nil || p.producer == nil {
		return errorsx.NilReceiver(nil)
	}
	if sink == nil {
		return errorsx.NilParam(nil)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return errorsx.New(`pull process already started`)
	}
	p.started = true
	ctx, p.cancel = context.WithCancel(ctx)
	go p.loop(ctx, sink)
	return nil
}

func (p *PullProcess) Resume(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		p.running = true
		close(p.wake)
		p.wake = make(chan struct{})
	}
	return nil
}

func (p *PullProcess) Suspend(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running = false
	return nil
}

func (p *PullProcess) Running(context.Context) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running, nil
}

// Close stops the worker and waits for it.
func (p *PullProcess) Close() error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	started := p.started
	cancel := p.cancel
	p.mu.Unlock()
	if !started {
		return nil
	}
	cancel()
	<-p.done
	return nil
}

func (p *PullProcess) loop(ctx context.Context, sink frame.Sink) {
	defer close(p.done)
	for {
		f, err := p.next(ctx)
		switch {
		case ctx.Err() != nil:
			return
		case errors.Is(err, frame.ErrEndOfStream):
			sink.End(nil)
			return
		case err != nil:
			sink.End(err)
			return
		}
		if err := sink.Emit(f); err != nil {
			sink.End(err)
			return
		}
	}
}

// next blocks while suspended and returns the next frame to emit.
func (p *PullProcess) next(ctx context.Context) (*frame.Frame, error) {
	for {
		p.mu.Lock()
		for !p.running {
			wake := p.wake
			p.mu.Unlock()
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-wake:
			}
			p.mu.Lock()
		}
		if len(p.pending) > 0 {
			f := p.pending[0]
			p.pending[0] = nil
			p.pending = p.pending[1:]
			p.mu.Unlock()
			return f, nil
		}
		if p.ended {
			err := p.endErr
			p.mu.Unlock()
			if err == nil {
				err = frame.ErrEndOfStream
			}
			return nil, err
		}
		p.mu.Unlock()

		batch, err := p.producer.Produce(ctx, p.hint)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		p.mu.Lock()
		for _, f := range batch {
			if f != nil {
				p.pending = append(p.pending, f)
			}
		}
		switch {
		case errors.Is(err, frame.ErrEndOfStream), err == nil && len(batch) == 0:
			p.ended = true
		case err != nil:
			p.ended = true
			p.endErr = err
		}
		p.mu.Unlock()
	}
}
