// Package player wires a frame source through the buffer, the flow
// controller and the pacer to the grid transport.
package player

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/srlehn/ledstream/buffer"
	"github.com/srlehn/ledstream/encode"
	"github.com/srlehn/ledstream/flow"
	"github.com/srlehn/ledstream/frame"
	"github.com/srlehn/ledstream/internal"
	"github.com/srlehn/ledstream/internal/consts"
	errorsx "github.com/srlehn/ledstream/internal/errors"
	"github.com/srlehn/ledstream/internal/logx"
	"github.com/srlehn/ledstream/pacer"
	"github.com/srlehn/ledstream/source"
)

var (
	ErrProducerFailure  = buffer.ErrProducerFailure
	ErrTransportFailure = errors.New(`frame transport failed`)
	ErrClosed           = errors.New(`player closed`)
	ErrNotStarted       = errors.New(`player not started`)
)

// Mirror is a second display following playback, e.g. a video player
// window.
type Mirror interface {
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	Seek(ctx context.Context, pos time.Duration) error
}

// Encoder turns a frame into the bytes sent to the grid.
type Encoder interface {
	Encode(f *frame.Frame) ([]byte, error)
}

// Player is one playback session of a source. It exclusively owns the
// source and closes it on Close.
type Player struct {
	src source.Source

	grid          frame.Grid
	fps           float64
	bufferSize    int
	bufferRatio   int
	batchSize     int
	prebuffer     int
	pollInterval  time.Duration
	signalTimeout time.Duration
	transport     io.Writer
	dutyCycle     bool
	mirror        Mirror
	pool          *frame.Pool
	observers     []func(*frame.Frame)
	logger        logx.LoggerProvider
	encoder       Encoder

	mu          sync.Mutex
	playMu      sync.Mutex // orders pause requests against starting the pacer
	pauseReq    bool
	prebuffered bool
	closer      internal.Closer
	ctx         context.Context
	cancel      context.CancelFunc
	buf         *buffer.Buffer
	ctrl        atomic.Pointer[flow.Controller]
	pacer       *pacer.Pacer
	started     bool
	closed      bool
	done        chan struct{}
	doneOnce    sync.Once
	err         error

	written atomic.Uint64
	bytes   atomic.Uint64
}

func New(src source.Source, opts ...Option) (*Player, error) {
	if src == nil {
		return nil, errorsx.NilParam(nil)
	}
	p := &Player{
		src:           src,
		grid:          frame.Grid{Size: consts.GridSize, BitDepth: consts.BitDepth},
		fps:           consts.FPS,
		bufferSize:    consts.BufferSize,
		bufferRatio:   consts.BufferRatio,
		batchSize:     consts.BatchSize,
		prebuffer:     -1,
		pollInterval:  consts.PollInterval,
		signalTimeout: consts.SignalTimeout,
		transport:     io.Discard,
		closer:        internal.NewCloser(),
		done:          make(chan struct{}),
	}
	if err := p.SetOptions(opts...); err != nil {
		return nil, err
	}
	var err error
	if p.dutyCycle {
		p.encoder, err = encode.NewDutyCycle(p.grid)
	} else {
		p.encoder, err = encode.NewEncoder(p.grid)
	}
	if err != nil {
		return nil, err
	}
	if p.pool != nil && p.pool.Grid() != p.grid {
		return nil, errorsx.Errorf(`pool grid %+v differs from player grid %+v`, p.pool.Grid(), p.grid)
	}
	if p.prebuffer < 0 || p.prebuffer > p.bufferSize {
		p.prebuffer = p.bufferSize
	}
	p.closer.AddClosers(src)
	return p, nil
}

// Play starts the session on the first call and resumes it after Pause.
// Playback begins once the buffer holds the prebuffer amount of frames. A
// Pause during that wait cancels the request. ctx of the first call bounds
// the whole session.
func (p *Player) Play(ctx context.Context) error {
	if p == nil {
		return errorsx.NilReceiver(nil)
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return errorsx.New(ErrClosed)
	}
	if !p.started {
		if err := p.start(ctx); err != nil {
			p.mu.Unlock()
			return err
		}
	}
	p.pauseReq = false
	pc, prebuffered := p.pacer, p.prebuffered
	p.mu.Unlock()

	switch pc.State() {
	case pacer.Playing, pacer.Finished:
		return nil
	}
	if !prebuffered {
		if err := p.waitPrebuffer(ctx); err != nil {
			return err
		}
	}
	p.playMu.Lock()
	defer p.playMu.Unlock()
	if p.pauseRequested() {
		logx.Debug(`play canceled by pause`, p.logger)
		return nil
	}
	if prebuffered && p.mirror != nil {
		pos := time.Duration(pc.Stats().PlayHead) * pc.Period()
		logx.IsErr(p.mirror.Seek(ctx, pos), p.logger, slog.LevelWarn, `op`, `mirror seek`)
	}
	if p.mirror != nil {
		logx.IsErr(p.mirror.Play(ctx), p.logger, slog.LevelWarn, `op`, `mirror play`)
	}
	return pc.Play(p.ctx, p.onFrame)
}

func (p *Player) start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)
	p.buf = buffer.New(p.bufferSize, buffer.PollInterval(p.pollInterval))
	proc, err := p.src.Start(p.ctx, (*sink)(p))
	if err != nil {
		p.cancel()
		return err
	}
	ctrl, err := flow.New(proc, p.buf,
		flow.BatchSize(p.batchSize),
		flow.Total(p.src.Total()),
		flow.SignalTimeout(p.signalTimeout),
		flow.Logger(p.logger),
	)
	if err != nil {
		p.cancel()
		return errors.Join(err, p.closer.Close())
	}
	p.ctrl.Store(ctrl)
	p.pacer, err = pacer.New(p.buf, p.fps,
		pacer.BufferRatio(p.bufferRatio),
		pacer.OnPoll(p.poll),
		pacer.Logger(p.logger),
	)
	if err != nil {
		p.cancel()
		return errors.Join(err, p.closer.Close())
	}
	p.started = true
	go p.watch()
	logx.Info(`session started`, p.logger, `grid`, p.grid.Size, `bit_depth`, p.grid.BitDepth, `fps`, p.fps, `total`, p.src.Total())
	return nil
}

func (p *Player) waitPrebuffer(ctx context.Context) error {
	interval := p.pollInterval
	if interval <= 0 {
		interval = consts.PollInterval
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		if p.pauseRequested() {
			return nil
		}
		if err := p.poll(p.ctx); err != nil {
			return err
		}
		if p.buf.Len() >= p.prebuffer || p.buf.Done() {
			p.mu.Lock()
			p.prebuffered = true
			p.mu.Unlock()
			logx.Debug(`prebuffered`, p.logger, `frames`, p.buf.Len())
			return nil
		}
		select {
		case <-ctx.Done():
			return errorsx.Wrapped(ctx.Err())
		case <-p.done:
			return p.Err()
		case <-t.C:
		}
	}
}

func (p *Player) pauseRequested() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pauseReq
}

// poll requests the next batch when the buffer runs low. Once the
// announced length is reached the source is drained batch by batch, the
// announcement may be short.
func (p *Player) poll(ctx context.Context) error {
	ctrl := p.ctrl.Load()
	if ctrl == nil {
		return nil
	}
	err := ctrl.RequestMoreIfNeeded(ctx)
	if err == nil {
		err = ctrl.DrainIfNeeded(ctx)
	}
	if errors.Is(err, flow.ErrFlowControlTimeout) {
		// play out what is buffered, then stop with the error
		p.buf.Fail(err)
	}
	return err
}

func (p *Player) onFrame(f *frame.Frame) error {
	if f == nil {
		return nil
	}
	b, err := p.encoder.Encode(f)
	if err != nil {
		return err
	}
	if _, err := p.transport.Write(b); err != nil {
		return errorsx.Mark(err, ErrTransportFailure)
	}
	p.written.Add(1)
	p.bytes.Add(uint64(len(b)))
	for _, obs := range p.observers {
		obs(f)
	}
	p.pool.Put(f)
	return nil
}

func (p *Player) watch() {
	select {
	case <-p.pacer.Done():
		p.finish(p.pacer.Err())
	case <-p.ctx.Done():
		p.finish(errorsx.Wrapped(p.ctx.Err()))
	}
}

func (p *Player) finish(err error) {
	p.doneOnce.Do(func() {
		p.mu.Lock()
		p.err = err
		p.mu.Unlock()
		if ctrl := p.ctrl.Load(); ctrl != nil {
			logx.IsErr(ctrl.Halt(context.Background()), p.logger, slog.LevelWarn, `op`, `halt`)
		}
		if err != nil {
			logx.IsErr(err, p.logger, slog.LevelError, `op`, `session`)
		} else {
			logx.Info(`session finished`, p.logger, `frames`, p.written.Load())
		}
		close(p.done)
	})
}

// Pause stops playback and production. The buffered frames and the
// position are kept.
func (p *Player) Pause(ctx context.Context) error {
	if p == nil {
		return errorsx.NilReceiver(nil)
	}
	p.playMu.Lock()
	p.mu.Lock()
	started, pc := p.started, p.pacer
	if started {
		p.pauseReq = true
	}
	p.mu.Unlock()
	if !started {
		p.playMu.Unlock()
		return nil
	}
	pc.Pause()
	p.playMu.Unlock()
	var errs []error
	if ctrl := p.ctrl.Load(); ctrl != nil {
		errs = append(errs, ctrl.Halt(ctx))
	}
	if p.mirror != nil {
		logx.IsErr(p.mirror.Pause(ctx), p.logger, slog.LevelWarn, `op`, `mirror pause`)
	}
	return errors.Join(errs...)
}

// Toggle pauses a playing session and resumes a paused one.
func (p *Player) Toggle(ctx context.Context) error {
	if p.State() == pacer.Playing {
		return p.Pause(ctx)
	}
	return p.Play(ctx)
}

func (p *Player) State() pacer.State {
	p.mu.Lock()
	pc := p.pacer
	p.mu.Unlock()
	if pc == nil {
		return pacer.Stopped
	}
	return pc.State()
}

// Done is closed when the session ended.
func (p *Player) Done() <-chan struct{} { return p.done }

// Err is the error that ended the session.
func (p *Player) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Wait blocks until the session ended and returns its error.
func (p *Player) Wait(ctx context.Context) error {
	if p == nil {
		return errorsx.NilReceiver(nil)
	}
	p.mu.Lock()
	started := p.started
	p.mu.Unlock()
	if !started {
		return errorsx.New(ErrNotStarted)
	}
	select {
	case <-ctx.Done():
		return errorsx.Wrapped(ctx.Err())
	case <-p.done:
		return p.Err()
	}
}

// Close ends the session and releases the source. It is safe to call more
// than once.
func (p *Player) Close() error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	started, pc, cancel := p.started, p.pacer, p.cancel
	p.mu.Unlock()
	if !started {
		return p.closer.Close()
	}
	p.finish(nil)
	pc.Pause()
	cancel()
	return p.closer.Close()
}

type Stats struct {
	Buffer  buffer.Stats
	Flow    flow.Stats
	Pacer   pacer.Stats
	Written uint64 // frames
	Bytes   uint64
}

func (p *Player) Stats() Stats {
	p.mu.Lock()
	buf, pc := p.buf, p.pacer
	p.mu.Unlock()
	var st Stats
	if buf != nil {
		st.Buffer = buf.Stats()
	}
	if ctrl := p.ctrl.Load(); ctrl != nil {
		st.Flow = ctrl.Stats()
	}
	if pc != nil {
		st.Pacer = pc.Stats()
	}
	st.Written = p.written.Load()
	st.Bytes = p.bytes.Load()
	return st
}

var _ frame.Sink = (*sink)(nil)

// sink receives the source's frames on behalf of the player.
type sink Player

func (s *sink) Emit(f *frame.Frame) error {
	p := (*Player)(s)
	if err := p.buf.Enqueue([]*frame.Frame{f}); err != nil {
		return err
	}
	if ctrl := p.ctrl.Load(); ctrl != nil {
		return ctrl.OnProducedUnit(p.ctx)
	}
	return nil
}

func (s *sink) End(err error) {
	p := (*Player)(s)
	if err != nil {
		p.buf.Fail(err)
	} else {
		p.buf.Finish()
	}
	if ctrl := p.ctrl.Load(); ctrl != nil {
		ctrl.Finish()
	}
	logx.Debug(`source ended`, p.logger, `err`, err)
}
