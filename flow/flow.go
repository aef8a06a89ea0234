// Package flow throttles a frame generating process so that it never runs
// more than one batch ahead of playback.
package flow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/srlehn/ledstream/internal/consts"
	errorsx "github.com/srlehn/ledstream/internal/errors"
	"github.com/srlehn/ledstream/internal/logx"
)

var ErrFlowControlTimeout = errors.New(`process did not confirm state transition`)

// Process is a long running frame generator that can be paused mid stream
// and continued later. Resume and Suspend only send the request, Running
// reports the state the process is actually in.
type Process interface {
	Resume(ctx context.Context) error
	Suspend(ctx context.Context) error
	Running(ctx context.Context) (bool, error)
}

// Demand tells the controller whether the consumer wants more frames.
type Demand interface{ NeedsMore() bool }

// Controller allows one production request at a time. A request resumes the
// process for BatchSize frames after which the process is suspended again.
type Controller struct {
	mu   sync.Mutex
	proc Process

	demand        Demand
	batchSize     int
	total         uint64
	signalTimeout time.Duration
	retryInterval time.Duration
	logger        logx.LoggerProvider

	processing          bool
	framesBeforePausing int
	produced            uint64
	finished            bool

	resumes  uint64
	suspends uint64
	overrun  uint64
	drains   uint64
}

type Option func(*Controller)

func BatchSize(n int) Option { return func(c *Controller) { c.batchSize = n } }

// Total sets the known stream length in frames. Zero means unknown.
func Total(n uint64) Option { return func(c *Controller) { c.total = n } }

func SignalTimeout(d time.Duration) Option { return func(c *Controller) { c.signalTimeout = d } }

func RetryInterval(d time.Duration) Option { return func(c *Controller) { c.retryInterval = d } }

func Logger(l logx.LoggerProvider) Option { return func(c *Controller) { c.logger = l } }

// New returns a controller for proc, which must be suspended. demand may be
// nil.
func New(proc Process, demand Demand, opts ...Option) (*Controller, error) {
	if proc == nil {
		return nil, errorsx.NilParam(nil)
	}
	c := &Controller{
		proc:          proc,
		demand:        demand,
		batchSize:     consts.BatchSize,
		signalTimeout: consts.SignalTimeout,
		retryInterval: consts.SignalRetry,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.batchSize < 1 {
		return nil, errorsx.Errorf(`batch size %d must be positive`, c.batchSize)
	}
	if c.signalTimeout <= 0 {
		return nil, errorsx.Errorf(`signal timeout %s must be positive`, c.signalTimeout)
	}
	return c, nil
}

// RequestMoreIfNeeded resumes the process for one batch unless a batch is
// already in flight, the stream is complete or the consumer has enough.
//
// State confirmations are bounded by the signal timeout only; canceling ctx
// does not abort them, the process state must stay known.
func (c *Controller) RequestMoreIfNeeded(ctx context.Context) error {
	if c == nil {
		return errorsx.NilReceiver(nil)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.processing || c.finished {
		return nil
	}
	if c.total > 0 && c.produced >= c.total {
		return nil
	}
	if c.demand != nil && !c.demand.NeedsMore() {
		return nil
	}
	return c.resumeLocked(ctx, `resumed production`)
}

// DrainIfNeeded resumes the process for one more batch after the announced
// total was produced, for streams that turn out longer than announced. Like
// RequestMoreIfNeeded it keeps at most one batch in flight and only runs
// while the consumer needs more.
func (c *Controller) DrainIfNeeded(ctx context.Context) error {
	if c == nil {
		return errorsx.NilReceiver(nil)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.processing || c.finished {
		return nil
	}
	if c.total == 0 || c.produced < c.total {
		return nil
	}
	if c.demand != nil && !c.demand.NeedsMore() {
		return nil
	}
	c.drains++
	return c.resumeLocked(ctx, `draining past total`)
}

func (c *Controller) resumeLocked(ctx context.Context, msg string) error {
	c.processing = true
	c.framesBeforePausing = c.batchSize
	if err := Confirm(context.WithoutCancel(ctx), c.proc, true, c.signalTimeout, c.retryInterval); err != nil {
		c.processing = false
		c.framesBeforePausing = 0
		logx.IsErr(err, c.logger, slog.LevelError, `op`, `resume`)
		return err
	}
	c.resumes++
	logx.Debug(msg, c.logger, `batch`, c.batchSize, `produced`, c.produced)
	return nil
}

// OnProducedUnit accounts for one frame emitted by the process and suspends
// it once the batch is complete.
func (c *Controller) OnProducedUnit(ctx context.Context) error {
	if c == nil {
		return errorsx.NilReceiver(nil)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.produced++
	if !c.processing {
		// frames that were in transit when the process was suspended
		c.overrun++
		return nil
	}
	c.framesBeforePausing--
	if c.framesBeforePausing > 0 {
		return nil
	}
	return c.suspendLocked(ctx)
}

func (c *Controller) suspendLocked(ctx context.Context) error {
	if c.finished {
		c.processing = false
		return nil
	}
	err := Confirm(context.WithoutCancel(ctx), c.proc, false, c.signalTimeout, c.retryInterval)
	c.processing = false
	c.framesBeforePausing = 0
	if err != nil {
		logx.IsErr(err, c.logger, slog.LevelError, `op`, `suspend`)
		return err
	}
	c.suspends++
	logx.Debug(`suspended production`, c.logger, `produced`, c.produced)
	return nil
}

// Halt suspends an in flight batch right away.
func (c *Controller) Halt(ctx context.Context) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.processing {
		return nil
	}
	return c.suspendLocked(ctx)
}

// Finish marks the stream as completely produced; no further requests are
// issued.
func (c *Controller) Finish() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.finished = true
	c.processing = false
	c.framesBeforePausing = 0
}

func (c *Controller) Processing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.processing
}

type Stats struct {
	Processing          bool
	FramesBeforePausing int
	Produced            uint64
	Total               uint64
	Finished            bool
	Resumes             uint64
	Suspends            uint64
	Overrun             uint64
	Drains              uint64
}

func (c *Controller) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Processing:          c.processing,
		FramesBeforePausing: c.framesBeforePausing,
		Produced:            c.produced,
		Total:               c.total,
		Finished:            c.finished,
		Resumes:             c.resumes,
		Suspends:            c.suspends,
		Overrun:             c.overrun,
		Drains:              c.drains,
	}
}
