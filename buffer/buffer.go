// Package buffer implements the bounded frame buffer between frame
// production and playback.
package buffer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/btree"

	"github.com/srlehn/ledstream/frame"
	"github.com/srlehn/ledstream/internal/consts"
	errorsx "github.com/srlehn/ledstream/internal/errors"
)

var (
	ErrEndOfStream     = frame.ErrEndOfStream
	ErrProducerFailure = errors.New(`frame producer failed`)
	ErrEnqueueAfterEnd = errors.New(`enqueue after end of stream`)
)

// Buffer is a FIFO of frames. bufferHead counts frames ever enqueued,
// playHead frames ever consumed; playHead never passes bufferHead.
//
// The target size is advisory: it tells producers when to stop, Enqueue
// never rejects a batch for being too large.
type Buffer struct {
	mu           sync.Mutex
	frames       *btree.BTreeG[*frame.Frame]
	targetSize   int
	pollInterval time.Duration
	bufferHead   uint64
	playHead     uint64
	done         bool
	err          error
	changed      chan struct{} // closed on every enqueue and on end of stream
}

type Option func(*Buffer)

// PollInterval sets how often a waiting Consume rechecks the buffer in
// addition to being woken by Enqueue. Zero disables the recheck.
func PollInterval(d time.Duration) Option { return func(b *Buffer) { b.pollInterval = d } }

func New(targetSize int, opts ...Option) *Buffer {
	if targetSize < 1 {
		targetSize = consts.BufferSize
	}
	b := &Buffer{
		frames:       btree.NewG(8, func(a, b *frame.Frame) bool { return a.Seq < b.Seq }),
		targetSize:   targetSize,
		pollInterval: consts.PollInterval,
		changed:      make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// Enqueue appends batch in order. An empty batch marks the end of the stream.
func (b *Buffer) Enqueue(batch []*frame.Frame) error {
	if b == nil {
		return errorsx.NilReceiver(nil)
	}
	for _, f := range batch {
		if f == nil {
			return errorsx.New(`nil frame in batch`)
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.done {
		if len(batch) == 0 {
			return nil
		}
		return errorsx.New(ErrEnqueueAfterEnd)
	}
	if len(batch) == 0 {
		b.done = true
		b.notifyLocked()
		return nil
	}
	for _, f := range batch {
		f.Seq = b.bufferHead
		b.bufferHead++
		b.frames.ReplaceOrInsert(f)
	}
	b.notifyLocked()
	return nil
}

// Finish marks the end of the stream.
func (b *Buffer) Finish() { _ = b.Enqueue(nil) }

// Fail ends the stream with a producer error. Frames already buffered are
// still delivered, afterwards Consume returns the error.
func (b *Buffer) Fail(err error) {
	if b == nil || err == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.done {
		return
	}
	b.done = true
	b.err = errorsx.Mark(err, ErrProducerFailure)
	b.notifyLocked()
}

func (b *Buffer) notifyLocked() {
	close(b.changed)
	b.changed = make(chan struct{})
}

// Consume returns the oldest frame. It waits while the buffer is empty and
// returns ErrEndOfStream without waiting once the stream ended and all frames
// were consumed. A canceled ctx returns ctx.Err() and consumes nothing.
func (b *Buffer) Consume(ctx context.Context) (*frame.Frame, error) {
	if b == nil {
		return nil, errorsx.NilReceiver(nil)
	}
	for {
		b.mu.Lock()
		if f, ok := b.frames.DeleteMin(); ok {
			b.playHead++
			b.mu.Unlock()
			return f, nil
		}
		if b.done {
			err := b.err
			b.mu.Unlock()
			if err != nil {
				return nil, err
			}
			return nil, ErrEndOfStream
		}
		changed := b.changed
		b.mu.Unlock()

		var poll <-chan time.Time
		var timer *time.Timer
		if b.pollInterval > 0 {
			timer = time.NewTimer(b.pollInterval)
			poll = timer.C
		}
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil, ctx.Err()
		case <-changed:
		case <-poll:
		}
		if timer != nil {
			timer.Stop()
		}
	}
}

// TryConsume is Consume without waiting; ok is false if the buffer is empty
// and the stream has not ended.
func (b *Buffer) TryConsume() (f *frame.Frame, ok bool, err error) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f, err = b.Consume(ctx)
	if errors.Is(err, context.Canceled) {
		return nil, false, nil
	}
	return f, true, err
}

// Len is the current occupancy.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return int(b.bufferHead - b.playHead)
}

func (b *Buffer) TargetSize() int { return b.targetSize }

// NeedsMore reports whether production should continue.
func (b *Buffer) NeedsMore() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.done && int(b.bufferHead-b.playHead) < b.targetSize
}

func (b *Buffer) Done() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.done
}

type Stats struct {
	BufferHead uint64
	PlayHead   uint64
	Len        int
	TargetSize int
	Done       bool
	Err        error
}

func (b *Buffer) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{
		BufferHead: b.bufferHead,
		PlayHead:   b.playHead,
		Len:        int(b.bufferHead - b.playHead),
		TargetSize: b.targetSize,
		Done:       b.done,
		Err:        b.err,
	}
}
