package flow_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srlehn/ledstream/flow"
	"github.com/srlehn/ledstream/frame"
	"github.com/srlehn/ledstream/internal/errors"
)

var grid = frame.Grid{Size: 1, BitDepth: 8}

// counter produces frames numbered from zero up to n.
func counter(n int) frame.Producer {
	next := 0
	return frame.ProducerFunc(func(_ context.Context, hint int) ([]*frame.Frame, error) {
		var batch []*frame.Frame
		for ; len(batch) < hint && next < n; next++ {
			f := frame.New(grid)
			f.Samples[0] = uint8(next)
			batch = append(batch, f)
		}
		return batch, nil
	})
}

// sinkFunc collects frames and can call back into the controller.
type sinkFunc struct {
	mu     sync.Mutex
	frames []*frame.Frame
	onEmit func()
	ended  chan error
}

func newSink() *sinkFunc { return &sinkFunc{ended: make(chan error, 1)} }

func (s *sinkFunc) Emit(f *frame.Frame) error {
	s.mu.Lock()
	s.frames = append(s.frames, f)
	s.mu.Unlock()
	if s.onEmit != nil {
		s.onEmit()
	}
	return nil
}

func (s *sinkFunc) End(err error) { s.ended <- err }

func (s *sinkFunc) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

func TestPullProcessStartsSuspended(t *testing.T) {
	p := flow.NewPullProcess(counter(5), 2)
	sink := newSink()
	require.NoError(t, p.Start(context.Background(), sink))
	defer p.Close()

	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, sink.len())
	running, err := p.Running(context.Background())
	require.NoError(t, err)
	assert.False(t, running)
}

func TestPullProcessBatches(t *testing.T) {
	ctx := context.Background()
	p := flow.NewPullProcess(counter(25), 4)
	sink := newSink()
	c, err := flow.New(p, nil, flow.BatchSize(10))
	require.NoError(t, err)
	sink.onEmit = func() { _ = c.OnProducedUnit(ctx) }
	require.NoError(t, p.Start(ctx, sink))
	defer p.Close()

	require.NoError(t, c.RequestMoreIfNeeded(ctx))
	require.Eventually(t, func() bool { return sink.len() == 10 && !c.Processing() }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 10, sink.len())

	require.NoError(t, c.RequestMoreIfNeeded(ctx))
	require.Eventually(t, func() bool { return sink.len() == 20 }, time.Second, time.Millisecond)
	require.NoError(t, c.RequestMoreIfNeeded(ctx))

	select {
	case err := <-sink.ended:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal(`no end of stream`)
	}
	require.Equal(t, 25, sink.len())
	for i, f := range sink.frames {
		assert.Equal(t, uint8(i), f.Samples[0])
	}
	assert.Zero(t, c.Stats().Overrun)
}

func TestPullProcessProducerError(t *testing.T) {
	errBroken := errors.New(`broken decoder`)
	calls := 0
	prod := frame.ProducerFunc(func(context.Context, int) ([]*frame.Frame, error) {
		calls++
		if calls > 1 {
			return nil, errBroken
		}
		return []*frame.Frame{frame.New(grid)}, nil
	})
	p := flow.NewPullProcess(prod, 1)
	sink := newSink()
	ctx := context.Background()
	require.NoError(t, p.Start(ctx, sink))
	defer p.Close()
	require.NoError(t, p.Resume(ctx))

	select {
	case err := <-sink.ended:
		assert.ErrorIs(t, err, errBroken)
	case <-time.After(time.Second):
		t.Fatal(`no end`)
	}
	assert.Equal(t, 1, sink.len())
}

func TestPullProcessClose(t *testing.T) {
	p := flow.NewPullProcess(counter(1), 1)
	assert.NoError(t, p.Close())
	require.NoError(t, p.Start(context.Background(), newSink()))
	assert.Error(t, p.Start(context.Background(), newSink()))
	assert.NoError(t, p.Close())
}
