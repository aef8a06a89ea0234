package buffer_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srlehn/ledstream/buffer"
	"github.com/srlehn/ledstream/frame"
	"github.com/srlehn/ledstream/internal/errors"
)

// countingProducer returns batches of up to batch frames until total frames
// were produced, then an empty batch.
type countingProducer struct {
	next, total, batch int
	calls              int
	hints              []int
}

func (p *countingProducer) Produce(_ context.Context, hint int) ([]*frame.Frame, error) {
	p.calls++
	p.hints = append(p.hints, hint)
	var out []*frame.Frame
	for i := 0; i < p.batch && p.next < p.total; i++ {
		out = append(out, newFrame(p.next))
		p.next++
	}
	return out, nil
}

func TestPrebufferStopsAtTarget(t *testing.T) {
	b := buffer.New(10)
	p := &countingProducer{total: 100, batch: 4}
	require.NoError(t, b.Prebuffer(context.Background(), p))
	// 4 + 4 + 4 reaches the target, the last batch overshoots
	assert.Equal(t, 12, b.Len())
	assert.Equal(t, 3, p.calls)
	assert.Equal(t, []int{10, 6, 2}, p.hints)

	// full buffer does not produce
	require.NoError(t, b.Produce(context.Background(), p))
	assert.Equal(t, 3, p.calls)
}

func TestProduceMarksEnd(t *testing.T) {
	b := buffer.New(10)
	p := &countingProducer{total: 3, batch: 5}
	require.NoError(t, b.Prebuffer(context.Background(), p))
	assert.True(t, b.Done())
	assert.Equal(t, 3, b.Len())
	assert.Equal(t, 2, p.calls)

	// done buffers do not call the producer again
	require.NoError(t, b.Produce(context.Background(), p))
	assert.Equal(t, 2, p.calls)
}

func TestProduceEndOfStreamWithFrames(t *testing.T) {
	b := buffer.New(10)
	p := frame.ProducerFunc(func(context.Context, int) ([]*frame.Frame, error) {
		return []*frame.Frame{newFrame(1)}, frame.ErrEndOfStream
	})
	require.NoError(t, b.Produce(context.Background(), p))
	assert.True(t, b.Done())
	assert.Equal(t, 1, b.Len())
}

func TestProduceFailure(t *testing.T) {
	b := buffer.New(10)
	require.NoError(t, b.Enqueue([]*frame.Frame{newFrame(0)}))
	p := frame.ProducerFunc(func(context.Context, int) ([]*frame.Frame, error) {
		return nil, errors.New(`broken pipe`)
	})
	err := b.Produce(context.Background(), p)
	require.Error(t, err)
	assert.True(t, errors.Is(err, buffer.ErrProducerFailure))

	f, err := b.Consume(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, frameID(f))
	_, err = b.Consume(context.Background())
	assert.True(t, errors.Is(err, buffer.ErrProducerFailure))
}

func TestProduceCanceledDoesNotFail(t *testing.T) {
	b := buffer.New(10)
	ctx, cancel := context.WithCancel(context.Background())
	p := frame.ProducerFunc(func(ctx context.Context, _ int) ([]*frame.Frame, error) {
		cancel()
		return nil, ctx.Err()
	})
	err := b.Produce(ctx, p)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, b.Done())
}
