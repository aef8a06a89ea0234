package player_test

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srlehn/ledstream/encode"
	"github.com/srlehn/ledstream/frame"
	"github.com/srlehn/ledstream/internal/errors"
	"github.com/srlehn/ledstream/pacer"
	"github.com/srlehn/ledstream/player"
	"github.com/srlehn/ledstream/source"
)

var grid = frame.Grid{Size: 2, BitDepth: 4}

// counter produces n frames whose first sample is the frame number mod 16.
// n < 0 is endless. failAfter > 0 fails once that many frames were made.
func counter(n, failAfter int) frame.Producer {
	next := 0
	return frame.ProducerFunc(func(_ context.Context, hint int) ([]*frame.Frame, error) {
		var batch []*frame.Frame
		for len(batch) < hint && (n < 0 || next < n) {
			if failAfter > 0 && next >= failAfter {
				return batch, errors.New(`decoder crashed`)
			}
			f := frame.New(grid)
			f.Samples[0] = uint8(next % 16)
			batch = append(batch, f)
			next++
		}
		return batch, nil
	})
}

func newPlayer(t *testing.T, src source.Source, opts ...player.Option) *player.Player {
	t.Helper()
	opts = append([]player.Option{
		player.SetGrid(grid),
		player.SetFPS(500),
		player.SetBufferSize(8),
		player.SetBatchSize(3),
		player.SetPollInterval(time.Millisecond),
	}, opts...)
	p, err := player.New(src, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func wait(t *testing.T, p *player.Player) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return p.Wait(ctx)
}

func decodeAll(t *testing.T, b []byte) []uint8 {
	t.Helper()
	enc, err := encode.NewEncoder(grid)
	require.NoError(t, err)
	n := grid.EncodedLen()
	require.Zero(t, len(b)%n)
	var firsts []uint8
	for i := 0; i < len(b); i += n {
		f, err := enc.Decode(b[i : i+n])
		require.NoError(t, err)
		firsts = append(firsts, f.Samples[0])
	}
	return firsts
}

func TestPlayAllFrames(t *testing.T) {
	var out bytes.Buffer
	var observed int
	p := newPlayer(t, source.FromProducer(counter(30, 0), 30, 3),
		player.SetTransport(&out),
		player.AddObserver(func(*frame.Frame) { observed++ }),
		player.SetPool(frame.NewPool(grid, 4)),
	)
	require.NoError(t, p.Play(context.Background()))
	require.NoError(t, wait(t, p))

	firsts := decodeAll(t, out.Bytes())
	require.Len(t, firsts, 30)
	for i, v := range firsts {
		assert.Equal(t, uint8(i%16), v, `frame %d`, i)
	}
	st := p.Stats()
	assert.Equal(t, uint64(30), st.Written)
	assert.Equal(t, uint64(30*grid.EncodedLen()), st.Bytes)
	assert.Equal(t, uint64(30), st.Pacer.PlayHead)
	assert.True(t, st.Buffer.Done)
	assert.Equal(t, pacer.Finished, p.State())
	assert.Equal(t, 30, observed)
}

func TestUnknownLength(t *testing.T) {
	var out bytes.Buffer
	p := newPlayer(t, source.FromProducer(counter(7, 0), 0, 3), player.SetTransport(&out))
	require.NoError(t, p.Play(context.Background()))
	require.NoError(t, wait(t, p))
	assert.Len(t, decodeAll(t, out.Bytes()), 7)
}

func TestProducerFailureDrainsFirst(t *testing.T) {
	var out bytes.Buffer
	p := newPlayer(t, source.FromProducer(counter(-1, 5), 0, 3), player.SetTransport(&out))
	require.NoError(t, p.Play(context.Background()))
	err := wait(t, p)
	require.Error(t, err)
	assert.ErrorIs(t, err, player.ErrProducerFailure)
	assert.Contains(t, err.Error(), `decoder crashed`)
	assert.Len(t, decodeAll(t, out.Bytes()), 5)
}

type failingWriter struct {
	n      int
	failAt int
	err    error
}

func (w *failingWriter) Write(b []byte) (int, error) {
	w.n++
	if w.n == w.failAt {
		return 0, w.err
	}
	return len(b), nil
}

func TestTransportFailure(t *testing.T) {
	errUnplugged := errors.New(`device unplugged`)
	w := &failingWriter{failAt: 3, err: errUnplugged}
	p := newPlayer(t, source.FromProducer(counter(20, 0), 20, 3), player.SetTransport(w))
	require.NoError(t, p.Play(context.Background()))
	err := wait(t, p)
	assert.ErrorIs(t, err, player.ErrTransportFailure)
	assert.ErrorIs(t, err, errUnplugged)
	assert.Equal(t, uint64(2), p.Stats().Written)
}

type fakeMirror struct {
	mu    sync.Mutex
	calls []string
	seeks []time.Duration
}

func (m *fakeMirror) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

func (m *fakeMirror) Play(context.Context) error  { m.record(`play`); return nil }
func (m *fakeMirror) Pause(context.Context) error { m.record(`pause`); return nil }
func (m *fakeMirror) Seek(_ context.Context, pos time.Duration) error {
	m.record(`seek`)
	m.mu.Lock()
	m.seeks = append(m.seeks, pos)
	m.mu.Unlock()
	return nil
}

func TestPauseResume(t *testing.T) {
	var out bytes.Buffer
	mirror := &fakeMirror{}
	p := newPlayer(t, source.FromProducer(counter(60, 0), 60, 3),
		player.SetTransport(&out),
		player.SetFPS(200),
		player.SetMirror(mirror),
	)
	ctx := context.Background()
	require.NoError(t, p.Play(ctx))
	require.Eventually(t, func() bool { return p.Stats().Written >= 10 }, 5*time.Second, time.Millisecond)
	require.NoError(t, p.Pause(ctx))
	assert.Equal(t, pacer.Stopped, p.State())
	written := p.Stats().Written
	assert.False(t, p.Stats().Flow.Processing)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, written, p.Stats().Written)

	require.NoError(t, p.Toggle(ctx))
	require.NoError(t, wait(t, p))

	firsts := decodeAll(t, out.Bytes())
	require.Len(t, firsts, 60)
	for i, v := range firsts {
		assert.Equal(t, uint8(i%16), v)
	}
	assert.Equal(t, []string{`play`, `pause`, `seek`, `play`}, mirror.calls)
	assert.Equal(t, time.Duration(written)*5*time.Millisecond, mirror.seeks[0])
}

func TestDutyCycleOutput(t *testing.T) {
	var out bytes.Buffer
	p := newPlayer(t, source.FromProducer(counter(4, 0), 4, 3),
		player.SetTransport(&out),
		player.SetDutyCycle(true),
	)
	require.NoError(t, p.Play(context.Background()))
	require.NoError(t, wait(t, p))
	dc, err := encode.NewDutyCycle(grid)
	require.NoError(t, err)
	assert.Equal(t, 4*dc.Slots()*dc.PlaneLen(), out.Len())
}

func TestCloseEndlessSource(t *testing.T) {
	p := newPlayer(t, source.FromProducer(counter(-1, 0), 0, 3))
	ctx := context.Background()
	require.NoError(t, p.Play(ctx))
	require.Eventually(t, func() bool { return p.Stats().Written >= 3 }, 5*time.Second, time.Millisecond)
	require.NoError(t, p.Close())
	assert.NoError(t, wait(t, p))
	assert.ErrorIs(t, p.Play(ctx), player.ErrClosed)
	assert.NoError(t, p.Close())
}

func TestShortTotalStaysBounded(t *testing.T) {
	// announces 5 frames but has 500
	p := newPlayer(t, source.FromProducer(counter(500, 0), 5, 1),
		player.SetFPS(1),
		player.SetBufferSize(20),
		player.SetBatchSize(10),
	)
	require.NoError(t, p.Play(context.Background()))
	time.Sleep(1500 * time.Millisecond)

	st := p.Stats()
	assert.LessOrEqual(t, st.Buffer.Len, 20+10)
	assert.LessOrEqual(t, st.Flow.Produced, st.Buffer.PlayHead+20+10)
	assert.GreaterOrEqual(t, st.Flow.Drains, uint64(1))
	assert.Zero(t, st.Flow.Overrun)
	assert.False(t, st.Buffer.Done)
}

func TestShortTotalPlaysToEnd(t *testing.T) {
	var out bytes.Buffer
	p := newPlayer(t, source.FromProducer(counter(25, 0), 10, 1), player.SetTransport(&out))
	require.NoError(t, p.Play(context.Background()))
	require.NoError(t, wait(t, p))
	assert.Len(t, decodeAll(t, out.Bytes()), 25)
}

// slow delays every frame of prod by d.
func slow(prod frame.Producer, d time.Duration) frame.Producer {
	return frame.ProducerFunc(func(ctx context.Context, hint int) ([]*frame.Frame, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(d):
		}
		return prod.Produce(ctx, hint)
	})
}

func TestPauseDuringPrebuffer(t *testing.T) {
	var out bytes.Buffer
	p := newPlayer(t, source.FromProducer(slow(counter(20, 0), 10*time.Millisecond), 20, 1),
		player.SetTransport(&out),
	)
	ctx := context.Background()
	played := make(chan error, 1)
	go func() { played <- p.Play(ctx) }()
	time.Sleep(25 * time.Millisecond)
	require.NoError(t, p.Pause(ctx))

	select {
	case err := <-played:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal(`play did not return`)
	}
	assert.Equal(t, pacer.Stopped, p.State())
	require.Eventually(t, func() bool { return !p.Stats().Flow.Processing }, 5*time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	st := p.Stats()
	assert.Zero(t, st.Written)
	assert.Less(t, st.Buffer.Len, 8)

	require.NoError(t, p.Play(ctx))
	require.NoError(t, wait(t, p))
	firsts := decodeAll(t, out.Bytes())
	require.Len(t, firsts, 20)
	for i, v := range firsts {
		assert.Equal(t, uint8(i%16), v)
	}
}

func TestWaitBeforePlay(t *testing.T) {
	p := newPlayer(t, source.FromProducer(counter(1, 0), 1, 1))
	assert.ErrorIs(t, p.Wait(context.Background()), player.ErrNotStarted)
}

func TestOptionValidation(t *testing.T) {
	src := source.FromProducer(counter(1, 0), 1, 1)
	for name, opt := range map[string]player.Option{
		`fps`:            player.SetFPS(0),
		`buffer size`:    player.SetBufferSize(0),
		`buffer ratio`:   player.SetBufferRatio(0),
		`batch size`:     player.SetBatchSize(0),
		`grid`:           player.SetGrid(frame.Grid{Size: 2, BitDepth: 0}),
		`transport`:      player.SetTransport(nil),
		`pool`:           player.SetPool(frame.NewPool(frame.Grid{Size: 3, BitDepth: 4}, 1)),
		`signal timeout`: player.SetSignalTimeout(0),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := player.New(src, player.SetGrid(grid), opt)
			assert.Error(t, err)
		})
	}
	_, err := player.New(nil)
	assert.Error(t, err)
}
