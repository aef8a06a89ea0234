package serial_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srlehn/ledstream/internal/logx"
	"github.com/srlehn/ledstream/serial"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := strings.TrimSpace(b.buf.String())
	if len(s) == 0 {
		return nil
	}
	return strings.Split(s, "\n")
}

func monitor(t *testing.T) (*io.PipeWriter, *syncBuffer, context.CancelFunc, <-chan error) {
	t.Helper()
	r, w := io.Pipe()
	out := &syncBuffer{}
	logger := logx.Prov(slog.New(slog.NewTextHandler(out, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serial.Monitor(ctx, r, logger) }()
	return w, out, cancel, done
}

func TestMonitorFlushesWhenIdle(t *testing.T) {
	w, out, cancel, done := monitor(t)
	defer cancel()

	_, err := w.Write([]byte(`he`))
	require.NoError(t, err)
	_, err = w.Write([]byte(`llo`))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(out.lines()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Contains(t, out.lines()[0], `data=hello`)

	require.NoError(t, w.Close())
	assert.NoError(t, <-done)
}

func TestMonitorFlushesLargeOutput(t *testing.T) {
	w, out, cancel, done := monitor(t)
	_, err := w.Write(bytes.Repeat([]byte{'x'}, 101))
	require.NoError(t, err)
	// flushed without waiting for the idle timeout
	require.Eventually(t, func() bool { return len(out.lines()) == 1 }, 40*time.Millisecond, time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}

func TestMonitorReadError(t *testing.T) {
	w, _, cancel, done := monitor(t)
	defer cancel()
	require.NoError(t, w.CloseWithError(io.ErrClosedPipe))
	assert.ErrorIs(t, <-done, io.ErrClosedPipe)
}
