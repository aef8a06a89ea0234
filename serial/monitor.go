package serial

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/srlehn/ledstream/internal/logx"
)

const (
	monitorFlushSize = 100
	monitorIdle      = 50 * time.Millisecond
)

// Monitor logs the output of r until ctx is done or r fails. Text is
// collected and logged once more than 100 bytes arrived or nothing arrived
// for 50ms.
func Monitor(ctx context.Context, r io.Reader, loggerProv logx.LoggerProvider) error {
	chunks := make(chan []byte)
	readErr := make(chan error, 1)
	go func() {
		buf := make([]byte, 256)
		for {
			n, err := r.Read(buf)
			if n > 0 {
				b := append([]byte(nil), buf[:n]...)
				select {
				case chunks <- b:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				readErr <- err
				return
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	var pending []byte
	idle := time.NewTimer(monitorIdle)
	idle.Stop()
	defer idle.Stop()
	flush := func() {
		if len(pending) == 0 {
			return
		}
		logx.Info(`device output`, loggerProv, `data`, string(pending))
		pending = pending[:0]
	}
	for {
		select {
		case <-ctx.Done():
			flush()
			return nil
		case err := <-readErr:
			flush()
			if errors.Is(err, io.EOF) || errors.Is(err, os.ErrClosed) {
				return nil
			}
			logx.IsErr(err, loggerProv, slog.LevelWarn, `op`, `monitor`)
			return err
		case b := <-chunks:
			pending = append(pending, b...)
			idle.Stop()
			if len(pending) > monitorFlushSize {
				flush()
			} else {
				idle.Reset(monitorIdle)
			}
		case <-idle.C:
			flush()
		}
	}
}
