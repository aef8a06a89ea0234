package flow

import (
	"context"
	"time"

	"github.com/srlehn/ledstream/internal/errors"
)

// Confirm requests the running state from proc and repeats the request until
// proc reports it or timeout expires. Repeated requests are harmless since
// both signals are idempotent. A non-positive timeout allows a single
// attempt.
func Confirm(ctx context.Context, proc Process, running bool, timeout, retry time.Duration) error {
	if proc == nil {
		return errors.NilParam(nil)
	}
	if retry <= 0 {
		retry = time.Millisecond
	}
	var deadline <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		deadline = t.C
	} else {
		expired := make(chan time.Time)
		close(expired)
		deadline = expired
	}
	want := `suspended`
	signal := proc.Suspend
	if running {
		want = `running`
		signal = proc.Resume
	}
	for attempt := 1; ; attempt++ {
		if err := signal(ctx); err != nil {
			return errors.Wrapped(err)
		}
		is, err := proc.Running(ctx)
		if err != nil {
			return errors.Wrapped(err)
		}
		if is == running {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.Wrapped(ctx.Err())
		case <-deadline:
			return errors.Errorf(`%w: not %s after %d attempts in %s`, ErrFlowControlTimeout, want, attempt, timeout)
		case <-time.After(retry):
		}
	}
}
