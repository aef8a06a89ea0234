package buffer

import (
	"context"
	"errors"

	"github.com/srlehn/ledstream/frame"
	errorsx "github.com/srlehn/ledstream/internal/errors"
)

// Produce calls p once if the buffer is below its target size and stores the
// returned batch. An empty batch or ErrEndOfStream ends the stream, any other
// error fails it unless ctx was canceled.
func (b *Buffer) Produce(ctx context.Context, p frame.Producer) error {
	if b == nil {
		return errorsx.NilReceiver(nil)
	}
	if p == nil {
		return errorsx.NilParam(nil)
	}
	st := b.Stats()
	if st.Done || st.Len >= st.TargetSize {
		return nil
	}
	batch, err := p.Produce(ctx, st.TargetSize-st.Len)
	switch {
	case errors.Is(err, frame.ErrEndOfStream):
		if len(batch) > 0 {
			if err := b.Enqueue(batch); err != nil {
				return err
			}
		}
		b.Finish()
		return nil
	case err != nil:
		if ctx.Err() != nil {
			return errorsx.Wrapped(ctx.Err())
		}
		b.Fail(err)
		return errorsx.Mark(err, ErrProducerFailure)
	}
	return b.Enqueue(batch)
}

// Prebuffer produces until the target size is reached or the stream ended.
func (b *Buffer) Prebuffer(ctx context.Context, p frame.Producer) error {
	for b.NeedsMore() {
		if err := ctx.Err(); err != nil {
			return errorsx.Wrapped(err)
		}
		if err := b.Produce(ctx, p); err != nil {
			return err
		}
	}
	return nil
}
