package frame

import (
	"context"
	"errors"
)

// ErrEndOfStream signals that no further frames will be produced or consumed.
var ErrEndOfStream = errors.New(`end of stream`)

// Producer generates frames on request. hint is the number of frames the
// caller would like to receive; a producer may return more or fewer. An empty
// batch or ErrEndOfStream ends the stream. Produce is never called
// concurrently.
type Producer interface {
	Produce(ctx context.Context, hint int) ([]*Frame, error)
}

var _ Producer = (ProducerFunc)(nil)

type ProducerFunc func(ctx context.Context, hint int) ([]*Frame, error)

func (p ProducerFunc) Produce(ctx context.Context, hint int) ([]*Frame, error) { return p(ctx, hint) }

// Sink receives frames from a running source in production order. End is
// called once, with nil at the regular end of the stream.
type Sink interface {
	Emit(f *Frame) error
	End(err error)
}
