// Package source connects frame generators to a player. A source is started
// once, emits frames to a frame.Sink and is throttled through the returned
// flow.Process.
package source

import (
	"context"

	"github.com/srlehn/ledstream/flow"
	"github.com/srlehn/ledstream/frame"
	"github.com/srlehn/ledstream/internal/errors"
)

type Source interface {
	// Start launches production in the suspended state.
	Start(ctx context.Context, sink frame.Sink) (flow.Process, error)
	// Total is the stream length in frames, 0 if unknown.
	Total() uint64
	Close() error
}

var _ Source = (*pullSource)(nil)

type pullSource struct {
	producer frame.Producer
	total    uint64
	hint     int
	proc     *flow.PullProcess
}

// FromProducer runs p in a flow.PullProcess. hint is passed to every
// Produce call.
func FromProducer(p frame.Producer, total uint64, hint int) Source {
	return &pullSource{producer: p, total: total, hint: hint}
}

func (s *pullSource) Start(ctx context.Context, sink frame.Sink) (flow.Process, error) {
	if s == nil || s.producer == nil {
		return nil, errors.NilReceiver(nil)
	}
	if s.proc != nil {
		return nil, errors.New(`source already started`)
	}
	proc := flow.NewPullProcess(s.producer, s.hint)
	if err := proc.Start(ctx, sink); err != nil {
		return nil, err
	}
	s.proc = proc
	return proc, nil
}

func (s *pullSource) Total() uint64 { return s.total }

func (s *pullSource) Close() error {
	if s == nil {
		return nil
	}
	var err error
	if s.proc != nil {
		err = s.proc.Close()
	}
	if c, ok := s.producer.(interface{ Close() error }); ok {
		err = errors.Join(err, c.Close())
	}
	return err
}
