// Package ledstream streams video, images and generated patterns to an LED
// grid. The subpackages hold the pipeline stages; this package wires them
// with the usual defaults.
package ledstream

import (
	"context"
	"io"
	"time"

	"github.com/srlehn/ledstream/buffer"
	"github.com/srlehn/ledstream/encode"
	"github.com/srlehn/ledstream/flow"
	"github.com/srlehn/ledstream/frame"
	"github.com/srlehn/ledstream/internal/consts"
	"github.com/srlehn/ledstream/player"
	"github.com/srlehn/ledstream/resize/rdefault"
	"github.com/srlehn/ledstream/source"
	"github.com/srlehn/ledstream/source/ffmpeg"
	"github.com/srlehn/ledstream/source/still"
)

var (
	ErrEndOfStream          = frame.ErrEndOfStream
	ErrProducerFailure      = buffer.ErrProducerFailure
	ErrTransportFailure     = player.ErrTransportFailure
	ErrFlowControlTimeout   = flow.ErrFlowControlTimeout
	ErrEncodingSizeMismatch = encode.ErrEncodingSizeMismatch
)

var (
	// chosen defaults
	DefaultGrid = frame.Grid{Size: consts.GridSize, BitDepth: consts.BitDepth}

	DefaultConfig = player.Options{
		player.SetFPS(consts.FPS),
		player.SetBufferSize(consts.BufferSize),
		player.SetBufferRatio(consts.BufferRatio),
		player.SetBatchSize(consts.BatchSize),
		player.SetSignalTimeout(consts.SignalTimeout),
	}
)

// PlayVideo decodes file with ffmpeg and writes the encoded frames of grid
// g to w until the video ends or ctx is canceled.
func PlayVideo(ctx context.Context, file string, g frame.Grid, w io.Writer) error {
	pool := frame.NewPool(g, consts.PoolSize)
	src, err := ffmpeg.New(ctx, file, g, ffmpeg.Pool(pool))
	if err != nil {
		return err
	}
	return play(ctx, src, g, w, player.SetPool(pool))
}

// ShowImage displays the image file on grid g for d.
func ShowImage(ctx context.Context, file string, g frame.Grid, w io.Writer, d time.Duration) error {
	img, err := still.Load(file)
	if err != nil {
		return err
	}
	src, err := still.NewSource(img, g, still.Duration(d), still.Resizer(&rdefault.Resizer{}))
	if err != nil {
		return err
	}
	return play(ctx, src, g, w)
}

// Play streams the frames of p, for example a pattern.Pattern.
func Play(ctx context.Context, p frame.Producer, total uint64, g frame.Grid, w io.Writer) error {
	return play(ctx, source.FromProducer(p, total, consts.BatchSize), g, w)
}

func play(ctx context.Context, src source.Source, g frame.Grid, w io.Writer, opts ...player.Option) error {
	pl, err := player.New(src, append([]player.Option{
		DefaultConfig,
		player.SetGrid(g),
		player.SetTransport(w),
	}, opts...)...)
	if err != nil {
		_ = src.Close()
		return err
	}
	defer pl.Close()
	if err := pl.Play(ctx); err != nil {
		return err
	}
	return pl.Wait(ctx)
}
