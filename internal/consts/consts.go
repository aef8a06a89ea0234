package consts

import (
	"errors"
	"time"
)

var (
	ErrNotImplemented       = errors.New(`not implemented`)
	ErrNilReceiver          = errors.New(`nil receiver`)
	ErrNilParam             = errors.New(`nil parameter`)
	ErrNilImage             = errors.New(`nil image`)
	ErrPlatformNotSupported = errors.New(`platform not supported`)
	ErrProcessGone          = errors.New(`process no longer exists`)
)

const (
	LibraryName = `ledstream`
	EnvPrefix   = `LEDSTREAM_`
	ConfigGroup = `ledstream`
	ConfigFile  = `ledstream.conf`

	GridSize      = 16
	BitDepth      = 4
	FPS           = 24
	BufferSize    = 50 // frames held ahead of playback
	BufferRatio   = 4  // flow checks per frame period
	BatchSize     = 10 // frames produced per resume
	Baud          = 9600
	PollInterval  = 10 * time.Millisecond
	SignalTimeout = 2 * time.Second
	SignalRetry   = 10 * time.Millisecond
	PoolSize      = 64
)
