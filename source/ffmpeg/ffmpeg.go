// Package ffmpeg decodes videos into luminance frames with an ffmpeg child
// process. The process is paused and continued with job control signals so
// that it only decodes as far ahead as the buffer needs.
package ffmpeg

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"mvdan.cc/sh/shell"

	"github.com/srlehn/ledstream/encode"
	"github.com/srlehn/ledstream/flow"
	"github.com/srlehn/ledstream/frame"
	"github.com/srlehn/ledstream/internal/consts"
	"github.com/srlehn/ledstream/internal/errors"
	"github.com/srlehn/ledstream/internal/exc"
	"github.com/srlehn/ledstream/internal/logx"
	"github.com/srlehn/ledstream/internal/procctl"
	"github.com/srlehn/ledstream/source"
)

var _ source.Source = (*Source)(nil)

type Source struct {
	file    string
	grid    frame.Grid
	fps     float64
	seek    time.Duration
	extra   []string
	pool    *frame.Pool
	logger  logx.LoggerProvider
	ffmpeg  string
	ffprobe string
	total   uint64

	signalTimeout time.Duration

	mu       sync.Mutex
	cmd      *exec.Cmd
	closing  bool
	readDone chan struct{}
	stderr   *tail
}

type Option func(*Source) error

func FPS(fps float64) Option {
	return func(s *Source) error {
		if fps <= 0 {
			return errors.Errorf(`frame rate %v must be positive`, fps)
		}
		s.fps = fps
		return nil
	}
}

// Seek starts decoding at offset.
func Seek(offset time.Duration) Option {
	return func(s *Source) error { s.seek = offset; return nil }
}

// ExtraArgs adds shell quoted ffmpeg input options, e.g. `-hwaccel auto`.
func ExtraArgs(args string) Option {
	return func(s *Source) error {
		fields, err := shell.Fields(args, func(string) string { return `` })
		if err != nil {
			return errors.New(err)
		}
		s.extra = append(s.extra, fields...)
		return nil
	}
}

// SignalTimeout bounds the wait for ffmpeg to stop after it was started.
func SignalTimeout(d time.Duration) Option {
	return func(s *Source) error {
		if d <= 0 {
			return errors.Errorf(`signal timeout %s must be positive`, d)
		}
		s.signalTimeout = d
		return nil
	}
}

// Pool recycles decoded frames.
func Pool(p *frame.Pool) Option { return func(s *Source) error { s.pool = p; return nil } }

func Logger(l logx.LoggerProvider) Option {
	return func(s *Source) error { s.logger = l; return nil }
}

// Executables overrides the lookup of ffmpeg and ffprobe. An empty ffprobe
// disables probing for the stream length.
func Executables(ffmpeg, ffprobe string) Option {
	return func(s *Source) error { s.ffmpeg, s.ffprobe = ffmpeg, ffprobe; return nil }
}

// New prepares decoding of file and probes its length. Nothing is started
// before Start.
func New(ctx context.Context, file string, g frame.Grid, opts ...Option) (*Source, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(file); err != nil {
		return nil, errors.New(err)
	}
	s := &Source{
		file:          file,
		grid:          g,
		fps:           consts.FPS,
		signalTimeout: consts.SignalTimeout,
	}
	var lookup bool
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	if len(s.ffmpeg) == 0 {
		lookup = true
		p, err := exc.LookPath(`ffmpeg`)
		if err != nil {
			return nil, err
		}
		s.ffmpeg = p
	}
	if lookup && len(s.ffprobe) == 0 {
		if p, err := exc.LookPath(`ffprobe`); err == nil {
			s.ffprobe = p
		}
	}
	if s.pool == nil || s.pool.Grid() != g {
		s.pool = frame.NewPool(g, 0)
	}
	if len(s.ffprobe) > 0 {
		d, err := Probe(ctx, s.ffprobe, file)
		if err != nil {
			logx.IsErr(err, s.logger, slog.LevelWarn, `op`, `probe`, `file`, file)
		} else {
			s.total = Frames(d-s.seek, s.fps)
		}
	}
	logx.Debug(`video source`, s.logger, `file`, file, `fps`, s.fps, `total`, s.total)
	return s, nil
}

func (s *Source) Total() uint64 { return s.total }

func (s *Source) SignalTimeout() time.Duration { return s.signalTimeout }

// Args is the ffmpeg command line without the executable.
func (s *Source) Args() []string {
	side := strconv.Itoa(s.grid.Size)
	args := []string{`-hide_banner`, `-nostdin`, `-loglevel`, `error`}
	if s.seek > 0 {
		args = append(args, `-ss`, strconv.FormatFloat(s.seek.Seconds(), 'f', 3, 64))
	}
	args = append(args, s.extra...)
	args = append(args,
		`-i`, s.file,
		`-an`,
		`-vf`, `fps=`+strconv.FormatFloat(s.fps, 'f', -1, 64)+`,scale=`+side+`:`+side+`,format=gray`,
		`-f`, `rawvideo`,
		`-pix_fmt`, `gray`,
		`pipe:1`,
	)
	return args
}

// Start runs ffmpeg and stops it before returning the process handle.
// Frames decoded before the stop arrives are still emitted.
func (s *Source) Start(ctx context.Context, sink frame.Sink) (flow.Process, error) {
	if s == nil {
		return nil, errors.NilReceiver(nil)
	}
	if sink == nil {
		return nil, errors.NilParam(nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd != nil {
		return nil, errors.New(`ffmpeg already started`)
	}
	cmd := exec.CommandContext(ctx, s.ffmpeg, s.Args()...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.New(err)
	}
	s.stderr = &tail{max: 4096}
	cmd.Stderr = s.stderr
	if err := cmd.Start(); err != nil {
		return nil, errors.New(err)
	}
	proc, err := procctl.New(ctx, cmd.Process.Pid)
	if err == nil {
		err = flow.Confirm(ctx, proc, false, s.signalTimeout, consts.SignalRetry)
	}
	if err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil, err
	}
	s.cmd = cmd
	s.readDone = make(chan struct{})
	logx.Debug(`started ffmpeg`, s.logger, `pid`, cmd.Process.Pid, `args`, cmd.Args)
	go s.read(stdout, sink)
	return proc, nil
}

func (s *Source) read(stdout io.Reader, sink frame.Sink) {
	defer close(s.readDone)
	raw := make([]byte, s.grid.Len())
	var emitted uint64
	for {
		_, err := io.ReadFull(stdout, raw)
		if err == io.EOF {
			break
		}
		if err == io.ErrUnexpectedEOF {
			logx.Warn(`dropped truncated frame`, s.logger, `after`, emitted)
			break
		}
		if err != nil {
			s.end(sink, errors.New(err))
			return
		}
		f := s.pool.Get()
		if err := encode.QuantizeInto(f, raw, s.grid); err != nil {
			s.end(sink, err)
			return
		}
		if err := sink.Emit(f); err != nil {
			s.end(sink, err)
			return
		}
		emitted++
	}
	s.end(sink, nil)
}

// end waits for ffmpeg and reports its exit status unless it was killed by
// Close.
func (s *Source) end(sink frame.Sink, readErr error) {
	err := s.cmd.Wait()
	s.mu.Lock()
	closing := s.closing
	s.mu.Unlock()
	switch {
	case closing:
		sink.End(nil)
	case readErr != nil:
		sink.End(readErr)
	case err != nil:
		sink.End(errors.WrapPrefix(err, `ffmpeg: `+s.stderr.String(), 0))
	default:
		sink.End(nil)
	}
}

// Close kills ffmpeg and waits for the reader to finish.
func (s *Source) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	s.closing = true
	cmd, done := s.cmd, s.readDone
	s.mu.Unlock()
	if cmd == nil {
		return nil
	}
	// fails harmlessly if ffmpeg already exited
	_ = cmd.Process.Kill()
	<-done
	return nil
}

// tail keeps the last max bytes written to it.
type tail struct {
	mu  sync.Mutex
	buf bytes.Buffer
	max int
}

func (t *tail) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf.Write(p)
	if over := t.buf.Len() - t.max; over > 0 {
		t.buf.Next(over)
	}
	return len(p), nil
}

func (t *tail) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(bytes.TrimSpace(t.buf.Bytes()))
}
