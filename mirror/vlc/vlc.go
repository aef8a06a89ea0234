// Package vlc mirrors playback in a VLC window through VLC's rc interface so
// that the grid and the screen show the same scene.
package vlc

import (
	"bufio"
	"context"
	stderrors "errors"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/creack/pty"

	"github.com/srlehn/ledstream/internal/errors"
	"github.com/srlehn/ledstream/internal/exc"
	"github.com/srlehn/ledstream/internal/logx"
)

var ErrNoReply = stderrors.New(`vlc did not reply`)

const defaultReplyTimeout = 2 * time.Second

// Conn speaks the rc protocol over rw. Commands are newline terminated, the
// replies of interest are single lines.
type Conn struct {
	mu      sync.Mutex // one command at a time
	w       io.Writer
	closer  io.Closer
	lines   chan string
	timeout time.Duration
	logger  logx.LoggerProvider
	cmd     *exec.Cmd
}

type Option func(*Conn)

// ReplyTimeout bounds the wait for a reply.
func ReplyTimeout(d time.Duration) Option { return func(c *Conn) { c.timeout = d } }

func Logger(l logx.LoggerProvider) Option { return func(c *Conn) { c.logger = l } }

// NewConn wraps an established rc stream. rw is closed by Close if it is an
// io.Closer.
func NewConn(rw io.ReadWriter, opts ...Option) *Conn {
	c := &Conn{
		w:       rw,
		lines:   make(chan string, 64),
		timeout: defaultReplyTimeout,
	}
	if cl, ok := rw.(io.Closer); ok {
		c.closer = cl
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	go c.readLines(rw)
	return c
}

// Start runs VLC with the rc interface on a pseudo terminal. An empty
// executable is looked up in PATH.
func Start(ctx context.Context, executable string, opts ...Option) (*Conn, error) {
	if len(executable) == 0 {
		p, err := exc.LookPath(`vlc`)
		if err != nil {
			return nil, err
		}
		executable = p
	}
	cmd := exec.CommandContext(ctx, executable, `--intf`, `rc`, `--rc-fake-tty`, `--no-video-title-show`)
	f, err := pty.Start(cmd)
	if err != nil {
		return nil, errors.New(err)
	}
	c := NewConn(f, opts...)
	c.cmd = cmd
	logx.Debug(`started vlc`, c.logger, `pid`, cmd.Process.Pid)
	return c, nil
}

func (c *Conn) readLines(r io.Reader) {
	defer close(c.lines)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		// strip the prompt
		line = strings.TrimSpace(strings.TrimLeft(line, `>`))
		if len(line) == 0 {
			continue
		}
		logx.Debug(`vlc`, c.logger, `line`, line)
		select {
		case c.lines <- line:
		default:
			// nobody waits for a reply, drop the oldest
			select {
			case <-c.lines:
			default:
			}
			c.lines <- line
		}
	}
}

func (c *Conn) send(command string) error {
	if !strings.HasSuffix(command, "\n") {
		command += "\n"
	}
	_, err := io.WriteString(c.w, command)
	return errors.Wrapped(err)
}

func (c *Conn) drain() {
	for {
		select {
		case _, ok := <-c.lines:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

// Command sends command without waiting for a reply.
func (c *Conn) Command(command string) error {
	if c == nil {
		return errors.NilReceiver(nil)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.send(command)
}

// IsPlaying asks VLC whether it is playing.
func (c *Conn) IsPlaying(ctx context.Context) (bool, error) {
	if c == nil {
		return false, errors.NilReceiver(nil)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drain()
	if err := c.send(`is_playing`); err != nil {
		return false, err
	}
	timer := time.NewTimer(c.timeout)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return false, errors.Wrapped(ctx.Err())
		case <-timer.C:
			return false, errors.Errorf(`%w within %s`, ErrNoReply, c.timeout)
		case line, ok := <-c.lines:
			if !ok {
				return false, errors.New(io.EOF)
			}
			switch line {
			case `1`:
				return true, nil
			case `0`:
				return false, nil
			}
			// echo and status chatter
		}
	}
}

// Load queues file and leaves VLC paused at its start.
func (c *Conn) Load(ctx context.Context, file string) error {
	if err := c.Command(`add ` + file); err != nil {
		return err
	}
	return c.Pause(ctx)
}

// Play continues playback unless VLC is already playing. rc only knows a
// pause toggle.
func (c *Conn) Play(ctx context.Context) error {
	playing, err := c.IsPlaying(ctx)
	if err != nil {
		return err
	}
	if playing {
		return nil
	}
	return c.Command(`pause`)
}

func (c *Conn) Pause(ctx context.Context) error {
	playing, err := c.IsPlaying(ctx)
	if err != nil {
		return err
	}
	if !playing {
		return nil
	}
	return c.Command(`pause`)
}

// Seek jumps to the absolute position, with second resolution.
func (c *Conn) Seek(_ context.Context, pos time.Duration) error {
	return c.Command(`seek ` + strconv.Itoa(int(pos.Seconds())))
}

// Close quits VLC and waits up to the reply timeout before killing it.
func (c *Conn) Close() error {
	if c == nil {
		return nil
	}
	_ = c.Command(`quit`)
	var errs []error
	if c.cmd != nil {
		waited := make(chan error, 1)
		go func() { waited <- c.cmd.Wait() }()
		select {
		case <-waited:
		case <-time.After(c.timeout):
			errs = append(errs, c.cmd.Process.Kill())
			<-waited
		}
	}
	if c.closer != nil {
		errs = append(errs, c.closer.Close())
	}
	return errors.Join(errs...)
}
