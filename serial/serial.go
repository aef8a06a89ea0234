// Package serial writes encoded frames to the grid controller over a serial
// port and logs what the controller sends back.
package serial

import (
	"io"
	"os"
	"sync"
	"time"

	pkgTerm "github.com/pkg/term"

	"github.com/srlehn/ledstream/internal"
	"github.com/srlehn/ledstream/internal/consts"
	"github.com/srlehn/ledstream/internal/errors"
)

// Port is a serial device in raw mode. Writes are serialized.
type Port struct {
	mu     sync.Mutex
	term   *pkgTerm.Term
	device string
	baud   int
}

// Open opens device at baud in raw mode. A baud of 0 uses the default rate.
func Open(device string, baud int) (*Port, error) {
	if len(device) == 0 {
		device = internal.DefaultSerialDevice()
	}
	if baud <= 0 {
		baud = consts.Baud
	}
	t, err := pkgTerm.Open(device, pkgTerm.RawMode, pkgTerm.Speed(baud))
	if err != nil {
		return nil, errors.WrapPrefix(err, device, 0)
	}
	if t == nil {
		return nil, errors.New(`nil serial port`)
	}
	// reads wake up regularly so that Close is not blocked by the monitor
	if err := t.SetReadTimeout(100 * time.Millisecond); err != nil {
		_ = t.Close()
		return nil, errors.New(err)
	}
	return &Port{term: t, device: device, baud: baud}, nil
}

func (p *Port) Write(b []byte) (int, error) {
	if p == nil {
		return 0, errors.NilReceiver(nil)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.term == nil {
		return 0, errors.New(os.ErrClosed)
	}
	n, err := p.term.Write(b)
	if err != nil {
		return n, errors.New(err)
	}
	return n, nil
}

// Read returns 0, nil when the read timeout passes without data.
func (p *Port) Read(b []byte) (int, error) {
	if p == nil {
		return 0, errors.NilReceiver(nil)
	}
	p.mu.Lock()
	t := p.term
	p.mu.Unlock()
	if t == nil {
		return 0, io.EOF
	}
	n, err := t.Read(b)
	if err != nil {
		return n, errors.New(err)
	}
	return n, nil
}

func (p *Port) Device() string { return p.device }

func (p *Port) Baud() int { return p.baud }

func (p *Port) Close() error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.term == nil {
		return nil
	}
	err := p.term.Close()
	p.term = nil
	return errors.Wrapped(err)
}

// Stdout is the transport used when no serial device is wanted.
func Stdout() io.Writer { return os.Stdout }
