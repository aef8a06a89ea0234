//go:build unix

package procctl

import (
	"golang.org/x/sys/unix"

	"github.com/srlehn/ledstream/internal/errors"
)

func stop(pid int) error { return signal(pid, unix.SIGSTOP) }
func cont(pid int) error { return signal(pid, unix.SIGCONT) }

func signal(pid int, sig unix.Signal) error {
	if err := unix.Kill(pid, sig); err != nil {
		return errors.WrapPrefix(err, unix.SignalName(sig), 0)
	}
	return nil
}
