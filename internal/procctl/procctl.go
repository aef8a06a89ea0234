// Package procctl suspends and resumes external processes with job control
// signals and reports their scheduler state.
package procctl

import (
	"context"
	"slices"

	ps "github.com/mitchellh/go-ps"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/srlehn/ledstream/internal/consts"
	"github.com/srlehn/ledstream/internal/errors"
)

type Process struct {
	pid  int
	proc *process.Process
}

func New(ctx context.Context, pid int) (*Process, error) {
	if pid <= 0 {
		return nil, errors.Errorf(`invalid pid %d`, pid)
	}
	proc, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return nil, errors.New(err)
	}
	return &Process{pid: pid, proc: proc}, nil
}

func (p *Process) Pid() int { return p.pid }

// Suspend sends SIGSTOP. Delivery is not confirmed, see Running.
func (p *Process) Suspend(ctx context.Context) error {
	if p == nil {
		return errors.NilReceiver(nil)
	}
	return stop(p.pid)
}

// Resume sends SIGCONT.
func (p *Process) Resume(ctx context.Context) error {
	if p == nil {
		return errors.NilReceiver(nil)
	}
	return cont(p.pid)
}

// Running reports false while the process is stopped by a signal.
func (p *Process) Running(ctx context.Context) (bool, error) {
	if p == nil {
		return false, errors.NilReceiver(nil)
	}
	status, err := p.proc.StatusWithContext(ctx)
	if err != nil {
		if gone := p.gone(); gone != nil {
			return false, gone
		}
		return false, errors.New(err)
	}
	if slices.Contains(status, process.Zombie) {
		return false, errors.New(consts.ErrProcessGone)
	}
	return !slices.Contains(status, process.Stop), nil
}

// gone double checks with the process table whether the pid still exists.
func (p *Process) gone() error {
	pr, err := ps.FindProcess(p.pid)
	if err == nil && pr == nil {
		return errors.Errorf(`%w: pid %d`, consts.ErrProcessGone, p.pid)
	}
	return nil
}
