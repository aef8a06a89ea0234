//go:build !unix

package procctl

import (
	"github.com/srlehn/ledstream/internal/consts"
	"github.com/srlehn/ledstream/internal/errors"
)

func stop(pid int) error { return errors.New(consts.ErrPlatformNotSupported) }
func cont(pid int) error { return errors.New(consts.ErrPlatformNotSupported) }
