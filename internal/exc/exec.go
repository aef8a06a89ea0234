// Package exc locates the external programs used for decoding and mirroring.
package exc

import (
	"os"
	"os/exec"
	"sync"

	"github.com/srlehn/ledstream/internal/errors"
)

var systemDirs = []string{
	`/usr/bin/`,
	`/bin/`,
	`/usr/local/bin/`,
	// likely not in the following
	`/usr/sbin/`,
	`/sbin/`,
}

var (
	// key: rel. path, value: abs. path
	exePaths   = make(map[string]string)
	exePathsMu sync.Mutex
)

// LookPath searches PATH and then the system directories. Results are
// cached.
func LookPath(exe string) (string, error) {
	if len(exe) == 0 {
		return ``, errors.New(`empty executable name`)
	}
	exePathsMu.Lock()
	defer exePathsMu.Unlock()
	if exeAbs, ok := exePaths[exe]; ok {
		return exeAbs, nil
	}
	if exeAbs, err := exec.LookPath(exe); err == nil {
		exePaths[exe] = exeAbs
		return exeAbs, nil
	}
	exeAbs, err := lookSystemDirs(exe)
	if err != nil {
		return ``, err
	}
	exePaths[exe] = exeAbs
	return exeAbs, nil
}

func lookSystemDirs(exe string) (string, error) {
	for _, systemDir := range systemDirs {
		exeAbs := systemDir + exe
		fi, err := os.Stat(exeAbs)
		if err != nil || fi == nil || fi.IsDir() {
			continue
		}
		// check if executable for others
		if fi.Mode()&0b001 == 0b001 {
			return exeAbs, nil
		}
	}
	return ``, errors.Errorf(`executable %q not found in PATH or system directories`, exe)
}
