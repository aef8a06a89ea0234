package ffmpeg

import (
	"context"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/srlehn/ledstream/internal/consts"
	"github.com/srlehn/ledstream/internal/errors"
	"github.com/srlehn/ledstream/internal/exc"
)

// Probe returns the container duration reported by ffprobe.
func Probe(ctx context.Context, ffprobe, file string) (time.Duration, error) {
	out, err := exec.CommandContext(
		ctx,
		ffprobe,
		`-v`, `error`,
		`-show_entries`, `format=duration`,
		`-of`, `default=noprint_wrappers=1:nokey=1`,
		file,
	).Output()
	if err != nil {
		return 0, errors.New(err)
	}
	return ParseDuration(string(out))
}

// ParseDuration parses the seconds printed by ffprobe.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if len(s) == 0 || s == `N/A` {
		return 0, errors.New(`no duration`)
	}
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.New(err)
	}
	if secs < 0 || math.IsInf(secs, 0) || math.IsNaN(secs) {
		return 0, errors.Errorf(`invalid duration %q`, s)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// Frames is the number of frames the fps filter emits for d, rounded up so
// that the count is never short.
func Frames(d time.Duration, fps float64) uint64 {
	if d <= 0 || fps <= 0 {
		return 0
	}
	return uint64(math.Ceil(d.Seconds() * fps))
}

// ExtractFrames writes every frame of file as a side x side PNG into a new
// temporary directory and returns the printf pattern of the file names,
// numbered from 1. The caller removes the directory.
func ExtractFrames(ctx context.Context, file string, side int, fps float64) (pattern string, _ error) {
	ffmpeg, err := exc.LookPath(`ffmpeg`)
	if err != nil {
		return ``, err
	}
	name := filepath.Base(file)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	dir, err := os.MkdirTemp(``, consts.LibraryName+`_*`)
	if err != nil {
		return ``, errors.New(err)
	}
	pattern = filepath.Join(dir, name) + `_%06d.png`
	sz := strconv.Itoa(side)

	cmd := exec.CommandContext(
		ctx,
		ffmpeg,
		`-i`, file,
		`-hide_banner`,
		`-loglevel`, `quiet`,
		`-an`,
		`-vf`, `fps=`+strconv.FormatFloat(fps, 'f', -1, 64)+`,scale=`+sz+`:`+sz+`,format=gray`,
		pattern,
	)
	if err := cmd.Run(); err != nil {
		_ = os.RemoveAll(dir)
		return ``, errors.New(err)
	}
	return pattern, nil
}
