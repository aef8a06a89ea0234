package logx

import (
	"context"
	"io"
	"log/slog"
	"runtime"
	"time"

	"github.com/srlehn/ledstream/internal/errors"
)

type LoggerProvider interface{ Logger() *slog.Logger }

var _ LoggerProvider = (*loggerProvider)(nil)

type loggerProvider struct{ logger *slog.Logger }

func (p *loggerProvider) Logger() *slog.Logger {
	if p == nil {
		return nil
	}
	return p.logger
}

func Prov(logger *slog.Logger) LoggerProvider { return &loggerProvider{logger: logger} }

// With returns a provider whose logger carries args. A nil provider stays nil.
func With(loggerProv LoggerProvider, args ...any) LoggerProvider {
	if loggerProv == nil {
		return nil
	}
	logger := loggerProv.Logger()
	if logger == nil {
		return loggerProv
	}
	return Prov(logger.With(args...))
}

// NewHandler returns the text handler used by the command line tools.
func NewHandler(w io.Writer, debug bool) slog.Handler {
	lvl := slog.LevelInfo
	if debug {
		lvl = slog.LevelDebug
	}
	return slog.NewTextHandler(w, &slog.HandlerOptions{AddSource: debug, Level: lvl})
}

func Log(msg string, logger *slog.Logger, lvl slog.Level, skip int, args ...any) {
	if logger == nil || !logger.Enabled(context.Background(), lvl) {
		return
	}
	var pcs [1]uintptr
	runtime.Callers(skip, pcs[:])
	r := slog.NewRecord(time.Now(), lvl, msg, pcs[0])
	r.Add(args...)
	_ = logger.Handler().Handle(context.Background(), r)
}

func logProv(msg string, loggerProv LoggerProvider, lvl slog.Level, args ...any) {
	if loggerProv == nil {
		return
	}
	// skip runtime.Callers, Log, logProv and the exported helper
	Log(msg, loggerProv.Logger(), lvl, 4, args...)
}

func Debug(msg string, loggerProv LoggerProvider, args ...any) {
	logProv(msg, loggerProv, slog.LevelDebug, args...)
}
func Info(msg string, loggerProv LoggerProvider, args ...any) {
	logProv(msg, loggerProv, slog.LevelInfo, args...)
}
func Warn(msg string, loggerProv LoggerProvider, args ...any) {
	logProv(msg, loggerProv, slog.LevelWarn, args...)
}
func Error(msg string, loggerProv LoggerProvider, args ...any) {
	logProv(msg, loggerProv, slog.LevelError, args...)
}

// IsErr logs err (each member of a joined error separately) and reports
// whether it was non-nil.
func IsErr(err error, loggerProv LoggerProvider, lvl slog.Level, args ...any) bool {
	if err == nil {
		return false
	}
	if loggerProv == nil {
		return true
	}
	logger := loggerProv.Logger()
	if logger == nil {
		return true
	}
	if errs, ok := err.(interface{ Unwrap() []error }); ok {
		for _, err := range errs.Unwrap() {
			Log(err.Error(), logger, lvl, 3, args...)
		}
	} else {
		Log(err.Error(), logger, lvl, 3, args...)
	}
	return true
}

func TimeIt(fn func() error, msg string, loggerProv LoggerProvider, args ...any) error {
	if fn == nil {
		return errors.New(`provided nil func`)
	}
	if len(msg) == 0 {
		msg = `duration measurement for function`
	}
	start := time.Now()
	err := fn()
	logProv(msg, loggerProv, slog.LevelDebug, append([]any{`duration`, time.Since(start)}, args...)...)
	return err
}
