package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/srlehn/ledstream/internal/config"
	"github.com/srlehn/ledstream/internal/errors"
	"github.com/srlehn/ledstream/internal/logx"
)

var rootCmd = &cobra.Command{
	Use:          filepath.Base(os.Args[0]),
	Short:        "ledstream plays video on an LED grid",
	Long:         "ledstream streams video, images and patterns to an LED grid over a serial port",
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
		os.Exit(1)
	},
}

var (
	debugFlag   bool
	silentFlag  bool
	logFileFlag string
	configFlag  string
)

var configUsage = map[string]string{
	`device`:         `serial device, "-" writes to stdout`,
	`baud`:           `baud rate`,
	`grid-size`:      `cells per grid side`,
	`bit-depth`:      `bits per sample (1..8)`,
	`fps`:            `frame rate`,
	`buffer-size`:    `frames buffered ahead of playback`,
	`buffer-ratio`:   `flow checks per frame period`,
	`batch-size`:     `frames produced per resume`,
	`prebuffer`:      `frames buffered before playback starts`,
	`duty-cycle`:     `send brightness as one bit planes`,
	`poll-interval`:  `buffer poll interval`,
	`signal-timeout`: `time to wait for the decoder to follow a signal`,
	`resizer`:        `image scaler`,
	`mirror`:         `executable of a player mirroring the video (vlc)`,
}

func init() {
	cobra.EnablePrefixMatching = true
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&debugFlag, `debug`, `d`, false, `debug errors`)
	flags.BoolVarP(&silentFlag, `silent`, `s`, false, `silence errors`)
	flags.StringVarP(&logFileFlag, `log-file`, `l`, ``, `log file`)
	flags.StringVarP(&configFlag, `config`, `c`, ``, `config file`)
	// config keys are parsed by the config package once the file is read
	for _, k := range config.Keys() {
		flags.String(k, ``, configUsage[k])
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig layers the changed flags over the config file and environment.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(configFlag)
	if err != nil {
		return cfg, err
	}
	for _, k := range config.Keys() {
		f := cmd.Flags().Lookup(k)
		if f == nil || !f.Changed {
			continue
		}
		if err := cfg.Set(k, f.Value.String()); err != nil {
			return cfg, errors.Errorf(`--%s: %w`, k, err)
		}
	}
	return cfg, cfg.Validate()
}

// newLogger logs to the log file, to stderr or nowhere when the terminal is
// taken by the interface.
func newLogger(quiet bool) (logx.LoggerProvider, func() error, error) {
	var w io.Writer = os.Stderr
	closeFn := func() error { return nil }
	switch {
	case len(logFileFlag) > 0:
		f, err := os.OpenFile(logFileFlag, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, closeFn, errors.New(err)
		}
		w, closeFn = f, f.Close
	case quiet:
		w = io.Discard
	}
	return logx.Prov(slog.New(logx.NewHandler(w, debugFlag))), closeFn, nil
}

type runFunc func(ctx context.Context) error

func run(fn runFunc) {
	var err error
	var exitCode int
	defer func() {
		if r := recover(); r != nil {
			exitCode = 1
			if !silentFlag {
				if stackFramer, ok := r.(interface{ ErrorStack() string }); ok {
					fmt.Fprintln(os.Stderr, "\n"+stackFramer.ErrorStack())
				} else {
					fmt.Fprintf(os.Stderr, "panic: %v\n%s", r, debug.Stack())
				}
			}
		}
		os.Exit(exitCode)
	}()
	if fn == nil {
		err = errors.NilParam(nil)
	} else {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		err = fn(ctx)
		stop()
	}
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	exitCode = 1
	if silentFlag {
		return
	}
	if stackFramer, ok := err.(interface{ ErrorStack() string }); debugFlag && ok {
		fmt.Fprintln(os.Stderr, "\n"+stackFramer.ErrorStack())
	} else {
		fmt.Fprintln(os.Stderr, err.Error())
	}
}
