package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/srlehn/ledstream/frame"
	"github.com/srlehn/ledstream/internal"
	"github.com/srlehn/ledstream/internal/config"
	"github.com/srlehn/ledstream/internal/errors"
	"github.com/srlehn/ledstream/internal/logx"
	"github.com/srlehn/ledstream/mirror/vlc"
	"github.com/srlehn/ledstream/player"
	"github.com/srlehn/ledstream/preview"
	"github.com/srlehn/ledstream/serial"
	"github.com/srlehn/ledstream/source"
	"github.com/srlehn/ledstream/tui"
)

type sessionOptions struct {
	title     string
	tui       bool
	preview   bool   // draw frames on stderr
	mirror    string // file to load into the mirroring player
	extraOpts []player.Option
}

// openTransport returns the serial port of cfg or stdout. The returned
// closer stops the reply monitor and closes the port.
func openTransport(ctx context.Context, cfg config.Config, logger logx.LoggerProvider) (io.Writer, func() error, error) {
	if internal.IsStdout(cfg.Device) {
		return serial.Stdout(), func() error { return nil }, nil
	}
	port, err := serial.Open(cfg.Device, cfg.Baud)
	if err != nil {
		return nil, nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	monitorDone := make(chan struct{})
	go func() {
		defer close(monitorDone)
		// Monitor logs its own failures
		_ = serial.Monitor(ctx, port, logx.With(logger, `device`, port.Device()))
	}()
	logx.Info(`serial port open`, logger, `device`, port.Device(), `baud`, port.Baud())
	return port, func() error {
		cancel()
		err := port.Close()
		<-monitorDone
		return err
	}, nil
}

// playSession plays src until it ends or ctx is canceled.
func playSession(ctx context.Context, src source.Source, cfg config.Config, o sessionOptions) (err error) {
	closer := internal.NewCloser()
	defer func() { err = errors.Join(err, closer.Close()) }()
	// the player owns src once it exists
	var pl *player.Player
	defer func() {
		if pl == nil {
			err = errors.Join(err, src.Close())
		}
	}()

	if o.tui && internal.IsStdout(cfg.Device) {
		return errors.New(`the interface needs a serial device, stdout carries the frames`)
	}
	logger, closeLog, err := newLogger(o.tui)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, closeLog()) }()

	transport, closeTransport, err := openTransport(ctx, cfg, logger)
	if err != nil {
		return err
	}
	opts := append(cfg.PlayerOptions(),
		player.SetTransport(transport),
		player.SetLogger(logger),
	)
	opts = append(opts, o.extraOpts...)

	if len(cfg.Mirror) > 0 && len(o.mirror) > 0 {
		conn, err := vlc.Start(ctx, cfg.Mirror, vlc.Logger(logger))
		if err != nil {
			return errors.Join(err, closeTransport())
		}
		closer.AddClosers(conn)
		if err := conn.Load(ctx, o.mirror); err != nil {
			return errors.Join(err, closeTransport())
		}
		opts = append(opts, player.SetMirror(conn))
	}

	var latest tui.Latest
	if o.tui {
		opts = append(opts, player.AddObserver(latest.Observe))
	} else if o.preview {
		w := preview.NewWriter(os.Stderr, cfg.Grid())
		opts = append(opts, player.AddObserver(func(f *frame.Frame) {
			logx.IsErr(w.Show(f), logger, slog.LevelDebug, `op`, `preview`)
		}))
	}

	pl, err = player.New(src, opts...)
	if err != nil {
		return errors.Join(err, closeTransport())
	}
	// the player closes the transport after the session so nothing writes
	// to a closed port
	defer func() { err = errors.Join(err, closeTransport()) }()
	defer func() { err = errors.Join(err, pl.Close()) }()

	if err := pl.Play(ctx); err != nil {
		return err
	}
	if o.tui {
		title := o.title
		if len(title) > 0 {
			title = filepath.Base(title)
		}
		if err := tui.Run(ctx, pl, &latest, cfg.Grid(), title, os.Stdin, os.Stdout); err != nil {
			return err
		}
		select {
		case <-pl.Done():
			return pl.Err()
		default:
			// user quit
			return nil
		}
	}
	return pl.Wait(ctx)
}
