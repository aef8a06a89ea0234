package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/srlehn/ledstream/frame"
	"github.com/srlehn/ledstream/internal/consts"
	"github.com/srlehn/ledstream/player"
	"github.com/srlehn/ledstream/resize/rdefault"
	"github.com/srlehn/ledstream/source"
	"github.com/srlehn/ledstream/source/ffmpeg"
	"github.com/srlehn/ledstream/source/sequence"
)

func init() {
	playCmd.Flags().DurationVar(&playSeekFlag, `seek`, 0, `start position`)
	playCmd.Flags().StringVar(&playArgsFlag, `ffmpeg-args`, ``, `extra decoder arguments, shell quoted`)
	playCmd.Flags().BoolVar(&playExtractFlag, `extract`, false, `decode all frames to image files before playback`)
	playCmd.Flags().BoolVarP(&tuiFlag, `tui`, `t`, false, `show the interactive preview`)
	playCmd.Flags().BoolVarP(&previewFlag, `preview`, `p`, false, `draw frames on stderr`)
	rootCmd.AddCommand(playCmd)
}

var (
	playSeekFlag    time.Duration
	playArgsFlag    string
	playExtractFlag bool
	tuiFlag         bool
	previewFlag     bool
)

var playCmd = &cobra.Command{
	Use:   `play /path/to/video`,
	Short: `play a video`,
	Long:  `decode a video with ffmpeg and stream it to the grid`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		run(func(ctx context.Context) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			pool := frame.NewPool(cfg.Grid(), consts.PoolSize)
			var src source.Source
			if playExtractFlag {
				rsz, err := rdefault.ByName(cfg.Resizer)
				if err != nil {
					return err
				}
				src, err = sequence.FromVideo(ctx, args[0], cfg.Grid(), cfg.FPS, sequence.Resizer(rsz), sequence.Pool(pool))
				if err != nil {
					return err
				}
			} else {
				src, err = ffmpeg.New(ctx, args[0], cfg.Grid(),
					ffmpeg.FPS(cfg.FPS),
					ffmpeg.Seek(playSeekFlag),
					ffmpeg.ExtraArgs(playArgsFlag),
					ffmpeg.SignalTimeout(cfg.SignalTimeout),
					ffmpeg.Pool(pool),
				)
				if err != nil {
					return err
				}
			}
			return playSession(ctx, src, cfg, sessionOptions{
				title:     args[0],
				tui:       tuiFlag,
				preview:   previewFlag,
				mirror:    args[0],
				extraOpts: []player.Option{player.SetPool(pool)},
			})
		})
	},
}
