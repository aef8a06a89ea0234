package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/srlehn/ledstream/resize/rdefault"
	"github.com/srlehn/ledstream/source/still"
)

func init() {
	showCmd.Flags().DurationVar(&showDurationFlag, `duration`, 5*time.Second, `display time`)
	showCmd.Flags().BoolVarP(&tuiFlag, `tui`, `t`, false, `show the interactive preview`)
	showCmd.Flags().BoolVarP(&previewFlag, `preview`, `p`, false, `draw frames on stderr`)
	rootCmd.AddCommand(showCmd)
}

var showDurationFlag time.Duration

var showCmd = &cobra.Command{
	Use:   `show /path/to/image.png`,
	Short: `display an image`,
	Long:  `scale an image to the grid and display it for a while`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		run(func(ctx context.Context) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			rsz, err := rdefault.ByName(cfg.Resizer)
			if err != nil {
				return err
			}
			img, err := still.Load(args[0])
			if err != nil {
				return err
			}
			src, err := still.NewSource(img, cfg.Grid(),
				still.Duration(showDurationFlag),
				still.FPS(cfg.FPS),
				still.Resizer(rsz),
			)
			if err != nil {
				return err
			}
			return playSession(ctx, src, cfg, sessionOptions{title: args[0], tui: tuiFlag, preview: previewFlag})
		})
	},
}
