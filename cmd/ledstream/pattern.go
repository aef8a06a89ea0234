package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/srlehn/ledstream/frame"
	"github.com/srlehn/ledstream/internal/consts"
	"github.com/srlehn/ledstream/player"
	"github.com/srlehn/ledstream/source"
	"github.com/srlehn/ledstream/source/pattern"
)

func init() {
	patternCmd.Flags().Uint64Var(&patternFramesFlag, `frames`, 0, `number of frames, 0 runs until interrupted`)
	patternCmd.Flags().Float64Var(&patternProbFlag, `probability`, 0.25, `probability of a lit sparkle cell`)
	patternCmd.Flags().StringVar(&patternTextFlag, `text`, `ledstream`, `marquee text`)
	patternCmd.Flags().BoolVarP(&tuiFlag, `tui`, `t`, false, `show the interactive preview`)
	patternCmd.Flags().BoolVarP(&previewFlag, `preview`, `p`, false, `draw frames on stderr`)
	rootCmd.AddCommand(patternCmd)
}

var (
	patternFramesFlag uint64
	patternProbFlag   float64
	patternTextFlag   string
)

var patternCmd = &cobra.Command{
	Use:       `pattern (` + strings.Join(pattern.Kinds(), `|`) + `)`,
	Short:     `play a test pattern`,
	Long:      `play a generated test pattern`,
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: pattern.Kinds(),
	Run: func(cmd *cobra.Command, args []string) {
		run(func(ctx context.Context) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			pool := frame.NewPool(cfg.Grid(), consts.PoolSize)
			p, err := pattern.New(args[0], cfg.Grid(),
				pattern.Frames(patternFramesFlag),
				pattern.Probability(patternProbFlag),
				pattern.Message(patternTextFlag),
				pattern.Pool(pool),
			)
			if err != nil {
				return err
			}
			src := source.FromProducer(p, p.Total(), cfg.BatchSize)
			return playSession(ctx, src, cfg, sessionOptions{
				title:     args[0],
				tui:       tuiFlag,
				preview:   previewFlag,
				extraOpts: []player.Option{player.SetPool(pool)},
			})
		})
	},
}
