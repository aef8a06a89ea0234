package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/srlehn/ledstream/encode"
	"github.com/srlehn/ledstream/frame"
	"github.com/srlehn/ledstream/player"
	"github.com/srlehn/ledstream/resize/rdefault"
	"github.com/srlehn/ledstream/source/still"
)

func init() { rootCmd.AddCommand(encodeCmd) }

var encodeCmd = &cobra.Command{
	Use:   `encode /path/to/image.png`,
	Short: `print the encoded frame of an image`,
	Long:  `scale an image to the grid and print the bytes sent to the controller as hex`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		run(func(context.Context) error {
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
			g := cfg.Grid()
			f := frame.New(g)
			if err := still.Frame(f, img, g, rsz); err != nil {
				return err
			}
			var enc player.Encoder
			if cfg.DutyCycle {
				enc, err = encode.NewDutyCycle(g)
			} else {
				enc, err = encode.NewEncoder(g)
			}
			if err != nil {
				return err
			}
			b, err := enc.Encode(f)
			if err != nil {
				return err
			}
			fmt.Fprint(os.Stdout, hex.Dump(b))
			return nil
		})
	},
}
