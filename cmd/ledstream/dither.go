package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/srlehn/ledstream/encode"
	"github.com/srlehn/ledstream/internal/errors"
)

func init() { rootCmd.AddCommand(ditherCmd) }

var ditherCmd = &cobra.Command{
	Use:   `dither <length>`,
	Short: `print the duty cycle masks`,
	Long:  `print the on/off distribution of every brightness for a cycle length`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		run(func(context.Context) error {
			length, err := strconv.Atoi(args[0])
			if err != nil || length < 1 {
				return errors.Errorf(`cycle length %q is not a positive number`, args[0])
			}
			w := len(strconv.Itoa(length))
			for on := 0; on <= length; on++ {
				m := encode.Distribution(on, length)
				if m.OnesCount() != on {
					return errors.Errorf(`brightness %d lights %d slots`, on, m.OnesCount())
				}
				fmt.Fprintf(os.Stdout, "%*d %s\n", w, on, m)
			}
			return nil
		})
	},
}
