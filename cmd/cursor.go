package cmd

import (
	"github.com/spf13/cobra"

	"github.com/danuzzo/bromium/internal/driver"
	"github.com/danuzzo/bromium/internal/output"
)

var cursorCmd = &cobra.Command{
	Use:   "cursor",
	Short: "Print the current cursor position",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDriver(cmd, func(d *driver.Driver) error {
			x, y, err := d.CursorPos()
			if err != nil {
				return err
			}
			return output.Print(output.CursorResult{TS: nowMillis(), X: x, Y: y})
		})
	},
}

var screenCmd = &cobra.Command{
	Use:   "screen",
	Short: "Print the primary display metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDriver(cmd, func(d *driver.Driver) error {
			m, err := d.ScreenMetrics()
			if err != nil {
				return err
			}
			return output.Print(output.ScreenResult{TS: nowMillis(), Metrics: m})
		})
	},
}

func init() {
	rootCmd.AddCommand(cursorCmd)
	rootCmd.AddCommand(screenCmd)
}
