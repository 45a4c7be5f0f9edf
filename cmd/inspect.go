package cmd

import (
	"github.com/spf13/cobra"

	"github.com/danuzzo/bromium/internal/driver"
	"github.com/danuzzo/bromium/internal/output"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Inspect the element at screen coordinates",
	Long:  "Resolve the most specific visible UI element under the given screen coordinates and print its identity, including the path address usable with other commands.",
	RunE:  runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().Int("x", 0, "X screen coordinate")
	inspectCmd.Flags().Int("y", 0, "Y screen coordinate")
	inspectCmd.Flags().Bool("cursor", false, "Inspect the element under the cursor instead")
	inspectCmd.MarkFlagsRequiredTogether("x", "y")
}

func runInspect(cmd *cobra.Command, args []string) error {
	return withDriver(cmd, func(d *driver.Driver) error {
		x, _ := cmd.Flags().GetInt("x")
		y, _ := cmd.Flags().GetInt("y")
		if atCursor, _ := cmd.Flags().GetBool("cursor"); atCursor {
			var err error
			x, y, err = d.CursorPos()
			if err != nil {
				return err
			}
		}

		el, err := d.ElementAt(x, y)
		if err != nil {
			return err
		}
		return output.Print(output.ElementResult{TS: nowMillis(), Element: el.Identity()})
	})
}
