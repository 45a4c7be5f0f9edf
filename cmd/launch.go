package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danuzzo/bromium/internal/driver"
	"github.com/danuzzo/bromium/internal/model"
	"github.com/danuzzo/bromium/internal/output"
)

var launchCmd = &cobra.Command{
	Use:   "launch",
	Short: "Launch an application or activate its window",
	Long: `Bring the application window named in the path address to the
foreground. If no such window is on screen, start the executable and wait
for the window to appear.`,
	RunE: runLaunch,
}

func init() {
	rootCmd.AddCommand(launchCmd)
	launchCmd.Flags().String("app", "", "Path to the executable")
	launchCmd.Flags().String("path", "", "Path address naming the target window")
	_ = launchCmd.MarkFlagRequired("app")
	_ = launchCmd.MarkFlagRequired("path")
}

func runLaunch(cmd *cobra.Command, args []string) error {
	appPath, _ := cmd.Flags().GetString("app")
	pathStr, _ := cmd.Flags().GetString("path")
	path, err := model.ParsePath(pathStr)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	if len(path.WindowNames()) == 0 {
		return fmt.Errorf("path names no window: %s", pathStr)
	}

	return withDriver(cmd, func(d *driver.Driver) error {
		if err := d.LaunchOrActivate(appPath, path); err != nil {
			return err
		}
		return output.Print(output.LaunchResult{
			TS:          nowMillis(),
			AppPath:     appPath,
			WindowNames: path.WindowNames(),
		})
	})
}
