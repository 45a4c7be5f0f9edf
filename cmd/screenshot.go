package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danuzzo/bromium/internal/driver"
	"github.com/danuzzo/bromium/internal/model"
	"github.com/danuzzo/bromium/internal/output"
	"github.com/danuzzo/bromium/internal/screenshot"
)

var screenshotCmd = &cobra.Command{
	Use:   "screenshot",
	Short: "Capture a screenshot of the primary display",
	Long: `Capture the primary display and save it as a PNG. Without --output
the file lands in the system temp directory under a timestamped name.
Repeat --path to draw bounding boxes around specific elements.`,
	RunE: runScreenshot,
}

func init() {
	rootCmd.AddCommand(screenshotCmd)
	screenshotCmd.Flags().String("output", "", "Output file (default: temp dir)")
	screenshotCmd.Flags().StringArray("path", nil, "Annotate the element at this path address (repeatable)")
}

func runScreenshot(cmd *cobra.Command, args []string) error {
	file, _ := cmd.Flags().GetString("output")
	if file == "" {
		file = screenshot.DefaultPath()
	}
	pathStrs, _ := cmd.Flags().GetStringArray("path")

	return withDriver(cmd, func(d *driver.Driver) error {
		img, err := d.CaptureScreen()
		if err != nil {
			return err
		}

		var annotated []model.Element
		for _, pathStr := range pathStrs {
			path, err := model.ParsePath(pathStr)
			if err != nil {
				return fmt.Errorf("invalid path: %w", err)
			}
			el, err := d.ElementByPath(path)
			if err != nil {
				return err
			}
			annotated = append(annotated, el.Identity())
		}
		if len(annotated) > 0 {
			img = screenshot.Annotate(img, annotated)
		}

		if err := screenshot.SavePNG(img, file); err != nil {
			return err
		}
		return output.Print(output.ScreenshotResult{
			TS:        nowMillis(),
			File:      file,
			Annotated: len(annotated) > 0,
		})
	})
}
