package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danuzzo/bromium/internal/driver"
	"github.com/danuzzo/bromium/internal/output"
)

var clickCmd = &cobra.Command{
	Use:   "click",
	Short: "Click on an element by path or at coordinates",
	Long:  "Click on a UI element addressed by path, or on whatever is under the given screen coordinates.",
	RunE:  runClick,
}

func init() {
	rootCmd.AddCommand(clickCmd)
	clickCmd.Flags().String("path", "", "Element path address")
	clickCmd.Flags().Int("x", 0, "X screen coordinate")
	clickCmd.Flags().Int("y", 0, "Y screen coordinate")
	clickCmd.Flags().String("button", "left", "Mouse button: left, right")
	clickCmd.Flags().Bool("double", false, "Double-click")
	clickCmd.Flags().String("hold", "", "Modifier keys to hold during the click, e.g. {CTRL}")
}

func runClick(cmd *cobra.Command, args []string) error {
	button, _ := cmd.Flags().GetString("button")
	double, _ := cmd.Flags().GetBool("double")
	hold, _ := cmd.Flags().GetString("hold")
	if button != "left" && button != "right" {
		return fmt.Errorf("unsupported button: %s (use left or right)", button)
	}
	if double && button == "right" {
		return fmt.Errorf("--double applies to the left button only")
	}
	if hold != "" && (double || button == "right") {
		return fmt.Errorf("--hold applies to single left clicks only")
	}

	return withDriver(cmd, func(d *driver.Driver) error {
		el, err := resolveTarget(cmd, d)
		if err != nil {
			return err
		}

		boundGen := el.Generation()
		action := "click"
		switch {
		case double:
			action = "double-click"
			err = el.DoubleClick()
		case button == "right":
			action = "right-click"
			err = el.RightClick()
		case hold != "":
			action = "hold-click"
			err = el.HoldClick(hold)
		default:
			err = el.Click()
		}
		if err != nil {
			return err
		}

		id := el.Identity()
		return output.Print(output.ActionResult{
			TS:         nowMillis(),
			Action:     action,
			Element:    id,
			Recovered:  id.Generation != boundGen,
			Generation: id.Generation,
		})
	})
}
