package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danuzzo/bromium/internal/driver"
	"github.com/danuzzo/bromium/internal/output"
)

var typeCmd = &cobra.Command{
	Use:   "type",
	Short: "Type text or send key sequences to an element",
	Long: `Send input to a UI element. --text types the argument literally;
--keys interprets control-key notation such as {ENTER}, {TAB} or ^c.`,
	RunE: runType,
}

func init() {
	rootCmd.AddCommand(typeCmd)
	typeCmd.Flags().String("path", "", "Element path address")
	typeCmd.Flags().Int("x", 0, "X screen coordinate")
	typeCmd.Flags().Int("y", 0, "Y screen coordinate")
	typeCmd.Flags().String("text", "", "Text to type literally")
	typeCmd.Flags().String("keys", "", "Key sequence including control keys")
	typeCmd.Flags().String("hold", "", "Modifier keys to hold while sending --keys, e.g. {SHIFT}")
	typeCmd.MarkFlagsMutuallyExclusive("text", "keys")
}

func runType(cmd *cobra.Command, args []string) error {
	text, _ := cmd.Flags().GetString("text")
	keys, _ := cmd.Flags().GetString("keys")
	hold, _ := cmd.Flags().GetString("hold")
	if text == "" && keys == "" {
		return fmt.Errorf("specify --text or --keys")
	}
	if hold != "" && keys == "" {
		return fmt.Errorf("--hold requires --keys")
	}

	return withDriver(cmd, func(d *driver.Driver) error {
		el, err := resolveTarget(cmd, d)
		if err != nil {
			return err
		}

		boundGen := el.Generation()
		action := "send-text"
		switch {
		case keys != "" && hold != "":
			action = "hold-send-keys"
			err = el.HoldSendKeys(hold, keys)
		case keys != "":
			action = "send-keys"
			err = el.SendKeys(keys)
		default:
			err = el.SendText(text)
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
