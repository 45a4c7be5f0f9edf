package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danuzzo/bromium/internal/driver"
	"github.com/danuzzo/bromium/internal/model"
	"github.com/danuzzo/bromium/internal/output"
)

var findCmd = &cobra.Command{
	Use:   "find <path>",
	Short: "Find an element by its path address",
	Long: `Resolve an element by its path address in the current UI tree.

A path address names each ancestor from the desktop root down to the
element, e.g.:

  /Pane[@ClassName="#32769"][@Name="Desktop 1"]/Pane[@Name="Taskbar"]/Button[@Name="Start"]`,
	Args: cobra.ExactArgs(1),
	RunE: runFind,
}

func init() {
	rootCmd.AddCommand(findCmd)
}

func runFind(cmd *cobra.Command, args []string) error {
	path, err := model.ParsePath(args[0])
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	return withDriver(cmd, func(d *driver.Driver) error {
		el, err := d.ElementByPath(path)
		if err != nil {
			return err
		}
		return output.Print(output.ElementResult{TS: nowMillis(), Element: el.Identity()})
	})
}
