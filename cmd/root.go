package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/danuzzo/bromium/internal/output"
	"github.com/danuzzo/bromium/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "bromium",
	Short: "Read and interact with Windows UI elements",
	Long:  "A CLI tool that lets AI agents inspect and drive Windows applications through the UI Automation accessibility tree.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version.Version, version.Commit, version.BuildDate)
	rootCmd.PersistentFlags().String("format", "yaml", "Output format: yaml, json")
	rootCmd.PersistentFlags().Bool("pretty", false, "Pretty-print JSON output")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-file", "", "Log file (default: bromium.log in the temp dir; 'stderr' for console)")
	rootCmd.PersistentFlags().Int("timeout", 5000, "Per-call timeout in milliseconds")
	rootCmd.PersistentFlags().Bool("auto-refresh", true, "Recover stale elements by re-walking the tree")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		format, _ := rootCmd.PersistentFlags().GetString("format")
		switch format {
		case "yaml":
			output.OutputFormat = output.FormatYAML
		case "json":
			output.OutputFormat = output.FormatJSON
		default:
			return fmt.Errorf("unsupported format: %s (use yaml or json)", format)
		}
		pretty, _ := rootCmd.PersistentFlags().GetBool("pretty")
		output.PrettyOutput = pretty
		return nil
	}
}
