package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start an MCP server exposing bromium tools",
	Long: `Start a Model Context Protocol (MCP) server that exposes the bromium
commands as tools over a long-lived driver session. The UI tree snapshot and
element handles stay warm between calls, so agents get staleness recovery
instead of re-reading the tree on every step.

Supported transports:
  stdio             Standard I/O (default, for Claude Code / MCP clients)
  streamable-http   Streamable HTTP transport (for remote agents)

Examples:
  bromium serve
  bromium serve --transport streamable-http --port 8080`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("transport", "stdio", "Transport: stdio, streamable-http")
	serveCmd.Flags().Int("port", 8080, "HTTP port for streamable-http transport")
}

func runServe(cmd *cobra.Command, args []string) error {
	transport, _ := cmd.Flags().GetString("transport")
	port, _ := cmd.Flags().GetInt("port")

	level, _ := rootCmd.PersistentFlags().GetString("log-level")
	logFile, _ := rootCmd.PersistentFlags().GetString("log-file")

	cfg := MCPConfig{
		Transport: transport,
		Port:      port,
		LogLevel:  level,
		LogFile:   logFile,
	}

	srv, err := newMCPServer(cfg)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	defer srv.close()

	return srv.serve(cfg)
}
