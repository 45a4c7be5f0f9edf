package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/danuzzo/bromium/internal/driver"
	"github.com/danuzzo/bromium/internal/logging"
	"github.com/danuzzo/bromium/internal/model"
)

// withDriver opens the process driver with the root flags applied, runs fn,
// and closes it again. Each CLI invocation is a fresh session.
func withDriver(cmd *cobra.Command, fn func(*driver.Driver) error) error {
	level, _ := rootCmd.PersistentFlags().GetString("log-level")
	logFile, _ := rootCmd.PersistentFlags().GetString("log-file")
	timeoutMs, _ := rootCmd.PersistentFlags().GetInt("timeout")
	autoRefresh, _ := rootCmd.PersistentFlags().GetBool("auto-refresh")

	logger, err := logging.New(level, logFile)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	defer logging.Timed(logger, cmd.Name())()

	d, err := driver.Open(driver.Config{
		Timeout: time.Duration(timeoutMs) * time.Millisecond,
		Logger:  logger,
	})
	if err != nil {
		return err
	}
	defer func() { _ = d.Close() }()

	if !autoRefresh {
		if err := d.SetAutoRefresh(false); err != nil {
			return err
		}
	}
	return fn(d)
}

// resolveTarget resolves an element either by path address or by screen
// coordinates, whichever the command's flags provide.
func resolveTarget(cmd *cobra.Command, d *driver.Driver) (*driver.Element, error) {
	pathStr, _ := cmd.Flags().GetString("path")
	if pathStr != "" {
		path, err := model.ParsePath(pathStr)
		if err != nil {
			return nil, fmt.Errorf("invalid path: %w", err)
		}
		return d.ElementByPath(path)
	}

	if cmd.Flags().Changed("x") && cmd.Flags().Changed("y") {
		x, _ := cmd.Flags().GetInt("x")
		y, _ := cmd.Flags().GetInt("y")
		return d.ElementAt(x, y)
	}

	return nil, fmt.Errorf("specify either --path or both --x and --y")
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
