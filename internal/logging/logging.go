// Package logging builds the zap logger shared by the CLI commands and the
// MCP server. Logs go to a file rather than stdout: both the structured
// output formats and the stdio MCP transport own the standard streams.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Timed returns a func that logs the elapsed time of op at debug level.
// Use as: defer Timed(logger, "collect")().
func Timed(logger *zap.Logger, op string) func() {
	start := time.Now()
	return func() {
		logger.Debug("operation finished",
			zap.String("op", op),
			zap.Duration("elapsed", time.Since(start)))
	}
}

// DefaultFile is the log destination when none is configured.
func DefaultFile() string {
	return filepath.Join(os.TempDir(), "bromium.log")
}

// New builds a logger writing JSON lines at the given level to the given
// file. An empty level means info; an empty file selects DefaultFile; the
// special value "stderr" logs to standard error in console format.
func New(level, file string) (*zap.Logger, error) {
	lvl := zapcore.InfoLevel
	if level != "" {
		parsed, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("parse log level %q: %w", level, err)
		}
		lvl = parsed
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	if file == "stderr" {
		core := zapcore.NewCore(
			zapcore.NewConsoleEncoder(encCfg),
			zapcore.Lock(os.Stderr),
			lvl,
		)
		return zap.New(core), nil
	}

	if file == "" {
		file = DefaultFile()
	}
	f, err := os.OpenFile(file, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encCfg),
		zapcore.Lock(f),
		lvl,
	)
	return zap.New(core), nil
}
