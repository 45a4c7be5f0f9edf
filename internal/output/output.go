// Package output serializes command results to stdout.
package output

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/danuzzo/bromium/internal/model"
)

// Format represents the output format.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// OutputFormat is the current output format, set by the root command's
// --format flag.
var OutputFormat Format = FormatYAML

// PrettyOutput enables pretty-printing for JSON output.
var PrettyOutput bool

// ElementResult is the top-level output of the `inspect` and `find`
// commands.
type ElementResult struct {
	TS      int64         `yaml:"ts"      json:"ts"`
	Element model.Element `yaml:"element" json:"element"`
}

// ActionResult reports a completed input action such as a click or a key
// send.
type ActionResult struct {
	TS         int64         `yaml:"ts"               json:"ts"`
	Action     string        `yaml:"action"           json:"action"`
	Element    model.Element `yaml:"element"          json:"element"`
	Recovered  bool          `yaml:"recovered"        json:"recovered"`
	Generation uint64        `yaml:"generation"       json:"generation"`
}

// CursorResult is the output of the `cursor` command.
type CursorResult struct {
	TS int64 `yaml:"ts" json:"ts"`
	X  int   `yaml:"x"  json:"x"`
	Y  int   `yaml:"y"  json:"y"`
}

// ScreenResult is the output of the `screen` command.
type ScreenResult struct {
	TS      int64               `yaml:"ts"      json:"ts"`
	Metrics model.ScreenMetrics `yaml:"metrics" json:"metrics"`
}

// ScreenshotResult is the output of the `screenshot` command.
type ScreenshotResult struct {
	TS        int64  `yaml:"ts"        json:"ts"`
	File      string `yaml:"file"      json:"file"`
	Annotated bool   `yaml:"annotated" json:"annotated"`
}

// LaunchResult is the output of the `launch` command.
type LaunchResult struct {
	TS          int64    `yaml:"ts"           json:"ts"`
	AppPath     string   `yaml:"app_path"     json:"app_path"`
	WindowNames []string `yaml:"window_names" json:"window_names"`
}

// Print serializes v to stdout in the current output format.
func Print(v interface{}) error {
	switch OutputFormat {
	case FormatJSON:
		if PrettyOutput {
			return PrintPrettyJSON(v)
		}
		return PrintJSON(v)
	case FormatYAML:
		return PrintYAML(v)
	default:
		return fmt.Errorf("unsupported output format: %s", OutputFormat)
	}
}

// PrintJSON serializes v to stdout as compact single-line JSON.
func PrintJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// PrintPrettyJSON serializes v to stdout as indented JSON.
func PrintPrettyJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// PrintYAML serializes v to stdout as YAML.
func PrintYAML(v interface{}) error {
	enc := yaml.NewEncoder(os.Stdout)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("yaml encode: %w", err)
	}
	return enc.Close()
}
