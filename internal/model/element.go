package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// RuntimeID is the opaque identifier the OS accessibility layer assigns to a
// UI node. It is only valid within the tree generation that produced it: a
// control that is destroyed and recreated keeps its logical identity but
// receives a fresh RuntimeID.
type RuntimeID []int32

// String renders the runtime ID in the canonical dash-joined form, e.g.
// "42-1704374-4-10".
func (r RuntimeID) String() string {
	if len(r) == 0 {
		return ""
	}
	parts := make([]string, len(r))
	for i, v := range r {
		parts[i] = strconv.Itoa(int(v))
	}
	return strings.Join(parts, "-")
}

// MarshalYAML renders the runtime ID in its canonical string form.
func (r RuntimeID) MarshalYAML() (interface{}, error) {
	return r.String(), nil
}

// MarshalJSON renders the runtime ID in its canonical string form.
func (r RuntimeID) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// Equal reports whether two runtime IDs are identical.
func (r RuntimeID) Equal(other RuntimeID) bool {
	if len(r) != len(other) {
		return false
	}
	for i := range r {
		if r[i] != other[i] {
			return false
		}
	}
	return true
}

// Bounds is a screen rectangle in physical pixels, left/top inclusive,
// right/bottom exclusive.
type Bounds struct {
	Left   int `yaml:"left"   json:"left"`
	Top    int `yaml:"top"    json:"top"`
	Right  int `yaml:"right"  json:"right"`
	Bottom int `yaml:"bottom" json:"bottom"`
}

// Width returns the horizontal extent of the rectangle.
func (b Bounds) Width() int { return b.Right - b.Left }

// Height returns the vertical extent of the rectangle.
func (b Bounds) Height() int { return b.Bottom - b.Top }

// Area returns the rectangle's area, or 0 for degenerate rectangles.
func (b Bounds) Area() int {
	w, h := b.Width(), b.Height()
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// Contains reports whether the point (x, y) lies within the rectangle.
func (b Bounds) Contains(x, y int) bool {
	return x >= b.Left && x < b.Right && y >= b.Top && y < b.Bottom
}

func (b Bounds) String() string {
	return fmt.Sprintf("(%d,%d,%d,%d)", b.Left, b.Top, b.Right, b.Bottom)
}

// Props are the accessibility attributes of a single UI node as captured
// during a tree walk.
type Props struct {
	ControlType  string    `yaml:"control_type"            json:"control_type"`
	Name         string    `yaml:"name,omitempty"          json:"name,omitempty"`
	ClassName    string    `yaml:"class_name,omitempty"    json:"class_name,omitempty"`
	AutomationID string    `yaml:"automation_id,omitempty" json:"automation_id,omitempty"`
	Value        string    `yaml:"value,omitempty"         json:"value,omitempty"`
	RuntimeID    RuntimeID `yaml:"-"                       json:"-"`
	Handle       uintptr   `yaml:"handle,omitempty"        json:"handle,omitempty"`
	Bounds       Bounds    `yaml:"bounds"                  json:"bounds"`
	Enabled      bool      `yaml:"enabled"                 json:"enabled"`
	Visible      bool      `yaml:"visible"                 json:"visible"`
}

// Element identifies one UI node as returned to callers.
//
// Path is the durable, recomputable address and the only field usable to
// re-identify the node after the tree has been rebuilt. RuntimeID and Handle
// are bound to Generation and must be treated as invalid once the published
// snapshot moves past it.
type Element struct {
	Name       string    `yaml:"name"       json:"name"`
	Path       Path      `yaml:"path"       json:"path"`
	RuntimeID  RuntimeID `yaml:"runtime_id" json:"runtime_id"`
	Handle     uintptr   `yaml:"handle"     json:"handle"`
	Bounds     Bounds    `yaml:"bounds"     json:"bounds"`
	Generation uint64    `yaml:"generation" json:"generation"`
}

// ScreenMetrics describes the primary display as captured alongside a tree
// snapshot.
type ScreenMetrics struct {
	Width  int     `yaml:"width"  json:"width"`
	Height int     `yaml:"height" json:"height"`
	Scale  float64 `yaml:"scale"  json:"scale"`
}
