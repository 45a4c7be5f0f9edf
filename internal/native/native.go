// Package native defines the low-level accessibility surface the driver is
// built on. The actual Windows UI Automation bindings live in a
// platform-specific package that registers itself via init(); everything
// above this package only ever sees the Automation interface.
package native

import (
	"context"
	"fmt"
	"image"
	"runtime"

	"github.com/danuzzo/bromium/internal/model"
)

// RawNode is one node of the live accessibility tree as produced by a
// traversal. The collector converts a RawNode tree into an immutable
// snapshot; nothing above the collector holds RawNodes.
type RawNode struct {
	Props    model.Props
	Children []*RawNode
}

// Target identifies a live UI node for input synthesis. RuntimeID is the
// primary key; Handle and Bounds are advisory fallbacks for bindings that
// address windows or raw coordinates.
type Target struct {
	RuntimeID model.RuntimeID
	Handle    uintptr
	Bounds    model.Bounds
}

// ClickKind selects the flavor of synthesized click.
type ClickKind int

const (
	ClickSingle ClickKind = iota
	ClickDouble
	ClickRight
)

func (k ClickKind) String() string {
	switch k {
	case ClickSingle:
		return "single"
	case ClickDouble:
		return "double"
	case ClickRight:
		return "right"
	default:
		return fmt.Sprintf("ClickKind(%d)", int(k))
	}
}

// Automation is the OS accessibility binding. All methods except CursorPos
// and Metrics may block for as long as the OS pleases; callers must never
// invoke them while holding driver state locks.
type Automation interface {
	// EnumerateTree walks the live accessibility tree from the desktop root
	// and returns it as a RawNode tree. The walk honors ctx cancellation
	// between nodes on a best-effort basis; an individual OS call is not
	// preemptible.
	EnumerateTree(ctx context.Context) (*RawNode, error)

	// Metrics returns the primary display's dimensions and scale factor.
	Metrics() (model.ScreenMetrics, error)

	// CursorPos returns the current cursor position in screen coordinates.
	CursorPos() (x, y int, err error)

	// Click synthesizes a click of the given kind on the target.
	Click(t Target, kind ClickKind) error

	// HoldClick synthesizes a left click on the target while the given
	// modifier keys are held down.
	HoldClick(t Target, holdKeys string) error

	// SendKeys sends a key sequence (including control keys) to the target.
	SendKeys(t Target, keys string) error

	// SendText types literal text into the target.
	SendText(t Target, text string) error

	// HoldSendKeys sends a key sequence to the target while the given
	// modifier keys are held down.
	HoldSendKeys(t Target, holdKeys, keys string) error

	// LaunchOrActivate brings a window with one of the given names to the
	// foreground, or starts the executable at appPath if none is on screen.
	LaunchOrActivate(appPath string, windowNames []string) error

	// CaptureScreen captures the primary display.
	CaptureScreen() (image.Image, error)

	// Close releases any OS resources held by the binding.
	Close() error
}

// ErrUnsupported is returned on platforms without a registered binding.
var ErrUnsupported = fmt.Errorf("bromium is not supported on %s/%s; supported: windows/amd64, windows/arm64", runtime.GOOS, runtime.GOARCH)

// NewAutomationFunc is set by the platform-specific binding package via
// init().
var NewAutomationFunc func() (Automation, error)

// New returns the Automation binding for the current OS.
func New() (Automation, error) {
	if NewAutomationFunc == nil {
		return nil, ErrUnsupported
	}
	return NewAutomationFunc()
}
