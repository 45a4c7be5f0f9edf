// Package nativetest provides an in-memory Automation implementation for
// tests. The fake serves a configurable RawNode tree, records synthesized
// input, and can simulate slow or panicking traversals.
package nativetest

import (
	"context"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danuzzo/bromium/internal/model"
	"github.com/danuzzo/bromium/internal/native"
)

// Click records one synthesized click.
type Click struct {
	Target   native.Target
	Kind     native.ClickKind
	HoldKeys string
}

// Keys records one synthesized key or text input.
type Keys struct {
	Target   native.Target
	Input    string
	HoldKeys string
	Literal  bool // true for SendText
}

// Launch records one launch-or-activate request.
type Launch struct {
	AppPath     string
	WindowNames []string
}

// Fake is a scriptable Automation for tests. The zero value is not usable;
// construct with New.
type Fake struct {
	mu       sync.Mutex
	tree     *native.RawNode
	metrics  model.ScreenMetrics
	cursorX  int
	cursorY  int
	walkDur  time.Duration
	walkErr  error
	panicMsg string

	walks    atomic.Int64
	Clicks   []Click
	KeySends []Keys
	Launches []Launch
	closed   atomic.Bool
}

// New returns a Fake serving the given tree with 1920x1080 @1.0 metrics.
func New(tree *native.RawNode) *Fake {
	return &Fake{
		tree:    tree,
		metrics: model.ScreenMetrics{Width: 1920, Height: 1080, Scale: 1.0},
	}
}

// SetTree replaces the tree served by subsequent traversals, simulating the
// live UI changing underneath the driver.
func (f *Fake) SetTree(tree *native.RawNode) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tree = tree
}

// SetWalkDuration makes every traversal take at least d.
func (f *Fake) SetWalkDuration(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.walkDur = d
}

// SetWalkError makes traversals fail with err (nil restores success).
func (f *Fake) SetWalkError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.walkErr = err
}

// SetWalkPanic makes the next traversals panic with msg ("" restores
// normal behavior).
func (f *Fake) SetWalkPanic(msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.panicMsg = msg
}

// SetCursor positions the fake cursor.
func (f *Fake) SetCursor(x, y int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cursorX, f.cursorY = x, y
}

// Walks reports how many traversals have been performed. Tests use it to
// assert that concurrent demands were coalesced into one walk.
func (f *Fake) Walks() int64 { return f.walks.Load() }

// Closed reports whether Close has been called.
func (f *Fake) Closed() bool { return f.closed.Load() }

func (f *Fake) EnumerateTree(ctx context.Context) (*native.RawNode, error) {
	f.mu.Lock()
	tree, dur, err, panicMsg := f.tree, f.walkDur, f.walkErr, f.panicMsg
	f.mu.Unlock()

	f.walks.Add(1)
	if panicMsg != "" {
		panic(panicMsg)
	}
	if dur > 0 {
		select {
		case <-time.After(dur):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return tree, nil
}

func (f *Fake) Metrics() (model.ScreenMetrics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.metrics, nil
}

func (f *Fake) CursorPos() (int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cursorX, f.cursorY, nil
}

func (f *Fake) Click(t native.Target, kind native.ClickKind) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Clicks = append(f.Clicks, Click{Target: t, Kind: kind})
	return nil
}

func (f *Fake) HoldClick(t native.Target, holdKeys string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Clicks = append(f.Clicks, Click{Target: t, Kind: native.ClickSingle, HoldKeys: holdKeys})
	return nil
}

func (f *Fake) SendKeys(t native.Target, keys string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.KeySends = append(f.KeySends, Keys{Target: t, Input: keys})
	return nil
}

func (f *Fake) SendText(t native.Target, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.KeySends = append(f.KeySends, Keys{Target: t, Input: text, Literal: true})
	return nil
}

func (f *Fake) HoldSendKeys(t native.Target, holdKeys, keys string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.KeySends = append(f.KeySends, Keys{Target: t, Input: keys, HoldKeys: holdKeys})
	return nil
}

func (f *Fake) LaunchOrActivate(appPath string, windowNames []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Launches = append(f.Launches, Launch{AppPath: appPath, WindowNames: windowNames})
	return nil
}

func (f *Fake) CaptureScreen() (image.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return image.NewRGBA(image.Rect(0, 0, f.metrics.Width, f.metrics.Height)), nil
}

func (f *Fake) Close() error {
	f.closed.Store(true)
	return nil
}
