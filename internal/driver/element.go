package driver

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/danuzzo/bromium/internal/model"
	"github.com/danuzzo/bromium/internal/native"
)

// Element is a handle to one UI node, bound to the snapshot generation it
// was resolved from. Operations on the element first run the staleness
// check: while the bound generation matches the published snapshot the
// cached node is used directly; once the tree has moved on, the element is
// either transparently re-resolved by its path address (auto-refresh on) or
// the operation fails with ErrElementStale (auto-refresh off).
type Element struct {
	d  *Driver
	id model.Element // guarded by d.mu: rebinding races with readers
}

func (d *Driver) newElement(id model.Element) *Element {
	return &Element{d: d, id: id}
}

// Identity returns a copy of the element's current identity fields.
func (e *Element) Identity() model.Element {
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	return e.id
}

// Name returns the element's display name as of its last resolution.
func (e *Element) Name() string { return e.Identity().Name }

// Path returns the element's durable path address.
func (e *Element) Path() model.Path { return e.Identity().Path }

// RuntimeID returns the native identifier bound to the element's
// generation.
func (e *Element) RuntimeID() model.RuntimeID { return e.Identity().RuntimeID }

// Bounds returns the element's bounding rectangle as of its last
// resolution.
func (e *Element) Bounds() model.Bounds { return e.Identity().Bounds }

// Generation returns the snapshot generation the element is bound to.
func (e *Element) Generation() uint64 { return e.Identity().Generation }

// Click synthesizes a single left click on the element.
func (e *Element) Click() error { return e.click(native.ClickSingle) }

// DoubleClick synthesizes a double click on the element.
func (e *Element) DoubleClick() error { return e.click(native.ClickDouble) }

// RightClick synthesizes a right click on the element.
func (e *Element) RightClick() error { return e.click(native.ClickRight) }

func (e *Element) click(kind native.ClickKind) error {
	return e.act(fmt.Sprintf("%s click", kind), func(a native.Automation, t native.Target) error {
		return a.Click(t, kind)
	})
}

// HoldClick synthesizes a left click on the element while holding the
// given modifier keys, e.g. "{CTRL}" for multi-select.
func (e *Element) HoldClick(holdKeys string) error {
	return e.act("hold click", func(a native.Automation, t native.Target) error {
		return a.HoldClick(t, holdKeys)
	})
}

// SendKeys sends a key sequence, including control keys, to the element.
func (e *Element) SendKeys(keys string) error {
	return e.act("send keys", func(a native.Automation, t native.Target) error {
		return a.SendKeys(t, keys)
	})
}

// SendText types literal text into the element.
func (e *Element) SendText(text string) error {
	return e.act("send text", func(a native.Automation, t native.Target) error {
		return a.SendText(t, text)
	})
}

// HoldSendKeys sends a key sequence to the element while holding the given
// modifier keys.
func (e *Element) HoldSendKeys(holdKeys, keys string) error {
	return e.act("hold send keys", func(a native.Automation, t native.Target) error {
		return a.HoldSendKeys(t, holdKeys, keys)
	})
}

// act resolves the element against the current snapshot and then performs
// the input call off the state lock, bounded by the per-call timeout.
func (e *Element) act(op string, fn func(native.Automation, native.Target) error) error {
	target, err := e.d.resolveElement(e)
	if err != nil {
		return err
	}
	return e.d.await(op, func() error {
		return fn(e.d.auto, target)
	})
}

// resolveElement is the staleness and recovery engine.
//
// Fresh (bound generation equals the published one): the cached node is
// looked up by runtime ID, no collection happens. Stale with auto-refresh
// enabled: one coalesced collection, then recovery by exact path-address
// match in the new tree; on a match the element is rebound to the new
// generation, runtime ID, handle, and bounds. Stale with auto-refresh
// disabled: ErrElementStale immediately, without any traversal.
func (d *Driver) resolveElement(e *Element) (native.Target, error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return native.Target{}, ErrNotRunning
	}
	snap, auto := d.snap, d.autoRefresh
	id := e.id
	d.mu.Unlock()

	if snap != nil && id.Generation == snap.Generation {
		if index, ok := snap.ByRuntimeID(id.RuntimeID); ok {
			return snap.Target(index), nil
		}
		// The runtime ID is absent from its own generation's snapshot.
		// Should not happen, but recovery by path handles it too.
	}

	if !auto {
		return native.Target{}, fmt.Errorf("%w: bound to generation %d", ErrElementStale, id.Generation)
	}

	fresh, err := d.collect()
	if err != nil {
		return native.Target{}, err
	}
	index, ok := fresh.FindByPath(id.Path)
	if !ok {
		return native.Target{}, fmt.Errorf("%w: recovery failed for path %s", ErrElementNotFound, id.Path)
	}

	rebound := fresh.ElementFor(index)
	d.logger.Debug("element recovered by path",
		zap.String("path", id.Path.String()),
		zap.Uint64("old_generation", id.Generation),
		zap.Uint64("new_generation", fresh.Generation),
		zap.String("old_runtime_id", id.RuntimeID.String()),
		zap.String("new_runtime_id", rebound.RuntimeID.String()))

	// Rebind in place, keeping the original path: the path is the durable
	// key the caller resolved the element by, while the generated one may
	// carry different positional qualifiers after the rebuild.
	d.mu.Lock()
	e.id.Name = rebound.Name
	e.id.RuntimeID = rebound.RuntimeID
	e.id.Handle = rebound.Handle
	e.id.Bounds = rebound.Bounds
	e.id.Generation = rebound.Generation
	d.mu.Unlock()

	return fresh.Target(index), nil
}
