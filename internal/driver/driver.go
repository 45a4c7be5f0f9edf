// Package driver implements the process-wide UI automation driver: a single
// shared snapshot of the accessibility tree, a staleness and recovery engine
// for elements handed out to callers, and the queueing discipline that keeps
// blocking OS calls off the state lock.
package driver

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/danuzzo/bromium/internal/collector"
	"github.com/danuzzo/bromium/internal/model"
	"github.com/danuzzo/bromium/internal/native"
	"github.com/danuzzo/bromium/internal/tree"
)

// DefaultTimeout bounds individual element resolutions and input calls.
const DefaultTimeout = 5 * time.Second

// Config configures Open.
type Config struct {
	// Timeout bounds per-call work against an already-published snapshot
	// and synthesized input calls. Defaults to DefaultTimeout.
	Timeout time.Duration

	// CollectTimeout is the ceiling for waiting on a full tree collection.
	// Defaults to collector.DefaultTimeout. Deliberately independent of
	// Timeout: it guards against a hung worker, not slow lookups.
	CollectTimeout time.Duration

	// Logger receives structured driver logs. Defaults to a no-op logger.
	Logger *zap.Logger

	// Automation overrides the platform binding. Nil selects the binding
	// registered for the current OS.
	Automation native.Automation
}

// One driver instance may be alive per process. The slot is claimed under
// the same critical section that guards construction, so two racing Opens
// cannot both succeed.
var (
	instanceMu    sync.Mutex
	instanceAlive bool
)

func claimInstance() error {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	if instanceAlive {
		return ErrAlreadyRunning
	}
	instanceAlive = true
	return nil
}

func releaseInstance() {
	instanceMu.Lock()
	instanceAlive = false
	instanceMu.Unlock()
}

// Driver is the facade over the snapshot state, the collector, and the
// native binding.
//
// mu is held only for pointer and flag swaps, never across a collection
// wait or a native call. All blocking work happens either on the
// collector's worker or in bounded helper goroutines.
type Driver struct {
	mu          sync.Mutex
	snap        *tree.Snapshot
	autoRefresh bool
	dirty       bool
	closed      bool
	timeout     time.Duration

	auto           native.Automation
	coll           *collector.Collector
	sf             singleflight.Group
	collectTimeout time.Duration
	logger         *zap.Logger
}

// Open constructs the process-wide driver instance and performs the initial
// tree collection. It fails with ErrAlreadyRunning while another instance
// is alive. Auto-refresh starts enabled.
func Open(cfg Config) (*Driver, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.CollectTimeout <= 0 {
		cfg.CollectTimeout = collector.DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	if err := claimInstance(); err != nil {
		return nil, err
	}

	auto := cfg.Automation
	if auto == nil {
		var err error
		auto, err = native.New()
		if err != nil {
			releaseInstance()
			return nil, err
		}
	}

	d := &Driver{
		autoRefresh:    true,
		timeout:        cfg.Timeout,
		auto:           auto,
		collectTimeout: cfg.CollectTimeout,
		logger:         cfg.Logger,
	}
	d.coll = collector.New(auto, d.publishSnapshot, cfg.Logger)

	if _, err := d.collect(); err != nil {
		d.coll.Close()
		_ = auto.Close()
		releaseInstance()
		return nil, fmt.Errorf("initial collection: %w", err)
	}

	d.logger.Info("driver opened",
		zap.Duration("timeout", cfg.Timeout),
		zap.Duration("collect_timeout", cfg.CollectTimeout))
	return d, nil
}

// Close stops the collector, releases the native binding, and frees the
// single-instance slot. It is safe to call more than once; only the first
// call does work.
func (d *Driver) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.snap = nil
	d.mu.Unlock()

	d.coll.Close()
	err := d.auto.Close()
	releaseInstance()
	d.logger.Info("driver closed")
	if err != nil {
		return fmt.Errorf("%w: closing native binding: %v", ErrInternal, err)
	}
	return nil
}

// publishSnapshot installs a freshly collected snapshot. Invoked from the
// collector worker, including for walks whose requester stopped waiting, so
// a late result still benefits future callers. Older generations never
// replace newer ones.
func (d *Driver) publishSnapshot(snap *tree.Snapshot) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	if d.snap != nil && snap.Generation <= d.snap.Generation {
		return
	}
	d.snap = snap
	d.dirty = false
}

// collect runs one coalesced tree collection: concurrent callers share a
// single in-flight traversal and all observe its result. The wait is
// bounded inside the shared call, so every waiter gets ErrCollectionTimeout
// together if the ceiling elapses.
func (d *Driver) collect() (*tree.Snapshot, error) {
	ch := d.sf.DoChan("collect", func() (_ interface{}, err error) {
		// A panic escaping this function would be re-raised by
		// singleflight on an unrecoverable goroutine; convert it here.
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%w: collection panicked: %v", ErrInternal, r)
			}
		}()

		snap, err := d.coll.Collect(d.collectTimeout)
		if err != nil {
			return nil, mapCollectError(err)
		}
		return snap, nil
	})

	res := <-ch
	if res.Err != nil {
		return nil, res.Err
	}
	return res.Val.(*tree.Snapshot), nil
}

func mapCollectError(err error) error {
	switch {
	case errors.Is(err, collector.ErrTimeout):
		return ErrCollectionTimeout
	case errors.Is(err, collector.ErrClosed):
		return ErrNotRunning
	default:
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
}

// snapshot returns the published snapshot for a read, collecting first when
// none exists yet or the tree has been marked dirty. The state lock is
// dropped before any collection wait.
func (d *Driver) snapshot() (*tree.Snapshot, error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil, ErrNotRunning
	}
	snap, dirty, auto := d.snap, d.dirty, d.autoRefresh
	d.mu.Unlock()

	if snap == nil || (dirty && auto) {
		return d.collect()
	}
	return snap, nil
}

// Snapshot returns the currently published tree snapshot. Snapshots are
// immutable; the caller may traverse it freely without further locking.
func (d *Driver) Snapshot() (*tree.Snapshot, error) {
	return d.snapshot()
}

// Generation returns the generation of the published snapshot.
func (d *Driver) Generation() (uint64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0, ErrNotRunning
	}
	if d.snap == nil {
		return 0, nil
	}
	return d.snap.Generation, nil
}

// Refresh unconditionally collects a new tree and publishes it, regardless
// of the auto-refresh setting. Concurrent refreshes coalesce onto one
// traversal. On ErrCollectionTimeout the previous snapshot stays current.
func (d *Driver) Refresh() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrNotRunning
	}
	d.mu.Unlock()

	_, err := d.collect()
	return err
}

// MarkStale flags the published snapshot as outdated: the next query will
// collect a fresh tree first when auto-refresh is enabled. External change
// monitors (window-event hooks) call this when the UI changes.
func (d *Driver) MarkStale() {
	d.mu.Lock()
	d.dirty = true
	d.mu.Unlock()
}

// AutoRefresh reports whether stale elements transparently trigger a new
// collection. This is a pure flag read: it never waits on an in-flight
// collection.
func (d *Driver) AutoRefresh() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false, ErrNotRunning
	}
	return d.autoRefresh, nil
}

// SetAutoRefresh toggles transparent recovery of stale elements.
func (d *Driver) SetAutoRefresh(enabled bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrNotRunning
	}
	d.autoRefresh = enabled
	return nil
}

// Timeout returns the per-call resolution timeout.
func (d *Driver) Timeout() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timeout
}

// SetTimeout replaces the per-call resolution timeout.
func (d *Driver) SetTimeout(timeout time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrNotRunning
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	d.timeout = timeout
	return nil
}

// ElementAt resolves the most specific visible element under the given
// screen coordinates in the current snapshot.
func (d *Driver) ElementAt(x, y int) (*Element, error) {
	snap, err := d.snapshot()
	if err != nil {
		return nil, err
	}
	index, ok := snap.NodeAtPoint(x, y)
	if !ok {
		return nil, fmt.Errorf("%w: no element at (%d, %d)", ErrElementNotFound, x, y)
	}
	return d.newElement(snap.ElementFor(index)), nil
}

// ElementByPath resolves a path address in the current snapshot.
func (d *Driver) ElementByPath(path model.Path) (*Element, error) {
	snap, err := d.snapshot()
	if err != nil {
		return nil, err
	}
	index, ok := snap.FindByPath(path)
	if !ok {
		return nil, fmt.Errorf("%w: path %s", ErrElementNotFound, path)
	}
	return d.newElement(snap.ElementFor(index)), nil
}

// CursorPos returns the current cursor position in screen coordinates.
func (d *Driver) CursorPos() (int, int, error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return 0, 0, ErrNotRunning
	}
	d.mu.Unlock()

	x, y, err := d.auto.CursorPos()
	if err != nil {
		return 0, 0, fmt.Errorf("%w: cursor position: %v", ErrInternal, err)
	}
	return x, y, nil
}

// ScreenMetrics returns the display metrics captured with the current
// snapshot.
func (d *Driver) ScreenMetrics() (model.ScreenMetrics, error) {
	snap, err := d.snapshot()
	if err != nil {
		return model.ScreenMetrics{}, err
	}
	return snap.Metrics, nil
}

// LaunchOrActivate brings the application window named in the path address
// to the foreground, starting the executable at appPath if no such window
// is on screen. The snapshot is marked stale afterwards: a launch or
// activation reshapes the tree.
func (d *Driver) LaunchOrActivate(appPath string, path model.Path) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrNotRunning
	}
	d.mu.Unlock()

	names := path.WindowNames()
	d.logger.Info("launch or activate",
		zap.String("app_path", appPath), zap.Strings("window_names", names))

	err := d.await("launch or activate", func() error {
		return d.auto.LaunchOrActivate(appPath, names)
	})
	if err != nil {
		return err
	}
	d.MarkStale()
	return nil
}

// CaptureScreen captures the primary display through the native binding.
func (d *Driver) CaptureScreen() (image.Image, error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil, ErrNotRunning
	}
	d.mu.Unlock()

	var img image.Image
	err := d.await("capture screen", func() error {
		var err error
		img, err = d.auto.CaptureScreen()
		return err
	})
	if err != nil {
		return nil, err
	}
	return img, nil
}

// await runs a blocking native call off the state lock, bounded by the
// per-call timeout. The call itself is not cancellable; on timeout it is
// left to finish in the background and its result discarded.
func (d *Driver) await(op string, fn func() error) error {
	timeout := d.Timeout()
	errCh := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				errCh <- fmt.Errorf("panicked: %v", r)
			}
		}()
		errCh <- fn()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInternal, op, err)
		}
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("%w: %s did not complete within %v", ErrInternal, op, timeout)
	}
}
