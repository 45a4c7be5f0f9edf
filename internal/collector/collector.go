// Package collector runs the blocking accessibility-tree traversals on a
// dedicated worker goroutine. Callers talk to the worker through a
// request/response channel with a bounded wait, so a hung OS call can never
// block the driver's state lock or a caller forever.
package collector

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/danuzzo/bromium/internal/native"
	"github.com/danuzzo/bromium/internal/tree"
)

// DefaultTimeout is the ceiling for waiting on a collection result. It is
// deliberately generous and independent of the per-call resolution timeout:
// it exists to catch a hung worker, not to race healthy traversals.
const DefaultTimeout = 30 * time.Second

var (
	// ErrTimeout means the collection wait elapsed without a result. The
	// in-flight traversal keeps running; its result is still published for
	// future callers if it eventually arrives.
	ErrTimeout = errors.New("timed out waiting for tree collection")

	// ErrClosed means the collector has been shut down.
	ErrClosed = errors.New("collector is closed")
)

// Result is the outcome of one traversal.
type Result struct {
	Snapshot *tree.Snapshot
	Err      error
}

type request struct {
	id       string
	resultCh chan Result // buffered: the worker never blocks on delivery
}

// Collector owns the worker goroutine and the generation counter. At most
// one traversal runs at a time; coalescing of concurrent demands happens in
// the driver, which funnels them into a single Collect call.
type Collector struct {
	auto    native.Automation
	publish func(*tree.Snapshot)
	logger  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	reqCh  chan request
	done   chan struct{}
	gen    atomic.Uint64
}

// New starts the worker. publish is invoked by the worker for every
// successful traversal, including ones whose requester already gave up
// waiting; it must be safe to call from the worker goroutine and must not
// block on collector calls.
func New(auto native.Automation, publish func(*tree.Snapshot), logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Collector{
		auto:    auto,
		publish: publish,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		reqCh:   make(chan request),
		done:    make(chan struct{}),
	}
	go c.run()
	return c
}

// Generation returns the generation of the most recent successful
// traversal.
func (c *Collector) Generation() uint64 { return c.gen.Load() }

// Collect requests a traversal and waits for its result, at most timeout
// (DefaultTimeout when <= 0). On ErrTimeout the caller may retry; the
// worker is left to finish the walk in the background.
func (c *Collector) Collect(timeout time.Duration) (*tree.Snapshot, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	req := request{
		id:       uuid.NewString(),
		resultCh: make(chan Result, 1),
	}

	select {
	case c.reqCh <- req:
	case <-c.ctx.Done():
		return nil, ErrClosed
	case <-deadline.C:
		// Worker is stuck in a previous walk; don't queue more work.
		c.logger.Warn("collection request not accepted before deadline",
			zap.String("req_id", req.id), zap.Duration("timeout", timeout))
		return nil, ErrTimeout
	}

	select {
	case res := <-req.resultCh:
		return res.Snapshot, res.Err
	case <-deadline.C:
		c.logger.Warn("collection result not received before deadline",
			zap.String("req_id", req.id), zap.Duration("timeout", timeout))
		return nil, ErrTimeout
	}
}

// Close stops the worker and waits for it to exit. A walk already inside
// the OS layer is not preemptible; Close returns once the worker notices
// the cancellation.
func (c *Collector) Close() {
	c.cancel()
	<-c.done
}

func (c *Collector) run() {
	defer close(c.done)
	for {
		select {
		case <-c.ctx.Done():
			return
		case req := <-c.reqCh:
			res := c.collect(req.id)
			if res.Err == nil && c.publish != nil {
				c.publish(res.Snapshot)
			}
			req.resultCh <- res
		}
	}
}

// collect performs one full traversal. Panics from the native layer are
// recovered into an error: a bad accessibility provider must not take the
// host process down.
func (c *Collector) collect(reqID string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("tree walk panicked",
				zap.String("req_id", reqID), zap.Any("panic", r))
			res = Result{Err: fmt.Errorf("tree walk panicked: %v", r)}
		}
	}()

	start := time.Now()
	c.logger.Debug("starting tree collection", zap.String("req_id", reqID))

	root, err := c.auto.EnumerateTree(c.ctx)
	if err != nil {
		return Result{Err: fmt.Errorf("enumerate tree: %w", err)}
	}
	metrics, err := c.auto.Metrics()
	if err != nil {
		return Result{Err: fmt.Errorf("screen metrics: %w", err)}
	}

	snap := tree.Build(root, metrics, c.gen.Add(1))
	c.logger.Info("tree collection finished",
		zap.String("req_id", reqID),
		zap.Uint64("generation", snap.Generation),
		zap.Int("nodes", snap.Len()),
		zap.Duration("elapsed", time.Since(start)))
	return Result{Snapshot: snap}
}
