package driver

import "errors"

// Every failure crossing the driver's public surface is one of these kinds,
// possibly wrapped with call-site context. Callers classify with errors.Is.
var (
	// ErrAlreadyRunning is returned by Open while another instance is alive.
	ErrAlreadyRunning = errors.New("a driver instance is already running")

	// ErrNotRunning is returned by operations on a closed driver.
	ErrNotRunning = errors.New("driver is not running")

	// ErrElementStale means the element's generation no longer matches the
	// published snapshot and auto-refresh is disabled. Call Refresh and
	// re-query, or enable auto-refresh.
	ErrElementStale = errors.New("element is stale")

	// ErrElementNotFound means point or path resolution, or post-refresh
	// recovery, matched no node.
	ErrElementNotFound = errors.New("element not found")

	// ErrCollectionTimeout means the wait for a tree collection elapsed.
	// The previously published snapshot remains current; the caller may
	// retry.
	ErrCollectionTimeout = errors.New("timed out collecting the UI tree")

	// ErrInternal covers lock, channel, and native-layer failures not
	// otherwise classified. It is never silently swallowed.
	ErrInternal = errors.New("internal driver error")
)
