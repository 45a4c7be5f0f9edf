package driver

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/danuzzo/bromium/internal/model"
	"github.com/danuzzo/bromium/internal/native"
	"github.com/danuzzo/bromium/internal/native/nativetest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// desktop builds the fake accessibility tree. The seed goes into every
// runtime ID so a rebuilt tree has fresh native identities for the same
// logical elements, exactly like a recreated control on a live desktop.
func desktop(seed int32) *native.RawNode {
	n := func(p model.Props, children ...*native.RawNode) *native.RawNode {
		p.Visible = true
		p.Enabled = true
		return &native.RawNode{Props: p, Children: children}
	}
	return n(
		model.Props{ControlType: "Pane", Name: "Desktop 1", ClassName: "#32769",
			RuntimeID: model.RuntimeID{seed, 1}, Bounds: model.Bounds{Left: 0, Top: 0, Right: 1920, Bottom: 1080}},
		n(
			model.Props{ControlType: "Pane", Name: "Taskbar", ClassName: "Shell_TrayWnd",
				RuntimeID: model.RuntimeID{seed, 2}, Bounds: model.Bounds{Left: 0, Top: 1040, Right: 1920, Bottom: 1080}},
			n(model.Props{ControlType: "Button", Name: "Start", AutomationID: "StartButton",
				RuntimeID: model.RuntimeID{seed, 3}, Bounds: model.Bounds{Left: 0, Top: 1040, Right: 48, Bottom: 1080}}),
		),
		n(
			model.Props{ControlType: "Window", Name: "Untitled - Notepad", ClassName: "Notepad",
				RuntimeID: model.RuntimeID{seed, 4}, Handle: 0x5a4, Bounds: model.Bounds{Left: 100, Top: 100, Right: 900, Bottom: 700}},
			n(model.Props{ControlType: "Document", Name: "Text editor",
				RuntimeID: model.RuntimeID{seed, 5}, Bounds: model.Bounds{Left: 100, Top: 140, Right: 900, Bottom: 700}}),
		),
	)
}

func mustOpen(t *testing.T, fake *nativetest.Fake) *Driver {
	t.Helper()
	d, err := Open(Config{Automation: fake})
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestOpen_SingleInstance(t *testing.T) {
	fake := nativetest.New(desktop(1))
	d, err := Open(Config{Automation: fake})
	require.NoError(t, err)

	_, err = Open(Config{Automation: nativetest.New(desktop(1))})
	require.ErrorIs(t, err, ErrAlreadyRunning)

	require.NoError(t, d.Close())
	assert.True(t, fake.Closed(), "closing the driver must close the native binding")

	d2, err := Open(Config{Automation: nativetest.New(desktop(1))})
	require.NoError(t, err, "the slot must be free after Close")
	require.NoError(t, d2.Close())
}

func TestClose_Idempotent(t *testing.T) {
	d := mustOpen(t, nativetest.New(desktop(1)))
	require.NoError(t, d.Close())
	require.NoError(t, d.Close(), "second close must be a no-op")
}

func TestOpen_PerformsInitialCollection(t *testing.T) {
	fake := nativetest.New(desktop(1))
	d := mustOpen(t, fake)

	gen, err := d.Generation()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), gen)
	assert.Equal(t, int64(1), fake.Walks())
}

func TestOpen_ReleasesSlotOnFailure(t *testing.T) {
	fake := nativetest.New(desktop(1))
	fake.SetWalkPanic("no accessibility provider")
	_, err := Open(Config{Automation: fake})
	require.ErrorIs(t, err, ErrInternal)

	// The failed Open must not leave the slot claimed.
	mustOpen(t, nativetest.New(desktop(1)))
}

func TestOperationsAfterClose(t *testing.T) {
	d := mustOpen(t, nativetest.New(desktop(1)))
	el, err := d.ElementAt(20, 1050)
	require.NoError(t, err)
	require.NoError(t, d.Close())

	_, err = d.ElementAt(20, 1050)
	assert.ErrorIs(t, err, ErrNotRunning)
	_, err = d.ElementByPath(el.Path())
	assert.ErrorIs(t, err, ErrNotRunning)
	assert.ErrorIs(t, d.Refresh(), ErrNotRunning)
	_, err = d.AutoRefresh()
	assert.ErrorIs(t, err, ErrNotRunning)
	assert.ErrorIs(t, d.SetAutoRefresh(false), ErrNotRunning)
	assert.ErrorIs(t, el.Click(), ErrNotRunning)
	_, _, err = d.CursorPos()
	assert.ErrorIs(t, err, ErrNotRunning)
}

func TestElementAt_ResolvesDeepestNode(t *testing.T) {
	d := mustOpen(t, nativetest.New(desktop(1)))

	el, err := d.ElementAt(20, 1050)
	require.NoError(t, err)
	assert.Equal(t, "Start", el.Name())
	assert.Equal(t, uint64(1), el.Generation())
	assert.True(t, el.RuntimeID().Equal(model.RuntimeID{1, 3}))
	assert.Equal(t, "1-3", el.RuntimeID().String())
}

func TestElementAt_NotFound(t *testing.T) {
	d := mustOpen(t, nativetest.New(desktop(1)))
	_, err := d.ElementAt(-50, -50)
	require.ErrorIs(t, err, ErrElementNotFound)
}

func TestPointToPathRoundTrip(t *testing.T) {
	d := mustOpen(t, nativetest.New(desktop(1)))

	byPoint, err := d.ElementAt(20, 1050)
	require.NoError(t, err)

	byPath, err := d.ElementByPath(byPoint.Path())
	require.NoError(t, err)

	assert.True(t, byPoint.RuntimeID().Equal(byPath.RuntimeID()),
		"same logical node must resolve: %s vs %s", byPoint.RuntimeID(), byPath.RuntimeID())
	assert.Equal(t, byPoint.Generation(), byPath.Generation())
}

func TestElementByPath_NotFound(t *testing.T) {
	d := mustOpen(t, nativetest.New(desktop(1)))
	path, _ := model.ParsePath(`/Pane[@Name="Desktop 1"]/Window[@Name="No Such Window"]`)
	_, err := d.ElementByPath(path)
	require.ErrorIs(t, err, ErrElementNotFound)
}

func TestFreshElement_UsesCachedNode(t *testing.T) {
	fake := nativetest.New(desktop(1))
	d := mustOpen(t, fake)

	el, err := d.ElementAt(20, 1050)
	require.NoError(t, err)

	walksBefore := fake.Walks()
	require.NoError(t, el.Click())
	require.NoError(t, el.SendKeys("{ENTER}"))
	assert.Equal(t, walksBefore, fake.Walks(), "fresh element operations must not collect")
	require.Len(t, fake.Clicks, 1)
	assert.True(t, fake.Clicks[0].Target.RuntimeID.Equal(model.RuntimeID{1, 3}))
}

func TestStaleElement_AutoRefreshRecoversByPath(t *testing.T) {
	fake := nativetest.New(desktop(1))
	d := mustOpen(t, fake)

	el, err := d.ElementAt(20, 1050)
	require.NoError(t, err)
	require.Equal(t, uint64(1), el.Generation())
	oldID := el.RuntimeID()

	// The UI rebuilds: same logical elements, new native identities.
	fake.SetTree(desktop(9))
	require.NoError(t, d.Refresh())

	walksBefore := fake.Walks()
	require.NoError(t, el.Click(), "stale element must recover transparently")

	assert.GreaterOrEqual(t, el.Generation(), uint64(2))
	assert.False(t, el.RuntimeID().Equal(oldID), "recovery must rebind the native identity")
	assert.True(t, el.RuntimeID().Equal(model.RuntimeID{9, 3}))
	assert.Equal(t, walksBefore+1, fake.Walks(), "recovery performs exactly one collection")

	require.Len(t, fake.Clicks, 1)
	assert.True(t, fake.Clicks[0].Target.RuntimeID.Equal(model.RuntimeID{9, 3}),
		"the click must land on the recovered node")
}

func TestStaleElement_AutoRefreshDisabled(t *testing.T) {
	fake := nativetest.New(desktop(1))
	d := mustOpen(t, fake)

	el, err := d.ElementAt(20, 1050)
	require.NoError(t, err)

	fake.SetTree(desktop(9))
	require.NoError(t, d.Refresh())
	require.NoError(t, d.SetAutoRefresh(false))

	walksBefore := fake.Walks()
	err = el.Click()
	require.ErrorIs(t, err, ErrElementStale)
	assert.Equal(t, walksBefore, fake.Walks(), "stale access with auto-refresh off must not collect")
	assert.Empty(t, fake.Clicks)
}

func TestStaleElement_RecoveryFailure(t *testing.T) {
	fake := nativetest.New(desktop(1))
	d := mustOpen(t, fake)

	el, err := d.ElementAt(500, 400) // the notepad document
	require.NoError(t, err)

	// The notepad window goes away entirely.
	rebuilt := desktop(9)
	rebuilt.Children = rebuilt.Children[:1]
	fake.SetTree(rebuilt)
	require.NoError(t, d.Refresh())

	err = el.Click()
	require.ErrorIs(t, err, ErrElementNotFound)
}

func TestRefresh_StrictlyIncreasesGeneration(t *testing.T) {
	d := mustOpen(t, nativetest.New(desktop(1)))

	before, err := d.Generation()
	require.NoError(t, err)
	require.NoError(t, d.Refresh())
	after, err := d.Generation()
	require.NoError(t, err)
	assert.Greater(t, after, before)
}

func TestRefresh_TimeoutLeavesSnapshotUntouched(t *testing.T) {
	fake := nativetest.New(desktop(1))
	d, err := Open(Config{Automation: fake, CollectTimeout: 80 * time.Millisecond})
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	fake.SetWalkDuration(400 * time.Millisecond)
	err = d.Refresh()
	require.ErrorIs(t, err, ErrCollectionTimeout)

	gen, err := d.Generation()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), gen, "timeout must leave the published snapshot unchanged")

	// The abandoned walk still completes and is published for future
	// callers.
	require.Eventually(t, func() bool {
		g, err := d.Generation()
		return err == nil && g == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestConcurrentRefreshesCoalesce(t *testing.T) {
	fake := nativetest.New(desktop(1))
	d := mustOpen(t, fake)

	fake.SetWalkDuration(200 * time.Millisecond)
	walksBefore := fake.Walks()

	const callers = 5
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = d.Refresh()
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "caller %d", i)
	}
	assert.Equal(t, walksBefore+1, fake.Walks(),
		"concurrent refreshes must share one in-flight collection")

	gen, err := d.Generation()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), gen)
}

func TestFlagAccessDoesNotWaitForCollection(t *testing.T) {
	fake := nativetest.New(desktop(1))
	d := mustOpen(t, fake)

	fake.SetWalkDuration(400 * time.Millisecond)
	refreshDone := make(chan error, 1)
	go func() { refreshDone <- d.Refresh() }()
	time.Sleep(50 * time.Millisecond) // let the collection get going

	start := time.Now()
	_, err := d.AutoRefresh()
	require.NoError(t, err)
	require.NoError(t, d.SetAutoRefresh(true))
	assert.Less(t, time.Since(start), 100*time.Millisecond,
		"flag access must not wait on the in-flight collection")

	require.NoError(t, <-refreshDone)
}

func TestCollectionPanicSurfacesAsInternalError(t *testing.T) {
	fake := nativetest.New(desktop(1))
	d := mustOpen(t, fake)

	fake.SetWalkPanic("COM apartment gone")
	err := d.Refresh()
	require.ErrorIs(t, err, ErrInternal)

	// The driver survives and recovers once the provider behaves again.
	fake.SetWalkPanic("")
	require.NoError(t, d.Refresh())
}

func TestMarkStale_NextQueryCollects(t *testing.T) {
	fake := nativetest.New(desktop(1))
	d := mustOpen(t, fake)

	walksBefore := fake.Walks()
	d.MarkStale()
	_, err := d.ElementAt(20, 1050)
	require.NoError(t, err)
	assert.Equal(t, walksBefore+1, fake.Walks(), "a dirty snapshot must be recollected on query")

	// The flag clears once a fresh snapshot is published.
	_, err = d.ElementAt(20, 1050)
	require.NoError(t, err)
	assert.Equal(t, walksBefore+1, fake.Walks())
}

func TestLaunchOrActivate(t *testing.T) {
	fake := nativetest.New(desktop(1))
	d := mustOpen(t, fake)

	path, err := model.ParsePath(`/Pane[@Name="Desktop 1"]/Window[@Name="Untitled - Notepad"]/Document[@Name="Text editor"]`)
	require.NoError(t, err)
	require.NoError(t, d.LaunchOrActivate(`C:\Windows\notepad.exe`, path))

	require.Len(t, fake.Launches, 1)
	assert.Equal(t, `C:\Windows\notepad.exe`, fake.Launches[0].AppPath)
	assert.Equal(t, []string{"Untitled - Notepad"}, fake.Launches[0].WindowNames)

	// Launching reshapes the tree; the next query must recollect.
	walksBefore := fake.Walks()
	_, err = d.ElementAt(20, 1050)
	require.NoError(t, err)
	assert.Equal(t, walksBefore+1, fake.Walks())
}

func TestCursorPosAndMetrics(t *testing.T) {
	fake := nativetest.New(desktop(1))
	fake.SetCursor(123, 456)
	d := mustOpen(t, fake)

	x, y, err := d.CursorPos()
	require.NoError(t, err)
	assert.Equal(t, 123, x)
	assert.Equal(t, 456, y)

	m, err := d.ScreenMetrics()
	require.NoError(t, err)
	assert.Equal(t, 1920, m.Width)
	assert.Equal(t, 1080, m.Height)
}

func TestTimeoutAccessors(t *testing.T) {
	d := mustOpen(t, nativetest.New(desktop(1)))
	assert.Equal(t, DefaultTimeout, d.Timeout())
	require.NoError(t, d.SetTimeout(2*time.Second))
	assert.Equal(t, 2*time.Second, d.Timeout())
}

func TestHoldModifiers_RecordInput(t *testing.T) {
	fake := nativetest.New(desktop(1))
	d := mustOpen(t, fake)

	el, err := d.ElementAt(20, 1050)
	require.NoError(t, err)

	walksBefore := fake.Walks()
	require.NoError(t, el.HoldClick("{CTRL}"))
	require.NoError(t, el.HoldSendKeys("{SHIFT}", "{F10}"))
	assert.Equal(t, walksBefore, fake.Walks(), "fresh element operations must not collect")

	require.Len(t, fake.Clicks, 1)
	assert.Equal(t, "{CTRL}", fake.Clicks[0].HoldKeys)
	assert.True(t, fake.Clicks[0].Target.RuntimeID.Equal(model.RuntimeID{1, 3}))

	require.Len(t, fake.KeySends, 1)
	assert.Equal(t, "{F10}", fake.KeySends[0].Input)
	assert.Equal(t, "{SHIFT}", fake.KeySends[0].HoldKeys)
	assert.False(t, fake.KeySends[0].Literal)
}

func TestSendText_RecordsInput(t *testing.T) {
	fake := nativetest.New(desktop(1))
	d := mustOpen(t, fake)

	el, err := d.ElementAt(500, 400)
	require.NoError(t, err)
	require.NoError(t, el.SendText("hello world"))

	require.Len(t, fake.KeySends, 1)
	assert.Equal(t, "hello world", fake.KeySends[0].Input)
	assert.True(t, fake.KeySends[0].Literal)
	assert.True(t, fake.KeySends[0].Target.RuntimeID.Equal(model.RuntimeID{1, 5}))
}
