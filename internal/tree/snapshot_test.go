package tree

import (
	"testing"

	"github.com/danuzzo/bromium/internal/model"
	"github.com/danuzzo/bromium/internal/native"
)

var testMetrics = model.ScreenMetrics{Width: 1920, Height: 1080, Scale: 1.25}

// node builds a RawNode with visible defaults for tests.
func node(p model.Props, children ...*native.RawNode) *native.RawNode {
	if !p.Visible {
		p.Visible = true
	}
	if !p.Enabled {
		p.Enabled = true
	}
	return &native.RawNode{Props: p, Children: children}
}

// desktopTree is a small but realistic capture: desktop root, a taskbar
// with two buttons, and a notepad window with a document.
func desktopTree() *native.RawNode {
	return node(
		model.Props{ControlType: "Pane", Name: "Desktop 1", ClassName: "#32769", RuntimeID: model.RuntimeID{42, 1}, Bounds: model.Bounds{Left: 0, Top: 0, Right: 1920, Bottom: 1080}},
		node(
			model.Props{ControlType: "Pane", Name: "Taskbar", ClassName: "Shell_TrayWnd", RuntimeID: model.RuntimeID{42, 2}, Bounds: model.Bounds{Left: 0, Top: 1040, Right: 1920, Bottom: 1080}},
			node(model.Props{ControlType: "Button", Name: "Start", AutomationID: "StartButton", RuntimeID: model.RuntimeID{42, 3}, Bounds: model.Bounds{Left: 0, Top: 1040, Right: 48, Bottom: 1080}}),
			node(model.Props{ControlType: "Button", Name: "Search", AutomationID: "SearchButton", RuntimeID: model.RuntimeID{42, 4}, Bounds: model.Bounds{Left: 48, Top: 1040, Right: 96, Bottom: 1080}}),
		),
		node(
			model.Props{ControlType: "Window", Name: "Untitled - Notepad", ClassName: "Notepad", RuntimeID: model.RuntimeID{42, 5}, Handle: 0x5a4, Bounds: model.Bounds{Left: 100, Top: 100, Right: 900, Bottom: 700}},
			node(model.Props{ControlType: "Document", Name: "Text editor", RuntimeID: model.RuntimeID{42, 6}, Bounds: model.Bounds{Left: 100, Top: 140, Right: 900, Bottom: 700}}),
			node(model.Props{ControlType: "TitleBar", Name: "Untitled - Notepad", RuntimeID: model.RuntimeID{42, 7}, Bounds: model.Bounds{Left: 100, Top: 100, Right: 900, Bottom: 140}}),
		),
	)
}

func TestBuild_Arena(t *testing.T) {
	s := Build(desktopTree(), testMetrics, 1)
	if s.Len() != 7 {
		t.Fatalf("expected 7 nodes, got %d", s.Len())
	}
	root := s.Node(s.Root())
	if root.Props.Name != "Desktop 1" || root.Depth != 0 {
		t.Errorf("unexpected root: %+v", root.Props)
	}
	if len(root.Children) != 2 {
		t.Fatalf("root children = %d", len(root.Children))
	}
	taskbar := s.Node(root.Children[0])
	if taskbar.Props.ClassName != "Shell_TrayWnd" || taskbar.Depth != 1 {
		t.Errorf("unexpected taskbar: %+v", taskbar.Props)
	}
	for _, ci := range taskbar.Children {
		if s.Node(ci).Parent != taskbar.Index {
			t.Errorf("child %d has parent %d, want %d", ci, s.Node(ci).Parent, taskbar.Index)
		}
	}
	if s.Generation != 1 || s.Metrics != testMetrics {
		t.Errorf("generation/metrics not carried: gen=%d metrics=%+v", s.Generation, s.Metrics)
	}
}

func TestBuild_Empty(t *testing.T) {
	s := Build(nil, testMetrics, 3)
	if s.Len() != 0 {
		t.Errorf("expected empty snapshot, got %d nodes", s.Len())
	}
	if _, ok := s.NodeAtPoint(10, 10); ok {
		t.Error("NodeAtPoint on empty snapshot should fail")
	}
	if _, ok := s.FindByPath(model.Path{{ControlType: "Pane"}}); ok {
		t.Error("FindByPath on empty snapshot should fail")
	}
}

func TestByRuntimeID(t *testing.T) {
	s := Build(desktopTree(), testMetrics, 1)
	index, ok := s.ByRuntimeID(model.RuntimeID{42, 3})
	if !ok {
		t.Fatal("runtime id 42-3 not found")
	}
	if s.Node(index).Props.Name != "Start" {
		t.Errorf("wrong node: %+v", s.Node(index).Props)
	}
	if _, ok := s.ByRuntimeID(model.RuntimeID{99, 99}); ok {
		t.Error("unknown runtime id should not resolve")
	}
}

func TestNodeAtPoint_MostSpecific(t *testing.T) {
	s := Build(desktopTree(), testMetrics, 1)

	index, ok := s.NodeAtPoint(20, 1050)
	if !ok {
		t.Fatal("no node at point")
	}
	if got := s.Node(index).Props.Name; got != "Start" {
		t.Errorf("node at (20,1050) = %q, want Start", got)
	}

	// Inside the window but outside document and title bar rows is
	// impossible in this capture; the document wins over the window.
	index, ok = s.NodeAtPoint(500, 400)
	if !ok {
		t.Fatal("no node at point")
	}
	if got := s.Node(index).Props.ControlType; got != "Document" {
		t.Errorf("node at (500,400) = %q, want Document", got)
	}
}

func TestNodeAtPoint_OutsideScreen(t *testing.T) {
	s := Build(desktopTree(), testMetrics, 1)
	if _, ok := s.NodeAtPoint(-5, -5); ok {
		t.Error("negative coordinates should not resolve")
	}
	if _, ok := s.NodeAtPoint(5000, 5000); ok {
		t.Error("coordinates beyond the desktop should not resolve")
	}
}

func TestNodeAtPoint_SkipsInvisible(t *testing.T) {
	root := node(
		model.Props{ControlType: "Pane", Name: "Desktop", Bounds: model.Bounds{Left: 0, Top: 0, Right: 100, Bottom: 100}},
	)
	hidden := &native.RawNode{Props: model.Props{
		ControlType: "Window", Name: "Ghost", Visible: false, Enabled: true,
		Bounds: model.Bounds{Left: 0, Top: 0, Right: 10, Bottom: 10},
	}}
	root.Children = append(root.Children, hidden)

	s := Build(root, testMetrics, 1)
	index, ok := s.NodeAtPoint(5, 5)
	if !ok {
		t.Fatal("no node at point")
	}
	if got := s.Node(index).Props.Name; got != "Desktop" {
		t.Errorf("invisible node won point lookup: %q", got)
	}
}

func TestFindByPath_Exact(t *testing.T) {
	s := Build(desktopTree(), testMetrics, 1)
	path, err := model.ParsePath(`/Pane[@ClassName="#32769"][@Name="Desktop 1"]/Pane[@ClassName="Shell_TrayWnd"]/Button[@Name="Start"][@AutomationId="StartButton"]`)
	if err != nil {
		t.Fatal(err)
	}
	index, ok := s.FindByPath(path)
	if !ok {
		t.Fatal("path did not resolve")
	}
	if !s.Node(index).Props.RuntimeID.Equal(model.RuntimeID{42, 3}) {
		t.Errorf("resolved wrong node: %+v", s.Node(index).Props)
	}
}

func TestFindByPath_NoPrefixMatch(t *testing.T) {
	s := Build(desktopTree(), testMetrics, 1)
	// The first two steps exist, the leaf does not; the partial match must
	// not resolve to anything.
	path, _ := model.ParsePath(`/Pane[@Name="Desktop 1"]/Pane[@ClassName="Shell_TrayWnd"]/Button[@Name="DoesNotExist"]`)
	if _, ok := s.FindByPath(path); ok {
		t.Error("prefix match must not resolve")
	}
}

func TestFindByPath_WrongRoot(t *testing.T) {
	s := Build(desktopTree(), testMetrics, 1)
	path, _ := model.ParsePath(`/Window[@Name="Desktop 1"]/Pane[@ClassName="Shell_TrayWnd"]`)
	if _, ok := s.FindByPath(path); ok {
		t.Error("mismatched root must not resolve")
	}
}

// Two same-type siblings where only the subtree distinguishes them: the
// search must backtrack through the first candidate to find the second.
func TestFindByPath_BacktracksAmbiguousSiblings(t *testing.T) {
	root := node(
		model.Props{ControlType: "Pane", Name: "Desktop", Bounds: model.Bounds{Left: 0, Top: 0, Right: 100, Bottom: 100}},
		node(
			model.Props{ControlType: "Group", RuntimeID: model.RuntimeID{1, 1}},
			node(model.Props{ControlType: "Button", Name: "A", RuntimeID: model.RuntimeID{1, 2}}),
		),
		node(
			model.Props{ControlType: "Group", RuntimeID: model.RuntimeID{1, 3}},
			node(model.Props{ControlType: "Button", Name: "B", RuntimeID: model.RuntimeID{1, 4}}),
		),
	)
	s := Build(root, testMetrics, 1)

	path, _ := model.ParsePath(`/Pane[@Name="Desktop"]/Group/Button[@Name="B"]`)
	index, ok := s.FindByPath(path)
	if !ok {
		t.Fatal("ambiguous path did not resolve")
	}
	if !s.Node(index).Props.RuntimeID.Equal(model.RuntimeID{1, 4}) {
		t.Errorf("resolved wrong node: %+v", s.Node(index).Props)
	}
}

func TestFindByPath_PositionalQualifier(t *testing.T) {
	root := node(
		model.Props{ControlType: "Pane", Name: "Desktop"},
		node(model.Props{ControlType: "Group", RuntimeID: model.RuntimeID{1, 1}}),
		node(model.Props{ControlType: "Group", RuntimeID: model.RuntimeID{1, 2}}),
		node(model.Props{ControlType: "Group", RuntimeID: model.RuntimeID{1, 3}}),
	)
	s := Build(root, testMetrics, 1)

	path, _ := model.ParsePath(`/Pane[@Name="Desktop"]/Group[2]`)
	index, ok := s.FindByPath(path)
	if !ok {
		t.Fatal("positional path did not resolve")
	}
	if !s.Node(index).Props.RuntimeID.Equal(model.RuntimeID{1, 2}) {
		t.Errorf("resolved wrong node: %+v", s.Node(index).Props)
	}

	path, _ = model.ParsePath(`/Pane[@Name="Desktop"]/Group[4]`)
	if _, ok := s.FindByPath(path); ok {
		t.Error("out-of-range position must not resolve")
	}
}

// Every node's generated path must resolve back to exactly that node.
func TestPathFor_RoundTrip(t *testing.T) {
	s := Build(desktopTree(), testMetrics, 1)
	for i := 0; i < s.Len(); i++ {
		path := s.PathFor(i)
		index, ok := s.FindByPath(path)
		if !ok {
			t.Errorf("node %d: generated path %s did not resolve", i, path)
			continue
		}
		if index != i {
			t.Errorf("node %d: path %s resolved to node %d", i, path, index)
		}
	}
}

func TestPathFor_RoundTripThroughTextualForm(t *testing.T) {
	// Window titles routinely carry Windows separators and quotes; the
	// generated path must survive rendering and re-parsing.
	root := node(
		model.Props{ControlType: "Pane", Name: "Desktop 1", RuntimeID: model.RuntimeID{7, 1}, Bounds: model.Bounds{Left: 0, Top: 0, Right: 1920, Bottom: 1080}},
		node(model.Props{ControlType: "Window", Name: `C:\Users\me - Editor`, RuntimeID: model.RuntimeID{7, 2}, Bounds: model.Bounds{Left: 0, Top: 0, Right: 800, Bottom: 600}}),
		node(model.Props{ControlType: "Window", Name: `Say "Hi" - Chat`, RuntimeID: model.RuntimeID{7, 3}, Bounds: model.Bounds{Left: 800, Top: 0, Right: 1600, Bottom: 600}}),
	)
	s := Build(root, testMetrics, 1)

	for i := 0; i < s.Len(); i++ {
		rendered := s.PathFor(i).String()
		path, err := model.ParsePath(rendered)
		if err != nil {
			t.Errorf("node %d: re-parse of %s failed: %v", i, rendered, err)
			continue
		}
		index, ok := s.FindByPath(path)
		if !ok {
			t.Errorf("node %d: re-parsed path %s did not resolve", i, rendered)
			continue
		}
		if index != i {
			t.Errorf("node %d: path %s resolved to node %d", i, rendered, index)
		}
	}
}

func TestPathFor_AmbiguousSiblingsGetIndex(t *testing.T) {
	root := node(
		model.Props{ControlType: "Pane", Name: "Desktop"},
		node(model.Props{ControlType: "Group", RuntimeID: model.RuntimeID{1, 1}}),
		node(model.Props{ControlType: "Group", RuntimeID: model.RuntimeID{1, 2}}),
	)
	s := Build(root, testMetrics, 1)

	first := s.PathFor(1)
	second := s.PathFor(2)
	if first[1].Index != 1 || second[1].Index != 2 {
		t.Errorf("expected positional qualifiers 1 and 2, got %d and %d", first[1].Index, second[1].Index)
	}
	if first.Equal(second) {
		t.Error("paths of distinct siblings must differ")
	}

	// Round trip through the textual form as well.
	for want, p := range map[int]model.Path{1: first, 2: second} {
		reparsed, err := model.ParsePath(p.String())
		if err != nil {
			t.Fatalf("reparse %s: %v", p, err)
		}
		index, ok := s.FindByPath(reparsed)
		if !ok || index != want {
			t.Errorf("path %s resolved to (%d, %v), want %d", p, index, ok, want)
		}
	}
}

func TestElementFor_BindsGeneration(t *testing.T) {
	s := Build(desktopTree(), testMetrics, 7)
	index, _ := s.ByRuntimeID(model.RuntimeID{42, 3})
	el := s.ElementFor(index)
	if el.Generation != 7 {
		t.Errorf("generation = %d, want 7", el.Generation)
	}
	if el.Name != "Start" {
		t.Errorf("name = %q", el.Name)
	}
	resolved, ok := s.FindByPath(el.Path)
	if !ok || resolved != index {
		t.Errorf("element path %s did not resolve to its node", el.Path)
	}
}
