// Package tree holds immutable snapshots of the accessibility tree.
//
// A Snapshot is built once by the collector and never mutated afterwards;
// readers holding a reference can resolve points and path addresses against
// it without any locking. Nodes live in a flat arena and reference each
// other by index.
package tree

import (
	"github.com/danuzzo/bromium/internal/model"
	"github.com/danuzzo/bromium/internal/native"
)

// Node is one UI node in a snapshot. Parent of the root is 0 (itself).
type Node struct {
	Index    int
	Parent   int
	Depth    int
	Children []int
	Props    model.Props
}

// Snapshot is an immutable capture of the UI tree plus the screen metrics
// taken with it. Generation increases by one for every successful
// collection; runtime IDs stored in a snapshot are valid only for that
// generation.
type Snapshot struct {
	Generation uint64
	Metrics    model.ScreenMetrics

	nodes       []Node
	byRuntimeID map[string]int
}

// Build converts a raw traversal result into a snapshot. The runtime-id
// index keeps the last node seen for a duplicate ID; the OS should not
// produce duplicates within one walk.
func Build(root *native.RawNode, metrics model.ScreenMetrics, generation uint64) *Snapshot {
	s := &Snapshot{
		Generation:  generation,
		Metrics:     metrics,
		byRuntimeID: make(map[string]int),
	}
	if root != nil {
		s.addSubtree(root, 0, 0)
	}
	return s
}

func (s *Snapshot) addSubtree(raw *native.RawNode, parent, depth int) int {
	index := len(s.nodes)
	s.nodes = append(s.nodes, Node{
		Index:  index,
		Parent: parent,
		Depth:  depth,
		Props:  raw.Props,
	})
	if id := raw.Props.RuntimeID.String(); id != "" {
		s.byRuntimeID[id] = index
	}
	for _, child := range raw.Children {
		ci := s.addSubtree(child, index, depth+1)
		s.nodes[index].Children = append(s.nodes[index].Children, ci)
	}
	return index
}

// Len returns the number of nodes in the snapshot.
func (s *Snapshot) Len() int { return len(s.nodes) }

// Root returns the index of the root node. Only valid when Len() > 0.
func (s *Snapshot) Root() int { return 0 }

// Node returns the node at the given arena index.
func (s *Snapshot) Node(index int) Node { return s.nodes[index] }

// ByRuntimeID returns the index of the node with the given runtime ID.
func (s *Snapshot) ByRuntimeID(id model.RuntimeID) (int, bool) {
	index, ok := s.byRuntimeID[id.String()]
	return index, ok
}

// Target returns the input-synthesis target for a node.
func (s *Snapshot) Target(index int) native.Target {
	p := s.nodes[index].Props
	return native.Target{RuntimeID: p.RuntimeID, Handle: p.Handle, Bounds: p.Bounds}
}

// ElementFor assembles the caller-facing identity of a node, binding it to
// this snapshot's generation.
func (s *Snapshot) ElementFor(index int) model.Element {
	p := s.nodes[index].Props
	return model.Element{
		Name:       p.Name,
		Path:       s.PathFor(index),
		RuntimeID:  p.RuntimeID,
		Handle:     p.Handle,
		Bounds:     p.Bounds,
		Generation: s.Generation,
	}
}
