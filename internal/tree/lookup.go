package tree

import (
	"github.com/danuzzo/bromium/internal/model"
)

// NodeAtPoint returns the index of the most specific visible node whose
// bounding rectangle contains (x, y): the one with the smallest area, with
// tree depth breaking ties. Returns false if no visible node contains the
// point.
func (s *Snapshot) NodeAtPoint(x, y int) (int, bool) {
	best := -1
	bestArea := 0
	for i := range s.nodes {
		p := s.nodes[i].Props
		if !p.Visible || p.Bounds.Area() == 0 || !p.Bounds.Contains(x, y) {
			continue
		}
		area := p.Bounds.Area()
		switch {
		case best == -1, area < bestArea:
			best, bestArea = i, area
		case area == bestArea && s.nodes[i].Depth > s.nodes[best].Depth:
			best = i
		}
	}
	if best == -1 {
		return 0, false
	}
	return best, true
}

// FindByPath resolves a path address to a node index. The match is
// structural over the full path: every step must match the corresponding
// level, starting at the root. When a step matches several siblings the
// search tries each in order (honoring an explicit positional qualifier
// first), so a match is only reported when the entire remaining path lines
// up. Prefix matches never count.
func (s *Snapshot) FindByPath(path model.Path) (int, bool) {
	if len(path) == 0 || s.Len() == 0 {
		return 0, false
	}
	root := s.nodes[s.Root()]
	if !path[0].Matches(root.Props) {
		return 0, false
	}
	if path[0].Index > 1 {
		// The root has no siblings; any position other than 1 cannot match.
		return 0, false
	}
	return s.findFrom(root.Index, path[1:])
}

func (s *Snapshot) findFrom(index int, rest model.Path) (int, bool) {
	if len(rest) == 0 {
		return index, true
	}
	step := rest[0]

	var matches []int
	for _, ci := range s.nodes[index].Children {
		if step.Matches(s.nodes[ci].Props) {
			matches = append(matches, ci)
		}
	}

	if step.Index > 0 {
		if step.Index > len(matches) {
			return 0, false
		}
		return s.findFrom(matches[step.Index-1], rest[1:])
	}

	for _, ci := range matches {
		if found, ok := s.findFrom(ci, rest[1:]); ok {
			return found, true
		}
	}
	return 0, false
}

// PathFor computes the recomputable path address of a node: one step per
// ancestor from the root down, each carrying the node's qualifying
// attributes. When the attributes do not single the node out among its
// same-type siblings, a positional qualifier is added, mirroring how the
// address will later be resolved.
func (s *Snapshot) PathFor(index int) model.Path {
	if s.Len() == 0 {
		return nil
	}

	var chain []int
	for i := index; ; i = s.nodes[i].Parent {
		chain = append(chain, i)
		if i == s.Root() {
			break
		}
	}
	// chain is leaf..root; build the path root-first.
	path := make(model.Path, 0, len(chain))
	for i := len(chain) - 1; i >= 0; i-- {
		path = append(path, s.stepFor(chain[i]))
	}
	return path
}

func (s *Snapshot) stepFor(index int) model.Step {
	p := s.nodes[index].Props
	step := model.Step{
		ControlType:  p.ControlType,
		ClassName:    p.ClassName,
		Name:         p.Name,
		AutomationID: p.AutomationID,
	}
	if index == s.Root() {
		return step
	}

	// Position among the siblings this step's attributes match. Only
	// recorded when ambiguous.
	pos, count := 0, 0
	for _, ci := range s.nodes[s.nodes[index].Parent].Children {
		if step.Matches(s.nodes[ci].Props) {
			count++
			if ci == index {
				pos = count
			}
		}
	}
	if count > 1 {
		step.Index = pos
	}
	return step
}
