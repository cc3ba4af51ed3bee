package layout

import "github.com/runnerr0/historian/internal/graph"

// NodePosition is one node's position in a snapshot.
type NodePosition struct {
	ID     string  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Pinned bool    `json:"pinned,omitempty"`
}

// LinkPosition is a link with both endpoints resolved to node positions.
type LinkPosition struct {
	Source string         `json:"source"`
	Target string         `json:"target"`
	Kind   graph.LinkKind `json:"type"`
	X1     float64        `json:"x1"`
	Y1     float64        `json:"y1"`
	X2     float64        `json:"x2"`
	Y2     float64        `json:"y2"`
}

// Snapshot is everything a renderer needs to draw the graph after a tick.
type Snapshot struct {
	Tick  int            `json:"tick"`
	Alpha float64        `json:"alpha"`
	Nodes []NodePosition `json:"nodes"`
	Links []LinkPosition `json:"links"`
}

// Positions indexes node positions by id.
func (s Snapshot) Positions() map[string]Point {
	out := make(map[string]Point, len(s.Nodes))
	for _, n := range s.Nodes {
		out[n.ID] = Point{X: n.X, Y: n.Y}
	}
	return out
}

// Snapshot copies the current positions.
func (s *Simulation) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Tick:  s.tick,
		Alpha: s.alpha,
		Nodes: make([]NodePosition, len(s.bodies)),
		Links: make([]LinkPosition, len(s.springs)),
	}
	for i, b := range s.bodies {
		snap.Nodes[i] = NodePosition{ID: b.id, X: b.x, Y: b.y, Pinned: b.pinned}
	}
	for i, sp := range s.springs {
		src, dst := s.bodies[sp.source], s.bodies[sp.target]
		snap.Links[i] = LinkPosition{
			Source: src.id,
			Target: dst.id,
			Kind:   s.links[i].Kind,
			X1:     src.x,
			Y1:     src.y,
			X2:     dst.x,
			Y2:     dst.y,
		}
	}
	return snap
}
