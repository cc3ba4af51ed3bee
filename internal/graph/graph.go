// Package graph derives the person/location network shown for a set of events.
package graph

import (
	"github.com/runnerr0/historian/internal/model"
)

// NodeKind distinguishes people from places.
type NodeKind string

const (
	KindPerson   NodeKind = "PERSON"
	KindLocation NodeKind = "LOCATION"
)

// LinkKind is the relationship a link stands for.
type LinkKind string

const (
	// LocatedAt joins a person to the location of an event they took part in.
	LocatedAt LinkKind = "LOCATED_AT"
	// Participated joins two people who took part in the same event.
	Participated LinkKind = "PARTICIPATED"
)

// Render attributes per node kind.
const (
	personGroup    = 1
	locationGroup  = 2
	personRadius   = 8
	locationRadius = 6
)

// Node is a person or location in the graph. Identity is the id.
type Node struct {
	ID     string   `json:"id"`
	Kind   NodeKind `json:"type"`
	Label  string   `json:"label"`
	Group  int      `json:"group"`
	Radius float64  `json:"radius"`
}

// Link is an undirected relationship between two nodes.
type Link struct {
	Source string   `json:"source"`
	Target string   `json:"target"`
	Kind   LinkKind `json:"type"`
	Value  int      `json:"value"`
}

// Connects reports whether the link joins a and b in either direction.
func (l Link) Connects(a, b string) bool {
	return (l.Source == a && l.Target == b) || (l.Source == b && l.Target == a)
}

// Graph is a node list and link list, both in insertion order.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Links []Link `json:"links"`
}

// Counts summarizes a graph by kind.
type Counts struct {
	People       int `json:"people"`
	Locations    int `json:"locations"`
	LocatedAt    int `json:"located_at"`
	Participated int `json:"participated"`
}

// Counts returns per-kind totals.
func (g Graph) Counts() Counts {
	var c Counts
	for _, n := range g.Nodes {
		switch n.Kind {
		case KindPerson:
			c.People++
		case KindLocation:
			c.Locations++
		}
	}
	for _, l := range g.Links {
		switch l.Kind {
		case LocatedAt:
			c.LocatedAt++
		case Participated:
			c.Participated++
		}
	}
	return c
}

// Node looks up a node by id.
func (g Graph) Node(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

type builder struct {
	g    Graph
	seen map[string]struct{}
}

func (b *builder) addNode(n Node) {
	if _, ok := b.seen[n.ID]; ok {
		return
	}
	b.seen[n.ID] = struct{}{}
	b.g.Nodes = append(b.g.Nodes, n)
}

// addLink appends a link unless some link already joins the pair, in either
// direction. The scan is linear; graphs here stay in the hundreds of nodes.
func (b *builder) addLink(l Link) {
	for _, existing := range b.g.Links {
		if existing.Connects(l.Source, l.Target) {
			return
		}
	}
	b.g.Links = append(b.g.Links, l)
}

// Build derives the graph for events. The first occurrence of an id fixes its
// node attributes, and each unordered pair of ids gets at most one link.
func Build(events []model.EnrichedEvent) Graph {
	b := &builder{
		g:    Graph{Nodes: []Node{}, Links: []Link{}},
		seen: make(map[string]struct{}),
	}

	for _, e := range events {
		if e.Location != nil {
			b.addNode(Node{
				ID:     e.Location.ID,
				Kind:   KindLocation,
				Label:  e.Location.Name,
				Group:  locationGroup,
				Radius: locationRadius,
			})
		}

		for _, p := range e.People {
			b.addNode(Node{
				ID:     p.ID,
				Kind:   KindPerson,
				Label:  p.Name,
				Group:  personGroup,
				Radius: personRadius,
			})
		}

		if e.Location != nil {
			for _, p := range e.People {
				b.addLink(Link{Source: p.ID, Target: e.Location.ID, Kind: LocatedAt, Value: 1})
			}
		}

		for i, p := range e.People {
			for j, other := range e.People {
				if i == j || p.ID == other.ID {
					continue
				}
				b.addLink(Link{Source: p.ID, Target: other.ID, Kind: Participated, Value: 2})
			}
		}
	}

	return b.g
}

// ResolveClick maps a clicked node to the first event in events that the node
// takes part in, either as a participant or as the location.
func ResolveClick(events []model.EnrichedEvent, nodeID string) (string, bool) {
	for _, e := range events {
		if e.HasPerson(nodeID) || (e.Location != nil && e.Location.ID == nodeID) {
			return e.ID, true
		}
	}
	return "", false
}
