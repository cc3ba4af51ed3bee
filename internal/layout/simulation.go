// Package layout positions graph nodes with an auto-cooling force simulation
// and supports pinning nodes while they are dragged.
package layout

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"

	"github.com/runnerr0/historian/internal/graph"
)

// ErrUnknownNode is returned by pin operations for ids not in the graph.
var ErrUnknownNode = errors.New("unknown node")

// Config holds the force constants and cooling schedule.
type Config struct {
	Width          float64
	Height         float64
	LinkDistance   float64
	ChargeStrength float64
	CenterStrength float64
	CollidePadding float64
	AlphaMin       float64
	AlphaDecay     float64
	VelocityDecay  float64
	// ReheatTarget is the alpha target while a node is pinned.
	ReheatTarget float64
}

// DefaultConfig returns the standard constants for an 800x600 viewport.
func DefaultConfig() Config {
	return Config{
		Width:          800,
		Height:         600,
		LinkDistance:   80,
		ChargeStrength: -200,
		CenterStrength: 1,
		CollidePadding: 10,
		AlphaMin:       0.001,
		AlphaDecay:     1 - math.Pow(0.001, 1.0/300),
		VelocityDecay:  0.4,
		ReheatTarget:   0.3,
	}
}

// Point is a 2D position.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type body struct {
	id     string
	radius float64
	x, y   float64
	vx, vy float64
	pinned bool
	fx, fy float64
}

type spring struct {
	source, target int
	strength       float64
	bias           float64
}

// Option configures a Simulation.
type Option func(*Simulation)

// WithSeed makes the tie-breaking jitter reproducible.
func WithSeed(seed int64) Option {
	return func(s *Simulation) {
		s.rng = rand.New(rand.NewSource(seed))
	}
}

// WithWarmStart places nodes whose ids appear in positions at those
// positions instead of on the initial spiral.
func WithWarmStart(positions map[string]Point) Option {
	return func(s *Simulation) {
		s.warm = positions
	}
}

// Simulation owns the position and velocity of every node of one graph. The
// node and link sets are fixed for its lifetime. All methods are safe for
// concurrent use; state changes are serialized behind one mutex.
type Simulation struct {
	mu sync.Mutex

	cfg     Config
	rng     *rand.Rand
	warm    map[string]Point
	bodies  []body
	index   map[string]int
	springs []spring
	links   []graph.Link

	alpha       float64
	alphaTarget float64
	running     bool
	tick        int

	reheat chan struct{}
}

// NewSimulation prepares a simulation for g. It is hot (alpha 1) unless the
// graph is empty, in which case it never steps.
func NewSimulation(g graph.Graph, cfg Config, opts ...Option) *Simulation {
	s := &Simulation{
		cfg:    cfg,
		index:  make(map[string]int, len(g.Nodes)),
		alpha:  1,
		reheat: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(1))
	}

	s.bodies = make([]body, len(g.Nodes))
	for i, n := range g.Nodes {
		s.index[n.ID] = i
		s.bodies[i] = body{id: n.ID, radius: n.Radius}
	}
	s.place()

	degree := make([]int, len(s.bodies))
	for _, l := range g.Links {
		si, sok := s.index[l.Source]
		ti, tok := s.index[l.Target]
		if !sok || !tok {
			continue
		}
		degree[si]++
		degree[ti]++
		s.springs = append(s.springs, spring{source: si, target: ti})
		s.links = append(s.links, l)
	}
	for i := range s.springs {
		sp := &s.springs[i]
		ds, dt := float64(degree[sp.source]), float64(degree[sp.target])
		sp.strength = 1 / math.Min(ds, dt)
		sp.bias = ds / (ds + dt)
	}

	s.running = len(s.bodies) > 0
	return s
}

// place lays nodes out on a phyllotaxis spiral around the viewport centre.
func (s *Simulation) place() {
	initialAngle := math.Pi * (3 - math.Sqrt(5))
	cx, cy := s.cfg.Width/2, s.cfg.Height/2
	for i := range s.bodies {
		b := &s.bodies[i]
		if p, ok := s.warm[b.id]; ok {
			b.x, b.y = p.X, p.Y
			continue
		}
		r := 10 * math.Sqrt(0.5+float64(i))
		a := float64(i) * initialAngle
		b.x = cx + r*math.Cos(a)
		b.y = cy + r*math.Sin(a)
	}
}

// Len is the number of nodes.
func (s *Simulation) Len() int {
	return len(s.bodies)
}

// Step advances the simulation by one tick. It reports false without
// changing anything once the simulation has cooled below AlphaMin.
func (s *Simulation) Step() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return false
	}

	s.alpha += (s.alphaTarget - s.alpha) * s.cfg.AlphaDecay

	s.applyLinks()
	s.applyCharge()
	s.applyCenter()
	s.applyCollide()

	keep := 1 - s.cfg.VelocityDecay
	for i := range s.bodies {
		b := &s.bodies[i]
		if b.pinned {
			b.x, b.y = b.fx, b.fy
			b.vx, b.vy = 0, 0
			continue
		}
		b.vx *= keep
		b.vy *= keep
		b.x += b.vx
		b.y += b.vy
	}
	s.tick++

	if s.alpha < s.cfg.AlphaMin {
		s.running = false
	}
	return true
}

// Settle steps until the simulation cools or maxSteps is reached and returns
// the number of steps taken.
func (s *Simulation) Settle(maxSteps int) int {
	n := 0
	for n < maxSteps && s.Step() {
		n++
	}
	return n
}

// Running reports whether further steps will move nodes.
func (s *Simulation) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Alpha returns the current cooling scalar.
func (s *Simulation) Alpha() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alpha
}

// Reheated fires after Pin restarts a cooled simulation.
func (s *Simulation) Reheated() <-chan struct{} {
	return s.reheat
}

// Pin fixes a node at (x, y) and reheats the simulation.
func (s *Simulation) Pin(id string, x, y float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.body(id)
	if err != nil {
		return err
	}
	b.pinned = true
	b.fx, b.fy = x, y
	b.x, b.y = x, y
	s.alphaTarget = s.cfg.ReheatTarget
	if !s.running {
		s.running = true
		select {
		case s.reheat <- struct{}{}:
		default:
		}
	}
	return nil
}

// Move updates the fixed position of a pinned node.
func (s *Simulation) Move(id string, x, y float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.body(id)
	if err != nil {
		return err
	}
	if !b.pinned {
		return fmt.Errorf("move %s: node is not pinned", id)
	}
	b.fx, b.fy = x, y
	b.x, b.y = x, y
	return nil
}

// Unpin releases a node back to the forces and lets the simulation cool.
func (s *Simulation) Unpin(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.body(id)
	if err != nil {
		return err
	}
	b.pinned = false
	s.alphaTarget = 0
	return nil
}

func (s *Simulation) body(id string) (*body, error) {
	i, ok := s.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	return &s.bodies[i], nil
}

func (s *Simulation) jiggle() float64 {
	return (s.rng.Float64() - 0.5) * 1e-6
}
