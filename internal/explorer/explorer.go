// Package explorer ties the time filter, the relationship graph, the force
// layout and the view adapters into one interactive session.
//
// Changing the window rebuilds the graph and restarts the layout only when
// the visible event sequence actually changes. Selection changes never touch
// the layout.
package explorer

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/runnerr0/historian/internal/graph"
	"github.com/runnerr0/historian/internal/layout"
	"github.com/runnerr0/historian/internal/model"
	"github.com/runnerr0/historian/internal/timefilter"
	"github.com/runnerr0/historian/internal/view"
)

// Summary describes the session at a glance.
type Summary struct {
	Bounds        timefilter.Bounds `json:"bounds"`
	Window        timefilter.Window `json:"window"`
	SelectedID    string            `json:"selected_id,omitempty"`
	DetailVisible bool              `json:"detail_visible"`
	Total         int               `json:"total"`
	Visible       int               `json:"visible"`
	Graph         graph.Counts      `json:"graph"`
	Alpha         float64           `json:"alpha"`
	Running       bool              `json:"running"`
}

// Stats are monotonic counters for metrics.
type Stats struct {
	Rebuilds uint64
	Ticks    uint64
	Visible  int
	Nodes    int
	Links    int
}

// Explorer is safe for concurrent use.
type Explorer struct {
	opts   Options
	logger *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	state      *timefilter.State
	visibleIDs []string
	graph      graph.Graph
	sim        *layout.Simulation
	runner     *layout.Runner
	started    bool
	closed     bool

	maps   *view.MapRenderer
	graphs *view.GraphRenderer

	// snapMu guards the latest snapshot and the subscribers. The runner
	// goroutine only ever takes snapMu, so holding mu while stopping the
	// runner cannot deadlock.
	snapMu sync.Mutex
	last   layout.Snapshot
	subs   map[int]func(layout.Snapshot)
	nextID int

	rebuilds atomic.Uint64
	ticks    atomic.Uint64
}

// New returns an explorer over an empty dataset. The layout is not driven
// until Start is called; Settle advances it synchronously instead.
func New(opts Options, logger *zap.Logger) *Explorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	e := &Explorer{
		opts:   opts,
		logger: logger.Named("explorer"),
		ctx:    ctx,
		cancel: cancel,
		state:  timefilter.New(timefilter.WithFallback(opts.FallbackStartYear, opts.FallbackSpan)),
		maps:   view.NewMapRenderer(opts.Map),
		graphs: view.NewGraphRenderer(opts.Layout.Width, opts.Layout.Height),
		subs:   make(map[int]func(layout.Snapshot)),
	}
	e.rebuild()
	return e
}

// Load replaces the dataset. The window resets to the new bounds, the first
// event becomes the selection and the graph is always rebuilt.
func (e *Explorer) Load(events []model.EnrichedEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state.SetSourceEvents(events)
	e.rebuild()
	e.logger.Info("dataset loaded",
		zap.Int("events", len(events)),
		zap.Int("min_year", e.state.Bounds().MinYear),
		zap.Int("max_year", e.state.Bounds().MaxYear))
}

// Start drives the layout on a background goroutine until Close.
func (e *Explorer) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed || e.started {
		return
	}
	e.started = true
	e.runner.Start(e.ctx, e.onTick)
}

// Close stops the layout loop. The explorer still answers queries.
func (e *Explorer) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	e.closed = true
	e.runner.Stop()
	e.cancel()
}

// SetWindow applies a new year window.
func (e *Explorer) SetWindow(w timefilter.Window) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.state.SetWindow(w); err != nil {
		return err
	}
	e.rebuildIfChanged()
	return nil
}

// MoveStart drags the window's start edge and returns the clamped window.
func (e *Explorer) MoveStart(year int) timefilter.Window {
	e.mu.Lock()
	defer e.mu.Unlock()

	w := e.state.MoveStart(year)
	e.rebuildIfChanged()
	return w
}

// MoveEnd drags the window's end edge and returns the clamped window.
func (e *Explorer) MoveEnd(year int) timefilter.Window {
	e.mu.Lock()
	defer e.mu.Unlock()

	w := e.state.MoveEnd(year)
	e.rebuildIfChanged()
	return w
}

// Select sets the selected event id. The id need not be visible.
func (e *Explorer) Select(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.Select(id)
}

// ClearSelection removes the selection.
func (e *Explorer) ClearSelection() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.ClearSelection()
}

// SelectedID returns the selected id, visible or not.
func (e *Explorer) SelectedID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.SelectedID()
}

// Detail returns the detail panel for the selection. It reports false when
// nothing is selected or the selected event is outside the window.
func (e *Explorer) Detail() (view.Detail, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ev, ok := e.state.SelectedEvent()
	if !ok {
		return view.Detail{}, false
	}
	return view.NewDetail(ev), true
}

// ClickNode selects the first visible event involving the node. It returns
// the selected event id, or false when no visible event involves it.
func (e *Explorer) ClickNode(nodeID string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id, ok := graph.ResolveClick(e.state.Visible(), nodeID)
	if !ok {
		return "", false
	}
	e.state.Select(id)
	return id, true
}

// DragStart pins a node under the pointer and wakes the layout.
func (e *Explorer) DragStart(nodeID string, x, y float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sim.Pin(nodeID, x, y)
}

// DragMove moves a pinned node.
func (e *Explorer) DragMove(nodeID string, x, y float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sim.Move(nodeID, x, y)
}

// DragEnd releases a pinned node.
func (e *Explorer) DragEnd(nodeID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sim.Unpin(nodeID)
}

// Settle advances the layout synchronously by up to maxSteps and returns the
// number of steps taken.
func (e *Explorer) Settle(maxSteps int) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := e.sim.Settle(maxSteps)
	e.setLast(e.sim.Snapshot())
	return n
}

// Visible returns the events inside the window in source order.
func (e *Explorer) Visible() []model.EnrichedEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.state.Visible())
}

// Events returns the whole loaded dataset in source order.
func (e *Explorer) Events() []model.EnrichedEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.state.Source())
}

// Graph returns the current graph.
func (e *Explorer) Graph() graph.Graph {
	e.mu.Lock()
	defer e.mu.Unlock()
	return graph.Graph{
		Nodes: slices.Clone(e.graph.Nodes),
		Links: slices.Clone(e.graph.Links),
	}
}

// Timeline renders the timeline of visible events.
func (e *Explorer) Timeline() view.TimelineView {
	e.mu.Lock()
	defer e.mu.Unlock()
	return view.Timeline(e.state.Visible(), e.visibleSelection())
}

// Map renders markers and camera for visible events.
func (e *Explorer) Map() view.MapView {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.maps.Render(e.state.Visible(), e.visibleSelection())
}

// GraphLayout returns the current graph together with the latest snapshot
// of its layout. Both are read under one lock, so the snapshot always
// belongs to the returned graph.
func (e *Explorer) GraphLayout() (graph.Graph, layout.Snapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()
	g := graph.Graph{
		Nodes: slices.Clone(e.graph.Nodes),
		Links: slices.Clone(e.graph.Links),
	}
	return g, e.Snapshot()
}

// GraphSVG renders the graph at the latest layout positions.
func (e *Explorer) GraphSVG() string {
	g, snap := e.GraphLayout()
	return e.graphs.SVG(g, snap)
}

// DOT renders the current graph in Graphviz syntax.
func (e *Explorer) DOT() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return view.DOT(e.graph)
}

// Snapshot returns the latest layout positions.
func (e *Explorer) Snapshot() layout.Snapshot {
	e.snapMu.Lock()
	defer e.snapMu.Unlock()
	return e.last
}

// Subscribe registers fn to receive every layout tick. fn runs on the layout
// goroutine and must not call back into the Explorer. The returned func
// removes the subscription.
func (e *Explorer) Subscribe(fn func(layout.Snapshot)) func() {
	e.snapMu.Lock()
	defer e.snapMu.Unlock()

	id := e.nextID
	e.nextID++
	e.subs[id] = fn
	return func() {
		e.snapMu.Lock()
		defer e.snapMu.Unlock()
		delete(e.subs, id)
	}
}

// Summary reports bounds, window, selection and graph size.
func (e *Explorer) Summary() Summary {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, detail := e.state.SelectedEvent()
	return Summary{
		Bounds:        e.state.Bounds(),
		Window:        e.state.Window(),
		SelectedID:    e.state.SelectedID(),
		DetailVisible: detail,
		Total:         len(e.state.Source()),
		Visible:       len(e.state.Visible()),
		Graph:         e.graph.Counts(),
		Alpha:         e.sim.Alpha(),
		Running:       e.sim.Running(),
	}
}

// Stats returns counters for metrics collection.
func (e *Explorer) Stats() Stats {
	e.mu.Lock()
	visible, nodes, links := len(e.visibleIDs), len(e.graph.Nodes), len(e.graph.Links)
	e.mu.Unlock()

	return Stats{
		Rebuilds: e.rebuilds.Load(),
		Ticks:    e.ticks.Load(),
		Visible:  visible,
		Nodes:    nodes,
		Links:    links,
	}
}

// visibleSelection is the selected id if that event is visible.
func (e *Explorer) visibleSelection() string {
	ev, ok := e.state.SelectedEvent()
	if !ok {
		return ""
	}
	return ev.ID
}

func (e *Explorer) rebuildIfChanged() {
	ids := model.IDs(e.state.Visible())
	if slices.Equal(ids, e.visibleIDs) {
		return
	}
	e.rebuild()
}

// rebuild discards the layout and starts over from the visible events.
// Callers hold mu.
func (e *Explorer) rebuild() {
	var warm map[string]layout.Point
	if e.runner != nil {
		e.runner.Stop()
	}
	if e.opts.WarmStart && e.sim != nil {
		warm = e.sim.Snapshot().Positions()
	}

	visible := e.state.Visible()
	e.visibleIDs = model.IDs(visible)
	e.graph = graph.Build(visible)

	simOpts := []layout.Option{layout.WithSeed(e.opts.Seed)}
	if warm != nil {
		simOpts = append(simOpts, layout.WithWarmStart(warm))
	}
	e.sim = layout.NewSimulation(e.graph, e.opts.Layout, simOpts...)
	e.runner = layout.NewRunner(e.sim, e.opts.TickInterval, e.logger)
	e.setLast(e.sim.Snapshot())
	e.rebuilds.Add(1)

	c := e.graph.Counts()
	e.logger.Debug("graph rebuilt",
		zap.Int("visible", len(visible)),
		zap.Int("people", c.People),
		zap.Int("locations", c.Locations),
		zap.Int("links", len(e.graph.Links)))

	if e.started && !e.closed {
		e.runner.Start(e.ctx, e.onTick)
	}
}

func (e *Explorer) setLast(snap layout.Snapshot) {
	e.snapMu.Lock()
	e.last = snap
	e.snapMu.Unlock()
}

func (e *Explorer) onTick(snap layout.Snapshot) {
	e.ticks.Add(1)

	e.snapMu.Lock()
	e.last = snap
	subs := make([]func(layout.Snapshot), 0, len(e.subs))
	for _, fn := range e.subs {
		subs = append(subs, fn)
	}
	e.snapMu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}
