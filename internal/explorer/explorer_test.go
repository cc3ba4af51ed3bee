package explorer

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/runnerr0/historian/internal/graph"
	"github.com/runnerr0/historian/internal/layout"
	"github.com/runnerr0/historian/internal/model"
	"github.com/runnerr0/historian/internal/timefilter"
)

// scenarioEvents: A at L1 in 1921, B at L1 in 1927, A and B together in 1926
// with no location.
func scenarioEvents() []model.EnrichedEvent {
	a := model.Person{ID: "A", Name: "Alice"}
	b := model.Person{ID: "B", Name: "Bob"}
	l1 := &model.Location{ID: "L1", Name: "Five Points",
		Latitude: model.Float(40.7146), Longitude: model.Float(-74.0011)}
	return []model.EnrichedEvent{
		{Event: model.Event{ID: "e1", Description: "first", Year: 1921, EventDate: "1921-03-01"}, Location: l1, People: []model.Person{a}},
		{Event: model.Event{ID: "e2", Description: "second", Year: 1927, EventDate: "1927-06-01"}, Location: l1, People: []model.Person{b}},
		{Event: model.Event{ID: "e3", Description: "third", Year: 1926, EventDate: "1926-01-15"}, People: []model.Person{a, b}},
	}
}

func newTestExplorer(t *testing.T, mutate ...func(*Options)) *Explorer {
	t.Helper()
	opts := DefaultOptions()
	opts.TickInterval = time.Millisecond
	for _, m := range mutate {
		m(&opts)
	}
	e := New(opts, zaptest.NewLogger(t))
	t.Cleanup(e.Close)
	return e
}

func hasLink(g graph.Graph, a, b string, kind graph.LinkKind) bool {
	for _, l := range g.Links {
		if l.Connects(a, b) && l.Kind == kind {
			return true
		}
	}
	return false
}

func nodeIDs(g graph.Graph) []string {
	ids := make([]string, len(g.Nodes))
	for i, n := range g.Nodes {
		ids[i] = n.ID
	}
	return ids
}

func TestExplorer_EmptyDataset(t *testing.T) {
	e := newTestExplorer(t)

	s := e.Summary()
	assert.Equal(t, timefilter.Bounds{MinYear: 1850, MaxYear: 1900}, s.Bounds)
	assert.Equal(t, 0, s.Visible)
	assert.Empty(t, e.Graph().Nodes)
	assert.Empty(t, e.Timeline().Entries)

	_, ok := e.Detail()
	assert.False(t, ok)

	// An empty graph never schedules a layout loop.
	e.Start()
	assert.Equal(t, 0, e.Settle(10))
}

func TestExplorer_CoOccurrenceScenario(t *testing.T) {
	e := newTestExplorer(t)
	e.Load(scenarioEvents())

	s := e.Summary()
	assert.Equal(t, timefilter.Window{Start: 1921, End: 1927}, s.Window)
	assert.Equal(t, []string{"e1", "e2", "e3"}, model.IDs(e.Visible()))

	g := e.Graph()
	assert.Equal(t, []string{"L1", "A", "B"}, nodeIDs(g))
	require.Len(t, g.Links, 3)
	assert.True(t, hasLink(g, "A", "L1", graph.LocatedAt))
	assert.True(t, hasLink(g, "B", "L1", graph.LocatedAt))
	assert.True(t, hasLink(g, "A", "B", graph.Participated))
}

func TestExplorer_NarrowingWindow(t *testing.T) {
	e := newTestExplorer(t)
	e.Load(scenarioEvents())

	w := e.MoveStart(1922)
	assert.Equal(t, timefilter.Window{Start: 1922, End: 1927}, w)
	assert.Equal(t, []string{"e2", "e3"}, model.IDs(e.Visible()))

	g := e.Graph()
	assert.Contains(t, nodeIDs(g), "L1", "still referenced by the 1927 event")
	assert.False(t, hasLink(g, "A", "L1", graph.LocatedAt))
	assert.True(t, hasLink(g, "A", "B", graph.Participated))
	assert.True(t, hasLink(g, "B", "L1", graph.LocatedAt))
}

func TestExplorer_RebuildsOnlyOnStructuralChange(t *testing.T) {
	e := newTestExplorer(t)
	e.Load(scenarioEvents())
	base := e.Stats().Rebuilds

	// Same visible set.
	require.NoError(t, e.SetWindow(timefilter.Window{Start: 1921, End: 1927}))
	e.MoveEnd(1930)
	assert.Equal(t, base, e.Stats().Rebuilds)

	e.MoveStart(1922)
	assert.Equal(t, base+1, e.Stats().Rebuilds)

	e.MoveStart(1923)
	assert.Equal(t, base+1, e.Stats().Rebuilds)

	e.MoveStart(1921)
	assert.Equal(t, base+2, e.Stats().Rebuilds)
}

func TestExplorer_SetWindowInvalid(t *testing.T) {
	e := newTestExplorer(t)
	e.Load(scenarioEvents())

	err := e.SetWindow(timefilter.Window{Start: 1925, End: 1925})
	assert.ErrorIs(t, err, timefilter.ErrInvalidWindow)
	err = e.SetWindow(timefilter.Window{Start: 1900, End: 1925})
	assert.ErrorIs(t, err, timefilter.ErrInvalidWindow)
	assert.Equal(t, timefilter.Window{Start: 1921, End: 1927}, e.Summary().Window)
}

func TestExplorer_HiddenSelectionReappears(t *testing.T) {
	e := newTestExplorer(t)
	e.Load(scenarioEvents())
	require.Equal(t, "e1", e.SelectedID(), "first event is selected on load")

	d, ok := e.Detail()
	require.True(t, ok)
	assert.Equal(t, "Five Points", d.Location)

	e.MoveStart(1922)
	_, ok = e.Detail()
	assert.False(t, ok)
	assert.Equal(t, "e1", e.SelectedID())
	assert.Empty(t, e.Timeline().ScrollTo)
	for _, m := range e.Map().Markers {
		assert.Equal(t, 1.0, m.Opacity, "hidden selection does not dim markers")
	}

	e.MoveStart(1921)
	d, ok = e.Detail()
	require.True(t, ok)
	assert.Equal(t, "e1", d.ID)
}

func TestExplorer_ClickNode(t *testing.T) {
	e := newTestExplorer(t)
	e.Load(scenarioEvents())

	id, ok := e.ClickNode("B")
	require.True(t, ok)
	assert.Equal(t, "e2", id)
	assert.Equal(t, "e2", e.SelectedID())

	e.MoveStart(1922)
	id, ok = e.ClickNode("A")
	require.True(t, ok)
	assert.Equal(t, "e3", id, "the 1921 event is no longer visible")

	_, ok = e.ClickNode("nobody")
	assert.False(t, ok)
	assert.Equal(t, "e3", e.SelectedID())
}

func TestExplorer_SelectionDoesNotRebuild(t *testing.T) {
	e := newTestExplorer(t)
	e.Load(scenarioEvents())
	base := e.Stats().Rebuilds

	e.Select("e3")
	e.ClearSelection()
	e.Select("e2")
	assert.Equal(t, base, e.Stats().Rebuilds)
	assert.Equal(t, "e2", e.Timeline().ScrollTo)
}

func TestExplorer_TimelineAndMap(t *testing.T) {
	e := newTestExplorer(t)
	e.Load(scenarioEvents())

	tl := e.Timeline()
	require.Len(t, tl.Entries, 3)
	assert.Equal(t, "e1", tl.Entries[0].ID)
	assert.Equal(t, "e3", tl.Entries[1].ID)
	assert.Equal(t, "e2", tl.Entries[2].ID)
	assert.Equal(t, "Alice & Bob", tl.Entries[1].People)

	m := e.Map()
	require.Len(t, m.Markers, 2, "e3 has no location")
	assert.Equal(t, 14, m.Camera.Zoom)
	assert.Equal(t, 1.0, m.Markers[0].Opacity)
	assert.Equal(t, 0.6, m.Markers[1].Opacity)

	e.ClearSelection()
	assert.Equal(t, 12, e.Map().Camera.Zoom)
}

func TestExplorer_Drag(t *testing.T) {
	e := newTestExplorer(t)
	e.Load(scenarioEvents())
	e.Settle(1000)
	require.False(t, e.Summary().Running)

	require.NoError(t, e.DragStart("A", 100, 120))
	assert.True(t, e.Summary().Running, "pin reheats a cooled layout")
	require.NoError(t, e.DragMove("A", 110, 130))
	e.Settle(3)

	pos := e.Snapshot().Positions()["A"]
	assert.Equal(t, layout.Point{X: 110, Y: 130}, pos)

	require.NoError(t, e.DragEnd("A"))
	assert.ErrorIs(t, e.DragStart("nobody", 0, 0), layout.ErrUnknownNode)
	assert.Error(t, e.DragMove("B", 0, 0), "B is not pinned")
}

func TestExplorer_RunnerTicksAndStops(t *testing.T) {
	e := newTestExplorer(t)
	e.Load(scenarioEvents())

	var ticks atomic.Int32
	unsubscribe := e.Subscribe(func(layout.Snapshot) { ticks.Add(1) })
	defer unsubscribe()

	e.Start()
	require.Eventually(t, func() bool { return ticks.Load() > 3 }, 2*time.Second, 5*time.Millisecond)
	assert.Positive(t, e.Snapshot().Tick)

	// A rebuild restarts the loop on the new graph.
	e.MoveStart(1922)
	before := ticks.Load()
	require.Eventually(t, func() bool { return ticks.Load() > before }, 2*time.Second, 5*time.Millisecond)

	e.Close()
	stopped := ticks.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, stopped, ticks.Load(), "no ticks after Close")
	assert.Equal(t, uint64(stopped), e.Stats().Ticks)
}

func TestExplorer_WarmStartKeepsPositions(t *testing.T) {
	e := newTestExplorer(t, func(o *Options) { o.WarmStart = true })
	e.Load(scenarioEvents())
	e.Settle(50)
	before := e.Snapshot().Positions()

	e.MoveStart(1922)
	after := e.Snapshot().Positions()
	for _, id := range []string{"A", "B", "L1"} {
		assert.Equal(t, before[id], after[id], id)
	}
}

func TestExplorer_ResetStartDiscardsPositions(t *testing.T) {
	e := newTestExplorer(t)
	e.Load(scenarioEvents())
	e.Settle(50)
	before := e.Snapshot().Positions()

	e.MoveStart(1922)
	assert.Equal(t, 0, e.Snapshot().Tick)
	assert.NotEqual(t, before["L1"], e.Snapshot().Positions()["L1"])
}

func TestExplorer_GraphSVGAndDOT(t *testing.T) {
	e := newTestExplorer(t)
	e.Load(scenarioEvents())

	svg := e.GraphSVG()
	assert.Contains(t, svg, "<svg")
	assert.Contains(t, svg, "Alice")
	assert.Contains(t, e.DOT(), `"A" -- "B"`)
}

func TestExplorer_GraphLayoutConsistentDuringRebuilds(t *testing.T) {
	e := newTestExplorer(t)
	e.Load(scenarioEvents())
	e.Start()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			w := timefilter.Window{Start: 1921, End: 1927}
			if i%2 == 0 {
				w = timefilter.Window{Start: 1921, End: 1922}
			}
			assert.NoError(t, e.SetWindow(w))
		}
	}()

	for i := 0; i < 200; i++ {
		g, snap := e.GraphLayout()
		snapIDs := make([]string, len(snap.Nodes))
		for j, n := range snap.Nodes {
			snapIDs[j] = n.ID
		}
		require.ElementsMatch(t, nodeIDs(g), snapIDs)
		require.Len(t, snap.Links, len(g.Links))
	}
	<-done

	g, snap := e.GraphLayout()
	assert.ElementsMatch(t, []string{"L1", "A", "B"}, nodeIDs(g))
	assert.Len(t, snap.Nodes, 3)
}
