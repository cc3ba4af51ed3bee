// Package timefilter keeps the year window and the single selected event that
// every view of the dataset shares.
package timefilter

import (
	"errors"
	"fmt"

	"github.com/runnerr0/historian/internal/model"
)

// ErrInvalidWindow is returned when a window is empty or leaves the bounds.
var ErrInvalidWindow = errors.New("invalid window")

const (
	defaultFallbackStart = 1850
	defaultFallbackSpan  = 50
)

// Bounds is the observed year range of the dataset.
type Bounds struct {
	MinYear int `json:"min_year"`
	MaxYear int `json:"max_year"`
}

// Window is an inclusive year range with Start < End.
type Window struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Contains reports whether year falls inside the window.
func (w Window) Contains(year int) bool {
	return year >= w.Start && year <= w.End
}

// Option configures a State.
type Option func(*State)

// WithFallback sets the bounds used when no event carries a valid year.
func WithFallback(start, span int) Option {
	return func(s *State) {
		s.fallbackStart = start
		if span >= 1 {
			s.fallbackSpan = span
		}
	}
}

// State holds the source events, the year window, the derived visible subset
// and the selected event id. It is not safe for concurrent use.
type State struct {
	fallbackStart int
	fallbackSpan  int

	source   []model.EnrichedEvent
	bounds   Bounds
	window   Window
	visible  []model.EnrichedEvent
	selected string
}

// New returns an empty State with fallback bounds.
func New(opts ...Option) *State {
	s := &State{
		fallbackStart: defaultFallbackStart,
		fallbackSpan:  defaultFallbackSpan,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.SetSourceEvents(nil)
	return s
}

// SetSourceEvents replaces the dataset. The bounds are recomputed, the window
// resets to the full bounds and the first event becomes the selection.
func (s *State) SetSourceEvents(events []model.EnrichedEvent) {
	s.source = events
	s.bounds = s.deriveBounds(events)
	s.window = Window{Start: s.bounds.MinYear, End: s.bounds.MaxYear}
	if len(events) > 0 {
		s.selected = events[0].ID
	} else {
		s.selected = ""
	}
	s.recompute()
}

func (s *State) deriveBounds(events []model.EnrichedEvent) Bounds {
	lo, hi, found := 0, 0, false
	for _, e := range events {
		if !e.Dated() {
			continue
		}
		if !found {
			lo, hi, found = e.Year, e.Year, true
			continue
		}
		lo = min(lo, e.Year)
		hi = max(hi, e.Year)
	}
	if !found {
		return Bounds{MinYear: s.fallbackStart, MaxYear: s.fallbackStart + s.fallbackSpan}
	}
	return Bounds{MinYear: lo, MaxYear: max(hi, lo+1)}
}

// SetWindow replaces the window. The window must satisfy
// MinYear <= Start < End <= MaxYear.
func (s *State) SetWindow(w Window) error {
	if w.Start >= w.End || w.Start < s.bounds.MinYear || w.End > s.bounds.MaxYear {
		return fmt.Errorf("%w: [%d, %d] within [%d, %d]", ErrInvalidWindow,
			w.Start, w.End, s.bounds.MinYear, s.bounds.MaxYear)
	}
	s.window = w
	s.recompute()
	return nil
}

// MoveStart drags the lower edge of the window. The edge is clamped so the
// window keeps at least one year of width and stays within the bounds.
func (s *State) MoveStart(year int) Window {
	year = min(year, s.window.End-1)
	year = max(year, s.bounds.MinYear)
	s.window.Start = year
	s.recompute()
	return s.window
}

// MoveEnd drags the upper edge of the window.
func (s *State) MoveEnd(year int) Window {
	year = max(year, s.window.Start+1)
	year = min(year, s.bounds.MaxYear)
	s.window.End = year
	s.recompute()
	return s.window
}

// Select records id as the selection. The id is not checked against the dataset.
func (s *State) Select(id string) {
	s.selected = id
}

// ClearSelection drops the selection.
func (s *State) ClearSelection() {
	s.selected = ""
}

// SelectedID returns the selected event id or "" when nothing is selected.
func (s *State) SelectedID() string {
	return s.selected
}

// SelectedEvent resolves the selection against the visible subset. A
// selection outside the window is kept but not returned.
func (s *State) SelectedEvent() (model.EnrichedEvent, bool) {
	if s.selected == "" {
		return model.EnrichedEvent{}, false
	}
	for _, e := range s.visible {
		if e.ID == s.selected {
			return e, true
		}
	}
	return model.EnrichedEvent{}, false
}

func (s *State) recompute() {
	s.visible = Filter(s.source, s.window)
}

// Visible returns the events inside the window, in source order.
func (s *State) Visible() []model.EnrichedEvent {
	return s.visible
}

// Source returns the full dataset.
func (s *State) Source() []model.EnrichedEvent {
	return s.source
}

// Bounds returns the dataset's year range.
func (s *State) Bounds() Bounds {
	return s.bounds
}

// Window returns the current window.
func (s *State) Window() Window {
	return s.window
}

// Matches is the visibility predicate. Undated events are always visible.
func Matches(e model.EnrichedEvent, w Window) bool {
	if !e.Dated() {
		return true
	}
	return w.Contains(e.Year)
}

// Filter returns the events matching w, preserving order. The result is never nil.
func Filter(events []model.EnrichedEvent, w Window) []model.EnrichedEvent {
	out := make([]model.EnrichedEvent, 0, len(events))
	for _, e := range events {
		if Matches(e, w) {
			out = append(out, e)
		}
	}
	return out
}
