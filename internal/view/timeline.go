// Package view turns the visible events, the selection and the layout
// snapshots into render-ready structures for the timeline, map and graph.
package view

import (
	"sort"
	"strings"

	"github.com/runnerr0/historian/internal/model"
)

// TimelineEntry is one row of the timeline.
type TimelineEntry struct {
	ID           string `json:"id"`
	Year         int    `json:"year"`
	Date         string `json:"event_date,omitempty"`
	People       string `json:"people"`
	Location     string `json:"location,omitempty"`
	Neighborhood string `json:"neighborhood,omitempty"`
	Description  string `json:"description"`
	Selected     bool   `json:"selected"`
}

// TimelineView is the ordered timeline plus the row to scroll to.
type TimelineView struct {
	Entries  []TimelineEntry `json:"entries"`
	ScrollTo string          `json:"scroll_to,omitempty"`
}

// SortForTimeline orders events by year, then by date string when both
// events have one. Otherwise input order is kept. The input is not modified.
func SortForTimeline(events []model.EnrichedEvent) []model.EnrichedEvent {
	out := make([]model.EnrichedEvent, len(events))
	copy(out, events)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		if a.EventDate != "" && b.EventDate != "" {
			return a.EventDate < b.EventDate
		}
		return false
	})
	return out
}

// Timeline builds the timeline for the visible events.
func Timeline(events []model.EnrichedEvent, selectedID string) TimelineView {
	sorted := SortForTimeline(events)
	v := TimelineView{Entries: make([]TimelineEntry, 0, len(sorted))}
	for _, e := range sorted {
		entry := TimelineEntry{
			ID:          e.ID,
			Year:        e.Year,
			Date:        e.EventDate,
			People:      PeopleNames(e.People, " & "),
			Description: e.Description,
			Selected:    selectedID != "" && e.ID == selectedID,
		}
		if e.Location != nil {
			entry.Location = e.Location.Name
			entry.Neighborhood = e.Location.Neighborhood
		}
		if entry.Selected {
			v.ScrollTo = e.ID
		}
		v.Entries = append(v.Entries, entry)
	}
	return v
}

// PeopleNames joins participant names with sep.
func PeopleNames(people []model.Person, sep string) string {
	names := make([]string, len(people))
	for i, p := range people {
		names[i] = p.Name
	}
	return strings.Join(names, sep)
}
