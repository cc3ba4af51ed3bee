package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a lookup by id matches nothing.
var ErrNotFound = errors.New("not found")

// Artifact is a source document (usually a book) that events were
// extracted from.
type Artifact struct {
	ID              string
	Title           string
	Author          string
	PublicationYear *int
	TimePeriodStart *int
	TimePeriodEnd   *int
	CreatedAt       time.Time
}

// YearQuery restricts ListEnriched to a year range. A nil bound is open.
// When either bound is set, undated events are excluded.
type YearQuery struct {
	Start *int
	End   *int
}

// Filtered reports whether any bound is set.
func (q YearQuery) Filtered() bool {
	return q.Start != nil || q.End != nil
}

// Stats holds aggregate statistics about the historian database.
type Stats struct {
	Artifacts         int64
	Events            int64
	DatedEvents       int64
	Persons           int64
	Locations         int64
	GeocodedLocations int64
	EarliestYear      int
	LatestYear        int
	TopLocations      []LocationCount
}

// LocationCount pairs a location with the number of events held there.
type LocationCount struct {
	LocationID string
	Name       string
	Count      int64
}

// PruneResult reports how many unreferenced entities were (or would be) removed.
type PruneResult struct {
	Persons   int64
	Locations int64
}
