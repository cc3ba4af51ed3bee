// Package model holds the historical dataset types shared by every layer:
// events, the people who took part in them and the places they happened.
package model

import (
	"encoding/json"
	"math"
	"strconv"
)

// Precision describes how much of an event date is known.
type Precision string

const (
	PrecisionExact   Precision = "exact"
	PrecisionMonth   Precision = "month"
	PrecisionYear    Precision = "year"
	PrecisionCirca   Precision = "circa"
	PrecisionUnknown Precision = "unknown"
)

// Valid reports whether p is one of the known precisions.
func (p Precision) Valid() bool {
	switch p {
	case PrecisionExact, PrecisionMonth, PrecisionYear, PrecisionCirca, PrecisionUnknown:
		return true
	}
	return false
}

// Person is someone mentioned in an artifact.
type Person struct {
	ID          string   `json:"id" validate:"required"`
	Name        string   `json:"name"`
	Aliases     []string `json:"aliases,omitempty"`
	ArtifactID  string   `json:"book_id,omitempty"`
	BirthYear   *int     `json:"birth_year,omitempty"`
	DeathYear   *int     `json:"death_year,omitempty"`
	CanonicalID *string  `json:"canonical_id,omitempty"`
}

// Location is a place mentioned in an artifact.
type Location struct {
	ID                string   `json:"id" validate:"required"`
	Name              string   `json:"name"`
	ArtifactID        string   `json:"book_id,omitempty"`
	NormalizedAddress string   `json:"normalized_address,omitempty"`
	Neighborhood      string   `json:"neighborhood,omitempty"`
	Borough           string   `json:"borough,omitempty"`
	Latitude          *float64 `json:"latitude,omitempty"`
	Longitude         *float64 `json:"longitude,omitempty"`
	Geometry          string   `json:"geometry,omitempty"`
}

// HasCoordinates reports whether the location can be placed on a map.
// A zero coordinate counts as missing.
func (l *Location) HasCoordinates() bool {
	if l == nil || l.Latitude == nil || l.Longitude == nil {
		return false
	}
	return *l.Latitude != 0 && *l.Longitude != 0
}

// Event is a single historical occurrence.
type Event struct {
	ID            string    `json:"id" validate:"required"`
	Description   string    `json:"description"`
	ArtifactID    string    `json:"book_id"`
	EventDate     string    `json:"event_date,omitempty"`
	DatePrecision Precision `json:"date_precision" validate:"omitempty,oneof=exact month year circa unknown"`
	// Year is the filtering key. Zero or negative means undated.
	Year int `json:"year"`
}

// Dated reports whether the event has a usable year.
func (e Event) Dated() bool {
	return e.Year > 0
}

// EnrichedEvent is an event joined with its location and participants.
type EnrichedEvent struct {
	Event
	Location *Location `json:"location"`
	People   []Person  `json:"people" validate:"dive"`
}

// UnmarshalJSON decodes the wire shape. A year that is not a positive
// whole number, including strings and null, decodes as 0 (undated).
func (e *EnrichedEvent) UnmarshalJSON(data []byte) error {
	type wire EnrichedEvent
	aux := struct {
		*wire
		Year json.RawMessage `json:"year"`
	}{wire: (*wire)(e)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	e.Year = yearFromJSON(aux.Year)
	return nil
}

func yearFromJSON(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0
	}
	f, ok := v.(float64)
	if !ok || f <= 0 || f > math.MaxInt32 || f != math.Trunc(f) {
		return 0
	}
	return int(f)
}

// HasPerson reports whether id is among the event's participants.
func (e EnrichedEvent) HasPerson(id string) bool {
	for _, p := range e.People {
		if p.ID == id {
			return true
		}
	}
	return false
}

// YearFromDate extracts the year from the first four characters of an ISO
// date string. It returns 0 for anything that does not start with digits.
func YearFromDate(date string) int {
	if len(date) < 4 {
		return 0
	}
	y, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return y
}

// PrecisionFor is the precision implied by a stored date string: a bare
// year, a year and month, or a full date.
func PrecisionFor(date string) Precision {
	switch {
	case date == "":
		return PrecisionUnknown
	case len(date) == 4:
		return PrecisionYear
	case len(date) == 7:
		return PrecisionMonth
	}
	return PrecisionExact
}

// IDs returns the event ids in order.
func IDs(events []EnrichedEvent) []string {
	ids := make([]string, len(events))
	for i, e := range events {
		ids[i] = e.ID
	}
	return ids
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// Int returns a pointer to v.
func Int(v int) *int {
	return &v
}
