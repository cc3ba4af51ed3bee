package view

import "github.com/runnerr0/historian/internal/model"

// Detail is the selected-event panel.
type Detail struct {
	ID          string   `json:"id"`
	Year        int      `json:"year"`
	Date        string   `json:"event_date,omitempty"`
	Precision   string   `json:"date_precision"`
	Heading     string   `json:"heading"`
	Location    string   `json:"location,omitempty"`
	Description string   `json:"description"`
	People      []string `json:"people"`
}

// NewDetail builds the panel for e.
func NewDetail(e model.EnrichedEvent) Detail {
	d := Detail{
		ID:          e.ID,
		Year:        e.Year,
		Date:        e.EventDate,
		Precision:   string(e.DatePrecision),
		Heading:     PeopleNames(e.People, ", "),
		Description: e.Description,
		People:      make([]string, len(e.People)),
	}
	for i, p := range e.People {
		d.People[i] = p.Name
	}
	if e.Location != nil {
		d.Location = e.Location.Name
	}
	return d
}
