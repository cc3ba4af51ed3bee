package view

import (
	"github.com/runnerr0/historian/internal/model"
)

// MarkerIcon describes the pin image. It is supplied by whoever builds the
// renderer rather than set globally.
type MarkerIcon struct {
	URL       string `json:"icon_url"`
	ShadowURL string `json:"shadow_url,omitempty"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

// AnchorX and AnchorY place the icon tip on the coordinate.
func (i MarkerIcon) AnchorX() int { return i.Width / 2 }
func (i MarkerIcon) AnchorY() int { return i.Height }

// MapOptions configures a MapRenderer.
type MapOptions struct {
	Icon          MarkerIcon
	DefaultCenter LatLng
	DefaultZoom   int
	SelectedZoom  int
	DimmedOpacity float64
}

// LatLng is a WGS84 coordinate.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Midtown is the camera position used when nothing is selected.
var Midtown = LatLng{Lat: 40.7580, Lng: -73.9855}

// Marker is one event pin.
type Marker struct {
	EventID  string  `json:"event_id"`
	Position LatLng  `json:"position"`
	Title    string  `json:"title"`
	Year     int     `json:"year"`
	People   string  `json:"people"`
	Opacity  float64 `json:"opacity"`
	Selected bool    `json:"selected"`
}

// Camera is where the map should be looking.
type Camera struct {
	Center LatLng `json:"center"`
	Zoom   int    `json:"zoom"`
}

// MapView is the full map payload.
type MapView struct {
	Icon    MarkerIcon `json:"icon"`
	Camera  Camera     `json:"camera"`
	Markers []Marker   `json:"markers"`
}

// MapRenderer builds map payloads.
type MapRenderer struct {
	opts MapOptions
}

// NewMapRenderer returns a renderer, filling zero options with defaults.
func NewMapRenderer(opts MapOptions) *MapRenderer {
	if opts.DefaultCenter == (LatLng{}) {
		opts.DefaultCenter = Midtown
	}
	if opts.DefaultZoom == 0 {
		opts.DefaultZoom = 12
	}
	if opts.SelectedZoom == 0 {
		opts.SelectedZoom = 14
	}
	if opts.DimmedOpacity == 0 {
		opts.DimmedOpacity = 0.6
	}
	return &MapRenderer{opts: opts}
}

// Markers places every event that has coordinates. When a selection exists
// the other markers are dimmed.
func (r *MapRenderer) Markers(events []model.EnrichedEvent, selectedID string) []Marker {
	out := make([]Marker, 0, len(events))
	for _, e := range events {
		if !e.Location.HasCoordinates() {
			continue
		}
		m := Marker{
			EventID:  e.ID,
			Position: LatLng{Lat: *e.Location.Latitude, Lng: *e.Location.Longitude},
			Title:    e.Location.Name,
			Year:     e.Year,
			People:   PeopleNames(e.People, ", "),
			Opacity:  1,
			Selected: selectedID != "" && e.ID == selectedID,
		}
		if selectedID != "" && !m.Selected {
			m.Opacity = r.opts.DimmedOpacity
		}
		out = append(out, m)
	}
	return out
}

// Camera centres on the selected event when it is among events and has
// coordinates, otherwise on the default centre.
func (r *MapRenderer) Camera(events []model.EnrichedEvent, selectedID string) Camera {
	if selectedID != "" {
		for _, e := range events {
			if e.ID == selectedID && e.Location.HasCoordinates() {
				return Camera{
					Center: LatLng{Lat: *e.Location.Latitude, Lng: *e.Location.Longitude},
					Zoom:   r.opts.SelectedZoom,
				}
			}
		}
	}
	return Camera{Center: r.opts.DefaultCenter, Zoom: r.opts.DefaultZoom}
}

// Render builds the full map payload.
func (r *MapRenderer) Render(events []model.EnrichedEvent, selectedID string) MapView {
	return MapView{
		Icon:    r.opts.Icon,
		Camera:  r.Camera(events, selectedID),
		Markers: r.Markers(events, selectedID),
	}
}
