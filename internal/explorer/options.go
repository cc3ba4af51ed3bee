package explorer

import (
	"time"

	"github.com/runnerr0/historian/internal/config"
	"github.com/runnerr0/historian/internal/layout"
	"github.com/runnerr0/historian/internal/view"
)

// Options configures an Explorer.
type Options struct {
	Layout       layout.Config
	TickInterval time.Duration
	// WarmStart carries positions of surviving node ids across rebuilds.
	WarmStart bool
	Seed      int64

	Map view.MapOptions

	FallbackStartYear int
	FallbackSpan      int
}

// DefaultOptions mirrors config.DefaultConfig.
func DefaultOptions() Options {
	return OptionsFromConfig(config.DefaultConfig())
}

// OptionsFromConfig maps the layout, map and filter sections of cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	l := cfg.Layout
	m := cfg.Map
	return Options{
		Layout: layout.Config{
			Width:          l.Width,
			Height:         l.Height,
			LinkDistance:   l.LinkDistance,
			ChargeStrength: l.ChargeStrength,
			CenterStrength: l.CenterStrength,
			CollidePadding: l.CollidePadding,
			AlphaMin:       l.AlphaMin,
			AlphaDecay:     l.AlphaDecay,
			VelocityDecay:  l.VelocityDecay,
			ReheatTarget:   l.ReheatTarget,
		},
		TickInterval: l.TickInterval(),
		WarmStart:    l.WarmStart,
		Seed:         l.Seed,
		Map: view.MapOptions{
			Icon: view.MarkerIcon{
				URL:       m.IconURL,
				ShadowURL: m.ShadowURL,
				Width:     m.IconWidth,
				Height:    m.IconHeight,
			},
			DefaultCenter: view.LatLng{Lat: m.DefaultLatitude, Lng: m.DefaultLongitude},
			DefaultZoom:   m.DefaultZoom,
			SelectedZoom:  m.SelectedZoom,
			DimmedOpacity: m.DimmedOpacity,
		},
		FallbackStartYear: cfg.Filter.FallbackStartYear,
		FallbackSpan:      cfg.Filter.FallbackSpan,
	}
}
