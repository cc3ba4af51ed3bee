package config

import "math"

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Path:              "~/.config/historian",
			SQLiteFile:        "historian.db",
			SQLiteJournalMode: "wal",
		},
		Server: ServerConfig{
			Host:           "127.0.0.1",
			Port:           8000,
			AllowedOrigins: []string{"*"},
			MaxRequestSize: 1 << 20,
		},
		Source: SourceConfig{
			Kind:      "store",
			File:      "",
			URL:       "http://localhost:8000",
			TimeoutMS: 5000,
			Watch:     false,
		},
		Filter: FilterConfig{
			FallbackStartYear: 1850,
			FallbackSpan:      50,
		},
		Layout: LayoutConfig{
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
			TickIntervalMS: 16,
			WarmStart:      false,
			Seed:           1,
		},
		Map: MapConfig{
			DefaultLatitude:  40.7580,
			DefaultLongitude: -73.9855,
			DefaultZoom:      12,
			SelectedZoom:     14,
			DimmedOpacity:    0.6,
			IconURL:          "https://unpkg.com/leaflet@1.9.4/dist/images/marker-icon.png",
			ShadowURL:        "https://unpkg.com/leaflet@1.9.4/dist/images/marker-shadow.png",
			IconWidth:        25,
			IconHeight:       41,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			File:       "",
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
		},
	}
}
