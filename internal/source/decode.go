package source

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/runnerr0/historian/internal/model"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Decode reads a JSON array of enriched events and normalizes it:
// events without an id get a generated one, the year is derived from the
// date when absent, and a missing precision is inferred from the date.
// Records failing validation are logged and dropped; only a document that
// is not a JSON array of events is an error.
func Decode(r io.Reader, logger *zap.Logger) ([]model.EnrichedEvent, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var events []model.EnrichedEvent
	if err := json.NewDecoder(r).Decode(&events); err != nil {
		return nil, fmt.Errorf("decoding events: %w", err)
	}

	v := getValidator()
	out := make([]model.EnrichedEvent, 0, len(events))
	for i := range events {
		e := &events[i]
		if e.ID == "" {
			e.ID = "evt-" + uuid.NewString()
		}
		if e.Year == 0 {
			e.Year = model.YearFromDate(e.EventDate)
		}
		if e.DatePrecision == "" {
			e.DatePrecision = model.PrecisionFor(e.EventDate)
		}
		if e.People == nil {
			e.People = []model.Person{}
		}
		if err := v.Struct(e); err != nil {
			logger.Warn("skipping invalid event",
				zap.Int("index", i),
				zap.String("event_id", e.ID),
				zap.Error(err))
			continue
		}
		out = append(out, *e)
	}
	return out, nil
}
