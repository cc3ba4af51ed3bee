package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/runnerr0/historian/internal/model"
)

// ErrUnavailable is returned while the circuit breaker refuses requests.
var ErrUnavailable = errors.New("event source unavailable")

const enrichedPath = "/events/enriched"

// HTTPSource fetches events from a remote historian API. Repeated failures
// open a circuit breaker so a dead backend is not hammered on every reload.
type HTTPSource struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewHTTPSource returns a source reading baseURL + "/events/enriched".
func NewHTTPSource(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPSource {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	logger = logger.Named("source")
	s := &HTTPSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "event-source",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return s
}

// Events implements Source.
func (s *HTTPSource) Events(ctx context.Context) ([]model.EnrichedEvent, error) {
	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.fetch(ctx)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return nil, err
	}
	return result.([]model.EnrichedEvent), nil
}

// State exposes the breaker state for status reporting.
func (s *HTTPSource) State() gobreaker.State {
	return s.breaker.State()
}

func (s *HTTPSource) fetch(ctx context.Context) ([]model.EnrichedEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+enrichedPath, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching events: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetching events: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return Decode(resp.Body, s.logger)
}
