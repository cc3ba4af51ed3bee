package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/runnerr0/historian/internal/graph"
	"github.com/runnerr0/historian/internal/layout"
	"github.com/runnerr0/historian/internal/model"
	"github.com/runnerr0/historian/internal/storage"
	"github.com/runnerr0/historian/internal/timefilter"
)

type yearRequest struct {
	Year *int `json:"year"`
}

type selectRequest struct {
	ID string `json:"id"`
}

type dragRequest struct {
	Phase string  `json:"phase"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

type graphResponse struct {
	Nodes  []graph.Node    `json:"nodes"`
	Links  []graph.Link    `json:"links"`
	Layout layout.Snapshot `json:"layout"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleEnriched serves GET /events/enriched?start_year=&end_year=.
func (s *Server) handleEnriched(w http.ResponseWriter, r *http.Request) {
	var q storage.YearQuery
	var err error
	if q.Start, err = queryInt(r, "start_year"); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if q.End, err = queryInt(r, "end_year"); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if s.events == nil {
		s.respondJSON(w, http.StatusOK, filterYears(s.explorer.Events(), q))
		return
	}

	events, err := s.events.ListEnriched(r.Context(), q)
	if err != nil {
		s.logger.Error("failed to list events", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	s.respondJSON(w, http.StatusOK, events)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.explorer.Summary())
}

func (s *Server) handleVisible(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.explorer.Visible())
}

func (s *Server) handleSetWindow(w http.ResponseWriter, r *http.Request) {
	var win timefilter.Window
	if !s.decode(w, r, &win) {
		return
	}
	if err := s.explorer.SetWindow(win); err != nil {
		if errors.Is(err, timefilter.ErrInvalidWindow) {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, s.explorer.Summary())
}

func (s *Server) handleMoveStart(w http.ResponseWriter, r *http.Request) {
	var req yearRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Year == nil {
		s.respondError(w, http.StatusBadRequest, "year is required")
		return
	}
	s.respondJSON(w, http.StatusOK, s.explorer.MoveStart(*req.Year))
}

func (s *Server) handleMoveEnd(w http.ResponseWriter, r *http.Request) {
	var req yearRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Year == nil {
		s.respondError(w, http.StatusBadRequest, "year is required")
		return
	}
	s.respondJSON(w, http.StatusOK, s.explorer.MoveEnd(*req.Year))
}

func (s *Server) handleGetSelection(w http.ResponseWriter, r *http.Request) {
	d, ok := s.explorer.Detail()
	if !ok {
		s.respondError(w, http.StatusNotFound, "no visible selection")
		return
	}
	s.respondJSON(w, http.StatusOK, d)
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.ID == "" {
		s.respondError(w, http.StatusBadRequest, "id is required")
		return
	}
	s.explorer.Select(req.ID)
	s.respondJSON(w, http.StatusOK, s.explorer.Summary())
}

func (s *Server) handleClearSelection(w http.ResponseWriter, r *http.Request) {
	s.explorer.ClearSelection()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.explorer.Timeline())
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.explorer.Map())
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	g, snap := s.explorer.GraphLayout()
	s.respondJSON(w, http.StatusOK, graphResponse{
		Nodes:  g.Nodes,
		Links:  g.Links,
		Layout: snap,
	})
}

func (s *Server) handleGraphSVG(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "image/svg+xml")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(s.explorer.GraphSVG())); err != nil {
		s.logger.Error("failed to write svg", zap.Error(err))
	}
}

func (s *Server) handleClickNode(w http.ResponseWriter, r *http.Request) {
	nodeID := chi.URLParam(r, "nodeID")
	id, ok := s.explorer.ClickNode(nodeID)
	if !ok {
		s.respondError(w, http.StatusNotFound, fmt.Sprintf("no visible event involves %s", nodeID))
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"event_id": id})
}

func (s *Server) handleDragNode(w http.ResponseWriter, r *http.Request) {
	nodeID := chi.URLParam(r, "nodeID")
	var req dragRequest
	if !s.decode(w, r, &req) {
		return
	}

	var err error
	switch req.Phase {
	case "start":
		err = s.explorer.DragStart(nodeID, req.X, req.Y)
	case "move":
		err = s.explorer.DragMove(nodeID, req.X, req.Y)
	case "end":
		err = s.explorer.DragEnd(nodeID)
	default:
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("unknown drag phase %q", req.Phase))
		return
	}

	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, layout.ErrUnknownNode):
		s.respondError(w, http.StatusNotFound, err.Error())
	default:
		s.respondError(w, http.StatusConflict, err.Error())
	}
}

// decode reads a JSON body into v, answering 400 itself on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]any{
		"error":   true,
		"message": message,
		"code":    status,
	})
}

func queryInt(r *http.Request, name string) (*int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be an integer", name)
	}
	return &n, nil
}

// filterYears applies the same rules as the store query to an in-memory
// dataset: with any bound set, undated events are dropped.
func filterYears(events []model.EnrichedEvent, q storage.YearQuery) []model.EnrichedEvent {
	out := make([]model.EnrichedEvent, 0, len(events))
	for _, e := range events {
		if q.Filtered() && !e.Dated() {
			continue
		}
		if q.Start != nil && e.Year < *q.Start {
			continue
		}
		if q.End != nil && e.Year > *q.End {
			continue
		}
		out = append(out, e)
	}
	return out
}
