// internal/server/handlers/events.go

package handlers

import (
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"stagemap/internal/domain/event"
	"stagemap/internal/domain/geo"
)

// listingDateLayout is the date format of event listings
const listingDateLayout = "2006-01-02 15:04"

// QueryParser turns raw proximity parameters into a validated query
type QueryParser interface {
	ParseQuery(lat, lon, radius string) (geo.ProximityQuery, error)
}

// EventHandler handles event-related HTTP requests
type EventHandler struct {
	manager  event.Manager
	queries  QueryParser
	location *time.Location
	logger   *zap.Logger
}

// NewEventHandler creates a new event handler. Dates are rendered in loc.
func NewEventHandler(manager event.Manager, queries QueryParser, loc *time.Location, logger *zap.Logger) *EventHandler {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventHandler{
		manager:  manager,
		queries:  queries,
		location: loc,
		logger:   logger,
	}
}

type subsectionResponse struct {
	ID                  string      `json:"id"`
	Name                string      `json:"name"`
	Description         string      `json:"description"`
	BoundaryCoordinates geo.Polygon `json:"boundary_coordinates"`
	Color               string      `json:"color"`
}

type eventResponse struct {
	ID                  string               `json:"id"`
	Title               string               `json:"title"`
	Description         string               `json:"description"`
	Date                string               `json:"date"`
	Latitude            float64              `json:"latitude"`
	Longitude           float64              `json:"longitude"`
	LocationName        string               `json:"location_name"`
	Category            string               `json:"category"`
	BoundaryCoordinates geo.Polygon          `json:"boundary_coordinates"`
	OrganizerID         string               `json:"organizer_id"`
	Distance            *float64             `json:"distance,omitempty"`
	Subsections         []subsectionResponse `json:"subsections"`
}

type subsectionRequest struct {
	ID                  string      `json:"id"`
	Name                string      `json:"name"`
	Description         string      `json:"description"`
	BoundaryCoordinates geo.Polygon `json:"boundary_coordinates"`
	Color               string      `json:"color"`
}

type eventRequest struct {
	Title               string              `json:"title"`
	Description         string              `json:"description"`
	Date                time.Time           `json:"date"`
	Latitude            *float64            `json:"latitude"`
	Longitude           *float64            `json:"longitude"`
	LocationName        string              `json:"location_name"`
	CategoryID          string              `json:"category_id"`
	BoundaryCoordinates geo.Polygon         `json:"boundary_coordinates"`
	Subsections         []subsectionRequest `json:"subsections"`
}

func (req eventRequest) toInput() (event.Input, error) {
	if req.Latitude == nil || req.Longitude == nil {
		return event.Input{}, &event.ValidationError{Field: "location", Reason: "latitude and longitude are required"}
	}

	input := event.Input{
		Title:        req.Title,
		Description:  req.Description,
		Date:         req.Date,
		Location:     geo.Coordinate{Latitude: *req.Latitude, Longitude: *req.Longitude},
		LocationName: req.LocationName,
		CategoryID:   req.CategoryID,
		Boundary:     req.BoundaryCoordinates,
		Subsections:  make([]event.SubsectionInput, len(req.Subsections)),
	}
	for i, s := range req.Subsections {
		input.Subsections[i] = event.SubsectionInput{
			ID:          s.ID,
			Name:        s.Name,
			Description: s.Description,
			Boundary:    s.BoundaryCoordinates,
			Color:       s.Color,
		}
	}
	return input, nil
}

func (h *EventHandler) toResponse(e event.Event) eventResponse {
	resp := eventResponse{
		ID:                  e.ID,
		Title:               e.Title,
		Description:         e.Description,
		Date:                e.Date.In(h.location).Format(listingDateLayout),
		Latitude:            e.Location.Latitude,
		Longitude:           e.Location.Longitude,
		LocationName:        e.LocationName,
		Category:            e.CategoryName(),
		BoundaryCoordinates: e.Boundary,
		OrganizerID:         e.OrganizerID,
		Subsections:         make([]subsectionResponse, len(e.Subsections)),
	}
	for i, s := range e.Subsections {
		resp.Subsections[i] = toSubsectionResponse(s)
	}
	return resp
}

func toSubsectionResponse(s event.Subsection) subsectionResponse {
	return subsectionResponse{
		ID:                  s.ID,
		Name:                s.Name,
		Description:         s.Description,
		BoundaryCoordinates: s.Boundary,
		Color:               s.Color,
	}
}

func (h *EventHandler) toResponses(events []event.Event) []eventResponse {
	out := make([]eventResponse, len(events))
	for i, e := range events {
		out[i] = h.toResponse(e)
	}
	return out
}

// roundDistance rounds kilometers to two decimals
func roundDistance(km float64) float64 {
	return math.Round(km*100) / 100
}

// ListEvents returns every event, optionally filtered by ?search=
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	filter := event.Filter{Search: r.URL.Query().Get("search")}

	events, err := h.manager.ListEvents(r.Context(), filter)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusOK, h.toResponses(events))
}

// GetNearbyEvents returns events within ?radius= km of ?lat=&lon=, closest first
func (h *EventHandler) GetNearbyEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	query, err := h.queries.ParseQuery(q.Get("lat"), q.Get("lon"), q.Get("radius"))
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	nearby, err := h.manager.FindNearby(r.Context(), query)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	out := make([]eventResponse, len(nearby))
	for i, n := range nearby {
		resp := h.toResponse(n.Event)
		distance := roundDistance(n.DistanceKm)
		resp.Distance = &distance
		out[i] = resp
	}

	respondWithJSON(w, http.StatusOK, out)
}

// GetEvent returns a single event
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	e, err := h.manager.GetEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusOK, h.toResponse(*e))
}

// CreateEvent publishes a new event owned by the caller
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	input, err := req.toInput()
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	e, err := h.manager.CreateEvent(r.Context(), UserFromContext(r.Context()), input)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, h.toResponse(*e))
}

// UpdateEvent edits an event and its subsections
func (h *EventHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	input, err := req.toInput()
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	e, err := h.manager.UpdateEvent(r.Context(), UserFromContext(r.Context()), chi.URLParam(r, "id"), input)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusOK, h.toResponse(*e))
}

// ListOwnEvents returns the caller's events
func (h *EventHandler) ListOwnEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.manager.ListOwnEvents(r.Context(), UserFromContext(r.Context()))
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusOK, h.toResponses(events))
}

// LocateSubsection returns the stage of an event containing ?lat=&lon=
func (h *EventHandler) LocateSubsection(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	query, err := h.queries.ParseQuery(q.Get("lat"), q.Get("lon"), "")
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	s, err := h.manager.LocateSubsection(r.Context(), chi.URLParam(r, "id"), query.Origin)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusOK, toSubsectionResponse(*s))
}

// ListCategories returns every category
func (h *EventHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.manager.ListCategories(r.Context())
	if err != nil {
		respondWithServiceError(w, h.logger, fmt.Errorf("error listing categories: %w", err))
		return
	}

	respondWithJSON(w, http.StatusOK, categories)
}
