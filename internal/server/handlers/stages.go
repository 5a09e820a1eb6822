// internal/server/handlers/stages.go

package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"stagemap/internal/domain/event"
	"stagemap/internal/domain/messaging"
	scheduleService "stagemap/internal/service/schedule"
)

// maxImportSize bounds multipart schedule uploads
const maxImportSize = 10 << 20

// StageService is the schedule manager plus the wire-ready status view
type StageService interface {
	event.ScheduleManager

	// StatusUpdate returns the stage status formatted for clients
	StatusUpdate(ctx context.Context, subsectionID string) (*messaging.StageStatusUpdate, error)
}

// StageHandler handles stage schedule HTTP requests
type StageHandler struct {
	stages   StageService
	location *time.Location
	logger   *zap.Logger
}

// NewStageHandler creates a new stage handler. Clock times are rendered in loc.
func NewStageHandler(stages StageService, loc *time.Location, logger *zap.Logger) *StageHandler {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StageHandler{
		stages:   stages,
		location: loc,
		logger:   logger,
	}
}

type stageEventResponse struct {
	ID           string    `json:"id"`
	SubsectionID string    `json:"subsection_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	Start        string    `json:"start"`
	End          string    `json:"end"`
}

type scheduleEventSummary struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	LocationName string `json:"location_name"`
	Date         string `json:"date"`
}

type stageScheduleResponse struct {
	Subsection subsectionResponse   `json:"subsection"`
	Event      scheduleEventSummary `json:"event"`
	LiveEvent  *stageEventResponse  `json:"live_event"`
	Upcoming   []stageEventResponse `json:"upcoming"`
	Past       []stageEventResponse `json:"past"`
}

type stageEventRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
}

func (req stageEventRequest) toInput() event.StageEventInput {
	return event.StageEventInput{
		Title:       req.Title,
		Description: req.Description,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
	}
}

func (h *StageHandler) toStageEventResponse(se event.StageEvent) stageEventResponse {
	return stageEventResponse{
		ID:           se.ID,
		SubsectionID: se.SubsectionID,
		Title:        se.Title,
		Description:  se.Description,
		StartTime:    se.StartTime,
		EndTime:      se.EndTime,
		Start:        scheduleService.FormatClock(se.StartTime, h.location),
		End:          scheduleService.FormatClock(se.EndTime, h.location),
	}
}

func (h *StageHandler) toStageEventResponses(items []event.StageEvent) []stageEventResponse {
	out := make([]stageEventResponse, len(items))
	for i, se := range items {
		out[i] = h.toStageEventResponse(se)
	}
	return out
}

// GetStageStatus returns the now/next summary of a stage
func (h *StageHandler) GetStageStatus(w http.ResponseWriter, r *http.Request) {
	update, err := h.stages.StatusUpdate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusOK, update)
}

// GetStageSchedule returns the public programme of a stage
func (h *StageHandler) GetStageSchedule(w http.ResponseWriter, r *http.Request) {
	sched, err := h.stages.StageSchedule(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	resp := stageScheduleResponse{
		Subsection: toSubsectionResponse(sched.Subsection),
		Event: scheduleEventSummary{
			ID:           sched.Event.ID,
			Title:        sched.Event.Title,
			LocationName: sched.Event.LocationName,
			Date:         sched.Event.Date.In(h.location).Format(listingDateLayout),
		},
		Upcoming: h.toStageEventResponses(sched.Upcoming),
		Past:     h.toStageEventResponses(sched.Past),
	}
	if sched.Live != nil {
		live := h.toStageEventResponse(*sched.Live)
		resp.LiveEvent = &live
	}

	respondWithJSON(w, http.StatusOK, resp)
}

// AddStageEvent schedules a new item on a stage
func (h *StageHandler) AddStageEvent(w http.ResponseWriter, r *http.Request) {
	var req stageEventRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	se, err := h.stages.AddStageEvent(r.Context(), UserFromContext(r.Context()), chi.URLParam(r, "id"), req.toInput())
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, h.toStageEventResponse(*se))
}

// UpdateStageEvent edits a scheduled item
func (h *StageHandler) UpdateStageEvent(w http.ResponseWriter, r *http.Request) {
	var req stageEventRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	se, err := h.stages.UpdateStageEvent(r.Context(), UserFromContext(r.Context()), chi.URLParam(r, "id"), req.toInput())
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusOK, h.toStageEventResponse(*se))
}

// DeleteStageEvent removes a scheduled item
func (h *StageHandler) DeleteStageEvent(w http.ResponseWriter, r *http.Request) {
	if err := h.stages.DeleteStageEvent(r.Context(), UserFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ImportSchedule adds every row of an uploaded csvfile to a stage, or none
func (h *StageHandler) ImportSchedule(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportSize)
	if err := r.ParseMultipartForm(maxImportSize); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	file, _, err := r.FormFile("csvfile")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Missing csvfile upload")
		return
	}
	defer file.Close()

	inputs, err := scheduleService.ParseScheduleCSV(file)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	created, err := h.stages.ImportSchedule(r.Context(), UserFromContext(r.Context()), chi.URLParam(r, "id"), inputs)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, h.toStageEventResponses(created))
}

// ExportCalendar returns the stage programme as an iCalendar file
func (h *StageHandler) ExportCalendar(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	data, err := h.stages.ExportCalendar(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "stage-"+id+".ics"))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
