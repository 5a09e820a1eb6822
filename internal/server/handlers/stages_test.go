package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"stagemap/internal/domain/event"
	"stagemap/internal/domain/identity"
	"stagemap/internal/domain/messaging"
	"stagemap/internal/domain/schedule"
)

func newStageRouter(stages *MockStageService, loc *time.Location, actor *identity.User) http.Handler {
	h := NewStageHandler(stages, loc, nil)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if actor != nil {
				req = req.WithContext(WithUser(req.Context(), actor))
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Get("/stages/{id}/status", h.GetStageStatus)
	r.Get("/stages/{id}/schedule", h.GetStageSchedule)
	r.Post("/stages/{id}/schedule", h.AddStageEvent)
	r.Post("/stages/{id}/schedule/import", h.ImportSchedule)
	r.Get("/stages/{id}/schedule.ics", h.ExportCalendar)
	r.Put("/stage-events/{id}", h.UpdateStageEvent)
	r.Delete("/stage-events/{id}", h.DeleteStageEvent)
	return r
}

var stageOwner = &identity.User{ID: "org-1", IsActive: true, Profile: identity.Profile{Role: identity.RoleOrganizer}}

func TestStageHandler_GetStageStatus(t *testing.T) {
	stages := new(MockStageService)
	stages.On("StatusUpdate", mock.Anything, "stage-1").Return(&messaging.StageStatusUpdate{
		ID:            "stage-1",
		Name:          "Main",
		LiveEvent:     &messaging.StageSlot{Title: "Opening", Start: "10:00", End: "11:00"},
		UpcomingCount: 2,
	}, nil)
	stages.On("StatusUpdate", mock.Anything, "missing").Return(nil, event.ErrSubsectionNotFound)

	w := httptest.NewRecorder()
	newStageRouter(stages, time.UTC, nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stages/stage-1/status", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "stage-1", body["id"])
	assert.Equal(t, "Main", body["name"])
	assert.Nil(t, body["next_event"])
	assert.Equal(t, float64(2), body["upcoming_count"])
	live := body["live_event"].(map[string]interface{})
	assert.Equal(t, "10:00", live["start"])
	assert.Equal(t, "11:00", live["end"])

	w = httptest.NewRecorder()
	newStageRouter(stages, time.UTC, nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stages/missing/status", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStageHandler_GetStageSchedule(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	at := time.Date(2026, 7, 4, 12, 0, 0, 0, time.UTC)
	live := event.StageEvent{ID: "se-1", Title: "Live", StartTime: at.Add(-time.Hour), EndTime: at.Add(time.Hour)}
	stages := new(MockStageService)
	stages.On("StageSchedule", mock.Anything, "stage-1").Return(&event.StageSchedule{
		Subsection: event.Subsection{ID: "stage-1", Name: "Main", Color: "#ff7800"},
		Event:      event.Event{ID: "e1", Title: "Harbor Festival", Date: at},
		Live:       &live,
		Upcoming:   []event.StageEvent{{ID: "se-2", Title: "Later", StartTime: at.Add(2 * time.Hour), EndTime: at.Add(3 * time.Hour)}},
		At:         at,
	}, nil)

	w := httptest.NewRecorder()
	newStageRouter(stages, berlin, nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stages/stage-1/schedule", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body stageScheduleResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotNil(t, body.LiveEvent)
	assert.Equal(t, "13:00", body.LiveEvent.Start)
	assert.Equal(t, "15:00", body.LiveEvent.End)
	require.Len(t, body.Upcoming, 1)
	assert.Equal(t, "16:00", body.Upcoming[0].Start)
	assert.Empty(t, body.Past)
	assert.Equal(t, "Harbor Festival", body.Event.Title)
}

func TestStageHandler_AddStageEvent(t *testing.T) {
	start := time.Date(2026, 7, 4, 10, 0, 0, 0, time.UTC)
	input := event.StageEventInput{Title: "Set", StartTime: start, EndTime: start.Add(time.Hour)}

	t.Run("created", func(t *testing.T) {
		stages := new(MockStageService)
		stages.On("AddStageEvent", mock.Anything, stageOwner, "stage-1", input).Return(&event.StageEvent{
			ID: "se-1", SubsectionID: "stage-1", Title: "Set", StartTime: start, EndTime: start.Add(time.Hour),
		}, nil)

		body := `{"title":"Set","start_time":"2026-07-04T10:00:00Z","end_time":"2026-07-04T11:00:00Z"}`
		w := httptest.NewRecorder()
		newStageRouter(stages, time.UTC, stageOwner).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/stages/stage-1/schedule", strings.NewReader(body)))

		require.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), `"start":"10:00"`)
		stages.AssertExpectations(t)
	})

	t.Run("overlap is rejected with a reason", func(t *testing.T) {
		stages := new(MockStageService)
		stages.On("AddStageEvent", mock.Anything, stageOwner, "stage-1", input).Return(nil, schedule.NewOverlapError("se-0"))

		body := `{"title":"Set","start_time":"2026-07-04T10:00:00Z","end_time":"2026-07-04T11:00:00Z"}`
		w := httptest.NewRecorder()
		newStageRouter(stages, time.UTC, stageOwner).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/stages/stage-1/schedule", strings.NewReader(body)))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "overlaps")
	})

	t.Run("bad body", func(t *testing.T) {
		stages := new(MockStageService)

		w := httptest.NewRecorder()
		newStageRouter(stages, time.UTC, stageOwner).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/stages/stage-1/schedule", strings.NewReader(`{"start_time":"10am"}`)))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestStageHandler_UpdateAndDelete(t *testing.T) {
	stages := new(MockStageService)
	stages.On("UpdateStageEvent", mock.Anything, stageOwner, "se-1", mock.Anything).Return(nil, schedule.NewIntervalError())
	stages.On("DeleteStageEvent", mock.Anything, stageOwner, "se-1").Return(nil)
	stages.On("DeleteStageEvent", mock.Anything, stageOwner, "se-9").Return(event.ErrStageEventNotFound)

	body := `{"title":"Set","start_time":"2026-07-04T11:00:00Z","end_time":"2026-07-04T10:00:00Z"}`
	w := httptest.NewRecorder()
	newStageRouter(stages, time.UTC, stageOwner).ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/stage-events/se-1", strings.NewReader(body)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "End time must be after start time.")

	w = httptest.NewRecorder()
	newStageRouter(stages, time.UTC, stageOwner).ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/stage-events/se-1", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	newStageRouter(stages, time.UTC, stageOwner).ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/stage-events/se-9", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func multipartCSV(t *testing.T, field, content string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, "schedule.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	return &buf, mw.FormDataContentType()
}

func TestStageHandler_ImportSchedule(t *testing.T) {
	csv := "title,description,start_time,end_time\n" +
		"Opening,Doors,2026-07-04T10:00:00Z,2026-07-04T11:00:00Z\n" +
		"Headliner,,2026-07-04T11:00:00Z,2026-07-04T12:30:00Z\n"

	t.Run("imports every row", func(t *testing.T) {
		stages := new(MockStageService)
		stages.On("ImportSchedule", mock.Anything, stageOwner, "stage-1", mock.MatchedBy(func(in []event.StageEventInput) bool {
			return len(in) == 2 && in[0].Title == "Opening" && in[1].Title == "Headliner"
		})).Return([]event.StageEvent{{ID: "a"}, {ID: "b"}}, nil)

		body, contentType := multipartCSV(t, "csvfile", csv)
		req := httptest.NewRequest(http.MethodPost, "/stages/stage-1/schedule/import", body)
		req.Header.Set("Content-Type", contentType)

		w := httptest.NewRecorder()
		newStageRouter(stages, time.UTC, stageOwner).ServeHTTP(w, req)

		require.Equal(t, http.StatusCreated, w.Code)
		stages.AssertExpectations(t)
	})

	t.Run("wrong field name", func(t *testing.T) {
		stages := new(MockStageService)

		body, contentType := multipartCSV(t, "file", csv)
		req := httptest.NewRequest(http.MethodPost, "/stages/stage-1/schedule/import", body)
		req.Header.Set("Content-Type", contentType)

		w := httptest.NewRecorder()
		newStageRouter(stages, time.UTC, stageOwner).ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		stages.AssertNotCalled(t, "ImportSchedule", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("malformed time", func(t *testing.T) {
		stages := new(MockStageService)

		body, contentType := multipartCSV(t, "csvfile", "title,description,start_time,end_time\nOpening,,tomorrow,2026-07-04T11:00:00Z\n")
		req := httptest.NewRequest(http.MethodPost, "/stages/stage-1/schedule/import", body)
		req.Header.Set("Content-Type", contentType)

		w := httptest.NewRecorder()
		newStageRouter(stages, time.UTC, stageOwner).ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "row 1")
	})
}

func TestStageHandler_ExportCalendar(t *testing.T) {
	stages := new(MockStageService)
	stages.On("ExportCalendar", mock.Anything, "stage-1").Return([]byte("BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"), nil)

	w := httptest.NewRecorder()
	newStageRouter(stages, time.UTC, nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stages/stage-1/schedule.ics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/calendar; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "stage-stage-1.ics")
	assert.True(t, strings.HasPrefix(w.Body.String(), "BEGIN:VCALENDAR"))
}
