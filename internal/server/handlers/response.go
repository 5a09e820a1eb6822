// internal/server/handlers/response.go

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"stagemap/internal/domain/event"
	"stagemap/internal/domain/geo"
	"stagemap/internal/domain/identity"
	"stagemap/internal/domain/schedule"
)

// Helper for JSON responses
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Failed to marshal response"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// Helper for error responses
func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithServiceError maps domain errors onto status codes. Server errors
// are logged and their message is not sent to the client.
func respondWithServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		logger.Error("request failed", zap.Error(err))
		respondWithError(w, code, "Internal server error")
		return
	}
	respondWithError(w, code, err.Error())
}

func statusFor(err error) int {
	var eventErr *event.ValidationError
	var scheduleErr *schedule.ValidationError

	switch {
	case errors.Is(err, geo.ErrInvalidParameters),
		errors.Is(err, identity.ErrInvalidUserInput),
		errors.As(err, &eventErr),
		errors.As(err, &scheduleErr):
		return http.StatusBadRequest
	case errors.Is(err, identity.ErrUnauthorized), errors.Is(err, identity.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, identity.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, event.ErrEventNotFound),
		errors.Is(err, event.ErrSubsectionNotFound),
		errors.Is(err, event.ErrStageEventNotFound),
		errors.Is(err, event.ErrCategoryNotFound),
		errors.Is(err, event.ErrNoStageAtLocation),
		errors.Is(err, identity.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, identity.ErrUsernameTaken):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, dst interface{}) error {
	return json.NewDecoder(r.Body).Decode(dst)
}
