package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/whatlove/getinthegame/internal/session"
)

// writeJSON writes JSON response with status code.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError sends an error message.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeCommandError maps session command errors onto HTTP statuses.
func writeCommandError(w http.ResponseWriter, err error) {
	writeError(w, statusForError(err), err.Error())
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, session.ErrPlayerNotFound), errors.Is(err, session.ErrTeamNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrTeamFull):
		return http.StatusConflict
	case errors.Is(err, session.ErrColorPoolExhausted):
		return http.StatusServiceUnavailable
	case errors.Is(err, session.ErrPinMismatch):
		return http.StatusForbidden
	case errors.Is(err, session.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
