package webutil

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/taskforge/taskforge-be/internal/apperr"
)

// RespondJSON writes payload as a JSON response with the given status.
func RespondJSON(w http.ResponseWriter, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal JSON response")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// RespondErrorMessage writes a JSON error body with an explicit status.
func RespondErrorMessage(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, map[string]string{"error": message})
}

// RespondError translates an application error into its HTTP status and a
// JSON error body. Anything outside the apperr taxonomy becomes a bare 500
// with no internal detail leaked.
func RespondError(w http.ResponseWriter, err error) {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		RespondErrorMessage(w, ae.HTTPStatus(), ae.Message)
		return
	}

	log.Error().Err(err).Msg("Unhandled error")
	RespondErrorMessage(w, http.StatusInternalServerError, "internal server error")
}
