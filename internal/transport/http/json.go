package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"geoquiz-service/internal/domain"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// AmbiguousResponse is returned with 409 when a name matches several countries.
type AmbiguousResponse struct {
	Error      string   `json:"error"`
	Candidates []string `json:"candidates"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// errorStatus maps a domain error to its HTTP status; 0 means unexpected.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrAmbiguous):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrNotASuggestion):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrStepMismatch),
		errors.Is(err, domain.ErrStepSettled),
		errors.Is(err, domain.ErrRoundFinished),
		errors.Is(err, domain.ErrNoRound),
		errors.Is(err, domain.ErrNotAttempted):
		return http.StatusConflict
	}
	return 0
}

func writeServiceError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	var amb *domain.AmbiguousError
	if errors.As(err, &amb) {
		writeJSON(w, http.StatusConflict, AmbiguousResponse{Error: amb.Error(), Candidates: amb.Candidates})
		return
	}
	status := errorStatus(err)
	if status == 0 {
		logger.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeError(w, status, err.Error())
}
