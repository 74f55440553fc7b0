package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/japaniel/phrasebook/pkg/apperr"
)

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		code = http.StatusInternalServerError
		response = []byte(`{"error":"failed to encode response"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithErr maps domain errors to status codes. Anything unrecognized is
// logged and reported as an internal error without its details.
func respondWithErr(w http.ResponseWriter, log *slog.Logger, err error) {
	switch {
	case apperr.IsValidation(err):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, apperr.ErrNotFound):
		respondWithError(w, http.StatusNotFound, "not found")
	case errors.Is(err, apperr.ErrDuplicate):
		respondWithError(w, http.StatusConflict, apperr.ErrDuplicate.Error())
	default:
		log.Error("request failed", "err", err)
		respondWithError(w, http.StatusInternalServerError, "internal error")
	}
}
