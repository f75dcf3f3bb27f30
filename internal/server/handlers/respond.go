// internal/server/handlers/respond.go

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"instatrends/internal/domain/analysis"
)

// errorBody is the wire shape of every error response.
type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// statusForKind maps stable error kinds to HTTP statuses.
func statusForKind(kind string) int {
	switch kind {
	case analysis.KindValidation:
		return http.StatusBadRequest
	case analysis.KindProfileNotFound, analysis.KindNotFound:
		return http.StatusNotFound
	case analysis.KindProfilePrivate:
		return http.StatusForbidden
	case analysis.KindSourceRateLimited:
		return http.StatusTooManyRequests
	case analysis.KindSourceUnavailable:
		return http.StatusServiceUnavailable
	case analysis.KindAIServiceError, analysis.KindAIExtractionFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondWithJSON writes a JSON response
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"kind":"internal_error","message":"failed to marshal response"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// respondWithError maps a pipeline error to a structured error body. Unknown
// errors become an opaque internal_error; details stay in the logs.
func respondWithError(w http.ResponseWriter, err error) {
	var aerr *analysis.Error
	if errors.As(err, &aerr) {
		respondWithJSON(w, statusForKind(aerr.Kind), errorBody{Kind: aerr.Kind, Message: aerr.Message})
		return
	}
	respondWithJSON(w, http.StatusInternalServerError,
		errorBody{Kind: analysis.KindInternal, Message: "internal server error"})
}
