// internal/server/handlers/trend.go

package handlers

import (
	"net/http"
	"strconv"

	"instatrends/internal/domain/trend"
)

// TrendHandler handles trend-related HTTP requests
type TrendHandler struct {
	service AnalysisService
}

// NewTrendHandler creates a new trend handler
func NewTrendHandler(service AnalysisService) *TrendHandler {
	return &TrendHandler{service: service}
}

type trendsResponse struct {
	Trends     []trend.Record `json:"trends"`
	TotalCount int            `json:"total_count"`
}

// GetTrends returns the current trending dataset, newest first.
func (h *TrendHandler) GetTrends(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	records, err := h.service.Trends(r.Context(), limit)
	if err != nil {
		respondWithError(w, err)
		return
	}
	if records == nil {
		records = []trend.Record{}
	}

	respondWithJSON(w, http.StatusOK, trendsResponse{
		Trends:     records,
		TotalCount: len(records),
	})
}
