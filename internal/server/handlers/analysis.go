// internal/server/handlers/analysis.go

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"instatrends/internal/domain/analysis"
	"instatrends/internal/domain/profile"
	"instatrends/internal/domain/trend"
)

// AnalysisService is the pipeline surface the HTTP layer drives.
type AnalysisService interface {
	Analyze(ctx context.Context, username string, numPosts int) (analysis.Result, error)
	AnalyzeSnapshot(ctx context.Context, snap profile.Snapshot) (analysis.Result, error)
	Suggestions(ctx context.Context, username string) (analysis.Result, error)
	Trends(ctx context.Context, limit int) ([]trend.Record, error)
}

// AnalysisHandler handles profile analysis HTTP requests
type AnalysisHandler struct {
	service AnalysisService
	logger  *zap.Logger
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(service AnalysisService, logger *zap.Logger) *AnalysisHandler {
	return &AnalysisHandler{service: service, logger: logger}
}

type analyzeRequest struct {
	Username string `json:"username"`
	NumPosts int    `json:"num_posts"`
}

// AnalyzeProfile runs the full analysis pipeline for a username.
func (h *AnalysisHandler) AnalyzeProfile(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, analysis.NewError(analysis.KindValidation, "invalid request body", err))
		return
	}

	result, err := h.service.Analyze(r.Context(), req.Username, req.NumPosts)
	if err != nil {
		h.logger.Warn("analysis failed",
			zap.String("username", req.Username),
			zap.Error(err))
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// GetSuggestions returns the cached latest analysis for a username.
func (h *AnalysisHandler) GetSuggestions(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	result, err := h.service.Suggestions(r.Context(), username)
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// DemoAnalysis runs the pipeline on a canned sample profile, skipping the
// scraper. Useful for exercising the model integration without Instagram
// access.
func (h *AnalysisHandler) DemoAnalysis(w http.ResponseWriter, r *http.Request) {
	snap := profile.Snapshot{
		Username: "demo_user",
		Bio:      "Bios are overrated. Skip the assumptions - meet me in person",
		Captions: []string{
			"Le Chat GPT when the prompt is: 'Suggest a house design inspired from my life story.' #TechHumor #AILife",
			"Just Another Sunday, But Better #WeekendVibes #SundayMood #ChillDay",
			"Sometimes you just need a little chaos to feel alive. #LifePhilosophy #Adventure",
		},
		FetchedAt: time.Now().UTC(),
	}

	result, err := h.service.AnalyzeSnapshot(r.Context(), snap)
	if err != nil {
		h.logger.Warn("demo analysis failed", zap.Error(err))
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}
