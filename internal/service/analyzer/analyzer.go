// internal/service/analyzer/analyzer.go

package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"instatrends/internal/domain/analysis"
	"instatrends/internal/domain/profile"
	"instatrends/internal/domain/trend"
)

// AIClient is the model boundary the pipeline drives. Implementations retry
// transient failures internally and return analysis.Error on exhaustion.
type AIClient interface {
	ExtractInterests(ctx context.Context, snap profile.Snapshot) (analysis.InterestProfile, error)
	MatchTrends(ctx context.Context, interests analysis.InterestProfile, trends []trend.Record) ([]analysis.MatchedTrend, error)
	GenerateSuggestions(ctx context.Context, interests analysis.InterestProfile, hashtag string) (analysis.PostSuggestion, error)
}

// Store is the persistence surface the pipeline reads and writes.
type Store interface {
	GetTrends(ctx context.Context, limit int) ([]trend.Record, error)
	UpsertTrends(ctx context.Context, records []trend.Record) error
	SaveResult(ctx context.Context, result analysis.Result) error
	LatestResult(ctx context.Context, username string) (analysis.Result, error)
}

// EventPublisher publishes pipeline events. *nats.Conn satisfies it.
type EventPublisher interface {
	Publish(subject string, data []byte) error
}

// Config contains pipeline configuration.
type Config struct {
	TopMatches      int
	TrendFetchLimit int
	FreshnessWindow time.Duration
	DefaultPosts    int
	MaxPosts        int
	AnalysisTopic   string
}

// Service sequences the analysis pipeline: profile fetch, interest
// extraction, trend matching, suggestion generation, persistence.
type Service struct {
	profiles profile.Source
	ai       AIClient
	source   trend.Source
	store    Store
	bus      EventPublisher
	cfg      Config
	logger   *zap.Logger

	now func() time.Time
}

// New creates the pipeline service.
func New(
	profiles profile.Source,
	ai AIClient,
	source trend.Source,
	store Store,
	bus EventPublisher,
	cfg Config,
	logger *zap.Logger,
) *Service {
	if cfg.TopMatches <= 0 {
		cfg.TopMatches = 5
	}
	if cfg.TrendFetchLimit <= 0 {
		cfg.TrendFetchLimit = 15
	}
	if cfg.DefaultPosts <= 0 {
		cfg.DefaultPosts = 3
	}
	if cfg.MaxPosts <= 0 {
		cfg.MaxPosts = 12
	}
	return &Service{
		profiles: profiles,
		ai:       ai,
		source:   source,
		store:    store,
		bus:      bus,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Analyze runs the full pipeline for a username. A persisted result still
// inside the freshness window is served without re-invoking any external
// service.
func (s *Service) Analyze(ctx context.Context, username string, numPosts int) (analysis.Result, error) {
	username, numPosts, err := s.validate(username, numPosts)
	if err != nil {
		return analysis.Result{}, err
	}

	if cached, err := s.store.LatestResult(ctx, username); err == nil && cached.Fresh(s.cfg.FreshnessWindow, s.now()) {
		s.logger.Debug("serving cached analysis",
			zap.String("username", username),
			zap.Time("created_at", cached.CreatedAt))
		return cached, nil
	}

	snap, err := s.profiles.Fetch(ctx, username, numPosts)
	if err != nil {
		return analysis.Result{}, mapProfileError(username, err)
	}
	if snap.Empty() {
		return analysis.Result{}, analysis.NewError(analysis.KindProfileNotFound,
			fmt.Sprintf("no usable profile text for %q", username), nil)
	}

	return s.analyzeSnapshot(ctx, snap)
}

// AnalyzeSnapshot runs the pipeline on an already-fetched snapshot, skipping
// the profile source. Used by the demo endpoint.
func (s *Service) AnalyzeSnapshot(ctx context.Context, snap profile.Snapshot) (analysis.Result, error) {
	return s.analyzeSnapshot(ctx, snap)
}

func (s *Service) analyzeSnapshot(ctx context.Context, snap profile.Snapshot) (analysis.Result, error) {
	interests, err := s.ai.ExtractInterests(ctx, snap)
	if err != nil {
		return analysis.Result{}, err
	}

	records, err := s.currentTrends(ctx)
	if err != nil {
		return analysis.Result{}, err
	}

	matches, err := s.ai.MatchTrends(ctx, interests, records)
	if err != nil {
		return analysis.Result{}, err
	}
	matches = s.enforceMatchInvariants(matches, records)

	suggestions := s.generateSuggestions(ctx, interests, matches)

	result := analysis.Result{
		RunID:           uuid.New().String(),
		Username:        snap.Username,
		UserInterests:   interests,
		MatchedTrends:   matches,
		PostSuggestions: suggestions,
		CreatedAt:       s.now().UTC(),
	}

	// Persistence is best-effort: the caller gets the computed result even
	// when the store is down.
	if err := s.store.SaveResult(ctx, result); err != nil {
		s.logger.Warn("persisting analysis failed",
			zap.String("username", snap.Username),
			zap.Error(err))
	} else {
		s.publishCompleted(result)
	}

	return result, nil
}

// Suggestions returns the persisted latest analysis for a username. It never
// re-invokes the model.
func (s *Service) Suggestions(ctx context.Context, username string) (analysis.Result, error) {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	if username == "" {
		return analysis.Result{}, analysis.NewError(analysis.KindValidation, "username is required", nil)
	}

	result, err := s.store.LatestResult(ctx, username)
	if err != nil {
		if errors.Is(err, analysis.ErrNoResult) {
			return analysis.Result{}, analysis.NewError(analysis.KindNotFound,
				fmt.Sprintf("no analysis found for %q, analyze the profile first", username), nil)
		}
		return analysis.Result{}, analysis.NewError(analysis.KindPersistenceError, "reading analysis failed", err)
	}
	return result, nil
}

// Trends returns the persisted trend dataset, newest first.
func (s *Service) Trends(ctx context.Context, limit int) ([]trend.Record, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	records, err := s.store.GetTrends(ctx, limit)
	if err != nil {
		return nil, analysis.NewError(analysis.KindPersistenceError, "reading trends failed", err)
	}
	return records, nil
}

func (s *Service) validate(username string, numPosts int) (string, int, error) {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	if username == "" {
		return "", 0, analysis.NewError(analysis.KindValidation, "username is required", nil)
	}
	if strings.ContainsAny(username, " /\\") {
		return "", 0, analysis.NewError(analysis.KindValidation,
			fmt.Sprintf("invalid username %q", username), nil)
	}
	if numPosts == 0 {
		numPosts = s.cfg.DefaultPosts
	}
	if numPosts < 1 || numPosts > s.cfg.MaxPosts {
		return "", 0, analysis.NewError(analysis.KindValidation,
			fmt.Sprintf("num_posts must be between 1 and %d", s.cfg.MaxPosts), nil)
	}
	return username, numPosts, nil
}

// currentTrends reads the persisted snapshot kept warm by the refresh timer,
// falling back to the configured source when the store has nothing. Live
// refresh never happens inline on the request path.
func (s *Service) currentTrends(ctx context.Context) ([]trend.Record, error) {
	records, err := s.store.GetTrends(ctx, s.cfg.TrendFetchLimit)
	if err == nil && len(records) > 0 {
		return records, nil
	}
	if err != nil {
		s.logger.Warn("reading persisted trends failed, falling back to source", zap.Error(err))
	}

	records, srcErr := s.source.CurrentTrends(ctx)
	if srcErr != nil || len(records) == 0 {
		return nil, analysis.NewError(analysis.KindSourceUnavailable,
			"no trending data available, try again later", srcErr)
	}
	if len(records) > s.cfg.TrendFetchLimit {
		records = records[:s.cfg.TrendFetchLimit]
	}

	// Write the fallback batch through so matched rows keep a valid hashtag
	// reference and /trends serves the data used here.
	if err := s.store.UpsertTrends(ctx, records); err != nil {
		s.logger.Warn("persisting fallback trends failed", zap.Error(err))
	}
	return records, nil
}

// enforceMatchInvariants clamps scores, drops matches referencing hashtags
// outside the trend set used for this run, rewrites kept matches to the trend
// record's exact hashtag casing, sorts by score descending and truncates to
// the configured top-N.
func (s *Service) enforceMatchInvariants(matches []analysis.MatchedTrend, records []trend.Record) []analysis.MatchedTrend {
	known := make(map[string]string, len(records))
	for _, r := range records {
		known[strings.ToLower(r.Hashtag)] = r.Hashtag
	}

	kept := make([]analysis.MatchedTrend, 0, len(matches))
	for _, m := range matches {
		canonical, ok := known[strings.ToLower(m.Hashtag)]
		if !ok {
			s.logger.Warn("dropping dangling trend match", zap.String("hashtag", m.Hashtag))
			continue
		}
		m.Hashtag = canonical
		m.MatchScore = analysis.ClampScore(m.MatchScore)
		kept = append(kept, m)
	}

	analysis.SortMatches(kept)
	if len(kept) > s.cfg.TopMatches {
		kept = kept[:s.cfg.TopMatches]
	}
	return kept
}

// generateSuggestions fans out one generation call per matched trend. The
// branches are independent: a failed branch degrades that trend's suggestions
// to an empty list without affecting the others.
func (s *Service) generateSuggestions(ctx context.Context, interests analysis.InterestProfile, matches []analysis.MatchedTrend) []analysis.PostSuggestion {
	suggestions := make([]analysis.PostSuggestion, len(matches))

	var wg sync.WaitGroup
	for i, m := range matches {
		wg.Add(1)
		go func(i int, hashtag string) {
			defer wg.Done()

			sg, err := s.ai.GenerateSuggestions(ctx, interests, hashtag)
			if err != nil {
				s.logger.Warn("suggestion generation failed",
					zap.String("hashtag", hashtag),
					zap.Error(err))
				suggestions[i] = analysis.PostSuggestion{TrendHashtag: hashtag, Suggestions: []string{}}
				return
			}
			suggestions[i] = sg
		}(i, m.Hashtag)
	}
	wg.Wait()

	return suggestions
}

func (s *Service) publishCompleted(result analysis.Result) {
	if s.bus == nil || s.cfg.AnalysisTopic == "" {
		return
	}
	data, err := json.Marshal(map[string]interface{}{
		"run_id":     result.RunID,
		"username":   result.Username,
		"matches":    len(result.MatchedTrends),
		"created_at": result.CreatedAt,
	})
	if err != nil {
		return
	}
	if err := s.bus.Publish(s.cfg.AnalysisTopic, data); err != nil {
		s.logger.Warn("publishing analysis event failed", zap.Error(err))
	}
}

func mapProfileError(username string, err error) error {
	switch {
	case errors.Is(err, profile.ErrNotFound):
		return analysis.NewError(analysis.KindProfileNotFound,
			fmt.Sprintf("instagram profile %q does not exist", username), err)
	case errors.Is(err, profile.ErrPrivate):
		return analysis.NewError(analysis.KindProfilePrivate,
			fmt.Sprintf("instagram profile %q is private", username), err)
	case errors.Is(err, profile.ErrRateLimited):
		return analysis.NewTransientError(analysis.KindSourceRateLimited,
			"profile source rate limited, try again later", err)
	default:
		return analysis.NewTransientError(analysis.KindSourceUnavailable,
			"profile source unavailable", err)
	}
}
