// internal/adapter/storage/analysis_store.go

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"

	"instatrends/internal/domain/analysis"
)

// SaveResult appends one analysis run: a row in analysis_runs plus one
// matched_trends row per match. History is append-only; reads use the latest
// run per username.
func (s *Store) SaveResult(ctx context.Context, result analysis.Result) error {
	interestsJSON, err := json.Marshal(result.UserInterests)
	if err != nil {
		return fmt.Errorf("marshaling interests: %w", err)
	}
	suggestionsJSON, err := json.Marshal(result.PostSuggestions)
	if err != nil {
		return fmt.Errorf("marshaling suggestions: %w", err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning save transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO analysis_runs (run_id, username, interests, suggestions, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, result.RunID, result.Username, interestsJSON, suggestionsJSON, result.CreatedAt); err != nil {
		return fmt.Errorf("inserting analysis run: %w", err)
	}

	for _, m := range result.MatchedTrends {
		if _, err := tx.Exec(ctx, `
			INSERT INTO matched_trends (run_id, username, hashtag, match_score, reasoning, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, result.RunID, result.Username, m.Hashtag, m.MatchScore, m.Reasoning, result.CreatedAt); err != nil {
			return fmt.Errorf("inserting matched trend %s: %w", m.Hashtag, err)
		}
	}

	return tx.Commit(ctx)
}

// LatestResult returns the most recent analysis run for a username, or
// analysis.ErrNoResult when none exists.
func (s *Store) LatestResult(ctx context.Context, username string) (analysis.Result, error) {
	var (
		result          analysis.Result
		interestsJSON   []byte
		suggestionsJSON []byte
	)

	err := s.db.QueryRow(ctx, `
		SELECT run_id, username, interests, suggestions, created_at
		FROM analysis_runs
		WHERE username = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, username).Scan(&result.RunID, &result.Username, &interestsJSON, &suggestionsJSON, &result.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return analysis.Result{}, analysis.ErrNoResult
		}
		return analysis.Result{}, fmt.Errorf("querying analysis run: %w", err)
	}

	if err := json.Unmarshal(interestsJSON, &result.UserInterests); err != nil {
		return analysis.Result{}, fmt.Errorf("unmarshaling interests: %w", err)
	}
	if err := json.Unmarshal(suggestionsJSON, &result.PostSuggestions); err != nil {
		return analysis.Result{}, fmt.Errorf("unmarshaling suggestions: %w", err)
	}

	rows, err := s.db.Query(ctx, `
		SELECT hashtag, match_score, reasoning
		FROM matched_trends
		WHERE run_id = $1
		ORDER BY match_score DESC, id ASC
	`, result.RunID)
	if err != nil {
		return analysis.Result{}, fmt.Errorf("querying matched trends: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m analysis.MatchedTrend
		if err := rows.Scan(&m.Hashtag, &m.MatchScore, &m.Reasoning); err != nil {
			return analysis.Result{}, fmt.Errorf("scanning matched trend: %w", err)
		}
		result.MatchedTrends = append(result.MatchedTrends, m)
	}
	if err := rows.Err(); err != nil {
		return analysis.Result{}, fmt.Errorf("iterating matched trends: %w", err)
	}

	return result, nil
}
