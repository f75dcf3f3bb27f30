// internal/adapter/storage/trend_store.go

package storage

import (
	"context"
	"fmt"

	"instatrends/internal/domain/trend"
)

// UpsertTrends writes a refresh batch, keyed by hashtag. Existing rows get
// their caption, engagement counts and fetch timestamp replaced.
func (s *Store) UpsertTrends(ctx context.Context, records []trend.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning upsert transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO trending_data (hashtag, caption, post_url, likes, comments, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (hashtag) DO UPDATE
		SET
			caption = EXCLUDED.caption,
			post_url = EXCLUDED.post_url,
			likes = EXCLUDED.likes,
			comments = EXCLUDED.comments,
			fetched_at = EXCLUDED.fetched_at
	`

	for _, r := range records {
		if _, err := tx.Exec(ctx, query,
			r.Hashtag, r.Caption, r.PostURL, r.Likes, r.Comments, r.FetchedAt,
		); err != nil {
			return fmt.Errorf("upserting trend %s: %w", r.Hashtag, err)
		}
	}

	return tx.Commit(ctx)
}

// GetTrends returns the persisted trend records, most recently fetched first.
func (s *Store) GetTrends(ctx context.Context, limit int) ([]trend.Record, error) {
	query := `
		SELECT hashtag, caption, COALESCE(post_url, ''), likes, comments, fetched_at
		FROM trending_data
		ORDER BY fetched_at DESC, likes DESC
		LIMIT $1
	`

	rows, err := s.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying trends: %w", err)
	}
	defer rows.Close()

	var records []trend.Record
	for rows.Next() {
		var r trend.Record
		if err := rows.Scan(&r.Hashtag, &r.Caption, &r.PostURL, &r.Likes, &r.Comments, &r.FetchedAt); err != nil {
			return nil, fmt.Errorf("scanning trend: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating trends: %w", err)
	}

	return records, nil
}
