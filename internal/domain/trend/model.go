package trend

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Record represents one trending hashtag observation.
type Record struct {
	Hashtag   string    `json:"hashtag"`
	Caption   string    `json:"caption"`
	PostURL   string    `json:"post_url,omitempty"`
	Likes     int       `json:"likes"`
	Comments  int       `json:"comments"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Source supplies the current trending dataset. CurrentTrends is safe to call
// on the request path; Refresh may hit external services and is only invoked
// by the refresh timer.
type Source interface {
	// Name identifies the source variant ("static", "twitter").
	Name() string

	// CurrentTrends returns the source's current view of trending records.
	CurrentTrends(ctx context.Context) ([]Record, error)
}

// Validate checks a record before it enters storage.
func (r Record) Validate() error {
	if !strings.HasPrefix(r.Hashtag, "#") || len(r.Hashtag) < 2 {
		return fmt.Errorf("invalid hashtag %q", r.Hashtag)
	}
	if r.Likes < 0 || r.Comments < 0 {
		return fmt.Errorf("negative engagement counts for %s", r.Hashtag)
	}
	return nil
}

// Hashtags projects the hashtag column from a record set.
func Hashtags(records []Record) []string {
	tags := make([]string, 0, len(records))
	for _, r := range records {
		tags = append(tags, r.Hashtag)
	}
	return tags
}
