// internal/service/trends/static.go

package trends

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"instatrends/internal/domain/trend"
)

// StaticSource serves a fixed trending dataset, either baked in or loaded from
// a JSON file. It is the configured fallback variant when no live source is
// available; selection happens in config, never by silent exception handling.
type StaticSource struct {
	records []trend.Record
}

// staticFile is the on-disk dataset shape: {"trends": [...]}.
type staticFile struct {
	Trends []trend.Record `json:"trends"`
}

// NewStaticSource creates a static source. An empty path uses the built-in
// baseline dataset.
func NewStaticSource(path string) (*StaticSource, error) {
	if path == "" {
		return &StaticSource{records: defaultTrends()}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading static trend data: %w", err)
	}

	var file staticFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing static trend data: %w", err)
	}
	if len(file.Trends) == 0 {
		return nil, fmt.Errorf("static trend data %s contains no trends", path)
	}
	for _, r := range file.Trends {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("static trend data %s: %w", path, err)
		}
	}

	return &StaticSource{records: file.Trends}, nil
}

// Name identifies the source variant.
func (s *StaticSource) Name() string { return "static" }

// CurrentTrends returns a copy of the dataset stamped with the current time.
func (s *StaticSource) CurrentTrends(ctx context.Context) ([]trend.Record, error) {
	now := time.Now().UTC()
	out := make([]trend.Record, len(s.records))
	copy(out, s.records)
	for i := range out {
		if out[i].FetchedAt.IsZero() {
			out[i].FetchedAt = now
		}
	}
	return out, nil
}

func defaultTrends() []trend.Record {
	return []trend.Record{
		{Hashtag: "#fitness", Caption: "Transform your body with these simple exercises!", PostURL: "https://instagram.com/p/mock1", Likes: 15420, Comments: 234},
		{Hashtag: "#foodie", Caption: "Best pasta recipe you'll ever try!", PostURL: "https://instagram.com/p/mock2", Likes: 8765, Comments: 156},
		{Hashtag: "#travel", Caption: "Hidden gems in Bali that tourists miss", PostURL: "https://instagram.com/p/mock3", Likes: 23140, Comments: 445},
		{Hashtag: "#technology", Caption: "This AI tool changed how I work", PostURL: "https://instagram.com/p/mock4", Likes: 19870, Comments: 512},
		{Hashtag: "#fashion", Caption: "Fall looks you can build from your closet", PostURL: "https://instagram.com/p/mock5", Likes: 12033, Comments: 198},
		{Hashtag: "#wellness", Caption: "Morning routines that actually stick", PostURL: "https://instagram.com/p/mock6", Likes: 9451, Comments: 121},
		{Hashtag: "#photography", Caption: "Golden hour settings for any phone camera", PostURL: "https://instagram.com/p/mock7", Likes: 17645, Comments: 301},
	}
}
