// internal/service/trends/twitter.go

package trends

import (
	"context"
	"fmt"
	"net/http"
	"time"

	twitter "github.com/g8rswimmer/go-twitter/v2"
	"go.uber.org/zap"

	"instatrends/internal/domain/trend"
)

// TwitterSource builds trend records from recent tweet activity for a
// configured set of seed hashtags. One record per hashtag, carrying the most
// engaged recent post's text and metrics.
type TwitterSource struct {
	client       *twitter.Client
	seedHashtags []string
	logger       *zap.Logger
}

// TwitterConfig controls the live source.
type TwitterConfig struct {
	BearerToken  string
	SeedHashtags []string
}

type bearerAuthorizer struct {
	token string
}

func (a bearerAuthorizer) Add(req *http.Request) {
	req.Header.Add("Authorization", "Bearer "+a.token)
}

// NewTwitterSource creates a live trend source.
func NewTwitterSource(cfg TwitterConfig, logger *zap.Logger) (*TwitterSource, error) {
	if cfg.BearerToken == "" {
		return nil, fmt.Errorf("twitter bearer token not configured")
	}
	if len(cfg.SeedHashtags) == 0 {
		return nil, fmt.Errorf("no seed hashtags configured")
	}

	client := &twitter.Client{
		Authorizer: bearerAuthorizer{token: cfg.BearerToken},
		Client:     &http.Client{Timeout: 10 * time.Second},
		Host:       "https://api.twitter.com",
	}

	return &TwitterSource{
		client:       client,
		seedHashtags: cfg.SeedHashtags,
		logger:       logger,
	}, nil
}

// Name identifies the source variant.
func (s *TwitterSource) Name() string { return "twitter" }

// CurrentTrends queries recent activity per seed hashtag. Per-hashtag failures
// are logged and skipped; the call fails only when no hashtag yields data.
func (s *TwitterSource) CurrentTrends(ctx context.Context) ([]trend.Record, error) {
	now := time.Now().UTC()
	records := make([]trend.Record, 0, len(s.seedHashtags))

	for _, tag := range s.seedHashtags {
		rec, err := s.lookupHashtag(ctx, tag, now)
		if err != nil {
			s.logger.Warn("hashtag lookup failed",
				zap.String("hashtag", tag),
				zap.Error(err))
			continue
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("no trend data for any of %d seed hashtags", len(s.seedHashtags))
	}
	return records, nil
}

func (s *TwitterSource) lookupHashtag(ctx context.Context, tag string, now time.Time) (trend.Record, error) {
	resp, err := s.client.TweetRecentSearch(ctx, tag, twitter.TweetRecentSearchOpts{
		MaxResults:  10,
		TweetFields: []twitter.TweetField{twitter.TweetFieldPublicMetrics},
	})
	if err != nil {
		return trend.Record{}, err
	}
	if resp.Raw == nil || len(resp.Raw.Tweets) == 0 {
		return trend.Record{}, fmt.Errorf("no recent posts for %s", tag)
	}

	// Pick the most engaged recent post as the representative sample.
	best := resp.Raw.Tweets[0]
	likes, comments := 0, 0
	for _, tw := range resp.Raw.Tweets {
		if tw.PublicMetrics == nil {
			continue
		}
		if best.PublicMetrics == nil || tw.PublicMetrics.Likes > best.PublicMetrics.Likes {
			best = tw
		}
	}
	if best.PublicMetrics != nil {
		likes = best.PublicMetrics.Likes
		comments = best.PublicMetrics.Replies
	}

	rec := trend.Record{
		Hashtag:   tag,
		Caption:   best.Text,
		PostURL:   "https://twitter.com/i/web/status/" + best.ID,
		Likes:     likes,
		Comments:  comments,
		FetchedAt: now,
	}
	if err := rec.Validate(); err != nil {
		return trend.Record{}, err
	}
	return rec, nil
}
