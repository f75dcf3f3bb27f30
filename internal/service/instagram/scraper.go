// internal/service/instagram/scraper.go

package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"instatrends/internal/domain/profile"
)

// Scraper fetches public profile data from Instagram's web profile endpoint.
// It implements profile.Source.
type Scraper struct {
	baseURL    string
	appID      string
	userAgent  string
	httpClient *http.Client
	logger     *zap.Logger
}

// Config controls the scraper.
type Config struct {
	BaseURL        string
	AppID          string
	UserAgent      string
	RequestTimeout time.Duration
}

// NewScraper creates a profile scraper.
func NewScraper(cfg Config, logger *zap.Logger) *Scraper {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 15 * time.Second
	}
	return &Scraper{
		baseURL:   cfg.BaseURL,
		appID:     cfg.AppID,
		userAgent: cfg.UserAgent,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		logger: logger,
	}
}

// webProfileResponse mirrors the subset of the web_profile_info payload we
// consume.
type webProfileResponse struct {
	Data struct {
		User *struct {
			Biography string `json:"biography"`
			IsPrivate bool   `json:"is_private"`
			Media     struct {
				Edges []struct {
					Node struct {
						Caption struct {
							Edges []struct {
								Node struct {
									Text string `json:"text"`
								} `json:"node"`
							} `json:"edges"`
						} `json:"edge_media_to_caption"`
					} `json:"node"`
				} `json:"edges"`
			} `json:"edge_owner_to_timeline_media"`
		} `json:"user"`
	} `json:"data"`
	Status string `json:"status"`
}

// Fetch returns the bio and up to numPosts recent captions for a username.
func (s *Scraper) Fetch(ctx context.Context, username string, numPosts int) (profile.Snapshot, error) {
	endpoint := fmt.Sprintf("%s/api/v1/users/web_profile_info/?username=%s",
		s.baseURL, url.QueryEscape(username))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return profile.Snapshot{}, fmt.Errorf("building profile request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("X-IG-App-ID", s.appID)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return profile.Snapshot{}, fmt.Errorf("%w: %v", profile.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return profile.Snapshot{}, profile.ErrNotFound
	case http.StatusTooManyRequests:
		return profile.Snapshot{}, profile.ErrRateLimited
	case http.StatusUnauthorized, http.StatusForbidden:
		// Instagram answers 401/403 when it wants a login session.
		return profile.Snapshot{}, profile.ErrRateLimited
	default:
		return profile.Snapshot{}, fmt.Errorf("%w: status %d", profile.ErrUnavailable, resp.StatusCode)
	}

	var payload webProfileResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return profile.Snapshot{}, fmt.Errorf("%w: decoding response: %v", profile.ErrUnavailable, err)
	}

	user := payload.Data.User
	if user == nil {
		return profile.Snapshot{}, profile.ErrNotFound
	}
	if user.IsPrivate {
		return profile.Snapshot{}, profile.ErrPrivate
	}

	captions := make([]string, 0, numPosts)
	for _, edge := range user.Media.Edges {
		if len(captions) >= numPosts {
			break
		}
		for _, c := range edge.Node.Caption.Edges {
			if c.Node.Text != "" {
				captions = append(captions, c.Node.Text)
				break
			}
		}
	}

	s.logger.Debug("fetched profile",
		zap.String("username", username),
		zap.Int("captions", len(captions)))

	return profile.Snapshot{
		Username:  username,
		Bio:       user.Biography,
		Captions:  captions,
		FetchedAt: time.Now().UTC(),
	}, nil
}
