// internal/service/ai/client.go

package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"instatrends/internal/domain/analysis"
	"instatrends/internal/domain/profile"
	"instatrends/internal/domain/trend"
)

// errMalformed marks a response that arrived but failed schema validation.
// Distinct from transport errors; both are retried, only the classification
// of the exhausted error differs.
var errMalformed = errors.New("malformed model output")

// Config controls the model client.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	MaxTokens      int
	Temperature    float64
	MaxAttempts    int
	RetryBaseWait  time.Duration
	RequestTimeout time.Duration
}

// Client maps structured prompts onto a hosted chat-completion model and
// parses the free-text responses back into domain types. All operations retry
// transient failures with doubling backoff up to MaxAttempts.
type Client struct {
	api    *openai.Client
	cfg    Config
	logger *zap.Logger
}

// NewClient creates a model client from config.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryBaseWait <= 0 {
		cfg.RetryBaseWait = 2 * time.Second
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}

	return &Client{
		api:    openai.NewClientWithConfig(apiCfg),
		cfg:    cfg,
		logger: logger,
	}
}

// ExtractInterests classifies a profile snapshot into an interest profile.
func (c *Client) ExtractInterests(ctx context.Context, snap profile.Snapshot) (analysis.InterestProfile, error) {
	prompt := interestsPrompt(snap)

	var out analysis.InterestProfile
	err := c.completeJSON(ctx, prompt, func(raw string) error {
		var parsed analysis.InterestProfile
		if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
			return err
		}
		if len(parsed.PrimaryInterests) == 0 {
			return fmt.Errorf("no primary interests in response")
		}
		out = parsed
		return nil
	})
	if err != nil {
		return analysis.InterestProfile{}, err
	}
	return out, nil
}

// MatchTrends scores each trending hashtag against an interest profile.
// Scores are clamped to [0, 100], matches referencing hashtags outside the
// given trend set are dropped, and kept matches carry the trend record's
// exact hashtag casing.
func (c *Client) MatchTrends(ctx context.Context, interests analysis.InterestProfile, trends []trend.Record) ([]analysis.MatchedTrend, error) {
	if len(trends) == 0 {
		return nil, nil
	}
	prompt := matchPrompt(interests, trend.Hashtags(trends))

	known := make(map[string]string, len(trends))
	for _, t := range trends {
		known[strings.ToLower(t.Hashtag)] = t.Hashtag
	}

	var out []analysis.MatchedTrend
	err := c.completeJSON(ctx, prompt, func(raw string) error {
		var parsed []analysis.MatchedTrend
		if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
			return err
		}
		matches := make([]analysis.MatchedTrend, 0, len(parsed))
		for _, m := range parsed {
			if m.Hashtag == "" {
				continue
			}
			canonical, ok := known[strings.ToLower(m.Hashtag)]
			if !ok {
				c.logger.Warn("dropping match outside trend set", zap.String("hashtag", m.Hashtag))
				continue
			}
			m.Hashtag = canonical
			m.MatchScore = analysis.ClampScore(m.MatchScore)
			matches = append(matches, m)
		}
		out = matches
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GenerateSuggestions produces caption ideas for one matched hashtag.
func (c *Client) GenerateSuggestions(ctx context.Context, interests analysis.InterestProfile, hashtag string) (analysis.PostSuggestion, error) {
	prompt := suggestionsPrompt(interests, hashtag)

	var out analysis.PostSuggestion
	err := c.completeJSON(ctx, prompt, func(raw string) error {
		var parsed analysis.PostSuggestion
		if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
			return err
		}
		if len(parsed.Suggestions) == 0 {
			return fmt.Errorf("no suggestions in response")
		}
		if parsed.TrendHashtag == "" {
			parsed.TrendHashtag = hashtag
		}
		out = parsed
		return nil
	})
	if err != nil {
		return analysis.PostSuggestion{}, err
	}
	return out, nil
}

// completeJSON runs one chat completion and feeds the cleaned response text to
// parse. Transport errors and malformed output are both retried; after the
// final attempt the error is classified as ai_service_error or
// ai_extraction_failed respectively.
func (c *Client) completeJSON(ctx context.Context, prompt string, parse func(raw string) error) error {
	var lastErr error

	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			wait := c.cfg.RetryBaseWait * time.Duration(1<<(attempt-2))
			select {
			case <-ctx.Done():
				return analysis.NewTransientError(analysis.KindAIServiceError, "model request cancelled", ctx.Err())
			case <-time.After(wait):
			}
		}

		raw, err := c.complete(ctx, prompt)
		if err != nil {
			c.logger.Warn("model request failed",
				zap.Int("attempt", attempt),
				zap.Error(err))
			lastErr = err
			continue
		}

		cleaned := cleanResponse(raw)
		if err := parse(cleaned); err != nil {
			c.logger.Warn("model response failed validation",
				zap.Int("attempt", attempt),
				zap.String("response", truncate(cleaned, 200)),
				zap.Error(err))
			lastErr = fmt.Errorf("%w: %v", errMalformed, err)
			continue
		}

		return nil
	}

	if errors.Is(lastErr, errMalformed) {
		return analysis.NewError(analysis.KindAIExtractionFailed,
			fmt.Sprintf("model output unparsable after %d attempts", c.cfg.MaxAttempts), lastErr)
	}
	return analysis.NewTransientError(analysis.KindAIServiceError,
		fmt.Sprintf("model unavailable after %d attempts", c.cfg.MaxAttempts), lastErr)
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(reqCtx, openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: float32(c.cfg.Temperature),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// cleanResponse strips markdown code fences some models wrap JSON in.
func cleanResponse(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
