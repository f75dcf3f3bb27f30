package analysis

import (
	"sort"
	"time"
)

// InterestProfile is the model's free-text classification of a profile. The
// fields are opaque labels beyond presence checks.
type InterestProfile struct {
	PrimaryInterests []string `json:"primary_interests"`
	ContentStyle     string   `json:"content_style"`
	PreferredFormats []string `json:"preferred_formats"`
	AudienceType     string   `json:"audience_type"`
	Tone             string   `json:"tone"`
}

// MatchedTrend pairs a trending hashtag with the model's relevance score for
// one profile. Score is always within [0, 100] once it leaves the AI boundary.
type MatchedTrend struct {
	Hashtag    string `json:"hashtag"`
	MatchScore int    `json:"match_score"`
	Reasoning  string `json:"reasoning"`
}

// PostSuggestion holds generated caption ideas for one matched hashtag.
type PostSuggestion struct {
	TrendHashtag string   `json:"trend_hashtag"`
	Suggestions  []string `json:"suggestions"`
}

// Result is the aggregate output of one analysis run.
type Result struct {
	RunID           string           `json:"run_id"`
	Username        string           `json:"username"`
	UserInterests   InterestProfile  `json:"user_interests"`
	MatchedTrends   []MatchedTrend   `json:"matched_trends"`
	PostSuggestions []PostSuggestion `json:"post_suggestions"`
	CreatedAt       time.Time        `json:"created_at"`
}

// ClampScore forces an untrusted model score into [0, 100].
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// SortMatches orders matches by score descending, stable on hashtag so equal
// scores keep the model's ordering.
func SortMatches(matches []MatchedTrend) {
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].MatchScore > matches[j].MatchScore
	})
}

// Fresh reports whether the result is still servable from cache.
func (r Result) Fresh(window time.Duration, now time.Time) bool {
	return now.Sub(r.CreatedAt) < window
}
