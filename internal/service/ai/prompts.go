// internal/service/ai/prompts.go

package ai

import (
	"fmt"
	"strings"

	"instatrends/internal/domain/analysis"
	"instatrends/internal/domain/profile"
)

const (
	maxBioChars     = 200
	maxCaptionChars = 100
	maxCaptions     = 3
	maxHashtags     = 10
)

func interestsPrompt(snap profile.Snapshot) string {
	return fmt.Sprintf(`Analyze this Instagram profile:

Bio: %s
Recent posts:
%s

Return ONLY this JSON structure, no other text:
{
    "primary_interests": ["interest1", "interest2"],
    "content_style": "casual/professional/artistic",
    "preferred_formats": ["photos", "reels"],
    "audience_type": "target audience",
    "tone": "personal/inspirational/educational"
}`, clip(snap.Bio, maxBioChars), captionList(snap.Captions))
}

func matchPrompt(interests analysis.InterestProfile, hashtags []string) string {
	if len(hashtags) > maxHashtags {
		hashtags = hashtags[:maxHashtags]
	}
	return fmt.Sprintf(`Match trending hashtags to this Instagram user:

Interests: %s
Content style: %s
Audience: %s

Hashtags: %s

Return ONLY a JSON array of the best matches with integer scores 0-100:
[
    {"hashtag": "#fitness", "match_score": 85, "reasoning": "matches health interest"}
]
No extra text.`,
		strings.Join(interests.PrimaryInterests, ", "),
		interests.ContentStyle,
		interests.AudienceType,
		strings.Join(hashtags, ", "))
}

func suggestionsPrompt(interests analysis.InterestProfile, hashtag string) string {
	return fmt.Sprintf(`Generate 2-3 creative Instagram post ideas for the hashtag %s.

User style: %s
Tone: %s

Return ONLY this JSON structure, no other text:
{"trend_hashtag": "%s", "suggestions": ["post idea 1", "post idea 2"]}`,
		hashtag, interests.ContentStyle, interests.Tone, hashtag)
}

func captionList(captions []string) string {
	if len(captions) > maxCaptions {
		captions = captions[:maxCaptions]
	}
	var b strings.Builder
	for _, c := range captions {
		fmt.Fprintf(&b, "- %s\n", clip(c, maxCaptionChars))
	}
	if b.Len() == 0 {
		b.WriteString("- (no recent posts)\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
