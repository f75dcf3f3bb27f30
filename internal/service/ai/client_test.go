// internal/service/ai/client_test.go

package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"instatrends/internal/domain/analysis"
	"instatrends/internal/domain/profile"
	"instatrends/internal/domain/trend"
)

// modelStub serves the chat-completions endpoint, returning canned message
// contents in order. The last response repeats once exhausted.
type modelStub struct {
	mu        sync.Mutex
	responses []string
	statuses  []int
	calls     int
}

func (m *modelStub) handler(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	i := m.calls
	m.calls++
	m.mu.Unlock()

	if i < len(m.statuses) && m.statuses[i] != http.StatusOK {
		w.WriteHeader(m.statuses[i])
		w.Write([]byte(`{"error":{"message":"upstream failure","type":"server_error"}}`))
		return
	}

	content := m.responses[len(m.responses)-1]
	if i < len(m.responses) {
		content = m.responses[i]
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"model":   "gpt-4o-mini",
		"choices": []map[string]interface{}{{
			"index":         0,
			"finish_reason": "stop",
			"message": map[string]string{
				"role":    "assistant",
				"content": content,
			},
		}},
	})
}

func (m *modelStub) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func newTestClient(t *testing.T, stub *modelStub) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(stub.handler))
	t.Cleanup(srv.Close)

	return NewClient(Config{
		APIKey:        "test-key",
		BaseURL:       srv.URL + "/v1",
		Model:         "gpt-4o-mini",
		MaxAttempts:   3,
		RetryBaseWait: time.Millisecond,
	}, zap.NewNop())
}

func snapshot() profile.Snapshot {
	return profile.Snapshot{
		Username: "techfan42",
		Bio:      "Gadget reviews daily",
		Captions: []string{"New phone teardown"},
	}
}

func interestsJSON() string {
	return `{"primary_interests":["technology"],"content_style":"casual","preferred_formats":["reels"],"audience_type":"tech fans","tone":"educational"}`
}

func TestExtractInterests(t *testing.T) {
	stub := &modelStub{responses: []string{interestsJSON()}}
	c := newTestClient(t, stub)

	got, err := c.ExtractInterests(context.Background(), snapshot())
	require.NoError(t, err)
	assert.Equal(t, []string{"technology"}, got.PrimaryInterests)
	assert.Equal(t, "casual", got.ContentStyle)
	assert.Equal(t, 1, stub.callCount())
}

func TestExtractInterestsStripsMarkdownFences(t *testing.T) {
	stub := &modelStub{responses: []string{"```json\n" + interestsJSON() + "\n```"}}
	c := newTestClient(t, stub)

	got, err := c.ExtractInterests(context.Background(), snapshot())
	require.NoError(t, err)
	assert.Equal(t, []string{"technology"}, got.PrimaryInterests)
}

func TestExtractInterestsRetriesMalformedOutput(t *testing.T) {
	stub := &modelStub{responses: []string{
		"Sure! Here are the interests you asked for.",
		interestsJSON(),
	}}
	c := newTestClient(t, stub)

	got, err := c.ExtractInterests(context.Background(), snapshot())
	require.NoError(t, err)
	assert.Equal(t, []string{"technology"}, got.PrimaryInterests)
	assert.Equal(t, 2, stub.callCount())
}

func TestExtractInterestsExhaustionIsExtractionFailure(t *testing.T) {
	stub := &modelStub{responses: []string{"not json"}}
	c := newTestClient(t, stub)

	_, err := c.ExtractInterests(context.Background(), snapshot())
	var aerr *analysis.Error
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, analysis.KindAIExtractionFailed, aerr.Kind)
	assert.False(t, aerr.Transient)
	assert.Equal(t, 3, stub.callCount())
}

func TestTransportFailureIsTransientServiceError(t *testing.T) {
	stub := &modelStub{
		responses: []string{interestsJSON()},
		statuses:  []int{500, 500, 500},
	}
	c := newTestClient(t, stub)

	_, err := c.ExtractInterests(context.Background(), snapshot())
	var aerr *analysis.Error
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, analysis.KindAIServiceError, aerr.Kind)
	assert.True(t, aerr.Transient)
}

func TestTransportFailureThenRecovery(t *testing.T) {
	stub := &modelStub{
		responses: []string{interestsJSON(), interestsJSON()},
		statuses:  []int{500, http.StatusOK},
	}
	c := newTestClient(t, stub)

	_, err := c.ExtractInterests(context.Background(), snapshot())
	require.NoError(t, err)
	assert.Equal(t, 2, stub.callCount())
}

func TestMatchTrendsClampsAndDropsDangling(t *testing.T) {
	stub := &modelStub{responses: []string{
		`[
			{"hashtag":"#technology","match_score":150,"reasoning":"over"},
			{"hashtag":"#unknown","match_score":90,"reasoning":"hallucinated"},
			{"hashtag":"#fitness","match_score":-3,"reasoning":"under"}
		]`,
	}}
	c := newTestClient(t, stub)

	records := []trend.Record{
		{Hashtag: "#technology", Caption: "x", FetchedAt: time.Now()},
		{Hashtag: "#fitness", Caption: "y", FetchedAt: time.Now()},
	}
	matches, err := c.MatchTrends(context.Background(), analysis.InterestProfile{PrimaryInterests: []string{"tech"}}, records)
	require.NoError(t, err)

	require.Len(t, matches, 2)
	assert.Equal(t, 100, matches[0].MatchScore)
	assert.Equal(t, 0, matches[1].MatchScore)
}

func TestMatchTrendsCanonicalizesCasing(t *testing.T) {
	stub := &modelStub{responses: []string{
		`[{"hashtag":"#Technology","match_score":88,"reasoning":"echoed with different casing"}]`,
	}}
	c := newTestClient(t, stub)

	records := []trend.Record{
		{Hashtag: "#technology", Caption: "x", FetchedAt: time.Now()},
	}
	matches, err := c.MatchTrends(context.Background(), analysis.InterestProfile{PrimaryInterests: []string{"tech"}}, records)
	require.NoError(t, err)

	require.Len(t, matches, 1)
	assert.Equal(t, "#technology", matches[0].Hashtag)
}

func TestMatchTrendsEmptyTrendSet(t *testing.T) {
	stub := &modelStub{responses: []string{"[]"}}
	c := newTestClient(t, stub)

	matches, err := c.MatchTrends(context.Background(), analysis.InterestProfile{}, nil)
	require.NoError(t, err)
	assert.Empty(t, matches)
	assert.Equal(t, 0, stub.callCount(), "no model call without trends to match")
}

func TestGenerateSuggestions(t *testing.T) {
	stub := &modelStub{responses: []string{
		`{"trend_hashtag":"#technology","suggestions":["idea one","idea two"]}`,
	}}
	c := newTestClient(t, stub)

	got, err := c.GenerateSuggestions(context.Background(), analysis.InterestProfile{Tone: "casual"}, "#technology")
	require.NoError(t, err)
	assert.Equal(t, "#technology", got.TrendHashtag)
	assert.Len(t, got.Suggestions, 2)
}

func TestGenerateSuggestionsFillsMissingHashtag(t *testing.T) {
	stub := &modelStub{responses: []string{
		`{"suggestions":["idea one"]}`,
	}}
	c := newTestClient(t, stub)

	got, err := c.GenerateSuggestions(context.Background(), analysis.InterestProfile{}, "#travel")
	require.NoError(t, err)
	assert.Equal(t, "#travel", got.TrendHashtag)
}

func TestCleanResponse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"padded", "  {\"a\":1}\n", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanResponse(tt.in))
		})
	}
}

func TestContextCancellationSurfacesTransient(t *testing.T) {
	stub := &modelStub{responses: []string{"not json"}}
	c := newTestClient(t, stub)
	c.cfg.RetryBaseWait = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := c.ExtractInterests(ctx, snapshot())
	require.Error(t, err)

	var aerr *analysis.Error
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, analysis.KindAIServiceError, aerr.Kind)
}

func TestPromptsBoundInputSizes(t *testing.T) {
	longBio := make([]byte, 1000)
	for i := range longBio {
		longBio[i] = 'a'
	}
	snap := profile.Snapshot{Username: "u", Bio: string(longBio), Captions: []string{"c1", "c2", "c3", "c4", "c5"}}

	prompt := interestsPrompt(snap)
	assert.Less(t, len(prompt), 1500)

	tags := make([]string, 0, 30)
	for i := 0; i < 30; i++ {
		tags = append(tags, fmt.Sprintf("#tag%d", i))
	}
	matchPromptText := matchPrompt(analysis.InterestProfile{PrimaryInterests: []string{"tech"}}, tags)
	assert.NotContains(t, matchPromptText, "#tag15", "hashtag list is truncated")
}
