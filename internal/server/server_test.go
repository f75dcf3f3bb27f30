// internal/server/server_test.go

package server

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"instatrends/internal/config"
	"instatrends/internal/domain/analysis"
	"instatrends/internal/domain/profile"
	"instatrends/internal/domain/trend"
)

type deadlineService struct {
	hadDeadline bool
	deadline    time.Time
}

func (s *deadlineService) Analyze(ctx context.Context, username string, numPosts int) (analysis.Result, error) {
	s.deadline, s.hadDeadline = ctx.Deadline()
	return analysis.Result{Username: username}, nil
}

func (s *deadlineService) AnalyzeSnapshot(ctx context.Context, snap profile.Snapshot) (analysis.Result, error) {
	return analysis.Result{Username: snap.Username}, nil
}

func (s *deadlineService) Suggestions(ctx context.Context, username string) (analysis.Result, error) {
	return analysis.Result{Username: username}, nil
}

func (s *deadlineService) Trends(ctx context.Context, limit int) ([]trend.Record, error) {
	return nil, nil
}

type okPinger struct{}

func (okPinger) Ping(ctx context.Context) error { return nil }

type noRefresh struct{}

func (noRefresh) LastRefresh() time.Time { return time.Time{} }

func TestRequestContextCarriesDeadline(t *testing.T) {
	svc := &deadlineService{}
	srv := NewServer(config.ServerConfig{
		Host:         "127.0.0.1",
		Port:         0,
		WriteTimeout: 2 * time.Minute,
		CorsOrigins:  []string{"*"},
	}, Deps{
		Service:   svc,
		DB:        okPinger{},
		Refresher: noRefresh{},
		Source:    "static",
		Logger:    zap.NewNop(),
	})

	req := httptest.NewRequest(http.MethodPost, "/analyze-profile", bytes.NewBufferString(`{"username":"techfan42"}`))
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, svc.hadDeadline, "handler context must carry a deadline")
	assert.WithinDuration(t, time.Now().Add(2*time.Minute), svc.deadline, 5*time.Second)
}

func TestRoutesWired(t *testing.T) {
	srv := NewServer(config.ServerConfig{
		WriteTimeout: time.Minute,
		CorsOrigins:  []string{"*"},
	}, Deps{
		Service:   &deadlineService{},
		DB:        okPinger{},
		Refresher: noRefresh{},
		Source:    "static",
		Logger:    zap.NewNop(),
	})

	tests := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodGet, "/", ""},
		{http.MethodGet, "/trends", ""},
		{http.MethodGet, "/suggestions/techfan42", ""},
		{http.MethodPost, "/analyze-profile", `{"username":"u"}`},
		{http.MethodPost, "/demo-analysis", ""},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()
			srv.router.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusOK, rec.Code)
		})
	}
}
