package profile

import (
	"context"
	"errors"
	"time"
)

// Snapshot is the bio and recent captions fetched for one username at one
// point in time. Immutable once returned by a Source.
type Snapshot struct {
	Username  string    `json:"username"`
	Bio       string    `json:"bio"`
	Captions  []string  `json:"captions"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Fetch failure kinds. Callers branch on these with errors.Is; the HTTP layer
// maps them to status codes.
var (
	ErrNotFound    = errors.New("profile not found")
	ErrPrivate     = errors.New("profile is private")
	ErrRateLimited = errors.New("profile source rate limited")
	ErrUnavailable = errors.New("profile source unavailable")
)

// Source fetches profile data for a username. numPosts bounds the number of
// recent captions returned.
type Source interface {
	Fetch(ctx context.Context, username string, numPosts int) (Snapshot, error)
}

// Empty reports whether the snapshot carries no usable text.
func (s Snapshot) Empty() bool {
	if s.Bio != "" {
		return false
	}
	for _, c := range s.Captions {
		if c != "" {
			return false
		}
	}
	return true
}
