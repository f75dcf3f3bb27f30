// internal/service/refresher/refresher_test.go

package refresher

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"instatrends/internal/domain/trend"
)

type stubSource struct {
	mu      sync.Mutex
	records []trend.Record
	err     error
	calls   int
	block   chan struct{}
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) CurrentTrends(ctx context.Context) ([]trend.Record, error) {
	s.mu.Lock()
	s.calls++
	block := s.block
	s.mu.Unlock()

	if block != nil {
		<-block
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.records, nil
}

type countingStore struct {
	mu      sync.Mutex
	batches [][]trend.Record
	err     error
}

func (s *countingStore) UpsertTrends(ctx context.Context, records []trend.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.batches = append(s.batches, records)
	return nil
}

func (s *countingStore) upserts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.batches)
}

type recordingBus struct {
	mu       sync.Mutex
	subjects []string
}

func (b *recordingBus) Publish(subject string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subjects = append(b.subjects, subject)
	return nil
}

func sampleRecords() []trend.Record {
	return []trend.Record{
		{Hashtag: "#fitness", Caption: "sample", Likes: 10, FetchedAt: time.Now().UTC()},
		{Hashtag: "#travel", Caption: "sample", Likes: 20, FetchedAt: time.Now().UTC()},
	}
}

func newTestRefresher(source *stubSource, store *countingStore, bus EventPublisher) *Refresher {
	return New(source, store, bus, Config{
		Interval:   30 * time.Minute,
		MinSpacing: time.Hour,
		Topic:      "trends.refreshed",
	}, zap.NewNop())
}

func TestRefreshUpsertsAndPublishes(t *testing.T) {
	source := &stubSource{records: sampleRecords()}
	store := &countingStore{}
	bus := &recordingBus{}
	r := newTestRefresher(source, store, bus)

	require.NoError(t, r.TryRefresh(context.Background()))

	assert.Equal(t, 1, store.upserts())
	assert.Equal(t, []string{"trends.refreshed"}, bus.subjects)
	assert.False(t, r.LastRefresh().IsZero())
}

func TestRefreshSkippedWithinMinSpacing(t *testing.T) {
	source := &stubSource{records: sampleRecords()}
	store := &countingStore{}
	r := newTestRefresher(source, store, nil)

	now := time.Now()
	r.now = func() time.Time { return now }

	require.NoError(t, r.TryRefresh(context.Background()))
	require.NoError(t, r.TryRefresh(context.Background()))

	assert.Equal(t, 1, store.upserts(), "second tick inside min spacing must not refresh")

	// Past the spacing window the gate opens again.
	now = now.Add(time.Hour + time.Minute)
	require.NoError(t, r.TryRefresh(context.Background()))
	assert.Equal(t, 2, store.upserts())
}

func TestOverlappingTicksRunOneRefresh(t *testing.T) {
	block := make(chan struct{})
	source := &stubSource{records: sampleRecords(), block: block}
	store := &countingStore{}
	r := newTestRefresher(source, store, nil)

	var wg sync.WaitGroup
	wg.Add(2)
	for i := 0; i < 2; i++ {
		go func() {
			defer wg.Done()
			_ = r.TryRefresh(context.Background())
		}()
	}

	// Let both goroutines hit the gate, then release the in-flight fetch.
	time.Sleep(50 * time.Millisecond)
	close(block)
	wg.Wait()

	assert.Equal(t, 1, store.upserts(), "overlapping ticks must produce exactly one upsert batch")
	assert.Equal(t, 1, source.calls)
}

func TestFailedRefreshRetriesNextTick(t *testing.T) {
	source := &stubSource{err: fmt.Errorf("source down")}
	store := &countingStore{}
	r := newTestRefresher(source, store, nil)

	require.Error(t, r.TryRefresh(context.Background()))
	assert.True(t, r.LastRefresh().IsZero(), "failure must not advance the success timestamp")

	// Next tick is immediately eligible and succeeds.
	source.mu.Lock()
	source.err = nil
	source.records = sampleRecords()
	source.mu.Unlock()

	require.NoError(t, r.TryRefresh(context.Background()))
	assert.Equal(t, 1, store.upserts())
	assert.False(t, r.LastRefresh().IsZero())
}

func TestInvalidRecordsDropped(t *testing.T) {
	source := &stubSource{records: []trend.Record{
		{Hashtag: "#ok", Caption: "fine", FetchedAt: time.Now().UTC()},
		{Hashtag: "missing-marker", Caption: "bad"},
		{Hashtag: "#negative", Caption: "bad", Likes: -5},
	}}
	store := &countingStore{}
	r := newTestRefresher(source, store, nil)

	require.NoError(t, r.TryRefresh(context.Background()))

	require.Equal(t, 1, store.upserts())
	require.Len(t, store.batches[0], 1)
	assert.Equal(t, "#ok", store.batches[0][0].Hashtag)
}

func TestStoreFailureLeavesTimestampUntouched(t *testing.T) {
	source := &stubSource{records: sampleRecords()}
	store := &countingStore{err: fmt.Errorf("db down")}
	r := newTestRefresher(source, store, nil)

	require.Error(t, r.TryRefresh(context.Background()))
	assert.True(t, r.LastRefresh().IsZero())
}
