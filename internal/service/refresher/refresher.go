// internal/service/refresher/refresher.go

package refresher

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"instatrends/internal/domain/trend"
)

// TrendStore is the storage surface the refresher writes through.
type TrendStore interface {
	UpsertTrends(ctx context.Context, records []trend.Record) error
}

// EventPublisher publishes refresh events. *nats.Conn satisfies it.
type EventPublisher interface {
	Publish(subject string, data []byte) error
}

// Config contains refresher configuration.
type Config struct {
	Interval   time.Duration
	MinSpacing time.Duration
	Topic      string
}

// Refresher periodically pulls the trend source and upserts the results.
// A tick refreshes only when no refresh is in flight AND the last successful
// refresh is at least MinSpacing old, so overlapping timers never run two
// refreshes concurrently or redundantly.
type Refresher struct {
	source trend.Source
	store  TrendStore
	bus    EventPublisher
	cfg    Config
	logger *zap.Logger

	mu          sync.Mutex
	refreshing  bool
	lastSuccess time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup

	now func() time.Time
}

// refreshedEvent is the payload published after a successful refresh batch.
type refreshedEvent struct {
	Source      string    `json:"source"`
	Count       int       `json:"count"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

// New creates a refresher.
func New(source trend.Source, store TrendStore, bus EventPublisher, cfg Config, logger *zap.Logger) *Refresher {
	return &Refresher{
		source: source,
		store:  store,
		bus:    bus,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Start runs one immediate refresh to populate data, then ticks at the
// configured interval until the context is cancelled or Stop is called.
func (r *Refresher) Start(ctx context.Context) error {
	ctx, r.cancel = context.WithCancel(ctx)

	if err := r.TryRefresh(ctx); err != nil {
		// Startup refresh failure is not fatal; the next tick retries.
		r.logger.Warn("initial trend refresh failed", zap.Error(err))
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ticker := time.NewTicker(r.cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := r.TryRefresh(ctx); err != nil {
					r.logger.Error("trend refresh failed", zap.Error(err))
				}
			}
		}
	}()

	return nil
}

// Stop cancels the refresh loop and waits for it to finish.
func (r *Refresher) Stop(ctx context.Context) error {
	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryRefresh performs one gated refresh. A skipped tick (already refreshing,
// or last success too recent) returns nil.
func (r *Refresher) TryRefresh(ctx context.Context) error {
	if !r.begin() {
		r.logger.Debug("skipping trend refresh",
			zap.Time("last_success", r.LastRefresh()))
		return nil
	}

	records, err := r.source.CurrentTrends(ctx)
	if err != nil {
		r.end(false)
		return err
	}

	valid := records[:0]
	for _, rec := range records {
		if err := rec.Validate(); err != nil {
			r.logger.Warn("dropping invalid trend record", zap.Error(err))
			continue
		}
		valid = append(valid, rec)
	}

	if err := r.store.UpsertTrends(ctx, valid); err != nil {
		r.end(false)
		return err
	}

	r.end(true)
	r.logger.Info("trend data refreshed",
		zap.String("source", r.source.Name()),
		zap.Int("count", len(valid)))

	r.publish(len(valid))
	return nil
}

// LastRefresh returns the time of the last successful refresh, zero if none.
func (r *Refresher) LastRefresh() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastSuccess
}

// begin transitions Idle -> Refreshing when both gates pass.
func (r *Refresher) begin() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.refreshing {
		return false
	}
	if !r.lastSuccess.IsZero() && r.now().Sub(r.lastSuccess) < r.cfg.MinSpacing {
		return false
	}
	r.refreshing = true
	return true
}

// end transitions Refreshing -> Idle, recording the success timestamp only
// when the refresh completed, so a failed run is retried on the next tick.
func (r *Refresher) end(success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.refreshing = false
	if success {
		r.lastSuccess = r.now()
	}
}

func (r *Refresher) publish(count int) {
	if r.bus == nil || r.cfg.Topic == "" {
		return
	}
	data, err := json.Marshal(refreshedEvent{
		Source:      r.source.Name(),
		Count:       count,
		RefreshedAt: r.LastRefresh(),
	})
	if err != nil {
		return
	}
	if err := r.bus.Publish(r.cfg.Topic, data); err != nil {
		r.logger.Warn("publishing refresh event failed", zap.Error(err))
	}
}
