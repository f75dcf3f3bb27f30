// internal/server/handlers/health.go

package handlers

import (
	"context"
	"net/http"
	"time"
)

// Pinger reports storage connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RefreshStatus reports the refresh timer's last success.
type RefreshStatus interface {
	LastRefresh() time.Time
}

// BusStatus reports event bus connectivity. *nats.Conn satisfies it.
type BusStatus interface {
	IsConnected() bool
}

// HealthHandler reports service liveness and readiness.
type HealthHandler struct {
	db        Pinger
	bus       BusStatus
	refresher RefreshStatus
	source    string
	version   string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db Pinger, bus BusStatus, refresher RefreshStatus, source, version string) *HealthHandler {
	return &HealthHandler{db: db, bus: bus, refresher: refresher, source: source, version: version}
}

type healthResponse struct {
	Status      string `json:"status"`
	Database    string `json:"database"`
	EventBus    string `json:"event_bus"`
	TrendSource string `json:"trend_source"`
	LastRefresh string `json:"last_refresh,omitempty"`
}

// Root is the bare liveness endpoint.
func (h *HealthHandler) Root(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "Instagram Trend Suggester API is running",
		"version": h.version,
		"status":  "healthy",
	})
}

// Health is the detailed readiness endpoint, including the last successful
// trend refresh timestamp.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:      "running",
		Database:    "healthy",
		EventBus:    "connected",
		TrendSource: h.source,
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	code := http.StatusOK
	if err := h.db.Ping(ctx); err != nil {
		resp.Database = "error: " + err.Error()
		code = http.StatusServiceUnavailable
	}
	if h.bus != nil && !h.bus.IsConnected() {
		resp.EventBus = "disconnected"
	}
	if last := h.refresher.LastRefresh(); !last.IsZero() {
		resp.LastRefresh = last.UTC().Format(time.RFC3339)
	}

	respondWithJSON(w, code, resp)
}
