package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/aulaiot/attendance-backend/internal/handler/http/response"
)

// Pinger checks that the backing store answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a plain function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type StatusHandler interface {
	Status(w http.ResponseWriter, r *http.Request)
}

type statusHandlerImpl struct {
	db        Pinger
	version   string
	startedAt time.Time
}

func NewStatusHandler(db Pinger, version string) StatusHandler {
	return &statusHandlerImpl{
		db:        db,
		version:   version,
		startedAt: time.Now(),
	}
}

type statusResponse struct {
	Status        string `json:"status"`
	Database      string `json:"database"`
	Version       string `json:"version"`
	ServerTime    string `json:"server_time"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// Status implements StatusHandler.
func (h *statusHandlerImpl) Status(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		slog.Error("Database ping failed", "error", err)
		response.ServiceUnavailable(w, "Database unavailable")
		return
	}

	response.Success(w, statusResponse{
		Status:        "ok",
		Database:      "connected",
		Version:       h.version,
		ServerTime:    time.Now().Format(time.RFC3339),
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
	})
}
