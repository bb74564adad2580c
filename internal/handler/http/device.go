package http

import (
	"net/http"

	"github.com/aulaiot/attendance-backend/internal/handler/http/response"
	"github.com/aulaiot/attendance-backend/internal/service/feed"
	"github.com/go-chi/chi/v5"
)

// FeedbackSource hands out the pending feedback of a scanning station.
type FeedbackSource interface {
	Take(deviceID string) (feed.DeviceFeedback, bool)
}

type DeviceHandler interface {
	Feedback(w http.ResponseWriter, r *http.Request)
}

type deviceHandlerImpl struct {
	source FeedbackSource
}

func NewDeviceHandler(source FeedbackSource) DeviceHandler {
	return &deviceHandlerImpl{source: source}
}

// Feedback implements DeviceHandler. Stations poll it after each scan and
// get 204 while nothing is pending.
func (h *deviceHandlerImpl) Feedback(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceID")

	fb, ok := h.source.Take(deviceID)
	if !ok {
		response.NoContent(w)
		return
	}

	response.Success(w, fb)
}
