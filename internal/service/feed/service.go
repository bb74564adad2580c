package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aulaiot/attendance-backend/internal/domain/attendance"
	"github.com/aulaiot/attendance-backend/internal/pkg/sse"
)

// EventScan is the SSE event name of scan outcomes.
const EventScan = "scan"

const defaultFeedbackTTL = 30 * time.Second

// DeviceFeedback is the signal a scanning station shows after a scan.
type DeviceFeedback struct {
	DeviceID string             `json:"device_id"`
	Outcome  attendance.Outcome `json:"status"`
	Message  string             `json:"message"`
	At       time.Time          `json:"at"`
}

// Feed publishes scan outcomes to classroom subscribers and keeps the
// pending feedback of each station until it is polled.
type Feed struct {
	hub *sse.Hub
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	pending map[string]pendingFeedback
}

type pendingFeedback struct {
	DeviceFeedback
	storedAt time.Time
}

func NewFeed(hub *sse.Hub, ttl time.Duration) *Feed {
	if ttl <= 0 {
		ttl = defaultFeedbackTTL
	}
	return &Feed{
		hub:     hub,
		ttl:     ttl,
		now:     time.Now,
		pending: make(map[string]pendingFeedback),
	}
}

// PublishScan implements attendance.ScanPublisher.
func (f *Feed) PublishScan(ctx context.Context, event attendance.ScanEvent) {
	if event.DeviceID != nil && *event.DeviceID != "" {
		f.mu.Lock()
		f.pruneLocked()
		f.pending[*event.DeviceID] = pendingFeedback{
			DeviceFeedback: DeviceFeedback{
				DeviceID: *event.DeviceID,
				Outcome:  event.Outcome,
				Message:  event.Message,
				At:       event.At,
			},
			storedAt: f.now(),
		}
		f.mu.Unlock()
	}

	if event.ClassroomID == "" {
		return
	}
	delivered := f.hub.Publish(event.ClassroomID, sse.Event{Event: EventScan, Data: event})
	slog.Debug("Scan event published", "classroom_id", event.ClassroomID, "outcome", event.Outcome, "subscribers", delivered)
}

// pruneLocked drops feedback no station polled within the TTL. f.mu must be held.
func (f *Feed) pruneLocked() {
	now := f.now()
	for id, fb := range f.pending {
		if now.Sub(fb.storedAt) > f.ttl {
			delete(f.pending, id)
		}
	}
}

// Take returns and clears the station's pending feedback. Feedback stored
// longer than the TTL ago is discarded.
func (f *Feed) Take(deviceID string) (DeviceFeedback, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	fb, ok := f.pending[deviceID]
	if !ok {
		return DeviceFeedback{}, false
	}
	delete(f.pending, deviceID)

	if f.now().Sub(fb.storedAt) > f.ttl {
		return DeviceFeedback{}, false
	}
	return fb.DeviceFeedback, true
}

// Subscribe streams the scan events of a classroom.
func (f *Feed) Subscribe(classroomID string) (<-chan sse.Event, func()) {
	return f.hub.Subscribe(classroomID)
}
