package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aulaiot/attendance-backend/internal/domain/attendance"
	"github.com/aulaiot/attendance-backend/internal/domain/classroom"
	"github.com/aulaiot/attendance-backend/internal/handler/http/middleware"
	"github.com/aulaiot/attendance-backend/internal/handler/http/response"
	"github.com/aulaiot/attendance-backend/internal/pkg/sse"
	"github.com/go-chi/chi/v5"
)

const keepaliveInterval = 30 * time.Second

// ScanSubscriber streams the scan events of one classroom.
type ScanSubscriber interface {
	Subscribe(classroomID string) (<-chan sse.Event, func())
}

type ClassroomHandler interface {
	List(w http.ResponseWriter, r *http.Request)
	Create(w http.ResponseWriter, r *http.Request)
	Window(w http.ResponseWriter, r *http.Request)
	Close(w http.ResponseWriter, r *http.Request)
	Events(w http.ResponseWriter, r *http.Request)
}

type classroomHandlerImpl struct {
	classroomService  classroom.ClassroomService
	attendanceService attendance.AttendanceService
	subscriber        ScanSubscriber
	now               func() time.Time
}

func NewClassroomHandler(classroomService classroom.ClassroomService, attendanceService attendance.AttendanceService, subscriber ScanSubscriber) ClassroomHandler {
	return &classroomHandlerImpl{
		classroomService:  classroomService,
		attendanceService: attendanceService,
		subscriber:        subscriber,
		now:               time.Now,
	}
}

// List implements ClassroomHandler.
func (h *classroomHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	classrooms, err := h.classroomService.ListClassrooms(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Success(w, classrooms)
}

// Create implements ClassroomHandler.
func (h *classroomHandlerImpl) Create(w http.ResponseWriter, r *http.Request) {
	var req classroom.CreateClassroomRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Failed to decode classroom request", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	created, err := h.classroomService.CreateClassroom(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Classroom created", created)
}

// Window implements ClassroomHandler.
func (h *classroomHandlerImpl) Window(w http.ResponseWriter, r *http.Request) {
	classroomID := chi.URLParam(r, "classroomID")

	window, err := h.attendanceService.GetWindow(r.Context(), classroomID, h.now())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, window)
}

// Close implements ClassroomHandler. The teacher is the token holder.
func (h *classroomHandlerImpl) Close(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Missing token claims")
		return
	}

	req := attendance.CloseSessionRequest{
		ClassroomID:     chi.URLParam(r, "classroomID"),
		TeacherIdentity: claims.Identity,
	}

	result, err := h.attendanceService.CloseSession(r.Context(), req, h.now())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, result.Message, result)
}

// Events implements ClassroomHandler. It streams scan outcomes of the
// classroom as server-sent events until the client goes away.
func (h *classroomHandlerImpl) Events(w http.ResponseWriter, r *http.Request) {
	classroomID := chi.URLParam(r, "classroomID")

	flusher, ok := w.(http.Flusher)
	if !ok {
		response.InternalServerError(w, "Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	events, cleanup := h.subscriber.Subscribe(classroomID)
	defer cleanup()

	fmt.Fprintf(w, "event: connected\ndata: {\"classroom_id\":%q}\n\n", classroomID)
	flusher.Flush()

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(event.Data)
			if err != nil {
				slog.Warn("Failed to encode scan event", "classroom_id", classroomID, "error", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Event, data)
			flusher.Flush()

		case <-keepalive.C:
			fmt.Fprintf(w, "event: ping\ndata: {\"timestamp\":%d}\n\n", h.now().Unix())
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
