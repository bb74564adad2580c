package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/aulaiot/attendance-backend/internal/domain/attendance"
	"github.com/aulaiot/attendance-backend/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

// ScanObserver records the outcome and latency of each processed scan.
type ScanObserver interface {
	ObserveScan(outcome string, elapsed time.Duration)
}

type AttendanceHandler interface {
	Submit(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	Export(w http.ResponseWriter, r *http.Request)
	Justify(w http.ResponseWriter, r *http.Request)
}

type attendanceHandlerImpl struct {
	attendanceService attendance.AttendanceService
	observer          ScanObserver
}

func NewAttendanceHandler(attendanceService attendance.AttendanceService, observer ScanObserver) AttendanceHandler {
	return &attendanceHandlerImpl{
		attendanceService: attendanceService,
		observer:          observer,
	}
}

// Submit implements AttendanceHandler.
func (h *attendanceHandlerImpl) Submit(w http.ResponseWriter, r *http.Request) {
	var req attendance.ScanRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Failed to decode scan request", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	start := time.Now()
	result, err := h.attendanceService.SubmitScan(r.Context(), req)
	if err != nil {
		h.observe(attendance.FailureOutcome(err), start)
		slog.Info("Scan rejected", "device_id", req.DeviceID, "error", err)
		response.HandleError(w, err)
		return
	}
	h.observe(result.Outcome, start)

	response.Created(w, result.Message, result)
}

func (h *attendanceHandlerImpl) observe(outcome attendance.Outcome, start time.Time) {
	if h.observer != nil {
		h.observer.ObserveScan(string(outcome), time.Since(start))
	}
}

// parseRecordFilter reads the ledger query parameters shared by List and Export.
func parseRecordFilter(r *http.Request) attendance.RecordFilter {
	query := r.URL.Query()
	filter := attendance.RecordFilter{}

	optional := func(name string) *string {
		if value := query.Get(name); value != "" {
			return &value
		}
		return nil
	}

	filter.PersonID = optional("person_id")
	filter.ClassroomID = optional("classroom_id")
	filter.Search = optional("search")
	filter.Date = optional("date")
	filter.StartDate = optional("start_date")
	filter.EndDate = optional("end_date")
	filter.Role = optional("role")
	filter.Type = optional("type")
	filter.Status = optional("status")

	// Pagination
	page := 1
	if p := query.Get("page"); p != "" {
		if pageNum, err := strconv.Atoi(p); err == nil && pageNum > 0 {
			page = pageNum
		}
	}
	filter.Page = page

	limit := 20
	if l := query.Get("limit"); l != "" {
		if limitNum, err := strconv.Atoi(l); err == nil && limitNum > 0 {
			limit = limitNum
		}
	}
	filter.Limit = limit

	// Sorting
	filter.SortBy = query.Get("sort_by")
	filter.SortOrder = query.Get("sort_order")

	return filter
}

// List implements AttendanceHandler.
func (h *attendanceHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	filter := parseRecordFilter(r)

	if err := filter.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	results, err := h.attendanceService.ListRecords(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, results, &response.Meta{
		Page:       results.Page,
		Limit:      results.Limit,
		TotalItems: results.TotalCount,
		TotalPages: results.TotalPages,
		Showing:    results.Showing,
	})
}

// Get implements AttendanceHandler.
func (h *attendanceHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	record, err := h.attendanceService.GetRecord(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, record)
}

// Export implements AttendanceHandler.
func (h *attendanceHandlerImpl) Export(w http.ResponseWriter, r *http.Request) {
	filter := parseRecordFilter(r)

	if err := filter.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	out := &csvWriter{
		w:        w,
		filename: fmt.Sprintf("attendance-%s.csv", time.Now().Format("20060102-150405")),
	}
	if err := h.attendanceService.ExportCSV(r.Context(), filter, out); err != nil {
		if !out.started {
			response.HandleError(w, err)
			return
		}
		slog.Error("Attendance export aborted mid-stream", "error", err)
	}
}

// csvWriter sets the download headers on the first write, so an export that
// fails before producing output can still answer with an error body.
type csvWriter struct {
	w        http.ResponseWriter
	filename string
	started  bool
}

func (c *csvWriter) Write(p []byte) (int, error) {
	if !c.started {
		c.started = true
		c.w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		c.w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", c.filename))
	}
	return c.w.Write(p)
}

// Justify implements AttendanceHandler.
func (h *attendanceHandlerImpl) Justify(w http.ResponseWriter, r *http.Request) {
	var req attendance.JustifyRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Failed to decode justify request", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.ID = chi.URLParam(r, "id")

	record, err := h.attendanceService.JustifyRecord(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Attendance record justified", record)
}
