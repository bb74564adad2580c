package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/aulaiot/attendance-backend/internal/domain/person"
	"github.com/aulaiot/attendance-backend/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type PersonHandler interface {
	Create(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	Update(w http.ResponseWriter, r *http.Request)
	Deactivate(w http.ResponseWriter, r *http.Request)
	Badge(w http.ResponseWriter, r *http.Request)
}

type personHandlerImpl struct {
	personService person.PersonService
}

func NewPersonHandler(personService person.PersonService) PersonHandler {
	return &personHandlerImpl{
		personService: personService,
	}
}

// Create implements PersonHandler.
func (h *personHandlerImpl) Create(w http.ResponseWriter, r *http.Request) {
	var req person.CreatePersonRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Failed to decode person request", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	created, err := h.personService.CreatePerson(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Person registered", created)
}

// List implements PersonHandler.
func (h *personHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := person.PersonFilter{}

	if role := query.Get("role"); role != "" {
		filter.Role = &role
	}
	if classroomID := query.Get("classroom_id"); classroomID != "" {
		filter.ClassroomID = &classroomID
	}
	if search := query.Get("search"); search != "" {
		filter.Search = &search
	}
	if active, err := strconv.ParseBool(query.Get("active")); err == nil {
		filter.Active = &active
	}
	if page, err := strconv.Atoi(query.Get("page")); err == nil && page > 0 {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(query.Get("limit")); err == nil && limit > 0 {
		filter.Limit = limit
	}

	results, err := h.personService.ListPersons(r.Context(), filter)
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

// Update implements PersonHandler.
func (h *personHandlerImpl) Update(w http.ResponseWriter, r *http.Request) {
	var req person.UpdatePersonRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Failed to decode person update", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.ID = chi.URLParam(r, "id")

	updated, err := h.personService.UpdatePerson(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Person updated", updated)
}

// Deactivate implements PersonHandler.
func (h *personHandlerImpl) Deactivate(w http.ResponseWriter, r *http.Request) {
	if err := h.personService.DeactivatePerson(r.Context(), chi.URLParam(r, "id")); err != nil {
		response.HandleError(w, err)
		return
	}
	response.NoContent(w)
}

// Get implements PersonHandler.
func (h *personHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.personService.GetPerson(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Success(w, p)
}

// Badge implements PersonHandler.
func (h *personHandlerImpl) Badge(w http.ResponseWriter, r *http.Request) {
	size := 256
	if s := r.URL.Query().Get("size"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n >= 64 && n <= 1024 {
			size = n
		}
	}

	badge, err := h.personService.GetBadge(r.Context(), chi.URLParam(r, "id"), size)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(badge.PNG); err != nil {
		slog.Warn("Failed to write badge", "error", err)
	}
}
