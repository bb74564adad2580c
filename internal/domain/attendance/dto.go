package attendance

import (
	"strings"

	"github.com/aulaiot/attendance-backend/internal/pkg/validator"
)

// ========================================
// SCAN DTOs
// ========================================

type ScanRequest struct {
	Payload  string  `json:"payload" validate:"notblank,max=512"`
	DeviceID *string `json:"device_id,omitempty" validate:"omitempty,max=50"`
}

func (r *ScanRequest) Validate() error {
	return validator.Struct(r)
}

type CloseSessionRequest struct {
	ClassroomID     string `json:"-" validate:"notblank"`
	TeacherIdentity string `json:"-" validate:"required,identity"`
}

func (r *CloseSessionRequest) Validate() error {
	return validator.Struct(r)
}

type ScanResult struct {
	Record     RecordResponse  `json:"record"`
	Window     *WindowResponse `json:"window,omitempty"`
	Reconciled int             `json:"absences_recorded,omitempty"`
	Outcome    Outcome         `json:"outcome"`
	Message    string          `json:"message"`
}

type RecordResponse struct {
	ID             string  `json:"id"`
	PersonID       string  `json:"person_id"`
	PersonName     *string `json:"person_name,omitempty"`
	PersonIdentity *string `json:"person_identity,omitempty"`
	Role           string  `json:"role"`
	ClassroomID    string  `json:"classroom_id"`
	Type           string  `json:"type"`
	Status         string  `json:"status"`
	Date           string  `json:"date"`
	Time           string  `json:"time"`
	DeviceID       *string `json:"device_id,omitempty"`
	Note           *string `json:"note,omitempty"`
	CreatedAt      string  `json:"created_at"`
}

type WindowResponse struct {
	ClassroomID string `json:"classroom_id"`
	Open        bool   `json:"open"`
	Active      bool   `json:"active"`
	TeacherID   string `json:"teacher_id,omitempty"`
	OpensAt     string `json:"opens_at,omitempty"`
	LateCutoff  string `json:"late_cutoff,omitempty"`
	ClosesAt    string `json:"closes_at,omitempty"`
}

// ========================================
// LEDGER DTOs
// ========================================

type RecordFilter struct {
	// Search & Filter
	PersonID    *string `json:"person_id,omitempty"`
	ClassroomID *string `json:"classroom_id,omitempty"`
	Search      *string `json:"search,omitempty"`     // name or identity
	Date        *string `json:"date,omitempty"`       // YYYY-MM-DD
	StartDate   *string `json:"start_date,omitempty"` // YYYY-MM-DD
	EndDate     *string `json:"end_date,omitempty"`   // YYYY-MM-DD
	Role        *string `json:"role,omitempty"`
	Type        *string `json:"type,omitempty"`
	Status      *string `json:"status,omitempty"`

	// Pagination
	Page  int `json:"page"`
	Limit int `json:"limit"`

	// Sorting
	SortBy    string `json:"sort_by"`    // date, scanned_at, status, person_name
	SortOrder string `json:"sort_order"` // asc, desc
}

func (f *RecordFilter) Validate() error {
	var errs validator.ValidationErrors

	if f.Page < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "page",
			Message: "page must be a positive number",
		})
	}
	if f.Page == 0 {
		f.Page = 1
	}

	if f.Limit < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "limit",
			Message: "limit must be a positive number",
		})
	}
	if f.Limit == 0 {
		f.Limit = 20
	}
	if f.Limit > 1000 {
		errs = append(errs, validator.ValidationError{
			Field:   "limit",
			Message: "limit must not exceed 1000",
		})
	}

	if f.Status != nil && !Status(*f.Status).IsValid() {
		errs = append(errs, validator.ValidationError{
			Field:   "status",
			Message: "status must be one of: on_time, late, absent, justified, completed",
		})
	}

	if f.Type != nil && !RecordType(*f.Type).IsValid() {
		errs = append(errs, validator.ValidationError{
			Field:   "type",
			Message: "type must be one of: entry, exit",
		})
	}

	if f.Role != nil && !validator.IsInSlice(*f.Role, []string{"student", "teacher"}) {
		errs = append(errs, validator.ValidationError{
			Field:   "role",
			Message: "role must be one of: student, teacher",
		})
	}

	for field, value := range map[string]*string{"date": f.Date, "start_date": f.StartDate, "end_date": f.EndDate} {
		if value != nil && *value != "" {
			if _, valid := validator.IsValidDate(*value); !valid {
				errs = append(errs, validator.ValidationError{
					Field:   field,
					Message: field + " must be in YYYY-MM-DD format",
				})
			}
		}
	}

	if f.SortBy != "" {
		validSortFields := []string{"date", "scanned_at", "status", "person_name"}
		if !validator.IsInSlice(f.SortBy, validSortFields) {
			errs = append(errs, validator.ValidationError{
				Field:   "sort_by",
				Message: "sort_by must be one of: date, scanned_at, status, person_name",
			})
		}
	} else {
		f.SortBy = "scanned_at"
	}

	if f.SortOrder != "" {
		if !validator.IsInSlice(strings.ToLower(f.SortOrder), []string{"asc", "desc"}) {
			errs = append(errs, validator.ValidationError{
				Field:   "sort_order",
				Message: "sort_order must be one of: asc, desc",
			})
		}
	} else {
		f.SortOrder = "desc"
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type ListRecordResponse struct {
	TotalCount int64            `json:"total_count"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
	TotalPages int              `json:"total_pages"`
	Showing    string           `json:"showing"`
	Records    []RecordResponse `json:"records"`
}

// JustifyRequest is submitted by the justification workflow once a supporting
// document was accepted for the record.
type JustifyRequest struct {
	ID     string `json:"-"`
	Reason string `json:"reason" validate:"notblank,max=500"`
}

func (r *JustifyRequest) Validate() error {
	return validator.Struct(r)
}
