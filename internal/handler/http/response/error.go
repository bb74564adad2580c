package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/aulaiot/attendance-backend/internal/domain/attendance"
	"github.com/aulaiot/attendance-backend/internal/domain/auth"
	"github.com/aulaiot/attendance-backend/internal/domain/classroom"
	"github.com/aulaiot/attendance-backend/internal/domain/person"
	"github.com/aulaiot/attendance-backend/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Auth domain errors
	case errors.Is(err, auth.ErrInvalidCredentials):
		Unauthorized(w, err.Error())
	case errors.Is(err, auth.ErrInvalidToken):
		Unauthorized(w, "Invalid or expired token")
	case errors.Is(err, auth.ErrAccountDisabled):
		Forbidden(w, "Account is disabled")

	// Collaborators first: a wrapped dependency failure may carry any cause
	case errors.Is(err, attendance.ErrDependencyUnavailable):
		slog.Error("Attendance dependency unavailable", "error", err)
		ServiceUnavailable(w, "Attendance service temporarily unavailable")

	// Scan errors
	case errors.Is(err, attendance.ErrMalformedPayload):
		BadRequest(w, "Scan payload could not be decoded", nil)
	case errors.Is(err, person.ErrPersonNotFound):
		NotFound(w, "Person not found")
	case errors.Is(err, person.ErrRoleNotPermitted):
		Forbidden(w, "Role is not permitted to register attendance")
	case errors.Is(err, attendance.ErrDuplicateEntry),
		errors.Is(err, attendance.ErrDuplicateRecord):
		Conflict(w, "Attendance already registered today")
	case errors.Is(err, attendance.ErrWindowNotActive):
		Forbidden(w, "No active attendance window for this classroom")
	case errors.Is(err, attendance.ErrClassroomNotAssigned):
		Forbidden(w, "Person has no classroom assigned")
	case errors.Is(err, attendance.ErrClassroomMismatch):
		Forbidden(w, "Teacher is not assigned to this classroom")
	case errors.Is(err, attendance.ErrSessionNotOpen):
		Conflict(w, "Teacher has no open session today")
	case errors.Is(err, attendance.ErrWindowAlreadyOpen):
		Conflict(w, "Another teacher holds the open window for this classroom")

	// Ledger errors
	case errors.Is(err, attendance.ErrRecordNotFound):
		NotFound(w, "Attendance record not found")
	case errors.Is(err, attendance.ErrInvalidStatusTransition):
		Conflict(w, "Attendance status cannot be changed")

	// Classroom domain errors
	case errors.Is(err, classroom.ErrClassroomNotFound):
		NotFound(w, "Classroom not found")
	case errors.Is(err, classroom.ErrDeviceNotRegistered):
		Forbidden(w, "Device is not registered to any classroom")
	case errors.Is(err, classroom.ErrDeviceExists):
		Conflict(w, "Device is already bound to a classroom")
	case errors.Is(err, person.ErrIdentityExists):
		Conflict(w, "Identity already registered")
	case errors.Is(err, person.ErrEmailExists):
		Conflict(w, "Email already registered")

	// Default
	default:
		slog.Error("Unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}
