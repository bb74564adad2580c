package attendance

import "errors"

// Attendance domain errors
var (
	// Scan errors
	ErrMalformedPayload     = errors.New("scan payload could not be decoded")
	ErrDuplicateEntry       = errors.New("attendance already registered today")
	ErrWindowNotActive      = errors.New("no active attendance window for this classroom")
	ErrClassroomNotAssigned = errors.New("person has no classroom assigned")
	ErrSessionNotOpen       = errors.New("teacher has no open session today")
	ErrClassroomMismatch    = errors.New("teacher is not assigned to this classroom")
	ErrWindowAlreadyOpen    = errors.New("another teacher holds the open window for this classroom")

	// Collaborator errors
	ErrDependencyUnavailable = errors.New("attendance dependency unavailable")
	ErrDuplicateRecord       = errors.New("attendance record already exists")

	// General errors
	ErrRecordNotFound          = errors.New("attendance record not found")
	ErrInvalidStatusTransition = errors.New("attendance status cannot be changed")
)
