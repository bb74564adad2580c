package attendance

import (
	"time"

	"github.com/aulaiot/attendance-backend/internal/domain/person"
)

type RecordType string

const (
	RecordTypeEntry RecordType = "entry"
	RecordTypeExit  RecordType = "exit"
)

func (t RecordType) IsValid() bool {
	return t == RecordTypeEntry || t == RecordTypeExit
}

type Status string

const (
	StatusOnTime    Status = "on_time"
	StatusLate      Status = "late"
	StatusAbsent    Status = "absent"
	StatusJustified Status = "justified"
	StatusCompleted Status = "completed"
)

var allStatuses = []Status{StatusOnTime, StatusLate, StatusAbsent, StatusJustified, StatusCompleted}

func (s Status) IsValid() bool {
	for _, v := range allStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether a stored record may move from s to next.
// Records are immutable after creation except for justification of entries.
func (s Status) CanTransitionTo(next Status) bool {
	if next != StatusJustified {
		return false
	}
	switch s {
	case StatusOnTime, StatusLate, StatusAbsent:
		return true
	default:
		return false
	}
}

// Record is one row of the attendance ledger. At most one record exists per
// (PersonID, Date, Type).
type Record struct {
	ID          string
	PersonID    string
	Role        person.Role
	ClassroomID string
	Type        RecordType
	Status      Status
	Date        time.Time // calendar day, midnight UTC
	ScannedAt   time.Time
	DeviceID    *string
	Note        *string
	CreatedAt   time.Time

	// DTO / Join
	PersonName     *string
	PersonIdentity *string
}
