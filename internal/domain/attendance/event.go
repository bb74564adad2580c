package attendance

import (
	"context"
	"errors"
	"time"
)

// Outcome drives the station's LEDs: green, yellow or red.
type Outcome string

const (
	OutcomeOK      Outcome = "ok"
	OutcomeWarning Outcome = "warning"
	OutcomeError   Outcome = "error"
)

// OutcomeOf maps the status of an accepted scan to its signal.
func OutcomeOf(status Status) Outcome {
	if status == StatusLate {
		return OutcomeWarning
	}
	return OutcomeOK
}

// FailureOutcome maps a rejected scan to its signal. A repeated scan is only
// a warning.
func FailureOutcome(err error) Outcome {
	if errors.Is(err, ErrDuplicateEntry) {
		return OutcomeWarning
	}
	return OutcomeError
}

// ScanEvent is published after every processed scan, accepted or not.
type ScanEvent struct {
	ClassroomID string          `json:"classroom_id,omitempty"`
	DeviceID    *string         `json:"device_id,omitempty"`
	Outcome     Outcome         `json:"outcome"`
	Message     string          `json:"message"`
	Record      *RecordResponse `json:"record,omitempty"`
	At          time.Time       `json:"at"`
}

type ScanPublisher interface {
	PublishScan(ctx context.Context, event ScanEvent)
}
