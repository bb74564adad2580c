package attendance

import "time"

// Window is the marking window a teacher's entry opens for a classroom.
type Window struct {
	ClassroomID string
	TeacherID   string
	OpensAt     time.Time
	LateCutoff  time.Time
	ClosesAt    time.Time

	// Reconciled is set once absentees were back-filled for an expired window.
	Reconciled bool
}

// NewWindow opens a window at now.
func NewWindow(classroomID, teacherID string, now time.Time, grace, duration time.Duration) Window {
	return Window{
		ClassroomID: classroomID,
		TeacherID:   teacherID,
		OpensAt:     now,
		LateCutoff:  now.Add(grace),
		ClosesAt:    now.Add(duration),
	}
}

// Active reports whether a student scan at now is still accepted. The upper
// bound is inclusive.
func (w Window) Active(now time.Time) bool {
	return !now.After(w.ClosesAt)
}

// EntryStatus classifies a student entry at now. Scans at the late cutoff are
// still on time.
func (w Window) EntryStatus(now time.Time) Status {
	if now.After(w.LateCutoff) {
		return StatusLate
	}
	return StatusOnTime
}
