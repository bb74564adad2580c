package attendance

import (
	"sort"
	"sync"
	"time"

	"github.com/aulaiot/attendance-backend/internal/domain/attendance"
)

// WindowRegistry holds at most one marking window per classroom. Work on a
// classroom runs under that classroom's lock; different classrooms never
// contend beyond the short slot lookup.
type WindowRegistry struct {
	mu    sync.Mutex
	slots map[string]*windowSlot
}

type windowSlot struct {
	mu     sync.Mutex
	window *attendance.Window
}

func NewWindowRegistry() *WindowRegistry {
	return &WindowRegistry{
		slots: make(map[string]*windowSlot),
	}
}

// slot returns the classroom's slot, creating it on first use. Slots are never
// removed, so the map is bounded by the number of classrooms.
func (r *WindowRegistry) slot(classroomID string) *windowSlot {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.slots[classroomID]
	if !ok {
		s = &windowSlot{}
		r.slots[classroomID] = s
	}
	return s
}

// WindowSession is the view of one classroom's window inside Do. It must not
// be retained after the callback returns.
type WindowSession struct {
	classroomID string
	slot        *windowSlot
}

// Current returns a copy of the window, if one exists.
func (s *WindowSession) Current() (attendance.Window, bool) {
	if s.slot.window == nil {
		return attendance.Window{}, false
	}
	return *s.slot.window, true
}

// Active reports whether a window exists and now is not past its close time.
func (s *WindowSession) Active(now time.Time) (attendance.Window, bool) {
	w, ok := s.Current()
	if !ok || !w.Active(now) {
		return attendance.Window{}, false
	}
	return w, true
}

// Open sets a new window starting at now. Callers must not replace a window
// another teacher still holds.
func (s *WindowSession) Open(teacherID string, now time.Time, grace, duration time.Duration) attendance.Window {
	w := attendance.NewWindow(s.classroomID, teacherID, now, grace, duration)
	s.slot.window = &w
	return w
}

// Close removes the classroom's window.
func (s *WindowSession) Close() {
	s.slot.window = nil
}

// MarkReconciled flags the current window as already back-filled.
func (s *WindowSession) MarkReconciled() {
	if s.slot.window != nil {
		s.slot.window.Reconciled = true
	}
}

// Do runs fn while holding the classroom's lock.
func (r *WindowRegistry) Do(classroomID string, fn func(s *WindowSession) error) error {
	slot := r.slot(classroomID)
	slot.mu.Lock()
	defer slot.mu.Unlock()

	return fn(&WindowSession{classroomID: classroomID, slot: slot})
}

// Snapshot returns a copy of the classroom's window without keeping the lock.
func (r *WindowRegistry) Snapshot(classroomID string) (attendance.Window, bool) {
	var (
		w  attendance.Window
		ok bool
	)
	_ = r.Do(classroomID, func(s *WindowSession) error {
		w, ok = s.Current()
		return nil
	})
	return w, ok
}

// Classrooms lists classrooms that currently hold a window, sorted.
func (r *WindowRegistry) Classrooms() []string {
	r.mu.Lock()
	slots := make(map[string]*windowSlot, len(r.slots))
	for id, s := range r.slots {
		slots[id] = s
	}
	r.mu.Unlock()

	ids := make([]string, 0, len(slots))
	for id, s := range slots {
		s.mu.Lock()
		open := s.window != nil
		s.mu.Unlock()
		if open {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of open windows.
func (r *WindowRegistry) Len() int {
	return len(r.Classrooms())
}
