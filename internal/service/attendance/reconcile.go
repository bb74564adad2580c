package attendance

import (
	"context"
	"log/slog"
	"time"

	"github.com/aulaiot/attendance-backend/internal/domain/attendance"
	"github.com/aulaiot/attendance-backend/internal/domain/person"
)

// reconcile back-fills an Absent entry for every roster student with no entry
// on date. Running it twice for the same classroom and date adds nothing.
func (a *AttendanceServiceImpl) reconcile(ctx context.Context, classroomID, date string, now time.Time) (int, error) {
	students, err := a.PersonRepository.StudentsOf(ctx, classroomID)
	if err != nil {
		return 0, dependency("list classroom students", err)
	}

	recorded := 0
	for _, student := range students {
		if student.Role != person.RoleStudent {
			continue
		}
		absent := newRecord(student, classroomID, attendance.RecordTypeEntry, attendance.StatusAbsent, date, nil, now)
		inserted, err := a.LedgerRepository.InsertIfAbsent(ctx, absent)
		if err != nil {
			return 0, dependency("insert absence", err)
		}
		if inserted {
			recorded++
		}
	}
	return recorded, nil
}

// SweepExpiredWindows implements attendance.AttendanceService. Expired windows
// stay registered so the teacher's exit still closes them.
func (a *AttendanceServiceImpl) SweepExpiredWindows(ctx context.Context, now time.Time) (int, error) {
	swept := 0
	for _, classroomID := range a.registry.Classrooms() {
		if err := ctx.Err(); err != nil {
			return swept, err
		}

		err := a.registry.Do(classroomID, func(ws *WindowSession) error {
			w, ok := ws.Current()
			if !ok || w.Active(now) || w.Reconciled {
				return nil
			}

			var recorded int
			err := a.Transactor.WithinTransaction(ctx, func(txCtx context.Context) error {
				var err error
				recorded, err = a.reconcile(txCtx, classroomID, a.dateOf(w.OpensAt), now)
				return err
			})
			if err != nil {
				return err
			}

			ws.MarkReconciled()
			swept++
			slog.Info("Expired window reconciled",
				"classroom_id", classroomID,
				"closed_at", w.ClosesAt,
				"absences_recorded", recorded,
			)
			return nil
		})
		if err != nil {
			slog.Error("Failed to reconcile expired window", "classroom_id", classroomID, "error", err)
		}
	}
	return swept, nil
}
