package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aulaiot/attendance-backend/internal/domain/attendance"
	"github.com/aulaiot/attendance-backend/internal/domain/classroom"
)

// SweepRecorder counts windows reconciled by the sweep.
type SweepRecorder interface {
	AddSwept(n int)
}

type AttendanceJobs struct {
	attendanceService attendance.AttendanceService
	classroomService  classroom.ClassroomService
	recorder          SweepRecorder
	now               func() time.Time

	// deviceTimeout is how long a station may stay silent before it is shown as disconnected.
	deviceTimeout time.Duration
}

func NewAttendanceJobs(
	attendanceService attendance.AttendanceService,
	classroomService classroom.ClassroomService,
	recorder SweepRecorder,
	deviceTimeout time.Duration,
) *AttendanceJobs {
	return &AttendanceJobs{
		attendanceService: attendanceService,
		classroomService:  classroomService,
		recorder:          recorder,
		now:               time.Now,
		deviceTimeout:     deviceTimeout,
	}
}

// RegisterJobs adds the station heartbeat job, and the window sweep when
// sweepInterval is positive.
func (j *AttendanceJobs) RegisterJobs(scheduler *Scheduler, sweepInterval time.Duration) {
	if j.deviceTimeout > 0 {
		scheduler.AddJob("mark_disconnected_devices", j.deviceTimeout/2, j.MarkDisconnectedDevices)
	}
	if sweepInterval > 0 {
		scheduler.AddJob("sweep_expired_windows", sweepInterval, j.SweepExpiredWindows)
	}
}

// SweepExpiredWindows records absences for classrooms whose window expired
// without the teacher scanning out.
func (j *AttendanceJobs) SweepExpiredWindows(ctx context.Context) error {
	swept, err := j.attendanceService.SweepExpiredWindows(ctx, j.now())
	if swept > 0 {
		slog.Info("Cron: expired windows reconciled", "classrooms", swept)
		if j.recorder != nil {
			j.recorder.AddSwept(swept)
		}
	}
	if err != nil {
		return fmt.Errorf("failed to sweep expired windows: %w", err)
	}
	return nil
}

// MarkDisconnectedDevices flags stations that stopped scanning.
func (j *AttendanceJobs) MarkDisconnectedDevices(ctx context.Context) error {
	n, err := j.classroomService.MarkStaleDevices(ctx, j.now().Add(-j.deviceTimeout))
	if err != nil {
		return fmt.Errorf("failed to mark disconnected devices: %w", err)
	}
	if n > 0 {
		slog.Info("Cron: stations marked disconnected", "count", n)
	}
	return nil
}
