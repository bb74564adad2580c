package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aulaiot/attendance-backend/internal/domain/attendance"
	"github.com/aulaiot/attendance-backend/internal/domain/classroom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sweeperStub struct {
	attendance.AttendanceService
	swept int
	err   error
	at    time.Time
}

func (s *sweeperStub) SweepExpiredWindows(ctx context.Context, now time.Time) (int, error) {
	s.at = now
	return s.swept, s.err
}

type stationsStub struct {
	classroom.ClassroomService
	before time.Time
}

func (s *stationsStub) MarkStaleDevices(ctx context.Context, before time.Time) (int64, error) {
	s.before = before
	return 1, nil
}

type sweepCounter int

func (c *sweepCounter) AddSwept(n int) { *c += sweepCounter(n) }

func TestAttendanceJobs(t *testing.T) {
	now := time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)
	sweeper := &sweeperStub{swept: 2}
	stations := &stationsStub{}
	var counter sweepCounter

	jobs := NewAttendanceJobs(sweeper, stations, &counter, 5*time.Minute)
	jobs.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, jobs.SweepExpiredWindows(ctx))
	assert.Equal(t, now, sweeper.at)
	assert.Equal(t, sweepCounter(2), counter)

	sweeper.swept, sweeper.err = 0, errors.New("store down")
	assert.Error(t, jobs.SweepExpiredWindows(ctx))
	assert.Equal(t, sweepCounter(2), counter)

	require.NoError(t, jobs.MarkDisconnectedDevices(ctx))
	assert.Equal(t, now.Add(-5*time.Minute), stations.before)
}

func TestAttendanceJobs_RegisterJobs(t *testing.T) {
	jobs := NewAttendanceJobs(&sweeperStub{}, &stationsStub{}, nil, 2*time.Minute)

	s := NewScheduler(0)
	jobs.RegisterJobs(s, 0)
	require.Len(t, s.jobs, 1)
	assert.Equal(t, "mark_disconnected_devices", s.jobs[0].Name)
	assert.Equal(t, time.Minute, s.jobs[0].Interval)

	s = NewScheduler(0)
	jobs.RegisterJobs(s, time.Minute)
	assert.Len(t, s.jobs, 2)
}
