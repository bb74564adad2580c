package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/aulaiot/attendance-backend/internal/domain/attendance"
	"github.com/aulaiot/attendance-backend/internal/domain/classroom"
	"github.com/aulaiot/attendance-backend/internal/domain/person"
	"github.com/aulaiot/attendance-backend/internal/pkg/qrtoken"
	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

// Config holds the marking window rules.
type Config struct {
	WindowDuration time.Duration
	TardinessGrace time.Duration
	Location       *time.Location

	// Now overrides the clock used by SubmitScan.
	Now func() time.Time
}

type AttendanceServiceImpl struct {
	attendance.Transactor
	attendance.LedgerRepository
	person.PersonRepository
	classroom.ClassroomRepository
	registry  *WindowRegistry
	publisher attendance.ScanPublisher
	cfg       Config
}

// classification is what one accepted scan produced.
type classification struct {
	record     attendance.Record
	window     *attendance.Window
	reconciled int
}

func dependency(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", attendance.ErrDependencyUnavailable, op, err)
}

func (a *AttendanceServiceImpl) now() time.Time {
	if a.cfg.Now != nil {
		return a.cfg.Now()
	}
	return time.Now()
}

// dateOf returns the calendar day of t in the attendance timezone.
func (a *AttendanceServiceImpl) dateOf(t time.Time) string {
	return t.In(a.cfg.Location).Format(dateLayout)
}

// SubmitScan implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) SubmitScan(ctx context.Context, req attendance.ScanRequest) (attendance.ScanResult, error) {
	if err := req.Validate(); err != nil {
		return attendance.ScanResult{}, err
	}
	now := a.now()

	event := attendance.ScanEvent{DeviceID: req.DeviceID, At: now}

	if req.DeviceID != nil && *req.DeviceID != "" {
		station, err := a.ClassroomRepository.GetByDeviceID(ctx, *req.DeviceID)
		if err != nil {
			if !errors.Is(err, classroom.ErrDeviceNotRegistered) {
				err = dependency("get classroom by device", err)
				a.publishFailure(ctx, event, err)
			}
			// Unknown stations get no pending feedback.
			return attendance.ScanResult{}, err
		}
		event.ClassroomID = station.ID

		defer func() {
			if err := a.ClassroomRepository.TouchDevice(ctx, *req.DeviceID, now); err != nil {
				slog.Warn("Failed to record device heartbeat", "device_id", *req.DeviceID, "error", err)
			}
		}()
	}

	identity, err := resolveIdentity(req.Payload)
	if err != nil {
		a.publishFailure(ctx, event, err)
		return attendance.ScanResult{}, err
	}

	out, err := a.classify(ctx, identity, req.DeviceID, now)
	if err != nil {
		a.publishFailure(ctx, event, err)
		return attendance.ScanResult{}, err
	}

	result := a.toResult(out, now)
	event.ClassroomID = out.record.ClassroomID
	event.Outcome = result.Outcome
	event.Message = result.Message
	event.Record = &result.Record
	a.publish(ctx, event)

	return result, nil
}

// resolveIdentity decodes a payload and canonicalizes the identity it carries.
func resolveIdentity(payload string) (string, error) {
	text, err := qrtoken.Decode(payload)
	if err != nil {
		return "", attendance.ErrMalformedPayload
	}
	identity := person.NormalizeIdentity(qrtoken.Identity(text))
	if identity == "" {
		return "", attendance.ErrMalformedPayload
	}
	return identity, nil
}

// Classify implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) Classify(ctx context.Context, identity string, now time.Time) (attendance.Record, error) {
	out, err := a.classify(ctx, person.NormalizeIdentity(identity), nil, now)
	if err != nil {
		return attendance.Record{}, err
	}
	return out.record, nil
}

func (a *AttendanceServiceImpl) classify(ctx context.Context, identity string, deviceID *string, now time.Time) (classification, error) {
	p, err := a.PersonRepository.Resolve(ctx, identity)
	if err != nil {
		if errors.Is(err, person.ErrPersonNotFound) {
			return classification{}, person.ErrPersonNotFound
		}
		return classification{}, dependency("resolve identity", err)
	}
	if !p.Active {
		return classification{}, person.ErrPersonNotFound
	}

	role, err := person.ParseScanRole(p.Role)
	if err != nil {
		return classification{}, err
	}

	classroomID := p.Classroom()
	if classroomID == "" {
		return classification{}, attendance.ErrClassroomNotAssigned
	}

	date := a.dateOf(now)
	var out classification

	err = a.registry.Do(classroomID, func(ws *WindowSession) error {
		entry, err := a.LedgerRepository.FindRecord(ctx, p.ID, date, attendance.RecordTypeEntry)
		if err != nil {
			return dependency("find entry record", err)
		}

		if role == person.ScanTeacher && entry != nil {
			exit, err := a.LedgerRepository.FindRecord(ctx, p.ID, date, attendance.RecordTypeExit)
			if err != nil {
				return dependency("find exit record", err)
			}
			if exit == nil {
				out, err = a.closeSession(ctx, ws, p, classroomID, date, deviceID, now)
				return err
			}
		}

		switch {
		case entry != nil:
			return attendance.ErrDuplicateEntry
		case role == person.ScanTeacher:
			out, err = a.openSession(ctx, ws, p, classroomID, date, deviceID, now)
		default:
			out, err = a.registerStudent(ctx, ws, p, classroomID, date, deviceID, now)
		}
		return err
	})
	if err != nil {
		return classification{}, err
	}

	slog.Info("Scan classified",
		"person_id", p.ID,
		"classroom_id", classroomID,
		"type", out.record.Type,
		"status", out.record.Status,
		"absences_recorded", out.reconciled,
	)
	return out, nil
}

// openSession records the teacher's entry and opens the classroom window.
// The window only exists once the entry is stored. An active window belongs
// to whoever opened it until they exit.
func (a *AttendanceServiceImpl) openSession(ctx context.Context, ws *WindowSession, p person.Person, classroomID, date string, deviceID *string, now time.Time) (classification, error) {
	if w, ok := ws.Active(now); ok && w.TeacherID != p.ID {
		return classification{}, attendance.ErrWindowAlreadyOpen
	}

	rec, err := a.insert(ctx, newRecord(p, classroomID, attendance.RecordTypeEntry, attendance.StatusOnTime, date, deviceID, now))
	if err != nil {
		return classification{}, err
	}
	w := ws.Open(p.ID, now, a.cfg.TardinessGrace, a.cfg.WindowDuration)
	return classification{record: rec, window: &w}, nil
}

func (a *AttendanceServiceImpl) registerStudent(ctx context.Context, ws *WindowSession, p person.Person, classroomID, date string, deviceID *string, now time.Time) (classification, error) {
	w, ok := ws.Active(now)
	if !ok {
		return classification{}, attendance.ErrWindowNotActive
	}
	rec, err := a.insert(ctx, newRecord(p, classroomID, attendance.RecordTypeEntry, w.EntryStatus(now), date, deviceID, now))
	if err != nil {
		return classification{}, err
	}
	return classification{record: rec, window: &w}, nil
}

// closeSession stores the teacher's exit and the classroom's absences in one
// transaction, then removes the window if this teacher opened it. While
// another teacher's window is still active the absences are left to that
// teacher's exit.
func (a *AttendanceServiceImpl) closeSession(ctx context.Context, ws *WindowSession, p person.Person, classroomID, date string, deviceID *string, now time.Time) (classification, error) {
	var out classification

	w, held := ws.Current()
	owner := !held || w.TeacherID == p.ID
	deferred := !owner && w.Active(now)

	err := a.Transactor.WithinTransaction(ctx, func(txCtx context.Context) error {
		rec, err := a.insert(txCtx, newRecord(p, classroomID, attendance.RecordTypeExit, attendance.StatusCompleted, date, deviceID, now))
		if err != nil {
			return err
		}
		out.record = rec

		if deferred {
			return nil
		}
		out.reconciled, err = a.reconcile(txCtx, classroomID, date, now)
		return err
	})
	if err != nil {
		return classification{}, err
	}

	if owner {
		ws.Close()
	} else {
		slog.Info("Exit left another teacher's window open",
			"classroom_id", classroomID,
			"person_id", p.ID,
			"window_teacher_id", w.TeacherID,
			"absences_deferred", deferred,
		)
	}
	return out, nil
}

func (a *AttendanceServiceImpl) insert(ctx context.Context, rec attendance.Record) (attendance.Record, error) {
	created, err := a.LedgerRepository.Insert(ctx, rec)
	if err != nil {
		if errors.Is(err, attendance.ErrDuplicateRecord) {
			return attendance.Record{}, attendance.ErrDuplicateEntry
		}
		return attendance.Record{}, dependency("insert record", err)
	}
	return created, nil
}

func newRecord(p person.Person, classroomID string, recordType attendance.RecordType, status attendance.Status, date string, deviceID *string, now time.Time) attendance.Record {
	day, _ := time.Parse(dateLayout, date)
	name, identity := p.Name, p.Identity
	return attendance.Record{
		ID:             uuid.Must(uuid.NewV7()).String(),
		PersonID:       p.ID,
		Role:           p.Role,
		ClassroomID:    classroomID,
		Type:           recordType,
		Status:         status,
		Date:           day,
		ScannedAt:      now,
		DeviceID:       deviceID,
		PersonName:     &name,
		PersonIdentity: &identity,
	}
}

// CloseSession implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) CloseSession(ctx context.Context, req attendance.CloseSessionRequest, now time.Time) (attendance.ScanResult, error) {
	if err := req.Validate(); err != nil {
		return attendance.ScanResult{}, err
	}

	p, err := a.PersonRepository.Resolve(ctx, person.NormalizeIdentity(req.TeacherIdentity))
	if err != nil {
		if errors.Is(err, person.ErrPersonNotFound) {
			return attendance.ScanResult{}, person.ErrPersonNotFound
		}
		return attendance.ScanResult{}, dependency("resolve identity", err)
	}
	if !p.Active {
		return attendance.ScanResult{}, person.ErrPersonNotFound
	}

	if role, err := person.ParseScanRole(p.Role); err != nil || role != person.ScanTeacher {
		return attendance.ScanResult{}, person.ErrRoleNotPermitted
	}
	if p.Classroom() != req.ClassroomID {
		return attendance.ScanResult{}, attendance.ErrClassroomMismatch
	}

	date := a.dateOf(now)
	var out classification

	err = a.registry.Do(req.ClassroomID, func(ws *WindowSession) error {
		entry, err := a.LedgerRepository.FindRecord(ctx, p.ID, date, attendance.RecordTypeEntry)
		if err != nil {
			return dependency("find entry record", err)
		}
		exit, err := a.LedgerRepository.FindRecord(ctx, p.ID, date, attendance.RecordTypeExit)
		if err != nil {
			return dependency("find exit record", err)
		}
		if entry == nil || exit != nil {
			return attendance.ErrSessionNotOpen
		}

		out, err = a.closeSession(ctx, ws, p, req.ClassroomID, date, nil, now)
		return err
	})
	if err != nil {
		return attendance.ScanResult{}, err
	}

	result := a.toResult(out, now)
	a.publish(ctx, attendance.ScanEvent{
		ClassroomID: req.ClassroomID,
		Outcome:     attendance.OutcomeOK,
		Message:     result.Message,
		Record:      &result.Record,
		At:          now,
	})
	return result, nil
}

// GetWindow implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) GetWindow(ctx context.Context, classroomID string, now time.Time) (attendance.WindowResponse, error) {
	if _, err := a.ClassroomRepository.GetByID(ctx, classroomID); err != nil {
		if errors.Is(err, classroom.ErrClassroomNotFound) {
			return attendance.WindowResponse{}, classroom.ErrClassroomNotFound
		}
		return attendance.WindowResponse{}, dependency("get classroom", err)
	}

	w, ok := a.registry.Snapshot(classroomID)
	if !ok {
		return attendance.WindowResponse{ClassroomID: classroomID}, nil
	}
	return a.mapWindowToResponse(w, now), nil
}

func (a *AttendanceServiceImpl) mapWindowToResponse(w attendance.Window, now time.Time) attendance.WindowResponse {
	return attendance.WindowResponse{
		ClassroomID: w.ClassroomID,
		Open:        true,
		Active:      w.Active(now),
		TeacherID:   w.TeacherID,
		OpensAt:     w.OpensAt.In(a.cfg.Location).Format(time.RFC3339),
		LateCutoff:  w.LateCutoff.In(a.cfg.Location).Format(time.RFC3339),
		ClosesAt:    w.ClosesAt.In(a.cfg.Location).Format(time.RFC3339),
	}
}

func (a *AttendanceServiceImpl) toResult(out classification, now time.Time) attendance.ScanResult {
	result := attendance.ScanResult{
		Record:     a.mapRecordToResponse(out.record),
		Reconciled: out.reconciled,
		Outcome:    attendance.OutcomeOf(out.record.Status),
		Message:    messageFor(out.record),
	}
	if out.window != nil {
		w := a.mapWindowToResponse(*out.window, now)
		result.Window = &w
	}
	return result
}

func messageFor(rec attendance.Record) string {
	switch {
	case rec.Type == attendance.RecordTypeExit:
		return "Session closed"
	case rec.Role == person.RoleTeacher:
		return "Session opened"
	case rec.Status == attendance.StatusLate:
		return "Entry registered late"
	default:
		return "Entry registered on time"
	}
}

func (a *AttendanceServiceImpl) publish(ctx context.Context, event attendance.ScanEvent) {
	if a.publisher == nil {
		return
	}
	a.publisher.PublishScan(ctx, event)
}

func (a *AttendanceServiceImpl) publishFailure(ctx context.Context, event attendance.ScanEvent, err error) {
	event.Outcome = attendance.FailureOutcome(err)
	event.Message = err.Error()
	a.publish(ctx, event)
}

// mapRecordToResponse converts a Record entity to RecordResponse
func (a *AttendanceServiceImpl) mapRecordToResponse(rec attendance.Record) attendance.RecordResponse {
	return attendance.RecordResponse{
		ID:             rec.ID,
		PersonID:       rec.PersonID,
		PersonName:     rec.PersonName,
		PersonIdentity: rec.PersonIdentity,
		Role:           string(rec.Role),
		ClassroomID:    rec.ClassroomID,
		Type:           string(rec.Type),
		Status:         string(rec.Status),
		Date:           rec.Date.Format(dateLayout),
		Time:           rec.ScannedAt.In(a.cfg.Location).Format("15:04:05"),
		DeviceID:       rec.DeviceID,
		Note:           rec.Note,
		CreatedAt:      rec.CreatedAt.In(a.cfg.Location).Format("2006-01-02 15:04:05"),
	}
}

// ListRecords implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) ListRecords(ctx context.Context, filter attendance.RecordFilter) (attendance.ListRecordResponse, error) {
	if err := filter.Validate(); err != nil {
		return attendance.ListRecordResponse{}, err
	}

	records, total, err := a.LedgerRepository.List(ctx, filter)
	if err != nil {
		return attendance.ListRecordResponse{}, dependency("list records", err)
	}

	responses := make([]attendance.RecordResponse, 0, len(records))
	for _, rec := range records {
		responses = append(responses, a.mapRecordToResponse(rec))
	}

	totalPages := int(math.Ceil(float64(total) / float64(filter.Limit)))
	showing := fmt.Sprintf("%d-%d of %d", (filter.Page-1)*filter.Limit+1, min(filter.Page*filter.Limit, int(total)), total)
	if total == 0 {
		showing = "0 of 0"
	}

	return attendance.ListRecordResponse{
		TotalCount: total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: totalPages,
		Showing:    showing,
		Records:    responses,
	}, nil
}

// GetRecord implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) GetRecord(ctx context.Context, id string) (attendance.RecordResponse, error) {
	rec, err := a.LedgerRepository.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, attendance.ErrRecordNotFound) {
			return attendance.RecordResponse{}, attendance.ErrRecordNotFound
		}
		return attendance.RecordResponse{}, dependency("get record", err)
	}
	return a.mapRecordToResponse(rec), nil
}

// JustifyRecord implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) JustifyRecord(ctx context.Context, req attendance.JustifyRequest) (attendance.RecordResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.RecordResponse{}, err
	}

	rec, err := a.LedgerRepository.GetByID(ctx, req.ID)
	if err != nil {
		if errors.Is(err, attendance.ErrRecordNotFound) {
			return attendance.RecordResponse{}, attendance.ErrRecordNotFound
		}
		return attendance.RecordResponse{}, dependency("get record", err)
	}

	if !rec.Status.CanTransitionTo(attendance.StatusJustified) {
		return attendance.RecordResponse{}, attendance.ErrInvalidStatusTransition
	}

	if err := a.LedgerRepository.UpdateStatus(ctx, rec.ID, attendance.StatusJustified, &req.Reason); err != nil {
		if errors.Is(err, attendance.ErrRecordNotFound) {
			return attendance.RecordResponse{}, attendance.ErrRecordNotFound
		}
		return attendance.RecordResponse{}, dependency("justify record", err)
	}

	rec.Status = attendance.StatusJustified
	rec.Note = &req.Reason
	slog.Info("Attendance record justified", "record_id", rec.ID, "person_id", rec.PersonID)
	return a.mapRecordToResponse(rec), nil
}

func NewAttendanceService(
	transactor attendance.Transactor,
	ledgerRepo attendance.LedgerRepository,
	personRepo person.PersonRepository,
	classroomRepo classroom.ClassroomRepository,
	registry *WindowRegistry,
	publisher attendance.ScanPublisher,
	cfg Config,
) attendance.AttendanceService {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &AttendanceServiceImpl{
		Transactor:          transactor,
		LedgerRepository:    ledgerRepo,
		PersonRepository:    personRepo,
		ClassroomRepository: classroomRepo,
		registry:            registry,
		publisher:           publisher,
		cfg:                 cfg,
	}
}
