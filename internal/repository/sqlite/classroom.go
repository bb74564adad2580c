package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aulaiot/attendance-backend/internal/domain/classroom"
	"github.com/google/uuid"
)

type classroomRepository struct {
	store *Store
}

// NewClassroomRepository returns the classroom registry backed by s.
func NewClassroomRepository(s *Store) classroom.ClassroomRepository {
	return &classroomRepository{store: s}
}

const classroomColumns = `id, name, building, device_id, status, last_seen_at, created_at`

func scanClassroom(row rowScanner) (classroom.Classroom, error) {
	var (
		c          classroom.Classroom
		lastSeenAt sql.NullString
		createdAt  string
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Building, &c.DeviceID, &c.Status, &lastSeenAt, &createdAt); err != nil {
		return classroom.Classroom{}, err
	}

	var err error
	if c.LastSeenAt, err = parseNullTime(lastSeenAt); err != nil {
		return classroom.Classroom{}, fmt.Errorf("invalid last_seen_at %q: %w", lastSeenAt.String, err)
	}
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return classroom.Classroom{}, fmt.Errorf("invalid created_at %q: %w", createdAt, err)
	}
	return c, nil
}

// GetByID implements classroom.ClassroomRepository.
func (r *classroomRepository) GetByID(ctx context.Context, id string) (classroom.Classroom, error) {
	row := r.store.querier(ctx).QueryRowContext(ctx, `SELECT `+classroomColumns+` FROM classrooms WHERE id = ?`, id)
	c, err := scanClassroom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return classroom.Classroom{}, classroom.ErrClassroomNotFound
	}
	if err != nil {
		return classroom.Classroom{}, fmt.Errorf("failed to get classroom: %w", err)
	}
	return c, nil
}

// GetByDeviceID implements classroom.ClassroomRepository.
func (r *classroomRepository) GetByDeviceID(ctx context.Context, deviceID string) (classroom.Classroom, error) {
	row := r.store.querier(ctx).QueryRowContext(ctx, `SELECT `+classroomColumns+` FROM classrooms WHERE device_id = ?`, deviceID)
	c, err := scanClassroom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return classroom.Classroom{}, classroom.ErrDeviceNotRegistered
	}
	if err != nil {
		return classroom.Classroom{}, fmt.Errorf("failed to get classroom by device: %w", err)
	}
	return c, nil
}

// List implements classroom.ClassroomRepository.
func (r *classroomRepository) List(ctx context.Context) ([]classroom.Classroom, error) {
	rows, err := r.store.querier(ctx).QueryContext(ctx, `SELECT `+classroomColumns+` FROM classrooms ORDER BY building, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query classrooms: %w", err)
	}
	defer rows.Close()

	classrooms := make([]classroom.Classroom, 0)
	for rows.Next() {
		c, err := scanClassroom(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan classroom: %w", err)
		}
		classrooms = append(classrooms, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate classrooms: %w", err)
	}
	return classrooms, nil
}

// Create implements classroom.ClassroomRepository.
func (r *classroomRepository) Create(ctx context.Context, newClassroom classroom.Classroom) (classroom.Classroom, error) {
	if newClassroom.ID == "" {
		newClassroom.ID = uuid.Must(uuid.NewV7()).String()
	}
	if newClassroom.Status == "" {
		newClassroom.Status = classroom.StatusDisconnected
	}
	newClassroom.CreatedAt = time.Now().UTC()

	_, err := r.store.querier(ctx).ExecContext(ctx, `
		INSERT INTO classrooms (id, name, building, device_id, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		newClassroom.ID,
		newClassroom.Name,
		newClassroom.Building,
		newClassroom.DeviceID,
		string(newClassroom.Status),
		formatTime(newClassroom.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return classroom.Classroom{}, classroom.ErrDeviceExists
		}
		return classroom.Classroom{}, fmt.Errorf("failed to create classroom: %w", err)
	}
	return newClassroom, nil
}

// TouchDevice implements classroom.ClassroomRepository.
func (r *classroomRepository) TouchDevice(ctx context.Context, deviceID string, at time.Time) error {
	res, err := r.store.querier(ctx).ExecContext(ctx,
		`UPDATE classrooms SET status = ?, last_seen_at = ? WHERE device_id = ?`,
		string(classroom.StatusActive), formatTime(at), deviceID,
	)
	if err != nil {
		return fmt.Errorf("failed to touch device: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return classroom.ErrDeviceNotRegistered
	}
	return nil
}

// MarkDisconnected implements classroom.ClassroomRepository.
func (r *classroomRepository) MarkDisconnected(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.store.querier(ctx).ExecContext(ctx, `
		UPDATE classrooms
		SET status = ?
		WHERE status = ? AND (last_seen_at IS NULL OR last_seen_at < ?)
	`, string(classroom.StatusDisconnected), string(classroom.StatusActive), formatTime(before))
	if err != nil {
		return 0, fmt.Errorf("failed to mark stale devices: %w", err)
	}
	return res.RowsAffected()
}
