package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aulaiot/attendance-backend/internal/domain/classroom"
	"github.com/aulaiot/attendance-backend/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type classroomRepository struct {
	db *database.DB
}

const classroomColumns = `id, name, building, device_id, status, last_seen_at, created_at`

func scanClassroom(row pgx.Row) (classroom.Classroom, error) {
	var c classroom.Classroom
	err := row.Scan(&c.ID, &c.Name, &c.Building, &c.DeviceID, &c.Status, &c.LastSeenAt, &c.CreatedAt)
	return c, err
}

// GetByID implements classroom.ClassroomRepository.
func (r *classroomRepository) GetByID(ctx context.Context, id string) (classroom.Classroom, error) {
	q := GetQuerier(ctx, r.db)

	c, err := scanClassroom(q.QueryRow(ctx, `SELECT `+classroomColumns+` FROM classrooms WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return classroom.Classroom{}, classroom.ErrClassroomNotFound
		}
		return classroom.Classroom{}, fmt.Errorf("failed to get classroom: %w", err)
	}
	return c, nil
}

// GetByDeviceID implements classroom.ClassroomRepository.
func (r *classroomRepository) GetByDeviceID(ctx context.Context, deviceID string) (classroom.Classroom, error) {
	q := GetQuerier(ctx, r.db)

	c, err := scanClassroom(q.QueryRow(ctx, `SELECT `+classroomColumns+` FROM classrooms WHERE device_id = $1`, deviceID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return classroom.Classroom{}, classroom.ErrDeviceNotRegistered
		}
		return classroom.Classroom{}, fmt.Errorf("failed to get classroom by device: %w", err)
	}
	return c, nil
}

// List implements classroom.ClassroomRepository.
func (r *classroomRepository) List(ctx context.Context) ([]classroom.Classroom, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `SELECT `+classroomColumns+` FROM classrooms ORDER BY building, name`)
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
	q := GetQuerier(ctx, r.db)

	if newClassroom.ID == "" {
		newClassroom.ID = uuid.Must(uuid.NewV7()).String()
	}
	if newClassroom.Status == "" {
		newClassroom.Status = classroom.StatusDisconnected
	}

	query := `
		INSERT INTO classrooms (id, name, building, device_id, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`

	err := q.QueryRow(ctx, query,
		newClassroom.ID,
		newClassroom.Name,
		newClassroom.Building,
		newClassroom.DeviceID,
		newClassroom.Status,
	).Scan(&newClassroom.CreatedAt)
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
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `UPDATE classrooms SET status = $2, last_seen_at = $3 WHERE device_id = $1`,
		deviceID, classroom.StatusActive, at)
	if err != nil {
		return fmt.Errorf("failed to touch device: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return classroom.ErrDeviceNotRegistered
	}
	return nil
}

// MarkDisconnected implements classroom.ClassroomRepository.
func (r *classroomRepository) MarkDisconnected(ctx context.Context, before time.Time) (int64, error) {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `
		UPDATE classrooms
		SET status = $1
		WHERE status = $2
		  AND (last_seen_at IS NULL OR last_seen_at < $3)
	`, classroom.StatusDisconnected, classroom.StatusActive, before)
	if err != nil {
		return 0, fmt.Errorf("failed to mark stale devices: %w", err)
	}
	return tag.RowsAffected(), nil
}

func NewClassroomRepository(db *database.DB) classroom.ClassroomRepository {
	return &classroomRepository{
		db: db,
	}
}
