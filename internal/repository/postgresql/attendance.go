package postgresql

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aulaiot/attendance-backend/internal/domain/attendance"
	"github.com/aulaiot/attendance-backend/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type ledgerRepository struct {
	db *database.DB
}

const recordColumns = `
	r.id, r.person_id, r.role, r.classroom_id, r.type, r.status, r.date,
	r.scanned_at, r.device_id, r.note, r.created_at,
	p.name, p.identity`

func scanRecord(row pgx.Row) (attendance.Record, error) {
	var rec attendance.Record
	err := row.Scan(
		&rec.ID, &rec.PersonID, &rec.Role, &rec.ClassroomID, &rec.Type, &rec.Status, &rec.Date,
		&rec.ScannedAt, &rec.DeviceID, &rec.Note, &rec.CreatedAt,
		&rec.PersonName, &rec.PersonIdentity,
	)
	return rec, err
}

// FindRecord implements attendance.LedgerRepository.
func (l *ledgerRepository) FindRecord(ctx context.Context, personID string, date string, recordType attendance.RecordType) (*attendance.Record, error) {
	q := GetQuerier(ctx, l.db)

	query := `
		SELECT ` + recordColumns + `
		FROM attendance_records r
		JOIN persons p ON p.id = r.person_id
		WHERE r.person_id = $1
		  AND r.date = $2::date
		  AND r.type = $3
		LIMIT 1
	`

	rec, err := scanRecord(q.QueryRow(ctx, query, personID, date, recordType))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find attendance record: %w", err)
	}
	return &rec, nil
}

// Insert implements attendance.LedgerRepository.
func (l *ledgerRepository) Insert(ctx context.Context, rec attendance.Record) (attendance.Record, error) {
	q := GetQuerier(ctx, l.db)

	query := `
		INSERT INTO attendance_records (
			id, person_id, role, classroom_id, type, status, date, scanned_at, device_id, note
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		) RETURNING created_at
	`

	err := q.QueryRow(ctx, query,
		rec.ID,
		rec.PersonID,
		rec.Role,
		rec.ClassroomID,
		rec.Type,
		rec.Status,
		rec.Date,
		rec.ScannedAt,
		rec.DeviceID,
		rec.Note,
	).Scan(&rec.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return attendance.Record{}, attendance.ErrDuplicateRecord
		}
		return attendance.Record{}, fmt.Errorf("failed to insert attendance record: %w", err)
	}

	return rec, nil
}

// InsertIfAbsent implements attendance.LedgerRepository.
func (l *ledgerRepository) InsertIfAbsent(ctx context.Context, rec attendance.Record) (bool, error) {
	q := GetQuerier(ctx, l.db)

	query := `
		INSERT INTO attendance_records (
			id, person_id, role, classroom_id, type, status, date, scanned_at, device_id, note
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)
		ON CONFLICT (person_id, date, type) DO NOTHING
	`

	tag, err := q.Exec(ctx, query,
		rec.ID,
		rec.PersonID,
		rec.Role,
		rec.ClassroomID,
		rec.Type,
		rec.Status,
		rec.Date,
		rec.ScannedAt,
		rec.DeviceID,
		rec.Note,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert attendance record: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// GetByID implements attendance.LedgerRepository.
func (l *ledgerRepository) GetByID(ctx context.Context, id string) (attendance.Record, error) {
	q := GetQuerier(ctx, l.db)

	query := `
		SELECT ` + recordColumns + `
		FROM attendance_records r
		JOIN persons p ON p.id = r.person_id
		WHERE r.id = $1
	`

	rec, err := scanRecord(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.Record{}, attendance.ErrRecordNotFound
		}
		return attendance.Record{}, fmt.Errorf("failed to get attendance record: %w", err)
	}
	return rec, nil
}

// List implements attendance.LedgerRepository.
func (l *ledgerRepository) List(ctx context.Context, filter attendance.RecordFilter) ([]attendance.Record, int64, error) {
	q := GetQuerier(ctx, l.db)

	// Build WHERE clause
	baseWhere := "TRUE"
	args := []interface{}{}
	argIdx := 1

	addFilter := func(clause string, value interface{}) {
		baseWhere += fmt.Sprintf(" AND "+clause, argIdx)
		args = append(args, value)
		argIdx++
	}

	if filter.PersonID != nil && *filter.PersonID != "" {
		addFilter("r.person_id = $%d", *filter.PersonID)
	}
	if filter.ClassroomID != nil && *filter.ClassroomID != "" {
		addFilter("r.classroom_id = $%d", *filter.ClassroomID)
	}

	// Search by name or identity
	if filter.Search != nil && *filter.Search != "" {
		baseWhere += fmt.Sprintf(" AND (p.name ILIKE $%d OR p.identity ILIKE $%d)", argIdx, argIdx)
		args = append(args, "%"+*filter.Search+"%")
		argIdx++
	}

	if filter.Date != nil && *filter.Date != "" {
		addFilter("r.date = $%d::date", *filter.Date)
	}
	if filter.StartDate != nil && *filter.StartDate != "" {
		addFilter("r.date >= $%d::date", *filter.StartDate)
	}
	if filter.EndDate != nil && *filter.EndDate != "" {
		addFilter("r.date <= $%d::date", *filter.EndDate)
	}
	if filter.Role != nil && *filter.Role != "" {
		addFilter("r.role = $%d", *filter.Role)
	}
	if filter.Type != nil && *filter.Type != "" {
		addFilter("r.type = $%d", *filter.Type)
	}
	if filter.Status != nil && *filter.Status != "" {
		addFilter("r.status = $%d", *filter.Status)
	}

	countQuery := `
		SELECT COUNT(*)
		FROM attendance_records r
		JOIN persons p ON p.id = r.person_id
		WHERE ` + baseWhere
	var total int64
	if err := q.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count attendance records: %w", err)
	}

	// Build ORDER BY
	orderByField := "r.scanned_at"
	switch filter.SortBy {
	case "date":
		orderByField = "r.date"
	case "status":
		orderByField = "r.status"
	case "person_name":
		orderByField = "p.name"
	}
	sortOrder := "DESC"
	if strings.ToLower(filter.SortOrder) == "asc" {
		sortOrder = "ASC"
	}

	selectQuery := fmt.Sprintf(`
		SELECT %s
		FROM attendance_records r
		JOIN persons p ON p.id = r.person_id
		WHERE %s
		ORDER BY %s %s, r.id %s
		LIMIT $%d OFFSET $%d
	`, recordColumns, baseWhere, orderByField, sortOrder, sortOrder, argIdx, argIdx+1)

	limit := filter.Limit
	if limit == 0 {
		limit = 20
	}
	offset := (max(filter.Page, 1) - 1) * limit
	args = append(args, limit, offset)

	rows, err := q.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query attendance records: %w", err)
	}
	defer rows.Close()

	records := make([]attendance.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan attendance record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate attendance records: %w", err)
	}

	return records, total, nil
}

// UpdateStatus implements attendance.LedgerRepository.
func (l *ledgerRepository) UpdateStatus(ctx context.Context, id string, status attendance.Status, note *string) error {
	q := GetQuerier(ctx, l.db)

	tag, err := q.Exec(ctx, `UPDATE attendance_records SET status = $2, note = $3 WHERE id = $1`, id, status, note)
	if err != nil {
		return fmt.Errorf("failed to update attendance record status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return attendance.ErrRecordNotFound
	}
	return nil
}

func NewLedgerRepository(db *database.DB) attendance.LedgerRepository {
	return &ledgerRepository{
		db: db,
	}
}
