package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aulaiot/attendance-backend/internal/domain/attendance"
)

type ledgerRepository struct {
	store *Store
}

// NewLedgerRepository returns the attendance ledger backed by s.
func NewLedgerRepository(s *Store) attendance.LedgerRepository {
	return &ledgerRepository{store: s}
}

const recordColumns = `
	r.id, r.person_id, r.role, r.classroom_id, r.type, r.status, r.date,
	r.scanned_at, r.device_id, r.note, r.created_at,
	p.name, p.identity`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (attendance.Record, error) {
	var (
		rec                           attendance.Record
		date, scannedAt, createdAt    string
		deviceID, note, name, identID sql.NullString
	)
	err := row.Scan(
		&rec.ID, &rec.PersonID, &rec.Role, &rec.ClassroomID, &rec.Type, &rec.Status, &date,
		&scannedAt, &deviceID, &note, &createdAt,
		&name, &identID,
	)
	if err != nil {
		return attendance.Record{}, err
	}

	if rec.Date, err = time.Parse(dateLayout, date); err != nil {
		return attendance.Record{}, fmt.Errorf("invalid date %q: %w", date, err)
	}
	if rec.ScannedAt, err = parseTime(scannedAt); err != nil {
		return attendance.Record{}, fmt.Errorf("invalid scanned_at %q: %w", scannedAt, err)
	}
	if rec.CreatedAt, err = parseTime(createdAt); err != nil {
		return attendance.Record{}, fmt.Errorf("invalid created_at %q: %w", createdAt, err)
	}
	rec.DeviceID = stringPtr(deviceID)
	rec.Note = stringPtr(note)
	rec.PersonName = stringPtr(name)
	rec.PersonIdentity = stringPtr(identID)
	return rec, nil
}

func recordArgs(rec attendance.Record, createdAt time.Time) []any {
	return []any{
		rec.ID,
		rec.PersonID,
		string(rec.Role),
		rec.ClassroomID,
		string(rec.Type),
		string(rec.Status),
		rec.Date.Format(dateLayout),
		formatTime(rec.ScannedAt),
		rec.DeviceID,
		rec.Note,
		formatTime(createdAt),
	}
}

const insertRecord = `
	INSERT INTO attendance_records (
		id, person_id, role, classroom_id, type, status, date, scanned_at, device_id, note, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// FindRecord implements attendance.LedgerRepository.
func (l *ledgerRepository) FindRecord(ctx context.Context, personID string, date string, recordType attendance.RecordType) (*attendance.Record, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM attendance_records r
		JOIN persons p ON p.id = r.person_id
		WHERE r.person_id = ? AND r.date = ? AND r.type = ?
		LIMIT 1
	`

	rec, err := scanRecord(l.store.querier(ctx).QueryRowContext(ctx, query, personID, date, string(recordType)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find attendance record: %w", err)
	}
	return &rec, nil
}

// Insert implements attendance.LedgerRepository.
func (l *ledgerRepository) Insert(ctx context.Context, rec attendance.Record) (attendance.Record, error) {
	rec.CreatedAt = time.Now().UTC()

	if _, err := l.store.querier(ctx).ExecContext(ctx, insertRecord, recordArgs(rec, rec.CreatedAt)...); err != nil {
		if isUniqueViolation(err) {
			return attendance.Record{}, attendance.ErrDuplicateRecord
		}
		return attendance.Record{}, fmt.Errorf("failed to insert attendance record: %w", err)
	}
	return rec, nil
}

// InsertIfAbsent implements attendance.LedgerRepository.
func (l *ledgerRepository) InsertIfAbsent(ctx context.Context, rec attendance.Record) (bool, error) {
	query := insertRecord + ` ON CONFLICT (person_id, date, type) DO NOTHING`

	res, err := l.store.querier(ctx).ExecContext(ctx, query, recordArgs(rec, time.Now())...)
	if err != nil {
		return false, fmt.Errorf("failed to insert attendance record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n == 1, nil
}

// GetByID implements attendance.LedgerRepository.
func (l *ledgerRepository) GetByID(ctx context.Context, id string) (attendance.Record, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM attendance_records r
		JOIN persons p ON p.id = r.person_id
		WHERE r.id = ?
	`

	rec, err := scanRecord(l.store.querier(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return attendance.Record{}, attendance.ErrRecordNotFound
	}
	if err != nil {
		return attendance.Record{}, fmt.Errorf("failed to get attendance record: %w", err)
	}
	return rec, nil
}

// List implements attendance.LedgerRepository.
func (l *ledgerRepository) List(ctx context.Context, filter attendance.RecordFilter) ([]attendance.Record, int64, error) {
	q := l.store.querier(ctx)

	where := []string{"1 = 1"}
	var args []any
	add := func(clause string, values ...any) {
		where = append(where, clause)
		args = append(args, values...)
	}

	if filter.PersonID != nil && *filter.PersonID != "" {
		add("r.person_id = ?", *filter.PersonID)
	}
	if filter.ClassroomID != nil && *filter.ClassroomID != "" {
		add("r.classroom_id = ?", *filter.ClassroomID)
	}
	if filter.Search != nil && *filter.Search != "" {
		pattern := "%" + *filter.Search + "%"
		add("(p.name LIKE ? OR p.identity LIKE ?)", pattern, pattern)
	}
	if filter.Date != nil && *filter.Date != "" {
		add("r.date = ?", *filter.Date)
	}
	if filter.StartDate != nil && *filter.StartDate != "" {
		add("r.date >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil && *filter.EndDate != "" {
		add("r.date <= ?", *filter.EndDate)
	}
	if filter.Role != nil && *filter.Role != "" {
		add("r.role = ?", *filter.Role)
	}
	if filter.Type != nil && *filter.Type != "" {
		add("r.type = ?", *filter.Type)
	}
	if filter.Status != nil && *filter.Status != "" {
		add("r.status = ?", *filter.Status)
	}
	whereClause := strings.Join(where, " AND ")

	var total int64
	countQuery := `SELECT COUNT(*) FROM attendance_records r JOIN persons p ON p.id = r.person_id WHERE ` + whereClause
	if err := q.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count attendance records: %w", err)
	}

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

	limit := filter.Limit
	if limit == 0 {
		limit = 20
	}
	offset := (max(filter.Page, 1) - 1) * limit

	selectQuery := fmt.Sprintf(`
		SELECT %s
		FROM attendance_records r
		JOIN persons p ON p.id = r.person_id
		WHERE %s
		ORDER BY %s %s, r.id %s
		LIMIT ? OFFSET ?
	`, recordColumns, whereClause, orderByField, sortOrder, sortOrder)

	rows, err := q.QueryContext(ctx, selectQuery, append(args, limit, offset)...)
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
	res, err := l.store.querier(ctx).ExecContext(ctx,
		`UPDATE attendance_records SET status = ?, note = ? WHERE id = ?`,
		string(status), note, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update attendance record status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return attendance.ErrRecordNotFound
	}
	return nil
}
