package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aulaiot/attendance-backend/internal/domain/person"
	"github.com/google/uuid"
)

type personRepository struct {
	store *Store
}

// NewPersonRepository returns the person directory backed by s.
func NewPersonRepository(s *Store) person.PersonRepository {
	return &personRepository{store: s}
}

const personColumns = `id, identity, name, role, classroom_id, email, password_hash, active, created_at`

func scanPerson(row rowScanner) (person.Person, error) {
	var (
		p                                person.Person
		classroomID, email, passwordHash sql.NullString
		createdAt                        string
	)
	if err := row.Scan(&p.ID, &p.Identity, &p.Name, &p.Role, &classroomID, &email, &passwordHash, &p.Active, &createdAt); err != nil {
		return person.Person{}, err
	}

	var err error
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return person.Person{}, fmt.Errorf("invalid created_at %q: %w", createdAt, err)
	}
	p.ClassroomID = stringPtr(classroomID)
	p.Email = stringPtr(email)
	p.PasswordHash = stringPtr(passwordHash)
	return p, nil
}

func (r *personRepository) getOne(ctx context.Context, where string, arg any) (person.Person, error) {
	row := r.store.querier(ctx).QueryRowContext(ctx, `SELECT `+personColumns+` FROM persons WHERE `+where, arg)
	p, err := scanPerson(row)
	if errors.Is(err, sql.ErrNoRows) {
		return person.Person{}, person.ErrPersonNotFound
	}
	if err != nil {
		return person.Person{}, fmt.Errorf("failed to get person: %w", err)
	}
	return p, nil
}

// Resolve implements person.PersonRepository.
func (r *personRepository) Resolve(ctx context.Context, identity string) (person.Person, error) {
	return r.getOne(ctx, "identity = ?", identity)
}

// GetByID implements person.PersonRepository.
func (r *personRepository) GetByID(ctx context.Context, id string) (person.Person, error) {
	return r.getOne(ctx, "id = ?", id)
}

// GetByEmail implements person.PersonRepository.
func (r *personRepository) GetByEmail(ctx context.Context, email string) (person.Person, error) {
	return r.getOne(ctx, "LOWER(email) = LOWER(?)", email)
}

// StudentsOf implements person.PersonRepository.
func (r *personRepository) StudentsOf(ctx context.Context, classroomID string) ([]person.Person, error) {
	rows, err := r.store.querier(ctx).QueryContext(ctx, `
		SELECT `+personColumns+`
		FROM persons
		WHERE classroom_id = ? AND role = 'student' AND active = 1
		ORDER BY name, id
	`, classroomID)
	if err != nil {
		return nil, fmt.Errorf("failed to query students: %w", err)
	}
	defer rows.Close()

	var students []person.Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan student: %w", err)
		}
		students = append(students, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate students: %w", err)
	}
	return students, nil
}

// Create implements person.PersonRepository. The identity is stored
// normalized.
func (r *personRepository) Create(ctx context.Context, newPerson person.Person) (person.Person, error) {
	if newPerson.ID == "" {
		newPerson.ID = uuid.Must(uuid.NewV7()).String()
	}
	newPerson.Identity = person.NormalizeIdentity(newPerson.Identity)
	if newPerson.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*newPerson.Email))
		newPerson.Email = &email
	}
	newPerson.CreatedAt = time.Now().UTC()

	_, err := r.store.querier(ctx).ExecContext(ctx, `
		INSERT INTO persons (id, identity, name, role, classroom_id, email, password_hash, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		newPerson.ID,
		newPerson.Identity,
		newPerson.Name,
		string(newPerson.Role),
		newPerson.ClassroomID,
		newPerson.Email,
		newPerson.PasswordHash,
		newPerson.Active,
		formatTime(newPerson.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return person.Person{}, uniquePersonError(err)
		}
		return person.Person{}, fmt.Errorf("failed to create person: %w", err)
	}

	return newPerson, nil
}

// List implements person.PersonRepository.
func (r *personRepository) List(ctx context.Context, filter person.PersonFilter) ([]person.Person, int64, error) {
	q := r.store.querier(ctx)

	where := []string{"1 = 1"}
	var args []any
	add := func(clause string, values ...any) {
		where = append(where, clause)
		args = append(args, values...)
	}

	if filter.Role != nil && *filter.Role != "" {
		add("role = ?", *filter.Role)
	}
	if filter.ClassroomID != nil && *filter.ClassroomID != "" {
		add("classroom_id = ?", *filter.ClassroomID)
	}
	if filter.Search != nil && *filter.Search != "" {
		pattern := "%" + *filter.Search + "%"
		add("(name LIKE ? OR identity LIKE ?)", pattern, pattern)
	}
	if filter.Active != nil {
		add("active = ?", *filter.Active)
	}
	whereClause := strings.Join(where, " AND ")

	var total int64
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM persons WHERE `+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count persons: %w", err)
	}

	limit := filter.Limit
	if limit == 0 {
		limit = 20
	}
	offset := (max(filter.Page, 1) - 1) * limit

	rows, err := q.QueryContext(ctx, `
		SELECT `+personColumns+`
		FROM persons
		WHERE `+whereClause+`
		ORDER BY name, id
		LIMIT ? OFFSET ?
	`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query persons: %w", err)
	}
	defer rows.Close()

	persons := []person.Person{}
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan person: %w", err)
		}
		persons = append(persons, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate persons: %w", err)
	}
	return persons, total, nil
}

// Update implements person.PersonRepository.
func (r *personRepository) Update(ctx context.Context, p person.Person) (person.Person, error) {
	p.Identity = person.NormalizeIdentity(p.Identity)
	if p.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*p.Email))
		p.Email = &email
	}

	res, err := r.store.querier(ctx).ExecContext(ctx, `
		UPDATE persons
		SET identity = ?, name = ?, role = ?, classroom_id = ?, email = ?, password_hash = ?, active = ?
		WHERE id = ?
	`,
		p.Identity,
		p.Name,
		string(p.Role),
		p.ClassroomID,
		p.Email,
		p.PasswordHash,
		p.Active,
		p.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return person.Person{}, uniquePersonError(err)
		}
		return person.Person{}, fmt.Errorf("failed to update person: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return person.Person{}, person.ErrPersonNotFound
	}

	return r.GetByID(ctx, p.ID)
}

// SetActive implements person.PersonRepository.
func (r *personRepository) SetActive(ctx context.Context, id string, active bool) error {
	res, err := r.store.querier(ctx).ExecContext(ctx, `UPDATE persons SET active = ? WHERE id = ?`, active, id)
	if err != nil {
		return fmt.Errorf("failed to update person status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update person status: %w", err)
	}
	if n == 0 {
		return person.ErrPersonNotFound
	}
	return nil
}

// uniquePersonError tells an email clash apart from an identity clash.
func uniquePersonError(err error) error {
	if strings.Contains(err.Error(), "persons.email") {
		return person.ErrEmailExists
	}
	return person.ErrIdentityExists
}
