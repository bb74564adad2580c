package postgresql

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aulaiot/attendance-backend/internal/domain/person"
	"github.com/aulaiot/attendance-backend/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type personRepository struct {
	db *database.DB
}

const personColumns = `id, identity, name, role, classroom_id, email, password_hash, active, created_at`

func scanPerson(row pgx.Row) (person.Person, error) {
	var p person.Person
	err := row.Scan(&p.ID, &p.Identity, &p.Name, &p.Role, &p.ClassroomID, &p.Email, &p.PasswordHash, &p.Active, &p.CreatedAt)
	return p, err
}

func (r *personRepository) getOne(ctx context.Context, where string, arg interface{}) (person.Person, error) {
	q := GetQuerier(ctx, r.db)

	p, err := scanPerson(q.QueryRow(ctx, `SELECT `+personColumns+` FROM persons WHERE `+where, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return person.Person{}, person.ErrPersonNotFound
		}
		return person.Person{}, fmt.Errorf("failed to get person: %w", err)
	}
	return p, nil
}

// Resolve implements person.PersonRepository.
func (r *personRepository) Resolve(ctx context.Context, identity string) (person.Person, error) {
	return r.getOne(ctx, "identity = $1", identity)
}

// GetByID implements person.PersonRepository.
func (r *personRepository) GetByID(ctx context.Context, id string) (person.Person, error) {
	return r.getOne(ctx, "id = $1", id)
}

// GetByEmail implements person.PersonRepository.
func (r *personRepository) GetByEmail(ctx context.Context, email string) (person.Person, error) {
	return r.getOne(ctx, "LOWER(email) = LOWER($1)", email)
}

// StudentsOf implements person.PersonRepository.
func (r *personRepository) StudentsOf(ctx context.Context, classroomID string) ([]person.Person, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + personColumns + `
		FROM persons
		WHERE classroom_id = $1
		  AND role = 'student'
		  AND active
		ORDER BY name, id
	`

	rows, err := q.Query(ctx, query, classroomID)
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
	q := GetQuerier(ctx, r.db)

	if newPerson.ID == "" {
		newPerson.ID = uuid.Must(uuid.NewV7()).String()
	}
	newPerson.Identity = person.NormalizeIdentity(newPerson.Identity)
	if newPerson.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*newPerson.Email))
		newPerson.Email = &email
	}

	query := `
		INSERT INTO persons (id, identity, name, role, classroom_id, email, password_hash, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`

	err := q.QueryRow(ctx, query,
		newPerson.ID,
		newPerson.Identity,
		newPerson.Name,
		newPerson.Role,
		newPerson.ClassroomID,
		newPerson.Email,
		newPerson.PasswordHash,
		newPerson.Active,
	).Scan(&newPerson.CreatedAt)
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
	q := GetQuerier(ctx, r.db)

	baseWhere := "TRUE"
	args := []interface{}{}
	argIdx := 1

	addFilter := func(clause string, value interface{}) {
		baseWhere += fmt.Sprintf(" AND "+clause, argIdx)
		args = append(args, value)
		argIdx++
	}

	if filter.Role != nil && *filter.Role != "" {
		addFilter("role = $%d", *filter.Role)
	}
	if filter.ClassroomID != nil && *filter.ClassroomID != "" {
		addFilter("classroom_id = $%d", *filter.ClassroomID)
	}
	if filter.Search != nil && *filter.Search != "" {
		baseWhere += fmt.Sprintf(" AND (name ILIKE $%d OR identity ILIKE $%d)", argIdx, argIdx)
		args = append(args, "%"+*filter.Search+"%")
		argIdx++
	}
	if filter.Active != nil {
		addFilter("active = $%d", *filter.Active)
	}

	var total int64
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM persons WHERE `+baseWhere, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count persons: %w", err)
	}

	limit := filter.Limit
	if limit == 0 {
		limit = 20
	}
	offset := (max(filter.Page, 1) - 1) * limit

	query := fmt.Sprintf(`
		SELECT %s
		FROM persons
		WHERE %s
		ORDER BY name, id
		LIMIT $%d OFFSET $%d
	`, personColumns, baseWhere, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := q.Query(ctx, query, args...)
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
	q := GetQuerier(ctx, r.db)

	p.Identity = person.NormalizeIdentity(p.Identity)
	if p.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*p.Email))
		p.Email = &email
	}

	query := `
		UPDATE persons
		SET identity = $2, name = $3, role = $4, classroom_id = $5, email = $6, password_hash = $7, active = $8
		WHERE id = $1
		RETURNING ` + personColumns

	updated, err := scanPerson(q.QueryRow(ctx, query,
		p.ID,
		p.Identity,
		p.Name,
		p.Role,
		p.ClassroomID,
		p.Email,
		p.PasswordHash,
		p.Active,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return person.Person{}, person.ErrPersonNotFound
		}
		if isUniqueViolation(err) {
			return person.Person{}, uniquePersonError(err)
		}
		return person.Person{}, fmt.Errorf("failed to update person: %w", err)
	}

	return updated, nil
}

// SetActive implements person.PersonRepository.
func (r *personRepository) SetActive(ctx context.Context, id string, active bool) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `UPDATE persons SET active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("failed to update person status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return person.ErrPersonNotFound
	}
	return nil
}

func NewPersonRepository(db *database.DB) person.PersonRepository {
	return &personRepository{
		db: db,
	}
}
