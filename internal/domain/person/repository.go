package person

import (
	"context"
)

// PersonRepository is the person directory and classroom roster.
type PersonRepository interface {
	// Resolve finds a person by normalized identity. Returns ErrPersonNotFound.
	Resolve(ctx context.Context, identity string) (Person, error)
	GetByID(ctx context.Context, id string) (Person, error)
	GetByEmail(ctx context.Context, email string) (Person, error)

	// StudentsOf returns the active students assigned to a classroom.
	StudentsOf(ctx context.Context, classroomID string) ([]Person, error)

	// List returns one page of the directory and the total match count.
	List(ctx context.Context, filter PersonFilter) ([]Person, int64, error)

	Create(ctx context.Context, newPerson Person) (Person, error)

	// Update overwrites every mutable column of the person with the given ID.
	// The identity is stored normalized.
	Update(ctx context.Context, p Person) (Person, error)

	// SetActive flags a person in or out of the directory. Inactive persons
	// keep their ledger history but no longer resolve at the station roster.
	SetActive(ctx context.Context, id string, active bool) error
}
