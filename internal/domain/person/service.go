package person

import "context"

// PersonService manages the person directory (administrator only)
type PersonService interface {
	CreatePerson(ctx context.Context, req CreatePersonRequest) (PersonResponse, error)
	GetPerson(ctx context.Context, id string) (PersonResponse, error)
	ListPersons(ctx context.Context, filter PersonFilter) (ListPersonResponse, error)
	UpdatePerson(ctx context.Context, req UpdatePersonRequest) (PersonResponse, error)

	// DeactivatePerson removes a person from rosters and scanning. Records
	// already in the ledger are kept.
	DeactivatePerson(ctx context.Context, id string) error

	// GetBadge renders the QR badge carrying the person's identity
	GetBadge(ctx context.Context, id string, size int) (Badge, error)
}
