package attendance

import (
	"context"
)

// LedgerRepository is the append-only attendance ledger.
type LedgerRepository interface {
	// FindRecord returns nil, nil when the person has no record of that type on date (YYYY-MM-DD).
	FindRecord(ctx context.Context, personID string, date string, recordType RecordType) (*Record, error)

	// Insert appends a record. Returns ErrDuplicateRecord when (person, date, type) already exists.
	Insert(ctx context.Context, record Record) (Record, error)

	// InsertIfAbsent appends a record unless one already exists, without failing the surrounding transaction.
	InsertIfAbsent(ctx context.Context, record Record) (bool, error)

	GetByID(ctx context.Context, id string) (Record, error)
	List(ctx context.Context, filter RecordFilter) ([]Record, int64, error)

	// UpdateStatus is used by the justification workflow only.
	UpdateStatus(ctx context.Context, id string, status Status, note *string) error
}

// Transactor runs fn so that every ledger write made with the context it
// receives commits or rolls back together.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
