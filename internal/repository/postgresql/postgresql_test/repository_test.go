package postgresql_test

import (
	"testing"

	"github.com/aulaiot/attendance-backend/internal/repository/postgresql"
	"github.com/aulaiot/attendance-backend/internal/repository/repotest"
)

func TestRepositories(t *testing.T) {
	db := newTestDatabase(t)

	repotest.Run(t, repotest.Stores{
		Transactor: postgresql.NewTransactor(db),
		Ledger:     postgresql.NewLedgerRepository(db),
		Persons:    postgresql.NewPersonRepository(db),
		Classrooms: postgresql.NewClassroomRepository(db),
	})
}
