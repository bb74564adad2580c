package postgresql

import (
	"errors"
	"strings"

	"github.com/aulaiot/attendance-backend/internal/domain/person"
	"github.com/jackc/pgx/v5/pgconn"
)

// isUniqueViolation reports whether err is a unique_violation (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// uniquePersonError tells an email clash apart from an identity clash.
func uniquePersonError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && strings.Contains(pgErr.ConstraintName, "email") {
		return person.ErrEmailExists
	}
	return person.ErrIdentityExists
}
