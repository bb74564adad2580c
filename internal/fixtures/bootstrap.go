// Package fixtures seeds the data a fresh deployment needs before anyone can log in.
package fixtures

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aulaiot/attendance-backend/internal/domain/person"
	authService "github.com/aulaiot/attendance-backend/internal/service/auth"
)

// Administrator describes the account created on first start.
type Administrator struct {
	Identity string
	Name     string
	Email    string
	Password string
}

// EnsureAdministrator creates admin unless a person with its email already
// exists. It reports whether an account was created.
func EnsureAdministrator(ctx context.Context, repo person.PersonRepository, admin Administrator) (bool, error) {
	if admin.Email == "" {
		return false, nil
	}

	_, err := repo.GetByEmail(ctx, admin.Email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, person.ErrPersonNotFound) {
		return false, fmt.Errorf("failed to look up administrator: %w", err)
	}

	hash, err := authService.HashPassword(admin.Password)
	if err != nil {
		return false, fmt.Errorf("failed to hash administrator password: %w", err)
	}
	if admin.Name == "" {
		admin.Name = "Administrator"
	}

	created, err := repo.Create(ctx, person.Person{
		Identity:     admin.Identity,
		Name:         admin.Name,
		Role:         person.RoleAdministrator,
		Email:        &admin.Email,
		PasswordHash: &hash,
		Active:       true,
	})
	if err != nil {
		return false, fmt.Errorf("failed to create administrator: %w", err)
	}

	slog.Info("Bootstrap administrator created", "person_id", created.ID, "email", admin.Email)
	return true, nil
}
