package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/aulaiot/attendance-backend/internal/domain/auth"
	"github.com/aulaiot/attendance-backend/internal/domain/person"
	"github.com/aulaiot/attendance-backend/internal/pkg/jwt"
	"github.com/aulaiot/attendance-backend/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAccessExp = "1h"
	testSecret    = "test-secret-key-for-jwt"
)

type directoryStub struct {
	person.PersonRepository
	byEmail map[string]person.Person
	err     error
}

func (d *directoryStub) GetByEmail(ctx context.Context, email string) (person.Person, error) {
	if d.err != nil {
		return person.Person{}, d.err
	}
	p, ok := d.byEmail[email]
	if !ok {
		return person.Person{}, person.ErrPersonNotFound
	}
	return p, nil
}

func newTestPerson(t *testing.T, email string, role person.Role, active bool) person.Person {
	t.Helper()
	hash, err := HashPassword("password123")
	require.NoError(t, err)

	classroomID := "room-a"
	return person.Person{
		ID:           "p-" + email,
		Identity:     "V-100",
		Name:         "Test Person",
		Role:         role,
		ClassroomID:  &classroomID,
		Email:        &email,
		PasswordHash: &hash,
		Active:       active,
	}
}

func TestLogin(t *testing.T) {
	teacher := newTestPerson(t, "teacher@example.com", person.RoleTeacher, true)
	disabled := newTestPerson(t, "former@example.com", person.RoleTeacher, false)
	noPassword := newTestPerson(t, "student@example.com", person.RoleStudent, true)
	noPassword.PasswordHash = nil

	repo := &directoryStub{byEmail: map[string]person.Person{
		"teacher@example.com": teacher,
		"former@example.com":  disabled,
		"student@example.com": noPassword,
	}}
	jwtService := jwt.NewJWTService(testSecret, testAccessExp)
	svc := NewAuthService(repo, jwtService)
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		res, err := svc.Login(ctx, auth.LoginRequest{Email: " Teacher@Example.com ", Password: "password123"})
		require.NoError(t, err)
		assert.NotEmpty(t, res.AccessToken)
		assert.Equal(t, teacher.ID, res.PersonID)
		assert.Equal(t, "teacher", res.Role)

		decoded, err := jwtService.JWTAuth().Decode(res.AccessToken)
		require.NoError(t, err)
		m, err := decoded.AsMap(ctx)
		require.NoError(t, err)
		claims, ok := jwt.ClaimsFromMap(m)
		require.True(t, ok)
		assert.Equal(t, "room-a", *claims.ClassroomID)
	})

	tests := []struct {
		name    string
		req     auth.LoginRequest
		wantErr error
	}{
		{name: "wrong password", req: auth.LoginRequest{Email: "teacher@example.com", Password: "nope"}, wantErr: auth.ErrInvalidCredentials},
		{name: "unknown email", req: auth.LoginRequest{Email: "ghost@example.com", Password: "password123"}, wantErr: auth.ErrInvalidCredentials},
		{name: "no password set", req: auth.LoginRequest{Email: "student@example.com", Password: "password123"}, wantErr: auth.ErrInvalidCredentials},
		{name: "disabled", req: auth.LoginRequest{Email: "former@example.com", Password: "password123"}, wantErr: auth.ErrAccountDisabled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Login(ctx, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("invalid request", func(t *testing.T) {
		_, err := svc.Login(ctx, auth.LoginRequest{Email: "not-an-email"})
		var verrs validator.ValidationErrors
		require.ErrorAs(t, err, &verrs)
		assert.Len(t, verrs, 2)
	})

	t.Run("directory failure", func(t *testing.T) {
		failing := NewAuthService(&directoryStub{err: errors.New("connection refused")}, jwtService)
		_, err := failing.Login(ctx, auth.LoginRequest{Email: "teacher@example.com", Password: "password123"})
		assert.Error(t, err)
		assert.NotErrorIs(t, err, auth.ErrInvalidCredentials)
	})
}

func TestLogout(t *testing.T) {
	jwtService := jwt.NewJWTService(testSecret, testAccessExp)
	svc := NewAuthService(&directoryStub{}, jwtService)

	token, _, err := jwtService.GenerateAccessToken(jwt.Claims{PersonID: "p-1", Role: person.RoleAdministrator})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), token))
	assert.True(t, jwtService.IsTokenRevoked(token))

	assert.ErrorIs(t, svc.Logout(context.Background(), "garbage"), auth.ErrInvalidToken)
}
