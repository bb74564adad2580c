package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aulaiot/attendance-backend/internal/domain/auth"
	"github.com/aulaiot/attendance-backend/internal/domain/person"
	"github.com/aulaiot/attendance-backend/internal/pkg/jwt"
	"golang.org/x/crypto/bcrypt"
)

type AuthServiceImpl struct {
	person.PersonRepository
	jwt.Service
}

func NewAuthService(personRepository person.PersonRepository, jwtService jwt.Service) auth.AuthService {
	return &AuthServiceImpl{
		PersonRepository: personRepository,
		Service:          jwtService,
	}
}

// HashPassword returns the bcrypt hash stored for a person.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Login implements auth.AuthService.
func (a *AuthServiceImpl) Login(ctx context.Context, loginReq auth.LoginRequest) (auth.TokenResponse, error) {
	loginReq.Email = strings.ToLower(strings.TrimSpace(loginReq.Email))
	if err := loginReq.Validate(); err != nil {
		return auth.TokenResponse{}, err
	}

	personData, err := a.PersonRepository.GetByEmail(ctx, loginReq.Email)
	if err != nil {
		if errors.Is(err, person.ErrPersonNotFound) {
			return auth.TokenResponse{}, auth.ErrInvalidCredentials
		}
		return auth.TokenResponse{}, fmt.Errorf("failed to get person by email: %w", err)
	}

	// Password check
	if personData.PasswordHash == nil {
		return auth.TokenResponse{}, auth.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*personData.PasswordHash), []byte(loginReq.Password)); err != nil {
		return auth.TokenResponse{}, auth.ErrInvalidCredentials
	}

	if !personData.Active {
		return auth.TokenResponse{}, auth.ErrAccountDisabled
	}

	token, expiresAt, err := a.Service.GenerateAccessToken(jwt.Claims{
		PersonID:    personData.ID,
		Identity:    personData.Identity,
		Role:        personData.Role,
		ClassroomID: personData.ClassroomID,
	})
	if err != nil {
		return auth.TokenResponse{}, fmt.Errorf("failed to create access token: %w", err)
	}

	slog.Info("Person logged in", "person_id", personData.ID, "role", personData.Role)

	return auth.TokenResponse{
		AccessToken:          token,
		AccessTokenExpiresIn: expiresAt,
		PersonID:             personData.ID,
		Name:                 personData.Name,
		Role:                 string(personData.Role),
		ClassroomID:          personData.ClassroomID,
	}, nil
}

// Logout implements auth.AuthService.
func (a *AuthServiceImpl) Logout(ctx context.Context, accessToken string) error {
	decoded, err := a.Service.JWTAuth().Decode(accessToken)
	if err != nil {
		return auth.ErrInvalidToken
	}
	a.Service.RevokeToken(accessToken, decoded.Expiration().Unix())
	return nil
}
