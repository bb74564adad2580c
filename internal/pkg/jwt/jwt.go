package jwt

import (
	"sync"
	"time"

	"github.com/aulaiot/attendance-backend/internal/domain/person"
	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Claims is what an access token says about its holder.
type Claims struct {
	PersonID    string
	Identity    string
	Role        person.Role
	ClassroomID *string
}

type Service interface {
	GenerateAccessToken(claims Claims) (token string, expiresAt int64, err error)
	JWTAuth() *jwtauth.JWTAuth
	RevokeToken(token string, expiresAt int64)
	IsTokenRevoked(token string) bool
}

type JWTService struct {
	secretKey                 string
	accessTokenExpirationTime string
	tokenAuth                 *jwtauth.JWTAuth
	revokedTokens             map[string]int64
	mu                        sync.RWMutex
	now                       func() time.Time
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

func NewJWTService(secretKey string, accessTokenExpirationTime string) Service {
	return &JWTService{
		secretKey:                 secretKey,
		accessTokenExpirationTime: accessTokenExpirationTime,
		tokenAuth:                 jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
		revokedTokens:             make(map[string]int64),
		now:                       time.Now,
	}
}

func (j *JWTService) GenerateAccessToken(claims Claims) (token string, expiresAt int64, err error) {
	expDuration, err := time.ParseDuration(j.accessTokenExpirationTime)
	if err != nil {
		return "", 0, err
	}
	expiresAt = j.now().Add(expDuration).Unix()

	_, tokenString, err := j.tokenAuth.Encode(map[string]interface{}{
		"person_id":    claims.PersonID,
		"identity":     claims.Identity,
		"role":         string(claims.Role),
		"classroom_id": j.returnValueOrNil(claims.ClassroomID),
		"type":         "access",
		"exp":          expiresAt,
	})
	return tokenString, expiresAt, err
}

// RevokeToken blocks token until it expires. Expired entries are pruned on
// each call.
func (j *JWTService) RevokeToken(token string, expiresAt int64) {
	j.mu.Lock()
	defer j.mu.Unlock()

	now := j.now().Unix()
	for t, exp := range j.revokedTokens {
		if exp < now {
			delete(j.revokedTokens, t)
		}
	}
	j.revokedTokens[token] = expiresAt
}

func (j *JWTService) IsTokenRevoked(token string) bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	_, revoked := j.revokedTokens[token]
	return revoked
}

func (j *JWTService) returnValueOrNil(value *string) interface{} {
	if value == nil {
		return nil
	} else {
		return *value
	}
}

// ClaimsFromMap reads the claims set by GenerateAccessToken, as returned by
// jwtauth.FromContext.
func ClaimsFromMap(m map[string]interface{}) (Claims, bool) {
	if t, _ := m["type"].(string); t != "access" {
		return Claims{}, false
	}

	personID, ok := m["person_id"].(string)
	if !ok || personID == "" {
		return Claims{}, false
	}
	role, _ := m["role"].(string)
	identity, _ := m["identity"].(string)

	claims := Claims{
		PersonID: personID,
		Identity: identity,
		Role:     person.Role(role),
	}
	if classroomID, ok := m["classroom_id"].(string); ok && classroomID != "" {
		claims.ClassroomID = &classroomID
	}
	return claims, true
}
