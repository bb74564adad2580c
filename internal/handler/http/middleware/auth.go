package middleware

import (
	"context"
	"net/http"

	"github.com/aulaiot/attendance-backend/internal/domain/auth"
	"github.com/aulaiot/attendance-backend/internal/handler/http/response"
	"github.com/aulaiot/attendance-backend/internal/pkg/jwt"
	"github.com/go-chi/jwtauth/v5"
)

type claimsKey struct{}

// TokenFromQuery reads the token of an EventSource connection, which cannot
// send an Authorization header.
func TokenFromQuery(r *http.Request) string {
	return r.URL.Query().Get("token")
}

// Verifier finds the token in the Authorization header, the jwt cookie or the
// token query parameter.
func Verifier(ja *jwtauth.JWTAuth) func(http.Handler) http.Handler {
	return jwtauth.Verify(ja, jwtauth.TokenFromHeader, jwtauth.TokenFromCookie, TokenFromQuery)
}

func AuthRequired(jwtService jwt.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		hfn := func(w http.ResponseWriter, r *http.Request) {
			token, claimsMap, err := jwtauth.FromContext(r.Context())

			if err != nil {
				response.Unauthorized(w, err.Error())
				return
			}

			if token == nil {
				response.HandleError(w, auth.ErrInvalidToken)
				return
			}

			if jwtService.IsTokenRevoked(rawToken(r)) {
				response.HandleError(w, auth.ErrInvalidToken)
				return
			}

			claims, ok := jwt.ClaimsFromMap(claimsMap)
			if !ok {
				response.HandleError(w, auth.ErrInvalidToken)
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		}
		return http.HandlerFunc(hfn)
	}
}

// ClaimsFromContext returns the claims AuthRequired stored for the request.
func ClaimsFromContext(ctx context.Context) (jwt.Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(jwt.Claims)
	return claims, ok
}

func rawToken(r *http.Request) string {
	for _, find := range []func(*http.Request) string{jwtauth.TokenFromHeader, jwtauth.TokenFromCookie, TokenFromQuery} {
		if token := find(r); token != "" {
			return token
		}
	}
	return ""
}
