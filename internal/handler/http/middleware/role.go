package middleware

import (
	"fmt"
	"net/http"
	"slices"

	"github.com/aulaiot/attendance-backend/internal/domain/auth"
	"github.com/aulaiot/attendance-backend/internal/domain/person"
	"github.com/aulaiot/attendance-backend/internal/handler/http/response"
)

// RequireRole lets the request through when the token holder has one of roles.
func RequireRole(roles ...person.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				response.HandleError(w, auth.ErrInvalidToken)
				return
			}

			if !slices.Contains(roles, claims.Role) {
				response.Forbidden(w, fmt.Sprintf("Insufficient permissions: role '%s' is not allowed", claims.Role))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// AdminOnly requires the administrator role
func AdminOnly(next http.Handler) http.Handler {
	return RequireRole(person.RoleAdministrator)(next)
}

// RequireTeacher requires the teacher role
func RequireTeacher(next http.Handler) http.Handler {
	return RequireRole(person.RoleTeacher)(next)
}
