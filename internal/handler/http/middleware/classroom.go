package middleware

import (
	"net/http"

	"github.com/aulaiot/attendance-backend/internal/domain/auth"
	"github.com/aulaiot/attendance-backend/internal/domain/person"
	"github.com/aulaiot/attendance-backend/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

// RequireClassroomAccess restricts teachers to the classroom named by the
// classroomID URL parameter. Administrators see every classroom; other roles
// are refused.
func RequireClassroomAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			response.HandleError(w, auth.ErrInvalidToken)
			return
		}

		switch claims.Role {
		case person.RoleAdministrator:
		case person.RoleTeacher:
			classroomID := chi.URLParam(r, "classroomID")
			if claims.ClassroomID == nil || *claims.ClassroomID != classroomID {
				response.Forbidden(w, "Teacher is not assigned to this classroom")
				return
			}
		default:
			response.Forbidden(w, "Classroom access requires a teacher or administrator")
			return
		}

		next.ServeHTTP(w, r)
	})
}
