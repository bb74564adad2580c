package http

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/aulaiot/attendance-backend/internal/domain/person"
	"github.com/aulaiot/attendance-backend/internal/handler/http/middleware"
	"github.com/aulaiot/attendance-backend/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
)

type RouterConfig struct {
	Env            string
	Version        string
	AllowedOrigins []string
	LogLevel       slog.Level
}

type Handlers struct {
	Auth       AuthHandler
	Attendance AttendanceHandler
	Classroom  ClassroomHandler
	Device     DeviceHandler
	Person     PersonHandler
	Status     StatusHandler
	Metrics    http.Handler
}

func NewRouter(cfg RouterConfig, JWTService jwt.Service, h Handlers) *chi.Mux {
	r := chi.NewRouter()
	logFormat := httplog.SchemaECS.Concise(cfg.Env == "development")
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "attendance-backend"),
		slog.String("version", cfg.Version),
		slog.String("env", cfg.Env),
	)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Content-Disposition"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  cfg.LogLevel,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.AllowContentEncoding("application/json"))
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	if h.Metrics != nil {
		r.Handle("/metrics", h.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {

		r.Get("/status", h.Status.Status)
		r.Post("/auth/login", h.Auth.Login)

		// Scanning stations carry no token; a device is trusted by its registration
		r.Post("/scans", h.Attendance.Submit)
		r.Get("/devices/{deviceID}/feedback", h.Device.Feedback)

		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(middleware.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired(JWTService))

			r.Post("/auth/logout", h.Auth.Logout)

			r.Route("/classrooms", func(r chi.Router) {
				// Admin only
				r.Group(func(r chi.Router) {
					r.Use(middleware.AdminOnly)
					r.Get("/", h.Classroom.List)
					r.Post("/", h.Classroom.Create)
				})

				r.Route("/{classroomID}", func(r chi.Router) {
					r.Use(middleware.RequireClassroomAccess)
					r.Get("/window", h.Classroom.Window)
					r.Get("/events", h.Classroom.Events)
					r.With(middleware.RequireTeacher).Post("/close", h.Classroom.Close)
				})
			})

			r.Route("/records", func(r chi.Router) {
				r.Use(middleware.RequireRole(person.RoleAdministrator))
				r.Get("/", h.Attendance.List)
				r.Get("/export", h.Attendance.Export)
				r.Get("/{id}", h.Attendance.Get)
				r.Post("/{id}/justify", h.Attendance.Justify)
			})

			r.Route("/persons", func(r chi.Router) {
				r.Use(middleware.AdminOnly)
				r.Get("/", h.Person.List)
				r.Post("/", h.Person.Create)
				r.Get("/{id}", h.Person.Get)
				r.Put("/{id}", h.Person.Update)
				r.Delete("/{id}", h.Person.Deactivate)
				r.Get("/{id}/badge", h.Person.Badge)
			})
		})
	})
	return r
}
