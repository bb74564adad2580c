package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/aulaiot/attendance-backend/internal/config"
	"github.com/aulaiot/attendance-backend/internal/domain/attendance"
	"github.com/aulaiot/attendance-backend/internal/domain/classroom"
	"github.com/aulaiot/attendance-backend/internal/domain/person"
	"github.com/aulaiot/attendance-backend/internal/fixtures"
	appHTTP "github.com/aulaiot/attendance-backend/internal/handler/http"
	"github.com/aulaiot/attendance-backend/internal/pkg/cron"
	"github.com/aulaiot/attendance-backend/internal/pkg/database"
	"github.com/aulaiot/attendance-backend/internal/pkg/jwt"
	"github.com/aulaiot/attendance-backend/internal/pkg/logging"
	"github.com/aulaiot/attendance-backend/internal/pkg/metrics"
	"github.com/aulaiot/attendance-backend/internal/pkg/sse"
	"github.com/aulaiot/attendance-backend/internal/repository/postgresql"
	"github.com/aulaiot/attendance-backend/internal/repository/sqlite"
	attendanceService "github.com/aulaiot/attendance-backend/internal/service/attendance"
	serviceAuth "github.com/aulaiot/attendance-backend/internal/service/auth"
	classroomService "github.com/aulaiot/attendance-backend/internal/service/classroom"
	"github.com/aulaiot/attendance-backend/internal/service/feed"
	personService "github.com/aulaiot/attendance-backend/internal/service/person"
)

// stores is the repository set of the selected backend.
type stores struct {
	transactor attendance.Transactor
	ledger     attendance.LedgerRepository
	persons    person.PersonRepository
	classrooms classroom.ClassroomRepository
	ping       appHTTP.PingFunc
	close      func()
}

func openStores(ctx context.Context, cfg *config.Config) (stores, error) {
	switch cfg.Database.Driver {
	case "sqlite":
		store, err := sqlite.New(cfg.Database.SQLitePath)
		if err != nil {
			return stores{}, err
		}
		return stores{
			transactor: store,
			ledger:     sqlite.NewLedgerRepository(store),
			persons:    sqlite.NewPersonRepository(store),
			classrooms: sqlite.NewClassroomRepository(store),
			ping:       store.Ping,
			close:      func() { store.Close() },
		}, nil
	default:
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		db, err := database.NewPostgreSQLDB(connectCtx, cfg.DatabaseURL())
		if err != nil {
			return stores{}, err
		}
		if cfg.Database.AutoMigrate {
			if err := postgresql.Migrate(connectCtx, db); err != nil {
				db.Close()
				return stores{}, fmt.Errorf("failed to migrate database: %w", err)
			}
		}
		return stores{
			transactor: postgresql.NewTransactor(db),
			ledger:     postgresql.NewLedgerRepository(db),
			persons:    postgresql.NewPersonRepository(db),
			classrooms: postgresql.NewClassroomRepository(db),
			ping:       db.Pool.Ping,
			close:      db.Close,
		}, nil
	}
}

func main() {
	if err := run(); err != nil {
		slog.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	logging.Setup(cfg.App.Env, cfg.App.LogLevel)

	location, err := cfg.Location()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repos, err := openStores(ctx, cfg)
	if err != nil {
		return fmt.Errorf("error connecting to database: %w", err)
	}
	defer repos.close()
	slog.Info("Database connected", "driver", cfg.Database.Driver)

	if _, err := fixtures.EnsureAdministrator(ctx, repos.persons, fixtures.Administrator{
		Identity: cfg.Bootstrap.AdminIdentity,
		Email:    cfg.Bootstrap.AdminEmail,
		Password: cfg.Bootstrap.AdminPassword,
	}); err != nil {
		return err
	}

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)
	scanFeed := feed.NewFeed(sse.NewHub(32), cfg.Attendance.FeedbackTTL)
	registry := attendanceService.NewWindowRegistry()

	attendanceSvc := attendanceService.NewAttendanceService(
		repos.transactor,
		repos.ledger,
		repos.persons,
		repos.classrooms,
		registry,
		scanFeed,
		attendanceService.Config{
			WindowDuration: cfg.Attendance.WindowDuration,
			TardinessGrace: cfg.Attendance.TardinessGrace,
			Location:       location,
		},
	)
	authSvc := serviceAuth.NewAuthService(repos.persons, JWTService)
	personSvc := personService.NewPersonService(repos.persons, repos.classrooms)
	classroomSvc := classroomService.NewClassroomService(repos.classrooms)
	scanMetrics := metrics.New(registry.Len)

	router := appHTTP.NewRouter(appHTTP.RouterConfig{
		Env:            cfg.App.Env,
		Version:        cfg.App.Version,
		AllowedOrigins: cfg.App.AllowedOrigins,
		LogLevel:       logging.ParseLevel(cfg.App.LogLevel),
	}, JWTService, appHTTP.Handlers{
		Auth:       appHTTP.NewAuthHandler(authSvc),
		Attendance: appHTTP.NewAttendanceHandler(attendanceSvc, scanMetrics),
		Classroom:  appHTTP.NewClassroomHandler(classroomSvc, attendanceSvc, scanFeed),
		Device:     appHTTP.NewDeviceHandler(scanFeed),
		Person:     appHTTP.NewPersonHandler(personSvc),
		Status:     appHTTP.NewStatusHandler(repos.ping, cfg.App.Version),
		Metrics:    scanMetrics.Handler(),
	})

	scheduler := cron.NewScheduler(30 * time.Second)
	cron.NewAttendanceJobs(attendanceSvc, classroomSvc, scanMetrics, cfg.Attendance.DeviceTimeout).
		RegisterJobs(scheduler, cfg.Attendance.SweepInterval)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server starting", "port", cfg.App.Port, "env", cfg.App.Env, "version", cfg.App.Version)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
