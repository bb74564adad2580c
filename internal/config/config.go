package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database   DatabaseConfig
	JWT        JWTConfig
	App        AppConfig
	Attendance AttendanceConfig
	Bootstrap  BootstrapConfig
}

type DatabaseConfig struct {
	Driver      string // postgres or sqlite
	Host        string
	Port        int
	User        string
	Password    string
	Name        string
	SSLMode     string
	SQLitePath  string
	AutoMigrate bool
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	AccessExpiration string
}

// AppConfig holds application configuration
type AppConfig struct {
	Port           int
	Env            string
	LogLevel       string
	Version        string
	AllowedOrigins []string
}

// AttendanceConfig holds the marking window rules and background jobs.
type AttendanceConfig struct {
	WindowDuration time.Duration
	TardinessGrace time.Duration
	Timezone       string

	// SweepInterval > 0 reconciles expired windows without a teacher exit.
	SweepInterval time.Duration
	DeviceTimeout time.Duration
	FeedbackTTL   time.Duration
}

// BootstrapConfig creates the first administrator on an empty directory.
type BootstrapConfig struct {
	AdminIdentity string
	AdminEmail    string
	AdminPassword string
}

func Load() (*Config, error) {
	// A missing .env is fine: deployments set the environment directly
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	config := &Config{}

	// Database configuration
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}
	autoMigrate, err := strconv.ParseBool(getEnv("DB_AUTO_MIGRATE", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_AUTO_MIGRATE: %w", err)
	}

	config.Database = DatabaseConfig{
		Driver:      strings.ToLower(getEnv("DB_DRIVER", "postgres")),
		Host:        getEnv("DB_HOST", "localhost"),
		Port:        dbPort,
		User:        getEnv("DB_USER", "postgres"),
		Password:    getEnv("DB_PASSWORD", ""),
		Name:        getEnv("DB_NAME", "attendance"),
		SSLMode:     getEnv("DB_SSL_MODE", "disable"),
		SQLitePath:  getEnv("SQLITE_PATH", "data/attendance.db"),
		AutoMigrate: autoMigrate,
	}

	// Application configuration
	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	config.App = AppConfig{
		Port:           appPort,
		Env:            getEnv("APP_ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		Version:        getEnv("APP_VERSION", "v1.0.0"),
		AllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
	}

	// JWT configuration
	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: getEnv("JWT_ACCESS_EXPIRATION_TIME", "8h"),
	}

	// Attendance configuration
	config.Attendance = AttendanceConfig{Timezone: getEnv("ATTENDANCE_TIMEZONE", "UTC")}
	for key, opt := range map[string]struct {
		target   *time.Duration
		fallback string
	}{
		"WINDOW_DURATION":       {&config.Attendance.WindowDuration, "30m"},
		"TARDINESS_GRACE":       {&config.Attendance.TardinessGrace, "2m"},
		"WINDOW_SWEEP_INTERVAL": {&config.Attendance.SweepInterval, "0"},
		"DEVICE_TIMEOUT":        {&config.Attendance.DeviceTimeout, "5m"},
		"DEVICE_FEEDBACK_TTL":   {&config.Attendance.FeedbackTTL, "30s"},
	} {
		d, err := time.ParseDuration(getEnv(key, opt.fallback))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", key, err)
		}
		*opt.target = d
	}

	config.Bootstrap = BootstrapConfig{
		AdminIdentity: getEnv("BOOTSTRAP_ADMIN_IDENTITY", "0-0-1"),
		AdminEmail:    getEnv("BOOTSTRAP_ADMIN_EMAIL", ""),
		AdminPassword: getEnv("BOOTSTRAP_ADMIN_PASSWORD", ""),
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres":
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD is required")
		}
	case "sqlite":
		if c.Database.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required")
		}
	default:
		return fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", c.Database.Driver)
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if _, err := time.ParseDuration(c.JWT.AccessExpiration); err != nil {
		return fmt.Errorf("invalid JWT_ACCESS_EXPIRATION_TIME: %w", err)
	}

	a := c.Attendance
	if a.WindowDuration <= 0 {
		return fmt.Errorf("WINDOW_DURATION must be positive")
	}
	if a.TardinessGrace < 0 {
		return fmt.Errorf("TARDINESS_GRACE must not be negative")
	}
	if a.TardinessGrace > a.WindowDuration {
		return fmt.Errorf("TARDINESS_GRACE must not exceed WINDOW_DURATION")
	}
	if a.SweepInterval < 0 || a.DeviceTimeout < 0 || a.FeedbackTTL < 0 {
		return fmt.Errorf("WINDOW_SWEEP_INTERVAL, DEVICE_TIMEOUT and DEVICE_FEEDBACK_TTL must not be negative")
	}
	if _, err := c.Location(); err != nil {
		return err
	}

	if (c.Bootstrap.AdminEmail == "") != (c.Bootstrap.AdminPassword == "") {
		return fmt.Errorf("BOOTSTRAP_ADMIN_EMAIL and BOOTSTRAP_ADMIN_PASSWORD must be set together")
	}
	return nil
}

// Location returns the timezone attendance dates are computed in.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Attendance.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid ATTENDANCE_TIMEZONE: %w", err)
	}
	return loc, nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvSlice(env, fallback string) []string {
	value := getEnv(env, fallback)
	if value == "" {
		return []string{}
	}
	var result []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			result = append(result, item)
		}
	}
	return result
}
