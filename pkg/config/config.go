// Package config loads process configuration from the environment, optionally
// seeded from .env files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	ArtifactsDisk     = "disk"
	ArtifactsSupabase = "supabase"
)

// Config is the full process configuration.
type Config struct {
	Database  Database
	Artifacts Artifacts
	HTTPAddr  string
	LogLevel  slog.Level
	// MigrationWorkers bounds concurrent optional-column additions.
	MigrationWorkers int
}

// Database selects and parameterises the storage backend.
type Database struct {
	Driver       string
	SQLitePath   string
	URL          string
	PingAttempts int
	PingInterval time.Duration
}

// Artifacts selects where uploaded audio is kept.
type Artifacts struct {
	Backend     string
	Dir         string
	URLPrefix   string
	SupabaseURL string
	SupabaseKey string
	Bucket      string
}

// Load reads the given .env files (all of ".env" when none are given; missing
// files are ignored) and then the process environment. Variables already set in
// the environment win over file values.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables only.
func FromEnv() (Config, error) {
	var errs []error

	cfg := Config{
		Database: Database{
			Driver:       strings.ToLower(env("DB_DRIVER", DriverSQLite)),
			SQLitePath:   env("SQLITE_PATH", "data/sentences.db"),
			URL:          os.Getenv("DATABASE_URL"),
			PingAttempts: intEnv("DB_PING_ATTEMPTS", 10, &errs),
			PingInterval: durationEnv("DB_PING_INTERVAL", 3*time.Second, &errs),
		},
		Artifacts: Artifacts{
			Backend:     strings.ToLower(env("ARTIFACT_BACKEND", ArtifactsDisk)),
			Dir:         env("UPLOAD_DIR", "uploads"),
			URLPrefix:   env("UPLOAD_URL_PREFIX", "/uploads"),
			SupabaseURL: os.Getenv("SUPABASE_URL"),
			SupabaseKey: os.Getenv("SUPABASE_KEY"),
			Bucket:      env("SUPABASE_BUCKET", "uploads"),
		},
		HTTPAddr:         env("HTTP_ADDR", ":8080"),
		MigrationWorkers: intEnv("MIGRATION_WORKERS", 4, &errs),
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(env("LOG_LEVEL", "info"))); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}

	switch cfg.Database.Driver {
	case DriverSQLite:
	case DriverPostgres:
		if cfg.Database.URL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when DB_DRIVER=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER: unknown driver %q", cfg.Database.Driver))
	}

	switch cfg.Artifacts.Backend {
	case ArtifactsDisk:
	case ArtifactsSupabase:
		if cfg.Artifacts.SupabaseURL == "" || cfg.Artifacts.SupabaseKey == "" {
			errs = append(errs, errors.New("SUPABASE_URL and SUPABASE_KEY are required when ARTIFACT_BACKEND=supabase"))
		}
	default:
		errs = append(errs, fmt.Errorf("ARTIFACT_BACKEND: unknown backend %q", cfg.Artifacts.Backend))
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func env(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func intEnv(key string, def int, errs *[]error) int {
	v := env(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		*errs = append(*errs, fmt.Errorf("%s: expected a positive integer, got %q", key, v))
		return def
	}
	return n
}

func durationEnv(key string, def time.Duration, errs *[]error) time.Duration {
	v := env(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}
