package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// PostgresOptions tunes the startup connection check.
type PostgresOptions struct {
	PingAttempts int
	PingInterval time.Duration
	Logger       *slog.Logger
}

// OpenPostgres connects to the networked backend. It fails immediately when
// url is empty and otherwise pings until the server answers or the attempts
// are exhausted.
func OpenPostgres(ctx context.Context, url string, opts PostgresOptions) (*SQLDriver, error) {
	if strings.TrimSpace(url) == "" {
		return nil, ErrMissingCredentials
	}
	if opts.PingAttempts <= 0 {
		opts.PingAttempts = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	// sql.Open only prepares the pool; the first round trip happens in Ping.
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxIdleConns(10)
	db.SetMaxOpenConns(100)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(10 * time.Minute)

	var pingErr error
	for i := 1; i <= opts.PingAttempts; i++ {
		if pingErr = db.PingContext(ctx); pingErr == nil {
			return &SQLDriver{db: db, dialect: Postgres, isUnique: isPostgresUnique}, nil
		}
		if i == opts.PingAttempts {
			break
		}
		logger.Warn("database not ready", "attempt", i, "max", opts.PingAttempts, "retry_in", opts.PingInterval)
		select {
		case <-ctx.Done():
			db.Close()
			return nil, ctx.Err()
		case <-time.After(opts.PingInterval):
		}
	}

	db.Close()
	return nil, fmt.Errorf("connecting to database after %d attempts: %w", opts.PingAttempts, pingErr)
}

func isPostgresUnique(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
