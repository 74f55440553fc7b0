package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/japaniel/phrasebook/pkg/config"
)

// Open selects and opens the backend named by cfg.Driver.
func Open(ctx context.Context, cfg config.Database, logger *slog.Logger) (Driver, error) {
	var (
		d   *SQLDriver
		err error
	)
	switch cfg.Driver {
	case config.DriverSQLite:
		d, err = OpenSQLite(cfg.SQLitePath)
	case config.DriverPostgres:
		d, err = OpenPostgres(ctx, cfg.URL, PostgresOptions{
			PingAttempts: cfg.PingAttempts,
			PingInterval: cfg.PingInterval,
			Logger:       logger,
		})
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}
