// Package store provides the storage driver contract shared by the embedded
// SQLite backend and the networked PostgreSQL backend.
//
// Every statement uses ? positional placeholders and a same-length list of
// bound values. The PostgreSQL variant rebinds placeholders to $n and emulates
// last-insert-id with RETURNING so callers never branch on the backend.
package store

import (
	"context"
	"errors"
	"fmt"
)

// Record is one result row keyed by column name.
type Record map[string]any

// Result describes the outcome of a mutating statement. InsertedID is only
// meaningful after an INSERT.
type Result struct {
	AffectedCount int64
	InsertedID    int64
}

// Driver is the three-operation contract both backends implement.
type Driver interface {
	// FetchOne returns the first matching row, or a nil Record when no row matches.
	FetchOne(ctx context.Context, query string, params ...any) (Record, error)
	// FetchAll returns every matching row in order; the slice is empty, not nil, when nothing matches.
	FetchAll(ctx context.Context, query string, params ...any) ([]Record, error)
	// Execute runs a mutating statement.
	Execute(ctx context.Context, query string, params ...any) (Result, error)
	// Dialect describes the backend's DDL differences.
	Dialect() Dialect
	// Close releases the underlying connection pool.
	Close() error
}

var (
	// ErrUniqueViolation is matched by storage errors caused by a unique constraint.
	ErrUniqueViolation = errors.New("unique constraint violation")
	// ErrParamCount is returned when placeholders and bound values differ in number.
	ErrParamCount = errors.New("placeholder count does not match parameter count")
	// ErrMissingCredentials is returned when the networked backend has no connection URL.
	ErrMissingCredentials = errors.New("DATABASE_URL is not set")
)

// StorageError wraps any backend I/O or query failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
