package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// SQLDriver implements Driver on top of database/sql. Both backends use it;
// they differ only in Dialect and in how unique violations are recognised.
type SQLDriver struct {
	db       *sql.DB
	dialect  Dialect
	isUnique func(error) bool
}

var _ Driver = (*SQLDriver)(nil)

// DB exposes the underlying pool, e.g. for tests that need raw access.
func (d *SQLDriver) DB() *sql.DB { return d.db }

// Dialect returns the backend dialect.
func (d *SQLDriver) Dialect() Dialect { return d.dialect }

// Close closes the connection pool.
func (d *SQLDriver) Close() error { return d.db.Close() }

// FetchOne returns the first row or nil when nothing matches.
func (d *SQLDriver) FetchOne(ctx context.Context, query string, params ...any) (Record, error) {
	recs, err := d.fetch(ctx, "fetchOne", query, params, 1)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return recs[0], nil
}

// FetchAll returns all rows.
func (d *SQLDriver) FetchAll(ctx context.Context, query string, params ...any) ([]Record, error) {
	return d.fetch(ctx, "fetchAll", query, params, 0)
}

// Execute runs a mutating statement and reports affected rows and, for
// inserts, the assigned id.
func (d *SQLDriver) Execute(ctx context.Context, query string, params ...any) (Result, error) {
	const op = "execute"
	q, err := d.prepare(op, query, params)
	if err != nil {
		return Result{}, err
	}

	insert := isInsert(query)
	if insert && d.dialect.returningInsert && !hasReturning(query) {
		// pgx has no LastInsertId; ask the server for the id instead.
		q = strings.TrimRight(strings.TrimSpace(q), ";") + ` RETURNING "id"`
		var id int64
		err := d.db.QueryRowContext(ctx, q, params...).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return Result{}, nil
		}
		if err != nil {
			return Result{}, d.fail(op, err)
		}
		return Result{AffectedCount: 1, InsertedID: id}, nil
	}

	res, err := d.db.ExecContext(ctx, q, params...)
	if err != nil {
		return Result{}, d.fail(op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return Result{}, d.fail(op, fmt.Errorf("rows affected: %w", err))
	}
	out := Result{AffectedCount: affected}
	if insert {
		id, err := res.LastInsertId()
		if err != nil {
			return Result{}, d.fail(op, fmt.Errorf("last insert id: %w", err))
		}
		out.InsertedID = id
	}
	return out, nil
}

func (d *SQLDriver) prepare(op, query string, params []any) (string, error) {
	if n := len(placeholders(query)); n != len(params) {
		return "", &StorageError{Op: op, Err: fmt.Errorf("%w: %d placeholders, %d params", ErrParamCount, n, len(params))}
	}
	return d.dialect.Rebind(query), nil
}

func (d *SQLDriver) fetch(ctx context.Context, op, query string, params []any, max int) ([]Record, error) {
	q, err := d.prepare(op, query, params)
	if err != nil {
		return nil, err
	}
	rows, err := d.db.QueryContext(ctx, q, params...)
	if err != nil {
		return nil, d.fail(op, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, d.fail(op, err)
	}

	out := []Record{}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, d.fail(op, err)
		}
		rec := make(Record, len(cols))
		for i, c := range cols {
			if b, ok := vals[i].([]byte); ok {
				rec[c] = string(b)
				continue
			}
			rec[c] = vals[i]
		}
		out = append(out, rec)
		if max > 0 && len(out) == max {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, d.fail(op, err)
	}
	return out, nil
}

func (d *SQLDriver) fail(op string, err error) error {
	if d.isUnique != nil && d.isUnique(err) {
		err = fmt.Errorf("%w: %w", ErrUniqueViolation, err)
	}
	return &StorageError{Op: op, Err: err}
}
