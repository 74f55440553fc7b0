// Package schema creates and evolves the sentences table at startup.
package schema

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/japaniel/phrasebook/pkg/pool"
	"github.com/japaniel/phrasebook/pkg/store"
)

// Table is the only table the layer owns.
const Table = "sentences"

// OriginalIndex enforces uniqueness of sentences.original at the storage layer.
const OriginalIndex = "sentences_original_key"

// Column is an optional column added after the initial release. Default is an
// SQL literal applied to rows that predate the column.
type Column struct {
	Name    string
	Type    string
	Default string
}

// OptionalColumns is the registry of columns added idempotently on startup.
var OptionalColumns = []Column{
	{Name: "status", Type: "TEXT", Default: "'unpracticed'"},
	{Name: "isNew", Type: "INTEGER", Default: "1"},
	{Name: "difficulty", Type: "TEXT", Default: "'medium'"},
	{Name: "isFavorite", Type: "INTEGER", Default: "0"},
}

// Lookup returns the registry entry for name.
func Lookup(name string) (Column, bool) {
	for _, c := range OptionalColumns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Quote double-quotes an identifier so mixed-case names survive PostgreSQL
// case folding.
func Quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// Coalesced is the column expression with its declared default substituted
// for NULL. It panics for names outside the registry.
func Coalesced(name string) string {
	c, ok := Lookup(name)
	if !ok {
		panic("schema: no optional column " + name)
	}
	return fmt.Sprintf("COALESCE(%s, %s)", Quote(c.Name), c.Default)
}

// Bootstrapper prepares the schema before any request is served.
type Bootstrapper struct {
	Driver store.Driver
	// Logger receives per-step outcomes. nil means no logging.
	Logger *slog.Logger
	// Workers bounds concurrent column additions.
	Workers int
}

// Run creates the table if needed, ensures the uniqueness index and adds any
// missing optional columns. A table creation failure or a column that is still
// missing afterwards is returned as an error and must stop the process.
// Individual ALTER failures are logged and do not abort the other columns.
func (b *Bootstrapper) Run(ctx context.Context) error {
	log := b.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	d := b.Driver.Dialect()

	createTable := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		"id" %s,
		"original" TEXT NOT NULL,
		"translation" TEXT NOT NULL,
		"audioPath" TEXT NOT NULL,
		"explanation" TEXT,
		"createdAt" %s DEFAULT CURRENT_TIMESTAMP
	)`, Table, d.SerialKey, d.Timestamp)
	if _, err := b.Driver.Execute(ctx, createTable); err != nil {
		return fmt.Errorf("create %s table: %w", Table, err)
	}
	log.Info("base table ready", "table", Table, "dialect", d.Name)

	createIndex := fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s ("original")`, OriginalIndex, Table)
	if _, err := b.Driver.Execute(ctx, createIndex); err != nil {
		// Usually duplicate rows written by an older version.
		log.Warn("unique index on original not created", "index", OriginalIndex, "err", err)
	}

	existing, err := b.columns(ctx)
	if err != nil {
		return err
	}

	p := pool.New(b.Workers, len(OptionalColumns))
	p.Start(ctx)
	for _, col := range OptionalColumns {
		if existing[col.Name] {
			log.Debug("column exists, skipping", "column", col.Name)
			continue
		}
		if err := p.Submit(ctx, b.addColumn(col, log)); err != nil {
			p.Close()
			return fmt.Errorf("schedule column %s: %w", col.Name, err)
		}
	}
	// Failures were already logged per column; the re-check below decides.
	if err := p.Close(); err != nil {
		log.Debug("column additions finished with errors", "err", err)
	}

	existing, err = b.columns(ctx)
	if err != nil {
		return err
	}
	var missing []string
	for _, col := range OptionalColumns {
		if !existing[col.Name] {
			missing = append(missing, col.Name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s is missing required columns: %s", Table, strings.Join(missing, ", "))
	}
	return nil
}

func (b *Bootstrapper) addColumn(col Column, log *slog.Logger) pool.Job {
	return func(ctx context.Context) error {
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s DEFAULT %s", Table, Quote(col.Name), col.Type, col.Default)
		if _, err := b.Driver.Execute(ctx, stmt); err != nil {
			log.Error("adding column failed", "column", col.Name, "err", err)
			return fmt.Errorf("add column %s: %w", col.Name, err)
		}
		log.Info("added column", "column", col.Name)
		return nil
	}
}

// Columns reports the live column names of the sentences table.
func Columns(ctx context.Context, d store.Driver) (map[string]bool, error) {
	recs, err := d.FetchAll(ctx, d.Dialect().ListColumns, Table)
	if err != nil {
		return nil, fmt.Errorf("list %s columns: %w", Table, err)
	}
	cols := make(map[string]bool, len(recs))
	for _, r := range recs {
		cols[r.String("name")] = true
	}
	return cols, nil
}

func (b *Bootstrapper) columns(ctx context.Context) (map[string]bool, error) {
	return Columns(ctx, b.Driver)
}
