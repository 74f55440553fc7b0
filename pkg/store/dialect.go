package store

// Dialect captures the DDL and catalog differences between the backends.
type Dialect struct {
	Name string
	// SerialKey is the column definition of an auto-assigned, never reused integer primary key.
	SerialKey string
	// Timestamp is the column type used for creation timestamps.
	Timestamp string
	// ListColumns selects a "name" column for every column of the table bound to its single placeholder.
	ListColumns string

	dollarParams    bool
	returningInsert bool
}

var (
	SQLite = Dialect{
		Name:        "sqlite",
		SerialKey:   "INTEGER PRIMARY KEY AUTOINCREMENT",
		Timestamp:   "DATETIME",
		ListColumns: `SELECT name FROM pragma_table_info(?)`,
	}

	Postgres = Dialect{
		Name:      "postgres",
		SerialKey: "BIGSERIAL PRIMARY KEY",
		Timestamp: "TIMESTAMPTZ",
		ListColumns: `SELECT column_name AS name FROM information_schema.columns
			WHERE table_schema = current_schema() AND table_name = ?`,
		dollarParams:    true,
		returningInsert: true,
	}
)

// Rebind converts ? placeholders to the backend's native form.
func (d Dialect) Rebind(query string) string {
	if d.dollarParams {
		return rebindDollar(query)
	}
	return query
}
