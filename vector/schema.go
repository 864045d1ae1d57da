package vector

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strconv"
)

// DefaultTable is the table quotes are stored in unless configured otherwise.
const DefaultTable = "quotes"

var identifierExpr = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// ValidateIdentifier rejects table names that are not plain SQL identifiers.
// Table names are interpolated into statements, so only trusted shapes pass.
func ValidateIdentifier(name string) error {
	if !identifierExpr.MatchString(name) {
		return fmt.Errorf("%w: invalid table name %q", ErrInvalidArgument, name)
	}
	return nil
}

const metaSchema = `
CREATE TABLE IF NOT EXISTS quote_meta (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// SchemaDDL returns the statement creating the quotes table. AUTOINCREMENT
// keeps SQLite from reusing the id of a deleted row.
func SchemaDDL(table string) string {
	return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
    id        INTEGER PRIMARY KEY AUTOINCREMENT,
    text      TEXT NOT NULL,
    label     TEXT,
    embedding BLOB NOT NULL
);
`, table)
}

// EnsureSchema creates the quotes table and records its dimension if they do
// not already exist. Opening a table that was created with another dimension
// fails with ErrDimensionMismatch.
func EnsureSchema(ctx context.Context, db *sql.DB, table string, dim int) error {
	if err := ValidateIdentifier(table); err != nil {
		return err
	}
	if err := ValidateDimension(dim); err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if _, err := db.ExecContext(ctx, SchemaDDL(table)); err != nil {
		return Backend("create table", err)
	}
	if _, err := db.ExecContext(ctx, metaSchema); err != nil {
		return Backend("create meta table", err)
	}
	key := table + ".dimension"
	if _, err := db.ExecContext(ctx, `INSERT OR IGNORE INTO quote_meta(key, value) VALUES(?, ?)`, key, strconv.Itoa(dim)); err != nil {
		return Backend("record dimension", err)
	}
	var stored string
	if err := db.QueryRowContext(ctx, `SELECT value FROM quote_meta WHERE key = ?`, key).Scan(&stored); err != nil {
		return Backend("read dimension", err)
	}
	if stored != strconv.Itoa(dim) {
		return fmt.Errorf("%w: table %s was created with dimension %s, configured %d", ErrDimensionMismatch, table, stored, dim)
	}
	return nil
}
