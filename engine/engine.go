package engine

import (
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite" // register pure-Go SQLite driver
)

var (
	registerOnce      sync.Once
	registerErr       error
	registerFunctions = RegisterVectorFunctions
)

// Open opens a SQLite database using the modernc.org/sqlite driver. Vector
// functions are registered before the handle is returned so every pooled
// connection sees them.
//
// For file-based databases, pass a path like "./quotes.sqlite". For in-memory
// databases, pass ":memory:".
func Open(dsn string) (*sql.DB, error) {
	registerOnce.Do(func() { registerErr = registerFunctions(nil) })
	if registerErr != nil {
		return nil, fmt.Errorf("engine: register vector functions: %w", registerErr)
	}
	return sql.Open("sqlite", dsn)
}
