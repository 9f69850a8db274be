package database

import (
	"database/sql"
	"os"
	"path/filepath"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/argo-eval/pkg/errors"
)

// InMemory is the DuckDB path of a private in-memory database.
const InMemory = ":memory:"

// Open opens the DuckDB database at path, creating its directory when needed.
// The price store and the cache store share the returned handle.
func Open(path string) (*sql.DB, error) {
	if path != InMemory && path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, errors.Wrapf(errors.ErrCodeStoreUnavailable, err, "failed to create directory for %s", path)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeStoreUnavailable, err, "failed to open DuckDB at %s", path)
	}

	if err := db.Ping(); err != nil {
		db.Close()

		return nil, errors.Wrapf(errors.ErrCodeStoreUnavailable, err, "failed to connect to DuckDB at %s", path)
	}

	return db, nil
}

// Builder returns the squirrel statement builder used against DuckDB.
func Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)
}
