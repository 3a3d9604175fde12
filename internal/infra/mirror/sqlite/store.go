// Package sqlite mirrors the board into a SQLite file using the pure Go
// modernc driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"incidentdesk/internal/infra/mirror"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

const defaultPath = "incidentdesk.db"

// Dialect describes SQLite bind markers and payload storage.
var Dialect = mirror.Dialect{
	Name:        "sqlite",
	PayloadType: "TEXT",
	Placeholder: func(int) string { return "?" },
}

// NewStore opens (or creates) the SQLite file at path and empties the mirror
// table. ":memory:" keeps the mirror in process memory.
func NewStore(ctx context.Context, path string) (*mirror.Store, error) {
	if path == "" {
		path = defaultPath
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one connection so an in-memory database is shared by every statement
	db.SetMaxOpenConns(1)
	store, err := mirror.Open(ctx, db, Dialect)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}
