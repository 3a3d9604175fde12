// Package postgres mirrors the board into a Postgres table through the pgx
// database/sql driver.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"sync"

	"incidentdesk/internal/infra/mirror"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/incidentdesk?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Dialect describes Postgres bind markers and payload storage.
var Dialect = mirror.Dialect{
	Name:        "postgres",
	PayloadType: "JSONB",
	Placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
}

// NewStore connects to dsn (falls back to defaultDSN), verifies the
// connection and empties the mirror table.
func NewStore(ctx context.Context, dsn string) (*mirror.Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	store, err := mirror.Open(ctx, db, Dialect)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// OverrideSQLOpen swaps the sql.Open implementation and returns a restore
// function. Used by tests to inject stub drivers.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
