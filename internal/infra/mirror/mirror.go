// Package mirror copies the live board into a SQL table after every
// committed mutation so reporting tools can query it. The table is emptied
// when a mirror opens and is never read back into the board, so the board
// still starts empty on every process start.
package mirror

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"incidentdesk/internal/core"
	"incidentdesk/pkg/domain"
)

// Compile-time contract assertion.
var _ core.Observer = (*Store)(nil)

// Table is the mirrored table name.
const Table = "board_records"

// Dialect captures the SQL differences between supported engines.
type Dialect struct {
	Name        string
	PayloadType string
	// Placeholder returns the bind marker for the 1-based argument n.
	Placeholder func(n int) string
}

// Store mirrors board snapshots into Table.
type Store struct {
	db      *sql.DB
	dialect Dialect

	mu       sync.Mutex
	revision uint64
}

// Open prepares the mirror table on db and empties it.
func Open(ctx context.Context, db *sql.DB, dialect Dialect) (*Store, error) {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		position INTEGER NOT NULL,
		id TEXT PRIMARY KEY,
		organization TEXT NOT NULL,
		payload %s NOT NULL
	)`, Table, dialect.PayloadType)
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return nil, fmt.Errorf("create %s: %w", Table, err)
	}
	if _, err := db.ExecContext(ctx, "DELETE FROM "+Table); err != nil {
		return nil, fmt.Errorf("reset %s: %w", Table, err)
	}
	return &Store{db: db, dialect: dialect}, nil
}

// Name implements core.Observer.
func (s *Store) Name() string { return s.dialect.Name + "-mirror" }

// RecordsChanged replaces the mirrored rows with snap. Snapshots older than
// the last applied revision are ignored.
func (s *Store) RecordsChanged(ctx context.Context, snap core.Snapshot) (retErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if snap.Revision != 0 && snap.Revision <= s.revision {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin mirror tx: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, "DELETE FROM "+Table); err != nil {
		return fmt.Errorf("clear mirror: %w", err)
	}
	insert := fmt.Sprintf("INSERT INTO %s (position, id, organization, payload) VALUES (%s)", Table, s.placeholders(4))
	for i, r := range snap.Records {
		payload, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encode record %s: %w", r.ID, err)
		}
		if _, err := tx.ExecContext(ctx, insert, i, r.ID, r.Organization, string(payload)); err != nil {
			return fmt.Errorf("insert record %s: %w", r.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit mirror: %w", err)
	}
	s.revision = snap.Revision
	return nil
}

// Records reads the mirrored rows back in board order.
func (s *Store) Records(ctx context.Context) ([]domain.Record, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT payload FROM "+Table+" ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("select mirror: %w", err)
	}
	defer func() { _ = rows.Close() }()
	out := make([]domain.Record, 0)
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan mirror: %w", err)
		}
		var r domain.Record
		if err := json.Unmarshal([]byte(payload), &r); err != nil {
			return nil, fmt.Errorf("decode mirror row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) placeholders(n int) string {
	marks := make([]string, n)
	for i := range marks {
		marks[i] = s.dialect.Placeholder(i + 1)
	}
	return strings.Join(marks, ", ")
}
