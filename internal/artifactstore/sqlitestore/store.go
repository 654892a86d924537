// Package sqlitestore persists artifact records in a SQLite database so that
// repeated generate runs skip graphs whose content did not change.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/specialistvlad/nodegraph/internal/artifactstore"
	"github.com/specialistvlad/nodegraph/internal/diag"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS artifacts (
	graph_id TEXT PRIMARY KEY,
	graph_name TEXT NOT NULL,
	hash TEXT NOT NULL,
	file TEXT NOT NULL,
	package TEXT NOT NULL,
	stored INTEGER NOT NULL,
	diagnostics BLOB
);
CREATE INDEX IF NOT EXISTS idx_artifacts_hash ON artifacts (hash);
`

const columns = "graph_id, graph_name, hash, file, package, stored, diagnostics"

// Store implements artifactstore.Store on SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ artifactstore.Store = (*Store)(nil)

// Open opens or creates the database at path and its table.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open artifact database: %w", err)
	}
	// SQLite allows one writer; bulk workers share the connection.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create artifact tables: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*artifactstore.Record, error) {
	var r artifactstore.Record
	var stored int64
	var diags []byte
	if err := row.Scan(&r.GraphID, &r.GraphName, &r.Hash, &r.File, &r.Package, &stored, &diags); err != nil {
		return nil, err
	}
	r.Stored = time.Unix(0, stored).UTC()
	if len(diags) > 0 {
		var ds []diag.Diagnostic
		if err := artifactstore.Unmarshal(diags, &ds); err != nil {
			return nil, fmt.Errorf("failed to decode diagnostics of graph %s: %w", r.GraphID, err)
		}
		r.Diagnostics = ds
	}
	return &r, nil
}

// Get loads the record of graphID.
func (s *Store) Get(ctx context.Context, graphID string) (*artifactstore.Record, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+columns+" FROM artifacts WHERE graph_id = ?", graphID)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("graph %s: %w", graphID, artifactstore.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load artifact: %w", err)
	}
	return r, nil
}

// Put inserts or replaces the record of r.GraphID.
func (s *Store) Put(ctx context.Context, r *artifactstore.Record) error {
	if r == nil || r.GraphID == "" {
		return fmt.Errorf("record needs a graph id")
	}
	var diags []byte
	if len(r.Diagnostics) > 0 {
		var err error
		if diags, err = artifactstore.Marshal(r.Diagnostics); err != nil {
			return fmt.Errorf("failed to encode diagnostics: %w", err)
		}
	}
	stored := s.now().UTC()
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO artifacts ("+columns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		r.GraphID, r.GraphName, r.Hash, r.File, r.Package, stored.UnixNano(), diags)
	if err != nil {
		return fmt.Errorf("failed to save artifact: %w", err)
	}
	r.Stored = stored
	return nil
}

// List returns all records ordered by graph id.
func (s *Store) List(ctx context.Context) ([]*artifactstore.Record, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+columns+" FROM artifacts ORDER BY graph_id")
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	defer rows.Close()

	var out []*artifactstore.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan artifact row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Delete removes the record of graphID.
func (s *Store) Delete(ctx context.Context, graphID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM artifacts WHERE graph_id = ?", graphID)
	if err != nil {
		return fmt.Errorf("failed to delete artifact: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("graph %s: %w", graphID, artifactstore.ErrNotFound)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
