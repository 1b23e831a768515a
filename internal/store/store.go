// Package store keeps a history of estimation runs in SQLite. Each run is a
// row of summary columns plus the full result encoded with msgpack.
package store

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/agbru/fibqpe/pkg/models"
)

// ErrNotFound is returned by Get for an unknown run id.
var ErrNotFound = errors.New("run not found")

// DefaultListLimit caps List when the caller passes a non-positive limit.
const DefaultListLimit = 50

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	modulus    INTEGER NOT NULL,
	shots      INTEGER NOT NULL,
	seed       INTEGER NOT NULL,
	mode       INTEGER NOT NULL,
	pisano     INTEGER NOT NULL,
	created_at INTEGER NOT NULL,
	payload    BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_modulus ON runs (modulus);
`

// Store is a run history backed by one SQLite database.
type Store struct {
	conn *sql.DB
	path string
}

// Open opens (creating if needed) the database at path and applies the
// schema. ":memory:" gives a private in-memory history.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	conn, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: in-memory databases are per connection and SQLite
	// serializes writers anyway.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Store{conn: conn, path: path}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Path returns the database path given to Open.
func (s *Store) Path() string { return s.path }

// Save records r. Saving a run id twice replaces the earlier row.
func (s *Store) Save(ctx context.Context, r models.EstimationResult) error {
	if r.RunID == "" {
		return errors.New("run id is required")
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	payload, err := encode(r)
	if err != nil {
		return fmt.Errorf("encoding run %s: %w", r.RunID, err)
	}
	_, err = s.conn.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs (id, modulus, shots, seed, mode, pisano, created_at, payload)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, int64(r.Modulus), r.Shots, int64(r.Seed), r.Mode, int64(r.Pisano), r.CreatedAt.UnixNano(), payload)
	if err != nil {
		return fmt.Errorf("saving run %s: %w", r.RunID, err)
	}
	return nil
}

// List returns the most recent runs first, at most limit of them.
func (s *Store) List(ctx context.Context, limit int) ([]models.RunSummary, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, modulus, shots, seed, mode, pisano, created_at FROM runs
		 ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var out []models.RunSummary
	for rows.Next() {
		var (
			sum                   models.RunSummary
			modulus, seed, pisano int64
			created               int64
		)
		if err := rows.Scan(&sum.RunID, &modulus, &sum.Shots, &seed, &sum.Mode, &pisano, &created); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		sum.Modulus = uint64(modulus)
		sum.Seed = uint64(seed)
		sum.Pisano = uint64(pisano)
		sum.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Get returns the full result of run id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (models.EstimationResult, error) {
	var payload []byte
	err := s.conn.QueryRowContext(ctx, `SELECT payload FROM runs WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return models.EstimationResult{}, ErrNotFound
	}
	if err != nil {
		return models.EstimationResult{}, fmt.Errorf("loading run %s: %w", id, err)
	}
	return decode(payload)
}

// encode and decode use the json tags so the stored document has the same
// field names as the API.
func encode(r models.EstimationResult) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decode(payload []byte) (models.EstimationResult, error) {
	var r models.EstimationResult
	dec := msgpack.NewDecoder(bytes.NewReader(payload))
	dec.SetCustomStructTag("json")
	if err := dec.Decode(&r); err != nil {
		return models.EstimationResult{}, fmt.Errorf("decoding run: %w", err)
	}
	r.CreatedAt = r.CreatedAt.UTC()
	return r, nil
}
