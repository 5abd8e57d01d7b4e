package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"go.trai.ch/bom/internal/core/domain"
	"go.trai.ch/bom/internal/core/ports"
	"go.trai.ch/zerr"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS entries (
	id     TEXT PRIMARY KEY,
	sha256 TEXT NOT NULL UNIQUE,
	seq    INTEGER NOT NULL,
	body   TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS relationships (
	src  TEXT NOT NULL,
	dst  TEXT NOT NULL,
	kind TEXT NOT NULL,
	PRIMARY KEY (src, dst, kind)
);
CREATE TABLE IF NOT EXISTS diagnostics (
	seq  INTEGER PRIMARY KEY,
	body TEXT NOT NULL
);
`

var _ ports.GraphRepository = (*SQLiteRepository)(nil)

// SQLiteRepository stores a snapshot in a SQLite database. Entries are unique by
// strong hash at the table level.
type SQLiteRepository struct{}

// NewSQLiteRepository creates a SQLiteRepository.
func NewSQLiteRepository() *SQLiteRepository {
	return &SQLiteRepository{}
}

func openDB(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to open graph database"), "path", path)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, zerr.Wrap(err, "failed to enable WAL mode")
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, zerr.Wrap(err, "failed to create graph schema")
	}
	return db, nil
}

// Load reads the snapshot stored in the database at location.
func (r *SQLiteRepository) Load(ctx context.Context, location string) (*domain.Snapshot, error) {
	path := filepath.Clean(location)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, zerr.With(zerr.Wrap(domain.ErrGraphNotFound, "no graph stored"), "path", location)
		}
		return nil, zerr.With(zerr.Wrap(err, "failed to stat graph database"), "path", location)
	}

	db, err := openDB(ctx, path)
	if err != nil {
		return nil, err
	}
	defer db.Close() //nolint:errcheck // Read-only use

	s := &domain.Snapshot{DocumentID: domain.DocumentID}
	var version string
	err = db.QueryRowContext(ctx, "SELECT value FROM meta WHERE key = 'schema_version'").Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, zerr.With(zerr.Wrap(domain.ErrGraphNotFound, "graph database is empty"), "path", location)
	}
	if err != nil {
		return nil, zerr.Wrap(err, "failed to read graph metadata")
	}
	if s.SchemaVersion, err = strconv.Atoi(version); err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrUnsupportedSchema, "schema version is not a number"), "schema_version", version)
	}

	if err := readRows(ctx, db, "SELECT body FROM entries ORDER BY seq", func(rows *sql.Rows) error {
		var body string
		if err := rows.Scan(&body); err != nil {
			return err
		}
		var e domain.SoftwareEntry
		if err := json.Unmarshal([]byte(body), &e); err != nil {
			return err
		}
		s.Entries = append(s.Entries, e)
		return nil
	}); err != nil {
		return nil, zerr.Wrap(err, "failed to read entries")
	}

	if err := readRows(ctx, db, "SELECT src, dst, kind FROM relationships", func(rows *sql.Rows) error {
		var rel domain.Relationship
		if err := rows.Scan(&rel.From, &rel.To, &rel.Kind); err != nil {
			return err
		}
		s.Relationships = append(s.Relationships, rel)
		return nil
	}); err != nil {
		return nil, zerr.Wrap(err, "failed to read relationships")
	}
	domain.SortRelationships(s.Relationships)

	if err := readRows(ctx, db, "SELECT body FROM diagnostics ORDER BY seq", func(rows *sql.Rows) error {
		var body string
		if err := rows.Scan(&body); err != nil {
			return err
		}
		var d domain.Diagnostic
		if err := json.Unmarshal([]byte(body), &d); err != nil {
			return err
		}
		s.Diagnostics = append(s.Diagnostics, d)
		return nil
	}); err != nil {
		return nil, zerr.Wrap(err, "failed to read diagnostics")
	}
	return s, nil
}

func readRows(ctx context.Context, db *sql.DB, query string, scan func(*sql.Rows) error) error {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close() //nolint:errcheck // Err is checked below

	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Save replaces the contents of the database at location with snapshot.
func (r *SQLiteRepository) Save(ctx context.Context, location string, snapshot *domain.Snapshot) error {
	path := filepath.Clean(location)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create directory for graph"), "path", path)
	}

	db, err := openDB(ctx, path)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck // Commit already reported

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return zerr.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback() //nolint:errcheck // No-op after commit

	for _, table := range []string{"meta", "entries", "relationships", "diagnostics"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return zerr.With(zerr.Wrap(err, "failed to clear table"), "table", table)
		}
	}

	if _, err := tx.ExecContext(ctx, "INSERT INTO meta (key, value) VALUES ('schema_version', ?)",
		strconv.Itoa(snapshot.SchemaVersion)); err != nil {
		return zerr.Wrap(err, "failed to write graph metadata")
	}

	for i := range snapshot.Entries {
		e := &snapshot.Entries[i]
		body, err := json.Marshal(e)
		if err != nil {
			return zerr.Wrap(err, "failed to marshal entry")
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO entries (id, sha256, seq, body) VALUES (?, ?, ?, ?)",
			string(e.ID), e.Hashes.SHA256, i, string(body)); err != nil {
			return zerr.With(zerr.Wrap(domain.ErrStoreIntegrityViolation, err.Error()), "entry_id", string(e.ID))
		}
	}

	for _, rel := range snapshot.Relationships {
		if _, err := tx.ExecContext(ctx, "INSERT OR IGNORE INTO relationships (src, dst, kind) VALUES (?, ?, ?)",
			string(rel.From), string(rel.To), string(rel.Kind)); err != nil {
			return zerr.Wrap(err, "failed to write relationship")
		}
	}

	for i, d := range snapshot.Diagnostics {
		body, err := json.Marshal(d)
		if err != nil {
			return zerr.Wrap(err, "failed to marshal diagnostic")
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO diagnostics (seq, body) VALUES (?, ?)", i, string(body)); err != nil {
			return zerr.Wrap(err, "failed to write diagnostic")
		}
	}

	if err := tx.Commit(); err != nil {
		return zerr.Wrap(err, "failed to commit graph")
	}
	return nil
}
