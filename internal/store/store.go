// Package store is the SQLite persistence layer for taproot snapshots. A
// snapshot groups header files; each header owns the serialized top-level
// declaration subtrees extracted from it, keyed by fully-qualified name,
// plus the completeness edges between them.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite data access layer for taproot's 6 tables.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use in transactions.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS headers (
  id              INTEGER PRIMARY KEY,
  path            TEXT NOT NULL,
  hash            TEXT NOT NULL,
  line_count      INTEGER,
  last_emitted    TIMESTAMP,
  UNIQUE(path, hash)
);

CREATE TABLE IF NOT EXISTS snapshots (
  id              INTEGER PRIMARY KEY,
  uuid            TEXT NOT NULL UNIQUE,
  label           TEXT,
  producer        TEXT,
  created_at      TIMESTAMP
);

CREATE TABLE IF NOT EXISTS snapshot_headers (
  snapshot_id     INTEGER NOT NULL REFERENCES snapshots(id),
  header_id       INTEGER NOT NULL REFERENCES headers(id),
  PRIMARY KEY (snapshot_id, header_id)
);

CREATE TABLE IF NOT EXISTS decls (
  id              INTEGER PRIMARY KEY,
  header_id       INTEGER NOT NULL REFERENCES headers(id),
  qualified_name  TEXT NOT NULL,
  kind            TEXT NOT NULL,
  fingerprint     TEXT NOT NULL,
  payload         BLOB NOT NULL,
  start_line      INTEGER,
  end_line        INTEGER
);

CREATE TABLE IF NOT EXISTS decl_deps (
  id              INTEGER PRIMARY KEY,
  decl_id         INTEGER NOT NULL REFERENCES decls(id),
  target          TEXT NOT NULL,
  need            TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS metadata (
  key             TEXT PRIMARY KEY,
  value           TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_headers_path ON headers(path);
CREATE INDEX IF NOT EXISTS idx_snapshots_label ON snapshots(label);
CREATE INDEX IF NOT EXISTS idx_snapshot_headers_header ON snapshot_headers(header_id);
CREATE INDEX IF NOT EXISTS idx_decls_header ON decls(header_id);
CREATE INDEX IF NOT EXISTS idx_decls_qname ON decls(qualified_name);
CREATE INDEX IF NOT EXISTS idx_decls_fingerprint ON decls(fingerprint);
CREATE INDEX IF NOT EXISTS idx_decl_deps_decl ON decl_deps(decl_id);
CREATE INDEX IF NOT EXISTS idx_decl_deps_target ON decl_deps(target);
`

// GetMetadata returns the value for key, or "" if the key is absent.
func (s *Store) GetMetadata(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get metadata: %w", err)
	}
	return value, nil
}

// SetMetadata inserts or replaces the value for key.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO metadata (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set metadata: %w", err)
	}
	return nil
}

// DeleteSnapshot transactionally removes a snapshot: its header links, the
// snapshot row, and any headers (with their decls and deps) left unreferenced
// by every other snapshot. Deletes in reverse-dependency order to respect FK
// constraints.
func (s *Store) DeleteSnapshot(snapshotID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Headers that will be orphaned once this snapshot's links go away.
	rows, err := tx.Query(
		`SELECT header_id FROM snapshot_headers WHERE snapshot_id = ?
		   AND header_id NOT IN (
		     SELECT header_id FROM snapshot_headers WHERE snapshot_id != ?
		   )`,
		snapshotID, snapshotID,
	)
	if err != nil {
		return fmt.Errorf("query orphan headers: %w", err)
	}
	var orphanIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("scan header id: %w", err)
		}
		orphanIDs = append(orphanIDs, id)
	}
	rows.Close()

	if _, err := tx.Exec("DELETE FROM snapshot_headers WHERE snapshot_id = ?", snapshotID); err != nil {
		return fmt.Errorf("delete snapshot headers: %w", err)
	}

	if len(orphanIDs) > 0 {
		placeholders := placeholderList(len(orphanIDs))
		args := int64sToArgs(orphanIDs)
		for _, q := range []string{
			"DELETE FROM decl_deps WHERE decl_id IN (SELECT id FROM decls WHERE header_id IN (" + placeholders + "))",
			"DELETE FROM decls WHERE header_id IN (" + placeholders + ")",
			"DELETE FROM headers WHERE id IN (" + placeholders + ")",
		} {
			if _, err := tx.Exec(q, args...); err != nil {
				return fmt.Errorf("delete orphan header data: %w", err)
			}
		}
	}

	if _, err := tx.Exec("DELETE FROM snapshots WHERE id = ?", snapshotID); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}

	return tx.Commit()
}
