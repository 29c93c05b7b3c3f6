package store

import (
	"database/sql"
	"fmt"
)

// --- Header operations ---

func (s *Store) InsertHeader(h *Header) (int64, error) {
	res, err := s.db.Exec(
		"INSERT INTO headers (path, hash, line_count, last_emitted) VALUES (?, ?, ?, ?)",
		h.Path, h.Hash, h.LineCount, h.LastEmitted,
	)
	if err != nil {
		return 0, fmt.Errorf("insert header: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	h.ID = id
	return id, nil
}

const headerCols = `id, path, hash, line_count, last_emitted`

// HeaderByPathHash finds the header row for an exact (path, content hash)
// pair. Returns nil if that version has never been emitted.
func (s *Store) HeaderByPathHash(path, hash string) (*Header, error) {
	h := &Header{}
	err := s.db.QueryRow(
		"SELECT "+headerCols+" FROM headers WHERE path = ? AND hash = ?", path, hash,
	).Scan(&h.ID, &h.Path, &h.Hash, &h.LineCount, &h.LastEmitted)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("header by path+hash: %w", err)
	}
	return h, nil
}

// HeadersBySnapshot returns the headers linked into a snapshot.
func (s *Store) HeadersBySnapshot(snapshotID int64) ([]*Header, error) {
	rows, err := s.db.Query(
		`SELECT h.id, h.path, h.hash, h.line_count, h.last_emitted
		 FROM headers h JOIN snapshot_headers sh ON sh.header_id = h.id
		 WHERE sh.snapshot_id = ? ORDER BY h.path`,
		snapshotID,
	)
	if err != nil {
		return nil, fmt.Errorf("headers by snapshot: %w", err)
	}
	defer rows.Close()
	var headers []*Header
	for rows.Next() {
		h := &Header{}
		if err := rows.Scan(&h.ID, &h.Path, &h.Hash, &h.LineCount, &h.LastEmitted); err != nil {
			return nil, fmt.Errorf("scan header: %w", err)
		}
		headers = append(headers, h)
	}
	return headers, rows.Err()
}

// --- Snapshot operations ---

func (s *Store) InsertSnapshot(snap *Snapshot) (int64, error) {
	res, err := s.db.Exec(
		"INSERT INTO snapshots (uuid, label, producer, created_at) VALUES (?, ?, ?, ?)",
		snap.UUID, snap.Label, snap.Producer, snap.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert snapshot: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	snap.ID = id
	return id, nil
}

// LinkHeader attaches a header to a snapshot. Idempotent.
func (s *Store) LinkHeader(snapshotID, headerID int64) error {
	_, err := s.db.Exec(
		"INSERT OR IGNORE INTO snapshot_headers (snapshot_id, header_id) VALUES (?, ?)",
		snapshotID, headerID,
	)
	if err != nil {
		return fmt.Errorf("link header: %w", err)
	}
	return nil
}

const snapshotCols = `id, uuid, label, producer, created_at`

func (s *Store) scanSnapshot(scanner interface{ Scan(...any) error }) (*Snapshot, error) {
	snap := &Snapshot{}
	return snap, scanner.Scan(&snap.ID, &snap.UUID, &snap.Label, &snap.Producer, &snap.CreatedAt)
}

func (s *Store) SnapshotByID(id int64) (*Snapshot, error) {
	snap, err := s.scanSnapshot(s.db.QueryRow(
		"SELECT "+snapshotCols+" FROM snapshots WHERE id = ?", id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot by id: %w", err)
	}
	return snap, nil
}

func (s *Store) SnapshotByUUID(uuid string) (*Snapshot, error) {
	snap, err := s.scanSnapshot(s.db.QueryRow(
		"SELECT "+snapshotCols+" FROM snapshots WHERE uuid = ?", uuid,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot by uuid: %w", err)
	}
	return snap, nil
}

// SnapshotByLabel returns the most recently created snapshot with the label.
// Labels are not unique; re-emitting under the same label supersedes.
func (s *Store) SnapshotByLabel(label string) (*Snapshot, error) {
	snap, err := s.scanSnapshot(s.db.QueryRow(
		"SELECT "+snapshotCols+" FROM snapshots WHERE label = ? ORDER BY created_at DESC, id DESC LIMIT 1",
		label,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot by label: %w", err)
	}
	return snap, nil
}

// Snapshots returns all snapshots, newest first.
func (s *Store) Snapshots() ([]*Snapshot, error) {
	rows, err := s.db.Query("SELECT " + snapshotCols + " FROM snapshots ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()
	var snaps []*Snapshot
	for rows.Next() {
		snap, err := s.scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}
