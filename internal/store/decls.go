package store

import "fmt"

// --- Decl operations ---

func (s *Store) InsertDecl(d *Decl) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO decls (header_id, qualified_name, kind, fingerprint, payload, start_line, end_line)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		d.HeaderID, d.QualifiedName, d.Kind, d.Fingerprint, d.Payload, d.StartLine, d.EndLine,
	)
	if err != nil {
		return 0, fmt.Errorf("insert decl: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	d.ID = id
	return id, nil
}

const declCols = `id, header_id, qualified_name, kind, fingerprint, payload, start_line, end_line`

func (s *Store) scanDecl(scanner interface{ Scan(...any) error }) (*Decl, error) {
	d := &Decl{}
	return d, scanner.Scan(
		&d.ID, &d.HeaderID, &d.QualifiedName, &d.Kind, &d.Fingerprint,
		&d.Payload, &d.StartLine, &d.EndLine,
	)
}

func (s *Store) queryDecls(query string, args ...any) ([]*Decl, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var decls []*Decl
	for rows.Next() {
		d, err := s.scanDecl(rows)
		if err != nil {
			return nil, fmt.Errorf("scan decl: %w", err)
		}
		decls = append(decls, d)
	}
	return decls, rows.Err()
}

// DeclsByHeader returns the top-level decls stored for a header.
func (s *Store) DeclsByHeader(headerID int64) ([]*Decl, error) {
	return s.queryDecls("SELECT "+declCols+" FROM decls WHERE header_id = ? ORDER BY id", headerID)
}

// DeclsBySnapshot returns all top-level decls reachable through a snapshot's
// headers, ordered by qualified name.
func (s *Store) DeclsBySnapshot(snapshotID int64) ([]*Decl, error) {
	return s.queryDecls(
		`SELECT d.id, d.header_id, d.qualified_name, d.kind, d.fingerprint, d.payload, d.start_line, d.end_line
		 FROM decls d JOIN snapshot_headers sh ON sh.header_id = d.header_id
		 WHERE sh.snapshot_id = ? ORDER BY d.qualified_name`,
		snapshotID,
	)
}

// DeclsByName finds every stored decl with the given fully-qualified name
// across the listed snapshots. More than one hit with differing fingerprints
// is how redefinition conflicts surface.
func (s *Store) DeclsByName(snapshotIDs []int64, qualifiedName string) ([]*DeclHit, error) {
	if len(snapshotIDs) == 0 {
		return nil, nil
	}
	placeholders := placeholderList(len(snapshotIDs))
	args := append([]any{qualifiedName}, int64sToArgs(snapshotIDs)...)
	rows, err := s.db.Query(
		`SELECT d.id, d.header_id, d.qualified_name, d.kind, d.fingerprint, d.payload, d.start_line, d.end_line,
		        sn.id, sn.uuid, sn.label
		 FROM decls d
		 JOIN snapshot_headers sh ON sh.header_id = d.header_id
		 JOIN snapshots sn ON sn.id = sh.snapshot_id
		 WHERE d.qualified_name = ? AND sn.id IN (`+placeholders+`)
		 ORDER BY sn.id, d.id`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("decls by name: %w", err)
	}
	defer rows.Close()
	var hits []*DeclHit
	for rows.Next() {
		d := &Decl{}
		hit := &DeclHit{Decl: d}
		if err := rows.Scan(
			&d.ID, &d.HeaderID, &d.QualifiedName, &d.Kind, &d.Fingerprint,
			&d.Payload, &d.StartLine, &d.EndLine,
			&hit.SnapshotID, &hit.SnapshotUUID, &hit.SnapshotLabel,
		); err != nil {
			return nil, fmt.Errorf("scan decl hit: %w", err)
		}
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

// --- DeclDep operations ---

func (s *Store) InsertDeclDep(dep *DeclDep) (int64, error) {
	res, err := s.db.Exec(
		"INSERT INTO decl_deps (decl_id, target, need) VALUES (?, ?, ?)",
		dep.DeclID, dep.Target, dep.Need,
	)
	if err != nil {
		return 0, fmt.Errorf("insert decl dep: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	dep.ID = id
	return id, nil
}

// DepsOf returns the completeness edges recorded for a stored decl.
func (s *Store) DepsOf(declID int64) ([]*DeclDep, error) {
	rows, err := s.db.Query(
		"SELECT id, decl_id, target, need FROM decl_deps WHERE decl_id = ? ORDER BY id",
		declID,
	)
	if err != nil {
		return nil, fmt.Errorf("deps of decl: %w", err)
	}
	defer rows.Close()
	var deps []*DeclDep
	for rows.Next() {
		dep := &DeclDep{}
		if err := rows.Scan(&dep.ID, &dep.DeclID, &dep.Target, &dep.Need); err != nil {
			return nil, fmt.Errorf("scan decl dep: %w", err)
		}
		deps = append(deps, dep)
	}
	return deps, rows.Err()
}
