package store

import (
	"database/sql"
	"fmt"
)

// CommitBatch inserts all buffered data from a BatchedStore into SQLite
// within a single transaction. Fake (negative) IDs are remapped to real
// (positive, AUTOINCREMENT) IDs, and dep rows referencing a fake decl ID
// are rewritten using the fakeToReal mapping.
//
// Insert order respects FK dependencies: decls first (header_id is already
// real, assigned during serial preparation), then decl_deps.
func (s *Store) CommitBatch(batch *BatchedStore) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("commit batch: begin: %w", err)
	}
	defer tx.Rollback()

	fakeToReal := make(map[int64]int64)

	for _, d := range batch.Decls {
		realID, err := insertDeclTx(tx, &d)
		if err != nil {
			return fmt.Errorf("commit batch: decl %q: %w", d.QualifiedName, err)
		}
		fakeToReal[d.ID] = realID
	}

	for _, dep := range batch.Deps {
		if dep.DeclID < 0 {
			realID, ok := fakeToReal[dep.DeclID]
			if !ok {
				return fmt.Errorf("commit batch: dep %q has decl_id=%d not in fakeToReal map (have %d decls)",
					dep.Target, dep.DeclID, len(batch.Decls))
			}
			dep.DeclID = realID
		}
		if _, err := insertDeclDepTx(tx, &dep); err != nil {
			return fmt.Errorf("commit batch: dep %q: %w", dep.Target, err)
		}
	}

	return tx.Commit()
}

// --- Transaction-scoped insert helpers ---
// These mirror the Store insert methods but accept *sql.Tx instead of using s.db.

func insertDeclTx(tx *sql.Tx, d *Decl) (int64, error) {
	res, err := tx.Exec(
		`INSERT INTO decls (header_id, qualified_name, kind, fingerprint, payload, start_line, end_line)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		d.HeaderID, d.QualifiedName, d.Kind, d.Fingerprint, d.Payload, d.StartLine, d.EndLine,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func insertDeclDepTx(tx *sql.Tx, dep *DeclDep) (int64, error) {
	res, err := tx.Exec(
		"INSERT INTO decl_deps (decl_id, target, need) VALUES (?, ?, ?)",
		dep.DeclID, dep.Target, dep.Need,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
