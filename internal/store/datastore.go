package store

// DataStore is the interface for emission-phase data access. Both Store
// (direct SQLite) and BatchedStore (in-memory buffering for parallel
// emission) implement this interface.
type DataStore interface {
	// Emission inserts; each returns the assigned ID.
	InsertDecl(d *Decl) (int64, error)
	InsertDeclDep(dep *DeclDep) (int64, error)

	// Read-back needed when reusing an unchanged header's stored decls.
	DeclsByHeader(headerID int64) ([]*Decl, error)
}

// Compile-time check: *Store satisfies DataStore.
var _ DataStore = (*Store)(nil)
