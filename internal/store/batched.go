package store

import "sync"

// BatchedStore buffers emission inserts in memory using fake (negative)
// IDs. It implements DataStore so the emit pipeline can write to it
// without knowing whether it's hitting SQLite or an in-memory buffer.
//
// Thread safety: the mutex protects fake ID allocation and slice appends.
// Read queries are passed through to the underlying Store, which is safe
// for concurrent reads.
type BatchedStore struct {
	store *Store // for read passthrough
	mu    sync.Mutex

	// Buffered emission data.
	Decls []Decl
	Deps  []DeclDep

	nextFakeID int64 // starts at -1, decrements
}

// Compile-time check: *BatchedStore satisfies DataStore.
var _ DataStore = (*BatchedStore)(nil)

// NewBatchedStore creates a BatchedStore backed by the given Store for read queries.
func NewBatchedStore(s *Store) *BatchedStore {
	return &BatchedStore{
		store:      s,
		nextFakeID: -1,
	}
}

func (b *BatchedStore) allocFakeID() int64 {
	id := b.nextFakeID
	b.nextFakeID--
	return id
}

func (b *BatchedStore) InsertDecl(d *Decl) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	d.ID = fakeID
	b.Decls = append(b.Decls, *d)
	return fakeID, nil
}

func (b *BatchedStore) InsertDeclDep(dep *DeclDep) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	dep.ID = fakeID
	b.Deps = append(b.Deps, *dep)
	return fakeID, nil
}

// DeclsByHeader returns decls for a header, merging any buffered (not yet
// committed) decls with those already in the database.
func (b *BatchedStore) DeclsByHeader(headerID int64) ([]*Decl, error) {
	dbDecls, err := b.store.DeclsByHeader(headerID)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.Decls {
		if b.Decls[i].HeaderID == headerID {
			dbDecls = append(dbDecls, &b.Decls[i])
		}
	}
	return dbDecls, nil
}
