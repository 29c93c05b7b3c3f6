package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })
	return s
}

// insertTestHeader inserts a header and returns it with ID set.
func insertTestHeader(t *testing.T, s *Store, path, hash string) *Header {
	t.Helper()
	h := &Header{Path: path, Hash: hash, LineCount: 12, LastEmitted: time.Now().Truncate(time.Second)}
	id, err := s.InsertHeader(h)
	require.NoError(t, err)
	require.Positive(t, id)
	return h
}

// insertTestSnapshot inserts a snapshot with a fresh UUID.
func insertTestSnapshot(t *testing.T, s *Store, label string) *Snapshot {
	t.Helper()
	snap := &Snapshot{UUID: uuid.NewString(), Label: label, Producer: "test", CreatedAt: time.Now().Truncate(time.Second)}
	id, err := s.InsertSnapshot(snap)
	require.NoError(t, err)
	require.Positive(t, id)
	return snap
}

// insertTestDecl inserts a decl with minimal required fields.
func insertTestDecl(t *testing.T, s *Store, headerID int64, qname, kind, fingerprint string) *Decl {
	t.Helper()
	d := &Decl{
		HeaderID:      headerID,
		QualifiedName: qname,
		Kind:          kind,
		Fingerprint:   fingerprint,
		Payload:       []byte(`{"kind":"` + kind + `"}`),
		StartLine:     1, EndLine: 4,
	}
	id, err := s.InsertDecl(d)
	require.NoError(t, err)
	require.Positive(t, id)
	return d
}

// =============================================================================
// Schema & Lifecycle
// =============================================================================

func TestMigrate_AllTablesExist(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	expectedTables := []string{
		"headers", "snapshots", "snapshot_headers", "decls", "decl_deps", "metadata",
	}

	for _, table := range expectedTables {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.Migrate())
}

func TestMigrate_WALMode(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	var mode string
	err := s.db.QueryRow("PRAGMA journal_mode").Scan(&mode)
	require.NoError(t, err)
	assert.Equal(t, "wal", mode)
}

// =============================================================================
// Headers & Snapshots
// =============================================================================

func TestHeaderByPathHash(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	h := insertTestHeader(t, s, "/inc/des.h", "aaa")

	got, err := s.HeaderByPathHash("/inc/des.h", "aaa")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, h.ID, got.ID)

	// Different hash is a different header version.
	miss, err := s.HeaderByPathHash("/inc/des.h", "bbb")
	require.NoError(t, err)
	assert.Nil(t, miss)
}

func TestHeader_SamePathTwoVersions(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	old := insertTestHeader(t, s, "/inc/des.h", "aaa")
	cur := insertTestHeader(t, s, "/inc/des.h", "bbb")
	assert.NotEqual(t, old.ID, cur.ID)
}

func TestSnapshotLookup(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	snap := insertTestSnapshot(t, s, "crypto")

	byID, err := s.SnapshotByID(snap.ID)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, snap.UUID, byID.UUID)

	byUUID, err := s.SnapshotByUUID(snap.UUID)
	require.NoError(t, err)
	require.NotNil(t, byUUID)
	assert.Equal(t, snap.ID, byUUID.ID)

	byLabel, err := s.SnapshotByLabel("crypto")
	require.NoError(t, err)
	require.NotNil(t, byLabel)
	assert.Equal(t, snap.ID, byLabel.ID)

	missing, err := s.SnapshotByLabel("nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSnapshotByLabel_LatestWins(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	older := &Snapshot{UUID: uuid.NewString(), Label: "crypto", CreatedAt: time.Now().Add(-time.Hour)}
	_, err := s.InsertSnapshot(older)
	require.NoError(t, err)
	newer := &Snapshot{UUID: uuid.NewString(), Label: "crypto", CreatedAt: time.Now()}
	_, err = s.InsertSnapshot(newer)
	require.NoError(t, err)

	got, err := s.SnapshotByLabel("crypto")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, newer.ID, got.ID)
}

func TestLinkHeader_Idempotent(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	snap := insertTestSnapshot(t, s, "a")
	h := insertTestHeader(t, s, "/inc/a.h", "aaa")

	require.NoError(t, s.LinkHeader(snap.ID, h.ID))
	require.NoError(t, s.LinkHeader(snap.ID, h.ID))

	headers, err := s.HeadersBySnapshot(snap.ID)
	require.NoError(t, err)
	assert.Len(t, headers, 1)
}

// =============================================================================
// Decls & Deps
// =============================================================================

func TestDeclsByName_AcrossSnapshots(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	snapA := insertTestSnapshot(t, s, "a")
	snapB := insertTestSnapshot(t, s, "b")
	hA := insertTestHeader(t, s, "/inc/a.h", "aaa")
	hB := insertTestHeader(t, s, "/inc/b.h", "bbb")
	require.NoError(t, s.LinkHeader(snapA.ID, hA.ID))
	require.NoError(t, s.LinkHeader(snapB.ID, hB.ID))

	insertTestDecl(t, s, hA.ID, "des", "CXXRecord", "fp1")
	insertTestDecl(t, s, hB.ID, "des", "CXXRecord", "fp2")

	// Only snapshot A attached: one hit.
	hits, err := s.DeclsByName([]int64{snapA.ID}, "des")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "fp1", hits[0].Decl.Fingerprint)
	assert.Equal(t, "a", hits[0].SnapshotLabel)

	// Both attached: two hits with differing fingerprints.
	hits, err = s.DeclsByName([]int64{snapA.ID, snapB.ID}, "des")
	require.NoError(t, err)
	require.Len(t, hits, 2)

	// No snapshots: no hits, no error.
	hits, err = s.DeclsByName(nil, "des")
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestDepsOf_OrderPreserved(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	h := insertTestHeader(t, s, "/inc/a.h", "aaa")
	d := insertTestDecl(t, s, h.ID, "Widget", "CXXRecord", "fp")

	for _, dep := range []DeclDep{
		{DeclID: d.ID, Target: "Base", Need: NeedLayout},
		{DeclID: d.ID, Target: "Other", Need: NeedName},
	} {
		_, err := s.InsertDeclDep(&dep)
		require.NoError(t, err)
	}

	deps, err := s.DepsOf(d.ID)
	require.NoError(t, err)
	require.Len(t, deps, 2)
	assert.Equal(t, "Base", deps[0].Target)
	assert.Equal(t, NeedLayout, deps[0].Need)
	assert.Equal(t, "Other", deps[1].Target)
	assert.Equal(t, NeedName, deps[1].Need)
}

func TestDeclsBySnapshot(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	snap := insertTestSnapshot(t, s, "a")
	h1 := insertTestHeader(t, s, "/inc/a.h", "aaa")
	h2 := insertTestHeader(t, s, "/inc/b.h", "bbb")
	require.NoError(t, s.LinkHeader(snap.ID, h1.ID))
	require.NoError(t, s.LinkHeader(snap.ID, h2.ID))

	insertTestDecl(t, s, h1.ID, "zz::Last", "CXXRecord", "fp1")
	insertTestDecl(t, s, h2.ID, "aa::First", "Function", "fp2")

	decls, err := s.DeclsBySnapshot(snap.ID)
	require.NoError(t, err)
	require.Len(t, decls, 2)
	assert.Equal(t, "aa::First", decls[0].QualifiedName)
	assert.Equal(t, "zz::Last", decls[1].QualifiedName)
}

// =============================================================================
// DeleteSnapshot
// =============================================================================

func TestDeleteSnapshot_RemovesOrphans(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	snap := insertTestSnapshot(t, s, "a")
	h := insertTestHeader(t, s, "/inc/a.h", "aaa")
	require.NoError(t, s.LinkHeader(snap.ID, h.ID))
	d := insertTestDecl(t, s, h.ID, "Widget", "CXXRecord", "fp")
	_, err := s.InsertDeclDep(&DeclDep{DeclID: d.ID, Target: "Base", Need: NeedLayout})
	require.NoError(t, err)

	require.NoError(t, s.DeleteSnapshot(snap.ID))

	gone, err := s.SnapshotByID(snap.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	var n int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM headers").Scan(&n))
	assert.Zero(t, n)
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM decls").Scan(&n))
	assert.Zero(t, n)
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM decl_deps").Scan(&n))
	assert.Zero(t, n)
}

func TestDeleteSnapshot_KeepsSharedHeaders(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	snapA := insertTestSnapshot(t, s, "a")
	snapB := insertTestSnapshot(t, s, "b")
	h := insertTestHeader(t, s, "/inc/shared.h", "aaa")
	require.NoError(t, s.LinkHeader(snapA.ID, h.ID))
	require.NoError(t, s.LinkHeader(snapB.ID, h.ID))
	insertTestDecl(t, s, h.ID, "Shared", "CXXRecord", "fp")

	require.NoError(t, s.DeleteSnapshot(snapA.ID))

	headers, err := s.HeadersBySnapshot(snapB.ID)
	require.NoError(t, err)
	require.Len(t, headers, 1)

	decls, err := s.DeclsByHeader(h.ID)
	require.NoError(t, err)
	assert.Len(t, decls, 1)
}

// =============================================================================
// Metadata
// =============================================================================

func TestMetadata_RoundTripAndUpsert(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	got, err := s.GetMetadata("schema_version")
	require.NoError(t, err)
	assert.Equal(t, "", got)

	require.NoError(t, s.SetMetadata("schema_version", "1"))
	require.NoError(t, s.SetMetadata("schema_version", "2"))

	got, err = s.GetMetadata("schema_version")
	require.NoError(t, err)
	assert.Equal(t, "2", got)
}
