package store

import "time"

// Need levels for completeness edges between declarations.
const (
	// NeedLayout means the target must be fully materialized before the
	// depending decl is complete (base classes, by-value members).
	NeedLayout = "layout"
	// NeedName means a forward declaration suffices (pointer and reference
	// members, parameter and return types).
	NeedName = "name"
)

// Header is one ingested header file. A path may appear in multiple rows,
// one per distinct content hash; snapshots link to the version they were
// emitted from.
type Header struct {
	ID          int64
	Path        string
	Hash        string
	LineCount   int
	LastEmitted time.Time
}

// Snapshot is one emitted group of headers, the persisted analogue of a
// precompiled header or module.
type Snapshot struct {
	ID        int64
	UUID      string
	Label     string
	Producer  string
	CreatedAt time.Time
}

// Decl is one serialized top-level declaration subtree.
type Decl struct {
	ID            int64
	HeaderID      int64
	QualifiedName string
	Kind          string
	Fingerprint   string
	Payload       []byte
	StartLine     int
	EndLine       int
}

// DeclDep is a completeness edge from a stored decl to a referenced name.
type DeclDep struct {
	ID     int64
	DeclID int64
	Target string
	Need   string
}

// DeclHit is a decl found by qualified name, annotated with the snapshot it
// was found through so callers can report redefinition conflicts.
type DeclHit struct {
	Decl          *Decl
	SnapshotID    int64
	SnapshotUUID  string
	SnapshotLabel string
}
