package main

import (
	"time"

	"github.com/jward/taproot"
)

// CLIResult is the top-level JSON envelope for all commands.
type CLIResult struct {
	Command string `json:"command"`
	Results any    `json:"results"`
	Error   string `json:"error,omitempty"`
}

// CLISnapshot is a JSON-friendly snapshot representation. Headers and Stale
// are filled by the commands that inspect the filesystem.
type CLISnapshot struct {
	ID        int64     `json:"id"`
	UUID      string    `json:"uuid"`
	Label     string    `json:"label,omitempty"`
	Producer  string    `json:"producer"`
	CreatedAt time.Time `json:"created_at"`
	Headers   int       `json:"headers,omitempty"`
	Stale     bool      `json:"stale,omitempty"`
}

// CLIDecl is a JSON-friendly stored declaration.
type CLIDecl struct {
	ID            int64  `json:"id"`
	QualifiedName string `json:"qualified_name"`
	Kind          string `json:"kind"`
	Fingerprint   string `json:"fingerprint"`
	StartLine     int    `json:"start_line"`
	EndLine       int    `json:"end_line"`
}

// CLILoadReport is the outcome of a load command: what was deserialized,
// in order, plus names left pending or unresolved.
type CLILoadReport struct {
	Log        []string `json:"log"`
	Pending    []string `json:"pending,omitempty"`
	Unresolved []string `json:"unresolved,omitempty"`
}

func toCLISnapshot(snap *taproot.Snapshot) CLISnapshot {
	return CLISnapshot{
		ID:        snap.ID,
		UUID:      snap.UUID,
		Label:     snap.Label,
		Producer:  snap.Producer,
		CreatedAt: snap.CreatedAt,
	}
}

func toCLIDecl(d *taproot.StoredDecl) CLIDecl {
	return CLIDecl{
		ID:            d.ID,
		QualifiedName: d.QualifiedName,
		Kind:          d.Kind,
		Fingerprint:   d.Fingerprint,
		StartLine:     d.StartLine,
		EndLine:       d.EndLine,
	}
}
