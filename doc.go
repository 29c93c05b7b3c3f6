// Package taproot is an incremental precompiled-declaration cache for
// C-family headers. It parses headers once with tree-sitter, persists each
// top-level declaration subtree into a keyed SQLite snapshot, and lets
// consumers materialize only the declarations they actually reference:
// on-demand deserialization instead of re-parsing or bulk loading.
//
// # Pipeline
//
// Taproot operates in two phases:
//
//  1. Emit: For each header file, parse with tree-sitter's C++ grammar,
//     serialize every namespace-scope declaration subtree, record the
//     completeness edges between declarations, and write the result to
//     SQLite as a snapshot. Unchanged headers (same content hash) are
//     reused, never re-parsed.
//
//  2. Load: Attach one or more snapshots and materialize declarations by
//     fully-qualified name. Materializing a declaration pulls in its
//     transitive layout closure (base classes, by-value member types) and
//     nothing else; pointer and reference targets stay unloaded until a
//     completeness trigger asks for them.
//
// # Usage
//
// Emit a snapshot, attach it, and materialize on demand:
//
//	e, err := taproot.New("taproot.db")
//	if err != nil { ... }
//	defer e.Close()
//
//	ctx := context.Background()
//	snap, err := e.EmitSnapshot(ctx, "crypto", []string{"des.h", "rsa.h"})
//
//	l, err := e.Attach(ctx, "crypto")
//	d, err := l.Materialize(ctx, "des")
//
// # Completeness triggers
//
// A [Checker] wraps a [Loader] with the two hooks a semantic-analysis layer
// needs: [Checker.Touch] for name-only mentions (pointers, references,
// forward declarations), which never load anything, and
// [Checker.RequireComplete] for the points where layout is required (member
// access, by-value use), which invoke the lazy loader.
//
// # Redefinition detection
//
// When two attached snapshots define the same qualified name, identical
// definitions (by fingerprint) are deduplicated and loaded once; differing
// definitions surface as a [RedefinitionError]. Reconciling such conflicts
// is out of scope: taproot detects, it does not merge.
//
// # Deserialization log
//
// Every declaration a Loader actually deserializes is recorded once, in
// load order, and rendered as "DECL: <Kind> - <Name>" lines, the cache's
// observability surface for verifying that loading is genuinely lazy.
package taproot
