package taproot

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jward/taproot/internal/decl"
	"github.com/jward/taproot/internal/parse"
	"github.com/jward/taproot/internal/store"
)

// producerVersion is stamped onto every emitted snapshot so a consumer can
// tell which emitter wrote it.
const producerVersion = "taproot/1"

// Engine orchestrates the taproot pipeline: header ingestion, change
// detection, declaration extraction, and snapshot bookkeeping.
type Engine struct {
	store  *store.Store
	logger *zap.Logger

	// includeDirs are searched, in order, for relative header paths that
	// do not resolve on their own.
	includeDirs []string

	// useParallel enables the parallel emission pipeline.
	useParallel bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the structured logger. The default is a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithParallel controls parallel emission. When true (default), EmitSnapshot
// parses headers on a worker pool, with batched writes committed serially to
// SQLite. Set to false for serial mode.
func WithParallel(parallel bool) Option {
	return func(e *Engine) {
		e.useParallel = parallel
	}
}

// WithIncludeDirs adds search directories for relative header paths, the
// way a compiler's -I flags work. A path that does not exist as given is
// tried against each directory in order.
func WithIncludeDirs(dirs ...string) Option {
	return func(e *Engine) {
		e.includeDirs = append(e.includeDirs, dirs...)
	}
}

// New creates an Engine backed by a SQLite database at dbPath.
func New(dbPath string, opts ...Option) (*Engine, error) {
	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("taproot: create store: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("taproot: migrate: %w", err)
	}

	e := &Engine{
		store:       s,
		logger:      zap.NewNop(),
		useParallel: true, // default to parallel emission
	}
	for _, opt := range opts {
		opt(e)
	}

	if err := s.SetMetadata("producer", producerVersion); err != nil {
		s.Close()
		return nil, fmt.Errorf("taproot: record producer: %w", err)
	}
	return e, nil
}

// Close releases the Engine's database resources.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Store returns the underlying Store for direct access.
func (e *Engine) Store() *Store {
	return e.store
}

// EmitSnapshot parses the given header files and persists their declaration
// subtrees as a new snapshot. Headers whose content hash matches an already
// stored version are linked without re-parsing. On any error the partially
// written snapshot is deleted; a snapshot either exists whole or not at all.
func (e *Engine) EmitSnapshot(ctx context.Context, label string, paths []string) (*Snapshot, error) {
	snap := &store.Snapshot{
		UUID:      uuid.NewString(),
		Label:     label,
		Producer:  producerVersion,
		CreatedAt: time.Now(),
	}
	if _, err := e.store.InsertSnapshot(snap); err != nil {
		return nil, fmt.Errorf("taproot: insert snapshot: %w", err)
	}

	start := time.Now()
	var err error
	if e.useParallel {
		err = e.emitParallel(ctx, snap, paths)
	} else {
		err = e.emitSerial(ctx, snap, paths)
	}
	if err != nil {
		_ = e.store.DeleteSnapshot(snap.ID)
		return nil, err
	}

	e.logger.Info("emitted snapshot",
		zap.String("label", label),
		zap.String("uuid", snap.UUID),
		zap.Int("headers", len(paths)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return snap, nil
}

func (e *Engine) emitSerial(ctx context.Context, snap *store.Snapshot, paths []string) error {
	var errs []error
	for _, path := range paths {
		if err := e.emitHeader(ctx, snap.ID, path); err != nil {
			errs = append(errs, fmt.Errorf("emit %s: %w", path, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("emission had %d error(s): %w", len(errs), errs[0])
	}
	return nil
}

func (e *Engine) emitHeader(ctx context.Context, snapshotID int64, path string) error {
	headerID, content, reused, err := e.prepareHeader(path)
	if err != nil {
		return err
	}
	if err := e.store.LinkHeader(snapshotID, headerID); err != nil {
		return err
	}
	if reused {
		return nil
	}
	return e.extractHeader(ctx, headerID, content, e.store)
}

// prepareHeader reads and hashes a header, reusing the stored row when this
// exact content version was emitted before. Returns the header ID, the file
// content, and whether the stored decls can be reused as-is.
func (e *Engine) prepareHeader(path string) (int64, []byte, bool, error) {
	path, err := e.resolveHeaderPath(path)
	if err != nil {
		return 0, nil, false, err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, nil, false, fmt.Errorf("read header: %w", err)
	}
	hash := fmt.Sprintf("%x", sha256.Sum256(content))

	existing, err := e.store.HeaderByPathHash(path, hash)
	if err != nil {
		return 0, nil, false, fmt.Errorf("lookup header: %w", err)
	}
	if existing != nil {
		e.logger.Debug("header unchanged, reusing stored decls",
			zap.String("path", path), zap.Int64("header_id", existing.ID))
		return existing.ID, content, true, nil
	}

	lineCount := bytes.Count(content, []byte{'\n'}) + 1
	headerID, err := e.store.InsertHeader(&store.Header{
		Path:        path,
		Hash:        hash,
		LineCount:   lineCount,
		LastEmitted: time.Now(),
	})
	if err != nil {
		return 0, nil, false, fmt.Errorf("insert header: %w", err)
	}
	return headerID, content, false, nil
}

// resolveHeaderPath finds a header on disk: as given first, then relative
// paths against each include directory in order.
func (e *Engine) resolveHeaderPath(path string) (string, error) {
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if !filepath.IsAbs(path) {
		for _, dir := range e.includeDirs {
			candidate := filepath.Join(dir, path)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}
	}
	return "", fmt.Errorf("header not found: %s", path)
}

// extractHeader parses header content and writes its top-level decls and
// completeness edges through the given DataStore (direct or batched).
func (e *Engine) extractHeader(ctx context.Context, headerID int64, content []byte, ds store.DataStore) error {
	parsed, err := parse.Header(ctx, content)
	if err != nil {
		return err
	}

	for _, d := range parsed.Decls {
		payload, err := decl.MarshalSubtree(d)
		if err != nil {
			return err
		}
		declID, err := ds.InsertDecl(&store.Decl{
			HeaderID:      headerID,
			QualifiedName: d.QualifiedName,
			Kind:          string(d.Kind),
			Fingerprint:   decl.Fingerprint(d),
			Payload:       payload,
			StartLine:     d.StartLine,
			EndLine:       d.EndLine,
		})
		if err != nil {
			return err
		}
		for _, dep := range parsed.Deps[d.QualifiedName] {
			if _, err := ds.InsertDeclDep(&store.DeclDep{
				DeclID: declID,
				Target: dep.Target,
				Need:   dep.Need,
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

// Attach resolves snapshot references (label first, then UUID) and returns
// a Loader over them.
func (e *Engine) Attach(ctx context.Context, refs ...string) (*Loader, error) {
	snaps := make([]*store.Snapshot, 0, len(refs))
	for _, ref := range refs {
		snap, err := e.store.SnapshotByLabel(ref)
		if err != nil {
			return nil, fmt.Errorf("taproot: resolve snapshot %q: %w", ref, err)
		}
		if snap == nil {
			snap, err = e.store.SnapshotByUUID(ref)
			if err != nil {
				return nil, fmt.Errorf("taproot: resolve snapshot %q: %w", ref, err)
			}
		}
		if snap == nil {
			return nil, fmt.Errorf("taproot: snapshot %q not found", ref)
		}
		snaps = append(snaps, snap)
	}
	return NewLoader(e.store, snaps, WithLoaderLogger(e.logger)), nil
}

// Stale returns the paths of headers in a snapshot whose on-disk content no
// longer matches the hash they were emitted from. A missing file counts as
// stale.
func (e *Engine) Stale(ctx context.Context, snapshotID int64) ([]string, error) {
	headers, err := e.store.HeadersBySnapshot(snapshotID)
	if err != nil {
		return nil, fmt.Errorf("taproot: list headers: %w", err)
	}
	var stale []string
	for _, h := range headers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		content, err := os.ReadFile(h.Path)
		if err != nil {
			stale = append(stale, h.Path)
			continue
		}
		if fmt.Sprintf("%x", sha256.Sum256(content)) != h.Hash {
			stale = append(stale, h.Path)
		}
	}
	return stale, nil
}

// DeleteSnapshot removes a snapshot and any header data no other snapshot
// references.
func (e *Engine) DeleteSnapshot(snapshotID int64) error {
	if err := e.store.DeleteSnapshot(snapshotID); err != nil {
		return fmt.Errorf("taproot: delete snapshot: %w", err)
	}
	e.logger.Info("deleted snapshot", zap.Int64("snapshot_id", snapshotID))
	return nil
}
