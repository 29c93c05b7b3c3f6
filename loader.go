package taproot

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/jward/taproot/internal/decl"
	"github.com/jward/taproot/internal/store"
)

// Loader is the on-demand deserializer. It attaches one or more snapshots
// and materializes declarations by fully-qualified name into a single
// in-memory translation unit, pulling in only the transitive layout closure
// of what was asked for. Loading is memoized: each declaration is
// deserialized at most once per Loader.
//
// Loader is safe for concurrent use.
type Loader struct {
	store     *store.Store
	snapshots []*store.Snapshot
	snapIDs   []int64
	// attachOrder maps snapshot ID to its position in the attach list, the
	// tiebreak for identical definitions found in several snapshots.
	attachOrder map[int64]int
	logger      *zap.Logger

	mu      sync.Mutex
	tu      *decl.TranslationUnit
	loaded  map[string]*decl.Decl
	pending map[string]bool // names touched but not yet required complete
	missing map[string]bool // layout deps absent from every attached snapshot
	log     []LogEntry
}

// LogEntry is one line of the deserialization log.
type LogEntry struct {
	Kind Kind
	Name string
}

// String renders the entry the way compiler deserialization dumps do.
func (e LogEntry) String() string {
	return fmt.Sprintf("DECL: %s - %s", e.Kind, e.Name)
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLoaderLogger sets the structured logger. The default is a no-op logger.
func WithLoaderLogger(logger *zap.Logger) LoaderOption {
	return func(l *Loader) {
		l.logger = logger
	}
}

// NewLoader attaches the given snapshots. Order matters only for ties:
// when several snapshots hold identical definitions of a name, the first
// one listed supplies the payload.
func NewLoader(s *Store, snapshots []*Snapshot, opts ...LoaderOption) *Loader {
	ids := make([]int64, len(snapshots))
	order := make(map[int64]int, len(snapshots))
	for i, snap := range snapshots {
		ids[i] = snap.ID
		if _, ok := order[snap.ID]; !ok {
			order[snap.ID] = i
		}
	}
	l := &Loader{
		store:       s,
		snapshots:   snapshots,
		snapIDs:     ids,
		attachOrder: order,
		logger:      zap.NewNop(),
		tu:          decl.NewTranslationUnit(),
		loaded:      make(map[string]*decl.Decl),
		pending:     make(map[string]bool),
		missing:     make(map[string]bool),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Materialize loads the declaration named by qualifiedName, grafts it into
// the translation unit, and transitively loads every layout-need dependency.
// Name-need dependencies are registered as pending but not loaded. A second
// call for the same name is a map hit.
func (l *Loader) Materialize(ctx context.Context, qualifiedName string) (*Decl, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.materializeLocked(ctx, qualifiedName, "", true, make(map[string]bool))
}

// materializeLocked does the recursive work. scope is the namespace of the
// depending decl: unqualified dependency targets are tried against each
// enclosing namespace before the global scope, innermost first. required
// distinguishes a direct request (unknown name is an error) from a
// dependency load (unknown name is recorded as unresolved).
func (l *Loader) materializeLocked(ctx context.Context, name, scope string, required bool, visiting map[string]bool) (*Decl, error) {
	for _, candidate := range scopeCandidates(name, scope) {
		if d, ok := l.loaded[candidate]; ok {
			return d, nil
		}
		// Members of an already-loaded subtree (nested types, enum
		// constants) are reachable through the TU index without a row of
		// their own.
		if d, ok := l.tu.Lookup(candidate); ok {
			return d, nil
		}
		if visiting[candidate] {
			return nil, nil // layout cycle guard; malformed input terminates
		}

		hits, err := l.store.DeclsByName(l.snapIDs, candidate)
		if err != nil {
			return nil, fmt.Errorf("taproot: lookup %q: %w", candidate, err)
		}
		if len(hits) == 0 {
			continue
		}
		sort.SliceStable(hits, func(i, j int) bool {
			return l.attachOrder[hits[i].SnapshotID] < l.attachOrder[hits[j].SnapshotID]
		})
		if err := checkRedefinition(candidate, hits); err != nil {
			return nil, err
		}

		visiting[candidate] = true
		d, err := l.deserialize(ctx, candidate, hits[0], visiting)
		delete(visiting, candidate)
		return d, err
	}

	if required {
		return nil, &NotFoundError{Name: name}
	}
	l.missing[name] = true
	return nil, nil
}

// deserialize unmarshals one stored decl, grafts it, records the log
// entries, and recursively materializes its layout deps.
func (l *Loader) deserialize(ctx context.Context, qname string, hit *store.DeclHit, visiting map[string]bool) (*Decl, error) {
	d, err := decl.UnmarshalSubtree(hit.Decl.Payload)
	if err != nil {
		return nil, fmt.Errorf("taproot: decl %q: %w", qname, err)
	}

	createdNamespaces := l.tu.Graft(d)
	for _, ns := range createdNamespaces {
		l.log = append(l.log, LogEntry{Kind: ns.Kind, Name: ns.QualifiedName})
	}
	decl.Walk(d, func(n *decl.Decl) {
		l.log = append(l.log, LogEntry{Kind: n.Kind, Name: n.QualifiedName})
	})
	l.loaded[qname] = d
	delete(l.pending, qname)

	l.logger.Debug("deserialized decl",
		zap.String("name", qname),
		zap.String("kind", string(d.Kind)),
		zap.String("snapshot", hit.SnapshotUUID))

	deps, err := l.store.DepsOf(hit.Decl.ID)
	if err != nil {
		return nil, fmt.Errorf("taproot: deps of %q: %w", qname, err)
	}
	scope := decl.Scope(qname)
	for _, dep := range deps {
		switch dep.Need {
		case store.NeedLayout:
			if _, err := l.materializeLocked(ctx, dep.Target, scope, false, visiting); err != nil {
				return nil, err
			}
		default:
			// Name-need: register, never load.
			if !l.isLoadedAnyScope(dep.Target, scope) {
				l.pending[dep.Target] = true
			}
		}
	}
	return d, nil
}

func (l *Loader) isLoadedAnyScope(name, scope string) bool {
	for _, candidate := range scopeCandidates(name, scope) {
		if _, ok := l.loaded[candidate]; ok {
			return true
		}
		if _, ok := l.tu.Lookup(candidate); ok {
			return true
		}
	}
	return false
}

// checkRedefinition enforces the one-definition rule across attached
// snapshots: identical fingerprints deduplicate, differing ones conflict.
func checkRedefinition(qname string, hits []*store.DeclHit) error {
	first := hits[0].Decl.Fingerprint
	for _, hit := range hits[1:] {
		if hit.Decl.Fingerprint != first {
			labels := make([]string, 0, len(hits))
			for _, h := range hits {
				label := h.SnapshotLabel
				if label == "" {
					label = h.SnapshotUUID
				}
				labels = append(labels, label)
			}
			return &RedefinitionError{Name: qname, Snapshots: labels}
		}
	}
	return nil
}

// scopeCandidates expands an unqualified name against the enclosing
// namespace chain, innermost first, ending at global scope. For scope
// "a::b" and name "T" the candidates are a::b::T, a::T, T.
func scopeCandidates(name, scope string) []string {
	candidates := []string{}
	for scope != "" {
		candidates = append(candidates, decl.Join(scope, name))
		scope = decl.Scope(scope)
	}
	return append(candidates, name)
}

// Touch registers a name-only mention (pointer, reference, forward
// declaration). It never loads anything; a later RequireComplete promotes
// the name.
func (l *Loader) Touch(qualifiedName string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.loaded[qualifiedName]; ok {
		return
	}
	l.pending[qualifiedName] = true
}

// IsLoaded reports whether a declaration has been materialized.
func (l *Loader) IsLoaded(qualifiedName string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.loaded[qualifiedName]
	return ok
}

// TranslationUnit returns the in-memory program representation built so far.
func (l *Loader) TranslationUnit() *TranslationUnit {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tu
}

// Snapshots returns the attached snapshots in attach order.
func (l *Loader) Snapshots() []*Snapshot {
	return l.snapshots
}

// Pending returns names that have been touched or referenced by name but
// never required complete, sorted.
func (l *Loader) Pending() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return sortedKeys(l.pending)
}

// Unresolved returns layout dependencies that no attached snapshot defines,
// sorted. This is not an error at load time: headers legitimately reference
// types they expect another snapshot to provide.
func (l *Loader) Unresolved() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return sortedKeys(l.missing)
}

// DeserializationLog returns every decl deserialized so far, in load order,
// each exactly once.
func (l *Loader) DeserializationLog() []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]LogEntry, len(l.log))
	copy(out, l.log)
	return out
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
