package taproot

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// headerRef ties a watched file back to the snapshots that emitted it.
type headerRef struct {
	snapshotID int64
	hash       string
}

// Watcher invalidates snapshots when the headers they were emitted from
// change on disk. It watches the directories containing the headers and
// rehashes a file once its events settle; a hash mismatch against the
// stored version means every snapshot built from that header is stale.
type Watcher struct {
	logger   *zap.Logger
	debounce time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	pending map[string]time.Time

	headers     map[string][]headerRef
	invalidated chan int64
}

// Watch builds a watcher over the given snapshots. Start must be called to
// begin receiving events.
func (e *Engine) Watch(snapshotIDs ...int64) (*Watcher, error) {
	w := &Watcher{
		logger:      e.logger,
		debounce:    500 * time.Millisecond,
		pending:     make(map[string]time.Time),
		headers:     make(map[string][]headerRef),
		invalidated: make(chan int64, 16),
	}
	for _, id := range snapshotIDs {
		headers, err := e.store.HeadersBySnapshot(id)
		if err != nil {
			return nil, fmt.Errorf("taproot: snapshot %d headers: %w", id, err)
		}
		for _, h := range headers {
			abs, err := filepath.Abs(h.Path)
			if err != nil {
				return nil, fmt.Errorf("taproot: resolve %s: %w", h.Path, err)
			}
			w.headers[abs] = append(w.headers[abs], headerRef{snapshotID: id, hash: h.Hash})
		}
	}
	return w, nil
}

// Invalidated returns the channel of stale snapshot IDs. The channel is
// buffered; events are dropped rather than blocking the watch loop.
func (w *Watcher) Invalidated() <-chan int64 {
	return w.invalidated
}

// Start begins watching. It returns once the underlying watches are
// established; the loop runs until Stop is called or ctx is cancelled.
// A failed Start leaves the watcher stopped.
func (w *Watcher) Start(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("taproot: create watcher: %w", err)
	}

	dirs := make(map[string]bool)
	for path := range w.headers {
		dirs[filepath.Dir(path)] = true
	}
	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return fmt.Errorf("taproot: watch %s: %w", dir, err)
		}
	}

	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		fw.Close()
		return fmt.Errorf("taproot: watcher already running")
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	go w.loop(ctx, fw)
	return nil
}

// Stop shuts the watch loop down and waits for it to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	done := w.doneCh
	w.mu.Unlock()
	<-done
}

func (w *Watcher) loop(ctx context.Context, fw *fsnotify.Watcher) {
	defer close(w.doneCh)
	defer fw.Close()

	// Events are recorded and processed later, once they settle past the
	// debounce window, so the final write of a rapid burst is the one that
	// gets hashed.
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.recordEvent(event.Name)
		case <-ticker.C:
			w.processSettled()
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", zap.Error(err))
		}
	}
}

// recordEvent notes a change on a tracked header for later processing.
func (w *Watcher) recordEvent(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return
	}
	if _, tracked := w.headers[abs]; !tracked {
		return
	}
	w.mu.Lock()
	w.pending[abs] = time.Now()
	w.mu.Unlock()
}

// processSettled rehashes headers whose last event is older than the
// debounce window.
func (w *Watcher) processSettled() {
	w.mu.Lock()
	now := time.Now()
	var settled []string
	for path, at := range w.pending {
		if now.Sub(at) >= w.debounce {
			settled = append(settled, path)
			delete(w.pending, path)
		}
	}
	w.mu.Unlock()

	for _, path := range settled {
		w.checkHeader(path)
	}
}

// checkHeader compares a header's current content hash against every
// stored version and signals the snapshots built from stale ones.
func (w *Watcher) checkHeader(path string) {
	content, err := os.ReadFile(path)
	if err != nil {
		w.logger.Warn("read changed header", zap.String("path", path), zap.Error(err))
		return
	}
	hash := fmt.Sprintf("%x", sha256.Sum256(content))

	seen := make(map[int64]bool)
	for _, ref := range w.headers[path] {
		if ref.hash == hash || seen[ref.snapshotID] {
			continue
		}
		seen[ref.snapshotID] = true
		w.logger.Info("header changed, snapshot stale",
			zap.String("path", path),
			zap.Int64("snapshot_id", ref.snapshotID))
		select {
		case w.invalidated <- ref.snapshotID:
		default:
		}
	}
}
