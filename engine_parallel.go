package taproot

import (
	"context"
	"fmt"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jward/taproot/internal/store"
)

// workItem holds everything a parallel emission worker needs.
type workItem struct {
	path     string
	headerID int64
	content  []byte
	batch    *store.BatchedStore
}

// emitParallel emits headers using a three-phase pipeline:
//
//	Phase A (serial):  Hash check, header row insert, snapshot linking.
//	Phase B (parallel): Parse and extract via worker pool into BatchedStores.
//	Phase C (serial):  Commit batches to SQLite.
//
// SQLite takes all writes from the main goroutine; workers only parse.
func (e *Engine) emitParallel(ctx context.Context, snap *store.Snapshot, paths []string) error {
	// ---- Phase A: serial header preparation ----
	var items []*workItem
	for _, path := range paths {
		headerID, content, reused, err := e.prepareHeader(path)
		if err != nil {
			return fmt.Errorf("prepare %s: %w", path, err)
		}
		if err := e.store.LinkHeader(snap.ID, headerID); err != nil {
			return fmt.Errorf("link %s: %w", path, err)
		}
		if reused {
			continue
		}
		items = append(items, &workItem{
			path:     path,
			headerID: headerID,
			content:  content,
			batch:    store.NewBatchedStore(e.store),
		})
	}

	if len(items) == 0 {
		return nil
	}

	// ---- Phase B: parallel extraction ----
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(runtime.NumCPU(), len(items)))
	for _, item := range items {
		g.Go(func() error {
			if err := e.extractHeader(gctx, item.headerID, item.content, item.batch); err != nil {
				return fmt.Errorf("extract %s: %w", item.path, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// ---- Phase C: serial commit ----
	for _, item := range items {
		if err := e.store.CommitBatch(item.batch); err != nil {
			return fmt.Errorf("commit %s: %w", item.path, err)
		}
		e.logger.Debug("committed header batch",
			zap.String("path", item.path),
			zap.Int("decls", len(item.batch.Decls)))
	}
	return nil
}
