package prune

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// processParallel prunes items with a bounded worker pool. Workers parse,
// prune, print and buffer journal entries; every file write and journal
// insert happens later on the calling goroutine, so a failure here leaves
// the disk untouched.
//
// Results are returned in the order of items. The first failure cancels the
// remaining work.
func (e *Engine) processParallel(ctx context.Context, runID string, items []workItem) ([]processed, error) {
	numWorkers := e.workers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	numWorkers = max(min(numWorkers, len(items)), 1)

	results := make([]processed, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(numWorkers)
	for i, item := range items {
		g.Go(func() error {
			done, err := e.processItem(gctx, runID, item)
			if err != nil {
				return fmt.Errorf("prune: %s: %w", item.path, err)
			}
			results[i] = done
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
