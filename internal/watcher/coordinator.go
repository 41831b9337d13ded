package watcher

import (
	"context"
	"log"

	"github.com/mvp-joe/cortex-facts/internal/indexer"
)

// Reindexer runs a new batch after files changed. Pass B always needs the
// whole project, so changed is a hint for logging and cache invalidation.
type Reindexer interface {
	Reindex(ctx context.Context, changed []string) (*indexer.Stats, error)
}

// WatchCoordinator routes debounced file changes to a Reindexer.
type WatchCoordinator struct {
	files   FileWatcher
	indexer Reindexer
	quiet   bool
}

// NewWatchCoordinator creates a new watch coordinator. quiet suppresses the
// per-batch summary; warnings are always logged.
func NewWatchCoordinator(files FileWatcher, idx Reindexer, quiet bool) *WatchCoordinator {
	return &WatchCoordinator{
		files:   files,
		indexer: idx,
		quiet:   quiet,
	}
}

// Start begins routing events to the indexer.
// Blocks until context is cancelled.
func (c *WatchCoordinator) Start(ctx context.Context) error {
	filesErr := make(chan error, 1)

	go func() {
		if err := c.files.Start(ctx, func(paths []string) { c.handleFileChange(ctx, paths) }); err != nil {
			filesErr <- err
		}
	}()

	select {
	case err := <-filesErr:
		c.cleanup()
		return err
	case <-ctx.Done():
		c.cleanup()
		return ctx.Err()
	}
}

// cleanup stops the file watcher.
func (c *WatchCoordinator) cleanup() {
	if err := c.files.Stop(); err != nil {
		log.Printf("Warning: file watcher stop failed: %v", err)
	}
}

// handleFileChange runs one batch. The watcher is paused for the duration so
// changes made meanwhile land in the next batch instead of overlapping.
func (c *WatchCoordinator) handleFileChange(ctx context.Context, paths []string) {
	if len(paths) == 0 || ctx.Err() != nil {
		return
	}

	c.files.Pause()
	defer c.files.Resume()

	if !c.quiet {
		log.Printf("Processing %d file change(s)...", len(paths))
	}

	stats, err := c.indexer.Reindex(ctx, paths)
	if err != nil {
		log.Printf("Warning: reindex failed: %v", err)
		return
	}

	if !c.quiet {
		log.Printf("✓ Indexed %d file(s) (%d symbols, %d calls, %d cached) in %v",
			stats.Files-stats.Skipped, stats.Symbols, stats.Calls, stats.Cached, stats.Duration)
	}
}
