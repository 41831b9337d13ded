package indexer

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"strings"
	"time"

	"github.com/mvp-joe/cortex-facts/internal/indexer/parsers"
	"github.com/mvp-joe/cortex-facts/internal/resolver"
	"golang.org/x/sync/errgroup"
)

// Pipeline runs extraction and Pass A on a fixed pool of workers, then Pass B
// once every file of the batch is through Pass A.
type Pipeline struct {
	workers   int
	languages map[string]bool
	cache     *ResultCache
	metrics   *Metrics
	progress  ProgressReporter
}

// NewPipeline creates a pipeline. cache and metrics may be nil; a nil
// progress reporter is replaced by a no-op.
func NewPipeline(cfg *Config, cache *ResultCache, metrics *Metrics, progress ProgressReporter) *Pipeline {
	if progress == nil {
		progress = &NoOpProgressReporter{}
	}

	languages := cfg.Languages
	if len(languages) == 0 {
		languages = parsers.Languages
	}
	enabled := make(map[string]bool, len(languages))
	for _, lang := range languages {
		enabled[lang] = true
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	return &Pipeline{
		workers:   workers,
		languages: enabled,
		cache:     cache,
		metrics:   metrics,
		progress:  progress,
	}
}

// Index discovers files under fd's root and runs one batch over them.
func (p *Pipeline) Index(ctx context.Context, fd *FileDiscovery) (*Result, error) {
	p.progress.OnDiscoveryStart()
	files, err := fd.Discover()
	if err != nil {
		return nil, err
	}
	p.progress.OnDiscoveryComplete(len(files))

	return p.Run(ctx, files)
}

// Run processes one batch. Results are returned in input order with skipped
// files left out. Per-file problems end up on ParseResult.Error; a returned
// error means the batch was cancelled or Pass B could not run.
func (p *Pipeline) Run(ctx context.Context, files []SourceFile) (*Result, error) {
	start := time.Now()
	stats := &Stats{Files: len(files)}

	p.progress.OnFileProcessingStart(len(files))

	passA := make([]*resolver.FileFacts, len(files))
	outcomes := make([]Outcome, len(files))

	workers := min(p.workers, len(files))
	jobs := make(chan int)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(jobs)
		for i := range files {
			select {
			case jobs <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	for w := 0; w < workers; w++ {
		g.Go(func() error {
			// One provider per worker; parser handles are never shared.
			provider := parsers.NewProvider()
			defer provider.Close()

			for i := range jobs {
				if err := gctx.Err(); err != nil {
					return err
				}
				ff, outcome, err := p.processFile(provider, files[i])
				if err != nil {
					return fmt.Errorf("%s: %w", files[i].Path, err)
				}
				passA[i] = ff
				outcomes[i] = outcome
				p.progress.OnFileProcessed(files[i].Path)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("extraction failed: %w", err)
	}

	kept := make([]*resolver.FileFacts, 0, len(files))
	for i, outcome := range outcomes {
		stats.count(outcome)
		if outcome != OutcomeSkipped {
			kept = append(kept, passA[i])
		}
	}

	p.progress.OnLinkingStart(len(kept))
	linkStart := time.Now()

	batch, err := resolver.NewLinker(kept, len(files)-stats.Skipped).Link()
	if err != nil {
		return nil, fmt.Errorf("resolution failed: %w", err)
	}
	stats.LinkDuration = time.Since(linkStart)

	for _, cycle := range batch.Cycles {
		log.Printf("Warning: inheritance cycle: %s", strings.Join(cycle, " -> "))
	}

	for _, r := range batch.Results {
		stats.Symbols += len(r.Symbols)
		stats.Calls += len(r.Calls)
		for _, c := range r.Calls {
			if c.IsDynamic() {
				stats.DynamicCalls++
			}
		}
	}
	stats.Types, stats.Edges = batch.Hierarchy.Size()
	stats.Cycles = len(batch.Cycles)
	stats.Duration = time.Since(start)

	p.metrics.observeBatch(batch.Results, stats)
	p.progress.OnLinkingComplete(stats.Types, stats.Edges, stats.LinkDuration)
	p.progress.OnComplete(stats)

	return &Result{
		Results: batch.Results,
		Batch:   batch,
		Stats:   stats,
	}, nil
}

// processFile runs extraction and Pass A for one file, consulting the cache.
func (p *Pipeline) processFile(provider *parsers.Provider, f SourceFile) (*resolver.FileFacts, Outcome, error) {
	if !p.languages[f.Language] || !parsers.IsSupported(f.Language) {
		p.metrics.observeFile(f.Language, OutcomeSkipped, 0)
		return nil, OutcomeSkipped, nil
	}

	if ff, ok := p.cache.Get(f); ok {
		p.metrics.observeFile(f.Language, OutcomeCached, 0)
		return ff, OutcomeCached, nil
	}

	start := time.Now()
	raw, err := provider.Extract(f.Path, f.Language, f.Content)
	if err != nil {
		return nil, "", err
	}
	ff := resolver.ResolveFile(raw)
	p.cache.Put(f, ff)

	outcome := OutcomeParsed
	if ff.Result.Error != nil {
		outcome = OutcomePartial
	}
	p.metrics.observeFile(f.Language, outcome, time.Since(start))
	return ff, outcome, nil
}
