package cli

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/mvp-joe/cortex-facts/internal/config"
	"github.com/mvp-joe/cortex-facts/internal/indexer"
	"github.com/mvp-joe/cortex-facts/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
)

// graphSubdir holds the type hierarchy snapshot under .cortex.
const graphSubdir = ".cortex/graph"

// project is a loaded project root with its configuration.
type project struct {
	rootDir string
	cfg     *config.Config
}

// loadProject resolves dir (the current directory when empty) and loads its
// configuration.
func loadProject(dir string) (*project, error) {
	start := time.Now()

	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		dir = wd
	}
	rootDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root: %w", err)
	}

	cfg, err := config.LoadConfigFromDir(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if verbose {
		log.Printf("[TIMING] Config load: %v", time.Since(start))
	}
	return &project{rootDir: rootDir, cfg: cfg}, nil
}

func (p *project) graphDir() string {
	return filepath.Join(p.rootDir, filepath.FromSlash(graphSubdir))
}

// outputPath resolves output.path against the project root. Empty stays
// empty (stdout).
func (p *project) outputPath() string {
	path := p.cfg.Output.Path
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(p.rootDir, path)
}

// newSink creates the writer selected by output.format. The returned close
// function is never nil.
func (p *project) newSink(stdout io.Writer) (indexer.Sink, func() error, error) {
	noop := func() error { return nil }

	switch p.cfg.Output.Format {
	case config.FormatSQLite:
		path := p.outputPath()
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, noop, fmt.Errorf("failed to create output directory: %w", err)
		}
		w, err := storage.NewFactsWriter(path)
		if err != nil {
			return nil, noop, err
		}
		return w, w.Close, nil
	case config.FormatJSONL:
		return indexer.NewJSONWriter(p.outputPath(), true, stdout), noop, nil
	default:
		return indexer.NewJSONWriter(p.outputPath(), false, stdout), noop, nil
	}
}

// newPipeline wires discovery, the parse cache, metrics and progress for
// one project. reg may be nil. The returned cleanup releases the cache.
func (p *project) newPipeline(progress indexer.ProgressReporter, reg prometheus.Registerer) (*indexer.FileDiscovery, *indexer.Pipeline, func(), error) {
	icfg := p.cfg.ToIndexerConfig(p.rootDir)

	fd, err := indexer.NewFileDiscovery(icfg.RootDir, icfg.CodePatterns, icfg.IgnorePatterns, icfg.Languages)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create file discovery: %w", err)
	}

	cache, err := indexer.NewResultCache(icfg.CacheSize)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create parse cache: %w", err)
	}

	var metrics *indexer.Metrics
	if reg != nil {
		metrics = indexer.NewMetrics(reg)
	}

	pipeline := indexer.NewPipeline(icfg, cache, metrics, progress)
	return fd, pipeline, cache.Close, nil
}
