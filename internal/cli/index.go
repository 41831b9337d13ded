package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mvp-joe/cortex-facts/internal/graph"
	"github.com/mvp-joe/cortex-facts/internal/indexer"
	"github.com/mvp-joe/cortex-facts/internal/watcher"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var (
	quietFlag       bool
	watchFlag       bool
	metricsAddrFlag string
)

// indexCmd represents the index command
var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Extract facts for the whole project",
	Long: `Index discovers every source file the configuration selects, extracts its
facts and resolves names across the project. Results go to the configured
output (output.format: json, jsonl or sqlite; output.path) and the type
hierarchy snapshot is saved to .cortex/graph.

Examples:
  # Index the current directory
  cortex-facts index

  # Index with progress bars disabled
  cortex-facts index --quiet

  # Keep the output current as files change
  cortex-facts index --watch

  # Expose Prometheus metrics while watching
  cortex-facts index --watch --metrics-addr :9464
`,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().BoolVarP(&quietFlag, "quiet", "q", false, "Disable progress bars and non-error output")
	indexCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Watch for file changes and reindex")
	indexCmd.Flags().StringVar(&metricsAddrFlag, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9464)")
}

func runIndex(cmd *cobra.Command, args []string) error {
	// Set up context with cancellation for Ctrl+C
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(os.Stderr, "\nInterrupted! Cancelling indexing...")
			cancel()
		case <-ctx.Done():
		}
	}()

	p, err := loadProject(rootDirFlag)
	if err != nil {
		return err
	}

	var reg prometheus.Registerer
	if metricsAddrFlag != "" {
		registry := prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		stop := serveMetrics(metricsAddrFlag, registry)
		defer stop()
		reg = registry
	}

	session, fd, cleanup, err := newSession(p, NewCLIProgressReporter(quietFlag, os.Stderr), reg, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer cleanup()

	start := time.Now()
	res, err := session.Index(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("indexing cancelled")
		}
		return fmt.Errorf("indexing failed: %w", err)
	}
	if verbose {
		log.Printf("[TIMING] Index: %v (link %v)", time.Since(start), res.Stats.LinkDuration)
	}
	if quietFlag && !watchFlag && p.cfg.Output.Path != "" {
		fmt.Fprintf(os.Stderr, "Indexing complete: %d files in %.2fs\n",
			res.Stats.Files-res.Stats.Skipped, res.Stats.Duration.Seconds())
	}

	if !watchFlag {
		return nil
	}
	return watch(ctx, session, fd, quietFlag)
}

// newSession wires a session that publishes to the configured sink and the
// hierarchy snapshot. reg may be nil.
func newSession(p *project, progress indexer.ProgressReporter, reg prometheus.Registerer, stdout io.Writer) (*indexer.Session, *indexer.FileDiscovery, func(), error) {
	fd, pipeline, closeCache, err := p.newPipeline(progress, reg)
	if err != nil {
		return nil, nil, nil, err
	}

	sink, closeSink, err := p.newSink(stdout)
	if err != nil {
		closeCache()
		return nil, nil, nil, err
	}

	gs, err := graph.NewStorage(p.graphDir())
	if err != nil {
		closeCache()
		_ = closeSink()
		return nil, nil, nil, err
	}

	cleanup := func() {
		if err := closeSink(); err != nil {
			log.Printf("Warning: failed to close output: %v", err)
		}
		closeCache()
	}
	return indexer.NewSession(fd, pipeline, sink, gs), fd, cleanup, nil
}

// watch reindexes on file changes until ctx is cancelled.
func watch(ctx context.Context, session *indexer.Session, fd *indexer.FileDiscovery, quiet bool) error {
	fw, err := watcher.NewFileWatcher(fd.RootDir(), watcher.Options{
		Accept:  fd.Accepts,
		SkipDir: fd.Ignores,
	})
	if err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}

	if !quiet {
		log.Println("Watching for changes (Ctrl+C to stop)...")
	}

	coordinator := watcher.NewWatchCoordinator(fw, session, quiet)
	if err := coordinator.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("watch mode failed: %w", err)
	}

	if !quiet {
		log.Println("Watch mode stopped")
	}
	return nil
}

// serveMetrics exposes reg on addr/metrics and returns a shutdown function.
func serveMetrics(addr string, reg *prometheus.Registry) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Warning: metrics server failed: %v", err)
		}
	}()
	log.Printf("Serving metrics on %s/metrics", addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
