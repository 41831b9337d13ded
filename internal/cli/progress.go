package cli

import (
	"fmt"
	"io"
	"log"
	"strconv"
	"time"

	"github.com/mvp-joe/cortex-facts/internal/indexer"
	"github.com/schollz/progressbar/v3"
)

// CLIProgressReporter implements progress reporting with progress bars.
// Everything goes to out (stderr in the commands) so facts written to
// stdout stay parseable.
type CLIProgressReporter struct {
	quiet   bool
	out     io.Writer
	fileBar *progressbar.ProgressBar
}

// NewCLIProgressReporter creates a new CLI progress reporter.
func NewCLIProgressReporter(quiet bool, out io.Writer) *CLIProgressReporter {
	return &CLIProgressReporter{quiet: quiet, out: out}
}

func (c *CLIProgressReporter) OnDiscoveryStart() {
	if c.quiet {
		return
	}
	log.Println("Discovering files...")
}

func (c *CLIProgressReporter) OnDiscoveryComplete(files int) {
	if c.quiet {
		return
	}
	log.Printf("Found %s source files\n", formatNumber(files))
}

func (c *CLIProgressReporter) OnFileProcessingStart(totalFiles int) {
	if c.quiet {
		return
	}
	c.fileBar = progressbar.NewOptions(totalFiles,
		progressbar.OptionSetWriter(c.out),
		progressbar.OptionSetDescription("Extracting facts"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(c.out)
		}),
	)
}

// OnFileProcessed is called from worker goroutines; ProgressBar.Add locks.
func (c *CLIProgressReporter) OnFileProcessed(fileName string) {
	if c.quiet || c.fileBar == nil {
		return
	}
	_ = c.fileBar.Add(1)
}

func (c *CLIProgressReporter) OnLinkingStart(totalFiles int) {
	if c.quiet {
		return
	}
	if c.fileBar != nil {
		_ = c.fileBar.Finish()
		c.fileBar = nil
	}
	log.Printf("Linking %s files...\n", formatNumber(totalFiles))
}

func (c *CLIProgressReporter) OnLinkingComplete(types, edges int, duration time.Duration) {
	if c.quiet {
		return
	}
	fmt.Fprintf(c.out, "✓ Type hierarchy: %s types, %s edges (took %.1fs)\n",
		formatNumber(types), formatNumber(edges), duration.Seconds())
}

func (c *CLIProgressReporter) OnComplete(stats *indexer.Stats) {
	if c.quiet {
		return
	}

	fmt.Fprintln(c.out)
	fmt.Fprintf(c.out, "✓ Extraction complete: %s files in %.1fs\n",
		formatNumber(stats.Files-stats.Skipped), stats.Duration.Seconds())
	fmt.Fprintf(c.out, "  Parsed:  %s (%s cached, %s with errors)\n",
		formatNumber(stats.Parsed+stats.Partial+stats.Cached), formatNumber(stats.Cached), formatNumber(stats.Partial))
	fmt.Fprintf(c.out, "  Symbols: %s\n", formatNumber(stats.Symbols))
	fmt.Fprintf(c.out, "  Calls:   %s (%s dynamic)\n", formatNumber(stats.Calls), formatNumber(stats.DynamicCalls))
	if stats.Cycles > 0 {
		fmt.Fprintf(c.out, "  Inheritance cycles: %d\n", stats.Cycles)
	}
}

// formatNumber adds thousands separators.
func formatNumber(n int) string {
	s := strconv.Itoa(n)
	if n < 0 {
		return "-" + formatNumber(-n)
	}
	if len(s) <= 3 {
		return s
	}
	head := len(s) % 3
	if head == 0 {
		head = 3
	}
	out := s[:head]
	for i := head; i < len(s); i += 3 {
		out += "," + s[i:i+3]
	}
	return out
}
