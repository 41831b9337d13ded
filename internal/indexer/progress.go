package indexer

import "time"

// ProgressReporter provides callbacks for reporting indexing progress.
// Implementations can display progress bars, log messages, or remain silent.
// OnFileProcessed is called from worker goroutines.
type ProgressReporter interface {
	// OnDiscoveryStart is called when file discovery begins.
	OnDiscoveryStart()

	// OnDiscoveryComplete is called when file discovery finishes.
	OnDiscoveryComplete(files int)

	// OnFileProcessingStart is called before Pass A starts.
	OnFileProcessingStart(totalFiles int)

	// OnFileProcessed is called after each file finishes Pass A.
	OnFileProcessed(fileName string)

	// OnLinkingStart is called when every file is through Pass A.
	OnLinkingStart(totalFiles int)

	// OnLinkingComplete is called after Pass B with the snapshot size.
	OnLinkingComplete(types, edges int, duration time.Duration)

	// OnComplete is called when the batch completes successfully.
	OnComplete(stats *Stats)
}

// NoOpProgressReporter is a progress reporter that does nothing.
// Used when progress reporting is disabled (e.g., --quiet flag).
type NoOpProgressReporter struct{}

func (n *NoOpProgressReporter) OnDiscoveryStart()                     {}
func (n *NoOpProgressReporter) OnDiscoveryComplete(files int)         {}
func (n *NoOpProgressReporter) OnFileProcessingStart(totalFiles int)  {}
func (n *NoOpProgressReporter) OnFileProcessed(fileName string)       {}
func (n *NoOpProgressReporter) OnLinkingStart(totalFiles int)         {}
func (n *NoOpProgressReporter) OnComplete(stats *Stats)               {}
func (n *NoOpProgressReporter) OnLinkingComplete(types, edges int, duration time.Duration) {
}
