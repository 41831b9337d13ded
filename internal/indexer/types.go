package indexer

import (
	"time"

	"github.com/mvp-joe/cortex-facts/internal/facts"
	"github.com/mvp-joe/cortex-facts/internal/resolver"
)

// Config sizes and scopes one indexing run.
type Config struct {
	RootDir        string
	CodePatterns   []string
	IgnorePatterns []string
	Languages      []string // enabled language tags
	Workers        int      // 0 means one per CPU
	CacheSize      int      // parse cache entries, 0 disables
}

// SourceFile is one input triple. Path is relative to the project root and
// uses forward slashes.
type SourceFile struct {
	Path     string
	Language string
	Content  []byte
}

// Outcome labels a file in Stats and metrics.
type Outcome string

const (
	OutcomeParsed  Outcome = "parsed"  // extracted without problems
	OutcomePartial Outcome = "partial" // extracted with ParseResult.Error set
	OutcomeCached  Outcome = "cached"  // Pass A output reused
	OutcomeSkipped Outcome = "skipped" // language disabled or unknown
)

// Stats describes one batch.
type Stats struct {
	Files        int
	Parsed       int
	Partial      int
	Cached       int
	Skipped      int
	Symbols      int
	Calls        int
	DynamicCalls int
	Types        int
	Edges        int
	Cycles       int
	Duration     time.Duration // whole batch
	LinkDuration time.Duration // Pass B only
}

func (s *Stats) count(o Outcome) {
	switch o {
	case OutcomeParsed:
		s.Parsed++
	case OutcomePartial:
		s.Partial++
	case OutcomeCached:
		s.Cached++
	case OutcomeSkipped:
		s.Skipped++
	}
}

// Result is the output of one batch: final ParseResults in input order
// (skipped files omitted) plus the project snapshot Pass B built.
type Result struct {
	Results []*facts.ParseResult
	Batch   *resolver.Batch
	Stats   *Stats
}
