package indexer

import (
	"context"
	"fmt"
	"sync"

	"github.com/mvp-joe/cortex-facts/internal/graph"
)

// Session runs batches over one project and publishes each result. Batches
// are serialized; the parse cache keeps unchanged files cheap.
type Session struct {
	discovery *FileDiscovery
	pipeline  *Pipeline
	sink      Sink
	graph     graph.Storage

	mu   sync.Mutex
	last *Result
}

// NewSession creates a session. sink and gs may be nil.
func NewSession(fd *FileDiscovery, p *Pipeline, sink Sink, gs graph.Storage) *Session {
	return &Session{
		discovery: fd,
		pipeline:  p,
		sink:      sink,
		graph:     gs,
	}
}

// Index discovers every file, runs a batch and publishes it.
func (s *Session) Index(ctx context.Context) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.pipeline.Index(ctx, s.discovery)
	if err != nil {
		return nil, err
	}

	if s.sink != nil {
		if err := s.sink.WriteResults(ctx, res.Results); err != nil {
			return nil, fmt.Errorf("failed to write results: %w", err)
		}
	}
	if s.graph != nil {
		if err := s.graph.Save(res.Batch.Graph); err != nil {
			return nil, fmt.Errorf("failed to save type hierarchy: %w", err)
		}
	}

	s.last = res
	return res, nil
}

// Reindex runs a new batch after changed files were reported. Pass B needs
// every file, so the whole project is rediscovered; unchanged files come
// from the parse cache.
func (s *Session) Reindex(ctx context.Context, changed []string) (*Stats, error) {
	res, err := s.Index(ctx)
	if err != nil {
		return nil, err
	}
	return res.Stats, nil
}

// Last returns the most recent published batch, or nil.
func (s *Session) Last() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}
